// Package shared implements the two-level indirection spec §6/§9
// describe for configuration and registry access: consumer code never
// reads a static record directly, it goes through an accessor that
// returns either the default process-local instance or an
// externally-installed one. install-external-state switches the mode
// exactly once, at startup, and is not changed thereafter.
package shared // import "github.com/tracescope/scopetrace/internal/shared"

import (
	"sync/atomic"

	"github.com/tracescope/scopetrace/config"
	"github.com/tracescope/scopetrace/internal/registry"
	"github.com/tracescope/scopetrace/libpf/xsync"
)

var (
	externalConfig   atomic.Pointer[config.Config]
	externalRegistry atomic.Pointer[registry.Registry]

	defaultConfig   xsync.Once[*config.Config]
	defaultRegistry xsync.Once[*registry.Registry]

	installed atomic.Bool
)

// Config returns the externally-installed configuration if one has been
// installed, otherwise the lazily-created process-local default.
func Config() *config.Config {
	if c := externalConfig.Load(); c != nil {
		return c
	}
	v, _ := defaultConfig.GetOrInit(func() (*config.Config, error) {
		return config.Default(), nil
	})
	return *v
}

// Registry returns the externally-installed registry if one has been
// installed, otherwise the lazily-created process-local default
// (per-goroutine-owned mode).
func Registry() *registry.Registry {
	if r := externalRegistry.Load(); r != nil {
		return r
	}
	v, _ := defaultRegistry.GetOrInit(func() (*registry.Registry, error) {
		return registry.New(), nil
	})
	return *v
}

// InstallExternalState installs cfg and reg as the process-wide shared
// instances, switching every subsequent Config()/Registry() call to
// centralized mode. It succeeds at most once per process; later calls
// are rejected, matching spec §4.5's "determined once at startup ... and
// is not changed thereafter." Returns whether the install took effect.
func InstallExternalState(cfg *config.Config, reg *registry.Registry) bool {
	if !installed.CompareAndSwap(false, true) {
		return false
	}
	externalConfig.Store(cfg)
	externalRegistry.Store(reg)
	return true
}

// Installed reports whether external state has been installed, i.e.
// whether the registry is operating in shared (centralized-ownership)
// mode.
func Installed() bool {
	return installed.Load()
}

// reset is test-only: it clears installed state so each test gets a
// fresh process-local default. Production code never calls this.
func reset() {
	installed.Store(false)
	externalConfig.Store(nil)
	externalRegistry.Store(nil)
	defaultConfig = xsync.Once[*config.Config]{}
	defaultRegistry = xsync.Once[*registry.Registry]{}
}
