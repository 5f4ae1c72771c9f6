package shared

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tracescope/scopetrace/config"
	"github.com/tracescope/scopetrace/internal/registry"
)

func TestConfig_DefaultsToProcessLocalInstance(t *testing.T) {
	defer reset()

	c1 := Config()
	c2 := Config()
	assert.Same(t, c1, c2)
	assert.False(t, Installed())
}

func TestRegistry_DefaultsToProcessLocalInstance(t *testing.T) {
	defer reset()

	r1 := Registry()
	r2 := Registry()
	assert.Same(t, r1, r2)
	assert.False(t, r1.Shared())
}

func TestInstallExternalState_SwitchesToSharedMode(t *testing.T) {
	defer reset()

	cfg := config.Default()
	reg := registry.NewShared()

	ok := InstallExternalState(cfg, reg)
	assert.True(t, ok)
	assert.True(t, Installed())
	assert.Same(t, cfg, Config())
	assert.Same(t, reg, Registry())
}

func TestInstallExternalState_OnlyTakesEffectOnce(t *testing.T) {
	defer reset()

	first := config.Default()
	ok := InstallExternalState(first, registry.NewShared())
	assert.True(t, ok)

	second := config.Default()
	ok = InstallExternalState(second, registry.NewShared())
	assert.False(t, ok)
	assert.Same(t, first, Config())
}
