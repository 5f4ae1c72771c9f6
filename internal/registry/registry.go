// Package registry is the process-wide directory of live ring buffers
// (spec §4.5). It tracks ring pointers for flush-all and, because Go has
// no thread-local storage, also owns the map from goroutine id to ring
// that every producer goes through to find its ring. A registry built
// with NewShared (installed via internal/shared's two-level indirection)
// works the same way; the flag only changes what Shared reports.
package registry // import "github.com/tracescope/scopetrace/internal/registry"

import (
	"github.com/tracescope/scopetrace/internal/ring"
	"github.com/tracescope/scopetrace/libpf/xsync"
)

// Registry tracks every ring currently registered for flush-all, and
// owns per-goroutine ring creation through GetOrCreateForThread.
//
// The live-ring list and the thread-to-ring map are each guarded by their
// own xsync.RWMutex, following the teacher's libpf/xsync wrapper idiom
// of hiding protected state behind accessor methods rather than exposing
// a bare mutex.
type Registry struct {
	rings  xsync.RWMutex[[]*ring.Ring]
	byGID  xsync.RWMutex[map[uint64]*ring.Ring]
	shared bool
}

// New returns an empty Registry in per-goroutine-owned mode.
func New() *Registry {
	return &Registry{
		byGID: xsync.NewRWMutex(make(map[uint64]*ring.Ring)),
	}
}

// NewShared returns an empty Registry in shared (centralized-ownership)
// mode, used once install-external-state has run (spec §6, §4.5).
func NewShared() *Registry {
	r := New()
	r.shared = true
	return r
}

// Shared reports whether this registry was built with NewShared.
func (r *Registry) Shared() bool { return r.shared }

// Add registers a ring for flush-all. Spec §4.1's invariant ("registered
// exactly once in its lifetime") is the caller's responsibility; Add
// itself does not de-duplicate.
func (r *Registry) Add(rg *ring.Ring) {
	rings := r.rings.WLock()
	defer r.rings.WUnlock(&rings)
	*rings = append(*rings, rg)
	rg.Registered.Store(true)
}

// Remove unregisters a ring, e.g. on producer goroutine teardown. Events
// still resident in rg are not flushed; per spec §4.1 they are simply
// lost unless the caller flushed first.
func (r *Registry) Remove(rg *ring.Ring) {
	rings := r.rings.WLock()
	defer r.rings.WUnlock(&rings)
	for i, candidate := range *rings {
		if candidate == rg {
			*rings = append((*rings)[:i], (*rings)[i+1:]...)
			rg.Registered.Store(false)
			return
		}
	}
}

// Snapshot returns a copy of the currently-registered ring pointers
// (spec §4.2's flush-all: "copy the registry's current pointer list under
// the registry mutex, release the mutex, then flush-ring each one").
func (r *Registry) Snapshot() []*ring.Ring {
	rings := r.rings.RLock()
	defer r.rings.RUnlock(&rings)
	out := make([]*ring.Ring, len(*rings))
	copy(out, *rings)
	return out
}

// GetOrCreateForThread returns the ring owned by goroutine id gid,
// creating one with newFn if none exists yet. Used in both registry
// modes; newFn is called at most once per gid even under concurrent
// callers racing on the same new thread.
func (r *Registry) GetOrCreateForThread(gid uint64, newFn func() *ring.Ring) *ring.Ring {
	byGID := r.byGID.RLock()
	if rg, ok := (*byGID)[gid]; ok {
		r.byGID.RUnlock(&byGID)
		return rg
	}
	r.byGID.RUnlock(&byGID)

	wGID := r.byGID.WLock()
	defer r.byGID.WUnlock(&wGID)
	if rg, ok := (*wGID)[gid]; ok {
		return rg
	}
	rg := newFn()
	(*wGID)[gid] = rg
	r.Add(rg)
	return rg
}

// RemoveForThread destroys and unregisters the ring owned by gid, if any.
// Used by the shared-state thread-exit guard (spec §4.5, §9).
func (r *Registry) RemoveForThread(gid uint64) {
	wGID := r.byGID.WLock()
	rg, ok := (*wGID)[gid]
	if ok {
		delete(*wGID, gid)
	}
	r.byGID.WUnlock(&wGID)

	if ok {
		r.Remove(rg)
	}
}

// Len reports the number of currently-registered rings; used by tests and
// by DumpBinary to size its per-ring event slice.
func (r *Registry) Len() int {
	rings := r.rings.RLock()
	defer r.rings.RUnlock(&rings)
	return len(*rings)
}
