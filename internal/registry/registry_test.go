package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tracescope/scopetrace/internal/ring"
)

func TestRegistry_AddRemoveSnapshot(t *testing.T) {
	reg := New()
	assert.False(t, reg.Shared())
	assert.Equal(t, 0, reg.Len())

	r1 := ring.New(4, false, 1, 0)
	r2 := ring.New(4, false, 2, 0)

	reg.Add(r1)
	reg.Add(r2)
	assert.Equal(t, 2, reg.Len())

	snap := reg.Snapshot()
	require.Len(t, snap, 2)
	assert.Contains(t, snap, r1)
	assert.Contains(t, snap, r2)

	// Snapshot is a copy: mutating it must not affect the registry.
	snap[0] = nil
	assert.NotContains(t, reg.Snapshot(), nil)

	reg.Remove(r1)
	assert.Equal(t, 1, reg.Len())
	assert.False(t, r1.Registered.Load())
	assert.Contains(t, reg.Snapshot(), r2)
}

func TestRegistry_SharedModeGetOrCreateForThread(t *testing.T) {
	reg := NewShared()
	assert.True(t, reg.Shared())

	created := 0
	newFn := func() *ring.Ring {
		created++
		return ring.New(4, false, 42, 0)
	}

	r1 := reg.GetOrCreateForThread(100, newFn)
	r2 := reg.GetOrCreateForThread(100, newFn)
	assert.Same(t, r1, r2)
	assert.Equal(t, 1, created)
	assert.Equal(t, 1, reg.Len())

	r3 := reg.GetOrCreateForThread(200, newFn)
	assert.NotSame(t, r1, r3)
	assert.Equal(t, 2, created)
	assert.Equal(t, 2, reg.Len())

	reg.RemoveForThread(100)
	assert.Equal(t, 1, reg.Len())
	assert.Contains(t, reg.Snapshot(), r3)
}
