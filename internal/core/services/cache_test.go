package services

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phisch84/domain-repository/internal/core/domain"
)

func cachedNote(id int, state domain.State) *domain.Note {
	n := domain.NewNote("note", "")
	n.SetID(id)
	n.SetState(state)
	return n
}

func TestIdentityCache_Unbounded(t *testing.T) {
	c, err := newIdentityCache[*domain.Note](0)
	require.NoError(t, err)

	for id := 1; id <= 100; id++ {
		c.put(id, cachedNote(id, domain.StateUnchanged))
	}

	assert.Equal(t, 100, c.len())
	assert.True(t, c.contains(1))
}

func TestIdentityCache_EvictsUnchanged(t *testing.T) {
	c, err := newIdentityCache[*domain.Note](2)
	require.NoError(t, err)

	first := cachedNote(1, domain.StateUnchanged)
	c.put(1, first)
	c.put(2, cachedNote(2, domain.StateUnchanged))
	c.put(3, cachedNote(3, domain.StateUnchanged))

	assert.False(t, c.recent.Contains(1))
	assert.True(t, c.recent.Contains(2))
	assert.True(t, c.recent.Contains(3))
	assert.Equal(t, 2, c.len())

	assert.True(t, c.contains(1), "an evicted object still in use is tracked")
	got, ok := c.get(1)
	require.True(t, ok)
	assert.Same(t, first, got)
	assert.True(t, c.recent.Contains(1))
	assert.False(t, c.recent.Contains(2))
	assert.Equal(t, 2, c.len())
}

func TestIdentityCache_CollectedEntriesAreMisses(t *testing.T) {
	c, err := newIdentityCache[*domain.Note](1)
	require.NoError(t, err)

	func() {
		c.put(1, cachedNote(1, domain.StateUnchanged))
	}()
	c.put(2, cachedNote(2, domain.StateUnchanged))
	c.put(3, cachedNote(3, domain.StateUnchanged))
	runtime.GC()

	_, ok := c.get(1)
	assert.False(t, ok)
	assert.NotContains(t, c.entries(), 1)
}

func TestIdentityCache_HoldsPendingAndVirtual(t *testing.T) {
	c, err := newIdentityCache[*domain.Note](1)
	require.NoError(t, err)

	added := cachedNote(-1, domain.StateAdded)
	modified := cachedNote(5, domain.StateModified)
	c.put(-1, added)
	c.put(5, modified)
	c.put(6, cachedNote(6, domain.StateUnchanged))

	got, ok := c.get(-1)
	require.True(t, ok)
	assert.Same(t, added, got)
	got, ok = c.get(5)
	require.True(t, ok)
	assert.Same(t, modified, got)
	assert.Equal(t, 3, c.len())
}

func TestIdentityCache_PromotesSettledObjects(t *testing.T) {
	c, err := newIdentityCache[*domain.Note](1)
	require.NoError(t, err)

	first := cachedNote(1, domain.StateModified)
	c.put(1, first)
	c.put(2, cachedNote(2, domain.StateUnchanged))
	require.True(t, c.contains(1), "modified object is held")

	first.SetState(domain.StateUnchanged)
	got, ok := c.get(1)

	require.True(t, ok)
	assert.Same(t, first, got)
	assert.False(t, c.recent.Contains(2), "promotion evicts the least recent unchanged object")
	assert.Equal(t, 1, c.len())
}

func TestIdentityCache_RemoveDoesNotSpill(t *testing.T) {
	c, err := newIdentityCache[*domain.Note](1)
	require.NoError(t, err)

	c.put(-1, cachedNote(-1, domain.StateAdded))
	c.remove(-1)

	assert.False(t, c.contains(-1))
	assert.Zero(t, c.len())
}

func TestIdentityCache_Purge(t *testing.T) {
	c, err := newIdentityCache[*domain.Note](1)
	require.NoError(t, err)

	c.put(-1, cachedNote(-1, domain.StateAdded))
	kept := cachedNote(2, domain.StateUnchanged)
	c.put(2, kept)
	c.put(3, cachedNote(3, domain.StateUnchanged))
	c.purge()

	assert.Zero(t, c.len())
	assert.Empty(t, c.entries())
	assert.False(t, c.contains(2), "purge forgets evicted objects too")
}

func TestIdentityCache_EntriesKeepRecency(t *testing.T) {
	c, err := newIdentityCache[*domain.Note](2)
	require.NoError(t, err)

	c.put(1, cachedNote(1, domain.StateUnchanged))
	c.put(2, cachedNote(2, domain.StateUnchanged))
	assert.Len(t, c.entries(), 2)
	c.put(3, cachedNote(3, domain.StateUnchanged))

	assert.False(t, c.recent.Contains(1))

	_, ok := c.get(2)
	require.True(t, ok)
	c.put(4, cachedNote(4, domain.StateUnchanged))
	assert.True(t, c.recent.Contains(2))
	assert.False(t, c.recent.Contains(3))
}

func TestIdentityCache_MinID(t *testing.T) {
	c, err := newIdentityCache[*domain.Note](0)
	require.NoError(t, err)
	assert.Zero(t, c.minID())

	c.put(3, cachedNote(3, domain.StateUnchanged))
	assert.Zero(t, c.minID())

	c.put(-2, cachedNote(-2, domain.StateAdded))
	c.put(-5, cachedNote(-5, domain.StateAdded))
	assert.Equal(t, -5, c.minID())
}
