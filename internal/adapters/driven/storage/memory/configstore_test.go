package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigStore_Seeded(t *testing.T) {
	seed := map[string]any{"storage.backend": "memory"}
	store := NewConfigStore(seed)
	seed["storage.backend"] = "changed"

	assert.Equal(t, "memory", store.GetString("storage.backend"))
	assert.Empty(t, store.Path())
}

func TestConfigStore_TypedGetters(t *testing.T) {
	store := NewConfigStore(map[string]any{
		"s":   "value",
		"i":   7,
		"i64": int64(8),
		"f":   float64(9),
		"b":   true,
	})

	assert.Equal(t, "value", store.GetString("s"))
	assert.Equal(t, 7, store.GetInt("i"))
	assert.Equal(t, 8, store.GetInt("i64"))
	assert.Equal(t, 9, store.GetInt("f"))
	assert.True(t, store.GetBool("b"))

	// Wrong types and missing keys return zero values.
	assert.Empty(t, store.GetString("i"))
	assert.Zero(t, store.GetInt("s"))
	assert.False(t, store.GetBool("missing"))
}

func TestConfigStore_SetSaveLoad(t *testing.T) {
	store := NewConfigStore(nil)

	require.NoError(t, store.Set("log.verbose", true))
	require.NoError(t, store.Save())
	require.NoError(t, store.Load())

	v, ok := store.Get("log.verbose")
	assert.True(t, ok)
	assert.Equal(t, true, v)
}
