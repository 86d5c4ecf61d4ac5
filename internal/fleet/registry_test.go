package fleet_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsanders-rh/costctl/internal/fleet"
)

func setupRegistry(t *testing.T) *fleet.Registry {
	t.Helper()

	loader := fleet.NewLoader("definitions")
	registry, err := fleet.NewRegistry(loader)
	require.NoError(t, err)

	return registry
}

func TestRegistry_Get(t *testing.T) {
	registry := setupRegistry(t)

	t.Run("returns enabled fleet", func(t *testing.T) {
		f, err := registry.Get("gpu-inference")
		require.NoError(t, err)
		assert.Equal(t, "gpu-inference", f.Name)
	})

	t.Run("rejects disabled fleet", func(t *testing.T) {
		_, err := registry.Get("gpu-training")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "disabled")
	})

	t.Run("rejects unknown fleet", func(t *testing.T) {
		_, err := registry.Get("unknown")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})
}

func TestRegistry_List(t *testing.T) {
	registry := setupRegistry(t)

	fleets := registry.List()
	require.NotEmpty(t, fleets)

	for _, f := range fleets {
		assert.True(t, f.Enabled)
	}
}

func TestRegistry_Exists(t *testing.T) {
	registry := setupRegistry(t)

	assert.True(t, registry.Exists("gpu-inference"))
	assert.False(t, registry.Exists("gpu-training")) // disabled
	assert.False(t, registry.Exists("unknown"))
}
