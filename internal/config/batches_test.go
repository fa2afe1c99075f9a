package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadBatchConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg := LoadBatchConfig()

		assert.Equal(t, 5, cfg.Capacity)
		assert.Equal(t, CapacityStrict, cfg.CapacityMode)
		assert.Equal(t, 10, cfg.MaxBatchIndex)
		assert.Len(t, cfg.Horses, 8)
		assert.Len(t, cfg.Defaults["morning"], 3)
		assert.Len(t, cfg.Defaults["evening"], 3)
	})

	t.Run("environment overrides", func(t *testing.T) {
		t.Setenv("BATCH_CAPACITY", "8")
		t.Setenv("BATCH_CAPACITY_MODE", "advisory")
		t.Setenv("BATCH_MAX_INDEX", "15")
		t.Setenv("STABLE_HORSES", "Storm, Blaze")

		cfg := LoadBatchConfig()

		assert.Equal(t, 8, cfg.Capacity)
		assert.Equal(t, CapacityAdvisory, cfg.CapacityMode)
		assert.Equal(t, 15, cfg.MaxBatchIndex)
		assert.Equal(t, []string{"Storm", "Blaze"}, cfg.Horses)
	})

	t.Run("unknown capacity mode falls back to strict", func(t *testing.T) {
		t.Setenv("BATCH_CAPACITY_MODE", "relaxed")

		cfg := LoadBatchConfig()
		assert.Equal(t, CapacityStrict, cfg.CapacityMode)
	})
}

func TestBatchConfig_KnownHorse(t *testing.T) {
	cfg := LoadBatchConfig()

	assert.True(t, cfg.KnownHorse("Alishan"))
	assert.True(t, cfg.KnownHorse("Antilope"))
	assert.False(t, cfg.KnownHorse("Shadowfax"))
	assert.False(t, cfg.KnownHorse(""))
}

func TestBatchConfig_KnownBatchType(t *testing.T) {
	cfg := LoadBatchConfig()

	assert.True(t, cfg.KnownBatchType("morning"))
	assert.True(t, cfg.KnownBatchType("evening"))
	assert.False(t, cfg.KnownBatchType("afternoon"))
}
