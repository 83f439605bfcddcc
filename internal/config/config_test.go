package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reuben/internal/common"
)

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load("/nonexistent-config-test.yaml")
	require.NoError(t, err)

	assert.Equal(t, ":9001", cfg.ListenAddr)
	assert.Equal(t, ":3000", cfg.HTTPAddr)
	assert.Equal(t, uint64(10), cfg.Bonus)

	dressing := cfg.ForAsset(common.Dressing)
	assert.Equal(t, uint64(2), dressing.UnitValue)
	assert.Equal(t, uint64(1000), dressing.StartingCash)
	assert.Equal(t, uint64(200), dressing.StartingAssets)
}

func TestForAssetFallsBackWhenUnconfigured(t *testing.T) {
	cfg := Config{Assets: map[string]AssetConfig{}}
	got := cfg.ForAsset(common.Swiss)
	assert.Equal(t, AssetConfig{UnitValue: 1, StartingCash: 1000, StartingAssets: 100}, got)
}
