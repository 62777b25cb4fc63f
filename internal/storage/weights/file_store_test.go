package weights

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/sigengine/internal/domain"
)

func TestFileStore_MissingUserGetsDefaults(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "weights.yaml"))

	cfg, err := store.GetWeights(context.Background(), "alice")
	assert.ErrorIs(t, err, domain.ErrConfigurationMissing)
	assert.Equal(t, domain.DefaultWeights(), cfg)
}

func TestFileStore_PutAndGet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "weights.yaml")
	store := NewFileStore(path)
	ctx := context.Background()

	cfg := domain.DefaultWeights()
	cfg.AISignalWeight = 3
	cfg.Risk.UseATRBasedSLTP = true
	require.NoError(t, store.PutWeights(ctx, "alice", cfg))
	require.NoError(t, store.PutWeights(ctx, "", domain.DefaultWeights()))

	got, err := NewFileStore(path).GetWeights(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, cfg, got)

	got, err = store.GetWeights(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultWeights(), got)
}

func TestFileStore_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weights.yaml")
	require.NoError(t, os.WriteFile(path, []byte("default:\n  ma_weight: 3\n  indicators:\n    rsi_period: 10\n"), 0o644))

	cfg, err := NewFileStore(path).GetWeights(context.Background(), DefaultUser)
	require.NoError(t, err)

	want := domain.DefaultWeights()
	want.MAWeight = 3
	want.Indicators.RSIPeriod = 10
	assert.Equal(t, want, cfg)
}

func TestFileStore_InvalidWeights(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weights.yaml")
	require.NoError(t, os.WriteFile(path, []byte("default:\n  rsi_weight: -1\n"), 0o644))

	cfg, err := NewFileStore(path).GetWeights(context.Background(), DefaultUser)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrConfigurationMissing)
	assert.Equal(t, domain.DefaultWeights(), cfg)

	bad := domain.DefaultWeights()
	bad.Indicators.MACDSlow = 5
	assert.Error(t, NewFileStore(path).PutWeights(context.Background(), "bob", bad))
}
