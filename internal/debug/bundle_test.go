package debug

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/SigitArif/POS/internal/storage"
	"github.com/stretchr/testify/require"
)

func TestWriteBundleWritesJSONFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "bundle.json")
	bundle := NewBundle(time.Date(2026, 4, 10, 9, 30, 0, 0, time.UTC))
	bundle.Version = map[string]any{"version": "1.2.3"}
	bundle.Store = &StoreInfo{
		Path:             "/tmp/pos.db",
		SchemaVersion:    7,
		SupportedVersion: 7,
		Migration:        storage.MigrationReport{FromVersion: 4, ToVersion: 7, Applied: []int{5, 6, 7}},
		Products:         3,
		Orders:           2,
	}

	require.NoError(t, WriteBundle(path, bundle))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded Bundle
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Equal(t, bundle.GOOS, decoded.GOOS)
	require.Equal(t, "2026-04-10T09:30:00Z", decoded.GeneratedAt)
	require.Equal(t, "1.2.3", decoded.Version["version"])
	require.NotNil(t, decoded.Store)
	require.Equal(t, []int{5, 6, 7}, decoded.Store.Migration.Applied)
	require.Equal(t, 3, decoded.Store.Products)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestWriteBundleRequiresOutputPath(t *testing.T) {
	t.Parallel()

	err := WriteBundle("", NewBundle(time.Now()))
	require.Error(t, err)
	require.Contains(t, err.Error(), "output path is required")
}

func TestBundleHealthTracksChecks(t *testing.T) {
	t.Parallel()

	bundle := NewBundle(time.Now())
	require.True(t, bundle.Healthy())

	bundle.AddCheck("config", nil, "defaults")
	require.True(t, bundle.Healthy())
	require.Equal(t, Check{Name: "config", OK: true, Message: "defaults"}, bundle.Checks[0])

	bundle.AddCheck("database", errors.New("disk I/O error"), "")
	require.False(t, bundle.Healthy())
	require.Equal(t, "disk I/O error", bundle.Checks[1].Message)
}
