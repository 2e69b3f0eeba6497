package services

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/igorsal/commit-bridge/internal/models"
	"github.com/igorsal/commit-bridge/pkg/logger"
	"github.com/igorsal/commit-bridge/pkg/metrics"
)

func TestParseStatusMapping(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		want    models.StatusMapping
		wantErr bool
	}{
		{
			name: "integer and string identifiers",
			doc:  "in_progress: 7\ntesting: \"9\"\ncompleted: closed\n",
			want: models.StatusMapping{
				models.StatusInProgress: "7",
				models.StatusTesting:    "9",
				models.StatusCompleted:  "closed",
			},
		},
		{
			name: "missing keys are allowed",
			doc:  "completed: 12\n",
			want: models.StatusMapping{models.StatusCompleted: "12"},
		},
		{
			name: "empty value is skipped",
			doc:  "testing: \"\"\ncompleted: 12\n",
			want: models.StatusMapping{models.StatusCompleted: "12"},
		},
		{
			name: "json document",
			doc:  `{"in_progress": 7, "testing": 9}`,
			want: models.StatusMapping{models.StatusInProgress: "7", models.StatusTesting: "9"},
		},
		{
			name: "empty document",
			doc:  "",
			want: models.StatusMapping{},
		},
		{
			name:    "unknown key",
			doc:     "done: 3\n",
			wantErr: true,
		},
		{
			name:    "non-scalar value",
			doc:     "testing:\n  - 1\n  - 2\n",
			wantErr: true,
		},
		{
			name:    "not a mapping",
			doc:     "- testing\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStatusMapping([]byte(tt.doc))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadStatusMapping_EmptyPath(t *testing.T) {
	m, err := LoadStatusMapping("")
	require.NoError(t, err)
	assert.Empty(t, m)
}

func TestLoadStatusMapping_MissingFile(t *testing.T) {
	_, err := LoadStatusMapping(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestStatusMappingStore_Reload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "statuses.yaml")
	require.NoError(t, os.WriteFile(path, []byte("testing: 9\n"), 0o600))

	store, err := NewStatusMappingStore(path, logger.NewNop(), metrics.NewPrometheusCollector(prometheus.NewRegistry()))
	require.NoError(t, err)

	snapshot := store.Current()
	id, ok := snapshot.Lookup(models.StatusTesting)
	require.True(t, ok)
	assert.Equal(t, "9", id)
	_, ok = snapshot.Lookup(models.StatusCompleted)
	assert.False(t, ok)

	require.NoError(t, os.WriteFile(path, []byte("testing: 10\ncompleted: 12\n"), 0o600))
	reloaded, err := store.Reload()
	require.NoError(t, err)
	assert.Equal(t, []string{"completed", "testing"}, reloaded.Keys())
	assert.Equal(t, reloaded, store.Current())

	// earlier snapshots are not mutated
	assert.Equal(t, "9", snapshot[models.StatusTesting])
}

func TestStatusMappingStore_FailedReloadKeepsMapping(t *testing.T) {
	path := filepath.Join(t.TempDir(), "statuses.yaml")
	require.NoError(t, os.WriteFile(path, []byte("completed: 12\n"), 0o600))

	store, err := NewStatusMappingStore(path, logger.NewNop(), metrics.NewPrometheusCollector(prometheus.NewRegistry()))
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("bogus: 1\n"), 0o600))
	_, err = store.Reload()
	require.Error(t, err)

	assert.Equal(t, models.StatusMapping{models.StatusCompleted: "12"}, store.Current())
}

func TestNewStatusMappingStore_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "statuses.yaml")
	require.NoError(t, os.WriteFile(path, []byte("finished: 1\n"), 0o600))

	_, err := NewStatusMappingStore(path, logger.NewNop(), metrics.NewPrometheusCollector(prometheus.NewRegistry()))
	assert.Error(t, err)
}

func TestStatusMappingStore_Gauge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "statuses.yaml")
	require.NoError(t, os.WriteFile(path, []byte("in_progress: 7\ncompleted: 12\n"), 0o600))

	fm := newFakeMetrics()
	store, err := NewStatusMappingStore(path, logger.NewNop(), fm)
	require.NoError(t, err)
	assert.Equal(t, float64(2), fm.gauge("status_mapping_entries", nil))

	require.NoError(t, os.WriteFile(path, []byte("completed: 12\n"), 0o600))
	_, err = store.Reload()
	require.NoError(t, err)
	assert.Equal(t, float64(1), fm.gauge("status_mapping_entries", nil))
}
