package runstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAndRecent(t *testing.T) {
	ctx := context.Background()
	store, err := Open(ctx, filepath.Join(t.TempDir(), "results", "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	var ids []string
	for i := range 3 {
		r := Run{
			ID:         uuid.NewString(),
			StartedAt:  base.Add(time.Duration(i) * time.Hour),
			FinishedAt: base.Add(time.Duration(i)*time.Hour + time.Minute),
			Dataset:    "AirQualityUCI_synthetic.csv",
			Rows:       999,
			Features:   11,
			Horizon:    1,
			Accuracy:   0.8 + float64(i)/100,
			Precision:  0.6,
			Recall:     0.5,
			F1:         0.55,
			ROCAUC:     0.85,
			ModelPath:  "results/air_quality_model.onnx",
		}
		require.NoError(t, store.Record(ctx, r))
		ids = append(ids, r.ID)
	}

	runs, err := store.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, ids[2], runs[0].ID)
	assert.Equal(t, ids[1], runs[1].ID)
	assert.True(t, runs[0].StartedAt.Equal(base.Add(2*time.Hour)))
	assert.InDelta(t, 0.82, runs[0].Accuracy, 1e-12)
	assert.Equal(t, 11, runs[0].Features)
}

func TestRecordDuplicateID(t *testing.T) {
	ctx := context.Background()
	store, err := Open(ctx, filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer store.Close()

	r := Run{ID: "fixed", StartedAt: time.Now(), FinishedAt: time.Now()}
	require.NoError(t, store.Record(ctx, r))
	assert.Error(t, store.Record(ctx, r))
}
