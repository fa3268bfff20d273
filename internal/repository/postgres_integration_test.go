//go:build integration

package repository

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"irrad-data/internal/common/database"
	"irrad-data/internal/config"
	"irrad-data/internal/domain"
)

func setupTestDB(t *testing.T) *sql.DB {
	cfg := config.Load()
	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		t.Skipf("Skipping integration test: database not available: %v", err)
		return nil
	}
	return db
}

func TestPostgresRepos_SampleLifecycle(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	repos := NewPostgresRepos(db)
	ctx := context.Background()
	suffix := time.Now().UnixNano()
	now := time.Now().UTC().Truncate(time.Second)

	exp := &domain.Experiment{
		Title:  fmt.Sprintf("it-experiment-%d", suffix),
		Status: domain.StatusRegistered,
		Audit:  domain.Audit{CreatedAt: now, UpdatedAt: now},
	}
	expID, err := repos.Experiments.CreateExperiment(ctx, exp)
	require.NoError(t, err)
	defer repos.Experiments.DeleteExperiment(ctx, expID)

	s := &domain.Sample{
		Name:         fmt.Sprintf("it-sample-%d", suffix),
		Status:       domain.StatusRegistered,
		ExperimentID: domain.NullID(expID),
		Audit:        domain.Audit{CreatedAt: now, UpdatedAt: now},
	}
	sID, err := repos.Samples.CreateSample(ctx, s)
	require.NoError(t, err)
	defer repos.Samples.DeleteSample(ctx, sID)

	require.NoError(t, repos.Samples.SaveLayers(ctx, sID, []*domain.Layer{{Name: "l1", Length: 2}}))
	require.NoError(t, repos.Samples.SaveOccupancy(ctx, &domain.Occupancy{SampleID: sID, RadiationLengthOcc: 1.5}))

	got, err := repos.Samples.GetSample(ctx, sID)
	require.NoError(t, err)
	assert.Equal(t, s.Name, got.Name)

	samples, err := repos.Samples.ListSamples(ctx, SamplesFilter{ExperimentID: expID})
	require.NoError(t, err)
	assert.Len(t, samples, 1)

	occ, err := repos.Samples.ListOccupancies(ctx, sID)
	require.NoError(t, err)
	require.Len(t, occ, 1)
	assert.Equal(t, 1.5, occ[0].RadiationLengthOcc)
}

func TestPostgresRepos_DefaultFactor(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	repos := NewPostgresRepos(db)

	f, err := repos.FluenceFactors.EnsureDefaultFactor(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1.0, f.Value.Float64)
}
