package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"irrad-data/internal/domain"
)

var fluenceFactorCols = []string{
	"id", "value", "irrad_table", "dosimeter_height", "dosimeter_width", "is_scan", "status", "nuclide", "created_at", "updated_at",
}

func TestEnsureDefaultFactor_Existing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresFluenceFactorsRepository(db)

	now := time.Now()
	mock.ExpectQuery(`WHERE value = 1 ORDER BY id LIMIT 1`).
		WillReturnRows(sqlmock.NewRows(fluenceFactorCols).
			AddRow(int64(3), 1.0, nil, nil, nil, false, domain.StatusActive, "Na-22", now, now))

	f, err := repo.EnsureDefaultFactor(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(3), f.ID)
	assert.True(t, f.IsDefault())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureDefaultFactor_CreatesMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresFluenceFactorsRepository(db)

	now := time.Now()
	mock.ExpectQuery(`WHERE value = 1`).WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`INSERT INTO fluence_factors`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(8), now, now))

	f, err := repo.EnsureDefaultFactor(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(8), f.ID)
	assert.Equal(t, 1.0, f.Value.Float64)
	assert.Equal(t, domain.StatusActive, f.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListActiveFactors_Args(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresFluenceFactorsRepository(db)

	mock.ExpectQuery(`WHERE status = \$1 AND irrad_table = \$2`).
		WithArgs(domain.StatusActive, "IRRAD3", 10.0, 20.0).
		WillReturnRows(sqlmock.NewRows(fluenceFactorCols))

	out, err := repo.ListActiveFactors(context.Background(), "IRRAD3", 10, 20)

	require.NoError(t, err)
	assert.Empty(t, out)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListIrradiations_Filters(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresIrradiationsRepository(db)

	mock.ExpectQuery(`WHERE sample_id = ANY\(\$1\) AND irrad_table = \$2 AND status = \$3 ORDER BY updated_at DESC, id`).
		WithArgs(sqlmock.AnyArg(), "IRRAD5", domain.StatusInBeam).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	out, err := repo.ListIrradiations(context.Background(), IrradiationsFilter{
		SampleIDs:  []int64{1},
		IrradTable: "IRRAD5",
		Status:     domain.StatusInBeam,
	})

	require.NoError(t, err)
	assert.Empty(t, out)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSumSec_NullIsZero(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresSecRepository(db)

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(time.Hour)
	mock.ExpectQuery(`SELECT SUM\(sec_value\) FROM sec_data`).
		WithArgs(domain.DefaultSecID, from, to).
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(nil))

	sum, err := repo.SumSec(context.Background(), domain.DefaultSecID, from, to)

	require.NoError(t, err)
	assert.Equal(t, 0.0, sum)
	require.NoError(t, mock.ExpectationsWereMet())
}
