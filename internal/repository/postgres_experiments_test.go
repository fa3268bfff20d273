package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"irrad-data/internal/domain"
)

var experimentCols = []string{
	"id", "title", "description", "cern_experiment", "availability", "constraints",
	"number_samples", "number_registered_samples", "number_users",
	"radiation_length_occupancy", "nu_coll_length_occupancy", "nu_int_length_occupancy",
	"comments", "category", "regulations_flag", "irradiation_type", "emergency_phone", "status",
	"responsible_id", "public_experiment", "created_at", "updated_at", "created_by", "updated_by",
}

func experimentRow(rows *sqlmock.Rows, id int64, title string, public bool) *sqlmock.Rows {
	now := time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC)
	return rows.AddRow(
		id, title, "irradiation of pixel modules", "ATLAS", now, "none",
		10, 2, 3,
		1.5, 0.25, 0.125,
		nil, domain.CategoryPassiveStandard, true, "Protons", "+41 22 767 0000", domain.StatusRegistered,
		int64(4), public, now, now, int64(4), int64(4),
	)
}

func setupMockExperimentsDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *PostgresExperimentsRepository) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return db, mock, NewPostgresExperimentsRepository(db)
}

func TestGetExperiment_Success(t *testing.T) {
	db, mock, repo := setupMockExperimentsDB(t)
	defer db.Close()

	mock.ExpectQuery(`FROM experiments WHERE id = \$1`).
		WithArgs(int64(3)).
		WillReturnRows(experimentRow(sqlmock.NewRows(experimentCols), 3, "PIXEL-2024", false))

	e, err := repo.GetExperiment(context.Background(), 3)

	require.NoError(t, err)
	assert.Equal(t, "PIXEL-2024", e.String())
	assert.Equal(t, domain.VisibilityPrivate, e.Visibility())
	assert.Equal(t, int64(4), e.ResponsibleID.Int64)
	assert.True(t, e.Availability.Valid)
	assert.False(t, e.Comments.Valid)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListExperiments_UserWithPublic(t *testing.T) {
	db, mock, repo := setupMockExperimentsDB(t)
	defer db.Close()

	rows := sqlmock.NewRows(experimentCols)
	experimentRow(rows, 1, "A", true)
	experimentRow(rows, 2, "B", false)
	mock.ExpectQuery(`WHERE \(responsible_id = \$1 OR id IN \(SELECT experiment_id FROM experiment_users WHERE user_id = \$1\) OR public_experiment\) ORDER BY updated_at DESC, title`).
		WithArgs(int64(4)).
		WillReturnRows(rows)

	out, err := repo.ListExperiments(context.Background(), ExperimentsFilter{UserID: 4, IncludePublic: true})

	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "A", out[0].Title)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListExperiments_ByIDs(t *testing.T) {
	db, mock, repo := setupMockExperimentsDB(t)
	defer db.Close()

	mock.ExpectQuery(`WHERE id = ANY\(\$1\)`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(experimentCols))

	out, err := repo.ListExperiments(context.Background(), ExperimentsFilter{IDs: []int64{1, 2}})

	require.NoError(t, err)
	assert.Empty(t, out)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateExperiment_NotFound(t *testing.T) {
	db, mock, repo := setupMockExperimentsDB(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE experiments SET`).WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateExperiment(context.Background(), &domain.Experiment{ID: 42, Title: "X"})

	assert.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveReqFluences_SyncsRows(t *testing.T) {
	db, mock, repo := setupMockExperimentsDB(t)
	defer db.Close()

	items := []*domain.ReqFluence{
		{ID: 5, ReqFluence: "1e15"},
		{ReqFluence: "5e15"},
	}
	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM req_fluences WHERE experiment_id = \$1 AND NOT \(id = ANY\(\$2\)\)`).
		WithArgs(int64(9), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE req_fluences SET req_fluence = \$3`).
		WithArgs(int64(5), int64(9), "1e15").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO req_fluences`).
		WithArgs(int64(9), "5e15").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(6)))
	mock.ExpectCommit()

	err := repo.SaveReqFluences(context.Background(), 9, items)

	require.NoError(t, err)
	assert.Equal(t, int64(6), items[1].ID)
	assert.Equal(t, int64(9), items[1].ExperimentID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveMaterials_RollsBackOnError(t *testing.T) {
	db, mock, repo := setupMockExperimentsDB(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM materials`).WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	err := repo.SaveMaterials(context.Background(), 9, []*domain.Material{{Material: "Si"}})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to save materials")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCountUserExperiments(t *testing.T) {
	db, mock, repo := setupMockExperimentsDB(t)
	defer db.Close()

	mock.ExpectQuery(`GROUP BY user_id`).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "count"}).AddRow(int64(1), 3).AddRow(int64(2), 1))

	counts, err := repo.CountUserExperiments(context.Background())

	require.NoError(t, err)
	assert.Equal(t, map[int64]int{1: 3, 2: 1}, counts)
	require.NoError(t, mock.ExpectationsWereMet())
}
