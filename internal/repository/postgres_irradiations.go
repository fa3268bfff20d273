package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"irrad-data/internal/domain"
)

type PostgresIrradiationsRepository struct {
	db *sql.DB
}

func NewPostgresIrradiationsRepository(db *sql.DB) *PostgresIrradiationsRepository {
	return &PostgresIrradiationsRepository{db: db}
}

var _ IrradiationsRepository = (*PostgresIrradiationsRepository)(nil)

const irradiationColumns = `
	id, sample_id, dosimeter_id, previous_irradiation_id, fluence_factor_id,
	date_in, date_out, date_first_sec, date_last_sec, table_position, irrad_table,
	sec, estimated_fluence, measured_fluence, fluence_error, status, dos_position, is_scan, comments,
	created_at, updated_at, created_by, updated_by`

func scanIrradiation(s rowScanner) (*domain.Irradiation, error) {
	var i domain.Irradiation
	err := s.Scan(
		&i.ID, &i.SampleID, &i.DosimeterID, &i.PreviousIrradiationID, &i.FluenceFactorID,
		&i.DateIn, &i.DateOut, &i.DateFirstSec, &i.DateLastSec, &i.TablePosition, &i.IrradTable,
		&i.Sec, &i.EstimatedFluence, &i.MeasuredFluence, &i.FluenceError, &i.Status, &i.DosPosition, &i.IsScan, &i.Comments,
		&i.CreatedAt, &i.UpdatedAt, &i.CreatedBy, &i.UpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	return &i, nil
}

func (r *PostgresIrradiationsRepository) GetIrradiation(ctx context.Context, id int64) (*domain.Irradiation, error) {
	irr, err := scanIrradiation(r.db.QueryRowContext(ctx, `SELECT `+irradiationColumns+` FROM irradiations WHERE id = $1`, id))
	if err != nil {
		return nil, notFound("irradiation", err)
	}
	return irr, nil
}

func (r *PostgresIrradiationsRepository) ListIrradiations(ctx context.Context, filter IrradiationsFilter) ([]*domain.Irradiation, error) {
	var w whereBuilder
	w.anyOf("id", filter.IDs)
	w.anyOf("sample_id", filter.SampleIDs)
	w.anyOf("dosimeter_id", filter.DosimeterIDs)
	if filter.IrradTable != "" {
		w.add("irrad_table = $%d", filter.IrradTable)
	}
	if filter.Status != "" {
		w.add("status = $%d", filter.Status)
	}
	query := fmt.Sprintf(`SELECT %s FROM irradiations %s ORDER BY updated_at DESC, id`, irradiationColumns, w.clause())

	rows, err := r.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list irradiations: %w", err)
	}
	defer rows.Close()

	out := []*domain.Irradiation{}
	for rows.Next() {
		irr, err := scanIrradiation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan irradiation: %w", err)
		}
		out = append(out, irr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate irradiations: %w", err)
	}
	return out, nil
}

func (r *PostgresIrradiationsRepository) CreateIrradiation(ctx context.Context, i *domain.Irradiation) (int64, error) {
	query := `
		INSERT INTO irradiations (
			sample_id, dosimeter_id, previous_irradiation_id, fluence_factor_id,
			date_in, date_out, date_first_sec, date_last_sec, table_position, irrad_table,
			sec, estimated_fluence, measured_fluence, fluence_error, status, dos_position, is_scan, comments,
			created_at, updated_at, created_by, updated_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
		RETURNING id
	`
	var id int64
	err := r.db.QueryRowContext(ctx, query,
		i.SampleID, i.DosimeterID, i.PreviousIrradiationID, i.FluenceFactorID,
		i.DateIn, i.DateOut, i.DateFirstSec, i.DateLastSec, i.TablePosition, i.IrradTable,
		i.Sec, i.EstimatedFluence, i.MeasuredFluence, i.FluenceError, i.Status, i.DosPosition, i.IsScan, i.Comments,
		i.CreatedAt, i.UpdatedAt, i.CreatedBy, i.UpdatedBy,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create irradiation: %w", err)
	}
	i.ID = id
	return id, nil
}

func (r *PostgresIrradiationsRepository) UpdateIrradiation(ctx context.Context, i *domain.Irradiation) error {
	query := `
		UPDATE irradiations SET
			sample_id = $2, dosimeter_id = $3, previous_irradiation_id = $4, fluence_factor_id = $5,
			date_in = $6, date_out = $7, date_first_sec = $8, date_last_sec = $9, table_position = $10,
			irrad_table = $11, sec = $12, estimated_fluence = $13, measured_fluence = $14,
			fluence_error = $15, status = $16, dos_position = $17, is_scan = $18, comments = $19,
			updated_at = $20, updated_by = $21
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query,
		i.ID, i.SampleID, i.DosimeterID, i.PreviousIrradiationID, i.FluenceFactorID,
		i.DateIn, i.DateOut, i.DateFirstSec, i.DateLastSec, i.TablePosition,
		i.IrradTable, i.Sec, i.EstimatedFluence, i.MeasuredFluence,
		i.FluenceError, i.Status, i.DosPosition, i.IsScan, i.Comments,
		i.UpdatedAt, i.UpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to update irradiation: %w", err)
	}
	return checkAffected(res, "irradiation")
}

func (r *PostgresIrradiationsRepository) DeleteIrradiation(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM irradiations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete irradiation: %w", err)
	}
	return checkAffected(res, "irradiation")
}

type PostgresFluenceFactorsRepository struct {
	db *sql.DB
}

func NewPostgresFluenceFactorsRepository(db *sql.DB) *PostgresFluenceFactorsRepository {
	return &PostgresFluenceFactorsRepository{db: db}
}

var _ FluenceFactorsRepository = (*PostgresFluenceFactorsRepository)(nil)

const fluenceFactorColumns = `
	id, value, irrad_table, dosimeter_height, dosimeter_width, is_scan, status, nuclide, created_at, updated_at`

func scanFluenceFactor(s rowScanner) (*domain.FluenceFactor, error) {
	var f domain.FluenceFactor
	err := s.Scan(
		&f.ID, &f.Value, &f.IrradTable, &f.DosimeterHeight, &f.DosimeterWidth,
		&f.IsScan, &f.Status, &f.Nuclide, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *PostgresFluenceFactorsRepository) list(ctx context.Context, query string, args ...any) ([]*domain.FluenceFactor, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list fluence factors: %w", err)
	}
	defer rows.Close()

	out := []*domain.FluenceFactor{}
	for rows.Next() {
		f, err := scanFluenceFactor(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan fluence factor: %w", err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate fluence factors: %w", err)
	}
	return out, nil
}

func (r *PostgresFluenceFactorsRepository) GetFluenceFactor(ctx context.Context, id int64) (*domain.FluenceFactor, error) {
	f, err := scanFluenceFactor(r.db.QueryRowContext(ctx, `SELECT `+fluenceFactorColumns+` FROM fluence_factors WHERE id = $1`, id))
	if err != nil {
		return nil, notFound("fluence factor", err)
	}
	return f, nil
}

func (r *PostgresFluenceFactorsRepository) ListFluenceFactors(ctx context.Context) ([]*domain.FluenceFactor, error) {
	return r.list(ctx, `SELECT `+fluenceFactorColumns+` FROM fluence_factors ORDER BY updated_at DESC, id`)
}

func (r *PostgresFluenceFactorsRepository) ListActiveFactors(ctx context.Context, table string, height, width float64) ([]*domain.FluenceFactor, error) {
	return r.list(ctx, `
		SELECT `+fluenceFactorColumns+`
		FROM fluence_factors
		WHERE status = $1 AND irrad_table = $2 AND dosimeter_height = $3 AND dosimeter_width = $4
		ORDER BY id
	`, domain.StatusActive, table, height, width)
}

func (r *PostgresFluenceFactorsRepository) EnsureDefaultFactor(ctx context.Context) (*domain.FluenceFactor, error) {
	f, err := scanFluenceFactor(r.db.QueryRowContext(ctx,
		`SELECT `+fluenceFactorColumns+` FROM fluence_factors WHERE value = 1 ORDER BY id LIMIT 1`))
	if err == nil {
		return f, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to get default fluence factor: %w", err)
	}
	def := &domain.FluenceFactor{
		Value:   sql.NullFloat64{Float64: 1, Valid: true},
		Status:  domain.StatusActive,
		Nuclide: domain.Nuclides[0],
	}
	if _, err := r.CreateFluenceFactor(ctx, def); err != nil {
		return nil, err
	}
	return def, nil
}

func (r *PostgresFluenceFactorsRepository) CreateFluenceFactor(ctx context.Context, f *domain.FluenceFactor) (int64, error) {
	query := `
		INSERT INTO fluence_factors (value, irrad_table, dosimeter_height, dosimeter_width, is_scan, status, nuclide)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		f.Value, f.IrradTable, f.DosimeterHeight, f.DosimeterWidth, f.IsScan, f.Status, f.Nuclide,
	).Scan(&f.ID, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to create fluence factor: %w", err)
	}
	return f.ID, nil
}

func (r *PostgresFluenceFactorsRepository) UpdateFluenceFactor(ctx context.Context, f *domain.FluenceFactor) error {
	query := `
		UPDATE fluence_factors SET
			value = $2, irrad_table = $3, dosimeter_height = $4, dosimeter_width = $5,
			is_scan = $6, status = $7, nuclide = $8, updated_at = NOW()
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query,
		f.ID, f.Value, f.IrradTable, f.DosimeterHeight, f.DosimeterWidth, f.IsScan, f.Status, f.Nuclide,
	)
	if err != nil {
		return fmt.Errorf("failed to update fluence factor: %w", err)
	}
	return checkAffected(res, "fluence factor")
}

func (r *PostgresFluenceFactorsRepository) DeleteFluenceFactor(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM fluence_factors WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete fluence factor: %w", err)
	}
	return checkAffected(res, "fluence factor")
}
