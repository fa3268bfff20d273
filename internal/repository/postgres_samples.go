package repository

import (
	"context"
	"database/sql"
	"fmt"

	"irrad-data/internal/common/database"
	"irrad-data/internal/domain"
)

type PostgresSamplesRepository struct {
	db *sql.DB
}

func NewPostgresSamplesRepository(db *sql.DB) *PostgresSamplesRepository {
	return &PostgresSamplesRepository{db: db}
}

var _ SamplesRepository = (*PostgresSamplesRepository)(nil)

const sampleColumns = `
	id, set_id, name, current_location, last_location, height, width, weight, comments,
	req_fluence_id, material_id, category, storage, status, experiment_id, box_id,
	radiation_length_occupancy, nu_coll_length_occupancy, nu_int_length_occupancy,
	created_at, updated_at, created_by, updated_by`

func scanSample(s rowScanner) (*domain.Sample, error) {
	var x domain.Sample
	err := s.Scan(
		&x.ID, &x.SetID, &x.Name, &x.CurrentLocation, &x.LastLocation, &x.Height, &x.Width, &x.Weight, &x.Comments,
		&x.ReqFluenceID, &x.MaterialID, &x.Category, &x.Storage, &x.Status, &x.ExperimentID, &x.BoxID,
		&x.RadiationLengthOcc, &x.NuCollLengthOcc, &x.NuIntLengthOcc,
		&x.CreatedAt, &x.UpdatedAt, &x.CreatedBy, &x.UpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	return &x, nil
}

func (r *PostgresSamplesRepository) GetSample(ctx context.Context, id int64) (*domain.Sample, error) {
	s, err := scanSample(r.db.QueryRowContext(ctx, `SELECT `+sampleColumns+` FROM samples WHERE id = $1`, id))
	if err != nil {
		return nil, notFound("sample", err)
	}
	return s, nil
}

func (r *PostgresSamplesRepository) GetSampleByName(ctx context.Context, name string) (*domain.Sample, error) {
	s, err := scanSample(r.db.QueryRowContext(ctx, `SELECT `+sampleColumns+` FROM samples WHERE name = $1`, name))
	if err != nil {
		return nil, notFound("sample", err)
	}
	return s, nil
}

func (r *PostgresSamplesRepository) ListSamples(ctx context.Context, filter SamplesFilter) ([]*domain.Sample, error) {
	var w whereBuilder
	w.anyOf("id", filter.IDs)
	if filter.ExperimentID > 0 {
		w.add("experiment_id = $%d", filter.ExperimentID)
	}
	if filter.BoxID > 0 {
		w.add("box_id = $%d", filter.BoxID)
	}
	query := fmt.Sprintf(`SELECT %s FROM samples %s ORDER BY updated_at DESC, name`, sampleColumns, w.clause())

	rows, err := r.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list samples: %w", err)
	}
	defer rows.Close()

	out := []*domain.Sample{}
	for rows.Next() {
		s, err := scanSample(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sample: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate samples: %w", err)
	}
	return out, nil
}

func (r *PostgresSamplesRepository) CreateSample(ctx context.Context, s *domain.Sample) (int64, error) {
	query := `
		INSERT INTO samples (
			set_id, name, current_location, last_location, height, width, weight, comments,
			req_fluence_id, material_id, category, storage, status, experiment_id, box_id,
			radiation_length_occupancy, nu_coll_length_occupancy, nu_int_length_occupancy,
			created_at, updated_at, created_by, updated_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
		RETURNING id
	`
	var id int64
	err := r.db.QueryRowContext(ctx, query,
		s.SetID, s.Name, s.CurrentLocation, s.LastLocation, s.Height, s.Width, s.Weight, s.Comments,
		s.ReqFluenceID, s.MaterialID, s.Category, s.Storage, s.Status, s.ExperimentID, s.BoxID,
		s.RadiationLengthOcc, s.NuCollLengthOcc, s.NuIntLengthOcc,
		s.CreatedAt, s.UpdatedAt, s.CreatedBy, s.UpdatedBy,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create sample: %w", err)
	}
	s.ID = id
	return id, nil
}

func (r *PostgresSamplesRepository) UpdateSample(ctx context.Context, s *domain.Sample) error {
	query := `
		UPDATE samples SET
			set_id = $2, name = $3, current_location = $4, last_location = $5, height = $6, width = $7,
			weight = $8, comments = $9, req_fluence_id = $10, material_id = $11, category = $12,
			storage = $13, status = $14, experiment_id = $15, box_id = $16,
			radiation_length_occupancy = $17, nu_coll_length_occupancy = $18, nu_int_length_occupancy = $19,
			updated_at = $20, updated_by = $21
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query,
		s.ID, s.SetID, s.Name, s.CurrentLocation, s.LastLocation, s.Height, s.Width,
		s.Weight, s.Comments, s.ReqFluenceID, s.MaterialID, s.Category,
		s.Storage, s.Status, s.ExperimentID, s.BoxID,
		s.RadiationLengthOcc, s.NuCollLengthOcc, s.NuIntLengthOcc,
		s.UpdatedAt, s.UpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to update sample: %w", err)
	}
	return checkAffected(res, "sample")
}

func (r *PostgresSamplesRepository) DeleteSample(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM samples WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete sample: %w", err)
	}
	return checkAffected(res, "sample")
}

func (r *PostgresSamplesRepository) ListSetIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT set_id FROM samples WHERE set_id IS NOT NULL AND set_id <> ''`)
	if err != nil {
		return nil, fmt.Errorf("failed to list set ids: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan set id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate set ids: %w", err)
	}
	return ids, nil
}

func (r *PostgresSamplesRepository) listLayers(ctx context.Context, column string, id int64) ([]*domain.Layer, error) {
	query := fmt.Sprintf(`SELECT id, name, length, compound_id, sample_id FROM layers WHERE %s = $1 ORDER BY id`, column)
	rows, err := r.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list layers: %w", err)
	}
	defer rows.Close()

	out := []*domain.Layer{}
	for rows.Next() {
		var l domain.Layer
		if err := rows.Scan(&l.ID, &l.Name, &l.Length, &l.CompoundID, &l.SampleID); err != nil {
			return nil, fmt.Errorf("failed to scan layer: %w", err)
		}
		out = append(out, &l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate layers: %w", err)
	}
	return out, nil
}

func (r *PostgresSamplesRepository) ListLayers(ctx context.Context, sampleID int64) ([]*domain.Layer, error) {
	return r.listLayers(ctx, "sample_id", sampleID)
}

func (r *PostgresSamplesRepository) ListLayersByCompound(ctx context.Context, compoundID int64) ([]*domain.Layer, error) {
	return r.listLayers(ctx, "compound_id", compoundID)
}

func (r *PostgresSamplesRepository) SaveLayers(ctx context.Context, sampleID int64, layers []*domain.Layer) error {
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM layers WHERE sample_id = $1`, sampleID); err != nil {
			return err
		}
		for _, l := range layers {
			err := tx.QueryRowContext(ctx,
				`INSERT INTO layers (name, length, compound_id, sample_id) VALUES ($1, $2, $3, $4) RETURNING id`,
				l.Name, l.Length, l.CompoundID, sampleID,
			).Scan(&l.ID)
			if err != nil {
				return err
			}
			l.SampleID = sampleID
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save layers: %w", err)
	}
	return nil
}

func (r *PostgresSamplesRepository) ListOccupancies(ctx context.Context, sampleID int64) ([]*domain.Occupancy, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, sample_id, radiation_length_occupancy, nu_coll_length_occupancy, nu_int_length_occupancy
		FROM occupancies
		WHERE sample_id = $1
		ORDER BY id
	`, sampleID)
	if err != nil {
		return nil, fmt.Errorf("failed to list occupancies: %w", err)
	}
	defer rows.Close()

	out := []*domain.Occupancy{}
	for rows.Next() {
		var o domain.Occupancy
		if err := rows.Scan(&o.ID, &o.SampleID, &o.RadiationLengthOcc, &o.NuCollLengthOcc, &o.NuIntLengthOcc); err != nil {
			return nil, fmt.Errorf("failed to scan occupancy: %w", err)
		}
		out = append(out, &o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate occupancies: %w", err)
	}
	return out, nil
}

func (r *PostgresSamplesRepository) SaveOccupancy(ctx context.Context, o *domain.Occupancy) error {
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM occupancies WHERE sample_id = $1`, o.SampleID); err != nil {
			return err
		}
		return tx.QueryRowContext(ctx, `
			INSERT INTO occupancies (sample_id, radiation_length_occupancy, nu_coll_length_occupancy, nu_int_length_occupancy)
			VALUES ($1, $2, $3, $4)
			RETURNING id
		`, o.SampleID, o.RadiationLengthOcc, o.NuCollLengthOcc, o.NuIntLengthOcc).Scan(&o.ID)
	})
	if err != nil {
		return fmt.Errorf("failed to save occupancy: %w", err)
	}
	return nil
}
