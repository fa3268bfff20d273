package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"irrad-data/internal/common/database"
	"irrad-data/internal/domain"
)

type PostgresExperimentsRepository struct {
	db *sql.DB
}

func NewPostgresExperimentsRepository(db *sql.DB) *PostgresExperimentsRepository {
	return &PostgresExperimentsRepository{db: db}
}

var _ ExperimentsRepository = (*PostgresExperimentsRepository)(nil)

const experimentColumns = `
	id, title, description, cern_experiment, availability, constraints,
	number_samples, number_registered_samples, number_users,
	radiation_length_occupancy, nu_coll_length_occupancy, nu_int_length_occupancy,
	comments, category, regulations_flag, irradiation_type, emergency_phone, status,
	responsible_id, public_experiment, created_at, updated_at, created_by, updated_by`

func scanExperiment(s rowScanner) (*domain.Experiment, error) {
	var e domain.Experiment
	err := s.Scan(
		&e.ID, &e.Title, &e.Description, &e.CERNExperiment, &e.Availability, &e.Constraints,
		&e.NumberSamples, &e.NumberRegisteredSamples, &e.NumberUsers,
		&e.RadiationLengthOcc, &e.NuCollLengthOcc, &e.NuIntLengthOcc,
		&e.Comments, &e.Category, &e.RegulationsFlag, &e.IrradiationType, &e.EmergencyPhone, &e.Status,
		&e.ResponsibleID, &e.PublicExperiment, &e.CreatedAt, &e.UpdatedAt, &e.CreatedBy, &e.UpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *PostgresExperimentsRepository) GetExperiment(ctx context.Context, id int64) (*domain.Experiment, error) {
	query := `SELECT ` + experimentColumns + ` FROM experiments WHERE id = $1`
	e, err := scanExperiment(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound("experiment", err)
	}
	return e, nil
}

func (r *PostgresExperimentsRepository) GetExperimentByTitle(ctx context.Context, title string) (*domain.Experiment, error) {
	query := `SELECT ` + experimentColumns + ` FROM experiments WHERE title = $1`
	e, err := scanExperiment(r.db.QueryRowContext(ctx, query, title))
	if err != nil {
		return nil, notFound("experiment", err)
	}
	return e, nil
}

func (r *PostgresExperimentsRepository) ListExperiments(ctx context.Context, filter ExperimentsFilter) ([]*domain.Experiment, error) {
	var w whereBuilder
	w.anyOf("id", filter.IDs)
	if filter.UserID > 0 {
		cond := `(responsible_id = $%[1]d OR id IN (SELECT experiment_id FROM experiment_users WHERE user_id = $%[1]d)`
		if filter.IncludePublic {
			cond += ` OR public_experiment`
		}
		w.add(cond+`)`, filter.UserID)
	}
	query := fmt.Sprintf(`SELECT %s FROM experiments %s ORDER BY updated_at DESC, title`, experimentColumns, w.clause())

	rows, err := r.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list experiments: %w", err)
	}
	defer rows.Close()

	out := []*domain.Experiment{}
	for rows.Next() {
		e, err := scanExperiment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan experiment: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate experiments: %w", err)
	}
	return out, nil
}

func (r *PostgresExperimentsRepository) CreateExperiment(ctx context.Context, e *domain.Experiment) (int64, error) {
	query := `
		INSERT INTO experiments (
			title, description, cern_experiment, availability, constraints,
			number_samples, number_registered_samples, number_users,
			radiation_length_occupancy, nu_coll_length_occupancy, nu_int_length_occupancy,
			comments, category, regulations_flag, irradiation_type, emergency_phone, status,
			responsible_id, public_experiment, created_at, updated_at, created_by, updated_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)
		RETURNING id
	`
	var id int64
	err := r.db.QueryRowContext(ctx, query,
		e.Title, e.Description, e.CERNExperiment, e.Availability, e.Constraints,
		e.NumberSamples, e.NumberRegisteredSamples, e.NumberUsers,
		e.RadiationLengthOcc, e.NuCollLengthOcc, e.NuIntLengthOcc,
		e.Comments, e.Category, e.RegulationsFlag, e.IrradiationType, e.EmergencyPhone, e.Status,
		e.ResponsibleID, e.PublicExperiment, e.CreatedAt, e.UpdatedAt, e.CreatedBy, e.UpdatedBy,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create experiment: %w", err)
	}
	e.ID = id
	return id, nil
}

func (r *PostgresExperimentsRepository) UpdateExperiment(ctx context.Context, e *domain.Experiment) error {
	query := `
		UPDATE experiments SET
			title = $2, description = $3, cern_experiment = $4, availability = $5, constraints = $6,
			number_samples = $7, number_registered_samples = $8, number_users = $9,
			radiation_length_occupancy = $10, nu_coll_length_occupancy = $11, nu_int_length_occupancy = $12,
			comments = $13, category = $14, regulations_flag = $15, irradiation_type = $16,
			emergency_phone = $17, status = $18, responsible_id = $19, public_experiment = $20,
			updated_at = $21, updated_by = $22
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query,
		e.ID, e.Title, e.Description, e.CERNExperiment, e.Availability, e.Constraints,
		e.NumberSamples, e.NumberRegisteredSamples, e.NumberUsers,
		e.RadiationLengthOcc, e.NuCollLengthOcc, e.NuIntLengthOcc,
		e.Comments, e.Category, e.RegulationsFlag, e.IrradiationType,
		e.EmergencyPhone, e.Status, e.ResponsibleID, e.PublicExperiment,
		e.UpdatedAt, e.UpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to update experiment: %w", err)
	}
	return checkAffected(res, "experiment")
}

func (r *PostgresExperimentsRepository) DeleteExperiment(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM experiments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete experiment: %w", err)
	}
	return checkAffected(res, "experiment")
}

func (r *PostgresExperimentsRepository) GetCategory(ctx context.Context, experimentID int64) (*domain.ExperimentCategory, error) {
	query := `
		SELECT experiment_id, kind, irradiation_area_5x5, irradiation_area_10x10, irradiation_area_20x20,
			category_type, irradiation_area, modus_operandi
		FROM experiment_categories
		WHERE experiment_id = $1
	`
	var c domain.ExperimentCategory
	err := r.db.QueryRowContext(ctx, query, experimentID).Scan(
		&c.ExperimentID, &c.Kind, &c.Area5x5, &c.Area10x10, &c.Area20x20,
		&c.CategoryType, &c.IrradiationArea, &c.ModusOperandi,
	)
	if err != nil {
		return nil, notFound("experiment category", err)
	}
	return &c, nil
}

// SaveCategory upserts the single category row of the experiment.
func (r *PostgresExperimentsRepository) SaveCategory(ctx context.Context, c *domain.ExperimentCategory) error {
	query := `
		INSERT INTO experiment_categories (
			experiment_id, kind, irradiation_area_5x5, irradiation_area_10x10, irradiation_area_20x20,
			category_type, irradiation_area, modus_operandi
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (experiment_id) DO UPDATE SET
			kind = EXCLUDED.kind,
			irradiation_area_5x5 = EXCLUDED.irradiation_area_5x5,
			irradiation_area_10x10 = EXCLUDED.irradiation_area_10x10,
			irradiation_area_20x20 = EXCLUDED.irradiation_area_20x20,
			category_type = EXCLUDED.category_type,
			irradiation_area = EXCLUDED.irradiation_area,
			modus_operandi = EXCLUDED.modus_operandi
	`
	_, err := r.db.ExecContext(ctx, query,
		c.ExperimentID, c.Kind, c.Area5x5, c.Area10x10, c.Area20x20,
		c.CategoryType, c.IrradiationArea, c.ModusOperandi,
	)
	if err != nil {
		return fmt.Errorf("failed to save experiment category: %w", err)
	}
	return nil
}

func (r *PostgresExperimentsRepository) ListReqFluences(ctx context.Context, experimentID int64) ([]*domain.ReqFluence, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, experiment_id, req_fluence FROM req_fluences WHERE experiment_id = $1 ORDER BY id`, experimentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list req fluences: %w", err)
	}
	defer rows.Close()

	out := []*domain.ReqFluence{}
	for rows.Next() {
		var f domain.ReqFluence
		if err := rows.Scan(&f.ID, &f.ExperimentID, &f.ReqFluence); err != nil {
			return nil, fmt.Errorf("failed to scan req fluence: %w", err)
		}
		out = append(out, &f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate req fluences: %w", err)
	}
	return out, nil
}

func (r *PostgresExperimentsRepository) SaveReqFluences(ctx context.Context, experimentID int64, items []*domain.ReqFluence) error {
	values := make([]namedValue, len(items))
	for i, it := range items {
		values[i] = namedValue{id: &it.ID, value: it.ReqFluence}
	}
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		return syncNamedValues(ctx, tx, "req_fluences", "req_fluence", experimentID, values)
	})
	if err != nil {
		return fmt.Errorf("failed to save req fluences: %w", err)
	}
	for _, it := range items {
		it.ExperimentID = experimentID
	}
	return nil
}

func (r *PostgresExperimentsRepository) ListMaterials(ctx context.Context, experimentID int64) ([]*domain.Material, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, experiment_id, material FROM materials WHERE experiment_id = $1 ORDER BY id`, experimentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list materials: %w", err)
	}
	defer rows.Close()

	out := []*domain.Material{}
	for rows.Next() {
		var m domain.Material
		if err := rows.Scan(&m.ID, &m.ExperimentID, &m.Material); err != nil {
			return nil, fmt.Errorf("failed to scan material: %w", err)
		}
		out = append(out, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate materials: %w", err)
	}
	return out, nil
}

func (r *PostgresExperimentsRepository) SaveMaterials(ctx context.Context, experimentID int64, items []*domain.Material) error {
	values := make([]namedValue, len(items))
	for i, it := range items {
		values[i] = namedValue{id: &it.ID, value: it.Material}
	}
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		return syncNamedValues(ctx, tx, "materials", "material", experimentID, values)
	})
	if err != nil {
		return fmt.Errorf("failed to save materials: %w", err)
	}
	for _, it := range items {
		it.ExperimentID = experimentID
	}
	return nil
}

// namedValue is one row of a per-experiment value table (req_fluences, materials).
type namedValue struct {
	id    *int64
	value string
}

// syncNamedValues deletes the rows not kept, updates the kept ones and inserts the new ones.
// Table and column names are constants of this package.
func syncNamedValues(ctx context.Context, tx *sql.Tx, table, column string, experimentID int64, values []namedValue) error {
	keep := []int64{}
	for _, v := range values {
		if *v.id > 0 {
			keep = append(keep, *v.id)
		}
	}
	del := fmt.Sprintf(`DELETE FROM %s WHERE experiment_id = $1 AND NOT (id = ANY($2))`, table)
	if _, err := tx.ExecContext(ctx, del, experimentID, pq.Array(keep)); err != nil {
		return err
	}
	upd := fmt.Sprintf(`UPDATE %s SET %s = $3 WHERE id = $1 AND experiment_id = $2`, table, column)
	ins := fmt.Sprintf(`INSERT INTO %s (experiment_id, %s) VALUES ($1, $2) RETURNING id`, table, column)
	for _, v := range values {
		if *v.id > 0 {
			if _, err := tx.ExecContext(ctx, upd, *v.id, experimentID, v.value); err != nil {
				return err
			}
			continue
		}
		if err := tx.QueryRowContext(ctx, ins, experimentID, v.value).Scan(v.id); err != nil {
			return err
		}
	}
	return nil
}

func (r *PostgresExperimentsRepository) ListMembers(ctx context.Context, experimentID int64) ([]*domain.User, error) {
	query := `
		SELECT u.id, u.email, u.name, u.surname, u.telephone, u.db_telephone, u.department,
			u.home_institute, u.role, u.last_login
		FROM users u
		JOIN experiment_users eu ON eu.user_id = u.id
		WHERE eu.experiment_id = $1
		ORDER BY u.name, u.surname, u.email
	`
	rows, err := r.db.QueryContext(ctx, query, experimentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list experiment users: %w", err)
	}
	defer rows.Close()

	users := []*domain.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan experiment user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate experiment users: %w", err)
	}
	return users, nil
}

func (r *PostgresExperimentsRepository) AddMember(ctx context.Context, experimentID, userID int64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO experiment_users (experiment_id, user_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, experimentID, userID)
	if err != nil {
		return fmt.Errorf("failed to add experiment user: %w", err)
	}
	return nil
}

func (r *PostgresExperimentsRepository) RemoveMember(ctx context.Context, experimentID, userID int64) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM experiment_users WHERE experiment_id = $1 AND user_id = $2`, experimentID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove experiment user: %w", err)
	}
	return nil
}

func (r *PostgresExperimentsRepository) CountUserExperiments(ctx context.Context) (map[int64]int, error) {
	query := `
		SELECT user_id, COUNT(DISTINCT experiment_id) FROM (
			SELECT responsible_id AS user_id, id AS experiment_id FROM experiments WHERE responsible_id IS NOT NULL
			UNION ALL
			SELECT user_id, experiment_id FROM experiment_users
		) t
		GROUP BY user_id
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to count user experiments: %w", err)
	}
	defer rows.Close()

	counts := map[int64]int{}
	for rows.Next() {
		var id int64
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("failed to scan user experiment count: %w", err)
		}
		counts[id] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate user experiment counts: %w", err)
	}
	return counts, nil
}

func (r *PostgresExperimentsRepository) ListArchive(ctx context.Context, experimentID int64) ([]*domain.ArchiveExperimentSample, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, timestamp, experiment_id, sample_id
		FROM archive_experiment_samples
		WHERE experiment_id = $1
		ORDER BY timestamp
	`, experimentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list archive: %w", err)
	}
	defer rows.Close()

	out := []*domain.ArchiveExperimentSample{}
	for rows.Next() {
		var a domain.ArchiveExperimentSample
		if err := rows.Scan(&a.ID, &a.Timestamp, &a.ExperimentID, &a.SampleID); err != nil {
			return nil, fmt.Errorf("failed to scan archive: %w", err)
		}
		out = append(out, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate archive: %w", err)
	}
	return out, nil
}

func (r *PostgresExperimentsRepository) CreateArchive(ctx context.Context, a *domain.ArchiveExperimentSample) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO archive_experiment_samples (timestamp, experiment_id, sample_id)
		VALUES ($1, $2, $3)
		RETURNING id
	`, a.Timestamp, a.ExperimentID, a.SampleID).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create archive: %w", err)
	}
	a.ID = id
	return id, nil
}
