package repository

import (
	"context"
	"database/sql"
	"fmt"

	"irrad-data/internal/common/database"
	"irrad-data/internal/domain"
)

type PostgresCompoundsRepository struct {
	db *sql.DB
}

func NewPostgresCompoundsRepository(db *sql.DB) *PostgresCompoundsRepository {
	return &PostgresCompoundsRepository{db: db}
}

var _ CompoundsRepository = (*PostgresCompoundsRepository)(nil)

// num_associated_samples is derived from layers rather than stored.
const compoundSelect = `
	SELECT c.id, c.name, c.density,
		(SELECT COUNT(DISTINCT l.sample_id) FROM layers l WHERE l.compound_id = c.id)
	FROM compounds c`

func scanCompound(s rowScanner) (*domain.Compound, error) {
	var c domain.Compound
	if err := s.Scan(&c.ID, &c.Name, &c.Density, &c.NumAssociatedSamples); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *PostgresCompoundsRepository) GetCompound(ctx context.Context, id int64) (*domain.Compound, error) {
	c, err := scanCompound(r.db.QueryRowContext(ctx, compoundSelect+` WHERE c.id = $1`, id))
	if err != nil {
		return nil, notFound("compound", err)
	}
	return c, nil
}

func (r *PostgresCompoundsRepository) GetCompoundByName(ctx context.Context, name string) (*domain.Compound, error) {
	c, err := scanCompound(r.db.QueryRowContext(ctx, compoundSelect+` WHERE c.name = $1`, name))
	if err != nil {
		return nil, notFound("compound", err)
	}
	return c, nil
}

func (r *PostgresCompoundsRepository) ListCompounds(ctx context.Context) ([]*domain.Compound, error) {
	rows, err := r.db.QueryContext(ctx, compoundSelect+` ORDER BY c.name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list compounds: %w", err)
	}
	defer rows.Close()

	out := []*domain.Compound{}
	for rows.Next() {
		c, err := scanCompound(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan compound: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate compounds: %w", err)
	}
	return out, nil
}

func (r *PostgresCompoundsRepository) CreateCompound(ctx context.Context, c *domain.Compound) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO compounds (name, density) VALUES ($1, $2) RETURNING id`, c.Name, c.Density,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create compound: %w", err)
	}
	c.ID = id
	return id, nil
}

func (r *PostgresCompoundsRepository) UpdateCompound(ctx context.Context, c *domain.Compound) error {
	res, err := r.db.ExecContext(ctx, `UPDATE compounds SET name = $2, density = $3 WHERE id = $1`, c.ID, c.Name, c.Density)
	if err != nil {
		return fmt.Errorf("failed to update compound: %w", err)
	}
	return checkAffected(res, "compound")
}

func (r *PostgresCompoundsRepository) DeleteCompound(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM compounds WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete compound: %w", err)
	}
	return checkAffected(res, "compound")
}

func (r *PostgresCompoundsRepository) ListCompoundElements(ctx context.Context, compoundID int64) ([]*domain.CompoundElement, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, compound_id, element_id, percentage
		FROM compound_elements
		WHERE compound_id = $1
		ORDER BY id
	`, compoundID)
	if err != nil {
		return nil, fmt.Errorf("failed to list compound elements: %w", err)
	}
	defer rows.Close()

	out := []*domain.CompoundElement{}
	for rows.Next() {
		var ce domain.CompoundElement
		if err := rows.Scan(&ce.ID, &ce.CompoundID, &ce.ElementID, &ce.Percentage); err != nil {
			return nil, fmt.Errorf("failed to scan compound element: %w", err)
		}
		out = append(out, &ce)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate compound elements: %w", err)
	}
	return out, nil
}

func (r *PostgresCompoundsRepository) SaveCompoundElements(ctx context.Context, compoundID int64, items []*domain.CompoundElement) error {
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM compound_elements WHERE compound_id = $1`, compoundID); err != nil {
			return err
		}
		for _, ce := range items {
			err := tx.QueryRowContext(ctx,
				`INSERT INTO compound_elements (compound_id, element_id, percentage) VALUES ($1, $2, $3) RETURNING id`,
				compoundID, ce.ElementID, ce.Percentage,
			).Scan(&ce.ID)
			if err != nil {
				return err
			}
			ce.CompoundID = compoundID
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save compound elements: %w", err)
	}
	return nil
}

const elementColumns = `
	id, atomic_number, atomic_symbol, atomic_mass, density, min_ionization,
	nu_coll_length, nu_int_length, pi_coll_length, pi_int_length, radiation_length`

func scanElement(s rowScanner) (*domain.Element, error) {
	var e domain.Element
	err := s.Scan(
		&e.ID, &e.AtomicNumber, &e.AtomicSymbol, &e.AtomicMass, &e.Density, &e.MinIonization,
		&e.NuCollLength, &e.NuIntLength, &e.PiCollLength, &e.PiIntLength, &e.RadiationLength,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *PostgresCompoundsRepository) GetElement(ctx context.Context, id int64) (*domain.Element, error) {
	e, err := scanElement(r.db.QueryRowContext(ctx, `SELECT `+elementColumns+` FROM elements WHERE id = $1`, id))
	if err != nil {
		return nil, notFound("element", err)
	}
	return e, nil
}

func (r *PostgresCompoundsRepository) ListElements(ctx context.Context) ([]*domain.Element, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+elementColumns+` FROM elements ORDER BY atomic_number`)
	if err != nil {
		return nil, fmt.Errorf("failed to list elements: %w", err)
	}
	defer rows.Close()

	out := []*domain.Element{}
	for rows.Next() {
		e, err := scanElement(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan element: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate elements: %w", err)
	}
	return out, nil
}

func (r *PostgresCompoundsRepository) CreateElement(ctx context.Context, e *domain.Element) (int64, error) {
	query := `
		INSERT INTO elements (
			atomic_number, atomic_symbol, atomic_mass, density, min_ionization,
			nu_coll_length, nu_int_length, pi_coll_length, pi_int_length, radiation_length
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`
	var id int64
	err := r.db.QueryRowContext(ctx, query,
		e.AtomicNumber, e.AtomicSymbol, e.AtomicMass, e.Density, e.MinIonization,
		e.NuCollLength, e.NuIntLength, e.PiCollLength, e.PiIntLength, e.RadiationLength,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create element: %w", err)
	}
	e.ID = id
	return id, nil
}
