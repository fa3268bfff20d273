package repository

import (
	"context"
	"database/sql"
	"fmt"

	"irrad-data/internal/domain"
)

type PostgresBoxesRepository struct {
	db *sql.DB
}

func NewPostgresBoxesRepository(db *sql.DB) *PostgresBoxesRepository {
	return &PostgresBoxesRepository{db: db}
}

var _ BoxesRepository = (*PostgresBoxesRepository)(nil)

const boxColumns = `
	id, box_id, description, responsible_id, current_location, last_location,
	length, height, width, weight, created_at, updated_at, created_by, updated_by`

func scanBox(s rowScanner) (*domain.Box, error) {
	var b domain.Box
	err := s.Scan(
		&b.ID, &b.BoxID, &b.Description, &b.ResponsibleID, &b.CurrentLocation, &b.LastLocation,
		&b.Length, &b.Height, &b.Width, &b.Weight, &b.CreatedAt, &b.UpdatedAt, &b.CreatedBy, &b.UpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *PostgresBoxesRepository) GetBox(ctx context.Context, id int64) (*domain.Box, error) {
	b, err := scanBox(r.db.QueryRowContext(ctx, `SELECT `+boxColumns+` FROM boxes WHERE id = $1`, id))
	if err != nil {
		return nil, notFound("box", err)
	}
	return b, nil
}

func (r *PostgresBoxesRepository) GetBoxByBoxID(ctx context.Context, boxID string) (*domain.Box, error) {
	b, err := scanBox(r.db.QueryRowContext(ctx, `SELECT `+boxColumns+` FROM boxes WHERE box_id = $1`, boxID))
	if err != nil {
		return nil, notFound("box", err)
	}
	return b, nil
}

func (r *PostgresBoxesRepository) ListBoxes(ctx context.Context) ([]*domain.Box, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+boxColumns+` FROM boxes ORDER BY updated_at DESC, box_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list boxes: %w", err)
	}
	defer rows.Close()

	out := []*domain.Box{}
	for rows.Next() {
		b, err := scanBox(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan box: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate boxes: %w", err)
	}
	return out, nil
}

func (r *PostgresBoxesRepository) CreateBox(ctx context.Context, b *domain.Box) (int64, error) {
	query := `
		INSERT INTO boxes (
			box_id, description, responsible_id, current_location, last_location,
			length, height, width, weight, created_at, updated_at, created_by, updated_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id
	`
	var id int64
	err := r.db.QueryRowContext(ctx, query,
		b.BoxID, b.Description, b.ResponsibleID, b.CurrentLocation, b.LastLocation,
		b.Length, b.Height, b.Width, b.Weight, b.CreatedAt, b.UpdatedAt, b.CreatedBy, b.UpdatedBy,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create box: %w", err)
	}
	b.ID = id
	return id, nil
}

func (r *PostgresBoxesRepository) UpdateBox(ctx context.Context, b *domain.Box) error {
	query := `
		UPDATE boxes SET
			box_id = $2, description = $3, responsible_id = $4, current_location = $5, last_location = $6,
			length = $7, height = $8, width = $9, weight = $10, updated_at = $11, updated_by = $12
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query,
		b.ID, b.BoxID, b.Description, b.ResponsibleID, b.CurrentLocation, b.LastLocation,
		b.Length, b.Height, b.Width, b.Weight, b.UpdatedAt, b.UpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to update box: %w", err)
	}
	return checkAffected(res, "box")
}

func (r *PostgresBoxesRepository) DeleteBox(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM boxes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete box: %w", err)
	}
	return checkAffected(res, "box")
}
