package repository

import (
	"context"
	"database/sql"
	"fmt"

	"irrad-data/internal/domain"
)

type PostgresDosimetersRepository struct {
	db *sql.DB
}

func NewPostgresDosimetersRepository(db *sql.DB) *PostgresDosimetersRepository {
	return &PostgresDosimetersRepository{db: db}
}

var _ DosimetersRepository = (*PostgresDosimetersRepository)(nil)

const dosimeterColumns = `
	id, dos_id, responsible_id, current_location, last_location, length, height, width, weight,
	foils_number, status, dos_type, comments, box_id, parent_dosimeter_id,
	created_at, updated_at, created_by, updated_by`

func scanDosimeter(s rowScanner) (*domain.Dosimeter, error) {
	var d domain.Dosimeter
	err := s.Scan(
		&d.ID, &d.DosID, &d.ResponsibleID, &d.CurrentLocation, &d.LastLocation, &d.Length, &d.Height, &d.Width, &d.Weight,
		&d.FoilsNumber, &d.Status, &d.DosType, &d.Comments, &d.BoxID, &d.ParentDosimeterID,
		&d.CreatedAt, &d.UpdatedAt, &d.CreatedBy, &d.UpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *PostgresDosimetersRepository) GetDosimeter(ctx context.Context, id int64) (*domain.Dosimeter, error) {
	d, err := scanDosimeter(r.db.QueryRowContext(ctx, `SELECT `+dosimeterColumns+` FROM dosimeters WHERE id = $1`, id))
	if err != nil {
		return nil, notFound("dosimeter", err)
	}
	return d, nil
}

func (r *PostgresDosimetersRepository) GetDosimeterByDosID(ctx context.Context, dosID string) (*domain.Dosimeter, error) {
	d, err := scanDosimeter(r.db.QueryRowContext(ctx, `SELECT `+dosimeterColumns+` FROM dosimeters WHERE dos_id = $1`, dosID))
	if err != nil {
		return nil, notFound("dosimeter", err)
	}
	return d, nil
}

func (r *PostgresDosimetersRepository) ListDosimeters(ctx context.Context, filter DosimetersFilter) ([]*domain.Dosimeter, error) {
	var w whereBuilder
	w.anyOf("id", filter.IDs)
	if filter.BoxID > 0 {
		w.add("box_id = $%d", filter.BoxID)
	}
	if filter.ParentID > 0 {
		w.add("parent_dosimeter_id = $%d", filter.ParentID)
	}
	query := fmt.Sprintf(`SELECT %s FROM dosimeters %s ORDER BY updated_at DESC, dos_id`, dosimeterColumns, w.clause())

	rows, err := r.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list dosimeters: %w", err)
	}
	defer rows.Close()

	out := []*domain.Dosimeter{}
	for rows.Next() {
		d, err := scanDosimeter(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan dosimeter: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate dosimeters: %w", err)
	}
	return out, nil
}

func (r *PostgresDosimetersRepository) CreateDosimeter(ctx context.Context, d *domain.Dosimeter) (int64, error) {
	query := `
		INSERT INTO dosimeters (
			dos_id, responsible_id, current_location, last_location, length, height, width, weight,
			foils_number, status, dos_type, comments, box_id, parent_dosimeter_id,
			created_at, updated_at, created_by, updated_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING id
	`
	var id int64
	err := r.db.QueryRowContext(ctx, query,
		d.DosID, d.ResponsibleID, d.CurrentLocation, d.LastLocation, d.Length, d.Height, d.Width, d.Weight,
		d.FoilsNumber, d.Status, d.DosType, d.Comments, d.BoxID, d.ParentDosimeterID,
		d.CreatedAt, d.UpdatedAt, d.CreatedBy, d.UpdatedBy,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create dosimeter: %w", err)
	}
	d.ID = id
	return id, nil
}

func (r *PostgresDosimetersRepository) UpdateDosimeter(ctx context.Context, d *domain.Dosimeter) error {
	query := `
		UPDATE dosimeters SET
			dos_id = $2, responsible_id = $3, current_location = $4, last_location = $5, length = $6,
			height = $7, width = $8, weight = $9, foils_number = $10, status = $11, dos_type = $12,
			comments = $13, box_id = $14, parent_dosimeter_id = $15, updated_at = $16, updated_by = $17
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query,
		d.ID, d.DosID, d.ResponsibleID, d.CurrentLocation, d.LastLocation, d.Length,
		d.Height, d.Width, d.Weight, d.FoilsNumber, d.Status, d.DosType,
		d.Comments, d.BoxID, d.ParentDosimeterID, d.UpdatedAt, d.UpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to update dosimeter: %w", err)
	}
	return checkAffected(res, "dosimeter")
}

func (r *PostgresDosimetersRepository) DeleteDosimeter(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM dosimeters WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete dosimeter: %w", err)
	}
	return checkAffected(res, "dosimeter")
}
