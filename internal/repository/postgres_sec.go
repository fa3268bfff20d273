package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"irrad-data/internal/domain"
)

// PostgresSecRepository stores the SEC readings received from the beam monitor.
type PostgresSecRepository struct {
	db *sql.DB
}

func NewPostgresSecRepository(db *sql.DB) *PostgresSecRepository {
	return &PostgresSecRepository{db: db}
}

var _ SecRepository = (*PostgresSecRepository)(nil)

func (r *PostgresSecRepository) InsertSecReading(ctx context.Context, s *domain.SecReading) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sec_data (sec_id, sec_value, timestamp) VALUES ($1, $2, $3)`,
		s.SecID, s.Value, s.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to insert sec reading: %w", err)
	}
	return nil
}

// SumSec sums readings strictly inside (from, to).
func (r *PostgresSecRepository) SumSec(ctx context.Context, secID string, from, to time.Time) (float64, error) {
	var sum sql.NullFloat64
	err := r.db.QueryRowContext(ctx, `
		SELECT SUM(sec_value) FROM sec_data
		WHERE sec_id = $1 AND timestamp > $2 AND timestamp < $3
	`, secID, from, to).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("failed to sum sec: %w", err)
	}
	return sum.Float64, nil
}

func (r *PostgresSecRepository) FirstLastPositiveSec(ctx context.Context, secID string, from, to time.Time) (sql.NullTime, sql.NullTime, error) {
	var first, last sql.NullTime
	err := r.db.QueryRowContext(ctx, `
		SELECT MIN(timestamp), MAX(timestamp) FROM sec_data
		WHERE sec_id = $1 AND sec_value > 0 AND timestamp > $2 AND timestamp < $3
	`, secID, from, to).Scan(&first, &last)
	if err != nil {
		return first, last, fmt.Errorf("failed to get sec dates: %w", err)
	}
	return first, last, nil
}
