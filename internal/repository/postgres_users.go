package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"irrad-data/internal/domain"
)

type PostgresUsersRepository struct {
	db *sql.DB
}

func NewPostgresUsersRepository(db *sql.DB) *PostgresUsersRepository {
	return &PostgresUsersRepository{db: db}
}

var _ UsersRepository = (*PostgresUsersRepository)(nil)

const userColumns = `id, email, name, surname, telephone, db_telephone, department, home_institute, role, last_login`

func scanUser(s rowScanner) (*domain.User, error) {
	var u domain.User
	err := s.Scan(
		&u.ID,
		&u.Email,
		&u.Name,
		&u.Surname,
		&u.Telephone,
		&u.DBTelephone,
		&u.Department,
		&u.HomeInstitute,
		&u.Role,
		&u.LastLogin,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *PostgresUsersRepository) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	u, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound("user", err)
	}
	return u, nil
}

// GetUserByEmail matches case-insensitively; emails are stored lower-case.
func (r *PostgresUsersRepository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	u, err := scanUser(r.db.QueryRowContext(ctx, query, strings.ToLower(email)))
	if err != nil {
		return nil, notFound("user", err)
	}
	return u, nil
}

func (r *PostgresUsersRepository) ListUsers(ctx context.Context) ([]*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY name, surname, email`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := []*domain.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}
	return users, nil
}

func (r *PostgresUsersRepository) CreateUser(ctx context.Context, u *domain.User) (int64, error) {
	if u.Email == "" {
		return 0, fmt.Errorf("email is required")
	}
	role := u.Role
	if role == "" {
		role = domain.RoleUser
	}
	query := `
		INSERT INTO users (email, name, surname, telephone, db_telephone, department, home_institute, role, last_login)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`
	var id int64
	err := r.db.QueryRowContext(ctx, query,
		strings.ToLower(u.Email),
		u.Name,
		u.Surname,
		u.Telephone,
		u.DBTelephone,
		u.Department,
		u.HomeInstitute,
		role,
		u.LastLogin,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create user: %w", err)
	}
	u.ID, u.Role = id, role
	return id, nil
}

func (r *PostgresUsersRepository) UpdateUser(ctx context.Context, u *domain.User) error {
	query := `
		UPDATE users SET
			email = $2, name = $3, surname = $4, telephone = $5, db_telephone = $6,
			department = $7, home_institute = $8, role = $9
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query,
		u.ID,
		strings.ToLower(u.Email),
		u.Name,
		u.Surname,
		u.Telephone,
		u.DBTelephone,
		u.Department,
		u.HomeInstitute,
		u.Role,
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return checkAffected(res, "user")
}

func (r *PostgresUsersRepository) DeleteUser(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return checkAffected(res, "user")
}

func (r *PostgresUsersRepository) TouchLogin(ctx context.Context, id int64, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET last_login = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	return nil
}
