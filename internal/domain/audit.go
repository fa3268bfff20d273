package domain

import (
	"database/sql"
	"time"
)

// Audit holds the bookkeeping columns shared by most tables.
type Audit struct {
	CreatedAt time.Time     `db:"created_at"`
	UpdatedAt time.Time     `db:"updated_at"`
	CreatedBy sql.NullInt64 `db:"created_by"`
	UpdatedBy sql.NullInt64 `db:"updated_by"`
}

// Touch stamps the audit columns for a save by userID at now.
func (a *Audit) Touch(userID int64, now time.Time) {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
		a.CreatedBy = NullID(userID)
	}
	a.UpdatedAt = now
	a.UpdatedBy = NullID(userID)
}

func (a *Audit) putJSON(m map[string]any) {
	m["created_at"] = a.CreatedAt
	m["updated_at"] = a.UpdatedAt
	if a.CreatedBy.Valid {
		m["created_by"] = a.CreatedBy.Int64
	}
	if a.UpdatedBy.Valid {
		m["updated_by"] = a.UpdatedBy.Int64
	}
}

// NullID wraps a positive id; zero or negative ids are NULL.
func NullID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id > 0}
}

// NullString wraps s; the empty string is NULL.
func NullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// NullTime wraps t; the zero time is NULL.
func NullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
