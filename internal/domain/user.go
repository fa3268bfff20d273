package domain

import (
	"database/sql"
	"time"
)

// User maps the users table. Identity comes from the SSO cookies and is upserted by email.
type User struct {
	ID            int64          `db:"id"`
	Email         string         `db:"email"` // unique, lower-case
	Name          sql.NullString `db:"name"`
	Surname       sql.NullString `db:"surname"`
	Telephone     sql.NullString `db:"telephone"`
	DBTelephone   sql.NullString `db:"db_telephone"`
	Department    sql.NullString `db:"department"`
	HomeInstitute sql.NullString `db:"home_institute"`
	Role          string         `db:"role"`
	LastLogin     time.Time      `db:"last_login"`
}

func (u *User) String() string { return u.Email }

// IsAdmin reports whether the user holds the facility admin role.
func (u *User) IsAdmin() bool { return u != nil && u.Role == RoleAdmin }

// FullName is "<name> <surname>" with missing parts dropped.
func (u *User) FullName() string {
	switch {
	case u.Name.Valid && u.Surname.Valid:
		return u.Name.String + " " + u.Surname.String
	case u.Name.Valid:
		return u.Name.String
	default:
		return u.Surname.String
	}
}

func (u *User) ToJSON() map[string]any {
	m := map[string]any{
		"id":         u.ID,
		"email":      u.Email,
		"role":       u.Role,
		"last_login": u.LastLogin,
	}
	if u.Name.Valid {
		m["name"] = u.Name.String
	}
	if u.Surname.Valid {
		m["surname"] = u.Surname.String
	}
	if u.Telephone.Valid {
		m["telephone"] = u.Telephone.String
	}
	if u.DBTelephone.Valid {
		m["db_telephone"] = u.DBTelephone.String
	}
	if u.Department.Valid {
		m["department"] = u.Department.String
	}
	if u.HomeInstitute.Valid {
		m["home_institute"] = u.HomeInstitute.String
	}
	return m
}
