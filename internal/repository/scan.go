package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// whereBuilder collects AND-ed conditions with numbered placeholders.
type whereBuilder struct {
	conds []string
	args  []any
}

// add appends cond, whose %d verbs (use %[1]d to repeat) become the placeholder of arg.
func (w *whereBuilder) add(cond string, arg any) {
	w.args = append(w.args, arg)
	w.conds = append(w.conds, fmt.Sprintf(cond, len(w.args)))
}

// anyOf adds "<column> = ANY($n)" when ids is not empty.
func (w *whereBuilder) anyOf(column string, ids []int64) {
	if len(ids) > 0 {
		w.add(column+" = ANY($%d)", pq.Array(ids))
	}
}

func (w *whereBuilder) clause() string {
	if len(w.conds) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(w.conds, " AND ")
}

// notFound wraps sql.ErrNoRows for what; other errors are wrapped as a failed get.
func notFound(what string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s not found: %w", what, err)
	}
	return fmt.Errorf("failed to get %s: %w", what, err)
}

// checkAffected turns a zero-row UPDATE/DELETE into a not-found error.
func checkAffected(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s not found: %w", what, sql.ErrNoRows)
	}
	return nil
}
