package listing

import (
	"errors"
	"fmt"
)

// SelectionMode is the arity an action accepts.
type SelectionMode int

const (
	Single SelectionMode = iota
	Group
)

const (
	MsgInvalidOperation = "Invalid operation. Either items with the requested IDs don't exist in the database or the number of selected items is incorrect."
	msgMaxExceeded      = "Invalid operation. Maximum number of selected elements exceeded. Limit is %d."
)

// SelectionError carries the alert shown when a selection is rejected.
type SelectionError struct {
	Message string
}

func (e *SelectionError) Error() string { return e.Message }

// CheckSelection validates the ids checked in a list for an action. limit <= 0 means no limit
// for group actions. exists reports whether one id refers to a stored row.
func CheckSelection(ids []int64, mode SelectionMode, limit int, exists func(int64) (bool, error)) error {
	switch mode {
	case Single:
		if len(ids) != 1 {
			return &SelectionError{Message: MsgInvalidOperation}
		}
	default:
		if len(ids) == 0 {
			return &SelectionError{Message: MsgInvalidOperation}
		}
		if limit > 0 && len(ids) > limit {
			return &SelectionError{Message: fmt.Sprintf(msgMaxExceeded, limit)}
		}
	}
	for _, id := range ids {
		ok, err := exists(id)
		if err != nil {
			return err
		}
		if !ok {
			return &SelectionError{Message: MsgInvalidOperation}
		}
	}
	return nil
}

// IsSelectionError reports whether err is a rejected selection.
func IsSelectionError(err error) bool {
	var se *SelectionError
	return errors.As(err, &se)
}
