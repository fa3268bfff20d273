package listing

import (
	"fmt"
	"strconv"
	"strings"
)

// RangeError reports a number outside its allowed bounds.
type RangeError struct {
	Bounds []float64
}

func (e *RangeError) Error() string {
	var b strings.Builder
	b.WriteString("Number is invalid. Must be ")
	for i, t := range e.Bounds {
		if i%2 == 0 {
			fmt.Fprintf(&b, "larger than %v", t)
		} else {
			fmt.Fprintf(&b, "lower than %v", t)
		}
		if i < len(e.Bounds)-1 {
			b.WriteString(" and ")
		} else {
			b.WriteString(".")
		}
	}
	return b.String()
}

// CleanNumberInRange parses value and checks it against bounds, where even positions
// are minimums and odd positions maximums. An empty value yields nil.
func CleanNumberInRange(value string, bounds ...float64) (*float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	n, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, &RangeError{Bounds: bounds}
	}
	for i, t := range bounds {
		if (i%2 == 0 && n < t) || (i%2 == 1 && n > t) {
			return nil, &RangeError{Bounds: bounds}
		}
	}
	return &n, nil
}

// CheckInRange is CleanNumberInRange for an already parsed number.
func CheckInRange(n float64, bounds ...float64) error {
	_, err := CleanNumberInRange(strconv.FormatFloat(n, 'f', -1, 64), bounds...)
	return err
}
