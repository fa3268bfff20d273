package equipment

import (
	"errors"
	"strings"
)

// ErrRangeExhausted is returned when every number of a range is taken.
var ErrRangeExhausted = errors.New("equipment id range exhausted")

// Range is an inclusive number range for one id family.
type Range struct {
	Prefix string
	First  int
	Last   int
}

var (
	BoxRange       = Range{Prefix: PrefixBox, First: 1, Last: 400}
	DosimeterRange = Range{Prefix: PrefixDosimeter, First: 4000, Last: MaxNumber}
	// SampleRange starts where sample set ids were first issued.
	SampleRange = Range{Prefix: PrefixSample, First: 3200, Last: MaxNumber}
)

// UsedNumbers collects the root numbers of the ids that belong to r's family.
// Dosimeter child ids count for their root.
func UsedNumbers(ids []string, r Range) map[int]bool {
	used := make(map[int]bool, len(ids))
	for _, id := range ids {
		if !strings.HasPrefix(id, r.Prefix+"-") {
			continue
		}
		if n, ok := Number(id); ok {
			used[n] = true
		}
	}
	return used
}

// NextFree returns the lowest unused id of r given the ids already issued.
func NextFree(ids []string, r Range) (string, error) {
	used := UsedNumbers(ids, r)
	for n := r.First; n <= r.Last; n++ {
		if !used[n] {
			return Format(r.Prefix, n), nil
		}
	}
	return "", ErrRangeExhausted
}

// NextFreeN returns count distinct free ids of r in ascending order.
func NextFreeN(ids []string, r Range, count int) ([]string, error) {
	used := UsedNumbers(ids, r)
	out := make([]string, 0, count)
	for n := r.First; n <= r.Last && len(out) < count; n++ {
		if !used[n] {
			out = append(out, Format(r.Prefix, n))
		}
	}
	if len(out) < count {
		return nil, ErrRangeExhausted
	}
	return out, nil
}
