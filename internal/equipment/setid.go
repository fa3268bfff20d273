package equipment

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strings"
)

// ErrRemoteUnavailable means inforEAM could not be asked whether an id is free.
var ErrRemoteUnavailable = errors.New("inforEAM unavailable")

const (
	setIDRandomCandidates = 10
	setIDBatchSize        = 20

	notFoundMessage    = "equipment record couldn't be found"
	connRefusedMessage = "Connection refused"
)

// Lookup is the inforEAM answer for one asset code of a batch read.
type Lookup struct {
	Code         string
	Found        bool
	SerialNumber string
	ErrorMessage string
}

// BatchReader reads several inforEAM assets at once, answering in request order.
type BatchReader interface {
	ReadEquipmentBatch(ctx context.Context, codes []string) ([]Lookup, error)
}

// SetIDSearch finds a SET id that is neither used locally nor registered in inforEAM.
type SetIDSearch struct {
	Reader BatchReader
	Rand   *rand.Rand
}

// Next proposes candidates and returns the first one inforEAM reports as free.
// Up to ten random holes below the highest used number are tried first, then
// batches of fresh numbers above it.
func (s *SetIDSearch) Next(ctx context.Context, usedIDs []string) (string, error) {
	used := UsedNumbers(usedIDs, SampleRange)
	maxUsed := SampleRange.First
	for n := range used {
		if n > maxUsed {
			maxUsed = n
		}
	}

	var holes []int
	for n := SampleRange.First; n <= maxUsed; n++ {
		if !used[n] {
			holes = append(holes, n)
		}
	}
	candidates := s.pick(holes, setIDRandomCandidates)

	end := maxUsed
	for {
		start := end + 1
		end = start + setIDBatchSize - len(candidates) - 1
		if end > SampleRange.Last {
			end = SampleRange.Last
		}
		for n := start; n <= end; n++ {
			candidates = append(candidates, n)
		}
		if len(candidates) == 0 {
			return "", ErrRangeExhausted
		}

		ids := make([]string, len(candidates))
		codes := make([]string, len(candidates))
		for i, n := range candidates {
			ids[i] = Format(PrefixSample, n)
			codes[i], _ = InforEAMID(ids[i])
		}

		lookups, err := s.Reader.ReadEquipmentBatch(ctx, codes)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
		}
		for i, l := range lookups {
			if i >= len(ids) {
				break
			}
			if !l.Found {
				if strings.Contains(l.ErrorMessage, notFoundMessage) {
					return ids[i], nil
				}
				if strings.Contains(l.ErrorMessage, connRefusedMessage) {
					return "", ErrRemoteUnavailable
				}
				continue
			}
			if l.SerialNumber == "" {
				return ids[i], nil
			}
		}
		candidates = candidates[:0]
	}
}

func (s *SetIDSearch) pick(values []int, n int) []int {
	if len(values) <= n {
		out := append([]int(nil), values...)
		return out
	}
	r := s.Rand
	if r == nil {
		r = rand.New(rand.NewSource(rand.Int63()))
	}
	idx := r.Perm(len(values))[:n]
	sort.Ints(idx)
	out := make([]int, n)
	for i, j := range idx {
		out[i] = values[j]
	}
	return out
}
