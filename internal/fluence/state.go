// Package fluence holds the irradiation life cycle rules and the fluence arithmetic
// (accumulated SEC, fluence factors, per-sample aggregation).
package fluence

import (
	"database/sql"
	"math"

	"irrad-data/internal/domain"
)

// State is the position of an irradiation in its life cycle, derived from its dates.
type State int

const (
	StateUnknown    State = -1
	StateRegistered State = 0
	StateInBeam     State = 1
	StateOutBeam    State = 2
	StateCompleted  State = 3
)

// StateOf derives the state of irr from date_in, date_out and measured_fluence.
func StateOf(irr *domain.Irradiation) State {
	switch {
	case !irr.DateIn.Valid && !irr.DateOut.Valid:
		return StateRegistered
	case irr.DateIn.Valid && !irr.DateOut.Valid:
		return StateInBeam
	case irr.DateIn.Valid && irr.DateOut.Valid && !irr.MeasuredFluence.Valid:
		return StateOutBeam
	case irr.DateIn.Valid && irr.DateOut.Valid:
		return StateCompleted
	default:
		return StateUnknown
	}
}

// Status is the irradiation status name for s.
func (s State) Status() string {
	if s < 0 || int(s) >= len(domain.IrradiationStatuses) {
		return ""
	}
	return domain.IrradiationStatuses[s]
}

// Result is the beam data computed for one irradiation.
type Result struct {
	Sec              float64
	EstimatedFluence float64
	Factor           *domain.FluenceFactor
	FirstSec         sql.NullTime
	LastSec          sql.NullTime
}

// SecCount is the stored form of an accumulated SEC total: the nearest whole count.
// Estimated fluence keeps using the unrounded sum.
func SecCount(sec float64) int64 {
	return int64(math.Round(sec))
}

// Apply resets the beam fields of irr and refills them according to its state.
// It reports false and leaves irr untouched when the state cannot be derived.
func Apply(irr *domain.Irradiation, r Result) bool {
	st := StateOf(irr)
	if st == StateUnknown {
		return false
	}
	irr.Sec = sql.NullInt64{}
	irr.EstimatedFluence = sql.NullFloat64{}
	irr.FluenceFactorID = sql.NullInt64{}
	irr.DateFirstSec = sql.NullTime{}
	irr.DateLastSec = sql.NullTime{}
	irr.Status = st.Status()
	if st > StateRegistered {
		irr.Sec = sql.NullInt64{Int64: SecCount(r.Sec), Valid: true}
		irr.EstimatedFluence = sql.NullFloat64{Float64: r.EstimatedFluence, Valid: true}
		if r.Factor != nil {
			irr.FluenceFactorID = domain.NullID(r.Factor.ID)
		}
		irr.DateFirstSec = r.FirstSec
	}
	if st > StateInBeam {
		irr.DateLastSec = r.LastSec
	}
	return true
}

// IsBeamStatus reports whether status is one of the beam statuses.
func IsBeamStatus(status string) bool {
	return status == domain.StatusInBeam || status == domain.StatusOutBeam
}
