package fluence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"irrad-data/internal/domain"
)

// SecSource answers queries over the recorded beam monitor readings.
type SecSource interface {
	SumSec(ctx context.Context, secID string, from, to time.Time) (float64, error)
	FirstLastPositiveSec(ctx context.Context, secID string, from, to time.Time) (first, last sql.NullTime, err error)
}

// FactorSource looks up fluence factors.
type FactorSource interface {
	ListActiveFactors(ctx context.Context, table string, height, width float64) ([]*domain.FluenceFactor, error)
	// EnsureDefaultFactor returns the factor with value 1, creating it if needed.
	EnsureDefaultFactor(ctx context.Context) (*domain.FluenceFactor, error)
}

// Calculator computes accumulated SEC and estimated fluence of irradiations.
type Calculator struct {
	Sec     SecSource
	Factors FactorSource
	Now     func() time.Time
}

func (c *Calculator) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now().UTC()
}

// Calculate computes the beam data of irr. parent is the irradiation it continues,
// dos its dosimeter; both may be nil. SEC dates are only queried when withSecDates is set.
func (c *Calculator) Calculate(ctx context.Context, irr *domain.Irradiation, parent *domain.Irradiation, dos *domain.Dosimeter, withSecDates bool) (Result, error) {
	var r Result
	if parent != nil && parent.Sec.Valid {
		r.Sec += float64(parent.Sec.Int64)
	}
	if irr.DateIn.Valid {
		to := c.now()
		if irr.DateOut.Valid {
			to = irr.DateOut.Time
		}
		sum, err := c.Sec.SumSec(ctx, domain.DefaultSecID, irr.DateIn.Time, to)
		if err != nil {
			return r, fmt.Errorf("failed to sum sec: %w", err)
		}
		r.Sec += sum
	}

	factor, err := c.Factor(ctx, irr, dos)
	if err != nil {
		return r, err
	}
	r.Factor = factor
	r.EstimatedFluence = r.Sec * factor.Value.Float64

	if withSecDates {
		first, last, err := c.SecDates(ctx, irr)
		if err != nil {
			return r, err
		}
		r.FirstSec, r.LastSec = first, last
	}
	return r, nil
}

// Factor picks the single active factor matching the table and dosimeter size of irr,
// or the default factor when there is no unique match.
func (c *Calculator) Factor(ctx context.Context, irr *domain.Irradiation, dos *domain.Dosimeter) (*domain.FluenceFactor, error) {
	if dos != nil && irr.IrradTable.Valid {
		factors, err := c.Factors.ListActiveFactors(ctx, irr.IrradTable.String, dos.Height, dos.Width)
		if err != nil {
			return nil, fmt.Errorf("failed to list fluence factors: %w", err)
		}
		if len(factors) == 1 {
			return factors[0], nil
		}
	}
	def, err := c.Factors.EnsureDefaultFactor(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get default fluence factor: %w", err)
	}
	return def, nil
}

// SecDates returns the first and last positive SEC readings while irr was in beam.
func (c *Calculator) SecDates(ctx context.Context, irr *domain.Irradiation) (sql.NullTime, sql.NullTime, error) {
	from, to := c.now(), c.now()
	if irr.DateIn.Valid {
		from = irr.DateIn.Time
	}
	if irr.DateOut.Valid {
		to = irr.DateOut.Time
	}
	first, last, err := c.Sec.FirstLastPositiveSec(ctx, domain.DefaultSecID, from, to)
	if err != nil {
		return sql.NullTime{}, sql.NullTime{}, fmt.Errorf("failed to get sec dates: %w", err)
	}
	return first, last, nil
}
