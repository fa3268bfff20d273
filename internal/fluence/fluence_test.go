package fluence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"irrad-data/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 5, 6, 8, 0, 0, 0, time.UTC)

func at(d time.Duration) sql.NullTime { return sql.NullTime{Time: t0.Add(d), Valid: true} }

func TestStateOf(t *testing.T) {
	assert.Equal(t, StateRegistered, StateOf(&domain.Irradiation{}))
	assert.Equal(t, StateInBeam, StateOf(&domain.Irradiation{DateIn: at(0)}))
	assert.Equal(t, StateOutBeam, StateOf(&domain.Irradiation{DateIn: at(0), DateOut: at(time.Hour)}))
	assert.Equal(t, StateCompleted, StateOf(&domain.Irradiation{
		DateIn: at(0), DateOut: at(time.Hour),
		MeasuredFluence: sql.NullFloat64{Float64: 1e13, Valid: true},
	}))
	assert.Equal(t, StateUnknown, StateOf(&domain.Irradiation{DateOut: at(0)}))
}

func TestApply(t *testing.T) {
	r := Result{
		Sec:              1200.7,
		EstimatedFluence: 2401.4,
		Factor:           &domain.FluenceFactor{ID: 4},
		FirstSec:         at(time.Minute),
		LastSec:          at(50 * time.Minute),
	}

	registered := &domain.Irradiation{Sec: sql.NullInt64{Int64: 5, Valid: true}}
	require.True(t, Apply(registered, r))
	assert.Equal(t, domain.StatusRegistered, registered.Status)
	assert.False(t, registered.Sec.Valid)
	assert.False(t, registered.FluenceFactorID.Valid)

	inBeam := &domain.Irradiation{DateIn: at(0)}
	require.True(t, Apply(inBeam, r))
	assert.Equal(t, domain.StatusInBeam, inBeam.Status)
	assert.Equal(t, int64(1201), inBeam.Sec.Int64)
	assert.Equal(t, int64(4), inBeam.FluenceFactorID.Int64)
	assert.True(t, inBeam.DateFirstSec.Valid)
	assert.False(t, inBeam.DateLastSec.Valid)

	out := &domain.Irradiation{DateIn: at(0), DateOut: at(time.Hour)}
	require.True(t, Apply(out, r))
	assert.Equal(t, domain.StatusOutBeam, out.Status)
	assert.Equal(t, r.LastSec, out.DateLastSec)

	broken := &domain.Irradiation{DateOut: at(0), Status: "Waste"}
	assert.False(t, Apply(broken, r))
	assert.Equal(t, "Waste", broken.Status)
}

func TestSecCountRoundsToNearest(t *testing.T) {
	assert.Equal(t, int64(1200), SecCount(1200.4))
	assert.Equal(t, int64(1201), SecCount(1200.5))
	assert.Equal(t, int64(1201), SecCount(1200.7))
	assert.Equal(t, int64(0), SecCount(0))
}

func TestSampleFluences_GroupsByAreaAndPosition(t *testing.T) {
	got := SampleFluences([]Exposure{
		{DosID: "DOS-004000", Width: 10, Height: 10, DosPosition: 1, EstimatedFluence: 1},
		{DosID: "DOS-004001", Width: 5, Height: 5, DosPosition: 1, EstimatedFluence: 2},
		{DosID: "DOS-004002", Width: 10, Height: 10, DosPosition: 1, EstimatedFluence: 3},
		{DosID: "DOS-004003", Width: 10, Height: 10, DosPosition: 2, EstimatedFluence: 4},
		{DosID: "DOS-004002.1", Width: 10, Height: 10, DosPosition: 1, EstimatedFluence: 100},
		{DosID: "DOS-004004", Width: 20, Height: 20, DosPosition: 1},
	})

	assert.Equal(t, []SampleFluence{
		{Width: 5, Height: 5, EstimatedFluence: 2},
		{Width: 10, Height: 10, EstimatedFluence: 4},
		{Width: 10, Height: 10, EstimatedFluence: 4},
	}, got)
}

func TestSampleFluences_Empty(t *testing.T) {
	assert.Empty(t, SampleFluences(nil))
}

type fakeSec struct {
	sum         float64
	first, last sql.NullTime
	from, to    time.Time
}

func (f *fakeSec) SumSec(_ context.Context, secID string, from, to time.Time) (float64, error) {
	f.from, f.to = from, to
	return f.sum, nil
}

func (f *fakeSec) FirstLastPositiveSec(_ context.Context, secID string, from, to time.Time) (sql.NullTime, sql.NullTime, error) {
	return f.first, f.last, nil
}

type fakeFactors struct {
	active []*domain.FluenceFactor
	def    *domain.FluenceFactor
}

func (f *fakeFactors) ListActiveFactors(_ context.Context, table string, h, w float64) ([]*domain.FluenceFactor, error) {
	var out []*domain.FluenceFactor
	for _, ff := range f.active {
		if ff.IrradTable.String == table && ff.DosimeterHeight.Float64 == h && ff.DosimeterWidth.Float64 == w {
			out = append(out, ff)
		}
	}
	return out, nil
}

func (f *fakeFactors) EnsureDefaultFactor(_ context.Context) (*domain.FluenceFactor, error) {
	return f.def, nil
}

func factor(id int64, v float64, table string, h, w float64) *domain.FluenceFactor {
	return &domain.FluenceFactor{
		ID:              id,
		Value:           sql.NullFloat64{Float64: v, Valid: true},
		IrradTable:      sql.NullString{String: table, Valid: true},
		DosimeterHeight: sql.NullFloat64{Float64: h, Valid: true},
		DosimeterWidth:  sql.NullFloat64{Float64: w, Valid: true},
		Status:          domain.StatusActive,
	}
}

func TestCalculator_UsesMatchingFactorAndParentSec(t *testing.T) {
	sec := &fakeSec{sum: 100}
	factors := &fakeFactors{
		active: []*domain.FluenceFactor{factor(2, 3.5, "IRRAD3", 10, 10)},
		def:    &domain.FluenceFactor{ID: 1, Value: sql.NullFloat64{Float64: 1, Valid: true}},
	}
	c := &Calculator{Sec: sec, Factors: factors, Now: func() time.Time { return t0.Add(2 * time.Hour) }}

	irr := &domain.Irradiation{DateIn: at(0), IrradTable: sql.NullString{String: "IRRAD3", Valid: true}}
	parent := &domain.Irradiation{Sec: sql.NullInt64{Int64: 20, Valid: true}}
	r, err := c.Calculate(context.Background(), irr, parent, &domain.Dosimeter{Height: 10, Width: 10}, false)
	require.NoError(t, err)

	assert.Equal(t, 120.0, r.Sec)
	assert.Equal(t, int64(2), r.Factor.ID)
	assert.Equal(t, 420.0, r.EstimatedFluence)
	assert.Equal(t, t0.Add(2*time.Hour), sec.to)
}

func TestCalculator_FallsBackToDefaultFactor(t *testing.T) {
	factors := &fakeFactors{
		active: []*domain.FluenceFactor{factor(2, 3, "IRRAD3", 10, 10), factor(3, 4, "IRRAD3", 10, 10)},
		def:    &domain.FluenceFactor{ID: 1, Value: sql.NullFloat64{Float64: 1, Valid: true}},
	}
	first, last := at(time.Minute), at(time.Hour)
	c := &Calculator{Sec: &fakeSec{sum: 50, first: first, last: last}, Factors: factors}

	irr := &domain.Irradiation{DateIn: at(0), DateOut: at(time.Hour), IrradTable: sql.NullString{String: "IRRAD3", Valid: true}}
	r, err := c.Calculate(context.Background(), irr, nil, &domain.Dosimeter{Height: 10, Width: 10}, true)
	require.NoError(t, err)

	assert.Equal(t, int64(1), r.Factor.ID)
	assert.Equal(t, 50.0, r.EstimatedFluence)
	assert.Equal(t, first, r.FirstSec)
	assert.Equal(t, last, r.LastSec)
}
