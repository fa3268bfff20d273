package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"irrad-data/internal/domain"
)

func TestMemoryRepo_ExperimentVisibility(t *testing.T) {
	m := NewMemoryRepo()
	ctx := context.Background()

	owner, err := m.CreateUser(ctx, &domain.User{Email: "Owner@cern.ch"})
	require.NoError(t, err)
	member, err := m.CreateUser(ctx, &domain.User{Email: "member@cern.ch"})
	require.NoError(t, err)
	other, err := m.CreateUser(ctx, &domain.User{Email: "other@cern.ch"})
	require.NoError(t, err)

	private, err := m.CreateExperiment(ctx, &domain.Experiment{Title: "private", ResponsibleID: domain.NullID(owner)})
	require.NoError(t, err)
	_, err = m.CreateExperiment(ctx, &domain.Experiment{Title: "public", ResponsibleID: domain.NullID(owner), PublicExperiment: true})
	require.NoError(t, err)
	require.NoError(t, m.AddMember(ctx, private, member))

	mine, err := m.ListExperiments(ctx, ExperimentsFilter{UserID: member})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "private", mine[0].Title)

	visible, err := m.ListExperiments(ctx, ExperimentsFilter{UserID: other, IncludePublic: true})
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, "public", visible[0].Title)

	counts, err := m.CountUserExperiments(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, counts[owner])
	assert.Equal(t, 1, counts[member])
	assert.Zero(t, counts[other])

	u, err := m.GetUserByEmail(ctx, "OWNER@cern.ch")
	require.NoError(t, err)
	assert.Equal(t, "owner@cern.ch", u.Email)
	assert.Equal(t, domain.RoleUser, u.Role)
}

func TestMemoryRepo_UniqueTitle(t *testing.T) {
	m := NewMemoryRepo()
	ctx := context.Background()

	_, err := m.CreateExperiment(ctx, &domain.Experiment{Title: "T"})
	require.NoError(t, err)
	_, err = m.CreateExperiment(ctx, &domain.Experiment{Title: "T"})
	assert.Error(t, err)
}

func TestMemoryRepo_ReturnsCopies(t *testing.T) {
	m := NewMemoryRepo()
	ctx := context.Background()

	id, err := m.CreateBox(ctx, &domain.Box{BoxID: "BOX-000001"})
	require.NoError(t, err)
	b, err := m.GetBox(ctx, id)
	require.NoError(t, err)
	b.BoxID = "changed"

	again, err := m.GetBox(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "BOX-000001", again.BoxID)
}

func TestMemoryRepo_DeleteExperimentDetachesSamples(t *testing.T) {
	m := NewMemoryRepo()
	ctx := context.Background()

	expID, err := m.CreateExperiment(ctx, &domain.Experiment{Title: "E"})
	require.NoError(t, err)
	require.NoError(t, m.SaveReqFluences(ctx, expID, []*domain.ReqFluence{{ReqFluence: "1e15"}}))
	sID, err := m.CreateSample(ctx, &domain.Sample{Name: "S1", ExperimentID: domain.NullID(expID)})
	require.NoError(t, err)

	require.NoError(t, m.DeleteExperiment(ctx, expID))

	s, err := m.GetSample(ctx, sID)
	require.NoError(t, err)
	assert.False(t, s.ExperimentID.Valid)
	fl, err := m.ListReqFluences(ctx, expID)
	require.NoError(t, err)
	assert.Empty(t, fl)

	_, err = m.GetExperiment(ctx, expID)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestMemoryRepo_SaveReqFluencesKeepsIDs(t *testing.T) {
	m := NewMemoryRepo()
	ctx := context.Background()

	items := []*domain.ReqFluence{{ReqFluence: "a"}, {ReqFluence: "b"}}
	require.NoError(t, m.SaveReqFluences(ctx, 1, items))
	keptID := items[0].ID

	require.NoError(t, m.SaveReqFluences(ctx, 1, []*domain.ReqFluence{{ID: keptID, ReqFluence: "a2"}}))

	out, err := m.ListReqFluences(ctx, 1)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, keptID, out[0].ID)
	assert.Equal(t, "a2", out[0].ReqFluence)
}

func TestMemoryRepo_CompoundAssociatedSamples(t *testing.T) {
	m := NewMemoryRepo()
	ctx := context.Background()

	cID, err := m.CreateCompound(ctx, &domain.Compound{Name: "Si"})
	require.NoError(t, err)
	require.NoError(t, m.SaveLayers(ctx, 10, []*domain.Layer{
		{Name: "l1", CompoundID: domain.NullID(cID)},
		{Name: "l2", CompoundID: domain.NullID(cID)},
	}))
	require.NoError(t, m.SaveLayers(ctx, 11, []*domain.Layer{{Name: "l3", CompoundID: domain.NullID(cID)}}))

	c, err := m.GetCompound(ctx, cID)
	require.NoError(t, err)
	assert.Equal(t, 2, c.NumAssociatedSamples)

	layers, err := m.ListLayersByCompound(ctx, cID)
	require.NoError(t, err)
	assert.Len(t, layers, 3)
}

func TestMemoryRepo_EnsureDefaultFactorOnce(t *testing.T) {
	m := NewMemoryRepo()
	ctx := context.Background()

	a, err := m.EnsureDefaultFactor(ctx)
	require.NoError(t, err)
	b, err := m.EnsureDefaultFactor(ctx)
	require.NoError(t, err)
	assert.Equal(t, a.ID, b.ID)

	all, err := m.ListFluenceFactors(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestMemoryRepo_SecWindowIsExclusive(t *testing.T) {
	m := NewMemoryRepo()
	ctx := context.Background()
	t0 := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

	for i, v := range []float64{5, 0, 2, 3} {
		require.NoError(t, m.InsertSecReading(ctx, &domain.SecReading{
			SecID: domain.DefaultSecID, Value: v, Timestamp: t0.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, m.InsertSecReading(ctx, &domain.SecReading{SecID: "SEC_02", Value: 100, Timestamp: t0.Add(time.Minute)}))

	sum, err := m.SumSec(ctx, domain.DefaultSecID, t0, t0.Add(3*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 2.0, sum)

	first, last, err := m.FirstLastPositiveSec(ctx, domain.DefaultSecID, t0.Add(-time.Second), t0.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, t0, first.Time)
	assert.Equal(t, t0.Add(3*time.Minute), last.Time)
}
