package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"irrad-data/internal/domain"
	"irrad-data/internal/equipment"
)

func TestSampleCreate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.experiment(t, f.alice, "Hybrid pixels")
	c := f.compound(t, "Silicon")

	sm := f.sample(t, f.alice, e.ID, "HP-01", c.ID)
	assert.Equal(t, domain.StatusRegistered, sm.Status)
	assert.Greater(t, sm.RadiationLengthOcc, 0.0)

	layers, err := f.repos.Samples.ListLayers(ctx, sm.ID)
	require.NoError(t, err)
	require.Len(t, layers, 1)
	assert.Equal(t, 0.5, layers[0].Length)

	e, err = f.repos.Experiments.GetExperiment(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, e.NumberRegisteredSamples)
	assert.InDelta(t, sm.RadiationLengthOcc, e.RadiationLengthOcc, 1e-12)
}

func TestSampleCreateRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.experiment(t, f.alice, "Hybrid pixels")
	c := f.compound(t, "Silicon")
	f.sample(t, f.alice, e.ID, "HP-01", c.ID)

	_, err := f.svc.Samples.Create(ctx, f.alice, e.ID, SampleInput{Name: "HP-02"})
	requireAlert(t, err, MsgSampleEmptyLayers)

	_, err = f.svc.Samples.Create(ctx, f.alice, e.ID, SampleInput{
		Name: "HP-01", Layers: []LayerInput{{Name: "L", Length: 1, CompoundID: c.ID}},
	})
	requireAlert(t, err, MsgSampleNotUnique)

	_, err = f.svc.Samples.Create(ctx, f.bob, e.ID, SampleInput{
		Name: "HP-03", Layers: []LayerInput{{Name: "L", Length: 1, CompoundID: c.ID}},
	})
	requireDenied(t, err)

	_, err = f.svc.Samples.Create(ctx, f.alice, e.ID, SampleInput{
		Name: "HP-04", Height: -1, Layers: []LayerInput{{Name: "L", Length: 1}},
	})
	require.Error(t, err)
	_, ok := AlertMessage(err)
	assert.True(t, ok)
}

func TestSampleCreateNeedsValidatedExperiment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Experiments.Create(ctx, f.alice, experimentInput("Pending"))
	require.NoError(t, err)
	e, err := f.repos.Experiments.GetExperimentByTitle(ctx, "Pending")
	require.NoError(t, err)

	_, err = f.svc.Samples.Create(ctx, f.alice, e.ID, SampleInput{
		Name: "P-01", Layers: []LayerInput{{Name: "L", Length: 1}},
	})
	requireAlert(t, err, MsgExperimentNotValidated)
}

func TestSampleMoveArchives(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	from := f.experiment(t, f.alice, "Source")
	to := f.experiment(t, f.alice, "Target")
	other := f.experiment(t, f.bob, "Foreign")
	c := f.compound(t, "Silicon")
	sm := f.sample(t, f.alice, from.ID, "MV-01", c.ID)

	_, err := f.svc.Samples.Move(ctx, f.alice, Selection{IDs: []int64{sm.ID}}, MoveInput{ExperimentID: other.ID})
	requireDenied(t, err)

	_, err = f.svc.Samples.Move(ctx, f.alice, Selection{IDs: []int64{sm.ID}}, MoveInput{ExperimentID: to.ID})
	require.NoError(t, err)

	moved, err := f.repos.Samples.GetSample(ctx, sm.ID)
	require.NoError(t, err)
	assert.Equal(t, to.ID, moved.ExperimentID.Int64)

	rows, err := f.svc.Experiments.Archive(ctx, f.alice, from.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	src, err := f.repos.Experiments.GetExperiment(ctx, from.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, src.NumberRegisteredSamples)
}

func TestSampleAssignSetIDs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.experiment(t, f.alice, "SET ids")
	c := f.compound(t, "Silicon")
	a := f.sample(t, f.alice, e.ID, "S-A", c.ID)
	b := f.sample(t, f.alice, e.ID, "S-B", c.ID)

	_, err := f.svc.Samples.AssignSetIDs(ctx, f.alice, Selection{IDs: []int64{a.ID, b.ID}})
	require.NoError(t, err)

	a, err = f.repos.Samples.GetSample(ctx, a.ID)
	require.NoError(t, err)
	b, err = f.repos.Samples.GetSample(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, equipment.Is(a.SetID.String, equipment.KindSample))
	assert.True(t, equipment.Is(b.SetID.String, equipment.KindSample))
	assert.NotEqual(t, a.SetID.String, b.SetID.String)

	_, err = f.svc.Samples.AssignSetIDs(ctx, f.alice, Selection{IDs: []int64{a.ID}})
	requireAlert(t, err, MsgSamplesAlreadyHaveSet)
}

func TestCompoundCreate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	si := &domain.Element{AtomicNumber: 14, AtomicSymbol: "Si", AtomicMass: 28.085}
	o := &domain.Element{AtomicNumber: 8, AtomicSymbol: "O", AtomicMass: 15.999}
	_, err := f.repos.Compounds.CreateElement(ctx, si)
	require.NoError(t, err)
	_, err = f.repos.Compounds.CreateElement(ctx, o)
	require.NoError(t, err)

	_, err = f.svc.Compounds.Create(ctx, f.alice, CompoundInput{
		Name: "Quartz", Density: 2.65,
		Elements: []CompoundElementInput{{ElementID: si.ID, Percentage: 46.7}, {ElementID: o.ID, Percentage: 53}},
	})
	requireAlert(t, err, MsgCompoundNotSum100)

	_, err = f.svc.Compounds.Create(ctx, f.alice, CompoundInput{Name: "Nothing", Density: 1})
	requireAlert(t, err, MsgCompoundEmpty)

	out, err := f.svc.Compounds.Create(ctx, f.alice, CompoundInput{
		Name: "Quartz", Density: 2.65,
		Elements: []CompoundElementInput{{ElementID: si.ID, Percentage: 46.7}, {ElementID: o.ID, Percentage: 53.3}},
	})
	require.NoError(t, err)
	assert.Equal(t, MsgCompoundCreated, out.Message)

	_, err = f.svc.Compounds.Create(ctx, f.bob, CompoundInput{
		Name: "Quartz", Density: 2.65, Elements: []CompoundElementInput{{ElementID: si.ID, Percentage: 100}},
	})
	requireAlert(t, err, MsgCompoundNameNotUnique)
}

func TestCompoundDeleteInUse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.experiment(t, f.alice, "Compounds in use")
	c := f.compound(t, "Silicon")
	f.sample(t, f.alice, e.ID, "CU-01", c.ID)

	_, err := f.svc.Compounds.Delete(ctx, f.alice, Selection{IDs: []int64{c.ID}})
	requireDenied(t, err)

	_, err = f.svc.Compounds.Delete(ctx, f.admin, Selection{IDs: []int64{c.ID}})
	requireAlert(t, err, MsgCompoundHasSamples)
}
