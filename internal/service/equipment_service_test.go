package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"irrad-data/internal/domain"
	"irrad-data/internal/infoream"
	"irrad-data/internal/repository"
)

func TestWriteDosimeters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Dosimeters.Generate(ctx, f.admin, 2)
	require.NoError(t, err)
	all, err := f.repos.Dosimeters.ListDosimeters(ctx, repository.DosimetersFilter{})
	require.NoError(t, err)
	sel := Selection{IDs: []int64{all[0].ID, all[1].ID}}

	_, err = f.svc.Equipment.WriteDosimeters(ctx, f.alice, sel)
	requireDenied(t, err)

	out, err := f.svc.Equipment.WriteDosimeters(ctx, f.admin, sel)
	require.NoError(t, err)
	assert.Equal(t, MsgInforEAMWritten, out.Message)

	eq, err := f.inforEAM.ReadEquipment(ctx, "PXXIDOS001-CR004001")
	require.NoError(t, err)
	assert.Equal(t, "PXXIDOS001-CR004001", eq.Code)

	// a second write updates the existing assets
	_, err = f.svc.Equipment.WriteDosimeters(ctx, f.admin, sel)
	require.NoError(t, err)

	rec, err := f.svc.Equipment.Read(ctx, f.admin, "DOS-004000")
	require.NoError(t, err)
	assert.True(t, rec.Exists)
	assert.Equal(t, "PXXIDOS001-CR004000", rec.InforEAMID)

	_, err = f.svc.Equipment.Read(ctx, f.alice, "DOS-004000")
	requireDenied(t, err)

	f.inforEAM.Fail = errors.New("gateway down")
	_, err = f.svc.Equipment.WriteDosimeters(ctx, f.admin, sel)
	requireAlert(t, err, MsgDefault)
}

func TestWriteBox(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Boxes.Create(ctx, f.admin, BoxInput{BoxID: "BOX-000001"})
	require.NoError(t, err)
	box, err := f.repos.Boxes.GetBoxByBoxID(ctx, "BOX-000001")
	require.NoError(t, err)
	_, err = f.svc.Dosimeters.Generate(ctx, f.admin, 1)
	require.NoError(t, err)
	_, err = f.svc.Boxes.AddItems(ctx, f.admin, box.ID, []string{"DOS-004000"})
	require.NoError(t, err)

	_, err = f.svc.Equipment.WriteBox(ctx, f.admin, Selection{IDs: []int64{box.ID}})
	requireAlert(t, err, MsgBoxNotInInforEAM)
	_, err = f.inforEAM.ReadEquipment(ctx, "PXXIDOS001-CR004000")
	assert.ErrorIs(t, err, infoream.ErrNotFound, "nothing is written when planning fails")

	require.NoError(t, f.inforEAM.CreateEquipment(ctx, &infoream.Equipment{Code: "HCPWPDI002-CR000001"}))
	out, err := f.svc.Equipment.WriteBox(ctx, f.admin, Selection{IDs: []int64{box.ID}})
	require.NoError(t, err)
	assert.Equal(t, MsgInforEAMWritten, out.Message)
	assert.Equal(t, "HCPWPDI002-CR000001", f.inforEAM.Parent("PXXIDOS001-CR004000"))

	_, err = f.svc.Equipment.WriteBox(ctx, f.admin, Selection{IDs: []int64{box.ID, box.ID}})
	require.Error(t, err)
}

func TestWriteSamplesAndRead(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.experiment(t, f.alice, "Written samples")
	c := f.compound(t, "Silicon")
	sm := f.sample(t, f.alice, e.ID, "W-01", c.ID)
	sel := Selection{IDs: []int64{sm.ID}}

	_, err := f.svc.Equipment.WriteSamples(ctx, f.alice, e.ID, sel)
	requireAlert(t, err, MsgSamplesInvalidSetID)

	_, err = f.svc.Samples.AssignSetIDs(ctx, f.alice, sel)
	require.NoError(t, err)
	sm, err = f.repos.Samples.GetSample(ctx, sm.ID)
	require.NoError(t, err)

	_, err = f.svc.Equipment.WriteSamples(ctx, f.bob, e.ID, sel)
	requireDenied(t, err)

	out, err := f.svc.Equipment.WriteSamples(ctx, f.alice, e.ID, sel)
	require.NoError(t, err)
	assert.Equal(t, MsgInforEAMWritten, out.Message)

	rec, err := f.svc.Equipment.Read(ctx, f.alice, sm.SetID.String)
	require.NoError(t, err)
	assert.True(t, rec.Exists)

	_, err = f.svc.Equipment.Read(ctx, f.bob, sm.SetID.String)
	requireDenied(t, err)

	_, err = f.svc.Equipment.Read(ctx, f.alice, "SET-999999")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPrintSampleLabels(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.experiment(t, f.alice, "Labels")
	c := f.compound(t, "Silicon")
	sm := f.sample(t, f.alice, e.ID, "L-01", c.ID)
	in := PrintInput{Model: ModelSample, IDs: []int64{sm.ID}, Printer: "\\\\print\\IRRAD", Template: "IRRAD_SET", Copies: 2}

	_, err := f.svc.Equipment.Print(ctx, f.alice, in)
	requireAlert(t, err, MsgInvalidEquipmentID)

	_, err = f.svc.Samples.AssignSetIDs(ctx, f.alice, Selection{IDs: []int64{sm.ID}})
	require.NoError(t, err)

	_, err = f.svc.Equipment.Print(ctx, f.alice, in)
	requireAlert(t, err, MsgPrintStatusInvalid)

	_, err = f.svc.Experiments.UpdateStatus(ctx, f.admin, Selection{IDs: []int64{e.ID}}, domain.StatusInPreparation)
	require.NoError(t, err)

	noPrinter := in
	noPrinter.Printer = ""
	_, err = f.svc.Equipment.Print(ctx, f.alice, noPrinter)
	requireAlert(t, err, MsgInvalid)

	out, err := f.svc.Equipment.Print(ctx, f.alice, in)
	require.NoError(t, err)
	assert.Equal(t, MsgSuccess, out.Message)
	require.Len(t, f.inforEAM.Printed, 1)
	assert.Equal(t, 2, f.inforEAM.Printed[0].PrintQty)

	_, err = f.svc.Equipment.Print(ctx, f.bob, in)
	requireDenied(t, err)

	_, err = f.svc.Equipment.Print(ctx, f.alice, PrintInput{Model: "crate", IDs: []int64{sm.ID}})
	requireAlert(t, err, MsgInvalid)
}

func TestWriteSamplesRejectsForeignSamples(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.compound(t, "Silicon")
	own := f.experiment(t, f.alice, "Alice exp")
	other := f.experiment(t, f.bob, "Bob exp")
	foreign := f.sample(t, f.bob, other.ID, "B-1", c.ID)
	sel := Selection{IDs: []int64{foreign.ID}}
	_, err := f.svc.Samples.AssignSetIDs(ctx, f.bob, sel)
	require.NoError(t, err)

	_, err = f.svc.Equipment.WriteSamples(ctx, f.alice, own.ID, sel)
	requireDenied(t, err)

	_, err = f.svc.Equipment.WriteSamples(ctx, f.admin, own.ID, sel)
	requireAlert(t, err, MsgInvalid)

	out, err := f.svc.Equipment.WriteSamples(ctx, f.bob, other.ID, sel)
	require.NoError(t, err)
	assert.Equal(t, MsgInforEAMWritten, out.Message)
}
