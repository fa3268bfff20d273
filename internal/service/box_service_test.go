package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"irrad-data/internal/repository"
)

func TestDosimeterGenerate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Dosimeters.Generate(ctx, f.alice, 2)
	requireDenied(t, err)

	_, err = f.svc.Dosimeters.Generate(ctx, f.admin, 0)
	require.Error(t, err)

	out, err := f.svc.Dosimeters.Generate(ctx, f.admin, 3)
	require.NoError(t, err)
	assert.Equal(t, MsgDosimetersCreated, out.Message)

	all, err := f.repos.Dosimeters.ListDosimeters(ctx, repository.DosimetersFilter{})
	require.NoError(t, err)
	ids := make([]string, 0, len(all))
	for _, d := range all {
		ids = append(ids, d.DosID)
	}
	assert.ElementsMatch(t, []string{"DOS-004000", "DOS-004001", "DOS-004002"}, ids)

	_, err = f.svc.Dosimeters.Generate(ctx, f.admin, 1)
	require.NoError(t, err)
	_, err = f.repos.Dosimeters.GetDosimeterByDosID(ctx, "DOS-004003")
	require.NoError(t, err)
}

func TestBoxCreateAllocatesID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Boxes.Create(ctx, f.admin, BoxInput{BoxID: "BOX-000001"})
	require.NoError(t, err)

	next, err := f.svc.Boxes.NextID(ctx, f.admin)
	require.NoError(t, err)
	assert.Equal(t, "BOX-000002", next)

	_, err = f.svc.Boxes.Create(ctx, f.admin, BoxInput{})
	require.NoError(t, err)
	_, err = f.repos.Boxes.GetBoxByBoxID(ctx, "BOX-000002")
	require.NoError(t, err)

	_, err = f.svc.Boxes.Create(ctx, f.admin, BoxInput{BoxID: "BOX-000001"})
	requireAlert(t, err, MsgInvalid)

	_, err = f.svc.Boxes.Create(ctx, f.admin, BoxInput{BoxID: "CRATE-7"})
	requireAlert(t, err, MsgIncorrectBoxIDFormat)

	_, err = f.svc.Boxes.Create(ctx, f.alice, BoxInput{})
	requireDenied(t, err)
}

func TestBoxItems(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.experiment(t, f.alice, "Boxed")
	c := f.compound(t, "Silicon")
	sm := f.sample(t, f.alice, e.ID, "BX-01", c.ID)
	_, err := f.svc.Samples.AssignSetIDs(ctx, f.alice, Selection{IDs: []int64{sm.ID}})
	require.NoError(t, err)
	sm, err = f.repos.Samples.GetSample(ctx, sm.ID)
	require.NoError(t, err)
	_, err = f.svc.Dosimeters.Generate(ctx, f.admin, 1)
	require.NoError(t, err)
	_, err = f.svc.Boxes.Create(ctx, f.admin, BoxInput{BoxID: "BOX-000010"})
	require.NoError(t, err)
	box, err := f.repos.Boxes.GetBoxByBoxID(ctx, "BOX-000010")
	require.NoError(t, err)

	_, err = f.svc.Boxes.AddItems(ctx, f.admin, box.ID, []string{sm.SetID.String, "DOS-009999"})
	requireAlert(t, err, MsgInvalid)

	out, err := f.svc.Boxes.AddItems(ctx, f.admin, box.ID, []string{sm.SetID.String, " DOS-004000 "})
	require.NoError(t, err)
	assert.Equal(t, MsgBoxItemsAdded, out.Message)

	items, err := f.svc.Boxes.Items(ctx, f.admin, box.ID, ListRequest{})
	require.NoError(t, err)
	assert.Len(t, items.Items, 2)

	// members of an experiment with a sample in the box may see it
	require.NoError(t, f.svc.Permissions.Require(ctx, f.alice, PermBoxDetails, box.ID))
	requireDenied(t, f.svc.Permissions.Require(ctx, f.bob, PermBoxDetails, box.ID))

	_, err = f.svc.Boxes.RemoveItems(ctx, f.admin, box.ID, []string{"DOS-004001"})
	requireAlert(t, err, MsgInvalidItemID)

	_, err = f.svc.Boxes.RemoveItems(ctx, f.admin, box.ID, []string{"DOS-004000"})
	require.NoError(t, err)
	items, err = f.svc.Boxes.Items(ctx, f.admin, box.ID, ListRequest{})
	require.NoError(t, err)
	require.Len(t, items.Items, 1)
	assert.Equal(t, sm.SetID.String, items.Items[0].ID)
}

func TestDosimeterAttachBox(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Dosimeters.Generate(ctx, f.admin, 2)
	require.NoError(t, err)
	all, err := f.repos.Dosimeters.ListDosimeters(ctx, repository.DosimetersFilter{})
	require.NoError(t, err)
	ids := []int64{all[0].ID, all[1].ID}

	_, err = f.svc.Dosimeters.AttachBox(ctx, f.admin, Selection{IDs: ids}, "BOX-000099")
	requireAlert(t, err, MsgBoxDoesNotExist)

	_, err = f.svc.Boxes.Create(ctx, f.admin, BoxInput{BoxID: "BOX-000099"})
	require.NoError(t, err)
	_, err = f.svc.Dosimeters.AttachBox(ctx, f.admin, Selection{IDs: ids}, "BOX-000099")
	require.NoError(t, err)

	box, err := f.repos.Boxes.GetBoxByBoxID(ctx, "BOX-000099")
	require.NoError(t, err)
	inBox, err := f.repos.Dosimeters.ListDosimeters(ctx, repository.DosimetersFilter{BoxID: box.ID})
	require.NoError(t, err)
	assert.Len(t, inBox, 2)

	_, err = f.svc.Dosimeters.AttachBox(ctx, f.admin, Selection{IDs: ids}, "None")
	require.NoError(t, err)
	inBox, err = f.repos.Dosimeters.ListDosimeters(ctx, repository.DosimetersFilter{BoxID: box.ID})
	require.NoError(t, err)
	assert.Empty(t, inBox)
}

func TestAllocationLockKeys(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Boxes.Create(ctx, f.admin, BoxInput{})
	require.NoError(t, err)
	_, err = f.svc.Dosimeters.Generate(ctx, f.admin, 1)
	require.NoError(t, err)

	assert.Equal(t, []string{"lock:box_id", "lock:dos_id"}, f.locks.keys)
}
