package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"irrad-data/internal/domain"
	"irrad-data/internal/notify"
)

func TestExperimentCreate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	out, err := f.svc.Experiments.Create(ctx, f.alice, experimentInput("Pixel modules"))
	require.NoError(t, err)
	assert.Equal(t, MsgExperimentCreated, out.Message)

	e, err := f.repos.Experiments.GetExperimentByTitle(ctx, "Pixel modules")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRegistered, e.Status)
	assert.Equal(t, f.alice.ID, e.ResponsibleID.Int64)
	assert.Equal(t, 1, e.NumberUsers)

	fluences, err := f.repos.Experiments.ListReqFluences(ctx, e.ID)
	require.NoError(t, err)
	assert.Len(t, fluences, 2)
}

func TestExperimentCreateValidation(t *testing.T) {
	tests := []struct {
		name   string
		modify func(in *ExperimentInput)
		msg    string
	}{
		{"missing title", func(in *ExperimentInput) { in.Title = " " }, MsgMissingFields},
		{"bad availability", func(in *ExperimentInput) { in.Availability = "01/04/2026" }, MsgMissingFields},
		{"no samples", func(in *ExperimentInput) { in.NumberSamples = 0 }, MsgMissingFields},
		{"no category", func(in *ExperimentInput) { in.Category = CategoryInput{} }, MsgNoCategory},
		{"two areas", func(in *ExperimentInput) { in.Category.Area5x5 = true }, MsgMultipleAreas},
		{"custom without type", func(in *ExperimentInput) { in.Category = CategoryInput{Kind: domain.CategoryActive} }, MsgInvalidCategory},
		{"negative fluence", func(in *ExperimentInput) { in.ReqFluences = []string{"-1"} }, MsgInvalidFluence},
		{"no material", func(in *ExperimentInput) { in.Materials = []string{" "} }, MsgInvalidMaterial},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			in := experimentInput("Strip sensors")
			tt.modify(&in)
			_, err := f.svc.Experiments.Create(context.Background(), f.alice, in)
			requireAlert(t, err, tt.msg)
		})
	}
}

func TestExperimentCreateTitleNotUnique(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Experiments.Create(ctx, f.alice, experimentInput("Calorimeter"))
	require.NoError(t, err)

	_, err = f.svc.Experiments.Create(ctx, f.bob, experimentInput("Calorimeter"))
	requireAlert(t, err, MsgTitleNotUnique)
}

func TestExperimentResponsibleByEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	in := experimentInput("Timing layer")
	in.ResponsibleEmail = "Carol@CERN.ch"
	_, err := f.svc.Experiments.Create(ctx, f.alice, in)
	require.NoError(t, err)

	carol, err := f.repos.Users.GetUserByEmail(ctx, "carol@cern.ch")
	require.NoError(t, err)
	e, err := f.repos.Experiments.GetExperimentByTitle(ctx, "Timing layer")
	require.NoError(t, err)
	assert.Equal(t, carol.ID, e.ResponsibleID.Int64)
}

func TestExperimentValidate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Experiments.Create(ctx, f.alice, experimentInput("Optical links"))
	require.NoError(t, err)
	e, err := f.repos.Experiments.GetExperimentByTitle(ctx, "Optical links")
	require.NoError(t, err)

	_, err = f.svc.Experiments.Validate(ctx, f.alice, e.ID, nil)
	requireDenied(t, err)

	out, err := f.svc.Experiments.Validate(ctx, f.admin, e.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, MsgExperimentValidated, out.Message)

	e, err = f.repos.Experiments.GetExperiment(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusValidated, e.Status)

	require.Len(t, f.notes.Events, 1)
	ev := f.notes.Events[0]
	assert.Equal(t, notify.KindExperimentValidated, ev.Kind)
	assert.Equal(t, []string{"alice@cern.ch"}, ev.Recipients)
	assert.Equal(t, "admin@cern.ch", ev.Actor)
}

func TestExperimentUpdateStatusNotifiesOnCompletion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.experiment(t, f.alice, "Beam loss monitors")

	_, err := f.svc.Experiments.UpdateStatus(ctx, f.admin, Selection{IDs: []int64{e.ID}}, "Bogus")
	requireAlert(t, err, MsgInvalid)

	_, err = f.svc.Experiments.UpdateStatus(ctx, f.admin, Selection{IDs: []int64{e.ID}}, domain.StatusCompleted)
	require.NoError(t, err)
	last := f.notes.Events[len(f.notes.Events)-1]
	assert.Equal(t, notify.KindExperimentCompleted, last.Kind)

	_, err = f.svc.Experiments.Update(ctx, f.alice, e.ID, experimentInput("Beam loss monitors"))
	requireAlert(t, err, MsgExperimentCompleted)
}

func TestExperimentMembers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Experiments.Create(ctx, f.alice, experimentInput("Cooling plates"))
	require.NoError(t, err)
	e, err := f.repos.Experiments.GetExperimentByTitle(ctx, "Cooling plates")
	require.NoError(t, err)

	_, err = f.svc.Experiments.AddUser(ctx, f.alice, e.ID, "bob@cern.ch")
	requireAlert(t, err, MsgExperimentNotValidated)

	_, err = f.svc.Experiments.Validate(ctx, f.admin, e.ID, nil)
	require.NoError(t, err)

	out, err := f.svc.Experiments.AddUser(ctx, f.alice, e.ID, "bob@cern.ch")
	require.NoError(t, err)
	assert.Equal(t, MsgUserAdded, out.Message)

	out, err = f.svc.Experiments.AddUser(ctx, f.alice, e.ID, "dave@cern.ch")
	require.NoError(t, err)
	assert.Equal(t, MsgUserCreated, out.Message)

	e, err = f.repos.Experiments.GetExperiment(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, e.NumberUsers)

	// members may edit the experiment once added
	_, err = f.svc.Experiments.UpdateComment(ctx, f.bob, e.ID, "Bring your own cables")
	require.NoError(t, err)

	_, err = f.svc.Experiments.RemoveUsers(ctx, f.bob, e.ID, Selection{IDs: []int64{f.alice.ID}})
	requireAlert(t, err, MsgResponsibleNotRemovable)

	out, err = f.svc.Experiments.RemoveUsers(ctx, f.alice, e.ID, Selection{IDs: []int64{f.bob.ID}})
	require.NoError(t, err)
	assert.Equal(t, MsgUserRemoved, out.Message)

	_, err = f.svc.Experiments.UpdateComment(ctx, f.bob, e.ID, "still here?")
	requireDenied(t, err)
}

func TestExperimentDeleteNotifiesMembers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.experiment(t, f.alice, "Shielding blocks")

	_, err := f.svc.Experiments.Delete(ctx, f.bob, Selection{IDs: []int64{e.ID}})
	requireDenied(t, err)

	out, err := f.svc.Experiments.Delete(ctx, f.alice, Selection{IDs: []int64{e.ID}})
	require.NoError(t, err)
	assert.Equal(t, MsgExperimentDeleted, out.Message)
	last := f.notes.Events[len(f.notes.Events)-1]
	assert.Equal(t, notify.KindExperimentDeleted, last.Kind)
	assert.Equal(t, "Shielding blocks", last.Title)

	_, err = f.repos.Experiments.GetExperiment(ctx, e.ID)
	assert.True(t, isNoRows(err))
}

func TestExperimentVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	private := f.experiment(t, f.alice, "Private run")
	other := f.experiment(t, f.bob, "Public run")

	_, err := f.svc.Experiments.SetVisibility(ctx, f.bob, Selection{IDs: []int64{other.ID}}, domain.VisibilityPublic)
	require.NoError(t, err)

	// alice owns a private experiment, so nothing is shared with her
	shared, err := f.svc.Permissions.Shared(ctx, f.alice)
	require.NoError(t, err)
	assert.Empty(t, shared)

	_, err = f.svc.Experiments.SetVisibility(ctx, f.alice, Selection{IDs: []int64{private.ID}}, domain.VisibilityPublic)
	require.NoError(t, err)
	readable, err := f.svc.Permissions.ReadAuthorised(ctx, f.alice)
	require.NoError(t, err)
	assert.True(t, containsExperiment(readable, other.ID))

	_, err = f.svc.Experiments.SetVisibility(ctx, f.alice, Selection{IDs: []int64{private.ID}}, "Hidden")
	requireAlert(t, err, MsgInvalid)
}
