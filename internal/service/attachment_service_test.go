package service

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttachments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.experiment(t, f.alice, "With documents")

	_, err := f.svc.Attachments.Upload(ctx, f.bob, e.ID, "plan.pdf", "application/pdf", strings.NewReader("%PDF"))
	requireDenied(t, err)

	_, err = f.svc.Attachments.Upload(ctx, f.alice, e.ID, " ", "text/plain", strings.NewReader("x"))
	requireAlert(t, err, MsgInvalid)

	out, err := f.svc.Attachments.Upload(ctx, f.alice, e.ID, "../../etc/plan.pdf", "application/pdf", strings.NewReader("%PDF-1.7"))
	require.NoError(t, err)
	uploaded := out.Result.(Attachment)
	assert.Equal(t, "plan.pdf", uploaded.Name)
	assert.True(t, strings.HasPrefix(uploaded.Key, attachmentPrefix(e.ID)))

	list, err := f.svc.Attachments.List(ctx, f.alice, e.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, strings.HasPrefix(list[0].URL, "/api/v1/experiments/"))
	assert.Contains(t, list[0].URL, "/attachments/download?key=")

	_, err = f.svc.Attachments.List(ctx, f.bob, e.ID)
	requireDenied(t, err)

	info, rc, err := f.svc.Attachments.Open(ctx, f.alice, e.ID, uploaded.Key)
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7", string(body))
	assert.Equal(t, "application/pdf", info.ContentType)

	_, _, err = f.svc.Attachments.Open(ctx, f.alice, e.ID, "experiments/999/x/plan.pdf")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.Attachments.Delete(ctx, f.alice, e.ID, uploaded.Key)
	require.NoError(t, err)
	_, _, err = f.svc.Attachments.Open(ctx, f.alice, e.ID, uploaded.Key)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.svc.Attachments.Delete(ctx, f.alice, e.ID, uploaded.Key)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReports(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.experiment(t, f.alice, "Reported")
	c := f.compound(t, "Silicon")
	f.sample(t, f.alice, e.ID, "R-01", c.ID)
	_, err := f.svc.Boxes.Create(ctx, f.admin, BoxInput{BoxID: "BOX-000003"})
	require.NoError(t, err)
	_, err = f.svc.Dosimeters.Generate(ctx, f.admin, 2)
	require.NoError(t, err)

	boxes, err := f.svc.Reports.Boxes(ctx, f.admin)
	require.NoError(t, err)
	assert.Equal(t, "boxes_20260310_120000.xlsx", boxes.FileName)
	assert.NotEmpty(t, boxes.Data)

	dosimeters, err := f.svc.Reports.Dosimeters(ctx, f.admin)
	require.NoError(t, err)
	assert.NotEmpty(t, dosimeters.Data)

	samples, err := f.svc.Reports.Samples(ctx, f.alice, e.ID)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(samples.FileName, "experiment_"))

	_, err = f.svc.Reports.Samples(ctx, f.bob, e.ID)
	requireDenied(t, err)
	_, err = f.svc.Reports.Boxes(ctx, f.alice)
	requireDenied(t, err)
}
