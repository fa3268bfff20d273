package blob

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"irrad-data/internal/config"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	info, err := s.Put(ctx, "experiments/1/a-report.pdf", strings.NewReader("hello"), PutOptions{
		ContentType: "application/pdf",
		Metadata:    map[string]string{"filename": "report.pdf"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5), info.Size)
	assert.NotEmpty(t, info.ETag)

	_, err = s.Put(ctx, "experiments/1/a-report.pdf", strings.NewReader("again"), PutOptions{})
	assert.ErrorIs(t, err, ErrExists)

	_, err = s.Put(ctx, "experiments/2/b-plan.txt", strings.NewReader("x"), PutOptions{})
	require.NoError(t, err)

	got, rc, err := s.Get(ctx, "experiments/1/a-report.pdf")
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "hello", string(body))
	assert.Equal(t, "application/pdf", got.ContentType)
	assert.Equal(t, "report.pdf", got.Metadata["filename"])

	list, err := s.List(ctx, "experiments/1/")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "experiments/1/a-report.pdf", list[0].Key)

	_, err = s.PresignURL(ctx, "experiments/1/a-report.pdf", 0)
	assert.ErrorIs(t, err, ErrUnsupported)

	ok, err := s.Delete(ctx, "experiments/1/a-report.pdf")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.Delete(ctx, "experiments/1/a-report.pdf")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.Head(ctx, "experiments/1/a-report.pdf")
	assert.ErrorIs(t, err, ErrNotFound)
	_, _, err = s.Get(ctx, "experiments/1/a-report.pdf")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestFilesystemStore(t *testing.T) {
	s, err := NewFilesystem(t.TempDir())
	require.NoError(t, err)
	exerciseStore(t, s)
}

func TestFilesystemStore_RejectsTraversal(t *testing.T) {
	s, err := NewFilesystem(t.TempDir())
	require.NoError(t, err)
	_, err = s.Put(context.Background(), "../escape", strings.NewReader("x"), PutOptions{})
	assert.Error(t, err)
	_, err = s.Put(context.Background(), "/abs", strings.NewReader("x"), PutOptions{})
	assert.Error(t, err)
}

func TestOpen(t *testing.T) {
	s, err := Open(context.Background(), config.BlobConfig{Driver: "memory"})
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, s.Driver())

	s, err = Open(context.Background(), config.BlobConfig{Driver: "fs", Dir: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, DriverFilesystem, s.Driver())

	_, err = Open(context.Background(), config.BlobConfig{Driver: "ftp"})
	assert.Error(t, err)

	_, err = Open(context.Background(), config.BlobConfig{Driver: "s3"})
	assert.Error(t, err)
}
