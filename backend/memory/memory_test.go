package memory

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/remotefs-rs/remotefs-fuse-go/internal/remotefs"
)

func TestRootExists(t *testing.T) {
	fs := New()
	f, err := fs.Stat(context.Background(), "/")
	require.NoError(t, err)
	assert.Equal(t, remotefs.TypeDir, f.Type)
}

func TestCreateFileThenReadBack(t *testing.T) {
	ctx := context.Background()
	fs := New()

	require.NoError(t, fs.CreateFile(ctx, "/hello.txt", remotefs.Metadata{}, strings.NewReader("hi there")))

	f, err := fs.Stat(ctx, "/hello.txt")
	require.NoError(t, err)
	assert.Equal(t, uint64(len("hi there")), f.Size)

	var buf strings.Builder
	require.NoError(t, fs.OpenFile(ctx, "/hello.txt", &buf))
	assert.Equal(t, "hi there", buf.String())
}

func TestStreamingWriteThenRead(t *testing.T) {
	ctx := context.Background()
	fs := New()

	w, err := fs.Create(ctx, "/stream.bin", remotefs.Metadata{})
	require.NoError(t, err)
	_, err = w.Write([]byte("abcdef"))
	require.NoError(t, err)
	require.NoError(t, fs.OnWritten(ctx, w))

	r, err := fs.Open(ctx, "/stream.bin")
	require.NoError(t, err)
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "abcdef", string(data))
	require.NoError(t, fs.OnRead(ctx, r))
}

func TestListDirOnlyDirectChildren(t *testing.T) {
	ctx := context.Background()
	fs := New()
	require.NoError(t, fs.CreateDir(ctx, "/dir", 0o755))
	require.NoError(t, fs.CreateFile(ctx, "/dir/a.txt", remotefs.Metadata{}, strings.NewReader("a")))
	require.NoError(t, fs.CreateFile(ctx, "/dir/b.txt", remotefs.Metadata{}, strings.NewReader("b")))
	require.NoError(t, fs.CreateDir(ctx, "/dir/sub", 0o755))
	require.NoError(t, fs.CreateFile(ctx, "/dir/sub/c.txt", remotefs.Metadata{}, strings.NewReader("c")))

	entries, err := fs.ListDir(ctx, "/dir")
	require.NoError(t, err)
	require.Len(t, entries, 3)
}

func TestMoveRenamesEntry(t *testing.T) {
	ctx := context.Background()
	fs := New()
	require.NoError(t, fs.CreateFile(ctx, "/a.txt", remotefs.Metadata{}, strings.NewReader("x")))
	require.NoError(t, fs.Move(ctx, "/a.txt", "/b.txt"))

	_, err := fs.Stat(ctx, "/a.txt")
	assert.ErrorIs(t, err, remotefs.ErrNoSuchFile)

	f, err := fs.Stat(ctx, "/b.txt")
	require.NoError(t, err)
	assert.Equal(t, "/b.txt", f.Path)
}

func TestSetstatTruncatesContent(t *testing.T) {
	ctx := context.Background()
	fs := New()
	require.NoError(t, fs.CreateFile(ctx, "/t.txt", remotefs.Metadata{}, strings.NewReader("0123456789")))

	size := uint64(4)
	require.NoError(t, fs.Setstat(ctx, "/t.txt", remotefs.Metadata{Size: &size}))

	var buf strings.Builder
	require.NoError(t, fs.OpenFile(ctx, "/t.txt", &buf))
	assert.Equal(t, "0123", buf.String())
}

func TestRemoveFileRejectsDirectory(t *testing.T) {
	ctx := context.Background()
	fs := New()
	require.NoError(t, fs.CreateDir(ctx, "/d", 0o755))
	assert.Error(t, fs.RemoveFile(ctx, "/d"))
}
