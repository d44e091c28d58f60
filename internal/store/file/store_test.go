package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"nebula-backend/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlotLifecycle(t *testing.T) {
	ctx := context.Background()
	s, err := NewSlotStore(filepath.Join(t.TempDir(), "data"))
	require.NoError(t, err)

	_, err = s.GetSlot(ctx, "ana", "musicList")
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.PutSlot(ctx, "ana", "musicList", []byte("[1]")))
	require.NoError(t, s.PutSlot(ctx, "ana", "musicList", []byte("[1,2]")))
	got, err := s.GetSlot(ctx, "ana", "musicList")
	require.NoError(t, err)
	assert.Equal(t, "[1,2]", string(got))

	require.NoError(t, s.DeleteSlot(ctx, "ana", "musicList"))
	require.NoError(t, s.DeleteSlot(ctx, "ana", "musicList"))
	_, err = s.GetSlot(ctx, "ana", "musicList")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestOwnersCannotEscapeRoot(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	s, err := NewSlotStore(root)
	require.NoError(t, err)

	require.NoError(t, s.PutSlot(ctx, "../../etc", "../passwd", []byte("x")))

	var files []string
	require.NoError(t, filepath.Walk(root, func(p string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			files = append(files, p)
		}
		return err
	}))
	require.Len(t, files, 1)
	assert.Equal(t, root, filepath.Dir(filepath.Dir(files[0])))

	got, err := s.GetSlot(ctx, "../../etc", "../passwd")
	require.NoError(t, err)
	assert.Equal(t, "x", string(got))
}

func TestCancelledContext(t *testing.T) {
	s, err := NewSlotStore(t.TempDir())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.PutSlot(ctx, "ana", "k", []byte("v")), context.Canceled)
}
