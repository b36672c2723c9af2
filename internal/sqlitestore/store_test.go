package sqlitestore

import (
	"bytes"
	"io/fs"
	"math"
	"path/filepath"
	"testing"

	"github.com/desertwitch/randacc/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var rw = schema.OpenOptions{Read: true, Write: true, Create: true}

func newMountedStore(t *testing.T, chunkSize int) (*Store, string) {
	t.Helper()

	root := filepath.Join(t.TempDir(), "volume.db")

	s := NewStore(chunkSize)
	require.NoError(t, s.Mount(t.Context(), schema.MountOptions{URL: root, Read: true, Write: true}))
	t.Cleanup(func() { _ = s.Close() })

	return s, root
}

// TestNewStore_Success_DefaultChunkSize tests the chunk size fallback.
func TestNewStore_Success_DefaultChunkSize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, DefaultChunkSize, NewStore(0).chunkSize)
	assert.Equal(t, 16, NewStore(16).chunkSize)
}

// TestMount_Error_EmptyPath tests mounting without a database path.
func TestMount_Error_EmptyPath(t *testing.T) {
	t.Parallel()

	err := NewStore(0).Mount(t.Context(), schema.MountOptions{URL: "", Write: true})
	require.ErrorIs(t, err, ErrEmptyPath)
}

// TestOpen_Error_NotMounted tests opening before mounting.
func TestOpen_Error_NotMounted(t *testing.T) {
	t.Parallel()

	_, err := NewStore(0).Open(t.Context(), "x", rw)
	require.ErrorIs(t, err, ErrNotMounted)
}

// TestOpen_Error_NotExist tests opening an absent resource without create.
func TestOpen_Error_NotExist(t *testing.T) {
	t.Parallel()

	s, root := newMountedStore(t, 0)

	_, err := s.Open(t.Context(), root+"/absent", schema.OpenOptions{Read: true})
	require.ErrorIs(t, err, fs.ErrNotExist)
}

// TestResource_Success_CrossChunk tests positional I/O spanning several
// chunks, including sparse regions.
func TestResource_Success_CrossChunk(t *testing.T) {
	t.Parallel()

	s, root := newMountedStore(t, 4)
	ctx := t.Context()

	res, err := s.Open(ctx, root+"/data", rw)
	require.NoError(t, err)

	n, err := res.WriteAt(ctx, []byte("0123456789"), 2)
	require.NoError(t, err)
	assert.Equal(t, 10, n)

	n, err = res.WriteAt(ctx, []byte("XY"), 20)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	st, err := res.Stat(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(22), st.Size)

	data, err := res.ReadAt(ctx, 0, 22)
	require.NoError(t, err)

	want := append([]byte("\x00\x000123456789"), bytes.Repeat([]byte{0}, 8)...)
	want = append(want, 'X', 'Y')
	assert.Equal(t, want, data)

	data, err = res.ReadAt(ctx, 5, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte("3456"), data)

	data, err = res.ReadAt(ctx, 21, 10)
	require.NoError(t, err)
	assert.Equal(t, []byte("Y"), data, "reads past the end are short")

	data, err = res.ReadAt(ctx, 18, math.MaxInt)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 'X', 'Y'}, data, "oversized reads stop at the end")
}

// TestOpen_Success_Truncate tests recreating a resource empty.
func TestOpen_Success_Truncate(t *testing.T) {
	t.Parallel()

	s, root := newMountedStore(t, 4)
	ctx := t.Context()

	res, err := s.Open(ctx, root+"/data", rw)
	require.NoError(t, err)

	_, err = res.WriteAt(ctx, []byte("0123456789"), 0)
	require.NoError(t, err)

	trunc, err := s.Open(ctx, root+"/data", schema.OpenOptions{Read: true, Write: true, Truncate: true})
	require.NoError(t, err)

	st, err := trunc.Stat(ctx)
	require.NoError(t, err)
	assert.Zero(t, st.Size)

	_, err = trunc.WriteAt(ctx, []byte("ab"), 0)
	require.NoError(t, err)

	data, err := trunc.ReadAt(ctx, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, []byte("ab"), data)
}

// TestRemove_Table tests removal with and without the ignore-absent policy.
func TestRemove_Table(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name         string
		create       bool
		ignoreAbsent bool
		wantErr      error
	}{
		{"Success_Exists", true, false, nil},
		{"Success_AbsentIgnored", false, true, nil},
		{"Error_Absent", false, false, fs.ErrNotExist},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			s, root := newMountedStore(t, 4)
			ctx := t.Context()

			if tc.create {
				res, err := s.Open(ctx, root+"/data", rw)
				require.NoError(t, err)

				_, err = res.WriteAt(ctx, []byte("payload"), 0)
				require.NoError(t, err)
			}

			err := s.Remove(ctx, root+"/data", schema.RemoveOptions{IgnoreAbsent: tc.ignoreAbsent})
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
			} else {
				require.NoError(t, err)
			}

			_, err = s.Open(ctx, root+"/data", schema.OpenOptions{Read: true})
			require.ErrorIs(t, err, fs.ErrNotExist)
		})
	}
}

// TestResource_Error_Closed tests operations on a closed resource.
func TestResource_Error_Closed(t *testing.T) {
	t.Parallel()

	s, root := newMountedStore(t, 4)
	ctx := t.Context()

	res, err := s.Open(ctx, root+"/data", rw)
	require.NoError(t, err)

	require.NoError(t, res.Close(ctx))
	require.ErrorIs(t, res.Close(ctx), fs.ErrClosed)

	_, err = res.WriteAt(ctx, []byte("x"), 0)
	require.ErrorIs(t, err, fs.ErrClosed)
}
