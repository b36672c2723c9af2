package filesystem

import (
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/desertwitch/randacc/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

var rw = schema.OpenOptions{Read: true, Write: true, Create: true}

func newMountedHandler(t *testing.T) (*Handler, string) {
	t.Helper()

	root := t.TempDir()

	h := NewHandler(&schema.OS{}, &schema.Unix{})
	require.NoError(t, h.Mount(t.Context(), schema.MountOptions{URL: root, Read: true, Write: true}))

	return h, root
}

// TestMount_Table tests the validation of mount roots.
func TestMount_Table(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	regular := filepath.Join(root, "regular")
	require.NoError(t, os.WriteFile(regular, []byte("x"), 0o600))

	testCases := []struct {
		name    string
		url     string
		wantErr error
	}{
		{"Success_Directory", root, nil},
		{"Error_Empty", " ", ErrEmptyRoot},
		{"Error_NotDirectory", regular, ErrRootNotDirectory},
		{"Error_NotExist", filepath.Join(root, "missing"), fs.ErrNotExist},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			h := NewHandler(&schema.OS{}, &schema.Unix{})
			err := h.Mount(t.Context(), schema.MountOptions{URL: tc.url, Read: true, Write: true})

			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				assert.Empty(t, h.root)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, root, h.root)
		})
	}
}

// TestOpen_Error_NotMounted tests opening before mounting.
func TestOpen_Error_NotMounted(t *testing.T) {
	t.Parallel()

	h := NewHandler(&schema.OS{}, &schema.Unix{})

	_, err := h.Open(t.Context(), "/tmp/x", rw)
	require.ErrorIs(t, err, ErrNotMounted)
}

// TestOpen_Error_OutsideRoot tests that paths escaping the root are refused.
func TestOpen_Error_OutsideRoot(t *testing.T) {
	t.Parallel()

	h, root := newMountedHandler(t)

	for _, url := range []string{
		root,
		root + "/../escape",
		filepath.Join(filepath.Dir(root), "sibling"),
	} {
		_, err := h.Open(t.Context(), url, rw)
		require.ErrorIs(t, err, ErrOutsideRoot, url)
	}
}

// TestOpen_Success_CreatesParents tests that missing parent directories are
// created along with the file.
func TestOpen_Success_CreatesParents(t *testing.T) {
	t.Parallel()

	h, root := newMountedHandler(t)
	ctx := t.Context()

	res, err := h.Open(ctx, filepath.Join(root, "content", "data"), rw)
	require.NoError(t, err)
	defer res.Close(ctx)

	info, err := os.Stat(filepath.Join(root, "content", "data"))
	require.NoError(t, err)
	assert.False(t, info.IsDir())
}

// TestOpen_Error_ReadOnlyAbsent tests that read-only opens do not create.
func TestOpen_Error_ReadOnlyAbsent(t *testing.T) {
	t.Parallel()

	h, root := newMountedHandler(t)

	_, err := h.Open(t.Context(), filepath.Join(root, "absent"), schema.OpenOptions{Read: true})
	require.ErrorIs(t, err, fs.ErrNotExist)
}

// TestFile_Success_WriteReadStat tests positional writes and reads.
func TestFile_Success_WriteReadStat(t *testing.T) {
	t.Parallel()

	h, root := newMountedHandler(t)
	ctx := t.Context()

	res, err := h.Open(ctx, filepath.Join(root, "data"), rw)
	require.NoError(t, err)
	defer res.Close(ctx)

	n, err := res.WriteAt(ctx, []byte("AAAA"), 0)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	n, err = res.WriteAt(ctx, []byte("BB"), 6)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, res.Sync(ctx))

	data, err := res.ReadAt(ctx, 0, 8)
	require.NoError(t, err)
	assert.Equal(t, []byte("AAAA\x00\x00BB"), data)

	data, err = res.ReadAt(ctx, 6, 10)
	require.NoError(t, err)
	assert.Equal(t, []byte("BB"), data, "reads past the end are short")

	st, err := res.Stat(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(8), st.Size)
	assert.False(t, st.ModTime.IsZero())
}

// TestOpen_Success_Truncate tests recreating a file empty.
func TestOpen_Success_Truncate(t *testing.T) {
	t.Parallel()

	h, root := newMountedHandler(t)
	ctx := t.Context()
	path := filepath.Join(root, "data")

	res, err := h.Open(ctx, path, rw)
	require.NoError(t, err)

	_, err = res.WriteAt(ctx, []byte("0123456789"), 0)
	require.NoError(t, err)
	require.NoError(t, res.Close(ctx))

	res, err = h.Open(ctx, path, schema.OpenOptions{Read: true, Write: true, Create: true, Truncate: true})
	require.NoError(t, err)
	defer res.Close(ctx)

	st, err := res.Stat(ctx)
	require.NoError(t, err)
	assert.Zero(t, st.Size)
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

			h, root := newMountedHandler(t)
			ctx := t.Context()
			path := filepath.Join(root, "data")

			if tc.create {
				require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
			}

			err := h.Remove(ctx, path, schema.RemoveOptions{IgnoreAbsent: tc.ignoreAbsent})
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
			} else {
				require.NoError(t, err)
			}

			_, err = os.Stat(path)
			require.ErrorIs(t, err, fs.ErrNotExist)
		})
	}
}

// TestFile_Success_ReadRetriesEINTR tests that interrupted preads are retried.
func TestFile_Success_ReadRetriesEINTR(t *testing.T) {
	t.Parallel()

	unixProv := &mockUnixProvider{}
	f := &File{fd: 42, path: "data", unixHandler: unixProv}

	unixProv.On("Pread", 42, mock.Anything, int64(0)).Return(0, unix.EINTR).Once()
	unixProv.On("Pread", 42, mock.Anything, int64(0)).Run(func(args mock.Arguments) {
		copy(args.Get(1).([]byte), "abcd")
	}).Return(4, nil).Once()

	data, err := f.ReadAt(t.Context(), 0, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte("abcd"), data)

	unixProv.AssertExpectations(t)
}

// TestFile_Error_Sync tests that fsync failures are surfaced.
func TestFile_Error_Sync(t *testing.T) {
	t.Parallel()

	unixProv := &mockUnixProvider{}
	f := &File{fd: 42, path: "data", unixHandler: unixProv}

	unixProv.On("Fsync", 42).Return(unix.EIO).Once()

	err := f.Sync(t.Context())
	require.ErrorIs(t, err, unix.EIO)

	unixProv.AssertExpectations(t)
}

// TestFile_Error_ZeroWrite tests that a write making no progress fails.
func TestFile_Error_ZeroWrite(t *testing.T) {
	t.Parallel()

	unixProv := &mockUnixProvider{}
	f := &File{fd: 42, path: "data", unixHandler: unixProv}

	unixProv.On("Pwrite", 42, mock.Anything, int64(10)).Return(2, nil).Once()
	unixProv.On("Pwrite", 42, mock.Anything, int64(12)).Return(0, nil).Once()

	n, err := f.WriteAt(t.Context(), []byte("abcd"), 10)
	require.ErrorIs(t, err, ErrZeroWrite)
	assert.Equal(t, 2, n)

	unixProv.AssertExpectations(t)
}

// TestFile_Success_OversizedRead tests that sizes far beyond the end of the
// file return the available bytes without reserving the requested size.
func TestFile_Success_OversizedRead(t *testing.T) {
	t.Parallel()

	h, root := newMountedHandler(t)
	ctx := t.Context()

	res, err := h.Open(ctx, filepath.Join(root, "data"), rw)
	require.NoError(t, err)
	defer res.Close(ctx)

	_, err = res.WriteAt(ctx, []byte("0123456789"), 0)
	require.NoError(t, err)

	data, err := res.ReadAt(ctx, 0, 1<<40)
	require.NoError(t, err)
	assert.Equal(t, []byte("0123456789"), data)

	data, err = res.ReadAt(ctx, 4, math.MaxInt)
	require.NoError(t, err)
	assert.Equal(t, []byte("456789"), data)
}

// TestFile_Success_ReadStartsWithChunk tests that the first pread of a large
// read is offered at most one chunk.
func TestFile_Success_ReadStartsWithChunk(t *testing.T) {
	t.Parallel()

	unixProv := &mockUnixProvider{}
	f := &File{fd: 42, path: "data", unixHandler: unixProv}

	var offered int
	unixProv.On("Pread", 42, mock.Anything, int64(0)).Run(func(args mock.Arguments) {
		offered = len(args.Get(1).([]byte))
		copy(args.Get(1).([]byte), "abc")
	}).Return(3, nil).Once()
	unixProv.On("Pread", 42, mock.Anything, int64(3)).Return(0, nil).Once()

	data, err := f.ReadAt(t.Context(), 0, 1<<40)
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), data)
	assert.Equal(t, readChunkSize, offered)

	unixProv.AssertExpectations(t)
}

// TestFile_Error_StatAfterClose tests that a closed file reports
// [os.ErrClosed] on stat.
func TestFile_Error_StatAfterClose(t *testing.T) {
	t.Parallel()

	h, root := newMountedHandler(t)
	ctx := t.Context()

	res, err := h.Open(ctx, filepath.Join(root, "data"), rw)
	require.NoError(t, err)
	require.NoError(t, res.Close(ctx))

	_, err = res.Stat(ctx)
	require.ErrorIs(t, err, os.ErrClosed)
}
