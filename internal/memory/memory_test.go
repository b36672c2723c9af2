package memory

import (
	"io/fs"
	"math"
	"testing"

	"github.com/desertwitch/randacc/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var rw = schema.OpenOptions{Read: true, Write: true, Create: true}

// TestOpen_Error_NotExist tests opening an absent resource without create.
func TestOpen_Error_NotExist(t *testing.T) {
	t.Parallel()

	b := NewBackend()

	_, err := b.Open(t.Context(), "mem/a", schema.OpenOptions{Read: true})
	require.ErrorIs(t, err, fs.ErrNotExist)
	assert.False(t, b.Exists("mem/a"))
}

// TestWriteRead_Success tests writing and reading back, including sparse
// growth and reads crossing the end of the resource.
func TestWriteRead_Success(t *testing.T) {
	t.Parallel()

	b := NewBackend()
	ctx := t.Context()

	res, err := b.Open(ctx, "mem/a", rw)
	require.NoError(t, err)

	n, err := res.WriteAt(ctx, []byte("world"), 5)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	n, err = res.WriteAt(ctx, []byte("hello"), 0)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	data, err := res.ReadAt(ctx, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, []byte("helloworld"), data)

	data, err = res.ReadAt(ctx, 8, 10)
	require.NoError(t, err)
	assert.Equal(t, []byte("ld"), data)

	data, err = res.ReadAt(ctx, 20, 4)
	require.NoError(t, err)
	assert.Empty(t, data)

	data, err = res.ReadAt(ctx, 6, math.MaxInt)
	require.NoError(t, err)
	assert.Equal(t, []byte("orld"), data, "oversized reads stop at the end")

	st, err := res.Stat(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(10), st.Size)
}

// TestOpen_Success_Truncate tests that truncation empties the resource.
func TestOpen_Success_Truncate(t *testing.T) {
	t.Parallel()

	b := NewBackend()
	ctx := t.Context()

	res, err := b.Open(ctx, "mem/a", rw)
	require.NoError(t, err)

	_, err = res.WriteAt(ctx, []byte("0123456789"), 0)
	require.NoError(t, err)

	trunc, err := b.Open(ctx, "mem/a", schema.OpenOptions{Read: true, Write: true, Truncate: true})
	require.NoError(t, err)

	st, err := trunc.Stat(ctx)
	require.NoError(t, err)
	assert.Zero(t, st.Size)
}

// TestWriteAt_Error_ReadOnly tests writing to a resource opened read-only.
func TestWriteAt_Error_ReadOnly(t *testing.T) {
	t.Parallel()

	b := NewBackend()
	ctx := t.Context()

	_, err := b.Open(ctx, "mem/a", rw)
	require.NoError(t, err)

	res, err := b.Open(ctx, "mem/a", schema.OpenOptions{Read: true})
	require.NoError(t, err)

	_, err = res.WriteAt(ctx, []byte("x"), 0)
	require.ErrorIs(t, err, ErrNotWritable)
}

// TestClose_Error_Closed tests operations on a closed resource.
func TestClose_Error_Closed(t *testing.T) {
	t.Parallel()

	b := NewBackend()
	ctx := t.Context()

	res, err := b.Open(ctx, "mem/a", rw)
	require.NoError(t, err)

	require.NoError(t, res.Close(ctx))
	require.ErrorIs(t, res.Close(ctx), fs.ErrClosed)

	_, err = res.ReadAt(ctx, 0, 1)
	require.ErrorIs(t, err, fs.ErrClosed)

	_, err = res.Stat(ctx)
	require.ErrorIs(t, err, fs.ErrClosed)
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

			b := NewBackend()
			ctx := t.Context()

			if tc.create {
				_, err := b.Open(ctx, "mem/a", rw)
				require.NoError(t, err)
			}

			err := b.Remove(ctx, "mem/a", schema.RemoveOptions{IgnoreAbsent: tc.ignoreAbsent})
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
			} else {
				require.NoError(t, err)
			}

			assert.False(t, b.Exists("mem/a"))
		})
	}
}
