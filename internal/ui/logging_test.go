package ui

import (
	"strconv"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProgram is a fake implementation of teaProgramProvider. It collects all
// messages sent via its Send method.
type fakeProgram struct {
	msgs chan tea.Msg
}

func newFakeProgram() *fakeProgram {
	return &fakeProgram{
		msgs: make(chan tea.Msg, 1000),
	}
}

func (fp *fakeProgram) Send(msg tea.Msg) {
	fp.msgs <- msg
}

func receiveLines(t *testing.T, fp *fakeProgram, want int) []string {
	t.Helper()

	var lines []string
	for len(lines) < want {
		select {
		case msg := <-fp.msgs:
			batch, ok := msg.(LogMsg)
			require.True(t, ok, "unexpected message type %T", msg)
			lines = append(lines, batch...)
		case <-time.After(300 * time.Millisecond):
			t.Fatalf("timeout waiting for log lines: got %d of %d", len(lines), want)
		}
	}

	return lines
}

// TestTeaLogWriter_Write_Table tests that written records are forwarded as
// separate non-empty lines.
func TestTeaLogWriter_Write_Table(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name  string
		input string
		want  []string
	}{
		{"Success_ShortMessage", "log", []string{"log"}},
		{"Success_TrailingNewline", "INF Processed: op=write url=/srv/data offset=0 size=4\n", []string{"INF Processed: op=write url=/srv/data offset=0 size=4"}},
		{"Success_MultipleLines", "first\n\nsecond\n", []string{"first", "second"}},
		{"Success_UnicodeMessage", "ein Fehler ist aufgetreten: ä ö ü", []string{"ein Fehler ist aufgetreten: ä ö ü"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			fp := newFakeProgram()
			writer := NewTeaLogWriter(fp)
			defer writer.Stop()

			n, err := writer.Write([]byte(tc.input))
			require.NoError(t, err)
			require.Equal(t, len(tc.input), n)

			assert.Equal(t, tc.want, receiveLines(t, fp, len(tc.want)))
		})
	}
}

// TestTeaLogWriter_Write_Empty tests that blank writes send nothing.
func TestTeaLogWriter_Write_Empty(t *testing.T) {
	t.Parallel()

	fp := newFakeProgram()
	writer := NewTeaLogWriter(fp)
	defer writer.Stop()

	n, err := writer.Write([]byte("\n \n"))
	require.NoError(t, err)
	require.Equal(t, 3, n)

	select {
	case got := <-fp.msgs:
		t.Fatalf("expected no message, got %v", got)
	case <-time.After(100 * time.Millisecond):
	}
}

// TestTeaLogWriter_Write_Burst tests that a burst of lines arrives complete,
// in order, and in batches no larger than the batch limit.
func TestTeaLogWriter_Write_Burst(t *testing.T) {
	t.Parallel()

	fp := newFakeProgram()
	writer := NewTeaLogWriter(fp)
	defer writer.Stop()

	want := make([]string, 0, 300)
	for i := range 300 {
		line := "request " + strconv.Itoa(i)
		want = append(want, line)
		_, _ = writer.Write([]byte(line + "\n"))
	}

	var got []string
	for len(got) < len(want) {
		select {
		case msg := <-fp.msgs:
			batch, ok := msg.(LogMsg)
			require.True(t, ok)
			require.NotEmpty(t, batch)
			require.LessOrEqual(t, len(batch), maxLogBatch)
			got = append(got, batch...)
		case <-time.After(time.Second):
			t.Fatalf("timeout waiting for burst: got %d of %d", len(got), len(want))
		}
	}

	assert.Equal(t, want, got)
}

// TestTeaLogWriter_Stop tests that writes after a stop are discarded without
// blocking.
func TestTeaLogWriter_Stop(t *testing.T) {
	t.Parallel()

	fp := newFakeProgram()
	writer := NewTeaLogWriter(fp)

	_, _ = writer.Write([]byte("before"))
	assert.Equal(t, []string{"before"}, receiveLines(t, fp, 1))

	writer.Stop()

	for range 2000 {
		n, err := writer.Write([]byte("after"))
		require.NoError(t, err)
		require.Equal(t, len("after"), n)
	}

	select {
	case got := <-fp.msgs:
		t.Fatalf("expected no message after stop, got %v", got)
	case <-time.After(100 * time.Millisecond):
	}
}
