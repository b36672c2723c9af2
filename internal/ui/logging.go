package ui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

const (
	logBufferSize = 1000
	maxLogBatch   = 64
)

// LogMsg is a batch of log lines, oldest first, as a [tea.Msg] for the logs
// viewport. Lines carry no trailing newline.
type LogMsg []string

type teaProgramProvider interface {
	Send(msg tea.Msg)
}

// TeaLogWriter is an [io.Writer] for a [slog.Handler] that forwards each
// written log line to a [tea.Program]. A burst of request logs, such as the
// per-request debug lines of a busy handle, reaches the program as a few
// batched [LogMsg] instead of one message per line.
type TeaLogWriter struct {
	program  teaProgramProvider
	doneChan chan struct{}
	lineChan chan string
}

// NewTeaLogWriter returns a pointer to a new [TeaLogWriter] and starts its
// forwarding goroutine, which is ended with [TeaLogWriter.Stop].
func NewTeaLogWriter(program teaProgramProvider) *TeaLogWriter {
	wr := &TeaLogWriter{
		program:  program,
		doneChan: make(chan struct{}),
		lineChan: make(chan string, logBufferSize),
	}

	go wr.processLogs()

	return wr
}

// Stop ends the forwarding. In-flight or late lines are discarded.
func (wr *TeaLogWriter) Stop() {
	close(wr.doneChan)
}

func (wr *TeaLogWriter) processLogs() {
	for {
		select {
		case <-wr.doneChan:
			return

		case line := <-wr.lineChan:
			batch := LogMsg{line}

		collect:
			for len(batch) < maxLogBatch {
				select {
				case line := <-wr.lineChan:
					batch = append(batch, line)
				default:
					break collect
				}
			}

			select {
			case <-wr.doneChan:
				return
			default:
				wr.program.Send(batch)
			}
		}
	}
}

// Write splits p into lines and queues every non-empty one. It blocks only
// while the buffer is full and the writer has not been stopped.
func (wr *TeaLogWriter) Write(p []byte) (int, error) {
	for line := range strings.SplitSeq(string(p), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}

		select {
		case <-wr.doneChan:
			return len(p), nil
		case wr.lineChan <- line:
		}
	}

	return len(p), nil
}
