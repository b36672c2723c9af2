package ui

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/desertwitch/randacc/internal/queue"
)

// Transfer counts the bytes of a running transfer. It reports its state as
// [queue.Progress] with the bytes as items.
type Transfer struct {
	mu         sync.Mutex
	startTime  time.Time
	finishTime time.Time

	total atomic.Int64
	done  atomic.Int64
}

// NewTransfer returns a pointer to a new [Transfer].
func NewTransfer() *Transfer {
	return &Transfer{}
}

// AddTotal adds n bytes to the expected total.
func (tr *Transfer) AddTotal(n int64) {
	tr.total.Add(n)
}

// AddDone records n bytes as transferred.
func (tr *Transfer) AddDone(n int64) {
	tr.mu.Lock()
	if tr.startTime.IsZero() {
		tr.startTime = time.Now()
	}
	done := tr.done.Add(n)
	if done >= tr.total.Load() {
		tr.finishTime = time.Now()
	}
	tr.mu.Unlock()
}

// Progress returns the [queue.Progress] of the [Transfer].
//
//nolint:mnd
func (tr *Transfer) Progress() queue.Progress {
	tr.mu.Lock()
	startTime, finishTime := tr.startTime, tr.finishTime
	tr.mu.Unlock()

	total, done := tr.total.Load(), tr.done.Load()
	started := !startTime.IsZero()
	finished := started && done >= total

	var pct, speed float64
	var eta time.Time
	var timeLeft time.Duration

	if total > 0 {
		pct = min(float64(done)/float64(total)*100, 100)
	}

	if started {
		end := time.Now()
		if finished {
			end = finishTime
		}

		speed = float64(done) / max(end.Sub(startTime).Seconds(), 1)

		if speed > 0 && !finished {
			timeLeft = time.Duration(float64(total-done) / speed * float64(time.Second))
			eta = time.Now().Add(timeLeft)
		}
	}

	if !finished {
		finishTime = time.Time{}
	}

	return queue.Progress{
		HasStarted:        started,
		HasFinished:       finished,
		StartTime:         startTime,
		FinishTime:        finishTime,
		ProgressPct:       pct,
		TotalItems:        int(total),
		ProcessedItems:    int(done),
		SuccessItems:      int(done),
		ETA:               eta,
		TimeLeft:          timeLeft,
		TransferSpeed:     speed,
		TransferSpeedUnit: "bytes/sec",
	}
}
