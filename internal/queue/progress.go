package queue

import "time"

// Progress is a point-in-time snapshot of a queue's processing statistics.
type Progress struct {
	HasStarted        bool
	HasFinished       bool
	StartTime         time.Time
	FinishTime        time.Time
	ProgressPct       float64
	TotalItems        int
	ProcessedItems    int
	InProgressItems   int
	SuccessItems      int
	FailedItems       int
	ETA               time.Time
	TimeLeft          time.Duration
	TransferSpeed     float64
	TransferSpeedUnit string
}

type progressInput struct {
	hasStarted  bool
	hasFinished bool
	startTime   time.Time
	finishTime  time.Time
	total       int
	success     int
	failed      int
	inProgress  int
}

func calculateProgress(in progressInput) Progress {
	processedItems := min(in.success+in.failed, in.total)

	var progressPct float64
	if in.total > 0 {
		progressPct = float64(processedItems) / float64(in.total) * 100 //nolint:mnd
		progressPct = max(float64(0), min(progressPct, float64(100)))   //nolint:mnd
	}

	var eta time.Time
	var timeLeft time.Duration

	var transferSpeed float64
	transferSpeedUnit := "ops/sec"

	if in.hasStarted && processedItems > 0 {
		end := time.Now()
		if in.hasFinished {
			end = in.finishTime
		}

		elapsed := end.Sub(in.startTime)
		itemsPerSec := float64(processedItems) / max(elapsed.Seconds(), 1)
		transferSpeed = itemsPerSec

		if itemsPerSec > 0 && processedItems < in.total {
			remainingItems := in.total - processedItems
			remainingSeconds := float64(remainingItems) / itemsPerSec
			timeLeft = time.Duration(remainingSeconds * float64(time.Second))
			eta = time.Now().Add(timeLeft)
		}
	}

	return Progress{
		HasStarted:        in.hasStarted,
		HasFinished:       in.hasFinished,
		StartTime:         in.startTime,
		FinishTime:        in.finishTime,
		ProgressPct:       progressPct,
		TotalItems:        in.total,
		ProcessedItems:    processedItems,
		InProgressItems:   in.inProgress,
		SuccessItems:      in.success,
		FailedItems:       in.failed,
		ETA:               eta,
		TimeLeft:          timeLeft,
		TransferSpeed:     transferSpeed,
		TransferSpeedUnit: transferSpeedUnit,
	}
}

// MergeProgress sums up the given [Progress] snapshots into one.
func MergeProgress(progresses ...Progress) Progress {
	var in progressInput

	for _, p := range progresses {
		if !p.HasStarted {
			in.total += p.TotalItems

			continue
		}

		if !in.hasStarted || p.StartTime.Before(in.startTime) {
			in.startTime = p.StartTime
		}
		in.hasStarted = true

		if p.FinishTime.After(in.finishTime) {
			in.finishTime = p.FinishTime
		}

		in.total += p.TotalItems
		in.success += p.SuccessItems
		in.failed += p.FailedItems
		in.inProgress += p.InProgressItems
	}

	in.hasFinished = in.hasStarted && in.success+in.failed >= in.total

	return calculateProgress(in)
}
