// Package stats implements the stats monitor: a periodic sampling of the
// pipeline's event counters into throughput, done%, and ETA figures,
// printed on an adaptive cadence. If configured, it also rewrites a
// progress snapshot (internal/progress) on every tick.
package stats

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/fxlv/trireme/internal/pipeline"
	"github.com/fxlv/trireme/internal/progress"
	"github.com/fxlv/trireme/pkg/tokenring"
	"github.com/schollz/progressbar/v3"
)

// Options configures the optional ambient outputs of the stats monitor.
// All fields are optional; a nil value disables that output.
type Options struct {
	Out            io.Writer
	ProgressWriter *progress.Writer

	// Bar renders a human visual alongside the percent/ETA text line,
	// in addition to (not instead of) it. Nil disables the bar.
	Bar *progressbar.ProgressBar
}

// snapshot is one tick's worth of absolute counter values, for computing
// deltas against the previous tick.
type snapshot struct {
	at              time.Time
	splits          int64
	mapper          int64
	results         int64
	resultsConsumed int64
	deleted         int64
	deleteScheduled int64
}

func sampleCounters(c *pipeline.Counters) snapshot {
	return snapshot{
		at:              time.Now(),
		splits:          c.Splits.Load(),
		mapper:          c.Mapper.Load(),
		results:         c.Results.Load(),
		resultsConsumed: c.ResultsConsumed.Load(),
		deleted:         c.Deleted.Load(),
		deleteScheduled: c.DeleteScheduled.Load(),
	}
}

// RunMonitor samples the pipeline's counters once per tick until kill is
// set, printing throughput/ETA and updating the optional progress bar and
// progress snapshot. It does not touch the Prometheus collector.
// Adaptive sleep: 10s when ETA > 2min, 5s when > 1min, else 2s.
func RunMonitor(q *pipeline.Queues, settings *pipeline.Settings, opts Options) {
	predicted := tokenring.PredictedCount(settings.MinToken, settings.MaxToken, settings.Split)
	prev := sampleCounters(&q.Counters)
	sleep := 2 * time.Second

	for {
		select {
		case <-q.Kill.Done():
			return
		case <-time.After(sleep):
		}

		cur := sampleCounters(&q.Counters)
		elapsed := cur.at.Sub(prev.at).Seconds()
		if elapsed <= 0 {
			elapsed = 1
		}

		resultRate, donePercent, secondsRemaining := computeTick(prev, cur, elapsed, predicted)

		if resultRate == 0 {
			// Skip the tick's ETA/print rather than divide by zero, but
			// still record the (zero) progress.
			if opts.ProgressWriter != nil {
				_ = opts.ProgressWriter.Write(buildSnapshot(cur, predicted, 0, 0, 0))
			}
			prev = cur
			continue
		}

		if opts.Bar != nil {
			_ = opts.Bar.Set64(cur.resultsConsumed)
		}

		if opts.Out != nil {
			fmt.Fprintf(opts.Out,
				"splits=%d mapper=%d results=%d/%d produced/consumed done=%.1f%% rate=%.1f/s eta=%s",
				cur.splits, cur.mapper, cur.results, cur.resultsConsumed,
				donePercent, resultRate, HumanTime(secondsRemaining),
			)
			if cur.deleteScheduled > 0 {
				fmt.Fprintf(opts.Out, " mutations=%d/%d scheduled/applied", cur.deleteScheduled, cur.deleted)
			}
			fmt.Fprintln(opts.Out)
		}

		if opts.ProgressWriter != nil {
			if err := opts.ProgressWriter.Write(buildSnapshot(cur, predicted, donePercent, secondsRemaining, resultRate)); err != nil {
				slog.Warn("stats: failed to write progress snapshot", "error", err)
			}
		}

		switch {
		case secondsRemaining > 120:
			sleep = 10 * time.Second
		case secondsRemaining > 60:
			sleep = 5 * time.Second
		default:
			sleep = 2 * time.Second
		}
		prev = cur
	}
}

// computeTick computes the resultRate, done%, and ETA for one tick:
// resultRate = ΔresultCount/Δt; done% = resultCount /
// (predictedSplits/100); secondsRemaining = (predictedSplits -
// resultCount) / resultRate. resultCount here is the *produced* count
// (Counters.Results, incremented per row by workers), not the consumed
// count — the latter only feeds the production-vs-consumption print
// line. The caller skips printing when resultRate is zero rather than
// dividing by it.
func computeTick(prev, cur snapshot, elapsedSeconds float64, predicted int64) (resultRate, donePercent, secondsRemaining float64) {
	resultRate = float64(cur.results-prev.results) / elapsedSeconds
	if resultRate == 0 {
		return 0, 0, 0
	}
	if predicted > 0 {
		donePercent = float64(cur.results) / (float64(predicted) / 100)
	}
	secondsRemaining = (float64(predicted) - float64(cur.results)) / resultRate
	if secondsRemaining < 0 {
		secondsRemaining = 0
	}
	return resultRate, donePercent, secondsRemaining
}

func buildSnapshot(cur snapshot, predicted int64, donePercent, secondsRemaining, resultRate float64) progress.Snapshot {
	return progress.Snapshot{
		SplitsEmitted:   cur.splits,
		MapperProcessed: cur.mapper,
		ResultsProduced: cur.results,
		ResultsConsumed: cur.resultsConsumed,
		Deleted:         cur.deleted,
		DeleteScheduled: cur.deleteScheduled,
		PredictedSplits: predicted,
		DonePercent:     donePercent,
		ResultRate:      resultRate,
		SecondsRemain:   secondsRemaining,
		UpdatedAtUnix:   cur.at.Unix(),
	}
}
