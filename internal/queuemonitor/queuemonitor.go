// Package queuemonitor is the diagnostic-only queue monitor: every 5
// seconds, log the fullness/emptiness of each bounded channel.
package queuemonitor

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/fxlv/trireme/internal/pipeline"
)

const tick = 5 * time.Second

// Run logs queue occupancy every tick until kill is set.
func Run(q *pipeline.Queues) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-q.Kill.Done():
			return
		case <-ticker.C:
			slog.Info("queue occupancy",
				"splitQ", occupancy(len(q.SplitQ), cap(q.SplitQ)),
				"workerQ", occupancy(len(q.WorkerQ), cap(q.WorkerQ)),
				"resultsQ", occupancy(len(q.ResultsQ), cap(q.ResultsQ)),
				"mapperQ", occupancy(len(q.MapperQ), cap(q.MapperQ)),
			)
		}
	}
}

func occupancy(length, capacity int) string {
	if capacity == 0 {
		return "0/0"
	}
	switch {
	case length == 0:
		return "empty"
	case length == capacity:
		return "full"
	default:
		return strconv.Itoa(length) + "/" + strconv.Itoa(capacity)
	}
}
