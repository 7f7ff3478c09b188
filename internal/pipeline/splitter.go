package pipeline

import (
	"log/slog"

	"github.com/fxlv/trireme/internal/metrics"
	"github.com/fxlv/trireme/pkg/tokenring"
)

// RunSplitter emits the ordered sequence of sub-ranges covering
// [settings.MinToken, settings.MaxToken) onto q.SplitQ, one increment to
// Counters.Splits per emission, followed by exactly one sentinel. It
// blocks on a full splitQ (the primary backpressure valve) and exits
// without emitting the sentinel if the kill signal trips first, per the
// failure semantics: the supervisor tears down the rest of the pipeline
// via kill in that case. m is optional (nil disables metrics) and has
// RecordSplit called once per emission, keeping trireme_splits_total
// live alongside the Counters.Splits atomic counter.
func RunSplitter(q *Queues, settings *Settings, m *metrics.Collector) {
	stepper := tokenring.NewStepper(settings.MinToken, settings.MaxToken, settings.Split)
	for {
		rng, ok := stepper.Next()
		if !ok {
			break
		}
		if !TrySend(q.SplitQ, Data(rng), q.Kill) {
			slog.Debug("splitter: kill observed mid-send, exiting without sentinel")
			return
		}
		q.Counters.Splits.Add(1)
		if m != nil {
			m.RecordSplit()
		}
	}
	TrySend(q.SplitQ, Sentinel[tokenring.Range](), q.Kill)
}
