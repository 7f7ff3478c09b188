// Package action implements the action drivers: the six consumer verbs
// that sit at the far end of resultsQ. Each driver hands the mapper its
// query template and parser, then consumes the result stream; the
// mutating drivers additionally re-feed workerQ with delete/update
// tasks per row.
package action

import (
	"time"

	"github.com/fxlv/trireme/internal/pipeline"
)

// drainGrace is how long a driver waits after setting kill, to give
// in-flight mutation tasks already pushed onto workerQ a chance to
// execute before the pipeline tears down.
const drainGrace = 500 * time.Millisecond

// drainResults enqueues task as the pipeline's single mapper assignment
// and invokes onResult for every non-sentinel value arriving on
// resultsQ, in arrival order. When the sentinel arrives it sets kill and
// returns. It also returns when kill trips first: an aborted run tears
// the producers down without a sentinel ever reaching resultsQ, and the
// consumer must not block forever waiting for one.
func drainResults(q *pipeline.Queues, task pipeline.MapperTask, onResult func(pipeline.Result)) {
	q.MapperQ <- task
	for {
		select {
		case item := <-q.ResultsQ:
			if item.EndOfStream {
				q.Kill.Set()
				return
			}
			onResult(item.Value)
			q.Counters.ResultsConsumed.Add(1)
		case <-q.Kill.Done():
			return
		}
	}
}
