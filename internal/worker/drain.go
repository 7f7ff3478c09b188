package worker

import (
	"sync"
	"sync/atomic"

	"github.com/fxlv/trireme/internal/pipeline"
)

// DrainBarrier coordinates the resultsQ end-of-stream across a worker
// fleet. The workerQ sentinel is consumed by a single worker, and it can
// arrive while a sibling is still streaming rows from its last select
// task; forwarding it immediately would leave data trailing the sentinel
// on resultsQ. The barrier forwards one resultsQ sentinel only after the
// workerQ sentinel has been observed (at which point the mapper's task
// count is final) and every select task the mapper handed out has been
// drained. A fleet shares one barrier, created by NewPool.
type DrainBarrier struct {
	selectsDone  atomic.Int64
	sentinelSeen atomic.Bool
	forward      sync.Once
}

// selectDone records one select task fully drained. A select dropped by
// a failing worker counts too: its rows are gone either way, and the
// barrier must not wait on a task nobody will finish.
func (b *DrainBarrier) selectDone(q *pipeline.Queues) {
	b.selectsDone.Add(1)
	b.maybeForward(q)
}

// endOfSelects records that the workerQ sentinel has been observed: the
// mapper has stopped producing, so its task count is final.
func (b *DrainBarrier) endOfSelects(q *pipeline.Queues) {
	b.sentinelSeen.Store(true)
	b.maybeForward(q)
}

func (b *DrainBarrier) maybeForward(q *pipeline.Queues) {
	if !b.sentinelSeen.Load() || b.selectsDone.Load() < q.Counters.Mapper.Load() {
		return
	}
	b.forward.Do(func() {
		pipeline.TrySend(q.ResultsQ, pipeline.Sentinel[pipeline.Result](), q.Kill)
	})
}
