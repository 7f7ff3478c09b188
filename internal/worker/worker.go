// ============================================================================
// Trireme Worker - Task Execution Unit
// ============================================================================
//
// Package: internal/worker
// File: worker.go
// Function: one long-lived database session per Worker, each running in
//   its own goroutine, pulling tasks off workerQ until the kill signal
//   trips or a query fails.
//
// How it works:
//   Each Worker loops:
//   1. Jitter startup, connect a session, `use <keyspace>`
//   2. Receive a task from workerQ (cooperative backoff when empty)
//   3. Execute the task; select tasks stream parsed rows onto resultsQ,
//      delete/update tasks increment the mutation counter
//   4. Repeat until kill is observed. On the workerQ sentinel the
//      fleet-shared DrainBarrier forwards one resultsQ sentinel once
//      every select task has been drained; the worker itself keeps
//      looping so mutation tasks scheduled by a driver still execute
//
// Error Handling:
//   - Connect failure: worker exits immediately, never enters the loop
//   - Query failure: worker logs and exits; the supervisor replaces it
//   - Parser failure: the offending row is dropped, the worker continues
//
// Resource Management:
//   - The session is closed on every exit path (defer sess.Close())
//   - Workers never share sessions; each owns exactly one for its lifetime
//
// ============================================================================
package worker

import (
	"log/slog"
	"math/rand"
	"time"

	"github.com/fxlv/trireme/internal/audit"
	"github.com/fxlv/trireme/internal/metrics"
	"github.com/fxlv/trireme/internal/pipeline"
	"github.com/fxlv/trireme/internal/session"
)

// Options carries everything a worker needs for its entire lifetime: one
// session config (host selection happens inside session.Connect), the
// shared immutable settings and queues, and the two optional ambient
// sinks (audit log, metrics collector).
type Options struct {
	SessionConfig session.Config
	Settings      *pipeline.Settings
	Queues        *pipeline.Queues
	Audit         *audit.Log
	Metrics       *metrics.Collector

	// Drain gates the resultsQ sentinel behind the fleet's select
	// drains. NewPool shares one barrier across its workers; a nil
	// Drain is defaulted to a fresh barrier.
	Drain *DrainBarrier

	// Connect opens a session for this config. Defaults to session.Connect;
	// tests override it to inject a *session.Fake or a simulated
	// ConnectFailure without a real cluster.
	Connect func(session.Config) (session.Session, error)
}

func (o Options) connect() func(session.Config) (session.Session, error) {
	if o.Connect != nil {
		return o.Connect
	}
	return session.Connect
}

// backoff is how long a worker sleeps after finding workerQ empty before
// retrying.
const backoff = 1 * time.Second

// Worker is one task-executing unit: a session plus the shared queues it
// pulls from and pushes to.
type Worker struct {
	id   int
	opts Options
}

func newWorker(id int, opts Options) *Worker {
	if opts.Drain == nil {
		opts.Drain = &DrainBarrier{}
	}
	return &Worker{id: id, opts: opts}
}

// Run executes the worker's full lifecycle: jitter, connect, loop until
// kill or a fatal session/query error, then close the session. It always
// returns (never panics); the pool observes its exit via the done channel
// it was spawned with.
func (w *Worker) Run() {
	w.jitter()

	sess, err := w.opts.connect()(w.opts.SessionConfig)
	if err != nil {
		slog.Warn("worker: connect failed, exiting", "worker", w.id, "error", err)
		return
	}
	defer sess.Close()

	q := w.opts.Queues
	for {
		if q.Kill.IsSet() {
			return
		}

		item, ok := pipeline.TryReceive(q.WorkerQ)
		if !ok {
			select {
			case <-time.After(backoff):
				continue
			case <-q.Kill.Done():
				return
			}
		}

		if item.EndOfStream {
			// A sibling may still be streaming rows from its last select
			// task; the barrier forwards the resultsQ sentinel once the
			// fleet has drained them all. Keep looping: mutation tasks
			// scheduled by a driver still arrive after this point.
			w.opts.Drain.endOfSelects(q)
			continue
		}

		if err := w.execute(sess, item.Value); err != nil {
			slog.Warn("worker: query failed, exiting", "worker", w.id, "query", item.Value.Query, "error", err)
			return
		}
	}
}

// jitter staggers session handshakes across a worker fleet. Settings
// carries the already-gated bound (zero when workers <= 10); a worker
// applies whatever bound it is given without re-deriving the gate
// itself.
func (w *Worker) jitter() {
	d := w.opts.Settings.WorkerMaxStartupDelay
	if d <= 0 {
		return
	}
	time.Sleep(time.Duration(rand.Int63n(int64(d))))
}

// execute runs one task to completion. A non-nil return means the query
// itself failed (connection reset, syntax error, timeout): the caller
// drops the task and exits the worker so the supervisor replaces it with
// a fresh session.
func (w *Worker) execute(sess session.Session, task pipeline.WorkerTask) error {
	start := time.Now()
	if task.Kind == pipeline.TaskSelect {
		// Counted on every exit path: a failed select drops its rows, and
		// the drain barrier must not wait on them.
		defer w.opts.Drain.selectDone(w.opts.Queues)
	}
	iter, err := sess.Execute(task.Query)
	if err != nil {
		return err
	}

	switch task.Kind {
	case pipeline.TaskSelect:
		if err := w.drainSelect(iter, task); err != nil {
			return err
		}
		if w.opts.Metrics != nil {
			w.opts.Metrics.RecordResult(time.Since(start).Seconds())
		}
	case pipeline.TaskDelete, pipeline.TaskUpdate:
		for {
			if _, ok := iter.Next(); !ok {
				break
			}
		}
		if err := iter.Err(); err != nil {
			return err
		}
		w.recordMutation(task)
		if w.opts.Metrics != nil {
			w.opts.Metrics.RecordMutation(time.Since(start).Seconds())
		}
	}
	return nil
}

// drainSelect iterates every row of a select task, applies the task's
// parser (if any), and pushes each parsed value onto resultsQ.
func (w *Worker) drainSelect(iter session.Iter, task pipeline.WorkerTask) error {
	q := w.opts.Queues
	for {
		row, ok := iter.Next()
		if !ok {
			break
		}

		var value any = row
		if task.Parser != pipeline.ParserNone {
			parsed, err := pipeline.ApplyParser(task.Parser, row, w.opts.Settings)
			if err != nil {
				slog.Warn("worker: parser failed, dropping row", "worker", w.id, "error", err)
				continue
			}
			value = parsed
		}

		if !pipeline.TrySend(q.ResultsQ, pipeline.Data(pipeline.Result{Split: task.Split, Value: value}), q.Kill) {
			return nil
		}
		q.Counters.Results.Add(1)
	}
	return iter.Err()
}

// recordMutation appends one audit log entry (best-effort: a failed
// write is logged, not fatal to the worker) and increments the deletion
// counter on a successfully executed delete/update task.
func (w *Worker) recordMutation(task pipeline.WorkerTask) {
	if w.opts.Audit != nil {
		action := audit.ActionDelete
		if task.Kind == pipeline.TaskUpdate {
			action = audit.ActionUpdate
		}
		if err := w.opts.Audit.Record(action, task.Query); err != nil {
			slog.Warn("worker: audit log write failed", "worker", w.id, "error", err)
		}
	}
	w.opts.Queues.Counters.Deleted.Add(1)
}
