package pipeline

import (
	"sync"
	"sync/atomic"

	"github.com/fxlv/trireme/pkg/tokenring"
)

// KillSwitch is the process-wide one-shot shutdown signal. Once set it
// stays set; every looping stage observes it between iterations via Done
// or IsSet. It is not a channel message, so it needs no sentinel of its
// own; the in-band Item sentinels still drain each channel in order.
type KillSwitch struct {
	ch   chan struct{}
	once sync.Once
}

// NewKillSwitch returns a KillSwitch in its unset state.
func NewKillSwitch() *KillSwitch {
	return &KillSwitch{ch: make(chan struct{})}
}

// Set trips the switch. Safe to call more than once or concurrently.
func (k *KillSwitch) Set() {
	k.once.Do(func() { close(k.ch) })
}

// IsSet reports whether the switch has been tripped.
func (k *KillSwitch) IsSet() bool {
	select {
	case <-k.ch:
		return true
	default:
		return false
	}
}

// Done returns a channel that closes when the switch is tripped, for use
// in select statements alongside channel sends/receives.
func (k *KillSwitch) Done() <-chan struct{} {
	return k.ch
}

// Counters are the pipeline's event tallies, one atomic counter per
// event kind rather than a literal channel-of-tokens per event. The
// stats monitor samples deltas between ticks instead of draining a
// queue.
type Counters struct {
	Splits          atomic.Int64
	Mapper          atomic.Int64
	Results         atomic.Int64
	ResultsConsumed atomic.Int64
	Deleted         atomic.Int64
	DeleteScheduled atomic.Int64
}

// Queues is the fixed set of bounded channels connecting the pipeline
// stages, plus the kill signal and the stats counters that ride alongside
// them. Capacities are supplied by NewQueues and tune memory vs throughput;
// splitQ fullness is the primary backpressure valve.
type Queues struct {
	SplitQ   chan Item[tokenring.Range]
	WorkerQ  chan Item[WorkerTask]
	ResultsQ chan Item[Result]

	// MapperQ carries exactly one MapperTask per run (capacity 1); the
	// mapper's single-assignment design means it is never re-fed.
	MapperQ chan MapperTask

	Counters Counters
	Kill     *KillSwitch
}

// QueueCapacities lets callers size each bounded channel independently.
// Zero values fall back to DefaultQueueCapacities.
type QueueCapacities struct {
	Split   int
	Worker  int
	Results int
}

// DefaultQueueCapacities are modest buffer sizes: enough to smooth
// bursts without letting a stalled consumer grow memory unboundedly.
var DefaultQueueCapacities = QueueCapacities{Split: 64, Worker: 256, Results: 256}

// NewQueues builds a Queues with the given capacities (zero fields fall
// back to the defaults) and a fresh kill switch.
func NewQueues(cap QueueCapacities) *Queues {
	if cap.Split <= 0 {
		cap.Split = DefaultQueueCapacities.Split
	}
	if cap.Worker <= 0 {
		cap.Worker = DefaultQueueCapacities.Worker
	}
	if cap.Results <= 0 {
		cap.Results = DefaultQueueCapacities.Results
	}
	return &Queues{
		SplitQ:   make(chan Item[tokenring.Range], cap.Split),
		WorkerQ:  make(chan Item[WorkerTask], cap.Worker),
		ResultsQ: make(chan Item[Result], cap.Results),
		MapperQ:  make(chan MapperTask, 1),
		Kill:     NewKillSwitch(),
	}
}

// TrySend sends item on ch, or gives up and returns false if the kill
// switch trips first. Every stage uses this instead of a bare blocking
// send so a kill mid-send unblocks a producer stuck against a full,
// stalled-consumer channel.
func TrySend[T any](ch chan Item[T], item Item[T], kill *KillSwitch) bool {
	select {
	case ch <- item:
		return true
	case <-kill.Done():
		return false
	}
}

// TryReceive performs a non-blocking receive: ok is false both when the
// channel is empty (the caller should back off and retry) and when it has
// been closed (which the pipeline's stages never do directly; channels are
// drained to their sentinel, not closed).
func TryReceive[T any](ch chan Item[T]) (Item[T], bool) {
	select {
	case item := <-ch:
		return item, true
	default:
		return Item[T]{}, false
	}
}
