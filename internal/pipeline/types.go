// Package pipeline implements the core producer/consumer graph described in
// the system overview: splitter -> mapper -> worker pool -> result stream,
// coordinated by typed bounded channels, a kill signal, and in-band
// end-of-stream sentinels.
package pipeline

import (
	"time"

	"github.com/fxlv/trireme/pkg/tokenring"
)

// TaskKind distinguishes the three shapes of query a worker task can carry.
type TaskKind string

const (
	TaskSelect TaskKind = "select"
	TaskDelete TaskKind = "delete"
	TaskUpdate TaskKind = "update"
)

// ParserKind selects which row parser a worker applies to select results.
type ParserKind string

const (
	// ParserNone means rows are passed through unparsed (raw column map).
	ParserNone ParserKind = ""
	// ParserCount extracts the scalar from a `select count(*)` row.
	ParserCount ParserKind = "count"
	// ParserRowProjection extracts {key: ..., extraKey: ...} from a row.
	ParserRowProjection ParserKind = "row"
)

// Item wraps a channel element with a tagged end-of-stream marker, instead
// of a second boolean flag or a reserved zero value. A sentinel item is
// guaranteed to be the last item its producer sends on that channel.
type Item[T any] struct {
	Value       T
	EndOfStream bool
}

// Data wraps a real value for transport on a channel of Item[T].
func Data[T any](v T) Item[T] { return Item[T]{Value: v} }

// Sentinel produces the end-of-stream marker for a channel of Item[T].
func Sentinel[T any]() Item[T] { return Item[T]{EndOfStream: true} }

// MapperTask is the per-action-invocation work assignment handed to the
// mapper: a query template plus the column/parser configuration needed to
// render a concrete query per split. Exactly one is produced per run.
type MapperTask struct {
	QueryTemplate  string
	KeyColumn      string
	ExtraKeyColumn string
	FilterString   string
	Parser         ParserKind
}

// WorkerTask is a concrete, ready-to-execute query tied to the split it
// originated from (so its result can be attributed back to that split).
type WorkerTask struct {
	Query  string
	Split  tokenring.Range
	Kind   TaskKind
	Parser ParserKind
}

// Result is a parsed value produced by a worker for a given split: either a
// row projection (map[string]any) or a scalar count (int64), depending on
// which parser produced it.
type Result struct {
	Split tokenring.Range
	Value any
}

// Settings is the immutable, by-reference configuration every stage reads
// once the pipeline starts. Nothing mutates it after Start.
type Settings struct {
	Keyspace string
	Table    string
	Key      string
	ExtraKey string

	Split        int
	FilterString string
	MinToken     int64
	MaxToken     int64

	Workers               int
	WorkerMaxStartupDelay time.Duration
}
