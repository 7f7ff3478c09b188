package pipeline

import (
	"testing"
	"time"

	"github.com/fxlv/trireme/pkg/tokenring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapperRendersQueryAndForwardsSentinel(t *testing.T) {
	q := NewQueues(QueueCapacities{})
	q.MapperQ <- MapperTask{
		QueryTemplate: "select count(*) from ks.tb",
		KeyColumn:     "id",
		Parser:        ParserCount,
	}

	done := make(chan struct{})
	go func() {
		RunMapper(q, q.Kill)
		close(done)
	}()

	q.SplitQ <- Data(tokenring.Range{Lo: 0, Hi: 10})
	q.SplitQ <- Sentinel[tokenring.Range]()

	item := <-q.WorkerQ
	require.False(t, item.EndOfStream)
	assert.Equal(t, TaskSelect, item.Value.Kind)
	assert.Equal(t, ParserCount, item.Value.Parser)
	assert.Equal(t, "select count(*) from ks.tb where token(id) >= 0 and token(id) < 10", item.Value.Query)

	sentinel := <-q.WorkerQ
	assert.True(t, sentinel.EndOfStream)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("mapper did not exit after forwarding sentinel")
	}
	assert.EqualValues(t, 1, q.Counters.Mapper.Load())
}

func TestMapperRendersFilterAndExtraKey(t *testing.T) {
	q := NewQueues(QueueCapacities{})
	q.MapperQ <- MapperTask{
		QueryTemplate:  "select * from ks.tb",
		KeyColumn:      "id",
		ExtraKeyColumn: "ts",
		FilterString:   "status = 'active'",
		Parser:         ParserRowProjection,
	}
	go RunMapper(q, q.Kill)

	q.SplitQ <- Data(tokenring.Range{Lo: -5, Hi: 5})
	item := <-q.WorkerQ
	assert.Equal(t,
		"select * from ks.tb where token(id, ts) >= -5 and token(id, ts) < 5 and status = 'active'",
		item.Value.Query,
	)
	q.Kill.Set()
}

func TestMapperExitsOnMissingAssignment(t *testing.T) {
	old := mapperAssignmentTimeout
	mapperAssignmentTimeout = 50 * time.Millisecond
	defer func() { mapperAssignmentTimeout = old }()

	q := NewQueues(QueueCapacities{})
	done := make(chan struct{})
	go func() {
		RunMapper(q, q.Kill)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("mapper did not exit after the assignment timeout")
	}

	// Nothing may be forwarded when the mapper never got its assignment.
	select {
	case <-q.WorkerQ:
		t.Fatal("mapper emitted a task without an assignment")
	default:
	}
}
