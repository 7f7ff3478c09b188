package action

import (
	"bytes"
	"testing"
	"time"

	"github.com/fxlv/trireme/internal/pipeline"
	"github.com/fxlv/trireme/pkg/tokenring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountRowsSumsAcrossSplitsAndSetsKill(t *testing.T) {
	q := pipeline.NewQueues(pipeline.QueueCapacities{})
	settings := &pipeline.Settings{Keyspace: "ks", Table: "tb", Key: "id"}

	go func() {
		<-q.MapperQ
		q.ResultsQ <- pipeline.Data(pipeline.Result{Split: tokenring.Range{Lo: 0, Hi: 10}, Value: int64(3)})
		q.ResultsQ <- pipeline.Data(pipeline.Result{Split: tokenring.Range{Lo: 10, Hi: 20}, Value: int64(4)})
		q.ResultsQ <- pipeline.Sentinel[pipeline.Result]()
	}()

	total := CountRows(q, settings)
	assert.Equal(t, int64(7), total)
	assert.True(t, q.Kill.IsSet())
}

func TestCountSplitsPreservesPerSplitCounts(t *testing.T) {
	q := pipeline.NewQueues(pipeline.QueueCapacities{})
	settings := &pipeline.Settings{Keyspace: "ks", Table: "tb", Key: "id"}

	go func() {
		<-q.MapperQ
		q.ResultsQ <- pipeline.Data(pipeline.Result{Split: tokenring.Range{Lo: 0, Hi: 10}, Value: int64(3)})
		q.ResultsQ <- pipeline.Data(pipeline.Result{Split: tokenring.Range{Lo: 10, Hi: 20}, Value: int64(9)})
		q.ResultsQ <- pipeline.Sentinel[pipeline.Result]()
	}()

	counts := CountSplits(q, settings)
	require.Len(t, counts, 2)
	assert.Equal(t, int64(9), counts[1].Count)
	assert.Equal(t, tokenring.Range{Lo: 10, Hi: 20}, counts[1].Range)
}

func TestPrintRowsPrintsEachResult(t *testing.T) {
	q := pipeline.NewQueues(pipeline.QueueCapacities{})
	settings := &pipeline.Settings{Keyspace: "ks", Table: "tb", Key: "id"}

	go func() {
		<-q.MapperQ
		q.ResultsQ <- pipeline.Data(pipeline.Result{Value: pipeline.Row{"id": "k1"}})
		q.ResultsQ <- pipeline.Sentinel[pipeline.Result]()
	}()

	var out bytes.Buffer
	PrintRows(q, settings, &out)
	assert.Contains(t, out.String(), "k1")
}

func TestFindNullsReportsOnlyMissingColumn(t *testing.T) {
	q := pipeline.NewQueues(pipeline.QueueCapacities{})
	settings := &pipeline.Settings{Keyspace: "ks", Table: "tb", Key: "id"}

	go func() {
		<-q.MapperQ
		q.ResultsQ <- pipeline.Data(pipeline.Result{Value: pipeline.Row{"id": "k1", "comment": "hi"}})
		q.ResultsQ <- pipeline.Data(pipeline.Result{Value: pipeline.Row{"id": "k2"}})
		q.ResultsQ <- pipeline.Sentinel[pipeline.Result]()
	}()

	var out bytes.Buffer
	FindNulls(q, settings, "comment", &out)
	assert.Contains(t, out.String(), "k2")
	assert.NotContains(t, out.String(), "k1")
}

func TestDeleteRowsSchedulesOneDeleteTaskPerRow(t *testing.T) {
	q := pipeline.NewQueues(pipeline.QueueCapacities{})
	settings := &pipeline.Settings{Keyspace: "ks", Table: "tb", Key: "id"}

	go func() {
		<-q.MapperQ
		q.ResultsQ <- pipeline.Data(pipeline.Result{
			Split: tokenring.Range{Lo: 0, Hi: 10},
			Value: pipeline.Row{"id": "k1"},
		})
		q.ResultsQ <- pipeline.Sentinel[pipeline.Result]()
	}()

	start := time.Now()
	DeleteRows(q, settings)
	assert.GreaterOrEqual(t, time.Since(start), drainGrace)
	assert.Equal(t, int64(1), q.Counters.DeleteScheduled.Load())

	item := <-q.WorkerQ
	require.False(t, item.EndOfStream)
	assert.Equal(t, pipeline.TaskDelete, item.Value.Kind)
	assert.Contains(t, item.Value.Query, "delete from ks.tb")
	assert.Contains(t, item.Value.Query, "token(id) >= 0 and token(id) < 10")
	assert.Contains(t, item.Value.Query, "id = 'k1'")
}

func TestDeleteQueryIncludesExtraKey(t *testing.T) {
	settings := &pipeline.Settings{Keyspace: "ks", Table: "tb", Key: "id", ExtraKey: "shard"}
	row := pipeline.Row{"id": "k1", "shard": "s1"}
	q := deleteQuery(settings, tokenring.Range{Lo: 0, Hi: 10}, row)
	assert.Contains(t, q, "token(id, shard)")
	assert.Contains(t, q, "shard = 's1'")
}

func TestUpdateRowsSchedulesUpdateWithQuotedValue(t *testing.T) {
	q := pipeline.NewQueues(pipeline.QueueCapacities{})
	settings := &pipeline.Settings{Keyspace: "ks", Table: "tb", Key: "id"}

	go func() {
		<-q.MapperQ
		q.ResultsQ <- pipeline.Data(pipeline.Result{Value: pipeline.Row{"id": "k1"}})
		q.ResultsQ <- pipeline.Sentinel[pipeline.Result]()
	}()

	UpdateRows(q, settings, "status", "active")

	item := <-q.WorkerQ
	assert.Equal(t, pipeline.TaskUpdate, item.Value.Kind)
	assert.Equal(t, "update ks.tb set status = 'active' where id = 'k1'", item.Value.Query)
}

func TestUpdateQueryPassesBooleanLiteralUnquoted(t *testing.T) {
	settings := &pipeline.Settings{Keyspace: "ks", Table: "tb", Key: "id"}
	query := updateQuery(settings, "active", quoteUpdateValue("TRUE"), pipeline.Row{"id": "k1"})
	assert.Equal(t, "update ks.tb set active = true where id = 'k1'", query)
}

func TestFindWidePartitionsNarrowsUntilSingleSplit(t *testing.T) {
	calls := 0
	run := func(minToken, maxToken int64, splitExponent int) ([]SplitCount, error) {
		calls++
		switch calls {
		case 1:
			return []SplitCount{
				{Range: tokenring.Range{Lo: 0, Hi: 50}, Count: 10},
				{Range: tokenring.Range{Lo: 50, Hi: 100}, Count: 90},
			}, nil
		case 2:
			// Already narrowed to a single split: no further narrowing possible.
			return []SplitCount{{Range: tokenring.Range{Lo: 50, Hi: 100}, Count: 90}}, nil
		default:
			t.Fatalf("unexpected extra round %d", calls)
			return nil, nil
		}
	}

	steps, err := FindWidePartitions(run, 0, 100, 2, 0)
	require.NoError(t, err)
	require.Len(t, steps, 2)
	assert.Equal(t, tokenring.Range{Lo: 50, Hi: 100}, steps[0].Hottest)
	assert.Equal(t, tokenring.Range{Lo: 50, Hi: 100}, steps[1].Searched)
}

func TestFindWidePartitionsStopsOnRunError(t *testing.T) {
	run := func(minToken, maxToken int64, splitExponent int) ([]SplitCount, error) {
		return nil, assert.AnError
	}
	steps, err := FindWidePartitions(run, 0, 100, 2, 0)
	assert.Error(t, err)
	assert.Empty(t, steps)
}

func TestQuoteValueNormalisesTimestampToUTC(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	ts := time.Date(2024, 1, 1, 12, 0, 0, 0, loc)
	assert.Equal(t, "'2024-01-01T10:00:00+00:00'", quoteValue(ts))
}
