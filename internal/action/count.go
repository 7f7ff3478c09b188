package action

import (
	"fmt"

	"github.com/fxlv/trireme/internal/pipeline"
	"github.com/fxlv/trireme/pkg/tokenring"
)

// SplitCount is one split's parsed count(*) result, keyed by the split
// it came from so callers that need per-range granularity (find-wide-
// partitions) don't have to re-derive it.
type SplitCount struct {
	Range tokenring.Range
	Count int64
}

// CountSplits runs a count(*) pass across the whole pipeline and returns
// every split's individual count, without summing them.
func CountSplits(q *pipeline.Queues, settings *pipeline.Settings) []SplitCount {
	task := pipeline.MapperTask{
		QueryTemplate:  fmt.Sprintf("select count(*) from %s.%s", settings.Keyspace, settings.Table),
		KeyColumn:      settings.Key,
		ExtraKeyColumn: settings.ExtraKey,
		FilterString:   settings.FilterString,
		Parser:         pipeline.ParserCount,
	}

	var counts []SplitCount
	drainResults(q, task, func(r pipeline.Result) {
		counts = append(counts, SplitCount{Range: r.Split, Count: asInt64(r.Value)})
	})
	return counts
}

// CountRows runs the count-rows action: sum of result.value across every
// split.
func CountRows(q *pipeline.Queues, settings *pipeline.Settings) int64 {
	var total int64
	for _, c := range CountSplits(q, settings) {
		total += c.Count
	}
	return total
}

func asInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case int32:
		return int64(n)
	default:
		return 0
	}
}
