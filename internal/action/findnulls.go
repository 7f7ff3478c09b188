package action

import (
	"fmt"
	"io"

	"github.com/fxlv/trireme/internal/pipeline"
)

// FindNulls scans the key column and valueColumn across every split and
// reports rows where valueColumn is absent or nil, i.e. Cassandra NULL.
// Read-only, no confirmation prompt. Unlike print-rows, rows arrive
// unparsed, so valueColumn is still present to check.
func FindNulls(q *pipeline.Queues, settings *pipeline.Settings, valueColumn string, out io.Writer) {
	task := pipeline.MapperTask{
		QueryTemplate:  fmt.Sprintf("select %s, %s from %s.%s", settings.Key, valueColumn, settings.Keyspace, settings.Table),
		KeyColumn:      settings.Key,
		ExtraKeyColumn: settings.ExtraKey,
		FilterString:   settings.FilterString,
		Parser:         pipeline.ParserNone,
	}

	drainResults(q, task, func(r pipeline.Result) {
		row, ok := r.Value.(pipeline.Row)
		if !ok {
			return
		}
		if v, present := row[valueColumn]; !present || v == nil {
			fmt.Fprintln(out, row)
		}
	})
}
