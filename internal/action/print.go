package action

import (
	"fmt"
	"io"

	"github.com/fxlv/trireme/internal/pipeline"
)

// PrintRows runs the print-rows action: print each parsed row projection
// until the sentinel.
func PrintRows(q *pipeline.Queues, settings *pipeline.Settings, out io.Writer) {
	task := pipeline.MapperTask{
		QueryTemplate:  fmt.Sprintf("select * from %s.%s", settings.Keyspace, settings.Table),
		KeyColumn:      settings.Key,
		ExtraKeyColumn: settings.ExtraKey,
		FilterString:   settings.FilterString,
		Parser:         pipeline.ParserRowProjection,
	}

	drainResults(q, task, func(r pipeline.Result) {
		fmt.Fprintln(out, r.Value)
	})
}
