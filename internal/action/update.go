package action

import (
	"fmt"
	"time"

	"github.com/fxlv/trireme/internal/pipeline"
)

// UpdateRows runs the update-rows action: reads every row with the
// print-rows query shape, then for each parsed row synthesises an
// `update ... set updateKey = updateValue where key = v [and extraKey =
// v2]` query and schedules it onto workerQ as an update task. The new
// value comes straight from the CLI flag; no prior read of updateKey's
// current value is needed.
func UpdateRows(q *pipeline.Queues, settings *pipeline.Settings, updateKey, updateValue string) {
	task := pipeline.MapperTask{
		QueryTemplate:  fmt.Sprintf("select * from %s.%s", settings.Keyspace, settings.Table),
		KeyColumn:      settings.Key,
		ExtraKeyColumn: settings.ExtraKey,
		FilterString:   settings.FilterString,
		Parser:         pipeline.ParserRowProjection,
	}

	quotedValue := quoteUpdateValue(updateValue)
	drainResults(q, task, func(r pipeline.Result) {
		row, ok := r.Value.(pipeline.Row)
		if !ok {
			return
		}
		scheduleMutation(q, pipeline.WorkerTask{
			Query: updateQuery(settings, updateKey, quotedValue, row),
			Split: r.Split,
			Kind:  pipeline.TaskUpdate,
		})
	})

	time.Sleep(drainGrace)
}

func updateQuery(settings *pipeline.Settings, updateKey, quotedValue string, row pipeline.Row) string {
	query := fmt.Sprintf("update %s.%s set %s = %s where %s = %s",
		settings.Keyspace, settings.Table, updateKey, quotedValue,
		settings.Key, quoteValue(row[settings.Key]))
	if settings.ExtraKey != "" {
		query += fmt.Sprintf(" and %s = %s", settings.ExtraKey, quoteValue(row[settings.ExtraKey]))
	}
	return query
}
