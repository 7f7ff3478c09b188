package action

import (
	"fmt"
	"time"

	"github.com/fxlv/trireme/internal/pipeline"
	"github.com/fxlv/trireme/pkg/tokenring"
)

// DeleteRows runs the delete-rows action: reads every row with the
// print-rows query shape, then for each parsed row synthesises a delete
// query scoped to both the row's originating split and its key (and
// extra key, if configured), and schedules it onto workerQ as a delete
// task. Mutation tasks coexist with select tasks on workerQ; the caller
// must obtain interactive confirmation (internal/confirm) before calling
// DeleteRows.
func DeleteRows(q *pipeline.Queues, settings *pipeline.Settings) {
	task := pipeline.MapperTask{
		QueryTemplate:  fmt.Sprintf("select * from %s.%s", settings.Keyspace, settings.Table),
		KeyColumn:      settings.Key,
		ExtraKeyColumn: settings.ExtraKey,
		FilterString:   settings.FilterString,
		Parser:         pipeline.ParserRowProjection,
	}

	drainResults(q, task, func(r pipeline.Result) {
		row, ok := r.Value.(pipeline.Row)
		if !ok {
			return
		}
		scheduleMutation(q, pipeline.WorkerTask{
			Query: deleteQuery(settings, r.Split, row),
			Split: r.Split,
			Kind:  pipeline.TaskDelete,
		})
	})

	time.Sleep(drainGrace)
}

func deleteQuery(settings *pipeline.Settings, split tokenring.Range, row pipeline.Row) string {
	clause := pipeline.TokenClause(settings.Key, settings.ExtraKey)
	query := fmt.Sprintf("delete from %s.%s where %s >= %d and %s < %d and %s = %s",
		settings.Keyspace, settings.Table, clause, split.Lo, clause, split.Hi,
		settings.Key, quoteValue(row[settings.Key]))
	if settings.ExtraKey != "" {
		query += fmt.Sprintf(" and %s = %s", settings.ExtraKey, quoteValue(row[settings.ExtraKey]))
	}
	return query
}

// scheduleMutation pushes a delete/update task onto workerQ and
// increments the scheduled-mutations counter; workers increment the
// applied counter once they actually execute it.
func scheduleMutation(q *pipeline.Queues, wt pipeline.WorkerTask) {
	if pipeline.TrySend(q.WorkerQ, pipeline.Data(wt), q.Kill) {
		q.Counters.DeleteScheduled.Add(1)
	}
}
