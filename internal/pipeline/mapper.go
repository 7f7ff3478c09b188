package pipeline

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/fxlv/trireme/pkg/tokenring"
)

// mapperAssignmentTimeout bounds how long the mapper waits to receive its
// one work assignment before giving up; this is the only timed receive in
// the pipeline besides backoff sleeps. A var so tests can shorten it.
var mapperAssignmentTimeout = 10 * time.Second

// RunMapper waits for its single MapperTask assignment, then turns each
// split received on q.SplitQ into a concrete WorkerTask by rendering the
// task's query template against that split's token bounds, forwarding the
// sentinel exactly once when splitQ's sentinel arrives.
func RunMapper(q *Queues, kill *KillSwitch) {
	var task MapperTask
	select {
	case task = <-q.MapperQ:
	case <-time.After(mapperAssignmentTimeout):
		slog.Error("mapper: timed out waiting for work assignment, exiting")
		return
	case <-kill.Done():
		return
	}

	for {
		select {
		case item := <-q.SplitQ:
			if item.EndOfStream {
				TrySend(q.WorkerQ, Sentinel[WorkerTask](), kill)
				return
			}
			wt := renderWorkerTask(task, item.Value)
			if !TrySend(q.WorkerQ, Data(wt), kill) {
				return
			}
			q.Counters.Mapper.Add(1)
		case <-kill.Done():
			return
		}
	}
}

// renderWorkerTask injects the split's token bounds and the mapper task's
// optional filter clause into the query template:
//
//	<template> where token(key[, extraKey]) >= lo and token(...) < hi [and filter]
func renderWorkerTask(mt MapperTask, rng tokenring.Range) WorkerTask {
	clause := TokenClause(mt.KeyColumn, mt.ExtraKeyColumn)
	query := fmt.Sprintf("%s where %s >= %d and %s < %d", mt.QueryTemplate, clause, rng.Lo, clause, rng.Hi)
	if mt.FilterString != "" {
		query += " and " + mt.FilterString
	}
	return WorkerTask{
		Query:  query,
		Split:  rng,
		Kind:   TaskSelect,
		Parser: mt.Parser,
	}
}

// TokenClause renders token(key) or token(key, extraKey), the clause every
// token-range-scoped query (select, count, delete) filters on.
func TokenClause(key, extraKey string) string {
	if extraKey == "" {
		return fmt.Sprintf("token(%s)", key)
	}
	return fmt.Sprintf("token(%s, %s)", key, extraKey)
}
