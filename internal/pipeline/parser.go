package pipeline

import "fmt"

// Row is a single database row with columns addressable by name, as
// produced by the session collaborator interface (internal/session).
type Row map[string]any

// ApplyParser applies the parser named by kind to row, per the worker pool
// design: countParser extracts the scalar from a `select count(*)`
// response, rowProjectionParser extracts {key: ..., extraKey: ...}.
// ParserNone passes the row through unparsed.
func ApplyParser(kind ParserKind, row Row, settings *Settings) (any, error) {
	switch kind {
	case ParserNone:
		return row, nil
	case ParserCount:
		return countParser(row)
	case ParserRowProjection:
		return rowProjectionParser(row, settings)
	default:
		return nil, fmt.Errorf("pipeline: unknown parser kind %q", kind)
	}
}

func countParser(row Row) (any, error) {
	v, ok := row["count"]
	if !ok {
		return nil, fmt.Errorf("pipeline: row missing count column")
	}
	return v, nil
}

func rowProjectionParser(row Row, settings *Settings) (Row, error) {
	v, ok := row[settings.Key]
	if !ok {
		return nil, fmt.Errorf("pipeline: row missing key column %q", settings.Key)
	}
	out := Row{settings.Key: v}
	if settings.ExtraKey != "" {
		ev, ok := row[settings.ExtraKey]
		if !ok {
			return nil, fmt.Errorf("pipeline: row missing extra key column %q", settings.ExtraKey)
		}
		out[settings.ExtraKey] = ev
	}
	return out, nil
}
