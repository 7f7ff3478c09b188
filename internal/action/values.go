package action

import (
	"fmt"
	"strings"
	"time"
)

// quoteValue renders v as a single-quoted CQL literal. Every value is
// quoted unconditionally, including numerics; timestamp values are
// normalised to UTC before formatting, with an explicit numeric offset
// so UTC renders as +00:00 rather than Z.
func quoteValue(v any) string {
	if t, ok := v.(time.Time); ok {
		return "'" + t.UTC().Format("2006-01-02T15:04:05-07:00") + "'"
	}
	return fmt.Sprintf("'%v'", v)
}

// quoteUpdateValue renders an --update-value flag argument for use in an
// `update ... set key = value` clause: quoted, unless it is the literal
// (case-insensitive) boolean true/false, which passes through unquoted.
func quoteUpdateValue(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true":
		return "true"
	case "false":
		return "false"
	default:
		return "'" + raw + "'"
	}
}
