package engine

import (
	"context"
	"log/slog"
	"strconv"
)

// UniqueColumns renames repeated column names so that every name is unique
// within a row. Later occurrences get a numeric suffix: a, a → a, a_1.
func UniqueColumns(columns []string) []string {
	var (
		res  = make([]string, len(columns))
		seen = make(map[string]int, len(columns))
	)

	for i, col := range columns {
		seen[col]++
		res[i] = col
	}

	var counters = make(map[string]int, len(columns))

	for i, col := range columns {
		if seen[col] == 1 {
			continue
		}

		var n = counters[col]
		counters[col]++

		if n == 0 {
			continue
		}

		for {
			var candidate = col + "_" + strconv.Itoa(n)

			if _, taken := seen[candidate]; !taken {
				seen[candidate] = 1
				res[i] = candidate
				break
			}

			n++
			counters[col]++
		}
	}

	return res
}

func NewRow(columns []string, values []any) Row {
	var row = make(Row, len(columns))

	for i, col := range columns {
		row[col] = values[i]
	}

	return row
}

func LogQueryMetadata(ctx context.Context, logger *slog.Logger, level slog.Level, msg string, md *QueryMetadata) {
	if md == nil || !logger.Enabled(ctx, level) {
		return
	}

	logger.Log(
		ctx,
		level,
		msg,
		"rows", md.Rows,
		"bytes", md.Bytes,
		"total_rows", md.TotalRows,
		"wrote_rows", md.WroteRows,
		"wrote_bytes", md.WroteBytes,
		"elapsed", md.Elapsed,
	)
}
