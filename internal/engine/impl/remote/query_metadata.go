package remote

import (
	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/agnosticeng/anonymize/internal/engine"
)

func progressHandler(md *engine.QueryMetadata) func(*clickhouse.Progress) {
	return func(p *clickhouse.Progress) {
		if p == nil {
			return
		}

		md.Rows += p.Rows
		md.Bytes += p.Bytes
		md.TotalRows += p.TotalRows
		md.WroteRows += p.WroteRows
		md.WroteBytes += p.WroteBytes
		md.Elapsed += p.Elapsed
	}
}

func logHandler(md *engine.QueryMetadata) func(*clickhouse.Log) {
	return func(l *clickhouse.Log) {
		md.Logs = append(md.Logs, &engine.Log{
			Time:     l.Time,
			Hostname: l.Hostname,
			QueryID:  l.QueryID,
			ThreadID: l.ThreadID,
			Priority: l.Priority,
			Source:   l.Source,
			Text:     l.Text,
		})
	}
}
