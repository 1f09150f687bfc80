package engine

import (
	"context"
	"time"
)

type Engine interface {
	Conn(ctx context.Context) (Conn, error)
	Close() error
}

type Conn interface {
	Ping(ctx context.Context) error
	Query(ctx context.Context, query string) (*Result, error)
	Close() error
}

// Extension is a named set of functions loaded into an engine when it is
// opened. Engines require additional, engine-specific methods.
type Extension interface {
	Name() string
}

type Row map[string]any

type Result struct {
	Columns  []string
	Rows     []Row
	Metadata QueryMetadata
}

type QueryMetadata struct {
	Rows       uint64
	Bytes      uint64
	TotalRows  uint64
	WroteRows  uint64
	WroteBytes uint64
	Elapsed    time.Duration
	Logs       []*Log
}

type Log struct {
	Time     time.Time
	Hostname string
	QueryID  string
	ThreadID uint64
	Priority int8
	Source   string
	Text     string
}
