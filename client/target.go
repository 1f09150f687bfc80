package client

import (
	"fmt"
	"strings"
)

// Memory is the target of a transient in-memory instance.
const Memory = ":memory:"

type TargetKind int

const (
	MemoryTarget TargetKind = iota
	FileTarget
	ClickHouseTarget
)

func (k TargetKind) String() string {
	switch k {
	case MemoryTarget:
		return "memory"
	case FileTarget:
		return "file"
	case ClickHouseTarget:
		return "clickhouse"
	default:
		return fmt.Sprintf("TargetKind(%d)", int(k))
	}
}

// Target identifies the storage behind an instance handle. Location is the
// file path for FileTarget and the DSN for ClickHouseTarget.
type Target struct {
	Kind     TargetKind
	Location string
}

func (t Target) String() string {
	if t.Kind == MemoryTarget {
		return Memory
	}

	return t.Location
}

// ParseTarget accepts "", ":memory:", "duckdb://<path>", "clickhouse://<dsn>"
// or a bare file path.
func ParseTarget(s string) (Target, error) {
	s = strings.TrimSpace(s)

	switch {
	case s == "" || s == Memory:
		return Target{Kind: MemoryTarget}, nil

	case strings.HasPrefix(s, "clickhouse://"):
		if len(strings.TrimPrefix(s, "clickhouse://")) == 0 {
			return Target{}, fmt.Errorf("clickhouse target must include a host")
		}

		return Target{Kind: ClickHouseTarget, Location: s}, nil

	case strings.HasPrefix(s, "duckdb://"):
		return ParseTarget(strings.TrimPrefix(s, "duckdb://"))

	case strings.Contains(s, "://"):
		return Target{}, fmt.Errorf("unsupported target scheme: %s", s)

	default:
		return Target{Kind: FileTarget, Location: s}, nil
	}
}
