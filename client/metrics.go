package client

import (
	"time"

	"github.com/uber-go/tally/v4"
)

type HandleMetrics struct {
	Sessions tally.Gauge
}

func NewHandleMetrics(scope tally.Scope) *HandleMetrics {
	return &HandleMetrics{
		Sessions: scope.Gauge("sessions"),
	}
}

type SessionMetrics struct {
	Submitted     tally.Counter
	Succeeded     tally.Counter
	Failed        tally.Counter
	QueueSize     tally.Gauge
	QueueTime     tally.Histogram
	ExecutionTime tally.Histogram
}

func NewSessionMetrics(scope tally.Scope) *SessionMetrics {
	return &SessionMetrics{
		Submitted: scope.Counter("submitted"),
		Succeeded: scope.Counter("succeeded"),
		Failed:    scope.Counter("failed"),
		QueueSize: scope.Gauge("queue_size"),
		QueueTime: scope.Histogram(
			"queue_time",
			tally.MustMakeExponentialDurationBuckets(time.Millisecond, 2, 10),
		),
		ExecutionTime: scope.Histogram(
			"execution_time",
			tally.MustMakeExponentialDurationBuckets(time.Millisecond, 2, 12),
		),
	}
}
