package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/agnosticeng/anonymize/internal/engine"
	"github.com/agnosticeng/panicsafe"
	"github.com/agnosticeng/tallyctx"
	slogctx "github.com/veqryn/slog-context"
)

type (
	Row    = engine.Row
	Result = engine.Result
)

// Callback receives the outcome of a submission: rows on success (never
// nil), or a non-nil error and nil rows.
type Callback func(err error, rows []Row)

type ResultCallback func(err error, res *Result)

type submission struct {
	query       string
	cb          ResultCallback
	submittedAt time.Time
	reason      error
}

// Session executes submitted queries one at a time, in submission order,
// on a dedicated goroutine. Callbacks are invoked on that goroutine, outside
// of any session lock.
type Session struct {
	id      string
	handle  *Handle
	ctx     context.Context
	logger  *slog.Logger
	metrics *SessionMetrics

	// exec is held while a query runs and while the connection is released.
	exec sync.Mutex
	conn engine.Conn

	lock   sync.Mutex
	queue  []*submission
	reason error
	exited bool
	wake   chan struct{}
	done   chan struct{}
}

func newSession(ctx context.Context, id string, h *Handle, conn engine.Conn) *Session {
	return &Session{
		id:      id,
		handle:  h,
		ctx:     ctx,
		logger:  slogctx.FromCtx(ctx),
		metrics: NewSessionMetrics(tallyctx.FromContextOrNoop(ctx)),
		conn:    conn,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

func (s *Session) ID() string {
	return s.id
}

// Submit queues query for execution and returns immediately. cb is invoked
// exactly once; it may be nil.
func (s *Session) Submit(query string, cb Callback) {
	var rcb ResultCallback

	if cb != nil {
		rcb = func(err error, res *Result) {
			if err != nil {
				cb(err, nil)
				return
			}

			cb(nil, res.Rows)
		}
	}

	s.SubmitResult(query, rcb)
}

// SubmitResult is Submit with access to column order and query metadata.
func (s *Session) SubmitResult(query string, cb ResultCallback) {
	var sub = &submission{
		query:       query,
		cb:          cb,
		submittedAt: time.Now(),
	}

	s.metrics.Submitted.Inc(1)

	if s.handle.Closed() {
		sub.reason = ErrHandleClosed
	}

	s.lock.Lock()

	if s.exited {
		var reason = s.reason

		if sub.reason != nil {
			reason = sub.reason
		}

		s.lock.Unlock()
		go s.complete(sub, nil, reason)
		return
	}

	s.queue = append(s.queue, sub)
	s.metrics.QueueSize.Update(float64(len(s.queue)))
	s.lock.Unlock()

	s.signal()
}

// Query submits query and waits for its completion. ctx only bounds the
// wait: the submission still runs to completion if ctx is done first.
func (s *Session) Query(ctx context.Context, query string) ([]Row, error) {
	type outcome struct {
		rows []Row
		err  error
	}

	var ch = make(chan outcome, 1)

	s.Submit(query, func(err error, rows []Row) {
		ch <- outcome{rows: rows, err: err}
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case o := <-ch:
		return o.rows, o.err
	}
}

// Close releases the session connection. Queued submissions complete with
// ErrSessionClosed. The handle stays open. Calling Close again returns nil.
func (s *Session) Close() error {
	s.handle.unbind(s)
	return s.release(ErrSessionClosed)
}

// Done is closed once the session goroutine has completed every
// submission and exited.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) release(reason error) error {
	s.lock.Lock()

	if s.reason == nil {
		s.reason = reason
	}

	s.lock.Unlock()
	s.signal()

	s.exec.Lock()
	var conn = s.conn
	s.conn = nil
	s.exec.Unlock()

	if conn == nil {
		return nil
	}

	s.logger.Debug("released connection", "reason", reason.Error())
	return conn.Close()
}

func (s *Session) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Session) run() {
	defer close(s.done)

	for {
		sub, reason := s.next()

		if sub == nil {
			return
		}

		s.metrics.QueueTime.RecordDuration(time.Since(sub.submittedAt))

		if sub.reason != nil {
			reason = sub.reason
		}

		if reason != nil {
			s.complete(sub, nil, reason)
			continue
		}

		res, err := s.execute(sub.query)
		s.complete(sub, res, err)
	}
}

// next blocks until a submission is queued. It returns nil once the session
// is released and its queue drained; later submissions then complete on
// their own goroutine.
func (s *Session) next() (*submission, error) {
	for {
		s.lock.Lock()

		if len(s.queue) > 0 {
			var sub = s.queue[0]
			s.queue[0] = nil
			s.queue = s.queue[1:]
			s.metrics.QueueSize.Update(float64(len(s.queue)))

			var reason = s.reason
			s.lock.Unlock()
			return sub, reason
		}

		if s.reason != nil {
			s.queue = nil
			s.exited = true
			s.lock.Unlock()
			return nil, nil
		}

		s.lock.Unlock()
		<-s.wake
	}
}

func (s *Session) execute(query string) (*Result, error) {
	s.exec.Lock()
	defer s.exec.Unlock()

	if s.conn == nil {
		s.lock.Lock()
		defer s.lock.Unlock()
		return nil, s.reason
	}

	if len(strings.TrimSpace(query)) == 0 {
		return nil, engine.NewExecutionError("client", "", fmt.Errorf("query is empty"))
	}

	var (
		res *Result
		t0  = time.Now()
	)

	s.logger.Log(s.ctx, -10, "executing query", "query", query)

	var err = panicsafe.Recover(func() error {
		var err error
		res, err = s.conn.Query(s.ctx, query)
		return err
	})

	s.metrics.ExecutionTime.RecordDuration(time.Since(t0))

	if err != nil {
		if !errors.Is(err, ErrExecution) {
			err = engine.NewExecutionError("client", "internal", err)
		}

		return nil, err
	}

	engine.LogQueryMetadata(s.ctx, s.logger, slog.LevelDebug, "query metadata", &res.Metadata)
	return res, nil
}

func (s *Session) complete(sub *submission, res *Result, err error) {
	if err != nil {
		s.metrics.Failed.Inc(1)
		s.logger.Debug("query failed", "error", err.Error())
	} else {
		s.metrics.Succeeded.Inc(1)
	}

	if sub.cb == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("callback panicked", "panic", fmt.Sprintf("%v", r))
		}
	}()

	sub.cb(err, res)
}
