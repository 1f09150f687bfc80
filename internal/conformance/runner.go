package conformance

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/agnosticeng/anonymize/client"
	"github.com/agnosticeng/anonymize/internal/worker"
	"github.com/agnosticeng/tallyctx"
	"github.com/google/uuid"
	"github.com/uber-go/tally/v4"
	slogctx "github.com/veqryn/slog-context"
)

type RunConfig struct {
	Sessions int
	Repeat   int
	Timeout  time.Duration
}

func (conf RunConfig) WithDefaults() RunConfig {
	if conf.Sessions <= 0 {
		conf.Sessions = 1
	}

	if conf.Repeat <= 0 {
		conf.Repeat = 1
	}

	if conf.Timeout <= 0 {
		conf.Timeout = time.Minute
	}

	return conf
}

type RunMetrics struct {
	Passed tally.Counter
	Failed tally.Counter
}

func NewRunMetrics(scope tally.Scope) *RunMetrics {
	return &RunMetrics{
		Passed: scope.Counter("cases_passed"),
		Failed: scope.Counter("cases_failed"),
	}
}

type CaseResult struct {
	Case      string
	Session   int
	Iteration int
	Elapsed   time.Duration
	Err       error
}

type Report struct {
	RunID   string
	Suite   string
	Results []CaseResult
}

func (r *Report) Failures() []CaseResult {
	var res []CaseResult

	for _, cr := range r.Results {
		if cr.Err != nil {
			res = append(res, cr)
		}
	}

	return res
}

func (r *Report) OK() bool {
	return len(r.Failures()) == 0
}

// Run binds conf.Sessions sessions to h and submits every case conf.Repeat
// times on each of them without waiting between submissions. Each
// completion is checked against its case, against submission order and for
// exactly-once delivery.
func Run(ctx context.Context, h *client.Handle, suite *Suite, conf RunConfig) (*Report, error) {
	conf = conf.WithDefaults()

	var (
		runID   = uuid.Must(uuid.NewV7()).String()
		cases   = suite.CasesFor(h.Target().Kind)
		metrics = NewRunMetrics(tallyctx.FromContextOrNoop(ctx))
		report  = &Report{RunID: runID, Suite: suite.Name}
		lock    sync.Mutex
	)

	ctx = slogctx.With(ctx, "run", runID, "suite", suite.Name)

	var logger = slogctx.FromCtx(ctx)

	logger.Debug("started", "cases", len(cases), "sessions", conf.Sessions, "repeat", conf.Repeat)

	err := worker.Controller(
		ctx,
		conf.Sessions,
		func(ctx context.Context, i int) func() error {
			return func() error {
				results, err := runSession(ctx, h, cases, i, conf)

				if err != nil {
					return err
				}

				lock.Lock()
				defer lock.Unlock()
				report.Results = append(report.Results, results...)
				return nil
			}
		},
		func() {
			logger.Debug("stopped")
		},
	)

	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(report.Results, func(a, b CaseResult) int {
		if a.Session != b.Session {
			return a.Session - b.Session
		}

		return a.Iteration - b.Iteration
	})

	for _, cr := range report.Results {
		if cr.Err != nil {
			metrics.Failed.Inc(1)
			logger.Info("case failed", "case", cr.Case, "session", cr.Session, "iteration", cr.Iteration, "error", cr.Err.Error())
		} else {
			metrics.Passed.Inc(1)
		}
	}

	return report, nil
}

func runSession(ctx context.Context, h *client.Handle, cases []Case, index int, conf RunConfig) ([]CaseResult, error) {
	s, err := h.Connect(ctx)

	if err != nil {
		return nil, err
	}

	defer s.Close()

	if len(cases) == 0 {
		return nil, nil
	}

	var (
		total     = len(cases) * conf.Repeat
		results   = make([]CaseResult, total)
		counts    = make([]int, total)
		completed = 0
		lock      sync.Mutex
		done      = make(chan struct{})
	)

	for seq := 0; seq < total; seq++ {
		var (
			c  = cases[seq%len(cases)]
			t0 = time.Now()
		)

		results[seq] = CaseResult{
			Case:      c.Name,
			Session:   index,
			Iteration: seq / len(cases),
		}

		s.SubmitResult(c.Query, func(err error, res *client.Result) {
			lock.Lock()
			defer lock.Unlock()

			counts[seq]++

			if counts[seq] > 1 {
				results[seq].Err = errors.Join(results[seq].Err, fmt.Errorf("completed %d times", counts[seq]))
				return
			}

			results[seq].Elapsed = time.Since(t0)
			results[seq].Err = c.check(err, res)

			if completed != seq && results[seq].Err == nil {
				results[seq].Err = fmt.Errorf("completed at position %d, submitted at %d", completed, seq)
			}

			completed++

			if completed == total {
				close(done)
			}
		})
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(conf.Timeout):
		return nil, fmt.Errorf("session %d: timed out after %s", index, conf.Timeout)
	case <-done:
	}

	lock.Lock()
	defer lock.Unlock()
	return slices.Clone(results), nil
}

func (c Case) check(err error, res *client.Result) error {
	if len(c.Error) > 0 {
		if err == nil {
			return fmt.Errorf("expected %s error, got %d rows", c.Error, len(res.Rows))
		}

		if !errors.Is(err, expectedErrors[c.Error]) {
			return fmt.Errorf("expected %s error, got: %w", c.Error, err)
		}

		return nil
	}

	if err != nil {
		return err
	}

	if res.Rows == nil {
		return errors.New("rows must not be nil on success")
	}

	if c.Expect == nil {
		return nil
	}

	return CompareRows(c.Expect, res.Rows)
}

// CompareRows compares rows by their printed values, so that expectations
// written in YAML match whatever numeric type the engine returns.
func CompareRows(expected []map[string]any, rows []client.Row) error {
	if len(expected) != len(rows) {
		return fmt.Errorf("expected %d rows, got %d", len(expected), len(rows))
	}

	for i := range expected {
		if len(expected[i]) != len(rows[i]) {
			return fmt.Errorf("row %d: expected %d columns, got %d", i, len(expected[i]), len(rows[i]))
		}

		for k, v := range expected[i] {
			got, ok := rows[i][k]

			if !ok {
				return fmt.Errorf("row %d: missing column %s", i, k)
			}

			if fmt.Sprint(got) != fmt.Sprint(v) {
				return fmt.Errorf("row %d: column %s: expected %v, got %v", i, k, v, got)
			}
		}
	}

	return nil
}
