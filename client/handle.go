package client

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/agnosticeng/anonymize/internal/engine"
	"github.com/agnosticeng/anonymize/internal/engine/impl/local"
	"github.com/agnosticeng/anonymize/internal/engine/impl/remote"
	"github.com/agnosticeng/tallyctx"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/samber/lo"
	slogctx "github.com/veqryn/slog-context"
)

// Handle owns one engine instance. Sessions bound to it share the instance
// and are released when the handle is closed.
type Handle struct {
	target  Target
	engine  engine.Engine
	logger  *slog.Logger
	metrics *HandleMetrics

	lock     sync.Mutex
	closed   bool
	sessions map[string]*Session
}

func Open(ctx context.Context, target string, conf Config) (*Handle, error) {
	t, err := ParseTarget(target)

	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpen, err)
	}

	conf = conf.WithDefaults()

	var logger = slogctx.FromCtx(ctx).With("target", t.String())
	ctx = slogctx.NewCtx(ctx, logger)

	eng, err := newEngine(ctx, t, conf)

	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpen, err)
	}

	logger.Debug("opened handle", "kind", t.Kind.String())

	return &Handle{
		target:   t,
		engine:   eng,
		logger:   logger,
		metrics:  NewHandleMetrics(tallyctx.FromContextOrNoop(ctx)),
		sessions: make(map[string]*Session),
	}, nil
}

func newEngine(ctx context.Context, t Target, conf Config) (engine.Engine, error) {
	switch t.Kind {
	case MemoryTarget, FileTarget:
		return local.NewLocalEngine(ctx, local.LocalEngineConfig{
			Path:         t.Location,
			Settings:     conf.Settings,
			MaxOpenConns: conf.MaxConns,
			Extensions:   conf.Extensions,
		})

	case ClickHouseTarget:
		return remote.NewRemoteEngine(ctx, remote.RemoteEngineConfig{
			ConnPoolConfig: remote.ConnPoolConfig{
				Dsn:             t.Location,
				MaxConns:        int32(conf.MaxConns),
				MaxConnLifetime: conf.MaxConnLifetime,
				Settings:        conf.Settings,
			},
			StartupProbe: conf.StartupProbe,
			Extensions:   conf.Extensions,
		})

	default:
		return nil, fmt.Errorf("unsupported target kind: %s", t.Kind)
	}
}

func (h *Handle) Target() Target {
	return h.target
}

func (h *Handle) Closed() bool {
	h.lock.Lock()
	defer h.lock.Unlock()
	return h.closed
}

// Connect binds a new session to the handle. The session keeps one engine
// connection until it or the handle is closed. ctx only bounds connection
// acquisition; its values (logger, metrics scope) are inherited by the
// session.
func (h *Handle) Connect(ctx context.Context) (*Session, error) {
	if h.Closed() {
		return nil, fmt.Errorf("%w: %w", ErrBind, ErrHandleClosed)
	}

	conn, err := h.engine.Conn(ctx)

	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBind, err)
	}

	var id = uuid.Must(uuid.NewV7()).String()

	ctx = slogctx.NewCtx(context.WithoutCancel(ctx), h.logger.With("session", id))
	ctx = tallyctx.NewContext(ctx, tallyctx.FromContextOrNoop(ctx).SubScope("session"))

	var s = newSession(ctx, id, h, conn)

	h.lock.Lock()

	if h.closed {
		h.lock.Unlock()
		conn.Close()
		return nil, fmt.Errorf("%w: %w", ErrBind, ErrHandleClosed)
	}

	h.sessions[id] = s
	h.metrics.Sessions.Update(float64(len(h.sessions)))
	h.lock.Unlock()

	go s.run()

	s.logger.Debug("connected")
	return s, nil
}

// Close marks the handle closed, releases every bound session and closes
// the engine. Queued submissions complete with ErrHandleClosed. Calling
// Close again returns nil.
func (h *Handle) Close() error {
	h.lock.Lock()

	if h.closed {
		h.lock.Unlock()
		return nil
	}

	h.closed = true
	var sessions = lo.Values(h.sessions)
	h.sessions = map[string]*Session{}
	h.metrics.Sessions.Update(0)
	h.lock.Unlock()

	var result *multierror.Error

	for _, s := range sessions {
		if err := s.release(ErrHandleClosed); err != nil {
			result = multierror.Append(result, fmt.Errorf("session %s: %w", s.ID(), err))
		}
	}

	if err := h.engine.Close(); err != nil {
		result = multierror.Append(result, err)
	}

	h.logger.Debug("closed handle", "sessions", len(sessions))
	return result.ErrorOrNil()
}

func (h *Handle) unbind(s *Session) {
	h.lock.Lock()
	defer h.lock.Unlock()

	delete(h.sessions, s.ID())
	h.metrics.Sessions.Update(float64(len(h.sessions)))
}
