package remote

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/agnosticeng/anonymize/internal/engine"
	slogctx "github.com/veqryn/slog-context"
)

const EngineName = "clickhouse"

// StatementProvider is implemented by extensions that install themselves on
// a ClickHouse server through plain DDL statements.
type StatementProvider interface {
	engine.Extension
	ClickHouseStatements() []string
}

type RemoteEngineConfig struct {
	ConnPoolConfig
	StartupProbe StartupProbeConfig
	Extensions   []engine.Extension
}

type RemoteEngine struct {
	conf   RemoteEngineConfig
	logger *slog.Logger
	pool   *ConnPool
}

func NewRemoteEngine(ctx context.Context, conf RemoteEngineConfig) (*RemoteEngine, error) {
	var logger = slogctx.FromCtx(ctx).With("engine", EngineName)

	providers, err := statementProviders(conf.Extensions)

	if err != nil {
		return nil, err
	}

	pool, err := NewConnPool(conf.ConnPoolConfig)

	if err != nil {
		return nil, err
	}

	var eng = &RemoteEngine{
		conf:   conf,
		logger: logger,
		pool:   pool,
	}

	if err := RunStartupProbe(ctx, pool, conf.StartupProbe); err != nil {
		pool.Close()
		return nil, err
	}

	if err := eng.loadExtensions(ctx, providers); err != nil {
		pool.Close()
		return nil, err
	}

	return eng, nil
}

func (eng *RemoteEngine) Conn(ctx context.Context) (engine.Conn, error) {
	res, err := eng.pool.TryAcquire(ctx)

	if err != nil {
		return nil, err
	}

	return &Conn{res: res}, nil
}

func (eng *RemoteEngine) Close() error {
	eng.pool.Close()
	return nil
}

func (eng *RemoteEngine) loadExtensions(ctx context.Context, providers []StatementProvider) error {
	if len(providers) == 0 {
		return nil
	}

	conn, err := eng.Conn(ctx)

	if err != nil {
		return err
	}

	defer conn.Close()

	for _, p := range providers {
		for _, stmt := range p.ClickHouseStatements() {
			if _, err := conn.Query(ctx, stmt); err != nil {
				return fmt.Errorf("failed to load extension %s: %w", p.Name(), err)
			}
		}

		eng.logger.Debug("loaded extension", "name", p.Name())
	}

	return nil
}

func statementProviders(exts []engine.Extension) ([]StatementProvider, error) {
	var res = make([]StatementProvider, 0, len(exts))

	for _, ext := range exts {
		p, ok := ext.(StatementProvider)

		if !ok {
			return nil, fmt.Errorf("extension %s does not support %s", ext.Name(), EngineName)
		}

		res = append(res, p)
	}

	return res, nil
}
