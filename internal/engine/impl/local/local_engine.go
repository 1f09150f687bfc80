package local

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"sync"

	"github.com/agnosticeng/anonymize/internal/engine"
	"github.com/agnosticeng/anonymize/internal/utils"
	"github.com/duckdb/duckdb-go/v2"
	"github.com/samber/lo"
	slogctx "github.com/veqryn/slog-context"
	"golang.org/x/sync/semaphore"
)

const (
	EngineName = "duckdb"
	Memory     = ":memory:"
)

// Registrar is implemented by extensions able to load themselves into a
// DuckDB instance.
type Registrar interface {
	engine.Extension
	RegisterDuckDB(ctx context.Context, conn *sql.Conn) error
}

type LocalEngineConfig struct {
	Path         string
	Settings     map[string]any
	MaxOpenConns int
	Extensions   []engine.Extension
}

type LocalEngine struct {
	conf   LocalEngineConfig
	logger *slog.Logger
	db     *sql.DB
	conns  *semaphore.Weighted
}

func NewLocalEngine(ctx context.Context, conf LocalEngineConfig) (*LocalEngine, error) {
	var logger = slogctx.FromCtx(ctx).With("engine", EngineName)

	registrars, err := registrars(conf.Extensions)

	if err != nil {
		return nil, err
	}

	var dsn = DSN(conf.Path, conf.Settings)

	connector, err := duckdb.NewConnector(dsn, nil)

	if err != nil {
		return nil, err
	}

	var db = sql.OpenDB(connector)

	if conf.MaxOpenConns > 0 {
		db.SetMaxOpenConns(conf.MaxOpenConns)
	}

	if err := loadExtensions(ctx, db, registrars); err != nil {
		db.Close()
		return nil, err
	}

	logger.Debug(
		"opened instance",
		"path", displayPath(conf.Path),
		"extensions", lo.Map(registrars, func(r Registrar, _ int) string { return r.Name() }),
	)

	var eng = &LocalEngine{
		conf:   conf,
		logger: logger,
		db:     db,
	}

	if conf.MaxOpenConns > 0 {
		eng.conns = semaphore.NewWeighted(int64(conf.MaxOpenConns))
	}

	return eng, nil
}

// Conn returns a dedicated connection. It fails with ErrConnExhausted
// instead of waiting when MaxOpenConns connections are already held.
func (eng *LocalEngine) Conn(ctx context.Context) (engine.Conn, error) {
	var release = func() {}

	if eng.conns != nil {
		if !eng.conns.TryAcquire(1) {
			return nil, fmt.Errorf("%w: %d connections in use", engine.ErrConnExhausted, eng.conf.MaxOpenConns)
		}

		release = func() { eng.conns.Release(1) }
	}

	conn, err := eng.db.Conn(ctx)

	if err != nil {
		release()
		return nil, err
	}

	return &Conn{conn: conn, release: sync.OnceFunc(release)}, nil
}

// Close closes the database and its connector, which releases the
// underlying DuckDB instance.
func (eng *LocalEngine) Close() error {
	if err := eng.db.Close(); err != nil {
		return err
	}

	eng.logger.Debug("closed instance", "path", displayPath(eng.conf.Path))
	return nil
}

// DSN builds a duckdb-go data source name. Settings are passed as query
// parameters, which duckdb-go applies as configuration options.
func DSN(path string, settings map[string]any) string {
	if path == Memory {
		path = ""
	}

	if len(settings) == 0 {
		return path
	}

	var (
		normalized = utils.NormalizeSettings(settings)
		keys       = lo.Keys(normalized)
		values     = url.Values{}
	)

	slices.Sort(keys)

	for _, k := range keys {
		values.Set(k, fmt.Sprintf("%v", normalized[k]))
	}

	return path + "?" + values.Encode()
}

func registrars(exts []engine.Extension) ([]Registrar, error) {
	var res = make([]Registrar, 0, len(exts))

	for _, ext := range exts {
		r, ok := ext.(Registrar)

		if !ok {
			return nil, fmt.Errorf("extension %s does not support %s", ext.Name(), EngineName)
		}

		res = append(res, r)
	}

	return res, nil
}

func loadExtensions(ctx context.Context, db *sql.DB, registrars []Registrar) error {
	if len(registrars) == 0 {
		return nil
	}

	conn, err := db.Conn(ctx)

	if err != nil {
		return err
	}

	defer conn.Close()

	for _, r := range registrars {
		if err := r.RegisterDuckDB(ctx, conn); err != nil {
			return fmt.Errorf("failed to load extension %s: %w", r.Name(), err)
		}
	}

	return nil
}

func displayPath(path string) string {
	if len(path) == 0 {
		return Memory
	}

	return path
}
