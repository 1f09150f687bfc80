package remote

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/agnosticeng/anonymize/internal/engine"
	"github.com/agnosticeng/anonymize/internal/utils"
	"github.com/jackc/puddle/v2"
)

type ConnPoolConfig struct {
	Dsn             string
	MaxConns        int32
	MaxConnLifetime time.Duration
	Settings        map[string]any
}

func (conf ConnPoolConfig) WithDefaults() ConnPoolConfig {
	if conf.MaxConnLifetime == 0 {
		conf.MaxConnLifetime = time.Hour
	}

	if conf.MaxConns <= 0 {
		conf.MaxConns = 8
	}

	if len(conf.Dsn) == 0 {
		conf.Dsn = "clickhouse://127.0.0.1:9000/default"
	}

	return conf
}

// ConnPool hands out single-connection ClickHouse clients. A resource older
// than MaxConnLifetime is destroyed instead of being reused.
type ConnPool struct {
	conf ConnPoolConfig
	pool *puddle.Pool[driver.Conn]
}

func NewConnPool(conf ConnPoolConfig) (*ConnPool, error) {
	conf = conf.WithDefaults()

	chopts, err := clickhouse.ParseDSN(conf.Dsn)

	if err != nil {
		return nil, err
	}

	chopts.MaxOpenConns = 1
	chopts.ConnMaxLifetime = conf.MaxConnLifetime * 2

	if len(conf.Settings) > 0 {
		chopts.Settings = clickhouse.Settings(utils.NormalizeSettings(conf.Settings))
	}

	pool, err := puddle.NewPool(&puddle.Config[driver.Conn]{
		MaxSize: conf.MaxConns,
		Constructor: func(context.Context) (driver.Conn, error) {
			return clickhouse.Open(chopts)
		},
		Destructor: func(conn driver.Conn) {
			conn.Close()
		},
	})

	if err != nil {
		return nil, err
	}

	return &ConnPool{
		conf: conf,
		pool: pool,
	}, nil
}

func (pool *ConnPool) Acquire(ctx context.Context) (*puddle.Resource[driver.Conn], error) {
	for {
		res, err := pool.pool.Acquire(ctx)

		if err != nil {
			return nil, err
		}

		if time.Since(res.CreationTime()) < pool.conf.MaxConnLifetime {
			return res, nil
		}

		res.Destroy()
	}
}

// TryAcquire is Acquire without waiting for a connection to be released:
// it fails with ErrConnExhausted once MaxConns connections are acquired.
func (pool *ConnPool) TryAcquire(ctx context.Context) (*puddle.Resource[driver.Conn], error) {
	var stat = pool.pool.Stat()

	if stat.AcquiredResources() >= stat.MaxResources() {
		return nil, fmt.Errorf("%w: %d connections in use", engine.ErrConnExhausted, stat.MaxResources())
	}

	return pool.Acquire(ctx)
}

// Close blocks until every acquired connection has been released.
func (pool *ConnPool) Close() {
	pool.pool.Close()
}
