package remote

import (
	"context"
	"fmt"
	"time"

	slogctx "github.com/veqryn/slog-context"
)

type StartupProbeConfig struct {
	MaxTries int
	Interval time.Duration
}

func (conf StartupProbeConfig) WithDefaults() StartupProbeConfig {
	if conf.MaxTries <= 0 {
		conf.MaxTries = 1
	}

	if conf.Interval == 0 {
		conf.Interval = time.Second
	}

	return conf
}

// RunStartupProbe pings the server until it answers or MaxTries is reached.
func RunStartupProbe(ctx context.Context, pool *ConnPool, conf StartupProbeConfig) error {
	var (
		logger = slogctx.FromCtx(ctx)
		err    error
	)

	conf = conf.WithDefaults()

	for i := 0; i < conf.MaxTries; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(conf.Interval):
			}
		}

		if err = ping(ctx, pool); err == nil {
			return nil
		}

		logger.Debug("startup probe failed", "try", i+1, "max_tries", conf.MaxTries, "error", err.Error())
	}

	return fmt.Errorf("server not ready after %d tries: %w", conf.MaxTries, err)
}

func ping(ctx context.Context, pool *ConnPool) error {
	res, err := pool.Acquire(ctx)

	if err != nil {
		return err
	}

	if err := res.Value().Ping(ctx); err != nil {
		res.Destroy()
		return err
	}

	res.Release()
	return nil
}
