package common

import (
	"fmt"
	"time"

	"github.com/agnosticeng/anonymize/client"
	"github.com/agnosticeng/anonymize/internal/engine/impl/remote"
	"github.com/agnosticeng/anonymize/internal/extension/anonymize"
	"github.com/agnosticeng/anonymize/internal/utils"
	"github.com/agnosticeng/cnf"
	"github.com/agnosticeng/cnf/providers/env"
	"github.com/urfave/cli/v2"
)

var Flags = []cli.Flag{
	&cli.StringFlag{Name: "target", Aliases: []string{"t"}},
	&cli.StringSliceFlag{Name: "setting"},
	&cli.IntFlag{Name: "max-conns"},
	&cli.DurationFlag{Name: "max-connection-lifetime"},
}

// Config is read from ANONYMIZE_* environment variables. Flags take
// precedence.
type Config struct {
	Target          string
	Seed            int64
	Settings        map[string]any
	MaxConns        int
	MaxConnLifetime time.Duration
	StartupProbe    remote.StartupProbeConfig
}

func LoadConfig(ctx *cli.Context) (Config, error) {
	var cfg Config

	if err := cnf.Load(&cfg, cnf.WithProvider(env.NewEnvProvider("ANONYMIZE"))); err != nil {
		return cfg, fmt.Errorf("failed to load configuration: %w", err)
	}

	if ctx.IsSet("target") {
		cfg.Target = ctx.String("target")
	}

	if ctx.IsSet("seed") {
		cfg.Seed = ctx.Int64("seed")
	}

	if ctx.IsSet("max-conns") {
		cfg.MaxConns = ctx.Int("max-conns")
	}

	if ctx.IsSet("max-connection-lifetime") {
		cfg.MaxConnLifetime = ctx.Duration("max-connection-lifetime")
	}

	if settings := utils.ParseKeyValues(ctx.StringSlice("setting"), "="); len(settings) > 0 {
		if cfg.Settings == nil {
			cfg.Settings = make(map[string]any, len(settings))
		}

		for k, v := range settings {
			cfg.Settings[k] = v
		}
	}

	if len(cfg.Target) == 0 {
		cfg.Target = client.Memory
	}

	return cfg, nil
}

// OpenHandle opens the configured target with the anonymize extension
// loaded.
func OpenHandle(ctx *cli.Context) (*client.Handle, error) {
	cfg, err := LoadConfig(ctx)

	if err != nil {
		return nil, err
	}

	return client.Open(ctx.Context, cfg.Target, client.Config{
		Settings:        cfg.Settings,
		MaxConns:        cfg.MaxConns,
		MaxConnLifetime: cfg.MaxConnLifetime,
		StartupProbe:    cfg.StartupProbe,
		Extensions: []client.Extension{
			anonymize.New(anonymize.Config{Seed: cfg.Seed}),
		},
	})
}
