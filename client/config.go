package client

import (
	"time"

	"github.com/agnosticeng/anonymize/internal/engine"
	"github.com/agnosticeng/anonymize/internal/engine/impl/remote"
)

type Extension = engine.Extension

type Config struct {
	// Settings are engine configuration options. Keys are converted to
	// snake_case.
	Settings        map[string]any
	MaxConns        int
	MaxConnLifetime time.Duration
	StartupProbe    remote.StartupProbeConfig
	Extensions      []Extension
}

func (conf Config) WithDefaults() Config {
	if conf.MaxConnLifetime == 0 {
		conf.MaxConnLifetime = time.Hour
	}

	conf.StartupProbe = conf.StartupProbe.WithDefaults()
	return conf
}
