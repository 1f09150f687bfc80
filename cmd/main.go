package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/agnosticeng/anonymize/cmd/check"
	"github.com/agnosticeng/anonymize/cmd/query"
	"github.com/agnosticeng/anonymize/cmd/render"
	"github.com/agnosticeng/anonymize/cmd/run"
	"github.com/agnosticeng/anonymize/cmd/shell"
	"github.com/agnosticeng/panicsafe"
	"github.com/agnosticeng/slogcli"
	"github.com/urfave/cli/v2"
)

func main() {
	app := cli.App{
		Name:  "anonymize",
		Usage: "query DuckDB or ClickHouse with the anonymize functions loaded",
		Flags: append(
			slogcli.SlogFlags(),
			&cli.Int64Flag{Name: "seed", Usage: "seed of anonymize_email and generate_data (default: current time)"},
		),
		Before: slogcli.SlogBefore,
		Commands: []*cli.Command{
			query.Command(),
			run.Command(),
			shell.Command(),
			check.Command(),
			render.Command(),
		},
	}

	var err = panicsafe.Recover(func() error { return app.Run(os.Args) })

	if err != nil {
		slog.Error(fmt.Sprintf("%v", err))
		os.Exit(1)
	}
}
