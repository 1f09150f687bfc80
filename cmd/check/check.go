package check

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/agnosticeng/anonymize/cmd/common"
	"github.com/agnosticeng/anonymize/internal/conformance"
	"github.com/agnosticeng/tallyctx"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/uber-go/tally/v4"
	promreporter "github.com/uber-go/tally/v4/prometheus"
	"github.com/urfave/cli/v2"
	slogctx "github.com/veqryn/slog-context"
)

var Flags = append([]cli.Flag{
	&cli.IntFlag{Name: "sessions", Value: 1},
	&cli.IntFlag{Name: "repeat", Value: 1},
	&cli.DurationFlag{Name: "timeout", Value: time.Minute},
	&cli.StringFlag{Name: "prom-addr"},
}, common.Flags...)

func Command() *cli.Command {
	return &cli.Command{
		Name:      "check",
		Usage:     "run a conformance suite against a target",
		ArgsUsage: "[suite.yaml]",
		Flags:     Flags,
		Action: func(ctx *cli.Context) error {
			var (
				logger   = slogctx.FromCtx(ctx.Context)
				path     = ctx.Args().Get(0)
				promAddr = ctx.String("prom-addr")
				suite    = conformance.DefaultSuite()
				err      error
			)

			if len(path) > 0 {
				suite, err = conformance.LoadSuite(path)

				if err != nil {
					return err
				}
			}

			var runCtx = ctx.Context

			if len(promAddr) > 0 {
				var promReporter = promreporter.NewReporter(promreporter.Options{
					OnRegisterError: func(err error) {
						logger.Log(ctx.Context, -30, "failed to register metric", "error", err.Error())
					},
				})

				scope, scopeCloser := tally.NewRootScope(tally.ScopeOptions{
					Prefix:         "anonymize",
					CachedReporter: promReporter,
					Separator:      promreporter.DefaultSeparator,
				}, 1*time.Second)

				defer scopeCloser.Close()

				var srv = &http.Server{Addr: promAddr, Handler: promhttp.Handler()}

				go func() {
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						logger.Error("metrics server failed", "error", err.Error())
					}
				}()

				defer srv.Shutdown(context.Background())

				runCtx = tallyctx.NewContext(runCtx, scope)
			}

			ctx.Context = runCtx

			h, err := common.OpenHandle(ctx)

			if err != nil {
				return err
			}

			defer h.Close()

			report, err := conformance.Run(runCtx, h, suite, conformance.RunConfig{
				Sessions: ctx.Int("sessions"),
				Repeat:   ctx.Int("repeat"),
				Timeout:  ctx.Duration("timeout"),
			})

			if err != nil {
				return err
			}

			var failures = report.Failures()

			for _, f := range failures {
				fmt.Fprintf(ctx.App.Writer, "FAIL %s (session %d, iteration %d): %v\n", f.Case, f.Session, f.Iteration, f.Err)
			}

			fmt.Fprintf(
				ctx.App.Writer,
				"%s: %d passed, %d failed (run %s)\n",
				report.Suite,
				len(report.Results)-len(failures),
				len(failures),
				report.RunID,
			)

			if len(failures) > 0 {
				return fmt.Errorf("%d conformance checks failed", len(failures))
			}

			return nil
		},
	}
}
