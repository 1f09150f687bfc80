package run

import (
	"fmt"
	"io"

	"github.com/agnosticeng/anonymize/client"
	"github.com/agnosticeng/anonymize/cmd/common"
	"github.com/agnosticeng/anonymize/cmd/render"
	"github.com/agnosticeng/anonymize/internal/output"
	"github.com/agnosticeng/anonymize/internal/utils"
	"github.com/hashicorp/go-multierror"
	"github.com/urfave/cli/v2"
	slogctx "github.com/veqryn/slog-context"
)

var Flags = append([]cli.Flag{
	&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: string(output.Table)},
	&cli.StringSliceFlag{Name: "var"},
}, common.Flags...)

func Command() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "execute every SQL template of a directory, in name order, on one session",
		ArgsUsage: "DIR",
		Flags:     Flags,
		Action: func(ctx *cli.Context) error {
			var (
				logger = slogctx.FromCtx(ctx.Context)
				path   = ctx.Args().Get(0)
				vars   = utils.ParseKeyValues(ctx.StringSlice("var"), "=")
			)

			if len(path) == 0 {
				return fmt.Errorf("a path must be specified")
			}

			format, err := output.ParseFormat(ctx.String("format"))

			if err != nil {
				return err
			}

			tmpl, err := utils.LoadTemplates(path)

			if err != nil {
				return err
			}

			var queries []Query

			for _, t := range render.SortedTemplates(tmpl) {
				q, err := utils.RenderTemplate(tmpl, t.Name(), vars)

				if err != nil {
					return fmt.Errorf("failed to render %s template: %w", t.Name(), err)
				}

				queries = append(queries, Query{Name: t.Name(), Text: q})
			}

			h, err := common.OpenHandle(ctx)

			if err != nil {
				return err
			}

			defer h.Close()

			s, err := h.Connect(ctx.Context)

			if err != nil {
				return err
			}

			defer s.Close()

			logger.Debug("running templates", "count", len(queries), "session", s.ID())

			return Run(s, queries, ctx.App.Writer, format)
		},
	}
}

type Query struct {
	Name string
	Text string
}

// Run submits every query at once and writes results as they complete.
// Completions arrive in submission order, so the output follows name order.
func Run(s *client.Session, queries []Query, w io.Writer, format output.Format) error {
	var (
		results = make(chan error, len(queries))
		result  *multierror.Error
	)

	for _, q := range queries {
		s.SubmitResult(q.Text, func(err error, res *client.Result) {
			fmt.Fprintln(w, render.Banner(q.Name))

			if err != nil {
				fmt.Fprintf(w, "error: %v\n", err)
				results <- fmt.Errorf("%s: %w", q.Name, err)
				return
			}

			results <- output.Write(w, format, res)
		})
	}

	for range queries {
		if err := <-results; err != nil {
			result = multierror.Append(result, err)
		}
	}

	return result.ErrorOrNil()
}
