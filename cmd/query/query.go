package query

import (
	"fmt"
	"os"
	"strings"

	"github.com/agnosticeng/anonymize/client"
	"github.com/agnosticeng/anonymize/cmd/common"
	"github.com/agnosticeng/anonymize/internal/output"
	"github.com/agnosticeng/anonymize/internal/utils"
	"github.com/urfave/cli/v2"
	slogctx "github.com/veqryn/slog-context"
)

var Flags = append([]cli.Flag{
	&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: string(output.Table)},
	&cli.StringFlag{Name: "file"},
	&cli.StringSliceFlag{Name: "var"},
}, common.Flags...)

func Command() *cli.Command {
	return &cli.Command{
		Name:      "query",
		Usage:     "run a single query and print its result",
		ArgsUsage: "[SQL]",
		Flags:     Flags,
		Action: func(ctx *cli.Context) error {
			var (
				logger = slogctx.FromCtx(ctx.Context)
				file   = ctx.String("file")
				vars   = utils.ParseKeyValues(ctx.StringSlice("var"), "=")
				text   = strings.Join(ctx.Args().Slice(), " ")
			)

			format, err := output.ParseFormat(ctx.String("format"))

			if err != nil {
				return err
			}

			if len(file) > 0 {
				content, err := os.ReadFile(file)

				if err != nil {
					return err
				}

				text = string(content)
			}

			if len(strings.TrimSpace(text)) == 0 {
				return fmt.Errorf("a query must be specified")
			}

			q, err := utils.RenderQuery(text, vars)

			if err != nil {
				return fmt.Errorf("failed to render query: %w", err)
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

			var done = make(chan error, 1)

			s.SubmitResult(q, func(err error, res *client.Result) {
				if err != nil {
					done <- err
					return
				}

				done <- output.Write(os.Stdout, format, res)
			})

			select {
			case <-ctx.Context.Done():
				return ctx.Context.Err()
			case err := <-done:
				if err == nil {
					logger.Debug("query completed", "session", s.ID())
				}

				return err
			}
		},
	}
}
