package shell

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/agnosticeng/anonymize/client"
	"github.com/agnosticeng/anonymize/cmd/common"
	"github.com/agnosticeng/anonymize/internal/output"
	"github.com/urfave/cli/v2"
)

var Flags = append([]cli.Flag{
	&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: string(output.Table)},
}, common.Flags...)

func Command() *cli.Command {
	return &cli.Command{
		Name:  "shell",
		Usage: "submit one statement per input line and print completions in order",
		Flags: Flags,
		Action: func(ctx *cli.Context) error {
			format, err := output.ParseFormat(ctx.String("format"))

			if err != nil {
				return err
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

			failed, err := Run(s, os.Stdin, os.Stdout, format)

			if err != nil {
				return err
			}

			if failed > 0 {
				return fmt.Errorf("%d statements failed", failed)
			}

			return nil
		},
	}
}

// Run submits every non-empty, non-comment line of r without waiting and
// writes each completion to w. It returns once every submission completed.
func Run(s *client.Session, r io.Reader, w io.Writer, format output.Format) (int, error) {
	var (
		scanner = bufio.NewScanner(r)
		wg      sync.WaitGroup
		lock    sync.Mutex
		failed  int
		n       int
	)

	for scanner.Scan() {
		var line = strings.TrimSpace(scanner.Text())

		if len(line) == 0 || strings.HasPrefix(line, "--") {
			continue
		}

		n++
		wg.Add(1)

		var index = n

		s.SubmitResult(line, func(err error, res *client.Result) {
			defer wg.Done()

			lock.Lock()
			defer lock.Unlock()

			if err != nil {
				failed++
				fmt.Fprintf(w, "[%d] error: %v\n", index, err)
				return
			}

			fmt.Fprintf(w, "[%d] ok\n", index)

			if err := output.Write(w, format, res); err != nil {
				fmt.Fprintf(w, "[%d] output error: %v\n", index, err)
			}
		})
	}

	wg.Wait()
	return failed, scanner.Err()
}
