package render

import (
	"fmt"
	"slices"
	"strings"
	"text/template"

	"github.com/agnosticeng/anonymize/internal/utils"
	"github.com/urfave/cli/v2"
)

var Flags = []cli.Flag{
	&cli.StringSliceFlag{Name: "var"},
}

func Command() *cli.Command {
	return &cli.Command{
		Name:      "render",
		Usage:     "print every rendered SQL template of a directory",
		ArgsUsage: "DIR",
		Flags:     Flags,
		Action: func(ctx *cli.Context) error {
			var (
				path = ctx.Args().Get(0)
				vars = utils.ParseKeyValues(ctx.StringSlice("var"), "=")
			)

			if len(path) == 0 {
				return fmt.Errorf("a path must be specified")
			}

			tmpl, err := utils.LoadTemplates(path)

			if err != nil {
				return err
			}

			for _, t := range SortedTemplates(tmpl) {
				str, err := utils.RenderTemplate(tmpl, t.Name(), vars)

				if err != nil {
					return err
				}

				fmt.Fprintln(ctx.App.Writer, Banner(t.Name()))
				fmt.Fprintln(ctx.App.Writer, str)
			}

			return nil
		},
	}
}

// SortedTemplates returns the named templates of tmpl ordered by name.
func SortedTemplates(tmpl *template.Template) []*template.Template {
	var res = slices.Clone(tmpl.Templates())

	slices.SortFunc(res, func(a, b *template.Template) int {
		return strings.Compare(a.Name(), b.Name())
	})

	return res
}

func Banner(name string) string {
	var line = strings.Repeat("-", 80)
	return line + "\n" + name + "\n" + line
}
