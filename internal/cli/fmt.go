package cli

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/spf13/cobra"
)

type fmtOutput struct {
	Input     string `json:"input" yaml:"input"`
	Canonical string `json:"canonical" yaml:"canonical"`
	Changed   bool   `json:"changed" yaml:"changed"`
	Diff      string `json:"diff,omitempty" yaml:"diff,omitempty"`
}

func (a *app) fmtCommand() *cobra.Command {
	var showDiff, check bool

	cmd := &cobra.Command{
		Use:   "fmt [filter]",
		Short: "Print a filter in canonical form",
		Long: `Fmt prints the canonical rendering of a filter: upper-case keywords,
double-quoted strings, normalized numbers and only the parentheses the
precedence rules require.

With --diff the changes from the input are shown inline as [-removed-]
and {+added+}. With --check the exit status is 1 when the input is not
already canonical.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := a.readFilter(args)
			if err != nil {
				return err
			}
			parser, err := a.newParser()
			if err != nil {
				return err
			}

			res, err := parser.Parse(cmd.Context(), input)
			if err != nil {
				return a.reportError(input, err)
			}

			out := fmtOutput{Input: input, Canonical: res.Canonical()}
			out.Changed = out.Canonical != input
			if showDiff && out.Changed {
				out.Diff = a.inlineDiff(input, out.Canonical, false)
			}

			if ok, err := a.print(out); ok {
				if err != nil {
					return err
				}
			} else if showDiff {
				if out.Changed {
					fmt.Fprintln(a.stdout, a.inlineDiff(input, out.Canonical, true))
				}
			} else {
				fmt.Fprintln(a.stdout, out.Canonical)
			}

			if check && out.Changed {
				if !showDiff && a.format() == formatText {
					fmt.Fprintln(a.stderr, "filter is not in canonical form")
				}
				return ErrReported
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showDiff, "diff", false, "show the changes canonical formatting makes")
	cmd.Flags().BoolVar(&check, "check", false, "exit 1 when the filter is not canonical")
	return cmd
}

// inlineDiff marks the character level changes from before to after.
func (a *app) inlineDiff(before, after string, colored bool) string {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffCleanupSemantic(dmp.DiffMain(before, after, false))

	p := a.palette()
	var b strings.Builder
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			text := "[-" + d.Text + "-]"
			if colored {
				text = p.deleted.Sprint(text)
			}
			b.WriteString(text)
		case diffmatchpatch.DiffInsert:
			text := "{+" + d.Text + "+}"
			if colored {
				text = p.added.Sprint(text)
			}
			b.WriteString(text)
		default:
			b.WriteString(d.Text)
		}
	}
	return b.String()
}
