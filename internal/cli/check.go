package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	filterql "github.com/nlstn/go-filterql"
)

type checkOutput struct {
	Valid     bool                  `json:"valid" yaml:"valid"`
	Canonical string                `json:"canonical,omitempty" yaml:"canonical,omitempty"`
	Error     *filterql.ErrorDetail `json:"error,omitempty" yaml:"error,omitempty"`
}

func (a *app) checkCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check [filter]",
		Short: "Check that a filter is valid",
		Long: `Check parses a filter and reports the first error with its position.
The exit status is 1 when the filter is invalid.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := a.readFilter(args)
			if err != nil {
				return err
			}
			parser, err := a.newParser()
			if err != nil {
				return err
			}

			res, parseErr := parser.Parse(cmd.Context(), input)
			out := checkOutput{Valid: parseErr == nil}
			if parseErr != nil {
				detail := filterql.Describe(parseErr)
				out.Error = &detail
			} else {
				out.Canonical = res.Canonical()
			}

			if ok, err := a.print(out); ok {
				if err != nil {
					return err
				}
			} else if parseErr != nil {
				a.writeDiagnostic(a.stdout, input, parseErr)
			} else {
				fmt.Fprintf(a.stdout, "%s %s\n", a.palette().ok.Sprint("valid:"), out.Canonical)
			}

			if parseErr != nil {
				return ErrReported
			}
			return nil
		},
	}
}
