package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	filterql "github.com/nlstn/go-filterql"
)

type functionView struct {
	filterql.FunctionSpec `yaml:",inline"`
	Arity                 string `json:"arity" yaml:"arity"`
}

func (a *app) functionsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "functions",
		Short: "List the functions filters may call",
		Long: `Functions lists the built-in functions together with those added by
the --functions catalog file. Aggregate functions can be parsed but are
rejected by the SQL translation.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := a.functions()
			if err != nil {
				return err
			}
			specs := catalog.Specs()

			views := make([]functionView, len(specs))
			for i, spec := range specs {
				views[i] = functionView{FunctionSpec: spec, Arity: spec.ArityText()}
			}
			if ok, err := a.print(views); ok {
				return err
			}

			rows := make([][]string, len(specs))
			for i, spec := range specs {
				aggregate := ""
				if spec.Aggregate {
					aggregate = "yes"
				}
				rows[i] = []string{spec.Name, argRange(spec), aggregate, spec.Description}
			}
			printTable(a.stdout, []string{"NAME", "ARGS", "AGGREGATE", "DESCRIPTION"}, rows)
			return nil
		},
	}
}

func argRange(spec filterql.FunctionSpec) string {
	switch {
	case spec.MaxArgs == filterql.Unbounded:
		return fmt.Sprintf("%d+", spec.MinArgs)
	case spec.MinArgs == spec.MaxArgs:
		return fmt.Sprint(spec.MinArgs)
	}
	return fmt.Sprintf("%d-%d", spec.MinArgs, spec.MaxArgs)
}
