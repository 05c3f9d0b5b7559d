package cli

import (
	"strconv"

	"github.com/spf13/cobra"

	filterql "github.com/nlstn/go-filterql"
)

type tokenView struct {
	Type  string `json:"type" yaml:"type"`
	Value string `json:"value" yaml:"value"`
	Pos   int    `json:"pos" yaml:"pos"`
	Len   int    `json:"len" yaml:"len"`
}

func (a *app) tokensCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tokens [filter]",
		Short: "Print the token stream of a filter",
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := a.readFilter(args)
			if err != nil {
				return err
			}

			tokens, err := filterql.Tokenize(input)
			if err != nil {
				return a.reportError(input, err)
			}

			views := make([]tokenView, 0, len(tokens))
			for _, tok := range tokens {
				if tok.Type == filterql.TokenEOF {
					break
				}
				views = append(views, tokenView{Type: tok.Type.String(), Value: tok.Value, Pos: tok.Pos, Len: tok.Len})
			}
			if ok, err := a.print(views); ok {
				return err
			}

			rows := make([][]string, len(views))
			for i, v := range views {
				rows[i] = []string{strconv.Itoa(v.Pos), strconv.Itoa(v.Len), v.Type, v.Value}
			}
			printTable(a.stdout, []string{"POS", "LEN", "TYPE", "VALUE"}, rows)
			return nil
		},
	}
}
