package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	filterql "github.com/nlstn/go-filterql"
)

type metadataView struct {
	Fields      []string `json:"fields" yaml:"fields"`
	CompareOps  []string `json:"compare_ops" yaml:"compare_ops"`
	LogicalOps  []string `json:"logical_ops" yaml:"logical_ops"`
	Functions   []string `json:"functions" yaml:"functions"`
	Fingerprint string   `json:"fingerprint" yaml:"fingerprint"`
}

func newMetadataView(md filterql.QueryMetadata) metadataView {
	view := metadataView{
		Fields:      append([]string{}, md.Fields()...),
		CompareOps:  []string{},
		LogicalOps:  []string{},
		Functions:   []string{},
		Fingerprint: fmt.Sprintf("%016x", md.Fingerprint()),
	}
	for _, op := range md.CompareOps() {
		view.CompareOps = append(view.CompareOps, op.Name())
	}
	for _, op := range md.LogicalOps() {
		view.LogicalOps = append(view.LogicalOps, op.Name())
	}
	for _, fn := range md.Functions() {
		view.Functions = append(view.Functions, fn.String())
	}
	return view
}

type parseOutput struct {
	Canonical string         `json:"canonical" yaml:"canonical"`
	AST       *filterql.Node `json:"ast" yaml:"ast"`
	Metadata  metadataView   `json:"metadata" yaml:"metadata"`
	Tokens    int            `json:"tokens" yaml:"tokens"`
	Depth     int            `json:"depth" yaml:"depth"`
}

type errorOutput struct {
	Error filterql.ErrorDetail `json:"error" yaml:"error"`
}

func (a *app) parseCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "parse [filter]",
		Short: "Parse a filter and print its syntax tree and metadata",
		Example: `  filterql parse 'age > 18 and lower(name) contains "an"'
  echo 'a = 1' | filterql parse -o yaml`,
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
			node, err := filterql.ToNode(res.Expr)
			if err != nil {
				return err
			}

			out := parseOutput{
				Canonical: res.Canonical(),
				AST:       node,
				Metadata:  newMetadataView(res.Metadata),
				Tokens:    res.Stats.Tokens,
				Depth:     res.Stats.Depth,
			}
			if ok, err := a.print(out); ok {
				return err
			}

			rows := [][]string{
				{"canonical:", out.Canonical},
				{"fields:", listOrNone(out.Metadata.Fields)},
				{"operators:", listOrNone(append(out.Metadata.CompareOps, out.Metadata.LogicalOps...))},
				{"functions:", listOrNone(out.Metadata.Functions)},
				{"fingerprint:", out.Metadata.Fingerprint},
			}
			for _, row := range rows {
				fmt.Fprintf(a.stdout, "%-12s %s\n", row[0], row[1])
			}
			return nil
		},
	}
}

// reportError writes a failed parse as a diagnostic on stderr, or as an
// error document in structured output modes.
func (a *app) reportError(input string, err error) error {
	if ok, printErr := a.print(errorOutput{Error: filterql.Describe(err)}); ok {
		if printErr != nil {
			return printErr
		}
		return ErrReported
	}
	a.writeDiagnostic(a.stderr, input, err)
	return ErrReported
}

func listOrNone(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	return strings.Join(items, ", ")
}
