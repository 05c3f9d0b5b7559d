package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"
)

// print writes data in the selected structured format. It reports false
// for text output, which each command renders itself.
func (a *app) print(data any) (bool, error) {
	switch a.format() {
	case formatJSON:
		return true, printJSON(a.stdout, data)
	case formatYAML:
		return true, printYAML(a.stdout, data)
	}
	return false, nil
}

// printJSON outputs data as formatted JSON
func printJSON(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("error encoding JSON: %w", err)
	}
	return nil
}

// printYAML outputs data as YAML
func printYAML(w io.Writer, data any) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("error encoding YAML: %w", err)
	}
	return encoder.Close()
}

// printTable outputs data in a human-readable table format
func printTable(w io.Writer, headers []string, rows [][]string) {
	if len(rows) == 0 {
		return
	}

	widths := make([]int, len(headers))
	for i, header := range headers {
		widths[i] = len(header)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	writeRow := func(cells []string) {
		var b strings.Builder
		for i, cell := range cells {
			if i >= len(widths) {
				break
			}
			if i == len(cells)-1 {
				b.WriteString(cell)
				break
			}
			fmt.Fprintf(&b, "%-*s  ", widths[i], cell)
		}
		fmt.Fprintln(w, strings.TrimRight(b.String(), " "))
	}

	writeRow(headers)
	seps := make([]string, len(headers))
	for i := range headers {
		seps[i] = strings.Repeat("-", widths[i])
	}
	writeRow(seps)
	for _, row := range rows {
		writeRow(row)
	}
}

// palette holds the colours used for diagnostics.
type palette struct {
	err     *color.Color
	ok      *color.Color
	caret   *color.Color
	deleted *color.Color
	added   *color.Color
	muted   *color.Color
}

func (a *app) palette() palette {
	p := palette{
		err:     color.New(color.FgRed, color.Bold),
		ok:      color.New(color.FgGreen),
		caret:   color.New(color.FgRed),
		deleted: color.New(color.FgRed),
		added:   color.New(color.FgGreen),
		muted:   color.New(color.Faint),
	}
	if a.v.GetBool("no-color") {
		for _, c := range []*color.Color{p.err, p.ok, p.caret, p.deleted, p.added, p.muted} {
			c.DisableColor()
		}
	}
	return p
}
