package cli

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	filterql "github.com/nlstn/go-filterql"
)

// location is a position in a filter resolved to a line and column.
type location struct {
	line   int // 1-based
	column int // 1-based, in runes
	text   string
}

func locate(input string, pos int) location {
	if pos < 0 {
		pos = 0
	}
	if pos > len(input) {
		pos = len(input)
	}
	start := strings.LastIndexByte(input[:pos], '\n') + 1
	end := strings.IndexByte(input[pos:], '\n')
	if end < 0 {
		end = len(input)
	} else {
		end += pos
	}
	return location{
		line:   strings.Count(input[:pos], "\n") + 1,
		column: utf8.RuneCountInString(input[start:pos]) + 1,
		text:   strings.TrimRight(input[start:end], "\r"),
	}
}

// writeDiagnostic reports err against the filter it came from:
//
//	error[UNEXPECTED_END]: unexpected end of input at position 5, ...
//	 --> 1:6
//	  |
//	1 | age >
//	  |      ^
func (a *app) writeDiagnostic(w io.Writer, input string, err error) {
	p := a.palette()
	detail := filterql.Describe(err)

	fmt.Fprintf(w, "%s %s\n", p.err.Sprintf("error[%s]:", detail.Code), detail.Message)
	if detail.Position == nil {
		return
	}

	loc := locate(input, *detail.Position)
	width := 1
	var lexErr *filterql.LexError
	if errors.As(err, &lexErr) && lexErr.Text != "" {
		width = utf8.RuneCountInString(lexErr.Text)
		if nl := strings.IndexByte(lexErr.Text, '\n'); nl >= 0 {
			width = utf8.RuneCountInString(lexErr.Text[:nl])
		}
		if width == 0 {
			width = 1
		}
	}

	gutter := strconv.Itoa(loc.line)
	pad := strings.Repeat(" ", len(gutter))
	fmt.Fprintf(w, "%s%s %d:%d\n", pad, p.muted.Sprint("-->"), loc.line, loc.column)
	fmt.Fprintf(w, "%s %s\n", pad, p.muted.Sprint("|"))
	fmt.Fprintf(w, "%s %s %s\n", p.muted.Sprint(gutter), p.muted.Sprint("|"), strings.ReplaceAll(loc.text, "\t", " "))
	fmt.Fprintf(w, "%s %s %s%s\n", pad, p.muted.Sprint("|"), strings.Repeat(" ", loc.column-1), p.caret.Sprint(strings.Repeat("^", width)))
}
