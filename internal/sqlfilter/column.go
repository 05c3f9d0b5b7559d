package sqlfilter

import (
	"fmt"
	"strings"
)

// quoteIdent quotes an identifier with double quotes, which sqlite and
// postgres both accept. Embedded double quotes are doubled.
func quoteIdent(ident string) string {
	if ident == "" {
		return ident
	}
	return fmt.Sprintf(`"%s"`, strings.ReplaceAll(ident, `"`, `""`))
}

// quoteColumn quotes each dotted segment of a column reference.
func quoteColumn(column string) string {
	segments := strings.Split(column, ".")
	for i, s := range segments {
		segments[i] = quoteIdent(s)
	}
	return strings.Join(segments, ".")
}

// toSnakeCase converts "createdAt" to "created_at" and "ProductID" to "product_id".
func toSnakeCase(s string) string {
	var result strings.Builder
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' {
			prev := rune(s[i-1])
			if prev >= 'a' && prev <= 'z' {
				result.WriteRune('_')
			} else if i < len(s)-1 {
				// "XMLParser" -> "xml_parser"
				next := rune(s[i+1])
				if next >= 'a' && next <= 'z' {
					result.WriteRune('_')
				}
			}
		}
		result.WriteRune(r)
	}
	return strings.ToLower(result.String())
}

// defaultColumn maps a field to its column when Options.Columns has no entry.
func defaultColumn(field string) string {
	segments := strings.Split(field, ".")
	for i, s := range segments {
		segments[i] = toSnakeCase(s)
	}
	return strings.Join(segments, ".")
}
