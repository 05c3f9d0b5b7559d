// Package etag derives entity tags for parse results and evaluates
// conditional request headers against them.
package etag

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Variant names the representation a tag was issued for. A minimal
// response carries no tree, so it never validates a full one.
type Variant string

const (
	VariantFull    Variant = "full"
	VariantMinimal Variant = "minimal"
)

// Generate returns a weak entity tag for the parse result whose canonical
// text is canonical. Equal canonical text means an equal tree, so the tag
// is stable across cache hits; it is weak because the cached flag in the
// body may still differ.
func Generate(canonical string, variant Variant) string {
	return fmt.Sprintf(`W/"%016x-%s"`, xxhash.Sum64String(canonical), variant)
}

// Parse extracts the opaque value from a quoted entity tag.
// Handles both strong ("value") and weak (W/"value") tags.
func Parse(tag string) string {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return ""
	}

	tag = strings.TrimPrefix(tag, "W/")
	if len(tag) >= 2 && tag[0] == '"' && tag[len(tag)-1] == '"' {
		return tag[1 : len(tag)-1]
	}
	return tag
}

// NoneMatch reports whether the If-None-Match header value does not match
// current, meaning the full response should be sent. A false result means
// the client copy is current and 304 Not Modified applies.
//
// The header may list several tags separated by commas; comparison is weak.
func NoneMatch(ifNoneMatch, current string) bool {
	ifNoneMatch = strings.TrimSpace(ifNoneMatch)
	if ifNoneMatch == "" {
		return true
	}
	if ifNoneMatch == "*" {
		return current == ""
	}

	want := Parse(current)
	for _, candidate := range strings.Split(ifNoneMatch, ",") {
		if Parse(candidate) == want {
			return false
		}
	}
	return true
}
