// Package preference parses the Prefer request header (RFC 7240).
package preference

import (
	"net/http"
	"strings"
)

// Preference holds the preferences the API understands.
type Preference struct {
	// ReturnMinimal asks for the response without the syntax tree.
	ReturnMinimal bool
}

// ParsePrefer parses the Prefer header of r. Unknown preferences are
// ignored, and return=representation is the default.
func ParsePrefer(r *http.Request) Preference {
	var pref Preference
	for _, header := range r.Header.Values("Prefer") {
		for _, p := range strings.Split(header, ",") {
			p = strings.ToLower(strings.TrimSpace(p))
			// Parameters after ';' do not change the preference itself.
			if i := strings.IndexByte(p, ';'); i >= 0 {
				p = strings.TrimSpace(p[:i])
			}

			switch strings.ReplaceAll(p, " ", "") {
			case "return=minimal":
				pref.ReturnMinimal = true
			case "return=representation":
				pref.ReturnMinimal = false
			}
		}
	}
	return pref
}

// Applied returns the Preference-Applied header value, or "" when the
// default representation is sent.
func (p Preference) Applied() string {
	if p.ReturnMinimal {
		return "return=minimal"
	}
	return ""
}
