package sqlfilter

import "strings"

const likeEscapeClause = `ESCAPE '\'`

var likeReplacer = strings.NewReplacer(
	`\`, `\\`,
	"%", `\%`,
	"_", `\_`,
)

func escapeLikePattern(value string) string {
	return likeReplacer.Replace(value)
}

func likePattern(value string, prefixWildcard, suffixWildcard bool) string {
	pattern := escapeLikePattern(value)
	if prefixWildcard {
		pattern = "%" + pattern
	}
	if suffixWildcard {
		pattern += "%"
	}
	return pattern
}
