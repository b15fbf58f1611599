package provider

import (
	"regexp"
	"strings"
)

// Providers index by card name, not printed number, so trailing number
// suffixes ("Pikachu - 025", "Pikachu #025", "Pikachu 025/185") only hurt
// recall and are stripped before searching.
var trailingNumberPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\s+-\s+\d+(?:/\d+)?\s*$`),
	regexp.MustCompile(`\s+#\d+\s*$`),
	regexp.MustCompile(`\s+\d+/\d+\s*$`),
}

var smartQuoteReplacer = strings.NewReplacer(
	"‘", "'",
	"’", "'",
	"“", `"`,
	"”", `"`,
)

// SanitizeQuery normalizes smart quotes to their ASCII equivalents and
// strips trailing card-number suffixes.
func SanitizeQuery(query string) string {
	q := smartQuoteReplacer.Replace(query)
	for _, re := range trailingNumberPatterns {
		q = re.ReplaceAllString(q, "")
	}
	return strings.TrimSpace(q)
}
