package dataset

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// maxIdentLen is the shortest identifier limit among the bundled targets (Postgres).
const maxIdentLen = 63

// NormalizeName converts arbitrary header text into a lowercase ASCII
// identifier:
//  1. lowercase
//  2. strip accents (NFD, remove Mn, NFC)
//  3. keep [a-z0-9_]; space, dash and dot become underscore; parentheses and
//     everything else are dropped
//  4. fall back to "col" if empty
func NormalizeName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))

	t := transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		norm.NFC,
	)
	ascii, _, _ := transform.String(t, s)

	var b strings.Builder
	prevUnderscore := false
	for _, r := range ascii {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prevUnderscore = false
		case r == '_' || r == ' ' || r == '-' || r == '.':
			if !prevUnderscore {
				b.WriteRune('_')
				prevUnderscore = true
			}
		}
	}
	name := strings.Trim(b.String(), "_")
	if name == "" {
		return "col"
	}
	return truncateName(name)
}

// WarehouseName is NormalizeName upper-cased, the form Snowflake stores
// unquoted identifiers in.
func WarehouseName(s string) string {
	return strings.ToUpper(NormalizeName(s))
}

// truncateName keeps the first 10 and last 53 characters of an over-long name.
func truncateName(s string) string {
	if len(s) > maxIdentLen {
		return s[:10] + s[len(s)-(maxIdentLen-10):]
	}
	return s
}
