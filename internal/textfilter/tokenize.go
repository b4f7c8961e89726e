// Package textfilter turns free-text search strings into structured filters.
//
// A search string is split into tokens (SplitInput), each token is matched
// against an ordered rule table by case-insensitive key prefix, and the
// matching rule folds the token payload into the filter.
package textfilter

import (
	"regexp"
	"strings"
)

// Token alternatives, in priority order:
//
//	key:"quoted value"
//	key:value
//	!"quoted value"
//	"quoted value"
//	run of non-space characters
//
// Every alternative must be followed by whitespace, which is why SplitInput
// appends a trailing space before matching.
var tokenPattern = regexp.MustCompile(`(\S+:"[^"]*"|\S+:\S+|!"[^"]*"|"[^"]*"|\S+)\s`)

// SplitInput splits a search string into trimmed tokens, keeping quoted
// segments and key:value pairs intact.
func SplitInput(input string) []string {
	matches := tokenPattern.FindAllStringSubmatch(input+" ", -1)
	tokens := make([]string, 0, len(matches))
	for _, m := range matches {
		tok := strings.TrimSpace(m[1])
		if tok == "" {
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

// Unpack removes key from the front of token when present (case-insensitive),
// trims whitespace and strips one layer of surrounding double quotes.
func Unpack(token, key string) string {
	out := token
	if key != "" && hasPrefixFold(out, key) {
		out = out[len(key):]
	}
	out = strings.TrimSpace(out)
	if len(out) >= 2 && out[0] == '"' && out[len(out)-1] == '"' {
		out = out[1 : len(out)-1]
	}
	return out
}

// Quote wraps value in double quotes when it contains whitespace, so it
// survives being re-tokenized as part of a nested filter.
func Quote(value string) string {
	if strings.ContainsAny(value, " \t\n") {
		return `"` + value + `"`
	}
	return value
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}
