package search

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
)

// ftsSpecialChars are characters the FTS engine treats as query syntax; a
// bare token containing any of them (or a space) must be quoted to be matched
// literally. Note that '*' is deliberately absent so prefix queries like
// "pitcav*" keep working.
const ftsSpecialChars = `+-#':/.@$`

// rawOperatorRe detects boolean operator tokens that mark a query as
// already-valid FTS syntax. Case-sensitive: "and"/"or" appear in ordinary
// titles all the time.
var rawOperatorRe = regexp.MustCompile(`\b(AND|OR|NOT)\b`)

// isRawQuery reports whether the query should be passed through as boolean
// FTS syntax. A '(' also marks raw syntax, unless it opens "(R)" - the
// registered-trademark text that shows up in product names must not be
// mistaken for grouping.
func isRawQuery(query string) bool {
	if rawOperatorRe.MatchString(query) {
		return true
	}
	for i := 0; i < len(query); i++ {
		if query[i] != '(' {
			continue
		}
		rest := query[i+1:]
		if !strings.HasPrefix(rest, "R)") && !strings.HasPrefix(rest, "r)") {
			return true
		}
	}
	return false
}

// aliasMatch is one resolved alias substitution: a span of the original query
// and its pre-built replacement expression.
type aliasMatch struct {
	start, end int // rune offsets, half-open
	repl       string
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

// runeIndex returns the first occurrence of needle in haystack at or after
// from, or -1.
func runeIndex(haystack, needle []rune, from int) int {
	if len(needle) == 0 {
		return -1
	}
	for i := from; i+len(needle) <= len(haystack); i++ {
		match := true
		for j := range needle {
			if haystack[i+j] != needle[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

// findAliasMatches scans the query for alias keys, longest key first, on
// strict word boundaries. Every matched span is blanked in the scan buffer so
// later (shorter) keys cannot re-match inside it; a quote-wrapped match
// absorbs the quotes into its span. Matches come back ordered by offset.
func findAliasMatches(query string, aliases *Aliases) []aliasMatch {
	if aliases == nil || len(aliases.keys) == 0 {
		return nil
	}

	// Per-rune lowering keeps the scan buffer exactly as long as the
	// original, so spans map straight back for splicing.
	orig := []rune(query)
	low := make([]rune, len(orig))
	for i, r := range orig {
		low[i] = unicode.ToLower(r)
	}

	var matches []aliasMatch
	for _, key := range aliases.keys {
		needle := []rune(key)
		pos := 0
		for {
			i := runeIndex(low, needle, pos)
			if i < 0 {
				break
			}
			end := i + len(needle)
			// Strict word boundary: a key that is a substring of a larger
			// word must not trigger.
			if (i > 0 && isWordRune(low[i-1])) || (end < len(low) && isWordRune(low[end])) {
				pos = i + 1
				continue
			}
			repl, ok := aliases.expand(key)
			if !ok {
				pos = end
				continue
			}
			start := i
			// Consume wrapping quotes so the replacement isn't itself
			// embedded in a phrase.
			if start > 0 && end < len(low) && low[start-1] == '"' && low[end] == '"' {
				start--
				end++
			}
			matches = append(matches, aliasMatch{start: start, end: end, repl: repl})
			for j := start; j < end; j++ {
				low[j] = '\x01'
			}
			pos = end
		}
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].start < matches[j].start })
	return matches
}

// tokenize splits a query fragment into FTS terms, honouring user-supplied
// quoted phrases. An opening quote at the start of a word begins a phrase
// that runs until a word ending with a quote; an unterminated trailing quote
// is auto-closed. Stray quotes elsewhere are dropped. Tokens that trim to
// nothing are discarded.
func tokenize(fragment string) []string {
	var tokens []string
	emit := func(tok string) {
		tok = strings.TrimSpace(tok)
		if tok != "" {
			tokens = append(tokens, quoteToken(tok))
		}
	}

	inPhrase := false
	var phrase strings.Builder
	for _, word := range strings.Fields(fragment) {
		if inPhrase {
			if strings.HasSuffix(word, `"`) {
				phrase.WriteString(" ")
				phrase.WriteString(strings.TrimSuffix(word, `"`))
				emit(phrase.String())
				inPhrase = false
			} else {
				phrase.WriteString(" ")
				phrase.WriteString(word)
			}
			continue
		}
		if strings.HasPrefix(word, `"`) {
			rest := strings.TrimPrefix(word, `"`)
			if rest != "" && strings.HasSuffix(rest, `"`) {
				emit(strings.TrimSuffix(rest, `"`))
				continue
			}
			inPhrase = true
			phrase.Reset()
			phrase.WriteString(rest)
			continue
		}
		emit(strings.ReplaceAll(word, `"`, ""))
	}
	if inPhrase {
		emit(phrase.String()) // auto-close unterminated phrase
	}
	return tokens
}

// quoteToken wraps a term in quotes if it contains FTS special characters or
// whitespace, then doubles embedded single quotes (engine string-literal
// escaping).
func quoteToken(tok string) string {
	alreadyQuoted := len(tok) >= 2 && strings.HasPrefix(tok, `"`) && strings.HasSuffix(tok, `"`)
	if !alreadyQuoted && strings.ContainsAny(tok, ftsSpecialChars+" ") {
		tok = `"` + tok + `"`
	}
	return strings.ReplaceAll(tok, "'", "''")
}

// QuotePhrase unconditionally quotes and escapes a literal value for use in a
// match expression, e.g. author names in an identity search.
func QuotePhrase(val string) string {
	return `"` + strings.ReplaceAll(val, "'", "''") + `"`
}

// MakeQueryString compiles a user-typed query into an FTS match expression.
//
// Normal queries are tokenized and joined with an implicit AND; queries that
// already carry boolean syntax (AND/OR/NOT or grouping parens) pass through
// with only alias substitution applied. Alias matches are computed before
// tokenization and their replacement expressions are spliced in verbatim.
func MakeQueryString(query string, aliases *Aliases) string {
	query = strings.Join(strings.Fields(query), " ")
	if query == "" {
		return ""
	}

	raw := isRawQuery(query)
	matches := findAliasMatches(query, aliases)
	orig := []rune(query)

	var parts []string
	appendFragment := func(fragment string) {
		if raw {
			if fragment = strings.TrimSpace(fragment); fragment != "" {
				parts = append(parts, fragment)
			}
			return
		}
		parts = append(parts, tokenize(fragment)...)
	}

	pos := 0
	for _, m := range matches {
		appendFragment(string(orig[pos:m.start]))
		parts = append(parts, m.repl)
		pos = m.end
	}
	appendFragment(string(orig[pos:]))

	if raw {
		return strings.Join(parts, " ")
	}
	return strings.Join(parts, " AND ")
}
