/*
Package textnorm holds the text utilities shared by extraction, classification
and learning: Turkish-aware case folding, query normalization, content-addressed
pattern ids and the one string-similarity implementation used everywhere.
*/
package textnorm

import (
	"crypto/md5"
	"encoding/hex"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// NumberPlaceholder replaces digit runs in pattern keys.
const NumberPlaceholder = "NUM"

var (
	digitRun = regexp.MustCompile(`\p{Nd}+`)
	titler   = cases.Title(language.Turkish)
)

// Fold lowercases s. Both dotted and dotless capital I fold to "i" so that
// "Bilgi İşlem", "BILGI ISLEM" and "bilgi işlem" compare equal, and English
// column names such as "ID" stay readable.
func Fold(s string) string {
	s = norm.NFC.String(s)

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case 'İ', 'I':
			b.WriteRune('i')
		case '\u0307':
			// combining dot above, left over from a decomposed İ
		default:
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// Title renders a label with Turkish title casing ("bilgi işlem" -> "Bilgi İşlem").
func Title(s string) string {
	return titler.String(strings.TrimSpace(s))
}

// Normalize folds case, removes punctuation and collapses whitespace.
func Normalize(q string) string {
	folded := Fold(q)

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '_':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// PatternKey is Normalize with every digit run replaced by NUM, so queries
// that differ only by literal numbers share a learned pattern.
func PatternKey(q string) string {
	return digitRun.ReplaceAllString(Normalize(q), NumberPlaceholder)
}

// Tokens returns the whitespace tokens of the normalized query.
func Tokens(q string) []string {
	n := Normalize(q)
	if n == "" {
		return []string{}
	}
	return strings.Split(n, " ")
}

// PatternID returns the content-addressed id of a query pattern.
func PatternID(q string) string {
	return "query_" + shortHash(PatternKey(q))
}

// ContextPatternID returns the id for a context signature (its sorted keys).
func ContextPatternID(keys []string) string {
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)
	return "context_" + shortHash(strings.Join(sorted, "_"))
}

func shortHash(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])[:8]
}

// ContainsAny reports whether s contains any of the substrings.
func ContainsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// MatchWord reports whether token is word or an inflected form of it.
// Words shorter than four runes must match exactly so that "kar" does not
// match "karşılaştır".
func MatchWord(token, word string) bool {
	if token == word {
		return true
	}
	return utf8.RuneCountInString(word) >= 4 && strings.HasPrefix(token, word)
}

// HasWord reports whether any token matches word. Multi-word phrases must
// match consecutive tokens.
func HasWord(tokens []string, word string) bool {
	parts := strings.Fields(word)
	if len(parts) == 0 {
		return false
	}
	for i := 0; i+len(parts) <= len(tokens); i++ {
		ok := true
		for j, p := range parts {
			if !MatchWord(tokens[i+j], p) {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}
