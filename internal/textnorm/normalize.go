// Package textnorm provides Turkish text normalization: casing, diacritic
// folding, suffix stripping and phonetic variants.
package textnorm

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var folder = strings.NewReplacer(
	"ç", "c", "ğ", "g", "ı", "i", "ö", "o", "ş", "s", "ü", "u",
	"Ç", "c", "Ğ", "g", "İ", "i", "Ö", "o", "Ş", "s", "Ü", "u",
)

// Lower lowercases s with Turkish rules (İ→i, I→ı).
func Lower(s string) string {
	// A Caser is stateful; one per call keeps this safe for concurrent use.
	return cases.Lower(language.Turkish).String(s)
}

// Upper uppercases s with Turkish rules (i→İ, ı→I).
func Upper(s string) string {
	return cases.Upper(language.Turkish).String(s)
}

// Fold replaces Turkish diacritics with their ASCII base letters.
func Fold(s string) string {
	return folder.Replace(s)
}

// Normalize lowercases, folds diacritics, replaces punctuation with spaces
// and collapses whitespace. Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	s = Fold(Lower(s))

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			b.WriteRune(r)
			continue
		}
		b.WriteByte(' ')
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Tokens returns the whitespace tokens of Normalize(s).
func Tokens(s string) []string {
	return strings.Fields(Normalize(s))
}

// CleanLower lowercases with Turkish rules and trims, keeping diacritics.
// Rule tables written in Turkish are matched against this form.
func CleanLower(s string) string {
	return strings.Join(strings.Fields(Lower(s)), " ")
}

var suffixes = buildSuffixes(strings.Fields(
	"ları leri ının inin ına ine ında inde ından inden ıyla iyle ı i u ü ın in a e da de dan den la le sı si lık lik cı ci lı li",
))

// buildSuffixes adds the folded form of every suffix and orders the list
// longest first, keeping the original order among equal lengths.
func buildSuffixes(base []string) []string {
	seen := make(map[string]struct{}, len(base)*2)
	var out []string
	for _, s := range base {
		for _, v := range []string{s, Fold(s)} {
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return utf8.RuneCountInString(out[i]) > utf8.RuneCountInString(out[j])
	})
	return out
}

// StripSuffix removes the longest known suffix whose removal leaves a root of
// at least three characters. Words without such a suffix are returned as is.
func StripSuffix(word string) string {
	n := utf8.RuneCountInString(word)
	for _, suf := range suffixes {
		if !strings.HasSuffix(word, suf) {
			continue
		}
		if n-utf8.RuneCountInString(suf) >= 3 {
			return strings.TrimSuffix(word, suf)
		}
	}
	return word
}

var phoneticSwaps = []struct {
	from string
	to   []string
}{
	{"k", []string{"c"}},
	{"c", []string{"k", "ç"}},
	{"ç", []string{"c"}},
	{"ş", []string{"s"}},
	{"s", []string{"ş"}},
	{"ğ", []string{"g", ""}},
	{"g", []string{"ğ"}},
	{"ı", []string{"i"}},
	{"i", []string{"ı"}},
	{"ö", []string{"o"}},
	{"o", []string{"ö"}},
	{"ü", []string{"u"}},
	{"u", []string{"ü"}},
}

// PhoneticVariants returns word plus the spellings obtained by applying each
// fixed character swap to all of its occurrences. The result is sorted.
func PhoneticVariants(word string) []string {
	set := map[string]struct{}{word: {}}
	for _, sw := range phoneticSwaps {
		if !strings.Contains(word, sw.from) {
			continue
		}
		for _, to := range sw.to {
			set[strings.ReplaceAll(word, sw.from, to)] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

var typos = map[string]string{
	"afirka":  "afrika",
	"afrka":   "afrika",
	"hamle":   "hamile",
	"danteli": "dantelli",
	"geclik":  "gecelik",
	"gecelk":  "gecelik",
	"pjama":   "pijama",
	"pijma":   "pijama",
	"sabahlk": "sabahlik",
}

// CorrectTypos rewrites well-known misspellings token by token. The input is
// expected to be normalized.
func CorrectTypos(normalized string) string {
	tokens := strings.Fields(normalized)
	changed := false
	for i, tok := range tokens {
		if fix, ok := typos[tok]; ok {
			tokens[i] = fix
			changed = true
		}
	}
	if !changed {
		return normalized
	}
	return strings.Join(tokens, " ")
}
