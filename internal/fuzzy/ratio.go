package fuzzy

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

// Levenshtein returns the edit distance between a and b, counted in runes.
func Levenshtein(a, b string) int {
	return levenshtein.ComputeDistance(a, b)
}

// Ratio is 1 - distance/maxlen. Two empty strings are identical.
func Ratio(a, b string) float64 {
	if a == "" && b == "" {
		return 1
	}
	if a == "" || b == "" {
		return 0
	}
	n := max(len([]rune(a)), len([]rune(b)))
	return 1 - float64(Levenshtein(a, b))/float64(n)
}

// PartialRatio is the best Ratio of the shorter string against every window
// of the same length in the longer one.
func PartialRatio(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	short, long := []rune(a), []rune(b)
	if len(short) > len(long) {
		short, long = long, short
	}
	s := string(short)
	best := 0.0
	for i := 0; i+len(short) <= len(long); i++ {
		r := Ratio(s, string(long[i:i+len(short)]))
		if r > best {
			best = r
			if best == 1 {
				break
			}
		}
	}
	return best
}

// TokenSortRatio compares the strings after sorting their tokens.
func TokenSortRatio(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	return Ratio(sortedTokens(a), sortedTokens(b))
}

// TokenSetRatio is the Jaccard index of the two token sets.
func TokenSetRatio(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	sa := tokenSet(a)
	sb := tokenSet(b)
	union := len(sa)
	inter := 0
	for t := range sb {
		if _, ok := sa[t]; ok {
			inter++
		} else {
			union++
		}
	}
	if union == 0 {
		return 1
	}
	return float64(inter) / float64(union)
}

func sortedTokens(s string) string {
	f := strings.Fields(s)
	sort.Strings(f)
	return strings.Join(f, " ")
}

func tokenSet(s string) map[string]struct{} {
	f := strings.Fields(s)
	set := make(map[string]struct{}, len(f))
	for _, t := range f {
		set[t] = struct{}{}
	}
	return set
}
