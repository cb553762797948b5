package rotation

import (
	"sort"
	"strings"
	"unicode"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"golang.org/x/text/unicode/norm"
)

// NormalizeName folds a display name for comparison: diacritics are
// stripped, letters lowercased and runs of whitespace collapsed to a
// single space. "  José   da SILVA " and "jose da silva" normalize equal.
func NormalizeName(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range norm.NFD.String(s) {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// nameMatcher compares candidate names against one normalized reference.
type nameMatcher struct {
	ref string
}

func newNameMatcher(ref string) nameMatcher {
	return nameMatcher{ref: NormalizeName(ref)}
}

// index returns the position of the first name equal to the reference or,
// failing that, the first name containing it.
func (m nameMatcher) index(names []string) (int, bool) {
	if m.ref == "" {
		return 0, false
	}
	normalized := make([]string, len(names))
	for i, n := range names {
		normalized[i] = NormalizeName(n)
		if normalized[i] == m.ref {
			return i, true
		}
	}
	for i, n := range normalized {
		if strings.Contains(n, m.ref) {
			return i, true
		}
	}
	return 0, false
}

// closestNames ranks candidates by fuzzy distance to ref and returns at
// most limit of them. Only used to enrich diagnostics.
func closestNames(ref string, candidates []string, limit int) []string {
	ranks := fuzzy.RankFindNormalizedFold(ref, candidates)
	sort.Sort(ranks)

	out := make([]string, 0, limit)
	for _, r := range ranks {
		if len(out) == limit {
			break
		}
		out = append(out, r.Target)
	}
	return out
}
