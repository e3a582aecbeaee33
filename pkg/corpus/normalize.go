package corpus

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ErrTokenBoundary marks a normalization that would change how a sentence
// splits into tokens, which would invalidate the stored lemma indices.
var ErrTokenBoundary = errors.New("normalization changes token boundaries")

// ParseForm maps a configured form name (NFC, NFD) to its normalization
// form. The empty name reports false. Compatibility forms are rejected: they
// fold characters such as U+00A0 into plain spaces and so move tokens.
func ParseForm(name string) (norm.Form, bool, error) {
	switch strings.ToUpper(name) {
	case "":
		return norm.NFC, false, nil
	case "NFC":
		return norm.NFC, true, nil
	case "NFD":
		return norm.NFD, true, nil
	case "NFKC", "NFKD":
		return norm.NFC, false, fmt.Errorf("normalization form %s may change token boundaries, use NFC or NFD", strings.ToUpper(name))
	}
	return norm.NFC, false, fmt.Errorf("unknown normalization form %q", name)
}

// Normalize rewrites the lemma and both sentences of every pair into the
// given Unicode normalization form. Corpora assembled from different sources
// may mix precomposed and decomposed letters (č vs c + caron), which would
// otherwise count as different neighbour words.
//
// A pair whose sentences would split into a different number of tokens is
// left untouched and reported with ErrTokenBoundary.
func Normalize(pairs []Pair, form norm.Form) error {
	for i := range pairs {
		p := &pairs[i]
		s1, s2 := form.String(p.LemmaSentence1), form.String(p.LemmaSentence2)
		if tokenCount(s1) != tokenCount(p.LemmaSentence1) {
			return fmt.Errorf("pair %d: %w in %q", i, ErrTokenBoundary, p.LemmaSentence1)
		}
		if tokenCount(s2) != tokenCount(p.LemmaSentence2) {
			return fmt.Errorf("pair %d: %w in %q", i, ErrTokenBoundary, p.LemmaSentence2)
		}
		p.Word = form.String(p.Word)
		p.LemmaSentence1, p.LemmaSentence2 = s1, s2
	}
	return nil
}

// NormalizeNames rewrites lemma names into form.
func NormalizeNames(names []string, form norm.Form) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = form.String(n)
	}
	return out
}

func tokenCount(s string) int { return strings.Count(s, " ") + 1 }
