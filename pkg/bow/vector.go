package bow

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// ContextVector counts how often each vocabulary word of a lemma occurs in
// the window of one occurrence. Its key set is always the lemma's vocabulary.
type ContextVector struct {
	lemma     string
	keys      []string
	positions map[string]int
	counts    []int
	window    []string
	dropped   int
}

// Lemma returns the lemma the vector was built for.
func (c ContextVector) Lemma() string { return c.lemma }

// Keys returns the vector's words in vocabulary order.
func (c ContextVector) Keys() []string { return append([]string(nil), c.keys...) }

// Len returns the number of dimensions.
func (c ContextVector) Len() int { return len(c.keys) }

// Count returns the count for word and whether word is a key of the vector.
func (c ContextVector) Count(word string) (int, bool) {
	i, ok := c.positions[word]
	if !ok {
		return 0, false
	}
	return c.counts[i], true
}

// Counts returns the vector as a word to count mapping.
func (c ContextVector) Counts() map[string]int {
	out := make(map[string]int, len(c.keys))
	for i, k := range c.keys {
		out[k] = c.counts[i]
	}
	return out
}

// Values returns the counts in key order.
func (c ContextVector) Values() []float64 {
	out := make([]float64, len(c.counts))
	for i, n := range c.counts {
		out[i] = float64(n)
	}
	return out
}

// IsZero reports whether every count is zero.
func (c ContextVector) IsZero() bool {
	for _, n := range c.counts {
		if n != 0 {
			return false
		}
	}
	return true
}

// Window returns the tokens of the occurrence window, target included.
func (c ContextVector) Window() []string { return append([]string(nil), c.window...) }

// Dropped returns how many window tokens were not in the vocabulary. A
// non-zero value means the vector was built against a vocabulary that never
// saw this occurrence.
func (c ContextVector) Dropped() int { return c.dropped }

// ZeroPolicy decides the similarity of comparisons involving an all-zero
// vector, for which cosine similarity is undefined.
type ZeroPolicy int

const (
	// ZeroAsDifferent scores any comparison with a zero vector as 0.
	ZeroAsDifferent ZeroPolicy = iota
	// ZeroBothAsSame scores two zero vectors as 1 and a single zero vector as 0.
	ZeroBothAsSame
)

// ParseZeroPolicy maps a configuration name to a ZeroPolicy.
func ParseZeroPolicy(name string) (ZeroPolicy, error) {
	switch name {
	case "", "different":
		return ZeroAsDifferent, nil
	case "same":
		return ZeroBothAsSame, nil
	}
	return ZeroAsDifferent, fmt.Errorf("unknown zero vector policy %q", name)
}

func (p ZeroPolicy) String() string {
	if p == ZeroBothAsSame {
		return "same"
	}
	return "different"
}

func (p ZeroPolicy) similarity(aZero, bZero bool) float64 {
	if p == ZeroBothAsSame && aZero && bZero {
		return 1
	}
	return 0
}

// CosineSimilarity compares two context vectors under ZeroAsDifferent.
func CosineSimilarity(a, b ContextVector) (float64, error) {
	return ZeroAsDifferent.CosineSimilarity(a, b)
}

// CosineSimilarity returns 1 - cosine distance of the two vectors, clamped
// to [0, 1] since counts are never negative. Values are read in a's key
// order; b must have exactly the same keys.
func (p ZeroPolicy) CosineSimilarity(a, b ContextVector) (float64, error) {
	if len(a.keys) != len(b.keys) {
		return 0, fmt.Errorf("%w: %d vs %d dimensions", ErrKeyMismatch, len(a.keys), len(b.keys))
	}
	va := make([]float64, len(a.keys))
	vb := make([]float64, len(a.keys))
	for i, k := range a.keys {
		j, ok := b.positions[k]
		if !ok {
			return 0, fmt.Errorf("%w: %q missing", ErrKeyMismatch, k)
		}
		va[i] = float64(a.counts[i])
		vb[i] = float64(b.counts[j])
	}

	na, nb := floats.Norm(va, 2), floats.Norm(vb, 2)
	if na == 0 || nb == 0 {
		return p.similarity(na == 0, nb == 0), nil
	}
	distance := 1 - floats.Dot(va, vb)/(na*nb)
	return clamp(1-distance, 0, 1), nil
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}
