// Package bow implements bag-of-words context comparison for word
// occurrences: a per-lemma vocabulary of neighbouring words is collected over
// a corpus, then every occurrence is turned into a frequency vector over that
// vocabulary and two occurrences are compared by cosine similarity.
package bow

import (
	"fmt"

	"github.com/japaniel/wicbow/pkg/corpus"
)

// Builder accumulates, for each lemma, every distinct neighbour word seen
// within the window around any of its occurrences. A Builder is used for a
// single corpus run and handed to the scorer through Finalize.
type Builder struct {
	n         int
	lemmas    []string
	order     map[string][]string
	seen      map[string]map[string]struct{}
	finalized bool
}

// NewBuilder creates a builder for windows of n tokens on each side.
func NewBuilder(n int) (*Builder, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: got %d", ErrNegativeWindow, n)
	}
	return &Builder{
		n:     n,
		order: make(map[string][]string),
		seen:  make(map[string]map[string]struct{}),
	}, nil
}

// Window returns the window size the builder was created with.
func (b *Builder) Window() int { return b.n }

// Register records the neighbours of the occurrence of lemma at index.
// Only membership is tracked; registering the same occurrence twice leaves
// the vocabulary unchanged. Tokens equal to the lemma are never added.
func (b *Builder) Register(tokens []string, lemma string, index int) error {
	if b.finalized {
		return ErrBuilderFinalized
	}
	if err := checkIndex(tokens, lemma, index); err != nil {
		return err
	}

	words, ok := b.seen[lemma]
	if !ok {
		words = make(map[string]struct{})
		b.seen[lemma] = words
		b.lemmas = append(b.lemmas, lemma)
	}
	for _, w := range Neighborhood(tokens, index, b.n) {
		if w == lemma {
			continue
		}
		if _, dup := words[w]; dup {
			continue
		}
		words[w] = struct{}{}
		b.order[lemma] = append(b.order[lemma], w)
	}
	return nil
}

// RegisterPair registers both occurrences of a pair, sentence1 first.
func (b *Builder) RegisterPair(p corpus.Pair) error {
	if err := b.Register(Tokens(p.LemmaSentence1), p.Word, p.LemmaWordIndex1); err != nil {
		return err
	}
	return b.Register(Tokens(p.LemmaSentence2), p.Word, p.LemmaWordIndex2)
}

// Finalize closes the build phase and returns an immutable snapshot of the
// vocabulary. Further calls to Register fail with ErrBuilderFinalized.
func (b *Builder) Finalize() *Vocabulary {
	b.finalized = true

	v := &Vocabulary{
		window:    b.n,
		lemmas:    append([]string(nil), b.lemmas...),
		neighbors: make(map[string][]string, len(b.lemmas)),
		positions: make(map[string]map[string]int, len(b.lemmas)),
	}
	for _, lemma := range b.lemmas {
		words := append([]string(nil), b.order[lemma]...)
		pos := make(map[string]int, len(words))
		for i, w := range words {
			pos[w] = i
		}
		v.neighbors[lemma] = words
		v.positions[lemma] = pos
	}
	return v
}

// Build runs the build phase over a whole corpus, registering both sides of
// every pair in corpus order.
func Build(pairs []corpus.Pair, n int) (*Vocabulary, error) {
	b, err := NewBuilder(n)
	if err != nil {
		return nil, err
	}
	for i, p := range pairs {
		if err := b.RegisterPair(p); err != nil {
			return nil, AtPosition(err, i)
		}
	}
	return b.Finalize(), nil
}
