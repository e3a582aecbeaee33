package bow

import (
	"fmt"

	"github.com/japaniel/wicbow/pkg/corpus"
)

// DefaultThreshold is the similarity above which two occurrences are judged
// to share a context.
const DefaultThreshold = 0.6

// Scorer turns occurrences into context vectors over a finalized vocabulary
// and decides same-context verdicts for pairs.
type Scorer struct {
	vocab     *Vocabulary
	threshold float64
	zero      ZeroPolicy
}

// ScorerOption configures a Scorer.
type ScorerOption func(*Scorer)

// WithThreshold sets the similarity threshold. A pair is judged same-context
// only when its similarity is strictly greater than the threshold.
func WithThreshold(t float64) ScorerOption {
	return func(s *Scorer) { s.threshold = t }
}

// WithZeroPolicy sets how comparisons involving all-zero vectors are scored.
func WithZeroPolicy(p ZeroPolicy) ScorerOption {
	return func(s *Scorer) { s.zero = p }
}

// NewScorer creates a scorer reading from vocab.
func NewScorer(vocab *Vocabulary, opts ...ScorerOption) (*Scorer, error) {
	if vocab == nil {
		return nil, fmt.Errorf("scorer requires a finalized vocabulary")
	}
	s := &Scorer{vocab: vocab, threshold: DefaultThreshold}
	for _, opt := range opts {
		opt(s)
	}
	if s.threshold < 0 || s.threshold > 1 {
		return nil, fmt.Errorf("%w: got %v", ErrThresholdRange, s.threshold)
	}
	return s, nil
}

// Threshold returns the configured threshold.
func (s *Scorer) Threshold() float64 { return s.threshold }

// Vocabulary returns the vocabulary the scorer reads from.
func (s *Scorer) Vocabulary() *Vocabulary { return s.vocab }

// ContextVector builds the context vector of the occurrence of lemma at
// index. Window tokens that are not in the lemma's vocabulary are dropped.
func (s *Scorer) ContextVector(tokens []string, lemma string, index int) (ContextVector, error) {
	if err := checkIndex(tokens, lemma, index); err != nil {
		return ContextVector{}, err
	}
	if !s.vocab.Has(lemma) {
		return ContextVector{}, &PreconditionError{
			Position: -1,
			Lemma:    lemma,
			Sentence: joinTokens(tokens),
			Index:    index,
			Err:      ErrUnknownLemma,
		}
	}

	keys := s.vocab.neighbors[lemma]
	positions := s.vocab.positions[lemma]
	v := ContextVector{
		lemma:     lemma,
		keys:      keys,
		positions: positions,
		counts:    make([]int, len(keys)),
		window:    append([]string(nil), Neighborhood(tokens, index, s.vocab.window)...),
	}
	for _, w := range v.window {
		if w == lemma {
			continue
		}
		i, ok := positions[w]
		if !ok {
			v.dropped++
			continue
		}
		v.counts[i]++
	}
	return v, nil
}

// Vectors returns the context vectors of both occurrences of a pair.
func (s *Scorer) Vectors(p corpus.Pair) (ContextVector, ContextVector, error) {
	v1, err := s.ContextVector(Tokens(p.LemmaSentence1), p.Word, p.LemmaWordIndex1)
	if err != nil {
		return ContextVector{}, ContextVector{}, err
	}
	v2, err := s.ContextVector(Tokens(p.LemmaSentence2), p.Word, p.LemmaWordIndex2)
	if err != nil {
		return ContextVector{}, ContextVector{}, err
	}
	return v1, v2, nil
}

// Score is the outcome of comparing the two occurrences of a pair.
type Score struct {
	Similarity  float64
	SameContext bool
	// Dropped counts window tokens of both occurrences missing from the vocabulary.
	Dropped int
}

// Similarity returns the cosine similarity of the two occurrences of p.
func (s *Scorer) Similarity(p corpus.Pair) (float64, error) {
	sc, err := s.score(p)
	return sc.Similarity, err
}

func (s *Scorer) score(p corpus.Pair) (Score, error) {
	v1, v2, err := s.Vectors(p)
	if err != nil {
		return Score{}, err
	}
	sim, err := s.zero.CosineSimilarity(v1, v2)
	if err != nil {
		return Score{}, &PreconditionError{
			Position: -1,
			Lemma:    p.Word,
			Sentence: p.LemmaSentence1,
			Index:    p.LemmaWordIndex1,
			Err:      err,
		}
	}
	return Score{
		Similarity:  sim,
		SameContext: sim > s.threshold,
		Dropped:     v1.Dropped() + v2.Dropped(),
	}, nil
}

// ScorePair compares the occurrences of p and records the verdict on it.
func (s *Scorer) ScorePair(p *corpus.Pair) (Score, error) {
	sc, err := s.score(*p)
	if err != nil {
		return Score{}, err
	}
	p.SetSameContext(sc.SameContext)
	return sc, nil
}

// ScoreAll annotates every pair in place and returns the scores in corpus
// order. It stops at the first pair that violates a precondition.
func (s *Scorer) ScoreAll(pairs []corpus.Pair) ([]Score, error) {
	scores := make([]Score, len(pairs))
	for i := range pairs {
		sc, err := s.ScorePair(&pairs[i])
		if err != nil {
			return nil, AtPosition(err, i)
		}
		scores[i] = sc
	}
	return scores, nil
}
