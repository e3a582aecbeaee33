package bow

import (
	"errors"
	"fmt"
)

var (
	// ErrNegativeWindow is returned when a builder is created with n < 0.
	ErrNegativeWindow = errors.New("window size must be non-negative")
	// ErrBuilderFinalized is returned by Register after Finalize was called.
	ErrBuilderFinalized = errors.New("vocabulary builder already finalized")
	// ErrIndexOutOfRange marks an occurrence index outside its sentence.
	ErrIndexOutOfRange = errors.New("occurrence index out of range")
	// ErrUnknownLemma marks a lemma that was never registered during the build pass.
	ErrUnknownLemma = errors.New("lemma not present in vocabulary")
	// ErrKeyMismatch is returned when two context vectors do not share a key set.
	ErrKeyMismatch = errors.New("context vectors have different keys")
	// ErrThresholdRange is returned for a similarity threshold outside [0, 1].
	ErrThresholdRange = errors.New("threshold must be within [0, 1]")
)

// PreconditionError identifies the occurrence that violated an input
// precondition. Position is the pair's position in the corpus, or -1 when
// the occurrence was not processed as part of a corpus.
type PreconditionError struct {
	Position int
	Lemma    string
	Sentence string
	Index    int
	Err      error
}

func (e *PreconditionError) Error() string {
	if e.Position >= 0 {
		return fmt.Sprintf("pair %d: lemma %q at index %d in %q: %v", e.Position, e.Lemma, e.Index, e.Sentence, e.Err)
	}
	return fmt.Sprintf("lemma %q at index %d in %q: %v", e.Lemma, e.Index, e.Sentence, e.Err)
}

func (e *PreconditionError) Unwrap() error { return e.Err }

func checkIndex(tokens []string, lemma string, index int) error {
	if index < 0 || index >= len(tokens) {
		return &PreconditionError{
			Position: -1,
			Lemma:    lemma,
			Sentence: joinTokens(tokens),
			Index:    index,
			Err:      fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, index, len(tokens)),
		}
	}
	return nil
}

// AtPosition stamps a corpus position onto the precondition error wrapped
// in err, if any, and returns err.
func AtPosition(err error, position int) error {
	var pe *PreconditionError
	if errors.As(err, &pe) {
		pe.Position = position
	}
	return err
}
