package bow

// Vocabulary is the finalized neighbour vocabulary of a corpus run. It is
// read-only: the scorer only accepts a Vocabulary, never a Builder, so
// scoring cannot start against a vocabulary that is still being built.
type Vocabulary struct {
	window    int
	lemmas    []string
	neighbors map[string][]string
	positions map[string]map[string]int
}

// Window returns the window size the vocabulary was built with.
func (v *Vocabulary) Window() int { return v.window }

// Lemmas returns the registered lemmas in first-seen order.
func (v *Vocabulary) Lemmas() []string {
	return append([]string(nil), v.lemmas...)
}

// Has reports whether lemma was registered during the build phase.
func (v *Vocabulary) Has(lemma string) bool {
	_, ok := v.neighbors[lemma]
	return ok
}

// Neighbors returns the neighbour words of lemma in first-seen order.
func (v *Vocabulary) Neighbors(lemma string) []string {
	return append([]string(nil), v.neighbors[lemma]...)
}

// Contains reports whether word is in the vocabulary of lemma.
func (v *Vocabulary) Contains(lemma, word string) bool {
	_, ok := v.positions[lemma][word]
	return ok
}

// Size returns the number of neighbour words known for lemma.
func (v *Vocabulary) Size(lemma string) int { return len(v.neighbors[lemma]) }

// Len returns the number of lemmas.
func (v *Vocabulary) Len() int { return len(v.lemmas) }

// TotalNeighbors returns the sum of vocabulary sizes over all lemmas.
func (v *Vocabulary) TotalNeighbors() int {
	total := 0
	for _, words := range v.neighbors {
		total += len(words)
	}
	return total
}
