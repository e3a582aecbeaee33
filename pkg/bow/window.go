package bow

import "strings"

// Tokens splits a lemmatized sentence into tokens. Sentences arrive already
// lemmatized with tokens joined by single spaces, and occurrence indices are
// positions in exactly that split, so consecutive spaces yield empty tokens
// rather than being collapsed.
func Tokens(sentence string) []string {
	return strings.Split(sentence, " ")
}

// Window returns the half-open bounds [start, end) of the neighbourhood of
// size n around index in a sequence of the given length. Bounds are clamped
// to the sequence, so windows near the edges are silently truncated.
func Window(length, index, n int) (start, end int) {
	start = index - n
	if start < 0 {
		start = 0
	}
	end = index + n + 1
	if end > length {
		end = length
	}
	if start > end {
		start = end
	}
	return start, end
}

// Neighborhood returns the tokens inside the clamped window around index.
// The target token itself is part of the result; callers filter it out.
func Neighborhood(tokens []string, index, n int) []string {
	start, end := Window(len(tokens), index, n)
	return tokens[start:end]
}

func joinTokens(tokens []string) string {
	return strings.Join(tokens, " ")
}
