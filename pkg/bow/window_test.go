package bow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWindowClamping(t *testing.T) {
	cases := []struct {
		name       string
		length     int
		index, n   int
		start, end int
	}{
		{"middle", 10, 5, 2, 3, 8},
		{"start of sentence", 10, 0, 2, 0, 3},
		{"end of sentence", 10, 9, 2, 7, 10},
		{"window larger than sentence", 3, 1, 10, 0, 3},
		{"zero window", 5, 2, 0, 2, 3},
		{"single token", 1, 0, 3, 0, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			start, end := Window(tc.length, tc.index, tc.n)
			assert.Equal(t, tc.start, start)
			assert.Equal(t, tc.end, end)
		})
	}
}

func TestWindowProperties(t *testing.T) {
	for length := 1; length <= 8; length++ {
		for index := 0; index < length; index++ {
			for n := 0; n <= 4; n++ {
				start, end := Window(length, index, n)
				assert.GreaterOrEqual(t, start, 0)
				assert.LessOrEqual(t, end, length)
				assert.LessOrEqual(t, end-start, 2*n+1)
				assert.True(t, start <= index && index < end, "window must contain the target")
			}
		}
	}
}

func TestNeighborhood(t *testing.T) {
	tokens := Tokens("pes je velik crn pes")
	assert.Equal(t, []string{"pes", "je"}, Neighborhood(tokens, 0, 1))
	assert.Equal(t, []string{"velik", "crn", "pes"}, Neighborhood(tokens, 4, 2))
	assert.Equal(t, []string{"velik"}, Neighborhood(tokens, 2, 0))
}

func TestTokensKeepsEmptyTokens(t *testing.T) {
	assert.Equal(t, []string{"a", "", "b"}, Tokens("a  b"))
	assert.Equal(t, []string{"single"}, Tokens("single"))
}
