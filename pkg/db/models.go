package db

import "time"

// Run is one corpus run: a vocabulary build followed by scoring.
type Run struct {
	ID         string
	Corpus     string
	Window     int
	Threshold  float64
	ZeroPolicy string
	PairCount  int
	SameCount  int
	StartedAt  time.Time
	FinishedAt *time.Time
}

// Verdict is the stored outcome for one pair of a run.
type Verdict struct {
	RunID       string
	Position    int
	Word        string
	Sentence1   string
	Sentence2   string
	Index1      int
	Index2      int
	Similarity  float64
	SameContext bool
}
