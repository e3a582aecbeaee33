package pipeline

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/japaniel/wicbow/pkg/bow"
	"github.com/japaniel/wicbow/pkg/config"
	"github.com/japaniel/wicbow/pkg/corpus"
	"github.com/japaniel/wicbow/pkg/db"
	"github.com/japaniel/wicbow/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dogPairs() []corpus.Pair {
	return []corpus.Pair{
		{Word: "pes", LemmaSentence1: "pes je velik crn pes", LemmaSentence2: "mali pes je lajal glasno", LemmaWordIndex1: 0, LemmaWordIndex2: 1},
		{Word: "klop", LemmaSentence1: "klop v parku", LemmaSentence2: "klop na psu", LemmaWordIndex1: 0, LemmaWordIndex2: 0},
	}
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Window = 1
	cfg.DBBatchSize = 2
	return cfg
}

func TestRunScoresPairs(t *testing.T) {
	r := NewRunner(testConfig(t), nil)
	pairs := dogPairs()

	res, err := r.Run(context.Background(), "dogs", pairs)
	require.NoError(t, err)

	assert.Empty(t, res.RunID, "no database configured")
	require.Len(t, res.Scores, 2)
	assert.InDelta(t, 1/math.Sqrt2, res.Scores[0].Similarity, 1e-9)
	assert.True(t, res.Scores[0].SameContext)
	assert.Equal(t, 0.0, res.Scores[1].Similarity)
	assert.False(t, res.Scores[1].SameContext)
	assert.Equal(t, 1, res.SameCount)

	assert.Equal(t, []string{"je", "mali"}, res.Vocabulary.Neighbors("pes"))
	assert.Equal(t, []string{"v", "na"}, res.Vocabulary.Neighbors("klop"))

	require.True(t, pairs[0].Scored())
	assert.True(t, pairs[0].Same())
	require.True(t, pairs[1].Scored())
	assert.False(t, pairs[1].Same())
}

func TestRunReportsPairPosition(t *testing.T) {
	r := NewRunner(testConfig(t), nil)
	pairs := dogPairs()
	pairs[1].LemmaWordIndex2 = 7

	_, err := r.Run(context.Background(), "dogs", pairs)
	require.Error(t, err)
	assert.True(t, errors.Is(err, bow.ErrIndexOutOfRange))

	var pe *bow.PreconditionError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 1, pe.Position)
	assert.Equal(t, "klop", pe.Lemma)
}

func TestRunHonorsCancellation(t *testing.T) {
	r := NewRunner(testConfig(t), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Run(ctx, "dogs", dogPairs())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunRejectsBadThreshold(t *testing.T) {
	cfg := testConfig(t)
	cfg.Threshold = 1.5
	_, err := NewRunner(cfg, nil).Run(context.Background(), "dogs", dogPairs())
	assert.ErrorIs(t, err, bow.ErrThresholdRange)
}

func TestRunPersistsAndObserves(t *testing.T) {
	for _, driver := range db.Drivers {
		t.Run(driver, func(t *testing.T) {
			conn, err := db.Open(driver, ":memory:")
			require.NoError(t, err)
			t.Cleanup(func() { conn.Close() })

			r := NewRunner(testConfig(t), nil)
			r.DB = conn
			r.Metrics = metrics.New()

			res, err := r.Run(context.Background(), "dogs", dogPairs())
			require.NoError(t, err)
			require.NotEmpty(t, res.RunID)

			run, err := db.GetRun(conn, res.RunID)
			require.NoError(t, err)
			assert.Equal(t, "dogs", run.Corpus)
			assert.Equal(t, 1, run.Window)
			assert.Equal(t, 2, run.PairCount)
			assert.Equal(t, 1, run.SameCount)
			assert.NotNil(t, run.FinishedAt)

			words, err := db.GetVocabulary(conn, res.RunID, "pes")
			require.NoError(t, err)
			assert.Equal(t, []string{"je", "mali"}, words)

			verdicts, err := db.GetVerdicts(conn, res.RunID)
			require.NoError(t, err)
			require.Len(t, verdicts, 2)
			assert.True(t, verdicts[0].SameContext)
			assert.False(t, verdicts[1].SameContext)
			assert.InDelta(t, 1/math.Sqrt2, verdicts[0].Similarity, 1e-9)

			assert.Equal(t, 2.0, testutil.ToFloat64(r.Metrics.PairsScored.WithLabelValues("dogs")))
			assert.Equal(t, 1.0, testutil.ToFloat64(r.Metrics.SameContext.WithLabelValues("dogs")))
			assert.Equal(t, 2.0, testutil.ToFloat64(r.Metrics.Lemmas.WithLabelValues("dogs")))
		})
	}
}

func TestRunNormalizes(t *testing.T) {
	cfg := testConfig(t)
	cfg.Normalize = "nfc"
	pairs := []corpus.Pair{{
		Word:            "c\u030crn",
		LemmaSentence1:  "c\u030crn pes",
		LemmaSentence2:  "\u010drn mak",
		LemmaWordIndex1: 0,
		LemmaWordIndex2: 0,
	}}

	res, err := NewRunner(cfg, nil).Run(context.Background(), "colors", pairs)
	require.NoError(t, err)
	assert.Equal(t, "\u010drn pes", res.Pairs[0].LemmaSentence1)
	assert.Equal(t, []string{"pes", "mak"}, res.Vocabulary.Neighbors("\u010drn"))
}

func TestScoreFile(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "dogs.json")
	out := filepath.Join(dir, "out", "scored.json")
	require.NoError(t, corpus.Save(in, dogPairs()))

	res, err := NewRunner(testConfig(t), nil).ScoreFile(context.Background(), in, out)
	require.NoError(t, err)
	assert.Equal(t, "dogs", res.Corpus)

	saved, err := corpus.Load(out)
	require.NoError(t, err)
	require.Len(t, saved, 2)
	assert.True(t, saved[0].Same())
	require.True(t, saved[1].Scored())
	assert.False(t, saved[1].Same())
}

func TestRunAll(t *testing.T) {
	dir := t.TempDir()
	validated := filepath.Join(dir, "validated")

	gold := dogPairs()
	gold[0].SetSameContext(true)
	gold[1].SetSameContext(true)
	require.NoError(t, corpus.Save(filepath.Join(validated, "pes.json"), gold[:1]))
	require.NoError(t, corpus.Save(filepath.Join(validated, "klop.json"), gold[1:]))
	require.NoError(t, corpus.Save(filepath.Join(dir, "data.json"), dogPairs()))

	cfg := testConfig(t)
	cfg.DataFile = filepath.Join(dir, "data.json")
	cfg.ResultsFile = filepath.Join(dir, "results.json")
	cfg.PartResultsFile = filepath.Join(dir, "part.json")
	cfg.ValidatedCorpusDir = validated
	cfg.Homonyms = []string{"pes", "klop"}
	cfg.ReportFile = filepath.Join(dir, "report.yaml")
	cfg.MetricsFile = filepath.Join(dir, "wicbow.prom")

	r := NewRunner(cfg, nil)
	r.Metrics = metrics.New()
	sum, err := r.RunAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, sum.Main.SameCount)
	assert.Equal(t, 1, sum.Validated.SameCount)
	assert.NotSame(t, sum.Main.Vocabulary, sum.Validated.Vocabulary)

	require.NotNil(t, sum.Report)
	assert.Equal(t, 2, sum.Report.Overall.Pairs)
	assert.Equal(t, 1, sum.Report.Overall.TruePositive)
	assert.Equal(t, 1, sum.Report.Overall.FalseNegative)

	for _, path := range []string{cfg.ResultsFile, cfg.PartResultsFile, cfg.ReportFile, cfg.MetricsFile} {
		assert.FileExists(t, path)
	}

	// the validated files keep their gold labels
	reloaded, err := corpus.Load(filepath.Join(validated, "klop.json"))
	require.NoError(t, err)
	assert.True(t, reloaded[0].Same())
}

func TestValidatedNormalizesGoldCorpus(t *testing.T) {
	dir := t.TempDir()
	gold := corpus.Pair{Word: "klop", LemmaSentence1: "c\u030crn klop pade", LemmaSentence2: "klop na psu", LemmaWordIndex1: 1, LemmaWordIndex2: 0}
	gold.SetSameContext(false)
	require.NoError(t, corpus.Save(filepath.Join(dir, "klop.json"), []corpus.Pair{gold}))

	cfg := testConfig(t)
	cfg.Normalize = "NFC"
	cfg.ValidatedCorpusDir = dir
	cfg.Homonyms = []string{"klop"}

	res, report, err := NewRunner(cfg, nil).Validated(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "\u010drn klop pade", res.Pairs[0].LemmaSentence1)
	assert.Equal(t, 0, report.Unmatched)
	assert.Equal(t, 1, report.Overall.Pairs)
	assert.Equal(t, 1, report.Overall.TrueNegative)
}

func TestRunRejectsCompatibilityNormalization(t *testing.T) {
	cfg := testConfig(t)
	cfg.Normalize = "NFKC"
	pairs := []corpus.Pair{{Word: "pes", LemmaSentence1: "a\u00a0b pes", LemmaSentence2: "pes x", LemmaWordIndex1: 1}}

	_, err := NewRunner(cfg, nil).Run(context.Background(), "nbsp", pairs)
	require.Error(t, err)
	assert.Equal(t, "a\u00a0b pes", pairs[0].LemmaSentence1)
}

func TestRunRemovesIncompleteRun(t *testing.T) {
	for _, driver := range db.Drivers {
		t.Run(driver, func(t *testing.T) {
			conn, err := db.Open(driver, ":memory:")
			require.NoError(t, err)
			t.Cleanup(func() { conn.Close() })
			_, err = conn.Exec(`CREATE TRIGGER reject_verdicts BEFORE INSERT ON verdicts BEGIN SELECT RAISE(ABORT, 'verdicts rejected'); END`)
			require.NoError(t, err)

			r := NewRunner(testConfig(t), nil)
			r.DB = conn
			_, err = r.Run(context.Background(), "dogs", dogPairs())
			require.Error(t, err)
			assert.Contains(t, err.Error(), "verdicts rejected")

			runs, err := db.ListRuns(conn)
			require.NoError(t, err)
			assert.Empty(t, runs)

			var n int
			require.NoError(t, conn.QueryRow(`SELECT COUNT(*) FROM vocabulary`).Scan(&n))
			assert.Equal(t, 0, n, "vocabulary of the failed run must be removed")
		})
	}
}
