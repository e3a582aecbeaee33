package evaluate

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/japaniel/wicbow/pkg/corpus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func pair(word, s1, s2 string, i1, i2 int) corpus.Pair {
	return corpus.Pair{Word: word, LemmaSentence1: s1, LemmaSentence2: s2, LemmaWordIndex1: i1, LemmaWordIndex2: i2}
}

func labeled(p corpus.Pair, same bool) corpus.Pair {
	p.SetSameContext(same)
	return p
}

var (
	tipA = pair("tip", "tip je nov", "nov tip", 0, 1)
	tipB = pair("tip", "ta tip človeka", "tip avtomobila", 1, 0)
	tipC = pair("tip", "dober tip", "tip za stavo", 1, 0)
	tipE = pair("tip", "neznan tip", "tip", 1, 0)
	klop = pair("klop", "klop v parku", "klop na psu", 0, 0)
	pes  = pair("pes", "pes je", "mali pes", 0, 1)
)

func writeGold(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, corpus.Save(filepath.Join(dir, "tip.json"), []corpus.Pair{
		labeled(tipA, true), labeled(tipB, false), labeled(tipC, true),
	}))
	require.NoError(t, corpus.Save(filepath.Join(dir, "klop.json"), []corpus.Pair{
		labeled(klop, false),
	}))
	return dir
}

func predictions() []corpus.Pair {
	return []corpus.Pair{
		labeled(tipA, true),
		labeled(tipB, true),
		labeled(tipC, false),
		labeled(tipE, true),
		labeled(klop, false),
		labeled(pes, true),
	}
}

func TestEvaluateMetrics(t *testing.T) {
	dir := writeGold(t)

	report, err := Evaluate(Options{CorpusDir: dir}, predictions(), []string{"tip", "klop"})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Unmatched)
	assert.Empty(t, report.Disagreements)

	tip, ok := report.Lemma("tip")
	require.True(t, ok)
	assert.Equal(t, 3, tip.Pairs)
	assert.Equal(t, 1, tip.TruePositive)
	assert.Equal(t, 1, tip.FalsePositive)
	assert.Equal(t, 1, tip.FalseNegative)
	assert.Equal(t, 0, tip.TrueNegative)
	assert.InDelta(t, 1.0/3.0, tip.Accuracy, 1e-9)
	assert.InDelta(t, 0.5, tip.Precision, 1e-9)
	assert.InDelta(t, 0.5, tip.Recall, 1e-9)
	assert.InDelta(t, 0.5, tip.F1, 1e-9)

	k, ok := report.Lemma("klop")
	require.True(t, ok)
	assert.Equal(t, 1, k.TrueNegative)
	assert.InDelta(t, 1.0, k.Accuracy, 1e-9)
	assert.Equal(t, 0.0, k.Precision, "undefined precision is reported as 0")
	assert.Equal(t, 0.0, k.F1)

	assert.Equal(t, 4, report.Overall.Pairs)
	assert.InDelta(t, 0.5, report.Overall.Accuracy, 1e-9)
	assert.InDelta(t, 0.5, report.Overall.F1, 1e-9)

	_, ok = report.Lemma("pes")
	assert.False(t, ok)
}

func TestEvaluateVerboseCollectsDisagreements(t *testing.T) {
	dir := writeGold(t)

	report, err := Evaluate(Options{CorpusDir: dir, Verbose: true}, predictions(), []string{"tip", "klop"})
	require.NoError(t, err)
	require.Len(t, report.Disagreements, 2)
	assert.Equal(t, "ta tip človeka", report.Disagreements[0].Sentence1)
	assert.True(t, report.Disagreements[0].Predicted)
	assert.False(t, report.Disagreements[0].Gold)
}

func TestEvaluateRequiresVerdicts(t *testing.T) {
	dir := writeGold(t)
	_, err := Evaluate(Options{CorpusDir: dir}, []corpus.Pair{tipA}, []string{"tip"})
	require.Error(t, err)
}

func TestEvaluateMissingGoldFile(t *testing.T) {
	_, err := Evaluate(Options{CorpusDir: t.TempDir()}, predictions(), []string{"tip"})
	require.Error(t, err)
}

func TestReportWriteYAML(t *testing.T) {
	dir := writeGold(t)
	report, err := Evaluate(Options{CorpusDir: dir}, predictions(), []string{"tip", "klop"})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, report.WriteYAML(&buf))

	var decoded Report
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, report.Overall, decoded.Overall)
	assert.Len(t, decoded.Lemmas, 2)

	path := filepath.Join(t.TempDir(), "report.yaml")
	require.NoError(t, report.Save(path))
}

func TestEvaluateNormalizesGoldLabels(t *testing.T) {
	dir := t.TempDir()
	decomposed := pair("klop", "c\u030crn klop pade", "klop na psu", 1, 0)
	require.NoError(t, corpus.Save(filepath.Join(dir, "klop.json"), []corpus.Pair{labeled(decomposed, true)}))

	composed := pair("klop", "\u010drn klop pade", "klop na psu", 1, 0)
	preds := []corpus.Pair{labeled(composed, true)}

	report, err := Evaluate(Options{CorpusDir: dir, Normalize: "NFC"}, preds, []string{"klop"})
	require.NoError(t, err)
	assert.Equal(t, 0, report.Unmatched)
	assert.Equal(t, 1, report.Overall.Pairs)
	assert.Equal(t, 1, report.Overall.TruePositive)

	report, err = Evaluate(Options{CorpusDir: dir}, preds, []string{"klop"})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Unmatched, "without normalization the keys differ")
}

func TestEvaluateRejectsCompatibilityForms(t *testing.T) {
	dir := writeGold(t)
	_, err := Evaluate(Options{CorpusDir: dir, Normalize: "NFKC"}, predictions(), []string{"tip"})
	require.Error(t, err)
}
