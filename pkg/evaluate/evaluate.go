// Package evaluate compares same-context verdicts against the gold labels of
// a validated corpus.
package evaluate

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/japaniel/wicbow/pkg/corpus"
	"github.com/sirupsen/logrus"
	"github.com/sjwhitworth/golearn/evaluation"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

const (
	classSame      = "same"
	classDifferent = "different"
)

// Options configures an evaluation.
type Options struct {
	// Verbose logs every pair whose verdict disagrees with its gold label.
	Verbose bool
	// CorpusDir holds one validated file per lemma, named <lemma>.json, whose
	// same_context fields are the gold labels.
	CorpusDir string
	// Normalize names the Unicode normalization form the predictions went
	// through (see corpus.ParseForm). Gold labels and lemmas are normalized
	// the same way so their keys match.
	Normalize string
	Logger    logrus.FieldLogger
}

// Metrics summarises the confusion matrix of one lemma, or of all of them.
type Metrics struct {
	Lemma         string  `yaml:"lemma"`
	Pairs         int     `yaml:"pairs"`
	TruePositive  int     `yaml:"true_positive"`
	FalsePositive int     `yaml:"false_positive"`
	FalseNegative int     `yaml:"false_negative"`
	TrueNegative  int     `yaml:"true_negative"`
	Accuracy      float64 `yaml:"accuracy"`
	Precision     float64 `yaml:"precision"`
	Recall        float64 `yaml:"recall"`
	F1            float64 `yaml:"f1"`
}

// Disagreement is a pair whose verdict differs from its gold label.
type Disagreement struct {
	Lemma     string `yaml:"lemma"`
	Sentence1 string `yaml:"sentence1"`
	Sentence2 string `yaml:"sentence2"`
	Predicted bool   `yaml:"predicted"`
	Gold      bool   `yaml:"gold"`
}

// Report is the outcome of an evaluation.
type Report struct {
	CorpusDir     string         `yaml:"corpus_dir"`
	Lemmas        []Metrics      `yaml:"lemmas"`
	Overall       Metrics        `yaml:"overall"`
	Unmatched     int            `yaml:"unmatched"`
	Disagreements []Disagreement `yaml:"disagreements,omitempty"`
}

// Evaluate matches the annotated pairs of the given lemmas against the gold
// labels found in opts.CorpusDir and computes per-lemma and overall metrics.
// Pairs of other lemmas are ignored; every considered pair must be scored.
func Evaluate(opts Options, pairs []corpus.Pair, lemmas []string) (*Report, error) {
	logger := opts.Logger
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}

	form, normalize, err := corpus.ParseForm(opts.Normalize)
	if err != nil {
		return nil, err
	}
	gold, err := loadGold(opts.CorpusDir, lemmas, form, normalize)
	if err != nil {
		return nil, err
	}
	if normalize {
		lemmas = corpus.NormalizeNames(lemmas, form)
	}

	matrices := make(map[string]evaluation.ConfusionMatrix, len(lemmas))
	for _, lemma := range lemmas {
		matrices[lemma] = newMatrix()
	}
	overall := newMatrix()
	report := &Report{CorpusDir: opts.CorpusDir}

	for i, p := range pairs {
		cm, ok := matrices[p.Word]
		if !ok {
			continue
		}
		if !p.Scored() {
			return nil, fmt.Errorf("pair %d (%s) has no same_context verdict", i, p.Word)
		}
		label, ok := gold[p.Key()]
		if !ok {
			report.Unmatched++
			logger.WithFields(logrus.Fields{"lemma": p.Word, "position": i}).Warn("No gold label for pair")
			continue
		}
		predicted := p.Same()
		cm[className(label)][className(predicted)]++
		overall[className(label)][className(predicted)]++

		if opts.Verbose && predicted != label {
			report.Disagreements = append(report.Disagreements, Disagreement{
				Lemma:     p.Word,
				Sentence1: p.LemmaSentence1,
				Sentence2: p.LemmaSentence2,
				Predicted: predicted,
				Gold:      label,
			})
			logger.WithFields(logrus.Fields{
				"lemma":     p.Word,
				"sentence1": p.LemmaSentence1,
				"sentence2": p.LemmaSentence2,
				"predicted": predicted,
				"gold":      label,
			}).Info("Verdict disagrees with gold label")
		}
	}

	for _, lemma := range lemmas {
		m := summarize(lemma, matrices[lemma])
		report.Lemmas = append(report.Lemmas, m)
		logger.WithFields(logrus.Fields{
			"lemma":     lemma,
			"pairs":     m.Pairs,
			"accuracy":  m.Accuracy,
			"precision": m.Precision,
			"recall":    m.Recall,
			"f1":        m.F1,
		}).Info("Lemma evaluated")
	}
	report.Overall = summarize("", overall)
	if opts.Verbose && report.Overall.Pairs > 0 {
		logger.Debug(evaluation.GetSummary(overall))
	}
	return report, nil
}

func loadGold(dir string, lemmas []string, form norm.Form, normalize bool) (map[string]bool, error) {
	gold := make(map[string]bool)
	for _, lemma := range lemmas {
		pairs, err := corpus.Load(corpus.FilePath(dir, lemma))
		if err != nil {
			return nil, fmt.Errorf("load gold labels for %s: %w", lemma, err)
		}
		if normalize {
			if err := corpus.Normalize(pairs, form); err != nil {
				return nil, fmt.Errorf("gold labels for %s: %w", lemma, err)
			}
		}
		for _, p := range pairs {
			if p.Scored() {
				gold[p.Key()] = p.Same()
			}
		}
	}
	return gold, nil
}

func className(same bool) string {
	if same {
		return classSame
	}
	return classDifferent
}

func newMatrix() evaluation.ConfusionMatrix {
	return evaluation.ConfusionMatrix{
		classSame:      {classSame: 0, classDifferent: 0},
		classDifferent: {classSame: 0, classDifferent: 0},
	}
}

func summarize(lemma string, cm evaluation.ConfusionMatrix) Metrics {
	m := Metrics{
		Lemma:         lemma,
		TruePositive:  int(evaluation.GetTruePositives(classSame, cm)),
		FalsePositive: int(evaluation.GetFalsePositives(classSame, cm)),
		FalseNegative: int(evaluation.GetFalseNegatives(classSame, cm)),
	}
	m.TrueNegative = cm[classDifferent][classDifferent]
	m.Pairs = m.TruePositive + m.FalsePositive + m.FalseNegative + m.TrueNegative
	if m.Pairs == 0 {
		return m
	}
	m.Accuracy = finite(evaluation.GetAccuracy(cm))
	m.Precision = finite(evaluation.GetPrecision(classSame, cm))
	m.Recall = finite(evaluation.GetRecall(classSame, cm))
	m.F1 = finite(evaluation.GetF1Score(classSame, cm))
	return m
}

// finite maps the NaN of an empty ratio to 0.
func finite(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	return x
}

// Lemma returns the metrics of one lemma.
func (r *Report) Lemma(lemma string) (Metrics, bool) {
	for _, m := range r.Lemmas {
		if m.Lemma == lemma {
			return m, true
		}
	}
	return Metrics{}, false
}

// WriteYAML renders the report as YAML.
func (r *Report) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return enc.Close()
}

// Save writes the report as YAML to path.
func (r *Report) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	defer f.Close()
	if err := r.WriteYAML(f); err != nil {
		return err
	}
	return f.Close()
}
