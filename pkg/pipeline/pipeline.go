// Package pipeline drives corpus runs: a fresh vocabulary is built over the
// corpus, finalized, and used to score every pair of the same corpus.
package pipeline

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"time"

	"github.com/japaniel/wicbow/pkg/bow"
	"github.com/japaniel/wicbow/pkg/config"
	"github.com/japaniel/wicbow/pkg/corpus"
	"github.com/japaniel/wicbow/pkg/db"
	"github.com/japaniel/wicbow/pkg/metrics"
	"github.com/sirupsen/logrus"
)

// Runner executes corpus runs with one configuration. Every call to Run owns
// its own builder and vocabulary; nothing is shared between runs.
type Runner struct {
	Config config.Config
	Logger logrus.FieldLogger
	// DB, when set, receives every run with its vocabulary and verdicts.
	DB *sql.DB
	// Metrics, when set, is updated as pairs are scored.
	Metrics *metrics.Metrics
	Now     func() time.Time
}

// NewRunner creates a Runner. A nil logger discards output.
func NewRunner(cfg config.Config, logger logrus.FieldLogger) *Runner {
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	return &Runner{Config: cfg, Logger: logger, Now: time.Now}
}

// Result is the outcome of one corpus run.
type Result struct {
	RunID      string
	Corpus     string
	Vocabulary *bow.Vocabulary
	Pairs      []corpus.Pair
	Scores     []bow.Score
	SameCount  int
	Dropped    int
	Duration   time.Duration
}

// Run builds the vocabulary of pairs, scores every pair and annotates the
// records in place. name labels the corpus in logs, metrics and storage.
func (r *Runner) Run(ctx context.Context, name string, pairs []corpus.Pair) (*Result, error) {
	started := r.Now()
	log := r.Logger.WithFields(logrus.Fields{"corpus": name, "pairs": len(pairs), "window": r.Config.Window})

	form, ok, err := corpus.ParseForm(r.Config.Normalize)
	if err != nil {
		return nil, err
	}
	if ok {
		if err := corpus.Normalize(pairs, form); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
	}

	log.Info("Constructing bow")
	builder, err := bow.NewBuilder(r.Config.Window)
	if err != nil {
		return nil, err
	}
	for i, p := range pairs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := builder.RegisterPair(p); err != nil {
			return nil, fmt.Errorf("%s: build vocabulary: %w", name, bow.AtPosition(err, i))
		}
	}
	vocab := builder.Finalize()
	log.WithFields(logrus.Fields{"lemmas": vocab.Len(), "neighbors": vocab.TotalNeighbors()}).Debug("Vocabulary finalized")
	if r.Metrics != nil {
		r.Metrics.ObserveVocabulary(name, vocab.Len(), vocab.TotalNeighbors())
	}

	zero, err := bow.ParseZeroPolicy(r.Config.ZeroPolicy)
	if err != nil {
		return nil, err
	}
	scorer, err := bow.NewScorer(vocab, bow.WithThreshold(r.Config.Threshold), bow.WithZeroPolicy(zero))
	if err != nil {
		return nil, err
	}

	log.Info("Filling vectors")
	res := &Result{
		Corpus:     name,
		Vocabulary: vocab,
		Pairs:      pairs,
		Scores:     make([]bow.Score, len(pairs)),
	}
	for i := range pairs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sc, err := scorer.ScorePair(&pairs[i])
		if err != nil {
			return nil, fmt.Errorf("%s: score: %w", name, bow.AtPosition(err, i))
		}
		res.Scores[i] = sc
		res.Dropped += sc.Dropped
		if sc.SameContext {
			res.SameCount++
		}
		if r.Metrics != nil {
			r.Metrics.ObservePair(name, sc.SameContext, sc.Dropped)
		}
	}
	if res.Dropped > 0 {
		log.WithField("dropped", res.Dropped).Warn("Context windows contained words missing from the vocabulary")
	}

	if r.DB != nil {
		id, err := r.persist(ctx, res, started)
		if err != nil {
			return nil, fmt.Errorf("%s: persist run: %w", name, err)
		}
		res.RunID = id
	}

	res.Duration = r.Now().Sub(started)
	if r.Metrics != nil {
		r.Metrics.ObserveDuration(name, res.Duration)
	}
	log.WithFields(logrus.Fields{"same_context": res.SameCount, "run_id": res.RunID}).Info("Corpus scored")
	return res, nil
}

func (r *Runner) persist(ctx context.Context, res *Result, started time.Time) (string, error) {
	runID, err := db.CreateRun(r.DB, db.Run{
		Corpus:     res.Corpus,
		Window:     r.Config.Window,
		Threshold:  r.Config.Threshold,
		ZeroPolicy: r.Config.ZeroPolicy,
		StartedAt:  started,
	})
	if err != nil {
		return "", err
	}

	if err := r.writeRun(ctx, runID, res); err != nil {
		if delErr := db.DeleteRun(r.DB, runID); delErr != nil {
			r.Logger.WithError(delErr).WithField("run_id", runID).Error("Failed to remove incomplete run")
		}
		return "", err
	}
	return runID, nil
}

// writeRun stores the vocabulary and verdicts of a created run and marks it
// finished.
func (r *Runner) writeRun(ctx context.Context, runID string, res *Result) error {
	bw := db.NewBatchWriter(ctx, r.DB, r.Config.DBBatchSize)
	for _, lemma := range res.Vocabulary.Lemmas() {
		lemma, words := lemma, res.Vocabulary.Neighbors(lemma)
		if err := bw.Submit(func(ctx context.Context, tx *sql.Tx) error {
			return db.InsertVocabulary(tx, runID, lemma, words)
		}); err != nil {
			return err
		}
	}
	for i, p := range res.Pairs {
		v := db.Verdict{
			RunID:       runID,
			Position:    i,
			Word:        p.Word,
			Sentence1:   p.LemmaSentence1,
			Sentence2:   p.LemmaSentence2,
			Index1:      p.LemmaWordIndex1,
			Index2:      p.LemmaWordIndex2,
			Similarity:  res.Scores[i].Similarity,
			SameContext: p.Same(),
		}
		if err := bw.Submit(func(ctx context.Context, tx *sql.Tx) error {
			return db.InsertVerdict(tx, v)
		}); err != nil {
			return err
		}
	}
	if err := bw.Close(); err != nil {
		return err
	}
	r.Logger.WithFields(logrus.Fields{"run_id": runID, "batches": bw.Batches()}).Debug("Run persisted")

	return db.FinishRun(r.DB, runID, len(res.Pairs), res.SameCount, r.Now())
}
