package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/japaniel/wicbow/pkg/corpus"
	"github.com/japaniel/wicbow/pkg/evaluate"
)

// ScoreFile scores the corpus stored at in and writes the annotated records
// to out.
func (r *Runner) ScoreFile(ctx context.Context, in, out string) (*Result, error) {
	pairs, err := corpus.Load(in)
	if err != nil {
		return nil, err
	}
	res, err := r.Run(ctx, corpusName(in), pairs)
	if err != nil {
		return nil, err
	}
	r.Logger.WithField("path", out).Info("Saving to JSON file")
	if err := corpus.Save(out, res.Pairs); err != nil {
		return nil, err
	}
	return res, nil
}

// Validated scores the combined validated corpus of the configured homonyms
// and evaluates the verdicts against its gold labels. When out is non-empty
// the annotated records are saved there.
func (r *Runner) Validated(ctx context.Context, out string) (*Result, *evaluate.Report, error) {
	pairs, err := corpus.LoadCombined(r.Config.Homonyms, r.Config.ValidatedCorpusDir)
	if err != nil {
		return nil, nil, err
	}
	res, err := r.Run(ctx, "validated", pairs)
	if err != nil {
		return nil, nil, err
	}
	if out != "" {
		r.Logger.WithField("path", out).Info("Saving to JSON file")
		if err := corpus.Save(out, res.Pairs); err != nil {
			return nil, nil, err
		}
	}

	report, err := evaluate.Evaluate(evaluate.Options{
		Verbose:   r.Config.Verbose,
		CorpusDir: r.Config.ValidatedCorpusDir,
		Normalize: r.Config.Normalize,
		Logger:    r.Logger,
	}, res.Pairs, r.Config.Homonyms)
	if err != nil {
		return nil, nil, fmt.Errorf("evaluate: %w", err)
	}
	if r.Config.ReportFile != "" {
		if err := report.Save(r.Config.ReportFile); err != nil {
			return nil, nil, err
		}
	}
	return res, report, nil
}

// Summary collects the outcome of RunAll.
type Summary struct {
	Main      *Result
	Validated *Result
	Report    *evaluate.Report
}

// RunAll scores the main corpus into the results file, then scores and
// evaluates the validated corpus. The two runs use separate vocabularies.
func (r *Runner) RunAll(ctx context.Context) (*Summary, error) {
	main, err := r.ScoreFile(ctx, r.Config.DataFile, r.Config.ResultsFile)
	if err != nil {
		return nil, fmt.Errorf("main corpus: %w", err)
	}
	validated, report, err := r.Validated(ctx, r.Config.PartResultsFile)
	if err != nil {
		return nil, fmt.Errorf("validated corpus: %w", err)
	}
	if r.Metrics != nil && r.Config.MetricsFile != "" {
		if err := r.Metrics.WriteTextfile(r.Config.MetricsFile); err != nil {
			return nil, fmt.Errorf("write metrics: %w", err)
		}
	}
	return &Summary{Main: main, Validated: validated, Report: report}, nil
}

func corpusName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}
