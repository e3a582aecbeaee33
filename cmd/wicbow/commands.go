package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/japaniel/wicbow/pkg/bow"
	"github.com/japaniel/wicbow/pkg/corpus"
	"github.com/japaniel/wicbow/pkg/db"
	"github.com/japaniel/wicbow/pkg/pipeline"
	"github.com/spf13/cobra"
)

func newRunCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Score the main corpus, then score and evaluate the validated corpus",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, closeFn, err := o.runner(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			sum, err := r.RunAll(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			printResult(cmd, sum.Main)
			printResult(cmd, sum.Validated)
			fmt.Fprintf(out, "overall accuracy %.4f precision %.4f recall %.4f f1 %.4f\n",
				sum.Report.Overall.Accuracy, sum.Report.Overall.Precision, sum.Report.Overall.Recall, sum.Report.Overall.F1)
			return nil
		},
	}
}

func newScoreCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "score <in.json> <out.json>",
		Short: "Score one corpus file and write the annotated records",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, closeFn, err := o.runner(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			res, err := r.ScoreFile(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			printResult(cmd, res)
			return writeMetrics(r)
		},
	}
}

func newEvaluateCmd(o *rootOptions) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Score the validated corpus and print the evaluation report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, closeFn, err := o.runner(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			_, report, err := r.Validated(cmd.Context(), out)
			if err != nil {
				return err
			}
			if err := report.WriteYAML(cmd.OutOrStdout()); err != nil {
				return err
			}
			return writeMetrics(r)
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "Also save the annotated validated records to this file")
	return cmd
}

func newVocabCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "vocab <in.json> <lemma>",
		Short: "Print the neighbour vocabulary of a lemma",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := o.config(cmd)
			if err != nil {
				return err
			}
			pairs, err := corpus.Load(args[0])
			if err != nil {
				return err
			}
			lemma := args[1]
			form, ok, err := corpus.ParseForm(cfg.Normalize)
			if err != nil {
				return err
			}
			if ok {
				if err := corpus.Normalize(pairs, form); err != nil {
					return err
				}
				lemma = form.String(lemma)
			}
			vocab, err := bow.Build(pairs, cfg.Window)
			if err != nil {
				return err
			}
			if !vocab.Has(lemma) {
				return fmt.Errorf("%w: %q", bow.ErrUnknownLemma, lemma)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (window %d, %d neighbours)\n", lemma, vocab.Window(), vocab.Size(lemma))
			for _, w := range vocab.Neighbors(lemma) {
				fmt.Fprintln(out, w)
			}
			return nil
		},
	}
}

func newRunsCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "runs",
		Short: "List the runs recorded in the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := o.config(cmd)
			if err != nil {
				return err
			}
			conn, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer conn.Close()

			runs, err := db.ListRuns(conn)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCORPUS\tWINDOW\tTHRESHOLD\tPAIRS\tSAME\tSTARTED")
			for _, run := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%g\t%d\t%d\t%s\n",
					run.ID, run.Corpus, run.Window, run.Threshold, run.PairCount, run.SameCount,
					run.StartedAt.Format("2006-01-02 15:04:05"))
			}
			return tw.Flush()
		},
	}
}

func printResult(cmd *cobra.Command, res *pipeline.Result) {
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d pairs, %d same-context, %d lemmas",
		res.Corpus, len(res.Pairs), res.SameCount, res.Vocabulary.Len())
	if res.RunID != "" {
		fmt.Fprintf(cmd.OutOrStdout(), " (run %s)", res.RunID)
	}
	fmt.Fprintln(cmd.OutOrStdout())
}

func writeMetrics(r *pipeline.Runner) error {
	if r.Config.MetricsFile == "" {
		return nil
	}
	return r.Metrics.WriteTextfile(r.Config.MetricsFile)
}
