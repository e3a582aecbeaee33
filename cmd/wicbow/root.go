package main

import (
	"database/sql"
	"fmt"
	"io"

	"github.com/japaniel/wicbow/pkg/config"
	"github.com/japaniel/wicbow/pkg/db"
	"github.com/japaniel/wicbow/pkg/metrics"
	"github.com/japaniel/wicbow/pkg/pipeline"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath  string
	logLevel    string
	logFormat   string
	dbPath      string
	dbDriver    string
	window      int
	threshold   float64
	zeroPolicy  string
	normalize   string
	metricsFile string
	verbose     bool
}

func newRootCmd() *cobra.Command {
	o := &rootOptions{}
	root := &cobra.Command{
		Use:   "wicbow",
		Short: "wicbow decides whether two occurrences of a word share a context",
		Long: `wicbow builds a bag-of-words vocabulary of neighbour words for every lemma
of a corpus of sentence pairs, then marks each pair as same-context when the
cosine similarity of its two context vectors exceeds a threshold.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	f := root.PersistentFlags()
	f.StringVarP(&o.configPath, "config", "c", "", "Path to a YAML or TOML configuration file")
	f.StringVar(&o.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	f.StringVar(&o.logFormat, "log-format", "", "Log format (text, json)")
	f.StringVar(&o.dbPath, "db", "", "Path to a SQLite database recording runs")
	f.StringVar(&o.dbDriver, "db-driver", "", "SQLite driver (sqlite3, sqlite)")
	f.IntVarP(&o.window, "window", "n", 2, "Neighbourhood size on each side of the lemma")
	f.Float64VarP(&o.threshold, "threshold", "t", 0.6, "Similarity above which a pair is same-context")
	f.StringVar(&o.zeroPolicy, "zero-policy", "", "Similarity of empty context vectors (different, same)")
	f.StringVar(&o.normalize, "normalize", "", "Unicode normalization form applied after loading (NFC, NFKC)")
	f.StringVar(&o.metricsFile, "metrics-file", "", "Write Prometheus metrics to this textfile")
	f.BoolVarP(&o.verbose, "verbose", "v", false, "Log every pair that disagrees with its gold label")

	root.AddCommand(
		newRunCmd(o),
		newScoreCmd(o),
		newEvaluateCmd(o),
		newVocabCmd(o),
		newRunsCmd(o),
	)
	return root
}

// config loads the configuration file and applies the flags the user set.
func (o *rootOptions) config(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return config.Config{}, err
	}
	flags := cmd.Flags()
	if flags.Changed("window") {
		cfg.Window = o.window
	}
	if flags.Changed("threshold") {
		cfg.Threshold = o.threshold
	}
	if o.zeroPolicy != "" {
		cfg.ZeroPolicy = o.zeroPolicy
	}
	if o.normalize != "" {
		cfg.Normalize = o.normalize
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	if o.logFormat != "" {
		cfg.LogFormat = o.logFormat
	}
	if o.dbPath != "" {
		cfg.DBPath = o.dbPath
	}
	if o.dbDriver != "" {
		cfg.DBDriver = o.dbDriver
	}
	if o.metricsFile != "" {
		cfg.MetricsFile = o.metricsFile
	}
	if o.verbose {
		cfg.Verbose = true
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg config.Config, out io.Writer) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(level)
	if cfg.LogFormat == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return l, nil
}

// runner prepares a pipeline runner for cmd. The returned close function
// releases the database, if one was opened.
func (o *rootOptions) runner(cmd *cobra.Command) (*pipeline.Runner, func(), error) {
	cfg, err := o.config(cmd)
	if err != nil {
		return nil, nil, err
	}
	logger, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return nil, nil, err
	}

	r := pipeline.NewRunner(cfg, logger)
	r.Metrics = metrics.New()
	closeFn := func() {}
	if cfg.DBPath != "" {
		conn, err := db.Open(cfg.DBDriver, cfg.DBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open database: %w", err)
		}
		logger.WithFields(logrus.Fields{"path": cfg.DBPath, "driver": cfg.DBDriver}).Debug("Database initialized")
		r.DB = conn
		closeFn = func() { conn.Close() }
	}
	return r, closeFn, nil
}

func openDB(cfg config.Config) (*sql.DB, error) {
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("no database configured, use --db or db_path")
	}
	return db.Open(cfg.DBDriver, cfg.DBPath)
}
