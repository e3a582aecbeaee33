package db

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DBExecutor is an interface that allows methods to accept either *sql.DB or *sql.Tx
type DBExecutor interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

const timeLayout = time.RFC3339Nano

// CreateRun inserts a run. A missing ID is generated and returned.
func CreateRun(db DBExecutor, run Run) (string, error) {
	if strings.TrimSpace(run.Corpus) == "" {
		return "", fmt.Errorf("corpus must be non-empty")
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	_, err := db.Exec(
		`INSERT INTO runs (id, corpus, window_size, threshold, zero_policy, started_at) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.Corpus, run.Window, run.Threshold, run.ZeroPolicy, run.StartedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	return run.ID, nil
}

// FinishRun records the totals of a completed run.
func FinishRun(db DBExecutor, runID string, pairCount, sameCount int, finishedAt time.Time) error {
	res, err := db.Exec(
		`UPDATE runs SET pair_count = ?, same_count = ?, finished_at = ? WHERE id = ?`,
		pairCount, sameCount, finishedAt.UTC().Format(timeLayout), runID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("finish run: %w", sql.ErrNoRows)
	}
	return nil
}

// DeleteRun removes a run together with its vocabulary and verdicts in one
// transaction. Deleting an unknown run is not an error.
func DeleteRun(db *sql.DB, runID string) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	for _, q := range []string{
		`DELETE FROM verdicts WHERE run_id = ?`,
		`DELETE FROM vocabulary WHERE run_id = ?`,
		`DELETE FROM runs WHERE id = ?`,
	} {
		if _, err := tx.Exec(q, runID); err != nil {
			tx.Rollback()
			return fmt.Errorf("delete run: %w", err)
		}
	}
	return tx.Commit()
}

// InsertVocabulary stores the neighbour words of lemma in vocabulary order.
func InsertVocabulary(db DBExecutor, runID, lemma string, neighbors []string) error {
	if runID == "" {
		return fmt.Errorf("runID must be non-empty")
	}
	for i, w := range neighbors {
		if _, err := db.Exec(
			`INSERT INTO vocabulary (run_id, lemma, position, neighbor) VALUES (?, ?, ?, ?)`,
			runID, lemma, i, w,
		); err != nil {
			return fmt.Errorf("insert neighbour %q of %q: %w", w, lemma, err)
		}
	}
	return nil
}

// InsertVerdict stores the outcome for one pair.
func InsertVerdict(db DBExecutor, v Verdict) error {
	if v.RunID == "" {
		return fmt.Errorf("runID must be non-empty")
	}
	_, err := db.Exec(
		`INSERT INTO verdicts (run_id, position, word, sentence1, sentence2, index1, index2, similarity, same_context)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.RunID, v.Position, v.Word, v.Sentence1, v.Sentence2, v.Index1, v.Index2, v.Similarity, boolToInt(v.SameContext),
	)
	if err != nil {
		return fmt.Errorf("insert verdict %d: %w", v.Position, err)
	}
	return nil
}

// GetRun returns the run with the given id.
func GetRun(db DBExecutor, runID string) (Run, error) {
	row := db.QueryRow(`SELECT id, corpus, window_size, threshold, zero_policy, pair_count, same_count, started_at, finished_at FROM runs WHERE id = ?`, runID)
	return scanRun(row)
}

// ListRuns returns all runs, oldest first.
func ListRuns(db DBExecutor) ([]Run, error) {
	rows, err := db.Query(`SELECT id, corpus, window_size, threshold, zero_policy, pair_count, same_count, started_at, finished_at FROM runs ORDER BY started_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(s scanner) (Run, error) {
	var r Run
	var started string
	var finished sql.NullString
	if err := s.Scan(&r.ID, &r.Corpus, &r.Window, &r.Threshold, &r.ZeroPolicy, &r.PairCount, &r.SameCount, &started, &finished); err != nil {
		return Run{}, err
	}
	t, err := time.Parse(timeLayout, started)
	if err != nil {
		return Run{}, fmt.Errorf("parse started_at: %w", err)
	}
	r.StartedAt = t
	if finished.Valid {
		f, err := time.Parse(timeLayout, finished.String)
		if err != nil {
			return Run{}, fmt.Errorf("parse finished_at: %w", err)
		}
		r.FinishedAt = &f
	}
	return r, nil
}

// GetVerdicts returns the verdicts of a run in corpus order.
func GetVerdicts(db DBExecutor, runID string) ([]Verdict, error) {
	rows, err := db.Query(`SELECT run_id, position, word, sentence1, sentence2, index1, index2, similarity, same_context FROM verdicts WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Verdict
	for rows.Next() {
		var v Verdict
		var same int
		if err := rows.Scan(&v.RunID, &v.Position, &v.Word, &v.Sentence1, &v.Sentence2, &v.Index1, &v.Index2, &v.Similarity, &same); err != nil {
			return nil, err
		}
		v.SameContext = same != 0
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetVocabulary returns the stored neighbour words of lemma for a run.
func GetVocabulary(db DBExecutor, runID, lemma string) ([]string, error) {
	rows, err := db.Query(`SELECT neighbor FROM vocabulary WHERE run_id = ? AND lemma = ? ORDER BY position`, runID, lemma)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var w string
		if err := rows.Scan(&w); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
