package corpus

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Load reads a JSON corpus file. The file is either an array of pair records
// or an object wrapping the array under "pairs".
func Load(path string) ([]Pair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var wrapped struct {
		Pairs json.RawMessage `json:"pairs"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.Pairs != nil {
		pairs := []Pair{}
		if err := json.Unmarshal(wrapped.Pairs, &pairs); err != nil {
			return nil, fmt.Errorf("failed to parse corpus %s: %w", path, err)
		}
		return pairs, nil
	}

	var pairs []Pair
	if err := json.Unmarshal(data, &pairs); err != nil {
		return nil, fmt.Errorf("failed to parse corpus %s as object or array: %w", path, err)
	}
	return pairs, nil
}

// LoadCombined loads baseDir+name+".json" for every name and concatenates
// the records in the order given.
func LoadCombined(names []string, baseDir string) ([]Pair, error) {
	var combined []Pair
	for _, name := range names {
		pairs, err := Load(FilePath(baseDir, name))
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", name, err)
		}
		combined = append(combined, pairs...)
	}
	return combined, nil
}

// FilePath returns the location of the corpus file for name under baseDir.
func FilePath(baseDir, name string) string {
	return filepath.Join(baseDir, name+".json")
}

// Save writes pairs as indented JSON. Non-ASCII text is written as is. The
// file is replaced atomically.
func Save(path string, pairs []Pair) error {
	if pairs == nil {
		pairs = []Pair{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(pairs); err != nil {
		return fmt.Errorf("encode corpus: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write temp corpus: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename corpus: %w", err)
	}
	return nil
}
