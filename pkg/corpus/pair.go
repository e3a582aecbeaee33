package corpus

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Pair is an occurrence pair to be judged: the same lemma occurring in two
// lemmatized sentences at the given token positions.
type Pair struct {
	Word            string `json:"word"`
	LemmaSentence1  string `json:"lemma_sentence1"`
	LemmaSentence2  string `json:"lemma_sentence2"`
	LemmaWordIndex1 int    `json:"lemma_word_index1"`
	LemmaWordIndex2 int    `json:"lemma_word_index2"`
	// SameContext is nil until the pair has been scored (or, in a validated
	// corpus, holds the gold label).
	SameContext *bool `json:"same_context,omitempty"`

	// Extra keeps any other fields of the input record so they survive a
	// load/save round trip.
	Extra map[string]json.RawMessage `json:"-"`

	order []string
}

var knownFields = []string{
	"word", "lemma_sentence1", "lemma_sentence2",
	"lemma_word_index1", "lemma_word_index2", "same_context",
}

type pairFields Pair

// UnmarshalJSON decodes the known fields, stashes the rest in Extra and
// remembers the order the record's keys appeared in.
func (p *Pair) UnmarshalJSON(data []byte) error {
	var f pairFields
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	order, extra, err := splitRecord(data)
	if err != nil {
		return err
	}
	*p = Pair(f)
	p.Extra = extra
	p.order = order
	return nil
}

// splitRecord walks the top-level keys of a JSON object in input order and
// returns them together with the values of the unknown ones.
func splitRecord(data []byte) ([]string, map[string]json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil {
		return nil, nil, err
	}
	var order []string
	var extra map[string]json.RawMessage
	seen := make(map[string]bool)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, _ := tok.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, nil, err
		}
		if !seen[key] {
			seen[key] = true
			order = append(order, key)
		}
		if !isKnown(key) {
			if extra == nil {
				extra = make(map[string]json.RawMessage)
			}
			extra[key] = raw
		}
	}
	return order, extra, nil
}

func isKnown(key string) bool {
	for _, k := range knownFields {
		if k == key {
			return true
		}
	}
	return false
}

// MarshalJSON encodes the known fields together with Extra. Keys of a
// decoded record keep their input order; new keys follow, known fields
// first, then the remaining extras sorted by name.
func (p Pair) MarshalJSON() ([]byte, error) {
	keys := make([]string, 0, len(p.order)+len(knownFields)+len(p.Extra))
	placed := make(map[string]bool)
	add := func(k string) {
		if placed[k] {
			return
		}
		placed[k] = true
		keys = append(keys, k)
	}
	for _, k := range p.order {
		if _, ok := p.Extra[k]; ok || isKnown(k) {
			add(k)
		}
	}
	for _, k := range knownFields {
		add(k)
	}
	rest := make([]string, 0, len(p.Extra))
	for k := range p.Extra {
		if !placed[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	for _, k := range rest {
		add(k)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	buf.WriteByte('{')
	first := true
	for _, k := range keys {
		v, ok := p.field(k)
		if !ok {
			continue
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		if err := enc.Encode(k); err != nil {
			return nil, err
		}
		trimNewline(&buf)
		buf.WriteByte(':')
		if err := enc.Encode(v); err != nil {
			return nil, err
		}
		trimNewline(&buf)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// field returns the value stored under key, false when the key is absent.
func (p Pair) field(key string) (interface{}, bool) {
	switch key {
	case "word":
		return p.Word, true
	case "lemma_sentence1":
		return p.LemmaSentence1, true
	case "lemma_sentence2":
		return p.LemmaSentence2, true
	case "lemma_word_index1":
		return p.LemmaWordIndex1, true
	case "lemma_word_index2":
		return p.LemmaWordIndex2, true
	case "same_context":
		if p.SameContext == nil {
			return nil, false
		}
		return *p.SameContext, true
	}
	v, ok := p.Extra[key]
	return v, ok
}

func trimNewline(buf *bytes.Buffer) {
	if b := buf.Bytes(); len(b) > 0 && b[len(b)-1] == '\n' {
		buf.Truncate(len(b) - 1)
	}
}

// SetSameContext records the verdict on the pair.
func (p *Pair) SetSameContext(same bool) {
	p.SameContext = &same
}

// Scored reports whether a verdict (or gold label) is present.
func (p Pair) Scored() bool { return p.SameContext != nil }

// Same returns the verdict, false when the pair is unscored.
func (p Pair) Same() bool { return p.SameContext != nil && *p.SameContext }

// Key identifies the pair by lemma, sentences and positions. Verdicts and
// gold labels for the same occurrences share a key.
func (p Pair) Key() string {
	return fmt.Sprintf("%s\x00%s\x00%d\x00%s\x00%d",
		p.Word, p.LemmaSentence1, p.LemmaWordIndex1, p.LemmaSentence2, p.LemmaWordIndex2)
}
