// Package submission turns submitted form fields into question/answer pairs
// and ingests them through the repository.
package submission

import (
	"context"
	"strings"
)

// Field is one submitted form control. Name is the control's name attribute,
// Label the text of its first associated label, if any.
type Field struct {
	Name  string `json:"name"`
	Label string `json:"label,omitempty"`
	Value string `json:"value"`
}

// Pair is a question/answer pair ready to be stored.
type Pair struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Adder saves one pair. repository.Repository satisfies it.
type Adder interface {
	Add(ctx context.Context, question, answer string) error
}

// FromFields resolves each field to a pair: the label when it has visible
// text, the field name otherwise.
func FromFields(fields []Field) []Pair {
	pairs := make([]Pair, 0, len(fields))
	for _, f := range fields {
		question := f.Name
		if label := strings.TrimSpace(f.Label); label != "" {
			question = label
		}
		pairs = append(pairs, Pair{Question: question, Answer: f.Value})
	}
	return pairs
}

// Normalize collapses whitespace, drops pairs with an empty question or
// answer and keeps the last answer for a repeated question. Order follows
// the first occurrence of each question.
func Normalize(pairs []Pair) []Pair {
	out := make([]Pair, 0, len(pairs))
	index := make(map[string]int, len(pairs))
	for _, p := range pairs {
		q := collapse(p.Question)
		a := strings.TrimSpace(p.Answer)
		if q == "" || a == "" {
			continue
		}
		if i, ok := index[q]; ok {
			out[i].Answer = a
			continue
		}
		index[q] = len(out)
		out = append(out, Pair{Question: q, Answer: a})
	}
	return out
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Ingest normalizes pairs and adds each one. It stops at the first failure
// and returns how many pairs were stored before it.
func Ingest(ctx context.Context, adder Adder, pairs []Pair) (int, error) {
	stored := 0
	for _, p := range Normalize(pairs) {
		if err := adder.Add(ctx, p.Question, p.Answer); err != nil {
			return stored, err
		}
		stored++
	}
	return stored, nil
}
