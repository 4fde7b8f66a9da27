package embeddings

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"unicode"
)

// NGram is an offline Model that hashes character trigrams and whole words
// into a fixed number of buckets. It has no notion of meaning, but it is
// deterministic and robust to punctuation and spacing differences such as
// "e-mail" vs "email", which is enough for development and tests.
type NGram struct {
	dims int
}

// NGramLoader returns a Loader for an NGram model of the given size.
func NGramLoader(dims int) Loader {
	return func(context.Context) (Model, error) {
		if dims <= 0 {
			return nil, fmt.Errorf("invalid dimensions %d", dims)
		}
		return &NGram{dims: dims}, nil
	}
}

func (g *NGram) Infer(_ context.Context, text string) (Vector, error) {
	vec := make(Vector, g.dims)
	for _, word := range tokenize(text) {
		g.add(vec, "w:"+word)
		padded := " " + word + " "
		runes := []rune(padded)
		for i := 0; i+3 <= len(runes); i++ {
			g.add(vec, "g:"+string(runes[i:i+3]))
		}
	}
	return Normalize(vec), nil
}

// add uses signed feature hashing so bucket collisions tend to cancel out.
func (g *NGram) add(vec Vector, feature string) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(feature))
	sum := h.Sum64()
	idx := int(sum % uint64(g.dims))
	if sum>>63 == 1 {
		vec[idx]--
		return
	}
	vec[idx]++
}

// tokenize lowercases text, drops intra-word punctuation and splits on
// everything else that is not a letter or digit.
func tokenize(text string) []string {
	var b strings.Builder
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '-' || r == '\'' || r == '.' || r == '_':
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Fields(b.String())
}
