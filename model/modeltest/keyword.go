// Package modeltest provides a deterministic embedder for tests.
package modeltest

import (
	"context"
	"strings"
	"sync"
	"unicode"
)

// KeywordEmbedder maps text to one dimension per topic, counting how many of
// the topic's keywords occur in it. Text that matches no topic maps to the
// last dimension so that no vector is all zeros.
type KeywordEmbedder struct {
	Topics [][]string
	Err    error

	mu    sync.Mutex
	calls int
}

func NewKeywordEmbedder(topics ...[]string) *KeywordEmbedder {
	return &KeywordEmbedder{Topics: topics}
}

func (k *KeywordEmbedder) ModelID() string { return "keyword" }

// Dim is the length of every produced vector.
func (k *KeywordEmbedder) Dim() int { return len(k.Topics) + 1 }

// Calls reports how many Embed/EmbedMany requests were made.
func (k *KeywordEmbedder) Calls() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.calls
}

func (k *KeywordEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := k.EmbedMany(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (k *KeywordEmbedder) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	k.mu.Lock()
	k.calls++
	k.mu.Unlock()
	if k.Err != nil {
		return nil, k.Err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = k.vector(t)
	}
	return out, nil
}

func (k *KeywordEmbedder) vector(text string) []float32 {
	vec := make([]float32, k.Dim())
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	matched := false
	for _, w := range words {
		for t, topic := range k.Topics {
			for _, kw := range topic {
				if w == kw {
					vec[t]++
					matched = true
				}
			}
		}
	}
	if !matched {
		vec[len(vec)-1] = 1
	}
	return vec
}
