package chunker

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rax/model/modeltest"
	"rax/types"
)

var (
	catWords    = []string{"cat", "cats", "kitten", "whiskers"}
	rocketWords = []string{"rocket", "rockets", "orbit", "launch", "fuel"}
)

const catsThenRockets = "Cats purr when they are content. A kitten sleeps most of the day. " +
	"Whiskers help it sense space. Every cat grooms itself often.\n\n" +
	"Rockets burn a lot of propellant. The launch happened at dawn. " +
	"Reaching orbit takes great speed. Liquid fuel powers the engines."

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"blank", "  \n\t", nil},
		{"single", "Just one sentence", []string{"Just one sentence"}},
		{"punctuation", "One. Two! Three? Four", []string{"One. ", "Two! ", "Three? ", "Four"}},
		{"decimal", "Pi is 3.14 roughly. Yes.", []string{"Pi is 3.14 roughly. ", "Yes."}},
		{"quotes", `He said "stop." Then left.`, []string{`He said "stop." `, "Then left."}},
		{"paragraph", "Heading\n\nBody text", []string{"Heading\n\n", "Body text"}},
		{"leading blank lines", "\n\nBody. More", []string{"\n\nBody. ", "More"}},
		{"single newline", "line one\nline two", []string{"line one\nline two"}},
		{"trailing space", "End.  ", []string{"End.  "}},
		{"sentence ends at line break", "First.\nSecond", []string{"First.\n", "Second"}},
		{"quoted question at line break", "She asked \"why?\"\nThen left.", []string{"She asked \"why?\"\n", "Then left."}},
		{"whitespace-only line", "a\n \nb", []string{"a\n \n", "b"}},
		{"wrapped sentence", "Rockets burn a lot\nof propellant. Orbit.", []string{"Rockets burn a lot\nof propellant. ", "Orbit."}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitSentences(tt.text)
			assert.Equal(t, tt.want, got)
			if tt.want != nil {
				assert.Equal(t, tt.text, strings.Join(got, ""))
			}
		})
	}
}

func TestCombineBuffered(t *testing.T) {
	units := []string{"a. ", "b. ", "c. ", "d."}

	assert.Equal(t, []string{"a.", "b.", "c.", "d."}, CombineBuffered(units, 0))
	assert.Equal(t, []string{"a. b.", "a. b. c.", "b. c. d.", "c. d."}, CombineBuffered(units, 1))
	assert.Equal(t, []string{"a. b. c.", "a. b. c. d.", "a. b. c. d.", "b. c. d."}, CombineBuffered(units, 2))
}

func TestPercentile(t *testing.T) {
	assert.Equal(t, 2.5, Percentile([]float64{4, 1, 3, 2}, 50))
	assert.Equal(t, 1.0, Percentile([]float64{4, 1, 3, 2}, 0))
	assert.Equal(t, 4.0, Percentile([]float64{4, 1, 3, 2}, 100))
	assert.InDelta(t, 3.85, Percentile([]float64{1, 2, 3, 4}, 95), 1e-9)
	assert.Equal(t, 7.0, Percentile([]float64{7}, 95))
}

func TestBreakpoints(t *testing.T) {
	distances := []float64{0.1, 0.1, 0.9, 0.1, 0.1, 0.1}
	assert.Equal(t, []int{2}, Breakpoints(distances, 95))
	assert.Empty(t, Breakpoints([]float64{0.3, 0.3, 0.3}, 95))
	assert.Nil(t, Breakpoints(nil, 95))
}

func TestChunkSentences_Pure(t *testing.T) {
	sentences := []string{"a1. ", "a2. ", "b1. ", "b2."}
	embeddings := [][]float32{{1, 0}, {1, 0}, {0, 1}, {0, 1}}

	chunks, err := ChunkSentences(sentences, embeddings, 95)
	require.NoError(t, err)
	assert.Equal(t, []string{"a1. a2. ", "b1. b2."}, chunks)

	chunks, err = ChunkSentences([]string{"only."}, nil, 95)
	require.NoError(t, err)
	assert.Equal(t, []string{"only."}, chunks)

	chunks, err = ChunkSentences(nil, nil, 95)
	require.NoError(t, err)
	assert.Nil(t, chunks)
}

func TestChunkSentences_EmbeddingCountMismatch(t *testing.T) {
	sentences := []string{"a1. ", "a2. ", "b1. ", "b2."}

	chunks, err := ChunkSentences(sentences, [][]float32{{1, 0}, {1, 0}, {0, 1}}, 95)
	require.ErrorIs(t, err, ErrEmbeddingCount)
	assert.Contains(t, err.Error(), "3 embeddings for 4 sentences")
	assert.Nil(t, chunks, "a mismatch never collapses the document into one chunk")
}

func TestSplit_FewerThanTwoSentences(t *testing.T) {
	e := modeltest.NewKeywordEmbedder(catWords)
	c := New(e, Config{BreakpointPercentile: 95, BufferSize: 1})

	chunks, err := c.Split(context.Background(), "A single cat sentence without a break")
	require.NoError(t, err)
	assert.Equal(t, []string{"A single cat sentence without a break"}, chunks)
	assert.Zero(t, e.Calls(), "no boundary computation is possible")

	chunks, err = c.Split(context.Background(), "   ")
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestSplit_TopicShift(t *testing.T) {
	e := modeltest.NewKeywordEmbedder(catWords, rocketWords)
	c := New(e, Config{BreakpointPercentile: 95, BufferSize: 1, EmbedBatchSize: 3})

	chunks, err := c.Split(context.Background(), catsThenRockets)
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	assert.True(t, strings.HasPrefix(chunks[0], "Cats purr"))
	assert.True(t, strings.HasSuffix(strings.TrimSpace(chunks[0]), "Every cat grooms itself often."))
	assert.True(t, strings.HasPrefix(chunks[1], "Rockets burn"))
	assert.Equal(t, catsThenRockets, strings.Join(chunks, ""))
	// 8 sentences in batches of 3
	assert.Equal(t, 3, e.Calls())
}

func TestSplit_UniformTextIsOneChunk(t *testing.T) {
	e := modeltest.NewKeywordEmbedder(catWords)
	c := New(e, Config{BreakpointPercentile: 95, BufferSize: 0})

	text := "The cat sat. The cat ate. The cat slept. The cat woke."
	chunks, err := c.Split(context.Background(), text)
	require.NoError(t, err)
	assert.Equal(t, []string{text}, chunks)
}

func TestSplit_Lossless(t *testing.T) {
	e := modeltest.NewKeywordEmbedder(catWords, rocketWords)
	c := New(e, Config{BreakpointPercentile: 50, BufferSize: 1})

	text := "Cats nap.\nA rocket waits! The kitten plays? Fuel is loaded.\n\n" +
		"Orbit soon. Whiskers twitch. Launch!"
	chunks, err := c.Split(context.Background(), text)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	for _, ch := range chunks {
		assert.NotEmpty(t, strings.TrimSpace(ch))
	}
	assert.Equal(t, text, strings.Join(chunks, ""))
}

func TestSplit_ProviderErrorPropagates(t *testing.T) {
	e := modeltest.NewKeywordEmbedder(catWords)
	e.Err = types.ProviderError("keyword", errors.New("quota exceeded"))
	c := New(e, Config{})

	_, err := c.Split(context.Background(), "One cat. Two cats.")
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrProvider)
}
