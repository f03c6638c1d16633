package types

import (
	"strings"

	"github.com/google/uuid"
)

type Similarity string

const (
	SimilarityCosine Similarity = "cosine"
)

// DocumentChunk is the atomic retrievable unit persisted in the vector store.
type DocumentChunk struct {
	RunID      uuid.UUID // ingestion run that produced the chunk
	Text       string
	Embedding  []float32
	SourceFile string // original document name
	ChunkIndex int    // position within the ingestion run, starting at 0
}

// RetrievalResult is a ranked search hit. It is never persisted.
type RetrievalResult struct {
	Text       string
	SourceFile string
	Score      float64
}

// SourceDocument is a loaded PDF, one entry per page.
type SourceDocument struct {
	SourceFile string
	Path       string
	Pages      []string
}

// Text joins the non-empty pages with a blank line so that a page break is
// also a paragraph break for the sentence splitter.
func (d SourceDocument) Text() string {
	parts := make([]string, 0, len(d.Pages))
	for _, p := range d.Pages {
		if strings.TrimSpace(p) == "" {
			continue
		}
		parts = append(parts, p)
	}
	return strings.Join(parts, "\n\n")
}
