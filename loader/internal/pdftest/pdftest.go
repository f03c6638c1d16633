// Package pdftest writes small text-only PDF files for tests.
package pdftest

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

type font struct {
	Name string `json:"name"`
	Size int    `json:"size"`
}

type textBox struct {
	Value string     `json:"value"`
	Pos   [2]float64 `json:"pos"`
	Font  font       `json:"font"`
}

type page struct {
	Content struct {
		Text []textBox `json:"text"`
	} `json:"content"`
}

type layout struct {
	Paper  string          `json:"paper"`
	Origin string          `json:"origin"`
	Pages  map[string]page `json:"pages"`
}

// Build returns a PDF with one page per element of pages, each showing its
// text in Helvetica on a single line.
func Build(t testing.TB, pages ...string) []byte {
	t.Helper()

	l := layout{Paper: "A4P", Origin: "LowerLeft", Pages: make(map[string]page, len(pages))}
	for i, text := range pages {
		var p page
		p.Content.Text = []textBox{{
			Value: text,
			Pos:   [2]float64{20, 780},
			Font:  font{Name: "Helvetica", Size: 6},
		}}
		l.Pages[strconv.Itoa(i+1)] = p
	}
	spec, err := json.Marshal(l)
	if err != nil {
		t.Fatalf("marshal page layout: %v", err)
	}

	var buf bytes.Buffer
	if err := api.Create(nil, bytes.NewReader(spec), &buf, nil); err != nil {
		t.Fatalf("create pdf: %v", err)
	}
	return buf.Bytes()
}

// WriteFile writes Build(t, pages...) to dir/name and returns the path.
func WriteFile(t testing.TB, dir, name string, pages ...string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, Build(t, pages...), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
