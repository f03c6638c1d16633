package internal

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
	"golang.org/x/text/unicode/norm"

	"rax/types"
)

// PDFLoader reads the text of PDF files, one string per page.
type PDFLoader struct {
	logger *slog.Logger
}

func NewPDFLoader() *PDFLoader {
	return &PDFLoader{
		logger: slog.Default(),
	}
}

// LoadDir loads every *.pdf file directly inside dir, in name order.
func (l *PDFLoader) LoadDir(ctx context.Context, dir string) ([]types.SourceDocument, error) {
	files, err := ListPDFs(dir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, types.InputError("load "+dir, types.ErrNoDocuments)
	}
	return l.LoadFiles(ctx, files)
}

func (l *PDFLoader) LoadFiles(ctx context.Context, paths []string) ([]types.SourceDocument, error) {
	if len(paths) == 0 {
		return nil, types.InputError("load", types.ErrNoDocuments)
	}
	docs := make([]types.SourceDocument, 0, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		doc, err := l.LoadFile(path)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (l *PDFLoader) LoadFile(path string) (types.SourceDocument, error) {
	op := "load " + filepath.Base(path)

	pageCount, err := ValidatePDF(path)
	if err != nil {
		return types.SourceDocument{}, types.InputError(op, err)
	}

	pages, err := extractPages(path)
	if err != nil {
		return types.SourceDocument{}, types.InputError(op, err)
	}

	l.logger.Info("[LOADER] PDF loaded", "file", filepath.Base(path), "pages", pageCount, "text_pages", countNonBlank(pages))
	return types.SourceDocument{
		SourceFile: filepath.Base(path),
		Path:       path,
		Pages:      pages,
	}, nil
}

// ListPDFs returns the PDF files directly inside dir, sorted by name.
func ListPDFs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, types.InputError("list "+dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !IsPDF(e.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

func IsPDF(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".pdf")
}

func extractPages(path string) (pages []string, err error) {
	// the parser panics on some malformed content streams
	defer func() {
		if r := recover(); r != nil {
			pages, err = nil, fmt.Errorf("failed to parse %s: %v", path, r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	pages = make([]string, 0, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			pages = append(pages, "")
			continue
		}

		fonts := make(map[string]*pdf.Font)
		for _, name := range p.Fonts() {
			font := p.Font(name)
			fonts[name] = &font
		}
		text, err := p.GetPlainText(fonts)
		if err != nil {
			return nil, fmt.Errorf("failed to read page %d of %s: %w", i, path, err)
		}
		pages = append(pages, normalizePage(text))
	}
	return pages, nil
}

// normalizePage composes accents the PDF stored as base letter plus
// combining mark, so "e\u0301" and "\u00e9" embed and match alike.
func normalizePage(text string) string {
	return norm.NFC.String(text)
}

func countNonBlank(pages []string) int {
	n := 0
	for _, p := range pages {
		if strings.TrimSpace(p) != "" {
			n++
		}
	}
	return n
}
