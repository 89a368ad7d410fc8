package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

// DefaultStrategies is plain text, then page by page, then row
// reconstruction from positioned glyphs.
func DefaultStrategies() []Strategy {
	return []Strategy{
		PlainText{},
		AllPages{},
		RowReconstruction{},
	}
}

// PlainText reads the whole document text layer in one pass.
type PlainText struct{}

func (PlainText) Name() string { return "plain_text" }

func (PlainText) Extract(_ context.Context, data []byte) (text string, err error) {
	defer recoverInto(&err)

	r, err := openReader(data)
	if err != nil {
		return "", err
	}
	rd, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("read plain text: %w", err)
	}
	b, err := io.ReadAll(rd)
	if err != nil {
		return "", fmt.Errorf("read plain text: %w", err)
	}
	return string(b), nil
}

// AllPages extracts every page separately and joins them with newlines.
type AllPages struct{}

func (AllPages) Name() string { return "all_pages" }

func (AllPages) Extract(ctx context.Context, data []byte) (text string, err error) {
	defer recoverInto(&err)

	r, err := openReader(data)
	if err != nil {
		return "", err
	}

	fonts := make(map[string]*pdf.Font)
	pages := make([]string, 0, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		for _, name := range p.Fonts() {
			if _, ok := fonts[name]; !ok {
				f := p.Font(name)
				fonts[name] = &f
			}
		}
		pt, err := p.GetPlainText(fonts)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		pages = append(pages, pt)
	}
	return strings.Join(pages, "\n"), nil
}

// RowReconstruction rebuilds lines from glyph positions, starting a new
// line whenever the Y coordinate changes. Pages whose content stream cannot
// be walked fall back to joining the glyph strings with spaces.
type RowReconstruction struct{}

func (RowReconstruction) Name() string { return "row_reconstruction" }

func (RowReconstruction) Extract(ctx context.Context, data []byte) (text string, err error) {
	defer recoverInto(&err)

	r, err := openReader(data)
	if err != nil {
		return "", err
	}

	var out strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		items, err := pageTexts(p)
		if err != nil {
			continue
		}
		out.WriteString(joinRows(items))
		out.WriteString("\n")
	}
	return out.String(), nil
}

func pageTexts(p pdf.Page) (items []pdf.Text, err error) {
	defer recoverInto(&err)
	return p.Content().Text, nil
}

// joinRows groups glyph runs by Y. If grouping panics the runs are joined
// with spaces instead.
func joinRows(items []pdf.Text) (s string) {
	defer func() {
		if r := recover(); r != nil {
			parts := make([]string, 0, len(items))
			for _, it := range items {
				parts = append(parts, it.S)
			}
			s = strings.Join(parts, " ")
		}
	}()

	var b strings.Builder
	var lastY float64
	for i, it := range items {
		if i > 0 && it.Y != lastY {
			b.WriteString("\n")
		}
		b.WriteString(it.S)
		lastY = it.Y
	}
	return b.String()
}

func openReader(data []byte) (*pdf.Reader, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	return r, nil
}

// recoverInto converts a panic from the pdf parser into *errp.
func recoverInto(errp *error) {
	if r := recover(); r != nil {
		*errp = fmt.Errorf("pdf parser panic: %v", r)
	}
}
