package document

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/rs/zerolog/log"

	"github.com/local/pdftoolkit/internal/pdferr"
)

// PDF is the pdfcpu backed Backend.
type PDF struct{}

// NewPDF creates a pdfcpu backend.
func NewPDF() *PDF { return &PDF{} }

type pdfDoc struct {
	mu   sync.Mutex
	name string
	ctx  *model.Context
	rs   *bytes.Reader
}

type pdfPage struct {
	doc *pdfDoc
	nr  int
}

func (p *pdfPage) Number() int { return p.nr }

// Open reads and validates a PDF. The file is loaded into memory so that the
// handle can be released immediately.
func (b *PDF) Open(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &pdferr.SourceError{Path: path, Err: err}
	}
	return b.OpenBytes(path, data)
}

// OpenBytes reads and validates a PDF held in memory.
func (b *PDF) OpenBytes(name string, data []byte) (Document, error) {
	rs := bytes.NewReader(data)
	ctx, err := api.ReadAndValidate(rs, model.NewDefaultConfiguration())
	if err != nil {
		return nil, &pdferr.SourceError{Path: name, Err: fmt.Errorf("parse pdf: %w", err)}
	}
	log.Debug().Str("doc", name).Int("pages", ctx.PageCount).Msg("opened pdf")
	return &pdfDoc{name: name, ctx: ctx, rs: rs}, nil
}

func (d *pdfDoc) Name() string { return d.name }

func (d *pdfDoc) NumPage() int {
	if d.ctx == nil {
		return 0
	}
	return d.ctx.PageCount
}

func (d *pdfDoc) Page(i int) (Page, error) {
	if err := checkIndex(d.name, i, d.NumPage()); err != nil {
		return nil, err
	}
	return &pdfPage{doc: d, nr: i + 1}, nil
}

func (d *pdfDoc) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ctx = nil
	d.rs = nil
	return nil
}

// run is a stretch of consecutive output pages taken from the same source.
type run struct {
	doc *pdfDoc
	nrs []int
}

// Write extracts each run of same-source pages into its own PDF and merges
// the runs in order.
func (b *PDF) Write(w io.Writer, pages []Page) error {
	if len(pages) == 0 {
		return ErrNoPages
	}

	var runs []run
	for i, p := range pages {
		pp, ok := p.(*pdfPage)
		if !ok {
			return &ForeignPageError{Position: i, Page: p}
		}
		if n := len(runs); n > 0 && runs[n-1].doc == pp.doc {
			runs[n-1].nrs = append(runs[n-1].nrs, pp.nr)
			continue
		}
		runs = append(runs, run{doc: pp.doc, nrs: []int{pp.nr}})
	}

	parts := make([]io.ReadSeeker, 0, len(runs))
	for _, r := range runs {
		buf, err := r.extract()
		if err != nil {
			return err
		}
		parts = append(parts, bytes.NewReader(buf))
	}

	if len(parts) == 1 {
		_, err := io.Copy(w, parts[0])
		return err
	}
	if err := api.MergeRaw(parts, w, false, model.NewDefaultConfiguration()); err != nil {
		return fmt.Errorf("merge %d page runs: %w", len(parts), err)
	}
	return nil
}

func (r run) extract() ([]byte, error) {
	r.doc.mu.Lock()
	defer r.doc.mu.Unlock()

	if r.doc.ctx == nil {
		return nil, fmt.Errorf("%s: document is closed", r.doc.name)
	}
	out, err := pdfcpu.ExtractPages(r.doc.ctx, r.nrs, false)
	if err != nil {
		return nil, fmt.Errorf("%s: extract pages %v: %w", r.doc.name, r.nrs, err)
	}
	var buf bytes.Buffer
	if err := api.WriteContext(out, &buf); err != nil {
		return nil, fmt.Errorf("%s: write pages: %w", r.doc.name, err)
	}
	return buf.Bytes(), nil
}

// PageCount returns the number of pages of the PDF at path.
func PageCount(path string) (int, error) {
	n, err := api.PageCountFile(path)
	if err != nil {
		return 0, &pdferr.SourceError{Path: path, Err: err}
	}
	return n, nil
}
