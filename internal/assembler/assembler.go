package assembler

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/local/pdftoolkit/internal/document"
	"github.com/local/pdftoolkit/internal/metrics"
	"github.com/local/pdftoolkit/internal/pdferr"
)

// Part is one source document and the zero-based indices it contributes.
type Part struct {
	Doc     document.Document
	Indices []int
}

// FullRange selects every page of doc in order.
func FullRange(doc document.Document) Part {
	idx := make([]int, doc.NumPage())
	for i := range idx {
		idx[i] = i
	}
	return Part{Doc: doc, Indices: idx}
}

// Output is an assembled document held in memory.
type Output struct {
	Data  []byte
	Pages int
}

// Assembler recomposes pages from sources through a document.Writer.
type Assembler struct {
	w document.Writer
}

func New(w document.Writer) *Assembler {
	return &Assembler{w: w}
}

// Assemble concatenates the pages of parts in the order supplied.
func (a *Assembler) Assemble(parts []Part) (*Output, error) {
	var pages []document.Page
	for _, part := range parts {
		for _, idx := range part.Indices {
			p, err := part.Doc.Page(idx)
			if err != nil {
				return nil, fmt.Errorf("select page: %w", err)
			}
			pages = append(pages, p)
		}
	}

	var buf bytes.Buffer
	if err := a.w.Write(&buf, pages); err != nil {
		return nil, fmt.Errorf("assemble %d pages: %w", len(pages), err)
	}
	return &Output{Data: buf.Bytes(), Pages: len(pages)}, nil
}

// AssembleFile assembles parts in memory and only then writes dest. The file
// appears at dest only if serialization and the write both succeed.
func (a *Assembler) AssembleFile(dest string, parts []Part) (*Output, error) {
	out, err := a.Assemble(parts)
	if err != nil {
		return nil, err
	}
	if err := WriteFileAtomic(dest, out.Data); err != nil {
		return nil, err
	}
	metrics.AddPagesAssembled(out.Pages)
	log.Debug().Str("dest", dest).Int("pages", out.Pages).Int("bytes", len(out.Data)).Msg("assembled document")
	return out, nil
}

// WriteFileAtomic writes data to a temp file next to dest and renames it in place.
func WriteFileAtomic(dest string, data []byte) error {
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &pdferr.DestinationError{Path: dest, Err: err}
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dest)+".*.tmp")
	if err != nil {
		return &pdferr.DestinationError{Path: dest, Err: err}
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return &pdferr.DestinationError{Path: dest, Err: err}
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return &pdferr.DestinationError{Path: dest, Err: err}
	}
	if err := os.Rename(tmpName, dest); err != nil {
		cleanup()
		return &pdferr.DestinationError{Path: dest, Err: err}
	}
	return nil
}
