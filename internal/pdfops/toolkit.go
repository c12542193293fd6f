// Package pdfops wires page selection, assembly and extraction into the
// split, merge, text and tables operations. Every operation runs its work as
// batch items and returns the batch report.
package pdfops

import (
	"context"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/local/pdftoolkit/internal/assembler"
	"github.com/local/pdftoolkit/internal/batch"
	"github.com/local/pdftoolkit/internal/document"
	"github.com/local/pdftoolkit/internal/extract"
	"github.com/local/pdftoolkit/internal/fileref"
	"github.com/local/pdftoolkit/internal/filetype"
)

// TextDocument is an open text source.
type TextDocument interface {
	extract.TextSource
	Close() error
}

// TableDocument is an open table source.
type TableDocument interface {
	extract.TableSource
	Close() error
}

// Toolkit holds the backends shared by all operations.
type Toolkit struct {
	Backend  document.Backend
	Resolver *fileref.Resolver
	// Detector rejects non-PDF inputs before they reach the backend. Nil
	// disables the check.
	Detector       *filetype.Detector
	Concurrency    int
	ProbeThreshold int

	OpenText   func(path string, clean bool) (TextDocument, error)
	OpenTables func(path string) (TableDocument, error)

	Stdout io.Writer
	outMu  sync.Mutex
}

// New returns a Toolkit backed by pdfcpu, MuPDF and tabula.
func New(resolver *fileref.Resolver) *Toolkit {
	if resolver == nil {
		resolver = &fileref.Resolver{}
	}
	return &Toolkit{
		Backend:        document.NewPDF(),
		Resolver:       resolver,
		Detector:       filetype.New(),
		ProbeThreshold: extract.DefaultThreshold,
		OpenText: func(path string, clean bool) (TextDocument, error) {
			return extract.OpenFitz(path, clean)
		},
		OpenTables: func(path string) (TableDocument, error) {
			return extract.OpenTabula(path)
		},
		Stdout: os.Stdout,
	}
}

func (t *Toolkit) runner(op string) batch.Runner {
	return batch.Runner{Operation: op, Concurrency: t.Concurrency}
}

func (t *Toolkit) assembler() *assembler.Assembler {
	return assembler.New(t.Backend)
}

// localize fetches ref and verifies it is a PDF. The returned func removes
// any temp copy.
func (t *Toolkit) localize(ctx context.Context, ref string) (string, func(), error) {
	local, cleanup, err := t.Resolver.Localize(ctx, ref)
	if err != nil {
		return "", cleanup, err
	}
	if t.Detector != nil {
		if err := t.Detector.RequirePDF(local); err != nil {
			cleanup()
			return "", func() {}, err
		}
	}
	return local, cleanup, nil
}

// openDocument localizes and opens ref with the document backend.
func (t *Toolkit) openDocument(ctx context.Context, ref string) (document.Document, func(), error) {
	local, cleanup, err := t.localize(ctx, ref)
	if err != nil {
		return nil, func() {}, err
	}
	doc, err := t.Backend.Open(local)
	if err != nil {
		cleanup()
		return nil, func() {}, err
	}
	return doc, func() {
		if err := doc.Close(); err != nil {
			log.Warn().Err(err).Str("input", ref).Msg("failed to close document")
		}
		cleanup()
	}, nil
}

// writeOutput writes data to ref, staging and uploading remote targets.
func (t *Toolkit) writeOutput(ctx context.Context, ref, contentType string, write func(local string) error) error {
	target, err := t.Resolver.Target(ref)
	if err != nil {
		return err
	}
	if err := write(target.Local); err != nil {
		target.Discard()
		return err
	}
	return target.Publish(ctx, contentType)
}

// expand expands inputs; a pattern that cannot be expanded becomes a
// single failed item.
func (t *Toolkit) expand(ctx context.Context, inputs []string) ([]string, *batch.Item) {
	refs, err := t.Resolver.Expand(ctx, inputs)
	if err != nil {
		return nil, &batch.Item{
			ID:  strings.Join(inputs, " "),
			Run: func(context.Context) (string, error) { return "", err },
		}
	}
	return refs, nil
}

// baseName is the file name of ref without its extension.
func baseName(ref string) string {
	b := path.Base(filepath.ToSlash(ref))
	return strings.TrimSuffix(b, path.Ext(b))
}

// sibling replaces the extension of ref with suffix, e.g. doc.pdf -> doc_split.
// HTTP inputs resolve to the working directory.
func sibling(ref, suffix string) string {
	if fileref.IsHTTP(ref) {
		if i := strings.IndexAny(ref, "?#"); i >= 0 {
			ref = ref[:i]
		}
		return baseName(ref) + suffix
	}
	ref = strings.TrimPrefix(ref, "file://")
	return strings.TrimSuffix(ref, path.Ext(ref)) + suffix
}
