package document

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"strings"

	"github.com/local/pdftoolkit/internal/pdferr"
)

// Lines is a plain-text backend where every line of a file is one page.
// Written output keeps the same layout, so it round-trips through Open.
type Lines struct{}

type linesDoc struct {
	name  string
	pages []string
}

type linePage struct {
	nr   int
	text string
}

func (p *linePage) Number() int { return p.nr }
func (p *linePage) Text() string { return p.text }

// NewLinesDocument builds an in-memory document from page texts.
func NewLinesDocument(name string, pages ...string) Document {
	return &linesDoc{name: name, pages: append([]string(nil), pages...)}
}

func (Lines) Open(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &pdferr.SourceError{Path: path, Err: err}
	}
	var pages []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		pages = append(pages, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, &pdferr.SourceError{Path: path, Err: err}
	}
	return &linesDoc{name: path, pages: pages}, nil
}

func (Lines) Write(w io.Writer, pages []Page) error {
	if len(pages) == 0 {
		return ErrNoPages
	}
	var sb strings.Builder
	for i, p := range pages {
		lp, ok := p.(*linePage)
		if !ok {
			return &ForeignPageError{Position: i, Page: p}
		}
		sb.WriteString(lp.text)
		sb.WriteByte('\n')
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

func (d *linesDoc) Name() string { return d.name }
func (d *linesDoc) NumPage() int { return len(d.pages) }
func (d *linesDoc) Close() error { return nil }

func (d *linesDoc) Page(i int) (Page, error) {
	if err := checkIndex(d.name, i, len(d.pages)); err != nil {
		return nil, err
	}
	return &linePage{nr: i + 1, text: d.pages[i]}, nil
}

// PageText returns the text of page i, so line documents can also serve as
// an extraction source.
func (d *linesDoc) PageText(i int) (string, error) {
	if err := checkIndex(d.name, i, len(d.pages)); err != nil {
		return "", err
	}
	return d.pages[i], nil
}
