// Package document abstracts page-oriented documents so that pages can be
// selected from one or more sources and written back out in a new order.
package document

import (
	"errors"
	"fmt"
	"io"
)

// Page is an opaque page handle. Only the backend that produced it can
// serialize it.
type Page interface {
	// Number is the 1-indexed position of the page in its source.
	Number() int
}

// Document is an ordered, read-only sequence of pages.
type Document interface {
	Name() string
	NumPage() int
	Page(i int) (Page, error)
	Close() error
}

// Opener abstracts opening a path into a Document.
type Opener interface {
	Open(path string) (Document, error)
}

// Writer serializes an ordered page sequence, possibly drawn from several
// documents of the same backend.
type Writer interface {
	Write(w io.Writer, pages []Page) error
}

// Backend opens and writes documents of one format.
type Backend interface {
	Opener
	Writer
}

var ErrNoPages = errors.New("no pages to write")

// PageOutOfRangeError is returned for an index outside [0, NumPage-1].
type PageOutOfRangeError struct {
	Doc   string
	Index int
	Total int
}

func (e *PageOutOfRangeError) Error() string {
	return fmt.Sprintf("%s: page index %d out of range (document has %d pages)", e.Doc, e.Index, e.Total)
}

// ForeignPageError is returned when a writer is handed a page from another backend.
type ForeignPageError struct {
	Position int
	Page     Page
}

func (e *ForeignPageError) Error() string {
	return fmt.Sprintf("page at position %d (%T) does not belong to this backend", e.Position, e.Page)
}

func checkIndex(name string, i, total int) error {
	if i < 0 || i >= total {
		return &PageOutOfRangeError{Doc: name, Index: i, Total: total}
	}
	return nil
}
