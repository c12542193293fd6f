// Package extract requests text and table content page by page and tags
// every result with the page it came from.
package extract

import (
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/local/pdftoolkit/internal/metrics"
	"github.com/local/pdftoolkit/internal/pagerange"
)

// Kind is the type of content held by a Result.
type Kind int

const (
	KindText Kind = iota + 1
	KindTable
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindTable:
		return "table"
	}
	return "unknown"
}

// Result is one piece of extracted content with its provenance.
type Result struct {
	PageNumber int // 1-indexed
	Kind       Kind
	Text       string
	TableIndex int        // 1-based, resets on every page
	Rows       [][]string // first row is the header; rows may be ragged
}

// TextSource yields the text of a page by zero-based index. An empty string
// means the page has no text.
type TextSource interface {
	NumPage() int
	PageText(i int) (string, error)
}

// TableSource yields zero or more table grids for a page by zero-based index.
type TableSource interface {
	NumPage() int
	PageTables(i int) ([][][]string, error)
}

// PageError records a page that failed to extract.
type PageError struct {
	Page int
	Err  error
}

// Report collects the results of one extraction pass.
type Report struct {
	Results []Result
	Empty   []int // pages without content
	Failed  []PageError
	Skipped []int // requested pages that do not exist
}

// Text extracts text for the 1-indexed pages (nil means every page). Blank
// pages are listed in Empty and produce no Result.
func Text(src TextSource, pages []int) Report {
	var rep Report
	idx := selection(src.NumPage(), pages, &rep)
	for _, i := range idx {
		text, err := src.PageText(i)
		if err != nil {
			log.Warn().Err(err).Int("page", i+1).Msg("text extraction failed")
			rep.Failed = append(rep.Failed, PageError{Page: i + 1, Err: err})
			metrics.IncExtracted("failed")
			continue
		}
		if strings.TrimSpace(text) == "" {
			log.Debug().Int("page", i+1).Msg("page has no text")
			rep.Empty = append(rep.Empty, i+1)
			metrics.IncExtracted("empty")
			continue
		}
		rep.Results = append(rep.Results, Result{PageNumber: i + 1, Kind: KindText, Text: text})
		metrics.IncExtracted("text")
	}
	return rep
}

// Tables extracts table grids for the 1-indexed pages (nil means every page).
// Grids without any cell text are dropped; TableIndex is the grid's position
// on the page, so a dropped grid leaves a gap.
func Tables(src TableSource, pages []int) Report {
	var rep Report
	idx := selection(src.NumPage(), pages, &rep)
	for _, i := range idx {
		grids, err := src.PageTables(i)
		if err != nil {
			log.Warn().Err(err).Int("page", i+1).Msg("table extraction failed")
			rep.Failed = append(rep.Failed, PageError{Page: i + 1, Err: err})
			metrics.IncExtracted("failed")
			continue
		}
		n := 0
		for j, g := range grids {
			if blank(g) {
				continue
			}
			n++
			rep.Results = append(rep.Results, Result{PageNumber: i + 1, Kind: KindTable, TableIndex: j + 1, Rows: g})
			metrics.IncExtracted("table")
		}
		if n == 0 {
			rep.Empty = append(rep.Empty, i+1)
			metrics.IncExtracted("empty")
		}
	}
	return rep
}

func selection(total int, pages []int, rep *Report) []int {
	if pages == nil {
		idx := make([]int, total)
		for i := range idx {
			idx[i] = i
		}
		return idx
	}
	kept, dropped := pagerange.Filter(total, pages)
	rep.Skipped = dropped
	return kept
}

func blank(grid [][]string) bool {
	for _, row := range grid {
		for _, cell := range row {
			if strings.TrimSpace(cell) != "" {
				return false
			}
		}
	}
	return true
}
