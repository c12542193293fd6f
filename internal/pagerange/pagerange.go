// Package pagerange turns user page specifications into validated groups of
// zero-based page indices.
package pagerange

import "fmt"

// PageRange is a 1-indexed inclusive span of page numbers with 1 <= start <= end.
// Whether the pages exist is only checked when the range is resolved against a
// document.
type PageRange struct {
	start int
	end   int
}

// NewPageRange returns a range or an InvalidRangeFormat error when the bounds
// are reversed or below 1.
func NewPageRange(start, end int) (PageRange, error) {
	if start < 1 {
		return PageRange{}, invalid(fmt.Sprintf("%d-%d", start, end), "page numbers start at 1")
	}
	if start > end {
		return PageRange{}, invalid(fmt.Sprintf("%d-%d", start, end), "start is after end")
	}
	return PageRange{start: start, end: end}, nil
}

func (r PageRange) Start() int { return r.start }
func (r PageRange) End() int { return r.end }

// Len is the number of pages covered.
func (r PageRange) Len() int {
	if r.end < r.start {
		return 0
	}
	return r.end - r.start + 1
}

func (r PageRange) String() string {
	if r.start == r.end {
		return fmt.Sprintf("%d", r.start)
	}
	return fmt.Sprintf("%d-%d", r.start, r.end)
}

// Expand flattens ranges into 1-indexed page numbers, keeping order and
// duplicates.
func Expand(ranges []PageRange) []int {
	var pages []int
	for _, r := range ranges {
		for p := r.start; p <= r.end; p++ {
			pages = append(pages, p)
		}
	}
	return pages
}

// Kind tags the variant held by a Spec.
type Kind int

const (
	KindSingle Kind = iota + 1
	KindRange
	KindChunk
)

func (k Kind) String() string {
	switch k {
	case KindSingle:
		return "single"
	case KindRange:
		return "range"
	case KindChunk:
		return "chunk"
	}
	return "unknown"
}

// Spec is one page specification: a single page, a range, or a chunk size.
type Spec struct {
	kind  Kind
	rng   PageRange
	chunk int
}

// Single selects one page.
func Single(page int) Spec { return Spec{kind: KindSingle, rng: PageRange{start: page, end: page}} }

// Range selects an inclusive span of pages.
func Range(r PageRange) Spec { return Spec{kind: KindRange, rng: r} }

// ChunkSize partitions the whole document into groups of n pages.
func ChunkSize(n int) Spec { return Spec{kind: KindChunk, chunk: n} }

func (s Spec) Kind() Kind { return s.kind }
func (s Spec) PageRange() PageRange { return s.rng }
func (s Spec) Chunk() int { return s.chunk }

func (s Spec) String() string {
	switch s.kind {
	case KindSingle, KindRange:
		return s.rng.String()
	case KindChunk:
		return fmt.Sprintf("chunk:%d", s.chunk)
	}
	return "invalid"
}
