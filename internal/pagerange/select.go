package pagerange

import (
	"fmt"

	"github.com/local/pdftoolkit/internal/pdferr"
)

// Group is one output document's worth of zero-based page indices, all from
// a single source.
type Group struct {
	Kind     Kind
	Position int   // index of the originating spec
	Indices  []int // zero-based, in output order
	// SinglePage is set for single-page specs and chunks of size 1.
	SinglePage bool
}

// First is the 1-indexed number of the first page in the group.
func (g Group) First() int {
	if len(g.Indices) == 0 {
		return 0
	}
	return g.Indices[0] + 1
}

// Last is the 1-indexed number of the last page in the group.
func (g Group) Last() int {
	if len(g.Indices) == 0 {
		return 0
	}
	return g.Indices[len(g.Indices)-1] + 1
}

// Label describes the group for output names: "page_3" or "pages_1-5".
func (g Group) Label() string {
	if g.SinglePage {
		return fmt.Sprintf("page_%d", g.First())
	}
	return fmt.Sprintf("pages_%d-%d", g.First(), g.Last())
}

// Skip is a spec that could not be resolved against the document.
type Skip struct {
	Position int
	Spec     Spec
	Err      error
}

// Selection is the result of resolving specs; Groups and Skipped keep the
// relative order of their specs.
type Selection struct {
	Groups  []Group
	Skipped []Skip
}

// Chunks partitions [0, total-1] into ceil(total/size) consecutive groups.
func Chunks(total, size int) ([]Group, error) {
	if size < 1 {
		return nil, &pdferr.InvalidChunkSizeError{Size: size}
	}
	if total < 0 {
		total = 0
	}
	groups := make([]Group, 0, (total+size-1)/size)
	for start := 0; start < total; start += size {
		end := start + size
		if end > total {
			end = total
		}
		idx := make([]int, 0, end-start)
		for i := start; i < end; i++ {
			idx = append(idx, i)
		}
		groups = append(groups, Group{Kind: KindChunk, Indices: idx, SinglePage: size == 1})
	}
	return groups, nil
}

// Ranges resolves each range into one group. Ranges that do not fit the
// document are skipped, not fatal.
func Ranges(total int, ranges []PageRange) Selection {
	specs := make([]Spec, len(ranges))
	for i, r := range ranges {
		specs[i] = Range(r)
	}
	// Range specs never fail resolution as a whole.
	sel, _ := Resolve(total, specs)
	return sel
}

// Resolve turns specs into groups against a document of total pages. Only an
// invalid chunk size is returned as an error; out-of-bounds ranges become
// Skipped entries.
func Resolve(total int, specs []Spec) (Selection, error) {
	var sel Selection
	for pos, s := range specs {
		switch s.kind {
		case KindSingle, KindRange:
			r := s.rng
			if r.start < 1 || r.end > total || r.start > r.end {
				sel.Skipped = append(sel.Skipped, Skip{
					Position: pos,
					Spec:     s,
					Err:      &pdferr.RangeOutOfBoundsError{Start: r.start, End: r.end, Total: total},
				})
				continue
			}
			idx := make([]int, 0, r.Len())
			for p := r.start; p <= r.end; p++ {
				idx = append(idx, p-1)
			}
			sel.Groups = append(sel.Groups, Group{
				Kind:       s.kind,
				Position:   pos,
				Indices:    idx,
				SinglePage: s.kind == KindSingle,
			})
		case KindChunk:
			groups, err := Chunks(total, s.chunk)
			if err != nil {
				return Selection{}, err
			}
			for i := range groups {
				groups[i].Position = pos
			}
			sel.Groups = append(sel.Groups, groups...)
		default:
			return Selection{}, fmt.Errorf("unknown page spec kind %d at position %d", s.kind, pos)
		}
	}
	return sel, nil
}

// Filter keeps the 1-indexed pages that exist in a document of total pages,
// converting them to zero-based indices. Order and duplicates are kept.
func Filter(total int, pages []int) (kept []int, dropped []int) {
	for _, p := range pages {
		if p < 1 || p > total {
			dropped = append(dropped, p)
			continue
		}
		kept = append(kept, p-1)
	}
	return kept, dropped
}
