package assembler

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/local/pdftoolkit/internal/document"
	"github.com/local/pdftoolkit/internal/pdferr"
	"github.com/local/pdftoolkit/internal/testpdf"
)

// reopen parses assembled line output back into its page texts.
func reopen(t *testing.T, out *Output) []string {
	t.Helper()
	text := strings.TrimSuffix(string(out.Data), "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

func TestAssembleKeepsSuppliedOrder(t *testing.T) {
	doc := document.NewLinesDocument("d", "p1", "p2", "p3", "p4")
	a := New(document.Lines{})

	out, err := a.Assemble([]Part{{Doc: doc, Indices: []int{2, 0, 3}}})
	if err != nil {
		t.Fatal(err)
	}
	if got := reopen(t, out); !reflect.DeepEqual(got, []string{"p3", "p1", "p4"}) {
		t.Errorf("pages = %v", got)
	}
	if out.Pages != 3 {
		t.Errorf("Pages = %d", out.Pages)
	}
}

func TestAssembleMergeThreeSources(t *testing.T) {
	a := document.NewLinesDocument("a", "a1", "a2")
	b := document.NewLinesDocument("b", "b1", "b2", "b3")
	c := document.NewLinesDocument("c", "c1")

	out, err := New(document.Lines{}).Assemble([]Part{FullRange(a), FullRange(b), FullRange(c)})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"a1", "a2", "b1", "b2", "b3", "c1"}
	if got := reopen(t, out); !reflect.DeepEqual(got, want) {
		t.Errorf("pages = %v, want %v", got, want)
	}
}

func TestMergeAssociative(t *testing.T) {
	a := document.NewLinesDocument("a", "a1", "a2")
	b := document.NewLinesDocument("b", "b1")
	c := document.NewLinesDocument("c", "c1", "c2")
	asm := New(document.Lines{})

	ab, err := asm.Assemble([]Part{FullRange(a), FullRange(b)})
	if err != nil {
		t.Fatal(err)
	}
	abDoc := document.NewLinesDocument("ab", reopen(t, ab)...)
	left, err := asm.Assemble([]Part{FullRange(abDoc), FullRange(c)})
	if err != nil {
		t.Fatal(err)
	}

	direct, err := asm.Assemble([]Part{FullRange(a), FullRange(b), FullRange(c)})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(left.Data, direct.Data) {
		t.Errorf("(A+B)+C = %q, A+B+C = %q", left.Data, direct.Data)
	}
}

func TestSplitThenMergeRoundTrip(t *testing.T) {
	src := document.NewLinesDocument("src", "one", "two", "three", "four", "five")
	asm := New(document.Lines{})

	var parts []Part
	for i := 0; i < src.NumPage(); i++ {
		single, err := asm.Assemble([]Part{{Doc: src, Indices: []int{i}}})
		if err != nil {
			t.Fatal(err)
		}
		parts = append(parts, FullRange(document.NewLinesDocument("s", reopen(t, single)...)))
	}

	merged, err := asm.Assemble(parts)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"one", "two", "three", "four", "five"}
	if got := reopen(t, merged); !reflect.DeepEqual(got, want) {
		t.Errorf("round trip = %v", got)
	}
}

func TestAssembleRejectsBadIndex(t *testing.T) {
	doc := document.NewLinesDocument("d", "p1")
	_, err := New(document.Lines{}).Assemble([]Part{{Doc: doc, Indices: []int{0, 1}}})
	var oor *document.PageOutOfRangeError
	if !errors.As(err, &oor) {
		t.Errorf("got %v, want PageOutOfRangeError", err)
	}
}

func TestAssembleFileWritesAtomically(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "nested", "out.txt")
	doc := document.NewLinesDocument("d", "x", "y")

	if _, err := New(document.Lines{}).AssembleFile(dest, []Part{FullRange(doc)}); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "x\ny\n" {
		t.Errorf("dest = %q", data)
	}

	entries, _ := os.ReadDir(filepath.Dir(dest))
	if len(entries) != 1 {
		t.Errorf("expected only the output file, found %d entries", len(entries))
	}
}

func TestAssembleFileFailureLeavesNoOutput(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "out.txt")
	doc := document.NewLinesDocument("d", "x")

	_, err := New(document.Lines{}).AssembleFile(dest, []Part{{Doc: doc, Indices: []int{5}}})
	if err == nil {
		t.Fatal("expected error")
	}
	if _, statErr := os.Stat(dest); !os.IsNotExist(statErr) {
		t.Errorf("dest exists after failed assembly: %v", statErr)
	}
}

func TestAssembleFileUnwritableDestination(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	// A path below a regular file can never be created.
	dest := filepath.Join(blocker, "out.txt")
	doc := document.NewLinesDocument("d", "x")

	_, err := New(document.Lines{}).AssembleFile(dest, []Part{FullRange(doc)})
	if !errors.Is(err, pdferr.ErrDestinationWriteFailed) {
		t.Errorf("got %v, want DestinationWriteFailed", err)
	}
}

func TestAssemblePDFMerge(t *testing.T) {
	b := document.NewPDF()
	var parts []Part
	for _, spec := range []struct {
		prefix string
		n      int
	}{{"A", 2}, {"B", 3}, {"C", 1}} {
		d, err := b.OpenBytes(spec.prefix, testpdf.Build(testpdf.Pages(spec.prefix, spec.n)...))
		if err != nil {
			t.Fatal(err)
		}
		defer d.Close()
		parts = append(parts, FullRange(d))
	}

	dest := filepath.Join(t.TempDir(), "merged.pdf")
	out, err := New(b).AssembleFile(dest, parts)
	if err != nil {
		t.Fatal(err)
	}
	if out.Pages != 6 {
		t.Errorf("Pages = %d, want 6", out.Pages)
	}
	n, err := document.PageCount(dest)
	if err != nil {
		t.Fatal(err)
	}
	if n != 6 {
		t.Errorf("merged page count = %d, want 6", n)
	}
}
