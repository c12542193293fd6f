package document

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"

	"github.com/local/pdftoolkit/internal/pdferr"
	"github.com/local/pdftoolkit/internal/testpdf"
)

func pagesOf(t *testing.T, d Document, idx ...int) []Page {
	t.Helper()
	out := make([]Page, 0, len(idx))
	for _, i := range idx {
		p, err := d.Page(i)
		if err != nil {
			t.Fatalf("%s page %d: %v", d.Name(), i, err)
		}
		out = append(out, p)
	}
	return out
}

func contentOf(t *testing.T, d Document, nr int) string {
	t.Helper()
	pd := d.(*pdfDoc)
	r, err := pdfcpu.ExtractPageContent(pd.ctx, nr)
	if err != nil {
		t.Fatalf("page content %d: %v", nr, err)
	}
	b, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func TestPDFOpen(t *testing.T) {
	dir := t.TempDir()
	path := testpdf.Write(t, dir, "three.pdf", testpdf.Pages("A", 3)...)

	d, err := NewPDF().Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer d.Close()

	if d.NumPage() != 3 {
		t.Errorf("NumPage = %d, want 3", d.NumPage())
	}
	if _, err := d.Page(3); err == nil {
		t.Error("expected out of range error for index 3")
	}

	n, err := PageCount(path)
	if err != nil || n != 3 {
		t.Errorf("PageCount = %d, %v", n, err)
	}
}

func TestPDFOpenMissingAndCorrupt(t *testing.T) {
	dir := t.TempDir()
	b := NewPDF()

	if _, err := b.Open(filepath.Join(dir, "missing.pdf")); !errors.Is(err, pdferr.ErrSourceUnreadable) {
		t.Errorf("missing file: got %v", err)
	}

	bad := filepath.Join(dir, "bad.pdf")
	if err := os.WriteFile(bad, []byte("not a pdf at all"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Open(bad); !errors.Is(err, pdferr.ErrSourceUnreadable) {
		t.Errorf("corrupt file: got %v", err)
	}
}

func TestPDFWriteReordersPages(t *testing.T) {
	b := NewPDF()
	src, err := b.OpenBytes("src", testpdf.Build(testpdf.Pages("A", 4)...))
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	var buf bytes.Buffer
	if err := b.Write(&buf, pagesOf(t, src, 3, 0)); err != nil {
		t.Fatalf("write: %v", err)
	}

	out, err := b.OpenBytes("out", buf.Bytes())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer out.Close()

	if out.NumPage() != 2 {
		t.Fatalf("NumPage = %d, want 2", out.NumPage())
	}
	if c := contentOf(t, out, 1); !strings.Contains(c, "(A4)") {
		t.Errorf("page 1 content = %q, want A4", c)
	}
	if c := contentOf(t, out, 2); !strings.Contains(c, "(A1)") {
		t.Errorf("page 2 content = %q, want A1", c)
	}
}

func TestPDFWriteAcrossDocuments(t *testing.T) {
	b := NewPDF()
	a, err := b.OpenBytes("a", testpdf.Build(testpdf.Pages("A", 2)...))
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	c, err := b.OpenBytes("c", testpdf.Build(testpdf.Pages("C", 3)...))
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	pages := append(pagesOf(t, a, 0, 1), pagesOf(t, c, 0, 1, 2)...)
	var buf bytes.Buffer
	if err := b.Write(&buf, pages); err != nil {
		t.Fatalf("write: %v", err)
	}

	out, err := b.OpenBytes("out", buf.Bytes())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer out.Close()

	want := []string{"(A1)", "(A2)", "(C1)", "(C2)", "(C3)"}
	if out.NumPage() != len(want) {
		t.Fatalf("NumPage = %d, want %d", out.NumPage(), len(want))
	}
	for i, w := range want {
		if c := contentOf(t, out, i+1); !strings.Contains(c, w) {
			t.Errorf("page %d content = %q, want %s", i+1, c, w)
		}
	}
}

func TestPDFWriteRejectsForeignPages(t *testing.T) {
	lines := NewLinesDocument("l", "x")
	p, _ := lines.Page(0)
	err := NewPDF().Write(io.Discard, []Page{p})
	var fe *ForeignPageError
	if !errors.As(err, &fe) {
		t.Errorf("got %v, want ForeignPageError", err)
	}
	if err := NewPDF().Write(io.Discard, nil); !errors.Is(err, ErrNoPages) {
		t.Errorf("empty write: got %v", err)
	}
}

func TestLinesRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.txt")
	if err := os.WriteFile(path, []byte("one\ntwo\n\nfour\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	var l Lines
	d, err := l.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if d.NumPage() != 4 {
		t.Fatalf("NumPage = %d, want 4", d.NumPage())
	}

	var buf bytes.Buffer
	if err := l.Write(&buf, pagesOf(t, d, 3, 0)); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "four\none\n" {
		t.Errorf("output = %q", buf.String())
	}

	if _, err := l.Open(filepath.Join(dir, "nope.txt")); !errors.Is(err, pdferr.ErrSourceUnreadable) {
		t.Errorf("missing: got %v", err)
	}
}
