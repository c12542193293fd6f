package filetype

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/local/pdftoolkit/internal/pdferr"
	"github.com/local/pdftoolkit/internal/testpdf"
)

func TestDetect(t *testing.T) {
	dir := t.TempDir()
	pdfPath := testpdf.Write(t, dir, "doc.pdf", "hello")
	txtPath := filepath.Join(dir, "notes.pdf")
	if err := os.WriteFile(txtPath, []byte("just some notes\nsecond line\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	d := New()

	info, err := d.Detect(pdfPath)
	if err != nil {
		t.Fatal(err)
	}
	if !info.IsPDF || info.MIMEType != "application/pdf" {
		t.Errorf("pdf info = %+v", info)
	}

	info, err = d.Detect(txtPath)
	if err != nil {
		t.Fatal(err)
	}
	if info.IsPDF || !strings.HasPrefix(info.MIMEType, "text/plain") {
		t.Errorf("text info = %+v", info)
	}
}

func TestRequirePDF(t *testing.T) {
	dir := t.TempDir()
	d := New()

	if err := d.RequirePDF(testpdf.Write(t, dir, "ok.pdf", "x")); err != nil {
		t.Errorf("valid pdf rejected: %v", err)
	}

	fake := filepath.Join(dir, "fake.pdf")
	if err := os.WriteFile(fake, []byte("plain text pretending"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := d.RequirePDF(fake); !errors.Is(err, pdferr.ErrSourceUnreadable) {
		t.Errorf("text file: got %v", err)
	}
	if err := d.RequirePDF(filepath.Join(dir, "missing.pdf")); !errors.Is(err, pdferr.ErrSourceUnreadable) {
		t.Errorf("missing file: got %v", err)
	}
}
