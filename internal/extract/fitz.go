package extract

import (
	"fmt"
	"strings"

	fitz "github.com/gen2brain/go-fitz"
	"github.com/rs/zerolog/log"

	"github.com/local/pdftoolkit/internal/pdferr"
)

// FitzSource extracts page text with MuPDF through go-fitz.
type FitzSource struct {
	doc   *fitz.Document
	path  string
	clean bool
}

// OpenFitz opens path for text extraction. With clean set, page numbers,
// header and footer lines and noise are removed and wrapped lines rejoined.
func OpenFitz(path string, clean bool) (*FitzSource, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, &pdferr.SourceError{Path: path, Err: fmt.Errorf("open pdf: %w", err)}
	}
	return &FitzSource{doc: doc, path: path, clean: clean}, nil
}

func (s *FitzSource) NumPage() int { return s.doc.NumPage() }

func (s *FitzSource) PageText(i int) (string, error) {
	raw, err := s.doc.Text(i)
	if err != nil {
		return "", fmt.Errorf("text page %d: %w", i+1, err)
	}
	if !s.clean {
		return raw, nil
	}
	cleaned := Clean(raw, i+1)
	log.Debug().
		Int("page", i+1).
		Int("raw_chars", len(raw)).
		Int("cleaned_chars", len(cleaned)).
		Msg("cleaned page text")
	return cleaned, nil
}

func (s *FitzSource) Close() error { return s.doc.Close() }

// Clean removes page numbers, headers, footers and noise lines and joins
// lines broken mid-sentence.
func Clean(text string, pageNum int) string {
	var kept []string
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || isPageNumber(trimmed, pageNum) || isBoilerplate(trimmed) || isNoise(trimmed) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(joinBrokenLines(kept))
}

func isPageNumber(line string, pageNum int) bool {
	n := fmt.Sprintf("%d", pageNum)
	if line == n {
		return true
	}
	for _, pattern := range []string{"Page " + n, "- " + n + " -", "[" + n + "]"} {
		if strings.EqualFold(line, pattern) {
			return true
		}
	}
	return false
}

var footerMarkers = []string{
	"CONFIDENTIAL",
	"COPYRIGHT",
	"ALL RIGHTS RESERVED",
	"PROPRIETARY",
}

func isBoilerplate(line string) bool {
	if len(line) < 3 {
		return true
	}
	// Short all-caps lines of one or two words are running headers.
	if len(line) < 50 && strings.ToUpper(line) == line && len(strings.Fields(line)) <= 2 {
		return true
	}
	if len(line) >= 100 {
		return false
	}
	upper := strings.ToUpper(line)
	for _, marker := range footerMarkers {
		if strings.Contains(upper, marker) {
			return true
		}
	}
	return false
}

func isNoise(line string) bool {
	for _, r := range line {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r > 0x7f {
			return false
		}
	}
	return true
}

func joinBrokenLines(lines []string) string {
	var fixed []string
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		if i < len(lines)-1 {
			cur := strings.TrimSpace(line)
			next := strings.TrimSpace(lines[i+1])
			if cur != "" && next != "" && !endsSentence(cur) && startsLower(next) && !strings.HasSuffix(cur, "-") {
				fixed = append(fixed, cur+" "+next)
				i++
				continue
			}
		}
		fixed = append(fixed, line)
	}
	return strings.Join(fixed, "\n")
}

func endsSentence(s string) bool {
	switch s[len(s)-1] {
	case '.', '!', '?', ':', ';':
		return true
	}
	return false
}

func startsLower(s string) bool { return s[0] >= 'a' && s[0] <= 'z' }
