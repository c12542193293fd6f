package pagerange

import (
	"strconv"
	"strings"

	"github.com/local/pdftoolkit/internal/pdferr"
)

func invalid(token, reason string) error {
	return &pdferr.InvalidRangeFormatError{Token: token, Reason: reason}
}

// ParseToken parses "3" or "2-7" into a PageRange.
func ParseToken(token string) (PageRange, error) {
	t := strings.TrimSpace(token)
	if t == "" {
		return PageRange{}, invalid(token, "empty token")
	}

	startStr, endStr, isPair := strings.Cut(t, "-")
	if !isPair {
		n, err := strconv.Atoi(t)
		if err != nil {
			return PageRange{}, invalid(token, "not an integer")
		}
		if n < 1 {
			return PageRange{}, invalid(token, "page numbers start at 1")
		}
		return PageRange{start: n, end: n}, nil
	}

	start, err := strconv.Atoi(strings.TrimSpace(startStr))
	if err != nil {
		return PageRange{}, invalid(token, "start is not an integer")
	}
	end, err := strconv.Atoi(strings.TrimSpace(endStr))
	if err != nil {
		return PageRange{}, invalid(token, "end is not an integer")
	}
	if start < 1 {
		return PageRange{}, invalid(token, "page numbers start at 1")
	}
	if start > end {
		return PageRange{}, invalid(token, "start is after end")
	}
	return PageRange{start: start, end: end}, nil
}

// ParseTokens parses each token in order. The first bad token aborts the
// parse; overlapping and out-of-order ranges are returned unchanged.
func ParseTokens(tokens []string) ([]PageRange, error) {
	out := make([]PageRange, 0, len(tokens))
	for _, tok := range tokens {
		r, err := ParseToken(tok)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// ParseList parses a free-form list such as "1-3, 5 7-9".
func ParseList(s string) ([]PageRange, error) {
	return ParseTokens(splitList(s))
}

// ParseSpecs parses tokens into Single specs for bare integers and Range
// specs for pairs.
func ParseSpecs(tokens []string) ([]Spec, error) {
	var specs []Spec
	for _, tok := range tokens {
		for _, part := range splitList(tok) {
			r, err := ParseToken(part)
			if err != nil {
				return nil, err
			}
			if strings.Contains(part, "-") {
				specs = append(specs, Range(r))
			} else {
				specs = append(specs, Single(r.start))
			}
		}
	}
	return specs, nil
}

func splitList(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';' || r == ' ' || r == '\t' || r == '\n'
	})
}
