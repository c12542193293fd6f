package extract

import (
	"math/rand"
	"regexp"
	"sort"
	"time"
)

// PageProbe captures the result of probing a single page.
type PageProbe struct {
	PageIndex int    `json:"page_index"`
	CharCount int    `json:"char_count"`
	Err       string `json:"err,omitempty"`
}

// Diagnostics describes how a text-extractability decision was reached.
type Diagnostics struct {
	TotalPages         int         `json:"total_pages"`
	SampledPages       []int       `json:"sampled_pages"`
	TotalCharsInSample int         `json:"total_chars_in_sample"`
	Threshold          int         `json:"threshold"`
	Probes             []PageProbe `json:"probes"`
	HasExtractableText bool        `json:"has_extractable_text"`
	DurationMs         int64       `json:"duration_ms"`
}

// DefaultThreshold is used when a non-positive threshold is passed in.
const DefaultThreshold = 300

var whitespaceRegex = regexp.MustCompile(`\s+`)

// Probe samples up to five pages of src and reports whether they carry at
// least threshold non-whitespace characters. Scanned documents fail the probe.
func Probe(src TextSource, threshold int) *Diagnostics {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	start := time.Now()
	total := src.NumPage()
	sample := sampleIndices(total)

	diag := &Diagnostics{
		TotalPages:   total,
		SampledPages: sample,
		Threshold:    threshold,
		Probes:       make([]PageProbe, 0, len(sample)),
	}
	for _, idx := range sample {
		probe := PageProbe{PageIndex: idx}
		text, err := src.PageText(idx)
		if err != nil {
			probe.Err = err.Error()
			diag.Probes = append(diag.Probes, probe)
			continue
		}
		probe.CharCount = len([]rune(whitespaceRegex.ReplaceAllString(text, "")))
		diag.TotalCharsInSample += probe.CharCount
		diag.Probes = append(diag.Probes, probe)
		if diag.TotalCharsInSample >= threshold {
			break
		}
	}
	diag.HasExtractableText = diag.TotalCharsInSample >= threshold
	diag.DurationMs = time.Since(start).Milliseconds()
	return diag
}

// sampleIndices returns every page for short documents, otherwise first,
// middle and last plus two random distinct pages.
func sampleIndices(total int) []int {
	if total <= 0 {
		return []int{}
	}
	if total <= 5 {
		idx := make([]int, total)
		for i := range idx {
			idx[i] = i
		}
		return idx
	}

	picked := map[int]struct{}{0: {}, total / 2: {}, total - 1: {}}
	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
	for len(picked) < 5 {
		picked[rnd.Intn(total)] = struct{}{}
	}

	out := make([]int, 0, len(picked))
	for i := range picked {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}
