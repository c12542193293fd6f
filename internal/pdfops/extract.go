package pdfops

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/local/pdftoolkit/internal/assembler"
	"github.com/local/pdftoolkit/internal/batch"
	"github.com/local/pdftoolkit/internal/extract"
	"github.com/local/pdftoolkit/internal/fileref"
	"github.com/local/pdftoolkit/internal/pagerange"
)

// Stdout as an output reference writes text to the toolkit's Stdout.
const Stdout = "-"

// TextRequest extracts the text of Input. Pages accepts single pages and
// ranges; pages beyond the document are skipped.
type TextRequest struct {
	Input  string   `json:"input" yaml:"input"`
	Output string   `json:"output,omitempty" yaml:"output"`
	Pages  []string `json:"pages,omitempty" yaml:"pages"`
	Clean  bool     `json:"clean,omitempty" yaml:"clean"`
}

// TablesRequest extracts the tables of Input as CSV files.
type TablesRequest struct {
	Input     string   `json:"input" yaml:"input"`
	OutputDir string   `json:"output_dir,omitempty" yaml:"output_dir"`
	Pages     []string `json:"pages,omitempty" yaml:"pages"`
}

// pageList flattens page tokens to 1-indexed page numbers. Nil means all pages.
func pageList(tokens []string) ([]int, error) {
	if len(tokens) == 0 {
		return nil, nil
	}
	specs, err := pagerange.ParseSpecs(tokens)
	if err != nil {
		return nil, err
	}
	ranges := make([]pagerange.PageRange, len(specs))
	for i, s := range specs {
		ranges[i] = s.PageRange()
	}
	return pagerange.Expand(ranges), nil
}

func errAllPagesFailed(rep extract.Report) error {
	if len(rep.Failed) > 0 && len(rep.Results) == 0 && len(rep.Empty) == 0 {
		return fmt.Errorf("page %d: %w", rep.Failed[0].Page, rep.Failed[0].Err)
	}
	return nil
}

// ExtractText writes the text of every input, page by page. The output
// defaults to <input>_text.txt; with several inputs an explicit output is
// treated as a directory.
func (t *Toolkit) ExtractText(ctx context.Context, req TextRequest) (batch.Report, error) {
	pages, err := pageList(req.Pages)
	if err != nil {
		return batch.Report{Operation: "text"}, err
	}

	run := t.runner("text")
	refs, failed := t.expand(ctx, []string{req.Input})
	if failed != nil {
		return run.Run(ctx, []batch.Item{*failed}), nil
	}

	items := make([]batch.Item, len(refs))
	for i, ref := range refs {
		dest := req.Output
		switch {
		case dest == "":
			dest = sibling(ref, "_text.txt")
		case dest != Stdout && len(refs) > 1:
			dest = fileref.Join(dest, baseName(ref)+"_text.txt")
		}
		items[i] = batch.Item{
			ID:  ref,
			Run: func(ctx context.Context) (string, error) { return t.textOne(ctx, ref, dest, pages, req.Clean) },
		}
	}
	return run.Run(ctx, items), nil
}

func (t *Toolkit) textOne(ctx context.Context, ref, dest string, pages []int, clean bool) (string, error) {
	local, cleanup, err := t.localize(ctx, ref)
	if err != nil {
		return "", err
	}
	defer cleanup()

	src, err := t.OpenText(local, clean)
	if err != nil {
		return "", err
	}
	defer src.Close()

	if diag := extract.Probe(src, t.ProbeThreshold); !diag.HasExtractableText {
		log.Warn().Str("input", ref).Int("chars", diag.TotalCharsInSample).Int("threshold", diag.Threshold).
			Msg("document has little extractable text, it may be scanned")
	}

	rep := extract.Text(src, pages)
	if len(rep.Skipped) > 0 {
		log.Warn().Str("input", ref).Ints("pages", rep.Skipped).Msg("requested pages not in document")
	}
	if err := errAllPagesFailed(rep); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := extract.WriteText(&buf, rep.Results); err != nil {
		return "", err
	}

	if dest == Stdout {
		t.outMu.Lock()
		defer t.outMu.Unlock()
		if _, err := t.Stdout.Write(buf.Bytes()); err != nil {
			return "", err
		}
	} else {
		err := t.writeOutput(ctx, dest, "text/plain; charset=utf-8", func(local string) error {
			return assembler.WriteFileAtomic(local, buf.Bytes())
		})
		if err != nil {
			return "", err
		}
	}
	return fmt.Sprintf("%d pages with text, %d empty -> %s", len(rep.Results), len(rep.Empty), dest), nil
}

// ExtractTables writes every table of every input as a CSV file named after
// its page and position, under <input>_tables by default.
func (t *Toolkit) ExtractTables(ctx context.Context, req TablesRequest) (batch.Report, error) {
	pages, err := pageList(req.Pages)
	if err != nil {
		return batch.Report{Operation: "tables"}, err
	}

	run := t.runner("tables")
	refs, failed := t.expand(ctx, []string{req.Input})
	if failed != nil {
		return run.Run(ctx, []batch.Item{*failed}), nil
	}

	items := make([]batch.Item, len(refs))
	for i, ref := range refs {
		dir := req.OutputDir
		switch {
		case dir == "":
			dir = sibling(ref, "_tables")
		case len(refs) > 1:
			dir = fileref.Join(dir, baseName(ref)+"_tables")
		}
		items[i] = batch.Item{
			ID:  ref,
			Run: func(ctx context.Context) (string, error) { return t.tablesOne(ctx, ref, dir, pages) },
		}
	}
	return run.Run(ctx, items), nil
}

func (t *Toolkit) tablesOne(ctx context.Context, ref, dir string, pages []int) (string, error) {
	local, cleanup, err := t.localize(ctx, ref)
	if err != nil {
		return "", err
	}
	defer cleanup()

	src, err := t.OpenTables(local)
	if err != nil {
		return "", err
	}
	defer src.Close()

	rep := extract.Tables(src, pages)
	if err := errAllPagesFailed(rep); err != nil {
		return "", err
	}
	if len(rep.Results) == 0 {
		return "no tables found", nil
	}

	data := make([][]byte, len(rep.Results))
	for i, r := range rep.Results {
		var buf bytes.Buffer
		if err := extract.WriteTableCSV(&buf, r.Rows); err != nil {
			return "", fmt.Errorf("page %d table %d: %w", r.PageNumber, r.TableIndex, err)
		}
		data[i] = buf.Bytes()
	}

	// Every table is written before any is published; a failure removes
	// what this item already wrote.
	var targets []*fileref.Target
	undo := func() {
		for _, tg := range targets {
			if tg.Remote() {
				tg.Discard()
			} else {
				os.Remove(tg.Local)
			}
		}
		if !fileref.IsS3(dir) {
			os.Remove(strings.TrimPrefix(dir, "file://")) // only succeeds when empty
		}
	}
	for i, r := range rep.Results {
		tg, err := t.Resolver.Target(fileref.Join(dir, extract.TableName(r.PageNumber, r.TableIndex)+".csv"))
		if err != nil {
			undo()
			return "", err
		}
		if err := assembler.WriteFileAtomic(tg.Local, data[i]); err != nil {
			tg.Discard()
			undo()
			return "", err
		}
		targets = append(targets, tg)
	}
	for _, tg := range targets {
		if err := tg.Publish(ctx, "text/csv"); err != nil {
			undo()
			return "", err
		}
	}
	return fmt.Sprintf("%d tables -> %s", len(rep.Results), dir), nil
}
