package pdfops

import (
	"context"
	"errors"
	"fmt"

	"github.com/local/pdftoolkit/internal/assembler"
	"github.com/local/pdftoolkit/internal/batch"
	"github.com/local/pdftoolkit/internal/document"
	"github.com/local/pdftoolkit/internal/pdferr"
)

// DefaultMergeOutput is used when a merge names no output.
const DefaultMergeOutput = "merged.pdf"

// MergeRequest lists the sources, or glob patterns, to concatenate.
type MergeRequest struct {
	Inputs []string `json:"inputs" yaml:"inputs"`
	Output string   `json:"output,omitempty" yaml:"output"`
}

var errNoReadableSources = errors.New("no readable source documents")

// Merge loads every source as its own item, then concatenates the readable
// ones in order into a single output.
func (t *Toolkit) Merge(ctx context.Context, req MergeRequest) (batch.Report, error) {
	if len(req.Inputs) == 0 {
		return batch.Report{Operation: "merge"}, errors.New("merge needs at least one input")
	}
	output := req.Output
	if output == "" {
		output = DefaultMergeOutput
	}

	run := t.runner("merge")
	refs, failed := t.expand(ctx, req.Inputs)
	if failed != nil {
		return run.Run(ctx, []batch.Item{*failed}), nil
	}

	// Each load item owns one slot.
	docs := make([]document.Document, len(refs))
	closers := make([]func(), len(refs))
	defer func() {
		for _, c := range closers {
			if c != nil {
				c()
			}
		}
	}()

	loads := make([]batch.Item, len(refs))
	for i, ref := range refs {
		loads[i] = batch.Item{
			ID: ref,
			Run: func(ctx context.Context) (string, error) {
				doc, closeDoc, err := t.openDocument(ctx, ref)
				if err != nil {
					return "", err
				}
				docs[i], closers[i] = doc, closeDoc
				return fmt.Sprintf("loaded %d pages", doc.NumPage()), nil
			},
		}
	}
	rep := run.Run(ctx, loads)

	asm := t.assembler()
	rep.Merge(run.Run(ctx, []batch.Item{{
		ID: output,
		Run: func(ctx context.Context) (string, error) {
			var parts []assembler.Part
			for _, d := range docs {
				if d != nil {
					parts = append(parts, assembler.FullRange(d))
				}
			}
			if len(parts) == 0 {
				return "", &pdferr.SourceError{Path: output, Err: errNoReadableSources}
			}
			var pages int
			err := t.writeOutput(ctx, output, "application/pdf", func(local string) error {
				out, err := asm.AssembleFile(local, parts)
				if err != nil {
					return err
				}
				pages = out.Pages
				return nil
			})
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("merged %d of %d sources, %d pages", len(parts), len(refs), pages), nil
		},
	}}))
	return rep, nil
}
