package pdfops

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/local/pdftoolkit/internal/assembler"
	"github.com/local/pdftoolkit/internal/batch"
	"github.com/local/pdftoolkit/internal/fileref"
	"github.com/local/pdftoolkit/internal/metrics"
	"github.com/local/pdftoolkit/internal/pagerange"
)

// SplitRequest describes a split. Ranges and Pages take precedence over
// ChunkSize; when both are given the ranges come first.
type SplitRequest struct {
	Input     string   `json:"input" yaml:"input"`
	OutputDir string   `json:"output_dir,omitempty" yaml:"output_dir"`
	ChunkSize int      `json:"chunk_size,omitempty" yaml:"chunk_size"`
	Ranges    []string `json:"ranges,omitempty" yaml:"ranges"`
	Pages     []string `json:"pages,omitempty" yaml:"pages"`
}

// Specs returns the page specs of the request. A malformed range token or a
// chunk size below 1 is returned as an error and nothing is split.
func (r SplitRequest) Specs() ([]pagerange.Spec, error) {
	if len(r.Ranges) == 0 && len(r.Pages) == 0 {
		if _, err := pagerange.Chunks(0, r.ChunkSize); err != nil {
			return nil, err
		}
		return []pagerange.Spec{pagerange.ChunkSize(r.ChunkSize)}, nil
	}

	ranges, err := pagerange.ParseTokens(r.Ranges)
	if err != nil {
		return nil, err
	}
	specs := make([]pagerange.Spec, 0, len(ranges)+len(r.Pages))
	for _, rg := range ranges {
		specs = append(specs, pagerange.Range(rg))
	}
	pages, err := pagerange.ParseSpecs(r.Pages)
	if err != nil {
		return nil, err
	}
	return append(specs, pages...), nil
}

// Split writes one output document per selected group of every input.
func (t *Toolkit) Split(ctx context.Context, req SplitRequest) (batch.Report, error) {
	specs, err := req.Specs()
	if err != nil {
		return batch.Report{Operation: "split"}, err
	}

	run := t.runner("split")
	refs, failed := t.expand(ctx, []string{req.Input})
	if failed != nil {
		return run.Run(ctx, []batch.Item{*failed}), nil
	}

	rep := batch.Report{Operation: "split"}
	for _, ref := range refs {
		rep.Merge(t.splitOne(ctx, run, ref, req.OutputDir, specs))
	}
	return rep, nil
}

func (t *Toolkit) splitOne(ctx context.Context, run batch.Runner, ref, outDir string, specs []pagerange.Spec) batch.Report {
	doc, closeDoc, err := t.openDocument(ctx, ref)
	if err != nil {
		return run.Run(ctx, []batch.Item{{
			ID:  ref,
			Run: func(context.Context) (string, error) { return "", err },
		}})
	}
	defer closeDoc()

	sel, err := pagerange.Resolve(doc.NumPage(), specs)
	if err != nil {
		return run.Run(ctx, []batch.Item{{
			ID:  ref,
			Run: func(context.Context) (string, error) { return "", err },
		}})
	}

	if outDir == "" {
		outDir = sibling(ref, "_split")
	}
	base := baseName(ref)
	log.Info().Str("input", ref).Int("pages", doc.NumPage()).Int("groups", len(sel.Groups)).
		Int("skipped", len(sel.Skipped)).Str("output_dir", outDir).Msg("splitting document")

	asm := t.assembler()
	items := make([]batch.Item, 0, len(sel.Groups)+len(sel.Skipped))
	gi, si := 0, 0
	for gi < len(sel.Groups) || si < len(sel.Skipped) {
		if si < len(sel.Skipped) && (gi == len(sel.Groups) || sel.Skipped[si].Position < sel.Groups[gi].Position) {
			s := sel.Skipped[si]
			si++
			metrics.IncRangeSkipped()
			items = append(items, batch.Item{ID: fmt.Sprintf("%s %s", ref, s.Spec), Skip: s.Err})
			continue
		}
		g := sel.Groups[gi]
		gi++
		dest := fileref.Join(outDir, fmt.Sprintf("%s_%s.pdf", base, g.Label()))
		items = append(items, batch.Item{
			ID: dest,
			Run: func(ctx context.Context) (string, error) {
				parts := []assembler.Part{{Doc: doc, Indices: g.Indices}}
				var pages int
				err := t.writeOutput(ctx, dest, "application/pdf", func(local string) error {
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
				return fmt.Sprintf("%d pages", pages), nil
			},
		})
	}
	return run.Run(ctx, items)
}
