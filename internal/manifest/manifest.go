// Package manifest loads YAML job files and runs their jobs in order.
package manifest

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/local/pdftoolkit/internal/batch"
	"github.com/local/pdftoolkit/internal/pdfops"
)

// Operations is the set of operations a job can invoke.
type Operations interface {
	Split(ctx context.Context, req pdfops.SplitRequest) (batch.Report, error)
	Merge(ctx context.Context, req pdfops.MergeRequest) (batch.Report, error)
	ExtractText(ctx context.Context, req pdfops.TextRequest) (batch.Report, error)
	ExtractTables(ctx context.Context, req pdfops.TablesRequest) (batch.Report, error)
}

// SplitJob mirrors pdfops.SplitRequest; an absent chunk size means 1.
type SplitJob struct {
	Input     string   `json:"input" yaml:"input"`
	OutputDir string   `json:"output_dir,omitempty" yaml:"output_dir"`
	ChunkSize *int     `json:"chunk_size,omitempty" yaml:"chunk_size"`
	Ranges    []string `json:"ranges,omitempty" yaml:"ranges"`
	Pages     []string `json:"pages,omitempty" yaml:"pages"`
}

func (j SplitJob) request() pdfops.SplitRequest {
	size := 1
	if j.ChunkSize != nil {
		size = *j.ChunkSize
	}
	return pdfops.SplitRequest{
		Input:     j.Input,
		OutputDir: j.OutputDir,
		ChunkSize: size,
		Ranges:    j.Ranges,
		Pages:     j.Pages,
	}
}

// Job is exactly one operation.
type Job struct {
	Name   string                `json:"name,omitempty" yaml:"name"`
	Split  *SplitJob             `json:"split,omitempty" yaml:"split"`
	Merge  *pdfops.MergeRequest  `json:"merge,omitempty" yaml:"merge"`
	Text   *pdfops.TextRequest   `json:"text,omitempty" yaml:"text"`
	Tables *pdfops.TablesRequest `json:"tables,omitempty" yaml:"tables"`
}

// Operation names the job's operation, or "" when none or several are set.
func (j Job) Operation() string {
	var ops []string
	if j.Split != nil {
		ops = append(ops, "split")
	}
	if j.Merge != nil {
		ops = append(ops, "merge")
	}
	if j.Text != nil {
		ops = append(ops, "text")
	}
	if j.Tables != nil {
		ops = append(ops, "tables")
	}
	if len(ops) != 1 {
		return ""
	}
	return ops[0]
}

// Validate checks that the job names one operation with its required inputs.
func (j Job) Validate() error {
	switch j.Operation() {
	case "split":
		if j.Split.Input == "" {
			return errors.New("split: input is required")
		}
	case "merge":
		if len(j.Merge.Inputs) == 0 {
			return errors.New("merge: inputs are required")
		}
	case "text":
		if j.Text.Input == "" {
			return errors.New("text: input is required")
		}
	case "tables":
		if j.Tables.Input == "" {
			return errors.New("tables: input is required")
		}
	default:
		return errors.New("job must set exactly one of split, merge, text, tables")
	}
	return nil
}

// Run executes the job.
func (j Job) Run(ctx context.Context, ops Operations) (batch.Report, error) {
	if err := j.Validate(); err != nil {
		return batch.Report{}, err
	}
	switch j.Operation() {
	case "split":
		return ops.Split(ctx, j.Split.request())
	case "merge":
		return ops.Merge(ctx, *j.Merge)
	case "text":
		return ops.ExtractText(ctx, *j.Text)
	default:
		return ops.ExtractTables(ctx, *j.Tables)
	}
}

// Manifest is a list of jobs.
type Manifest struct {
	Concurrency int   `yaml:"concurrency"`
	Jobs        []Job `yaml:"jobs"`
}

// Parse decodes and validates a manifest.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if len(m.Jobs) == 0 {
		return nil, errors.New("manifest has no jobs")
	}
	for i, j := range m.Jobs {
		if err := j.Validate(); err != nil {
			return nil, fmt.Errorf("job %d (%s): %w", i+1, j.Name, err)
		}
	}
	return &m, nil
}

// Load reads and parses the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return Parse(data)
}

// Result is the outcome of one job. Err is set when the job was rejected
// before any item ran.
type Result struct {
	Name   string
	Report batch.Report
	Err    error
}

// Run executes the jobs in order. A rejected job does not stop later jobs.
func (m *Manifest) Run(ctx context.Context, ops Operations) []Result {
	results := make([]Result, 0, len(m.Jobs))
	for i, j := range m.Jobs {
		name := j.Name
		if name == "" {
			name = fmt.Sprintf("job-%d", i+1)
		}
		rep, err := j.Run(ctx, ops)
		results = append(results, Result{Name: name, Report: rep, Err: err})
	}
	return results
}
