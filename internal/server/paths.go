package server

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/local/pdftoolkit/internal/fileref"
	"github.com/local/pdftoolkit/internal/manifest"
	"github.com/local/pdftoolkit/internal/pdfops"
)

var (
	errLocalDisabled = errors.New("local paths are disabled: set SERVE_ROOT or S3_BUCKET")
	errHTTPOutput    = errors.New("http destinations are not supported")
	errStdoutOutput  = errors.New("stdout output is not available over http")
)

// pathPolicy rewrites the local references of a submitted job. Bare paths
// are relative to root, or keys in bucket when no root is set. s3:// and
// http(s):// inputs pass through.
type pathPolicy struct {
	root   string
	bucket string
}

func (p pathPolicy) input(ref string) (string, error) {
	if fileref.IsS3(ref) || fileref.IsHTTP(ref) {
		return ref, nil
	}
	return p.local(ref)
}

func (p pathPolicy) output(ref string) (string, error) {
	switch {
	case ref == pdfops.Stdout:
		return "", errStdoutOutput
	case fileref.IsHTTP(ref):
		return "", fmt.Errorf("%s: %w", ref, errHTTPOutput)
	case fileref.IsS3(ref):
		return ref, nil
	}
	return p.local(ref)
}

func (p pathPolicy) local(ref string) (string, error) {
	rel := filepath.ToSlash(strings.TrimPrefix(ref, "file://"))
	if strings.Contains(rel, "://") {
		return "", fmt.Errorf("%s: unsupported scheme", ref)
	}
	if path.IsAbs(rel) || filepath.IsAbs(filepath.FromSlash(rel)) || filepath.VolumeName(filepath.FromSlash(rel)) != "" {
		return "", fmt.Errorf("%s: absolute paths are not allowed", ref)
	}
	for _, seg := range strings.Split(rel, "/") {
		if seg == ".." {
			return "", fmt.Errorf("%s: parent directory segments are not allowed", ref)
		}
	}
	rel = path.Clean(rel)
	switch {
	case p.root != "":
		return filepath.Join(p.root, filepath.FromSlash(rel)), nil
	case p.bucket != "":
		return "s3://" + p.bucket + "/" + strings.TrimPrefix(rel, "./"), nil
	}
	return "", fmt.Errorf("%s: %w", ref, errLocalDisabled)
}

// requireOutput rejects an empty output for an http input. Default outputs
// land next to the input, which an http input does not have.
func requireOutput(input, field string) error {
	if fileref.IsHTTP(input) {
		return fmt.Errorf("%s is required for http inputs", field)
	}
	return nil
}

// confine rewrites every reference of job in place, or reports why the job
// may not run.
func (p pathPolicy) confine(job *manifest.Job) error {
	var err error
	switch job.Operation() {
	case "split":
		s := job.Split
		if s.OutputDir == "" {
			if err := requireOutput(s.Input, "output_dir"); err != nil {
				return err
			}
		} else if s.OutputDir, err = p.output(s.OutputDir); err != nil {
			return err
		}
		s.Input, err = p.input(s.Input)
		return err

	case "merge":
		m := job.Merge
		for i, in := range m.Inputs {
			if m.Inputs[i], err = p.input(in); err != nil {
				return err
			}
		}
		if m.Output == "" {
			m.Output = pdfops.DefaultMergeOutput
		}
		m.Output, err = p.output(m.Output)
		return err

	case "text":
		x := job.Text
		if x.Output == "" {
			if err := requireOutput(x.Input, "output"); err != nil {
				return err
			}
		} else if x.Output, err = p.output(x.Output); err != nil {
			return err
		}
		x.Input, err = p.input(x.Input)
		return err

	case "tables":
		x := job.Tables
		if x.OutputDir == "" {
			if err := requireOutput(x.Input, "output_dir"); err != nil {
				return err
			}
		} else if x.OutputDir, err = p.output(x.OutputDir); err != nil {
			return err
		}
		x.Input, err = p.input(x.Input)
		return err
	}
	return nil
}
