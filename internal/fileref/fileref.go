// Package fileref resolves input and output references: local paths, glob
// patterns, file://, http(s):// and s3:// URLs.
package fileref

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/local/pdftoolkit/internal/pdferr"
	"github.com/local/pdftoolkit/internal/storage"
)

const (
	httpTempPrefix = "pdfdl-"
	outTempPrefix  = "pdfout-"
)

// ObjectStore is the subset of the S3 client used for remote references.
type ObjectStore interface {
	DownloadToTemp(ctx context.Context, bucket, key string) (string, error)
	Upload(ctx context.Context, bucket, key string, body io.Reader, contentType string) error
	List(ctx context.Context, bucket, prefix string) ([]string, error)
}

var ErrNoStore = errors.New("s3 storage is not configured")

// Resolver localizes and publishes references. The object store is created on
// first use so that purely local runs never touch AWS configuration.
type Resolver struct {
	HTTP     *http.Client
	NewStore func(ctx context.Context) (ObjectStore, error)

	once     sync.Once
	store    ObjectStore
	storeErr error
}

func (r *Resolver) objectStore(ctx context.Context) (ObjectStore, error) {
	r.once.Do(func() {
		if r.NewStore == nil {
			r.storeErr = ErrNoStore
			return
		}
		r.store, r.storeErr = r.NewStore(ctx)
	})
	return r.store, r.storeErr
}

func IsS3(ref string) bool   { return strings.HasPrefix(ref, "s3://") }
func IsHTTP(ref string) bool { return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") }

func hasMeta(s string) bool { return strings.ContainsAny(s, "*?[") }

// Expand turns patterns into an ordered list of references. Glob matches are
// sorted; a glob that matches nothing is an error. Plain references pass
// through unchanged.
func (r *Resolver) Expand(ctx context.Context, patterns []string) ([]string, error) {
	var out []string
	for _, p := range patterns {
		p = strings.TrimPrefix(p, "file://")
		switch {
		case IsHTTP(p) || !hasMeta(p):
			out = append(out, p)
		case IsS3(p):
			matches, err := r.expandS3(ctx, p)
			if err != nil {
				return nil, err
			}
			out = append(out, matches...)
		default:
			matches, err := filepath.Glob(p)
			if err != nil {
				return nil, fmt.Errorf("bad pattern %q: %w", p, err)
			}
			if len(matches) == 0 {
				return nil, &pdferr.SourceError{Path: p, Err: errors.New("no files match pattern")}
			}
			sort.Strings(matches)
			out = append(out, matches...)
		}
	}
	return out, nil
}

func (r *Resolver) expandS3(ctx context.Context, pattern string) ([]string, error) {
	bucket, keyPattern, err := storage.ParseURL(pattern)
	if err != nil {
		return nil, err
	}
	store, err := r.objectStore(ctx)
	if err != nil {
		return nil, err
	}
	prefix := keyPattern[:strings.IndexAny(keyPattern, "*?[")]
	keys, err := store.List(ctx, bucket, prefix)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, k := range keys {
		if ok, _ := path.Match(keyPattern, k); ok {
			out = append(out, "s3://"+bucket+"/"+k)
		}
	}
	if len(out) == 0 {
		return nil, &pdferr.SourceError{Path: pattern, Err: errors.New("no objects match pattern")}
	}
	return out, nil
}

// Localize returns a local path for ref and a cleanup func that removes any
// temp file it created.
func (r *Resolver) Localize(ctx context.Context, ref string) (string, func(), error) {
	noop := func() {}
	if i := strings.Index(ref, "#"); i >= 0 && (IsHTTP(ref) || IsS3(ref)) {
		ref = ref[:i]
	}
	switch {
	case IsS3(ref):
		bucket, key, err := storage.ParseURL(ref)
		if err != nil {
			return "", noop, &pdferr.SourceError{Path: ref, Err: err}
		}
		store, err := r.objectStore(ctx)
		if err != nil {
			return "", noop, &pdferr.SourceError{Path: ref, Err: err}
		}
		p, err := store.DownloadToTemp(ctx, bucket, key)
		if err != nil {
			return "", noop, &pdferr.SourceError{Path: ref, Err: err}
		}
		return p, func() { os.Remove(p) }, nil
	case IsHTTP(ref):
		p, err := r.downloadHTTPToTemp(ctx, ref)
		if err != nil {
			return "", noop, &pdferr.SourceError{Path: ref, Err: err}
		}
		return p, func() { os.Remove(p) }, nil
	default:
		return strings.TrimPrefix(ref, "file://"), noop, nil
	}
}

func (r *Resolver) downloadHTTPToTemp(ctx context.Context, url string) (string, error) {
	client := r.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("http %d", resp.StatusCode)
	}
	f, err := os.CreateTemp("", httpTempPrefix+"*"+path.Ext(url))
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := io.Copy(f, resp.Body); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	log.Debug().Str("url", url).Str("file", filepath.Base(f.Name())).Msg("downloaded http source to temp")
	return f.Name(), nil
}

// Join appends name to a directory reference, local or s3.
func Join(dir, name string) string {
	if IsS3(dir) {
		return strings.TrimSuffix(dir, "/") + "/" + name
	}
	return filepath.Join(dir, name)
}

// Target is where an output is written locally before being published.
type Target struct {
	Ref   string
	Local string
	r     *Resolver
}

// Target maps an output reference to a local path. Remote references are
// staged in a temp file and uploaded by Publish.
func (r *Resolver) Target(ref string) (*Target, error) {
	if IsHTTP(ref) {
		return nil, &pdferr.DestinationError{Path: ref, Err: errors.New("http destinations are not supported")}
	}
	if !IsS3(ref) {
		return &Target{Ref: ref, Local: strings.TrimPrefix(ref, "file://"), r: r}, nil
	}
	f, err := os.CreateTemp("", outTempPrefix+"*"+path.Ext(ref))
	if err != nil {
		return nil, &pdferr.DestinationError{Path: ref, Err: err}
	}
	f.Close()
	return &Target{Ref: ref, Local: f.Name(), r: r}, nil
}

// Remote reports whether the target needs publishing.
func (t *Target) Remote() bool { return t.Local != strings.TrimPrefix(t.Ref, "file://") }

// Publish uploads a staged output. Local targets are already in place.
func (t *Target) Publish(ctx context.Context, contentType string) error {
	if !t.Remote() {
		return nil
	}
	defer os.Remove(t.Local)

	bucket, key, err := storage.ParseURL(t.Ref)
	if err != nil {
		return &pdferr.DestinationError{Path: t.Ref, Err: err}
	}
	store, err := t.r.objectStore(ctx)
	if err != nil {
		return &pdferr.DestinationError{Path: t.Ref, Err: err}
	}
	f, err := os.Open(t.Local)
	if err != nil {
		return &pdferr.DestinationError{Path: t.Ref, Err: err}
	}
	defer f.Close()
	if err := store.Upload(ctx, bucket, key, f, contentType); err != nil {
		return &pdferr.DestinationError{Path: t.Ref, Err: err}
	}
	return nil
}

// Discard removes a staged file without publishing it.
func (t *Target) Discard() {
	if t.Remote() {
		os.Remove(t.Local)
	}
}
