package fileref

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/local/pdftoolkit/internal/pdferr"
)

type fakeStore struct {
	objects  map[string]string // "bucket/key" -> content
	uploaded map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string]string{}, uploaded: map[string]string{}}
}

func (f *fakeStore) DownloadToTemp(_ context.Context, bucket, key string) (string, error) {
	body, ok := f.objects[bucket+"/"+key]
	if !ok {
		return "", errors.New("no such key")
	}
	tmp, err := os.CreateTemp("", "s3pdf-*.pdf")
	if err != nil {
		return "", err
	}
	defer tmp.Close()
	_, err = tmp.WriteString(body)
	return tmp.Name(), err
}

func (f *fakeStore) Upload(_ context.Context, bucket, key string, body io.Reader, _ string) error {
	b, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	f.uploaded[bucket+"/"+key] = string(b)
	return nil
}

func (f *fakeStore) List(_ context.Context, bucket, prefix string) ([]string, error) {
	var keys []string
	for k := range f.objects {
		b, key, _ := strings.Cut(k, "/")
		if b == bucket && strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func resolverWith(store ObjectStore) *Resolver {
	return &Resolver{NewStore: func(context.Context) (ObjectStore, error) { return store, nil }}
}

func TestExpandLocalGlobSorted(t *testing.T) {
	dir := t.TempDir()
	for _, n := range []string{"c.pdf", "a.pdf", "b.pdf", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, n), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	r := &Resolver{}
	got, err := r.Expand(context.Background(), []string{filepath.Join(dir, "*.pdf"), "extra.pdf"})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		filepath.Join(dir, "a.pdf"),
		filepath.Join(dir, "b.pdf"),
		filepath.Join(dir, "c.pdf"),
		"extra.pdf",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestExpandNoMatch(t *testing.T) {
	r := &Resolver{}
	_, err := r.Expand(context.Background(), []string{filepath.Join(t.TempDir(), "*.pdf")})
	if !errors.Is(err, pdferr.ErrSourceUnreadable) {
		t.Errorf("got %v", err)
	}
}

func TestExpandS3(t *testing.T) {
	store := newFakeStore()
	store.objects["bkt/in/b.pdf"] = "b"
	store.objects["bkt/in/a.pdf"] = "a"
	store.objects["bkt/in/skip.txt"] = "x"
	store.objects["bkt/other/c.pdf"] = "c"

	got, err := resolverWith(store).Expand(context.Background(), []string{"s3://bkt/in/*.pdf"})
	if err != nil {
		t.Fatal(err)
	}
	// the fake lists in map order; Expand keeps List order, so compare as a set
	if len(got) != 2 {
		t.Fatalf("got %v", got)
	}
	for _, ref := range got {
		if ref != "s3://bkt/in/a.pdf" && ref != "s3://bkt/in/b.pdf" {
			t.Errorf("unexpected match %q", ref)
		}
	}
}

func TestExpandS3WithoutStore(t *testing.T) {
	_, err := (&Resolver{}).Expand(context.Background(), []string{"s3://bkt/*.pdf"})
	if !errors.Is(err, ErrNoStore) {
		t.Errorf("got %v", err)
	}
}

func TestLocalize(t *testing.T) {
	ctx := context.Background()

	t.Run("local", func(t *testing.T) {
		p, cleanup, err := (&Resolver{}).Localize(ctx, "file:///tmp/x.pdf")
		if err != nil || p != "/tmp/x.pdf" {
			t.Fatalf("got %q %v", p, err)
		}
		cleanup()
	})

	t.Run("s3", func(t *testing.T) {
		store := newFakeStore()
		store.objects["bkt/doc.pdf"] = "content"
		p, cleanup, err := resolverWith(store).Localize(ctx, "s3://bkt/doc.pdf")
		if err != nil {
			t.Fatal(err)
		}
		b, _ := os.ReadFile(p)
		if string(b) != "content" {
			t.Errorf("content = %q", b)
		}
		cleanup()
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Errorf("temp file not removed")
		}
	})

	t.Run("s3 missing", func(t *testing.T) {
		_, _, err := resolverWith(newFakeStore()).Localize(ctx, "s3://bkt/none.pdf")
		if !errors.Is(err, pdferr.ErrSourceUnreadable) {
			t.Errorf("got %v", err)
		}
	})

	t.Run("http", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/doc.pdf" {
				http.NotFound(w, r)
				return
			}
			w.Write([]byte("remote"))
		}))
		defer srv.Close()

		r := &Resolver{HTTP: srv.Client()}
		p, cleanup, err := r.Localize(ctx, srv.URL+"/doc.pdf")
		if err != nil {
			t.Fatal(err)
		}
		defer cleanup()
		if !strings.HasPrefix(filepath.Base(p), httpTempPrefix) {
			t.Errorf("temp name %q", p)
		}
		b, _ := os.ReadFile(p)
		if string(b) != "remote" {
			t.Errorf("content = %q", b)
		}

		if _, _, err := r.Localize(ctx, srv.URL+"/missing.pdf"); !errors.Is(err, pdferr.ErrSourceUnreadable) {
			t.Errorf("404: got %v", err)
		}
	})
}

func TestTargetPublish(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	r := resolverWith(store)

	tg, err := r.Target("s3://bkt/out/merged.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if !tg.Remote() {
		t.Fatal("s3 target should be remote")
	}
	if err := os.WriteFile(tg.Local, []byte("pdf"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := tg.Publish(ctx, "application/pdf"); err != nil {
		t.Fatal(err)
	}
	if store.uploaded["bkt/out/merged.pdf"] != "pdf" {
		t.Errorf("uploaded = %v", store.uploaded)
	}
	if _, err := os.Stat(tg.Local); !os.IsNotExist(err) {
		t.Errorf("staged file not removed")
	}

	local, err := r.Target("out/merged.pdf")
	if err != nil || local.Remote() || local.Local != "out/merged.pdf" {
		t.Errorf("local target = %+v, %v", local, err)
	}
	if err := local.Publish(ctx, "application/pdf"); err != nil {
		t.Errorf("local publish: %v", err)
	}

	if _, err := r.Target("https://example.com/x.pdf"); !errors.Is(err, pdferr.ErrDestinationWriteFailed) {
		t.Errorf("http target: got %v", err)
	}
}

func TestJoin(t *testing.T) {
	if got := Join("s3://bkt/out/", "a.pdf"); got != "s3://bkt/out/a.pdf" {
		t.Errorf("s3 join = %q", got)
	}
	if got := Join("out", "a.pdf"); got != filepath.Join("out", "a.pdf") {
		t.Errorf("local join = %q", got)
	}
}

func TestCleanupTemps(t *testing.T) {
	old, err := os.CreateTemp("", httpTempPrefix+"*.pdf")
	if err != nil {
		t.Fatal(err)
	}
	old.Close()
	past := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(old.Name(), past, past); err != nil {
		t.Fatal(err)
	}
	fresh, err := os.CreateTemp("", outTempPrefix+"*.pdf")
	if err != nil {
		t.Fatal(err)
	}
	fresh.Close()
	defer os.Remove(fresh.Name())

	if n := CleanupTemps(time.Hour); n < 1 {
		t.Errorf("removed %d", n)
	}
	if _, err := os.Stat(old.Name()); !os.IsNotExist(err) {
		t.Errorf("old temp still present")
	}
	if _, err := os.Stat(fresh.Name()); err != nil {
		t.Errorf("fresh temp removed: %v", err)
	}
}
