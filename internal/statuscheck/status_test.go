package statuscheck

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type headFunc func(ctx context.Context, bucket string) error

func (f headFunc) HeadBucket(ctx context.Context, bucket string) error { return f(ctx, bucket) }

func TestSummary(t *testing.T) {
	ok := pingFunc(func(context.Context) error { return nil })
	down := pingFunc(func(context.Context) error { return errors.New(strings.Repeat("x", 200)) })
	var gotBucket string
	head := headFunc(func(_ context.Context, b string) error { gotBucket = b; return nil })

	tests := []struct {
		name      string
		opts      Options
		ready     bool
		s3OK      bool
		storeMsgN int
	}{
		{"all up", Options{Store: ok, S3: head, S3Bucket: "docs"}, true, true, 0},
		{"no bucket", Options{Store: ok, S3: head}, true, false, 0},
		{"store down", Options{Store: down}, false, false, 120},
		{"no store", Options{}, false, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(tt.opts).Summary(context.Background())
			if s.Ready() != tt.ready || s.S3.OK != tt.s3OK {
				t.Errorf("summary = %+v", s)
			}
			if tt.storeMsgN > 0 && len(s.StatusStore.Message) != tt.storeMsgN {
				t.Errorf("message length = %d", len(s.StatusStore.Message))
			}
		})
	}
	if gotBucket != "docs" {
		t.Errorf("bucket = %q", gotBucket)
	}
}

func TestTrimErrorTimeout(t *testing.T) {
	if got := trimError(context.DeadlineExceeded); got != "timeout" {
		t.Errorf("got %q", got)
	}
}
