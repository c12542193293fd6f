package statuscheck

import (
	"context"
	"errors"
	"time"
)

// Pinger models a dependency that can report its own reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// BucketChecker verifies access to an S3 bucket.
type BucketChecker interface {
	HeadBucket(ctx context.Context, bucket string) error
}

// Checker aggregates health checks for the dependencies used by serve mode.
type Checker struct {
	store    Pinger
	s3       BucketChecker
	s3Bucket string
}

// Options configures the Checker.
type Options struct {
	Store    Pinger
	S3       BucketChecker
	S3Bucket string
}

// Status represents the readiness of a subsystem.
type Status struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// Summary bundles all subsystem statuses.
type Summary struct {
	StatusStore Status `json:"status_store"`
	S3          Status `json:"s3"`
}

// Ready reports whether the required subsystems are up. S3 is optional.
func (s Summary) Ready() bool { return s.StatusStore.OK }

func New(opts Options) *Checker {
	return &Checker{store: opts.Store, s3: opts.S3, s3Bucket: opts.S3Bucket}
}

// Summary returns the current status snapshot.
func (c *Checker) Summary(ctx context.Context) Summary {
	return Summary{
		StatusStore: c.checkStore(ctx),
		S3:          c.checkS3(ctx),
	}
}

func (c *Checker) checkStore(ctx context.Context) Status {
	if c.store == nil {
		return Status{OK: false, Message: "store unavailable"}
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := c.store.Ping(ctx); err != nil {
		return Status{OK: false, Message: trimError(err)}
	}
	return Status{OK: true, Message: "Connected"}
}

func (c *Checker) checkS3(ctx context.Context) Status {
	if c.s3 == nil || c.s3Bucket == "" {
		return Status{OK: false, Message: "Bucket not configured"}
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := c.s3.HeadBucket(ctx, c.s3Bucket); err != nil {
		return Status{OK: false, Message: trimError(err)}
	}
	return Status{OK: true, Message: "Connected"}
}

func trimError(err error) string {
	if err == nil {
		return ""
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	msg := err.Error()
	if len(msg) > 120 {
		return msg[:120]
	}
	return msg
}
