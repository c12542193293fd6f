package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/local/pdftoolkit/internal/pdferr"
)

func ok(detail string) func(context.Context) (string, error) {
	return func(context.Context) (string, error) { return detail, nil }
}

func fail(err error) func(context.Context) (string, error) {
	return func(context.Context) (string, error) { return "", err }
}

func statuses(r Report) []Status {
	out := make([]Status, len(r.Outcomes))
	for i, o := range r.Outcomes {
		out[i] = o.Status
	}
	return out
}

func TestRunIsolatesFailures(t *testing.T) {
	items := []Item{
		{ID: "a", Run: ok("a done")},
		{ID: "b", Run: fail(&pdferr.SourceError{Path: "b.pdf", Err: os.ErrNotExist})},
		{ID: "c", Run: func(context.Context) (string, error) { panic("boom") }},
		{ID: "d", Skip: &pdferr.RangeOutOfBoundsError{Start: 50, End: 60, Total: 10}},
		{ID: "e", Run: ok("e done")},
	}

	rep := Runner{Operation: "test"}.Run(context.Background(), items)

	want := []Status{Success, Failure, Failure, Warning, Success}
	got := statuses(rep)
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("item %d status = %s, want %s", i, got[i], want[i])
		}
	}
	for i, o := range rep.Outcomes {
		if o.ID != items[i].ID {
			t.Errorf("outcome %d id = %s, want %s", i, o.ID, items[i].ID)
		}
	}
	if rep.Outcomes[1].Reason != pdferr.ReasonSourceUnreadable {
		t.Errorf("reason = %s", rep.Outcomes[1].Reason)
	}
	if !strings.Contains(rep.Outcomes[2].Err.Error(), "boom") {
		t.Errorf("panic err = %v", rep.Outcomes[2].Err)
	}
	if rep.Outcomes[3].Reason != pdferr.ReasonOutOfBounds {
		t.Errorf("skip reason = %s", rep.Outcomes[3].Reason)
	}
	if rep.AllFailed() {
		t.Error("AllFailed should be false with two successes")
	}
	if s := rep.Summary(); s != "test: 2 succeeded, 2 failed, 1 warnings" {
		t.Errorf("summary = %q", s)
	}
}

func TestAllFailed(t *testing.T) {
	rep := Runner{Operation: "merge"}.Run(context.Background(), []Item{
		{ID: "x", Run: fail(errors.New("nope"))},
		{ID: "y", Skip: errors.New("skipped")},
	})
	if !rep.AllFailed() {
		t.Error("expected AllFailed")
	}
	if !(Report{}).AllFailed() {
		t.Error("empty report counts as total failure")
	}
}

func TestRunConcurrentKeepsOrder(t *testing.T) {
	var running, peak int32
	items := make([]Item, 20)
	for i := range items {
		items[i] = Item{
			ID: fmt.Sprintf("item-%02d", i),
			Run: func(context.Context) (string, error) {
				n := atomic.AddInt32(&running, 1)
				for {
					p := atomic.LoadInt32(&peak)
					if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
						break
					}
				}
				time.Sleep(time.Duration(20-i) * time.Millisecond)
				atomic.AddInt32(&running, -1)
				if i%5 == 0 {
					return "", fmt.Errorf("item %d failed", i)
				}
				return fmt.Sprintf("done %d", i), nil
			},
		}
	}

	rep := Runner{Operation: "concurrent", Concurrency: 4}.Run(context.Background(), items)

	if len(rep.Outcomes) != len(items) {
		t.Fatalf("outcomes = %d", len(rep.Outcomes))
	}
	for i, o := range rep.Outcomes {
		if o.ID != items[i].ID {
			t.Errorf("outcome %d = %s", i, o.ID)
		}
		wantStatus := Success
		if i%5 == 0 {
			wantStatus = Failure
		}
		if o.Status != wantStatus {
			t.Errorf("outcome %d status = %s", i, o.Status)
		}
	}
	if peak > 4 {
		t.Errorf("peak concurrency = %d, want <= 4", peak)
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	items := []Item{
		{ID: "first", Run: func(context.Context) (string, error) { cancel(); return "ok", nil }},
		{ID: "second", Run: ok("never")},
	}
	rep := Runner{Operation: "cancel"}.Run(ctx, items)

	if rep.Outcomes[0].Status != Success {
		t.Errorf("first = %s", rep.Outcomes[0].Status)
	}
	if rep.Outcomes[1].Status != Failure || rep.Outcomes[1].Reason != pdferr.ReasonCancelled {
		t.Errorf("second = %+v", rep.Outcomes[1])
	}
}

func TestReportLines(t *testing.T) {
	rep := Report{Operation: "x", Outcomes: []Outcome{
		{ID: "a.pdf", Status: Success, Detail: "3 pages"},
		{ID: "b.pdf", Status: Failure, Err: errors.New("cannot read")},
	}}
	lines := rep.Lines()
	if lines[0] != "[SUCCESS] a.pdf: 3 pages" || lines[1] != "[FAILURE] b.pdf: cannot read" {
		t.Errorf("lines = %q", lines)
	}
}
