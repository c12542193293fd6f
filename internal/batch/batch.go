// Package batch runs independent work items and reports one outcome per item
// in input order.
package batch

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/local/pdftoolkit/internal/metrics"
	"github.com/local/pdftoolkit/internal/pdferr"
)

// Status of a finished item.
type Status string

const (
	Success Status = "success"
	Failure Status = "failure"
	Warning Status = "warning"
)

// Item is one unit of work. Run returns a short detail string on success.
// An item with Skip set is recorded as a warning and never run.
type Item struct {
	ID   string
	Run  func(ctx context.Context) (string, error)
	Skip error
}

// Outcome is the record of one item.
type Outcome struct {
	ID       string        `json:"id"`
	Status   Status        `json:"status"`
	Detail   string        `json:"detail,omitempty"`
	Reason   string        `json:"reason,omitempty"`
	Err      error         `json:"-"`
	Duration time.Duration `json:"duration"`
}

// Report is the ordered list of outcomes for one run.
type Report struct {
	Operation string    `json:"operation"`
	Outcomes  []Outcome `json:"outcomes"`
}

// Count returns the number of outcomes with status s.
func (r Report) Count(s Status) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == s {
			n++
		}
	}
	return n
}

// AllFailed reports whether no item succeeded.
func (r Report) AllFailed() bool { return r.Count(Success) == 0 }

// Summary is a one-line breakdown, e.g. "split: 3 succeeded, 1 failed, 0 warnings".
func (r Report) Summary() string {
	return fmt.Sprintf("%s: %d succeeded, %d failed, %d warnings",
		r.Operation, r.Count(Success), r.Count(Failure), r.Count(Warning))
}

// Lines renders one line per outcome.
func (r Report) Lines() []string {
	out := make([]string, 0, len(r.Outcomes))
	for _, o := range r.Outcomes {
		var sb strings.Builder
		fmt.Fprintf(&sb, "[%s] %s", strings.ToUpper(string(o.Status)), o.ID)
		switch {
		case o.Err != nil:
			fmt.Fprintf(&sb, ": %v", o.Err)
		case o.Detail != "":
			fmt.Fprintf(&sb, ": %s", o.Detail)
		}
		out = append(out, sb.String())
	}
	return out
}

// Merge appends the outcomes of other to r.
func (r *Report) Merge(other Report) {
	r.Outcomes = append(r.Outcomes, other.Outcomes...)
}

// Runner executes items with isolated error handling.
type Runner struct {
	Operation   string
	Concurrency int // <= 1 runs items sequentially
}

// Run executes every item and returns outcomes in input order. A failing or
// panicking item never stops the others; once ctx is done the remaining
// items fail with the context error.
func (r Runner) Run(ctx context.Context, items []Item) Report {
	rep := Report{Operation: r.Operation, Outcomes: make([]Outcome, len(items))}

	workers := r.Concurrency
	if workers < 1 {
		workers = 1
	}
	if workers > len(items) {
		workers = len(items)
	}

	if workers <= 1 {
		for i, it := range items {
			rep.Outcomes[i] = r.runOne(ctx, it)
		}
		return rep
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				rep.Outcomes[i] = r.runOne(ctx, items[i])
			}
		}()
	}
	for i := range items {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	return rep
}

func (r Runner) runOne(ctx context.Context, it Item) (out Outcome) {
	start := time.Now()
	out.ID = it.ID

	defer func() {
		if p := recover(); p != nil {
			out.Status = Failure
			out.Err = fmt.Errorf("panic: %v", p)
			out.Reason = pdferr.ReasonUnknown
			log.Error().Str("item", it.ID).Str("stack", string(debug.Stack())).Msgf("item panicked: %v", p)
		}
		out.Duration = time.Since(start)
		metrics.ObserveItem(r.Operation, string(out.Status), out.Reason, out.Duration)
		r.logOutcome(out)
	}()

	switch {
	case it.Skip != nil:
		out.Status = Warning
		out.Err = it.Skip
		out.Reason = pdferr.Classify(it.Skip)
		return out
	case ctx.Err() != nil:
		out.Status = Failure
		out.Err = ctx.Err()
		out.Reason = pdferr.ReasonCancelled
		return out
	}

	detail, err := it.Run(ctx)
	if err != nil {
		out.Status = Failure
		out.Err = err
		out.Reason = pdferr.Classify(err)
		return out
	}
	out.Status = Success
	out.Detail = detail
	return out
}

func (r Runner) logOutcome(o Outcome) {
	var ev *zerolog.Event
	switch o.Status {
	case Failure:
		ev = log.Error().Err(o.Err).Str("reason", o.Reason)
	case Warning:
		ev = log.Warn().Err(o.Err).Str("reason", o.Reason)
	default:
		ev = log.Info()
	}
	ev.Str("operation", r.Operation).
		Str("item", o.ID).
		Str("status", string(o.Status)).
		Dur("duration", o.Duration).
		Msg("batch item finished")
}
