// Package server exposes the toolkit operations as asynchronous HTTP jobs.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/local/pdftoolkit/internal/batch"
	"github.com/local/pdftoolkit/internal/manifest"
	"github.com/local/pdftoolkit/internal/metrics"
	"github.com/local/pdftoolkit/internal/statuscheck"
	"github.com/local/pdftoolkit/internal/store"
)

type Dependencies struct {
	Ops    manifest.Operations
	Status store.StatusStore
	// Checker backs /status; nil disables the route.
	Checker *statuscheck.Checker
	// Root confines local job paths. With no Root, local paths map to keys in
	// Bucket; with neither, jobs may only use s3:// and http(s):// refs.
	Root   string
	Bucket string
}

type Server struct {
	deps Dependencies

	// jobs run on ctx, not on the request context
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(deps Dependencies) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{deps: deps, ctx: ctx, cancel: cancel}
}

func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/jobs", s.handleCreate)
	mux.HandleFunc("/jobs/", s.handleStatus)
	if s.deps.Checker != nil {
		mux.HandleFunc("/status", s.handleReady)
	}
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	sum := s.deps.Checker.Summary(r.Context())
	w.Header().Set("Content-Type", "application/json")
	if !sum.Ready() {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(sum)
}

// Wait blocks until running jobs finish or ctx is done, in which case the
// remaining jobs are cancelled.
func (s *Server) Wait(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.cancel()
		<-done
	}
}

type createResp struct {
	Status  string `json:"status"`
	JobID   string `json:"job_id"`
	Message string `json:"message"`
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	defer r.Body.Close()
	var job manifest.Job
	if err := json.NewDecoder(r.Body).Decode(&job); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if err := job.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := (pathPolicy{root: s.deps.Root, bucket: s.deps.Bucket}).confine(&job); err != nil {
		log.Warn().Err(err).Str("operation", job.Operation()).Msg("job rejected")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	jobID := uuid.NewString()
	op := job.Operation()
	start := time.Now()
	if err := s.deps.Status.Set(r.Context(), jobID, store.Status{
		Status: store.StatusQueued, Operation: op, Message: "queued", Start: &start,
		Metadata: map[string]any{"name": job.Name},
	}); err != nil {
		log.Error().Err(err).Str("job_id", jobID).Msg("status store unavailable")
		http.Error(w, "status store unavailable", http.StatusServiceUnavailable)
		return
	}
	log.Info().Str("job_id", jobID).Str("operation", op).Str("name", job.Name).Msg("job created")

	s.wg.Add(1)
	go s.run(jobID, job, start)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(createResp{Status: "ok", JobID: jobID, Message: op + " job created"})
}

func (s *Server) run(jobID string, job manifest.Job, start time.Time) {
	defer s.wg.Done()
	metrics.JobStarted()
	defer metrics.JobFinished()

	op := job.Operation()
	s.setStatus(jobID, store.Status{Status: store.StatusProcessing, Operation: op, Progress: 10, Message: "processing", Start: &start})

	rep, err := job.Run(s.ctx, s.deps.Ops)
	end := time.Now()
	st := finalStatus(rep, err)
	st.Operation = op
	st.Start = &start
	st.End = &end
	st.Metadata["name"] = job.Name
	s.setStatus(jobID, st)

	log.Info().Str("job_id", jobID).Str("status", st.Status).Dur("duration", end.Sub(start)).Msg(st.Message)
}

// finalStatus maps a finished job onto its stored status.
func finalStatus(rep batch.Report, err error) store.Status {
	st := store.Status{Progress: 100, Metadata: map[string]any{}}
	if err != nil {
		st.Status = store.StatusFailed
		st.Message = err.Error()
		return st
	}
	st.Message = rep.Summary()
	st.Metadata["items"] = rep.Lines()
	st.Metadata["succeeded"] = rep.Count(batch.Success)
	st.Metadata["failed"] = rep.Count(batch.Failure)
	st.Metadata["warnings"] = rep.Count(batch.Warning)
	switch {
	case rep.AllFailed():
		st.Status = store.StatusFailed
	case rep.Count(batch.Failure) > 0 || rep.Count(batch.Warning) > 0:
		st.Status = store.StatusPartial
	default:
		st.Status = store.StatusCompleted
	}
	return st
}

func (s *Server) setStatus(jobID string, st store.Status) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.deps.Status.Set(ctx, jobID, st); err != nil {
		log.Warn().Err(err).Str("job_id", jobID).Str("status", st.Status).Msg("failed to store job status")
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/jobs/")
	if id == "" || strings.Contains(id, "/") {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	st, ok, err := s.deps.Status.Get(r.Context(), id)
	if err != nil {
		http.Error(w, "error", http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success":    st.Status == store.StatusCompleted,
		"job_id":     id,
		"operation":  st.Operation,
		"status":     st.Status,
		"progress":   st.Progress,
		"message":    st.Message,
		"start_time": st.Start,
		"end_time":   st.End,
		"metadata":   st.Metadata,
	})
}
