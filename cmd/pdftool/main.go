package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/local/pdftoolkit/internal/batch"
	cfgpkg "github.com/local/pdftoolkit/internal/config"
	"github.com/local/pdftoolkit/internal/fileref"
	logpkg "github.com/local/pdftoolkit/internal/logger"
	"github.com/local/pdftoolkit/internal/manifest"
	"github.com/local/pdftoolkit/internal/metrics"
	"github.com/local/pdftoolkit/internal/pagerange"
	"github.com/local/pdftoolkit/internal/pdfops"
	"github.com/local/pdftoolkit/internal/server"
	"github.com/local/pdftoolkit/internal/statuscheck"
	"github.com/local/pdftoolkit/internal/storage"
	"github.com/local/pdftoolkit/internal/store"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `usage: pdftool <command> [flags]

commands:
  split  <input> [-o dir] [-n chunk] [-r ranges] [-p pages]
  merge  <pattern|files...> [-o merged.pdf]
  text   <input> [-o file|-] [-p pages] [-clean]
  tables <input> [-o dir] [-p pages]
  run    -f jobs.yaml
  serve

Inputs may be local paths, glob patterns, file://, http(s):// or s3:// URLs.
Ranges and pages may be repeated, comma or space separated,
e.g. -r 1-3,5-7 -p 9 or -r 1-3 5-7.
`)
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		printUsage(stderr)
		return exitUsage
	}
	cmd, args := args[0], args[1:]
	if cmd == "-h" || cmd == "--help" || cmd == "help" {
		printUsage(stdout)
		return exitOK
	}

	cfg, err := cfgpkg.Load(".env")
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return exitFailure
	}
	_ = logpkg.Init(logpkg.Options{
		Level:        cfg.Logging.Level,
		Pretty:       cfg.Logging.Pretty,
		File:         cfg.Logging.File,
		MaxSizeMB:    cfg.Logging.MaxSizeMB,
		MaxBackups:   cfg.Logging.MaxBackups,
		MaxAgeDays:   cfg.Logging.MaxAgeDays,
		Compress:     cfg.Logging.Compress,
		Console:      stderr,
		SendToAxiom:  cfg.Axiom.Send && cfg.Axiom.APIKey != "",
		AxiomAPIKey:  cfg.Axiom.APIKey,
		AxiomOrgID:   cfg.Axiom.OrgID,
		AxiomDataset: cfg.Axiom.Dataset,
		AxiomFlush:   cfg.Axiom.FlushInterval,
	})
	defer logpkg.Close()
	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tk := newToolkit(cfg, stdout)

	switch cmd {
	case "split":
		return cmdSplit(ctx, tk, args, stderr)
	case "merge":
		return cmdMerge(ctx, tk, args, stderr)
	case "text":
		return cmdText(ctx, tk, cfg, args, stderr)
	case "tables":
		return cmdTables(ctx, tk, args, stderr)
	case "run":
		return cmdRun(ctx, tk, args, stderr)
	case "serve":
		return cmdServe(ctx, tk, cfg, args, stderr)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n", cmd)
		printUsage(stderr)
		return exitUsage
	}
}

func newS3(ctx context.Context, cfg cfgpkg.Config) (*storage.S3Client, error) {
	return storage.NewS3Client(ctx, storage.Options{
		Region:          cfg.Storage.Region,
		AccessKeyID:     cfg.Storage.AccessKeyID,
		SecretAccessKey: cfg.Storage.SecretAccessKey,
		Endpoint:        cfg.Storage.Endpoint,
	})
}

func newToolkit(cfg cfgpkg.Config, stdout io.Writer) *pdfops.Toolkit {
	resolver := &fileref.Resolver{
		HTTP: &http.Client{Timeout: 5 * time.Minute},
		NewStore: func(ctx context.Context) (fileref.ObjectStore, error) {
			s3c, err := newS3(ctx, cfg)
			if err != nil {
				return nil, err
			}
			return s3c, nil
		},
	}
	tk := pdfops.New(resolver)
	tk.Concurrency = cfg.Worker.Concurrency
	tk.ProbeThreshold = cfg.Extract.ProbeThreshold
	tk.Stdout = stdout
	return tk
}

// listFlag collects repeated values; each value may hold several entries
// separated by commas or spaces.
type listFlag []string

func (l *listFlag) String() string { return strings.Join(*l, ",") }

func (l *listFlag) Set(v string) error {
	*l = append(*l, strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == ' ' })...)
	return nil
}

// gatherLists folds the space separated values that follow a list flag into
// that flag, so "-r 1-5 6-10" reads as "-r 1-5,6-10". Only arguments that
// parse as page tokens are taken; the first one that does not ends the list.
func gatherLists(fs *flag.FlagSet, args []string) []string {
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		a := args[i]
		if a == "--" {
			return append(out, args[i:]...)
		}
		name, value, hasValue := strings.Cut(strings.TrimLeft(a, "-"), "=")
		f := fs.Lookup(name)
		if !strings.HasPrefix(a, "-") || f == nil {
			out = append(out, a)
			continue
		}
		if _, ok := f.Value.(*listFlag); !ok {
			out = append(out, a)
			continue
		}
		var values []string
		if hasValue {
			values = append(values, value)
		} else if i+1 < len(args) {
			i++
			values = append(values, args[i])
		}
		for i+1 < len(args) && isPageToken(args[i+1]) {
			i++
			values = append(values, args[i])
		}
		out = append(out, "-"+name+"="+strings.Join(values, ","))
	}
	return out
}

func isPageToken(s string) bool {
	if strings.TrimSpace(s) == "" {
		return false
	}
	_, err := pagerange.ParseList(s)
	return err == nil
}

// parseInterspersed parses flags that may appear before or after positional
// arguments and returns the positional ones.
func parseInterspersed(fs *flag.FlagSet, args []string) ([]string, error) {
	args = gatherLists(fs, args)
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		args = fs.Args()
		if len(args) == 0 {
			return positional, nil
		}
		positional = append(positional, args[0])
		args = args[1:]
	}
}

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

// finish prints a report and maps it onto an exit code.
func finish(rep batch.Report, err error, stderr io.Writer) int {
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", rep.Operation, err)
		return exitFailure
	}
	for _, line := range rep.Lines() {
		fmt.Fprintln(stderr, line)
	}
	fmt.Fprintln(stderr, rep.Summary())
	if rep.AllFailed() {
		return exitFailure
	}
	return exitOK
}

func cmdSplit(ctx context.Context, tk *pdfops.Toolkit, args []string, stderr io.Writer) int {
	fs := newFlagSet("split", stderr)
	var req pdfops.SplitRequest
	var ranges, pages listFlag
	fs.StringVar(&req.OutputDir, "o", "", "output directory (default <input>_split)")
	fs.IntVar(&req.ChunkSize, "n", 1, "pages per output file")
	fs.Var(&ranges, "r", "page ranges, e.g. 1-3,5-7")
	fs.Var(&pages, "p", "single pages, e.g. 1,4")
	pos, err := parseInterspersed(fs, args)
	if err != nil {
		return exitUsage
	}
	if len(pos) != 1 {
		fmt.Fprintln(stderr, "split: exactly one input is required")
		return exitUsage
	}
	req.Input, req.Ranges, req.Pages = pos[0], ranges, pages
	rep, err := tk.Split(ctx, req)
	return finish(rep, err, stderr)
}

func cmdMerge(ctx context.Context, tk *pdfops.Toolkit, args []string, stderr io.Writer) int {
	fs := newFlagSet("merge", stderr)
	var req pdfops.MergeRequest
	fs.StringVar(&req.Output, "o", pdfops.DefaultMergeOutput, "output file")
	pos, err := parseInterspersed(fs, args)
	if err != nil {
		return exitUsage
	}
	if len(pos) == 0 {
		fmt.Fprintln(stderr, "merge: at least one input or pattern is required")
		return exitUsage
	}
	req.Inputs = pos
	rep, err := tk.Merge(ctx, req)
	return finish(rep, err, stderr)
}

func cmdText(ctx context.Context, tk *pdfops.Toolkit, cfg cfgpkg.Config, args []string, stderr io.Writer) int {
	fs := newFlagSet("text", stderr)
	var req pdfops.TextRequest
	var pages listFlag
	fs.StringVar(&req.Output, "o", "", "output file, - for stdout (default <input>_text.txt)")
	fs.Var(&pages, "p", "pages and ranges, e.g. 1,3,5-7")
	fs.BoolVar(&req.Clean, "clean", cfg.Extract.Clean, "drop page numbers and boilerplate, join broken lines")
	pos, err := parseInterspersed(fs, args)
	if err != nil {
		return exitUsage
	}
	if len(pos) != 1 {
		fmt.Fprintln(stderr, "text: exactly one input is required")
		return exitUsage
	}
	req.Input, req.Pages = pos[0], pages
	rep, err := tk.ExtractText(ctx, req)
	return finish(rep, err, stderr)
}

func cmdTables(ctx context.Context, tk *pdfops.Toolkit, args []string, stderr io.Writer) int {
	fs := newFlagSet("tables", stderr)
	var req pdfops.TablesRequest
	var pages listFlag
	fs.StringVar(&req.OutputDir, "o", "", "output directory (default <input>_tables)")
	fs.Var(&pages, "p", "pages and ranges, e.g. 1,3,5-7")
	pos, err := parseInterspersed(fs, args)
	if err != nil {
		return exitUsage
	}
	if len(pos) != 1 {
		fmt.Fprintln(stderr, "tables: exactly one input is required")
		return exitUsage
	}
	req.Input, req.Pages = pos[0], pages
	rep, err := tk.ExtractTables(ctx, req)
	return finish(rep, err, stderr)
}

func cmdRun(ctx context.Context, tk *pdfops.Toolkit, args []string, stderr io.Writer) int {
	fs := newFlagSet("run", stderr)
	file := fs.String("f", "jobs.yaml", "manifest file")
	if _, err := parseInterspersed(fs, args); err != nil {
		return exitUsage
	}
	m, err := manifest.Load(*file)
	if err != nil {
		fmt.Fprintf(stderr, "run: %v\n", err)
		return exitFailure
	}
	if m.Concurrency > 0 {
		tk.Concurrency = m.Concurrency
	}

	code := exitOK
	succeeded := 0
	for _, res := range m.Run(ctx, tk) {
		fmt.Fprintf(stderr, "== %s\n", res.Name)
		if finish(res.Report, res.Err, stderr) == exitOK {
			succeeded++
		} else {
			code = exitFailure
		}
	}
	fmt.Fprintf(stderr, "run: %d of %d jobs succeeded\n", succeeded, len(m.Jobs))
	if succeeded > 0 {
		return exitOK
	}
	return code
}

func cmdServe(ctx context.Context, tk *pdfops.Toolkit, cfg cfgpkg.Config, args []string, stderr io.Writer) int {
	fs := newFlagSet("serve", stderr)
	port := fs.String("port", cfg.Server.Port, "listen port")
	if _, err := parseInterspersed(fs, args); err != nil {
		return exitUsage
	}

	var status store.StatusStore
	if cfg.Server.RedisURL != "" {
		rs, err := store.NewRedisStatus(ctx, cfg.Server.RedisURL, cfg.Server.StatusTTL)
		if err != nil {
			log.Error().Err(err).Msg("failed to init redis status store")
			return exitFailure
		}
		status = rs
	} else {
		log.Warn().Msg("REDIS_URL not set, job status is kept in memory")
		status = store.NewMemoryStatus()
	}
	defer status.Close()

	checks := statuscheck.Options{Store: status, S3Bucket: cfg.Storage.Bucket}
	if cfg.Storage.Bucket != "" {
		if s3c, err := newS3(ctx, cfg); err != nil {
			log.Warn().Err(err).Msg("s3 status check disabled")
		} else {
			checks.S3 = s3c
		}
	}

	if cfg.Server.Root == "" && cfg.Storage.Bucket == "" {
		log.Warn().Msg("SERVE_ROOT and S3_BUCKET not set, jobs may only use s3:// and http(s):// references")
	}

	api := server.New(server.Dependencies{
		Ops:     tk,
		Status:  status,
		Checker: statuscheck.New(checks),
		Root:    cfg.Server.Root,
		Bucket:  cfg.Storage.Bucket,
	})
	mux := http.NewServeMux()
	api.RegisterRoutes(mux)
	srv := &http.Server{Addr: ":" + *port, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go cleanupLoop(ctx, cfg.Temp.CleanupAge, cfg.Temp.CleanupInterval)

	errc := make(chan error, 1)
	go func() {
		log.Info().Msgf("HTTP server listening on :%s", *port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case err := <-errc:
		log.Error().Err(err).Msg("http server error")
		return exitFailure
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	api.Wait(shutdownCtx)
	log.Info().Msg("shutdown complete")
	return exitOK
}

func cleanupLoop(ctx context.Context, maxAge, every time.Duration) {
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		fileref.CleanupTemps(maxAge)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
