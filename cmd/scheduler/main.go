package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/postpilot/internal/ai"
	"github.com/postpilot/internal/config"
	"github.com/postpilot/internal/enrich"
	"github.com/postpilot/internal/source"
	"github.com/postpilot/internal/source/rss"
	"github.com/postpilot/internal/storage"
	"github.com/postpilot/internal/storage/sqlite"
	"github.com/postpilot/pkg/logger"
	"github.com/postpilot/pkg/ratelimit"
)

var (
	cfgFile string
	runNow  bool
	cfg     *config.Config
	log     *logger.Logger
	repo    storage.Repository
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "postpilot-scheduler",
		Short: "Background scheduler for corpus refresh and enrichment",
		Long: `Periodically ingests the configured feeds into the raw corpus and
re-runs enrichment so the example store stays current.`,
		RunE:         runScheduler,
		SilenceUsage: true,
	}

	rootCmd.Flags().StringVar(&cfgFile, "config", "", "config file path")
	rootCmd.Flags().BoolVar(&runNow, "run-now", false, "run the job once at startup")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runScheduler(cmd *cobra.Command, args []string) error {
	var err error

	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log = logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})

	log.Info().Msg("Starting postpilot scheduler")

	if cfg.Database.Enabled {
		db, err := sqlite.New(cfg.Database.DSN)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()

		if err := db.Migrate(); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		repo = db
	}

	limiter := ratelimit.New(cfg.LLM.RequestsPerMinute, cfg.LLM.Burst)

	llm, err := ai.NewCompleter(cfg.LLM, limiter, log)
	if err != nil {
		return fmt.Errorf("failed to create LLM client: %w", err)
	}

	sourceManager := source.NewManager()
	for _, src := range rss.NewMultiple(cfg.Feeds, limiter, log) {
		sourceManager.Register(src)
	}

	pipeline := enrich.NewPipeline(llm, enrich.Options{
		Workers: cfg.Enrich.Workers,
		Model:   cfg.LLM.Model,
		Runs:    repo,
	}, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	status := &jobStatus{}
	job := &refreshJob{
		sources:  sourceManager,
		pipeline: pipeline,
		status:   status,
		log:      log.WithComponent("refresh-job"),
	}

	health := startHealthServer(status)

	cl := cronLogger{log}
	c := cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)))

	_, err = c.AddFunc(cfg.Scheduler.EnrichCron, func() { job.Run(ctx) })
	if err != nil {
		return fmt.Errorf("failed to schedule enrichment job: %w", err)
	}
	log.Info().Str("cron", cfg.Scheduler.EnrichCron).Msg("Enrichment job scheduled")

	c.Start()
	log.Info().Msg("Scheduler started")

	if runNow {
		go job.Run(ctx)
	}

	<-ctx.Done()

	log.Info().Msg("Shutting down scheduler")
	<-c.Stop().Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := health.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("Health server shutdown failed")
	}

	return nil
}

// refreshJob refreshes the raw corpus from feeds and re-enriches it
type refreshJob struct {
	sources  *source.Manager
	pipeline *enrich.Pipeline
	status   *jobStatus
	log      *logger.Logger
	mu       sync.Mutex
}

func (j *refreshJob) Run(ctx context.Context) {
	if !j.mu.TryLock() {
		j.log.Warn().Msg("Previous run still in progress, skipping")
		return
	}
	defer j.mu.Unlock()

	started := time.Now()
	j.log.Info().Msg("Running scheduled refresh")

	if cfg.Scheduler.IngestFeed && len(j.sources.Sources()) > 0 {
		if _, err := source.Ingest(ctx, j.sources, cfg.Corpus.RawPath, true, j.log); err != nil {
			// Enrichment can still run on the corpus already on disk.
			j.log.Error().Err(err).Msg("Feed ingest failed")
		}
	}

	result, err := j.pipeline.Run(ctx, cfg.Corpus.RawPath, cfg.Corpus.ProcessedPath)
	j.status.record(started, result, err)
	if err != nil {
		j.log.Error().Err(err).Msg("Scheduled enrichment failed")
		return
	}

	j.log.Info().
		Int("enriched", len(result.Posts)).
		Int("skipped", len(result.Skipped)).
		Int("tags", len(result.TagsAfter)).
		Dur("duration", time.Since(started)).
		Msg("Scheduled enrichment completed")
}

// jobStatus is the last run summary served on /status
type jobStatus struct {
	mu       sync.RWMutex
	LastRun  *time.Time `json:"last_run,omitempty"`
	Enriched int        `json:"enriched"`
	Skipped  int        `json:"skipped"`
	Error    string     `json:"error,omitempty"`
}

func (s *jobStatus) record(started time.Time, result *enrich.Result, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.LastRun = &started
	s.Error = ""
	s.Enriched, s.Skipped = 0, 0
	if err != nil {
		s.Error = err.Error()
		return
	}
	s.Enriched = len(result.Posts)
	s.Skipped = len(result.Skipped)
}

func (s *jobStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s)
}

// cronLogger adapts our logger for cron
type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}

// startHealthServer serves /health and /status on $PORT
func startHealthServer(status *jobStatus) *http.Server {
	port := os.Getenv("PORT")
	if port == "" {
		port = "10000"
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	mux.Handle("/status", status)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("postpilot scheduler"))
	})

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("port", port).Msg("Health check server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Health server failed")
		}
	}()

	return srv
}
