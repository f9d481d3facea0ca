package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/postpilot/internal/ai"
	"github.com/postpilot/internal/config"
	"github.com/postpilot/internal/corpus"
	"github.com/postpilot/internal/enrich"
	"github.com/postpilot/internal/export/sheets"
	"github.com/postpilot/internal/fewshot"
	"github.com/postpilot/internal/generator"
	"github.com/postpilot/internal/models"
	"github.com/postpilot/internal/source"
	"github.com/postpilot/internal/source/rss"
	"github.com/postpilot/internal/storage"
	"github.com/postpilot/internal/storage/sqlite"
	"github.com/postpilot/pkg/logger"
	"github.com/postpilot/pkg/ratelimit"
)

var (
	cfgFile string
	cfg     *config.Config
	log     *logger.Logger
	repo    storage.Repository
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "postpilot",
		Short: "Enrich a LinkedIn post corpus and generate new posts in its style",
		Long: `Tags a corpus of LinkedIn posts with line count, language and topics
using an LLM, then writes new posts using matching corpus posts as examples.`,
		PersistentPreRunE:  initializeApp,
		PersistentPostRunE: closeApp,
		SilenceUsage:       true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml or ./configs/config.yaml)")

	rootCmd.AddCommand(enrichCmd())
	rootCmd.AddCommand(generateCmd())
	rootCmd.AddCommand(tagsCmd())
	rootCmd.AddCommand(ingestCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(exportCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func initializeApp(cmd *cobra.Command, args []string) error {
	var err error

	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log = logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})

	if !cfg.Database.Enabled {
		log.Debug().Msg("History store disabled")
		return nil
	}

	db, err := sqlite.New(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	repo = db

	return nil
}

func closeApp(cmd *cobra.Command, args []string) error {
	if repo != nil {
		return repo.Close()
	}
	return nil
}

// signalContext is cancelled on SIGINT/SIGTERM so long runs stop cleanly
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func newCompleter() (ai.Completer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	limiter := ratelimit.New(cfg.LLM.RequestsPerMinute, cfg.LLM.Burst)
	return ai.NewCompleter(cfg.LLM, limiter, log)
}

// ============ ENRICH ============

func enrichCmd() *cobra.Command {
	var input, output string
	var workers int

	cmd := &cobra.Command{
		Use:   "enrich",
		Short: "Extract metadata for every raw post and unify tags",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			if input == "" {
				input = cfg.Corpus.RawPath
			}
			if output == "" {
				output = cfg.Corpus.ProcessedPath
			}
			if workers > 0 {
				cfg.Enrich.Workers = workers
			}

			llm, err := newCompleter()
			if err != nil {
				return err
			}

			pipeline := enrich.NewPipeline(llm, enrich.Options{
				Workers: cfg.Enrich.Workers,
				Model:   cfg.LLM.Model,
				Runs:    repo,
			}, log)

			started := time.Now()
			result, err := pipeline.Run(ctx, input, output)
			if err != nil {
				return fmt.Errorf("enrichment failed: %w", err)
			}

			fmt.Printf("\n=== Enrichment Results ===\n")
			fmt.Printf("Enriched:    %d\n", len(result.Posts))
			fmt.Printf("Skipped:     %d\n", len(result.Skipped))
			fmt.Printf("Tags before: %d\n", len(result.TagsBefore))
			fmt.Printf("Tags after:  %d\n", len(result.TagsAfter))
			fmt.Printf("Duration:    %s\n", time.Since(started).Round(time.Millisecond))
			fmt.Printf("Output:      %s\n", output)

			if len(result.Skipped) > 0 {
				fmt.Printf("\nSkipped posts:\n")
				for _, s := range result.Skipped {
					fmt.Printf("  - #%d: %v\n", s.Index, s.Err)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "raw corpus file (default corpus.raw_path)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "processed corpus file (default corpus.processed_path)")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "concurrent extraction calls (default enrich.workers)")

	return cmd
}

// ============ GENERATE ============

func generateCmd() *cobra.Command {
	var length, language, topic string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a post for a topic, length and language",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			l, err := models.ParseLength(length)
			if err != nil {
				return err
			}
			lang, err := models.ParseLanguage(language)
			if err != nil {
				return err
			}

			examples, err := fewshot.Load(cfg.Corpus.ProcessedPath)
			if err != nil {
				return err
			}

			llm, err := newCompleter()
			if err != nil {
				return err
			}

			var posts generator.PostStore
			if repo != nil {
				posts = repo
			}
			gen := generator.New(llm, examples, posts, cfg.LLM.Model, log)

			result, err := gen.Generate(ctx, l, lang, topic)
			if err != nil {
				return err
			}

			fmt.Printf("\n=== Generated Post (%s, %s, %s) ===\n", topic, l, lang)
			fmt.Printf("Examples used: %d\n\n", result.ExampleCount)
			fmt.Println(result.Content)
			return nil
		},
	}

	cmd.Flags().StringVarP(&length, "length", "l", string(models.LengthMedium), "Short, Medium or Long")
	cmd.Flags().StringVar(&language, "language", string(models.LanguageEnglish), "English or Hinglish")
	cmd.Flags().StringVarP(&topic, "topic", "t", "", "topic tag (see 'postpilot tags')")
	cmd.MarkFlagRequired("topic")

	return cmd
}

// ============ TAGS ============

func tagsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tags",
		Short: "List topics available for generation",
		RunE: func(cmd *cobra.Command, args []string) error {
			examples, err := fewshot.Load(cfg.Corpus.ProcessedPath)
			if err != nil {
				return err
			}

			tags := examples.Tags()
			if len(tags) == 0 {
				fmt.Println("No tags found. Run 'postpilot enrich' first.")
				return nil
			}

			rows := make([][]string, 0, len(tags))
			for _, tag := range tags {
				rows = append(rows, []string{tag, strconv.Itoa(examples.TagCount(tag))})
			}
			fmt.Println(renderTable([]string{"Tag", "Posts"}, rows, []columnAlignment{alignLeft, alignRight}))
			fmt.Printf("%d tags across %d posts\n", len(tags), examples.Len())
			return nil
		},
	}
}

// ============ INGEST ============

func ingestCmd() *cobra.Command {
	var appendMode bool
	var output string

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Fetch configured feeds into the raw corpus",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			if output == "" {
				output = cfg.Corpus.RawPath
			}

			if len(cfg.Feeds) == 0 {
				return fmt.Errorf("no feeds configured")
			}

			result, err := source.Ingest(ctx, newSourceManager(), output, appendMode, log)
			if err != nil {
				return fmt.Errorf("ingest failed: %w", err)
			}

			fmt.Printf("\n=== Ingest Results ===\n")
			fmt.Printf("Fetched:     %d\n", result.Fetched)
			fmt.Printf("New posts:   %d\n", result.Added)
			fmt.Printf("Corpus size: %d\n", result.Total)
			fmt.Printf("Output:      %s\n", output)

			if len(result.Errors) > 0 {
				fmt.Printf("\nErrors:\n")
				for _, e := range result.Errors {
					fmt.Printf("  - %s\n", e)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&appendMode, "append", "a", true, "merge with the existing corpus instead of replacing it")
	cmd.Flags().StringVarP(&output, "output", "o", "", "raw corpus file (default corpus.raw_path)")

	return cmd
}

func newSourceManager() *source.Manager {
	limiter := ratelimit.New(cfg.LLM.RequestsPerMinute, cfg.LLM.Burst)
	manager := source.NewManager()
	for _, src := range rss.NewMultiple(cfg.Feeds, limiter, log) {
		manager.Register(src)
	}
	return manager
}

// ============ HISTORY ============

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show enrichment runs and generated posts",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := initializeApp(cmd, args); err != nil {
				return err
			}
			if repo == nil {
				return fmt.Errorf("history store is disabled (database.enabled=false)")
			}
			return nil
		},
	}

	cmd.AddCommand(historyRunsCmd())
	cmd.AddCommand(historyPostsCmd())
	return cmd
}

func historyRunsCmd() *cobra.Command {
	var limit int
	var status string

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent enrichment runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := storage.DefaultRunFilter()
			filter.Limit = limit
			if status != "" {
				s := models.RunStatus(strings.ToLower(status))
				filter.Status = &s
			}

			runs, err := repo.ListRuns(cmd.Context(), filter)
			if err != nil {
				return fmt.Errorf("failed to list runs: %w", err)
			}
			if len(runs) == 0 {
				fmt.Println("No enrichment runs recorded.")
				return nil
			}

			rows := make([][]string, 0, len(runs))
			for _, r := range runs {
				rows = append(rows, []string{
					strconv.FormatUint(uint64(r.ID), 10),
					r.StartedAt.Format("2006-01-02 15:04"),
					string(r.Status),
					r.Model,
					strconv.Itoa(r.RawCount),
					strconv.Itoa(r.EnrichedCount),
					strconv.Itoa(r.SkippedCount),
					fmt.Sprintf("%d → %d", r.TagsBefore, r.TagsAfter),
					r.Duration().Round(time.Second).String(),
				})
			}
			fmt.Println(renderTable(
				[]string{"ID", "Started", "Status", "Model", "Raw", "Enriched", "Skipped", "Tags", "Duration"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum runs to show")
	cmd.Flags().StringVar(&status, "status", "", "filter by status (running, succeeded, failed)")
	return cmd
}

func historyPostsCmd() *cobra.Command {
	var limit int
	var topic string

	cmd := &cobra.Command{
		Use:   "posts",
		Short: "List recently generated posts",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := storage.DefaultGeneratedPostFilter()
			filter.Limit = limit
			if topic != "" {
				filter.Topic = &topic
			}

			posts, err := repo.ListGeneratedPosts(cmd.Context(), filter)
			if err != nil {
				return fmt.Errorf("failed to list generated posts: %w", err)
			}
			if len(posts) == 0 {
				fmt.Println("No generated posts recorded.")
				return nil
			}

			rows := make([][]string, 0, len(posts))
			for _, p := range posts {
				rows = append(rows, []string{
					strconv.FormatUint(uint64(p.ID), 10),
					p.CreatedAt.Format("2006-01-02 15:04"),
					p.Topic,
					string(p.Length),
					string(p.Language),
					strconv.Itoa(p.ExampleCount),
					truncate(p.Content, 60),
				})
			}
			fmt.Println(renderTable(
				[]string{"ID", "Created", "Topic", "Length", "Language", "Examples", "Content"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum posts to show")
	cmd.Flags().StringVarP(&topic, "topic", "t", "", "filter by topic")
	return cmd
}

// ============ EXPORT ============

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the processed corpus",
	}

	cmd.AddCommand(exportSheetsCmd())
	return cmd
}

func exportSheetsCmd() *cobra.Command {
	var input string

	cmd := &cobra.Command{
		Use:   "sheets",
		Short: "Write the processed corpus to a Google Sheets tab",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			if err := cfg.ValidateExport(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			if input == "" {
				input = cfg.Corpus.ProcessedPath
			}

			posts, err := corpus.Load(input)
			if err != nil {
				return err
			}

			exporter, err := sheets.New(ctx, cfg.Export, log)
			if err != nil {
				return err
			}
			if err := exporter.Export(ctx, posts); err != nil {
				return err
			}

			fmt.Printf("Exported %d posts to sheet %q\n", len(posts), cfg.Export.SheetName)
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "processed corpus file (default corpus.processed_path)")
	return cmd
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
