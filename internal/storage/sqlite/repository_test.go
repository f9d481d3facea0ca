package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/postpilot/internal/models"
	"github.com/postpilot/internal/storage"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := New(filepath.Join(t.TempDir(), "data", "history.db"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	if err := repo.Migrate(); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return repo
}

func TestRunLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	started := time.Now().Add(-time.Minute)
	run := &models.EnrichmentRun{
		InputPath: "data/raw_posts.json",
		Model:     "llama-3.1-8b-instant",
		Workers:   2,
		RawCount:  3,
		Status:    models.RunStatusRunning,
		StartedAt: started,
	}
	if err := repo.CreateRun(ctx, run); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	if run.ID == 0 {
		t.Fatal("expected ID to be assigned")
	}

	finished := time.Now()
	run.Status = models.RunStatusSucceeded
	run.EnrichedCount = 2
	run.SkippedCount = 1
	run.CanonicalTags = models.StringSlice{"Job Search", "Mood"}
	run.FinishedAt = &finished
	if err := repo.UpdateRun(ctx, run); err != nil {
		t.Fatalf("UpdateRun: %v", err)
	}

	got, err := repo.GetRunByID(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetRunByID: %v", err)
	}
	if got.Status != models.RunStatusSucceeded || got.EnrichedCount != 2 || got.SkippedCount != 1 {
		t.Fatalf("unexpected run %+v", got)
	}
	if len(got.CanonicalTags) != 2 || got.CanonicalTags[1] != "Mood" {
		t.Fatalf("canonical tags not persisted: %v", got.CanonicalTags)
	}
	if got.FinishedAt == nil || got.Duration() <= 0 {
		t.Fatalf("expected a positive duration, got %v", got.Duration())
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	base := time.Now()
	statuses := []models.RunStatus{models.RunStatusSucceeded, models.RunStatusFailed, models.RunStatusSucceeded}
	for i, status := range statuses {
		run := &models.EnrichmentRun{Status: status, StartedAt: base.Add(time.Duration(i) * time.Minute)}
		if err := repo.CreateRun(ctx, run); err != nil {
			t.Fatal(err)
		}
	}

	runs, err := repo.ListRuns(ctx, storage.DefaultRunFilter())
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 3 || runs[0].ID != 3 {
		t.Fatalf("expected newest run first, got %d runs", len(runs))
	}

	failed := models.RunStatusFailed
	runs, err = repo.ListRuns(ctx, storage.RunFilter{Status: &failed})
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != 2 {
		t.Fatalf("expected only the failed run, got %+v", runs)
	}

	runs, err = repo.ListRuns(ctx, storage.RunFilter{Limit: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected limit to apply, got %d", len(runs))
	}
}

func TestGeneratedPosts(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	posts := []*models.GeneratedPost{
		{Length: models.LengthShort, Language: models.LanguageEnglish, Topic: "Job Search", Content: "one"},
		{Length: models.LengthLong, Language: models.LanguageHinglish, Topic: "Job Search", Content: "two"},
		{Length: models.LengthShort, Language: models.LanguageEnglish, Topic: "Mood", Content: "three"},
	}
	for _, p := range posts {
		if err := repo.CreateGeneratedPost(ctx, p); err != nil {
			t.Fatalf("CreateGeneratedPost: %v", err)
		}
	}

	topic := "Job Search"
	got, err := repo.ListGeneratedPosts(ctx, storage.GeneratedPostFilter{Topic: &topic})
	if err != nil {
		t.Fatalf("ListGeneratedPosts: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 Job Search posts, got %d", len(got))
	}

	lang := models.LanguageHinglish
	got, err = repo.ListGeneratedPosts(ctx, storage.GeneratedPostFilter{Language: &lang})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Content != "two" {
		t.Fatalf("unexpected Hinglish posts %+v", got)
	}

	all, err := repo.ListGeneratedPosts(ctx, storage.DefaultGeneratedPostFilter())
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 || all[0].Content != "three" {
		t.Fatalf("expected newest first, got %d posts", len(all))
	}
}
