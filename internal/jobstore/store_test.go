package jobstore_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"cueforge/internal/jobstore"
	"cueforge/internal/services"
	"cueforge/internal/testsupport"
)

func TestOpenAppliesMigrationsIdempotently(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	first := testsupport.MustOpenStore(t, cfg)
	job := testsupport.NewJob(t, first, "/media/a.mkv")
	if err := first.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	second := testsupport.MustOpenStore(t, cfg)
	got, err := second.Get(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil || got.Source != "/media/a.mkv" {
		t.Fatalf("expected job to survive reopen, got %+v", got)
	}
	if second.Path() != cfg.Paths.JobDB {
		t.Fatalf("path = %q, want %q", second.Path(), cfg.Paths.JobDB)
	}
}

func TestNewJobDefaults(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	job, err := store.NewJob(context.Background(), "  /media/b.wav ", "de", "openai")
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}
	if job.Status != jobstore.StatusPending {
		t.Fatalf("status = %s, want pending", job.Status)
	}
	if job.Source != "/media/b.wav" || job.Language != "de" || job.Provider != "openai" {
		t.Fatalf("unexpected job fields: %+v", job)
	}
	if job.Score != nil || job.GatePassed != nil || job.StartedAt != nil {
		t.Fatalf("expected unset outcome fields, got %+v", job)
	}
	if job.CreatedAt.IsZero() {
		t.Fatal("expected created_at to be set")
	}

	if _, err := store.NewJob(context.Background(), " ", "en", "openai"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for empty source, got %v", err)
	}
}

func TestLifecycleComplete(t *testing.T) {
	ctx := context.Background()
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	job := testsupport.NewJob(t, store, "/media/c.mp3")

	if err := store.Complete(ctx, job.ID, jobstore.Completion{}); !errors.Is(err, jobstore.ErrInvalidTransition) {
		t.Fatalf("complete from pending should fail, got %v", err)
	}
	if err := store.MarkRunning(ctx, job.ID); err != nil {
		t.Fatalf("MarkRunning: %v", err)
	}
	if err := store.MarkRunning(ctx, job.ID); !errors.Is(err, jobstore.ErrInvalidTransition) {
		t.Fatalf("second MarkRunning should fail, got %v", err)
	}

	out := filepath.Join(t.TempDir(), "c.vtt")
	if err := store.Complete(ctx, job.ID, jobstore.Completion{
		SegmentCount:     12,
		ChunkCount:       2,
		Score:            81.5,
		QualityLevel:     "good",
		GatePassed:       true,
		CategoryFailures: []string{"timing", "formatting"},
		OutputPath:       out,
	}); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	got, err := store.Get(ctx, job.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != jobstore.StatusCompleted || !got.Status.IsTerminal() {
		t.Fatalf("status = %s", got.Status)
	}
	if got.Score == nil || *got.Score != 81.5 {
		t.Fatalf("score = %v", got.Score)
	}
	if got.GatePassed == nil || !*got.GatePassed {
		t.Fatalf("gate passed = %v", got.GatePassed)
	}
	if len(got.CategoryFailures) != 2 || got.CategoryFailures[1] != "formatting" {
		t.Fatalf("category failures = %v", got.CategoryFailures)
	}
	if got.SegmentCount != 12 || got.ChunkCount != 2 || got.OutputPath != out || got.QualityLevel != "good" {
		t.Fatalf("unexpected completion fields: %+v", got)
	}
	if got.StartedAt == nil || got.FinishedAt == nil || got.Elapsed() < 0 {
		t.Fatalf("expected timestamps, got started=%v finished=%v", got.StartedAt, got.FinishedAt)
	}

	if err := store.Fail(ctx, job.ID, errors.New("late")); !errors.Is(err, jobstore.ErrInvalidTransition) {
		t.Fatalf("fail after completion should be rejected, got %v", err)
	}
}

func TestFailRecordsErrorCode(t *testing.T) {
	ctx := context.Background()
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))

	pending := testsupport.NewJob(t, store, "/media/d.mkv")
	cause := services.Wrap(services.ErrExternalTool, "chunker", "split", "ffmpeg exited 1", nil)
	if err := store.Fail(ctx, pending.ID, cause); err != nil {
		t.Fatalf("Fail: %v", err)
	}
	got, _ := store.Get(ctx, pending.ID)
	if got.Status != jobstore.StatusFailed || got.ErrorCode != services.CodeChunkingFailed {
		t.Fatalf("unexpected failed job: %+v", got)
	}
	if got.ErrorMessage == "" {
		t.Fatal("expected error message")
	}

	running := testsupport.NewJob(t, store, "/media/e.mkv")
	if err := store.MarkRunning(ctx, running.ID); err != nil {
		t.Fatalf("MarkRunning: %v", err)
	}
	if err := store.Fail(ctx, running.ID, services.Wrap(services.ErrRateLimited, "transcribe", "openai", "429", nil)); err != nil {
		t.Fatalf("Fail: %v", err)
	}
	got, _ = store.Get(ctx, running.ID)
	if got.ErrorCode != services.CodeRateLimited {
		t.Fatalf("error code = %q", got.ErrorCode)
	}
}

func TestTransitionUnknownJob(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	if err := store.MarkRunning(context.Background(), "missing"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	got, err := store.Get(context.Background(), "missing")
	if err != nil || got != nil {
		t.Fatalf("Get missing = %v, %v", got, err)
	}
}

func TestListFiltersAndLimits(t *testing.T) {
	ctx := context.Background()
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	a := testsupport.NewJob(t, store, "/a")
	b := testsupport.NewJob(t, store, "/b")
	testsupport.NewJob(t, store, "/c")
	if err := store.MarkRunning(ctx, a.ID); err != nil {
		t.Fatal(err)
	}
	if err := store.MarkRunning(ctx, b.ID); err != nil {
		t.Fatal(err)
	}

	all, err := store.List(ctx, jobstore.ListOptions{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 jobs, got %d", len(all))
	}

	running, err := store.List(ctx, jobstore.ListOptions{Statuses: []jobstore.Status{jobstore.StatusRunning}})
	if err != nil {
		t.Fatalf("List running: %v", err)
	}
	if len(running) != 2 {
		t.Fatalf("expected 2 running jobs, got %d", len(running))
	}

	limited, err := store.List(ctx, jobstore.ListOptions{Limit: 1})
	if err != nil {
		t.Fatalf("List limited: %v", err)
	}
	if len(limited) != 1 {
		t.Fatalf("expected 1 job, got %d", len(limited))
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats[jobstore.StatusRunning] != 2 || stats[jobstore.StatusPending] != 1 {
		t.Fatalf("stats = %v", stats)
	}
}

func TestFindByPrefix(t *testing.T) {
	ctx := context.Background()
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	job := testsupport.NewJob(t, store, "/a")

	got, err := store.FindByPrefix(ctx, job.ID[:8])
	if err != nil {
		t.Fatalf("FindByPrefix: %v", err)
	}
	if got.ID != job.ID {
		t.Fatalf("found %s, want %s", got.ID, job.ID)
	}
	if _, err := store.FindByPrefix(ctx, "zzzz"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := store.FindByPrefix(ctx, "%"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("wildcards should be literal, got %v", err)
	}
}

func TestResetStuck(t *testing.T) {
	ctx := context.Background()
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	stuck := testsupport.NewJob(t, store, "/stuck")
	live := testsupport.NewJob(t, store, "/live")
	for _, id := range []string{stuck.ID, live.ID} {
		if err := store.MarkRunning(ctx, id); err != nil {
			t.Fatal(err)
		}
	}

	active, err := store.ActiveIDs(ctx)
	if err != nil {
		t.Fatalf("ActiveIDs: %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("expected 2 active ids, got %v", active)
	}

	n, err := store.ResetStuck(ctx, map[string]struct{}{live.ID: {}})
	if err != nil {
		t.Fatalf("ResetStuck: %v", err)
	}
	if n != 1 {
		t.Fatalf("reset %d jobs, want 1", n)
	}
	got, _ := store.Get(ctx, stuck.ID)
	if got.Status != jobstore.StatusFailed || got.ErrorCode != services.CodeInternal {
		t.Fatalf("unexpected stuck job: %+v", got)
	}
	got, _ = store.Get(ctx, live.ID)
	if got.Status != jobstore.StatusRunning {
		t.Fatalf("live job status = %s", got.Status)
	}
}
