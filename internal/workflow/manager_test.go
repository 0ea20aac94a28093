package workflow_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"ariacut/internal/config"
	"ariacut/internal/queue"
	"ariacut/internal/services"
	"ariacut/internal/stage"
	"ariacut/internal/testsupport"
	"ariacut/internal/workflow"
)

type call struct {
	stage     string
	editionID int64
}

type recorder struct {
	mu    sync.Mutex
	calls []call
}

func (r *recorder) add(name string, id int64) {
	r.mu.Lock()
	r.calls = append(r.calls, call{stage: name, editionID: id})
	r.mu.Unlock()
}

func (r *recorder) snapshot() []call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]call(nil), r.calls...)
}

type stubStage struct {
	name        string
	rec         *recorder
	executeHook func(context.Context, *queue.Edition) error
	health      stage.Health
}

func newStubStage(name string, rec *recorder) *stubStage {
	return &stubStage{name: name, rec: rec, health: stage.Healthy(name)}
}

func (s *stubStage) Prepare(context.Context, *queue.Edition) error { return nil }

func (s *stubStage) Execute(ctx context.Context, e *queue.Edition) error {
	if s.rec != nil {
		s.rec.add(s.name, e.ID)
	}
	if s.executeHook != nil {
		return s.executeHook(ctx, e)
	}
	return nil
}

func (s *stubStage) HealthCheck(context.Context) stage.Health { return s.health }

type stubSet struct {
	download, transcribe, cut, translate, render *stubStage
}

func newStubSet(rec *recorder) stubSet {
	return stubSet{
		download:   newStubStage("download", rec),
		transcribe: newStubStage("transcribe", rec),
		cut:        newStubStage("cut", rec),
		translate:  newStubStage("translate", rec),
		render:     newStubStage("render", rec),
	}
}

func (s stubSet) stageSet() workflow.StageSet {
	return workflow.StageSet{
		Downloader:  s.download,
		Transcriber: s.transcribe,
		Cutter:      s.cut,
		Translator:  s.translate,
		Renderer:    s.render,
	}
}

func testConfig(t *testing.T, workers int) *config.Config {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Workflow.PollInterval = 0
	cfg.Workflow.ErrorRetryInterval = 0
	cfg.Workflow.Workers = workers
	cfg.Workflow.HeartbeatInterval = 1
	return cfg
}

func waitForStatus(t *testing.T, store *queue.Store, id int64, want queue.Status) *queue.Edition {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		e, err := store.GetByID(context.Background(), id)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if e != nil && e.Status == want {
			return e
		}
		if time.Now().After(deadline) {
			t.Fatalf("edition %d did not reach %s (last %+v)", id, want, e)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func startManager(t *testing.T, cfg *config.Config, store *queue.Store, set workflow.StageSet) *workflow.Manager {
	t.Helper()
	mgr := workflow.NewManager(cfg, store, nil)
	mgr.ConfigureStages(set)
	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(mgr.Stop)
	return mgr
}

func TestManagerRunsEditionToCompletion(t *testing.T) {
	cfg := testConfig(t, 2)
	store := testsupport.MustOpenStore(t, cfg)
	edition := testsupport.NewEdition(t, store, "Maria Callas", "Casta diva")

	rec := &recorder{}
	startManager(t, cfg, store, newStubSet(rec).stageSet())

	done := waitForStatus(t, store, edition.ID, queue.StatusCompleted)
	if done.LastHeartbeat != nil {
		t.Fatalf("heartbeat should be cleared on completion")
	}
	var order []string
	for _, c := range rec.snapshot() {
		order = append(order, c.stage)
	}
	want := []string{"download", "transcribe", "cut", "translate", "render"}
	if len(order) != len(want) {
		t.Fatalf("stage calls = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("stage calls = %v, want %v", order, want)
		}
	}
	if done.ItemLogPath == "" {
		t.Fatalf("expected edition log path")
	}
	if _, err := os.Stat(done.ItemLogPath); err != nil {
		t.Fatalf("edition log missing: %v", err)
	}
}

func TestManagerStopsAtReview(t *testing.T) {
	cfg := testConfig(t, 1)
	store := testsupport.MustOpenStore(t, cfg)
	edition := testsupport.NewEdition(t, store, "Maria Callas", "Casta diva")

	rec := &recorder{}
	set := newStubSet(rec)
	set.transcribe.executeHook = func(_ context.Context, e *queue.Edition) error {
		e.AlignmentRoute = "B"
		e.SetFailed(queue.StatusReview, queue.StatusAligned, "alignment needs review")
		return nil
	}
	startManager(t, cfg, store, set.stageSet())

	got := waitForStatus(t, store, edition.ID, queue.StatusReview)
	if got.ResumeStatus != queue.StatusAligned || got.AlignmentRoute != "B" {
		t.Fatalf("unexpected review state: %+v", got)
	}
	time.Sleep(300 * time.Millisecond)
	for _, c := range rec.snapshot() {
		if c.stage == "cut" {
			t.Fatalf("cut must not run on an edition in review")
		}
	}
}

func TestManagerRecordsStageFailure(t *testing.T) {
	cfg := testConfig(t, 1)
	store := testsupport.MustOpenStore(t, cfg)
	edition := testsupport.NewEdition(t, store, "Maria Callas", "Casta diva")

	set := newStubSet(nil)
	set.download.executeHook = func(context.Context, *queue.Edition) error {
		return services.Wrap(services.ErrExternalTool, "download", "yt-dlp", "yt-dlp exited 1", errors.New("HTTP 403"))
	}
	startManager(t, cfg, store, set.stageSet())

	got := waitForStatus(t, store, edition.ID, queue.StatusFailed)
	if got.ResumeStatus != queue.StatusPending || got.ErrorMessage == "" {
		t.Fatalf("unexpected failure state: %+v", got)
	}
}

func TestManagerClaimsDownstreamFirst(t *testing.T) {
	cfg := testConfig(t, 1)
	store := testsupport.MustOpenStore(t, cfg)
	fresh := testsupport.NewEdition(t, store, "Maria Callas", "Casta diva")
	advanced := testsupport.NewEdition(t, store, "Luciano Pavarotti", "Nessun dorma")
	advanced.Status = queue.StatusCut
	if err := store.Update(context.Background(), advanced); err != nil {
		t.Fatalf("Update: %v", err)
	}

	rec := &recorder{}
	startManager(t, cfg, store, newStubSet(rec).stageSet())
	waitForStatus(t, store, advanced.ID, queue.StatusCompleted)
	waitForStatus(t, store, fresh.ID, queue.StatusCompleted)

	calls := rec.snapshot()
	if len(calls) == 0 || calls[0] != (call{stage: "translate", editionID: advanced.ID}) {
		t.Fatalf("expected translate of edition %d first, got %+v", advanced.ID, calls)
	}
}

func TestManagerStopFailsInFlightEditions(t *testing.T) {
	cfg := testConfig(t, 1)
	store := testsupport.MustOpenStore(t, cfg)
	edition := testsupport.NewEdition(t, store, "Maria Callas", "Casta diva")

	started := make(chan struct{})
	set := newStubSet(nil)
	set.download.executeHook = func(ctx context.Context, _ *queue.Edition) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}
	mgr := workflow.NewManager(cfg, store, nil)
	mgr.ConfigureStages(set.stageSet())
	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("download never started")
	}
	if status := mgr.Status(context.Background()); len(status.Active) != 1 || status.Active[0].Stage != "download" {
		t.Fatalf("expected one active download, got %+v", status.Active)
	}
	mgr.Stop()

	got, err := store.GetByID(context.Background(), edition.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != queue.StatusFailed || got.ResumeStatus != queue.StatusPending || got.ErrorMessage != queue.RunnerStopReason {
		t.Fatalf("unexpected state after stop: %+v", got)
	}
	if mgr.Running() {
		t.Fatal("manager still running")
	}
}

func TestManagerStartRecoversAndCleans(t *testing.T) {
	cfg := testConfig(t, 1)
	store := testsupport.MustOpenStore(t, cfg)
	edition := testsupport.NewEdition(t, store, "Maria Callas", "Casta diva")
	edition.Status = queue.StatusCutting
	if err := store.Update(context.Background(), edition); err != nil {
		t.Fatalf("Update: %v", err)
	}
	orphan := filepath.Join(cfg.Paths.StorageDir, "editions", "999")
	testsupport.WriteFile(t, filepath.Join(orphan, "cut.mp4"), 16)
	kept := cfg.EditionDir(edition.ID)
	testsupport.WriteFile(t, filepath.Join(kept, "original.mp4"), 16)
	staleExport := filepath.Join(cfg.Paths.ExportDir, "7-maria-callas-casta-diva")
	if err := os.MkdirAll(staleExport, 0o755); err != nil {
		t.Fatalf("mkdir export: %v", err)
	}

	rec := &recorder{}
	startManager(t, cfg, store, newStubSet(rec).stageSet())
	waitForStatus(t, store, edition.ID, queue.StatusCompleted)

	calls := rec.snapshot()
	if len(calls) == 0 || calls[0].stage != "cut" {
		t.Fatalf("expected the interrupted cut to restart, got %+v", calls)
	}
	if _, err := os.Stat(orphan); !os.IsNotExist(err) {
		t.Fatalf("orphan directory should be removed: %v", err)
	}
	if _, err := os.Stat(kept); err != nil {
		t.Fatalf("edition directory should remain: %v", err)
	}
	if _, err := os.Stat(staleExport); !os.IsNotExist(err) {
		t.Fatalf("empty export directory should be pruned: %v", err)
	}
}

func TestManagerStartRequiresStages(t *testing.T) {
	cfg := testConfig(t, 1)
	store := testsupport.MustOpenStore(t, cfg)
	mgr := workflow.NewManager(cfg, store, nil)
	if err := mgr.Start(context.Background()); err == nil {
		t.Fatal("expected error without stages")
	}

	mgr.ConfigureStages(newStubSet(nil).stageSet())
	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer mgr.Stop()
	if err := mgr.Start(context.Background()); err == nil {
		t.Fatal("expected error on second start")
	}
}

func TestManagerStatusReportsHealth(t *testing.T) {
	cfg := testConfig(t, 3)
	store := testsupport.MustOpenStore(t, cfg)
	testsupport.NewEdition(t, store, "Maria Callas", "Casta diva")

	set := newStubSet(nil)
	set.render.health = stage.Unhealthy("render", "ffmpeg not found on PATH")
	mgr := workflow.NewManager(cfg, store, nil)
	mgr.ConfigureStages(set.stageSet())

	status := mgr.Status(context.Background())
	if status.Running || status.Workers != 3 {
		t.Fatalf("unexpected status: %+v", status)
	}
	if status.QueueStats[queue.StatusPending] != 1 {
		t.Fatalf("expected one pending edition, got %v", status.QueueStats)
	}
	if len(status.StageHealth) != 5 || status.StageHealth["render"].Ready {
		t.Fatalf("unexpected stage health: %+v", status.StageHealth)
	}
}
