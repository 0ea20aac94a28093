package stageexec

import (
	"context"
	"errors"
	"testing"
	"time"

	"ariacut/internal/queue"
	"ariacut/internal/services"
	"ariacut/internal/testsupport"
)

type fakeHandler struct {
	prepareErr error
	executeErr error
	execute    func(context.Context, *queue.Edition) error
}

func (f *fakeHandler) Prepare(context.Context, *queue.Edition) error { return f.prepareErr }

func (f *fakeHandler) Execute(ctx context.Context, e *queue.Edition) error {
	if f.execute != nil {
		return f.execute(ctx, e)
	}
	return f.executeErr
}

func runOptions(t *testing.T, handler Handler) (Options, *queue.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	edition := testsupport.NewEdition(t, store, "Luciano Pavarotti", "Nessun dorma")
	return Options{
		Store:      store,
		Handler:    handler,
		StageName:  "cutting",
		Processing: queue.StatusCutting,
		Done:       queue.StatusCut,
		Edition:    edition,
	}, store
}

func reload(t *testing.T, store *queue.Store, id int64) *queue.Edition {
	t.Helper()
	e, err := store.GetByID(context.Background(), id)
	if err != nil || e == nil {
		t.Fatalf("GetByID: %v", err)
	}
	return e
}

func TestRunSuccess(t *testing.T) {
	var beats int
	opts, store := runOptions(t, &fakeHandler{})
	opts.Heartbeat = func(context.Context, int64) func() {
		beats++
		return func() {}
	}
	if err := Run(context.Background(), opts); err != nil {
		t.Fatalf("Run: %v", err)
	}
	got := reload(t, store, opts.Edition.ID)
	if got.Status != queue.StatusCut || got.LastHeartbeat != nil {
		t.Fatalf("unexpected edition state: status=%s heartbeat=%v", got.Status, got.LastHeartbeat)
	}
	if beats != 1 {
		t.Fatalf("heartbeat started %d times", beats)
	}
}

func TestRunKeepsStatusChosenByStage(t *testing.T) {
	opts, store := runOptions(t, &fakeHandler{execute: func(_ context.Context, e *queue.Edition) error {
		e.SetFailed(queue.StatusReview, queue.StatusCut, "needs a look")
		return nil
	}})
	if err := Run(context.Background(), opts); err != nil {
		t.Fatalf("Run: %v", err)
	}
	got := reload(t, store, opts.Edition.ID)
	if got.Status != queue.StatusReview || got.ResumeStatus != queue.StatusCut || got.ReviewReason != "needs a look" {
		t.Fatalf("stage decision overwritten: %+v", got)
	}
}

func TestRunClassifiesFailures(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want queue.Status
	}{
		{"validation", services.Wrap(services.ErrValidation, "cutting", "execute", "alignment not validated", nil), queue.StatusReview},
		{"external", services.Wrap(services.ErrExternalTool, "cutting", "execute", "ffmpeg exited 1", nil), queue.StatusFailed},
		{"plain", errors.New("boom"), queue.StatusFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, store := runOptions(t, &fakeHandler{executeErr: tt.err})
			if err := Run(context.Background(), opts); !errors.Is(err, tt.err) {
				t.Fatalf("Run error = %v", err)
			}
			got := reload(t, store, opts.Edition.ID)
			if got.Status != tt.want || got.ResumeStatus != queue.StatusAligned || got.ErrorMessage == "" {
				t.Fatalf("unexpected failure state: status=%s resume=%s msg=%q", got.Status, got.ResumeStatus, got.ErrorMessage)
			}
		})
	}
}

func TestRunPrepareFailure(t *testing.T) {
	opts, store := runOptions(t, &fakeHandler{prepareErr: services.Wrap(services.ErrConfiguration, "cutting", "prepare", "no store", nil)})
	if err := Run(context.Background(), opts); err == nil {
		t.Fatal("expected error")
	}
	if got := reload(t, store, opts.Edition.ID); got.Status != queue.StatusReview {
		t.Fatalf("expected review, got %s", got.Status)
	}
}

func TestRunTimeout(t *testing.T) {
	opts, store := runOptions(t, &fakeHandler{execute: func(ctx context.Context, _ *queue.Edition) error {
		<-ctx.Done()
		return ctx.Err()
	}})
	opts.Timeout = 20 * time.Millisecond
	err := Run(context.Background(), opts)
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected timeout error, got %v", err)
	}
	if got := reload(t, store, opts.Edition.ID); got.Status != queue.StatusFailed {
		t.Fatalf("expected failed, got %s", got.Status)
	}
}

func TestRunShutdownLeavesEditionInFlight(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	opts, store := runOptions(t, &fakeHandler{execute: func(context.Context, *queue.Edition) error {
		cancel()
		return context.Canceled
	}})
	if err := Run(ctx, opts); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if got := reload(t, store, opts.Edition.ID); got.Status != queue.StatusCutting {
		t.Fatalf("expected edition left in cutting, got %s", got.Status)
	}
}

func TestDeriveStageLabel(t *testing.T) {
	if got := DeriveStageLabel(queue.StatusTranscribing); got != "Transcribing" {
		t.Fatalf("DeriveStageLabel = %q", got)
	}
	if got := DeriveStageLabel(""); got != "" {
		t.Fatalf("expected empty label, got %q", got)
	}
}
