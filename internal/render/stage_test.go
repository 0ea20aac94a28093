package render

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ariacut/internal/alignment"
	"ariacut/internal/media/ffprobe"
	"ariacut/internal/queue"
	"ariacut/internal/services"
	"ariacut/internal/stage"
	"ariacut/internal/testsupport"
)

type fakeBurner struct {
	calls []string
	fail  map[string]bool
}

func (f *fakeBurner) BurnSubtitles(_ context.Context, _, assPath, dst string, _, _ int) error {
	lang := strings.TrimSuffix(filepath.Base(assPath), ".ass")
	f.calls = append(f.calls, lang)
	if f.fail[lang] {
		return errors.New("ffmpeg exited 1")
	}
	return os.WriteFile(dst, []byte("burned "+lang), 0o644)
}

const reindexedOverlay = `[
  {"index": 1, "start": "00:00:00,000", "end": "00:00:10,000", "text": "Calaf cannot sleep"}
]`

const translationEN = `[
  {"index": 1, "start": "00:00:00,000", "end": "00:00:05,000", "original": "Nessun dorma", "translation": "None shall sleep"}
]`

type fixture struct {
	stage   *Stage
	store   *queue.Store
	edition *queue.Edition
	burner  *fakeBurner
}

func newFixture(t *testing.T, langs ...string) fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithTargetLanguages(langs...))
	store := testsupport.MustOpenStore(t, cfg)
	edition := testsupport.NewEdition(t, store, "Luciano Pavarotti", "Nessun dorma")
	edition.CutVideoPath = filepath.Join(cfg.EditionDir(edition.ID), "cut.mp4")
	testsupport.WriteFile(t, edition.CutVideoPath, 512)

	ctx := context.Background()
	raw, err := stage.EncodeAlignment([]alignment.Segment{
		{Index: 1, Start: 0, End: 5, Text: "Nessun dorma", FinalText: "Nessun dorma", Flag: alignment.FlagHigh, Confidence: 1},
	})
	if err != nil {
		t.Fatalf("EncodeAlignment: %v", err)
	}
	rec, err := store.SaveAlignment(ctx, queue.AlignmentRecord{
		EditionID: edition.ID, SegmentsJSON: raw, Route: "A", MeanConfidence: 1, Validated: true,
	})
	if err != nil {
		t.Fatalf("SaveAlignment: %v", err)
	}
	if err := store.SaveCroppedAlignment(ctx, rec.ID, raw); err != nil {
		t.Fatalf("SaveCroppedAlignment: %v", err)
	}
	if err := store.SaveOverlay(ctx, edition.ID, "en", reindexedOverlay); err != nil {
		t.Fatalf("SaveOverlay: %v", err)
	}
	overlays, err := store.Overlays(ctx, edition.ID)
	if err != nil || len(overlays) != 1 {
		t.Fatalf("Overlays: %v", err)
	}
	if err := store.SaveReindexedOverlay(ctx, overlays[0].ID, reindexedOverlay); err != nil {
		t.Fatalf("SaveReindexedOverlay: %v", err)
	}
	if err := store.SaveTranslation(ctx, edition.ID, "en", translationEN); err != nil {
		t.Fatalf("SaveTranslation: %v", err)
	}

	burner := &fakeBurner{fail: map[string]bool{}}
	stg := NewStageWithBurner(cfg, store, nil, burner)
	stg.probe = func(context.Context, string, string) (ffprobe.Result, error) {
		return ffprobe.Result{Streams: []ffprobe.Stream{
			{CodecType: "video", Width: 1080, Height: 1920},
			{CodecType: "audio"},
		}}, nil
	}
	return fixture{stage: stg, store: store, edition: edition, burner: burner}
}

func rendersByLanguage(t *testing.T, store *queue.Store, id int64) map[string]*queue.RenderRecord {
	t.Helper()
	records, err := store.Renders(context.Background(), id)
	if err != nil {
		t.Fatalf("Renders: %v", err)
	}
	out := make(map[string]*queue.RenderRecord, len(records))
	for _, rec := range records {
		out[rec.Language] = rec
	}
	return out
}

func TestExecuteRendersEachLanguage(t *testing.T) {
	f := newFixture(t, "en", "it")
	ctx := context.Background()

	if err := f.stage.Execute(ctx, f.edition); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if strings.Join(f.burner.calls, ",") != "en,it" {
		t.Fatalf("unexpected burn order: %v", f.burner.calls)
	}

	renders := rendersByLanguage(t, f.store, f.edition.ID)
	for _, lang := range []string{"en", "it"} {
		rec := renders[lang]
		if rec == nil || rec.Status != queue.RenderCompleted {
			t.Fatalf("%s render not completed: %+v", lang, rec)
		}
		if !strings.Contains(rec.Path, "-luciano-pavarotti-nessun-dorma") {
			t.Fatalf("%s export path lacks slug: %s", lang, rec.Path)
		}
		data, err := os.ReadFile(rec.Path)
		if err != nil {
			t.Fatalf("read export: %v", err)
		}
		if string(data) != "burned "+lang || rec.SizeBytes != int64(len(data)) {
			t.Fatalf("%s export mismatch: %q size=%d", lang, data, rec.SizeBytes)
		}
	}

	ass, err := os.ReadFile(filepath.Join(filepath.Dir(f.edition.CutVideoPath), "subtitles", "en.ass"))
	if err != nil {
		t.Fatalf("read ass: %v", err)
	}
	for _, want := range []string{"None shall sleep", "Nessun dorma", "Calaf cannot sleep"} {
		if !strings.Contains(string(ass), want) {
			t.Fatalf("ass missing %q:\n%s", want, ass)
		}
	}
}

func TestExecuteRecordsMissingTranslation(t *testing.T) {
	f := newFixture(t, "en", "pt")

	if err := f.stage.Execute(context.Background(), f.edition); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	renders := rendersByLanguage(t, f.store, f.edition.ID)
	if renders["en"] == nil || renders["en"].Status != queue.RenderCompleted {
		t.Fatalf("expected en completed, got %+v", renders["en"])
	}
	pt := renders["pt"]
	if pt == nil || pt.Status != queue.RenderFailed || !strings.Contains(pt.ErrorMessage, "translation missing") {
		t.Fatalf("expected pt failure, got %+v", pt)
	}
	if strings.Join(f.burner.calls, ",") != "en" {
		t.Fatalf("pt should not reach ffmpeg: %v", f.burner.calls)
	}
}

func TestExecuteFailsWhenEveryRenderFails(t *testing.T) {
	f := newFixture(t, "en")
	f.burner.fail["en"] = true

	err := f.stage.Execute(context.Background(), f.edition)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	renders := rendersByLanguage(t, f.store, f.edition.ID)
	if renders["en"] == nil || renders["en"].Status != queue.RenderFailed {
		t.Fatalf("expected failed render row, got %+v", renders["en"])
	}
}

func TestExecuteInstrumentalUsesOverlaysOnly(t *testing.T) {
	f := newFixture(t, "pt")
	f.edition.Instrumental = true

	if err := f.stage.Execute(context.Background(), f.edition); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	ass, err := os.ReadFile(filepath.Join(filepath.Dir(f.edition.CutVideoPath), "subtitles", "pt.ass"))
	if err != nil {
		t.Fatalf("read ass: %v", err)
	}
	if strings.Contains(string(ass), "Nessun dorma") {
		t.Fatalf("instrumental render should not carry lyrics:\n%s", ass)
	}
	if !strings.Contains(string(ass), "Calaf cannot sleep") {
		t.Fatalf("expected fallback overlay in pt render:\n%s", ass)
	}
}

func TestExecuteRequiresCutClip(t *testing.T) {
	f := newFixture(t, "en")
	f.edition.CutVideoPath = ""
	if err := f.stage.Execute(context.Background(), f.edition); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestExecuteRejectsClipWithoutVideo(t *testing.T) {
	f := newFixture(t, "en")
	f.stage.probe = func(context.Context, string, string) (ffprobe.Result, error) {
		return ffprobe.Result{Streams: []ffprobe.Stream{{CodecType: "audio"}}}, nil
	}
	if err := f.stage.Execute(context.Background(), f.edition); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(f.burner.calls) != 0 {
		t.Fatalf("burner should not run, got %v", f.burner.calls)
	}
}

func TestExecuteToleratesProbeFailure(t *testing.T) {
	f := newFixture(t, "en")
	f.stage.probe = func(context.Context, string, string) (ffprobe.Result, error) {
		return ffprobe.Result{}, errors.New("ffprobe missing")
	}
	if err := f.stage.Execute(context.Background(), f.edition); err != nil {
		t.Fatalf("Execute: %v", err)
	}
}
