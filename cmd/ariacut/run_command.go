package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"ariacut/internal/config"
	"ariacut/internal/cutting"
	"ariacut/internal/download"
	"ariacut/internal/logging"
	"ariacut/internal/lyrics"
	"ariacut/internal/queue"
	"ariacut/internal/render"
	"ariacut/internal/services/llm"
	"ariacut/internal/transcribe"
	"ariacut/internal/translate"
	"ariacut/internal/workflow"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var skipPreflight bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process queued editions until interrupted",
		Long: "Run the edition pipeline in the foreground. Workers claim editions from the\n" +
			"job store and move them through download, transcription, cutting, translation\n" +
			"and rendering. Interrupt with Ctrl-C to stop; in-flight editions are marked\n" +
			"failed and can be resumed with 'ariacut edition retry'.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd.Context(), ctx, skipPreflight)
		},
	}
	cmd.Flags().BoolVar(&skipPreflight, "skip-preflight", false, "Start without checking binaries, directories and the LLM endpoint")
	return cmd
}

func runPipeline(cmdCtx context.Context, ctx *commandContext, skipPreflight bool) error {
	if ctx == nil {
		return errors.New("command context is required")
	}
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	lock := flock.New(cfg.LockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("another ariacut runner is already using %s", cfg.Paths.StorageDir)
	}
	defer func() { _ = lock.Unlock() }()

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	store, err := queue.Open(cfg)
	if err != nil {
		logger.Error("open job store", logging.Error(err))
		return err
	}
	defer store.Close()

	manager := workflow.NewManager(cfg, store, logger)
	manager.ConfigureStages(buildStages(cfg, store, logger))

	if !skipPreflight {
		if err := manager.Preflight(signalCtx); err != nil {
			return err
		}
	}
	if err := manager.Start(signalCtx); err != nil {
		return fmt.Errorf("start workflow: %w", err)
	}
	logger.Info("ariacut runner started",
		logging.String("store", store.Path()),
		logging.Int("workers", cfg.Workflow.Workers),
	)

	<-signalCtx.Done()
	logger.Info("ariacut runner shutting down")
	manager.Stop()
	return nil
}

func buildStages(cfg *config.Config, store *queue.Store, logger *slog.Logger) workflow.StageSet {
	textClient := llm.FromSettings(cfg.GetLLM())
	audioClient := textClient
	if cfg.TranscriptionLLM() != cfg.GetLLM() {
		audioClient = llm.FromSettings(cfg.TranscriptionLLM())
	}

	finder := lyrics.NewChain(
		logging.NewComponentLogger(logger, "lyrics"),
		lyrics.NewBankSource(store),
		lyrics.NewLLMSource(textClient),
	)
	provider := transcribe.NewLLMProvider(audioClient, logging.NewComponentLogger(logger, "transcriber"))
	translator := translate.New(textClient, logging.NewComponentLogger(logger, "translator"))

	return workflow.StageSet{
		Downloader:  download.NewDownloader(cfg, store, logger),
		Transcriber: transcribe.NewStage(cfg, store, logger, finder, provider),
		Cutter:      cutting.NewStage(cfg, store, logger),
		Translator:  translate.NewStage(cfg, store, logger, translator),
		Renderer:    render.NewStage(cfg, store, logger),
	}
}
