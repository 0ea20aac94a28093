package workflow

import (
	"ariacut/internal/queue"
	"ariacut/internal/stage"
)

// StageSet bundles the concrete workflow handlers the manager orchestrates.
type StageSet struct {
	Downloader  stage.Handler
	Transcriber stage.Handler
	Cutter      stage.Handler
	Translator  stage.Handler
	Renderer    stage.Handler
}

type pipelineStage struct {
	name             string
	handler          stage.Handler
	startStatus      queue.Status
	processingStatus queue.Status
	doneStatus       queue.Status
}
