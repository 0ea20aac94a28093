package workflow

import "ariacut/internal/queue"

// ConfigureStages registers the concrete stage handlers the workflow will run.
// Stages left nil are skipped; editions wait in that stage's start status.
func (m *Manager) ConfigureStages(set StageSet) {
	candidates := []pipelineStage{
		{name: "download", handler: set.Downloader, startStatus: queue.StatusPending, processingStatus: queue.StatusDownloading, doneStatus: queue.StatusDownloaded},
		{name: "transcribe", handler: set.Transcriber, startStatus: queue.StatusDownloaded, processingStatus: queue.StatusTranscribing, doneStatus: queue.StatusAligned},
		{name: "cut", handler: set.Cutter, startStatus: queue.StatusAligned, processingStatus: queue.StatusCutting, doneStatus: queue.StatusCut},
		{name: "translate", handler: set.Translator, startStatus: queue.StatusCut, processingStatus: queue.StatusTranslating, doneStatus: queue.StatusTranslated},
		{name: "render", handler: set.Renderer, startStatus: queue.StatusTranslated, processingStatus: queue.StatusRendering, doneStatus: queue.StatusCompleted},
	}

	stages := make([]pipelineStage, 0, len(candidates))
	for _, stg := range candidates {
		if stg.handler != nil {
			stages = append(stages, stg)
		}
	}

	m.mu.Lock()
	m.stages = stages
	m.mu.Unlock()
}

// claimOrder lists stages downstream first.
func (m *Manager) claimOrder() []pipelineStage {
	m.mu.RLock()
	defer m.mu.RUnlock()
	order := make([]pipelineStage, len(m.stages))
	for i, stg := range m.stages {
		order[len(m.stages)-1-i] = stg
	}
	return order
}
