package workflow

import (
	"context"
	"sort"

	"ariacut/internal/logging"
	"ariacut/internal/queue"
	"ariacut/internal/stage"
)

// ActiveEdition names an edition a worker is currently processing.
type ActiveEdition struct {
	EditionID int64
	Stage     string
}

// StatusSummary represents lightweight workflow diagnostics.
type StatusSummary struct {
	Running     bool
	Workers     int
	LastError   string
	LastEdition *queue.Edition
	Active      []ActiveEdition
	QueueStats  map[queue.Status]int
	StageHealth map[string]stage.Health
}

// Status returns the latest workflow information.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	m.mu.RLock()
	summary := StatusSummary{Running: m.running, Workers: m.workers}
	if m.lastErr != nil {
		summary.LastError = m.lastErr.Error()
	}
	if m.lastEdition != nil {
		cp := *m.lastEdition
		summary.LastEdition = &cp
	}
	for id, name := range m.active {
		summary.Active = append(summary.Active, ActiveEdition{EditionID: id, Stage: name})
	}
	stages := append([]pipelineStage(nil), m.stages...)
	m.mu.RUnlock()

	sort.Slice(summary.Active, func(i, j int) bool { return summary.Active[i].EditionID < summary.Active[j].EditionID })

	stats, err := m.store.Stats(ctx)
	if err != nil {
		m.logger.Warn("failed to read queue stats", logging.Error(err))
	}
	summary.QueueStats = stats

	summary.StageHealth = make(map[string]stage.Health, len(stages))
	for _, stg := range stages {
		summary.StageHealth[stg.name] = stg.handler.HealthCheck(ctx)
	}
	return summary
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) setLastEdition(e *queue.Edition) {
	m.mu.Lock()
	if e != nil {
		cp := *e
		m.lastEdition = &cp
	} else {
		m.lastEdition = nil
	}
	m.mu.Unlock()
}

func (m *Manager) markActive(id int64, stageName string) {
	m.mu.Lock()
	m.active[id] = stageName
	m.mu.Unlock()
}

func (m *Manager) clearActive(id int64) {
	m.mu.Lock()
	delete(m.active, id)
	m.mu.Unlock()
}
