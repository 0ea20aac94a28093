package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of an edition.
type Status string

const (
	StatusPending      Status = "pending"
	StatusDownloading  Status = "downloading"
	StatusDownloaded   Status = "downloaded"
	StatusTranscribing Status = "transcribing"
	StatusAligned      Status = "aligned"
	StatusCutting      Status = "cutting"
	StatusCut          Status = "cut"
	StatusTranslating  Status = "translating"
	StatusTranslated   Status = "translated"
	StatusRendering    Status = "rendering"
	StatusCompleted    Status = "completed"
	StatusReview       Status = "review"
	StatusFailed       Status = "failed"
)

// RunnerStopReason is the error message set when editions are failed due to runner shutdown.
const RunnerStopReason = "Runner stopped"

var allStatuses = []Status{
	StatusPending,
	StatusDownloading,
	StatusDownloaded,
	StatusTranscribing,
	StatusAligned,
	StatusCutting,
	StatusCut,
	StatusTranslating,
	StatusTranslated,
	StatusRendering,
	StatusCompleted,
	StatusReview,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var processingStatuses = map[Status]struct{}{
	StatusDownloading:  {},
	StatusTranscribing: {},
	StatusCutting:      {},
	StatusTranslating:  {},
	StatusRendering:    {},
}

type statusTransition struct {
	from Status
	to   Status
}

// stageRollbackTransitions return an in-flight edition to the input status
// of the stage it was running.
var stageRollbackTransitions = []statusTransition{
	{from: StatusDownloading, to: StatusPending},
	{from: StatusTranscribing, to: StatusDownloaded},
	{from: StatusCutting, to: StatusAligned},
	{from: StatusTranslating, to: StatusCut},
	{from: StatusRendering, to: StatusTranslated},
}

// RollbackStatus returns the status an interrupted processing status resumes from.
func RollbackStatus(status Status) (Status, bool) {
	for _, tr := range stageRollbackTransitions {
		if tr.from == status {
			return tr.to, true
		}
	}
	return "", false
}

// DatabaseHealth captures diagnostic information about the edition database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	SchemaVersion    int
	TableExists      bool
	MissingColumns   []string
	IntegrityCheck   bool
	TotalEditions    int
	TotalLyrics      int
	Error            string
}

// HealthSummary describes aggregated counts per key lifecycle states.
type HealthSummary struct {
	Total      int
	Pending    int
	Processing int
	Review     int
	Failed     int
	Completed  int
}

// Edition is one short-form cut of an opera recording moving through the pipeline.
type Edition struct {
	ID           int64
	SourceURL    string
	VideoID      string
	Artist       string
	Title        string
	Composer     string
	Opera        string
	Category     string
	Language     string
	Instrumental bool

	Status       Status
	ResumeStatus Status
	ErrorMessage string
	ReviewReason string

	DurationSeconds float64
	VideoPath       string
	AudioPath       string
	CutVideoPath    string
	ItemLogPath     string

	// WindowStartOverride and WindowEndOverride are operator-chosen cut bounds.
	WindowStartOverride *float64
	WindowEndOverride   *float64
	WindowStart         float64
	WindowEnd           float64

	AlignmentRoute      string
	AlignmentConfidence float64

	ProgressStage   string
	ProgressPercent float64
	ProgressMessage string
	LastHeartbeat   *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewEditionRequest carries the song metadata needed to enqueue an edition.
type NewEditionRequest struct {
	SourceURL    string
	VideoID      string
	Artist       string
	Title        string
	Composer     string
	Opera        string
	Category     string
	Language     string
	Instrumental bool
}

// LyricRecord is an entry of the reusable lyric bank.
type LyricRecord struct {
	ID          int64
	Title       string
	Artist      string
	Composer    string
	Opera       string
	Language    string
	Text        string
	Source      string
	ValidatedBy string
	TimesUsed   int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// AlignmentRecord stores one alignment result of an edition. Segment lists
// are JSON documents owned by the alignment package.
type AlignmentRecord struct {
	ID             int64
	EditionID      int64
	LyricID        int64
	SegmentsJSON   string
	CroppedJSON    string
	MeanConfidence float64
	Route          string
	Merged         bool
	Validated      bool
	ValidatedBy    string
	CreatedAt      time.Time
}

// OverlayRecord stores the editorial overlay captions of one language.
type OverlayRecord struct {
	ID            int64
	EditionID     int64
	Language      string
	OriginalJSON  string
	ReindexedJSON string
	CreatedAt     time.Time
}

// TranslationRecord stores the translated lyric segments of one language.
type TranslationRecord struct {
	ID           int64
	EditionID    int64
	Language     string
	SegmentsJSON string
	CreatedAt    time.Time
}

// RenderStatus is the outcome of one language render.
type RenderStatus string

const (
	RenderCompleted RenderStatus = "completed"
	RenderFailed    RenderStatus = "failed"
)

// RenderRecord stores one rendered video.
type RenderRecord struct {
	ID           int64
	EditionID    int64
	Language     string
	Kind         string
	Path         string
	SizeBytes    int64
	Status       RenderStatus
	ErrorMessage string
	CreatedAt    time.Time
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsProcessing returns true when the status reflects an in-flight operation.
func (e Edition) IsProcessing() bool {
	_, ok := processingStatuses[e.Status]
	return ok
}

// IsProcessingStatus reports whether a status reflects an in-flight operation.
func IsProcessingStatus(status Status) bool {
	_, ok := processingStatuses[status]
	return ok
}

// Label renders "Artist - Title" for logs and tables.
func (e Edition) Label() string {
	artist, title := strings.TrimSpace(e.Artist), strings.TrimSpace(e.Title)
	switch {
	case artist == "":
		return title
	case title == "":
		return artist
	default:
		return artist + " - " + title
	}
}

// InitProgress resets progress fields for a new stage.
func (e *Edition) InitProgress(stage, message string) {
	e.ProgressStage = stage
	e.ProgressMessage = message
	e.ProgressPercent = 0
	e.ErrorMessage = ""
}

// SetProgress updates all three progress fields atomically.
func (e *Edition) SetProgress(stage, message string, percent float64) {
	e.ProgressStage = stage
	e.ProgressMessage = message
	e.ProgressPercent = percent
}

// SetProgressComplete sets progress to 100% with the given stage and message.
func (e *Edition) SetProgressComplete(stage, message string) {
	e.SetProgress(stage, message, 100)
}

// SetFailed moves the edition to a terminal failure status. resume is the
// status Retry returns it to.
func (e *Edition) SetFailed(status, resume Status, message string) {
	e.Status = status
	e.ResumeStatus = resume
	e.ErrorMessage = message
	e.ProgressPercent = 0
	e.ProgressMessage = message
	e.LastHeartbeat = nil
	if status == StatusReview {
		e.ReviewReason = message
		e.ProgressStage = "Needs review"
		return
	}
	e.ProgressStage = "Failed"
}
