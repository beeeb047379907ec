package domain

import "time"

// GenerationStatus enumerates the pipeline lifecycle states.
type GenerationStatus string

const (
	StatusIdle               GenerationStatus = "idle"
	StatusGeneratingIdentity GenerationStatus = "generating_identity"
	StatusGeneratingContent  GenerationStatus = "generating_content"
	StatusGeneratingImages   GenerationStatus = "generating_images"
	StatusPaused             GenerationStatus = "paused"
	StatusComplete           GenerationStatus = "complete"
	StatusError              GenerationStatus = "error"
)

var validStatuses = map[GenerationStatus]struct{}{
	StatusIdle:               {},
	StatusGeneratingIdentity: {},
	StatusGeneratingContent:  {},
	StatusGeneratingImages:   {},
	StatusPaused:             {},
	StatusComplete:           {},
	StatusError:              {},
}

// ParseGenerationStatus validates free-form input against the known statuses.
func ParseGenerationStatus(s string) (GenerationStatus, error) {
	status := GenerationStatus(s)
	if !status.Valid() {
		return "", ErrInvalidStatus
	}
	return status, nil
}

// Valid reports whether s is one of the seven defined statuses.
func (s GenerationStatus) Valid() bool {
	_, ok := validStatuses[s]
	return ok
}

// InProgress reports whether s is one of the generating_* statuses.
func (s GenerationStatus) InProgress() bool {
	switch s {
	case StatusGeneratingIdentity, StatusGeneratingContent, StatusGeneratingImages:
		return true
	default:
		return false
	}
}

// Active reports whether s belongs to a run that has neither finished nor
// been reset: any generating_* status or paused.
func (s GenerationStatus) Active() bool {
	return s.InProgress() || s == StatusPaused
}

// Terminal reports whether s ends a run.
func (s GenerationStatus) Terminal() bool {
	return s == StatusComplete || s == StatusError
}

// GenerationState is the persisted checkpoint of a generation run.
type GenerationState struct {
	Status       GenerationStatus `json:"status"`
	Identity     Identity         `json:"identity"`
	CurrentStep  int              `json:"current_step"`
	TotalSteps   int              `json:"total_steps"`
	CurrentPhase string           `json:"current_phase"`
	LastError    string           `json:"last_error,omitempty"`
	StartedAt    *time.Time       `json:"started_at,omitempty"`
	CompletedAt  *time.Time       `json:"completed_at,omitempty"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// IdleState returns the default state reported when nothing is persisted.
func IdleState() GenerationState {
	return GenerationState{Status: StatusIdle}
}

// StepPlan holds the configured step counts of each phase. Resume logic
// thresholds CurrentStep against these to recover the pre-pause phase.
type StepPlan struct {
	Identity int `json:"identity"`
	Content  int `json:"content"`
	Images   int `json:"images"`
}

// Total returns the sum of all phase steps.
func (p StepPlan) Total() int {
	return p.Identity + p.Content + p.Images
}

// PhaseFor maps an absolute step onto the in-progress status owning it.
func (p StepPlan) PhaseFor(step int) GenerationStatus {
	switch {
	case step < p.Identity:
		return StatusGeneratingIdentity
	case step < p.Identity+p.Content:
		return StatusGeneratingContent
	default:
		return StatusGeneratingImages
	}
}

// Progress is the per-item snapshot reported to callers.
type Progress struct {
	Phase  GenerationStatus `json:"phase"`
	Step   int              `json:"step"`
	Total  int              `json:"total"`
	ItemID string           `json:"item_id"`
	Failed bool             `json:"failed,omitempty"`
}

// ProgressFunc receives a snapshot after every processed item.
type ProgressFunc func(Progress)
