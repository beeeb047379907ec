package domain

import "time"

// QueueItemStatus enumerates image queue item states.
type QueueItemStatus string

const (
	QueueItemPending  QueueItemStatus = "pending"
	QueueItemComplete QueueItemStatus = "complete"
	QueueItemFailed   QueueItemStatus = "failed"
)

// ImageQueueItem is one request for a generated image.
type ImageQueueItem struct {
	ID             string             `json:"id"`
	ContentSpecID  string             `json:"content_spec_id"`
	ImageSpec      ImageSpecification `json:"image_spec"`
	TargetEntityID string             `json:"target_entity_id"`
	TargetField    string             `json:"target_field"`
	Status         QueueItemStatus    `json:"status"`
	MediaID        string             `json:"media_id,omitempty"`
	Error          string             `json:"error,omitempty"`
	Attempts       int                `json:"attempts"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// DuplicateTarget records where an aliased request must be bound.
type DuplicateTarget struct {
	ContentSpecID  string `json:"content_spec_id"`
	TargetEntityID string `json:"target_entity_id"`
	TargetField    string `json:"target_field"`
}

// ImageQueue is persisted as a single document.
type ImageQueue struct {
	Items []ImageQueueItem `json:"items"`
	// Duplicates maps alias id -> original item id. Exactly one level deep.
	Duplicates       map[string]string          `json:"duplicates"`
	DuplicateTargets map[string]DuplicateTarget `json:"duplicate_targets"`
}

// NewImageQueue returns an empty queue with initialised maps.
func NewImageQueue() *ImageQueue {
	return &ImageQueue{
		Duplicates:       map[string]string{},
		DuplicateTargets: map[string]DuplicateTarget{},
	}
}

// Find returns the item with the given id.
func (q *ImageQueue) Find(id string) (*ImageQueueItem, bool) {
	for i := range q.Items {
		if q.Items[i].ID == id {
			return &q.Items[i], true
		}
	}
	return nil, false
}

// IDsWithStatus lists item ids in insertion order.
func (q *ImageQueue) IDsWithStatus(status QueueItemStatus) []string {
	var ids []string
	for _, item := range q.Items {
		if item.Status == status {
			ids = append(ids, item.ID)
		}
	}
	return ids
}

// QueueStatistics counts queue items by status.
type QueueStatistics struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	Complete   int `json:"complete"`
	Failed     int `json:"failed"`
	Duplicates int `json:"duplicates"`
}

// ImageBatchResult aggregates one image batch run.
type ImageBatchResult struct {
	Succeeded          int      `json:"succeeded"`
	Failed             int      `json:"failed"`
	FailedIDs          []string `json:"failed_ids"`
	DuplicatesResolved int      `json:"duplicates_resolved"`
	ElapsedMS          int64    `json:"elapsed_ms"`
	Interrupted        bool     `json:"interrupted,omitempty"`
}
