package domain

import "time"

// Media represents a stored binary asset.
type Media struct {
	ID         string
	StorageKey string
	MIME       string
	Bytes      int64
	Width      int
	Height     int
	Checksum   string
	CreatedAt  time.Time
}

// MediaBinding attaches a media asset to an entity field.
type MediaBinding struct {
	EntityID string
	Field    string
	MediaID  string
	AltText  string
}

// Entity is a generated content entity as stored by the entity adapters.
type Entity struct {
	ID          string
	ContentType string
	Fields      map[string]any
	CreatedAt   time.Time
}
