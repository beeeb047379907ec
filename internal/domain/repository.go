package domain

import "context"

// KeyValueStore persists whole documents by key. Missing keys return
// ErrNotFound from Get.
type KeyValueStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	// CompareAndSwap stores value only while the document under key still
	// equals old. It reports false when the document changed or is gone.
	CompareAndSwap(ctx context.Context, key string, old, value []byte) (bool, error)
	Delete(ctx context.Context, key string) error
}

// EntityStore creates generated content entities.
type EntityStore interface {
	Create(ctx context.Context, contentType string, fields map[string]any) (string, error)
	Exists(ctx context.Context, id string) (bool, error)
}

// TemplateSource yields content specifications.
type TemplateSource interface {
	TemplatesInOrder(ctx context.Context) ([]ContentSpecification, error)
	Template(ctx context.Context, id string) (*ContentSpecification, error)
}

// AssetStore persists binary assets and binds them to entity fields.
type AssetStore interface {
	Store(ctx context.Context, data []byte, mimeType string) (string, error)
	Bind(ctx context.Context, entityID, field, assetID, altText string) error
}

// MediaRepository records stored media and entity bindings.
type MediaRepository interface {
	InsertMedia(ctx context.Context, media Media) error
	BindMedia(ctx context.Context, binding MediaBinding) error
}

// Locker provides an advisory lock shared by every worker touching the
// same persistence backend.
type Locker interface {
	TryLock(ctx context.Context, name string) (unlock func(), err error)
}
