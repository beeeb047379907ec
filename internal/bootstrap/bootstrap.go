// Package bootstrap assembles the generation pipeline from configuration so
// the API, the worker and the CLI share one wiring.
package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"

	"sitegen/internal/adapter/repo"
	"sitegen/internal/adapter/sqlite"
	"sitegen/internal/assets"
	"sitegen/internal/domain"
	"sitegen/internal/domain/jsoncfg"
	"sitegen/internal/generation"
	"sitegen/internal/infra"
	"sitegen/internal/infra/credentials"
	imageprovider "sitegen/internal/providers/image"
	"sitegen/internal/providers/genai"
	"sitegen/internal/providers/qwen"
	textprovider "sitegen/internal/providers/text"
	"sitegen/internal/ratelimit"
	"sitegen/internal/storage"
	"sitegen/internal/templates"
)

// Backend bundles the persistence ports of one database.
type Backend struct {
	KV       domain.KeyValueStore
	Entities domain.EntityStore
	Media    domain.MediaRepository
	Locker   domain.Locker
	Ping     func(ctx context.Context) error
	// Counts reports stored entities per content type.
	Counts func(ctx context.Context) (map[string]int, error)
	Lookup func(ctx context.Context, id string) (*domain.Entity, error)
	Close  func()
}

// OpenBackend connects to Postgres when DATABASE_URL is set and to the
// local SQLite file otherwise.
func OpenBackend(ctx context.Context, cfg *infra.Config, logger infra.Logger) (*Backend, error) {
	if cfg.UsesPostgres() {
		pool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			return nil, err
		}
		runner := infra.NewSQLRunner(pool, logger)
		if err := repo.EnsureSchema(ctx, runner); err != nil {
			pool.Close()
			return nil, err
		}
		entities := repo.NewEntityRepository(runner)
		return &Backend{
			KV:       repo.NewKVRepository(runner),
			Entities: entities,
			Media:    repo.NewMediaRepository(runner),
			Locker:   repo.NewAdvisoryLocker(pool, logger),
			Ping:     pool.Ping,
			Counts:   entities.CountByType,
			Lookup:   entities.Entity,
			Close:    pool.Close,
		}, nil
	}

	store, err := sqlite.Open(ctx, cfg.SQLitePath, &logger)
	if err != nil {
		return nil, err
	}
	return &Backend{
		KV:       store,
		Entities: store,
		Media:    store,
		Locker:   store,
		Ping:     store.Ping,
		Counts:   store.CountByType,
		Lookup:   store.Entity,
		Close:    func() { _ = store.Close() },
	}, nil
}

// Components is the assembled pipeline.
type Components struct {
	Config      *infra.Config
	Backend     *Backend
	Service     *generation.Service
	Credentials *credentials.Store
	Files       *storage.FileStore
	Templates   *templates.Source
	Plan        domain.StepPlan
}

// Close releases the database.
func (c *Components) Close() {
	if c.Backend != nil && c.Backend.Close != nil {
		c.Backend.Close()
	}
}

// DefaultIdentity loads the identity file named by IDENTITY_PATH.
func (c *Components) DefaultIdentity(ctx context.Context) (domain.Identity, error) {
	if c.Config.IdentityPath == "" {
		return domain.Identity{}, fmt.Errorf("%w: IDENTITY_PATH is not set", domain.ErrNotFound)
	}
	return jsoncfg.LoadIdentityFile(c.Config.IdentityPath)
}

// Build opens the backend and wires the generation service.
func Build(ctx context.Context, cfg *infra.Config, logger infra.Logger) (*Components, error) {
	backend, err := OpenBackend(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	c := &Components{Config: cfg, Backend: backend, Credentials: credentials.NewStore(backend.KV)}

	if err := c.build(ctx, logger); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Components) build(ctx context.Context, logger infra.Logger) error {
	cfg := c.Config

	source, err := templates.LoadDir(cfg.TemplatesPath)
	if err != nil {
		return err
	}
	c.Templates = source

	storagePath := cfg.StoragePath
	if !filepath.IsAbs(storagePath) {
		if abs, err := filepath.Abs(storagePath); err == nil {
			storagePath = abs
		}
	}
	files, err := storage.NewFileStore(storagePath)
	if err != nil {
		return fmt.Errorf("configure storage: %w", err)
	}
	c.Files = files

	limits := ratelimit.NewRegistry(cfg.RateLimits)
	httpClient := &http.Client{Timeout: cfg.OutboundTimeout}

	text, images, err := c.providers(ctx, httpClient, logger)
	if err != nil {
		return err
	}
	text = textprovider.NewLimited(text, limits.For(ratelimit.ServiceTextGeneration))
	images = imageprovider.NewLimited(images, limits.For(ratelimit.ServiceImageGeneration))

	c.Plan = domain.StepPlan{
		Identity: cfg.Pipeline.IdentitySteps,
		Content:  cfg.Pipeline.ContentSteps,
		Images:   cfg.Pipeline.ImageSteps,
	}
	if c.Plan.Content <= 0 {
		c.Plan.Content = source.Len()
	}

	state := generation.NewStateManager(c.Backend.KV, c.Plan, &logger)
	collector := generation.NewImageCollector(c.Backend.KV, &logger)
	model := cfg.GeminiModel
	switch cfg.TextProvider {
	case "openai":
		model = cfg.OpenAIModel
	case "static":
		model = ""
	}
	content := generation.NewContentOrchestrator(source, text, c.Backend.Entities, collector, state, generation.ContentOptions{
		Model:       model,
		MaxAttempts: cfg.Pipeline.ContentMaxAttempts,
		RetryBase:   cfg.Pipeline.ContentRetryBase,
		ItemDelay:   cfg.Pipeline.ContentItemDelay,
	}, &logger)
	library := assets.NewLibrary(files, c.Backend.Media, &logger)
	processor := generation.NewImageProcessor(collector, images, library, state, generation.ImageOptions{
		ItemDelay: cfg.Pipeline.ImageItemDelay,
	}, &logger)

	c.Service = generation.NewService(state, content, collector, processor, c.Backend.Locker, &logger)

	logger.Info().
		Int("templates", source.Len()).
		Int("template_images", source.ImageCount()).
		Int("total_steps", c.Plan.Total()).
		Str("text_provider", cfg.TextProvider).
		Str("image_provider", cfg.ImageProvider).
		Bool("postgres", cfg.UsesPostgres()).
		Msg("pipeline configured")
	return nil
}

// providers builds the configured text and image backends. API keys come
// from the environment first and the credentials store second.
func (c *Components) providers(ctx context.Context, httpClient *http.Client, logger infra.Logger) (textprovider.Generator, imageprovider.Generator, error) {
	cfg := c.Config

	geminiKey, err := c.Credentials.Resolve(ctx, credentials.ProviderGemini, cfg.GeminiAPIKey)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to load gemini api key from store")
	}
	gemini, err := genai.NewClient(genai.Options{
		APIKey:     geminiKey,
		BaseURL:    cfg.GeminiBaseURL,
		Model:      cfg.GeminiModel,
		ImageModel: cfg.GeminiImage,
		HTTPClient: httpClient,
		Logger:     &logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("configure gemini client: %w", err)
	}
	if !gemini.HasCredentials() {
		logger.Warn().Str("model", gemini.Model()).Msg("gemini api key missing, using synthetic image generation")
	}

	var text textprovider.Generator
	switch cfg.TextProvider {
	case "openai":
		openAIKey, err := c.Credentials.Resolve(ctx, credentials.ProviderOpenAI, cfg.OpenAIAPIKey)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to load openai api key from store")
		}
		text, err = textprovider.NewOpenAIGenerator(textprovider.OpenAIOptions{
			APIKey:       openAIKey,
			Model:        cfg.OpenAIModel,
			BaseURL:      cfg.OpenAIBaseURL,
			Organization: cfg.OpenAIOrg,
			HTTPClient:   httpClient,
			OnWarning: func(reason, detail string) {
				logger.Warn().Str("reason", reason).Str("detail", detail).Msg("openai generator")
			},
		})
		if err != nil {
			return nil, nil, fmt.Errorf("configure openai: %w", err)
		}
	case "static":
		text = textprovider.NewStaticGenerator()
	default:
		text = textprovider.NewGeminiGenerator(gemini)
	}

	var images imageprovider.Generator = imageprovider.NewGeminiGenerator(gemini)
	if cfg.ImageProvider == "qwen" {
		qwenKey, err := c.Credentials.Resolve(ctx, credentials.ProviderQwen, cfg.QwenAPIKey)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to load qwen api key from store")
		}
		client, err := qwen.NewClient(qwen.Options{
			APIKey:     qwenKey,
			BaseURL:    cfg.QwenBaseURL,
			Model:      cfg.QwenModel,
			HTTPClient: httpClient,
			Logger:     &logger,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("configure qwen client: %w", err)
		}
		images = imageprovider.NewQwenGenerator(client, images)
	}
	return text, images, nil
}
