// Package cli implements the sitegen command line.
package cli

import (
	"context"
	"errors"
	"io"

	"github.com/spf13/cobra"

	"sitegen/internal/domain"
	"sitegen/internal/generation"
)

// Pipeline is the generation facade driven by the commands.
type Pipeline interface {
	StartGeneration(ctx context.Context, opts generation.StartOptions) (bool, error)
	Progress(ctx context.Context) (domain.GenerationState, error)
	Pause(ctx context.Context) error
	Resume(ctx context.Context) (domain.GenerationStatus, error)
	Cancel(ctx context.Context) error
	FailedSpecIDs(ctx context.Context) ([]string, error)
	QueueStatistics(ctx context.Context) (domain.QueueStatistics, error)
	GenerateAll(ctx context.Context, identity domain.Identity, cb domain.ProgressFunc) (*domain.GenerationSummary, error)
	RetryFailedContent(ctx context.Context, identity domain.Identity, cb domain.ProgressFunc) (*domain.GenerationSummary, error)
	ProcessImageQueue(ctx context.Context, identity domain.Identity, cb domain.ProgressFunc) (*domain.ImageBatchResult, error)
	RetryFailedImages(ctx context.Context, identity domain.Identity, cb domain.ProgressFunc) (*domain.ImageBatchResult, error)
	Continue(ctx context.Context, cb domain.ProgressFunc) (*generation.RunReport, error)
}

// KeyStore persists provider API keys.
type KeyStore interface {
	SetToken(ctx context.Context, provider, token string) error
	Clear(ctx context.Context, provider string) error
}

// Deps are the collaborators the pipeline commands run against.
type Deps struct {
	Pipeline Pipeline
	Identity func(ctx context.Context) (domain.Identity, error)
	Counts   func(ctx context.Context) (map[string]int, error)
	Lookup   func(ctx context.Context, id string) (*domain.Entity, error)
	// Export writes a zip archive of the stored media.
	Export func(ctx context.Context, w io.Writer) (int, error)
	Close  func()
}

// Loaders open dependencies on first use so help and flag errors never
// touch the database.
type Loaders struct {
	Pipeline func(ctx context.Context) (*Deps, error)
	Keys     func(ctx context.Context) (KeyStore, func(), error)
}

type session struct {
	loaders Loaders
	deps    *Deps
	closers []func()
}

func (s *session) pipeline(ctx context.Context) (*Deps, error) {
	if s.deps != nil {
		return s.deps, nil
	}
	if s.loaders.Pipeline == nil {
		return nil, errors.New("pipeline not configured")
	}
	deps, err := s.loaders.Pipeline(ctx)
	if err != nil {
		return nil, err
	}
	s.deps = deps
	if deps.Close != nil {
		s.closers = append(s.closers, deps.Close)
	}
	return deps, nil
}

func (s *session) keys(ctx context.Context) (KeyStore, error) {
	if s.loaders.Keys == nil {
		return nil, errors.New("credentials store not configured")
	}
	store, closeFn, err := s.loaders.Keys(ctx)
	if err != nil {
		return nil, err
	}
	if closeFn != nil {
		s.closers = append(s.closers, closeFn)
	}
	return store, nil
}

func (s *session) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
	s.deps = nil
}

// Execute runs the command line against args and releases whatever the
// command opened.
func Execute(ctx context.Context, loaders Loaders, args []string) error {
	root, s := newRoot(loaders)
	defer s.close()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// NewRootCmd builds the sitegen command tree.
func NewRootCmd(loaders Loaders) *cobra.Command {
	root, _ := newRoot(loaders)
	return root
}

func newRoot(loaders Loaders) (*cobra.Command, *session) {
	s := &session{loaders: loaders}

	root := &cobra.Command{
		Use:   "sitegen",
		Short: "Checkpointed synthetic website generation",
		Long: `sitegen drives the generation pipeline: an identity phase, a content
phase that renders templates through a text model, and an image phase that
drains the deduplicated image queue.

Runs are checkpointed; a paused or interrupted run continues from the last
completed item.`,
		SilenceUsage: true,
	}

	root.AddCommand(startCmd(s))
	root.AddCommand(statusCmd(s))
	root.AddCommand(pauseCmd(s))
	root.AddCommand(resumeCmd(s))
	root.AddCommand(cancelCmd(s))
	root.AddCommand(runCmd(s))

	// Phase commands
	root.AddCommand(generateCmd(s))
	root.AddCommand(retryContentCmd(s))
	root.AddCommand(failedCmd(s))
	root.AddCommand(entityCmd(s))
	root.AddCommand(processImagesCmd(s))
	root.AddCommand(retryImagesCmd(s))
	root.AddCommand(queueCmd(s))
	root.AddCommand(exportCmd(s))

	root.AddCommand(keysCmd(s))

	return root, s
}
