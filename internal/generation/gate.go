package generation

import (
	"context"

	"sitegen/internal/domain"
	"sitegen/internal/infra"
)

// runGate is consulted between items. A run that started while the pipeline
// was in progress stops once the state is paused or cancelled.
type runGate struct {
	state   *StateManager
	logger  infra.Logger
	tracked bool
}

func newRunGate(ctx context.Context, state *StateManager, logger infra.Logger) runGate {
	g := runGate{state: state, logger: logger}
	if st, err := state.GetState(ctx); err == nil {
		g.tracked = st.Status.InProgress()
	}
	return g
}

func (g runGate) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	st, err := g.state.GetState(ctx)
	if err != nil {
		g.logger.Warn().Err(err).Msg("generation: state unreadable between items; continuing")
		return nil
	}
	if st.Status == domain.StatusPaused {
		return domain.ErrPaused
	}
	if g.tracked && !st.Status.InProgress() {
		return domain.ErrCancelled
	}
	return nil
}

