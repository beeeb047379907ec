package repo

import (
	"context"
	"fmt"

	"sitegen/internal/infra"
	"sitegen/internal/sqlinline"
)

// EnsureSchema creates the pipeline tables when missing.
func EnsureSchema(ctx context.Context, sql infra.SQLExecutor) error {
	if _, err := sql.Exec(ctx, sqlinline.QPGCreateSchema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
