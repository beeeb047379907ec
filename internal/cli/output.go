package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"sitegen/internal/domain"
	"sitegen/internal/domain/jsoncfg"
)

func statusLabel(status domain.GenerationStatus) string {
	switch {
	case status == domain.StatusComplete:
		return color.New(color.FgGreen).Sprint(status)
	case status == domain.StatusError:
		return color.New(color.FgRed).Sprint(status)
	case status == domain.StatusPaused:
		return color.New(color.FgYellow).Sprint(status)
	case status.InProgress():
		return color.New(color.FgCyan).Sprint(status)
	default:
		return string(status)
	}
}

func percent(current, total int) int {
	if total <= 0 {
		return 0
	}
	return current * 100 / total
}

// progressPrinter prints one line per processed item.
func progressPrinter(w io.Writer) domain.ProgressFunc {
	return func(p domain.Progress) {
		mark := color.New(color.FgGreen).Sprint("✓")
		if p.Failed {
			mark = color.New(color.FgRed).Sprint("✗")
		}
		fmt.Fprintf(w, "  %s [%d/%d] %s\n", mark, p.Step, p.Total, p.ItemID)
	}
}

func printSummary(w io.Writer, s *domain.GenerationSummary) {
	if s == nil {
		return
	}
	fmt.Fprintf(w, "Content: %d succeeded, %d failed", s.Succeeded, s.Failed)
	if s.Skipped > 0 {
		fmt.Fprintf(w, ", %d skipped", s.Skipped)
	}
	fmt.Fprintf(w, " (%dms)\n", s.ElapsedMS)
	if len(s.FailedSpecIDs) > 0 {
		fmt.Fprintf(w, "  failed: %s\n", color.New(color.FgRed).Sprint(strings.Join(s.FailedSpecIDs, ", ")))
	}
	if s.Interrupted {
		fmt.Fprintln(w, color.New(color.FgYellow).Sprint("  interrupted before all items ran"))
	}
}

func printImageResult(w io.Writer, r *domain.ImageBatchResult) {
	if r == nil {
		return
	}
	fmt.Fprintf(w, "Images: %d succeeded, %d failed, %d duplicates bound (%dms)\n",
		r.Succeeded, r.Failed, r.DuplicatesResolved, r.ElapsedMS)
	if len(r.FailedIDs) > 0 {
		fmt.Fprintf(w, "  failed: %s\n", color.New(color.FgRed).Sprint(strings.Join(r.FailedIDs, ", ")))
	}
	if r.Interrupted {
		fmt.Fprintln(w, color.New(color.FgYellow).Sprint("  interrupted before all items ran"))
	}
}

// identityFor picks the identity of a phase command: an explicit file wins,
// then the identity stored with the current run, then the configured default.
func identityFor(ctx context.Context, deps *Deps, path string) (domain.Identity, error) {
	if path != "" {
		return jsoncfg.LoadIdentityFile(path)
	}
	if st, err := deps.Pipeline.Progress(ctx); err == nil && st.Identity.Name != "" {
		return st.Identity, nil
	}
	if deps.Identity == nil {
		return domain.Identity{}, errors.New("no identity: pass --identity or set IDENTITY_PATH")
	}
	return deps.Identity(ctx)
}
