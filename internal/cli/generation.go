package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"sitegen/internal/domain"
	"sitegen/internal/domain/jsoncfg"
	"sitegen/internal/generation"
)

func startCmd(s *session) *cobra.Command {
	var (
		identityPath string
		totalSteps   int
	)

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Reset the checkpoint and begin a new run",
		Long: `Start clears the image queue and writes a fresh checkpoint in the
identity phase. A worker (or "sitegen run") then advances it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			deps, err := s.pipeline(ctx)
			if err != nil {
				return err
			}
			// A new run never inherits the identity of the previous one.
			var identity domain.Identity
			switch {
			case identityPath != "":
				identity, err = jsoncfg.LoadIdentityFile(identityPath)
			case deps.Identity != nil:
				identity, err = deps.Identity(ctx)
			default:
				err = errors.New("no identity: pass --identity or set IDENTITY_PATH")
			}
			if err != nil {
				return err
			}
			started, err := deps.Pipeline.StartGeneration(ctx, generation.StartOptions{Identity: identity, TotalSteps: totalSteps})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !started {
				fmt.Fprintln(out, color.New(color.FgYellow).Sprint("A generation run is already in progress."))
				return nil
			}
			fmt.Fprintf(out, "Started generation for %s\n", identity.Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&identityPath, "identity", "", "identity JSON file (defaults to IDENTITY_PATH)")
	cmd.Flags().IntVar(&totalSteps, "total-steps", 0, "override the planned step count")
	return cmd
}

func statusCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the checkpoint of the current run",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			deps, err := s.pipeline(ctx)
			if err != nil {
				return err
			}
			st, err := deps.Pipeline.Progress(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Status:   %s\n", statusLabel(st.Status))
			if st.Identity.Name != "" {
				fmt.Fprintf(out, "Identity: %s\n", st.Identity.Name)
			}
			fmt.Fprintf(out, "Progress: %d/%d (%d%%)\n", st.CurrentStep, st.TotalSteps, percent(st.CurrentStep, st.TotalSteps))
			if st.CurrentPhase != "" {
				fmt.Fprintf(out, "Phase:    %s\n", st.CurrentPhase)
			}
			if st.StartedAt != nil {
				fmt.Fprintf(out, "Started:  %s\n", st.StartedAt.Format(time.RFC3339))
			}
			if st.CompletedAt != nil {
				fmt.Fprintf(out, "Finished: %s\n", st.CompletedAt.Format(time.RFC3339))
			}
			if st.LastError != "" {
				fmt.Fprintf(out, "Error:    %s\n", color.New(color.FgRed).Sprint(st.LastError))
			}
			if n := len(st.Identity.Metadata.FailedSpecs); n > 0 {
				fmt.Fprintf(out, "Failed content: %d (see \"sitegen failed\")\n", n)
			}
			return nil
		},
	}
}

func pauseCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "pause",
		Short: "Pause the run after the item in flight",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			deps, err := s.pipeline(ctx)
			if err != nil {
				return err
			}
			if err := deps.Pipeline.Pause(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Paused.")
			return nil
		},
	}
}

func resumeCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "resume",
		Short: "Resume a paused run in the phase it stopped in",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			deps, err := s.pipeline(ctx)
			if err != nil {
				return err
			}
			status, err := deps.Pipeline.Resume(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Resumed as %s.\n", statusLabel(status))
			return nil
		},
	}
}

func cancelCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel",
		Short: "Discard the checkpoint; generated content is kept",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			deps, err := s.pipeline(ctx)
			if err != nil {
				return err
			}
			if err := deps.Pipeline.Cancel(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
			return nil
		},
	}
}

func runCmd(s *session) *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Advance the current run through its remaining phases",
		Long: `Run continues the checkpointed run in the foreground, resuming mid-phase
where the last run stopped. Idle, paused and finished runs are left as is.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			deps, err := s.pipeline(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			progress := progressPrinter(out)
			if quiet {
				progress = nil
			}
			report, err := deps.Pipeline.Continue(ctx, progress)
			if report != nil {
				printSummary(out, report.Content)
				printImageResult(out, report.Images)
				fmt.Fprintf(out, "Status: %s\n", statusLabel(report.Status))
			}
			return err
		},
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "do not print per-item progress")
	return cmd
}
