package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func processImagesCmd(s *session) *cobra.Command {
	var identityPath string

	cmd := &cobra.Command{
		Use:   "process-images",
		Short: "Generate every pending image in the queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			deps, err := s.pipeline(ctx)
			if err != nil {
				return err
			}
			identity, err := identityFor(ctx, deps, identityPath)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			result, err := deps.Pipeline.ProcessImageQueue(ctx, identity, progressPrinter(out))
			printImageResult(out, result)
			return err
		},
	}

	cmd.Flags().StringVar(&identityPath, "identity", "", "identity JSON file")
	return cmd
}

func retryImagesCmd(s *session) *cobra.Command {
	var identityPath string

	cmd := &cobra.Command{
		Use:   "retry-images",
		Short: "Retry the queue items that failed",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			deps, err := s.pipeline(ctx)
			if err != nil {
				return err
			}
			identity, err := identityFor(ctx, deps, identityPath)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			result, err := deps.Pipeline.RetryFailedImages(ctx, identity, progressPrinter(out))
			printImageResult(out, result)
			return err
		},
	}

	cmd.Flags().StringVar(&identityPath, "identity", "", "identity JSON file")
	return cmd
}

func queueCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "queue",
		Short: "Show image queue statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			deps, err := s.pipeline(ctx)
			if err != nil {
				return err
			}
			stats, err := deps.Pipeline.QueueStatistics(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Total:      %d\n", stats.Total)
			fmt.Fprintf(out, "Pending:    %d\n", stats.Pending)
			fmt.Fprintf(out, "Complete:   %d\n", stats.Complete)
			fmt.Fprintf(out, "Failed:     %d\n", stats.Failed)
			fmt.Fprintf(out, "Duplicates: %d\n", stats.Duplicates)
			return nil
		},
	}
}

func exportCmd(s *session) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every generated media file into a zip archive",
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			ctx := cmd.Context()
			deps, err := s.pipeline(ctx)
			if err != nil {
				return err
			}
			if deps.Export == nil {
				return fmt.Errorf("export unavailable")
			}
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			defer func() {
				if cerr := f.Close(); err == nil {
					err = cerr
				}
			}()
			n, err := deps.Export(ctx, f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d media files to %s\n", n, out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "sitegen-media.zip", "archive path")
	return cmd
}
