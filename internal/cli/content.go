package cli

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func generateCmd(s *session) *cobra.Command {
	var identityPath string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Run the content phase over every template",
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
			summary, err := deps.Pipeline.GenerateAll(ctx, identity, progressPrinter(out))
			printSummary(out, summary)
			return err
		},
	}

	cmd.Flags().StringVar(&identityPath, "identity", "", "identity JSON file")
	return cmd
}

func retryContentCmd(s *session) *cobra.Command {
	var identityPath string

	cmd := &cobra.Command{
		Use:   "retry-content",
		Short: "Regenerate the content items that failed last time",
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
			summary, err := deps.Pipeline.RetryFailedContent(ctx, identity, progressPrinter(out))
			printSummary(out, summary)
			return err
		},
	}

	cmd.Flags().StringVar(&identityPath, "identity", "", "identity JSON file")
	return cmd
}

func failedCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "failed",
		Short: "List content specifications that failed",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			deps, err := s.pipeline(ctx)
			if err != nil {
				return err
			}
			ids, err := deps.Pipeline.FailedSpecIDs(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(ids) == 0 {
				fmt.Fprintln(out, "No failed content.")
				return nil
			}
			for _, id := range ids {
				fmt.Fprintf(out, "  %s %s\n", color.New(color.FgRed).Sprint("✗"), id)
			}
			return nil
		},
	}
}

func entityCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "entity [id]",
		Short: "Show a generated entity, or counts per content type",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			deps, err := s.pipeline(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if len(args) == 0 {
				if deps.Counts == nil {
					return fmt.Errorf("entity counts unavailable")
				}
				counts, err := deps.Counts(ctx)
				if err != nil {
					return err
				}
				types := make([]string, 0, len(counts))
				for t := range counts {
					types = append(types, t)
				}
				sort.Strings(types)
				for _, t := range types {
					fmt.Fprintf(out, "%-20s %d\n", t, counts[t])
				}
				return nil
			}

			if deps.Lookup == nil {
				return fmt.Errorf("entity lookup unavailable")
			}
			entity, err := deps.Lookup(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s (%s) created %s\n", entity.ID, entity.ContentType, entity.CreatedAt.Format("2006-01-02 15:04"))
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(entity.Fields)
		},
	}
}
