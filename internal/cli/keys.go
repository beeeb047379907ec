package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"sitegen/internal/infra/credentials"
)

// envKeys names the environment variable read when --key is omitted.
var envKeys = map[string]string{
	credentials.ProviderGemini: "GEMINI_API_KEY",
	credentials.ProviderOpenAI: "OPENAI_API_KEY",
	credentials.ProviderQwen:   "QWEN_API_KEY",
}

func keysCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage stored provider API keys",
		Long: `Stored keys are used by workers whose environment does not carry
the provider key. An environment key always wins.`,
	}
	cmd.AddCommand(keysSetCmd(s))
	cmd.AddCommand(keysClearCmd(s))
	return cmd
}

func parseProvider(arg string) (string, error) {
	provider := strings.ToLower(strings.TrimSpace(arg))
	if !credentials.IsSupported(provider) {
		return "", fmt.Errorf("unsupported provider %q (want one of %s)", arg, strings.Join(credentials.Supported, ", "))
	}
	return provider, nil
}

func keysSetCmd(s *session) *cobra.Command {
	var key string

	cmd := &cobra.Command{
		Use:   "set <provider>",
		Short: "Store the API key of a provider",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			provider, err := parseProvider(args[0])
			if err != nil {
				return err
			}
			value := strings.TrimSpace(key)
			if value == "" {
				value = strings.TrimSpace(os.Getenv(envKeys[provider]))
			}
			if value == "" {
				return fmt.Errorf("%s API key is required via --key or %s", strings.ToUpper(provider), envKeys[provider])
			}

			store, err := s.keys(cmd.Context())
			if err != nil {
				return err
			}
			if err := store.SetToken(cmd.Context(), provider, value); err != nil {
				return fmt.Errorf("persist %s api key: %w", provider, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s API key stored successfully\n", strings.ToUpper(provider))
			return nil
		},
	}

	cmd.Flags().StringVar(&key, "key", "", "API key (falls back to the provider environment variable)")
	return cmd
}

func keysClearCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "clear <provider>",
		Short: "Remove the stored API key of a provider",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			provider, err := parseProvider(args[0])
			if err != nil {
				return err
			}
			store, err := s.keys(cmd.Context())
			if err != nil {
				return err
			}
			if err := store.Clear(cmd.Context(), provider); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s API key removed\n", strings.ToUpper(provider))
			return nil
		},
	}
}
