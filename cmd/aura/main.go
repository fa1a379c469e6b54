// Command aura is a terminal client for the Aura chat backend.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/mrcorrales01-hub/my-aura-sub004/internal/config"
)

var (
	verbose bool
	langArg string
)

var rootCmd = &cobra.Command{
	Use:   "aura",
	Short: "Terminal client for the Aura chat backend",
	Long: `Chat with Aura and manage your conversation sessions.

Credentials are read from AURA_TOKEN on every request; the backend is AURA_BASE_URL.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug output to stderr")
	rootCmd.PersistentFlags().StringVar(&langArg, "lang", "", "conversation language (default AURA_LANG or sv)")
}

func main() {
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// clientConfig loads client settings, applying the --lang override.
func clientConfig() (*config.ClientConfig, error) {
	cfg, err := config.LoadClient()
	if err != nil {
		return nil, err
	}
	if langArg != "" {
		cfg.Language = langArg
	}
	return cfg, nil
}
