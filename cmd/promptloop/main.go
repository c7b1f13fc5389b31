package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/longregen/promptloop/internal/config"
	"github.com/longregen/promptloop/internal/logging"
)

// Version information (set via ldflags)
var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

// Shared global variables
var (
	cfg    *config.Config
	logger *zap.Logger
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "promptloop",
		Short: "promptloop - self-evolving system prompt service",
		Long: `promptloop answers chat messages with a versioned system prompt and
periodically rewrites that prompt from a reference corpus of good support
conversations. Every version is kept; exactly one is active.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			logger, err = logging.New(cfg.Log)
			if err != nil {
				return err
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}

	rootCmd.AddCommand(
		serveCmd(),
		chatCmd(),
		evolveCmd(),
		promptsCmd(),
		resetCmd(),
		migrateCmd(),
		seedCmd(),
		configCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// configCmd shows current configuration
func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Current configuration:")
			fmt.Fprintln(out)

			fmt.Fprintln(out, "Chat LLM:")
			printLLM(cmd, cfg.LLM)
			fmt.Fprintln(out)

			fmt.Fprintln(out, "Editor LLM:")
			printLLM(cmd, cfg.Editor())
			fmt.Fprintf(out, "  Separate:    %s\n", boolStatus(cfg.IsEditorSeparate()))
			fmt.Fprintln(out)

			fmt.Fprintln(out, "Database:")
			fmt.Fprintf(out, "  Driver:      %s\n", cfg.Database.Driver)
			fmt.Fprintf(out, "  SQLite Path: %s\n", cfg.Database.Path)
			fmt.Fprintf(out, "  PostgreSQL:  %s\n", maskSecret(cfg.Database.PostgresURL))
			fmt.Fprintln(out)

			fmt.Fprintln(out, "Server:")
			fmt.Fprintf(out, "  Address:     %s:%d\n", cfg.Server.Host, cfg.Server.Port)
			fmt.Fprintf(out, "  CORS:        %s\n", strings.Join(cfg.Server.CORSOrigins, ", "))
			fmt.Fprintf(out, "  Admin Token: %s\n", maskSecret(cfg.Server.AdminToken))
			fmt.Fprintln(out)

			fmt.Fprintln(out, "Evolution:")
			fmt.Fprintf(out, "  Cadence:     every %d user messages\n", cfg.Evolution.Cadence)
			fmt.Fprintf(out, "  Mode:        %s\n", cfg.Evolution.Mode)
			fmt.Fprintf(out, "  Attempts:    %d\n", cfg.Evolution.RewriteAttempts)
			fmt.Fprintf(out, "  Budget:      %d runes\n", cfg.Evolution.PayloadBudget)
			fmt.Fprintf(out, "  Corpus:      %s\n", cfg.Evolution.CorpusPath)
			fmt.Fprintf(out, "  Reports:     %s\n", cfg.Evolution.ReportPath)
			fmt.Fprintln(out)

			fmt.Fprintln(out, "Tracing:")
			fmt.Fprintf(out, "  Status:      %s\n", boolStatus(cfg.Tracing.Enabled))
			fmt.Fprintf(out, "  OTLP:        %s\n", cfg.Tracing.OTLPEndpoint)
			fmt.Fprintln(out)

			fmt.Fprintln(out, "Environment variables:")
			fmt.Fprintln(out, "  PROMPTLOOP_LLM_URL, PROMPTLOOP_LLM_API_KEY, PROMPTLOOP_LLM_MODEL")
			fmt.Fprintln(out, "  PROMPTLOOP_EDITOR_LLM_URL, PROMPTLOOP_EDITOR_LLM_API_KEY, PROMPTLOOP_EDITOR_LLM_MODEL")
			fmt.Fprintln(out, "  PROMPTLOOP_DB_DRIVER, PROMPTLOOP_DB_PATH, PROMPTLOOP_POSTGRES_URL")
			fmt.Fprintln(out, "  PROMPTLOOP_EVOLUTION_CORPUS_PATH, PROMPTLOOP_EVOLUTION_MODE, PROMPTLOOP_ADMIN_TOKEN")

			return nil
		},
	}
}

func printLLM(cmd *cobra.Command, l config.LLMConfig) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "  URL:         %s\n", l.URL)
	fmt.Fprintf(out, "  Model:       %s\n", l.Model)
	fmt.Fprintf(out, "  Max Tokens:  %d\n", l.MaxTokens)
	fmt.Fprintf(out, "  Temperature: %.2f\n", l.Temperature)
	fmt.Fprintf(out, "  API Key:     %s\n", maskSecret(l.APIKey))
}

// versionCmd shows version information
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "promptloop %s\n", version)
			fmt.Fprintf(cmd.OutOrStdout(), "  Commit:     %s\n", commit)
			fmt.Fprintf(cmd.OutOrStdout(), "  Build Date: %s\n", buildDate)
		},
	}
}

// maskSecret masks a secret string for display
func maskSecret(s string) string {
	if s == "" {
		return "(not set)"
	}
	if len(s) <= 8 {
		return "(set)"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

// boolStatus returns a status string for a boolean
func boolStatus(b bool) string {
	if b {
		return "enabled"
	}
	return "disabled"
}
