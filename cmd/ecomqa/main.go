// File path: cmd/ecomqa/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/nicodishanthj/ecomqa/internal/common"
	"github.com/nicodishanthj/ecomqa/internal/common/process"
	"github.com/nicodishanthj/ecomqa/internal/data/orchestrator"
	"github.com/nicodishanthj/ecomqa/internal/llm"
	"github.com/nicodishanthj/ecomqa/internal/llm/providers"
)

var version = "dev"

var (
	storePath   string
	dataDir     string
	provider    string
	queryOnly   bool
	skipLoad    bool
	startOllama bool
)

var rootCmd = &cobra.Command{
	Use:   "ecomqa",
	Short: "Ask natural-language questions about e-commerce sales data",
	Long: `ecomqa loads the ad sales, total sales and eligibility CSV files into a
SQLite store and answers questions about them. A language model turns each
question into SQL, the query runs against the store, and the rows come back
with a short summary and a bar chart.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Version:       version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger := common.Logger()
		if err := godotenv.Load(); err != nil {
			logger.Debug("ecomqa: .env file not loaded", "error", err)
		} else {
			logger.Info("ecomqa: environment loaded from .env")
		}
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&storePath, "store", "", "path to the SQLite store file (default ecommerce_data.db)")
	flags.StringVar(&dataDir, "data-dir", "", "directory holding the CSV files")
	flags.StringVar(&provider, "provider", "", "LLM provider: gemini, openai, ollama or local")
	flags.BoolVar(&queryOnly, "query-only", false, "open the store read-only for generated queries")
	flags.BoolVar(&skipLoad, "skip-load", false, "use the existing store file instead of rebuilding it")
	flags.BoolVar(&startOllama, "start-ollama", false, "launch a local ollama server when the ollama provider is selected and none is running")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		common.Logger().Error("ecomqa: command failed", "error", err)
		fmt.Fprintln(os.Stderr, "error:", err)
		if errors.Is(err, llm.ErrMissingCredential) {
			fmt.Fprintln(os.Stderr, "set the provider's API key (GOOGLE_API_KEY or OPENAI_API_KEY) in the environment or .env, or pass --provider local")
		}
		os.Exit(1)
	}
}

// loadConfig layers command-line flags over the file and environment
// configuration.
func loadConfig() (orchestrator.Config, error) {
	cfg, err := orchestrator.LoadConfig()
	if err != nil {
		return orchestrator.Config{}, err
	}
	override := orchestrator.Config{
		StorePath: strings.TrimSpace(storePath),
		DataDir:   strings.TrimSpace(dataDir),
		Provider:  strings.TrimSpace(provider),
		QueryOnly: queryOnly,
	}
	return cfg.Merge(override), nil
}

// openOrchestrator builds the orchestrator for a command. Commands that never
// call the model pass offline so no credential is required.
func openOrchestrator(ctx context.Context, offline, load bool) (*orchestrator.Orchestrator, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	var opts []orchestrator.Option
	if offline {
		opts = append(opts, orchestrator.WithProvider(providers.NewLocalProvider()))
	}
	if !load || skipLoad {
		opts = append(opts, orchestrator.WithLoadSkipped())
	}
	var helper *process.Service
	if !offline && startOllama && llm.ProviderName(cfg.Provider) == llm.ProviderOllama {
		helper, err = ensureOllama(ctx)
		if err != nil {
			return nil, err
		}
		if helper != nil {
			opts = append(opts, orchestrator.WithCloser(helper))
		}
	}
	orch, err := orchestrator.New(ctx, cfg, opts...)
	if err != nil {
		if helper != nil {
			_ = helper.Close()
		}
		return nil, err
	}
	if !load || skipLoad {
		return orch, nil
	}
	if life := orch.Lifecycle(); life.Report != nil && life.Report.Failed {
		fmt.Fprintf(os.Stderr, "warning: data load incomplete. %s\n", life.Report.Hint)
	}
	return orch, nil
}
