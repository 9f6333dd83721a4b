package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/malbeclabs/finagent/pkg/chat"
	"github.com/malbeclabs/finagent/pkg/config"
	"github.com/malbeclabs/finagent/pkg/llm"
	"github.com/malbeclabs/finagent/pkg/logger"
	"github.com/malbeclabs/finagent/pkg/pipeline"
	"github.com/malbeclabs/finagent/pkg/store"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// rootFlags reads the persistent flags shared by every command.
func rootFlags(flags *pflag.FlagSet) (config.Flags, error) {
	verbose, err := flags.GetBool("verbose")
	if err != nil {
		return config.Flags{}, fmt.Errorf("failed to get verbose flag: %w", err)
	}
	driver, err := flags.GetString("db-driver")
	if err != nil {
		return config.Flags{}, fmt.Errorf("failed to get db-driver flag: %w", err)
	}
	dsn, err := flags.GetString("db-dsn")
	if err != nil {
		return config.Flags{}, fmt.Errorf("failed to get db-dsn flag: %w", err)
	}
	model, err := flags.GetString("model")
	if err != nil {
		return config.Flags{}, fmt.Errorf("failed to get model flag: %w", err)
	}
	maxRetries, err := flags.GetInt("max-retries")
	if err != nil {
		return config.Flags{}, fmt.Errorf("failed to get max-retries flag: %w", err)
	}
	return config.Flags{
		DBDriver:   driver,
		DBDSN:      dsn,
		Model:      model,
		MaxRetries: maxRetries,
		Verbose:    verbose,
	}, nil
}

func loadConfig(cmd *cobra.Command, requireLLM bool) (*config.Config, error) {
	flags, err := rootFlags(cmd.Root().PersistentFlags())
	if err != nil {
		return nil, err
	}
	return config.Load(flags, requireLLM)
}

func newLogger(verbose bool) *slog.Logger {
	return logger.New(os.Stderr, verbose)
}

func storeConfig(log *slog.Logger, cfg *config.Config) store.Config {
	return store.Config{
		Logger: log,
		Driver: cfg.DBDriver,
		DSN:    cfg.DBDSN,
	}
}

// openStore bootstraps the database from the embedded seed when needed and opens the
// read-only handle used for answering questions.
func openStore(ctx context.Context, log *slog.Logger, cfg *config.Config) (*store.Store, error) {
	scfg := storeConfig(log, cfg)
	report, err := store.Bootstrap(ctx, scfg, store.DefaultSeed)
	if err != nil {
		return nil, fmt.Errorf("failed to bootstrap store: %w", err)
	}
	log.Debug("store: ready", "driver", cfg.DBDriver, "created", report.Created)
	return store.Open(ctx, scfg)
}

func newRouter(log *slog.Logger, cfg *config.Config, st *store.Store) (*chat.Router, error) {
	client, err := llm.NewAnthropicClient(llm.AnthropicConfig{
		Logger:    log,
		APIKey:    cfg.AnthropicAPIKey,
		BaseURL:   cfg.AnthropicBaseURL,
		Model:     anthropic.Model(cfg.Model),
		MaxTokens: cfg.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create llm client: %w", err)
	}

	prompts, err := pipeline.LoadPrompts()
	if err != nil {
		return nil, err
	}
	loop, err := pipeline.NewQueryLoop(pipeline.Config{
		Logger:      log,
		Store:       st,
		Synthesizer: pipeline.NewSynthesizer(log, client, prompts),
		Verifier:    pipeline.NewVerifier(log, client, prompts),
		MaxRetries:  cfg.MaxRetries,
	})
	if err != nil {
		return nil, err
	}

	return chat.NewRouter(chat.Config{
		Logger:  log,
		LLM:     client,
		Queries: loop,
		Schema:  st,
	})
}
