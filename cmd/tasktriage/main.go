package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/cobra"

	"github.com/tbruckner/tasktriage/internal/apperr"
	"github.com/tbruckner/tasktriage/internal/config"
	"github.com/tbruckner/tasktriage/internal/history"
	"github.com/tbruckner/tasktriage/internal/llm"
	"github.com/tbruckner/tasktriage/internal/period"
	"github.com/tbruckner/tasktriage/internal/pipeline"
	"github.com/tbruckner/tasktriage/internal/server"
	"github.com/tbruckner/tasktriage/internal/storage"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "tasktriage",
	Short:   "GTD retrospectives from daily task notes",
	Long:    "tasktriage loads handwritten or typed task notes, analyzes execution patterns with a language model, and rolls daily results into weekly, monthly, and annual reviews.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(serveCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("tasktriage", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/tasktriage/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to configure the notes location, model, and API key variable.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show backend and run-history status",
	RunE: func(cmd *cobra.Command, args []string) error {
		backend, err := storage.Resolve(cfg)
		if err != nil {
			fmt.Printf("Backend: unavailable (%v)\n", err)
		} else {
			fmt.Printf("Backend: %s\n", backend.Name())
		}
		fmt.Printf("Model: %s\n", cfg.Model.Name)
		if cfg.APIKey() == "" {
			fmt.Printf("API key: missing (set %s)\n", cfg.Model.APIKeyEnv)
		} else {
			fmt.Println("API key: configured")
		}

		ledger, err := openLedger()
		if err != nil {
			return err
		}
		defer ledger.Close()

		stats, err := ledger.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		fmt.Println("\nRuns:")
		fmt.Printf("  Total: %d\n", stats.TotalRuns)
		fmt.Printf("  Analyses succeeded: %d\n", stats.TotalSucceeded)
		fmt.Printf("  Analyses failed: %d\n", stats.TotalFailed)
		if stats.LastRunAt != "" {
			fmt.Printf("  Last run: %s\n", stats.LastRunAt)
		}
		return nil
	},
}

// --- run command ---

var (
	preferFiles string
	workers     int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Analyze all unanalyzed daily notes, then catch up due roll-ups",
	RunE: func(cmd *cobra.Command, args []string) error {
		if preferFiles != "png" && preferFiles != "txt" {
			return fmt.Errorf("%w: --files must be png or txt", apperr.ErrBadConfig)
		}
		if workers > 0 {
			cfg.Run.Workers = workers
		}

		pipe, ledger, err := buildPipeline()
		if err != nil {
			return err
		}
		if ledger != nil {
			defer ledger.Close()
		}

		res, err := pipe.RunBatch(context.Background(), preferFiles)
		if err != nil {
			return err
		}

		printResult(res)
		if failed := res.Failed(); failed > 0 {
			return fmt.Errorf("%d analysis item(s) failed", failed)
		}
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&preferFiles, "files", "png", "Preferred source when a note exists as both image and text (png|txt)")
	runCmd.Flags().IntVar(&workers, "workers", 0, "Override the number of concurrent analyses")
}

// --- analyze command ---

var analyzeType string

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a single unit: the newest unanalyzed note, or one completed window",
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := period.Parse(analyzeType)
		if err != nil {
			return err
		}

		pipe, ledger, err := buildPipeline()
		if err != nil {
			return err
		}
		if ledger != nil {
			defer ledger.Close()
		}

		res, err := pipe.RunSingle(context.Background(), t)
		if err != nil {
			return err
		}
		printResult(res)
		return nil
	},
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeType, "type", "t", "daily", "Analysis granularity (daily|weekly|monthly|annual)")
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local web viewer",
	RunE: func(cmd *cobra.Command, args []string) error {
		backend, err := storage.Resolve(cfg)
		if err != nil {
			return err
		}

		ledger, err := openLedger()
		if err != nil {
			log.Printf("Run history unavailable: %v", err)
			ledger = nil
		} else {
			defer ledger.Close()
		}

		if servePort == 0 {
			servePort = cfg.Server.Port
		}
		fmt.Printf("Starting server at http://localhost:%d\n", servePort)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(backend, ledger, servePort)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to run server on (default from config)")
}

// buildPipeline resolves the backend and model provider. The run ledger
// is best-effort: a broken local database never blocks an analysis.
func buildPipeline() (*pipeline.Pipeline, *history.DB, error) {
	backend, err := storage.Resolve(cfg)
	if err != nil {
		return nil, nil, err
	}
	fmt.Printf("Using %s backend\n", backend.Name())

	provider := llm.NewAnthropicProvider(cfg)
	if !provider.IsConfigured() {
		return nil, nil, fmt.Errorf("%w: model API key missing, set %s", apperr.ErrBadConfig, cfg.Model.APIKeyEnv)
	}

	ledger, err := openLedger()
	if err != nil {
		log.Printf("Run history unavailable: %v", err)
		ledger = nil
	}

	return pipeline.New(cfg, backend, provider, ledger), ledger, nil
}

func openLedger() (*history.DB, error) {
	return history.Open(filepath.Join(cfg.GetDataDir(), "tasktriage.db"))
}

func printResult(res *pipeline.Result) {
	for _, it := range res.Items {
		if it.Err != nil {
			fmt.Printf("  FAIL  %s: %v\n", it.Source, it.Err)
		} else {
			fmt.Printf("  ok    %s -> %s\n", it.Source, it.Output)
		}
	}
	for _, it := range res.Rollups {
		if it.Err != nil {
			fmt.Printf("  FAIL  roll-up %s: %v\n", it.Source, it.Err)
		} else {
			fmt.Printf("  ok    roll-up %s -> %s\n", it.Source, it.Output)
		}
	}
	fmt.Printf("\n%d succeeded, %d failed\n", res.Succeeded(), res.Failed())
}
