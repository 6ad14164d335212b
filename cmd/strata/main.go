package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"stratalog/internal/config"
	"stratalog/internal/logging"
)

var (
	// Global flags
	verbose bool
	cfgPath string

	// Loaded in PersistentPreRunE.
	cfg = config.DefaultConfig()
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "strata",
	Short: "strata - stratified Datalog checker and evaluator",
	Long: `strata validates, stratifies and evaluates Datalog programs with negation,
comparison and arithmetic builtins, and grouped aggregation.

Programs are read from Mangle source (.mg, .mangle) or from structured
program documents (.yaml, .yml, .json).`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		if verbose {
			loaded.Logging.DebugMode = true
			loaded.Logging.Level = "debug"
		}
		if err := loaded.Validate(); err != nil {
			return err
		}
		if err := logging.Initialize(loaded.Logging.Options()); err != nil {
			return err
		}
		cfg = loaded
		logging.Get(logging.CategoryCLI).Debug("running %s with config %q", cmd.CommandPath(), cfgPath)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logging.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "strata.yaml", "Config file (missing file means defaults)")

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(stratifyCmd)
	rootCmd.AddCommand(evalCmd)
	rootCmd.AddCommand(crosscheckCmd)
	rootCmd.AddCommand(watchCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, errorText("error:"), err)
		os.Exit(1)
	}
}

// commandContext returns the command's context, or Background when the
// command was not started through Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
