package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"stratalog/internal/eval"
	"stratalog/internal/logging"
	"stratalog/internal/pipeline"
)

// =============================================================================
// WATCH - re-evaluate on change
// =============================================================================

var (
	watchDebounce    time.Duration
	watchMetricsAddr string
)

var watchCmd = &cobra.Command{
	Use:   "watch FILE",
	Short: "Re-evaluate a program whenever the file changes",
	Long: `Evaluates FILE, then watches it and evaluates again after every change.
Rapid saves are coalesced. With --metrics-addr, evaluation metrics are served
in the Prometheus text format at /metrics.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 300*time.Millisecond, "Quiet period before re-evaluating")
	watchCmd.Flags().StringVar(&watchMetricsAddr, "metrics-addr", "", "Serve /metrics on this address")
	watchCmd.Flags().StringSliceVarP(&evalPreds, "pred", "p", nil, "Only print these predicates")
	watchCmd.Flags().StringVarP(&evalFormat, "format", "f", formatText, "Output format: text, mangle, json or yaml")
	watchCmd.Flags().BoolVar(&evalDerivedOnly, "derived-only", false, "Omit input facts")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	path := args[0]
	log := logging.Get(logging.CategoryWatch)

	reg := prometheus.NewRegistry()
	metrics := eval.NewMetrics(reg)
	if watchMetricsAddr != "" {
		srv := &http.Server{Addr: watchMetricsAddr, Handler: metricsHandler(reg)}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server: %v", err)
			}
		}()
		defer srv.Close()
	}

	evaluate := func() {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s %s\n", dimText(time.Now().Format(time.TimeOnly)), path)
		p, err := loadProgram(path)
		if err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), errorText("error:"), err)
			return
		}
		rep, err := pipeline.Run(ctx, p, pipeline.OptionsFromConfig(cfg.Engine, metrics))
		printIssues(cmd.ErrOrStderr(), rep.Issues, cfg.Engine.FatalKinds())
		if err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), errorText("error:"), err)
			return
		}
		atoms := rep.Facts
		if evalDerivedOnly {
			atoms = rep.Derived
		}
		if err := printFacts(out, filterPreds(atoms, evalPreds), evalFormat); err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), errorText("error:"), err)
		}
	}

	evaluate()
	return watchFile(ctx, path, watchDebounce, evaluate)
}

func metricsHandler(reg *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return mux
}

// watchFile calls onChange once the file at path has been written, created or
// renamed and then left alone for debounce. The parent directory is watched
// so that editors replacing the file are seen. It returns when ctx is done.
func watchFile(ctx context.Context, path string, debounce time.Duration, onChange func()) error {
	log := logging.Get(logging.CategoryWatch)

	target, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer w.Close()
	if err := w.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(target), err)
	}
	log.Info("watching %s", target)

	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			name, err := filepath.Abs(event.Name)
			if err != nil || name != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			log.Debug("%s event for %s", event.Op, event.Name)
			timer.Reset(debounce)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn("watcher error: %v", err)

		case <-timer.C:
			onChange()
		}
	}
}
