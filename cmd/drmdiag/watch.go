package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kiya956/drm-test/internal/watcher"
	"github.com/kiya956/drm-test/pkg/log"
)

var flagDebounce time.Duration

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-run the diagnostic whenever the display topology changes",
		Long: "Runs one diagnostic pass immediately, then watches /dev/dri and the DRM\n" +
			"sysfs class for hotplug events and re-runs on each change. Stops on SIGINT\n" +
			"or SIGTERM; the exit code reflects the last completed run.",
		Args: cobra.NoArgs,
		RunE: runWatch,
	}

	fs := cmd.Flags()
	fs.BoolVar(&flagExpectKMS, "expect-kms", false, "Treat missing KMS prerequisites as failure (desktop expectation).")
	fs.StringVarP(&flagFormat, "format", "f", "text", "Report format: text, yaml or json.")
	fs.StringVar(&flagDB, "db", "", "Append each run to a SQLite history database.")
	fs.DurationVar(&flagDebounce, "debounce", 500*time.Millisecond, "Quiet period after an event burst before re-running.")
	return cmd
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyRunFlags(cfg)

	if flagRemote != "" {
		return errors.New("watch mode only works on the local machine")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reader, cleanup, err := newReader(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	runPass := func() {
		report, err := diagnose(ctx, reader, cfg)
		if err != nil {
			log.Error(err, "diagnostic pass failed")
			return
		}
		if flagDB != "" {
			if err := persist(ctx, report); err != nil {
				log.Error(err, "could not persist run")
			}
		}
		if err := render(report); err != nil {
			log.Error(err, "could not render report")
			return
		}
		exitCode = report.ExitCode()
	}

	runPass()

	w := watcher.New(
		[]string{cfg.Paths.DevDRI, cfg.Paths.SysClassDRM},
		runPass,
		log.Std(),
	).WithDebounce(flagDebounce)

	err = w.Watch(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
