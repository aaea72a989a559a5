package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kiya956/drm-test/internal/codec"
	"github.com/kiya956/drm-test/internal/config"
	"github.com/kiya956/drm-test/internal/domain"
	"github.com/kiya956/drm-test/internal/fbdev"
	"github.com/kiya956/drm-test/internal/pipeline"
	"github.com/kiya956/drm-test/internal/repository/sqlite"
	"github.com/kiya956/drm-test/internal/statefs"
	"github.com/kiya956/drm-test/internal/sysfs"
	"github.com/kiya956/drm-test/pkg/log"
)

var (
	flagExpectKMS  bool
	flagFormat     string
	flagOutput     string
	flagDB         string
	flagTrace      bool
	flagVBlankWait time.Duration
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one diagnostic pass and print the report",
		Args:  cobra.NoArgs,
		RunE:  runOnce,
	}

	fs := cmd.Flags()
	fs.BoolVar(&flagExpectKMS, "expect-kms", false, "Treat missing KMS prerequisites as failure (desktop expectation).")
	fs.StringVarP(&flagFormat, "format", "f", "text", "Report format: text, yaml or json.")
	fs.StringVarP(&flagOutput, "output", "o", "", "Write the report to a file instead of stdout.")
	fs.StringVar(&flagDB, "db", "", "Append the run to a SQLite history database.")
	fs.BoolVar(&flagTrace, "trace", false, "Also capture drm trace events (needs root and tracefs).")
	fs.DurationVar(&flagVBlankWait, "vblank-wait", 0, "Override the vblank counter wait interval.")
	return cmd
}

func runOnce(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyRunFlags(cfg)

	ctx := cmd.Context()
	reader, cleanup, err := newReader(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	report, err := diagnose(ctx, reader, cfg)
	if err != nil {
		return err
	}

	if flagDB != "" {
		if err := persist(ctx, report); err != nil {
			// History is best effort; the report still prints.
			log.Error(err, "could not persist run")
		}
	}

	if err := render(report); err != nil {
		return err
	}
	exitCode = report.ExitCode()
	return nil
}

// applyRunFlags lets explicit flags override the config file.
func applyRunFlags(cfg *config.Config) {
	if flagExpectKMS {
		cfg.Policy.ExpectKMS = true
	}
	if flagTrace {
		cfg.Probes.TraceEnabled = true
	}
	if flagVBlankWait > 0 {
		cfg.Probes.VBlankWait = config.Duration(flagVBlankWait)
	}
	if flagDB == "" {
		flagDB = cfg.Database.Path
	}
}

// newReader builds the state reader: local, or SSH-backed when --remote is
// given.
func newReader(ctx context.Context, cfg *config.Config) (statefs.Reader, func(), error) {
	if flagRemote == "" {
		return statefs.NewLocal(cfg.Probes.MaxReadBytes), func() {}, nil
	}

	remote, err := statefs.DialRemote(ctx, statefs.RemoteConfig{
		Host:     flagRemote,
		Port:     flagSSHPort,
		User:     flagSSHUser,
		KeyPath:  flagSSHKey,
		Password: flagSSHPass,
	}, cfg.Probes.MaxReadBytes)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to %s: %w", flagRemote, err)
	}
	log.Info("diagnosing remote host", "host", flagRemote)
	return remote, func() { remote.Close() }, nil
}

// diagnose selects the flow from the kernel command line and runs it. A
// nomodeset boot gets the firmware-framebuffer flow; everything else gets
// the full KMS pipeline.
func diagnose(ctx context.Context, reader statefs.Reader, cfg *config.Config) (*domain.Report, error) {
	logger := log.Std()

	cmdline, err := sysfs.New(reader, cfg.Paths).ReadCmdline()
	if err != nil {
		logger.Warn("kernel command line unreadable, assuming KMS flow", err)
	}
	if cmdline.Nomodeset() {
		logger.Info("nomodeset boot detected, running framebuffer flow")
		return fbdev.New(reader, cfg, logger).Run(ctx), nil
	}
	return pipeline.New(reader, cfg, logger).Run(ctx), nil
}

func persist(ctx context.Context, report *domain.Report) error {
	repo, err := sqlite.New(flagDB)
	if err != nil {
		return err
	}
	defer repo.Close()

	id, err := repo.SaveReport(ctx, report)
	if err != nil {
		return err
	}
	log.Debug("run persisted", "id", id, "db", flagDB)
	return nil
}

func render(report *domain.Report) error {
	exporter, err := codec.ForFormat(flagFormat)
	if err != nil {
		return err
	}

	var out io.Writer = os.Stdout
	if flagOutput != "" {
		f, err := os.Create(flagOutput)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		out = f
	}
	return exporter.Export(report, out)
}
