package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kiya956/drm-test/internal/codec"
	"github.com/kiya956/drm-test/internal/repository/sqlite"
)

var (
	flagHistoryLimit int
	flagHistoryShow  int64
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List or show stored diagnostic runs",
		Args:  cobra.NoArgs,
		RunE:  runHistory,
	}

	fs := cmd.Flags()
	fs.StringVar(&flagDB, "db", "", "SQLite history database (required).")
	fs.IntVarP(&flagHistoryLimit, "limit", "n", 20, "Number of runs to list.")
	fs.Int64Var(&flagHistoryShow, "show", 0, "Print the full report of one run by ID.")
	fs.StringVarP(&flagFormat, "format", "f", "text", "Format for --show: text, yaml or json.")
	return cmd
}

func runHistory(cmd *cobra.Command, args []string) error {
	if flagDB == "" {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		flagDB = cfg.Database.Path
	}
	if flagDB == "" {
		return errors.New("no history database: pass --db or set database.path in the config")
	}

	repo, err := sqlite.New(flagDB)
	if err != nil {
		return err
	}
	defer repo.Close()

	ctx := cmd.Context()

	if flagHistoryShow != 0 {
		report, err := repo.GetReport(ctx, flagHistoryShow)
		if err != nil {
			return err
		}
		exporter, err := codec.ForFormat(flagFormat)
		if err != nil {
			return err
		}
		return exporter.Export(report, os.Stdout)
	}

	runs, err := repo.ListRuns(ctx, flagHistoryLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs recorded")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTARTED\tFLOW\tEXIT\tFAILS\tWARNS\tDURATION")
	for _, run := range runs {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\t%d\t%s\n",
			run.ID,
			run.StartedAt.Local().Format(time.DateTime),
			run.Flow,
			run.ExitCode,
			run.Fails,
			run.Warns,
			run.Duration.Round(time.Millisecond),
		)
	}
	return w.Flush()
}
