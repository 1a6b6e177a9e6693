package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/franksops/memstress/export"
	"github.com/franksops/memstress/store"
)

var flagReportExport string

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List stored stress runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		runs, err := st.Runs()
		if err != nil {
			return fmt.Errorf("failed to list runs: %w", err)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "RUN\tSTARTED\tSTATE\tSTRATEGY\tREGIONS\tITERATIONS\tMISMATCHES")
		for _, r := range runs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%d\n",
				r.ID, r.StartedAt.Format("2006-01-02 15:04:05"), r.State,
				r.Strategy, r.Regions, r.Iterations, r.Mismatches)
		}
		return w.Flush()
	},
}

var reportCmd = &cobra.Command{
	Use:   "report <run-id>",
	Short: "Print or export the report for a stored run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		report, err := export.Build(st, args[0])
		if err != nil {
			return err
		}

		if flagReportExport != "" {
			ctx := context.Background()
			exporter, err := export.ForDestination(ctx, flagReportExport)
			if err != nil {
				return err
			}
			return exporter.Export(ctx, report)
		}

		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal report: %w", err)
		}
		fmt.Println(string(data))
		return nil
	},
}

func init() {
	reportCmd.Flags().StringVar(&flagReportExport, "export", "", "report destination: directory or s3://bucket/prefix")

	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(reportCmd)
}

func openStore(cmd *cobra.Command) (*store.BoltStore, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	st, err := store.NewBoltStore(filepath.Join(cfg.StateDir, "state.db"))
	if err != nil {
		return nil, fmt.Errorf("failed to open state store: %w", err)
	}
	return st, nil
}
