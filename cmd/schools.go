package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sells-group/czedu/internal/model"
)

var (
	schoolsOut    string
	schoolsCSVOut string
	schoolsFlags  datasetFlags
)

var schoolsCmd = &cobra.Command{
	Use:   "schools",
	Short: "Build the schools dataset from the registry",
	Long: `Walks every (school type, region) search of the school registry, parses
the facility tables of the legal entities found, geocodes them by address and
writes a point shapefile and, with --csv, a CSV table.

Use --limit to scrape only the first N search entries and --backend browser
when the registry rejects plain form postbacks.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		schoolsFlags.apply(cmd, cfg)
		if err := cfg.Validate("schools"); err != nil {
			return err
		}

		env, err := initEnv(ctx, envOptions{Schools: true, Limit: schoolsFlags.limit})
		if err != nil {
			return err
		}
		defer env.Close()

		summary, err := env.Pipeline.RunSchools(ctx, schoolsOut, schoolsCSVOut)
		if err != nil {
			return err
		}
		return printSummaries(os.Stdout, []*model.RunSummary{summary})
	},
}

func init() {
	schoolsCmd.Flags().StringVarP(&schoolsOut, "output", "o", "", "shapefile path (required)")
	schoolsCmd.Flags().StringVarP(&schoolsCSVOut, "csv", "c", "", "CSV path")
	schoolsCmd.Flags().IntVarP(&schoolsFlags.processes, "processes", "p", 0, "registry workers (0 = one per CPU)")
	schoolsCmd.Flags().StringVarP(&schoolsFlags.crs, "crs", "C", "epsg:4326", "output coordinate reference system")
	schoolsCmd.Flags().IntVar(&schoolsFlags.limit, "limit", 0, "scrape at most N search entries (0 = all)")
	schoolsCmd.Flags().StringVar(&schoolsFlags.backend, "backend", "http", "registry session backend (http, browser)")
	_ = schoolsCmd.MarkFlagRequired("output")
	rootCmd.AddCommand(schoolsCmd)
}
