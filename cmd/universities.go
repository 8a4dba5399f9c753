package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sells-group/czedu/internal/model"
)

var (
	universitiesOut   string
	universitiesFlags datasetFlags
)

var universitiesCmd = &cobra.Command{
	Use:   "universities",
	Short: "Build the universities dataset from the student-count workbook",
	Long: `Downloads the ministry workbook of student counts, builds university,
faculty and other records, geocodes them by name and writes a point shapefile.

--sheet selects the academic year; -1 is the most recent sheet.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		universitiesFlags.apply(cmd, cfg)
		if err := cfg.Validate("universities"); err != nil {
			return err
		}

		env, err := initEnv(ctx, envOptions{Universities: true})
		if err != nil {
			return err
		}
		defer env.Close()

		summary, err := env.Pipeline.RunUniversities(ctx, universitiesOut)
		if err != nil {
			return err
		}
		return printSummaries(os.Stdout, []*model.RunSummary{summary})
	},
}

func init() {
	universitiesCmd.Flags().StringVarP(&universitiesOut, "output", "o", "", "shapefile path (required)")
	universitiesCmd.Flags().StringVarP(&universitiesFlags.crs, "crs", "C", "epsg:4326", "output coordinate reference system")
	universitiesCmd.Flags().IntVar(&universitiesFlags.sheet, "sheet", -1, "workbook sheet index")
	_ = universitiesCmd.MarkFlagRequired("output")
	rootCmd.AddCommand(universitiesCmd)
}
