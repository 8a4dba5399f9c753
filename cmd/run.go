package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/czedu/internal/pipeline"
)

var (
	runUniversitiesOut string
	runSchoolsOut      string
	runCSVOut          string
	runFlags           datasetFlags
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Build both datasets: universities, then schools",
	Example: `  czedu run -u out/universities.shp -s out/schools.shp -c out/schools.csv
  czedu run -u uni.shp -s schools.shp -p 8 -C epsg:5514`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		runFlags.apply(cmd, cfg)
		if err := cfg.Validate("run"); err != nil {
			return err
		}

		env, err := initEnv(ctx, envOptions{Universities: true, Schools: true})
		if err != nil {
			return err
		}
		defer env.Close()

		summaries, err := env.Pipeline.Run(ctx, pipeline.RunOptions{
			UniversitiesPath: runUniversitiesOut,
			SchoolsPath:      runSchoolsOut,
			SchoolsCSVPath:   runCSVOut,
		})
		if err != nil {
			zap.L().Error("run failed", zap.Error(err))
			return err
		}
		return printSummaries(os.Stdout, summaries)
	},
}

func init() {
	runCmd.Flags().StringVarP(&runUniversitiesOut, "universities", "u", "", "universities shapefile path (required)")
	runCmd.Flags().StringVarP(&runSchoolsOut, "schools", "s", "", "schools shapefile path (required)")
	runCmd.Flags().StringVarP(&runCSVOut, "csv", "c", "", "schools CSV path")
	runCmd.Flags().IntVarP(&runFlags.processes, "processes", "p", 0, "registry workers (0 = one per CPU)")
	runCmd.Flags().StringVarP(&runFlags.crs, "crs", "C", "epsg:4326", "output coordinate reference system")
	_ = runCmd.MarkFlagRequired("universities")
	_ = runCmd.MarkFlagRequired("schools")
	rootCmd.AddCommand(runCmd)
}
