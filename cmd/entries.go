package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/czedu/internal/schools"
)

var (
	entriesFormat string
	entriesFlags  datasetFlags
)

var entriesCmd = &cobra.Command{
	Use:   "entries",
	Short: "List the registry search entries without scraping them",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if entriesFormat != "text" && entriesFormat != "yaml" {
			return eris.Errorf("entries: unknown format %q (valid: text, yaml)", entriesFormat)
		}
		entriesFlags.apply(cmd, cfg)
		if err := cfg.Validate("schools"); err != nil {
			return err
		}

		opts := scraperOptions(0)
		opts.Shuffle = false
		scraper, err := newScraper(newFetcher(), opts)
		if err != nil {
			return err
		}

		entries, err := scraper.Entries(ctx)
		if err != nil {
			return err
		}
		return writeEntries(os.Stdout, entries, entriesFormat)
	},
}

// writeEntries prints entries one per line, or as a YAML list.
func writeEntries(w io.Writer, entries []schools.Entry, format string) error {
	if format == "yaml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(entries); err != nil {
			return eris.Wrap(err, "entries: encode yaml")
		}
		return enc.Close()
	}
	for _, e := range entries {
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\n", e.Type.Value, e.Region.Value, e); err != nil {
			return eris.Wrap(err, "entries: write")
		}
	}
	return nil
}

func init() {
	entriesCmd.Flags().StringVar(&entriesFormat, "format", "text", "output format (text, yaml)")
	entriesCmd.Flags().StringVar(&entriesFlags.backend, "backend", "http", "registry session backend (http, browser)")
	rootCmd.AddCommand(entriesCmd)
}
