package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"dealer-inventory/internal/extractor"
	"dealer-inventory/internal/fetcher"
	"dealer-inventory/pkg/models"
)

type scrapeOptions struct {
	out     string
	engine  string
	jsonOut bool
}

func newScrapeCmd(root *rootOptions) *cobra.Command {
	opts := &scrapeOptions{}

	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Fetch the upstream inventory once and print the extracted listings.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := root.load()
			if err != nil {
				return err
			}
			if opts.engine != "" {
				cfg.Fetcher.Engine = opts.engine
			}

			f, err := fetcher.New(cfg, logger)
			if err != nil {
				return err
			}
			defer f.Close()

			doc, err := f.Fetch(cmd.Context(), fetcher.SourceFromConfig(cfg))
			if err != nil {
				return fmt.Errorf("fetch failed: %w", err)
			}

			result, err := extractor.New(cfg, logger).Extract(doc.Body, doc.URL)
			if err != nil {
				return err
			}

			snapshot := models.Snapshot{
				Listings:  result.Listings,
				FetchedAt: time.Now().UTC(),
				Source:    doc.URL,
			}
			if opts.out != "" {
				if err := writeSnapshot(opts.out, snapshot); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if opts.jsonOut {
				return json.NewEncoder(out).Encode(snapshot)
			}
			fmt.Fprintf(out, "%s via %s (%d attempts), strategy %s\n", doc.URL, doc.Engine, doc.Attempts, result.Strategy)
			renderListings(out, result.Listings)
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "Write the snapshot as JSON to this file.")
	cmd.Flags().StringVar(&opts.engine, "engine", "", "Override the configured fetch engine (http, browser, firecrawl).")
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "Print the snapshot as JSON instead of a table.")
	return cmd
}

func writeSnapshot(path string, snapshot models.Snapshot) error {
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}

func readSnapshot(path string) (models.Snapshot, error) {
	var snapshot models.Snapshot
	data, err := os.ReadFile(path)
	if err != nil {
		return snapshot, fmt.Errorf("failed to read snapshot: %w", err)
	}
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return snapshot, fmt.Errorf("failed to parse snapshot %s: %w", path, err)
	}
	return snapshot, nil
}
