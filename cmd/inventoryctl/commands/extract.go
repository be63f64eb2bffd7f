package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"dealer-inventory/internal/extractor"
	"dealer-inventory/pkg/models"
)

type extractOptions struct {
	file    string
	baseURL string
	out     string
	jsonOut bool
}

func newExtractCmd(root *rootOptions) *cobra.Command {
	opts := &extractOptions{}

	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Run the extractor over a saved HTML page.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := root.load()
			if err != nil {
				return err
			}

			body, err := os.ReadFile(opts.file)
			if err != nil {
				return fmt.Errorf("failed to read page: %w", err)
			}

			result, err := extractor.New(cfg, logger).Extract(string(body), opts.baseURL)
			if err != nil {
				return err
			}

			if opts.out != "" {
				snapshot := models.Snapshot{Listings: result.Listings, Source: opts.baseURL}
				if err := writeSnapshot(opts.out, snapshot); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if opts.jsonOut {
				return json.NewEncoder(out).Encode(result.Listings)
			}
			fmt.Fprintf(out, "strategy %s\n", result.Strategy)
			renderListings(out, result.Listings)
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "HTML file to extract from.")
	cmd.Flags().StringVar(&opts.baseURL, "url", "", "Page URL used to resolve relative links.")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "Write the listings as a snapshot JSON file.")
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "Print listings as JSON instead of a table.")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
