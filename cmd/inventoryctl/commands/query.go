package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"dealer-inventory/internal/query"
	"dealer-inventory/internal/validation"
	"dealer-inventory/pkg/models"
)

type queryOptions struct {
	snapshot string
	criteria models.QueryCriteria
	jsonOut  bool
}

func newQueryCmd() *cobra.Command {
	opts := &queryOptions{}

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Filter, sort and paginate a saved snapshot.",
		RunE: func(cmd *cobra.Command, args []string) error {
			snapshot, err := readSnapshot(opts.snapshot)
			if err != nil {
				return err
			}

			if err := validation.Criteria(validation.New(), opts.criteria); err != nil {
				return fmt.Errorf("invalid criteria: %w", err)
			}

			result := query.New(query.DefaultPerPage, query.MaxPerPage).Apply(snapshot.Listings, opts.criteria)

			out := cmd.OutOrStdout()
			if opts.jsonOut {
				return json.NewEncoder(out).Encode(result)
			}
			renderListings(out, result.Listings)
			fmt.Fprintf(out, "page %d of %d, %d matching\n", result.Page, result.TotalPages, result.Total)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.snapshot, "snapshot", "s", "", "Snapshot JSON written by scrape or extract.")
	flags.StringVar(&opts.criteria.Model, "model", "", "Case-insensitive model substring.")
	flags.IntVar(&opts.criteria.Year, "year", 0, "Exact model year.")
	flags.IntVar(&opts.criteria.PriceMin, "min-price", 0, "Minimum price.")
	flags.IntVar(&opts.criteria.PriceMax, "max-price", 0, "Maximum price.")
	flags.StringVar(&opts.criteria.Search, "search", "", "Search title, model, colors, VIN and stock number.")
	flags.StringVar(&opts.criteria.Sort, "sort", "", "Sort order, e.g. price_asc or year_desc.")
	flags.IntVar(&opts.criteria.Page, "page", 1, "Page number.")
	flags.IntVar(&opts.criteria.PerPage, "per-page", query.DefaultPerPage, "Listings per page.")
	flags.BoolVar(&opts.jsonOut, "json", false, "Print the result as JSON.")
	_ = cmd.MarkFlagRequired("snapshot")
	return cmd
}
