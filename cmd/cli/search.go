package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/medcena/offer-service/internal/database"
	"github.com/medcena/offer-service/internal/pricing"
	"github.com/medcena/offer-service/internal/search"
	"github.com/medcena/offer-service/internal/snapshot"
)

var searchFlags struct {
	city     string
	name     string
	strain   string
	maxPrice float64
	sortBy   string
	limit    int
}

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search offers in the price store",
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().StringVar(&searchFlags.city, "city", "", "filter by city")
	searchCmd.Flags().StringVar(&searchFlags.name, "name", "", "filter by product name")
	searchCmd.Flags().StringVar(&searchFlags.strain, "strain", "", "filter by strain type (indica, sativa, hybrid)")
	searchCmd.Flags().Float64Var(&searchFlags.maxPrice, "max-price", 0, "maximum effective price")
	searchCmd.Flags().StringVar(&searchFlags.sortBy, "sort-by", search.SortByPrice, "sort key (price, rating, distance, name)")
	searchCmd.Flags().IntVar(&searchFlags.limit, "limit", 20, "maximum results")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	normalizer := &pricing.Normalizer{
		PackageSizes:    cfg.Pricing.PackageSizes,
		ShortExpiryDays: cfg.Pricing.ShortExpiryDays,
	}
	loader := snapshot.NewPGLoader(database.Pool(), normalizer)
	res, err := loader.LoadCorpus(ctx)
	if err != nil {
		return fmt.Errorf("failed to load offers: %w", err)
	}

	filters := search.Filters{
		City:        searchFlags.city,
		ProductName: searchFlags.name,
		StrainType:  searchFlags.strain,
		SortBy:      searchFlags.sortBy,
		Limit:       searchFlags.limit,
	}
	if searchFlags.maxPrice > 0 {
		filters.MaxPrice = &searchFlags.maxPrice
	}

	result, err := search.Run(res.Corpus, filters)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PRODUCT\tPHARMACY\tCITY ADDRESS\tPRICE\tBUCKET")
	for _, item := range result.Items {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%s\n",
			item.ProductName, item.Offer.Pharmacy, item.Offer.Address, item.Price, item.PriceBucket)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("\n%d of %d offers (avg %.2f, min %.2f, max %.2f)\n",
		len(result.Items), result.TotalCount, result.AvgPrice, result.LowestPrice, result.HighestPrice)
	return nil
}
