package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/medcena/offer-service/internal/database"
	"github.com/medcena/offer-service/internal/importer"
)

var importConcurrency int

var importCmd = &cobra.Command{
	Use:   "import [files...]",
	Short: "Import offer files (CSV or XLSX) into the price store",
	Long: `Parses one or more offer files and writes their rows to the database.
Rows that fail validation are reported and skipped; the rest are imported.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().IntVar(&importConcurrency, "concurrency", 4, "number of files parsed in parallel")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if err := importer.EnsureSchema(ctx, database.Pool()); err != nil {
		return err
	}

	var mu sync.Mutex
	var allRows []importer.Row
	totalErrors := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(importConcurrency)
	for _, path := range args {
		path := path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := parseFile(path)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			for _, rowErr := range res.Errors {
				logger.Warn().Str("file", path).Int("line", rowErr.Line).Err(rowErr.Err).Msg("Skipping row")
			}
			mu.Lock()
			allRows = append(allRows, res.Rows...)
			totalErrors += len(res.Errors)
			mu.Unlock()
			logger.Info().Str("file", path).Int("rows", len(res.Rows)).Int("skipped", len(res.Errors)).Msg("Parsed file")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	sink := importer.NewSink(database.Pool())
	written, err := sink.Write(ctx, allRows)
	if err != nil {
		return err
	}

	logger.Info().Int("files", len(args)).Int("written", written).Int("skipped_rows", totalErrors).Msg("Import completed")
	return nil
}

func parseFile(path string) (importer.Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return importer.Result{}, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return importer.ParseCSV(f)
	case ".xlsx":
		return importer.ParseXLSX(f)
	default:
		return importer.Result{}, fmt.Errorf("unsupported file type %q", filepath.Ext(path))
	}
}
