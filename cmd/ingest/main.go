// Command ingest loads one merchant spreadsheet into the database from the
// command line, using the same pipeline as the API's upload endpoint.
package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"

	"github.com/yhzhou/merchant-query/internal/infra/sqlite"
	"github.com/yhzhou/merchant-query/internal/logger"
	"github.com/yhzhou/merchant-query/internal/pipeline"
	"github.com/yhzhou/merchant-query/internal/tabular"
)

func main() {
	var (
		dbPath = flag.String("db", "merchants.db", "SQLite database path")
		file   = flag.String("file", "", "Path to the .xlsx file to ingest (required)")
	)
	flag.Parse()

	log := logger.New()

	if *file == "" {
		log.Fatal().Msg("-file is required")
	}

	ctx := context.Background()

	store, err := sqlite.Open(*dbPath)
	if err != nil {
		log.Fatal().Err(err).Str("db", *dbPath).Msg("Failed to open database")
	}
	defer store.Close()

	f, err := os.Open(*file)
	if err != nil {
		log.Fatal().Err(err).Str("file", *file).Msg("Failed to open spreadsheet")
	}
	defer f.Close()

	table, err := tabular.DecodeXLSX(f)
	if err != nil {
		log.Fatal().Err(err).Str("file", *file).Msg("Failed to decode spreadsheet")
	}

	// The data date comes from the filename, not the path.
	filename := filepath.Base(*file)

	result, err := pipeline.NewIngestor(store, log).Ingest(ctx, table, filename)
	if err != nil {
		log.Fatal().Err(err).Str("file", *file).Msg("Ingestion failed")
	}

	dataDate := result.DataDate
	if dataDate == "" {
		dataDate = "(unchanged)"
	}

	log.Info().
		Int("records", result.RecordsWritten).
		Str("data_date", dataDate).
		Msg("Ingestion completed")
}
