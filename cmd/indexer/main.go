package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/drugfactsio/backend/internal/adapters/database"
	"github.com/drugfactsio/backend/internal/adapters/search"
	"github.com/drugfactsio/backend/internal/infrastructure/clients/postgres"
	"github.com/drugfactsio/backend/internal/infrastructure/clients/typesense"
	"github.com/drugfactsio/backend/pkg/config"
)

const indexBatchSize = 500

func main() {
	var reset bool
	var intervalFlag string
	flag.BoolVar(&reset, "reset", false, "delete existing Typesense collection before reindexing")
	flag.StringVar(&intervalFlag, "interval", "", "repeat interval for reindexing (e.g. 6h, 30m)")
	flag.Parse()

	intervalValue := strings.TrimSpace(intervalFlag)
	if intervalValue == "" {
		intervalValue = strings.TrimSpace(os.Getenv("REINDEX_INTERVAL"))
	}

	var interval time.Duration
	var err error
	if intervalValue != "" {
		interval, err = time.ParseDuration(intervalValue)
		if err != nil {
			log.Fatalf("Invalid interval %q: %v", intervalValue, err)
		}
		if interval <= 0 {
			log.Fatalf("Interval must be greater than zero")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	for {
		if err := indexOnce(ctx, reset); err != nil {
			log.Printf("Reindex failed: %v", err)
		}

		if interval <= 0 {
			break
		}

		reset = false
		log.Printf("Reindex complete. Next run in %s.", interval)

		select {
		case <-ctx.Done():
			log.Println("Reindexer shutting down")
			return
		case <-time.After(interval):
		}
	}
}

func indexOnce(ctx context.Context, reset bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		return err
	}
	defer pgClient.Close()

	labelRepo := database.NewDrugLabelAdapter(pgClient)
	enrichmentRepo := database.NewDrugEnrichmentAdapter(pgClient)

	tsClient, err := typesense.NewClient(&cfg.Typesense)
	if err != nil {
		return err
	}

	if reset || os.Getenv("RESET_TYPESENSE") == "true" {
		log.Println("Deleting drugs collection before reindex")
		if _, err := tsClient.Client().Collection(typesense.DrugsCollection).Delete(ctx); err != nil {
			log.Printf("Warning: failed to delete collection: %v", err)
		}
	}

	searchRepo := search.NewTypesenseAdapter(tsClient)
	if err := searchRepo.InitSchema(ctx); err != nil {
		return err
	}

	indexed := 0
	failed := 0
	for offset := 0; ; offset += indexBatchSize {
		labels, err := labelRepo.List(ctx, indexBatchSize, offset)
		if err != nil {
			return err
		}
		if len(labels) == 0 {
			break
		}

		for _, label := range labels {
			if label == nil {
				continue
			}

			// Missing enrichment is fine; the label is indexed on its own.
			enrichment, err := enrichmentRepo.GetByDrugID(ctx, label.ID)
			if err != nil {
				enrichment = nil
			}

			if err := searchRepo.Index(ctx, label, enrichment); err != nil {
				log.Printf("Warning: failed to index drug %s: %v", label.ID, err)
				failed++
				continue
			}
			indexed++
		}

		if len(labels) < indexBatchSize {
			break
		}
	}

	log.Printf("Indexed %d drugs (%d failures)", indexed, failed)
	return nil
}
