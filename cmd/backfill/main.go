package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/drugfactsio/backend/internal/adapters/database"
	"github.com/drugfactsio/backend/internal/adapters/providers/fda"
	"github.com/drugfactsio/backend/internal/application/services"
	"github.com/drugfactsio/backend/internal/domain/entities"
	"github.com/drugfactsio/backend/internal/domain/providers"
	"github.com/drugfactsio/backend/internal/domain/repositories"
	"github.com/drugfactsio/backend/internal/infrastructure/clients/anthropic"
	"github.com/drugfactsio/backend/internal/infrastructure/clients/openfda"
	"github.com/drugfactsio/backend/internal/infrastructure/clients/postgres"
	"github.com/drugfactsio/backend/pkg/breaker"
	"github.com/drugfactsio/backend/pkg/config"
)

// backfiller re-runs the enrichment pipeline for labels already in the
// database, skipping the cache short-circuit the API path would take.
type backfiller struct {
	labelRepo      repositories.DrugLabelRepository
	enrichmentRepo repositories.DrugEnrichmentRepository
	relatedRepo    repositories.RelatedDrugRepository
	gateway        providers.DrugLabelProvider
	generator      *services.ContentGenerationService
	relatedService *services.RelatedDrugService
}

func main() {
	var ndc string
	var limit int
	var force bool

	flag.StringVar(&ndc, "ndc", "", "Single NDC to re-enrich")
	flag.IntVar(&limit, "limit", 0, "Max labels to process (0 = all)")
	flag.BoolVar(&force, "force", false, "Re-enrich even when a fresh enrichment exists")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pgClient.Close()

	registry := breaker.NewRegistry(breaker.DefaultConfig())
	tracker := services.NewHealthTracker()
	gateway := fda.NewGateway(openfda.NewClient(&cfg.OpenFDA), registry)

	var contentProvider providers.ContentProvider
	if cfg.Anthropic.APIKey != "" {
		client, err := anthropic.NewClient(&cfg.Anthropic)
		if err != nil {
			log.Fatalf("Failed to create Anthropic client: %v", err)
		}
		defer client.Close()
		contentProvider = client
	} else {
		log.Println("Warning: ANTHROPIC_API_KEY is not set; backfilling with fallback content")
	}

	b := &backfiller{
		labelRepo:      database.NewDrugLabelAdapter(pgClient),
		enrichmentRepo: database.NewDrugEnrichmentAdapter(pgClient),
		relatedRepo:    database.NewRelatedDrugAdapter(pgClient),
		gateway:        gateway,
		generator:      services.NewContentGenerationService(contentProvider, tracker, registry),
		relatedService: services.NewRelatedDrugService(gateway, cfg.Enrichment.RelatedDrugTarget, cfg.Enrichment.RelatedDrugRetries),
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	start := time.Now()

	var ndcs []string
	if ndc != "" {
		ndcs = []string{ndc}
	} else {
		ndcs, err = b.collectStale(ctx, cfg.Enrichment.EnrichmentTTL, limit, force)
		if err != nil {
			log.Fatalf("Failed to collect labels: %v", err)
		}
	}
	if len(ndcs) == 0 {
		log.Println("Nothing to backfill")
		return
	}

	log.Printf("Backfilling %d drugs...", len(ndcs))

	succeeded := 0
	failed := 0
	for _, value := range ndcs {
		select {
		case <-ctx.Done():
			log.Println("Backfill interrupted")
			return
		default:
		}

		if err := b.enrichOne(ctx, value); err != nil {
			log.Printf("Failed to backfill %s: %v", value, err)
			failed++
			continue
		}
		succeeded++
	}

	log.Printf("Backfill complete in %s", time.Since(start))
	log.Printf("Success: %d", succeeded)
	log.Printf("Failed: %d", failed)
}

// enrichOne refetches the label from openFDA, regenerates content and
// replaces the related-drug set.
func (b *backfiller) enrichOne(ctx context.Context, ndc string) error {
	identifier := entities.DrugIdentifier{Type: entities.IdentifierTypeNDC, Value: ndc}

	label, err := b.gateway.Resolve(ctx, identifier)
	if err != nil {
		return err
	}

	if existing, lookupErr := b.labelRepo.GetByNDC(ctx, label.NDC); lookupErr == nil && existing != nil {
		label.ID = existing.ID
		label.CreatedAt = existing.CreatedAt
		if err := b.labelRepo.Update(ctx, label); err != nil {
			return err
		}
	} else {
		if err := b.labelRepo.Create(ctx, label); err != nil {
			return err
		}
	}

	enrichment, err := b.generator.Generate(ctx, label)
	if err != nil {
		return err
	}
	enrichment.DrugID = label.ID
	if err := b.enrichmentRepo.Upsert(ctx, enrichment); err != nil {
		return err
	}

	if len(enrichment.RelatedDrugSuggestions) > 0 {
		related, err := b.relatedService.ValidateAndBuild(ctx, label, enrichment.RelatedDrugSuggestions, enrichment.ConfidenceScore)
		if err == nil {
			if err := b.relatedRepo.ReplaceForSourceDrug(ctx, label.ID, related); err != nil {
				log.Printf("Warning: failed to persist related drugs for %s: %v", label.ID, err)
			}
		}
	}

	return nil
}

// collectStale lists NDCs whose enrichment is missing or expired. With
// force set, every label qualifies.
func (b *backfiller) collectStale(ctx context.Context, ttl time.Duration, limit int, force bool) ([]string, error) {
	const pageSize = 200

	var ndcs []string
	for offset := 0; ; offset += pageSize {
		labels, err := b.labelRepo.List(ctx, pageSize, offset)
		if err != nil {
			return nil, err
		}
		if len(labels) == 0 {
			break
		}

		for _, label := range labels {
			if label.NDC == "" {
				continue
			}
			if !force {
				enrichment, err := b.enrichmentRepo.GetByDrugID(ctx, label.ID)
				if err == nil && enrichment != nil && !enrichment.IsStale(ttl, time.Now()) {
					continue
				}
			}
			ndcs = append(ndcs, label.NDC)
			if limit > 0 && len(ndcs) >= limit {
				return ndcs, nil
			}
		}

		if len(labels) < pageSize {
			break
		}
	}
	return ndcs, nil
}
