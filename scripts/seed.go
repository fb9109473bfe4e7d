package main

import (
	"context"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/drugfactsio/backend/internal/adapters/database"
	"github.com/drugfactsio/backend/internal/adapters/search"
	"github.com/drugfactsio/backend/internal/domain/entities"
	"github.com/drugfactsio/backend/internal/infrastructure/clients/postgres"
	"github.com/drugfactsio/backend/internal/infrastructure/clients/typesense"
	"github.com/drugfactsio/backend/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer pgClient.Close()

	tsClient, err := typesense.NewClient(&cfg.Typesense)
	var searchRepo *search.TypesenseAdapter
	if err == nil {
		searchRepo = search.NewTypesenseAdapter(tsClient)
		searchRepo.InitSchema(context.Background())
	}

	labelRepo := database.NewDrugLabelAdapter(pgClient)
	enrichmentRepo := database.NewDrugEnrichmentAdapter(pgClient)

	ctx := context.Background()

	if os.Getenv("RESET_DB") == "true" {
		log.Println("RESET_DB=true detected, truncating tables before seeding")
		_, err := pgClient.DB().ExecContext(ctx, `
			TRUNCATE TABLE
				related_drugs,
				drug_enrichments,
				drug_labels
			RESTART IDENTITY CASCADE
		`)
		if err != nil {
			log.Fatalf("Failed to reset tables: %v", err)
		}
	}

	now := time.Now()

	labels := []entities.DrugLabel{
		{
			ID:           uuid.New().String(),
			NDC:          "0071-0155",
			BrandName:    "Lipitor",
			GenericName:  "atorvastatin calcium",
			Manufacturer: "Parke-Davis Div of Pfizer Inc",
			Indications:  "Lipitor is indicated as an adjunct to diet to reduce elevated total cholesterol.",
			Warnings:     "Rare cases of rhabdomyolysis with acute renal failure have been reported.",
			Dosage:       "The recommended starting dose is 10 or 20 mg once daily.",
			DataSource:   entities.DataSourceFDA,
			CreatedAt:    now,
			UpdatedAt:    now,
		},
		{
			ID:           uuid.New().String(),
			NDC:          "0777-3105",
			BrandName:    "Prozac",
			GenericName:  "fluoxetine hydrochloride",
			Manufacturer: "Eli Lilly and Company",
			Indications:  "Prozac is indicated for the treatment of major depressive disorder.",
			Warnings:     "Antidepressants increased the risk of suicidal thinking in short-term studies.",
			Dosage:       "Initiate at 20 mg/day orally in the morning.",
			DataSource:   entities.DataSourceFDA,
			CreatedAt:    now,
			UpdatedAt:    now,
		},
		{
			ID:           uuid.New().String(),
			NDC:          "0006-0749",
			BrandName:    "Zocor",
			GenericName:  "simvastatin",
			Manufacturer: "Merck Sharp & Dohme Corp.",
			Indications:  "Zocor is indicated to reduce the risk of total mortality in patients at high risk of coronary events.",
			Warnings:     "Simvastatin occasionally causes myopathy manifested as muscle pain.",
			Dosage:       "The usual dosage range is 5 to 40 mg/day.",
			DataSource:   entities.DataSourceFDA,
			CreatedAt:    now,
			UpdatedAt:    now,
		},
		{
			ID:           uuid.New().String(),
			NDC:          "50580-506",
			BrandName:    "Tylenol",
			GenericName:  "acetaminophen",
			Manufacturer: "Johnson & Johnson Consumer Inc.",
			Indications:  "Temporarily relieves minor aches and pains and reduces fever.",
			Warnings:     "Liver warning: this product contains acetaminophen. Severe liver damage may occur.",
			Dosage:       "Adults: take 2 tablets every 6 hours while symptoms last.",
			DataSource:   entities.DataSourceFDA,
			CreatedAt:    now,
			UpdatedAt:    now,
		},
	}

	created := 0
	for i := range labels {
		label := &labels[i]
		if err := labelRepo.Create(ctx, label); err != nil {
			log.Printf("Failed to create label %s: %v", label.BrandName, err)
			continue
		}
		created++

		enrichment := seedEnrichment(label, now)
		if err := enrichmentRepo.Upsert(ctx, enrichment); err != nil {
			log.Printf("Failed to create enrichment for %s: %v", label.BrandName, err)
			continue
		}

		if searchRepo != nil {
			if err := searchRepo.Index(ctx, label, enrichment); err != nil {
				log.Printf("Failed to index %s: %v", label.BrandName, err)
			}
		}
	}

	log.Printf("Seeding complete: %d/%d labels created", created, len(labels))
}

// seedEnrichment builds a minimal placeholder record so seeded drugs are
// servable before the first real enrichment run.
func seedEnrichment(label *entities.DrugLabel, now time.Time) *entities.DrugEnrichment {
	slug := strings.ToLower(strings.ReplaceAll(label.BrandName, " ", "-"))
	return &entities.DrugEnrichment{
		ID:              uuid.New().String(),
		DrugID:          label.ID,
		Title:           label.BrandName + " (" + label.GenericName + "): Uses, Dosage & Warnings",
		MetaDescription: "Learn about " + label.BrandName + ", including what it treats and how to take it.",
		Slug:            slug,
		Summary:         label.Indications,
		Keywords:        []string{label.BrandName, label.GenericName},
		Model:           "seed",
		ConfidenceScore: 0.3,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}
