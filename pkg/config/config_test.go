package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	assert.NoError(t, err)

	assert.Equal(t, "https://api.fda.gov/drug/label.json", cfg.OpenFDA.BaseURL)
	assert.Equal(t, 15*time.Second, cfg.OpenFDA.Timeout)
	assert.Equal(t, "claude-3-5-sonnet-20241022", cfg.Anthropic.Model)
	assert.Equal(t, 24*time.Hour, cfg.Enrichment.LabelTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.Enrichment.EnrichmentTTL)
	assert.Equal(t, 3, cfg.Enrichment.RelatedDrugTarget)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")
	t.Setenv("ANTHROPIC_MAX_TOKENS", "1000")
	t.Setenv("LABEL_TTL", "1h")
	t.Setenv("CACHE_WEBHOOK_URL", "https://frontend.example.com/api/revalidate")

	cfg, err := Load()
	assert.NoError(t, err)

	assert.Equal(t, "sk-test", cfg.Anthropic.APIKey)
	assert.Equal(t, 1000, cfg.Anthropic.MaxTokens)
	assert.Equal(t, time.Hour, cfg.Enrichment.LabelTTL)
	assert.Equal(t, "https://frontend.example.com/api/revalidate", cfg.Webhook.URL)
}

func TestDatabaseDSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "db",
		Port:     5432,
		User:     "app",
		Password: "secret",
		Database: "drugfacts",
		SSLMode:  "require",
	}

	assert.Equal(t, "host=db port=5432 user=app password=secret dbname=drugfacts sslmode=require", cfg.DatabaseDSN())
}
