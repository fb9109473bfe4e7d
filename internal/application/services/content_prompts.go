package services

import (
	"fmt"
	"strings"

	"github.com/drugfactsio/backend/internal/domain/entities"
)

const drugContentSystemPrompt = `You are a medical content writer for a consumer drug information site. Return ONLY valid JSON with this schema:
{
  "title": string (SEO page title, max 70 characters, format "Brand (generic): Uses, Dosage & Side Effects"),
  "metaDescription": string (max 160 characters, plain language),
  "slug": string (lowercase, hyphen-separated, from brand and generic name),
  "summary": string (2-4 sentences describing what the drug is and what it treats),
  "sectionSummaries": {
    "indications": string (1-2 sentences),
    "warnings": string (1-2 sentences),
    "dosage": string (1-2 sentences),
    "contraindications": string (1-2 sentences),
    "sideEffects": string (1-2 sentences)
  },
  "faqs": [{"question": string, "answer": string}] (3-6 items),
  "relatedDrugs": string[] (3-6 drug names commonly considered alternatives or in the same class),
  "relatedConditions": string[] (2-6 condition names this drug treats),
  "keywords": string[] (5-12 search keywords),
  "structuredData": object (schema.org Drug JSON-LD stub with @context, @type, name and description)
}
Only summarize what the provided label text supports. Keep language simple and non-alarmist. Do not invent dosages, interactions or medical advice. Omit a sectionSummaries field rather than guessing when the source section is empty.`

func buildDrugContentPrompt(label *entities.DrugLabel) string {
	var builder strings.Builder

	fmt.Fprintf(&builder, "Brand name: %s\n", label.BrandName)
	fmt.Fprintf(&builder, "Generic name: %s\n", label.GenericName)
	fmt.Fprintf(&builder, "Manufacturer: %s\n", label.Manufacturer)
	fmt.Fprintf(&builder, "NDC: %s\n", label.NDC)

	writeLabelSection(&builder, "Indications and usage", label.Indications)
	writeLabelSection(&builder, "Warnings", label.Warnings)
	writeLabelSection(&builder, "Dosage and administration", label.Dosage)
	writeLabelSection(&builder, "Contraindications", label.Contraindications)

	return builder.String()
}

// writeLabelSection emits one source section, truncated so that four long
// sections cannot blow past the prompt budget.
func writeLabelSection(builder *strings.Builder, heading, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	if len(text) > 4000 {
		text = text[:4000]
	}
	fmt.Fprintf(builder, "\n%s:\n%s\n", heading, text)
}
