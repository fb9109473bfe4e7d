package services

import (
	"encoding/json"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/drugfactsio/backend/internal/domain/entities"
)

// Length caps applied to generated fields. Anything longer is truncated,
// not rejected.
const (
	maxTitleLen     = 120
	maxMetaLen      = 200
	maxSlugLen      = 80
	maxSummaryLen   = 2000
	maxSectionLen   = 600
	maxFAQQuestion  = 200
	maxFAQAnswer    = 1000
	maxFAQCount     = 10
	maxListItemLen  = 100
	maxKeywordCount = 15
	maxListCount    = 10
)

var slugInvalidPattern = regexp.MustCompile(`[^a-z0-9]+`)

// stripCodeFences removes a wrapping markdown code fence if present.
func stripCodeFences(text string) string {
	cleaned := strings.TrimSpace(text)
	if strings.HasPrefix(cleaned, "```json") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
		cleaned = strings.TrimSuffix(cleaned, "```")
	} else if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```")
		cleaned = strings.TrimSuffix(cleaned, "```")
	}
	return strings.TrimSpace(cleaned)
}

// parseGeneratedContent decodes generated JSON into an enrichment. Fields
// are decoded independently so one malformed field only falls back to its
// default; a document that is not JSON at all returns ok=false.
func parseGeneratedContent(text string) (*entities.DrugEnrichment, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(stripCodeFences(text)), &fields); err != nil {
		return nil, false
	}

	enrichment := &entities.DrugEnrichment{
		Title:           parseString(fields["title"], maxTitleLen),
		MetaDescription: parseString(fields["metaDescription"], maxMetaLen),
		Slug:            sanitizeSlug(parseString(fields["slug"], maxSlugLen)),
		Summary:         parseString(fields["summary"], maxSummaryLen),
	}

	if raw, ok := fields["sectionSummaries"]; ok {
		var sections map[string]json.RawMessage
		if err := json.Unmarshal(raw, &sections); err == nil {
			enrichment.SectionSummaries = entities.SectionSummaries{
				Indications:       parseString(sections["indications"], maxSectionLen),
				Warnings:          parseString(sections["warnings"], maxSectionLen),
				Dosage:            parseString(sections["dosage"], maxSectionLen),
				Contraindications: parseString(sections["contraindications"], maxSectionLen),
				SideEffects:       parseString(sections["sideEffects"], maxSectionLen),
			}
		}
	}

	enrichment.FAQs = parseFAQs(fields["faqs"])
	enrichment.RelatedDrugSuggestions = parseStringList(fields["relatedDrugs"], maxListCount)
	enrichment.RelatedConditions = parseStringList(fields["relatedConditions"], maxListCount)
	enrichment.Keywords = parseStringList(fields["keywords"], maxKeywordCount)

	if raw, ok := fields["structuredData"]; ok && json.Valid(raw) && len(raw) > 2 {
		enrichment.StructuredData = raw
	}

	return enrichment, true
}

// truncate caps value at maxLen bytes, backing off to the start of the
// rune straddling the cut so the result stays valid UTF-8.
func truncate(value string, maxLen int) string {
	if len(value) <= maxLen {
		return value
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(value[cut]) {
		cut--
	}
	return strings.TrimSpace(value[:cut])
}

func parseString(raw json.RawMessage, maxLen int) string {
	if len(raw) == 0 {
		return ""
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return ""
	}
	return truncate(strings.TrimSpace(value), maxLen)
}

func parseStringList(raw json.RawMessage, maxItems int) []string {
	if len(raw) == 0 {
		return nil
	}
	var values []string
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil
	}

	cleaned := make([]string, 0, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		cleaned = append(cleaned, truncate(value, maxListItemLen))
		if len(cleaned) == maxItems {
			break
		}
	}
	if len(cleaned) == 0 {
		return nil
	}
	return cleaned
}

func parseFAQs(raw json.RawMessage) []entities.FAQ {
	if len(raw) == 0 {
		return nil
	}
	var items []struct {
		Question string `json:"question"`
		Answer   string `json:"answer"`
	}
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}

	faqs := make([]entities.FAQ, 0, len(items))
	for _, item := range items {
		question := strings.TrimSpace(item.Question)
		answer := strings.TrimSpace(item.Answer)
		if question == "" || answer == "" {
			continue
		}
		faqs = append(faqs, entities.FAQ{
			Question: truncate(question, maxFAQQuestion),
			Answer:   truncate(answer, maxFAQAnswer),
		})
		if len(faqs) == maxFAQCount {
			break
		}
	}
	if len(faqs) == 0 {
		return nil
	}
	return faqs
}

// sanitizeSlug normalizes a slug to lowercase hyphen-separated tokens.
func sanitizeSlug(slug string) string {
	slug = slugInvalidPattern.ReplaceAllString(strings.ToLower(slug), "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > maxSlugLen {
		slug = strings.Trim(slug[:maxSlugLen], "-")
	}
	return slug
}
