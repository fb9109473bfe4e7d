package fda

import (
	"context"
	"fmt"
	"strings"

	"github.com/drugfactsio/backend/internal/domain/entities"
	"github.com/drugfactsio/backend/internal/domain/providers"
	"github.com/drugfactsio/backend/internal/infrastructure/clients/openfda"
	"github.com/drugfactsio/backend/pkg/breaker"
	apperrors "github.com/drugfactsio/backend/pkg/errors"
)

// labelSearcher is the slice of the openFDA client the gateway uses.
type labelSearcher interface {
	SearchLabels(ctx context.Context, field, value string, mode openfda.MatchMode, limit int) ([]openfda.Label, error)
}

// Gateway resolves drug identifiers against the openFDA label dataset.
// Every outbound call passes through the FDA circuit breaker; an open
// circuit surfaces as a CIRCUIT_OPEN error, a clean miss as NOT_FOUND.
// Lookup-miss retry ladders (NDC reformatting, prefix search) live here,
// not in callers.
type Gateway struct {
	client  labelSearcher
	breaker *breaker.CircuitBreaker
}

var _ providers.DrugLabelProvider = (*Gateway)(nil)

// NewGateway creates a gateway over the openFDA client, guarded by the
// registry's FDA breaker.
func NewGateway(client *openfda.Client, registry *breaker.Registry) *Gateway {
	return &Gateway{
		client:  client,
		breaker: registry.Get(breaker.FDAAPIBreaker),
	}
}

func newGatewayWithSearcher(client labelSearcher, registry *breaker.Registry) *Gateway {
	return &Gateway{
		client:  client,
		breaker: registry.Get(breaker.FDAAPIBreaker),
	}
}

// Resolve looks up a label for the identifier.
func (g *Gateway) Resolve(ctx context.Context, identifier entities.DrugIdentifier) (*entities.DrugLabel, error) {
	value := strings.TrimSpace(identifier.Value)

	switch identifier.Type {
	case entities.IdentifierTypeNDC:
		return g.resolveNDC(ctx, value)
	case entities.IdentifierTypeUPC:
		// The label dataset has no UPC field; querying would always miss.
		return nil, apperrors.NewNotFoundError("UPC identifiers cannot be resolved against the FDA label dataset")
	case entities.IdentifierTypeRxCUI:
		return g.resolveExact(ctx, openfda.FieldRxCUI, value)
	case entities.IdentifierTypeUNII:
		return g.resolveExact(ctx, openfda.FieldUNII, strings.ToUpper(value))
	case entities.IdentifierTypeBrandName:
		return g.resolveName(ctx, []string{openfda.FieldBrandName, openfda.FieldGenericName}, value)
	case entities.IdentifierTypeGenericName:
		return g.resolveName(ctx, []string{openfda.FieldGenericName, openfda.FieldBrandName}, value)
	default:
		return nil, apperrors.NewValidationError(fmt.Sprintf("unsupported identifier type: %s", identifier.Type))
	}
}

// SearchByName looks up a label by drug name, brand first.
func (g *Gateway) SearchByName(ctx context.Context, name string) (*entities.DrugLabel, error) {
	return g.resolveName(ctx, []string{openfda.FieldBrandName, openfda.FieldGenericName}, strings.TrimSpace(name))
}

// resolveNDC walks the NDC lookup ladder: exact product NDC, exact
// package NDC, then each reformatted candidate, then a prefix search on
// the labeler-product segment. First non-empty result wins.
func (g *Gateway) resolveNDC(ctx context.Context, value string) (*entities.DrugLabel, error) {
	labels, err := g.search(ctx, openfda.FieldProductNDC, value, openfda.MatchExact)
	if err != nil {
		return nil, err
	}
	if len(labels) == 0 {
		labels, err = g.search(ctx, openfda.FieldPackageNDC, value, openfda.MatchExact)
		if err != nil {
			return nil, err
		}
	}

	if len(labels) == 0 {
		for _, candidate := range ndcCandidates(value) {
			labels, err = g.search(ctx, openfda.FieldProductNDC, candidate, openfda.MatchExact)
			if err != nil {
				return nil, err
			}
			if len(labels) > 0 {
				break
			}
		}
	}

	if len(labels) == 0 {
		if prefix := ndcPrefix(value); prefix != "" {
			labels, err = g.search(ctx, openfda.FieldProductNDC, prefix, openfda.MatchPrefix)
			if err != nil {
				return nil, err
			}
		}
	}

	if len(labels) == 0 {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("no FDA label found for NDC %s", value))
	}
	return transformLabel(labels[0]), nil
}

func (g *Gateway) resolveExact(ctx context.Context, field, value string) (*entities.DrugLabel, error) {
	labels, err := g.search(ctx, field, value, openfda.MatchExact)
	if err != nil {
		return nil, err
	}
	if len(labels) == 0 {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("no FDA label found for %s %s", field, value))
	}
	return transformLabel(labels[0]), nil
}

// resolveName tries exact, then prefix, then substring matching on each
// name field in order, returning the first non-empty result set.
func (g *Gateway) resolveName(ctx context.Context, fields []string, name string) (*entities.DrugLabel, error) {
	if name == "" {
		return nil, apperrors.NewValidationError("drug name is required")
	}

	modes := []openfda.MatchMode{openfda.MatchExact, openfda.MatchPrefix, openfda.MatchContains}
	for _, field := range fields {
		for _, mode := range modes {
			labels, err := g.search(ctx, field, name, mode)
			if err != nil {
				return nil, err
			}
			if len(labels) > 0 {
				return transformLabel(labels[0]), nil
			}
		}
	}

	return nil, apperrors.NewNotFoundError(fmt.Sprintf("no FDA label found for name %q", name))
}

func (g *Gateway) search(ctx context.Context, field, value string, mode openfda.MatchMode) ([]openfda.Label, error) {
	var labels []openfda.Label
	err := g.breaker.Execute(ctx, func(ctx context.Context) error {
		result, err := g.client.SearchLabels(ctx, field, value, mode, 1)
		if err != nil {
			return err
		}
		labels = result
		return nil
	})
	if err != nil {
		return nil, err
	}
	return labels, nil
}

// ndcCandidates derives alternative renderings of an NDC: the bare digit
// string plus the standard hyphenations for its length.
func ndcCandidates(value string) []string {
	digits := digitsOnly(value)
	if digits == "" {
		return nil
	}

	candidates := []string{}
	if digits != value {
		candidates = append(candidates, digits)
	}

	switch len(digits) {
	case 8:
		candidates = append(candidates, digits[:4]+"-"+digits[4:])
	case 10:
		candidates = append(candidates,
			digits[:4]+"-"+digits[4:8]+"-"+digits[8:],
			digits[:5]+"-"+digits[5:8]+"-"+digits[8:],
			digits[:5]+"-"+digits[5:9]+"-"+digits[9:])
	case 11:
		candidates = append(candidates, digits[:5]+"-"+digits[5:9]+"-"+digits[9:])
	}

	out := candidates[:0]
	for _, c := range candidates {
		if c != value {
			out = append(out, c)
		}
	}
	return out
}

// ndcPrefix returns the labeler-product portion of an NDC for a prefix
// search: everything before the final hyphen, or the first nine digits.
func ndcPrefix(value string) string {
	if idx := strings.LastIndex(value, "-"); idx > 0 {
		return value[:idx]
	}
	digits := digitsOnly(value)
	if len(digits) > 9 {
		return digits[:9]
	}
	if len(digits) >= 8 {
		return digits
	}
	return ""
}

func digitsOnly(value string) string {
	var builder strings.Builder
	for _, r := range value {
		if r >= '0' && r <= '9' {
			builder.WriteRune(r)
		}
	}
	return builder.String()
}

// transformLabel maps an openFDA result onto the canonical label shape.
// Product NDC is preferred over package NDC; multi-paragraph section
// arrays collapse into single text blocks.
func transformLabel(label openfda.Label) *entities.DrugLabel {
	ndc := firstOf(label.OpenFDA.ProductNDC)
	if ndc == "" {
		ndc = firstOf(label.OpenFDA.PackageNDC)
	}

	return &entities.DrugLabel{
		NDC:               ndc,
		BrandName:         firstOf(label.OpenFDA.BrandName),
		GenericName:       firstOf(label.OpenFDA.GenericName),
		Manufacturer:      firstOf(label.OpenFDA.ManufacturerName),
		Indications:       joinSections(label.IndicationsAndUsage),
		Warnings:          joinSections(label.Warnings),
		Dosage:            joinSections(label.DosageAndAdministration),
		Contraindications: joinSections(label.Contraindications),
		RawPayload:        label.Raw,
		DataSource:        entities.DataSourceFDA,
	}
}

func firstOf(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(values[0])
}

func joinSections(paragraphs []string) string {
	trimmed := make([]string, 0, len(paragraphs))
	for _, p := range paragraphs {
		if p = strings.TrimSpace(p); p != "" {
			trimmed = append(trimmed, p)
		}
	}
	return strings.Join(trimmed, "\n\n")
}
