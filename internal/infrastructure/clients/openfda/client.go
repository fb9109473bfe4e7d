package openfda

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/drugfactsio/backend/pkg/config"
	apperrors "github.com/drugfactsio/backend/pkg/errors"
)

const defaultBaseURL = "https://api.fda.gov/drug/label.json"

// Searchable label fields. The openfda sub-document is only populated for
// products the FDA could map to an NDC directory entry, which is exactly
// the population this service cares about.
const (
	FieldProductNDC  = "openfda.product_ndc"
	FieldPackageNDC  = "openfda.package_ndc"
	FieldBrandName   = "openfda.brand_name"
	FieldGenericName = "openfda.generic_name"
	FieldRxCUI       = "openfda.rxcui"
	FieldUNII        = "openfda.unii"
)

// MatchMode selects how a search value is matched against a field.
type MatchMode int

const (
	MatchExact MatchMode = iota
	MatchPrefix
	MatchContains
)

// Client is a thin HTTP client for the openFDA drug label endpoint. It
// performs single field:value searches; lookup ladders (NDC reformatting,
// exact-then-prefix name search) belong to the gateway built on top of it.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new openFDA client.
func NewClient(cfg *config.OpenFDAConfig) *Client {
	baseURL := defaultBaseURL
	timeout := 15 * time.Second
	if cfg != nil {
		if cfg.BaseURL != "" {
			baseURL = cfg.BaseURL
		}
		if cfg.Timeout > 0 {
			timeout = cfg.Timeout
		}
	}

	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Label is a single openFDA label result. Raw preserves the untouched
// result document for storage alongside the transformed record.
type Label struct {
	IndicationsAndUsage     []string `json:"indications_and_usage"`
	Warnings                []string `json:"warnings"`
	DosageAndAdministration []string `json:"dosage_and_administration"`
	Contraindications       []string `json:"contraindications"`
	OpenFDA                 struct {
		BrandName        []string `json:"brand_name"`
		GenericName      []string `json:"generic_name"`
		ManufacturerName []string `json:"manufacturer_name"`
		ProductNDC       []string `json:"product_ndc"`
		PackageNDC       []string `json:"package_ndc"`
		RxCUI            []string `json:"rxcui"`
		UNII             []string `json:"unii"`
	} `json:"openfda"`

	Raw json.RawMessage `json:"-"`
}

type searchEnvelope struct {
	Results []json.RawMessage `json:"results"`
}

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// SearchLabels runs a single field search and returns up to limit results.
// An empty result set is not an error; transport and service failures are.
func (c *Client) SearchLabels(ctx context.Context, field, value string, mode MatchMode, limit int) ([]Label, error) {
	if limit <= 0 {
		limit = 1
	}

	params := url.Values{}
	params.Set("search", buildQuery(field, value, mode))
	params.Set("limit", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewExternalError("openFDA request failed", err, true)
	}
	defer resp.Body.Close()

	// openFDA answers an empty result set with 404 NOT_FOUND.
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var envelope errorEnvelope
		_ = json.NewDecoder(resp.Body).Decode(&envelope)
		cause := fmt.Errorf("openFDA error (status %d, code %s): %s", resp.StatusCode, envelope.Error.Code, envelope.Error.Message)

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			return nil, apperrors.NewRateLimitedError(envelope.Error.Message, 60*time.Second)
		case resp.StatusCode >= 500:
			return nil, apperrors.NewExternalError("openFDA service error", cause, true)
		default:
			return nil, apperrors.NewExternalError("openFDA request rejected", cause, false)
		}
	}

	var envelope searchEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, apperrors.NewExternalError("failed to decode openFDA response", err, false)
	}

	labels := make([]Label, 0, len(envelope.Results))
	for _, raw := range envelope.Results {
		var label Label
		if err := json.Unmarshal(raw, &label); err != nil {
			continue
		}
		label.Raw = raw
		labels = append(labels, label)
	}

	return labels, nil
}

// buildQuery renders a field query in openFDA's search syntax. Exact
// matches quote the value; prefix and contains matches use wildcards,
// which the API only supports on unquoted terms.
func buildQuery(field, value string, mode MatchMode) string {
	cleaned := strings.ReplaceAll(value, `"`, "")

	switch mode {
	case MatchPrefix:
		return field + ":" + wildcardTerm(cleaned) + "*"
	case MatchContains:
		return field + ":*" + wildcardTerm(cleaned) + "*"
	default:
		return field + `:"` + cleaned + `"`
	}
}

// wildcardTerm keeps only the first whitespace-separated token; wildcard
// queries cannot span phrase boundaries.
func wildcardTerm(value string) string {
	fields := strings.Fields(value)
	if len(fields) == 0 {
		return value
	}
	return fields[0]
}
