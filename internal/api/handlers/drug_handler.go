package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/drugfactsio/backend/internal/domain/entities"
	"github.com/drugfactsio/backend/internal/domain/repositories"
	apperrors "github.com/drugfactsio/backend/pkg/errors"
)

// DrugEnrichmentService defines the handler dependency for enrichment.
type DrugEnrichmentService interface {
	EnrichDrugs(ctx context.Context, req *entities.EnrichmentRequest) (*entities.EnrichmentBatchResult, error)
	ValidateIdentifiers(identifiers []entities.DrugIdentifier) entities.ValidationResult
}

// DrugHandler handles drug-related requests
type DrugHandler struct {
	enrichmentService DrugEnrichmentService
	labelRepo         repositories.DrugLabelRepository
	enrichmentRepo    repositories.DrugEnrichmentRepository
	relatedRepo       repositories.RelatedDrugRepository
	searchRepo        repositories.DrugSearchRepository
}

// NewDrugHandler creates a new drug handler. searchRepo may be nil when no
// search backend is configured.
func NewDrugHandler(
	enrichmentService DrugEnrichmentService,
	labelRepo repositories.DrugLabelRepository,
	enrichmentRepo repositories.DrugEnrichmentRepository,
	relatedRepo repositories.RelatedDrugRepository,
	searchRepo repositories.DrugSearchRepository,
) *DrugHandler {
	return &DrugHandler{
		enrichmentService: enrichmentService,
		labelRepo:         labelRepo,
		enrichmentRepo:    enrichmentRepo,
		relatedRepo:       relatedRepo,
		searchRepo:        searchRepo,
	}
}

// EnrichDrugs handles POST /api/drugs/enrich
func (h *DrugHandler) EnrichDrugs(w http.ResponseWriter, r *http.Request) {
	var req entities.EnrichmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.enrichmentService.EnrichDrugs(r.Context(), &req)
	if err != nil {
		respondWithAppError(w, err, "failed to enrich drugs")
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

// ValidateIdentifiers handles POST /api/drugs/validate
func (h *DrugHandler) ValidateIdentifiers(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Identifiers []entities.DrugIdentifier `json:"identifiers"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Identifiers) == 0 {
		respondWithError(w, http.StatusBadRequest, "at least one identifier is required")
		return
	}

	respondWithJSON(w, http.StatusOK, h.enrichmentService.ValidateIdentifiers(req.Identifiers))
}

// GetDrugByNDC handles GET /api/drugs/{ndc}
func (h *DrugHandler) GetDrugByNDC(w http.ResponseWriter, r *http.Request) {
	ndc := r.PathValue("ndc")
	if ndc == "" {
		respondWithError(w, http.StatusBadRequest, "NDC is required")
		return
	}

	label, err := h.labelRepo.GetByNDC(r.Context(), ndc)
	if err != nil {
		respondWithAppError(w, err, "failed to load drug")
		return
	}

	respondWithJSON(w, http.StatusOK, h.buildDrugResponse(r.Context(), label))
}

// GetDrugBySlug handles GET /api/drugs/slug/{slug}
func (h *DrugHandler) GetDrugBySlug(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	if slug == "" {
		respondWithError(w, http.StatusBadRequest, "slug is required")
		return
	}

	enrichment, err := h.enrichmentRepo.GetBySlug(r.Context(), slug)
	if err != nil {
		respondWithAppError(w, err, "failed to load drug")
		return
	}

	label, err := h.labelRepo.GetByID(r.Context(), enrichment.DrugID)
	if err != nil {
		respondWithAppError(w, err, "failed to load drug")
		return
	}

	response := h.buildDrugResponse(r.Context(), label)
	response["enrichment"] = enrichment
	respondWithJSON(w, http.StatusOK, response)
}

// SearchDrugs handles GET /api/drugs/search
func (h *DrugHandler) SearchDrugs(w http.ResponseWriter, r *http.Request) {
	if h.searchRepo == nil {
		respondWithError(w, http.StatusServiceUnavailable, "drug search is not configured")
		return
	}

	query := r.URL.Query().Get("q")
	if query == "" {
		respondWithError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	results, err := h.searchRepo.Search(r.Context(), query, limit)
	if err != nil {
		respondWithError(w, http.StatusServiceUnavailable, "drug search unavailable")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"results": results,
		"count":   len(results),
	})
}

// ListDrugs handles GET /api/drugs
func (h *DrugHandler) ListDrugs(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	labels, err := h.labelRepo.List(r.Context(), limit, offset)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "failed to list drugs")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"drugs": labels,
		"count": len(labels),
	})
}

// buildDrugResponse assembles the label with its enrichment and related
// drugs. Missing enrichment is not an error; the label alone is served.
func (h *DrugHandler) buildDrugResponse(ctx context.Context, label *entities.DrugLabel) map[string]interface{} {
	response := map[string]interface{}{
		"label": label,
	}
	if enrichment, err := h.enrichmentRepo.GetByDrugID(ctx, label.ID); err == nil {
		response["enrichment"] = enrichment
	}
	if related, err := h.relatedRepo.ListBySourceDrug(ctx, label.ID); err == nil && len(related) > 0 {
		response["related_drugs"] = related
	}
	return response
}

func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, map[string]string{
		"error": message,
	})
}

// respondWithAppError maps a classified error to an HTTP status.
func respondWithAppError(w http.ResponseWriter, err error, fallbackMessage string) {
	if appErr, ok := err.(*apperrors.AppError); ok {
		switch appErr.Type {
		case apperrors.ErrorTypeNotFound:
			respondWithError(w, http.StatusNotFound, appErr.Message)
		case apperrors.ErrorTypeValidation, apperrors.ErrorTypeInvalidIdentifier:
			respondWithError(w, http.StatusBadRequest, appErr.Message)
		case apperrors.ErrorTypeConflict:
			respondWithError(w, http.StatusConflict, appErr.Message)
		case apperrors.ErrorTypeUnauthorized:
			respondWithError(w, http.StatusUnauthorized, appErr.Message)
		case apperrors.ErrorTypeRateLimited:
			respondWithError(w, http.StatusTooManyRequests, appErr.Message)
		case apperrors.ErrorTypeCircuitOpen, apperrors.ErrorTypeExternal:
			respondWithError(w, http.StatusServiceUnavailable, appErr.Message)
		default:
			respondWithError(w, http.StatusInternalServerError, fallbackMessage)
		}
		return
	}
	respondWithError(w, http.StatusInternalServerError, fallbackMessage)
}
