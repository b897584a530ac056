package web

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"suumo-traveltime/db"
	"suumo-traveltime/models"
)

// BuildingSource produces the current set of listed buildings.
type BuildingSource interface {
	Scrape(ctx context.Context) ([]*models.Building, error)
}

// Resolver populates reachability verdicts in place.
type Resolver interface {
	Resolve(ctx context.Context, criteria []*models.Criterion, buildings []*models.Building) error
}

// WebHandler serves the JSON API: credentials, criteria CRUD and the
// scrape-and-resolve operation.
type WebHandler struct {
	criteria    db.CriterionRepository
	credentials db.CredentialsRepository
	scraper     BuildingSource
	resolver    Resolver
}

// NewWebHandler creates a WebHandler.
func NewWebHandler(criteria db.CriterionRepository, credentials db.CredentialsRepository, scraper BuildingSource, resolver Resolver) *WebHandler {
	return &WebHandler{
		criteria:    criteria,
		credentials: credentials,
		scraper:     scraper,
		resolver:    resolver,
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// GetCredentials returns the stored provider credentials.
func (h *WebHandler) GetCredentials(w http.ResponseWriter, r *http.Request) {
	creds, err := h.credentials.Get(r.Context())
	if errors.Is(err, db.ErrNotFound) {
		writeError(w, http.StatusNotFound, "credentials not set")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, creds)
}

// SaveCredentials replaces the stored provider credentials.
func (h *WebHandler) SaveCredentials(w http.ResponseWriter, r *http.Request) {
	var creds models.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeError(w, http.StatusBadRequest, "invalid credentials payload")
		return
	}
	if creds.AppID == "" || creds.APIKey == "" {
		writeError(w, http.StatusBadRequest, "app_id and api_key must not be empty")
		return
	}

	if err := h.credentials.Save(r.Context(), &creds); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, creds)
}

// ListCriteria returns all criteria in user-defined order.
func (h *WebHandler) ListCriteria(w http.ResponseWriter, r *http.Request) {
	criteria, err := h.criteria.FindAll(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if criteria == nil {
		criteria = []*models.Criterion{}
	}
	writeJSON(w, http.StatusOK, criteria)
}

// CreateCriterion adds a new criterion, assigning it a stable ID and a random
// display color when none is given.
func (h *WebHandler) CreateCriterion(w http.ResponseWriter, r *http.Request) {
	var criterion models.Criterion
	if err := json.NewDecoder(r.Body).Decode(&criterion); err != nil {
		writeError(w, http.StatusBadRequest, "invalid criterion payload")
		return
	}
	if err := criterion.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	criterion.ID = db.GenerateID()
	if criterion.Color == "" {
		criterion.Color = models.RandomColor()
	}
	criterion.Location = nil

	if err := h.criteria.Create(r.Context(), &criterion); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, &criterion)
}

// UpdateCriterion replaces an existing criterion's fields.
func (h *WebHandler) UpdateCriterion(w http.ResponseWriter, r *http.Request) {
	var criterion models.Criterion
	if err := json.NewDecoder(r.Body).Decode(&criterion); err != nil {
		writeError(w, http.StatusBadRequest, "invalid criterion payload")
		return
	}
	criterion.ID = mux.Vars(r)["id"]
	criterion.Location = nil
	if err := criterion.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if criterion.Color == "" {
		criterion.Color = models.RandomColor()
	}

	err := h.criteria.Update(r.Context(), &criterion)
	if errors.Is(err, db.ErrNotFound) {
		writeError(w, http.StatusNotFound, "criterion not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, &criterion)
}

// DeleteCriterion removes a criterion.
func (h *WebHandler) DeleteCriterion(w http.ResponseWriter, r *http.Request) {
	err := h.criteria.DeleteByID(r.Context(), mux.Vars(r)["id"])
	if errors.Is(err, db.ErrNotFound) {
		writeError(w, http.StatusNotFound, "criterion not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type resolveResponse struct {
	ResolvedAt time.Time           `json:"resolved_at"`
	Criteria   []*models.Criterion `json:"criteria"`
	Buildings  []*models.Building  `json:"buildings"`
}

// ResolveBuildings scrapes the listings site and resolves reachability for
// every stored criterion. With ?reachable=true only buildings admitted under
// every criterion are returned.
func (h *WebHandler) ResolveBuildings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	criteria, err := h.criteria.FindAll(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if len(criteria) == 0 {
		writeError(w, http.StatusBadRequest, "no criteria defined")
		return
	}

	buildings, err := h.scraper.Scrape(ctx)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	if err := h.resolver.Resolve(ctx, criteria, buildings); err != nil {
		// Fail-fast: partial verdicts are not reported as a success.
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	if r.URL.Query().Get("reachable") == "true" {
		reachable := make([]*models.Building, 0, len(buildings))
		for _, building := range buildings {
			if building.FullyReachable(criteria) {
				reachable = append(reachable, building)
			}
		}
		buildings = reachable
	}

	writeJSON(w, http.StatusOK, resolveResponse{
		ResolvedAt: time.Now(),
		Criteria:   criteria,
		Buildings:  buildings,
	})
}
