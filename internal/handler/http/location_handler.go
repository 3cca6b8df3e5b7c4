package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// Locations lists delivery areas.
type Locations interface {
	Districts(ctx context.Context, city string) ([]string, error)
	Wards(ctx context.Context, district string) ([]string, error)
}

type LocationHandler struct {
	locations Locations
}

func NewLocationHandler(locations Locations) *LocationHandler {
	return &LocationHandler{locations: locations}
}

func (h *LocationHandler) RegisterRoutes(router chi.Router) {
	router.Get("/locations/districts", h.handleDistricts)
	router.Get("/locations/wards", h.handleWards)
}

func (h *LocationHandler) handleDistricts(w http.ResponseWriter, r *http.Request) {
	districts, err := h.locations.Districts(r.Context(), r.URL.Query().Get("city"))
	if err != nil {
		respondWithServiceError(w, err, "Failed to load districts")
		return
	}
	if districts == nil {
		districts = []string{}
	}
	respondWithJSON(w, http.StatusOK, map[string][]string{"districts": districts})
}

func (h *LocationHandler) handleWards(w http.ResponseWriter, r *http.Request) {
	district := strings.TrimSpace(r.URL.Query().Get("district"))
	if district == "" {
		respondWithValidation(w, map[string]string{"district": "is required"})
		return
	}

	wards, err := h.locations.Wards(r.Context(), district)
	if err != nil {
		respondWithServiceError(w, err, "Failed to load wards")
		return
	}
	if wards == nil {
		wards = []string{}
	}
	respondWithJSON(w, http.StatusOK, map[string][]string{"wards": wards})
}
