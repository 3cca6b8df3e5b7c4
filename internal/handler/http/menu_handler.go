package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/vasiliy-maslov/cafe-storefront/internal/catalog"
)

type MenuResponse struct {
	Items []catalog.Product `json:"items"`
}

type SearchResponse struct {
	Query   string            `json:"query"`
	Results []catalog.Product `json:"results"`
}

type MenuHandler struct {
	catalog catalog.Service
}

func NewMenuHandler(svc catalog.Service) *MenuHandler {
	return &MenuHandler{catalog: svc}
}

func (h *MenuHandler) RegisterRoutes(router chi.Router) {
	router.Get("/menu", h.handleMenu)
	router.Get("/menu/search", h.handleSearch)
	router.Get("/menu/{category}", h.handleCategory)
	router.Get("/products/{pid}", h.handleProduct)
}

func (h *MenuHandler) handleMenu(w http.ResponseWriter, r *http.Request) {
	items, err := h.catalog.Menu(r.Context())
	if err != nil {
		respondWithServiceError(w, err, "Failed to load menu")
		return
	}
	respondWithJSON(w, http.StatusOK, MenuResponse{Items: items})
}

func (h *MenuHandler) handleCategory(w http.ResponseWriter, r *http.Request) {
	category := catalog.Category(strings.ToLower(chi.URLParam(r, "category")))
	items, err := h.catalog.MenuByCategory(r.Context(), category)
	if err != nil {
		respondWithServiceError(w, err, "Failed to load menu")
		return
	}
	respondWithJSON(w, http.StatusOK, MenuResponse{Items: items})
}

func (h *MenuHandler) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	results, err := h.catalog.Search(r.Context(), query)
	if err != nil {
		respondWithServiceError(w, err, "Failed to search menu")
		return
	}
	respondWithJSON(w, http.StatusOK, SearchResponse{Query: query, Results: results})
}

// handleProduct returns a product with its customization options without
// opening a selection.
func (h *MenuHandler) handleProduct(w http.ResponseWriter, r *http.Request) {
	detail, err := h.catalog.FetchOptions(r.Context(), chi.URLParam(r, "pid"))
	if err != nil {
		respondWithServiceError(w, err, "Failed to load product")
		return
	}
	respondWithJSON(w, http.StatusOK, detail)
}
