package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/vasiliy-maslov/cafe-storefront/internal/account"
)

type FavoritesResponse struct {
	ProductIDs []string `json:"product_ids"`
}

type WishlistRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Notes     string `json:"notes" validate:"max=500"`
}

type WishlistResponse struct {
	Items []account.WishlistItem `json:"items"`
}

type TransactionsResponse struct {
	Transactions []account.Transaction `json:"transactions"`
}

type FrequentItemsResponse struct {
	Items []account.FrequentItem `json:"items"`
}

// AccountHandler serves the signed-in user's favorites, wishlist, wallet
// history and frequent items.
type AccountHandler struct {
	sessions Sessions
	accounts account.Service
	validate *validator.Validate
}

func NewAccountHandler(sessions Sessions, accounts account.Service) *AccountHandler {
	return &AccountHandler{sessions: sessions, accounts: accounts, validate: newValidator()}
}

func (h *AccountHandler) RegisterRoutes(router chi.Router) {
	router.Get("/sessions/{sid}/favorites", h.handleFavorites)
	router.Put("/sessions/{sid}/favorites/{pid}", h.handleAddFavorite)
	router.Delete("/sessions/{sid}/favorites/{pid}", h.handleRemoveFavorite)
	router.Get("/sessions/{sid}/wishlist", h.handleWishlist)
	router.Post("/sessions/{sid}/wishlist", h.handleAddToWishlist)
	router.Delete("/sessions/{sid}/wishlist", h.handleClearWishlist)
	router.Delete("/sessions/{sid}/wishlist/{pid}", h.handleRemoveFromWishlist)
	router.Get("/sessions/{sid}/transactions", h.handleTransactions)
	router.Get("/sessions/{sid}/frequent-items", h.handleFrequentItems)
}

func (h *AccountHandler) userID(r *http.Request) (string, error) {
	id, err := sessionIDParam(r)
	if err != nil {
		return "", err
	}
	s, err := h.sessions.Get(r.Context(), id)
	if err != nil {
		return "", err
	}
	return s.UserID, nil
}

func (h *AccountHandler) handleFavorites(w http.ResponseWriter, r *http.Request) {
	userID, err := h.userID(r)
	if err != nil {
		respondWithServiceError(w, err, "Failed to load favorites")
		return
	}

	ids, err := h.accounts.Favorites(r.Context(), userID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to load favorites")
		return
	}
	respondWithJSON(w, http.StatusOK, FavoritesResponse{ProductIDs: ids})
}

func (h *AccountHandler) handleAddFavorite(w http.ResponseWriter, r *http.Request) {
	h.productAction(w, r, "Failed to add favorite", h.accounts.AddFavorite)
}

func (h *AccountHandler) handleRemoveFavorite(w http.ResponseWriter, r *http.Request) {
	h.productAction(w, r, "Failed to remove favorite", h.accounts.RemoveFavorite)
}

func (h *AccountHandler) handleRemoveFromWishlist(w http.ResponseWriter, r *http.Request) {
	h.productAction(w, r, "Failed to remove wishlist item", h.accounts.RemoveFromWishlist)
}

func (h *AccountHandler) productAction(w http.ResponseWriter, r *http.Request, failure string, fn func(ctx context.Context, userID, productID string) error) {
	userID, err := h.userID(r)
	if err != nil {
		respondWithServiceError(w, err, failure)
		return
	}

	if err := fn(r.Context(), userID, chi.URLParam(r, "pid")); err != nil {
		respondWithServiceError(w, err, failure)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AccountHandler) handleWishlist(w http.ResponseWriter, r *http.Request) {
	userID, err := h.userID(r)
	if err != nil {
		respondWithServiceError(w, err, "Failed to load wishlist")
		return
	}

	items, err := h.accounts.Wishlist(r.Context(), userID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to load wishlist")
		return
	}
	respondWithJSON(w, http.StatusOK, WishlistResponse{Items: items})
}

func (h *AccountHandler) handleAddToWishlist(w http.ResponseWriter, r *http.Request) {
	userID, err := h.userID(r)
	if err != nil {
		respondWithServiceError(w, err, "Failed to add to wishlist")
		return
	}

	var req WishlistRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	if err := h.accounts.AddToWishlist(r.Context(), userID, req.ProductID, req.Notes); err != nil {
		respondWithServiceError(w, err, "Failed to add to wishlist")
		return
	}
	respondWithJSON(w, http.StatusCreated, map[string]string{"status": "success"})
}

func (h *AccountHandler) handleClearWishlist(w http.ResponseWriter, r *http.Request) {
	userID, err := h.userID(r)
	if err != nil {
		respondWithServiceError(w, err, "Failed to clear wishlist")
		return
	}

	if err := h.accounts.ClearWishlist(r.Context(), userID); err != nil {
		respondWithServiceError(w, err, "Failed to clear wishlist")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AccountHandler) handleTransactions(w http.ResponseWriter, r *http.Request) {
	userID, err := h.userID(r)
	if err != nil {
		respondWithServiceError(w, err, "Failed to load transactions")
		return
	}

	txs, err := h.accounts.Transactions(r.Context(), userID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to load transactions")
		return
	}
	respondWithJSON(w, http.StatusOK, TransactionsResponse{Transactions: txs})
}

func (h *AccountHandler) handleFrequentItems(w http.ResponseWriter, r *http.Request) {
	userID, err := h.userID(r)
	if err != nil {
		respondWithServiceError(w, err, "Failed to load frequent items")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	items, err := h.accounts.FrequentItems(r.Context(), userID, limit)
	if err != nil {
		respondWithServiceError(w, err, "Failed to load frequent items")
		return
	}
	respondWithJSON(w, http.StatusOK, FrequentItemsResponse{Items: items})
}
