package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/vasiliy-maslov/order-fulfillment/internal/product"
)

type ProductHandler struct {
	repo product.Repository
}

func NewProductHandler(repo product.Repository) *ProductHandler {
	return &ProductHandler{repo: repo}
}

func (h *ProductHandler) RegisterRoutes(router chi.Router) {
	router.Get("/products", h.ListProducts)
}

func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.repo.List(r.Context())
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "failed to list products")
		return
	}

	respondWithJSON(w, http.StatusOK, products)
}
