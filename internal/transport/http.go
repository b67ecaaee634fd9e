package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/vasiliy-maslov/order-fulfillment/internal/handler"
	"github.com/vasiliy-maslov/order-fulfillment/internal/order"
	"github.com/vasiliy-maslov/order-fulfillment/internal/product"
	"github.com/vasiliy-maslov/order-fulfillment/internal/user"
)

func NewRouter(orderSvc order.Service, userSvc user.Service, productRepo product.Repository) *chi.Mux {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	handler.NewOrderHandler(orderSvc).RegisterRoutes(r)
	handler.NewUserHandler(userSvc).RegisterRoutes(r)
	handler.NewProductHandler(productRepo).RegisterRoutes(r)

	return r
}
