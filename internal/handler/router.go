package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	custommiddleware "github.com/mmeshcher/davakhana/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware витрины.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Route("/api", func(r chi.Router) {
		r.Post("/user/register", h.Register)
		r.Post("/user/login", h.Login)
		r.Post("/user/logout", h.Logout)

		r.Get("/medicines", h.ListMedicines)
		r.Post("/delivery/quote", h.QuoteDelivery)
		r.Get("/suppliers", h.ListSuppliers)
		r.Get("/sourcing/stats", h.SourcingStats)

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)

			r.Get("/user/me", h.Me)
			r.Post("/user/role", h.CycleRole)

			r.Get("/cart", h.GetCart)
			r.Delete("/cart", h.ClearCart)
			r.Post("/cart/items", h.AddToCart)
			r.Delete("/cart/items/{id}", h.RemoveFromCart)

			r.Post("/orders", h.CreateOrder)
			r.Get("/orders", h.ListOrders)
			r.Get("/orders/{id}", h.GetOrder)

			r.Post("/seller/medicines", h.SubmitMedicine)

			r.Get("/admin/approvals", h.ListPendingApprovals)
			r.Post("/admin/approvals/{id}/approve", h.Approve)
			r.Post("/admin/approvals/{id}/reject", h.Reject)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
