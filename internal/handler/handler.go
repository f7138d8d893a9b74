// Package handler содержит HTTP-обработчики API витрины Давахана.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/mmeshcher/davakhana/internal/delivery"
	"github.com/mmeshcher/davakhana/internal/middleware"
	"github.com/mmeshcher/davakhana/internal/model"
	"github.com/mmeshcher/davakhana/internal/repository"
	"github.com/mmeshcher/davakhana/internal/service"
)

const maxBodyBytes = 1 << 20

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	RegisterUser(ctx context.Context, creds service.Credentials) (*model.User, error)
	Login(ctx context.Context, creds service.Credentials) (*model.User, error)
	CurrentUser(ctx context.Context, userID string) (*model.User, error)
	CycleRole(ctx context.Context, userID string) (*model.User, error)

	FetchMedicines(ctx context.Context, query string) ([]model.Medicine, error)
	SubmitMedicineForSupply(ctx context.Context, userID string, draft model.MedicineDraft) (*model.Medicine, error)
	FetchPendingApprovals(ctx context.Context, userID string) ([]model.Medicine, error)
	ApproveMedicine(ctx context.Context, userID, medicineID string) (bool, error)
	RejectMedicine(ctx context.Context, userID, medicineID string) (bool, error)

	GetCart(ctx context.Context, userID string) service.CartView
	AddToCart(ctx context.Context, userID, medicineID string, qty int) (service.CartView, error)
	RemoveFromCart(ctx context.Context, userID, medicineID string) (service.CartView, error)
	ClearCart(ctx context.Context, userID string)

	EstimateDelivery(ctx context.Context, city, tier string) (delivery.Quote, error)
	CreateOrder(ctx context.Context, userID string, draft model.OrderDraft) (*model.Order, error)
	FetchOrders(ctx context.Context, userID string) ([]model.Order, error)
	GetOrder(ctx context.Context, userID, orderID string) (*model.Order, error)

	FetchSuppliers(ctx context.Context) []model.Supplier
	FetchSourcingStats(ctx context.Context) model.SourcingStats
}

// Handler реализует HTTP-обработчики API витрины.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	defer r.Body.Close()

	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return false
	}
	return true
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encode response error", zap.Error(err))
	}
}

// statusFor сопоставляет ошибку бизнес-логики с HTTP-статусом.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrEmptyCart):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, repository.ErrUserNotFound):
		return http.StatusUnauthorized
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, repository.ErrUserExists),
		errors.Is(err, repository.ErrOrderExists),
		errors.Is(err, repository.ErrNotEnoughStock),
		errors.Is(err, service.ErrCheckoutInProgress):
		return http.StatusConflict
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		h.logger.Error(msg, zap.Error(err), zap.String("path", r.URL.Path))
	}
	http.Error(w, http.StatusText(code), code)
}

func (h *Handler) userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
	}
	return userID, ok
}
