package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mmeshcher/davakhana/internal/model"
)

// GetCart возвращает корзину текущего пользователя.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, h.service.GetCart(r.Context(), userID))
}

type addToCartRequest struct {
	MedicineID string `json:"medicineId"`
	Quantity   int    `json:"quantity"`
}

// AddToCart добавляет препарат в корзину. Количество по умолчанию 1.
func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req addToCartRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.MedicineID == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	view, err := h.service.AddToCart(r.Context(), userID, req.MedicineID, req.Quantity)
	if err != nil {
		h.writeError(w, r, "add to cart error", err)
		return
	}
	h.writeJSON(w, http.StatusOK, view)
}

// RemoveFromCart удаляет позицию из корзины.
func (h *Handler) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	view, err := h.service.RemoveFromCart(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, "remove from cart error", err)
		return
	}
	h.writeJSON(w, http.StatusOK, view)
}

// ClearCart очищает корзину.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	h.service.ClearCart(r.Context(), userID)
	w.WriteHeader(http.StatusNoContent)
}

type quoteRequest struct {
	City string `json:"city"`
	Tier string `json:"tier"`
}

// QuoteDelivery рассчитывает стоимость и срок доставки.
func (h *Handler) QuoteDelivery(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	quote, err := h.service.EstimateDelivery(r.Context(), req.City, req.Tier)
	if err != nil {
		h.writeError(w, r, "estimate delivery error", err)
		return
	}
	h.writeJSON(w, http.StatusOK, quote)
}

// CreateOrder оформляет заказ из корзины текущего пользователя.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var draft model.OrderDraft
	if !decodeJSON(w, r, &draft) {
		return
	}

	order, err := h.service.CreateOrder(r.Context(), userID, draft)
	if err != nil {
		h.writeError(w, r, "create order error", err)
		return
	}
	h.writeJSON(w, http.StatusCreated, order)
}

// ListOrders возвращает заказы текущего пользователя, новые первыми.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	orders, err := h.service.FetchOrders(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, "fetch orders error", err)
		return
	}
	h.writeJSON(w, http.StatusOK, orders)
}

// GetOrder возвращает заказ по идентификатору.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	order, err := h.service.GetOrder(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, "get order error", err)
		return
	}
	h.writeJSON(w, http.StatusOK, order)
}
