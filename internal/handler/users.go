package handler

import (
	"net/http"

	"github.com/mmeshcher/davakhana/internal/service"
)

// Register обрабатывает регистрацию нового пользователя.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req service.Credentials
	if !decodeJSON(w, r, &req) {
		return
	}

	u, err := h.service.RegisterUser(r.Context(), req)
	if err != nil {
		h.writeError(w, r, "register user error", err)
		return
	}

	h.authMiddleware.SetAuthCookie(w, u.ID)
	h.writeJSON(w, http.StatusOK, u)
}

// Login выполняет вход пользователя и устанавливает cookie сессии.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req service.Credentials
	if !decodeJSON(w, r, &req) {
		return
	}

	u, err := h.service.Login(r.Context(), req)
	if err != nil {
		h.writeError(w, r, "login user error", err)
		return
	}

	h.authMiddleware.SetAuthCookie(w, u.ID)
	h.writeJSON(w, http.StatusOK, u)
}

// Logout завершает сессию.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.authMiddleware.ClearAuthCookie(w)
	w.WriteHeader(http.StatusOK)
}

// Me возвращает текущего пользователя.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	u, err := h.service.CurrentUser(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, "get current user error", err)
		return
	}
	h.writeJSON(w, http.StatusOK, u)
}

// CycleRole переключает роль текущего пользователя.
func (h *Handler) CycleRole(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	u, err := h.service.CycleRole(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, "cycle role error", err)
		return
	}
	h.writeJSON(w, http.StatusOK, u)
}
