package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mmeshcher/davakhana/internal/model"
)

// ListMedicines возвращает каталог одобренных препаратов с необязательным поиском ?q=.
func (h *Handler) ListMedicines(w http.ResponseWriter, r *http.Request) {
	medicines, err := h.service.FetchMedicines(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.writeError(w, r, "fetch medicines error", err)
		return
	}
	h.writeJSON(w, http.StatusOK, medicines)
}

// SubmitMedicine принимает заявку продавца на поставку препарата.
func (h *Handler) SubmitMedicine(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var draft model.MedicineDraft
	if !decodeJSON(w, r, &draft) {
		return
	}

	m, err := h.service.SubmitMedicineForSupply(r.Context(), userID, draft)
	if err != nil {
		h.writeError(w, r, "submit medicine error", err)
		return
	}
	h.writeJSON(w, http.StatusCreated, m)
}

// ListPendingApprovals возвращает заявки на модерации.
func (h *Handler) ListPendingApprovals(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	pending, err := h.service.FetchPendingApprovals(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, "fetch pending approvals error", err)
		return
	}
	h.writeJSON(w, http.StatusOK, pending)
}

type decisionResponse struct {
	ID     string               `json:"id"`
	Status model.ApprovalStatus `json:"approvalStatus"`
}

// Approve одобряет заявку.
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, model.ApprovalApproved)
}

// Reject отклоняет заявку.
func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, model.ApprovalRejected)
}

func (h *Handler) decide(w http.ResponseWriter, r *http.Request, status model.ApprovalStatus) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")
	decide := h.service.ApproveMedicine
	if status == model.ApprovalRejected {
		decide = h.service.RejectMedicine
	}

	done, err := decide(r.Context(), userID, id)
	if err != nil {
		h.writeError(w, r, "moderate medicine error", err)
		return
	}
	if !done {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		return
	}
	h.writeJSON(w, http.StatusOK, decisionResponse{ID: id, Status: status})
}

// ListSuppliers возвращает список поставщиков.
func (h *Handler) ListSuppliers(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.service.FetchSuppliers(r.Context()))
}

// SourcingStats возвращает показатели закупок.
func (h *Handler) SourcingStats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.service.FetchSourcingStats(r.Context()))
}
