package handler

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/davakhana/internal/model"
	"github.com/mmeshcher/davakhana/internal/service"
)

func TestAddToCart_GzipRequest(t *testing.T) {
	svc := &stubService{cart: service.CartView{
		Items:    []model.CartItem{{Medicine: model.Medicine{ID: "dk-001", Price: decimal.RequireFromString("9.50")}, Quantity: 2}},
		Subtotal: decimal.NewFromInt(19),
	}}
	h := newTestHandler(t, svc)

	var body bytes.Buffer
	zw := gzip.NewWriter(&body)
	_, err := zw.Write([]byte(`{"medicineId":"dk-001","quantity":2}`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/cart/items", &body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Content-Encoding", "gzip")
	rec := httptest.NewRecorder()
	h.authMiddleware.SetAuthCookie(rec, testUserID)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}

	res := httptest.NewRecorder()
	h.SetupRouter().ServeHTTP(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, 2, svc.lastAddQty)

	var view service.CartView
	require.NoError(t, json.NewDecoder(res.Body).Decode(&view))
	require.Len(t, view.Items, 1)
	assert.True(t, decimal.NewFromInt(19).Equal(view.Subtotal))
}

func TestListMedicines_GzipResponse(t *testing.T) {
	svc := &stubService{medicines: []model.Medicine{
		{ID: "dk-001", Name: "Generic Paracetamol IP 500mg", Price: decimal.RequireFromString("9.50")},
		{ID: "dk-002", Name: "Metformin HCl 500mg", Price: decimal.NewFromInt(18)},
	}}
	h := newTestHandler(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/api/medicines?q=jan", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	res := httptest.NewRecorder()
	h.SetupRouter().ServeHTTP(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	require.Equal(t, "gzip", res.Header().Get("Content-Encoding"))
	assert.Equal(t, "jan", svc.lastQuery)

	zr, err := gzip.NewReader(res.Body)
	require.NoError(t, err)
	defer zr.Close()
	raw, err := io.ReadAll(zr)
	require.NoError(t, err)

	var got []model.Medicine
	require.NoError(t, json.Unmarshal(raw, &got))
	require.Len(t, got, 2)
	assert.Equal(t, "dk-002", got[1].ID)
}
