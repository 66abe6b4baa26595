package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kopano7/Lejone-wings-cafe/internal/domain"
	"github.com/kopano7/Lejone-wings-cafe/internal/service"
	"github.com/kopano7/Lejone-wings-cafe/internal/store"
	"github.com/kopano7/Lejone-wings-cafe/internal/store/memory"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01")

// newTestAPI builds a full API over an in-memory store so handler tests
// exercise the complete request path.
func newTestAPI(t *testing.T) *API {
	t.Helper()
	return newTestAPIWithBackend(t, memory.New())
}

func newTestAPIWithBackend(t *testing.T, backend store.Backend) *API {
	t.Helper()
	svc := service.New(store.NewRepository(backend), nil, time.UTC, nil)
	return New(svc, Options{UploadsDir: t.TempDir(), MaxUploadBytes: 1 << 20}, nil)
}

func doJSON(t *testing.T, api *API, method string, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out), "body: %s", rec.Body.String())
	return out
}

func createProduct(t *testing.T, api *API, fields map[string]any) domain.Product {
	t.Helper()
	rec := doJSON(t, api, http.MethodPost, "/api/products", fields)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeBody[domain.Product](t, rec)
}

func TestHandleHealth(t *testing.T) {
	api := newTestAPI(t)

	rec := doJSON(t, api, http.MethodGet, "/healthz", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody[map[string]any](t, rec)
	assert.Equal(t, true, body["ok"])
}

func TestProductsCRUD(t *testing.T) {
	api := newTestAPI(t)

	latte := createProduct(t, api, map[string]any{
		"Product_Name":  "Latte",
		"Category":      "Drinks",
		"Price":         30,
		"Quantity":      "10",
		"Minimum_Stock": 2,
	})
	assert.NotEmpty(t, latte.Code)
	assert.Equal(t, "Latte", latte.Name)
	assert.Equal(t, 10, latte.Quantity)

	rec := doJSON(t, api, http.MethodGet, "/api/products", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	products := decodeBody[[]domain.Product](t, rec)
	require.Len(t, products, 1)
	assert.Equal(t, latte.Code, products[0].Code)

	rec = doJSON(t, api, http.MethodPut, "/api/products/"+latte.Code, map[string]any{
		"Price":    "32.5",
		"Quantity": "oops",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decodeBody[domain.Product](t, rec)
	assert.Equal(t, "32.5", updated.Price.String())
	assert.Equal(t, 10, updated.Quantity, "invalid quantity keeps prior value")
	assert.Equal(t, "Drinks", updated.Category)

	rec = doJSON(t, api, http.MethodDelete, "/api/products/"+latte.Code, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Product deleted", decodeBody[map[string]string](t, rec)["message"])

	rec = doJSON(t, api, http.MethodGet, "/api/products", nil)
	assert.Empty(t, decodeBody[[]domain.Product](t, rec))
}

func TestProductCreateSeedsInventory(t *testing.T) {
	api := newTestAPI(t)
	latte := createProduct(t, api, map[string]any{"Product_Name": "Latte", "Price": 30, "Quantity": 10})

	rec := doJSON(t, api, http.MethodGet, "/api/inventory", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	movements := decodeBody[[]domain.InventoryMovement](t, rec)
	require.Len(t, movements, 1)
	assert.Equal(t, latte.Code, movements[0].ProductCode)
	assert.Equal(t, domain.MovementIn, movements[0].Type)
	assert.Equal(t, 10, movements[0].Quantity)
}

func TestUnknownProductReturns404(t *testing.T) {
	api := newTestAPI(t)

	rec := doJSON(t, api, http.MethodPut, "/api/products/p_missing", map[string]any{"Product_Name": "x"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Product not found", decodeBody[map[string]string](t, rec)["error"])

	rec = doJSON(t, api, http.MethodDelete, "/api/products/p_missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProductMultipartUploadWithImage(t *testing.T) {
	api := newTestAPI(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("Product_Name", "Wings"))
	require.NoError(t, mw.WriteField("Price", "55"))
	require.NoError(t, mw.WriteField("Quantity", "4"))
	part, err := mw.CreateFormFile("image", "wings.png")
	require.NoError(t, err)
	_, err = part.Write(pngHeader)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/products", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	p := decodeBody[domain.Product](t, rec)
	assert.Equal(t, "Wings", p.Name)
	assert.Equal(t, domain.DefaultProductCategory, p.Category)
	require.True(t, strings.HasPrefix(p.Image, "/uploads/"), p.Image)
	assert.True(t, strings.HasSuffix(p.Image, ".png"))

	stored := filepath.Join(api.uploads.dir, strings.TrimPrefix(p.Image, "/uploads/"))
	_, err = os.Stat(stored)
	require.NoError(t, err)

	get := httptest.NewRequest(http.MethodGet, p.Image, nil)
	served := httptest.NewRecorder()
	api.Handler().ServeHTTP(served, get)
	assert.Equal(t, http.StatusOK, served.Code)
	assert.Equal(t, pngHeader, served.Body.Bytes())
}

func TestProductMultipartRejectsNonImage(t *testing.T) {
	api := newTestAPI(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("Product_Name", "Script"))
	part, err := mw.CreateFormFile("image", "evil.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("#!/bin/sh\necho hi\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/products", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = doJSON(t, api, http.MethodGet, "/api/products", nil)
	assert.Empty(t, decodeBody[[]domain.Product](t, rec))
}

func TestProductURLEncodedUpdate(t *testing.T) {
	api := newTestAPI(t)
	p := createProduct(t, api, map[string]any{"Product_Name": "Tea", "Price": 12, "Quantity": 3})

	form := url.Values{"Minimum_Stock": {"5"}}
	req := httptest.NewRequest(http.MethodPut, "/api/products/"+p.Code, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decodeBody[domain.Product](t, rec)
	assert.Equal(t, 5, updated.MinimumStock)
	assert.Equal(t, "Tea", updated.Name)
}

func TestInventoryPostDoesNotTouchProductQuantity(t *testing.T) {
	api := newTestAPI(t)
	p := createProduct(t, api, map[string]any{"Product_Name": "Tea", "Price": 12, "Quantity": 3})

	rec := doJSON(t, api, http.MethodPost, "/api/inventory", map[string]any{
		"Product_Code": p.Code,
		"Type":         "IN",
		"Quantity":     "7",
		"Note":         "Delivery",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	movement := decodeBody[domain.InventoryMovement](t, rec)
	assert.Equal(t, 7, movement.Quantity)
	assert.Equal(t, "Delivery", movement.Note)

	rec = doJSON(t, api, http.MethodGet, "/api/products", nil)
	products := decodeBody[[]domain.Product](t, rec)
	require.Len(t, products, 1)
	assert.Equal(t, 3, products[0].Quantity)
}

func TestInventoryPostRejectsNonPositiveQuantity(t *testing.T) {
	api := newTestAPI(t)

	rec := doJSON(t, api, http.MethodPost, "/api/inventory", map[string]any{
		"Product_Code": "p_any",
		"Quantity":     0,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStockAdjustmentMovesQuantityAndLedger(t *testing.T) {
	api := newTestAPI(t)
	p := createProduct(t, api, map[string]any{"Product_Name": "Tea", "Price": 12, "Quantity": 3})

	rec := doJSON(t, api, http.MethodPost, "/api/products/"+p.Code+"/stock", map[string]any{
		"Type":     "OUT",
		"Quantity": 2,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decodeBody[struct {
		Product  domain.Product           `json:"product"`
		Movement domain.InventoryMovement `json:"movement"`
	}](t, rec)
	assert.Equal(t, 1, body.Product.Quantity)
	assert.Equal(t, domain.MovementOut, body.Movement.Type)

	rec = doJSON(t, api, http.MethodPost, "/api/products/"+p.Code+"/stock", map[string]any{
		"Type":     "OUT",
		"Quantity": 5,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSalesCheckout(t *testing.T) {
	api := newTestAPI(t)
	p := createProduct(t, api, map[string]any{"Product_Name": "Latte", "Price": 30, "Quantity": 10})

	rec := doJSON(t, api, http.MethodPost, "/api/sales", map[string]any{
		"Items": []map[string]any{
			{"Product_Code": p.Code, "Quantity": 15},
			{"Product_Code": "p_ghost", "Quantity": 1},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	sale := decodeBody[domain.Sale](t, rec)
	require.Len(t, sale.Items, 1)
	assert.Equal(t, 10, sale.Items[0].Quantity)
	assert.Equal(t, "300", sale.Total.String())
	assert.Equal(t, domain.DefaultCustomer, sale.Customer)

	rec = doJSON(t, api, http.MethodGet, "/api/sales", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]domain.Sale](t, rec), 1)
}

func TestSalesErrors(t *testing.T) {
	api := newTestAPI(t)

	rec := doJSON(t, api, http.MethodPost, "/api/sales", map[string]any{"Items": []any{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No items in sale", decodeBody[map[string]string](t, rec)["error"])

	rec = doJSON(t, api, http.MethodPost, "/api/sales", map[string]any{
		"Items": []map[string]any{{"Product_Code": "p_ghost", "Quantity": 2}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No valid items to sell", decodeBody[map[string]string](t, rec)["error"])

	rec = doJSON(t, api, http.MethodGet, "/api/sales", nil)
	assert.Empty(t, decodeBody[[]domain.Sale](t, rec))
}

func TestReportsShape(t *testing.T) {
	api := newTestAPI(t)
	p := createProduct(t, api, map[string]any{"Product_Name": "Latte", "Price": 30, "Quantity": 3, "Minimum_Stock": 2})
	rec := doJSON(t, api, http.MethodPost, "/api/sales", map[string]any{
		"Items": []map[string]any{{"Product_Code": p.Code, "Quantity": 2}},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, api, http.MethodGet, "/api/reports", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody[map[string]json.RawMessage](t, rec)
	for _, key := range []string{"totalRevenue", "topSelling", "weeklyRevenue", "weeklyTopSelling", "recentInventory", "lowStock"} {
		assert.Contains(t, body, key)
	}
	assert.JSONEq(t, "60", string(body["totalRevenue"]))

	var low []domain.Product
	require.NoError(t, json.Unmarshal(body["lowStock"], &low))
	require.Len(t, low, 1)
	assert.Equal(t, p.Code, low[0].Code)
}

// brokenBackend fails every read.
type brokenBackend struct {
	store.Backend
}

func (brokenBackend) Load(context.Context, store.Collection) ([]byte, error) {
	return nil, store.IOError("read", store.Sales, errors.New("permission denied"))
}

func TestReportsFailureIsGeneric500(t *testing.T) {
	api := newTestAPIWithBackend(t, brokenBackend{Backend: memory.New()})

	rec := doJSON(t, api, http.MethodGet, "/api/reports", nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to generate report", decodeBody[map[string]string](t, rec)["error"])
}

func TestListFailureHidesCause(t *testing.T) {
	api := newTestAPIWithBackend(t, brokenBackend{Backend: memory.New()})

	rec := doJSON(t, api, http.MethodGet, "/api/products", nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "permission denied")
}
