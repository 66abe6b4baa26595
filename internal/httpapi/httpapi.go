package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kopano7/Lejone-wings-cafe/internal/domain"
	"github.com/kopano7/Lejone-wings-cafe/internal/service"
	"github.com/kopano7/Lejone-wings-cafe/internal/store"
)

const maxJSONBody = 1 << 20

type Options struct {
	AllowedOrigin  string
	UploadsDir     string
	MaxUploadBytes int64
}

type API struct {
	service *service.Service
	uploads *uploadStore
	origin  string
	logger  *zap.Logger
}

func New(svc *service.Service, opts Options, logger *zap.Logger) *API {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.AllowedOrigin == "" {
		opts.AllowedOrigin = "*"
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 10 << 20
	}
	return &API{
		service: svc,
		uploads: newUploadStore(opts.UploadsDir, opts.MaxUploadBytes),
		origin:  opts.AllowedOrigin,
		logger:  logger,
	}
}

func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", a.handleHealth)

	mux.HandleFunc("/api/products", a.handleProducts)
	mux.HandleFunc("/api/products/", a.handleProductActions)
	mux.HandleFunc("/api/inventory", a.handleInventory)
	mux.HandleFunc("/api/sales", a.handleSales)
	mux.HandleFunc("/api/reports", a.handleReports)

	mux.Handle(uploadsPrefix, a.uploads.handler())

	return a.withMiddleware(mux)
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.writeMethodNotAllowed(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) handleProducts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		products, err := a.service.ListProducts(r.Context())
		if err != nil {
			a.writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, products)
	case http.MethodPost:
		fields, err := a.parseProductFields(r)
		if err != nil {
			a.writeError(w, http.StatusBadRequest, err)
			return
		}

		product, err := a.service.CreateProduct(r.Context(), fields)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, product)
	default:
		a.writeMethodNotAllowed(w)
	}
}

// handleProductActions serves /api/products/{code} and
// /api/products/{code}/stock.
func (a *API) handleProductActions(w http.ResponseWriter, r *http.Request) {
	tail := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/products/"), "/")
	if tail == "" {
		a.writeError(w, http.StatusBadRequest, errors.New("product code required"))
		return
	}

	if code, ok := strings.CutSuffix(tail, "/stock"); ok {
		a.handleStockAdjustment(w, r, code)
		return
	}
	if strings.Contains(tail, "/") {
		a.writeError(w, http.StatusNotFound, errors.New("unknown product action"))
		return
	}

	switch r.Method {
	case http.MethodPut, http.MethodPatch:
		fields, err := a.parseProductFields(r)
		if err != nil {
			a.writeError(w, http.StatusBadRequest, err)
			return
		}

		updated, err := a.service.UpdateProduct(r.Context(), tail, fields)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	case http.MethodDelete:
		if err := a.service.DeleteProduct(r.Context(), tail); err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"message": "Product deleted"})
	default:
		a.writeMethodNotAllowed(w)
	}
}

func (a *API) handleStockAdjustment(w http.ResponseWriter, r *http.Request, code string) {
	if r.Method != http.MethodPost {
		a.writeMethodNotAllowed(w)
		return
	}

	req, err := decodeMovement(r)
	if err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}

	product, movement, err := a.service.AdjustStock(r.Context(), code, req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"product":  product,
		"movement": movement,
	})
}

func (a *API) handleInventory(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		movements, err := a.service.ListInventory(r.Context())
		if err != nil {
			a.writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, movements)
	case http.MethodPost:
		req, err := decodeMovement(r)
		if err != nil {
			a.writeError(w, http.StatusBadRequest, err)
			return
		}

		movement, err := a.service.RecordMovement(r.Context(), req)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, movement)
	default:
		a.writeMethodNotAllowed(w)
	}
}

func (a *API) handleSales(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		sales, err := a.service.ListSales(r.Context())
		if err != nil {
			a.writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, sales)
	case http.MethodPost:
		var req domain.CheckoutRequest
		if err := decodeJSON(r, &req); err != nil {
			a.writeError(w, http.StatusBadRequest, err)
			return
		}

		sale, err := a.service.Checkout(r.Context(), req)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, sale)
	default:
		a.writeMethodNotAllowed(w)
	}
}

func (a *API) handleReports(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.writeMethodNotAllowed(w)
		return
	}

	rep, err := a.service.Report(r.Context())
	if err != nil {
		a.logger.Error("report generation failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "Failed to generate report"})
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// writeServiceError maps store sentinels to status codes and the messages the
// UI shows verbatim.
func (a *API) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "Product not found"})
	case errors.Is(err, store.ErrEmptySale):
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "No items in sale"})
	case errors.Is(err, store.ErrNothingToSell):
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "No valid items to sell"})
	case errors.Is(err, store.ErrInvalidMovement):
		a.writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, store.ErrInsufficientStock):
		a.writeError(w, http.StatusConflict, err)
	default:
		a.writeError(w, http.StatusInternalServerError, err)
	}
}

func (a *API) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Access-Control-Allow-Origin", a.origin)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,PATCH,DELETE,OPTIONS")
		w.Header().Set("Vary", "Origin")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		if r.Body != nil && (r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch) {
			limit := int64(maxJSONBody)
			if isMultipart(r) {
				limit = a.uploads.maxBytes + maxJSONBody
			}
			r.Body = http.MaxBytesReader(w, r.Body, limit)
		}

		startedAt := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		a.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(startedAt)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func decodeJSON(r *http.Request, dest any) error {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return errors.New("request body too large")
		}
		return errors.New("invalid JSON body")
	}
	return nil
}

func (a *API) writeMethodNotAllowed(w http.ResponseWriter) {
	a.writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

func (a *API) writeError(w http.ResponseWriter, status int, err error) {
	// 5xx details stay in the log; clients get a generic message.
	msg := err.Error()
	if status >= 500 {
		a.logger.Error("internal error", zap.Int("status", status), zap.Error(err))
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
