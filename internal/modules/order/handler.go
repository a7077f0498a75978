package order

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/matthewtrundle/premieratx-orders/internal/modules/payment"
)

const maxBodyBytes = 1 << 20

// Handler exposes the payment-to-order endpoint.
type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

// RegisterRoutes mounts the order endpoints. mw wraps the order routes only,
// so health checks stay unauthenticated.
func (h *Handler) RegisterRoutes(r *chi.Mux, mw ...func(http.Handler) http.Handler) {
	r.Get("/healthz", h.health) // GET /healthz

	r.With(mw...).Post("/create-shopify-order", h.createFromPayment)       // POST /create-shopify-order
	r.With(mw...).Post("/api/v1/orders/from-payment", h.createFromPayment) // POST /api/v1/orders/from-payment
}

func (h *Handler) createFromPayment(w http.ResponseWriter, r *http.Request) {
	var req payment.Request
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body: " + err.Error()})
		return
	}
	res, err := h.service.CreateFromPayment(r.Context(), req)
	if err != nil {
		respond(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	respond(w, http.StatusOK, res)
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

// CORS lets the storefront call the endpoints from the browser. It answers
// preflight requests itself, so it must sit on the root router.
func CORS() func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Client-Info", "Apikey"},
		MaxAge:         300,
	})
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
