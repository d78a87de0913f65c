package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bft-labs/orderly/internal/domain"
	"github.com/bft-labs/orderly/internal/orderstore"
	"github.com/bft-labs/orderly/pkg/log"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 8 << 20

const notFoundMessage = "Resource not found."

// Querier produces pages of the filtered order.
type Querier interface {
	Query(ctx context.Context, term string, offset, limit int) (domain.Page, error)
	Count(ctx context.Context, term string) (int, error)
}

// Selector reads and writes per-client selections.
type Selector interface {
	Selected(clientID string) []int64
	Set(clientID string, ids []int64, selected bool) int
}

// Reorderer applies client-submitted orders.
type Reorderer interface {
	Submit(ctx context.Context, clientID string, ids []int64) (orderstore.Result, error)
}

// Handler serves the orderly HTTP API.
type Handler struct {
	router http.Handler

	query     Querier
	selection Selector
	reorder   Reorderer

	defaultLimit int
	origins      []string
	state        func() string
	logger       log.Logger
}

// Option configures optional behavior of a Handler.
type Option func(*Handler)

// WithLogger sets the logger for access and error logging.
func WithLogger(logger log.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithDefaultLimit sets the page size used when the limit parameter is
// missing or invalid.
func WithDefaultLimit(n int) Option {
	return func(h *Handler) {
		if n > 0 {
			h.defaultLimit = n
		}
	}
}

// WithAllowedOrigins enables CORS for browser clients served from origins.
func WithAllowedOrigins(origins []string) Option {
	return func(h *Handler) {
		h.origins = origins
	}
}

// WithStateFunc sets the function reporting lifecycle state on /healthz.
func WithStateFunc(fn func() string) Option {
	return func(h *Handler) {
		if fn != nil {
			h.state = fn
		}
	}
}

// NewHandler creates the HTTP handler.
func NewHandler(q Querier, s Selector, r Reorderer, opts ...Option) *Handler {
	h := &Handler{
		query:        q,
		selection:    s,
		reorder:      r,
		defaultLimit: 20,
		state:        func() string { return "Running" },
		logger:       log.NewNoopLogger(),
	}
	for _, opt := range opts {
		opt(h)
	}

	var router http.Handler = newRouter(h)
	if len(h.origins) > 0 {
		router = handlers.CORS(
			handlers.AllowedOrigins(h.origins),
			handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost}),
			handlers.AllowedHeaders([]string{"Content-Type"}),
		)(router)
	}
	h.router = handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{h.logger}),
	)(router)
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// newRouter creates a new mux http router.
func newRouter(h *Handler) http.Handler {
	router := mux.NewRouter()
	router.Use(h.instrument)

	router.HandleFunc("/api/items", h.handleGetItems).Methods(http.MethodGet).Name("GetItems")
	router.HandleFunc("/api/select", h.handlePostSelect).Methods(http.MethodPost).Name("PostSelect")
	router.HandleFunc("/api/order", h.handlePostOrder).Methods(http.MethodPost).Name("PostOrder")
	router.HandleFunc("/api/state", h.handleGetState).Methods(http.MethodGet).Name("GetState")
	router.HandleFunc("/healthz", h.handleGetHealth).Methods(http.MethodGet).Name("GetHealth")
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet).Name("GetMetrics")

	notFound := h.instrument(http.HandlerFunc(h.handleNotFound))
	router.NotFoundHandler = notFound
	router.MethodNotAllowedHandler = notFound

	return router
}

type itemsResponse struct {
	Items   []domain.Item `json:"items"`
	HasMore bool          `json:"hasMore"`
	Total   int           `json:"total"`
}

type selectRequest struct {
	ClientID string  `json:"clientId"`
	IDs      []int64 `json:"ids"`
	Selected bool    `json:"selected"`
}

type orderRequest struct {
	ClientID string  `json:"clientId"`
	Order    []int64 `json:"order"`
}

type stateResponse struct {
	Selected []int64 `json:"selected"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

type healthResponse struct {
	OK    bool   `json:"ok"`
	State string `json:"state"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (h *Handler) handleGetItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	offset := intParam(q.Get("offset"), 0)
	limit := intParam(q.Get("limit"), h.defaultLimit)
	search := q.Get("search")

	resp := itemsResponse{Items: []domain.Item{}}
	page, err := h.query.Query(r.Context(), search, offset, limit)
	if err != nil {
		h.logger.Warn("query failed",
			log.String("search", search),
			log.Int("offset", offset),
			log.Err(err),
		)
		h.writeJSON(w, http.StatusOK, resp)
		return
	}
	resp.Items = page.WireItems()
	resp.HasMore = page.HasMore
	if total, err := h.query.Count(r.Context(), search); err == nil {
		resp.Total = total
	}

	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handlePostSelect(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if !h.decode(w, r, &req) {
		h.writeJSON(w, http.StatusOK, okResponse{OK: true})
		return
	}

	changed := h.selection.Set(req.ClientID, req.IDs, req.Selected)
	h.logger.Debug("selection updated",
		log.String("client", req.ClientID),
		log.IDs("ids", req.IDs),
		log.Bool("selected", req.Selected),
		log.Int("changed", changed),
	)
	h.writeJSON(w, http.StatusOK, okResponse{OK: true})
}

func (h *Handler) handlePostOrder(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if !h.decode(w, r, &req) {
		h.writeJSON(w, http.StatusOK, okResponse{OK: true})
		return
	}

	if _, err := h.reorder.Submit(r.Context(), req.ClientID, req.Order); err != nil {
		h.logger.Warn("order submission failed", log.String("client", req.ClientID), log.Err(err))
	}
	h.writeJSON(w, http.StatusOK, okResponse{OK: true})
}

func (h *Handler) handleGetState(w http.ResponseWriter, r *http.Request) {
	clientID := r.URL.Query().Get("clientId")
	h.writeJSON(w, http.StatusOK, stateResponse{Selected: h.selection.Selected(clientID)})
}

func (h *Handler) handleGetHealth(w http.ResponseWriter, r *http.Request) {
	state := h.state()
	h.writeJSON(w, http.StatusOK, healthResponse{OK: state == "Running", State: state})
}

func (h *Handler) handleNotFound(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusNotFound, errorResponse{Success: false, Message: notFoundMessage})
}

// decode reads a JSON body into dst. It returns false, after logging, when
// the body is missing or malformed.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		h.logger.Debug("ignoring malformed body",
			log.String("path", r.URL.Path),
			log.Err(err),
		)
		return false
	}
	return true
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encode response", log.Err(err))
	}
}

// intParam parses a non-negative integer query parameter, returning def
// when it is missing or invalid.
func intParam(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return def
	}
	return n
}
