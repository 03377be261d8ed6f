package httpd

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"

	"donation_backend/internal/amount"
	"donation_backend/internal/cashify"
	"donation_backend/internal/domain"
	"donation_backend/internal/repository"
	"donation_backend/internal/usecase"
)

type Donations interface {
	CreateQR(ctx context.Context, in usecase.CreateInput) (*cashify.QRIS, error)
	CheckStatus(ctx context.Context, transactionID string) (*cashify.Status, error)
}

type Transactions interface {
	GetByTransactionID(ctx context.Context, id string) (*domain.Transaction, error)
	ListTransactions(ctx context.Context, f repository.TxFilter, limit, offset int) ([]domain.Transaction, error)
	Ping(ctx context.Context) error
}

type Handler struct {
	uc       Donations
	repo     Transactions
	validate *validator.Validate
	log      *slog.Logger
}

func NewHandler(uc Donations, repo Transactions, log *slog.Logger) *Handler {
	return &Handler{
		uc:       uc,
		repo:     repo,
		validate: validator.New(),
		log:      log,
	}
}

type RouteConfig struct {
	AllowedOrigins []string
	Signature      SigConfig
}

func (h *Handler) Routes(cfg RouteConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(AccessLog(h.log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Timestamp", "X-Signature", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Use(SignatureMiddleware(cfg.Signature))

	r.Post("/api/qris", h.CreateQR)
	r.Post("/api/check-status", h.CheckStatus)
	r.Get("/api/v1/transactions", h.ListTransactions)
	r.Get("/api/v1/transactions/{transactionId}", h.GetTransaction)
	r.Get("/api/v1/healthz", h.Healthz)

	return r
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// POST /api/qris
func (h *Handler) CreateQR(w http.ResponseWriter, r *http.Request) {
	var req CreateQRReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Error: "invalid json"})
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Error: err.Error()})
		return
	}

	qr, err := h.uc.CreateQR(r.Context(), usecase.CreateInput{
		QRISID:        req.ID,
		Amount:        req.Amount,
		UseUniqueCode: req.UseUniqueCode,
		PackageIDs:    req.PackageIDs,
	})
	if err != nil {
		h.writeUpstreamError(w, r, "create qris failed", err)
		return
	}

	writeJSON(w, http.StatusOK, CreateQRResp{Data: qr})
}

// POST /api/check-status
func (h *Handler) CheckStatus(w http.ResponseWriter, r *http.Request) {
	var req CheckStatusReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Error: "invalid json"})
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Error: err.Error()})
		return
	}

	st, err := h.uc.CheckStatus(r.Context(), req.TransactionID)
	if err != nil {
		h.writeUpstreamError(w, r, "check status failed", err)
		return
	}

	writeJSON(w, http.StatusOK, CheckStatusResp{Data: st})
}

// writeUpstreamError keeps 4xx answers of the gateway and maps everything
// else to 502.
func (h *Handler) writeUpstreamError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	h.log.Error(msg, "error", err, "request_id", middleware.GetReqID(r.Context()))

	if errors.Is(err, domain.ErrInvalidAmount) {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Error: err.Error()})
		return
	}

	var apiErr *cashify.APIError
	if errors.As(err, &apiErr) {
		code := http.StatusBadGateway
		if apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
			code = apiErr.StatusCode
		}
		text := apiErr.Message
		if text == "" {
			text = http.StatusText(code)
		}
		writeJSON(w, code, ErrorResp{Error: text})
		return
	}

	writeJSON(w, http.StatusBadGateway, ErrorResp{Error: "payment gateway unavailable"})
}

// GET /api/v1/transactions?status=&limit=&offset=
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := repository.TxFilter{
		TransactionID: q.Get("transactionId"),
	}
	if st := q.Get("status"); st != "" {
		filter.Status = domain.TxStatus(st)
	}

	limit := 50
	offset := 0
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	items, err := h.repo.ListTransactions(r.Context(), filter, limit, offset)
	if err != nil {
		h.log.Error("list transactions failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Error: err.Error()})
		return
	}

	out := make([]TxItem, 0, len(items))
	for _, t := range items {
		out = append(out, toTxItem(t))
	}
	writeJSON(w, http.StatusOK, out)
}

// GET /api/v1/transactions/{transactionId}
func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "transactionId")
	t, err := h.repo.GetByTransactionID(r.Context(), id)
	if errors.Is(err, domain.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, ErrorResp{Error: "transaction not found"})
		return
	}
	if err != nil {
		h.log.Error("get transaction failed", "transaction_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, toTxItem(*t))
}

func toTxItem(t domain.Transaction) TxItem {
	return TxItem{
		TransactionID: t.TransactionID,
		QRString:      t.QRString,
		Amount:        t.Amount,
		AmountText:    amount.FormatIDR(t.Amount),
		Status:        string(t.Status),
		ExpiredAt:     t.ExpiredAt,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
		PaidAt:        t.PaidAt,
	}
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "db unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
