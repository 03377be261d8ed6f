package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"donation_backend/internal/domain"
	"donation_backend/internal/jsonapi"
	"donation_backend/internal/signature"
)

// Client calls the donation backend's /api/qris and /api/check-status.
type Client struct {
	baseURL    string
	secret     string
	qrisID     string
	packageIDs []string
	httpClient *http.Client
	now        func() time.Time
}

type Options struct {
	BaseURL    string
	Secret     string
	QRISID     string
	PackageIDs []string
	Timeout    time.Duration
}

func NewClient(opts Options) *Client {
	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		secret:     opts.Secret,
		qrisID:     opts.QRISID,
		packageIDs: opts.PackageIDs,
		httpClient: &http.Client{Timeout: opts.Timeout},
		now:        time.Now,
	}
}

type createQRReq struct {
	ID            string   `json:"id"`
	Amount        int64    `json:"amount"`
	UseUniqueCode bool     `json:"useUniqueCode"`
	PackageIDs    []string `json:"packageIds"`
}

// QR is the data of a successful /api/qris call.
type QR struct {
	TransactionID string `json:"transactionId"`
	QRString      string `json:"qr_string"`
	TotalAmount   *int64 `json:"totalAmount,omitempty"`
	ExpiredAt     string `json:"expiredAt,omitempty"`
}

// Status is the data of /api/check-status. Absent fields stay zero/nil.
type Status struct {
	Status         string `json:"status"`
	QRString       string `json:"qr_string,omitempty"`
	TotalAmount    *int64 `json:"totalAmount,omitempty"`
	OriginalAmount *int64 `json:"originalAmount,omitempty"`
	ExpiredAt      string `json:"expiredAt,omitempty"`
}

// APIError is a non-success HTTP answer. Message holds the body's
// "error" field and may be empty.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("gateway: status %d", e.StatusCode)
	}
	return e.Message
}

// CreateQR always asks for a unique code on the configured packages.
func (c *Client) CreateQR(ctx context.Context, amount int64) (*QR, error) {
	var out QR
	found, err := c.post(ctx, "/api/qris", createQRReq{
		ID:            c.qrisID,
		Amount:        amount,
		UseUniqueCode: true,
		PackageIDs:    c.packageIDs,
	}, &out)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, domain.ErrNoData
	}
	return &out, nil
}

// CheckStatus returns nil, nil when the response carries no data.
func (c *Client) CheckStatus(ctx context.Context, transactionID string) (*Status, error) {
	var out Status
	found, err := c.post(ctx, "/api/check-status", map[string]string{"transactionId": transactionID}, &out)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &out, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, out any) (bool, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return false, fmt.Errorf("marshal payload: %w", err)
	}

	h := http.Header{}
	h.Set("X-Request-ID", uuid.NewString())
	if c.secret != "" {
		ts, sig := signature.Headers(c.secret, body, c.now())
		h.Set(signature.HeaderTimestamp, ts)
		h.Set(signature.HeaderSignature, sig)
	}

	resp, err := jsonapi.Post(ctx, c.httpClient, c.baseURL+path, h, body)
	if err != nil {
		return false, err
	}
	if !resp.OK() {
		return false, &APIError{StatusCode: resp.StatusCode, Message: resp.Error}
	}
	return resp.Decode(out)
}
