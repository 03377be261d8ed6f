package cashify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"donation_backend/internal/jsonapi"
)

const (
	pathCreateQRIS  = "/api/generate/qris"
	pathCheckStatus = "/api/generate/check-status"
)

// Client talks to the upstream QRIS gateway. It is only used server-side:
// the license key never leaves the backend.
type Client struct {
	baseURL    string
	licenseKey string
	httpClient *http.Client
}

func NewClient(baseURL, licenseKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		licenseKey: licenseKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type CreateQRISRequest struct {
	ID               string   `json:"id"`
	Amount           int64    `json:"amount"`
	UseUniqueCode    bool     `json:"useUniqueCode"`
	PackageIDs       []string `json:"packageIds"`
	ExpiredInMinutes int      `json:"expiredInMinutes,omitempty"`
}

type QRIS struct {
	TransactionID  string `json:"transactionId"`
	QRString       string `json:"qr_string"`
	TotalAmount    *int64 `json:"totalAmount,omitempty"`
	OriginalAmount *int64 `json:"originalAmount,omitempty"`
	ExpiredAt      string `json:"expiredAt,omitempty"`
}

type Status struct {
	Status         string `json:"status"`
	QRString       string `json:"qr_string,omitempty"`
	TotalAmount    *int64 `json:"totalAmount,omitempty"`
	OriginalAmount *int64 `json:"originalAmount,omitempty"`
	ExpiredAt      string `json:"expiredAt,omitempty"`
}

// APIError is a non-2xx answer from the gateway.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("cashify: status %d", e.StatusCode)
	}
	return fmt.Sprintf("cashify: status %d: %s", e.StatusCode, e.Message)
}

func (c *Client) CreateQRIS(ctx context.Context, req CreateQRISRequest) (*QRIS, error) {
	var out QRIS
	found, err := c.post(ctx, pathCreateQRIS, req, &out)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, &APIError{StatusCode: http.StatusBadGateway, Message: "empty response"}
	}
	return &out, nil
}

// CheckStatus returns nil, nil when the gateway answers without data.
func (c *Client) CheckStatus(ctx context.Context, transactionID string) (*Status, error) {
	var out Status
	found, err := c.post(ctx, pathCheckStatus, map[string]string{"transactionId": transactionID}, &out)
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
	if c.licenseKey != "" {
		h.Set("x-license-key", c.licenseKey)
	}

	resp, err := jsonapi.Post(ctx, c.httpClient, c.baseURL+path, h, body)
	if err != nil {
		return false, err
	}
	if !resp.OK() {
		msg := resp.Error
		if msg == "" {
			msg = resp.Message
		}
		return false, &APIError{StatusCode: resp.StatusCode, Message: msg}
	}
	return resp.Decode(out)
}
