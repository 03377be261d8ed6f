package card

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"donation_backend/internal/amount"
	"donation_backend/internal/config"
	"donation_backend/internal/domain"
)

const (
	LabelExpired = "Expired"
	LabelPaid    = "Lunas"
	LabelPending = "Menunggu"
	TextTimeUp   = "Habis"
)

// Card is everything the QR card shows for one session at one instant.
type Card struct {
	QRImageURL    string
	TransactionID string
	TotalAmount   int64
	Amount        string
	Status        string
	Label         string
	Remaining     time.Duration
	Minutes       int64
	Seconds       int64
	RemainingText string
	Progress      float64
	Expired       bool
	ExpiresAt     string
}

// Renderer turns sessions into cards. It performs no I/O.
type Renderer struct {
	QRImageBaseURL string
	Window         time.Duration
}

func NewRenderer(qrImageBaseURL string) *Renderer {
	return &Renderer{QRImageBaseURL: qrImageBaseURL, Window: config.DefaultExpiry}
}

func (r *Renderer) Render(s domain.PaymentSession, now time.Time) Card {
	remaining := s.ExpiredAt.Sub(now)
	expired := IsExpired(remaining, s.Status)

	c := Card{
		QRImageURL:    r.QRImageURL(s.QRString),
		TransactionID: s.TransactionID,
		TotalAmount:   s.TotalAmount,
		Amount:        amount.FormatIDR(s.TotalAmount),
		Status:        s.Status,
		Remaining:     remaining,
		Minutes:       max(0, int64(remaining/time.Minute)),
		Seconds:       max(0, int64(remaining%time.Minute/time.Second)),
		Expired:       expired,
		ExpiresAt:     s.ExpiredAt.Local().Format("02/01/06 15.04.05"),
	}

	switch {
	case expired:
		c.Label = LabelExpired
	case s.IsPaid():
		c.Label = LabelPaid
	default:
		c.Label = LabelPending
	}

	if expired {
		c.RemainingText = TextTimeUp
	} else {
		c.RemainingText = fmt.Sprintf("%dm %ds", c.Minutes, c.Seconds)
		c.Progress = progress(remaining, r.Window)
	}
	return c
}

// IsExpired is derived, never stored: a paid session never expires.
func IsExpired(remaining time.Duration, status string) bool {
	return remaining <= 0 && status != string(domain.StatusPaid)
}

func progress(remaining, window time.Duration) float64 {
	if window <= 0 {
		return 0
	}
	p := float64(remaining) / float64(window) * 100
	return min(100, max(0, p))
}

// QRImageURL points the external generator at the payload.
func (r *Renderer) QRImageURL(payload string) string {
	return r.QRImageBaseURL + "?size=480x480&style=2&color=0ea5e9&data=" + encodeComponent(payload)
}

// encodeComponent escapes like a URI component: spaces become %20, not +.
func encodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// Countdown calls draw immediately and then once per interval until ctx
// is done. session is re-read on every tick so status updates show up.
func (r *Renderer) Countdown(ctx context.Context, interval time.Duration, session func() domain.PaymentSession, draw func(Card)) {
	draw(r.Render(session(), time.Now()))

	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			draw(r.Render(session(), now))
		}
	}
}
