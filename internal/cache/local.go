package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"donation_backend/internal/domain"
)

// record is the stored JSON shape of one payment session.
type record struct {
	QRString      string `json:"qrString"`
	TransactionID string `json:"transactionId"`
	TotalAmount   int64  `json:"totalAmount"`
	ExpiredAt     string `json:"expiredAt"`
	Status        string `json:"status"`
	SavedAt       int64  `json:"savedAt"`
}

// Entry is a cached session plus the time it was written.
type Entry struct {
	Session domain.PaymentSession
	SavedAt time.Time
}

// Local caches payment sessions by transaction id on top of a Backend.
// Storage failures are logged and never returned to the caller.
type Local struct {
	backend Backend
	prefix  string
	log     *slog.Logger
	now     func() time.Time

	mu        sync.Mutex
	lastSaved int64
}

func NewLocal(backend Backend, prefix string, log *slog.Logger) *Local {
	return &Local{
		backend: backend,
		prefix:  prefix,
		log:     log,
		now:     time.Now,
	}
}

func (l *Local) Key(transactionID string) string {
	return l.prefix + transactionID
}

func (l *Local) Write(ctx context.Context, transactionID string, s domain.PaymentSession) {
	rec := record{
		QRString:      s.QRString,
		TransactionID: s.TransactionID,
		TotalAmount:   s.TotalAmount,
		Status:        s.Status,
		SavedAt:       l.stamp(),
	}
	if !s.ExpiredAt.IsZero() {
		rec.ExpiredAt = s.ExpiredAt.UTC().Format(time.RFC3339Nano)
	}

	raw, err := json.Marshal(rec)
	if err != nil {
		l.log.Warn("cache save failed", "transaction_id", transactionID, "error", err)
		return
	}
	if err := l.backend.Set(ctx, l.Key(transactionID), raw); err != nil {
		l.log.Warn("cache save failed", "transaction_id", transactionID, "error", err)
	}
}

// Read returns the cached entry, or false when it is absent, unreadable or
// malformed.
func (l *Local) Read(ctx context.Context, transactionID string) (Entry, bool) {
	raw, err := l.backend.Get(ctx, l.Key(transactionID))
	if err != nil {
		if !errors.Is(err, ErrMiss) {
			l.log.Debug("cache read failed", "transaction_id", transactionID, "error", err)
		}
		return Entry{}, false
	}

	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		l.log.Debug("cache entry malformed", "transaction_id", transactionID, "error", err)
		return Entry{}, false
	}

	e := Entry{
		Session: domain.PaymentSession{
			TransactionID: rec.TransactionID,
			QRString:      rec.QRString,
			TotalAmount:   rec.TotalAmount,
			Status:        rec.Status,
		},
		SavedAt: time.UnixMilli(rec.SavedAt),
	}
	if rec.ExpiredAt != "" {
		if t, err := time.Parse(time.RFC3339Nano, rec.ExpiredAt); err == nil {
			e.Session.ExpiredAt = t
		}
	}
	return e, true
}

func (l *Local) Remove(ctx context.Context, transactionID string) {
	if err := l.backend.Delete(ctx, l.Key(transactionID)); err != nil {
		l.log.Debug("cache remove failed", "transaction_id", transactionID, "error", err)
	}
}

// stamp returns a save time in unix ms that never goes backwards within
// this process, even if the wall clock does.
func (l *Local) stamp() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	ms := l.now().UnixMilli()
	if ms < l.lastSaved {
		ms = l.lastSaved
	}
	l.lastSaved = ms
	return ms
}
