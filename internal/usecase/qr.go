package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"donation_backend/internal/cashify"
	"donation_backend/internal/domain"
	"donation_backend/internal/events"
	"donation_backend/internal/notify"
)

type Upstream interface {
	CreateQRIS(ctx context.Context, req cashify.CreateQRISRequest) (*cashify.QRIS, error)
	CheckStatus(ctx context.Context, transactionID string) (*cashify.Status, error)
}

type Ledger interface {
	InsertTransaction(ctx context.Context, t *domain.Transaction) error
	GetByTransactionID(ctx context.Context, id string) (*domain.Transaction, error)
	UpdateStatus(ctx context.Context, id string, status domain.TxStatus) (bool, error)
}

// Defaults fill what the donation page leaves out of a create request.
type Defaults struct {
	QRISID         string
	PackageIDs     []string
	UseUniqueCode  bool
	ExpiredMinutes int
}

type Deps struct {
	Upstream  Upstream
	Ledger    Ledger
	Publisher events.Publisher
	Notifier  notify.Notifier
	Defaults  Defaults
	Log       *slog.Logger
	Now       func() time.Time
}

// DonationUsecase proxies the donation page to the QRIS gateway and keeps
// the ledger in step with what the gateway reports.
type DonationUsecase struct {
	upstream  Upstream
	ledger    Ledger
	publisher events.Publisher
	notifier  notify.Notifier
	defaults  Defaults
	log       *slog.Logger
	now       func() time.Time
}

func NewDonationUsecase(d Deps) *DonationUsecase {
	u := &DonationUsecase{
		upstream:  d.Upstream,
		ledger:    d.Ledger,
		publisher: d.Publisher,
		notifier:  d.Notifier,
		defaults:  d.Defaults,
		log:       d.Log,
		now:       d.Now,
	}
	if u.publisher == nil {
		u.publisher = events.Noop{}
	}
	if u.notifier == nil {
		u.notifier = notify.Noop{}
	}
	if u.log == nil {
		u.log = slog.Default()
	}
	if u.now == nil {
		u.now = time.Now
	}
	return u
}

type CreateInput struct {
	QRISID        string
	Amount        int64
	UseUniqueCode *bool
	PackageIDs    []string
}

func (u *DonationUsecase) CreateQR(ctx context.Context, in CreateInput) (*cashify.QRIS, error) {
	if in.Amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	req := cashify.CreateQRISRequest{
		ID:               in.QRISID,
		Amount:           in.Amount,
		UseUniqueCode:    u.defaults.UseUniqueCode,
		PackageIDs:       in.PackageIDs,
		ExpiredInMinutes: u.defaults.ExpiredMinutes,
	}
	if req.ID == "" {
		req.ID = u.defaults.QRISID
	}
	if len(req.PackageIDs) == 0 {
		req.PackageIDs = u.defaults.PackageIDs
	}
	if in.UseUniqueCode != nil {
		req.UseUniqueCode = *in.UseUniqueCode
	}

	qr, err := u.upstream.CreateQRIS(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("create qris: %w", err)
	}
	if qr.TransactionID == "" {
		return nil, domain.ErrNoTransactionID
	}

	tx := &domain.Transaction{
		TransactionID: qr.TransactionID,
		QRString:      qr.QRString,
		Amount:        in.Amount,
		Status:        domain.StatusPending,
	}
	if qr.TotalAmount != nil {
		tx.Amount = *qr.TotalAmount
	}
	if t, err := time.Parse(time.RFC3339Nano, qr.ExpiredAt); err == nil {
		tx.ExpiredAt = &t
	}
	// ledger failures do not fail the create
	if err := u.ledger.InsertTransaction(ctx, tx); err != nil {
		u.log.Error("failed to record transaction", "transaction_id", tx.TransactionID, "error", err)
	}

	u.log.Info("qris created", "transaction_id", qr.TransactionID, "amount", tx.Amount)
	return qr, nil
}

// CheckStatus asks the gateway and records the answer. A nil status means
// the gateway has no data for the id.
func (u *DonationUsecase) CheckStatus(ctx context.Context, transactionID string) (*cashify.Status, error) {
	st, err := u.upstream.CheckStatus(ctx, transactionID)
	if err != nil {
		return nil, fmt.Errorf("check status: %w", err)
	}
	if st == nil || st.Status == "" {
		return st, nil
	}

	first, err := u.ledger.UpdateStatus(ctx, transactionID, domain.TxStatus(st.Status))
	switch {
	case errors.Is(err, domain.ErrNotFound):
		u.log.Debug("status for unknown transaction", "transaction_id", transactionID)
	case err != nil:
		u.log.Error("failed to update transaction status", "transaction_id", transactionID, "error", err)
	case first:
		u.onPaid(ctx, transactionID, st)
	}
	return st, nil
}

func (u *DonationUsecase) onPaid(ctx context.Context, transactionID string, st *cashify.Status) {
	paidAt := u.now()

	var total int64
	if tx, err := u.ledger.GetByTransactionID(ctx, transactionID); err == nil {
		total = tx.Amount
		if tx.PaidAt != nil {
			paidAt = *tx.PaidAt
		}
	}
	if st.TotalAmount != nil {
		total = *st.TotalAmount
	}

	u.log.Info("donation paid", "transaction_id", transactionID, "amount", total)

	if err := u.publisher.PublishDonationPaid(ctx, events.NewDonationPaid(transactionID, total, paidAt)); err != nil {
		u.log.Error("failed to publish donation event", "transaction_id", transactionID, "error", err)
	}
	if err := u.notifier.DonationPaid(ctx, transactionID, total, paidAt); err != nil {
		u.log.Error("failed to notify donation", "transaction_id", transactionID, "error", err)
	}
}
