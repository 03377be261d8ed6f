package domain

import "time"

type TxStatus string

const (
	StatusPending TxStatus = "pending"
	StatusPaid    TxStatus = "paid"
	StatusExpired TxStatus = "expired"
)

// Transaction is the server-side ledger row for one QRIS donation.
type Transaction struct {
	ID            int64
	TransactionID string
	QRString      string
	Amount        int64
	Status        TxStatus
	ExpiredAt     *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
	PaidAt        *time.Time
}
