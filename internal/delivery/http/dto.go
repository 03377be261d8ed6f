package httpd

import (
	"time"

	"donation_backend/internal/cashify"
)

type CreateQRReq struct {
	ID            string   `json:"id"`
	Amount        int64    `json:"amount" validate:"required,gt=0"`
	UseUniqueCode *bool    `json:"useUniqueCode"`
	PackageIDs    []string `json:"packageIds" validate:"omitempty,dive,required"`
}

type CheckStatusReq struct {
	TransactionID string `json:"transactionId" validate:"required"`
}

type CreateQRResp struct {
	Data *cashify.QRIS `json:"data"`
}

// CheckStatusResp leaves out data when the gateway has none.
type CheckStatusResp struct {
	Data *cashify.Status `json:"data,omitempty"`
}

type ErrorResp struct {
	Error string `json:"error"`
}

type TxItem struct {
	TransactionID string     `json:"transactionId"`
	QRString      string     `json:"qr_string"`
	Amount        int64      `json:"amount"`
	AmountText    string     `json:"amountText"`
	Status        string     `json:"status"`
	ExpiredAt     *time.Time `json:"expiredAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
	PaidAt        *time.Time `json:"paidAt,omitempty"`
}
