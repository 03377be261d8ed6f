package domain

import "time"

// PaymentSession is the donation a client currently shows and polls.
// Status stays a free string because the gateway may report values
// beyond pending and paid.
type PaymentSession struct {
	TransactionID string
	QRString      string
	TotalAmount   int64
	ExpiredAt     time.Time
	Status        string
}

func (s PaymentSession) IsZero() bool {
	return s == PaymentSession{}
}

func (s PaymentSession) IsPaid() bool {
	return s.Status == string(StatusPaid)
}
