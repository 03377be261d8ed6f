package domain

import "errors"

var (
	ErrInvalidAmount   = errors.New("amount must be > 0")
	ErrNotFound        = errors.New("not found")
	ErrNoTransactionID = errors.New("gateway returned no transaction id")
	ErrNoData          = errors.New("gateway returned no data")
)
