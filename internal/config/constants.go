package config

import "time"

const (
	// QR validity assumed when the gateway omits expiredAt; also the
	// reference window of the countdown progress bar.
	DefaultExpiry = 10 * time.Minute

	PollInterval      = 5 * time.Second
	CountdownInterval = 1 * time.Second

	// Outbound HTTP timeouts
	GatewayTimeout  = 15 * time.Second
	UpstreamTimeout = 30 * time.Second

	CachePrefix = "donasi:payment:"

	// Location query parameter carrying the active transaction id
	PaymentIDParam = "paymentId"

	DefaultPreset = 10000

	MsgCreateFailed        = "Gagal membuat QRIS"
	MsgCreateFailedNetwork = "Gagal membuat QRIS. Periksa koneksi atau API."
)

// DonationPresets in rupiah.
var DonationPresets = []int64{10000, 25000, 50000, 100000}
