package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"donation_backend/internal/cache"
	"donation_backend/internal/card"
	"donation_backend/internal/config"
	"donation_backend/internal/domain"
	"donation_backend/internal/gateway"
)

type Gateway interface {
	CreateQR(ctx context.Context, amount int64) (*gateway.QR, error)
	CheckStatus(ctx context.Context, transactionID string) (*gateway.Status, error)
}

type Cache interface {
	Write(ctx context.Context, transactionID string, s domain.PaymentSession)
	Read(ctx context.Context, transactionID string) (cache.Entry, bool)
	Remove(ctx context.Context, transactionID string)
}

// Location is the page address holding the active payment id.
type Location interface {
	PaymentID() string
	ReplacePaymentID(id string)
}

// Alerter shows a blocking, user-visible message.
type Alerter interface {
	Alert(msg string)
}

type AlertFunc func(msg string)

func (f AlertFunc) Alert(msg string) { f(msg) }

type State string

const (
	StateEmpty   State = "empty"
	StateLoading State = "loading"
	StatePending State = "pending"
	StatePaid    State = "paid"
	StateExpired State = "expired"
)

// Snapshot is a copy of the controller's view state.
type Snapshot struct {
	Session domain.PaymentSession
	Loading bool
}

func (s Snapshot) State(now time.Time) State {
	switch {
	case s.Loading:
		return StateLoading
	case s.Session.QRString == "":
		return StateEmpty
	case s.Session.IsPaid():
		return StatePaid
	case s.Session.Status == string(domain.StatusExpired),
		card.IsExpired(s.Session.ExpiredAt.Sub(now), s.Session.Status):
		return StateExpired
	default:
		return StatePending
	}
}

type Deps struct {
	Gateway      Gateway
	Cache        Cache
	Location     Location
	Alerter      Alerter
	Log          *slog.Logger
	PollInterval time.Duration
	Now          func() time.Time
}

// Controller owns the single active payment session of one client. All
// asynchronous results are checked against the controller's liveness, a
// restore epoch and a status sequence number before they touch state.
type Controller struct {
	gw       Gateway
	cache    Cache
	loc      Location
	alert    Alerter
	log      *slog.Logger
	interval time.Duration
	now      func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	session domain.PaymentSession
	loading bool
	epoch   uint64
	seq     uint64
	applied uint64

	pollID   string
	pollStop context.CancelFunc
	// pollers and background restores
	wg sync.WaitGroup
}

func New(parent context.Context, d Deps) *Controller {
	ctx, cancel := context.WithCancel(parent)
	c := &Controller{
		gw:       d.Gateway,
		cache:    d.Cache,
		loc:      d.Location,
		alert:    d.Alerter,
		log:      d.Log,
		interval: d.PollInterval,
		now:      d.Now,
		ctx:      ctx,
		cancel:   cancel,
	}
	if c.interval <= 0 {
		c.interval = config.PollInterval
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.log == nil {
		c.log = slog.Default()
	}
	if c.alert == nil {
		c.alert = AlertFunc(func(string) {})
	}
	return c
}

// Mount resumes the session named by the location, if any. The cached
// copy is shown before Mount returns; the status request runs in the
// background and the returned channel closes when it has been applied or
// dropped. Close cancels it.
func (c *Controller) Mount(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})

	r, ok := c.beginRestore(ctx, c.loc.PaymentID())
	if !ok {
		close(done)
		return done
	}

	c.mu.Lock()
	if !c.alive() {
		c.mu.Unlock()
		close(done)
		return done
	}
	c.wg.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.wg.Done()
		defer close(done)

		fetchCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		stop := context.AfterFunc(c.ctx, cancel)
		defer stop()

		c.finishRestore(fetchCtx, r)
	}()
	return done
}

// Close tears the controller down: polling stops and results of requests
// still in flight are dropped.
func (c *Controller) Close() {
	c.cancel()
	c.mu.Lock()
	c.stopPollerLocked()
	c.mu.Unlock()
	c.wg.Wait()
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{Session: c.session, Loading: c.loading}
}

// Polling returns the transaction id currently being polled.
func (c *Controller) Polling() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pollID
}

func (c *Controller) alive() bool {
	return c.ctx.Err() == nil
}

// restore is one Restore call between its cache step and its fetch.
type restore struct {
	id     string
	epoch  uint64
	seq    uint64
	cached *domain.PaymentSession
}

// Restore shows the cached copy of id right away, then asks the gateway
// and merges its answer over the cache. Gateway failures are logged only.
func (c *Controller) Restore(ctx context.Context, id string) {
	if r, ok := c.beginRestore(ctx, id); ok {
		c.finishRestore(ctx, r)
	}
}

// beginRestore adopts the cached copy of id, or clears a session of
// another id, and marks the controller loading.
func (c *Controller) beginRestore(ctx context.Context, id string) (restore, bool) {
	if id == "" {
		return restore{}, false
	}

	local, hit := c.cache.Read(ctx, id)

	c.mu.Lock()
	defer c.mu.Unlock()

	r := restore{id: id}
	c.epoch++
	r.epoch = c.epoch
	if c.pollID != id {
		c.stopPollerLocked()
	}
	if hit {
		s := local.Session
		if s.TransactionID == "" {
			s.TransactionID = id
		}
		c.session = s
		r.cached = &local.Session
		c.watchLocked(s.TransactionID)
	} else if c.session.TransactionID != id {
		c.session = domain.PaymentSession{}
	}
	c.loading = true
	c.seq++
	r.seq = c.seq
	return r, true
}

func (c *Controller) finishRestore(ctx context.Context, r restore) {
	st, err := c.gw.CheckStatus(ctx, r.id)

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.alive() {
		return
	}
	if c.epoch == r.epoch {
		c.loading = false
	}

	if err != nil {
		c.log.Error("failed to fetch check-status", "transaction_id", r.id, "error", err)
		return
	}
	if c.epoch != r.epoch {
		c.log.Debug("restore superseded", "transaction_id", r.id)
		return
	}
	if st == nil {
		if r.cached == nil {
			c.session = domain.PaymentSession{}
			c.stopPollerLocked()
		}
		return
	}
	if r.seq < c.applied {
		c.log.Debug("stale restore response dropped", "transaction_id", r.id, "seq", r.seq)
		return
	}
	c.applied = r.seq

	c.session = merge(r.id, st, r.cached, c.now())
	c.cache.Write(ctx, r.id, c.session)
	c.watchLocked(r.id)
}

// Create asks the gateway for a new QR and makes it the active session.
// On failure the user is alerted and the previous state is kept.
func (c *Controller) Create(ctx context.Context, amount int64) error {
	if amount <= 0 {
		return domain.ErrInvalidAmount
	}

	c.mu.Lock()
	c.loading = true
	c.mu.Unlock()

	qr, err := c.gw.CreateQR(ctx, amount)
	if err == nil && qr.TransactionID == "" {
		err = domain.ErrNoTransactionID
	}

	c.mu.Lock()
	c.loading = false
	if err != nil {
		c.mu.Unlock()
		c.log.Error("failed to create qris", "amount", amount, "error", err)
		c.alert.Alert(alertMessage(err))
		return err
	}
	defer c.mu.Unlock()

	if !c.alive() {
		return context.Canceled
	}

	s := domain.PaymentSession{
		TransactionID: qr.TransactionID,
		QRString:      qr.QRString,
		TotalAmount:   amount,
		ExpiredAt:     c.now().Add(config.DefaultExpiry),
		Status:        string(domain.StatusPending),
	}
	if qr.TotalAmount != nil {
		s.TotalAmount = *qr.TotalAmount
	}
	if t, ok := parseTime(qr.ExpiredAt); ok {
		s.ExpiredAt = t
	}

	c.epoch++
	c.applied = c.seq
	c.stopPollerLocked()
	c.session = s
	c.cache.Write(ctx, s.TransactionID, s)
	c.loc.ReplacePaymentID(s.TransactionID)
	c.watchLocked(s.TransactionID)

	c.log.Info("qris created", "transaction_id", s.TransactionID, "amount", s.TotalAmount)
	return nil
}

// Reset forgets the active session: cache entry, state and location.
func (c *Controller) Reset(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if id := c.session.TransactionID; id != "" {
		c.cache.Remove(ctx, id)
	}
	c.epoch++
	c.applied = c.seq
	c.stopPollerLocked()
	c.session = domain.PaymentSession{}
	c.loading = false
	c.loc.ReplacePaymentID("")
}

// applyStatusLocked merges a poll answer into the active session. It
// reports false when the answer was dropped.
func (c *Controller) applyStatusLocked(ctx context.Context, id string, seq uint64, st *gateway.Status) bool {
	if !c.alive() || ctx.Err() != nil {
		return false
	}
	if c.session.TransactionID != id || seq < c.applied {
		c.log.Debug("stale status dropped", "transaction_id", id, "seq", seq)
		return false
	}
	c.applied = seq

	s := c.session
	if st.Status != "" {
		s.Status = st.Status
	}
	if st.QRString != "" {
		s.QRString = st.QRString
	}
	if n := firstAmount(st.TotalAmount, st.OriginalAmount); n != nil {
		s.TotalAmount = *n
	}
	if t, ok := parseTime(st.ExpiredAt); ok {
		s.ExpiredAt = t
	}
	c.session = s
	c.cache.Write(ctx, id, s)
	return true
}

// merge lays a server answer over an optional cached copy. Server values
// win; cached ones fill what the server omits.
func merge(id string, st *gateway.Status, cached *domain.PaymentSession, now time.Time) domain.PaymentSession {
	s := domain.PaymentSession{TransactionID: id}
	if cached != nil {
		s.QRString = cached.QRString
		s.TotalAmount = cached.TotalAmount
		s.ExpiredAt = cached.ExpiredAt
		s.Status = cached.Status
	}

	if st.QRString != "" {
		s.QRString = st.QRString
	}
	if n := firstAmount(st.TotalAmount, st.OriginalAmount); n != nil {
		s.TotalAmount = *n
	}
	if t, ok := parseTime(st.ExpiredAt); ok {
		s.ExpiredAt = t
	} else if s.ExpiredAt.IsZero() {
		s.ExpiredAt = now.Add(config.DefaultExpiry)
	}
	if st.Status != "" {
		s.Status = st.Status
	} else if s.Status == "" {
		s.Status = string(domain.StatusPending)
	}
	return s
}

func firstAmount(vals ...*int64) *int64 {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}

func parseTime(v string) (time.Time, bool) {
	if v == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func alertMessage(err error) string {
	var apiErr *gateway.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Message != "" {
			return apiErr.Message
		}
		return config.MsgCreateFailed
	}
	return config.MsgCreateFailedNetwork
}
