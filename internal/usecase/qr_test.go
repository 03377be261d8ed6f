package usecase

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"donation_backend/internal/cashify"
	"donation_backend/internal/domain"
	"donation_backend/internal/events"
	"donation_backend/internal/logging"
	"donation_backend/internal/repository"
)

type fakeUpstream struct {
	CreateFunc func(ctx context.Context, req cashify.CreateQRISRequest) (*cashify.QRIS, error)
	StatusFunc func(ctx context.Context, id string) (*cashify.Status, error)
}

func (f *fakeUpstream) CreateQRIS(ctx context.Context, req cashify.CreateQRISRequest) (*cashify.QRIS, error) {
	return f.CreateFunc(ctx, req)
}

func (f *fakeUpstream) CheckStatus(ctx context.Context, id string) (*cashify.Status, error) {
	return f.StatusFunc(ctx, id)
}

type recordingPublisher struct {
	got []events.DonationPaid
	err error
}

func (p *recordingPublisher) PublishDonationPaid(_ context.Context, e events.DonationPaid) error {
	p.got = append(p.got, e)
	return p.err
}

type recordingNotifier struct {
	ids []string
	err error
}

func (n *recordingNotifier) DonationPaid(_ context.Context, id string, _ int64, _ time.Time) error {
	n.ids = append(n.ids, id)
	return n.err
}

type fixture struct {
	uc   *DonationUsecase
	up   *fakeUpstream
	repo *repository.SQLiteRepo
	pub  *recordingPublisher
	note *recordingNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo, err := repository.NewSQLiteRepo(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepo failed: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	f := &fixture{
		up:   &fakeUpstream{},
		repo: repo,
		pub:  &recordingPublisher{},
		note: &recordingNotifier{},
	}
	f.uc = NewDonationUsecase(Deps{
		Upstream:  f.up,
		Ledger:    repo,
		Publisher: f.pub,
		Notifier:  f.note,
		Defaults: Defaults{
			QRISID:         "qris-default",
			PackageIDs:     []string{"id.dana"},
			UseUniqueCode:  true,
			ExpiredMinutes: 10,
		},
		Log: logging.Discard(),
	})
	return f
}

func int64p(v int64) *int64 { return &v }

func (f *fixture) create(t *testing.T, id string, total int64) {
	t.Helper()
	f.up.CreateFunc = func(ctx context.Context, req cashify.CreateQRISRequest) (*cashify.QRIS, error) {
		return &cashify.QRIS{TransactionID: id, QRString: "QR-" + id, TotalAmount: int64p(total)}, nil
	}
	if _, err := f.uc.CreateQR(context.Background(), CreateInput{Amount: total}); err != nil {
		t.Fatalf("CreateQR failed: %v", err)
	}
}

func TestCreateQRFillsDefaultsAndRecords(t *testing.T) {
	f := newFixture(t)

	var sent cashify.CreateQRISRequest
	f.up.CreateFunc = func(ctx context.Context, req cashify.CreateQRISRequest) (*cashify.QRIS, error) {
		sent = req
		return &cashify.QRIS{
			TransactionID: "tx1",
			QRString:      "QR1",
			TotalAmount:   int64p(25007),
			ExpiredAt:     "2025-01-01T12:10:00Z",
		}, nil
	}

	qr, err := f.uc.CreateQR(context.Background(), CreateInput{Amount: 25000})
	if err != nil {
		t.Fatalf("CreateQR failed: %v", err)
	}
	if qr.TransactionID != "tx1" {
		t.Errorf("transactionId = %q", qr.TransactionID)
	}
	if sent.ID != "qris-default" || !sent.UseUniqueCode || len(sent.PackageIDs) != 1 || sent.ExpiredInMinutes != 10 {
		t.Errorf("upstream request = %+v", sent)
	}

	row, err := f.repo.GetByTransactionID(context.Background(), "tx1")
	if err != nil {
		t.Fatalf("ledger row missing: %v", err)
	}
	if row.Amount != 25007 || row.Status != domain.StatusPending || row.ExpiredAt == nil {
		t.Errorf("ledger row = %+v", row)
	}
}

func TestCreateQRKeepsCallerValues(t *testing.T) {
	f := newFixture(t)

	var sent cashify.CreateQRISRequest
	f.up.CreateFunc = func(ctx context.Context, req cashify.CreateQRISRequest) (*cashify.QRIS, error) {
		sent = req
		return &cashify.QRIS{TransactionID: "tx1"}, nil
	}
	no := false
	_, err := f.uc.CreateQR(context.Background(), CreateInput{
		QRISID: "mine", Amount: 10000, UseUniqueCode: &no, PackageIDs: []string{"id.ovo"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if sent.ID != "mine" || sent.UseUniqueCode || sent.PackageIDs[0] != "id.ovo" {
		t.Errorf("caller values overridden: %+v", sent)
	}
}

func TestCreateQRErrors(t *testing.T) {
	f := newFixture(t)

	if _, err := f.uc.CreateQR(context.Background(), CreateInput{Amount: 0}); !errors.Is(err, domain.ErrInvalidAmount) {
		t.Errorf("expected ErrInvalidAmount, got %v", err)
	}

	f.up.CreateFunc = func(ctx context.Context, req cashify.CreateQRISRequest) (*cashify.QRIS, error) {
		return nil, &cashify.APIError{StatusCode: 401, Message: "invalid license"}
	}
	_, err := f.uc.CreateQR(context.Background(), CreateInput{Amount: 10000})
	var apiErr *cashify.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != 401 {
		t.Errorf("expected wrapped APIError, got %v", err)
	}

	f.up.CreateFunc = func(ctx context.Context, req cashify.CreateQRISRequest) (*cashify.QRIS, error) {
		return &cashify.QRIS{QRString: "QR"}, nil
	}
	if _, err := f.uc.CreateQR(context.Background(), CreateInput{Amount: 10000}); !errors.Is(err, domain.ErrNoTransactionID) {
		t.Errorf("expected ErrNoTransactionID, got %v", err)
	}
}

func TestCheckStatusPaidHookRunsOnce(t *testing.T) {
	f := newFixture(t)
	f.create(t, "tx1", 25000)

	f.up.StatusFunc = func(ctx context.Context, id string) (*cashify.Status, error) {
		return &cashify.Status{Status: "paid"}, nil
	}
	for i := 0; i < 3; i++ {
		st, err := f.uc.CheckStatus(context.Background(), "tx1")
		if err != nil || st.Status != "paid" {
			t.Fatalf("CheckStatus = %+v, %v", st, err)
		}
	}

	if len(f.pub.got) != 1 {
		t.Fatalf("expected one event, got %d", len(f.pub.got))
	}
	if e := f.pub.got[0]; e.TransactionID != "tx1" || e.Amount != 25000 {
		t.Errorf("event = %+v", e)
	}
	if len(f.note.ids) != 1 || f.note.ids[0] != "tx1" {
		t.Errorf("notifications = %v", f.note.ids)
	}
	row, _ := f.repo.GetByTransactionID(context.Background(), "tx1")
	if row.Status != domain.StatusPaid || row.PaidAt == nil {
		t.Errorf("ledger row = %+v", row)
	}
}

func TestCheckStatusHookFailuresAreSwallowed(t *testing.T) {
	f := newFixture(t)
	f.create(t, "tx1", 25000)
	f.pub.err = errors.New("kafka down")
	f.note.err = errors.New("telegram down")

	f.up.StatusFunc = func(ctx context.Context, id string) (*cashify.Status, error) {
		return &cashify.Status{Status: "paid"}, nil
	}
	if _, err := f.uc.CheckStatus(context.Background(), "tx1"); err != nil {
		t.Fatalf("hook failures must not surface, got %v", err)
	}
	if len(f.note.ids) != 1 {
		t.Error("notifier should still run after a publish failure")
	}
}

func TestCheckStatusPassThrough(t *testing.T) {
	f := newFixture(t)

	f.up.StatusFunc = func(ctx context.Context, id string) (*cashify.Status, error) {
		return nil, nil
	}
	st, err := f.uc.CheckStatus(context.Background(), "ghost")
	if err != nil || st != nil {
		t.Fatalf("no data should pass through as nil, got %+v, %v", st, err)
	}

	// unknown to the ledger, still answered
	f.up.StatusFunc = func(ctx context.Context, id string) (*cashify.Status, error) {
		return &cashify.Status{Status: "paid"}, nil
	}
	st, err = f.uc.CheckStatus(context.Background(), "ghost")
	if err != nil || st.Status != "paid" {
		t.Fatalf("CheckStatus = %+v, %v", st, err)
	}
	if len(f.pub.got) != 0 {
		t.Error("no event for a transaction missing from the ledger")
	}

	f.up.StatusFunc = func(ctx context.Context, id string) (*cashify.Status, error) {
		return nil, errors.New("timeout")
	}
	if _, err := f.uc.CheckStatus(context.Background(), "tx1"); err == nil {
		t.Fatal("upstream errors must be returned")
	}
}
