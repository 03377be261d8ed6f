package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"donation_backend/internal/cache"
	"donation_backend/internal/card"
	"donation_backend/internal/config"
	"donation_backend/internal/domain"
	"donation_backend/internal/gateway"
	"donation_backend/internal/logging"
)

type backend struct {
	status   atomic.Value // string; empty means no data
	creates  atomic.Int32
	lastBody atomic.Value
	hold     atomic.Value // chan struct{}; check-status waits on it when set
}

func newBackend(t *testing.T) (*backend, *httptest.Server) {
	t.Helper()
	b := &backend{}
	b.status.Store("pending")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/qris":
			b.creates.Add(1)
			var req map[string]any
			json.NewDecoder(r.Body).Decode(&req)
			b.lastBody.Store(req)
			w.Write([]byte(`{"data":{"transactionId":"tx1","qr_string":"QR1","totalAmount":25000}}`))
		case "/api/check-status":
			if ch, ok := b.hold.Load().(chan struct{}); ok {
				select {
				case <-ch:
				case <-r.Context().Done():
					return
				}
			}
			st := b.status.Load().(string)
			if st == "" {
				w.Write([]byte(`{}`))
				return
			}
			w.Write([]byte(`{"data":{"status":"` + st + `"}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return b, srv
}

func testApp(srvURL string) (*app, appFactory) {
	a := &app{
		cfg: &config.Client{
			PageURL:        "http://localhost:3000/donasi",
			Presets:        config.DonationPresets,
			PollInterval:   10 * time.Millisecond,
			QRImageBaseURL: "https://qr.example/create",
		},
		log:      logging.Discard(),
		local:    cache.NewLocal(cache.NewMemory(), config.CachePrefix, logging.Discard()),
		gw:       gateway.NewClient(gateway.Options{BaseURL: srvURL, Timeout: 5 * time.Second}),
		renderer: card.NewRenderer("https://qr.example/create"),
	}
	return a, func(context.Context) (*app, error) { return a, nil }
}

func run(t *testing.T, open appFactory, args ...string) (string, string, error) {
	t.Helper()
	root := newRootCmd(open)
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := root.ExecuteContext(ctx)
	return out.String(), errOut.String(), err
}

func TestPresets(t *testing.T) {
	_, srv := newBackend(t)
	_, open := testApp(srv.URL)

	out, _, err := run(t, open, "presets")
	if err != nil {
		t.Fatalf("presets failed: %v", err)
	}
	if !strings.Contains(out, "* Rp 10.000") || !strings.Contains(out, "  Rp 100.000") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestCreateOnce(t *testing.T) {
	b, srv := newBackend(t)
	a, open := testApp(srv.URL)

	out, _, err := run(t, open, "create", "--amount", "25000", "--follow=false")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if !strings.Contains(out, "http://localhost:3000/donasi?paymentId=tx1") {
		t.Errorf("page url missing:\n%s", out)
	}
	if !strings.Contains(out, "[Menunggu] Rp 25.000") || !strings.Contains(out, "data=QR1") {
		t.Errorf("card missing:\n%s", out)
	}

	req := b.lastBody.Load().(map[string]any)
	if req["amount"] != float64(25000) || req["useUniqueCode"] != true {
		t.Errorf("create request = %v", req)
	}
	if _, ok := a.local.Read(context.Background(), "tx1"); !ok {
		t.Error("created session should be cached")
	}

	out, _, err = run(t, open, "show", "tx1")
	if err != nil {
		t.Fatalf("show failed: %v", err)
	}
	if !strings.Contains(out, "ID         : tx1") {
		t.Errorf("show output:\n%s", out)
	}
}

func TestCreatePresetFlag(t *testing.T) {
	b, srv := newBackend(t)
	_, open := testApp(srv.URL)

	if _, _, err := run(t, open, "create", "--preset", "50000", "--follow=false"); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if req := b.lastBody.Load().(map[string]any); req["amount"] != float64(50000) {
		t.Errorf("amount = %v, want 50000", req["amount"])
	}
}

func TestCreateInvalidAmount(t *testing.T) {
	b, srv := newBackend(t)
	_, open := testApp(srv.URL)

	_, _, err := run(t, open, "create", "--amount", "abc", "--follow=false")
	if !errors.Is(err, domain.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if !strings.Contains(err.Error(), `"abc"`) {
		t.Errorf("error should quote the custom amount, got %v", err)
	}
	if b.creates.Load() != 0 {
		t.Error("backend must not be called for an invalid amount")
	}
}

func TestCreateFollowUntilPaid(t *testing.T) {
	b, srv := newBackend(t)
	b.status.Store("paid")
	_, open := testApp(srv.URL)

	out, _, err := run(t, open, "create", "--amount", "25000")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if !strings.Contains(out, "[Lunas]") || !strings.Contains(out, "Terima kasih! Donasi Rp 25.000 sudah diterima.") {
		t.Errorf("expected paid ending:\n%s", out)
	}
}

func TestCreateFailureAlerts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"error":"amount too small"}`))
	}))
	defer srv.Close()
	_, open := testApp(srv.URL)

	_, errOut, err := run(t, open, "create", "--amount", "1", "--follow=false")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(errOut, "amount too small") {
		t.Errorf("alert missing from stderr: %q", errOut)
	}
}

func TestResumeAndReset(t *testing.T) {
	b, srv := newBackend(t)
	a, open := testApp(srv.URL)

	if _, _, err := run(t, open, "create", "--amount", "25000", "--follow=false"); err != nil {
		t.Fatal(err)
	}

	out, _, err := run(t, open, "resume", "http://localhost:3000/donasi?paymentId=tx1", "--follow=false")
	if err != nil {
		t.Fatalf("resume failed: %v", err)
	}
	if !strings.Contains(out, "ID         : tx1") {
		t.Errorf("resume output:\n%s", out)
	}

	out, _, err = run(t, open, "reset", "http://localhost:3000/donasi?ref=home&paymentId=tx1")
	if err != nil {
		t.Fatalf("reset failed: %v", err)
	}
	if !strings.Contains(out, "Halaman donasi: http://localhost:3000/donasi?ref=home") {
		t.Errorf("reset output:\n%s", out)
	}
	if _, ok := a.local.Read(context.Background(), "tx1"); ok {
		t.Error("reset should drop the cached session")
	}

	b.status.Store("")
	if _, _, err := run(t, open, "resume", "tx1", "--follow=false"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for an unknown payment, got %v", err)
	}
	if _, _, err := run(t, open, "show", "tx1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound from show, got %v", err)
	}
}

// syncBuffer is written by the command goroutine and read by the test.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestResumeDrawsCachedCardBeforeStatusAnswer(t *testing.T) {
	b, srv := newBackend(t)
	_, open := testApp(srv.URL)

	if _, _, err := run(t, open, "create", "--amount", "25000", "--follow=false"); err != nil {
		t.Fatal(err)
	}

	release := make(chan struct{})
	var once sync.Once
	unblock := func() { once.Do(func() { close(release) }) }
	t.Cleanup(unblock)
	b.hold.Store(release)
	b.status.Store("paid")

	root := newRootCmd(open)
	var out syncBuffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"resume", "tx1"})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	errc := make(chan error, 1)
	go func() { errc <- root.ExecuteContext(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for !strings.Contains(out.String(), "ID         : tx1") {
		if time.Now().After(deadline) {
			t.Fatalf("cached card should be drawn while check-status is pending, got:\n%s", out.String())
		}
		time.Sleep(10 * time.Millisecond)
	}
	if got := out.String(); !strings.Contains(got, "[Menunggu]") || !strings.Contains(got, "memuat status terbaru") {
		t.Errorf("expected the cached pending card marked as loading:\n%s", got)
	}

	unblock()
	if err := <-errc; err != nil {
		t.Fatalf("resume failed: %v", err)
	}
	if got := out.String(); !strings.Contains(got, "[Lunas]") {
		t.Errorf("expected the paid card after the answer:\n%s", got)
	}
}
