package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/redis/go-redis/v9"

	"donation_backend/internal/cache"
	"donation_backend/internal/card"
	"donation_backend/internal/config"
	"donation_backend/internal/gateway"
	"donation_backend/internal/location"
	"donation_backend/internal/logging"
	"donation_backend/internal/session"
)

// app is what every command works with. Commands never build clients
// themselves, so tests can hand in their own.
type app struct {
	cfg      *config.Client
	log      *slog.Logger
	local    *cache.Local
	gw       session.Gateway
	renderer *card.Renderer
	closers  []io.Closer
}

type appFactory func(ctx context.Context) (*app, error)

func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.LoadClient()
	if err != nil {
		return nil, err
	}
	log := logging.New(os.Stderr, cfg.LogLevel, false)

	a := &app{
		cfg: cfg,
		log: log,
		gw: gateway.NewClient(gateway.Options{
			BaseURL:    cfg.APIURL,
			Secret:     cfg.HMACSecret,
			QRISID:     cfg.QRISID,
			PackageIDs: cfg.PackageIDs,
			Timeout:    config.GatewayTimeout,
		}),
		renderer: card.NewRenderer(cfg.QRImageBaseURL),
	}

	backend, err := a.openBackend(ctx)
	if err != nil {
		return nil, err
	}
	a.local = cache.NewLocal(backend, config.CachePrefix, log)
	return a, nil
}

func (a *app) openBackend(ctx context.Context) (cache.Backend, error) {
	switch strings.ToLower(a.cfg.CacheBackend) {
	case "memory":
		return cache.NewMemory(), nil
	case "redis":
		rdb := redis.NewClient(&redis.Options{Addr: a.cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, fmt.Errorf("connect redis %s: %w", a.cfg.RedisAddr, err)
		}
		r := cache.NewRedis(rdb, a.cfg.RedisTTL)
		a.closers = append(a.closers, r)
		return r, nil
	case "sqlite", "":
		s, err := cache.NewSQLite(a.cfg.CacheDSN)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, s)
		return s, nil
	default:
		return nil, fmt.Errorf("unknown CACHE_BACKEND %q", a.cfg.CacheBackend)
	}
}

func (a *app) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// controller builds a session controller on the page address pageURL.
// Alerts go to errOut.
func (a *app) controller(ctx context.Context, pageURL string, errOut io.Writer) (*session.Controller, *location.URL, error) {
	loc, err := location.Parse(pageURL, config.PaymentIDParam)
	if err != nil {
		return nil, nil, err
	}
	ctrl := session.New(ctx, session.Deps{
		Gateway:  a.gw,
		Cache:    a.local,
		Location: loc,
		Alerter: session.AlertFunc(func(msg string) {
			fmt.Fprintln(errOut, "!", msg)
		}),
		Log:          a.log,
		PollInterval: a.cfg.PollInterval,
	})
	return ctrl, loc, nil
}
