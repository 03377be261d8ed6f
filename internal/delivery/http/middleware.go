package httpd

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"donation_backend/internal/signature"
)

type SigConfig struct {
	Secret string
	MaxAge time.Duration
}

// SignatureMiddleware checks X-Timestamp/X-Signature on writes. With an
// empty secret every request passes.
func SignatureMiddleware(cfg SigConfig) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if cfg.Secret == "" {
			return next
		}
		fn := func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
				bodyBytes, err := io.ReadAll(r.Body)
				if err != nil {
					writeJSON(w, http.StatusBadRequest, ErrorResp{Error: "read body error"})
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(bodyBytes))

				err = signature.Verify(
					cfg.Secret, bodyBytes,
					r.Header.Get(signature.HeaderTimestamp),
					r.Header.Get(signature.HeaderSignature),
					cfg.MaxAge, time.Now(),
				)
				if err != nil {
					writeJSON(w, http.StatusUnauthorized, ErrorResp{Error: err.Error()})
					return
				}
			}
			next.ServeHTTP(w, r)
		}
		return http.HandlerFunc(fn)
	}
}

// AccessLog logs one line per request. Runs after middleware.RequestID.
func AccessLog(log *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			level := slog.LevelInfo
			if status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			log.Log(r.Context(), level, "http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		}
		return http.HandlerFunc(fn)
	}
}
