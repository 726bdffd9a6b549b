package middleware

import (
	"bytes"
	"net/http"
	"time"

	"github.com/cobasjano/JC-sistema-sub001/internal/domain/idempotency"
	"github.com/rs/zerolog/log"
)

const (
	maxIdempotencyBodySize = 1 << 20
	IdempotencyHeader      = "Idempotency-Key"
)

// Idempotency replays the stored response for a repeated Idempotency-Key.
// Keys are scoped to the caller's tenant. Only 2xx responses are stored so a
// failed attempt can be retried with the same key.
func Idempotency(store idempotency.Store, ttl time.Duration) func(http.Handler) http.Handler {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := scopedKey(r)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			entry, err := store.Get(r.Context(), key)
			if err != nil {
				log.Ctx(r.Context()).Warn().Err(err).Str("key", key).Msg("idempotency lookup failed")
			}
			if err == nil && entry != nil {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("X-Idempotency-Replayed", "true")
				w.WriteHeader(entry.ResponseStatus)
				w.Write([]byte(entry.ResponseBody))
				return
			}

			rec := &responseRecorder{ResponseWriter: w, body: &bytes.Buffer{}, statusCode: http.StatusOK}
			next.ServeHTTP(rec, r)

			if rec.statusCode >= 200 && rec.statusCode < 300 && !rec.bodyTruncated {
				now := time.Now().UTC()
				if err := store.Set(r.Context(), &idempotency.Record{
					Key:            key,
					ResponseBody:   rec.body.String(),
					ResponseStatus: rec.statusCode,
					CreatedAt:      now,
					ExpiresAt:      now.Add(ttl),
				}); err != nil {
					log.Ctx(r.Context()).Warn().Err(err).Str("key", key).Msg("idempotency store failed")
				}
			}
		})
	}
}

func scopedKey(r *http.Request) string {
	key := r.Header.Get(IdempotencyHeader)
	if key == "" {
		return ""
	}
	if p, ok := GetPrincipal(r.Context()); ok {
		return p.TenantID + ":" + key
	}
	return key
}

type responseRecorder struct {
	http.ResponseWriter
	statusCode    int
	body          *bytes.Buffer
	bodyTruncated bool
}

func (r *responseRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	if !r.bodyTruncated {
		if r.body.Len()+len(b) > maxIdempotencyBodySize {
			r.bodyTruncated = true
		} else {
			r.body.Write(b)
		}
	}
	return r.ResponseWriter.Write(b)
}
