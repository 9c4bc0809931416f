package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/sahartak2025/Code-samples-sub000/pkg/errors"
)

// IdempotencyMiddleware makes money-mutating endpoints safe to retry.
// The first request with a given Idempotency-Key executes and its
// response is stored; any retry within the TTL gets the stored response
// back instead of re-running the handler.
type IdempotencyMiddleware struct {
	cache *redis.Client
	ttl   time.Duration
	// waitFor bounds how long a concurrent duplicate polls for the
	// original request's response before giving up with a conflict.
	waitFor time.Duration
}

func NewIdempotencyMiddleware(cache *redis.Client, ttl time.Duration) *IdempotencyMiddleware {
	return &IdempotencyMiddleware{
		cache:   cache,
		ttl:     ttl,
		waitFor: 5 * time.Second,
	}
}

// storedResponse is the replayable image of a handler response.
type storedResponse struct {
	Status  int               `json:"status"`
	Body    []byte            `json:"body"`
	Headers map[string]string `json:"headers"`
}

func (m *IdempotencyMiddleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		default:
			next.ServeHTTP(w, r)
			return
		}

		key := r.Header.Get("Idempotency-Key")
		if key == "" {
			jsonError(w, http.StatusBadRequest, "Idempotency-Key header required")
			return
		}

		dataKey := "idempotency:data:" + r.Method + ":" + key
		lockKey := "idempotency:lock:" + r.Method + ":" + key

		if m.replay(w, r, dataKey) {
			return
		}

		owner, _ := RequestIDFromContext(r.Context())
		if owner == "" {
			owner = r.Header.Get("X-Request-ID")
		}

		acquired, err := m.cache.SetNX(r.Context(), lockKey, owner, m.ttl).Result()
		if err != nil {
			jsonError(w, http.StatusInternalServerError, "Internal server error")
			return
		}

		if !acquired {
			// The same request re-entering its own lock (nested call
			// through the router) must not wait on itself.
			if holder, err := m.cache.Get(r.Context(), lockKey).Result(); err == nil && owner != "" && holder == owner {
				next.ServeHTTP(w, r)
				return
			}
			m.awaitOriginal(w, r, dataKey)
			return
		}
		defer m.cache.Del(r.Context(), lockKey)

		rec := newResponseTape(w, 1<<20)
		next.ServeHTTP(rec, r)
		m.store(r, dataKey, rec)
	})
}

// awaitOriginal polls for the in-flight request's stored response. A
// duplicate settlement webhook typically lands milliseconds behind the
// original, so a short poll resolves almost all races.
func (m *IdempotencyMiddleware) awaitOriginal(w http.ResponseWriter, r *http.Request, dataKey string) {
	deadline := time.After(m.waitFor)
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()

	for {
		select {
		case <-tick.C:
			if m.replay(w, r, dataKey) {
				return
			}
		case <-deadline:
			jsonError(w, http.StatusConflict, apperrors.ErrDuplicateRequest.Error())
			return
		case <-r.Context().Done():
			return
		}
	}
}

func (m *IdempotencyMiddleware) replay(w http.ResponseWriter, r *http.Request, dataKey string) bool {
	payload, err := m.cache.Get(r.Context(), dataKey).Bytes()
	if err != nil {
		return false
	}

	var sr storedResponse
	if err := json.Unmarshal(payload, &sr); err != nil {
		return false
	}

	for k, v := range sr.Headers {
		w.Header().Set(k, v)
	}
	w.Header().Set("X-Idempotency-Replay", "true")
	w.WriteHeader(sr.Status)
	w.Write(sr.Body)
	return true
}

func (m *IdempotencyMiddleware) store(r *http.Request, dataKey string, rec *responseTape) {
	if rec.status == 0 || len(rec.body) == 0 {
		return
	}

	payload, err := json.Marshal(storedResponse{
		Status:  rec.status,
		Body:    rec.body,
		Headers: rec.headers,
	})
	if err != nil {
		return
	}
	// A failed cache write just means the next duplicate re-executes;
	// the conditional settlement update keeps that harmless.
	m.cache.Set(r.Context(), dataKey, payload, m.ttl)
}

// responseTape passes the response through while keeping a bounded copy
// for replay.
type responseTape struct {
	http.ResponseWriter
	body    []byte
	limit   int
	status  int
	headers map[string]string
}

func newResponseTape(w http.ResponseWriter, limit int) *responseTape {
	return &responseTape{
		ResponseWriter: w,
		limit:          limit,
		headers:        make(map[string]string),
	}
}

func (t *responseTape) WriteHeader(status int) {
	t.status = status
	for k, v := range t.ResponseWriter.Header() {
		if len(v) > 0 {
			t.headers[k] = v[0]
		}
	}
	t.ResponseWriter.WriteHeader(status)
}

func (t *responseTape) Write(p []byte) (int, error) {
	if t.status == 0 {
		t.WriteHeader(http.StatusOK)
	}
	if room := t.limit - len(t.body); room > 0 {
		n := len(p)
		if n > room {
			n = room
		}
		t.body = append(t.body, p[:n]...)
	}
	return t.ResponseWriter.Write(p)
}
