package idempotency

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	HeaderName       = "Idempotency-Key"
	ReplayHeaderName = "X-Idempotent-Replay"
)

type middlewareConfig struct {
	ttl      time.Duration
	logger   *zap.Logger
	identity func(*gin.Context) string
}

type MiddlewareOption func(*middlewareConfig)

func WithTTL(ttl time.Duration) MiddlewareOption {
	return func(cfg *middlewareConfig) {
		if ttl > 0 {
			cfg.ttl = ttl
		}
	}
}

func WithLogger(logger *zap.Logger) MiddlewareOption {
	return func(cfg *middlewareConfig) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithIdentity scopes keys to the caller so two users cannot collide on the same key.
func WithIdentity(fn func(*gin.Context) string) MiddlewareOption {
	return func(cfg *middlewareConfig) {
		if fn != nil {
			cfg.identity = fn
		}
	}
}

// Middleware replays the stored response when a request repeats its Idempotency-Key.
// Requests without the header pass through untouched. Server errors release the key
// so the client may retry.
func Middleware(store Store, opts ...MiddlewareOption) gin.HandlerFunc {
	cfg := middlewareConfig{
		ttl:      DefaultTTL,
		logger:   zap.NewNop(),
		identity: func(c *gin.Context) string { return c.ClientIP() },
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return func(c *gin.Context) {
		key := strings.TrimSpace(c.GetHeader(HeaderName))
		if store == nil || key == "" {
			c.Next()
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Unable to read request body"})
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		scoped := cfg.identity(c) + ":" + key
		fingerprint := fingerprintOf(c.Request.Method, c.FullPath(), c.GetHeader("Content-Type"), body)
		ctx := c.Request.Context()

		reservation, err := store.Reserve(ctx, scoped, fingerprint, cfg.ttl)
		if err != nil {
			if errors.Is(err, ErrFingerprintMismatch) {
				c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": "Idempotency-Key was already used for a different request"})
				return
			}
			cfg.logger.Error("idempotency reserve failed", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Unable to check idempotency key"})
			return
		}

		switch reservation.State {
		case ReservationCompleted:
			c.Header(ReplayHeaderName, "true")
			c.Data(reservation.Record.ResponseStatus, reservation.Record.ContentType, reservation.Record.ResponseBody)
			c.Abort()
			return
		case ReservationPending:
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "Another request with this Idempotency-Key is in progress"})
			return
		}

		// Release the key if the handler panics.
		finished := false
		defer func() {
			if finished {
				return
			}
			if err := store.Release(context.WithoutCancel(ctx), scoped); err != nil {
				cfg.logger.Warn("idempotency release failed", zap.Error(err))
			}
		}()

		recorder := &bodyRecorder{ResponseWriter: c.Writer}
		c.Writer = recorder
		c.Next()
		finished = true

		status := recorder.Status()
		if status >= http.StatusInternalServerError {
			if err := store.Release(ctx, scoped); err != nil {
				cfg.logger.Warn("idempotency release failed", zap.Error(err))
			}
			return
		}
		resp := Response{
			Status:      status,
			ContentType: recorder.Header().Get("Content-Type"),
			Body:        recorder.buf.Bytes(),
		}
		if err := store.SaveResponse(ctx, scoped, fingerprint, resp, cfg.ttl); err != nil {
			cfg.logger.Error("idempotency save failed", zap.Error(err))
			_ = store.Release(ctx, scoped)
		}
	}
}

// fingerprintOf identifies a request by route and payload. Multipart bodies are hashed
// part by part, so a retry that only changes the boundary still matches.
func fingerprintOf(method, route, contentType string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(method + " " + route + "\n"))
	if parts, ok := multipartDigests(contentType, body); ok {
		for _, p := range parts {
			h.Write([]byte(p + "\n"))
		}
	} else {
		h.Write(body)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// multipartDigests returns one sorted "name filename sha256" line per part.
func multipartDigests(contentType string, body []byte) ([]string, bool) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil || mediaType != "multipart/form-data" || params["boundary"] == "" {
		return nil, false
	}

	reader := multipart.NewReader(bytes.NewReader(body), params["boundary"])
	var digests []string
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, false
		}
		sum := sha256.New()
		if _, err := io.Copy(sum, part); err != nil {
			return nil, false
		}
		digests = append(digests, part.FormName()+" "+part.FileName()+" "+hex.EncodeToString(sum.Sum(nil)))
	}
	sort.Strings(digests)
	return digests, true
}

// bodyRecorder tees the response body so it can be stored after the handler returns.
type bodyRecorder struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (r *bodyRecorder) Write(b []byte) (int, error) {
	r.buf.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *bodyRecorder) WriteString(s string) (int, error) {
	r.buf.WriteString(s)
	return r.ResponseWriter.WriteString(s)
}
