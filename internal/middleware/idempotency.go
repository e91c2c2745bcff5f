package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const (
	idempotencyHeader = "Idempotency-Key"
	idempotencyTTL    = time.Hour
)

// cachedResponse stores the response for idempotent requests. Drivers
// retry location posts aggressively on flaky mobile networks; replaying
// the recorded response keeps retries from double-counting samples.
type cachedResponse struct {
	StatusCode int             `json:"status_code"`
	Body       json.RawMessage `json:"body"`
}

// responseWriter wraps gin.ResponseWriter to capture the response body.
type responseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *responseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// Idempotency returns middleware that replays the recorded response for a
// repeated Idempotency-Key. Requests without the header, non-mutating
// methods, and Redis outages all pass straight through.
func Idempotency(client *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		if client == nil || c.Request.Method != http.MethodPost {
			c.Next()
			return
		}

		key := c.GetHeader(idempotencyHeader)
		if key == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		cacheKey := "tracking:idempotency:" + key

		if cached := lookup(ctx, client, cacheKey); cached != nil {
			c.Data(cached.StatusCode, "application/json", cached.Body)
			c.Abort()
			return
		}

		w := &responseWriter{ResponseWriter: c.Writer, body: &bytes.Buffer{}}
		c.Writer = w

		c.Next()

		// 5xx responses are not recorded so a retry can still succeed.
		if status := c.Writer.Status(); status >= 200 && status < 500 {
			record(ctx, client, cacheKey, cachedResponse{
				StatusCode: status,
				Body:       w.body.Bytes(),
			})
		}
	}
}

func lookup(ctx context.Context, client *redis.Client, key string) *cachedResponse {
	data, err := client.Get(ctx, key).Bytes()
	if err != nil {
		return nil
	}

	var cached cachedResponse
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil
	}
	return &cached
}

func record(ctx context.Context, client *redis.Client, key string, resp cachedResponse) {
	data, err := json.Marshal(resp)
	if err != nil {
		return
	}
	_ = client.Set(ctx, key, data, idempotencyTTL).Err()
}
