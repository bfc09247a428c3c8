// Package chat sends outbound chat messages through the platform client,
// applying the platform's message-length limit and a send rate limit.
package chat

import (
	"context"

	"golang.org/x/time/rate"

	"showrunner/pkg/logx"
)

// MaxMessageLen is the platform's hard per-message character limit.
const MaxMessageLen = 500

// Sender is the outbound chat surface the resolver uses.
type Sender interface {
	Send(ctx context.Context, text string) error
}

// SendFunc is the low-level single-message send implemented by the platform
// API collaborator.
type SendFunc func(ctx context.Context, text string) error

type Config struct {
	// RatePerSec caps outbound sends; 0 means a conservative default.
	RatePerSec int
	Burst      int
}

// Client chunks over-long messages and rate-limits sends. Chunks of one
// message are sent sequentially so character order is preserved.
type Client struct {
	send    SendFunc
	limiter *rate.Limiter
	log     logx.Logger
}

func NewClient(cfg Config, send SendFunc, log logx.Logger) *Client {
	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = 1
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = rps
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Client{send: send, limiter: rate.NewLimiter(rate.Limit(rps), burst), log: log}
}

func (c *Client) Send(ctx context.Context, text string) error {
	for _, chunk := range Chunk(text, MaxMessageLen) {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		if err := c.send(ctx, chunk); err != nil {
			return err
		}
		c.log.Debug("chat chunk sent", logx.Int("len", len(chunk)))
	}
	return nil
}

// Chunk splits text into pieces of at most limit bytes, preserving order.
// No word-boundary awareness; a chunk may split mid-word.
func Chunk(text string, limit int) []string {
	if limit <= 0 || len(text) <= limit {
		if text == "" {
			return nil
		}
		return []string{text}
	}
	chunks := make([]string, 0, len(text)/limit+1)
	for len(text) > limit {
		chunks = append(chunks, text[:limit])
		text = text[limit:]
	}
	if text != "" {
		chunks = append(chunks, text)
	}
	return chunks
}
