package censor

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/qaboard/qa-service/internal/config"
	apperrors "github.com/qaboard/qa-service/pkg/util/errorutil"
)

// APIKeyHeader is where the bad-words service expects its key.
const APIKeyHeader = "apikey"

// Censor masks offensive words in free text.
type Censor interface {
	Censor(ctx context.Context, text string) (string, error)
}

// Cache stores censored text keyed by a digest of the input.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// Client calls the external bad-words service.
type Client struct {
	url      string
	apiKey   string
	timeout  time.Duration
	cacheTTL time.Duration
	cache    Cache
	limiter  *rate.Limiter
	logger   *zap.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithCache enables result caching.
func WithCache(cache Cache) Option {
	return func(c *Client) {
		c.cache = cache
	}
}

// New builds the censor described by cfg. A disabled censor returns text unchanged.
func New(cfg config.CensorConfig, logger *zap.Logger, opts ...Option) Censor {
	if !cfg.Enabled {
		return Passthrough{}
	}
	c := &Client{
		url:      cfg.URL,
		apiKey:   cfg.APIKey,
		timeout:  cfg.Timeout(),
		cacheTTL: cfg.CacheTTL(),
		limiter:  rate.NewLimiter(rate.Inf, 0),
		logger:   logger,
	}
	if cfg.RatePerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Censor returns text with offensive words replaced by asterisks.
func (c *Client) Censor(ctx context.Context, text string) (string, error) {
	if c.apiKey == "" {
		return "", apperrors.EnvVarUnset("BAD_WORDS_SERVICE_API_KEY")
	}

	key := cacheKey(text)
	if c.cache != nil && c.cacheTTL > 0 {
		cached, ok, err := c.cache.Get(ctx, key)
		switch {
		case err != nil:
			c.logger.Warn("censor cache read failed", zap.Error(err))
		case ok:
			return cached, nil
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", apperrors.ExternalAPIError(fmt.Errorf("bad words service throttled: %w", err))
	}

	censored, err := c.call(ctx, text)
	if err != nil {
		c.logger.Error("bad words service call failed", zap.Error(err))
		return "", apperrors.ExternalAPIError(err)
	}

	if c.cache != nil && c.cacheTTL > 0 {
		if err := c.cache.Set(ctx, key, censored, c.cacheTTL); err != nil {
			c.logger.Warn("censor cache write failed", zap.Error(err))
		}
	}
	return censored, nil
}

// call posts text to the service. The agent has no context support, so its timeout is
// clamped to whatever remains of ctx's deadline.
func (c *Client) call(ctx context.Context, text string) (string, error) {
	timeout, err := c.timeoutFor(ctx)
	if err != nil {
		return "", err
	}
	agent := fiber.Post(c.url).
		QueryString("censor_character=*").
		Set(APIKeyHeader, c.apiKey).
		Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8).
		BodyString(text).
		Timeout(timeout)

	status, body, errs := agent.Bytes()
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("bad words service request abandoned: %w", err)
	}
	if len(errs) > 0 {
		return "", fmt.Errorf("bad words service request: %w", errs[0])
	}
	if status < fiber.StatusOK || status >= fiber.StatusMultipleChoices {
		return "", fmt.Errorf("bad words service status %d: %s", status, gjson.GetBytes(body, "message").String())
	}
	if !gjson.ValidBytes(body) {
		return "", fmt.Errorf("bad words service returned invalid json")
	}
	censored := gjson.GetBytes(body, "censored_content")
	if censored.Type != gjson.String {
		return "", fmt.Errorf("bad words service response has no censored_content")
	}
	return censored.String(), nil
}

func (c *Client) timeoutFor(ctx context.Context) (time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("bad words service request abandoned: %w", err)
	}
	deadline, ok := ctx.Deadline()
	if !ok {
		return c.timeout, nil
	}
	left := time.Until(deadline)
	if left <= 0 {
		return 0, fmt.Errorf("bad words service request abandoned: %w", context.DeadlineExceeded)
	}
	if c.timeout <= 0 || left < c.timeout {
		return left, nil
	}
	return c.timeout, nil
}

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return "censor:" + hex.EncodeToString(sum[:])
}

// Passthrough is the censor used when censorship is switched off.
type Passthrough struct{}

// Censor returns text unchanged.
func (Passthrough) Censor(_ context.Context, text string) (string, error) {
	return text, nil
}
