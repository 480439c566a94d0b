package http

import (
	"context"
	"errors"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"go.uber.org/zap"

	"github.com/qaboard/qa-service/internal/config"
	"github.com/qaboard/qa-service/internal/observability"
	apperrors "github.com/qaboard/qa-service/pkg/util/errorutil"
)

// MiddlewareConfig bundles what the global middleware chain needs.
type MiddlewareConfig struct {
	Logger  *zap.Logger
	Metrics *observability.Metrics
	Timeout time.Duration
	CORS    config.CORSConfig
}

// RegisterMiddlewares attaches the global chain. The request logger sits outermost so
// it sees the status written by the error mapper.
func RegisterMiddlewares(app *fiber.App, cfg MiddlewareConfig) {
	app.Use(observability.RequestLogger(cfg.Logger, cfg.Metrics))
	app.Use(errorHandlingMiddleware(cfg.Logger, cfg.Metrics))
	if cfg.Timeout > 0 {
		app.Use(requestTimeoutMiddleware(cfg.Timeout))
	}
	app.Use(corsGuard(cfg.CORS))
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(cfg.CORS.AllowOrigins, ","),
		AllowMethods: strings.Join(cfg.CORS.AllowMethods, ","),
		AllowHeaders: strings.Join(cfg.CORS.AllowHeaders, ","),
	}))
}

// ErrorHandler is installed as the fiber app's ErrorHandler for errors raised outside
// the middleware chain.
func ErrorHandler(logger *zap.Logger, metrics *observability.Metrics) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		return writeError(c, err, logger, metrics)
	}
}

func requestTimeoutMiddleware(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

func errorHandlingMiddleware(logger *zap.Logger, metrics *observability.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
				err = &apperrors.Recovered{Value: r}
			}
			if err != nil {
				err = writeError(c, err, logger, metrics)
			}
		}()
		return c.Next()
	}
}

// writeError resolves err through the error table and writes the plain text outcome.
func writeError(c *fiber.Ctx, err error, logger *zap.Logger, metrics *observability.Metrics) error {
	out := apperrors.Resolve(err)
	metrics.RecordError(out.Label)

	fields := []zap.Field{
		zap.String("request_id", observability.RequestID(c)),
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Int("status", out.Status),
		zap.String("kind", out.Label),
		zap.Error(err),
	}
	var routingMiss *fiber.Error
	switch {
	case out.Status >= fiber.StatusInternalServerError:
		logger.Error("request failed", fields...)
	case out.Label == apperrors.LabelRouteNotFound && !errors.As(err, &routingMiss):
		logger.Error("unclassified error", fields...)
	default:
		logger.Debug("request rejected", fields...)
	}

	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	return c.Status(out.Status).SendString(out.Body)
}

// corsGuard rejects cross-origin requests the policy does not allow before the cors
// middleware answers preflights.
func corsGuard(cfg config.CORSConfig) fiber.Handler {
	origins := toSet(cfg.AllowOrigins, strings.TrimSpace)
	methods := toSet(cfg.AllowMethods, strings.ToUpper)
	headers := toSet(cfg.AllowHeaders, strings.ToLower)
	anyOrigin := origins["*"]

	return func(c *fiber.Ctx) error {
		origin := c.Get(fiber.HeaderOrigin)
		if origin == "" {
			return c.Next()
		}
		if !anyOrigin && !origins[origin] {
			return &apperrors.CorsForbidden{Reason: "origin not allowed"}
		}

		if c.Method() == fiber.MethodOptions {
			requested := c.Get(fiber.HeaderAccessControlRequestMethod)
			if requested != "" && !methods[strings.ToUpper(requested)] {
				return &apperrors.CorsForbidden{Reason: "request-method not allowed"}
			}
			for _, h := range strings.Split(c.Get(fiber.HeaderAccessControlRequestHeaders), ",") {
				h = strings.ToLower(strings.TrimSpace(h))
				if h != "" && !headers[h] {
					return &apperrors.CorsForbidden{Reason: "header not allowed"}
				}
			}
		}
		return c.Next()
	}
}

func toSet(values []string, norm func(string) string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[norm(strings.TrimSpace(v))] = true
	}
	return set
}
