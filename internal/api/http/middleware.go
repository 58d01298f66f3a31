package http

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/qss-platform/resident-service/internal/observability"
	"github.com/qss-platform/resident-service/pkg/util"
)

// RegisterMiddlewares attaches global middlewares such as error handling and logging.
func RegisterMiddlewares(app *fiber.App, logger *zap.Logger, metrics *observability.Metrics, timeout time.Duration) {
	if timeout > 0 {
		app.Use(requestTimeoutMiddleware(timeout))
	}
	app.Use(errorHandlingMiddleware(logger, metrics))
	app.Use(observability.RequestLogger(logger, metrics))
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
				err = util.NewInternalError(nil)
			}
			if err != nil {
				domainErr := util.ToDomainError(err)
				if metrics != nil {
					metrics.RecordError(c.Path(), c.Method(), domainErr.Code)
				}
				response := fiber.Map{"error": fiber.Map{
					"code":    domainErr.Code,
					"message": domainErr.Message,
				}}
				if len(domainErr.Details) > 0 {
					response["error"].(fiber.Map)["details"] = domainErr.Details
				}
				if domainErr.HTTPStatus >= 500 {
					logger.Error("request failed", zap.Error(domainErr))
				}
				c.Status(domainErr.HTTPStatus)
				_ = c.JSON(response)
				err = nil
			}
		}()
		return c.Next()
	}
}

// ThrottleMiddleware limits each client to perMinute requests, counted in
// redis so the limit holds across replicas. A redis outage fails open.
func ThrottleMiddleware(client *redis.Client, perMinute int, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if client == nil || perMinute <= 0 {
			return c.Next()
		}
		window := time.Now().Unix() / 60
		key := fmt.Sprintf("throttle:%s:%d", c.IP(), window)

		count, err := client.Incr(c.UserContext(), key).Result()
		if err != nil {
			logger.Warn("throttle counter unavailable", zap.Error(err))
			return c.Next()
		}
		if count == 1 {
			if err := client.Expire(c.UserContext(), key, time.Minute).Err(); err != nil {
				logger.Warn("throttle expiry set failed", zap.Error(err))
			}
		}
		if count > int64(perMinute) {
			return util.NewQuotaExceeded("too many requests", map[string]any{
				"limit_per_minute": perMinute,
			})
		}
		return c.Next()
	}
}
