package middleware

import (
	"fmt"
	"runtime/debug"
	"time"

	"bms/internal/metrics"
	"bms/pkg/logger"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const HeaderRequestID = "X-Request-ID"

// RequestID memastikan setiap request punya X-Request-ID.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Locals("requestID", id)
		c.Set(HeaderRequestID, id)
		return c.Next()
	}
}

// ErrorHandler menangkap panic, mengirimnya ke Sentry, lalu mencatat
// setiap request beserta status dan durasinya.
func ErrorHandler() fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		start := time.Now()
		defer func() {
			if r := recover(); r != nil {
				errMsg := fmt.Sprintf("Recovered from panic: %v", r)
				stack := string(debug.Stack())
				logger.ErrorLogger.Error(errMsg,
					zap.String("stack", stack),
					zap.Any("request_id", c.Locals("requestID")),
				)
				sentry.CurrentHub().Clone().Recover(r)
				err = c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"message": "Internal server error",
					"success": false,
					"status":  fiber.StatusInternalServerError,
				})
			}
			logRequest(c, start)
		}()

		// Logging request masuk
		logger.RequestLogger.Info("Incoming request",
			zap.String("method", c.Method()),
			zap.String("url", c.OriginalURL()),
			zap.Any("request_id", c.Locals("requestID")),
		)
		err = c.Next()
		if err != nil {
			// Biarkan fiber.ErrorHandler menulis respons sebelum dicatat.
			if handlerErr := c.App().ErrorHandler(c, err); handlerErr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
			err = nil
		}
		return err
	}
}

func logRequest(c *fiber.Ctx, start time.Time) {
	status := c.Response().StatusCode()
	elapsed := time.Since(start)
	route := c.Path()
	if r := c.Route(); r != nil && r.Path != "" {
		route = r.Path
	}
	metrics.RecordRequest(c.Method(), route, status, elapsed)
	logger.RequestLogger.Info("Request completed",
		zap.String("method", c.Method()),
		zap.String("route", route),
		zap.Int("status", status),
		zap.Duration("duration", elapsed),
		zap.Any("request_id", c.Locals("requestID")),
	)
}
