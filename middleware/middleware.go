// Package middleware holds the Fiber middleware: authentication, role guards and request logging.
package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/cakeworks/cake-sales/logger"
)

// RequestLogger logs one line per request with its status and latency.
func RequestLogger(log *logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		kv := []interface{}{
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"latency", time.Since(start).String(),
			"request_id", c.GetRespHeader(fiber.HeaderXRequestID),
		}
		if user, ok := c.Locals("username").(string); ok && user != "" {
			kv = append(kv, "user", user)
		}
		switch {
		case status >= fiber.StatusInternalServerError:
			log.Error("request failed", kv...)
		case status >= fiber.StatusBadRequest:
			log.Warn("request rejected", kv...)
		default:
			log.Info("request served", kv...)
		}
		return err
	}
}
