package handlers

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"alfredoptarigan/cv-analyzer/internal/config"
	"alfredoptarigan/cv-analyzer/internal/logger"
	"alfredoptarigan/cv-analyzer/internal/models"
)

const (
	HeaderAPIKey = "X-API-Key"

	localsRequestID = "requestid"
	localsIdentity  = "caller_identity"
)

func requestID(c *fiber.Ctx) string {
	id, _ := c.Locals(localsRequestID).(string)
	return id
}

func callerIdentity(c *fiber.Ctx) string {
	id, _ := c.Locals(localsIdentity).(string)
	return id
}

// APIKeyAuth resolves the caller identity used for rate limiting. With auth
// enabled the identity is a digest of the presented key, so the key itself
// never reaches the limiter or the logs. Without auth it is the client IP.
func APIKeyAuth(cfg config.AuthConfig, log *zap.Logger) fiber.Handler {
	keys := make([][]byte, 0, len(cfg.Keys()))
	for _, k := range cfg.Keys() {
		keys = append(keys, []byte(k))
	}

	return func(c *fiber.Ctx) error {
		if !cfg.APIKeyRequired {
			c.Locals(localsIdentity, "ip:"+c.IP())
			return c.Next()
		}

		presented := c.Get(HeaderAPIKey)
		if presented == "" {
			log.Warn("auth.missing_key", zap.String("request_id", requestID(c)), zap.String("path", c.Path()))
			return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse{
				Error:     "Missing API key. Provide it in the X-API-Key header.",
				Code:      "missing_api_key",
				Kind:      kindAuth,
				RequestID: requestID(c),
			})
		}

		if !matchesAny(keys, []byte(presented)) {
			log.Warn("auth.invalid_key",
				zap.String("request_id", requestID(c)),
				zap.String("key_hash", logger.HashForLog(presented)))
			return c.Status(fiber.StatusForbidden).JSON(models.ErrorResponse{
				Error:     "Invalid API key.",
				Code:      "invalid_api_key",
				Kind:      kindAuth,
				RequestID: requestID(c),
			})
		}

		c.Locals(localsIdentity, "key:"+logger.HashForLog(presented))
		return c.Next()
	}
}

// matchesAny compares against every key so timing does not reveal which one matched.
func matchesAny(keys [][]byte, presented []byte) bool {
	matched := 0
	for _, k := range keys {
		matched |= subtle.ConstantTimeCompare(k, presented)
	}
	return matched == 1
}
