package handlers

import (
	"math"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"alfredoptarigan/cv-analyzer/internal/models"
	"alfredoptarigan/cv-analyzer/internal/services"
)

const (
	headerRateLimitLimit     = "X-RateLimit-Limit"
	headerRateLimitRemaining = "X-RateLimit-Remaining"
	headerRateLimitReset     = "X-RateLimit-Reset"

	kindAuth     = "auth"
	kindInternal = "internal"
)

// statusFor maps a pipeline failure onto an HTTP status.
func statusFor(appErr *services.AppError) int {
	switch appErr.Kind {
	case services.KindValidation:
		switch appErr.Code {
		case services.CodeFileTooLarge:
			return fiber.StatusRequestEntityTooLarge
		case services.CodeUnsupportedFileType:
			return fiber.StatusUnsupportedMediaType
		}
		return fiber.StatusBadRequest
	case services.KindRateLimited:
		return fiber.StatusTooManyRequests
	case services.KindLLM:
		return fiber.StatusBadGateway
	}
	return fiber.StatusInternalServerError
}

// writeError renders err as an ErrorResponse. Provider failures never expose
// their cause; it is logged under the request id instead.
func writeError(c *fiber.Ctx, log *zap.Logger, err error) error {
	appErr, ok := services.AsAppError(err)
	if !ok {
		log.Error("http.unhandled_error", zap.String("request_id", requestID(c)), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{
			Error:     "Internal server error",
			Code:      "internal_error",
			Kind:      kindInternal,
			RequestID: requestID(c),
		})
	}

	resp := models.ErrorResponse{
		Error:     appErr.Message,
		Code:      appErr.Code,
		Kind:      string(appErr.Kind),
		RequestID: requestID(c),
	}

	switch appErr.Kind {
	case services.KindValidation:
		resp.Details = appErr.Details
	case services.KindRateLimited:
		resp.Details = appErr.Details
		setRateLimitHeaders(c, appErr)
	case services.KindLLM:
		resp.Error = "The analysis provider is unavailable. Please try again later."
	}

	return c.Status(statusFor(appErr)).JSON(resp)
}

func setRateLimitHeaders(c *fiber.Ctx, appErr *services.AppError) {
	retryAfter := int(math.Ceil(appErr.RetryAfter.Seconds()))
	if retryAfter < 1 {
		retryAfter = 1
	}
	c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retryAfter))
	c.Set(headerRateLimitRemaining, "0")

	if limit, ok := appErr.Details["limit"].(int); ok {
		c.Set(headerRateLimitLimit, strconv.Itoa(limit))
	}
	if reset, ok := appErr.Details["reset_at"].(int64); ok {
		c.Set(headerRateLimitReset, strconv.FormatInt(reset, 10))
	}
}

// customErrorHandler is the catch-all for errors returned by handlers and
// middleware (body limit, unknown routes, panics turned into errors).
func customErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "Internal server error"

		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
			message = e.Message
		} else {
			log.Error("http.unhandled_error", zap.String("request_id", requestID(c)), zap.Error(err))
		}

		return c.Status(code).JSON(fiber.Map{
			"error":      message,
			"code":       code,
			"request_id": requestID(c),
		})
	}
}
