package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"alfredoptarigan/cv-analyzer/internal/models"
	"alfredoptarigan/cv-analyzer/internal/services"
)

type HealthHandler struct {
	svc services.AnalysisService
}

func NewHealthHandler(svc services.AnalysisService) *HealthHandler {
	return &HealthHandler{svc: svc}
}

func (h *HealthHandler) HandleHealth(c *fiber.Ctx) error {
	return c.JSON(models.HealthResponse{
		Status: "healthy",
		Time:   time.Now(),
		Cache:  h.svc.CacheStats(),
	})
}

func (h *HealthHandler) HandleRoot(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message": "CV Analyzer API",
		"version": "1.0.0",
		"endpoints": []string{
			"GET /api/v1/health",
			"POST /api/v1/cv/analyze",
			"POST /api/v1/cv/parse",
		},
	})
}
