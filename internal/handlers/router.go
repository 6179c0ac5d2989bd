package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"alfredoptarigan/cv-analyzer/internal/config"
	"alfredoptarigan/cv-analyzer/internal/services"
)

// multipartOverhead is the room left above the upload limit for the job
// description and form boundaries, so an oversized file reaches the
// validator and gets a typed file_too_large instead of a bare 413.
const multipartOverhead = 1 << 20

// NewApp builds the Fiber application with middleware and routes.
func NewApp(cfg *config.Config, svc services.AnalysisService, log *zap.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "CV Analyzer API",
		ReadTimeout:           cfg.Server.ReadTimeout,
		WriteTimeout:          cfg.Server.WriteTimeout,
		BodyLimit:             int(cfg.Upload.MaxUploadBytes) + multipartOverhead,
		ErrorHandler:          customErrorHandler(log),
		DisableStartupMessage: !cfg.IsDevelopment(),
	})

	// Middleware
	app.Use(requestid.New(requestid.Config{
		Generator:  uuid.NewString,
		ContextKey: localsRequestID,
	}))
	app.Use(recover.New())
	if cfg.IsDevelopment() {
		app.Use(fiberlogger.New(fiberlogger.Config{
			Format:     "[${time}] ${status} - ${latency} ${method} ${path} ${locals:requestid}\n",
			TimeFormat: "2006-01-02 15:04:05",
		}))
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, " + HeaderAPIKey,
	}))

	analyzeHandler := NewAnalyzeHandler(svc, cfg.Upload.MaxUploadBytes, log)
	parseHandler := NewParseHandler(svc, cfg.Upload.MaxUploadBytes, log)
	healthHandler := NewHealthHandler(svc)

	// Routes
	app.Get("/", healthHandler.HandleRoot)

	api := app.Group("/api/v1")
	api.Get("/health", healthHandler.HandleHealth)

	cv := api.Group("/cv", APIKeyAuth(cfg.Auth, log))
	cv.Post("/analyze", analyzeHandler.HandleAnalyze)
	cv.Post("/parse", parseHandler.HandleParse)

	return app
}
