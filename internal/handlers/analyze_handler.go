package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"alfredoptarigan/cv-analyzer/internal/models"
	"alfredoptarigan/cv-analyzer/internal/services"
)

type AnalyzeHandler struct {
	svc            services.AnalysisService
	maxUploadBytes int64
	log            *zap.Logger
}

func NewAnalyzeHandler(svc services.AnalysisService, maxUploadBytes int64, log *zap.Logger) *AnalyzeHandler {
	return &AnalyzeHandler{
		svc:            svc,
		maxUploadBytes: maxUploadBytes,
		log:            log,
	}
}

// HandleAnalyze handles POST /cv/analyze
func (h *AnalyzeHandler) HandleAnalyze(c *fiber.Ctx) error {
	doc, err := readCVFile(c, h.maxUploadBytes)
	if err != nil {
		return writeError(c, h.log, err)
	}

	outcome, err := h.svc.Analyze(c.UserContext(), models.AnalysisRequest{
		RequestID:      requestID(c),
		CallerIdentity: callerIdentity(c),
		Document:       doc,
		JobDescription: c.FormValue("job_description"),
	})
	if err != nil {
		return writeError(c, h.log, err)
	}

	return c.JSON(models.NewAnalysisResponse(outcome))
}

// readCVFile pulls the cv_file part out of the multipart form.
func readCVFile(c *fiber.Ctx, maxUploadBytes int64) (models.UploadedDocument, error) {
	fh, err := c.FormFile("cv_file")
	if err != nil {
		return models.UploadedDocument{}, services.NewValidationError(
			"missing_file", "cv_file is required as a multipart file field.", nil)
	}

	doc, err := services.ReadUpload(fh, maxUploadBytes)
	if err != nil {
		return models.UploadedDocument{}, services.NewValidationError(
			services.CodeCorruptDocument, "Failed to read the uploaded file.", nil)
	}
	return doc, nil
}
