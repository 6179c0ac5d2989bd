package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"alfredoptarigan/cv-analyzer/internal/models"
	"alfredoptarigan/cv-analyzer/internal/services"
)

const previewChars = 800

type ParseHandler struct {
	svc            services.AnalysisService
	maxUploadBytes int64
	log            *zap.Logger
}

func NewParseHandler(svc services.AnalysisService, maxUploadBytes int64, log *zap.Logger) *ParseHandler {
	return &ParseHandler{
		svc:            svc,
		maxUploadBytes: maxUploadBytes,
		log:            log,
	}
}

// HandleParse handles POST /cv/parse. It previews what extraction produced
// without calling the model.
func (h *ParseHandler) HandleParse(c *fiber.Ctx) error {
	doc, err := readCVFile(c, h.maxUploadBytes)
	if err != nil {
		return writeError(c, h.log, err)
	}

	cv, err := h.svc.Parse(c.UserContext(), requestID(c), callerIdentity(c), doc)
	if err != nil {
		return writeError(c, h.log, err)
	}

	preview, _ := services.ClipText(cv.Text, previewChars)
	warnings := cv.Warnings
	if warnings == nil {
		warnings = []string{}
	}

	return c.JSON(models.ParseResponse{
		FileName:  doc.Filename,
		FileType:  cv.Source,
		CharCount: cv.CharCount,
		Preview:   preview,
		Truncated: cv.Truncated,
		Meta:      cv.Meta,
		Warnings:  warnings,
	})
}
