package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/senatai/backend/internal/ingestion"
	"github.com/senatai/backend/internal/storage/sqlite"
	"github.com/senatai/backend/pkg/logger"
)

type DocumentHandler struct {
	processor *ingestion.Processor
	db        *sqlite.Client
}

func NewDocumentHandler(processor *ingestion.Processor, db *sqlite.Client) *DocumentHandler {
	return &DocumentHandler{
		processor: processor,
		db:        db,
	}
}

func (h *DocumentHandler) IngestDocument(c *fiber.Ctx) error {
	var req struct {
		ID       string `json:"id"`
		Title    string `json:"title"`
		Summary  string `json:"summary"`
		Body     string `json:"body"`
		HTMLBody string `json:"html_body"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Title == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Title is required",
		})
	}
	if req.Body == "" && req.HTMLBody == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Body or HTML body is required",
		})
	}

	id, written, err := h.processor.Ingest(c.Context(), ingestion.Document{
		ID:       req.ID,
		Title:    req.Title,
		Summary:  req.Summary,
		Body:     req.Body,
		HTMLBody: req.HTMLBody,
	})
	if err != nil {
		logger.Error("Failed to ingest document", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to ingest document",
		})
	}

	return c.JSON(fiber.Map{
		"id":               id,
		"keywords_written": written,
	})
}

func (h *DocumentHandler) ListRecent(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 10)
	if limit < 1 || limit > 100 {
		limit = 10
	}

	docs, err := h.db.ListRecentDocuments(limit)
	if err != nil {
		logger.Error("Failed to list recent documents", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list documents",
		})
	}

	items := make([]fiber.Map, 0, len(docs))
	for _, d := range docs {
		items = append(items, fiber.Map{
			"id":         d.ID,
			"title":      d.Title,
			"summary":    d.Summary,
			"created_at": d.CreatedAt.Unix(),
		})
	}

	return c.JSON(fiber.Map{
		"documents": items,
	})
}
