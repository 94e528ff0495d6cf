package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/senatai/backend/internal/evaluation"
	"github.com/senatai/backend/internal/predictor"
	"github.com/senatai/backend/pkg/logger"
)

type PredictHandler struct {
	predictor *predictor.Predictor
	auditor   *evaluation.Auditor
}

func NewPredictHandler(p *predictor.Predictor, auditor *evaluation.Auditor) *PredictHandler {
	return &PredictHandler{
		predictor: p,
		auditor:   auditor,
	}
}

func (h *PredictHandler) HandlePredict(c *fiber.Ctx) error {
	var req struct {
		SenatairID string `json:"senatair_id"`
		DocumentID string `json:"document_id"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.SenatairID == "" || req.DocumentID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "senatair_id and document_id are required",
		})
	}

	prediction, err := h.predictor.Predict(req.SenatairID, req.DocumentID)
	if err != nil {
		logger.Error("Failed to predict stance", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to predict stance",
		})
	}

	return c.JSON(prediction)
}

// HandleFeedback records whether the predicted person agrees with a
// stored prediction.
func (h *PredictHandler) HandleFeedback(c *fiber.Ctx) error {
	predictionID := c.Params("id")

	var req struct {
		SenatairID string `json:"senatair_id"`
		Agreement  bool   `json:"agreement"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.SenatairID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "senatair_id is required",
		})
	}

	if err := h.auditor.RecordFeedback(predictionID, req.SenatairID, req.Agreement); err != nil {
		logger.Error("Failed to record prediction feedback", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Failed to record feedback",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Feedback recorded",
	})
}

func (h *PredictHandler) HandleReport(c *fiber.Ctx) error {
	report, err := h.auditor.BuildReport()
	if err != nil {
		logger.Error("Failed to build prediction report", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to build report",
		})
	}

	return c.JSON(report)
}
