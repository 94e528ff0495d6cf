package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/senatai/backend/internal/rewards"
	"github.com/senatai/backend/internal/storage/models"
	"github.com/senatai/backend/pkg/logger"
)

type ResponseHandler struct {
	scheduler *rewards.Scheduler
}

func NewResponseHandler(scheduler *rewards.Scheduler) *ResponseHandler {
	return &ResponseHandler{
		scheduler: scheduler,
	}
}

// SubmitResponse records one graded answer and settles its policap
// reward in the same transaction as the daily counter update.
func (h *ResponseHandler) SubmitResponse(c *fiber.Ctx) error {
	var req struct {
		SenatairID      string   `json:"senatair_id"`
		SessionID       string   `json:"session_id"`
		DocumentID      string   `json:"document_id"`
		QuestionText    string   `json:"question_text"`
		QuestionType    string   `json:"question_type"`
		Score           int      `json:"score"`
		MatchedKeywords []string `json:"matched_keywords"`
		IsMeta          bool     `json:"is_meta"`
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
	if req.Score < 1 || req.Score > 5 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "score must be between 1 and 5",
		})
	}

	resp := &models.Response{
		SenatairID:      req.SenatairID,
		SessionID:       req.SessionID,
		DocumentID:      req.DocumentID,
		QuestionText:    req.QuestionText,
		QuestionType:    req.QuestionType,
		Score:           req.Score,
		MatchedKeywords: req.MatchedKeywords,
		IsMeta:          req.IsMeta,
	}

	reward, balance, err := h.scheduler.RecordResponse(resp)
	if err != nil {
		logger.Error("Failed to record response", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to record response",
		})
	}

	return c.JSON(fiber.Map{
		"id":      resp.ID,
		"reward":  reward,
		"policap": balance,
	})
}
