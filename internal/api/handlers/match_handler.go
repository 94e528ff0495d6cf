package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/senatai/backend/internal/matcher"
	"github.com/senatai/backend/internal/storage/sqlite"
	"github.com/senatai/backend/pkg/logger"
)

type MatchHandler struct {
	matcher *matcher.Matcher
	db      *sqlite.Client
}

func NewMatchHandler(m *matcher.Matcher, db *sqlite.Client) *MatchHandler {
	return &MatchHandler{
		matcher: m,
		db:      db,
	}
}

// HandleMatch ranks indexed documents against a free-text concern. When
// nothing in the index overlaps the concern, the most recent documents
// are offered instead so the caller always has something to react to.
func (h *MatchHandler) HandleMatch(c *fiber.Ctx) error {
	var req struct {
		Text  string `json:"text"`
		Limit int    `json:"limit"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Text == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Concern text is required",
		})
	}

	results, terms, err := h.matcher.Match(c.Context(), req.Text, req.Limit)
	if err != nil {
		logger.Error("Failed to match concern", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to match concern",
		})
	}

	if len(results) > 0 {
		return c.JSON(fiber.Map{
			"matches":     results,
			"query_terms": terms,
			"fallback":    false,
		})
	}

	limit := req.Limit
	if limit < 1 {
		limit = h.matcher.DefaultLimit()
	}
	recent, err := h.db.ListRecentDocuments(limit)
	if err != nil {
		logger.Error("Failed to load fallback documents", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to match concern",
		})
	}

	fallback := make([]matcher.Result, 0, len(recent))
	for _, d := range recent {
		fallback = append(fallback, matcher.Result{
			Document:     d,
			MatchedTerms: []string{},
		})
	}

	return c.JSON(fiber.Map{
		"matches":     fallback,
		"query_terms": terms,
		"fallback":    true,
	})
}
