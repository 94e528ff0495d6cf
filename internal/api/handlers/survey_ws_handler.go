package handlers

import (
	"context"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/senatai/backend/internal/matcher"
	"github.com/senatai/backend/internal/rewards"
	"github.com/senatai/backend/internal/storage/models"
	"github.com/senatai/backend/internal/storage/sqlite"
	"github.com/senatai/backend/internal/survey"
	"github.com/senatai/backend/pkg/logger"
)

// How many answers between meta check-in questions.
const checkInEvery = 5

// How many matched documents get survey questions per concern.
const maxQuestionDocs = 3

type SurveyHandler struct {
	matcher   *matcher.Matcher
	generator *survey.Generator
	scheduler *rewards.Scheduler
	db        *sqlite.Client
}

func NewSurveyHandler(m *matcher.Matcher, g *survey.Generator, s *rewards.Scheduler, db *sqlite.Client) *SurveyHandler {
	return &SurveyHandler{
		matcher:   m,
		generator: g,
		scheduler: s,
		db:        db,
	}
}

type surveyMessage struct {
	Type            string   `json:"type"`
	SenatairID      string   `json:"senatair_id"`
	Text            string   `json:"text"`
	DocumentID      string   `json:"document_id"`
	QuestionText    string   `json:"question_text"`
	QuestionType    string   `json:"question_type"`
	Score           int      `json:"score"`
	MatchedKeywords []string `json:"matched_keywords"`
	IsMeta          bool     `json:"is_meta"`
}

// HandleConnection drives one interactive survey session: an icebreaker
// greeting, free-text concerns matched to documents, generated questions
// per document, and graded answers rewarded as they arrive. Every few
// answers the session slips in a meta check-in about the survey itself.
func (h *SurveyHandler) HandleConnection(c *websocket.Conn) {
	logger.Info("Survey session opened")

	sessionID := uuid.New().String()
	senatairID := ""
	answered := 0

	defer func() {
		c.Close()
		logger.Info("Survey session closed",
			zap.String("session_id", sessionID),
			zap.Int("answers", answered),
		)
	}()

	for {
		var msg surveyMessage
		if err := c.ReadJSON(&msg); err != nil {
			break
		}

		switch msg.Type {
		case "hello":
			if msg.SenatairID == "" {
				h.sendError(c, "senatair_id is required")
				continue
			}
			senatairID = msg.SenatairID

			if err := h.scheduler.EnsureAccount(senatairID); err != nil {
				logger.Error("Failed to ensure account", zap.Error(err))
				h.sendError(c, "Failed to open session")
				continue
			}

			c.WriteJSON(map[string]interface{}{
				"type":       "icebreaker",
				"session_id": sessionID,
				"text":       h.generator.Icebreaker(),
			})

		case "concern":
			if senatairID == "" {
				h.sendError(c, "Say hello first")
				continue
			}
			if msg.Text == "" {
				h.sendError(c, "Concern text is required")
				continue
			}

			if err := h.handleConcern(c, msg.Text); err != nil {
				logger.Error("Failed to handle concern", zap.Error(err))
				h.sendError(c, "Failed to match concern")
			}

		case "answer":
			if senatairID == "" {
				h.sendError(c, "Say hello first")
				continue
			}

			resp := &models.Response{
				SenatairID:      senatairID,
				SessionID:       sessionID,
				DocumentID:      msg.DocumentID,
				QuestionText:    msg.QuestionText,
				QuestionType:    msg.QuestionType,
				Score:           msg.Score,
				MatchedKeywords: msg.MatchedKeywords,
				IsMeta:          msg.IsMeta,
			}

			reward, balance, err := h.scheduler.RecordResponse(resp)
			if err != nil {
				logger.Error("Failed to record answer", zap.Error(err))
				h.sendError(c, "Failed to record answer")
				continue
			}

			answered++
			c.WriteJSON(map[string]interface{}{
				"type":    "reward",
				"reward":  reward,
				"policap": balance,
			})

			if answered%checkInEvery == 0 {
				c.WriteJSON(map[string]interface{}{
					"type":     "check_in",
					"question": h.generator.CheckIn(),
				})
			}

		default:
			h.sendError(c, "Unknown message type")
		}
	}
}

func (h *SurveyHandler) handleConcern(c *websocket.Conn, text string) error {
	ctx := context.Background()

	results, terms, err := h.matcher.Match(ctx, text, maxQuestionDocs)
	if err != nil {
		return err
	}

	fallback := false
	if len(results) == 0 {
		recent, err := h.db.ListRecentDocuments(maxQuestionDocs)
		if err != nil {
			return err
		}
		for _, d := range recent {
			results = append(results, matcher.Result{
				Document:     d,
				MatchedTerms: []string{},
			})
		}
		fallback = true
	}

	c.WriteJSON(map[string]interface{}{
		"type":        "matches",
		"matches":     results,
		"query_terms": terms,
		"fallback":    fallback,
	})

	for _, r := range results {
		doc := r.Document
		c.WriteJSON(map[string]interface{}{
			"type":             "questions",
			"document_id":      doc.ID,
			"title":            doc.Title,
			"matched_keywords": r.MatchedTerms,
			"questions":        h.generator.ForDocument(&doc, 2),
		})
	}

	return nil
}

func (h *SurveyHandler) sendError(c *websocket.Conn, errorMsg string) {
	c.WriteJSON(map[string]interface{}{
		"type":  "error",
		"error": errorMsg,
	})
}
