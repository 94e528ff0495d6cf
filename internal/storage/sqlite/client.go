package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/senatai/backend/internal/storage/models"
	"github.com/senatai/backend/pkg/logger"
	"github.com/senatai/backend/pkg/retry"
)

var ErrNotFound = errors.New("not found")

type Client struct {
	db *sql.DB
}

// DocumentMatch is one row of a keyword lookup: a document grouped with
// how many distinct query terms it matched and the aggregate signal of
// those matches.
type DocumentMatch struct {
	DocumentID     string
	MatchCount     int
	TotalRelevance float64
	TotalFrequency int
	MatchedTerms   []string
}

// PredictionOutcome joins a stored prediction with one piece of user
// feedback about it.
type PredictionOutcome struct {
	Label      string
	Confidence float64
	Agreement  bool
}

func NewClient(dbPath string) (*Client, error) {
	// _txlock=immediate makes write transactions take the write lock up
	// front, which the per-person reward accounting relies on.
	db, err := sql.Open("sqlite3", dbPath+"?_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, err = db.Exec("PRAGMA foreign_keys = ON")
	if err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	_, err = db.Exec("PRAGMA journal_mode = WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		summary TEXT,
		body TEXT,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		extracted_at INTEGER
	);
	CREATE INDEX IF NOT EXISTS idx_documents_updated ON documents(updated_at);

	CREATE TABLE IF NOT EXISTS document_keywords (
		document_id TEXT NOT NULL,
		term TEXT NOT NULL,
		category TEXT NOT NULL,
		frequency INTEGER NOT NULL,
		relevance REAL NOT NULL,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (document_id, term, category),
		FOREIGN KEY (document_id) REFERENCES documents(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_keywords_term ON document_keywords(term);

	CREATE TABLE IF NOT EXISTS responses (
		id TEXT PRIMARY KEY,
		senatair_id TEXT NOT NULL,
		session_id TEXT,
		document_id TEXT,
		question_text TEXT NOT NULL,
		question_type TEXT,
		score INTEGER NOT NULL,
		matched_keywords TEXT,
		is_meta INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_responses_senatair ON responses(senatair_id);
	CREATE INDEX IF NOT EXISTS idx_responses_created ON responses(created_at);

	CREATE TABLE IF NOT EXISTS senatairs (
		id TEXT PRIMARY KEY,
		policap REAL NOT NULL,
		daily_count INTEGER NOT NULL DEFAULT 0,
		daily_reset TEXT NOT NULL,
		last_active INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS predicted_votes (
		id TEXT PRIMARY KEY,
		senatair_id TEXT NOT NULL,
		document_id TEXT NOT NULL,
		predicted_label TEXT NOT NULL,
		score_estimate REAL NOT NULL,
		confidence REAL NOT NULL,
		explanation TEXT,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_predictions_senatair ON predicted_votes(senatair_id);

	CREATE TABLE IF NOT EXISTS prediction_feedback (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		prediction_id TEXT NOT NULL,
		senatair_id TEXT NOT NULL,
		agreement INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		FOREIGN KEY (prediction_id) REFERENCES predicted_votes(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_feedback_prediction ON prediction_feedback(prediction_id);
	`

	_, err := c.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}

func (c *Client) UpsertDocument(doc *models.Document) error {
	query := `
		INSERT INTO documents (id, title, summary, body, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			summary = excluded.summary,
			body = excluded.body,
			updated_at = excluded.updated_at,
			extracted_at = NULL
	`

	_, err := c.db.Exec(
		query,
		doc.ID,
		doc.Title,
		doc.Summary,
		doc.Body,
		doc.CreatedAt.Unix(),
		doc.UpdatedAt.Unix(),
	)

	if err != nil {
		return fmt.Errorf("failed to upsert document: %w", err)
	}

	logger.Debug("Document upserted", zap.String("doc_id", doc.ID), zap.String("title", doc.Title))
	return nil
}

func (c *Client) GetDocument(id string) (*models.Document, error) {
	query := `SELECT id, title, summary, body, created_at, updated_at FROM documents WHERE id = ?`

	var doc models.Document
	var createdAt, updatedAt int64

	err := c.db.QueryRow(query, id).Scan(
		&doc.ID,
		&doc.Title,
		&doc.Summary,
		&doc.Body,
		&createdAt,
		&updatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	doc.CreatedAt = time.Unix(createdAt, 0)
	doc.UpdatedAt = time.Unix(updatedAt, 0)

	return &doc, nil
}

func (c *Client) ListRecentDocuments(limit int) ([]models.Document, error) {
	query := `
		SELECT id, title, summary, body, created_at, updated_at
		FROM documents
		ORDER BY updated_at DESC
		LIMIT ?
	`

	rows, err := c.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent documents: %w", err)
	}
	defer rows.Close()

	return scanDocuments(rows)
}

// DocumentsPendingExtraction returns documents the extractor has not
// attempted yet. A document that legitimately yields zero keywords
// (too short for signal) is stamped on attempt and stays out of this
// list, so the batch runner never re-tags the same text.
func (c *Client) DocumentsPendingExtraction(limit int) ([]models.Document, error) {
	query := `
		SELECT d.id, d.title, d.summary, d.body, d.created_at, d.updated_at
		FROM documents d
		WHERE d.extracted_at IS NULL
		ORDER BY d.updated_at DESC
		LIMIT ?
	`

	rows, err := c.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending documents: %w", err)
	}
	defer rows.Close()

	return scanDocuments(rows)
}

// MarkDocumentExtracted stamps a document as attempted, whatever the
// keyword yield was. Upserting the document again clears the stamp.
func (c *Client) MarkDocumentExtracted(id string) error {
	_, err := c.db.Exec(`UPDATE documents SET extracted_at = ? WHERE id = ?`, time.Now().Unix(), id)
	if err != nil {
		return fmt.Errorf("failed to mark document extracted: %w", err)
	}
	return nil
}

func scanDocuments(rows *sql.Rows) ([]models.Document, error) {
	var docs []models.Document
	for rows.Next() {
		var doc models.Document
		var createdAt, updatedAt int64

		err := rows.Scan(&doc.ID, &doc.Title, &doc.Summary, &doc.Body, &createdAt, &updatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		doc.CreatedAt = time.Unix(createdAt, 0)
		doc.UpdatedAt = time.Unix(updatedAt, 0)
		docs = append(docs, doc)
	}

	return docs, rows.Err()
}

// UpsertKeywords writes a document's keyword set in a single transaction,
// keyed on (document_id, term, category). A conflicting row is retried
// once and then skipped so that one bad keyword never aborts the whole
// document. Returns the number of rows written.
func (c *Client) UpsertKeywords(ctx context.Context, documentID string, keywords []models.Keyword) (int, error) {
	if len(keywords) == 0 {
		return 0, nil
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO document_keywords (document_id, term, category, frequency, relevance, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(document_id, term, category) DO UPDATE SET
			frequency = excluded.frequency,
			relevance = excluded.relevance,
			updated_at = excluded.updated_at
	`

	now := time.Now().Unix()
	written := 0

	for _, kw := range keywords {
		kw := kw
		err := retry.Do(ctx, retry.Config{MaxAttempts: 2, InitialDelay: 10 * time.Millisecond}, func() error {
			_, err := tx.Exec(query, documentID, kw.Term, kw.Category, kw.Frequency, kw.Relevance, now)
			return err
		})
		if err != nil {
			logger.Warn("Skipping keyword after failed upsert",
				zap.String("doc_id", documentID),
				zap.String("term", kw.Term),
				zap.Error(err),
			)
			continue
		}
		written++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit keywords: %w", err)
	}

	return written, nil
}

func (c *Client) GetDocumentKeywords(documentID string) ([]models.Keyword, error) {
	query := `
		SELECT document_id, term, category, frequency, relevance
		FROM document_keywords
		WHERE document_id = ?
		ORDER BY relevance DESC, frequency DESC
	`

	rows, err := c.db.Query(query, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get document keywords: %w", err)
	}
	defer rows.Close()

	var keywords []models.Keyword
	for rows.Next() {
		var kw models.Keyword
		err := rows.Scan(&kw.DocumentID, &kw.Term, &kw.Category, &kw.Frequency, &kw.Relevance)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		keywords = append(keywords, kw)
	}

	return keywords, rows.Err()
}

// LookupKeywords ranks documents containing any of the given terms.
// Primary key match_count, then aggregate relevance, then raw frequency.
func (c *Client) LookupKeywords(terms []string, limit int) ([]DocumentMatch, error) {
	if len(terms) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(terms))
	placeholders = placeholders[:len(placeholders)-1]

	query := fmt.Sprintf(`
		SELECT document_id,
		       COUNT(DISTINCT term) AS match_count,
		       SUM(relevance) AS total_relevance,
		       SUM(frequency) AS total_frequency,
		       GROUP_CONCAT(DISTINCT term) AS matched_terms
		FROM document_keywords
		WHERE term IN (%s)
		GROUP BY document_id
		ORDER BY match_count DESC, total_relevance DESC, total_frequency DESC
		LIMIT ?
	`, placeholders)

	args := make([]interface{}, 0, len(terms)+1)
	for _, term := range terms {
		args = append(args, term)
	}
	args = append(args, limit)

	rows, err := c.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to lookup keywords: %w", err)
	}
	defer rows.Close()

	var matches []DocumentMatch
	for rows.Next() {
		var m DocumentMatch
		var matched string

		err := rows.Scan(&m.DocumentID, &m.MatchCount, &m.TotalRelevance, &m.TotalFrequency, &matched)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		m.MatchedTerms = strings.Split(matched, ",")
		matches = append(matches, m)
	}

	return matches, rows.Err()
}

func (c *Client) EnsureSenatair(id string, initialPolicap float64) error {
	now := time.Now()
	query := `
		INSERT OR IGNORE INTO senatairs (id, policap, daily_count, daily_reset, last_active, created_at)
		VALUES (?, ?, 0, ?, ?, ?)
	`

	_, err := c.db.Exec(query, id, initialPolicap, now.Format("2006-01-02"), now.Unix(), now.Unix())
	if err != nil {
		return fmt.Errorf("failed to ensure senatair: %w", err)
	}

	return nil
}

func (c *Client) GetSenatair(id string) (*models.Senatair, error) {
	query := `SELECT id, policap, daily_count, daily_reset, last_active, created_at FROM senatairs WHERE id = ?`

	var s models.Senatair
	var lastActive, createdAt int64

	err := c.db.QueryRow(query, id).Scan(&s.ID, &s.Policap, &s.DailyCount, &s.DailyReset, &lastActive, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get senatair: %w", err)
	}

	s.LastActive = time.Unix(lastActive, 0)
	s.CreatedAt = time.Unix(createdAt, 0)

	return &s, nil
}

// RecordResponse appends a graded response and settles its reward in one
// transaction: read today's count, compute the reward from it, insert the
// response and bump the counter and balance. Two concurrent responses by
// the same person cannot observe the same count.
func (c *Client) RecordResponse(resp *models.Response, rewardFor func(dailyCount int) float64) (float64, float64, error) {
	tx, err := c.db.Begin()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := resp.CreatedAt
	if now.IsZero() {
		now = time.Now()
	}
	today := now.Format("2006-01-02")

	_, err = tx.Exec(`
		INSERT OR IGNORE INTO senatairs (id, policap, daily_count, daily_reset, last_active, created_at)
		VALUES (?, 0, 0, ?, ?, ?)
	`, resp.SenatairID, today, now.Unix(), now.Unix())
	if err != nil {
		return 0, 0, fmt.Errorf("failed to ensure senatair: %w", err)
	}

	var dailyCount int
	var dailyReset string
	var policap float64
	err = tx.QueryRow(`SELECT daily_count, daily_reset, policap FROM senatairs WHERE id = ?`, resp.SenatairID).
		Scan(&dailyCount, &dailyReset, &policap)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read daily count: %w", err)
	}

	if dailyReset != today {
		dailyCount = 0
	}

	reward := rewardFor(dailyCount)

	var docID interface{}
	if resp.DocumentID != "" {
		docID = resp.DocumentID
	}

	isMeta := 0
	if resp.IsMeta {
		isMeta = 1
	}

	_, err = tx.Exec(`
		INSERT INTO responses (id, senatair_id, session_id, document_id, question_text, question_type, score, matched_keywords, is_meta, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		resp.ID,
		resp.SenatairID,
		resp.SessionID,
		docID,
		resp.QuestionText,
		resp.QuestionType,
		resp.Score,
		strings.Join(resp.MatchedKeywords, ", "),
		isMeta,
		now.Unix(),
	)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to insert response: %w", err)
	}

	newBalance := policap + reward

	_, err = tx.Exec(`
		UPDATE senatairs
		SET daily_count = ?, daily_reset = ?, policap = ?, last_active = ?
		WHERE id = ?
	`, dailyCount+1, today, newBalance, now.Unix(), resp.SenatairID)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to update senatair: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("failed to commit response: %w", err)
	}

	logger.Debug("Response recorded",
		zap.String("senatair_id", resp.SenatairID),
		zap.Int("score", resp.Score),
		zap.Float64("reward", reward),
	)

	return reward, newBalance, nil
}

func (c *Client) GetResponses(senatairID string) ([]models.Response, error) {
	query := `
		SELECT id, senatair_id, COALESCE(session_id, ''), COALESCE(document_id, ''),
		       question_text, COALESCE(question_type, ''), score,
		       COALESCE(matched_keywords, ''), is_meta, created_at
		FROM responses
		WHERE senatair_id = ?
		ORDER BY created_at ASC
	`

	rows, err := c.db.Query(query, senatairID)
	if err != nil {
		return nil, fmt.Errorf("failed to get responses: %w", err)
	}
	defer rows.Close()

	var responses []models.Response
	for rows.Next() {
		var r models.Response
		var matched string
		var isMeta int
		var createdAt int64

		err := rows.Scan(&r.ID, &r.SenatairID, &r.SessionID, &r.DocumentID,
			&r.QuestionText, &r.QuestionType, &r.Score, &matched, &isMeta, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		r.IsMeta = isMeta != 0
		r.CreatedAt = time.Unix(createdAt, 0)
		r.MatchedKeywords = splitKeywords(matched)
		responses = append(responses, r)
	}

	return responses, rows.Err()
}

func splitKeywords(joined string) []string {
	if joined == "" {
		return nil
	}

	parts := strings.Split(joined, ",")
	keywords := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			keywords = append(keywords, p)
		}
	}
	return keywords
}

func (c *Client) InsertPrediction(p *models.Prediction) error {
	query := `
		INSERT INTO predicted_votes (id, senatair_id, document_id, predicted_label, score_estimate, confidence, explanation, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := c.db.Exec(
		query,
		p.ID,
		p.SenatairID,
		p.DocumentID,
		p.Label,
		p.ScoreEstimate,
		p.Confidence,
		p.Explanation,
		p.CreatedAt.Unix(),
	)

	if err != nil {
		return fmt.Errorf("failed to insert prediction: %w", err)
	}

	return nil
}

func (c *Client) GetPrediction(id string) (*models.Prediction, error) {
	query := `
		SELECT id, senatair_id, document_id, predicted_label, score_estimate, confidence, COALESCE(explanation, ''), created_at
		FROM predicted_votes
		WHERE id = ?
	`

	var p models.Prediction
	var createdAt int64

	err := c.db.QueryRow(query, id).Scan(&p.ID, &p.SenatairID, &p.DocumentID,
		&p.Label, &p.ScoreEstimate, &p.Confidence, &p.Explanation, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get prediction: %w", err)
	}

	p.CreatedAt = time.Unix(createdAt, 0)
	return &p, nil
}

func (c *Client) InsertPredictionFeedback(f *models.PredictionFeedback) error {
	agreement := 0
	if f.Agreement {
		agreement = 1
	}

	query := `
		INSERT INTO prediction_feedback (prediction_id, senatair_id, agreement, created_at)
		VALUES (?, ?, ?, ?)
	`

	_, err := c.db.Exec(query, f.PredictionID, f.SenatairID, agreement, f.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to insert prediction feedback: %w", err)
	}

	logger.Info("Prediction feedback stored",
		zap.String("prediction_id", f.PredictionID),
		zap.Bool("agreement", f.Agreement),
	)

	return nil
}

func (c *Client) PredictionOutcomes() ([]PredictionOutcome, error) {
	query := `
		SELECT p.predicted_label, p.confidence, f.agreement
		FROM prediction_feedback f
		JOIN predicted_votes p ON p.id = f.prediction_id
	`

	rows, err := c.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to get prediction outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []PredictionOutcome
	for rows.Next() {
		var o PredictionOutcome
		var agreement int

		err := rows.Scan(&o.Label, &o.Confidence, &agreement)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		o.Agreement = agreement != 0
		outcomes = append(outcomes, o)
	}

	return outcomes, rows.Err()
}
