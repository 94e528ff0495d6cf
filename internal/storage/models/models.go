package models

import "time"

// Keyword categories as stored in the index. One row per
// (document, term, category).
const (
	CategoryNoun      = "noun"
	CategoryAdjective = "adjective"
	CategoryEntity    = "entity"
)

// Prediction labels.
const (
	LabelSupport   = "Likely Support"
	LabelOppose    = "Likely Oppose"
	LabelNeutral   = "Neutral/Uncertain"
	LabelUndecided = "Undecided (no data)"
)

type Document struct {
	ID        string
	Title     string
	Summary   string
	Body      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CombinedText is the text extraction operates on: title, summary and a
// bounded sample of the body joined together.
func (d *Document) CombinedText(maxBodySample int) string {
	text := d.Title
	if d.Summary != "" {
		text += " " + d.Summary
	}
	if d.Body != "" {
		body := d.Body
		if maxBodySample > 0 && len(body) > maxBodySample {
			body = body[:maxBodySample]
		}
		text += " " + body
	}
	return text
}

type Keyword struct {
	DocumentID string
	Term       string
	Category   string
	Frequency  int
	Relevance  float64
}

type Response struct {
	ID              string
	SenatairID      string
	SessionID       string
	DocumentID      string
	QuestionText    string
	QuestionType    string
	Score           int
	MatchedKeywords []string
	IsMeta          bool
	CreatedAt       time.Time
}

type Senatair struct {
	ID         string
	Policap    float64
	DailyCount int
	DailyReset string
	LastActive time.Time
	CreatedAt  time.Time
}

type Prediction struct {
	ID            string
	SenatairID    string
	DocumentID    string
	Label         string
	ScoreEstimate float64
	Confidence    float64
	Explanation   string
	CreatedAt     time.Time
}

type PredictionFeedback struct {
	ID           int
	PredictionID string
	SenatairID   string
	Agreement    bool
	CreatedAt    time.Time
}
