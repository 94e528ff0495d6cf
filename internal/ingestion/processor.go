package ingestion

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/senatai/backend/internal/cache/redis"
	"github.com/senatai/backend/internal/extraction"
	"github.com/senatai/backend/internal/storage/models"
	"github.com/senatai/backend/internal/storage/sqlite"
	"github.com/senatai/backend/pkg/logger"
	"github.com/senatai/backend/pkg/utils"
)

var whitespacePattern = regexp.MustCompile(`\s+`)

// Document is an incoming legislative document. Body and HTMLBody are
// alternatives; when HTMLBody is set it is stripped of markup first.
type Document struct {
	ID       string
	Title    string
	Summary  string
	Body     string
	HTMLBody string
}

type Processor struct {
	db     *sqlite.Client
	engine *extraction.Engine
	cache  *redis.Client
}

func NewProcessor(db *sqlite.Client, engine *extraction.Engine, cache *redis.Client) *Processor {
	return &Processor{
		db:     db,
		engine: engine,
		cache:  cache,
	}
}

// Ingest stores a document and extracts its keyword set, returning the
// stored document id and the number of keyword rows written.
func (p *Processor) Ingest(ctx context.Context, in Document) (string, int, error) {
	body := in.Body
	if in.HTMLBody != "" {
		body = cleanHTML(in.HTMLBody)
	}

	if strings.TrimSpace(in.Title) == "" {
		return "", 0, fmt.Errorf("document title is required")
	}

	id := in.ID
	if id == "" {
		id = utils.HashString(in.Title + body)
	}

	now := time.Now()
	doc := &models.Document{
		ID:        id,
		Title:     strings.TrimSpace(in.Title),
		Summary:   strings.TrimSpace(in.Summary),
		Body:      body,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := p.db.UpsertDocument(doc); err != nil {
		return "", 0, fmt.Errorf("failed to store document: %w", err)
	}

	written, err := p.engine.ExtractAndStore(ctx, doc)
	if err != nil {
		// The document is stored; the batch runner will pick it up once
		// the tagger can handle it.
		logger.Warn("Extraction failed during ingest",
			zap.String("doc_id", id),
			zap.Error(err),
		)
		return id, 0, nil
	}

	// Cached match results predate the new document's keywords.
	if p.cache != nil && written > 0 {
		if err := p.cache.InvalidateMatches(ctx); err != nil {
			logger.Warn("Failed to invalidate match cache", zap.Error(err))
		}
	}

	return id, written, nil
}

func cleanHTML(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}

	doc.Find("script, style, nav, footer, header, aside").Each(func(i int, s *goquery.Selection) {
		s.Remove()
	})

	text := doc.Find("body").Text()
	if text == "" {
		text = doc.Text()
	}

	text = whitespacePattern.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
