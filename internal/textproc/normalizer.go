package textproc

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/jdkato/prose/v2"
	"github.com/jinzhu/inflection"

	"github.com/senatai/backend/internal/storage/models"
)

// Term is a single normalized occurrence of a candidate keyword. Nouns
// and adjectives appear once per occurrence in the source text; entities
// are deduplicated by the caller.
type Term struct {
	Text     string
	Category string
}

var (
	nounPattern   = regexp.MustCompile(`^[a-z]{3,}$`)
	adjPattern    = regexp.MustCompile(`^[a-z]{4,}$`)
	entityPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9 \-]{2,39}$`)
	wordPattern   = regexp.MustCompile(`[a-zA-Z]+`)

	nounTags = map[string]bool{"NN": true, "NNS": true, "NNP": true, "NNPS": true}
	adjTags  = map[string]bool{"JJ": true, "JJR": true, "JJS": true}

	// Entity types worth indexing: people, places, organizations and
	// legal references. Anything else the tagger labels is noise here.
	entityLabels = map[string]bool{"PERSON": true, "GPE": true, "ORG": true, "LAW": true, "EVENT": true}
)

const (
	maxNounLength      = 25
	maxAdjectiveLength = 20
)

// Normalizer turns raw text into normalized candidate terms. It is
// stateless and safe for concurrent use.
type Normalizer struct{}

func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Terms part-of-speech tags the text and returns every candidate term
// occurrence, filtered for stopwords, structural artifacts, generic
// legislative boilerplate, numerics and degenerate lengths.
func (n *Normalizer) Terms(text string) ([]Term, error) {
	doc, err := prose.NewDocument(text)
	if err != nil {
		return nil, fmt.Errorf("tagger failed: %w", err)
	}

	var terms []Term

	for _, tok := range doc.Tokens() {
		switch {
		case nounTags[tok.Tag]:
			noun := inflection.Singular(strings.ToLower(tok.Text))
			if len(noun) > maxNounLength || !nounPattern.MatchString(noun) {
				continue
			}
			if stopwords[noun] || structuralArtifacts[noun] || genericLegislative[noun] {
				continue
			}
			terms = append(terms, Term{Text: noun, Category: models.CategoryNoun})

		case adjTags[tok.Tag]:
			adj := strings.ToLower(tok.Text)
			if len(adj) > maxAdjectiveLength || !adjPattern.MatchString(adj) {
				continue
			}
			if stopwords[adj] || structuralArtifacts[adj] {
				continue
			}
			terms = append(terms, Term{Text: adj, Category: models.CategoryAdjective})
		}
	}

	for _, ent := range doc.Entities() {
		if !entityLabels[ent.Label] {
			continue
		}

		cleaned := cleanEntity(ent.Text)
		if !entityPattern.MatchString(cleaned) {
			continue
		}
		if containsArtifact(cleaned) {
			continue
		}

		terms = append(terms, Term{Text: cleaned, Category: models.CategoryEntity})
	}

	return terms, nil
}

// QueryTerms extracts distinct match terms from free text. When the
// tagger yields nothing usable (short or malformed input), it falls back
// to loose tokenization so a query never comes back empty just because
// it was too short for tagging signal.
func (n *Normalizer) QueryTerms(text string) []string {
	seen := make(map[string]bool)
	var out []string

	terms, err := n.Terms(text)
	if err == nil {
		for _, t := range terms {
			if !seen[t.Text] {
				seen[t.Text] = true
				out = append(out, t.Text)
			}
		}
	}

	if len(out) > 0 {
		return out
	}

	return FallbackTerms(text)
}

// FallbackTerms is the loose heuristic: any alphabetic word of at least
// four characters that is not a stopword.
func FallbackTerms(text string) []string {
	seen := make(map[string]bool)
	var out []string

	for _, word := range wordPattern.FindAllString(text, -1) {
		word = strings.ToLower(word)
		if len(word) < 4 || stopwords[word] {
			continue
		}
		if !seen[word] {
			seen[word] = true
			out = append(out, word)
		}
	}

	return out
}

func cleanEntity(text string) string {
	cleaned := strings.ToLower(text)
	cleaned = strings.ReplaceAll(cleaned, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\t", " ")
	cleaned = strings.Join(strings.Fields(cleaned), " ")
	return strings.TrimSpace(cleaned)
}

func containsArtifact(entity string) bool {
	for _, word := range strings.Fields(entity) {
		if structuralArtifacts[word] {
			return true
		}
	}
	return false
}
