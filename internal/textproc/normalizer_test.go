package textproc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/senatai/backend/internal/storage/models"
)

func TestTerms_FiltersStopwordsAndBoilerplate(t *testing.T) {
	n := NewNormalizer()

	terms, err := n.Terms("The committee discussed the new pollution rules for the harbor " +
		"district. This act introduces a section about pollution penalties.")
	require.NoError(t, err)
	require.NotEmpty(t, terms)

	for _, term := range terms {
		assert.False(t, stopwords[term.Text], "stopword %q leaked through", term.Text)
		assert.NotEqual(t, "act", term.Text, "generic legislative term leaked through")
		assert.NotEqual(t, "section", term.Text, "structural artifact leaked through")
	}
}

func TestTerms_SingularizesNouns(t *testing.T) {
	n := NewNormalizer()

	terms, err := n.Terms("New penalties apply to all factories. The factories must report " +
		"their emissions to regulators every quarter without exceptions.")
	require.NoError(t, err)

	var nouns []string
	for _, term := range terms {
		if term.Category == models.CategoryNoun {
			nouns = append(nouns, term.Text)
		}
	}

	assert.Contains(t, nouns, "factory")
	assert.NotContains(t, nouns, "factories")
}

func TestFallbackTerms(t *testing.T) {
	out := FallbackTerms("I am very worried about potholes and potholes on my street")

	// Stopwords and short words are dropped, duplicates collapse, order
	// of first appearance is kept.
	assert.Equal(t, []string{"worried", "potholes", "street"}, out)
}

func TestFallbackTerms_Empty(t *testing.T) {
	assert.Empty(t, FallbackTerms("a an it"))
	assert.Empty(t, FallbackTerms(""))
}

func TestQueryTerms_ShortInputFallsBack(t *testing.T) {
	n := NewNormalizer()

	// Too little signal for tagging still yields usable query terms.
	out := n.QueryTerms("potholes everywhere")
	assert.NotEmpty(t, out)
	assert.Contains(t, []string{"pothole", "potholes"}, out[0])
}

func TestCleanEntity(t *testing.T) {
	assert.Equal(t, "environmental protection agency",
		cleanEntity("Environmental\n\tProtection   Agency"))
}

func TestContainsArtifact(t *testing.T) {
	assert.True(t, containsArtifact("column header"))
	assert.False(t, containsArtifact("harbor district"))
}
