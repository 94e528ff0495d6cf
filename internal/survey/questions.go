package survey

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/senatai/backend/internal/storage/models"
)

// Question is one survey prompt answered on a 1-5 scale. Meta questions
// probe the survey itself and are recorded without a document id.
type Question struct {
	Type    string   `json:"type"`
	Text    string   `json:"text"`
	Options []string `json:"options"`
	IsMeta  bool     `json:"is_meta"`
}

var icebreakers = []string{
	"Vote booth open",
	"Democracy desk accepting visitors",
	"Polling station: open 24/7",
	"Ballot box ready for your thoughts",
	"Town hall in session",
	"Public comment period: always open",
	"The floor is yours",
	"Your turn to speak",
	"Speak your mind",
	"Tell it like it is",
	"Get it off your chest",
	"What's really bothering you?",
	"Complaints department is open",
	"Grievance office accepting submissions",
	"What's broken today?",
	"Comment card for democracy",
	"What needs fixing?",
	"What's on your mind?",
	"What matters to you?",
	"What keeps you up at night?",
	"What would you change?",
	"If you could fix one thing...",
	"What's your take?",
	"Got something to say?",
	"What should we be talking about?",
	"Frustration station: all aboard",
	"System broken? Tell us how",
	"Politicians not listening? We are",
	"What's grinding your gears?",
}

var checkInQuestions = []Question{
	{
		Type:    "clarity_check",
		Text:    "Do these questions feel clear and easy to answer?",
		Options: []string{"1=Confusing", "2=A bit hard", "3=Neutral", "4=Clear", "5=Very Clear"},
		IsMeta:  true,
	},
	{
		Type:    "relevance_check",
		Text:    "How closely related are these questions to the issue you first typed?",
		Options: []string{"1=Not at all", "2=Slightly", "3=Moderately", "4=Closely", "5=Perfectly matched"},
		IsMeta:  true,
	},
	{
		Type:    "bias_check",
		Text:    "Do you feel any of the questions are unfairly guiding your answer?",
		Options: []string{"1=Yes, definitely", "2=A little", "3=No", "4=Unsure", "5=I'm in control"},
		IsMeta:  true,
	},
	{
		Type:    "depth_check",
		Text:    "Are the concepts discussed too simple, too complex, or just right?",
		Options: []string{"1=Too Simple", "2=Simple", "3=Just Right", "4=Complex", "5=Too Complex"},
		IsMeta:  true,
	},
	{
		Type:    "pacing_check",
		Text:    "Do you feel like you are answering too many questions?",
		Options: []string{"1=Yes, too many", "2=A few too many", "3=Just right", "4=I could do more", "5=I want more!"},
		IsMeta:  true,
	},
}

// Generator produces engaging questions for matched documents from a
// small set of templates.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewGenerator(seed int64) *Generator {
	return &Generator{rng: rand.New(rand.NewSource(seed))}
}

func (g *Generator) Icebreaker() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return icebreakers[g.rng.Intn(len(icebreakers))]
}

// ForDocument generates up to n scale questions about a document.
func (g *Generator) ForDocument(doc *models.Document, n int) []Question {
	questions := []Question{
		{
			Type: "impact_assessment",
			Text: fmt.Sprintf("How significant do you believe the potential impact of %q will be?", doc.Title),
			Options: []string{
				"1=Minimal - minor adjustments",
				"2=Slight - small effects",
				"3=Moderate - noticeable effects",
				"4=Major - significant implications",
				"5=Extreme - could fundamentally change things",
			},
		},
		{
			Type: "tradeoff_question",
			Text: fmt.Sprintf("Considering %q, where should the balance be struck between individual and collective interests?", doc.Title),
			Options: []string{
				"1=Strongly prioritize individual rights",
				"2=Lean toward individual rights",
				"3=Balance both equally",
				"4=Lean toward collective benefits",
				"5=Strongly prioritize collective benefits",
			},
		},
		{
			Type: "support_question",
			Text: fmt.Sprintf("Overall, how supportive are you of %q?", doc.Title),
			Options: []string{
				"1=Strongly oppose",
				"2=Oppose",
				"3=Neutral",
				"4=Support",
				"5=Strongly support",
			},
		},
	}

	g.mu.Lock()
	g.rng.Shuffle(len(questions), func(i, j int) {
		questions[i], questions[j] = questions[j], questions[i]
	})
	g.mu.Unlock()

	if n > 0 && n < len(questions) {
		questions = questions[:n]
	}

	return questions
}

func (g *Generator) CheckIn() Question {
	g.mu.Lock()
	defer g.mu.Unlock()
	return checkInQuestions[g.rng.Intn(len(checkInQuestions))]
}
