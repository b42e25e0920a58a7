// Package empathy provides the keyword-hit empathy scorer used across
// dataset validation, the conversation simulator, and checkpoint
// evaluation. The scoring is a deliberate stand-in: it counts indicator
// words rather than running a model.
package empathy

import (
	"math"
	"strings"
)

// ResponseKeywords are the indicators counted when scoring a generated
// response.
var ResponseKeywords = []string{
	"understand", "feel", "hear", "listen", "support",
	"valid", "natural", "sorry", "appreciate", "acknowledge",
}

// ValidationKeywords is the reduced indicator set used when validating
// dataset examples.
var ValidationKeywords = []string{"understand", "feel", "support", "hear", "sorry"}

// scoreDivisor normalizes keyword hits into a 0..1 score: five distinct
// indicators saturate the scale.
const scoreDivisor = 5.0

// Hits counts how many of the given keywords occur in text (substring
// match, case-insensitive, each keyword counted at most once).
func Hits(text string, keywords []string) int {
	lower := strings.ToLower(text)
	n := 0
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			n++
		}
	}
	return n
}

// Score rates a response on the 0..1 empathy scale using ResponseKeywords.
func Score(response string) float64 {
	score := math.Min(1.0, float64(Hits(response, ResponseKeywords))/scoreDivisor)
	return round2(score)
}

// ValidationScore rates a dataset example response using ValidationKeywords.
func ValidationScore(response string) float64 {
	return float64(Hits(response, ValidationKeywords)) / scoreDivisor
}

// Dimensions breaks an overall empathy score into the three empathy
// dimensions. The breakdown is a fixed projection of the overall score.
type Dimensions struct {
	Cognitive     float64 `json:"cognitive"`
	Emotional     float64 `json:"emotional"`
	Compassionate float64 `json:"compassionate"`
}

// DimensionsFor projects an overall score onto the three dimensions.
func DimensionsFor(score float64) Dimensions {
	return Dimensions{
		Cognitive:     round2(score * 0.8),
		Emotional:     round2(math.Min(1.0, score*1.1)),
		Compassionate: round2(score * 0.9),
	}
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
