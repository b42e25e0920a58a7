package empathy

import "strings"

// Emotion is a coarse label detected from user text.
type Emotion string

const (
	EmotionNeutral Emotion = "neutral"
	EmotionSad     Emotion = "sad"
	EmotionAngry   Emotion = "angry"
	EmotionHappy   Emotion = "happy"
)

// EmotionTags is the full tag vocabulary offered for dataset annotation.
var EmotionTags = []string{"neutral", "joy", "sadness", "anger", "fear", "surprise", "disgust"}

var emotionIndicators = map[Emotion][]string{
	EmotionSad:   {"sad", "depressed", "down", "unhappy"},
	EmotionAngry: {"angry", "mad", "frustrated", "annoyed"},
	EmotionHappy: {"happy", "joy", "excited", "great"},
}

// DetectEmotion labels text with a coarse emotion by keyword lookup.
// Returns EmotionNeutral when nothing matches.
func DetectEmotion(text string) Emotion {
	lower := strings.ToLower(text)
	for _, emotion := range []Emotion{EmotionSad, EmotionAngry, EmotionHappy} {
		for _, word := range emotionIndicators[emotion] {
			if strings.Contains(lower, word) {
				return emotion
			}
		}
	}
	return EmotionNeutral
}
