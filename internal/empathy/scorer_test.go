package empathy

import "testing"

func TestScoreCountsDistinctKeywords(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     float64
	}{
		{"no indicators", "The weather is fine today.", 0.0},
		{"one indicator", "I understand.", 0.2},
		{"three indicators", "I understand how you feel, and I hear you.", 0.6},
		{"saturates at five", "I understand, I feel for you, I hear you, I will listen and support you; that is valid and natural, I am sorry.", 1.0},
		{"case insensitive", "I UNDERSTAND and SUPPORT you.", 0.4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Score(tt.response); got != tt.want {
				t.Errorf("Score(%q) = %v, want %v", tt.response, got, tt.want)
			}
		})
	}
}

func TestValidationScoreUsesReducedKeywordSet(t *testing.T) {
	// "listen" is a response keyword but not a validation keyword.
	if got := ValidationScore("I will listen."); got != 0 {
		t.Errorf("ValidationScore should ignore non-validation keywords, got %v", got)
	}
	if got := ValidationScore("I understand and I'm sorry."); got != 0.4 {
		t.Errorf("ValidationScore = %v, want 0.4", got)
	}
}

func TestDimensionsFor(t *testing.T) {
	d := DimensionsFor(0.5)
	if d.Cognitive != 0.4 {
		t.Errorf("Cognitive = %v, want 0.4", d.Cognitive)
	}
	if d.Emotional != 0.55 {
		t.Errorf("Emotional = %v, want 0.55", d.Emotional)
	}
	if d.Compassionate != 0.45 {
		t.Errorf("Compassionate = %v, want 0.45", d.Compassionate)
	}

	// Emotional dimension is capped at 1.0.
	if d := DimensionsFor(1.0); d.Emotional != 1.0 {
		t.Errorf("Emotional should cap at 1.0, got %v", d.Emotional)
	}
}

func TestDetectEmotion(t *testing.T) {
	tests := []struct {
		text string
		want Emotion
	}{
		{"I've been feeling really down lately", EmotionSad},
		{"This makes me so frustrated!", EmotionAngry},
		{"I got the job, this is great!", EmotionHappy},
		{"Tell me about embedded databases", EmotionNeutral},
	}
	for _, tt := range tests {
		if got := DetectEmotion(tt.text); got != tt.want {
			t.Errorf("DetectEmotion(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}
