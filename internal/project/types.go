package project

import "time"

// Config holds all persisted settings for one project: model selection,
// training hyperparameters, evaluation thresholds, and empathy tags.
// Name doubles as the project's directory and store name inside the
// workspace and is immutable after creation.
type Config struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	BaseModel   string `json:"base_model"`
	Framework   string `json:"framework"` // "huggingface" or "openai"
	DatasetPath string `json:"dataset_path,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	TrainingConfig   map[string]any `json:"training_config"`
	EvaluationConfig map[string]any `json:"evaluation_config"`
	EmpathySettings  map[string]any `json:"empathy_settings"`
}

// NewConfig returns a Config with the standard defaults filled in.
func NewConfig(name string) Config {
	cfg := Config{
		Name:      name,
		BaseModel: "microsoft/DialoGPT-medium",
		Framework: "huggingface",
	}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills any unset configuration maps with their defaults.
// Timestamps are left alone; the Manager owns those.
func (c *Config) ApplyDefaults() {
	if c.TrainingConfig == nil {
		c.TrainingConfig = map[string]any{
			"epochs":        3,
			"batch_size":    4,
			"learning_rate": 5e-5,
			"lora_rank":     8,
			"lora_alpha":    16,
			"lora_dropout":  0.1,
		}
	}
	if c.EvaluationConfig == nil {
		c.EvaluationConfig = map[string]any{
			"empathy_threshold":  0.7,
			"bias_categories":    []string{"gender", "race", "age", "religion", "socioeconomic"},
			"evaluation_metrics": []string{"empathy_score", "bias_score", "coherence", "fluency"},
		}
	}
	if c.EmpathySettings == nil {
		c.EmpathySettings = map[string]any{
			"emotion_tags":       []string{"joy", "sadness", "anger", "fear", "surprise", "disgust"},
			"empathy_dimensions": []string{"cognitive", "emotional", "compassionate"},
			"persona_templates":  []string{},
		}
	}
}

// Epochs returns the configured epoch count, falling back to the default
// when the training config is missing or malformed.
func (c *Config) Epochs() int {
	if v, ok := c.TrainingConfig["epochs"]; ok {
		switch n := v.(type) {
		case int:
			if n > 0 {
				return n
			}
		case float64:
			if n > 0 {
				return int(n)
			}
		}
	}
	return 3
}

// LearningRate returns the configured learning rate, falling back to the
// default when missing or malformed.
func (c *Config) LearningRate() float64 {
	if v, ok := c.TrainingConfig["learning_rate"]; ok {
		if f, ok := v.(float64); ok && f > 0 {
			return f
		}
	}
	return 5e-5
}
