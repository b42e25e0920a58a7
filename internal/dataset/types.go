package dataset

// Example is one conversational training example: a context the user
// provided and the empathetic response paired with it.
type Example struct {
	Context          string         `json:"context"`
	Response         string         `json:"response"`
	EmotionTags      []string       `json:"emotion_tags,omitempty"`
	EmpathyDimension string         `json:"empathy_dimension,omitempty"`
	Metadata         map[string]any `json:"metadata,omitempty"`
}

// LoadResult is the outcome of a dataset load operation.
type LoadResult struct {
	Examples []Example `json:"examples"`
	Count    int       `json:"count"`
	FilePath string    `json:"file_path"`
}

// ValidationResult is the outcome of a dataset validation pass.
type ValidationResult struct {
	Valid           bool     `json:"valid"`
	Issues          []string `json:"issues"`
	AvgEmpathyScore float64  `json:"avg_empathy_score"`
	TotalExamples   int      `json:"total_examples"`
}

// AugmentResult is the outcome of a dataset augmentation pass.
type AugmentResult struct {
	Examples      []Example `json:"examples"`
	OriginalCount int       `json:"original_count"`
	Count         int       `json:"count"`
}
