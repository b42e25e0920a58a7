package dataset

import (
	"fmt"
	"math"
	"strings"

	"github.com/empathyfine/empathyfine/internal/empathy"
)

// Validate checks each example for required fields and scores its response
// against the empathy indicator list. Missing fields mark the dataset
// invalid; an indicator-free response is only reported as an issue.
func Validate(examples []Example) ValidationResult {
	result := ValidationResult{
		Valid:         true,
		TotalExamples: len(examples),
	}

	var total float64
	scored := 0
	for i, ex := range examples {
		if strings.TrimSpace(ex.Context) == "" || strings.TrimSpace(ex.Response) == "" {
			result.Issues = append(result.Issues, fmt.Sprintf("example %d: missing required fields", i+1))
			result.Valid = false
			continue
		}

		score := empathy.ValidationScore(ex.Response)
		if score == 0 {
			result.Issues = append(result.Issues, fmt.Sprintf("example %d: response contains no empathy indicators", i+1))
		}
		total += score
		scored++
	}

	if scored > 0 {
		result.AvgEmpathyScore = math.Round(total/float64(scored)*100) / 100
	}
	return result
}
