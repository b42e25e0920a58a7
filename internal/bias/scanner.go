// Package bias implements the bias scanner. The scanner is a stand-in: it
// emits a fixed findings table per protected category rather than running
// any detection, matching the placeholder behavior the rest of the
// application is built around.
package bias

import (
	"fmt"
	"strings"
)

// Category is a protected category the scanner can report on.
type Category string

const (
	CategoryGender        Category = "gender"
	CategoryRace          Category = "race"
	CategoryAge           Category = "age"
	CategoryReligion      Category = "religion"
	CategorySocioeconomic Category = "socioeconomic"
	CategoryDisability    Category = "disability"
	CategoryOrientation   Category = "orientation"
)

// DefaultCategories are the categories scanned when none are requested.
func DefaultCategories() []Category {
	return []Category{
		CategoryGender, CategoryRace, CategoryAge,
		CategoryReligion, CategorySocioeconomic,
	}
}

// AllCategories lists every category the scanner knows about.
func AllCategories() []Category {
	return append(DefaultCategories(), CategoryDisability, CategoryOrientation)
}

// Mode selects the scan depth. All modes currently produce the same canned
// findings; the mode is echoed in the report.
type Mode string

const (
	ModeQuick    Mode = "quick"
	ModeThorough Mode = "thorough"
	ModeDeep     Mode = "deep"
)

// Verdict summarizes one category's result.
type Verdict string

const (
	VerdictDetected Verdict = "detected"
	VerdictModerate Verdict = "moderate"
	VerdictBalanced Verdict = "balanced"
)

// Finding is the scanner's result for one category.
type Finding struct {
	Category  Category `json:"category"`
	Label     string   `json:"label"`
	Score     float64  `json:"score"` // 0..1, lower is better
	Verdict   Verdict  `json:"verdict"`
	Breakdown []string `json:"breakdown,omitempty"`
}

// Report is the complete output of one scan.
type Report struct {
	Mode            Mode      `json:"mode"`
	Categories      []Category `json:"categories"`
	Findings        []Finding `json:"findings"`
	Recommendations []string  `json:"recommendations"`
}

// cannedFindings is the fixed results table.
var cannedFindings = map[Category]Finding{
	CategoryGender: {
		Category: CategoryGender, Label: "Gender", Score: 0.73, Verdict: VerdictDetected,
		Breakdown: []string{
			"Male pronouns: 68%",
			"Female pronouns: 32%",
			"Gender-neutral: <1%",
		},
	},
	CategoryRace: {
		Category: CategoryRace, Label: "Race/Ethnicity", Score: 0.12, Verdict: VerdictBalanced,
		Breakdown: []string{"No significant bias detected"},
	},
	CategoryAge: {
		Category: CategoryAge, Label: "Age", Score: 0.45, Verdict: VerdictModerate,
		Breakdown: []string{
			"Youth-oriented language: 43%",
			"Age-neutral language: 57%",
		},
	},
	CategoryReligion: {
		Category: CategoryReligion, Label: "Religion", Score: 0.08, Verdict: VerdictBalanced,
		Breakdown: []string{"No religious bias detected"},
	},
	CategorySocioeconomic: {
		Category: CategorySocioeconomic, Label: "Socioeconomic Status", Score: 0.61, Verdict: VerdictDetected,
		Breakdown: []string{
			"Upper-class contexts: 48%",
			"Middle-class contexts: 41%",
			"Lower-class contexts: 11%",
		},
	},
	CategoryDisability: {
		Category: CategoryDisability, Label: "Disability", Score: 0.22, Verdict: VerdictBalanced,
		Breakdown: []string{"No significant bias detected"},
	},
	CategoryOrientation: {
		Category: CategoryOrientation, Label: "Sexual Orientation", Score: 0.17, Verdict: VerdictBalanced,
		Breakdown: []string{"No significant bias detected"},
	},
}

var recommendations = []string{
	"Balance gender representation in training data",
	"Include more diverse socioeconomic contexts",
	"Review age-related language patterns",
}

// Scan produces a Report for the requested categories. Unknown categories
// are skipped; an empty category list falls back to the defaults. The mode
// defaults to quick.
func Scan(categories []Category, mode Mode) Report {
	if len(categories) == 0 {
		categories = DefaultCategories()
	}
	if mode == "" {
		mode = ModeQuick
	}

	report := Report{Mode: mode}
	for _, cat := range categories {
		finding, ok := cannedFindings[cat]
		if !ok {
			continue
		}
		report.Categories = append(report.Categories, cat)
		report.Findings = append(report.Findings, finding)
	}
	report.Recommendations = recommendations
	return report
}

// MaxScore returns the worst (highest) score across findings, or 0 when
// the report is empty.
func (r Report) MaxScore() float64 {
	max := 0.0
	for _, f := range r.Findings {
		if f.Score > max {
			max = f.Score
		}
	}
	return max
}

// Render formats the report as the plain-text summary shown to the user.
func (r Report) Render() string {
	var sb strings.Builder

	sb.WriteString("Bias Scan Results\n")
	sb.WriteString(strings.Repeat("=", 50) + "\n\n")
	sb.WriteString(fmt.Sprintf("Scan Mode: %s\n", r.Mode))

	labels := make([]string, len(r.Findings))
	for i, f := range r.Findings {
		labels[i] = f.Label
	}
	sb.WriteString(fmt.Sprintf("Categories Scanned: %s\n\n", strings.Join(labels, ", ")))

	sb.WriteString("Summary:\n--------\n")
	for _, f := range r.Findings {
		var line string
		switch f.Verdict {
		case VerdictDetected:
			line = fmt.Sprintf("✗ %s Bias Detected (Score: %.2f)", f.Label, f.Score)
		case VerdictModerate:
			line = fmt.Sprintf("⚠ %s Bias: Moderate (Score: %.2f)", f.Label, f.Score)
		default:
			line = fmt.Sprintf("✓ %s: Balanced (Score: %.2f)", f.Label, f.Score)
		}
		sb.WriteString(line + "\n")
		for _, b := range f.Breakdown {
			sb.WriteString("  - " + b + "\n")
		}
		sb.WriteString("\n")
	}

	sb.WriteString("Recommendations:\n---------------\n")
	for i, rec := range r.Recommendations {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, rec))
	}

	return sb.String()
}

// ParseCategories maps user-supplied names onto known categories,
// rejecting anything unknown.
func ParseCategories(names []string) ([]Category, error) {
	var cats []Category
	for _, name := range names {
		cat := Category(strings.ToLower(strings.TrimSpace(name)))
		if _, ok := cannedFindings[cat]; !ok {
			return nil, fmt.Errorf("unknown bias category %q", name)
		}
		cats = append(cats, cat)
	}
	return cats, nil
}

// ParseMode maps a user-supplied name onto a scan mode.
func ParseMode(name string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(name))) {
	case "", ModeQuick:
		return ModeQuick, nil
	case ModeThorough:
		return ModeThorough, nil
	case ModeDeep:
		return ModeDeep, nil
	default:
		return "", fmt.Errorf("unknown scan mode %q", name)
	}
}
