package dataset

import (
	"fmt"
	"strings"
)

// Method is one augmentation technique. The techniques are stand-ins:
// each applies a cheap deterministic rewrite so the pipeline and counts
// behave like the real thing would.
type Method string

const (
	MethodSynonym          Method = "synonym"
	MethodParaphrase       Method = "paraphrase"
	MethodEmotionIntensity Method = "emotion-intensity"
	MethodPersona          Method = "persona"
)

// DefaultMethods are the techniques applied when none are requested.
func DefaultMethods() []Method {
	return []Method{MethodSynonym, MethodParaphrase}
}

// AugmentOptions controls an augmentation pass.
type AugmentOptions struct {
	Methods          []Method
	Factor           int // target multiplier, clamped to 1..10
	PreserveOriginal bool
}

// ParseMethods maps user-supplied names onto known methods.
func ParseMethods(names []string) ([]Method, error) {
	var methods []Method
	for _, name := range names {
		switch m := Method(strings.ToLower(strings.TrimSpace(name))); m {
		case MethodSynonym, MethodParaphrase, MethodEmotionIntensity, MethodPersona:
			methods = append(methods, m)
		default:
			return nil, fmt.Errorf("unknown augmentation method %q", name)
		}
	}
	return methods, nil
}

var synonyms = map[string]string{
	"sad":     "unhappy",
	"happy":   "glad",
	"angry":   "upset",
	"help":    "assist",
	"hard":    "difficult",
	"worried": "anxious",
}

// Augment expands the dataset by the requested factor, cycling through the
// selected methods to produce variants of each example.
func Augment(examples []Example, opts AugmentOptions) AugmentResult {
	factor := opts.Factor
	if factor < 1 {
		factor = 2
	}
	if factor > 10 {
		factor = 10
	}
	methods := opts.Methods
	if len(methods) == 0 {
		methods = DefaultMethods()
	}

	result := AugmentResult{OriginalCount: len(examples)}
	for _, ex := range examples {
		if opts.PreserveOriginal {
			result.Examples = append(result.Examples, ex)
		}
		for v := 0; v < factor-1; v++ {
			method := methods[v%len(methods)]
			result.Examples = append(result.Examples, applyMethod(ex, method))
		}
	}
	result.Count = len(result.Examples)
	return result
}

func applyMethod(ex Example, method Method) Example {
	variant := ex
	switch method {
	case MethodSynonym:
		variant.Context = replaceSynonyms(ex.Context)
		variant.Response = replaceSynonyms(ex.Response)
	case MethodParaphrase:
		variant.Response = "To put it another way, " + lowerFirst(ex.Response)
	case MethodEmotionIntensity:
		variant.Response = strings.Replace(ex.Response, "I ", "I truly ", 1)
	case MethodPersona:
		variant.Response = "As someone who has been there, " + lowerFirst(ex.Response)
	}

	variant.Metadata = make(map[string]any, len(ex.Metadata)+2)
	for k, val := range ex.Metadata {
		variant.Metadata[k] = val
	}
	variant.Metadata["augmented"] = true
	variant.Metadata["method"] = string(method)
	return variant
}

func replaceSynonyms(text string) string {
	words := strings.Fields(text)
	for i, w := range words {
		trimmed := strings.ToLower(strings.Trim(w, ".,!?"))
		if replacement, ok := synonyms[trimmed]; ok {
			words[i] = strings.Replace(w, trimmed, replacement, 1)
		}
	}
	return strings.Join(words, " ")
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
