package model

import (
	"fmt"
	"strings"
)

// BaseModels are the fine-tunable base models offered to new projects.
func BaseModels() []string {
	return []string{
		"microsoft/DialoGPT-medium",
		"facebook/blenderbot-400M-distill",
		"google/flan-t5-base",
		"EleutherAI/gpt-neo-1.3B",
	}
}

// DefaultBaseModel is the base model preselected for new projects.
const DefaultBaseModel = "microsoft/DialoGPT-medium"

// Frameworks are the supported fine-tuning frameworks.
func Frameworks() []string {
	return []string{"huggingface", "openai"}
}

// DefaultFramework is the framework preselected for new projects.
const DefaultFramework = "huggingface"

// ValidateBaseModel rejects model names outside the catalog.
func ValidateBaseModel(name string) error {
	for _, m := range BaseModels() {
		if m == name {
			return nil
		}
	}
	return fmt.Errorf("unknown base model %q (available: %s)", name, strings.Join(BaseModels(), ", "))
}

// ValidateFramework rejects frameworks outside the catalog.
func ValidateFramework(name string) error {
	for _, f := range Frameworks() {
		if f == name {
			return nil
		}
	}
	return fmt.Errorf("unknown framework %q (available: %s)", name, strings.Join(Frameworks(), ", "))
}
