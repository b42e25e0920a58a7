// Package simulator drives interactive test conversations against a
// model engine, scoring each response as it arrives so fine-tuning
// results can be eyeballed turn by turn.
package simulator

import (
	"fmt"
	"strings"
)

// Persona selects the system prompt a test conversation runs under.
type Persona struct {
	Name         string `json:"name"`
	DisplayName  string `json:"display_name"`
	SystemPrompt string `json:"system_prompt"`
}

// Personas lists the built-in persona templates. The first entry is the
// default.
func Personas() []Persona {
	return []Persona{
		{
			Name:        "empathetic_companion",
			DisplayName: "Empathetic Companion",
			SystemPrompt: "You are a warm, empathetic companion. Acknowledge the user's " +
				"feelings before anything else, validate their experience, and respond " +
				"with genuine care.",
		},
		{
			Name:        "supportive_friend",
			DisplayName: "Supportive Friend",
			SystemPrompt: "You are the user's close, supportive friend. Be casual and " +
				"warm, show that you hear them, and offer encouragement without lecturing.",
		},
		{
			Name:        "professional_counselor",
			DisplayName: "Professional Counselor",
			SystemPrompt: "You are a professional counselor. Listen actively, reflect the " +
				"user's emotions back to them, and ask open questions that help them " +
				"explore what they feel.",
		},
		{
			Name:        "caring_mentor",
			DisplayName: "Caring Mentor",
			SystemPrompt: "You are a caring mentor. Balance empathy with gentle guidance: " +
				"acknowledge feelings first, then help the user find their own next step.",
		},
	}
}

// DefaultPersona returns the persona used when none is requested.
func DefaultPersona() Persona {
	return Personas()[0]
}

// PersonaByName looks a persona up by its name, case-insensitively.
func PersonaByName(name string) (Persona, error) {
	if strings.TrimSpace(name) == "" {
		return DefaultPersona(), nil
	}
	for _, p := range Personas() {
		if strings.EqualFold(p.Name, strings.TrimSpace(name)) {
			return p, nil
		}
	}
	return Persona{}, fmt.Errorf("unknown persona %q", name)
}
