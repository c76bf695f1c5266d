package prompts

import (
	"strings"
	"testing"
)

func TestDailyPromptInjectsDate(t *testing.T) {
	p := Daily("Tuesday, January 07, 2025")

	if !strings.Contains(p.System, "Analysis Date: Tuesday, January 07, 2025") {
		t.Error("expected analysis date in system prompt")
	}
	if !strings.Contains(p.System, "# Daily Execution Analysis - Tuesday, January 07, 2025") {
		t.Error("expected dated report header instruction")
	}
}

func TestHumanInjectsNotes(t *testing.T) {
	p := Daily("Tuesday, January 07, 2025")
	msg := p.Human("- buy groceries\n- call dentist")

	if !strings.Contains(msg, "- buy groceries") {
		t.Error("expected notes text in human message")
	}
}

func TestWeeklyPromptInjectsRange(t *testing.T) {
	p := Weekly("Monday, January 06, 2025", "Sunday, January 12, 2025")

	if !strings.Contains(p.System, "Monday, January 06, 2025") ||
		!strings.Contains(p.System, "Sunday, January 12, 2025") {
		t.Error("expected week bounds in system prompt")
	}
}

func TestAnnualPromptInjectsYear(t *testing.T) {
	p := Annual("2024")
	if !strings.Contains(p.System, "2024") {
		t.Error("expected year in system prompt")
	}
}

func TestExtractionPromptPreservesMarkers(t *testing.T) {
	if !strings.Contains(Extraction, "checkmark") || !strings.Contains(Extraction, "asterisk") {
		t.Error("expected marker conventions in extraction prompt")
	}
}
