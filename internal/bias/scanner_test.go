package bias

import (
	"strings"
	"testing"
)

func TestScanDefaults(t *testing.T) {
	report := Scan(nil, "")

	if report.Mode != ModeQuick {
		t.Errorf("default mode = %v, want quick", report.Mode)
	}
	if len(report.Findings) != 5 {
		t.Fatalf("expected 5 default findings, got %d", len(report.Findings))
	}
	if report.Findings[0].Category != CategoryGender || report.Findings[0].Score != 0.73 {
		t.Errorf("gender finding mismatch: %+v", report.Findings[0])
	}
	if len(report.Recommendations) == 0 {
		t.Error("expected recommendations")
	}
}

func TestScanSelectedCategories(t *testing.T) {
	report := Scan([]Category{CategoryAge, CategoryDisability}, ModeDeep)

	if len(report.Findings) != 2 {
		t.Fatalf("expected 2 findings, got %d", len(report.Findings))
	}
	if report.Findings[0].Verdict != VerdictModerate {
		t.Errorf("age verdict = %v, want moderate", report.Findings[0].Verdict)
	}
	if report.Findings[1].Verdict != VerdictBalanced {
		t.Errorf("disability verdict = %v, want balanced", report.Findings[1].Verdict)
	}
	if report.Mode != ModeDeep {
		t.Errorf("mode = %v, want deep", report.Mode)
	}
}

func TestMaxScore(t *testing.T) {
	report := Scan(nil, ModeQuick)
	if got := report.MaxScore(); got != 0.73 {
		t.Errorf("MaxScore = %v, want 0.73", got)
	}
}

func TestRenderContainsVerdictMarkers(t *testing.T) {
	out := Scan(nil, ModeThorough).Render()

	for _, want := range []string{
		"Bias Scan Results",
		"Scan Mode: thorough",
		"✗ Gender Bias Detected (Score: 0.73)",
		"⚠ Age Bias: Moderate (Score: 0.45)",
		"✓ Religion: Balanced (Score: 0.08)",
		"Recommendations:",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q\n%s", want, out)
		}
	}
}

func TestParseCategories(t *testing.T) {
	cats, err := ParseCategories([]string{"Gender", " race "})
	if err != nil {
		t.Fatalf("ParseCategories: %v", err)
	}
	if len(cats) != 2 || cats[0] != CategoryGender || cats[1] != CategoryRace {
		t.Errorf("ParseCategories = %v", cats)
	}

	if _, err := ParseCategories([]string{"height"}); err == nil {
		t.Error("expected error for unknown category")
	}
}

func TestParseMode(t *testing.T) {
	if m, err := ParseMode(""); err != nil || m != ModeQuick {
		t.Errorf("ParseMode(\"\") = %v, %v", m, err)
	}
	if _, err := ParseMode("forensic"); err == nil {
		t.Error("expected error for unknown mode")
	}
}
