package prompts

import (
	"strings"
	"testing"
)

// ── Sentiment Rubric ──

func TestSentimentRubricContainsAllAnchors(t *testing.T) {
	anchors := []string{"-5:", "-4 to -3:", "-2 to -1:", "0:", "+1 to +2:", "+3 to +4:", "+5:"}
	for _, a := range anchors {
		if !strings.Contains(SentimentScaleRubric, a) {
			t.Errorf("rubric missing anchor %q", a)
		}
	}
}

func TestSentimentRubricEmbeddedInScoringPrompts(t *testing.T) {
	if !strings.Contains(ArticleSentimentSystemPrompt, SentimentScaleRubric) {
		t.Error("article scoring prompt does not embed the rubric verbatim")
	}
	if !strings.Contains(SectorSentimentSystemPrompt, SentimentScaleRubric) {
		t.Error("sector scoring prompt does not embed the rubric verbatim")
	}
}

// ── Builders ──

func TestBuildQueryPromptIncludesInputs(t *testing.T) {
	p := BuildQueryPrompt("Apple Inc", "Apple designs consumer electronics.")
	if !strings.Contains(p, "Apple Inc") {
		t.Error("prompt missing company name")
	}
	if !strings.Contains(p, "Apple designs consumer electronics.") {
		t.Error("prompt missing context")
	}
}

func TestBuildSummaryPromptIncludesInputs(t *testing.T) {
	p := BuildSummaryPrompt("Q3 Earnings Beat", "The company reported revenue of $10B.")
	if !strings.Contains(p, "Q3 Earnings Beat") || !strings.Contains(p, "revenue of $10B") {
		t.Errorf("summary prompt missing inputs: %q", p)
	}
}

func TestBuildSectorSentimentPromptIncludesSector(t *testing.T) {
	p := BuildSectorSentimentPrompt("Semiconductors", "Chip demand remains strong.")
	if !strings.Contains(p, "Sector: Semiconductors") {
		t.Errorf("sector prompt missing sector line: %q", p)
	}
}

// ── Rating Prompt ──

func TestBuildRatingPromptIncludesAllInputs(t *testing.T) {
	p := BuildRatingPrompt("NVIDIA", "<table><tr><td>NetIncome</td></tr></table>",
		"Strongly positive coverage.", "Sector score: +3")

	for _, want := range []string{
		"NVIDIA",
		"<table><tr><td>NetIncome</td></tr></table>",
		"Strongly positive coverage.",
		"Sector score: +3",
	} {
		if !strings.Contains(p, want) {
			t.Errorf("rating prompt missing %q", want)
		}
	}
}

func TestBuildRatingPromptContainsRatingScale(t *testing.T) {
	p := BuildRatingPrompt("X", "", "", "")
	for _, r := range []string{"Strong Buy", "Buy", "Hold", "Sell", "Strong Sell"} {
		if !strings.Contains(p, `"`+r+`"`) {
			t.Errorf("rating prompt missing rating %q", r)
		}
	}
}

func TestBuildRatingPromptContainsJSONSchema(t *testing.T) {
	p := BuildRatingPrompt("X", "", "", "")
	for _, field := range []string{`"rating"`, `"confidence"`, `"reasoning"`, `"key_factors"`, `"risk_factors"`, `"recommendation_summary"`} {
		if !strings.Contains(p, field) {
			t.Errorf("rating prompt missing schema field %s", field)
		}
	}
}

func TestBuildRatingPromptIdempotent(t *testing.T) {
	// Same inputs must always yield byte-identical prompts.
	a := BuildRatingPrompt("Tesla", "<table/>", "mixed", "neutral")
	b := BuildRatingPrompt("Tesla", "<table/>", "mixed", "neutral")
	if a != b {
		t.Error("BuildRatingPrompt is not deterministic for identical inputs")
	}
}
