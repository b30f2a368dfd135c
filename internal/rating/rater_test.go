package rating

import (
	"context"
	"strings"
	"testing"

	"github.com/finsightlab/finsight/internal/llm"
	"github.com/finsightlab/finsight/pkg/models"
)

type stubClient struct {
	content string
	err     error
	calls   int
	prompt  string
}

func (s *stubClient) Chat(ctx context.Context, messages []llm.Message, opts *llm.ChatOptions) (*llm.Response, error) {
	s.calls++
	for _, m := range messages {
		if m.Role == llm.RoleUser {
			s.prompt = m.Content
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return &llm.Response{Content: s.content, FinishReason: "stop"}, nil
}

func (s *stubClient) Ping(ctx context.Context) error { return s.err }

func testInput() Input {
	return Input{
		CompanyName:      "Stub Corp",
		FinancialHTML:    "<table><tr><td>Reported EPS</td></tr></table>",
		CompanySentiment: "Coverage is broadly positive.",
		SectorSentiment:  "Technology sector sentiment score: +2.0",
	}
}

const validResponse = `{
  "rating": "Buy",
  "confidence": 0.82,
  "reasoning": "EPS growth is accelerating and sentiment is favorable.",
  "key_factors": ["EPS growth", "positive coverage"],
  "risk_factors": ["sector volatility"],
  "recommendation_summary": "Accumulate on weakness."
}`

// ── RateStock ──

func TestRateStock(t *testing.T) {
	client := &stubClient{content: validResponse}
	outcome := NewRater(client).RateStock(context.Background(), testInput())

	if outcome.Fallback {
		t.Fatalf("unexpected fallback: %s", outcome.FallbackReason)
	}
	if outcome.Result.Rating != models.Buy {
		t.Errorf("rating: got %q", outcome.Result.Rating)
	}
	if outcome.Result.Confidence != 0.82 {
		t.Errorf("confidence: got %v", outcome.Result.Confidence)
	}
	if len(outcome.Result.KeyFactors) != 2 || len(outcome.Result.RiskFactors) != 1 {
		t.Errorf("factors: %+v", outcome.Result)
	}

	for _, want := range []string{"Stub Corp", "<table>", "broadly positive", "sector sentiment score"} {
		if !strings.Contains(client.prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestRateStockSingleCall(t *testing.T) {
	// The rating call is never retried, even on transient errors.
	client := &stubClient{err: llm.ErrRateLimit}
	outcome := NewRater(client).RateStock(context.Background(), testInput())

	if client.calls != 1 {
		t.Errorf("calls: got %d, want 1", client.calls)
	}
	if !outcome.Fallback || outcome.Result.Rating != models.Hold {
		t.Errorf("expected Hold fallback: %+v", outcome)
	}
	if outcome.Result.Confidence != 0 {
		t.Errorf("fallback confidence: got %v, want 0", outcome.Result.Confidence)
	}
	if outcome.Result.KeyFactors == nil || len(outcome.Result.KeyFactors) != 0 {
		t.Errorf("fallback key factors should be empty, not nil: %v", outcome.Result.KeyFactors)
	}
}

func TestRateStockRepairsMalformedJSON(t *testing.T) {
	// Trailing comma plus a markdown fence: repairable syntax damage.
	client := &stubClient{content: "```json\n" + `{
  "rating": "Sell",
  "confidence": 0.6,
  "reasoning": "Margins are compressing.",
  "key_factors": [],
  "risk_factors": ["margin pressure",],
  "recommendation_summary": "Reduce exposure."
}` + "\n```"}

	outcome := NewRater(client).RateStock(context.Background(), testInput())
	if outcome.Fallback {
		t.Fatalf("repairable response should not fall back: %s", outcome.FallbackReason)
	}
	if outcome.Result.Rating != models.Sell {
		t.Errorf("rating: got %q", outcome.Result.Rating)
	}
}

func TestRateStockRejectsUnknownRating(t *testing.T) {
	client := &stubClient{content: `{
  "rating": "Mega Buy",
  "confidence": 0.9,
  "reasoning": "Looks great.",
  "key_factors": [],
  "risk_factors": [],
  "recommendation_summary": "Buy it."
}`}
	outcome := NewRater(client).RateStock(context.Background(), testInput())
	if !outcome.Fallback {
		t.Fatal("unknown rating should fall back")
	}
	if !strings.Contains(outcome.FallbackReason, "Mega Buy") {
		t.Errorf("reason should name the bad rating: %q", outcome.FallbackReason)
	}
}

func TestRateStockRejectsCaseMismatch(t *testing.T) {
	// Enum matching is exact: "buy" is not "Buy".
	client := &stubClient{content: `{
  "rating": "buy",
  "confidence": 0.5,
  "reasoning": "Fine.",
  "key_factors": [],
  "risk_factors": [],
  "recommendation_summary": "ok"
}`}
	if outcome := NewRater(client).RateStock(context.Background(), testInput()); !outcome.Fallback {
		t.Error("lowercase rating should fall back")
	}
}

func TestRateStockRejectsBadConfidence(t *testing.T) {
	for _, conf := range []string{"1.3", "-0.1"} {
		client := &stubClient{content: `{
  "rating": "Hold",
  "confidence": ` + conf + `,
  "reasoning": "Mixed signals.",
  "key_factors": [],
  "risk_factors": [],
  "recommendation_summary": "Wait."
}`}
		outcome := NewRater(client).RateStock(context.Background(), testInput())
		if !outcome.Fallback {
			t.Errorf("confidence %s should fall back", conf)
		}
	}
}

func TestRateStockRejectsEmptyReasoning(t *testing.T) {
	client := &stubClient{content: `{
  "rating": "Hold",
  "confidence": 0.5,
  "reasoning": "  ",
  "key_factors": [],
  "risk_factors": [],
  "recommendation_summary": "Wait."
}`}
	if outcome := NewRater(client).RateStock(context.Background(), testInput()); !outcome.Fallback {
		t.Error("blank reasoning should fall back")
	}
}

func TestParseRatingCoercesNilFactors(t *testing.T) {
	result, err := parseRating(`{
  "rating": "Hold",
  "confidence": 0.4,
  "reasoning": "Mixed signals."
}`)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if result.KeyFactors == nil || result.RiskFactors == nil {
		t.Error("missing factor lists should be coerced to empty slices")
	}
}
