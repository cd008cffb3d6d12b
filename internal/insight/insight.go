// Package insight turns aggregate business metrics into a short natural
// language briefing using an external text-generation service.
package insight

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

type Kind string

const (
	KindDailyBriefing    Kind = "daily_briefing"
	KindExecutiveInsight Kind = "executive_insight"
)

func ParseKind(raw string) (Kind, bool) {
	switch Kind(strings.TrimSpace(raw)) {
	case KindDailyBriefing:
		return KindDailyBriefing, true
	case KindExecutiveInsight:
		return KindExecutiveInsight, true
	default:
		return "", false
	}
}

type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeFallback Outcome = "fallback"
	OutcomeError    Outcome = "error"
)

// Result is always displayable: Text is never empty. Err carries the remote
// failure when Outcome is OutcomeError.
type Result struct {
	Kind      Kind    `json:"kind"`
	Text      string  `json:"text"`
	Outcome   Outcome `json:"outcome"`
	Cached    bool    `json:"cached"`
	LatencyMS int64   `json:"latency_ms"`
	Err       error   `json:"-"`
}

// Summarizer is the text-generation collaborator.
type Summarizer interface {
	Summarize(ctx context.Context, prompt string) (string, error)
}

var ErrSummarizerUnavailable = errors.New("summarizer not configured")

// NoopSummarizer is used when no API key is configured; every call falls back.
type NoopSummarizer struct{}

func (NoopSummarizer) Summarize(context.Context, string) (string, error) {
	return "", ErrSummarizerUnavailable
}

// Snapshot is the aggregate input to a prompt.
type Snapshot struct {
	BusinessName  string
	Revenue       decimal.Decimal
	Expenses      decimal.Decimal
	LowStock      int
	CriticalStock int
	SaleCount     int
}

const defaultBusinessName = "Nexus ERP"

func BuildPrompt(kind Kind, snap Snapshot) (string, error) {
	name := strings.TrimSpace(snap.BusinessName)
	if name == "" {
		name = defaultBusinessName
	}

	switch kind {
	case KindDailyBriefing:
		return fmt.Sprintf(`Act as a senior ERP Business Consultant. Provide a 4-point "Daily Executive Briefing" based on:
- Business: %s
- Revenue: $%s
- Operating Expenses: $%s
- Critical Low Stock (<5 units): %d items
- Recent Activity: %d sales recorded.

Structure the response with 4 short, punchy bullet points (Financial Health, Inventory Risk, Operational Efficiency, Strategic Advice).`,
			name, snap.Revenue.StringFixed(2), snap.Expenses.StringFixed(2), snap.LowStock, snap.SaleCount), nil
	case KindExecutiveInsight:
		return fmt.Sprintf(`As a business strategist for %s, provide a one-sentence high-level executive insight based on these metrics:
- Total Revenue: $%s
- Critical Stock Items: %d
- Transaction Volume: %d
Ensure the tone is professional and the insight is actionable.`,
			name, snap.Revenue.StringFixed(2), snap.CriticalStock, snap.SaleCount), nil
	default:
		return "", fmt.Errorf("unknown insight kind %q", kind)
	}
}

// emptyText is shown when the model answers with nothing.
func emptyText(kind Kind) string {
	if kind == KindDailyBriefing {
		return "Briefing unavailable."
	}
	return "Operations are within expected parameters. Monitor critical stock levels."
}

// errorText is shown when the remote call fails.
func errorText(kind Kind) string {
	if kind == KindDailyBriefing {
		return "Intelligence Engine error. Defaulting to standard analysis: Revenue is stable but check critical stock levels."
	}
	return "Intelligence Engine standby. Financial indicators remain stable."
}
