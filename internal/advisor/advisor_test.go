package advisor

import (
	"context"
	"testing"

	"github.com/idtrace/idtrace/internal/domain"
)

func TestDisabledAdvisorFallsBack(t *testing.T) {
	a := New(domain.AdvisorConfig{})
	if a.Enabled() {
		t.Fatal("advisor without key should be disabled")
	}

	profile := &domain.RiskProfile{Score: 40, Level: domain.LevelHigh}
	if got := a.Analyze(context.Background(), profile); got != FallbackAnalysis {
		t.Errorf("expected fallback analysis, got %q", got)
	}

	plan := a.ActionPlan(context.Background(), domain.LevelHigh, nil)
	if len(plan) != 3 {
		t.Errorf("expected 3 fallback steps, got %d", len(plan))
	}
}

func TestParsePlan(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{
			name: "plain json array",
			in:   `["a", "b", "c"]`,
			want: []string{"a", "b", "c"},
		},
		{
			name: "fenced json array",
			in:   "```json\n[\"a\", \"b\"]\n```",
			want: []string{"a", "b"},
		},
		{
			name: "prose response kept as single step",
			in:   "1. Change your passwords",
			want: []string{"1. Change your passwords"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parsePlan(tt.in)
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d steps, got %v", len(tt.want), got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("step %d: expected %q, got %q", i, tt.want[i], got[i])
				}
			}
		})
	}
}

func TestSummarizeExposures(t *testing.T) {
	summaries := summarizeExposures([]domain.Exposure{
		{Source: "Adobe", Type: domain.TypeBreach, Severity: domain.SeverityHigh,
			DataClasses: []string{"Email", "Password"}},
	})
	if len(summaries) != 1 {
		t.Fatalf("expected 1 summary, got %d", len(summaries))
	}
	if summaries[0].Source != "Adobe" || summaries[0].Severity != "High" {
		t.Errorf("unexpected summary: %+v", summaries[0])
	}
}
