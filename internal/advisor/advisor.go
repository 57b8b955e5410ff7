// Package advisor generates natural-language risk analysis and a
// mitigation plan for a scored profile. Generation is best-effort: any
// upstream failure degrades to a static fallback, never an error.
package advisor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/idtrace/idtrace/internal/domain"
)

// FallbackAnalysis is returned when the model call fails or the
// advisor is not configured.
const FallbackAnalysis = "AI analysis unavailable at this time."

// fallbackPlan covers the generic mitigation basics.
var fallbackPlan = []string{
	"Enable 2FA on all accounts immediately.",
	"Change passwords for exposed services.",
	"Monitor bank statements for suspicious activity.",
}

const defaultTimeout = 15 * time.Second

// Advisor wraps a chat-completion client. A zero-key configuration
// produces a disabled advisor whose methods return fallbacks directly.
type Advisor struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// New creates an advisor from config. When no API key is set the
// advisor is disabled rather than failing startup.
func New(cfg domain.AdvisorConfig) *Advisor {
	a := &Advisor{
		model:   cfg.Model,
		timeout: cfg.Timeout,
	}
	if a.model == "" {
		a.model = "gpt-4o-mini"
	}
	if a.timeout <= 0 {
		a.timeout = defaultTimeout
	}
	if cfg.APIKey == "" {
		slog.Info("advisor disabled, no API key configured")
		return a
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	a.client = openai.NewClientWithConfig(clientCfg)
	slog.Info("advisor initialized", "model", a.model)
	return a
}

// Enabled reports whether a model client is configured.
func (a *Advisor) Enabled() bool {
	return a.client != nil
}

// Analyze explains why the profile landed at its risk level, in at
// most three sentences. Failures fall back to a static message.
func (a *Advisor) Analyze(ctx context.Context, profile *domain.RiskProfile) string {
	if !a.Enabled() {
		return FallbackAnalysis
	}

	exposures, err := json.Marshal(summarizeExposures(profile.Details.Exposures))
	if err != nil {
		return FallbackAnalysis
	}

	prompt := fmt.Sprintf(`You are an expert cybersecurity analyst.
Analyze the following breach data for a user:

Risk Score: %d
Risk Level: %s
Breach Count: %d
Exposures: %s

Please provide a concise, natural language explanation of WHY the risk is at this level.
Focus on the most critical exposures.
Do NOT list every single breach.
Explain the potential consequences (e.g. "Because your password was leaked in the Adobe breach...").
Keep it under 3 sentences.
Tone: Professional, urgent but calm.`,
		profile.Score, profile.Level, profile.Details.Breaches, exposures)

	text, err := a.complete(ctx, prompt)
	if err != nil {
		slog.Warn("risk analysis generation failed", "error", err)
		return FallbackAnalysis
	}
	return strings.TrimSpace(text)
}

// ActionPlan generates three mitigation steps tailored to the exposed
// services. Failures fall back to generic advice.
func (a *Advisor) ActionPlan(ctx context.Context, level domain.RiskLevel, exposures []domain.Exposure) []string {
	if !a.Enabled() {
		return fallbackPlan
	}

	names := make([]string, 0, len(exposures))
	for _, exp := range exposures {
		names = append(names, exp.Source)
	}

	prompt := fmt.Sprintf(`You are an expert security consultant for a user with Risk Level: %s.

Their data appeared in these specific breaches: %s

Task:
Generate 3 highly specific, actionable mitigation steps TAILORED to these specific breaches.
- If "Adobe" is listed, mention password reuse.
- If "LinkedIn" is listed, mention business email security.
- If "Gravatar" is listed, mention public profile scrubbing.

Format as a JSON array of strings.
Example: ["step 1", "step 2", "step 3"]
Do not include markdown formatting.`,
		level, strings.Join(names, ", "))

	text, err := a.complete(ctx, prompt)
	if err != nil {
		slog.Warn("mitigation plan generation failed", "error", err)
		return fallbackPlan
	}

	return parsePlan(text)
}

func (a *Advisor) complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// parsePlan extracts a string array from the model's response,
// tolerating markdown code fences. Unparseable output is kept as a
// single step rather than discarded.
func parsePlan(text string) []string {
	clean := strings.ReplaceAll(text, "```json", "")
	clean = strings.ReplaceAll(clean, "```", "")
	clean = strings.TrimSpace(clean)

	var steps []string
	if err := json.Unmarshal([]byte(clean), &steps); err != nil || len(steps) == 0 {
		return []string{strings.TrimSpace(text)}
	}
	return steps
}

type exposureSummary struct {
	Source   string   `json:"source"`
	Type     string   `json:"type"`
	Severity string   `json:"severity,omitempty"`
	Data     []string `json:"data"`
}

func summarizeExposures(exposures []domain.Exposure) []exposureSummary {
	summaries := make([]exposureSummary, 0, len(exposures))
	for _, exp := range exposures {
		summaries = append(summaries, exposureSummary{
			Source:   exp.Source,
			Type:     string(exp.Type),
			Severity: string(exp.Severity),
			Data:     exp.DataClasses,
		})
	}
	return summaries
}
