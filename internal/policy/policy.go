// Package policy provides the CEL-based alert policy engine deciding
// whether a monitor scan should raise an alert.
package policy

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"

	"github.com/idtrace/idtrace/internal/domain"
)

// DefaultExpression alerts on any confirmed breach or on a score that
// leaves the Medium/Low bands.
const DefaultExpression = "breaches > 0 || score < 65"

// Engine evaluates an alert expression against scan results.
type Engine struct {
	mu         sync.RWMutex
	env        *cel.Env
	program    cel.Program
	expression string
}

// NewEngine creates a policy engine with the given alert expression.
// An empty or invalid expression falls back to the default policy.
func NewEngine(expression string) (*Engine, error) {
	env, err := cel.NewEnv(
		cel.Variable("score", cel.IntType),
		cel.Variable("level", cel.StringType),
		cel.Variable("breaches", cel.IntType),
		cel.Variable("exposures", cel.IntType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	e := &Engine{env: env}

	if expression == "" {
		expression = DefaultExpression
	}
	if err := e.SetExpression(expression); err != nil {
		slog.Warn("invalid alert policy, using default",
			"expression", expression, "error", err)
		if err := e.SetExpression(DefaultExpression); err != nil {
			return nil, err
		}
	}

	return e, nil
}

// SetExpression compiles and installs a new alert expression. The
// previous expression stays active when compilation fails.
func (e *Engine) SetExpression(expression string) error {
	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return fmt.Errorf("failed to compile policy: %w", issues.Err())
	}
	if ast.OutputType() != cel.BoolType {
		return fmt.Errorf("policy expression must return bool, got %s", ast.OutputType())
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return fmt.Errorf("failed to create policy program: %w", err)
	}

	e.mu.Lock()
	e.program = program
	e.expression = expression
	e.mu.Unlock()
	return nil
}

// Expression returns the active alert expression.
func (e *Engine) Expression() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.expression
}

// ShouldAlert evaluates the policy against a scored profile. An
// evaluation error alerts conservatively rather than staying silent.
func (e *Engine) ShouldAlert(profile *domain.RiskProfile) bool {
	e.mu.RLock()
	program := e.program
	e.mu.RUnlock()

	out, _, err := program.Eval(map[string]any{
		"score":     profile.Score,
		"level":     string(profile.Level),
		"breaches":  profile.Details.Breaches,
		"exposures": len(profile.Details.Exposures),
	})
	if err != nil {
		slog.Error("alert policy evaluation failed", "error", err)
		return true
	}

	alert, ok := out.(types.Bool)
	if !ok {
		return true
	}
	return bool(alert)
}
