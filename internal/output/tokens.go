package output

import (
	"fmt"
	"unicode/utf8"
)

// TokenBudgetInfo reports how much of a model context budget a rendered
// analysis payload consumes.
type TokenBudgetInfo struct {
	Tokens       int     // estimated token count of the payload
	Budget       int     // caller-supplied budget
	BudgetLabel  string  // display form, e.g. "8k"
	UsagePercent float64 // tokens as a share of the budget
	Remaining    int     // budget left, floored at zero
}

// DefaultBudget applies when a caller passes a non-positive budget.
const DefaultBudget = 128000

// charsPerToken is the rune-to-token ratio used for estimates. Analysis
// output is code-heavy (module paths, identifiers, punctuation), which
// tokenizes closer to 4 chars/token than prose does.
const charsPerToken = 4.0

// EstimateTokens approximates the token count of rendered output. The
// number gates payload size for MCP tool responses; it is a heuristic,
// not a tokenizer.
func EstimateTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	runes := utf8.RuneCountInString(text)
	return int(float64(runes)/charsPerToken + 0.5)
}

// FormatTokenCount renders a count as "950" or "12.5k".
func FormatTokenCount(tokens int) string {
	if tokens < 1000 {
		return fmt.Sprintf("%d", tokens)
	}
	return fmt.Sprintf("%.1fk", float64(tokens)/1000)
}

// GetTokenBudgetInfo sizes text against a token budget. Remaining hits
// zero exactly when the payload does not fit.
func GetTokenBudgetInfo(text string, budget int) TokenBudgetInfo {
	if budget <= 0 {
		budget = DefaultBudget
	}

	tokens := EstimateTokens(text)
	remaining := budget - tokens
	if remaining < 0 {
		remaining = 0
	}

	return TokenBudgetInfo{
		Tokens:       tokens,
		Budget:       budget,
		BudgetLabel:  formatBudgetLabel(budget),
		UsagePercent: float64(tokens) / float64(budget) * 100,
		Remaining:    remaining,
	}
}

func formatBudgetLabel(budget int) string {
	if budget >= 1000 {
		return fmt.Sprintf("%dk", budget/1000)
	}
	return fmt.Sprintf("%d", budget)
}
