package output

import (
	"strings"
	"testing"
)

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		name string
		text string
		min  int
		max  int
	}{
		{"empty payload", "", 0, 0},
		{"single flow line", `{"source":"main.py:3","sink":"os.system","cwe":"CWE-78"}`, 10, 18},
		{
			"module edge list",
			"pkg/core.py -> pkg/util.py\npkg/util.py -> pkg/io.py\nmain.py -> pkg/core.py\n",
			15, 25,
		},
		{"8000 char report", strings.Repeat("x", 8000), 1900, 2100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EstimateTokens(tt.text)
			if got < tt.min || got > tt.max {
				t.Errorf("EstimateTokens() = %d, want between %d and %d", got, tt.min, tt.max)
			}
		})
	}
}

func TestEstimateTokensCountsRunes(t *testing.T) {
	// Multi-byte characters in file paths count once, not per byte.
	ascii := EstimateTokens(strings.Repeat("a", 400))
	multi := EstimateTokens(strings.Repeat("é", 400))
	if ascii != multi {
		t.Errorf("rune estimate differs: ascii %d vs multibyte %d", ascii, multi)
	}
}

func TestFormatTokenCount(t *testing.T) {
	tests := []struct {
		tokens   int
		expected string
	}{
		{0, "0"},
		{950, "950"},
		{1000, "1.0k"},
		{12500, "12.5k"},
		{200000, "200.0k"},
	}

	for _, tt := range tests {
		if got := FormatTokenCount(tt.tokens); got != tt.expected {
			t.Errorf("FormatTokenCount(%d) = %q, want %q", tt.tokens, got, tt.expected)
		}
	}
}

func TestGetTokenBudgetInfo(t *testing.T) {
	// ~2k tokens of payload against an 8k budget.
	text := strings.Repeat("n", 8000)
	info := GetTokenBudgetInfo(text, 8000)

	if info.Tokens < 1900 || info.Tokens > 2100 {
		t.Errorf("Tokens = %d, want ~2000", info.Tokens)
	}
	if info.Budget != 8000 || info.BudgetLabel != "8k" {
		t.Errorf("Budget = %d label %q", info.Budget, info.BudgetLabel)
	}
	if info.UsagePercent < 23 || info.UsagePercent > 27 {
		t.Errorf("UsagePercent = %.1f, want ~25", info.UsagePercent)
	}
	if info.Remaining != info.Budget-info.Tokens {
		t.Errorf("Remaining = %d", info.Remaining)
	}
}

func TestGetTokenBudgetInfoOverBudget(t *testing.T) {
	// graph_neighborhood refuses payloads once Remaining reaches zero.
	info := GetTokenBudgetInfo(strings.Repeat("n", 4000), 100)
	if info.Remaining != 0 {
		t.Errorf("Remaining = %d, want 0 when over budget", info.Remaining)
	}
	if info.UsagePercent <= 100 {
		t.Errorf("UsagePercent = %.1f, want > 100", info.UsagePercent)
	}
}

func TestGetTokenBudgetInfoDefaultBudget(t *testing.T) {
	info := GetTokenBudgetInfo("short", 0)
	if info.Budget != DefaultBudget {
		t.Errorf("Budget = %d, want DefaultBudget", info.Budget)
	}
}
