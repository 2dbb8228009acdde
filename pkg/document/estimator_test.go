package document

import (
	"testing"

	"medqc-hq/medqc/pkg/config"
)

func TestEstimator_EstimateText(t *testing.T) {
	e := NewEstimator(4.0)

	tests := []struct {
		name string
		text string
		want int
	}{
		{"empty", "", 0},
		{"short text", "Hi", 1},
		{"ascii", "Hello, world!", 3},
		{"cyrillic counts runes", "Диагноз установлен", 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := e.EstimateText(tt.text); got != tt.want {
				t.Errorf("EstimateText(%q) = %d, want %d", tt.text, got, tt.want)
			}
		})
	}
}

func TestEstimator_Chars(t *testing.T) {
	if got := NewEstimator(3.7).Chars(2282); got != 8443 {
		t.Errorf("Chars(2282) = %d, want 8443", got)
	}
	if got := NewEstimator(0).Chars(10); got != 37 {
		t.Errorf("default ratio Chars(10) = %d, want 37", got)
	}
	if got := NewEstimator(4).Chars(-1); got != 0 {
		t.Errorf("Chars(-1) = %d, want 0", got)
	}
}

func TestInputBudget(t *testing.T) {
	cfg := config.DocumentConfig{OutputBudgetTokens: 140, SystemBudgetTokens: 650, MinInputTokens: 512}

	if got := InputBudget(cfg, 3072); got != 2282 {
		t.Errorf("InputBudget(3072) = %d, want 2282", got)
	}
	if got := InputBudget(cfg, 1024); got != 512 {
		t.Errorf("InputBudget(1024) = %d, want the 512 floor", got)
	}
}
