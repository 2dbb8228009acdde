package document

import (
	"unicode/utf8"

	"medqc-hq/medqc/pkg/config"
)

// Estimator implements character-based token estimation.
// It counts runes, not bytes, so Cyrillic text is not overestimated.
type Estimator struct {
	// CharsPerToken is the average number of characters per token.
	CharsPerToken float64
}

// NewEstimator creates an estimator. A non-positive ratio falls back to
// config.DefaultCharsPerToken.
func NewEstimator(charsPerToken float64) Estimator {
	if charsPerToken <= 0 {
		charsPerToken = config.DefaultCharsPerToken
	}
	return Estimator{CharsPerToken: charsPerToken}
}

// EstimateText estimates tokens for a single text string.
func (e Estimator) EstimateText(text string) int {
	if text == "" {
		return 0
	}
	tokens := float64(utf8.RuneCountInString(text)) / e.ratio()
	if tokens < 1.0 {
		return 1 // Minimum 1 token for non-empty text
	}
	return int(tokens + 0.5)
}

// Chars converts a token budget into a character budget.
func (e Estimator) Chars(tokens int) int {
	if tokens <= 0 {
		return 0
	}
	return int(float64(tokens) * e.ratio())
}

func (e Estimator) ratio() float64 {
	if e.CharsPerToken <= 0 {
		return config.DefaultCharsPerToken
	}
	return e.CharsPerToken
}

// InputBudget returns the number of document tokens that fit into a context
// window after reserving the output and system budgets. The result is never
// below cfg.MinInputTokens.
func InputBudget(cfg config.DocumentConfig, contextWindow int) int {
	tokens := contextWindow - cfg.OutputBudgetTokens - cfg.SystemBudgetTokens
	if tokens < cfg.MinInputTokens {
		tokens = cfg.MinInputTokens
	}
	return tokens
}
