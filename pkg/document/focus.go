package document

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"medqc-hq/medqc/pkg/config"
)

// dedupPrefix is the number of leading runes that, together with the length,
// identify a duplicate window.
const dedupPrefix = 128

// FocusCondenser keeps the parts of a long record where rules usually find
// their evidence: a head window, a window around the first match of every
// heading, and a tail window. The joined result never exceeds MaxChars runes.
type FocusCondenser struct {
	headings []*regexp.Regexp

	headChars    int
	tailChars    int
	windowBefore int
	windowAfter  int
	maxChars     int
}

// NewFocusCondenser compiles cfg.Headings case-insensitively and sizes the
// output from the context window and the configured budgets.
func NewFocusCondenser(cfg config.DocumentConfig, contextWindow int) (*FocusCondenser, error) {
	c := &FocusCondenser{
		headChars:    cfg.HeadChars,
		tailChars:    cfg.TailChars,
		windowBefore: cfg.WindowBefore,
		windowAfter:  cfg.WindowAfter,
		maxChars:     NewEstimator(cfg.CharsPerToken).Chars(InputBudget(cfg, contextWindow)),
	}
	for i, h := range cfg.Headings {
		re, err := regexp.Compile("(?i)" + h)
		if err != nil {
			return nil, fmt.Errorf("document heading %d: %w", i, err)
		}
		c.headings = append(c.headings, re)
	}
	return c, nil
}

// MaxChars returns the output bound in runes.
func (c *FocusCondenser) MaxChars() int {
	return c.maxChars
}

// Context condenses text. It never fails; the error is part of the Provider
// contract.
func (c *FocusCondenser) Context(_ context.Context, text string) (string, error) {
	return c.Condense(text), nil
}

// Condense returns the focused text.
func (c *FocusCondenser) Condense(text string) string {
	runes := []rune(text)
	if len(runes) == 0 || c.maxChars <= 0 {
		return ""
	}

	windows := []window{{0, min(len(runes), c.headChars)}}
	for _, re := range c.headings {
		loc := re.FindStringIndex(text)
		if loc == nil {
			continue
		}
		at := utf8.RuneCountInString(text[:loc[0]])
		windows = append(windows, window{
			start: max(0, at-c.windowBefore),
			end:   min(len(runes), at+c.windowAfter),
		})
	}
	windows = append(windows, window{max(0, len(runes)-c.tailChars), len(runes)})

	type key struct {
		prefix string
		length int
	}
	seen := make(map[key]bool, len(windows))
	parts := make([]string, 0, len(windows))
	total := 0
	for _, w := range windows {
		block := runes[w.start:w.end]
		k := key{string(block[:min(len(block), dedupPrefix)]), len(block)}
		if seen[k] {
			continue
		}
		seen[k] = true

		take := min(len(block), c.maxChars-total)
		if take <= 0 {
			break
		}
		parts = append(parts, string(block[:take]))
		total += take
	}

	out := strings.Join(parts, "\n\n")
	if utf8.RuneCountInString(out) > c.maxChars {
		out = string([]rune(out)[:c.maxChars])
	}
	return out
}

type window struct {
	start, end int
}
