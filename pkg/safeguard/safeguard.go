package safeguard

import (
	"strings"
	"unicode"
)

// DefaultKeywords trip the urgent review path when found in request text
var DefaultKeywords = []string{
	"suicide",
	"kill myself",
	"self harm",
	"self-harm",
	"overdose",
	"emergency",
	"abuse",
	"in danger",
	"hurt myself",
}

// Checker flags request text that needs mandatory manual review
type Checker struct {
	keywords []string
}

// NewChecker creates a checker; an empty list falls back to DefaultKeywords
func NewChecker(keywords []string) *Checker {
	var kws []string
	for _, k := range keywords {
		if k = normalize(k); k != "" {
			kws = append(kws, k)
		}
	}
	if len(kws) == 0 {
		for _, k := range DefaultKeywords {
			kws = append(kws, normalize(k))
		}
	}
	return &Checker{keywords: kws}
}

// Check returns the keywords found in text, or nil if nothing matched
func (c *Checker) Check(text string) []string {
	haystack := " " + normalize(text) + " "

	var hits []string
	for _, k := range c.keywords {
		if strings.Contains(haystack, " "+k+" ") {
			hits = append(hits, k)
		}
	}
	return hits
}

// normalize lowercases and collapses punctuation to single spaces so that
// keywords only match on word boundaries
func normalize(s string) string {
	var b strings.Builder
	space := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	return strings.TrimSpace(b.String())
}
