package extractor

import (
	"regexp"
	"strings"
)

var (
	entryLevelPatterns = compileAll(
		`\bjunior\b`, `\bjr\b\.?`, `\bgraduate\b`, `\bnew grads?\b`, `\bintern(ship)?s?\b`,
		`\bentry[- ]level\b`, `\bassociate\b`, `\btrainee\b`, `\bapprentice(ship)?\b`,
		`\b0\s*(-|–|to)\s*2\s*(\+\s*)?years?\b`, `\bno (prior )?experience (required|needed)\b`,
	)
	managementPatterns = compileAll(
		`\bproject manag(er|ement)\b`, `\bproduct manag(er|ement)\b`, `\bprogram manag(er|ement)\b`,
		`\bproject coordinator\b`, `\bproduct owner\b`, `\bscrum master\b`,
	)
	seniorPatterns = compileAll(
		`\bsenior\b`, `\bsr\b\.?`, `\blead\b`, `\bprincipal\b`, `\bdirector\b`,
		`\bvp\b`, `\bvice president\b`, `\bchief\b`, `\bhead of\b`,
	)
)

func compileAll(patterns ...string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		compiled = append(compiled, regexp.MustCompile(`(?i)`+p))
	}
	return compiled
}

// IsEntryLevel reports whether a posting is entry level: an entry keyword is present,
// or a project/product management keyword is present without any senior keyword.
func IsEntryLevel(title, description string) bool {
	return classifyEntryLevel(title+"\n"+description, entryLevelPatterns, managementPatterns, seniorPatterns)
}

func classifyEntryLevel(text string, entry, management, senior []*regexp.Regexp) bool {
	text = strings.ToLower(text)
	if matchesAny(text, entry) {
		return true
	}
	return matchesAny(text, management) && !matchesAny(text, senior)
}

func matchesAny(text string, patterns []*regexp.Regexp) bool {
	for _, p := range patterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}
