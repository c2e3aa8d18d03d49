// Package sanitize cleans transcripts before they leave the device.
package sanitize

import (
	"regexp"
	"strings"
)

// Redaction markers.
const (
	CreditCardMarker = "[REDACTED-CC]"
	SSNMarker        = "[REDACTED-SSN]"
)

// Fillers is the vocabulary of filler tokens removed from transcripts.
var Fillers = []string{"äh", "ähm", "mhm", "uh", "um", "like"}

var (
	fillerSet = func() map[string]bool {
		m := make(map[string]bool, len(Fillers))
		for _, f := range Fillers {
			m[f] = true
		}
		return m
	}()

	// wordRe finds word tokens. Go's \b is ASCII-only, so word boundaries
	// around umlauts are resolved by tokenizing instead.
	wordRe = regexp.MustCompile(`[\p{L}\p{N}_]+`)

	ssnRe        = regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)
	creditCardRe = regexp.MustCompile(`\b(?:\d[ -]*?){13,16}\b`)
)

// Sanitize removes fillers and then redacts PII. The result is a fixed
// point: Sanitize(Sanitize(s)) == Sanitize(s).
func Sanitize(text string) string {
	for range 4 {
		next := RedactPII(RemoveFillers(text))
		if next == text {
			break
		}
		text = next
	}
	return text
}

// RemoveFillers drops filler words, case-insensitively, together with any
// whitespace and punctuation that follows them, then collapses double spaces.
func RemoveFillers(text string) string {
	var b strings.Builder
	last := 0
	for _, loc := range wordRe.FindAllStringIndex(text, -1) {
		if loc[0] < last {
			continue
		}
		if !fillerSet[strings.ToLower(text[loc[0]:loc[1]])] {
			continue
		}
		b.WriteString(text[last:loc[0]])
		end := loc[1]
		for end < len(text) && isTrailing(text[end]) {
			end++
		}
		last = end
	}
	b.WriteString(text[last:])

	out := b.String()
	for strings.Contains(out, "  ") {
		out = strings.ReplaceAll(out, "  ", " ")
	}
	return strings.TrimSpace(out)
}

func isTrailing(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\f', '.', ',':
		return true
	}
	return false
}

// RedactPII replaces social security numbers and card-like digit runs with
// markers. SSNs are replaced first so their marker survives.
func RedactPII(text string) string {
	text = ssnRe.ReplaceAllString(text, SSNMarker)
	return creditCardRe.ReplaceAllString(text, CreditCardMarker)
}
