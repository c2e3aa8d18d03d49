package stt

import (
	"regexp"
	"strings"
)

var (
	// regexTimestamp matches VTT/SRT timestamps like [00:00:00.000 --> 00:00:04.000]
	regexTimestamp = regexp.MustCompile(`\[\d{2}:\d{2}:\d{2}\.\d{3}\s-->\s\d{2}:\d{2}:\d{2}\.\d{3}\]`)
	// regexArtifacts matches non-speech markers like [BLANK_AUDIO] or (music)
	regexArtifacts = regexp.MustCompile(`\[[A-Z_ ]+\]|\((?i:music|silence|applause|inaudible)\)`)
	regexSpaces    = regexp.MustCompile(`\s+`)
)

// cleanText removes timestamps and engine artifacts from the text.
func cleanText(text string) string {
	text = regexTimestamp.ReplaceAllString(text, "")
	text = regexArtifacts.ReplaceAllString(text, "")
	text = regexSpaces.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
