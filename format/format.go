// Package format applies deterministic rewrites to dictated text before it
// is typed.
package format

import "regexp"

type rule struct {
	re   *regexp.Regexp
	repl string
}

var currency = []rule{
	{regexp.MustCompile(`(\d+)\s*[Ee]uros?`), "${1}€"},
	{regexp.MustCompile(`(\d+)\s*dollars?`), "$$${1}"},
	{regexp.MustCompile(`(\d+)\s*pounds?`), "£${1}"},
}

var acronyms = []rule{
	{regexp.MustCompile(`(?i)\bapi\b`), "API"},
	{regexp.MustCompile(`(?i)\bui\b`), "UI"},
	{regexp.MustCompile(`(?i)\bxpc\b`), "XPC"},
	{regexp.MustCompile(`(?i)\bjson\b`), "JSON"},
	{regexp.MustCompile(`(?i)\bmacos\b`), "macOS"},
	{regexp.MustCompile(`(?i)\bios\b`), "iOS"},
	{regexp.MustCompile(`(?i)\bswiftui\b`), "SwiftUI"},
}

// Apply rewrites currency amounts and re-cases known acronyms.
func Apply(text string) string {
	for _, r := range currency {
		text = r.re.ReplaceAllString(text, r.repl)
	}
	for _, r := range acronyms {
		text = r.re.ReplaceAllString(text, r.repl)
	}
	return text
}
