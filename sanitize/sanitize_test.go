package sanitize

import (
	"strings"
	"testing"
)

func TestRemoveFillers(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"english fillers", "um I think, uh, we should go", "I think, we should go"},
		{"case insensitive", "Um hello UH world", "hello world"},
		{"german fillers", "äh das ist ähm gut", "das ist gut"},
		{"word boundary", "umbrella and mhmm like stuff", "umbrella and mhmm stuff"},
		{"trailing punctuation", "hello um... world", "hello world"},
		{"only fillers", "um uh like", ""},
		{"no fillers", "plain text", "plain text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RemoveFillers(tt.in); got != tt.want {
				t.Errorf("RemoveFillers(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestRedactPII(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    []string
		notWant []string
	}{
		{"plain card", "card 4111111111111111 thanks", []string{CreditCardMarker}, []string{"4111"}},
		{"spaced card", "pay with 4111 1111 1111 1111 now", []string{CreditCardMarker}, []string{"4111"}},
		{"dashed card", "pay with 4111-1111-1111-1111 now", []string{CreditCardMarker}, []string{"4111"}},
		{"ssn", "my ssn is 123-45-6789", []string{SSNMarker}, []string{"6789", CreditCardMarker}},
		{"short number", "call me at 555 1234", []string{"555 1234"}, []string{CreditCardMarker}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RedactPII(tt.in)
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("RedactPII(%q) = %q, missing %q", tt.in, got, w)
				}
			}
			for _, nw := range tt.notWant {
				if strings.Contains(got, nw) {
					t.Errorf("RedactPII(%q) = %q, should not contain %q", tt.in, got, nw)
				}
			}
		})
	}
}

func TestSanitizeIdempotent(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"um so like my card is 4111 1111 1111 1111, uh, thanks",
		"ssn 123-45-6789 and card 5500-0000-0000-0004",
		"äh   ähm   mhm   hello   world",
		"1234 5678 9012 3456 7890 1234",
		"Like, um, like like um.",
		"open Safari please",
	}

	for _, in := range inputs {
		once := Sanitize(in)
		twice := Sanitize(once)
		if once != twice {
			t.Errorf("Sanitize not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestSanitizeOrder(t *testing.T) {
	got := Sanitize("um my number is 4111 1111 1111 1111")
	want := "my number is " + CreditCardMarker
	if got != want {
		t.Errorf("Sanitize() = %q, want %q", got, want)
	}
}
