package format

import "testing"

func TestApply(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"it costs 20 euros", "it costs 20€"},
		{"1 Euro only", "1€ only"},
		{"pay 5 dollars", "pay $5"},
		{"about 100dollar", "about $100"},
		{"owe 3 pounds", "owe £3"},
		{"call the api from the ui", "call the API from the UI"},
		{"Parse JSON and Json", "Parse JSON and JSON"},
		{"macos and ios with swiftui", "macOS and iOS with SwiftUI"},
		{"an xpc service", "an XPC service"},
		{"rapid building guide", "rapid building guide"},
		{"audios", "audios"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Apply(tt.in); got != tt.want {
				t.Errorf("Apply(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestApplyIdempotent(t *testing.T) {
	for _, in := range []string{"20 euros via the api", "macos ui", "5 dollars"} {
		once := Apply(in)
		if twice := Apply(once); twice != once {
			t.Errorf("Apply(Apply(%q)) = %q, want %q", in, twice, once)
		}
	}
}
