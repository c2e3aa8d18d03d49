package types

import (
	"encoding/json"
	"testing"
)

func TestRouteKindText(t *testing.T) {
	for _, k := range []RouteKind{RouteUnknown, RouteDictation, RouteCommand} {
		t.Run(k.String(), func(t *testing.T) {
			b, err := k.MarshalText()
			if err != nil {
				t.Fatalf("MarshalText: %v", err)
			}
			var got RouteKind
			if err := got.UnmarshalText(b); err != nil {
				t.Fatalf("UnmarshalText(%q): %v", b, err)
			}
			if got != k {
				t.Errorf("UnmarshalText(%q) = %v, want %v", b, got, k)
			}
		})
	}

	var k RouteKind
	if err := k.UnmarshalText([]byte("typing")); err == nil {
		t.Error("UnmarshalText(typing) error = nil, want error")
	}
}

func TestRouteResultJSON(t *testing.T) {
	want := Command("open_app", map[string]string{"app_name": "Safari"})
	data, err := json.Marshal(want)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var got RouteResult
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal(%s): %v", data, err)
	}
	if !got.Equal(want) {
		t.Errorf("round trip = %+v, want %+v", got, want)
	}
}
