package langdetect

import "testing"

func TestDetect(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		wantCode string
	}{
		{"english", "Please send the quarterly report to the whole team tomorrow morning.", "en"},
		{"german", "Bitte schicken Sie den Bericht morgen früh an das ganze Team.", "de"},
		{"too short", "ok", "auto"},
		{"blank", "    ", "auto"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _ := Detect(tt.text)
			if code != tt.wantCode {
				t.Errorf("Detect(%q) code = %q, want %q", tt.text, code, tt.wantCode)
			}
		})
	}
}

func TestEveryLanguageHasModel(t *testing.T) {
	samples := map[string]string{
		"en": "The weather is lovely today and we are going for a walk.",
		"fr": "Nous allons au marché demain matin pour acheter du pain frais.",
		"es": "Mañana vamos a la playa con todos nuestros amigos del barrio.",
		"it": "Domani andiamo al mare con tutti i nostri amici del quartiere.",
		"nl": "Morgen gaan we met al onze vrienden naar het strand toe.",
		"pt": "Amanhã vamos à praia com todos os nossos amigos do bairro.",
	}
	for want, text := range samples {
		t.Run(want, func(t *testing.T) {
			if code, _ := Detect(text); code != want {
				t.Errorf("Detect(%q) code = %q, want %q", text, code, want)
			}
		})
	}
}
