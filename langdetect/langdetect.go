// Package langdetect identifies the language of a transcript.
package langdetect

import (
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/pemistahl/lingua-go"

	// Model packages register their n-gram data with lingua on init.
	_ "github.com/pemistahl/lingua-go/language-models/de"
	_ "github.com/pemistahl/lingua-go/language-models/en"
	_ "github.com/pemistahl/lingua-go/language-models/es"
	_ "github.com/pemistahl/lingua-go/language-models/fr"
	_ "github.com/pemistahl/lingua-go/language-models/it"
	_ "github.com/pemistahl/lingua-go/language-models/ja"
	_ "github.com/pemistahl/lingua-go/language-models/ko"
	_ "github.com/pemistahl/lingua-go/language-models/nl"
	_ "github.com/pemistahl/lingua-go/language-models/pt"
	_ "github.com/pemistahl/lingua-go/language-models/zh"
)

// MinRunes is the shortest text worth detecting; shorter input is reported
// as unknown.
const MinRunes = 12

// Languages lists the languages the detector distinguishes. Each needs its
// model package imported above.
var Languages = []lingua.Language{
	lingua.English,
	lingua.German,
	lingua.French,
	lingua.Spanish,
	lingua.Italian,
	lingua.Portuguese,
	lingua.Dutch,
	lingua.Chinese,
	lingua.Japanese,
	lingua.Korean,
}

var (
	detectorOnce sync.Once
	detector     lingua.LanguageDetector
)

func getDetector() lingua.LanguageDetector {
	detectorOnce.Do(func() {
		detector = lingua.NewLanguageDetectorBuilder().
			FromLanguages(Languages...).
			Build()
	})
	return detector
}

// Detect returns the ISO 639-1 code and English name of the language of
// text, or "auto" and "Auto" when it cannot be determined.
func Detect(text string) (code, name string) {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) < MinRunes {
		return "auto", "Auto"
	}

	lang, ok := getDetector().DetectLanguageOf(text)
	if !ok {
		return "auto", "Auto"
	}
	return strings.ToLower(lang.IsoCode639_1().String()), lang.String()
}
