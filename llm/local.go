package llm

import (
	"context"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"go.aimuz.me/echoflow/internal/types"
)

// KindLocalFallback identifies the local heuristic in logs. It is not a
// configurable provider kind.
const KindLocalFallback types.ProviderKind = "local-fallback"

var launchVerbs = []string{"open", "launch", "start"}

// Local routes transcripts with a lexical heuristic. It never touches the
// network and never fails.
type Local struct{}

func (*Local) Kind() types.ProviderKind { return KindLocalFallback }
func (*Local) Setup() error             { return nil }

func (*Local) TestConnection(context.Context) error { return nil }

func (l *Local) RouteIntent(_ context.Context, transcript string, _ *types.AppContext) (Result, error) {
	return Result{Route: l.Route(transcript)}, nil
}

// Route applies the heuristic.
//
// "open X", "launch X" and "start X" become open_app with the title-cased
// words after the verb; mentions of email become send_email with the whole
// transcript as body; anything else is dictation.
func (*Local) Route(transcript string) types.RouteResult {
	lower := strings.TrimSpace(strings.ToLower(transcript))

	if containsAny(lower, "open ", "launch ", "start ") {
		words := strings.Fields(lower)
		for i, w := range words {
			if !slices.Contains(launchVerbs, w) {
				continue
			}
			if i+1 < len(words) {
				app := cases.Title(language.Und).String(strings.Join(words[i+1:], " "))
				return types.Command("open_app", map[string]string{"app_name": app})
			}
			break
		}
	}

	if containsAny(lower, "send email", "email ") {
		return types.Command("send_email", map[string]string{
			"recipient": "unknown",
			"body":      transcript,
		})
	}

	return types.Dictation(transcript)
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
