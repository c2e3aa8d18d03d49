package notify

import (
	"errors"
	"strings"
	"testing"

	"go.aimuz.me/echoflow/internal/apperr"
)

type fakeNotifier struct {
	messages []string
}

func (f *fakeNotifier) Notify(_, message string) error {
	f.messages = append(f.messages, message)
	return nil
}

func TestError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"hardware", apperr.HardwareUnavailable(errors.New("busy")), "Microphone"},
		{"privacy", apperr.PrivacyBlocked(), "password"},
		{"wrapped capability", errors.Join(errors.New("inject"), apperr.CapabilityDenied("accessibility")), "Accessibility"},
		{"provider is quiet", apperr.ProviderUnavailable("openai", errors.New("401")), ""},
		{"plain is quiet", errors.New("boom"), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := &fakeNotifier{}
			Error(n, tt.err)
			if tt.want == "" {
				if len(n.messages) != 0 {
					t.Errorf("notified %q, want nothing", n.messages)
				}
				return
			}
			if len(n.messages) != 1 || !strings.Contains(n.messages[0], tt.want) {
				t.Errorf("messages = %q, want one containing %q", n.messages, tt.want)
			}
		})
	}
}
