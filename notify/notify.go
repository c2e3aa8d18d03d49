// Package notify shows desktop notifications for errors the user has to act
// on.
package notify

import (
	"errors"
	"log/slog"

	"github.com/gen2brain/beeep"

	"go.aimuz.me/echoflow/internal/apperr"
)

const title = "EchoFlow"

// Notifier shows a notification.
type Notifier interface {
	Notify(title, message string) error
}

// Desktop returns a Notifier backed by the system notification service.
func Desktop() Notifier { return desktop{} }

type desktop struct{}

func (desktop) Notify(title, message string) error {
	return beeep.Notify(title, message, "")
}

// Error logs err and, if the user can do something about it, shows a
// notification. Other errors are only logged.
func Error(n Notifier, err error) {
	if err == nil {
		return
	}
	if !apperr.Surfaced(err) {
		slog.Warn("pipeline error", "error", err)
		return
	}
	slog.Error("pipeline error", "error", err)
	if n == nil {
		return
	}
	if nerr := n.Notify(title, Message(err)); nerr != nil {
		slog.Warn("show notification", "error", nerr)
	}
}

// Message returns the user-facing text for err.
func Message(err error) string {
	var e *apperr.Error
	if !errors.As(err, &e) {
		return err.Error()
	}
	switch e.Code {
	case apperr.CodeHardwareUnavailable:
		return "Microphone unavailable. Check that an input device is connected."
	case apperr.CodePrivacyBlocked:
		return "Recording blocked while a password field is focused."
	case apperr.CodeCapabilityDenied:
		return "Accessibility permission is required to type text. Grant it in System Settings."
	default:
		return e.Error()
	}
}
