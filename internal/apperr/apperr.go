// Package apperr defines the error taxonomy shared by the pipeline.
package apperr

import (
	"errors"
	"fmt"
)

// Code identifies an error class.
type Code string

const (
	CodeHardwareUnavailable Code = "HARDWARE_UNAVAILABLE"
	CodePrivacyBlocked      Code = "PRIVACY_BLOCKED"
	CodeCapabilityDenied    Code = "CAPABILITY_DENIED"
	CodeProviderUnavailable Code = "PROVIDER_UNAVAILABLE"
	CodeTimeout             Code = "TIMEOUT"
	CodeUnknownCommand      Code = "UNKNOWN_COMMAND"
	CodeEngineUnavailable   Code = "ENGINE_UNAVAILABLE"
)

// Error is a classified error with an optional cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// HardwareUnavailable reports that the audio device could not be opened or started.
func HardwareUnavailable(err error) *Error {
	return &Error{Code: CodeHardwareUnavailable, Message: "audio hardware unavailable", Err: err}
}

// PrivacyBlocked reports that secure input is active.
func PrivacyBlocked() *Error {
	return &Error{Code: CodePrivacyBlocked, Message: "secure input is active, recording blocked"}
}

// CapabilityDenied reports a missing permission, e.g. accessibility for keystroke synthesis.
func CapabilityDenied(capability string) *Error {
	return &Error{Code: CodeCapabilityDenied, Message: fmt.Sprintf("%s permission not granted", capability)}
}

// ProviderUnavailable reports a network, auth or parse failure at a provider.
func ProviderUnavailable(provider string, err error) *Error {
	return &Error{Code: CodeProviderUnavailable, Message: fmt.Sprintf("provider %s unavailable", provider), Err: err}
}

// Timeout reports that an operation gave up waiting.
func Timeout(op string) *Error {
	return &Error{Code: CodeTimeout, Message: fmt.Sprintf("%s timed out", op)}
}

// UnknownCommand reports an action missing from the command registry.
func UnknownCommand(action string) *Error {
	return &Error{Code: CodeUnknownCommand, Message: fmt.Sprintf("unknown command: %s", action)}
}

// EngineUnavailable reports that a transcription engine could not start.
func EngineUnavailable(engine string, err error) *Error {
	return &Error{Code: CodeEngineUnavailable, Message: fmt.Sprintf("engine %s unavailable", engine), Err: err}
}

// Is checks if err, or any error it wraps, is an *Error with the given code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// Surfaced reports whether err needs explicit user remediation and must be
// shown rather than absorbed.
func Surfaced(err error) bool {
	return Is(err, CodeHardwareUnavailable) ||
		Is(err, CodePrivacyBlocked) ||
		Is(err, CodeCapabilityDenied)
}
