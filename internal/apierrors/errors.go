// Package apierrors provides shared error types for the mailactivate client.
package apierrors

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is() checks
var (
	// ErrMissingAPIKey is returned when no API key is provided.
	ErrMissingAPIKey = errors.New("API key is required")

	// ErrNilActivation is returned when an operation receives a nil activation.
	ErrNilActivation = errors.New("activation is nil")

	// ErrService is matched by every error reported by the remote service,
	// including unmapped codes, non-OK statuses and malformed responses.
	ErrService = errors.New("sms-activate service error")

	// ErrBadAPIKey is returned when the API key is rejected (BAD_KEY).
	ErrBadAPIKey = errors.New("invalid API key")

	// ErrBadAction is returned when the action parameter is unknown (BAD_ACTION).
	ErrBadAction = errors.New("invalid action")

	// ErrBadBalance is returned when the account has insufficient funds (BAD_BALANCE).
	ErrBadBalance = errors.New("insufficient balance")

	// ErrBadSite is returned when the site is unsupported or blocked
	// (BAD_SITE, BLOCKED_SITE).
	ErrBadSite = errors.New("site not permitted")

	// ErrBadDomain is returned for an invalid domain/category combination
	// (MAIL_TYPE_ERROR).
	ErrBadDomain = errors.New("invalid mailbox domain")

	// ErrChannelsLimit is returned when too many mailboxes are active at once
	// (CHANNELS_LIMIT).
	ErrChannelsLimit = errors.New("too many active mailboxes")

	// ErrActivationNotFound is returned for unknown or expired activation ids
	// (ACTIVATION_NOT_FOUND, NO_ACTIVATION).
	ErrActivationNotFound = errors.New("activation not found")

	// ErrWaitingForMessage is returned when the service reports the message
	// is not ready yet (WAIT_LINK).
	ErrWaitingForMessage = errors.New("message not received yet")

	// ErrTimeout is local to the client and never matches ErrService.
	ErrTimeout = errors.New("timed out waiting for message")
)

// codes maps the literal error strings of the service to sentinel errors.
var codes = map[string]error{
	"BAD_KEY":              ErrBadAPIKey,
	"BAD_ACTION":           ErrBadAction,
	"BAD_BALANCE":          ErrBadBalance,
	"BAD_SITE":             ErrBadSite,
	"BLOCKED_SITE":         ErrBadSite,
	"MAIL_TYPE_ERROR":      ErrBadDomain,
	"CHANNELS_LIMIT":       ErrChannelsLimit,
	"ACTIVATION_NOT_FOUND": ErrActivationNotFound,
	"NO_ACTIVATION":        ErrActivationNotFound,
	"WAIT_LINK":            ErrWaitingForMessage,
}

// Lookup returns the sentinel registered for a service error code.
func Lookup(code string) (error, bool) {
	err, ok := codes[code]
	return err, ok
}

// Codes returns every known service error code with its sentinel.
func Codes() map[string]error {
	out := make(map[string]error, len(codes))
	for k, v := range codes {
		out[k] = v
	}
	return out
}

// ServiceError is an error reported by the SMS-Activate API, either through
// the response envelope or the HTTP status line.
type ServiceError struct {
	// Code is the value of the "error" field, if any.
	Code string
	// Status is the value of the "status" field when it was not "OK".
	Status string
	// StatusCode is the HTTP status code.
	StatusCode int
	// Body holds the raw response text when it could not be decoded.
	Body string
	// RequestID is the X-Request-ID sent with the failing request.
	RequestID string
}

func (e *ServiceError) Error() string {
	var msg string
	switch {
	case e.Code != "":
		msg = fmt.Sprintf("service error %s", e.Code)
		if sentinel, ok := codes[e.Code]; ok {
			msg += ": " + sentinel.Error()
		}
	case e.StatusCode != 0 && e.StatusCode != 200:
		msg = fmt.Sprintf("bad status code: %d", e.StatusCode)
	case e.Body != "":
		msg = fmt.Sprintf("bad json: %s", e.Body)
	default:
		msg = fmt.Sprintf("bad status: %s", e.Status)
	}
	if e.RequestID != "" {
		msg += fmt.Sprintf(" (request_id: %s)", e.RequestID)
	}
	return msg
}

// Is implements errors.Is for sentinel error matching.
// Every ServiceError matches ErrService; known codes also match their sentinel.
func (e *ServiceError) Is(target error) bool {
	if target == ErrService {
		return true
	}
	if e.Code == "" {
		return false
	}
	sentinel, ok := codes[e.Code]
	return ok && target == sentinel
}

// Kind returns the most specific sentinel for the error.
func (e *ServiceError) Kind() error {
	if sentinel, ok := codes[e.Code]; ok {
		return sentinel
	}
	return ErrService
}

// NetworkError represents a network-level failure.
type NetworkError struct {
	Err     error
	URL     string
	Attempt int
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *NetworkError) Unwrap() error {
	return e.Err
}
