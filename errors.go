package mailactivate

import (
	"fmt"
	"time"

	"github.com/mailactivate/client-go/internal/apierrors"
)

// Sentinel errors for errors.Is() checks
var (
	// ErrMissingAPIKey is returned when no API key is provided.
	ErrMissingAPIKey = apierrors.ErrMissingAPIKey

	// ErrNilActivation is returned when an operation receives a nil activation.
	ErrNilActivation = apierrors.ErrNilActivation

	// ErrService matches every error reported by the SMS-Activate service.
	// Use it to catch the whole taxonomy below at once.
	ErrService = apierrors.ErrService

	// ErrBadAPIKey is returned when the API key is rejected.
	ErrBadAPIKey = apierrors.ErrBadAPIKey

	// ErrBadAction is returned when the service does not know the action.
	ErrBadAction = apierrors.ErrBadAction

	// ErrBadBalance is returned when the account balance is too low.
	ErrBadBalance = apierrors.ErrBadBalance

	// ErrBadSite is returned when the site is unsupported or blocked.
	ErrBadSite = apierrors.ErrBadSite

	// ErrBadDomain is returned for an invalid domain and category combination.
	ErrBadDomain = apierrors.ErrBadDomain

	// ErrChannelsLimit is returned when the account has too many active mailboxes.
	ErrChannelsLimit = apierrors.ErrChannelsLimit

	// ErrActivationNotFound is returned for an unknown or expired activation.
	ErrActivationNotFound = apierrors.ErrActivationNotFound

	// ErrWaitingForMessage is returned when the service itself reports that the
	// message is not ready. FetchMessage does not retry on it.
	ErrWaitingForMessage = apierrors.ErrWaitingForMessage

	// ErrTimeout is matched by TimeoutError. It never matches ErrService.
	ErrTimeout = apierrors.ErrTimeout
)

// MailActivateError is implemented by all SDK errors.
type MailActivateError interface {
	error
	MailActivateError() // marker method
}

// ServiceError represents an error reported by the SMS-Activate API.
// Code holds the service error code when there is one; Status, StatusCode
// and Body describe generic failures.
type ServiceError struct {
	Code       string
	Status     string
	StatusCode int
	Body       string
	RequestID  string
}

func (e *ServiceError) Error() string {
	return e.internal().Error()
}

// Is implements errors.Is for sentinel error matching.
func (e *ServiceError) Is(target error) bool {
	return e.internal().Is(target)
}

// Kind returns the most specific sentinel for the error, or ErrService for
// generic failures.
func (e *ServiceError) Kind() error {
	return e.internal().Kind()
}

// MailActivateError implements the MailActivateError interface.
func (e *ServiceError) MailActivateError() {}

func (e *ServiceError) internal() *apierrors.ServiceError {
	return &apierrors.ServiceError{
		Code:       e.Code,
		Status:     e.Status,
		StatusCode: e.StatusCode,
		Body:       e.Body,
		RequestID:  e.RequestID,
	}
}

// NetworkError represents a network-level failure.
type NetworkError struct {
	Err     error
	URL     string
	Attempt int
}

func (e *NetworkError) Error() string {
	return (&apierrors.NetworkError{Err: e.Err}).Error()
}

// Unwrap returns the underlying error.
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// MailActivateError implements the MailActivateError interface.
func (e *NetworkError) MailActivateError() {}

// TimeoutError is returned by FetchMessage when every attempt finished
// without a message.
type TimeoutError struct {
	Operation string
	Attempts  int
	Period    time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %d attempts (period %v)", e.Operation, e.Attempts, e.Period)
}

// Is implements errors.Is for sentinel error matching.
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// MailActivateError implements the MailActivateError interface.
func (e *TimeoutError) MailActivateError() {}

// wrapError converts internal API errors to public errors.
// This ensures that errors.As() checks work with public error types.
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	switch e := err.(type) {
	case *apierrors.ServiceError:
		return &ServiceError{
			Code:       e.Code,
			Status:     e.Status,
			StatusCode: e.StatusCode,
			Body:       e.Body,
			RequestID:  e.RequestID,
		}
	case *apierrors.NetworkError:
		return &NetworkError{
			Err:     e.Err,
			URL:     e.URL,
			Attempt: e.Attempt,
		}
	}

	return err
}
