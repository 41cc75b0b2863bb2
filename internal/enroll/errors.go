package enroll

import (
	"errors"
	"fmt"

	"face-enroll/internal/domain"
)

var (
	ErrInvalidRequest        = errors.New("enroll: invalid registration request")
	ErrAuth                  = errors.New("enroll: not authenticated")
	ErrNoFaceDetected        = errors.New("enroll: no face detected")
	ErrMultipleFacesDetected = errors.New("enroll: multiple faces detected")
	ErrPayloadTooLarge       = errors.New("enroll: photo too large after all reductions")
	ErrServerRejected        = errors.New("enroll: server rejected registration")
	ErrNetwork               = errors.New("enroll: network error")
)

var kindSentinels = map[domain.ErrorKind]error{
	domain.KindInvalidRequest:        ErrInvalidRequest,
	domain.KindAuth:                  ErrAuth,
	domain.KindNoFaceDetected:        ErrNoFaceDetected,
	domain.KindMultipleFacesDetected: ErrMultipleFacesDetected,
	domain.KindPayloadTooLarge:       ErrPayloadTooLarge,
	domain.KindServerRejected:        ErrServerRejected,
	domain.KindNetworkError:          ErrNetwork,
}

// RegistrationError is returned alongside every failed outcome. It matches the
// sentinel for its Kind with errors.Is and unwraps to the underlying cause.
type RegistrationError struct {
	Kind       domain.ErrorKind
	StatusCode int
	Code       string
	Message    string
	Err        error
}

func (e *RegistrationError) Error() string {
	msg := fmt.Sprintf("enroll: %s", e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" status=%d", e.StatusCode)
	}
	if e.Code != "" {
		msg += " code=" + e.Code
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RegistrationError) Unwrap() error { return e.Err }

func (e *RegistrationError) Is(target error) bool {
	s, ok := kindSentinels[e.Kind]
	return ok && s == target
}
