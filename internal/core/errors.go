package core

import "errors"

// Error codes for domain errors.
const (
	ErrCodeValidation         = "validation_failed"
	ErrCodeRoomNotFound       = "room_not_found"
	ErrCodeIDExhausted        = "id_exhausted"
	ErrCodeIDCollision        = "id_collision"
	ErrCodeSlowConsumer       = "slow_consumer"
	ErrCodeSubscriptionClosed = "subscription_closed"
	ErrCodeRoomDeleted        = "room_deleted"
	ErrCodeBrokerClosed       = "broker_closed"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrRoomNotFound       = errors.New("room not found")
	ErrIDExhausted        = errors.New("room id generation exhausted")
	ErrIDCollision        = errors.New("room id collision")
	ErrSlowConsumer       = errors.New("slow consumer evicted")
	ErrSubscriptionClosed = errors.New("subscription closed")
	ErrRoomDeleted        = errors.New("room deleted")
	ErrBrokerClosed       = errors.New("broker closed")
)

// CoreError wraps a code and human-readable message.
// It unwraps to the matching sentinel so callers can use errors.Is.
type CoreError struct {
	Code    string
	Message string
	Err     error
}

func (e *CoreError) Error() string {
	return e.Message
}

func (e *CoreError) Unwrap() error {
	return e.Err
}

func coreError(code, msg string, err error) *CoreError {
	return &CoreError{Code: code, Message: msg, Err: err}
}

// Code extracts the domain error code from err, or "" if err is not a CoreError.
func Code(err error) string {
	var ce *CoreError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

func validationError(msg string) *CoreError {
	return coreError(ErrCodeValidation, msg, ErrValidation)
}

func notFoundError(roomID string) *CoreError {
	return coreError(ErrCodeRoomNotFound, "room "+roomID+" not found", ErrRoomNotFound)
}

var (
	errSlowConsumer       = coreError(ErrCodeSlowConsumer, "subscriber queue overflowed", ErrSlowConsumer)
	errSubscriptionClosed = coreError(ErrCodeSubscriptionClosed, "subscription cancelled", ErrSubscriptionClosed)
	errRoomDeleted        = coreError(ErrCodeRoomDeleted, "room was deleted", ErrRoomDeleted)
	errBrokerClosed       = coreError(ErrCodeBrokerClosed, "broker is shutting down", ErrBrokerClosed)
)
