package domain

import "errors"

// ErrorKind groups domain errors by how a caller should react to them.
type ErrorKind uint8

const (
	KindInternal ErrorKind = iota
	KindValidation
	KindNotFound
	KindUnauthorized
	KindCapacity
	KindRateLimited
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindUnauthorized:
		return "unauthorized"
	case KindCapacity:
		return "capacity"
	case KindRateLimited:
		return "rate_limited"
	default:
		return "internal"
	}
}

// Error is a domain failure safe to show to a client.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string { return e.Message }

func newError(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

var (
	ErrMissingNickname = newError(KindValidation, "nickname required")
	ErrNicknameTooLong = newError(KindValidation, "nickname too long")
	ErrMissingRoomName = newError(KindValidation, "room name required")
	ErrRoomNameTooLong = newError(KindValidation, "room name too long")
	ErrPasswordTooLong = newError(KindValidation, "room password too long")
	ErrMissingRoomID   = newError(KindValidation, "room code required")
	ErrMissingUserID   = newError(KindValidation, "user id required")
	ErrMissingText     = newError(KindValidation, "text required")
	ErrMissingLanguage = newError(KindValidation, "language required")

	ErrRoomNotFound = newError(KindNotFound, "room not found")

	ErrUserNotFound = newError(KindUnauthorized, "user not authorized in this room")
	ErrBadPassword  = newError(KindUnauthorized, "wrong room password")

	ErrRoomFull          = newError(KindCapacity, "room is full")
	ErrCapacityExhausted = newError(KindCapacity, "no free room codes left")

	ErrRateLimited = newError(KindRateLimited, "too many messages, slow down")

	ErrBroadcastFailed = newError(KindInternal, "broadcast failed")
	ErrInternal        = newError(KindInternal, "internal error")
)

// KindOf reports the kind of err; anything that is not a domain error is internal.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}
