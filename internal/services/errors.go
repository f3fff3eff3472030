package services

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindAuthentication ErrorKind = "authentication"
	KindAuthorization  ErrorKind = "authorization"
	KindEntitlement    ErrorKind = "entitlement"
	KindValidation     ErrorKind = "validation"
	KindNotFound       ErrorKind = "not_found"
)

// ChatError carries a kind the transports map onto a status code or an error event.
type ChatError struct {
	Kind    ErrorKind
	Message string
}

func (e *ChatError) Error() string { return e.Message }

// Is matches on kind and message. A target with an empty message matches
// every error of its kind.
func (e *ChatError) Is(target error) bool {
	var t *ChatError
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

const entitlementMessage = "Chat feature is not available. Please upgrade to Platinum or Diamond package, or purchase the Chat System feature."

var (
	ErrNotChatMember   = &ChatError{Kind: KindAuthorization, Message: "user is not a member of this chat"}
	ErrNotOrgMember    = &ChatError{Kind: KindAuthorization, Message: "user is not an active member of this organization"}
	ErrNoChatAccess    = &ChatError{Kind: KindEntitlement, Message: entitlementMessage}
	ErrChatNotFound    = &ChatError{Kind: KindNotFound, Message: "chat not found"}
	ErrMessageNotFound = &ChatError{Kind: KindNotFound, Message: "message not found"}
)

func NewAuthenticationError(format string, args ...any) error {
	return &ChatError{Kind: KindAuthentication, Message: fmt.Sprintf(format, args...)}
}

func NewAuthorizationError(format string, args ...any) error {
	return &ChatError{Kind: KindAuthorization, Message: fmt.Sprintf(format, args...)}
}

func NewValidationError(format string, args ...any) error {
	return &ChatError{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func NewNotFoundError(format string, args ...any) error {
	return &ChatError{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of a ChatError anywhere in err's chain, "" otherwise.
func KindOf(err error) ErrorKind {
	var ce *ChatError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ""
}
