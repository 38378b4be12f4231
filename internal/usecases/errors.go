package usecases

import (
	"errors"
	"fmt"

	storage "github.com/practice-sem-2/campus-chat-service/internal/storages"
	"github.com/sirupsen/logrus"
)

var (
	ErrValidation             = errors.New("validation failed")
	ErrBusinessLogicViolation = fmt.Errorf("%w: business logic violation", ErrValidation)
	ErrNotFoundOrUnauthorized = errors.New("resource does not exist or user is not authorized to access it")
	ErrUserIsNotAChatMember   = fmt.Errorf("%w: user is not a chat member", ErrNotFoundOrUnauthorized)
	ErrNotAMessageSender      = fmt.Errorf("%w: message does not exist or was sent by another user", ErrNotFoundOrUnauthorized)
)

// IsDomainError reports whether err is an expected outcome of a request
// rather than an infrastructure failure.
func IsDomainError(err error) bool {
	for _, known := range []error{
		ErrValidation,
		ErrNotFoundOrUnauthorized,
		storage.ErrChatNotFound,
		storage.ErrMessageNotFound,
		storage.ErrUserNotFound,
		storage.ErrRepliedMessageNotFound,
	} {
		if errors.Is(err, known) {
			return true
		}
	}
	return false
}

func logFailure(logger *logrus.Logger, op string, err error, fields logrus.Fields) {
	if err == nil || IsDomainError(err) {
		return
	}
	logger.
		WithError(err).
		WithFields(fields).
		WithField("op", op).
		WithField("retryable", storage.IsRetryable(err)).
		Error("operation failed")
}
