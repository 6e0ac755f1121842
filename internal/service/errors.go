package service

import (
	"errors"
	"fmt"
)

// Ошибки бизнес-логики. Контроллеры сопоставляют их с HTTP-статусами через errors.Is.
var (
	ErrValidation = errors.New("validation failed")

	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired token")

	ErrForbidden      = errors.New("access denied")
	ErrNotATutor      = errors.New("user is not a tutor")
	ErrNotAStudent    = errors.New("user is not a student")
	ErrNotParticipant = errors.New("user is not a participant")

	ErrUserNotFound         = errors.New("user not found")
	ErrSessionNotFound      = errors.New("session not found")
	ErrBlockedDateNotFound  = errors.New("blocked date not found")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrMessageNotFound      = errors.New("message not found")
	ErrConnectionNotFound   = errors.New("connection not found")
	ErrPlanNotFound         = errors.New("study plan not found")
	ErrModuleNotFound       = errors.New("module not found")
	ErrTaskNotFound         = errors.New("task not found")

	ErrEmailTaken          = errors.New("email is already registered")
	ErrTelegramTaken       = errors.New("telegram account is linked to another user")
	ErrTutorUnavailable    = errors.New("tutor is not accepting students")
	ErrOutsideAvailability = errors.New("requested time is outside tutor availability")
	ErrDateBlocked         = errors.New("tutor is unavailable on this date")
	ErrDateAlreadyBlocked  = errors.New("date is already blocked")
	ErrSlotOverlap         = errors.New("time slot overlaps an existing session")
	ErrSessionNotActive    = errors.New("session is not pending or confirmed")
	ErrInvalidTransition   = errors.New("session status does not allow this action")
	ErrAlreadyRated        = errors.New("session is already rated")
	ErrMessageDeleted      = errors.New("message is deleted")
	ErrConnectionExists    = errors.New("connection already exists")
	ErrAlreadyResponded    = errors.New("connection request is already answered")
	ErrNotConnected        = errors.New("connection is not accepted")
	ErrConcurrentUpdate    = errors.New("record was changed concurrently, retry")
)

// invalid оборачивает ErrValidation понятным пользователю сообщением
func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
