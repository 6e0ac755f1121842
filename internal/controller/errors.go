package controller

import (
	"errors"
	"net/http"

	"github.com/Freeeeeet/tutoring_hub/internal/service"
)

var errUnauthorized = errors.New("authentication required")

// validationError ошибка разбора или валидации запроса с описанием полей
type validationError struct {
	message string
	fields  map[string]string
}

func (e *validationError) Error() string {
	return e.message
}

func badRequest(message string) error {
	return &validationError{message: message}
}

// statusFor сопоставляет ошибку сервиса с HTTP-статусом и сообщением для клиента
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest, err.Error()

	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidToken),
		errors.Is(err, errUnauthorized):
		return http.StatusUnauthorized, err.Error()

	case errors.Is(err, service.ErrForbidden),
		errors.Is(err, service.ErrNotATutor),
		errors.Is(err, service.ErrNotAStudent),
		errors.Is(err, service.ErrNotParticipant):
		return http.StatusForbidden, err.Error()

	case errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, service.ErrBlockedDateNotFound),
		errors.Is(err, service.ErrConversationNotFound),
		errors.Is(err, service.ErrMessageNotFound),
		errors.Is(err, service.ErrConnectionNotFound),
		errors.Is(err, service.ErrPlanNotFound),
		errors.Is(err, service.ErrModuleNotFound),
		errors.Is(err, service.ErrTaskNotFound):
		return http.StatusNotFound, err.Error()

	case errors.Is(err, service.ErrEmailTaken),
		errors.Is(err, service.ErrTelegramTaken),
		errors.Is(err, service.ErrTutorUnavailable),
		errors.Is(err, service.ErrOutsideAvailability),
		errors.Is(err, service.ErrDateBlocked),
		errors.Is(err, service.ErrDateAlreadyBlocked),
		errors.Is(err, service.ErrSlotOverlap),
		errors.Is(err, service.ErrSessionNotActive),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrAlreadyRated),
		errors.Is(err, service.ErrMessageDeleted),
		errors.Is(err, service.ErrConnectionExists),
		errors.Is(err, service.ErrAlreadyResponded),
		errors.Is(err, service.ErrNotConnected),
		errors.Is(err, service.ErrConcurrentUpdate):
		return http.StatusConflict, err.Error()

	default:
		return http.StatusInternalServerError, "internal server error"
	}
}
