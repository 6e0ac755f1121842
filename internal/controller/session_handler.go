package controller

import (
	"net/http"
	"time"

	"github.com/Freeeeeet/tutoring_hub/internal/model"
	"github.com/Freeeeeet/tutoring_hub/internal/render"
	"github.com/Freeeeeet/tutoring_hub/internal/service"
	"go.uber.org/zap"
)

type bookSessionRequest struct {
	TutorID   int64      `json:"tutor_id" validate:"required,gt=0"`
	Subject   string     `json:"subject" validate:"required,notblank,max=100"`
	StartTime *time.Time `json:"start_time" validate:"required"`
	EndTime   *time.Time `json:"end_time" validate:"required"`
	Notes     string     `json:"notes" validate:"max=2000"`
}

type confirmSessionRequest struct {
	MeetingLink string `json:"meeting_link" validate:"omitempty,url,max=500"`
}

type cancelSessionRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type rescheduleSessionRequest struct {
	StartTime *time.Time `json:"start_time" validate:"required"`
	EndTime   *time.Time `json:"end_time" validate:"required"`
}

type rateSessionRequest struct {
	Rating   int    `json:"rating" validate:"required,min=1,max=5"`
	Feedback string `json:"feedback" validate:"max=2000"`
}

func (h *Handler) bookSession(w http.ResponseWriter, r *http.Request) {
	var req bookSessionRequest
	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	session, err := h.sessions.Book(r.Context(), userID(r), service.BookInput{
		TutorID: req.TutorID,
		Subject: req.Subject,
		Start:   *req.StartTime,
		End:     *req.EndTime,
		Notes:   req.Notes,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	respondCreated(w, session, "session requested")
}

func (h *Handler) listSessions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var status *model.SessionStatus
	if raw := query.Get("status"); raw != "" {
		s := model.SessionStatus(raw)
		status = &s
	}

	scope := service.SessionScope(query.Get("scope"))
	if scope == "" {
		scope = service.ScopeAll
	}

	sessions, err := h.sessions.List(r.Context(), userID(r), status, scope)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	respondOK(w, sessions)
}

func (h *Handler) getSession(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	session, err := h.sessions.Get(r.Context(), userID(r), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	respondOK(w, session)
}

func (h *Handler) confirmSession(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var req confirmSessionRequest
	if r.ContentLength != 0 {
		if err := h.decode(w, r, &req); err != nil {
			h.fail(w, r, err)
			return
		}
	}

	session, err := h.sessions.Confirm(r.Context(), userID(r), id, req.MeetingLink)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	respondOK(w, session)
}

func (h *Handler) cancelSession(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var req cancelSessionRequest
	if r.ContentLength != 0 {
		if err := h.decode(w, r, &req); err != nil {
			h.fail(w, r, err)
			return
		}
	}

	session, err := h.sessions.Cancel(r.Context(), userID(r), id, req.Reason)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	respondOK(w, session)
}

func (h *Handler) rescheduleSession(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var req rescheduleSessionRequest
	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	session, err := h.sessions.Reschedule(r.Context(), userID(r), id, *req.StartTime, *req.EndTime)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	respondOK(w, session)
}

func (h *Handler) completeSession(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	session, err := h.sessions.Complete(r.Context(), userID(r), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	respondOK(w, session)
}

func (h *Handler) rateSession(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var req rateSessionRequest
	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	session, err := h.sessions.Rate(r.Context(), userID(r), id, req.Rating, req.Feedback)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	respondOK(w, session)
}

// weekImage PNG недели пользователя; ?week=YYYY-MM-DD любой день недели, по умолчанию текущая
func (h *Handler) weekImage(w http.ResponseWriter, r *http.Request) {
	day := h.now().In(h.loc)
	if raw := r.URL.Query().Get("week"); raw != "" {
		parsed, err := time.ParseInLocation(dateLayout, raw, h.loc)
		if err != nil {
			h.fail(w, r, badRequest("week must be in YYYY-MM-DD format"))
			return
		}
		day = parsed
	}
	weekStart := render.WeekStart(day, h.loc)

	sessions, err := h.sessions.Week(r.Context(), userID(r), weekStart)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	image, err := render.WeekImage(weekStart, sessions, userID(r), h.now(), h.loc)
	if err != nil {
		h.logger.Error("Failed to render week image", zap.Int64("user_id", userID(r)), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to render schedule")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(image)
}
