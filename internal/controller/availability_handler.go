package controller

import (
	"net/http"
	"time"

	"github.com/Freeeeeet/tutoring_hub/internal/model"
	"github.com/Freeeeeet/tutoring_hub/internal/service"
)

const dateLayout = "2006-01-02"

type windowRequest struct {
	Weekday     int `json:"weekday" validate:"min=0,max=6"`
	StartMinute int `json:"start_minute" validate:"min=0,max=1439"`
	EndMinute   int `json:"end_minute" validate:"min=1,max=1440,gtfield=StartMinute"`
}

type availabilityRequest struct {
	Windows []windowRequest `json:"windows" validate:"max=70,dive"`
}

type blockDateRequest struct {
	Date   string `json:"date" validate:"required,datetime=2006-01-02"`
	Reason string `json:"reason" validate:"max=200"`
}

func (h *Handler) getAvailability(w http.ResponseWriter, r *http.Request) {
	tutorID, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	schedule, err := h.availability.GetSchedule(r.Context(), tutorID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	respondOK(w, schedule)
}

// setAvailability заменяет недельное расписание; менять можно только своё
func (h *Handler) setAvailability(w http.ResponseWriter, r *http.Request) {
	tutorID, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if tutorID != userID(r) {
		h.fail(w, r, service.ErrForbidden)
		return
	}

	var req availabilityRequest
	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	windows := make([]*model.Availability, 0, len(req.Windows))
	for _, win := range req.Windows {
		windows = append(windows, &model.Availability{
			TutorID:     tutorID,
			Weekday:     win.Weekday,
			StartMinute: win.StartMinute,
			EndMinute:   win.EndMinute,
		})
	}

	saved, err := h.availability.SetWeekly(r.Context(), tutorID, windows)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	respondOK(w, saved)
}

func (h *Handler) openSlots(w http.ResponseWriter, r *http.Request) {
	tutorID, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	date, err := time.ParseInLocation(dateLayout, r.URL.Query().Get("date"), h.loc)
	if err != nil {
		h.fail(w, r, badRequest("date must be in YYYY-MM-DD format"))
		return
	}
	minutes, err := queryInt(r, "duration", 60)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	slots, err := h.availability.OpenSlots(r.Context(), tutorID, date, time.Duration(minutes)*time.Minute)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	respondOK(w, slots)
}

func (h *Handler) blockDate(w http.ResponseWriter, r *http.Request) {
	var req blockDateRequest
	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		h.fail(w, r, badRequest("date must be in YYYY-MM-DD format"))
		return
	}

	blocked, err := h.availability.BlockDate(r.Context(), userID(r), date, req.Reason)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	respondCreated(w, blocked, "date blocked")
}

func (h *Handler) unblockDate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if err := h.availability.UnblockDate(r.Context(), userID(r), id); err != nil {
		h.fail(w, r, err)
		return
	}

	respondMessage(w, "date unblocked")
}
