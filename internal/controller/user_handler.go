package controller

import (
	"net/http"

	"github.com/Freeeeeet/tutoring_hub/internal/model"
	"github.com/Freeeeeet/tutoring_hub/internal/service"
)

type registerRequest struct {
	Email     string `json:"email" validate:"required,email,max=255"`
	Password  string `json:"password" validate:"required,min=8,max=72"`
	FirstName string `json:"first_name" validate:"required,notblank,max=100"`
	LastName  string `json:"last_name" validate:"max=100"`
	Role      string `json:"role" validate:"required,oneof=student tutor"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type updateProfileRequest struct {
	FirstName *string `json:"first_name" validate:"omitempty,notblank,max=100"`
	LastName  *string `json:"last_name" validate:"omitempty,max=100"`
	Bio       *string `json:"bio" validate:"omitempty,max=2000"`
	AvatarURL *string `json:"avatar_url" validate:"omitempty,url,max=500"`
}

type tutorProfileRequest struct {
	Subjects            []string `json:"subjects" validate:"max=20,dive,max=100"`
	HourlyRate          int      `json:"hourly_rate" validate:"gte=0"`
	ExperienceYears     int      `json:"experience_years" validate:"gte=0,lte=80"`
	IsAcceptingStudents bool     `json:"is_accepting_students"`
}

type studentProfileRequest struct {
	GradeLevel    string `json:"grade_level" validate:"max=50"`
	School        string `json:"school" validate:"max=200"`
	LearningGoals string `json:"learning_goals" validate:"max=2000"`
}

type telegramRequest struct {
	TelegramID *int64 `json:"telegram_id" validate:"omitempty,gt=0"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	result, err := h.users.Register(r.Context(), service.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      model.Role(req.Role),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	respondCreated(w, result, "registered")
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	result, err := h.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	respondOK(w, result)
}

func (h *Handler) getMe(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetProfile(r.Context(), userID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondOK(w, user)
}

func (h *Handler) updateMe(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	user, err := h.users.UpdateProfile(r.Context(), userID(r), service.ProfileUpdate{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Bio:       req.Bio,
		AvatarURL: req.AvatarURL,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	respondOK(w, user)
}

func (h *Handler) updateTutorProfile(w http.ResponseWriter, r *http.Request) {
	var req tutorProfileRequest
	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	tutor, err := h.users.UpdateTutorProfile(r.Context(), userID(r), &model.Tutor{
		Subjects:            req.Subjects,
		HourlyRate:          req.HourlyRate,
		ExperienceYears:     req.ExperienceYears,
		IsAcceptingStudents: req.IsAcceptingStudents,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	respondOK(w, tutor)
}

func (h *Handler) updateStudentProfile(w http.ResponseWriter, r *http.Request) {
	var req studentProfileRequest
	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	student, err := h.users.UpdateStudentProfile(r.Context(), userID(r), &model.Student{
		GradeLevel:    req.GradeLevel,
		School:        req.School,
		LearningGoals: req.LearningGoals,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	respondOK(w, student)
}

// linkTelegram telegram_id: null отключает уведомления
func (h *Handler) linkTelegram(w http.ResponseWriter, r *http.Request) {
	var req telegramRequest
	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	if err := h.users.LinkTelegram(r.Context(), userID(r), req.TelegramID); err != nil {
		h.fail(w, r, err)
		return
	}

	if req.TelegramID == nil {
		respondMessage(w, "telegram notifications disabled")
		return
	}
	respondMessage(w, "telegram notifications enabled")
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	user, err := h.users.GetProfile(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	// чужой профиль без контактов
	if id != userID(r) {
		user.Email = ""
		user.TelegramID = nil
	}

	respondOK(w, user)
}

func (h *Handler) getUserStats(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	months, err := queryInt(r, "months", service.DefaultStatsMonths)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	stats, err := h.stats.ProfileStats(r.Context(), id, months)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	respondOK(w, stats)
}

func (h *Handler) listTutors(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page", 1)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	perPage, err := queryInt(r, "per_page", 20)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	tutors, total, err := h.users.ListTutors(r.Context(), r.URL.Query().Get("subject"), page, perPage)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	respondOK(w, newPage(tutors, total, page, perPage))
}
