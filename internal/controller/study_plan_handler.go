package controller

import (
	"net/http"
	"time"

	"github.com/Freeeeeet/tutoring_hub/internal/model"
	"github.com/Freeeeeet/tutoring_hub/internal/service"
)

type taskRequest struct {
	Title       string     `json:"title" validate:"required,notblank,max=200"`
	Description string     `json:"description" validate:"max=5000"`
	DueDate     *time.Time `json:"due_date"`
	Position    int        `json:"position" validate:"gte=0"`
}

type moduleRequest struct {
	Title       string        `json:"title" validate:"required,notblank,max=200"`
	Description string        `json:"description" validate:"max=5000"`
	Position    int           `json:"position" validate:"gte=0"`
	Tasks       []taskRequest `json:"tasks" validate:"max=100,dive"`
}

type createPlanRequest struct {
	StudentID   int64           `json:"student_id" validate:"required,gt=0"`
	Title       string          `json:"title" validate:"required,notblank,max=200"`
	Description string          `json:"description" validate:"max=5000"`
	Subject     string          `json:"subject" validate:"max=100"`
	StartDate   *time.Time      `json:"start_date"`
	EndDate     *time.Time      `json:"end_date"`
	Modules     []moduleRequest `json:"modules" validate:"max=50,dive"`
}

type updatePlanRequest struct {
	Title       *string    `json:"title" validate:"omitempty,notblank,max=200"`
	Description *string    `json:"description" validate:"omitempty,max=5000"`
	Subject     *string    `json:"subject" validate:"omitempty,max=100"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
}

type taskCompletionRequest struct {
	Completed *bool `json:"completed" validate:"required"`
}

// taskProgress ответ на отметку задачи: задача и пересчитанный план
type taskProgress struct {
	Task *model.Task      `json:"task"`
	Plan *model.StudyPlan `json:"plan"`
}

func (req taskRequest) input() service.TaskInput {
	return service.TaskInput{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
		Position:    req.Position,
	}
}

func (req moduleRequest) input() service.ModuleInput {
	in := service.ModuleInput{
		Title:       req.Title,
		Description: req.Description,
		Position:    req.Position,
	}
	for _, task := range req.Tasks {
		in.Tasks = append(in.Tasks, task.input())
	}
	return in
}

func (h *Handler) createPlan(w http.ResponseWriter, r *http.Request) {
	var req createPlanRequest
	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	in := service.PlanInput{
		StudentID:   req.StudentID,
		Title:       req.Title,
		Description: req.Description,
		Subject:     req.Subject,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
	}
	for _, module := range req.Modules {
		in.Modules = append(in.Modules, module.input())
	}

	plan, err := h.plans.Create(r.Context(), userID(r), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	respondCreated(w, plan, "study plan created")
}

func (h *Handler) listPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.plans.List(r.Context(), userID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondOK(w, plans)
}

func (h *Handler) getPlan(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	plan, err := h.plans.Get(r.Context(), userID(r), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	respondOK(w, plan)
}

func (h *Handler) updatePlan(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var req updatePlanRequest
	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	plan, err := h.plans.Update(r.Context(), userID(r), id, service.PlanUpdate{
		Title:       req.Title,
		Description: req.Description,
		Subject:     req.Subject,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	respondOK(w, plan)
}

func (h *Handler) archivePlan(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	plan, err := h.plans.Archive(r.Context(), userID(r), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	respondOK(w, plan)
}

func (h *Handler) restorePlan(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	plan, err := h.plans.Restore(r.Context(), userID(r), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	respondOK(w, plan)
}

func (h *Handler) deletePlan(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if err := h.plans.Delete(r.Context(), userID(r), id); err != nil {
		h.fail(w, r, err)
		return
	}

	respondMessage(w, "study plan deleted")
}

func (h *Handler) addModule(w http.ResponseWriter, r *http.Request) {
	planID, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var req moduleRequest
	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	module, err := h.plans.AddModule(r.Context(), userID(r), planID, req.input())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	respondCreated(w, module, "module added")
}

func (h *Handler) updateModule(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var req moduleRequest
	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	module, err := h.plans.UpdateModule(r.Context(), userID(r), id, req.input())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	respondOK(w, module)
}

func (h *Handler) deleteModule(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if err := h.plans.DeleteModule(r.Context(), userID(r), id); err != nil {
		h.fail(w, r, err)
		return
	}

	respondMessage(w, "module deleted")
}

func (h *Handler) addTask(w http.ResponseWriter, r *http.Request) {
	moduleID, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var req taskRequest
	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	task, err := h.plans.AddTask(r.Context(), userID(r), moduleID, req.input())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	respondCreated(w, task, "task added")
}

func (h *Handler) updateTask(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var req taskRequest
	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	task, err := h.plans.UpdateTask(r.Context(), userID(r), id, req.input())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	respondOK(w, task)
}

func (h *Handler) deleteTask(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if err := h.plans.DeleteTask(r.Context(), userID(r), id); err != nil {
		h.fail(w, r, err)
		return
	}

	respondMessage(w, "task deleted")
}

func (h *Handler) toggleTask(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	task, plan, err := h.plans.ToggleTask(r.Context(), userID(r), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	respondOK(w, taskProgress{Task: task, Plan: plan})
}

func (h *Handler) setTaskCompleted(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var req taskCompletionRequest
	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	task, plan, err := h.plans.SetTaskCompleted(r.Context(), userID(r), id, *req.Completed)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	respondOK(w, taskProgress{Task: task, Plan: plan})
}
