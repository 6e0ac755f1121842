package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/tutoring_hub/internal/model"
	"github.com/Freeeeeet/tutoring_hub/internal/repository"
	"go.uber.org/zap"
)

type TaskInput struct {
	Title       string
	Description string
	DueDate     *time.Time
	Position    int
}

type ModuleInput struct {
	Title       string
	Description string
	Position    int
	Tasks       []TaskInput
}

type PlanInput struct {
	StudentID   int64
	Title       string
	Description string
	Subject     string
	StartDate   *time.Time
	EndDate     *time.Time
	Modules     []ModuleInput
}

// PlanUpdate nil-поля не изменяются
type PlanUpdate struct {
	Title       *string
	Description *string
	Subject     *string
	StartDate   *time.Time
	EndDate     *time.Time
}

type StudyPlanService struct {
	tx       TxManager
	planRepo StudyPlanRepository
	userRepo UserRepository
	notifier Notifier
	now      func() time.Time
	logger   *zap.Logger
}

func NewStudyPlanService(
	tx TxManager,
	planRepo StudyPlanRepository,
	userRepo UserRepository,
	notifier Notifier,
	logger *zap.Logger,
) *StudyPlanService {
	return &StudyPlanService{
		tx:       tx,
		planRepo: planRepo,
		userRepo: userRepo,
		notifier: notifier,
		now:      time.Now,
		logger:   logger,
	}
}

// ============ Планы ============

// Create создаёт план с модулями и задачами одной транзакцией
func (s *StudyPlanService) Create(ctx context.Context, tutorID int64, in PlanInput) (*model.StudyPlan, error) {
	tutor, err := s.userRepo.GetTutor(ctx, tutorID)
	if err != nil {
		return nil, fmt.Errorf("get tutor: %w", err)
	}
	if tutor == nil {
		return nil, ErrNotATutor
	}

	if in.StudentID == tutorID {
		return nil, invalid("you cannot create a study plan for yourself")
	}

	student, err := s.userRepo.GetByID(ctx, in.StudentID)
	if err != nil {
		return nil, fmt.Errorf("get student: %w", err)
	}
	if student == nil {
		return nil, ErrUserNotFound
	}

	plan := &model.StudyPlan{
		TutorID:     tutorID,
		StudentID:   in.StudentID,
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Subject:     strings.TrimSpace(in.Subject),
		Status:      model.StudyPlanStatusActive,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		Modules:     []*model.Module{},
	}
	if err := validatePlan(plan); err != nil {
		return nil, err
	}
	for _, m := range in.Modules {
		if strings.TrimSpace(m.Title) == "" {
			return nil, invalid("module title is required")
		}
		for _, t := range m.Tasks {
			if strings.TrimSpace(t.Title) == "" {
				return nil, invalid("task title is required")
			}
		}
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.planRepo.Create(ctx, plan); err != nil {
			return err
		}

		for i, in := range in.Modules {
			module := &model.Module{
				PlanID:      plan.ID,
				Title:       strings.TrimSpace(in.Title),
				Description: strings.TrimSpace(in.Description),
				Position:    positionOr(in.Position, i),
				Tasks:       []*model.Task{},
			}
			if err := s.planRepo.CreateModule(ctx, module); err != nil {
				return err
			}

			for j, t := range in.Tasks {
				task := &model.Task{
					ModuleID:    module.ID,
					Title:       strings.TrimSpace(t.Title),
					Description: strings.TrimSpace(t.Description),
					DueDate:     t.DueDate,
					Position:    positionOr(t.Position, j),
				}
				if err := s.planRepo.CreateTask(ctx, task); err != nil {
					return err
				}
				module.Tasks = append(module.Tasks, task)
			}

			plan.Modules = append(plan.Modules, module)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create study plan: %w", err)
	}

	s.logger.Info("Study plan created",
		zap.Int64("plan_id", plan.ID),
		zap.Int64("tutor_id", tutorID),
		zap.Int64("student_id", in.StudentID),
		zap.Int("modules", len(plan.Modules)),
	)

	s.notifier.Notify(ctx, in.StudentID, fmt.Sprintf("New study plan: %s", plan.Title))

	return plan, nil
}

// List получает планы пользователя (как тьютора и как студента)
func (s *StudyPlanService) List(ctx context.Context, userID int64) ([]*model.StudyPlan, error) {
	plans, err := s.planRepo.ListForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list study plans: %w", err)
	}
	return plans, nil
}

// Get получает план с модулями и задачами
func (s *StudyPlanService) Get(ctx context.Context, userID, planID int64) (*model.StudyPlan, error) {
	plan, err := s.planFor(ctx, userID, planID)
	if err != nil {
		return nil, err
	}

	plan.Modules, err = s.planRepo.ListModules(ctx, planID)
	if err != nil {
		return nil, fmt.Errorf("list modules: %w", err)
	}

	return plan, nil
}

// Update обновляет поля плана (только тьютор)
func (s *StudyPlanService) Update(ctx context.Context, tutorID, planID int64, upd PlanUpdate) (*model.StudyPlan, error) {
	plan, err := s.ownedPlan(ctx, tutorID, planID)
	if err != nil {
		return nil, err
	}

	if upd.Title != nil {
		plan.Title = strings.TrimSpace(*upd.Title)
	}
	if upd.Description != nil {
		plan.Description = strings.TrimSpace(*upd.Description)
	}
	if upd.Subject != nil {
		plan.Subject = strings.TrimSpace(*upd.Subject)
	}
	if upd.StartDate != nil {
		plan.StartDate = upd.StartDate
	}
	if upd.EndDate != nil {
		plan.EndDate = upd.EndDate
	}
	if err := validatePlan(plan); err != nil {
		return nil, err
	}

	if err := s.planRepo.Update(ctx, plan); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, fmt.Errorf("update study plan: %w", err)
	}

	s.logger.Info("Study plan updated", zap.Int64("plan_id", planID))

	return plan, nil
}

// Archive убирает план в архив; прогресс больше не меняет его статус
func (s *StudyPlanService) Archive(ctx context.Context, tutorID, planID int64) (*model.StudyPlan, error) {
	plan, err := s.ownedPlan(ctx, tutorID, planID)
	if err != nil {
		return nil, err
	}

	plan.Status = model.StudyPlanStatusArchived
	if err := s.planRepo.Update(ctx, plan); err != nil {
		return nil, fmt.Errorf("archive study plan: %w", err)
	}

	s.logger.Info("Study plan archived", zap.Int64("plan_id", planID))
	return plan, nil
}

// Restore возвращает план из архива; статус снова следует прогрессу
func (s *StudyPlanService) Restore(ctx context.Context, tutorID, planID int64) (*model.StudyPlan, error) {
	plan, err := s.ownedPlan(ctx, tutorID, planID)
	if err != nil {
		return nil, err
	}

	plan.Status = model.StatusForProgress(model.StudyPlanStatusActive, plan.ProgressPercentage)
	if err := s.planRepo.Update(ctx, plan); err != nil {
		return nil, fmt.Errorf("restore study plan: %w", err)
	}

	s.logger.Info("Study plan restored", zap.Int64("plan_id", planID))
	return plan, nil
}

// Delete удаляет план вместе с модулями и задачами
func (s *StudyPlanService) Delete(ctx context.Context, tutorID, planID int64) error {
	if _, err := s.ownedPlan(ctx, tutorID, planID); err != nil {
		return err
	}

	if err := s.planRepo.Delete(ctx, planID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrPlanNotFound
		}
		return fmt.Errorf("delete study plan: %w", err)
	}

	s.logger.Info("Study plan deleted", zap.Int64("plan_id", planID), zap.Int64("tutor_id", tutorID))
	return nil
}

// ============ Модули ============

// AddModule добавляет модуль в план
func (s *StudyPlanService) AddModule(ctx context.Context, tutorID, planID int64, in ModuleInput) (*model.Module, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, invalid("module title is required")
	}
	if _, err := s.ownedPlan(ctx, tutorID, planID); err != nil {
		return nil, err
	}

	module := &model.Module{
		PlanID:      planID,
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Position:    in.Position,
		Tasks:       []*model.Task{},
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.planRepo.CreateModule(ctx, module); err != nil {
			return err
		}
		for i, t := range in.Tasks {
			if strings.TrimSpace(t.Title) == "" {
				return invalid("task title is required")
			}
			task := &model.Task{
				ModuleID:    module.ID,
				Title:       strings.TrimSpace(t.Title),
				Description: strings.TrimSpace(t.Description),
				DueDate:     t.DueDate,
				Position:    positionOr(t.Position, i),
			}
			if err := s.planRepo.CreateTask(ctx, task); err != nil {
				return err
			}
			module.Tasks = append(module.Tasks, task)
		}
		return s.recalculate(ctx, planID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Module added", zap.Int64("plan_id", planID), zap.Int64("module_id", module.ID))
	return module, nil
}

// UpdateModule изменяет модуль
func (s *StudyPlanService) UpdateModule(ctx context.Context, tutorID, moduleID int64, in ModuleInput) (*model.Module, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, invalid("module title is required")
	}

	module, err := s.ownedModule(ctx, tutorID, moduleID)
	if err != nil {
		return nil, err
	}

	module.Title = strings.TrimSpace(in.Title)
	module.Description = strings.TrimSpace(in.Description)
	module.Position = in.Position

	if err := s.planRepo.UpdateModule(ctx, module); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrModuleNotFound
		}
		return nil, fmt.Errorf("update module: %w", err)
	}

	return module, nil
}

// DeleteModule удаляет модуль с задачами и пересчитывает прогресс плана
func (s *StudyPlanService) DeleteModule(ctx context.Context, tutorID, moduleID int64) error {
	module, err := s.ownedModule(ctx, tutorID, moduleID)
	if err != nil {
		return err
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.planRepo.DeleteModule(ctx, moduleID); err != nil {
			return err
		}
		return s.recalculate(ctx, module.PlanID)
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrModuleNotFound
		}
		return fmt.Errorf("delete module: %w", err)
	}

	s.logger.Info("Module deleted", zap.Int64("module_id", moduleID), zap.Int64("plan_id", module.PlanID))
	return nil
}

// ============ Задачи ============

// AddTask добавляет задачу в модуль
func (s *StudyPlanService) AddTask(ctx context.Context, tutorID, moduleID int64, in TaskInput) (*model.Task, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, invalid("task title is required")
	}

	module, err := s.ownedModule(ctx, tutorID, moduleID)
	if err != nil {
		return nil, err
	}

	task := &model.Task{
		ModuleID:    moduleID,
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		DueDate:     in.DueDate,
		Position:    in.Position,
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.planRepo.CreateTask(ctx, task); err != nil {
			return err
		}
		return s.recalculate(ctx, module.PlanID)
	})
	if err != nil {
		return nil, fmt.Errorf("add task: %w", err)
	}

	s.logger.Info("Task added", zap.Int64("task_id", task.ID), zap.Int64("module_id", moduleID))
	return task, nil
}

// UpdateTask изменяет описание задачи (отметка выполнения - через ToggleTask)
func (s *StudyPlanService) UpdateTask(ctx context.Context, tutorID, taskID int64, in TaskInput) (*model.Task, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, invalid("task title is required")
	}

	task, plan, err := s.taskWithPlan(ctx, tutorID, taskID, false)
	if err != nil {
		return nil, err
	}
	if plan.TutorID != tutorID {
		return nil, ErrForbidden
	}

	task.Title = strings.TrimSpace(in.Title)
	task.Description = strings.TrimSpace(in.Description)
	task.DueDate = in.DueDate
	task.Position = in.Position

	if err := s.planRepo.UpdateTask(ctx, task); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("update task: %w", err)
	}

	return task, nil
}

// DeleteTask удаляет задачу и пересчитывает прогресс плана
func (s *StudyPlanService) DeleteTask(ctx context.Context, tutorID, taskID int64) error {
	_, plan, err := s.taskWithPlan(ctx, tutorID, taskID, false)
	if err != nil {
		return err
	}
	if plan.TutorID != tutorID {
		return ErrForbidden
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.planRepo.DeleteTask(ctx, taskID); err != nil {
			return err
		}
		return s.recalculate(ctx, plan.ID)
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrTaskNotFound
		}
		return fmt.Errorf("delete task: %w", err)
	}

	s.logger.Info("Task deleted", zap.Int64("task_id", taskID), zap.Int64("plan_id", plan.ID))
	return nil
}

// ToggleTask переключает отметку выполнения (любой участник плана)
func (s *StudyPlanService) ToggleTask(ctx context.Context, userID, taskID int64) (*model.Task, *model.StudyPlan, error) {
	return s.setCompleted(ctx, userID, taskID, nil)
}

// SetTaskCompleted устанавливает отметку выполнения; повтор с тем же значением ничего не меняет
func (s *StudyPlanService) SetTaskCompleted(ctx context.Context, userID, taskID int64, completed bool) (*model.Task, *model.StudyPlan, error) {
	return s.setCompleted(ctx, userID, taskID, &completed)
}

// setCompleted с completed == nil инвертирует текущее значение
func (s *StudyPlanService) setCompleted(ctx context.Context, userID, taskID int64, completed *bool) (*model.Task, *model.StudyPlan, error) {
	var (
		task *model.Task
		plan *model.StudyPlan
	)

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		// строка задачи блокируется, чтобы параллельные переключения не читали одно значение
		task, plan, err = s.taskWithPlan(ctx, userID, taskID, true)
		if err != nil {
			return err
		}

		value := !task.IsCompleted
		if completed != nil {
			value = *completed
		}

		if value != task.IsCompleted {
			at := s.now()
			if err := s.planRepo.SetTaskCompleted(ctx, taskID, value, at); err != nil {
				return err
			}
			task.IsCompleted = value
			task.CompletedAt = nil
			if value {
				task.CompletedAt = &at
			}
		}

		if err := s.recalculate(ctx, plan.ID); err != nil {
			return err
		}

		plan, err = s.planRepo.GetByID(ctx, plan.ID)
		return err
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrTaskNotFound
		}
		return nil, nil, err
	}

	s.logger.Info("Task completion changed",
		zap.Int64("task_id", taskID),
		zap.Int64("user_id", userID),
		zap.Bool("completed", task.IsCompleted),
		zap.Int("plan_progress", plan.ProgressPercentage),
	)

	return task, plan, nil
}

// recalculate пересчитывает прогресс и статус плана; вызывается внутри транзакции
func (s *StudyPlanService) recalculate(ctx context.Context, planID int64) error {
	plan, err := s.planRepo.GetByID(ctx, planID)
	if err != nil {
		return err
	}
	if plan == nil {
		return ErrPlanNotFound
	}

	completed, total, err := s.planRepo.CountTasks(ctx, planID)
	if err != nil {
		return err
	}

	progress := model.Progress(completed, total)
	status := model.StatusForProgress(plan.Status, progress)
	if progress == plan.ProgressPercentage && status == plan.Status {
		return nil
	}

	return s.planRepo.UpdateProgress(ctx, planID, progress, status)
}

func (s *StudyPlanService) planFor(ctx context.Context, userID, planID int64) (*model.StudyPlan, error) {
	plan, err := s.planRepo.GetByID(ctx, planID)
	if err != nil {
		return nil, fmt.Errorf("get study plan: %w", err)
	}
	if plan == nil {
		return nil, ErrPlanNotFound
	}
	if !plan.HasParticipant(userID) {
		return nil, ErrNotParticipant
	}
	return plan, nil
}

func (s *StudyPlanService) ownedPlan(ctx context.Context, tutorID, planID int64) (*model.StudyPlan, error) {
	plan, err := s.planFor(ctx, tutorID, planID)
	if err != nil {
		return nil, err
	}
	if plan.TutorID != tutorID {
		return nil, ErrForbidden
	}
	return plan, nil
}

func (s *StudyPlanService) ownedModule(ctx context.Context, tutorID, moduleID int64) (*model.Module, error) {
	module, err := s.planRepo.GetModule(ctx, moduleID)
	if err != nil {
		return nil, fmt.Errorf("get module: %w", err)
	}
	if module == nil {
		return nil, ErrModuleNotFound
	}
	if _, err := s.ownedPlan(ctx, tutorID, module.PlanID); err != nil {
		return nil, err
	}
	return module, nil
}

// taskWithPlan получает задачу и её план, проверяя участие пользователя
func (s *StudyPlanService) taskWithPlan(ctx context.Context, userID, taskID int64, lock bool) (*model.Task, *model.StudyPlan, error) {
	get := s.planRepo.GetTask
	if lock {
		get = s.planRepo.GetTaskForUpdate
	}

	task, err := get(ctx, taskID)
	if err != nil {
		return nil, nil, fmt.Errorf("get task: %w", err)
	}
	if task == nil {
		return nil, nil, ErrTaskNotFound
	}

	module, err := s.planRepo.GetModule(ctx, task.ModuleID)
	if err != nil {
		return nil, nil, fmt.Errorf("get module: %w", err)
	}
	if module == nil {
		return nil, nil, ErrTaskNotFound
	}

	plan, err := s.planFor(ctx, userID, module.PlanID)
	if err != nil {
		return nil, nil, err
	}

	return task, plan, nil
}

func validatePlan(plan *model.StudyPlan) error {
	if plan.Title == "" {
		return invalid("title is required")
	}
	if plan.StartDate != nil && plan.EndDate != nil && plan.EndDate.Before(*plan.StartDate) {
		return invalid("end date must not be before start date")
	}
	return nil
}

func positionOr(position, index int) int {
	if position != 0 {
		return position
	}
	return index
}
