package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/tutoring_hub/internal/model"
	"github.com/Freeeeeet/tutoring_hub/internal/repository/base"
)

const planColumns = `id, tutor_id, student_id, title, description, subject, status, progress_percentage, start_date, end_date, created_at, updated_at`

type StudyPlanRepository struct {
	*base.Repository
}

func NewStudyPlanRepository(b *base.Repository) *StudyPlanRepository {
	return &StudyPlanRepository{Repository: b}
}

func scanPlan(row rowScanner, p *model.StudyPlan) error {
	return row.Scan(
		&p.ID,
		&p.TutorID,
		&p.StudentID,
		&p.Title,
		&p.Description,
		&p.Subject,
		&p.Status,
		&p.ProgressPercentage,
		&p.StartDate,
		&p.EndDate,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
}

// ============ Планы ============

// Create создаёт план
func (r *StudyPlanRepository) Create(ctx context.Context, p *model.StudyPlan) error {
	query := `
		INSERT INTO study_plans (tutor_id, student_id, title, description, subject, status, progress_percentage, start_date, end_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`

	err := r.QueryRow(
		ctx, query,
		p.TutorID,
		p.StudentID,
		p.Title,
		p.Description,
		p.Subject,
		p.Status,
		p.ProgressPercentage,
		p.StartDate,
		p.EndDate,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create study plan: %w", err)
	}

	return nil
}

// GetByID получает план без модулей
func (r *StudyPlanRepository) GetByID(ctx context.Context, id int64) (*model.StudyPlan, error) {
	query := `SELECT ` + planColumns + ` FROM study_plans WHERE id = $1`

	var p model.StudyPlan
	if err := scanPlan(r.QueryRow(ctx, query, id), &p); err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get study plan: %w", err)
	}

	return &p, nil
}

// ListForUser получает планы, где пользователь тьютор или студент
func (r *StudyPlanRepository) ListForUser(ctx context.Context, userID int64) ([]*model.StudyPlan, error) {
	query := `
		SELECT ` + planColumns + `
		FROM study_plans
		WHERE tutor_id = $1 OR student_id = $1
		ORDER BY updated_at DESC
	`

	rows, err := r.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list study plans: %w", err)
	}
	defer rows.Close()

	plans := []*model.StudyPlan{}
	for rows.Next() {
		var p model.StudyPlan
		if err := scanPlan(rows, &p); err != nil {
			return nil, fmt.Errorf("scan study plan: %w", err)
		}
		plans = append(plans, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate study plans: %w", err)
	}

	return plans, nil
}

// Update обновляет редактируемые поля плана
func (r *StudyPlanRepository) Update(ctx context.Context, p *model.StudyPlan) error {
	query := `
		UPDATE study_plans
		SET title = $1, description = $2, subject = $3, status = $4, start_date = $5, end_date = $6, updated_at = NOW()
		WHERE id = $7
		RETURNING updated_at
	`

	err := r.QueryRow(ctx, query, p.Title, p.Description, p.Subject, p.Status, p.StartDate, p.EndDate, p.ID).Scan(&p.UpdatedAt)
	if err != nil {
		if base.IsNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("update study plan: %w", err)
	}

	return nil
}

// UpdateProgress сохраняет пересчитанный прогресс и статус
func (r *StudyPlanRepository) UpdateProgress(ctx context.Context, planID int64, progress int, status model.StudyPlanStatus) error {
	query := `
		UPDATE study_plans
		SET progress_percentage = $1, status = $2, updated_at = NOW()
		WHERE id = $3
	`

	affected, err := r.ExecAffected(ctx, query, progress, status, planID)
	if err != nil {
		return fmt.Errorf("update plan progress: %w", err)
	}

	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

// Delete удаляет план вместе с модулями и задачами (ON DELETE CASCADE)
func (r *StudyPlanRepository) Delete(ctx context.Context, id int64) error {
	affected, err := r.ExecAffected(ctx, `DELETE FROM study_plans WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete study plan: %w", err)
	}

	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

// CountTasks подсчитывает выполненные и все задачи плана
func (r *StudyPlanRepository) CountTasks(ctx context.Context, planID int64) (int, int, error) {
	query := `
		SELECT COUNT(*) FILTER (WHERE t.is_completed), COUNT(*)
		FROM study_tasks t
		JOIN study_modules m ON m.id = t.module_id
		WHERE m.plan_id = $1
	`

	var completed, total int
	if err := r.QueryRow(ctx, query, planID).Scan(&completed, &total); err != nil {
		return 0, 0, fmt.Errorf("count plan tasks: %w", err)
	}

	return completed, total, nil
}

// ============ Модули ============

// CreateModule добавляет модуль в план
func (r *StudyPlanRepository) CreateModule(ctx context.Context, m *model.Module) error {
	query := `
		INSERT INTO study_modules (plan_id, title, description, position)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	if err := r.QueryRow(ctx, query, m.PlanID, m.Title, m.Description, m.Position).Scan(&m.ID, &m.CreatedAt); err != nil {
		return fmt.Errorf("create module: %w", err)
	}

	return nil
}

// GetModule получает модуль по ID
func (r *StudyPlanRepository) GetModule(ctx context.Context, id int64) (*model.Module, error) {
	query := `
		SELECT id, plan_id, title, description, position, created_at
		FROM study_modules
		WHERE id = $1
	`

	var m model.Module
	err := r.QueryRow(ctx, query, id).Scan(&m.ID, &m.PlanID, &m.Title, &m.Description, &m.Position, &m.CreatedAt)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get module: %w", err)
	}

	return &m, nil
}

// ListModules получает модули плана вместе с задачами
func (r *StudyPlanRepository) ListModules(ctx context.Context, planID int64) ([]*model.Module, error) {
	query := `
		SELECT m.id, m.plan_id, m.title, m.description, m.position, m.created_at,
		       t.id, t.title, t.description, t.due_date, t.is_completed, t.completed_at, t.position, t.created_at
		FROM study_modules m
		LEFT JOIN study_tasks t ON t.module_id = m.id
		WHERE m.plan_id = $1
		ORDER BY m.position, m.id, t.position, t.id
	`

	rows, err := r.Query(ctx, query, planID)
	if err != nil {
		return nil, fmt.Errorf("list modules: %w", err)
	}
	defer rows.Close()

	modules := []*model.Module{}
	var current *model.Module
	for rows.Next() {
		var (
			m           model.Module
			taskID      *int64
			title       *string
			description *string
			dueDate     *time.Time
			isCompleted *bool
			completedAt *time.Time
			position    *int
			createdAt   *time.Time
		)
		err := rows.Scan(
			&m.ID, &m.PlanID, &m.Title, &m.Description, &m.Position, &m.CreatedAt,
			&taskID, &title, &description, &dueDate, &isCompleted, &completedAt, &position, &createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan module: %w", err)
		}

		if current == nil || current.ID != m.ID {
			m.Tasks = []*model.Task{}
			current = &m
			modules = append(modules, current)
		}

		if taskID != nil {
			current.Tasks = append(current.Tasks, &model.Task{
				ID:          *taskID,
				ModuleID:    current.ID,
				Title:       *title,
				Description: *description,
				DueDate:     dueDate,
				IsCompleted: *isCompleted,
				CompletedAt: completedAt,
				Position:    *position,
				CreatedAt:   *createdAt,
			})
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate modules: %w", err)
	}

	return modules, nil
}

// UpdateModule обновляет модуль
func (r *StudyPlanRepository) UpdateModule(ctx context.Context, m *model.Module) error {
	query := `
		UPDATE study_modules
		SET title = $1, description = $2, position = $3
		WHERE id = $4
	`

	affected, err := r.ExecAffected(ctx, query, m.Title, m.Description, m.Position, m.ID)
	if err != nil {
		return fmt.Errorf("update module: %w", err)
	}

	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

// DeleteModule удаляет модуль вместе с задачами
func (r *StudyPlanRepository) DeleteModule(ctx context.Context, id int64) error {
	affected, err := r.ExecAffected(ctx, `DELETE FROM study_modules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete module: %w", err)
	}

	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

// ============ Задачи ============

// CreateTask добавляет задачу в модуль
func (r *StudyPlanRepository) CreateTask(ctx context.Context, t *model.Task) error {
	query := `
		INSERT INTO study_tasks (module_id, title, description, due_date, position)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	if err := r.QueryRow(ctx, query, t.ModuleID, t.Title, t.Description, t.DueDate, t.Position).Scan(&t.ID, &t.CreatedAt); err != nil {
		return fmt.Errorf("create task: %w", err)
	}

	return nil
}

// GetTask получает задачу по ID
func (r *StudyPlanRepository) GetTask(ctx context.Context, id int64) (*model.Task, error) {
	return r.getTask(ctx, id, false)
}

// GetTaskForUpdate получает задачу и блокирует строку до конца транзакции
func (r *StudyPlanRepository) GetTaskForUpdate(ctx context.Context, id int64) (*model.Task, error) {
	return r.getTask(ctx, id, true)
}

func (r *StudyPlanRepository) getTask(ctx context.Context, id int64, forUpdate bool) (*model.Task, error) {
	query := `
		SELECT id, module_id, title, description, due_date, is_completed, completed_at, position, created_at
		FROM study_tasks
		WHERE id = $1
	`
	if forUpdate {
		query += "FOR UPDATE"
	}

	var t model.Task
	err := r.QueryRow(ctx, query, id).Scan(
		&t.ID,
		&t.ModuleID,
		&t.Title,
		&t.Description,
		&t.DueDate,
		&t.IsCompleted,
		&t.CompletedAt,
		&t.Position,
		&t.CreatedAt,
	)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get task: %w", err)
	}

	return &t, nil
}

// UpdateTask обновляет описание задачи
func (r *StudyPlanRepository) UpdateTask(ctx context.Context, t *model.Task) error {
	query := `
		UPDATE study_tasks
		SET title = $1, description = $2, due_date = $3, position = $4
		WHERE id = $5
	`

	affected, err := r.ExecAffected(ctx, query, t.Title, t.Description, t.DueDate, t.Position, t.ID)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}

	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

// SetTaskCompleted отмечает задачу выполненной или снимает отметку
func (r *StudyPlanRepository) SetTaskCompleted(ctx context.Context, taskID int64, completed bool, at time.Time) error {
	query := `
		UPDATE study_tasks
		SET is_completed = $1,
		    completed_at = CASE WHEN $1 THEN $2::timestamptz ELSE NULL END
		WHERE id = $3
	`

	affected, err := r.ExecAffected(ctx, query, completed, at, taskID)
	if err != nil {
		return fmt.Errorf("set task completed: %w", err)
	}

	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

// DeleteTask удаляет задачу
func (r *StudyPlanRepository) DeleteTask(ctx context.Context, id int64) error {
	affected, err := r.ExecAffected(ctx, `DELETE FROM study_tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}

	if affected == 0 {
		return ErrNotFound
	}

	return nil
}
