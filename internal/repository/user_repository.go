package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/tutoring_hub/internal/model"
	"github.com/Freeeeeet/tutoring_hub/internal/repository/base"
)

const userColumns = `u.id, u.email, u.password_hash, u.first_name, u.last_name, u.role, u.bio, u.avatar_url, u.telegram_id, u.created_at, u.updated_at`

type UserRepository struct {
	*base.Repository
}

func NewUserRepository(b *base.Repository) *UserRepository {
	return &UserRepository{Repository: b}
}

func scanUser(row rowScanner, user *model.User) error {
	return row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.FirstName,
		&user.LastName,
		&user.Role,
		&user.Bio,
		&user.AvatarURL,
		&user.TelegramID,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
}

// Create создаёт нового пользователя
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	query := `
		INSERT INTO users (email, password_hash, first_name, last_name, role, bio, avatar_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`

	err := r.QueryRow(
		ctx, query,
		user.Email,
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		user.Role,
		user.Bio,
		user.AvatarURL,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		if base.IsUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create user: %w", err)
	}

	return nil
}

// GetByID получает пользователя по ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users u WHERE u.id = $1`

	var user model.User
	if err := scanUser(r.QueryRow(ctx, query, id), &user); err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by id: %w", err)
	}

	return &user, nil
}

// GetByEmail получает пользователя по email (без учёта регистра)
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users u WHERE lower(u.email) = lower($1)`

	var user model.User
	if err := scanUser(r.QueryRow(ctx, query, email), &user); err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}

	return &user, nil
}

// GetByIDs получает пользователей по списку ID
func (r *UserRepository) GetByIDs(ctx context.Context, ids []int64) ([]*model.User, error) {
	if len(ids) == 0 {
		return []*model.User{}, nil
	}

	query := `SELECT ` + userColumns + ` FROM users u WHERE u.id = ANY($1) ORDER BY u.first_name, u.last_name`

	rows, err := r.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("get users by ids: %w", err)
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		var user model.User
		if err := scanUser(rows, &user); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, &user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}

	return users, nil
}

// Update обновляет публичные данные профиля
func (r *UserRepository) Update(ctx context.Context, user *model.User) error {
	query := `
		UPDATE users
		SET first_name = $1, last_name = $2, bio = $3, avatar_url = $4, updated_at = NOW()
		WHERE id = $5
		RETURNING updated_at
	`

	err := r.QueryRow(ctx, query, user.FirstName, user.LastName, user.Bio, user.AvatarURL, user.ID).Scan(&user.UpdatedAt)
	if err != nil {
		if base.IsNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("update user: %w", err)
	}

	return nil
}

// SetTelegramID привязывает (или отвязывает при nil) Telegram для уведомлений
func (r *UserRepository) SetTelegramID(ctx context.Context, userID int64, telegramID *int64) error {
	query := `UPDATE users SET telegram_id = $1, updated_at = NOW() WHERE id = $2`

	affected, err := r.ExecAffected(ctx, query, telegramID, userID)
	if err != nil {
		if base.IsUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("set telegram id: %w", err)
	}

	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

// CreateStudent создаёт профиль студента
func (r *UserRepository) CreateStudent(ctx context.Context, student *model.Student) error {
	query := `
		INSERT INTO students (user_id, grade_level, school, learning_goals)
		VALUES ($1, $2, $3, $4)
	`

	if _, err := r.ExecAffected(ctx, query, student.UserID, student.GradeLevel, student.School, student.LearningGoals); err != nil {
		return fmt.Errorf("create student: %w", err)
	}

	return nil
}

// CreateTutor создаёт профиль тьютора
func (r *UserRepository) CreateTutor(ctx context.Context, tutor *model.Tutor) error {
	query := `
		INSERT INTO tutors (user_id, subjects, hourly_rate, experience_years, is_accepting_students)
		VALUES ($1, $2, $3, $4, $5)
	`

	subjects := tutor.Subjects
	if subjects == nil {
		subjects = []string{}
	}

	_, err := r.ExecAffected(ctx, query, tutor.UserID, subjects, tutor.HourlyRate, tutor.ExperienceYears, tutor.IsAcceptingStudents)
	if err != nil {
		return fmt.Errorf("create tutor: %w", err)
	}

	return nil
}

// GetStudent получает профиль студента
func (r *UserRepository) GetStudent(ctx context.Context, userID int64) (*model.Student, error) {
	query := `
		SELECT user_id, grade_level, school, learning_goals
		FROM students
		WHERE user_id = $1
	`

	var student model.Student
	err := r.QueryRow(ctx, query, userID).Scan(
		&student.UserID,
		&student.GradeLevel,
		&student.School,
		&student.LearningGoals,
	)

	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get student: %w", err)
	}

	return &student, nil
}

// GetTutor получает профиль тьютора
func (r *UserRepository) GetTutor(ctx context.Context, userID int64) (*model.Tutor, error) {
	query := `
		SELECT user_id, subjects, hourly_rate, experience_years, is_accepting_students
		FROM tutors
		WHERE user_id = $1
	`

	var tutor model.Tutor
	err := r.QueryRow(ctx, query, userID).Scan(
		&tutor.UserID,
		&tutor.Subjects,
		&tutor.HourlyRate,
		&tutor.ExperienceYears,
		&tutor.IsAcceptingStudents,
	)

	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get tutor: %w", err)
	}

	return &tutor, nil
}

// UpdateStudent обновляет профиль студента
func (r *UserRepository) UpdateStudent(ctx context.Context, student *model.Student) error {
	query := `
		UPDATE students
		SET grade_level = $1, school = $2, learning_goals = $3
		WHERE user_id = $4
	`

	affected, err := r.ExecAffected(ctx, query, student.GradeLevel, student.School, student.LearningGoals, student.UserID)
	if err != nil {
		return fmt.Errorf("update student: %w", err)
	}

	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

// UpdateTutor обновляет профиль тьютора
func (r *UserRepository) UpdateTutor(ctx context.Context, tutor *model.Tutor) error {
	query := `
		UPDATE tutors
		SET subjects = $1, hourly_rate = $2, experience_years = $3, is_accepting_students = $4
		WHERE user_id = $5
	`

	subjects := tutor.Subjects
	if subjects == nil {
		subjects = []string{}
	}

	affected, err := r.ExecAffected(ctx, query, subjects, tutor.HourlyRate, tutor.ExperienceYears, tutor.IsAcceptingStudents, tutor.UserID)
	if err != nil {
		return fmt.Errorf("update tutor: %w", err)
	}

	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

// ListTutors получает тьюторов, принимающих студентов, с фильтром по предмету
func (r *UserRepository) ListTutors(ctx context.Context, subject string, limit, offset int) ([]*model.User, int, error) {
	query := `
		SELECT ` + userColumns + `,
		       t.subjects, t.hourly_rate, t.experience_years, t.is_accepting_students,
		       COUNT(*) OVER () AS total
		FROM users u
		JOIN tutors t ON t.user_id = u.id
		WHERE t.is_accepting_students
		  AND ($1 = '' OR EXISTS (SELECT 1 FROM unnest(t.subjects) s WHERE lower(s) = lower($1)))
		ORDER BY u.first_name, u.last_name, u.id
		LIMIT $2 OFFSET $3
	`

	rows, err := r.Query(ctx, query, subject, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list tutors: %w", err)
	}
	defer rows.Close()

	var (
		tutors []*model.User
		total  int
	)
	for rows.Next() {
		var user model.User
		tutor := &model.Tutor{}
		err := rows.Scan(
			&user.ID,
			&user.Email,
			&user.PasswordHash,
			&user.FirstName,
			&user.LastName,
			&user.Role,
			&user.Bio,
			&user.AvatarURL,
			&user.TelegramID,
			&user.CreatedAt,
			&user.UpdatedAt,
			&tutor.Subjects,
			&tutor.HourlyRate,
			&tutor.ExperienceYears,
			&tutor.IsAcceptingStudents,
			&total,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("scan tutor: %w", err)
		}
		tutor.UserID = user.ID
		user.Tutor = tutor
		tutors = append(tutors, &user)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate tutors: %w", err)
	}

	return tutors, total, nil
}
