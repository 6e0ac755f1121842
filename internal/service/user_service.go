package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/Freeeeeet/tutoring_hub/internal/auth"
	"github.com/Freeeeeet/tutoring_hub/internal/model"
	"github.com/Freeeeeet/tutoring_hub/internal/repository"
	"go.uber.org/zap"
)

const (
	minPasswordLength = 8
	// bcrypt считает байты, а не символы
	maxPasswordBytes = 72
	maxPage          = 100000
)

// TokenIssuer выпускает токены доступа
type TokenIssuer interface {
	Generate(userID int64, role model.Role) (string, time.Time, error)
}

// AuthResult ответ на регистрацию и вход
type AuthResult struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      *model.User `json:"user"`
}

type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      model.Role
}

type UserService struct {
	tx       TxManager
	userRepo UserRepository
	tokens   TokenIssuer
	logger   *zap.Logger
}

func NewUserService(tx TxManager, userRepo UserRepository, tokens TokenIssuer, logger *zap.Logger) *UserService {
	return &UserService{
		tx:       tx,
		userRepo: userRepo,
		tokens:   tokens,
		logger:   logger,
	}
}

// Register регистрирует пользователя и создаёт профиль студента или тьютора
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, invalid("email is not valid")
	}
	if len(in.Password) < minPasswordLength {
		return nil, invalid("password must be at least %d characters", minPasswordLength)
	}
	if len(in.Password) > maxPasswordBytes {
		return nil, invalid("password must not exceed %d bytes", maxPasswordBytes)
	}
	if in.Role != model.RoleStudent && in.Role != model.RoleTutor {
		return nil, invalid("role must be student or tutor")
	}

	existing, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("check existing user: %w", err)
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Role:         in.Role,
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.userRepo.Create(ctx, user); err != nil {
			return err
		}

		if user.IsTutor() {
			user.Tutor = &model.Tutor{UserID: user.ID, Subjects: []string{}, IsAcceptingStudents: true}
			return s.userRepo.CreateTutor(ctx, user.Tutor)
		}

		user.Student = &model.Student{UserID: user.ID}
		return s.userRepo.CreateStudent(ctx, user.Student)
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("New user registered",
		zap.Int64("user_id", user.ID),
		zap.String("role", string(user.Role)),
	)

	return s.issue(user)
}

// Login проверяет пароль и выдаёт токен
func (s *UserService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.userRepo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	if user == nil || !auth.CheckPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	s.logger.Info("User logged in", zap.Int64("user_id", user.ID))

	return s.issue(user)
}

func (s *UserService) issue(user *model.User) (*AuthResult, error) {
	token, expiresAt, err := s.tokens.Generate(user.ID, user.Role)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// GetByID получает пользователя по ID
func (s *UserService) GetByID(ctx context.Context, id int64) (*model.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// GetProfile получает пользователя вместе с профилем студента или тьютора
func (s *UserService) GetProfile(ctx context.Context, id int64) (*model.User, error) {
	user, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if user.IsTutor() {
		user.Tutor, err = s.userRepo.GetTutor(ctx, id)
	} else {
		user.Student, err = s.userRepo.GetStudent(ctx, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get role profile: %w", err)
	}

	return user, nil
}

type ProfileUpdate struct {
	FirstName *string
	LastName  *string
	Bio       *string
	AvatarURL *string
}

// UpdateProfile обновляет общие поля профиля
func (s *UserService) UpdateProfile(ctx context.Context, userID int64, upd ProfileUpdate) (*model.User, error) {
	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if upd.FirstName != nil {
		user.FirstName = strings.TrimSpace(*upd.FirstName)
	}
	if upd.LastName != nil {
		user.LastName = strings.TrimSpace(*upd.LastName)
	}
	if upd.Bio != nil {
		user.Bio = strings.TrimSpace(*upd.Bio)
	}
	if upd.AvatarURL != nil {
		user.AvatarURL = strings.TrimSpace(*upd.AvatarURL)
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	s.logger.Info("Profile updated", zap.Int64("user_id", userID))

	return s.GetProfile(ctx, userID)
}

// UpdateTutorProfile обновляет предметы, ставку и приём студентов
func (s *UserService) UpdateTutorProfile(ctx context.Context, userID int64, tutor *model.Tutor) (*model.Tutor, error) {
	current, err := s.userRepo.GetTutor(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get tutor: %w", err)
	}
	if current == nil {
		return nil, ErrNotATutor
	}
	if tutor.HourlyRate < 0 || tutor.ExperienceYears < 0 {
		return nil, invalid("hourly rate and experience must not be negative")
	}

	tutor.UserID = userID
	tutor.Subjects = normalizeSubjects(tutor.Subjects)

	if err := s.userRepo.UpdateTutor(ctx, tutor); err != nil {
		return nil, fmt.Errorf("update tutor: %w", err)
	}

	s.logger.Info("Tutor profile updated",
		zap.Int64("user_id", userID),
		zap.Strings("subjects", tutor.Subjects),
		zap.Bool("accepting", tutor.IsAcceptingStudents),
	)

	return tutor, nil
}

// UpdateStudentProfile обновляет учебные данные студента
func (s *UserService) UpdateStudentProfile(ctx context.Context, userID int64, student *model.Student) (*model.Student, error) {
	current, err := s.userRepo.GetStudent(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get student: %w", err)
	}
	if current == nil {
		return nil, ErrNotAStudent
	}

	student.UserID = userID
	if err := s.userRepo.UpdateStudent(ctx, student); err != nil {
		return nil, fmt.Errorf("update student: %w", err)
	}

	s.logger.Info("Student profile updated", zap.Int64("user_id", userID))

	return student, nil
}

// LinkTelegram подключает (telegramID != nil) или отключает уведомления в Telegram
func (s *UserService) LinkTelegram(ctx context.Context, userID int64, telegramID *int64) error {
	if telegramID != nil && *telegramID <= 0 {
		return invalid("telegram id must be positive")
	}

	err := s.userRepo.SetTelegramID(ctx, userID, telegramID)
	switch {
	case errors.Is(err, repository.ErrDuplicate):
		return ErrTelegramTaken
	case errors.Is(err, repository.ErrNotFound):
		return ErrUserNotFound
	case err != nil:
		return fmt.Errorf("link telegram: %w", err)
	}

	s.logger.Info("Telegram link changed",
		zap.Int64("user_id", userID),
		zap.Bool("linked", telegramID != nil),
	)

	return nil
}

// ListTutors получает страницу тьюторов, принимающих студентов
func (s *UserService) ListTutors(ctx context.Context, subject string, page, perPage int) ([]*model.User, int, error) {
	page, perPage = normalizePaging(page, perPage)

	tutors, total, err := s.userRepo.ListTutors(ctx, strings.TrimSpace(subject), perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, fmt.Errorf("list tutors: %w", err)
	}
	if tutors == nil {
		tutors = []*model.User{}
	}

	return tutors, total, nil
}

func normalizeSubjects(subjects []string) []string {
	seen := make(map[string]bool)
	result := []string{}
	for _, subject := range subjects {
		subject = strings.TrimSpace(subject)
		key := strings.ToLower(subject)
		if subject == "" || seen[key] {
			continue
		}
		seen[key] = true
		result = append(result, subject)
	}
	return result
}

func normalizePaging(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if page > maxPage {
		page = maxPage
	}
	if perPage < 1 {
		perPage = 20
	}
	if perPage > 100 {
		perPage = 100
	}
	return page, perPage
}
