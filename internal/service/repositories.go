package service

import (
	"context"
	"time"

	"github.com/Freeeeeet/tutoring_hub/internal/model"
	"github.com/Freeeeeet/tutoring_hub/internal/repository"
	"github.com/google/uuid"
)

// Интерфейсы хранилищ, которые используют сервисы. Реализации - internal/repository.

type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByIDs(ctx context.Context, ids []int64) ([]*model.User, error)
	Update(ctx context.Context, user *model.User) error
	SetTelegramID(ctx context.Context, userID int64, telegramID *int64) error
	CreateStudent(ctx context.Context, student *model.Student) error
	CreateTutor(ctx context.Context, tutor *model.Tutor) error
	GetStudent(ctx context.Context, userID int64) (*model.Student, error)
	GetTutor(ctx context.Context, userID int64) (*model.Tutor, error)
	UpdateStudent(ctx context.Context, student *model.Student) error
	UpdateTutor(ctx context.Context, tutor *model.Tutor) error
	ListTutors(ctx context.Context, subject string, limit, offset int) ([]*model.User, int, error)
}

type AvailabilityRepository interface {
	ListByTutor(ctx context.Context, tutorID int64) ([]*model.Availability, error)
	ReplaceForTutor(ctx context.Context, tutorID int64, windows []*model.Availability) error
	ListBlockedDates(ctx context.Context, tutorID int64, from time.Time) ([]*model.BlockedDate, error)
	AddBlockedDate(ctx context.Context, blocked *model.BlockedDate) error
	DeleteBlockedDate(ctx context.Context, tutorID, id int64) error
}

type SessionRepository interface {
	LockTutor(ctx context.Context, tutorID int64) error
	Create(ctx context.Context, s *model.Session) error
	GetByID(ctx context.Context, id int64) (*model.Session, error)
	ListActiveByTutor(ctx context.Context, tutorID int64, from, to time.Time, excludeID int64) ([]*model.Session, error)
	ListForUser(ctx context.Context, userID int64, filter repository.SessionFilter) ([]*model.Session, error)
	UpdateIfStatus(ctx context.Context, s *model.Session, expected model.SessionStatus) (bool, error)
	SweepPast(ctx context.Context, now time.Time) (int64, int64, error)
}

type ConversationRepository interface {
	GetOrCreate(ctx context.Context, userA, userB int64) (*model.Conversation, error)
	GetByID(ctx context.Context, id int64) (*model.Conversation, error)
	ListForUser(ctx context.Context, userID int64) ([]*model.Conversation, error)
	TouchLastMessage(ctx context.Context, id int64, at time.Time) error
}

type MessageRepository interface {
	Create(ctx context.Context, m *model.Message) (bool, error)
	GetByID(ctx context.Context, id int64) (*model.Message, error)
	GetByClientID(ctx context.Context, senderID int64, clientID uuid.UUID) (*model.Message, error)
	ListByConversation(ctx context.Context, conversationID, beforeID int64, limit int) ([]*model.Message, error)
	UpdateContent(ctx context.Context, m *model.Message) error
	MarkDeleted(ctx context.Context, m *model.Message) error
	MarkRead(ctx context.Context, conversationID, readerID int64, at time.Time) (int64, error)
	ToggleReaction(ctx context.Context, messageID, userID int64, emoji string) (bool, error)
	ListReactions(ctx context.Context, messageIDs []int64) (map[int64][]*model.MessageReaction, error)
}

type ConnectionRepository interface {
	Create(ctx context.Context, c *model.Connection) error
	Reopen(ctx context.Context, c *model.Connection) (bool, error)
	GetByID(ctx context.Context, id int64) (*model.Connection, error)
	GetBetween(ctx context.Context, userA, userB int64) (*model.Connection, error)
	Respond(ctx context.Context, id int64, status model.ConnectionStatus, at time.Time) (bool, error)
	Delete(ctx context.Context, id int64) error
	ListByStatus(ctx context.Context, userID int64, status model.ConnectionStatus) ([]*model.Connection, error)
	CountAccepted(ctx context.Context, userID int64) (int, error)
}

type StudyPlanRepository interface {
	Create(ctx context.Context, p *model.StudyPlan) error
	GetByID(ctx context.Context, id int64) (*model.StudyPlan, error)
	ListForUser(ctx context.Context, userID int64) ([]*model.StudyPlan, error)
	Update(ctx context.Context, p *model.StudyPlan) error
	UpdateProgress(ctx context.Context, planID int64, progress int, status model.StudyPlanStatus) error
	Delete(ctx context.Context, id int64) error
	CountTasks(ctx context.Context, planID int64) (int, int, error)
	CreateModule(ctx context.Context, m *model.Module) error
	GetModule(ctx context.Context, id int64) (*model.Module, error)
	ListModules(ctx context.Context, planID int64) ([]*model.Module, error)
	UpdateModule(ctx context.Context, m *model.Module) error
	DeleteModule(ctx context.Context, id int64) error
	CreateTask(ctx context.Context, t *model.Task) error
	GetTask(ctx context.Context, id int64) (*model.Task, error)
	GetTaskForUpdate(ctx context.Context, id int64) (*model.Task, error)
	UpdateTask(ctx context.Context, t *model.Task) error
	SetTaskCompleted(ctx context.Context, taskID int64, completed bool, at time.Time) error
	DeleteTask(ctx context.Context, id int64) error
}

// Notifier доставляет пользователю текстовое уведомление. Ошибки доставки не влияют на запрос.
type Notifier interface {
	Notify(ctx context.Context, userID int64, text string)
}

// EventPublisher рассылает событие участникам, открывшим диалог
type EventPublisher interface {
	PublishToConversation(conversationID int64, eventType string, payload interface{})
}
