package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/Freeeeeet/tutoring_hub/internal/model"
	"github.com/Freeeeeet/tutoring_hub/internal/service"
)

// Сервисы, которые вызывают обработчики. Реализации - internal/service.

type UserService interface {
	Register(ctx context.Context, in service.RegisterInput) (*service.AuthResult, error)
	Login(ctx context.Context, email, password string) (*service.AuthResult, error)
	GetProfile(ctx context.Context, id int64) (*model.User, error)
	UpdateProfile(ctx context.Context, userID int64, upd service.ProfileUpdate) (*model.User, error)
	UpdateTutorProfile(ctx context.Context, userID int64, tutor *model.Tutor) (*model.Tutor, error)
	UpdateStudentProfile(ctx context.Context, userID int64, student *model.Student) (*model.Student, error)
	LinkTelegram(ctx context.Context, userID int64, telegramID *int64) error
	ListTutors(ctx context.Context, subject string, page, perPage int) ([]*model.User, int, error)
}

type AvailabilityService interface {
	GetSchedule(ctx context.Context, tutorID int64) (*service.TutorSchedule, error)
	SetWeekly(ctx context.Context, tutorID int64, windows []*model.Availability) ([]*model.Availability, error)
	BlockDate(ctx context.Context, tutorID int64, date time.Time, reason string) (*model.BlockedDate, error)
	UnblockDate(ctx context.Context, tutorID, id int64) error
	OpenSlots(ctx context.Context, tutorID int64, date time.Time, duration time.Duration) ([]time.Time, error)
}

type SessionService interface {
	Book(ctx context.Context, studentID int64, in service.BookInput) (*model.Session, error)
	List(ctx context.Context, userID int64, status *model.SessionStatus, scope service.SessionScope) ([]*model.Session, error)
	Get(ctx context.Context, userID, sessionID int64) (*model.Session, error)
	Confirm(ctx context.Context, tutorID, sessionID int64, meetingLink string) (*model.Session, error)
	Cancel(ctx context.Context, userID, sessionID int64, reason string) (*model.Session, error)
	Reschedule(ctx context.Context, userID, sessionID int64, start, end time.Time) (*model.Session, error)
	Complete(ctx context.Context, tutorID, sessionID int64) (*model.Session, error)
	Rate(ctx context.Context, studentID, sessionID int64, rating int, feedback string) (*model.Session, error)
	Week(ctx context.Context, userID int64, weekStart time.Time) ([]*model.Session, error)
}

type MessageService interface {
	ListConversations(ctx context.Context, userID int64) ([]*model.Conversation, error)
	OpenConversation(ctx context.Context, userID, otherID int64) (*model.Conversation, error)
	ListMessages(ctx context.Context, userID, conversationID, beforeID int64, limit int) ([]*model.Message, error)
	Send(ctx context.Context, userID, conversationID int64, in service.SendInput) (*model.Message, error)
	Edit(ctx context.Context, userID, messageID int64, content string) (*model.Message, error)
	Delete(ctx context.Context, userID, messageID int64) (*model.Message, error)
	React(ctx context.Context, userID, messageID int64, emoji string) (*service.ReactionEvent, error)
	MarkRead(ctx context.Context, userID, conversationID int64) (*service.ReadReceipt, error)
}

type ConnectionService interface {
	Request(ctx context.Context, userID, targetID int64, message string) (*model.Connection, error)
	Accept(ctx context.Context, userID, connectionID int64) (*model.Connection, error)
	Decline(ctx context.Context, userID, connectionID int64) (*model.Connection, error)
	Remove(ctx context.Context, userID, connectionID int64) error
	List(ctx context.Context, userID int64) ([]*model.Connection, error)
	Pending(ctx context.Context, userID int64) (*service.PendingConnections, error)
	Status(ctx context.Context, userID, otherID int64) (*service.ConnectionState, error)
}

type StudyPlanService interface {
	Create(ctx context.Context, tutorID int64, in service.PlanInput) (*model.StudyPlan, error)
	List(ctx context.Context, userID int64) ([]*model.StudyPlan, error)
	Get(ctx context.Context, userID, planID int64) (*model.StudyPlan, error)
	Update(ctx context.Context, tutorID, planID int64, upd service.PlanUpdate) (*model.StudyPlan, error)
	Archive(ctx context.Context, tutorID, planID int64) (*model.StudyPlan, error)
	Restore(ctx context.Context, tutorID, planID int64) (*model.StudyPlan, error)
	Delete(ctx context.Context, tutorID, planID int64) error
	AddModule(ctx context.Context, tutorID, planID int64, in service.ModuleInput) (*model.Module, error)
	UpdateModule(ctx context.Context, tutorID, moduleID int64, in service.ModuleInput) (*model.Module, error)
	DeleteModule(ctx context.Context, tutorID, moduleID int64) error
	AddTask(ctx context.Context, tutorID, moduleID int64, in service.TaskInput) (*model.Task, error)
	UpdateTask(ctx context.Context, tutorID, taskID int64, in service.TaskInput) (*model.Task, error)
	DeleteTask(ctx context.Context, tutorID, taskID int64) error
	ToggleTask(ctx context.Context, userID, taskID int64) (*model.Task, *model.StudyPlan, error)
	SetTaskCompleted(ctx context.Context, userID, taskID int64, completed bool) (*model.Task, *model.StudyPlan, error)
}

type StatsService interface {
	ProfileStats(ctx context.Context, userID int64, months int) (*model.ProfileStats, error)
}

// WebsocketServer принимает websocket-подключения аутентифицированных пользователей
type WebsocketServer interface {
	ServeWS(w http.ResponseWriter, r *http.Request, userID int64)
}

// HealthChecker проверяет доступность базы
type HealthChecker interface {
	Ping(ctx context.Context) error
}
