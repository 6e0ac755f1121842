package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

const healthTimeout = 2 * time.Second

// Deps зависимости HTTP-слоя
type Deps struct {
	Users        UserService
	Availability AvailabilityService
	Sessions     SessionService
	Messages     MessageService
	Connections  ConnectionService
	StudyPlans   StudyPlanService
	Stats        StatsService

	Tokens      TokenValidator
	Websocket   WebsocketServer
	Health      HealthChecker
	Location    *time.Location
	CORSOrigins []string
	Logger      *zap.Logger
}

// Handler HTTP API маркетплейса
type Handler struct {
	users        UserService
	availability AvailabilityService
	sessions     SessionService
	messages     MessageService
	connections  ConnectionService
	plans        StudyPlanService
	stats        StatsService

	tokens      TokenValidator
	ws          WebsocketServer
	health      HealthChecker
	loc         *time.Location
	corsOrigins []string
	validator   *Validator
	now         func() time.Time
	logger      *zap.Logger
}

func NewHandler(deps Deps) *Handler {
	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}

	return &Handler{
		users:        deps.Users,
		availability: deps.Availability,
		sessions:     deps.Sessions,
		messages:     deps.Messages,
		connections:  deps.Connections,
		plans:        deps.StudyPlans,
		stats:        deps.Stats,
		tokens:       deps.Tokens,
		ws:           deps.Websocket,
		health:       deps.Health,
		loc:          loc,
		corsOrigins:  deps.CORSOrigins,
		validator:    NewValidator(),
		now:          time.Now,
		logger:       deps.Logger,
	}
}

// Routes собирает роутер со всеми маршрутами API и CORS
func (h *Handler) Routes() http.Handler {
	router := mux.NewRouter()
	router.Use(h.recoverMiddleware, h.loggingMiddleware)
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusNotFound, "route not found")
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	router.HandleFunc("/health", h.healthCheck).Methods(http.MethodGet)

	public := router.PathPrefix("/api").Subrouter()
	public.HandleFunc("/auth/register", h.register).Methods(http.MethodPost)
	public.HandleFunc("/auth/login", h.login).Methods(http.MethodPost)

	api := router.PathPrefix("/api").Subrouter()
	api.Use(h.authMiddleware)

	// Профиль
	api.HandleFunc("/me", h.getMe).Methods(http.MethodGet)
	api.HandleFunc("/me", h.updateMe).Methods(http.MethodPut)
	api.HandleFunc("/me/tutor", h.updateTutorProfile).Methods(http.MethodPut)
	api.HandleFunc("/me/student", h.updateStudentProfile).Methods(http.MethodPut)
	api.HandleFunc("/me/telegram", h.linkTelegram).Methods(http.MethodPut)
	api.HandleFunc("/users/{id:[0-9]+}", h.getUser).Methods(http.MethodGet)
	api.HandleFunc("/users/{id:[0-9]+}/stats", h.getUserStats).Methods(http.MethodGet)
	api.HandleFunc("/tutors", h.listTutors).Methods(http.MethodGet)

	// Доступность
	api.HandleFunc("/tutors/{id:[0-9]+}/availability", h.getAvailability).Methods(http.MethodGet)
	api.HandleFunc("/tutors/{id:[0-9]+}/availability", h.setAvailability).Methods(http.MethodPut)
	api.HandleFunc("/tutors/{id:[0-9]+}/slots", h.openSlots).Methods(http.MethodGet)
	api.HandleFunc("/me/blocked-dates", h.blockDate).Methods(http.MethodPost)
	api.HandleFunc("/me/blocked-dates/{id:[0-9]+}", h.unblockDate).Methods(http.MethodDelete)

	// Сессии
	api.HandleFunc("/sessions", h.listSessions).Methods(http.MethodGet)
	api.HandleFunc("/sessions", h.bookSession).Methods(http.MethodPost)
	api.HandleFunc("/sessions/week.png", h.weekImage).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id:[0-9]+}", h.getSession).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id:[0-9]+}/confirm", h.confirmSession).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id:[0-9]+}/cancel", h.cancelSession).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id:[0-9]+}/reschedule", h.rescheduleSession).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id:[0-9]+}/complete", h.completeSession).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id:[0-9]+}/rate", h.rateSession).Methods(http.MethodPost)

	// Сообщения
	api.HandleFunc("/conversations", h.listConversations).Methods(http.MethodGet)
	api.HandleFunc("/conversations", h.openConversation).Methods(http.MethodPost)
	api.HandleFunc("/conversations/{id:[0-9]+}/messages", h.listMessages).Methods(http.MethodGet)
	api.HandleFunc("/conversations/{id:[0-9]+}/messages", h.sendMessage).Methods(http.MethodPost)
	api.HandleFunc("/conversations/{id:[0-9]+}/read", h.markRead).Methods(http.MethodPost)
	api.HandleFunc("/messages/{id:[0-9]+}", h.editMessage).Methods(http.MethodPatch)
	api.HandleFunc("/messages/{id:[0-9]+}", h.deleteMessage).Methods(http.MethodDelete)
	api.HandleFunc("/messages/{id:[0-9]+}/reactions", h.reactToMessage).Methods(http.MethodPost)

	// Связи
	api.HandleFunc("/connections", h.listConnections).Methods(http.MethodGet)
	api.HandleFunc("/connections", h.requestConnection).Methods(http.MethodPost)
	api.HandleFunc("/connections/pending", h.pendingConnections).Methods(http.MethodGet)
	api.HandleFunc("/connections/status/{userID:[0-9]+}", h.connectionStatus).Methods(http.MethodGet)
	api.HandleFunc("/connections/{id:[0-9]+}/accept", h.acceptConnection).Methods(http.MethodPost)
	api.HandleFunc("/connections/{id:[0-9]+}/decline", h.declineConnection).Methods(http.MethodPost)
	api.HandleFunc("/connections/{id:[0-9]+}", h.removeConnection).Methods(http.MethodDelete)

	// Учебные планы
	api.HandleFunc("/study-plans", h.listPlans).Methods(http.MethodGet)
	api.HandleFunc("/study-plans", h.createPlan).Methods(http.MethodPost)
	api.HandleFunc("/study-plans/{id:[0-9]+}", h.getPlan).Methods(http.MethodGet)
	api.HandleFunc("/study-plans/{id:[0-9]+}", h.updatePlan).Methods(http.MethodPut)
	api.HandleFunc("/study-plans/{id:[0-9]+}", h.deletePlan).Methods(http.MethodDelete)
	api.HandleFunc("/study-plans/{id:[0-9]+}/archive", h.archivePlan).Methods(http.MethodPost)
	api.HandleFunc("/study-plans/{id:[0-9]+}/restore", h.restorePlan).Methods(http.MethodPost)
	api.HandleFunc("/study-plans/{id:[0-9]+}/modules", h.addModule).Methods(http.MethodPost)
	api.HandleFunc("/modules/{id:[0-9]+}", h.updateModule).Methods(http.MethodPut)
	api.HandleFunc("/modules/{id:[0-9]+}", h.deleteModule).Methods(http.MethodDelete)
	api.HandleFunc("/modules/{id:[0-9]+}/tasks", h.addTask).Methods(http.MethodPost)
	api.HandleFunc("/tasks/{id:[0-9]+}", h.updateTask).Methods(http.MethodPut)
	api.HandleFunc("/tasks/{id:[0-9]+}", h.deleteTask).Methods(http.MethodDelete)
	api.HandleFunc("/tasks/{id:[0-9]+}/toggle", h.toggleTask).Methods(http.MethodPost)
	api.HandleFunc("/tasks/{id:[0-9]+}/completion", h.setTaskCompleted).Methods(http.MethodPut)

	router.Handle("/ws", h.wsAuthMiddleware(http.HandlerFunc(h.serveWS))).Methods(http.MethodGet)

	c := cors.New(cors.Options{
		AllowedOrigins:   h.corsOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	return c.Handler(router)
}

func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		if err := h.health.Ping(ctx); err != nil {
			h.logger.Warn("Health check failed", zap.Error(err))
			respondError(w, http.StatusServiceUnavailable, "database is unavailable")
			return
		}
	}

	respondOK(w, map[string]string{"status": "ok"})
}

func (h *Handler) serveWS(w http.ResponseWriter, r *http.Request) {
	h.ws.ServeWS(w, r, userID(r))
}
