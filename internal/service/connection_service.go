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

const maxConnectionMessageLength = 500

// PendingConnections входящие и исходящие заявки пользователя
type PendingConnections struct {
	Incoming []*model.Connection `json:"incoming"`
	Outgoing []*model.Connection `json:"outgoing"`
}

// ConnectionState состояние связи с другим пользователем с точки зрения текущего
type ConnectionState struct {
	Status     string            `json:"status"`              // none, pending, accepted, declined
	Direction  string            `json:"direction,omitempty"` // incoming, outgoing
	Connection *model.Connection `json:"connection,omitempty"`
}

type ConnectionService struct {
	tx             TxManager
	connectionRepo ConnectionRepository
	userRepo       UserRepository
	notifier       Notifier
	now            func() time.Time
	logger         *zap.Logger
}

func NewConnectionService(
	tx TxManager,
	connectionRepo ConnectionRepository,
	userRepo UserRepository,
	notifier Notifier,
	logger *zap.Logger,
) *ConnectionService {
	return &ConnectionService{
		tx:             tx,
		connectionRepo: connectionRepo,
		userRepo:       userRepo,
		notifier:       notifier,
		now:            time.Now,
		logger:         logger,
	}
}

// Request отправляет заявку на связь. Отклонённая ранее пара может запросить снова.
func (s *ConnectionService) Request(ctx context.Context, userID, targetID int64, message string) (*model.Connection, error) {
	if userID == targetID {
		return nil, invalid("you cannot connect with yourself")
	}

	message = strings.TrimSpace(message)
	if len(message) > maxConnectionMessageLength {
		return nil, invalid("message must be at most %d characters", maxConnectionMessageLength)
	}

	target, err := s.userRepo.GetByID(ctx, targetID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if target == nil {
		return nil, ErrUserNotFound
	}

	connection := &model.Connection{
		RequesterID: userID,
		AddresseeID: targetID,
		Status:      model.ConnectionStatusPending,
		Message:     message,
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		existing, err := s.connectionRepo.GetBetween(ctx, userID, targetID)
		if err != nil {
			return err
		}

		if existing == nil {
			return s.connectionRepo.Create(ctx, connection)
		}

		if existing.Status != model.ConnectionStatusDeclined {
			return ErrConnectionExists
		}

		connection.ID = existing.ID
		reopened, err := s.connectionRepo.Reopen(ctx, connection)
		if err != nil {
			return err
		}
		if !reopened {
			return ErrConnectionExists
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) || errors.Is(err, ErrConnectionExists) {
			return nil, ErrConnectionExists
		}
		return nil, fmt.Errorf("request connection: %w", err)
	}

	s.logger.Info("Connection requested",
		zap.Int64("connection_id", connection.ID),
		zap.Int64("requester_id", userID),
		zap.Int64("addressee_id", targetID),
	)

	s.notifier.Notify(ctx, targetID, "You have a new connection request")

	connection.OtherUser = target
	return connection, nil
}

// Accept принимает входящую заявку
func (s *ConnectionService) Accept(ctx context.Context, userID, connectionID int64) (*model.Connection, error) {
	return s.respond(ctx, userID, connectionID, model.ConnectionStatusAccepted)
}

// Decline отклоняет входящую заявку
func (s *ConnectionService) Decline(ctx context.Context, userID, connectionID int64) (*model.Connection, error) {
	return s.respond(ctx, userID, connectionID, model.ConnectionStatusDeclined)
}

// respond переводит заявку из pending ровно один раз; гонку решает условный UPDATE
func (s *ConnectionService) respond(ctx context.Context, userID, connectionID int64, status model.ConnectionStatus) (*model.Connection, error) {
	connection, err := s.connectionRepo.GetByID(ctx, connectionID)
	if err != nil {
		return nil, fmt.Errorf("get connection: %w", err)
	}
	if connection == nil {
		return nil, ErrConnectionNotFound
	}
	if connection.AddresseeID != userID {
		if connection.RequesterID == userID {
			return nil, ErrForbidden
		}
		return nil, ErrConnectionNotFound
	}
	if !connection.IsPending() {
		return nil, ErrAlreadyResponded
	}

	at := s.now()
	ok, err := s.connectionRepo.Respond(ctx, connectionID, status, at)
	if err != nil {
		return nil, fmt.Errorf("respond to connection: %w", err)
	}
	if !ok {
		return nil, ErrAlreadyResponded
	}

	connection.Status = status
	connection.RespondedAt = &at

	s.logger.Info("Connection answered",
		zap.Int64("connection_id", connectionID),
		zap.String("status", string(status)),
	)

	if status == model.ConnectionStatusAccepted {
		s.notifier.Notify(ctx, connection.RequesterID, "Your connection request was accepted")
	}

	return connection, nil
}

// Remove удаляет установленную связь (любая сторона)
func (s *ConnectionService) Remove(ctx context.Context, userID, connectionID int64) error {
	connection, err := s.connectionRepo.GetByID(ctx, connectionID)
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	if connection == nil || !connection.Involves(userID) {
		return ErrConnectionNotFound
	}
	if !connection.IsAccepted() {
		return ErrNotConnected
	}

	if err := s.connectionRepo.Delete(ctx, connectionID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrConnectionNotFound
		}
		return fmt.Errorf("delete connection: %w", err)
	}

	s.logger.Info("Connection removed", zap.Int64("connection_id", connectionID), zap.Int64("removed_by", userID))
	return nil
}

// List получает установленные связи пользователя
func (s *ConnectionService) List(ctx context.Context, userID int64) ([]*model.Connection, error) {
	connections, err := s.connectionRepo.ListByStatus(ctx, userID, model.ConnectionStatusAccepted)
	if err != nil {
		return nil, fmt.Errorf("list connections: %w", err)
	}

	if err := s.attachOtherUsers(ctx, userID, connections); err != nil {
		return nil, err
	}

	return connections, nil
}

// Pending получает входящие и исходящие заявки
func (s *ConnectionService) Pending(ctx context.Context, userID int64) (*PendingConnections, error) {
	connections, err := s.connectionRepo.ListByStatus(ctx, userID, model.ConnectionStatusPending)
	if err != nil {
		return nil, fmt.Errorf("list pending connections: %w", err)
	}

	if err := s.attachOtherUsers(ctx, userID, connections); err != nil {
		return nil, err
	}

	result := &PendingConnections{
		Incoming: []*model.Connection{},
		Outgoing: []*model.Connection{},
	}
	for _, c := range connections {
		if c.AddresseeID == userID {
			result.Incoming = append(result.Incoming, c)
		} else {
			result.Outgoing = append(result.Outgoing, c)
		}
	}

	return result, nil
}

// Status получает состояние связи с пользователем otherID
func (s *ConnectionService) Status(ctx context.Context, userID, otherID int64) (*ConnectionState, error) {
	connection, err := s.connectionRepo.GetBetween(ctx, userID, otherID)
	if err != nil {
		return nil, fmt.Errorf("get connection: %w", err)
	}
	if connection == nil {
		return &ConnectionState{Status: "none"}, nil
	}

	direction := "outgoing"
	if connection.AddresseeID == userID {
		direction = "incoming"
	}

	return &ConnectionState{
		Status:     string(connection.Status),
		Direction:  direction,
		Connection: connection,
	}, nil
}

func (s *ConnectionService) attachOtherUsers(ctx context.Context, userID int64, connections []*model.Connection) error {
	if len(connections) == 0 {
		return nil
	}

	ids := make([]int64, 0, len(connections))
	for _, c := range connections {
		ids = append(ids, c.OtherParticipant(userID))
	}

	users, err := s.userRepo.GetByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("get connection users: %w", err)
	}

	byID := make(map[int64]*model.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	for _, c := range connections {
		c.OtherUser = byID[c.OtherParticipant(userID)]
	}

	return nil
}
