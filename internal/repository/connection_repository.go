package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/tutoring_hub/internal/model"
	"github.com/Freeeeeet/tutoring_hub/internal/repository/base"
)

const connectionColumns = `id, requester_id, addressee_id, status, message, created_at, responded_at`

type ConnectionRepository struct {
	*base.Repository
}

func NewConnectionRepository(b *base.Repository) *ConnectionRepository {
	return &ConnectionRepository{Repository: b}
}

func scanConnection(row rowScanner, c *model.Connection) error {
	return row.Scan(
		&c.ID,
		&c.RequesterID,
		&c.AddresseeID,
		&c.Status,
		&c.Message,
		&c.CreatedAt,
		&c.RespondedAt,
	)
}

// Create создаёт заявку
func (r *ConnectionRepository) Create(ctx context.Context, c *model.Connection) error {
	query := `
		INSERT INTO connections (requester_id, addressee_id, status, message)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err := r.QueryRow(ctx, query, c.RequesterID, c.AddresseeID, c.Status, c.Message).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		if base.IsUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create connection: %w", err)
	}

	return nil
}

// Reopen переиспользует отклонённую заявку пары для нового запроса
func (r *ConnectionRepository) Reopen(ctx context.Context, c *model.Connection) (bool, error) {
	query := `
		UPDATE connections
		SET requester_id = $1, addressee_id = $2, status = 'pending', message = $3,
		    created_at = NOW(), responded_at = NULL
		WHERE id = $4 AND status = 'declined'
		RETURNING created_at
	`

	err := r.QueryRow(ctx, query, c.RequesterID, c.AddresseeID, c.Message, c.ID).Scan(&c.CreatedAt)
	if err != nil {
		if base.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("reopen connection: %w", err)
	}

	c.Status = model.ConnectionStatusPending
	c.RespondedAt = nil
	return true, nil
}

// GetByID получает заявку по ID
func (r *ConnectionRepository) GetByID(ctx context.Context, id int64) (*model.Connection, error) {
	query := `SELECT ` + connectionColumns + ` FROM connections WHERE id = $1`

	var c model.Connection
	if err := scanConnection(r.QueryRow(ctx, query, id), &c); err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get connection: %w", err)
	}

	return &c, nil
}

// GetBetween получает связь пары пользователей независимо от направления
func (r *ConnectionRepository) GetBetween(ctx context.Context, userA, userB int64) (*model.Connection, error) {
	query := `
		SELECT ` + connectionColumns + `
		FROM connections
		WHERE (requester_id = $1 AND addressee_id = $2)
		   OR (requester_id = $2 AND addressee_id = $1)
	`

	var c model.Connection
	if err := scanConnection(r.QueryRow(ctx, query, userA, userB), &c); err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get connection between users: %w", err)
	}

	return &c, nil
}

// Respond переводит заявку из pending в status. Возвращает false, если заявка уже не pending.
func (r *ConnectionRepository) Respond(ctx context.Context, id int64, status model.ConnectionStatus, at time.Time) (bool, error) {
	query := `
		UPDATE connections
		SET status = $1, responded_at = $2
		WHERE id = $3 AND status = 'pending'
	`

	affected, err := r.ExecAffected(ctx, query, status, at, id)
	if err != nil {
		return false, fmt.Errorf("respond to connection: %w", err)
	}

	return affected == 1, nil
}

// Delete удаляет связь
func (r *ConnectionRepository) Delete(ctx context.Context, id int64) error {
	affected, err := r.ExecAffected(ctx, `DELETE FROM connections WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete connection: %w", err)
	}

	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

// ListByStatus получает связи пользователя в статусе status
func (r *ConnectionRepository) ListByStatus(ctx context.Context, userID int64, status model.ConnectionStatus) ([]*model.Connection, error) {
	query := `
		SELECT ` + connectionColumns + `
		FROM connections
		WHERE (requester_id = $1 OR addressee_id = $1) AND status = $2
		ORDER BY COALESCE(responded_at, created_at) DESC
	`

	rows, err := r.Query(ctx, query, userID, status)
	if err != nil {
		return nil, fmt.Errorf("list connections: %w", err)
	}
	defer rows.Close()

	connections := []*model.Connection{}
	for rows.Next() {
		var c model.Connection
		if err := scanConnection(rows, &c); err != nil {
			return nil, fmt.Errorf("scan connection: %w", err)
		}
		connections = append(connections, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate connections: %w", err)
	}

	return connections, nil
}

// CountAccepted подсчитывает установленные связи пользователя
func (r *ConnectionRepository) CountAccepted(ctx context.Context, userID int64) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM connections
		WHERE (requester_id = $1 OR addressee_id = $1) AND status = 'accepted'
	`

	var count int
	if err := r.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count connections: %w", err)
	}

	return count, nil
}
