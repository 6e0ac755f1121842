package model

import "time"

type ConnectionStatus string

// Connection status constants
const (
	ConnectionStatusPending  ConnectionStatus = "pending"
	ConnectionStatusAccepted ConnectionStatus = "accepted"
	ConnectionStatusDeclined ConnectionStatus = "declined"
)

// Connection represents a request/accept relationship between two users
type Connection struct {
	ID          int64            `json:"id"`
	RequesterID int64            `json:"requester_id"`
	AddresseeID int64            `json:"addressee_id"`
	Status      ConnectionStatus `json:"status"`
	Message     string           `json:"message"`
	CreatedAt   time.Time        `json:"created_at"`
	RespondedAt *time.Time       `json:"responded_at"`

	OtherUser *User `json:"other_user,omitempty"`
}

// IsPending checks if connection awaits an answer
func (c *Connection) IsPending() bool {
	return c.Status == ConnectionStatusPending
}

// IsAccepted checks if connection is established
func (c *Connection) IsAccepted() bool {
	return c.Status == ConnectionStatusAccepted
}

// Involves checks if user is either side of the connection
func (c *Connection) Involves(userID int64) bool {
	return c.RequesterID == userID || c.AddresseeID == userID
}

// OtherParticipant returns the id of the other side
func (c *Connection) OtherParticipant(userID int64) int64 {
	if c.RequesterID == userID {
		return c.AddresseeID
	}
	return c.RequesterID
}
