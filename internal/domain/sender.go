package domain

import "time"

type SenderStatus string

const (
	SenderConnected    SenderStatus = "connected"
	SenderDisconnected SenderStatus = "disconnected"
)

// Sender is a waapi credential. Token is never serialized back to clients.
type Sender struct {
	ID         int64        `db:"id" json:"id"`
	Name       string       `db:"name" json:"name"`
	Token      string       `db:"token" json:"-"`
	InstanceID *string      `db:"instance_id" json:"instanceId,omitempty"`
	Status     SenderStatus `db:"status" json:"status"`
	CreatedAt  time.Time    `db:"created_at" json:"createdAt"`
}

func (s *Sender) HasInstanceID() bool {
	return s.InstanceID != nil && *s.InstanceID != ""
}

func (s *Sender) InstanceIDValue() string {
	if s.InstanceID == nil {
		return ""
	}
	return *s.InstanceID
}

// MigrationResult records one sender's outcome in the instance id migration.
type MigrationResult struct {
	SenderID   int64        `json:"senderId"`
	SenderName string       `json:"senderName"`
	Success    bool         `json:"success"`
	InstanceID string       `json:"instanceId,omitempty"`
	Status     SenderStatus `json:"status,omitempty"`
	Error      string       `json:"error,omitempty"`
}

type MigrationReport struct {
	Processed int               `json:"totalProcessed"`
	Succeeded int               `json:"successCount"`
	Failed    int               `json:"failureCount"`
	Results   []MigrationResult `json:"results"`
}
