package models

import (
	"time"

	"gorm.io/datatypes"
)

type OutboxKind string

const (
	OutboxTemplate OutboxKind = "TEMPLATE"
	OutboxText     OutboxKind = "TEXT"
)

type OutboxStatus string

const (
	OutboxPending OutboxStatus = "PENDING"
	OutboxSending OutboxStatus = "SENDING"
	OutboxSent    OutboxStatus = "SENT"
	OutboxFailed  OutboxStatus = "FAILED"
)

// OutboxMessage is an outbound message intent, written in the same
// transaction as the state change that caused it.
type OutboxMessage struct {
	ID           string                      `json:"id" gorm:"primaryKey"`
	Kind         OutboxKind                  `json:"kind" gorm:"type:varchar(10)"`
	OrderID      string                      `json:"order_id" gorm:"index"`
	Phone        string                      `json:"phone"`
	CustomerName string                      `json:"customer_name"`
	Template     string                      `json:"template,omitempty"`
	Language     string                      `json:"language,omitempty" gorm:"type:varchar(10)"`
	Variables    datatypes.JSONSlice[string] `json:"variables,omitempty" gorm:"type:jsonb"`
	Body         string                      `json:"body,omitempty"`
	Context      string                      `json:"context"`
	Status       OutboxStatus                `json:"status" gorm:"type:varchar(10);index:idx_outbox_status_created,priority:1"`
	Attempts     int                         `json:"attempts"`
	LastError    string                      `json:"last_error,omitempty"`
	CreatedAt    time.Time                   `json:"created_at" gorm:"index:idx_outbox_status_created,priority:2"`
	SentAt       *time.Time                  `json:"sent_at"`
}
