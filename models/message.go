package models

import (
	"time"

	"gorm.io/datatypes"
)

type MessageStatus string

const (
	MessageQueued    MessageStatus = "QUEUED"
	MessageSent      MessageStatus = "SENT"
	MessageDelivered MessageStatus = "DELIVERED"
	MessageRead      MessageStatus = "READ"
	MessageFailed    MessageStatus = "FAILED"
)

type MessageType string

const (
	MessageTypeTemplate    MessageType = "TEMPLATE"
	MessageTypeCustom      MessageType = "CUSTOM"
	MessageTypeAIRecovery  MessageType = "AI_RECOVERY"
	MessageTypeInbound     MessageType = "INBOUND"
	MessageTypeSystemAlert MessageType = "SYSTEM_ALERT"
)

// MessageLog is one WhatsApp message as seen by the communication log.
type MessageLog struct {
	ID           string        `json:"id" gorm:"primaryKey"`
	ExternalID   string        `json:"external_id" gorm:"index"`
	CustomerName string        `json:"customer_name"`
	PhoneNumber  string        `json:"phone_number" gorm:"index"`
	Message      string        `json:"message"`
	Status       MessageStatus `json:"status" gorm:"type:varchar(12)"`
	Type         MessageType   `json:"type" gorm:"type:varchar(16)"`
	Context      string        `json:"context"`
	Direction    string        `json:"direction" gorm:"type:varchar(10);default:outbound"`
	Timestamp    time.Time     `json:"timestamp" gorm:"index"`
}

// MessageTemplate is a WhatsApp template known to the store, either authored
// locally or mirrored from the provider.
type MessageTemplate struct {
	ID               uint                        `json:"id" gorm:"primaryKey"`
	Name             string                      `json:"name" gorm:"not null;uniqueIndex" validate:"required,max=512"`
	Content          string                      `json:"content" validate:"required"`
	Tactic           string                      `json:"tactic" gorm:"type:varchar(32)"`
	TargetProfile    string                      `json:"target_profile" gorm:"type:varchar(16)"`
	IsAIGenerated    bool                        `json:"is_ai_generated"`
	Source           string                      `json:"source" gorm:"type:varchar(8);default:LOCAL"`
	Category         string                      `json:"category" gorm:"type:varchar(16)" validate:"omitempty,oneof=UTILITY MARKETING AUTHENTICATION"`
	AppGroup         string                      `json:"app_group" gorm:"type:varchar(32)"`
	Status           string                      `json:"status" gorm:"type:varchar(12)"`
	VariableExamples datatypes.JSONSlice[string] `json:"variable_examples" gorm:"type:jsonb"`
}

type NotificationType string

const (
	NotifyUpcoming          NotificationType = "UPCOMING"
	NotifyOverdue           NotificationType = "OVERDUE"
	NotifySuccess           NotificationType = "SUCCESS"
	NotifyGeneral           NotificationType = "GENERAL"
	NotifyProtectionLapse   NotificationType = "PROTECTION_LAPSE"
	NotifyProtectionWarning NotificationType = "PROTECTION_WARNING"
)

// Notification is an entry in the notification centre.
type Notification struct {
	ID           string           `json:"id" gorm:"primaryKey"`
	Type         NotificationType `json:"type" gorm:"type:varchar(24);index"`
	OrderID      string           `json:"order_id" gorm:"index"`
	CustomerName string           `json:"customer_name"`
	Message      string           `json:"message"`
	Sent         bool             `json:"sent"`
	Tone         string           `json:"tone,omitempty" gorm:"type:varchar(24)"`
	Reasoning    string           `json:"strategy_reasoning,omitempty"`
	OutboxID     string           `json:"-" gorm:"index"`
	Date         time.Time        `json:"date" gorm:"index"`
}
