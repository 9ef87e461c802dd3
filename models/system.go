package models

import (
	"time"

	"gorm.io/datatypes"
)

type ActivityType string

const (
	ActivityOrderCreated      ActivityType = "ORDER_CREATED"
	ActivityPaymentReceived   ActivityType = "PAYMENT_RECEIVED"
	ActivityManualMessageSent ActivityType = "MANUAL_MESSAGE_SENT"
	ActivityTemplateSent      ActivityType = "TEMPLATE_SENT"
	ActivityPlanAdjusted      ActivityType = "PLAN_ADJUSTED"
	ActivityStatusUpdate      ActivityType = "STATUS_UPDATE"
)

type ActivityLog struct {
	ID         string         `json:"id" gorm:"primaryKey"`
	Timestamp  time.Time      `json:"timestamp" gorm:"index"`
	ActionType ActivityType   `json:"action_type" gorm:"type:varchar(24)"`
	Details    string         `json:"details"`
	Metadata   datatypes.JSON `json:"metadata,omitempty" gorm:"type:jsonb"`
}

type ErrorSeverity string

const (
	SeverityLow      ErrorSeverity = "LOW"
	SeverityMedium   ErrorSeverity = "MEDIUM"
	SeverityCritical ErrorSeverity = "CRITICAL"
)

type ErrorStatus string

const (
	ErrorNew          ErrorStatus = "NEW"
	ErrorAnalyzing    ErrorStatus = "ANALYZING"
	ErrorFixing       ErrorStatus = "FIXING"
	ErrorResolved     ErrorStatus = "RESOLVED"
	ErrorUnresolvable ErrorStatus = "UNRESOLVABLE"
)

// AppError is a captured background failure.
type AppError struct {
	ID             string        `json:"id" gorm:"primaryKey"`
	Timestamp      time.Time     `json:"timestamp" gorm:"index"`
	Source         string        `json:"source"`
	Message        string        `json:"message"`
	Severity       ErrorSeverity `json:"severity" gorm:"type:varchar(10)"`
	Status         ErrorStatus   `json:"status" gorm:"type:varchar(14)"`
	AIDiagnosis    string        `json:"ai_diagnosis,omitempty"`
	AIFixApplied   string        `json:"ai_fix_applied,omitempty"`
	ResolutionPath string        `json:"resolution_path,omitempty" gorm:"type:varchar(16)"`
	ResolutionCTA  string        `json:"resolution_cta,omitempty"`
}

// KVEntry backs the named-key state (settings, rate cache).
type KVEntry struct {
	Key       string         `json:"key" gorm:"primaryKey;size:64"`
	Value     datatypes.JSON `json:"value" gorm:"type:jsonb"`
	UpdatedAt time.Time      `json:"updated_at"`
}
