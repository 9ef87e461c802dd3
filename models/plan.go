package models

import "time"

type PlanType string

const (
	PlanPreCreated PlanType = "PRE_CREATED"
	PlanManual     PlanType = "MANUAL"
)

type ProtectionStatus string

const (
	ProtectionActive  ProtectionStatus = "ACTIVE"
	ProtectionWarning ProtectionStatus = "WARNING"
	ProtectionLapsed  ProtectionStatus = "LAPSED"
)

type MilestoneStatus string

const (
	MilestonePending MilestoneStatus = "PENDING"
	MilestonePaid    MilestoneStatus = "PAID"
	MilestonePartial MilestoneStatus = "PARTIAL"
)

// PaymentPlan belongs to exactly one order.
type PaymentPlan struct {
	ID                   uint             `json:"-" gorm:"primaryKey"`
	OrderID              string           `json:"-" gorm:"uniqueIndex;not null"`
	Type                 PlanType         `json:"type" gorm:"type:varchar(20)"`
	TemplateID           *uint            `json:"template_id"`
	Months               int              `json:"months"`
	InterestPercentage   float64          `json:"interest_percentage"`
	AdvancePercentage    float64          `json:"advance_percentage"`
	Milestones           []Milestone      `json:"milestones" gorm:"foreignKey:PlanID;constraint:OnDelete:CASCADE"`
	GoldRateProtection   bool             `json:"gold_rate_protection"`
	ProtectionLimit      float64          `json:"protection_limit" gorm:"type:numeric(12,2)"`
	ProtectionRateBooked float64          `json:"protection_rate_booked" gorm:"type:numeric(12,2)"`
	ProtectionDeadline   time.Time        `json:"protection_deadline"`
	ProtectionStatus     ProtectionStatus `json:"protection_status" gorm:"type:varchar(10);index"`
	GracePeriodEndAt     *time.Time       `json:"grace_period_end_at"`
}

func (plan PaymentPlan) Clone() PaymentPlan {
	out := plan
	out.Milestones = make([]Milestone, len(plan.Milestones))
	for i, m := range plan.Milestones {
		out.Milestones[i] = m
		if m.LastWarningSentAt != nil {
			t := *m.LastWarningSentAt
			out.Milestones[i].LastWarningSentAt = &t
		}
	}
	if plan.GracePeriodEndAt != nil {
		t := *plan.GracePeriodEndAt
		out.GracePeriodEndAt = &t
	}
	if plan.TemplateID != nil {
		id := *plan.TemplateID
		out.TemplateID = &id
	}
	return out
}

// Threshold is the market rate above which the guarantee costs the store money.
func (plan PaymentPlan) Threshold() float64 {
	return plan.ProtectionRateBooked + plan.ProtectionLimit
}

// Milestone is one scheduled installment. Status is derived from payments.
type Milestone struct {
	ID                uint            `json:"id" gorm:"primaryKey"`
	PlanID            uint            `json:"-" gorm:"index:idx_milestones_plan_seq,unique,priority:1"`
	Seq               int             `json:"seq" gorm:"not null;index:idx_milestones_plan_seq,unique,priority:2"`
	DueDate           time.Time       `json:"due_date"`
	TargetAmount      float64         `json:"target_amount" gorm:"type:numeric(12,2)"`
	CumulativeTarget  float64         `json:"cumulative_target" gorm:"type:numeric(12,2)"`
	Status            MilestoneStatus `json:"status" gorm:"type:varchar(10)"`
	WarningCount      int             `json:"warning_count"`
	LastWarningSentAt *time.Time      `json:"last_warning_sent_at"`
}

// PlanTemplate is a reusable pre-created plan offered at order intake.
type PlanTemplate struct {
	ID                 uint    `json:"id" gorm:"primaryKey"`
	Name               string  `json:"name" gorm:"not null;unique" validate:"required"`
	Months             int     `json:"months" validate:"gte=1,lte=60"`
	InterestPercentage float64 `json:"interest_percentage" validate:"gte=0"`
	AdvancePercentage  float64 `json:"advance_percentage" validate:"gte=0,lte=100"`
	Enabled            bool    `json:"enabled"`
}
