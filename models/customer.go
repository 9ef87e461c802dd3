package models

import "time"

// Customer is a manually entered profile. Order-linked customers are derived
// from orders and never stored here.
type Customer struct {
	ID               uint       `json:"id" gorm:"primaryKey"`
	Name             string     `json:"name" gorm:"not null"`
	Contact          string     `json:"contact" gorm:"not null;uniqueIndex"`
	SecondaryContact string     `json:"secondary_contact"`
	Email            string     `json:"email"`
	ReliabilityScore *int       `json:"reliability_score"`
	BehavioralTag    string     `json:"behavioral_tag" gorm:"type:varchar(32)"`
	AIInsight        string     `json:"ai_insight"`
	LastAnalysisDate *time.Time `json:"last_analysis_date"`
	CreatedAt        time.Time  `json:"join_date"`
}
