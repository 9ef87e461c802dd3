package database

import (
	"fmt"

	"auragold-backend/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var DefaultPlanTemplates = []models.PlanTemplate{
	{Name: "Short Term (3 Months)", Months: 3, InterestPercentage: 0, AdvancePercentage: 20, Enabled: true},
	{Name: "Standard (6 Months)", Months: 6, InterestPercentage: 5, AdvancePercentage: 15, Enabled: true},
	{Name: "Long Term (12 Months)", Months: 12, InterestPercentage: 8, AdvancePercentage: 10, Enabled: true},
}

var DefaultMessageTemplates = []models.MessageTemplate{
	{
		Name:          "welcome_initiate",
		Content:       "Hello {{name}}, welcome to AuraGold! We are excited to assist you with your jewelry journey. How can we help you today?",
		Tactic:        "EMPATHY",
		TargetProfile: "REGULAR",
		Source:        "LOCAL",
		Category:      "MARKETING",
	},
	{
		Name:          "gentle_nudge_vip",
		Content:       "Hello {{name}}, we hope you're enjoying your day! Just a small reminder about your upcoming installment of ₹{{amount}}. We appreciate your consistent trust in AuraGold.",
		Tactic:        "EMPATHY",
		TargetProfile: "VIP",
		Source:        "LOCAL",
		Category:      "UTILITY",
	},
	{
		Name:          "rate_protection_warning",
		Content:       "Dear {{name}}, urgent reminder: Your Gold Rate Protection expires in 24 hours if the payment of ₹{{amount}} isn't cleared. Don't lose your locked-in rate!",
		Tactic:        "LOSS_AVERSION",
		TargetProfile: "HIGH_RISK",
		Source:        "LOCAL",
		Category:      "UTILITY",
	},
	{
		Name:             "auragold_order_confirmation",
		Content:          "Hello {{1}}, thank you for shopping with AuraGold! Your order {{2}} ({{3}}) has been placed. Track your order here: {{4}}",
		Source:           "SYSTEM",
		Category:         "UTILITY",
		AppGroup:         "SYSTEM",
		VariableExamples: datatypes.JSONSlice[string]{"John Doe", "ORD-12345", "₹50,000", "https://auragold.example/view/AbCd123"},
	},
	{
		Name:             "auragold_payment_request",
		Content:          "Dear {{1}}, a gentle reminder that your payment of {{2}} is due by {{3}}. View your plan here: {{4}}",
		Source:           "SYSTEM",
		Category:         "UTILITY",
		AppGroup:         "SYSTEM",
		VariableExamples: datatypes.JSONSlice[string]{"Sarah", "₹12,500", "25 Oct 2023", "https://auragold.example/view/XyZ987"},
	},
	{
		Name:             "auragold_production_update",
		Content:          "Great news {{1}}! Your {{2}} has moved to the {{3}} stage. See updates here: {{4}}",
		Source:           "SYSTEM",
		Category:         "UTILITY",
		AppGroup:         "SYSTEM",
		VariableExamples: datatypes.JSONSlice[string]{"Michael", "Diamond Ring", "Quality Check", "https://auragold.example/view/LmNoP456"},
	},
	{
		Name:             "auragold_rate_warning",
		Content:          "URGENT: Dear {{1}}, gold rate (₹{{2}}/g) has crossed your protection limit. Your payment of ₹{{3}} is overdue. Pay within {{4}} days to retain your booked rate.",
		Source:           "SYSTEM",
		Category:         "UTILITY",
		AppGroup:         "SYSTEM",
		VariableExamples: datatypes.JSONSlice[string]{"Rajesh", "7200", "15000", "6"},
	},
	{
		Name:             "auragold_protection_lapsed",
		Content:          "ALERT: Dear {{1}}, your Gold Rate Protection has lapsed due to non-payment. Your new order total is ₹{{2}} as per today's market rate. Please contact us.",
		Source:           "SYSTEM",
		Category:         "UTILITY",
		AppGroup:         "SYSTEM",
		VariableExamples: datatypes.JSONSlice[string]{"Rajesh", "1,25,000"},
	},
}

// Seed inserts the default templates. Rows that already exist by name are
// left alone so edits made by staff survive a re-migrate.
func Seed(tx *gorm.DB) error {
	plans := append([]models.PlanTemplate(nil), DefaultPlanTemplates...)
	if err := tx.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
		Create(&plans).Error; err != nil {
		return fmt.Errorf("seed plan templates: %w", err)
	}
	templates := append([]models.MessageTemplate(nil), DefaultMessageTemplates...)
	if err := tx.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
		Create(&templates).Error; err != nil {
		return fmt.Errorf("seed message templates: %w", err)
	}
	return nil
}
