package gemini

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"auragold-backend/errorlog"
	"auragold-backend/ledger"
	"auragold-backend/models"

	"github.com/shopspring/decimal"
)

type Tone string

const (
	TonePolite    Tone = "POLITE"
	ToneFirm      Tone = "FIRM"
	ToneUrgent    Tone = "URGENT_PANIC"
	ToneEncourage Tone = "ENCOURAGING_TRICK"
)

const maxLogsInPrompt = 15

// ReminderDraft is a suggested collection message.
type ReminderDraft struct {
	Message   string `json:"message"`
	Tone      Tone   `json:"tone"`
	Reasoning string `json:"reasoning"`
}

// DraftReminder asks for a collection message for order. kind is one of
// UPCOMING, OVERDUE or SUCCESS.
func (c *Client) DraftReminder(ctx context.Context, order models.Order, kind models.NotificationType, goldRate float64) (ReminderDraft, error) {
	prompt := fmt.Sprintf(`Act as the 'Chief Collection Strategist' for AuraGold Luxury Jewelry.
Context:
- Customer: %s
- Balance Due: INR %s
- Milestone Type: %s
- Current 22K rate: INR %.0f/g

Decide the psychological tone and write a WhatsApp message.
Return JSON: { "tone": "POLITE" | "FIRM" | "URGENT_PANIC" | "ENCOURAGING_TRICK", "reasoning": "...", "message": "..." }`,
		order.CustomerName, inr(ledger.Balance(order)), kind, goldRate)

	var draft ReminderDraft
	if err := c.generateJSON(ctx, prompt, &draft); err != nil || draft.Message == "" {
		if err == nil {
			err = fmt.Errorf("gemini returned an empty draft")
		}
		return ReminderDraft{
			Tone:      TonePolite,
			Reasoning: "Fallback due to AI error.",
			Message:   fmt.Sprintf("Hello %s, just a reminder regarding your balance for your jewelry order.", order.CustomerName),
		}, err
	}
	if draft.Tone == "" {
		draft.Tone = TonePolite
	}
	return draft, nil
}

// PaymentDigest summarises how a customer has paid so far.
type PaymentDigest struct {
	Milestones  int
	Late        int
	AvgDelay    int
	Reliability float64
}

// Digest counts unpaid milestones past due as late. PAID milestones count as
// on time since payments are not linked to a milestone.
func Digest(orders []models.Order, now time.Time) PaymentDigest {
	var d PaymentDigest
	delayDays := 0
	for _, o := range orders {
		for _, m := range o.PaymentPlan.Milestones {
			d.Milestones++
			if m.Status == models.MilestonePaid || !m.DueDate.Before(now) {
				continue
			}
			d.Late++
			delayDays += int(math.Ceil(now.Sub(m.DueDate).Hours() / 24))
		}
	}
	if d.Late > 0 {
		d.AvgDelay = int(math.Round(float64(delayDays) / float64(d.Late)))
	}
	d.Reliability = 100
	if d.Milestones > 0 {
		d.Reliability = float64(d.Milestones-d.Late) / float64(d.Milestones) * 100
	}
	return d
}

// RiskReport is a creditworthiness assessment of one customer.
type RiskReport struct {
	Score                 int    `json:"score"`
	RiskLevel             string `json:"riskLevel"`
	Persona               string `json:"persona"`
	CommunicationStrategy string `json:"communicationStrategy"`
	NegotiationLeverage   string `json:"negotiationLeverage"`
	RecommendedTone       Tone   `json:"recommendedTone"`
	NextBestAction        string `json:"nextBestAction"`
}

func fallbackRiskReport() RiskReport {
	return RiskReport{
		Score:                 50,
		RiskLevel:             "MODERATE",
		Persona:               "Unknown Entity",
		CommunicationStrategy: "Maintain standard professional follow-ups.",
		NegotiationLeverage:   "Standard terms.",
		RecommendedTone:       TonePolite,
		NextBestAction:        "Manual Review",
	}
}

// AssessRisk scores a customer from their orders and recent conversation.
func (c *Client) AssessRisk(ctx context.Context, name string, totalSpent float64, orders []models.Order, logs []models.MessageLog) (RiskReport, error) {
	d := Digest(orders, c.now())

	var history strings.Builder
	for i, l := range logs {
		if i == maxLogsInPrompt {
			break
		}
		fmt.Fprintf(&history, "[%s][%s]: %s\n", strings.ToUpper(l.Direction), l.Status, l.Message)
	}

	prompt := fmt.Sprintf(`Act as a Senior Credit Risk & Behavioral Analyst for a Luxury Gold Jeweler.
Analyze this customer profile:
- Name: %s
- Total Spent: INR %s
- Payment Reliability: %.1f%% (Percentage of on-time milestones)
- Avg Delay on Late Payments: %d days

Recent Communication History:
%s
Return JSON: { "score": number 0-100, "riskLevel": "LOW" | "MODERATE" | "HIGH" | "CRITICAL", "persona": string, "communicationStrategy": string, "negotiationLeverage": string, "recommendedTone": "POLITE" | "FIRM" | "URGENT_PANIC" | "ENCOURAGING_TRICK", "nextBestAction": string }`,
		name, inr(totalSpent), d.Reliability, d.AvgDelay, history.String())

	var report RiskReport
	if err := c.generateJSON(ctx, prompt, &report); err != nil {
		return fallbackRiskReport(), err
	}
	if report.RiskLevel == "" {
		return fallbackRiskReport(), fmt.Errorf("gemini returned an incomplete risk report")
	}
	return report, nil
}

// AnalyzeCollectionRisk suggests a recovery plan for the overdue orders.
func (c *Client) AnalyzeCollectionRisk(ctx context.Context, overdue []models.Order) (string, error) {
	if len(overdue) == 0 {
		return "No collection risks currently.", nil
	}
	var summary strings.Builder
	for _, o := range overdue {
		fmt.Fprintf(&summary, "%s: Due INR %s\n", o.CustomerName, decimal.NewFromFloat(ledger.Balance(o)).StringFixed(2))
	}
	text, err := c.generate(ctx, "Analyze overdue orders and suggest recovery strategy:\n"+summary.String(), false)
	if err != nil {
		return "Focus on the oldest overdue accounts first.", err
	}
	if strings.TrimSpace(text) == "" {
		return "Prioritize high-value overdue accounts.", nil
	}
	return text, nil
}

// DiagnoseError explains a captured failure and proposes where to fix it.
func (c *Client) DiagnoseError(ctx context.Context, message, source string) (errorlog.Diagnosis, error) {
	prompt := fmt.Sprintf(`Analyze this AuraGold system error:
ERROR: %q
SOURCE: %q

Context:
- 'settings': For API key (403), token, or gold rate issues.
- 'templates': For WhatsApp template naming (132001), formatting, or rejection.
- 'whatsapp': For general messaging failures.

Return JSON: { "explanation": "Human readable cause", "action": "REPAIR_TEMPLATE" | "RETRY_API" | "CHECK_CREDENTIALS" | "NONE", "path": "settings" | "templates" | "whatsapp" | "waLogs" | "dashboard" | "none", "cta": "Fix Now" }`,
		message, source)

	var out struct {
		Explanation string `json:"explanation"`
		Action      string `json:"action"`
		Path        string `json:"path"`
		CTA         string `json:"cta"`
	}
	if err := c.generateJSON(ctx, prompt, &out); err != nil {
		return errorlog.Diagnosis{
			Explanation: "Resolution Engine connectivity lost. Check API credentials in Settings.",
			Action:      "NONE",
			Path:        "settings",
			CTA:         "Verify API Key",
		}, err
	}
	return errorlog.Diagnosis{
		Explanation: orDefault(out.Explanation, "Diagnostic incomplete."),
		Action:      orDefault(out.Action, "NONE"),
		Path:        orDefault(out.Path, "none"),
		CTA:         orDefault(out.CTA, "View Fix"),
	}, nil
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func inr(v float64) string {
	return decimal.NewFromFloat(v).Round(2).String()
}
