package protection

import (
	"fmt"
	"time"

	"auragold-backend/ledger"
	"auragold-backend/models"
)

const (
	GracePeriod    = 7 * 24 * time.Hour
	WarningCadence = 3 * time.Hour
)

type IntentKind string

const (
	// GraceNotice tells the customer the grace period has started.
	GraceNotice IntentKind = "GRACE_NOTICE"
	// RateWarning is the repeated reminder while the market is above the guarantee.
	RateWarning IntentKind = "RATE_WARNING"
	Lapse       IntentKind = "LAPSE"
)

// Intent is an outbound notification decided by a transition. Sending it is
// somebody else's job.
type Intent struct {
	Kind         IntentKind
	MilestoneSeq int
}

// Result is the outcome of evaluating one order.
type Result struct {
	Order      models.Order
	Changed    bool
	From       models.ProtectionStatus
	To         models.ProtectionStatus
	Repriced   bool
	DeltaCost  float64
	Intents    []Intent
	Activities []string
}

// Evaluate runs one step of the protection state machine for order at now
// with the given market rate. The input order is never modified; when
// Changed is false Result.Order is the input order as is.
func Evaluate(order models.Order, now time.Time, marketRate float64) Result {
	plan := order.PaymentPlan
	res := Result{Order: order, From: plan.ProtectionStatus, To: plan.ProtectionStatus}
	if !plan.GoldRateProtection || plan.ProtectionStatus == models.ProtectionLapsed {
		return res
	}

	overdue := ledger.FirstOverdue(plan.Milestones, now)
	if overdue < 0 {
		if plan.ProtectionStatus != models.ProtectionWarning {
			return res
		}
		next := order.Clone()
		next.PaymentPlan.ProtectionStatus = models.ProtectionActive
		next.PaymentPlan.GracePeriodEndAt = nil
		res.Order = next
		res.Changed = true
		res.To = models.ProtectionActive
		res.Activities = append(res.Activities,
			fmt.Sprintf("Protection Restored for %s (Payment Received)", order.CustomerName))
		return res
	}

	next := order.Clone()
	np := &next.PaymentPlan
	transitioned := false

	if np.ProtectionStatus == models.ProtectionActive {
		graceEnd := now.Add(GracePeriod)
		np.ProtectionStatus = models.ProtectionWarning
		np.GracePeriodEndAt = &graceEnd
		transitioned = true
		res.Changed = true
		res.Activities = append(res.Activities,
			fmt.Sprintf("Protection Risk: Grace period started for %s", order.CustomerName))
	} else if np.GracePeriodEndAt == nil {
		// A WARNING plan without a deadline gets a fresh grace period.
		graceEnd := now.Add(GracePeriod)
		np.GracePeriodEndAt = &graceEnd
		res.Changed = true
	}

	if now.After(*np.GracePeriodEndAt) {
		np.ProtectionStatus = models.ProtectionLapsed
		next.Status = models.OrderOverdue
		if marketRate > np.Threshold() {
			res.DeltaCost = ledger.Reprice(&next, marketRate)
			res.Repriced = true
		}
		res.Order = next
		res.Changed = true
		res.To = models.ProtectionLapsed
		res.Intents = append(res.Intents, Intent{Kind: Lapse, MilestoneSeq: np.Milestones[overdue].Seq})
		res.Activities = append(res.Activities,
			fmt.Sprintf("Protection Lapsed for %s", order.CustomerName))
		return res
	}

	warned := false
	if marketRate > np.Threshold() {
		m := &np.Milestones[overdue]
		if m.LastWarningSentAt == nil || now.Sub(*m.LastWarningSentAt) >= WarningCadence {
			stamp := now
			m.WarningCount++
			m.LastWarningSentAt = &stamp
			warned = true
			res.Changed = true
			res.Intents = append(res.Intents, Intent{Kind: RateWarning, MilestoneSeq: m.Seq})
		}
	}
	if transitioned && !warned {
		res.Intents = append(res.Intents, Intent{Kind: GraceNotice, MilestoneSeq: np.Milestones[overdue].Seq})
	}

	if res.Changed {
		res.Order = next
		res.To = np.ProtectionStatus
	}
	return res
}
