package ledger

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"auragold-backend/models"
	"auragold-backend/utils"

	"github.com/google/uuid"
)

var (
	ErrEmptyCart          = errors.New("order has no items")
	ErrMissingCustomer    = errors.New("customer name and contact are required")
	ErrNoMilestones       = errors.New("payment plan has no milestones")
	ErrAllocationMismatch = errors.New("milestone allocation does not match order total")
)

// AllocationTolerance is how far a manual plan may be from the grand total.
const AllocationTolerance = 1.0

// ManualMilestone is one negotiated installment as entered at intake.
type ManualMilestone struct {
	DueDate      time.Time
	TargetAmount float64
}

// PlanInput describes the plan chosen at intake.
type PlanInput struct {
	Type                 models.PlanType
	TemplateID           *uint
	Months               int
	InterestPercentage   float64
	AdvancePercentage    float64
	Manual               []ManualMilestone
	GoldRateProtection   bool
	ProtectionLimit      float64
	ProtectionRateBooked float64
}

// NewOrderInput is everything needed to book an order.
type NewOrderInput struct {
	CustomerName      string
	CustomerContact   string
	SecondaryContact  string
	CustomerEmail     string
	Items             []models.JewelryItem
	AdditionalCharges float64
	Rates             Rates
	TaxRate           float64
	Plan              PlanInput
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// GenerateMilestones builds a pre-created plan: an advance due on start, then
// equal monthly installments. Installments are rounded to whole currency
// units and the last one absorbs the remainder, so the targets always add up
// to total.
func GenerateMilestones(total float64, months int, advancePercentage float64, start time.Time) []models.Milestone {
	if months < 1 {
		months = 1
	}
	total = utils.Round2(total)
	start = dateOnly(start)
	advance := math.Round(total * advancePercentage / 100)
	perMonth := math.Round((total - advance) / float64(months))

	ms := make([]models.Milestone, 0, months+1)
	ms = append(ms, models.Milestone{Seq: 0, DueDate: start, TargetAmount: advance, Status: models.MilestonePending})
	allocated := advance
	for i := 1; i <= months; i++ {
		target := perMonth
		if i == months {
			target = utils.Round2(total - allocated)
		}
		allocated = utils.Round2(allocated + target)
		ms = append(ms, models.Milestone{
			Seq:          i,
			DueDate:      start.AddDate(0, i, 0),
			TargetAmount: target,
			Status:       models.MilestonePending,
		})
	}
	rebuildCumulative(ms)
	return ms
}

// BuildManualMilestones orders negotiated installments by due date and checks
// that they allocate the whole total.
func BuildManualMilestones(input []ManualMilestone, total float64) ([]models.Milestone, error) {
	if len(input) == 0 {
		return nil, ErrNoMilestones
	}
	sorted := append([]ManualMilestone(nil), input...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].DueDate.Before(sorted[j].DueDate) })

	ms := make([]models.Milestone, len(sorted))
	allocated := 0.0
	for i, m := range sorted {
		if m.TargetAmount <= 0 {
			return nil, fmt.Errorf("milestone %d: %w", i+1, ErrInvalidAmount)
		}
		allocated += m.TargetAmount
		ms[i] = models.Milestone{
			Seq:          i,
			DueDate:      dateOnly(m.DueDate),
			TargetAmount: utils.Round2(m.TargetAmount),
			Status:       models.MilestonePending,
		}
	}
	if math.Abs(utils.Round2(allocated)-utils.Round2(total)) > AllocationTolerance {
		return nil, fmt.Errorf("%w: allocated %.2f of %.2f", ErrAllocationMismatch, allocated, total)
	}
	rebuildCumulative(ms)
	return ms, nil
}

// NewShareToken returns a random token for the public order view.
func NewShareToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:20]
}

// NewOrder prices the items, builds the payment plan and returns a fresh
// ACTIVE order. It does not persist anything.
func NewOrder(in NewOrderInput, now time.Time) (models.Order, error) {
	if strings.TrimSpace(in.CustomerName) == "" || strings.TrimSpace(in.CustomerContact) == "" {
		return models.Order{}, ErrMissingCustomer
	}
	if len(in.Items) == 0 {
		return models.Order{}, ErrEmptyCart
	}

	items := make([]models.JewelryItem, len(in.Items))
	for i, item := range in.Items {
		items[i] = PriceItem(item, in.Rates, in.TaxRate)
	}
	total := GrandTotal(items, in.Plan.InterestPercentage, in.AdditionalCharges)

	var (
		milestones []models.Milestone
		err        error
	)
	planType := in.Plan.Type
	if planType == models.PlanManual {
		milestones, err = BuildManualMilestones(in.Plan.Manual, total)
		if err != nil {
			return models.Order{}, err
		}
	} else {
		planType = models.PlanPreCreated
		milestones = GenerateMilestones(total, in.Plan.Months, in.Plan.AdvancePercentage, now)
	}

	plan := models.PaymentPlan{
		Type:                 planType,
		TemplateID:           in.Plan.TemplateID,
		Months:               in.Plan.Months,
		InterestPercentage:   in.Plan.InterestPercentage,
		AdvancePercentage:    in.Plan.AdvancePercentage,
		Milestones:           EvaluateMilestones(0, milestones),
		GoldRateProtection:   in.Plan.GoldRateProtection,
		ProtectionLimit:      in.Plan.ProtectionLimit,
		ProtectionRateBooked: in.Plan.ProtectionRateBooked,
		ProtectionDeadline:   milestones[len(milestones)-1].DueDate,
		ProtectionStatus:     models.ProtectionActive,
	}

	return models.Order{
		ID:                  uuid.NewString(),
		ShareToken:          NewShareToken(),
		CustomerName:        strings.TrimSpace(in.CustomerName),
		CustomerContact:     strings.TrimSpace(in.CustomerContact),
		SecondaryContact:    strings.TrimSpace(in.SecondaryContact),
		CustomerEmail:       strings.TrimSpace(in.CustomerEmail),
		Items:               items,
		AdditionalCharges:   utils.Round2(in.AdditionalCharges),
		TotalAmount:         total,
		OriginalTotalAmount: total,
		PaymentPlan:         plan,
		Status:              models.OrderActive,
		CreatedAt:           now,
	}, nil
}
