package customers

import (
	"context"
	"strconv"
	"sync"
	"time"

	"auragold-backend/models"
	"auragold-backend/utils"
)

// Customer is one person keyed by contact, merged from manual profiles and
// the order ledger.
type Customer struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Contact          string     `json:"contact"`
	SecondaryContact string     `json:"secondary_contact,omitempty"`
	Email            string     `json:"email"`
	OrderIDs         []string   `json:"order_ids"`
	TotalSpent       float64    `json:"total_spent"`
	JoinDate         time.Time  `json:"join_date"`
	ReliabilityScore *int       `json:"reliability_score,omitempty"`
	BehavioralTag    string     `json:"behavioral_tag,omitempty"`
	AIInsight        string     `json:"ai_insight,omitempty"`
	LastAnalysisDate *time.Time `json:"last_analysis_date,omitempty"`
}

// Build merges manual profiles and orders. Manual profiles come first and
// keep their identity; orders add to the aggregate of their contact.
func Build(manual []models.Customer, orders []models.Order) []Customer {
	index := make(map[string]int, len(manual)+len(orders))
	out := make([]Customer, 0, len(manual)+len(orders))

	for _, m := range manual {
		if _, dup := index[m.Contact]; dup {
			continue
		}
		index[m.Contact] = len(out)
		out = append(out, Customer{
			ID:               "MAN-" + strconv.FormatUint(uint64(m.ID), 10),
			Name:             m.Name,
			Contact:          m.Contact,
			SecondaryContact: m.SecondaryContact,
			Email:            m.Email,
			OrderIDs:         []string{},
			JoinDate:         m.CreatedAt,
			ReliabilityScore: m.ReliabilityScore,
			BehavioralTag:    m.BehavioralTag,
			AIInsight:        m.AIInsight,
			LastAnalysisDate: m.LastAnalysisDate,
		})
	}

	seen := make(map[string]struct{}, len(orders))
	for _, o := range orders {
		if _, dup := seen[o.ID]; dup {
			continue
		}
		seen[o.ID] = struct{}{}

		i, ok := index[o.CustomerContact]
		if !ok {
			index[o.CustomerContact] = len(out)
			out = append(out, Customer{
				ID:               "CUST-" + o.CustomerContact,
				Name:             o.CustomerName,
				Contact:          o.CustomerContact,
				SecondaryContact: o.SecondaryContact,
				Email:            o.CustomerEmail,
				OrderIDs:         []string{o.ID},
				TotalSpent:       o.TotalAmount,
				JoinDate:         o.CreatedAt,
			})
			continue
		}
		c := &out[i]
		c.OrderIDs = append(c.OrderIDs, o.ID)
		c.TotalSpent = utils.Round2(c.TotalSpent + o.TotalAmount)
		if !o.CreatedAt.IsZero() && (c.JoinDate.IsZero() || o.CreatedAt.Before(c.JoinDate)) {
			c.JoinDate = o.CreatedAt
		}
	}
	return out
}

// Source is what the projection reads from.
type Source interface {
	ListOrders(ctx context.Context) ([]models.Order, error)
	ListManualCustomers(ctx context.Context) ([]models.Customer, error)
}

// Projection caches Build over the store until it is invalidated.
type Projection struct {
	src Source

	mu         sync.Mutex
	cached     []Customer
	valid      bool
	generation uint64
}

func NewProjection(src Source) *Projection {
	return &Projection{src: src}
}

// Invalidate drops the cached view. A rebuild that was in flight when this
// is called is not cached.
func (p *Projection) Invalidate() {
	p.mu.Lock()
	p.valid = false
	p.cached = nil
	p.generation++
	p.mu.Unlock()
}

func (p *Projection) All(ctx context.Context) ([]Customer, error) {
	p.mu.Lock()
	if p.valid {
		out := p.cached
		p.mu.Unlock()
		return out, nil
	}
	gen := p.generation
	p.mu.Unlock()

	manual, err := p.src.ListManualCustomers(ctx)
	if err != nil {
		return nil, err
	}
	orders, err := p.src.ListOrders(ctx)
	if err != nil {
		return nil, err
	}
	built := Build(manual, orders)

	p.mu.Lock()
	if p.generation == gen {
		p.cached = built
		p.valid = true
	}
	p.mu.Unlock()
	return built, nil
}

// ByContact returns the customer for contact and whether it exists.
func (p *Projection) ByContact(ctx context.Context, contact string) (Customer, bool, error) {
	all, err := p.All(ctx)
	if err != nil {
		return Customer{}, false, err
	}
	for _, c := range all {
		if c.Contact == contact {
			return c, true, nil
		}
	}
	return Customer{}, false, nil
}
