package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "PENDING"
	OrderActive    OrderStatus = "ACTIVE"
	OrderCompleted OrderStatus = "COMPLETED"
	OrderOverdue   OrderStatus = "OVERDUE"
	OrderCancelled OrderStatus = "CANCELLED"
)

type ProductionStatus string

const (
	ProductionDesigning    ProductionStatus = "DESIGNING"
	ProductionInProgress   ProductionStatus = "PRODUCTION"
	ProductionQualityCheck ProductionStatus = "QC"
	ProductionReady        ProductionStatus = "READY"
	ProductionDelivered    ProductionStatus = "DELIVERED"
)

// Order is one customer purchase. Customer fields are denormalized copies,
// not a foreign key.
type Order struct {
	ID                  string        `json:"id" gorm:"primaryKey"`
	ShareToken          string        `json:"share_token" gorm:"size:64;uniqueIndex;not null"`
	CustomerName        string        `json:"customer_name" gorm:"not null"`
	CustomerContact     string        `json:"customer_contact" gorm:"not null;index"`
	SecondaryContact    string        `json:"secondary_contact"`
	CustomerEmail       string        `json:"customer_email"`
	Items               []JewelryItem `json:"items" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	AdditionalCharges   float64       `json:"additional_charges" gorm:"type:numeric(12,2)"`
	TotalAmount         float64       `json:"total_amount" gorm:"type:numeric(12,2)"`
	OriginalTotalAmount float64       `json:"original_total_amount" gorm:"type:numeric(12,2)"`
	PaymentPlan         PaymentPlan   `json:"payment_plan" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Payments            []Payment     `json:"payments" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Status              OrderStatus   `json:"status" gorm:"type:varchar(20);index"`
	Version             int           `json:"-" gorm:"not null;default:0"`
	CreatedAt           time.Time     `json:"created_at"`
	UpdatedAt           time.Time     `json:"updated_at"`
}

func (order *Order) BeforeCreate(tx *gorm.DB) (err error) {
	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	return
}

// Clone returns a deep copy so callers can derive a next state without
// touching the original.
func (order Order) Clone() Order {
	out := order
	out.Items = make([]JewelryItem, len(order.Items))
	for i, item := range order.Items {
		out.Items[i] = item
		out.Items[i].PhotoURLs = append(datatypes.JSONSlice[string](nil), item.PhotoURLs...)
	}
	out.Payments = append([]Payment(nil), order.Payments...)
	out.PaymentPlan = order.PaymentPlan.Clone()
	return out
}

// JewelryItem is one line item with its pricing breakdown frozen at booking.
type JewelryItem struct {
	ID                   string                      `json:"id" gorm:"primaryKey"`
	OrderID              string                      `json:"-" gorm:"index"`
	Category             string                      `json:"category" validate:"required"`
	MetalColor           string                      `json:"metal_color" validate:"omitempty,oneof='Yellow Gold' 'Rose Gold' 'White Gold'"`
	GrossWeight          float64                     `json:"gross_weight" gorm:"type:numeric(10,3)" validate:"gte=0"`
	NetWeight            float64                     `json:"net_weight" gorm:"type:numeric(10,3)" validate:"gt=0"`
	WastagePercentage    float64                     `json:"wastage_percentage" validate:"gte=0"`
	MakingChargesPerGram float64                     `json:"making_charges_per_gram" gorm:"type:numeric(12,2)" validate:"gte=0"`
	StoneCharges         float64                     `json:"stone_charges" gorm:"type:numeric(12,2)" validate:"gte=0"`
	Purity               string                      `json:"purity" validate:"required,oneof=22K 24K 18K"`
	CustomizationDetails string                      `json:"customization_details"`
	PhotoURLs            datatypes.JSONSlice[string] `json:"photo_urls" gorm:"type:jsonb"`
	BaseMetalValue       float64                     `json:"base_metal_value" gorm:"type:numeric(12,2)"`
	WastageValue         float64                     `json:"wastage_value" gorm:"type:numeric(12,2)"`
	TotalLaborValue      float64                     `json:"total_labor_value" gorm:"type:numeric(12,2)"`
	TaxAmount            float64                     `json:"tax_amount" gorm:"type:numeric(12,2)"`
	FinalAmount          float64                     `json:"final_amount" gorm:"type:numeric(12,2)"`
	ProductionStatus     ProductionStatus            `json:"production_status" gorm:"type:varchar(20)"`
}

func (item *JewelryItem) BeforeCreate(tx *gorm.DB) (err error) {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	return
}

// Payment is append-only.
type Payment struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	OrderID   string    `json:"order_id" gorm:"index:idx_payments_order_paid_at,priority:1"`
	Amount    float64   `json:"amount" gorm:"type:numeric(12,2)"`
	Method    string    `json:"method"`
	Note      string    `json:"note"`
	PaidAt    time.Time `json:"paid_at" gorm:"index:idx_payments_order_paid_at,priority:2"`
	CreatedAt time.Time `json:"created_at"`
}

func (payment *Payment) BeforeCreate(tx *gorm.DB) (err error) {
	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	return
}
