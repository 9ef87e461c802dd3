package ledger

import (
	"auragold-backend/models"

	"github.com/shopspring/decimal"
)

// Rates are per-gram metal rates.
type Rates struct {
	Rate24K float64
	Rate22K float64
}

var fineness18K = decimal.NewFromFloat(0.75)

// ForPurity returns the per-gram rate for a purity. 18K is derived from the
// 24K rate.
func (r Rates) ForPurity(purity string) decimal.Decimal {
	switch purity {
	case "24K":
		return decimal.NewFromFloat(r.Rate24K)
	case "18K":
		return decimal.NewFromFloat(r.Rate24K).Mul(fineness18K).Round(0)
	default:
		return decimal.NewFromFloat(r.Rate22K)
	}
}

var hundred = decimal.NewFromInt(100)

// PriceItem fills the pricing breakdown of item at the given rates and tax
// percentage. Stone charges are reported inside the labor value.
func PriceItem(item models.JewelryItem, rates Rates, taxRate float64) models.JewelryItem {
	net := decimal.NewFromFloat(item.NetWeight)
	metal := net.Mul(rates.ForPurity(item.Purity))
	wastage := metal.Mul(decimal.NewFromFloat(item.WastagePercentage)).Div(hundred)
	labor := decimal.NewFromFloat(item.MakingChargesPerGram).Mul(net).
		Add(decimal.NewFromFloat(item.StoneCharges))
	subtotal := metal.Add(wastage).Add(labor)
	tax := subtotal.Mul(decimal.NewFromFloat(taxRate)).Div(hundred)

	item.BaseMetalValue = metal.Round(2).InexactFloat64()
	item.WastageValue = wastage.Round(2).InexactFloat64()
	item.TotalLaborValue = labor.Round(2).InexactFloat64()
	item.TaxAmount = tax.Round(2).InexactFloat64()
	item.FinalAmount = subtotal.Add(tax).Round(2).InexactFloat64()
	if item.ProductionStatus == "" {
		item.ProductionStatus = models.ProductionDesigning
	}
	return item
}

// GrandTotal is the cart total plus plan interest plus additional charges.
func GrandTotal(items []models.JewelryItem, interestPercentage, additionalCharges float64) float64 {
	cart := decimal.Zero
	for _, item := range items {
		cart = cart.Add(decimal.NewFromFloat(item.FinalAmount))
	}
	interest := cart.Mul(decimal.NewFromFloat(interestPercentage)).Div(hundred)
	return cart.Add(interest).Add(decimal.NewFromFloat(additionalCharges)).Round(2).InexactFloat64()
}

// TotalNetWeight sums the net grams of all items.
func TotalNetWeight(items []models.JewelryItem) float64 {
	grams := decimal.Zero
	for _, item := range items {
		grams = grams.Add(decimal.NewFromFloat(item.NetWeight))
	}
	return grams.InexactFloat64()
}

// Reprice applies the lapse rule: the order is re-based on its booking total
// plus the rate delta over all grams, and the delta is also carried in
// additional charges. It returns the delta cost.
func Reprice(order *models.Order, marketRate float64) float64 {
	base := order.OriginalTotalAmount
	if base == 0 {
		base = order.TotalAmount
	}
	deltaRate := decimal.NewFromFloat(marketRate).Sub(decimal.NewFromFloat(order.PaymentPlan.ProtectionRateBooked))
	deltaCost := decimal.NewFromFloat(TotalNetWeight(order.Items)).Mul(deltaRate).Round(2)

	order.TotalAmount = decimal.NewFromFloat(base).Add(deltaCost).Round(2).InexactFloat64()
	order.AdditionalCharges = decimal.NewFromFloat(order.AdditionalCharges).Add(deltaCost).Round(2).InexactFloat64()
	return deltaCost.InexactFloat64()
}
