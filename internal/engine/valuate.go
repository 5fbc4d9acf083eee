package engine

import (
	"fmt"
	"strings"

	"eve-appraiser/internal/market"
	"eve-appraiser/internal/world"
)

const secondsPerDay = 24.0 * 60 * 60

// PriceSource answers price lookups during valuation. market.PriceCache is
// the live implementation; PriceSnapshot serves historical replays and tests.
type PriceSource interface {
	FindItemPrice(it world.ItemType) (market.ItemPrice, error)
}

// CostModel holds the valuation constants. These model a particular
// operation (taxes, production system, freight route), not universal truths.
type CostModel struct {
	SalesTaxDiscount   float64 // revenue multiplier, e.g. 0.97
	SystemCostFactor   float64 // job installation fee fraction of material value
	ShipmentCostPerM3  float64 // logistics cost per m³ moved
	MaterialEfficiency float64 // input quantity multiplier, 1.0 = no research
}

// PricedFormula is the read-only valuation result for one formula variant.
type PricedFormula struct {
	Name              string
	Formula           world.Formula
	DailyVolumeInRuns float64
	Profit            float64
	InputCost         float64
	JobCost           float64
}

// RunsPerDay is how many runs fit in a day of production time.
func (pf PricedFormula) RunsPerDay() float64 {
	return secondsPerDay / pf.Formula.Time
}

// ProfitPerDay scales the per-run profit to a full day of production.
func (pf PricedFormula) ProfitPerDay() float64 {
	return pf.Profit * pf.RunsPerDay()
}

// PriceFormula applies the cost model to one formula variant.
//
// Revenue sells the output into buy orders (low price, less sales tax).
// Inputs are bought from sell orders (high price); material efficiency can
// not push consumption below one unit per input. Intermediates are not
// purchased but still incur the job installation fee on their raw value.
func PriceFormula(ps PriceSource, name string, f world.Formula, cm CostModel) (PricedFormula, error) {
	out, err := ps.FindItemPrice(f.Output.Type)
	if err != nil {
		return PricedFormula{}, err
	}
	dailyVolumeInRuns := out.DailyTradeVolume / f.Output.Quantity
	revenue := out.LowPrice * f.Output.Quantity * cm.SalesTaxDiscount

	totalM3 := f.Output.Quantity * f.Output.Type.Volume
	me := cm.MaterialEfficiency
	if me <= 0 {
		me = 1.0
	}

	var inputCost float64
	for _, in := range f.Inputs {
		p, err := ps.FindItemPrice(in.Type)
		if err != nil {
			return PricedFormula{}, err
		}
		qty := me * in.Quantity
		if qty < 1 {
			qty = 1
		}
		inputCost += p.HighPrice * qty
		totalM3 += in.Quantity * in.Type.Volume
	}

	jobCost := inputCost * cm.SystemCostFactor
	for _, im := range f.Intermediates {
		p, err := ps.FindItemPrice(im.Type)
		if err != nil {
			return PricedFormula{}, err
		}
		jobCost += cm.SystemCostFactor * p.HighPrice * im.Quantity
	}

	profit := revenue - inputCost - jobCost - totalM3*cm.ShipmentCostPerM3

	return PricedFormula{
		Name:              name,
		Formula:           f,
		DailyVolumeInRuns: dailyVolumeInRuns,
		Profit:            profit,
		InputCost:         inputCost,
		JobCost:           jobCost,
	}, nil
}

// ValueBundle prices an arbitrary list of items as a received asset: a plain
// sum of low prices, with no revenue, job or shipment terms.
func ValueBundle(ps PriceSource, items []world.ItemQuantity) (float64, error) {
	var total float64
	for _, it := range items {
		p, err := ps.FindItemPrice(it.Type)
		if err != nil {
			return 0, err
		}
		total += p.LowPrice * it.Quantity
	}
	return total, nil
}

// Breakdown renders the per-line cost structure of a priced formula, the way
// the reactions report prints it.
func (pf PricedFormula) Breakdown(ps PriceSource, cm CostModel) (string, error) {
	var b strings.Builder
	f := pf.Formula

	roi := 0.0
	if pf.InputCost > 0 {
		roi = pf.Profit / pf.InputCost * 100
	}
	fmt.Fprintf(&b, "%s  ---  %.0f/day at %.1f%%\n", pf.Name, pf.ProfitPerDay(), roi)

	out, err := ps.FindItemPrice(f.Output.Type)
	if err != nil {
		return "", err
	}
	fmt.Fprintf(&b, "%15.0f %gx %s; volume (runs): %.0f, runtime %.0fs\n",
		out.LowPrice*f.Output.Quantity, f.Output.Quantity, f.Output.Type.Name,
		pf.DailyVolumeInRuns, f.Time)

	var inputM3 float64
	for _, in := range f.Inputs {
		p, err := ps.FindItemPrice(in.Type)
		if err != nil {
			return "", err
		}
		inputM3 += in.Type.Volume * in.Quantity
		fmt.Fprintf(&b, "%15.0f %gx %s; volume (runs): %.0f\n",
			-p.HighPrice*in.Quantity, in.Quantity, in.Type.Name,
			p.DailyTradeVolume/in.Quantity)
	}
	fmt.Fprintf(&b, "%15.0f job cost\n", -pf.JobCost)

	outputM3 := f.Output.Quantity * f.Output.Type.Volume
	fmt.Fprintf(&b, "%15.0f shipment cost for %.0f m3\n",
		-(inputM3+outputM3)*cm.ShipmentCostPerM3, inputM3+outputM3)
	fmt.Fprintf(&b, "= %13.0f per run; per day: %.0f; m3: import %.0f, export %.0f\n",
		pf.Profit, pf.ProfitPerDay(),
		inputM3*pf.RunsPerDay(), outputM3*pf.RunsPerDay())
	return b.String(), nil
}
