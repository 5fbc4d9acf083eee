package engine

import (
	"math"
	"strings"
	"testing"

	"eve-appraiser/internal/market"
	"eve-appraiser/internal/world"
)

func price(id int32, low, high, volume float64) market.ItemPrice {
	return market.ItemPrice{TypeID: id, LowPrice: low, HighPrice: high, DailyTradeVolume: volume}
}

func TestPriceFormula_CostStructure(t *testing.T) {
	out := item(10, "Product")
	in1 := item(11, "Bulk Input")
	in2 := item(12, "Trace Input")

	f := formula(qty(out, 10), secondsPerDay/2, qty(in1, 5), qty(in2, 0.5))
	snap := PriceSnapshot{
		out.Key(): price(out.ID, 1000, 1100, 500),
		in1.Key(): price(in1.ID, 90, 100, 10000),
		in2.Key(): price(in2.ID, 140, 150, 10000),
	}
	cm := CostModel{
		SalesTaxDiscount:   0.96,
		SystemCostFactor:   0.02,
		ShipmentCostPerM3:  200,
		MaterialEfficiency: 1.0,
	}

	pf, err := PriceFormula(snap, "Product", f, cm)
	if err != nil {
		t.Fatalf("PriceFormula: %v", err)
	}

	// Revenue: 10 * 1000 * 0.96 = 9600.
	// Inputs: 5 * 100 = 500 plus the trace input rounded up to one unit at
	// 150, total 650. Job cost: 650 * 0.02 = 13. No volume, no shipment.
	if pf.InputCost != 650 {
		t.Errorf("InputCost = %v, want 650", pf.InputCost)
	}
	if pf.JobCost != 13 {
		t.Errorf("JobCost = %v, want 13", pf.JobCost)
	}
	wantProfit := 9600.0 - 650 - 13
	if math.Abs(pf.Profit-wantProfit) > 1e-9 {
		t.Errorf("Profit = %v, want %v", pf.Profit, wantProfit)
	}

	if pf.RunsPerDay() != 2 {
		t.Errorf("RunsPerDay = %v, want 2", pf.RunsPerDay())
	}
	if math.Abs(pf.ProfitPerDay()-2*wantProfit) > 1e-9 {
		t.Errorf("ProfitPerDay = %v, want %v", pf.ProfitPerDay(), 2*wantProfit)
	}
	if pf.DailyVolumeInRuns != 50 { // 500 daily units / 10 per run
		t.Errorf("DailyVolumeInRuns = %v, want 50", pf.DailyVolumeInRuns)
	}
}

func TestPriceFormula_ShipmentCost(t *testing.T) {
	out := item(10, "Product")
	out.Volume = 2
	in := item(11, "Input")
	in.Volume = 0.5

	f := formula(qty(out, 10), 3600, qty(in, 4))
	snap := PriceSnapshot{
		out.Key(): price(out.ID, 1000, 1100, 100),
		in.Key():  price(in.ID, 90, 100, 100),
	}
	cm := CostModel{SalesTaxDiscount: 1, MaterialEfficiency: 1, ShipmentCostPerM3: 10}

	pf, err := PriceFormula(snap, "Product", f, cm)
	if err != nil {
		t.Fatalf("PriceFormula: %v", err)
	}
	// 10*2 + 4*0.5 = 22 m3 at 10/m3 = 220 shipment.
	wantProfit := 10*1000.0 - 4*100 - 220
	if math.Abs(pf.Profit-wantProfit) > 1e-9 {
		t.Errorf("Profit = %v, want %v", pf.Profit, wantProfit)
	}
}

func TestPriceFormula_IntermediatesIncurJobCost(t *testing.T) {
	out := item(10, "Product")
	in := item(11, "Raw")
	mid := item(12, "Intermediate")

	f := formula(qty(out, 1), 3600, qty(in, 10))
	f.Intermediates = []world.ItemQuantity{qty(mid, 5)}
	snap := PriceSnapshot{
		out.Key(): price(out.ID, 10000, 11000, 100),
		in.Key():  price(in.ID, 90, 100, 100),
		mid.Key(): price(mid.ID, 180, 200, 100),
	}
	cm := CostModel{SalesTaxDiscount: 1, SystemCostFactor: 0.02, MaterialEfficiency: 1}

	pf, err := PriceFormula(snap, "Product", f, cm)
	if err != nil {
		t.Fatalf("PriceFormula: %v", err)
	}
	// 1000 * 0.02 on inputs plus 5 * 200 * 0.02 on the intermediate.
	wantJob := 1000*0.02 + 5*200*0.02
	if math.Abs(pf.JobCost-wantJob) > 1e-9 {
		t.Errorf("JobCost = %v, want %v", pf.JobCost, wantJob)
	}
}

func TestPriceFormula_MissingPriceFails(t *testing.T) {
	out := item(10, "Product")
	in := item(11, "Input")
	f := formula(qty(out, 1), 3600, qty(in, 1))
	snap := PriceSnapshot{out.Key(): price(out.ID, 1000, 1100, 100)}

	if _, err := PriceFormula(snap, "Product", f, CostModel{MaterialEfficiency: 1}); err == nil {
		t.Fatal("expected error for unpriced input")
	}
}

func TestValueBundle(t *testing.T) {
	a := item(1, "A")
	b := item(2, "B")
	snap := PriceSnapshot{
		a.Key(): price(a.ID, 100, 120, 0),
		b.Key(): price(b.ID, 50, 60, 0),
	}
	got, err := ValueBundle(snap, []world.ItemQuantity{qty(a, 3), qty(b, 2)})
	if err != nil {
		t.Fatalf("ValueBundle: %v", err)
	}
	if got != 400 {
		t.Errorf("ValueBundle = %v, want 400", got)
	}
}

func TestValueBundle_NegativeQuantitySubtracts(t *testing.T) {
	a := item(1, "A")
	snap := PriceSnapshot{a.Key(): price(a.ID, 100, 120, 0)}
	got, err := ValueBundle(snap, []world.ItemQuantity{qty(a, 3), qty(a, -1)})
	if err != nil {
		t.Fatalf("ValueBundle: %v", err)
	}
	if got != 200 {
		t.Errorf("ValueBundle = %v, want 200", got)
	}
}

func TestBreakdown_RendersEveryLine(t *testing.T) {
	out := item(10, "Product")
	in := item(11, "Input")
	f := formula(qty(out, 10), 3600, qty(in, 4))
	snap := PriceSnapshot{
		out.Key(): price(out.ID, 1000, 1100, 100),
		in.Key():  price(in.ID, 90, 100, 100),
	}
	cm := CostModel{SalesTaxDiscount: 0.97, SystemCostFactor: 0.02, MaterialEfficiency: 1}

	pf, err := PriceFormula(snap, "Product", f, cm)
	if err != nil {
		t.Fatalf("PriceFormula: %v", err)
	}
	text, err := pf.Breakdown(snap, cm)
	if err != nil {
		t.Fatalf("Breakdown: %v", err)
	}
	for _, want := range []string{"Product", "Input", "job cost", "shipment cost", "per run"} {
		if !strings.Contains(text, want) {
			t.Errorf("Breakdown missing %q:\n%s", want, text)
		}
	}
}
