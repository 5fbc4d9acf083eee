package engine

import (
	"fmt"
	"sort"
	"time"

	"eve-appraiser/internal/esi"
	"eve-appraiser/internal/market"
	"eve-appraiser/internal/world"
)

// snapshotRadiusDays is the half-width of the window a historical snapshot
// draws prices from.
const snapshotRadiusDays = 2

// replayProfitThreshold is the per-day profit above which a day counts as
// "good" in the replay ranking.
const replayProfitThreshold = 100_000

// PriceSnapshot is a fixed in-memory price table. It implements PriceSource
// for historical replays and is handy in tests.
type PriceSnapshot map[int32]market.ItemPrice

// FindItemPrice returns the snapshot entry for the item.
func (s PriceSnapshot) FindItemPrice(it world.ItemType) (market.ItemPrice, error) {
	p, ok := s[it.Key()]
	if !ok {
		return market.ItemPrice{}, fmt.Errorf("no snapshot price for %s (%d)", it.Name, it.ID)
	}
	return p, nil
}

const dateLayout = "2006-01-02"

// CommonDates returns the dates, sorted ascending, on which every item in
// the history set traded.
func CommonDates(hist map[int32][]esi.HistoryEntry) []string {
	var common map[string]bool
	for _, entries := range hist {
		dates := make(map[string]bool, len(entries))
		for _, e := range entries {
			dates[e.Date] = true
		}
		if common == nil {
			common = dates
			continue
		}
		for d := range common {
			if !dates[d] {
				delete(common, d)
			}
		}
	}
	r := make([]string, 0, len(common))
	for d := range common {
		r = append(r, d)
	}
	sort.Strings(r)
	return r
}

// SnapshotAt reconstructs a conservative price table as it would have looked
// on the given date: the low comes from the best days just after the date
// (could we have sold then?), the high from the days just before (what would
// inputs have cost?). Items with no trades inside the window are left out of
// the snapshot.
func SnapshotAt(hist map[int32][]esi.HistoryEntry, date string) (PriceSnapshot, error) {
	day, err := time.Parse(dateLayout, date)
	if err != nil {
		return nil, fmt.Errorf("snapshot date %q: %w", date, err)
	}
	minDate := day.AddDate(0, 0, -snapshotRadiusDays).Format(dateLayout)
	maxDate := day.AddDate(0, 0, snapshotRadiusDays).Format(dateLayout)

	snap := make(PriceSnapshot, len(hist))
	for typeID, entries := range hist {
		var maxLow, minHigh float64
		lowSeen, highSeen := 0, 0
		var volume int64
		var volumeDays int
		for _, e := range entries {
			if e.Date >= date && e.Date <= maxDate {
				if lowSeen == 0 || e.Lowest > maxLow {
					maxLow = e.Lowest
				}
				lowSeen++
			}
			if e.Date >= minDate && e.Date <= date {
				if highSeen == 0 || e.Highest < minHigh {
					minHigh = e.Highest
				}
				highSeen++
			}
			if e.Date >= minDate && e.Date <= maxDate {
				volume += e.Volume
				volumeDays++
			}
		}
		if lowSeen == 0 || highSeen == 0 {
			continue
		}
		snap[typeID] = market.ItemPrice{
			TypeID:           typeID,
			LastRefreshed:    day,
			DailyTradeVolume: float64(volume) / float64(volumeDays),
			LowPrice:         0.95 * maxLow,
			HighPrice:        1.05 * minHigh,
		}
	}
	return snap, nil
}

// ReplayResult is the per-day profit series of one formula variant.
type ReplayResult struct {
	Name    string
	Profits []float64
}

// GoodDays counts the days whose profit cleared the replay threshold.
func (r ReplayResult) GoodDays() int {
	good, _ := profitKey(r.Profits)
	return good
}

// TotalProfit sums the whole series.
func (r ReplayResult) TotalProfit() float64 {
	_, total := profitKey(r.Profits)
	return total
}

// Replay re-prices every variant on every common date of the history set and
// ranks the variants by consistency first (days over the profit threshold),
// total profit second.
func Replay(variants []NamedFormula, hist map[int32][]esi.HistoryEntry, cm CostModel) ([]ReplayResult, error) {
	dates := CommonDates(hist)
	series := make(map[string][]float64, len(variants))
	for _, d := range dates {
		snap, err := SnapshotAt(hist, d)
		if err != nil {
			return nil, err
		}
		for _, v := range variants {
			pf, err := PriceFormula(snap, v.Name, v.Formula, cm)
			if err != nil {
				// A variant references an item missing from this day's
				// snapshot; the day just drops out of its series.
				continue
			}
			series[v.Name] = append(series[v.Name], pf.ProfitPerDay())
		}
	}

	results := make([]ReplayResult, 0, len(variants))
	for _, v := range variants {
		if profits, ok := series[v.Name]; ok {
			results = append(results, ReplayResult{Name: v.Name, Profits: profits})
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		gi, si := profitKey(results[i].Profits)
		gj, sj := profitKey(results[j].Profits)
		if gi != gj {
			return gi > gj
		}
		return si > sj
	})
	return results, nil
}

func profitKey(profits []float64) (goodDays int, total float64) {
	for _, p := range profits {
		if p > replayProfitThreshold {
			goodDays++
		}
		total += p
	}
	return goodDays, total
}
