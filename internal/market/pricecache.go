package market

import (
	"fmt"
	"math"
	"sort"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"eve-appraiser/internal/esi"
	"eve-appraiser/internal/logger"
	"eve-appraiser/internal/world"
)

// PriceStore is the persistent side of the cache. The cache is the sole
// writer; one Put is one transaction.
type PriceStore interface {
	GetItemPrice(typeID int32) (ItemPrice, bool)
	PutItemPrice(p ItemPrice, history []esi.HistoryEntry) error
	GetItemHistory(typeID int32) ([]esi.HistoryEntry, error)
}

// MarketDataSource supplies raw market data for a refresh. Implemented by
// esi.Client.
type MarketDataSource interface {
	FetchMarketHistory(regionID, typeID int32) ([]esi.HistoryEntry, error)
	FetchTypeOrders(regionID, typeID int32, orderType string) ([]esi.MarketOrder, error)
}

// Options tunes the refresh and depth-pricing policy.
type Options struct {
	RefreshInterval time.Duration
	RegionID        int32 // region whose history and order book are used
	HubStationID    int64 // sell-side depth scan is restricted to this station

	// A price point is trusted once cumulative order depth reaches both
	// thresholds.
	MinDepthNotional float64
	MinDepthQuantity float64

	// History-derived prices need more than MinLiquidDays qualifying days in
	// the short window.
	MinLiquidDays    int
	BuySetupDiscount float64 // applied to the history low, e.g. 0.95
	SellSetupMarkup  float64 // applied to the history high, e.g. 1.05

	HistoryDays     int // days of history to request, most recent kept
	ShortWindowDays int // days actually used for pricing
}

// DefaultOptions returns the operational defaults for the Jita hub.
func DefaultOptions() Options {
	return Options{
		RefreshInterval:  6 * time.Hour,
		RegionID:         10000002,
		HubStationID:     60003760,
		MinDepthNotional: 100_000_000,
		MinDepthQuantity: 2,
		MinLiquidDays:    10,
		BuySetupDiscount: 0.95,
		SellSetupMarkup:  1.05,
		HistoryDays:      90,
		ShortWindowDays:  30,
	}
}

// PriceCache answers price lookups from a persisted snapshot, refreshing
// stale entries from history plus live order-book depth.
//
// Top-of-book prices are unrepresentative for bulk trades, and chain
// profitability is evaluated at production volume. The refresh therefore
// walks the book until enough notional and quantity accumulate and takes the
// price at that depth.
type PriceCache struct {
	store PriceStore
	src   MarketDataSource
	opts  Options
	l1    *gocache.Cache
	now   func() time.Time
}

// NewPriceCache creates a cache over the given store and data source.
func NewPriceCache(store PriceStore, src MarketDataSource, opts Options) *PriceCache {
	l1TTL := opts.RefreshInterval
	if l1TTL <= 0 {
		l1TTL = time.Hour
	}
	return &PriceCache{
		store: store,
		src:   src,
		opts:  opts,
		l1:    gocache.New(l1TTL, 2*l1TTL),
		now:   time.Now,
	}
}

func l1Key(typeID int32) string {
	return fmt.Sprintf("%d", typeID)
}

// FindItemPrice returns the current snapshot for an item, refreshing it
// first when missing or older than the refresh interval.
func (pc *PriceCache) FindItemPrice(it world.ItemType) (ItemPrice, error) {
	if v, ok := pc.l1.Get(l1Key(it.ID)); ok {
		return v.(ItemPrice), nil
	}

	if p, ok := pc.store.GetItemPrice(it.ID); ok {
		if pc.now().Sub(p.LastRefreshed) <= pc.opts.RefreshInterval {
			pc.l1.SetDefault(l1Key(it.ID), p)
			return p, nil
		}
	}

	logger.Info("Price", fmt.Sprintf("Refreshing %s", it.Name))
	p, history, err := pc.refresh(it.ID)
	if err != nil {
		return ItemPrice{}, fmt.Errorf("refresh price for %s: %w", it.Name, err)
	}
	if err := pc.store.PutItemPrice(p, history); err != nil {
		return ItemPrice{}, fmt.Errorf("persist price for %s: %w", it.Name, err)
	}
	pc.l1.SetDefault(l1Key(it.ID), p)
	return p, nil
}

// PriceHistory returns the persisted daily history rows for an item,
// refreshing the snapshot first so the rows exist and are recent.
func (pc *PriceCache) PriceHistory(it world.ItemType) ([]esi.HistoryEntry, error) {
	if _, err := pc.FindItemPrice(it); err != nil {
		return nil, err
	}
	return pc.store.GetItemHistory(it.ID)
}

func (pc *PriceCache) refresh(typeID int32) (ItemPrice, []esi.HistoryEntry, error) {
	history, err := pc.src.FetchMarketHistory(pc.opts.RegionID, typeID)
	if err != nil {
		return ItemPrice{}, nil, err
	}
	history = trimHistory(history, pc.opts.HistoryDays)

	volume, low, high := historyPrices(history, pc.opts)

	buyOrders, err := pc.src.FetchTypeOrders(pc.opts.RegionID, typeID, "buy")
	if err != nil {
		return ItemPrice{}, nil, err
	}
	if floor := buyDepthPrice(buyOrders, pc.opts.MinDepthNotional, pc.opts.MinDepthQuantity); floor > low {
		low = floor
	}

	sellOrders, err := pc.src.FetchTypeOrders(pc.opts.RegionID, typeID, "sell")
	if err != nil {
		return ItemPrice{}, nil, err
	}
	if ceil := sellDepthPrice(sellOrders, pc.opts.HubStationID, pc.opts.MinDepthNotional, pc.opts.MinDepthQuantity); ceil < high {
		high = ceil
	}

	return ItemPrice{
		TypeID:           typeID,
		LastRefreshed:    pc.now(),
		DailyTradeVolume: volume,
		LowPrice:         low,
		HighPrice:        high,
	}, history, nil
}

// trimHistory sorts by date and keeps the most recent maxDays entries.
func trimHistory(entries []esi.HistoryEntry, maxDays int) []esi.HistoryEntry {
	sorted := make([]esi.HistoryEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date < sorted[j].Date })
	if maxDays > 0 && len(sorted) > maxDays {
		sorted = sorted[len(sorted)-maxDays:]
	}
	return sorted
}

// historyPrices derives (dailyVolume, low, high) from the short window of
// the history. Low and high stay at their 0/+Inf sentinels unless more than
// MinLiquidDays days traded at least MinDepthQuantity units: single
// qualifying days spike too easily to trust.
func historyPrices(entries []esi.HistoryEntry, opts Options) (volume, low, high float64) {
	low = 0
	high = math.Inf(1)

	short := entries
	if opts.ShortWindowDays > 0 && len(short) > opts.ShortWindowDays {
		short = short[len(short)-opts.ShortWindowDays:]
	}
	if len(short) == 0 {
		return 0, low, high
	}

	var total int64
	for _, d := range short {
		total += d.Volume
	}
	volume = float64(total) / float64(len(short))

	var minLow, maxHigh float64
	liquidDays := 0
	for _, d := range short {
		if float64(d.Volume) < opts.MinDepthQuantity {
			continue
		}
		if liquidDays == 0 || d.Lowest < minLow {
			minLow = d.Lowest
		}
		if liquidDays == 0 || d.Highest > maxHigh {
			maxHigh = d.Highest
		}
		liquidDays++
	}
	if liquidDays > opts.MinLiquidDays {
		low = opts.BuySetupDiscount * minLow
		high = opts.SellSetupMarkup * maxHigh
	}
	return volume, low, high
}

// buyDepthPrice walks buy orders from the best (highest) price down,
// accumulating quantity and notional, and returns the price level at which
// both liquidity thresholds are met. Returns 0 when the book is too thin.
func buyDepthPrice(orders []esi.MarketOrder, minNotional, minQty float64) float64 {
	type level struct {
		qty   float64
		price float64
	}
	var levels []level
	for _, o := range orders {
		if !o.IsBuyOrder || o.VolumeRemain <= 0 {
			continue
		}
		levels = append(levels, level{qty: float64(o.VolumeRemain), price: o.Price})
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i].price > levels[j].price })

	var totalCost, totalQty float64
	for _, l := range levels {
		totalCost += l.qty * l.price
		totalQty += l.qty
		if totalCost >= minNotional && totalQty >= minQty {
			return l.price
		}
	}
	return 0
}

// sellDepthPrice is the symmetric scan over sell orders, ascending by price,
// restricted to the reference trading hub. Returns +Inf when the book is too
// thin.
func sellDepthPrice(orders []esi.MarketOrder, hubStationID int64, minNotional, minQty float64) float64 {
	type level struct {
		qty   float64
		price float64
	}
	var levels []level
	for _, o := range orders {
		if o.IsBuyOrder || o.VolumeRemain <= 0 || o.LocationID != hubStationID {
			continue
		}
		levels = append(levels, level{qty: float64(o.VolumeRemain), price: o.Price})
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i].price < levels[j].price })

	var totalCost, totalQty float64
	for _, l := range levels {
		totalCost += l.qty * l.price
		totalQty += l.qty
		if totalCost >= minNotional && totalQty >= minQty {
			return l.price
		}
	}
	return math.Inf(1)
}
