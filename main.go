package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"time"

	"eve-appraiser/internal/config"
	"eve-appraiser/internal/db"
	"eve-appraiser/internal/engine"
	"eve-appraiser/internal/esi"
	"eve-appraiser/internal/logger"
	"eve-appraiser/internal/market"
	"eve-appraiser/internal/world"
)

var version = "dev"

func main() {
	mode := flag.String("mode", "contracts", "run mode: contracts | reactions | history | tree")
	configPath := flag.String("config", "appraiser.json", "path to config file")
	item := flag.String("item", "", "item name for -mode tree")
	flag.Parse()

	logger.Banner(version)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("Config", fmt.Sprintf("Failed to load: %v", err))
		os.Exit(1)
	}

	store, err := db.Open(cfg.StoreDBPath)
	if err != nil {
		logger.Error("DB", fmt.Sprintf("Failed to open store: %v", err))
		os.Exit(1)
	}
	defer store.Close()

	w, err := world.Open(cfg.ReferenceDBPath)
	if err != nil {
		logger.Error("World", fmt.Sprintf("Failed to open reference db: %v", err))
		os.Exit(1)
	}
	defer w.Close()

	client := esi.NewClient()
	if !client.HealthCheck() {
		logger.Warn("ESI", "Health check failed, continuing anyway")
	}

	opts := market.DefaultOptions()
	opts.RefreshInterval = time.Duration(cfg.PriceRefreshHours * float64(time.Hour))
	opts.RegionID = cfg.HubRegionID
	opts.HubStationID = cfg.HubStationID
	opts.MinDepthNotional = cfg.MinDepthNotional
	opts.MinDepthQuantity = cfg.MinDepthQuantity
	opts.MinLiquidDays = cfg.MinLiquidDays
	opts.BuySetupDiscount = cfg.BuySetupDiscount
	opts.SellSetupMarkup = cfg.SellSetupMarkup
	prices := market.NewPriceCache(store, client, opts)

	cm := engine.CostModel{
		SalesTaxDiscount:   cfg.SalesTaxDiscount,
		SystemCostFactor:   cfg.SystemCostFactor,
		ShipmentCostPerM3:  cfg.ShipmentCostPerM3,
		MaterialEfficiency: cfg.MaterialEfficiency,
	}

	switch *mode {
	case "contracts":
		err = runContracts(cfg, store, w, client, prices)
	case "reactions":
		err = runReactions(cfg, w, prices, cm)
	case "history":
		err = runHistory(cfg, w, prices, cm)
	case "tree":
		err = runTree(w, *item)
	default:
		err = fmt.Errorf("unknown mode %q", *mode)
	}
	if err != nil {
		logger.Error("Run", fmt.Sprintf("%v", err))
		os.Exit(1)
	}
}

// runContracts is the full appraisal pass: ingest every configured region,
// estimate what is new, then print the report. The stages are strictly
// sequential per region so a crash leaves resumable state behind.
func runContracts(cfg *config.Config, store *db.DB, w *world.World, client *esi.Client, prices *market.PriceCache) error {
	refresher := engine.NewRefresher(store, client)
	for _, region := range cfg.Regions {
		logger.Section(fmt.Sprintf("Region %d", region))
		if err := refresher.RefreshRegion(region); err != nil {
			return err
		}
	}

	est := &engine.Estimator{World: w, Prices: prices}
	for _, region := range cfg.Regions {
		if err := est.UpdateRegionEstimates(store, region); err != nil {
			return err
		}
	}

	logger.Section("Profitable contracts")
	rated, err := engine.ProfitableContracts(store, w, engine.ReportFilters{
		MinProfit:   cfg.MinReportProfit,
		MaxVolume:   cfg.MaxReportVolume,
		MinSecurity: cfg.MinReportSecurity,
	})
	if err != nil {
		return err
	}
	for _, rc := range rated {
		fmt.Println(rc.Contract.PrettyString())
		logger.Stats("Estimate", fmt.Sprintf("%.0f", rc.Estimate))
		logger.Stats("Profit", fmt.Sprintf("%.0f", rc.Estimate-rc.Contract.Price))
		fmt.Println()
	}
	logger.Success("Report", fmt.Sprintf("%d contracts worth a look", len(rated)))
	return nil
}

// loadReactionFormulas resolves the configured reaction blueprint IDs into
// their formulas.
func loadReactionFormulas(cfg *config.Config, w *world.World) ([]world.Formula, error) {
	formulas := make([]world.Formula, 0, len(cfg.ReactionBlueprints))
	for _, id := range cfg.ReactionBlueprints {
		bp, err := w.FindItemType(id)
		if err != nil {
			return nil, err
		}
		f, err := w.FindFormula(bp)
		if err != nil {
			return nil, err
		}
		formulas = append(formulas, f)
	}
	return formulas, nil
}

// runReactions values every make-vs-buy variant of the configured reaction
// set and prints them best first.
func runReactions(cfg *config.Config, w *world.World, prices *market.PriceCache, cm engine.CostModel) error {
	formulas, err := loadReactionFormulas(cfg, w)
	if err != nil {
		return err
	}
	variants, err := engine.FoldAll(formulas)
	if err != nil {
		return err
	}
	logger.Info("Reactions", fmt.Sprintf("%d formulas, %d variants", len(formulas), len(variants)))

	priced := make([]engine.PricedFormula, 0, len(variants))
	for _, v := range variants {
		pf, err := engine.PriceFormula(prices, v.Name, v.Formula, cm)
		if err != nil {
			logger.Warn("Reactions", fmt.Sprintf("%s not priced: %v", v.Name, err))
			continue
		}
		priced = append(priced, pf)
	}
	sort.SliceStable(priced, func(i, j int) bool {
		return roi(priced[i]) > roi(priced[j])
	})

	logger.Section("Reactions by return on input cost")
	for _, pf := range priced {
		text, err := pf.Breakdown(prices, cm)
		if err != nil {
			return err
		}
		fmt.Println(text)
	}
	return nil
}

func roi(pf engine.PricedFormula) float64 {
	if pf.InputCost <= 0 {
		return 0
	}
	return pf.Profit / pf.InputCost
}

// runHistory replays the configured reaction set against stored market
// history and ranks variants by profit consistency.
func runHistory(cfg *config.Config, w *world.World, prices *market.PriceCache, cm engine.CostModel) error {
	formulas, err := loadReactionFormulas(cfg, w)
	if err != nil {
		return err
	}
	variants, err := engine.FoldAll(formulas)
	if err != nil {
		return err
	}

	// Collect history for every item any variant touches. Fetching through
	// the cache also refreshes stale snapshots.
	hist := make(map[int32][]esi.HistoryEntry)
	for _, v := range variants {
		items := append([]world.ItemQuantity{v.Formula.Output}, v.Formula.Inputs...)
		for _, iq := range items {
			if _, ok := hist[iq.Type.Key()]; ok {
				continue
			}
			entries, err := prices.PriceHistory(iq.Type)
			if err != nil {
				return err
			}
			hist[iq.Type.Key()] = entries
		}
	}

	results, err := engine.Replay(variants, hist, cm)
	if err != nil {
		return err
	}

	logger.Section("Replay by profit consistency")
	for _, r := range results {
		fmt.Printf("%-40s %3d/%3d good days, total %.0f\n",
			r.Name, r.GoodDays(), len(r.Profits), r.TotalProfit())
	}
	return nil
}

// runTree prints the recursive production tree of one item by name.
func runTree(w *world.World, name string) error {
	if name == "" {
		return fmt.Errorf("-mode tree needs -item")
	}
	it, err := w.FindItemTypeByName(name)
	if err != nil {
		return err
	}
	return engine.PrintIndustryTree(w, os.Stdout, 0, it)
}
