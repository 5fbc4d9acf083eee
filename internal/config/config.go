package config

// Config holds all tunables for a run. Constants of the cost model live here
// rather than in the engine so alternate market conditions can be tried
// without recompiling.
type Config struct {
	StoreDBPath     string `json:"store_db_path"`
	ReferenceDBPath string `json:"reference_db_path"`

	// Regions whose public contracts are refreshed and estimated.
	Regions []int32 `json:"regions"`

	// Reference trading hub used for pricing: region for history and order
	// books, station for the sell-side depth scan.
	HubRegionID  int32 `json:"hub_region_id"`
	HubStationID int64 `json:"hub_station_id"`

	// Price cache refresh policy. The interval is fixed per run; no jitter.
	PriceRefreshHours float64 `json:"price_refresh_hours"`

	// Liquidity thresholds for order-book depth pricing.
	MinDepthNotional float64 `json:"min_depth_notional"`
	MinDepthQuantity float64 `json:"min_depth_quantity"`
	MinLiquidDays    int     `json:"min_liquid_days"`
	BuySetupDiscount float64 `json:"buy_setup_discount"`
	SellSetupMarkup  float64 `json:"sell_setup_markup"`

	// Production cost model.
	SalesTaxDiscount   float64 `json:"sales_tax_discount"`
	SystemCostFactor   float64 `json:"system_cost_factor"`
	ShipmentCostPerM3  float64 `json:"shipment_cost_per_m3"`
	MaterialEfficiency float64 `json:"material_efficiency"`

	// Contract report filters (presentation only, not part of estimation).
	MinReportProfit   float64 `json:"min_report_profit"`
	MaxReportVolume   float64 `json:"max_report_volume"`
	MinReportSecurity float64 `json:"min_report_security"`

	// Reaction formulas analyzed by the reactions/history modes.
	ReactionBlueprints []int32 `json:"reaction_blueprints"`
}

// The Forge (Jita's region) and the Jita IV - Moon 4 CNAP station.
const (
	DefaultHubRegionID  = 10000002
	DefaultHubStationID = 60003760
)

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		StoreDBPath:       "appraiser.db",
		ReferenceDBPath:   "sde.sqlite",
		Regions:           []int32{DefaultHubRegionID},
		HubRegionID:       DefaultHubRegionID,
		HubStationID:      DefaultHubStationID,
		PriceRefreshHours: 6,
		MinDepthNotional:  100_000_000,
		MinDepthQuantity:  2,
		MinLiquidDays:     10,
		BuySetupDiscount:  0.95,
		SellSetupMarkup:   1.05,
		SalesTaxDiscount:  0.97,
		SystemCostFactor:  0.02,
		ShipmentCostPerM3: 200,

		MaterialEfficiency: 1.0,

		MinReportProfit:   20_000_000,
		MaxReportVolume:   50_000,
		MinReportSecurity: 0.5,

		ReactionBlueprints: defaultReactionBlueprints(),
	}
}

// defaultReactionBlueprints lists the moon-material reaction formulas the
// reactions mode analyzes by default: all composite and advanced-material
// reactions.
func defaultReactionBlueprints() []int32 {
	return []int32{
		46166, // Caesarium Cadmide
		46167, // Carbon Polymers
		46168, // Ceramic Powder
		46169, // Crystallite Alloy
		46170, // Dysporite
		46171, // Fernite Alloy
		46172, // Ferrofluid
		46173, // Fluxed Condensates
		46174, // Hexite
		46175, // Hyperflurite
		46176, // Neo Mercurite
		46177, // Platinum Technite
		46178, // Rolled Tungsten Alloy
		46179, // Silicon Diborite
		46180, // Solerium
		46181, // Sulfuric Acid
		46182, // Titanium Chromide
		46183, // Vanadium Hafnite
		46184, // Prometium
		46185, // Thulium Hafnite
		46186, // Promethium Mercurite
		46204, // Titanium Carbide
		46205, // Crystalline Carbonide
		46206, // Fernite Carbide
		46207, // Tungsten Carbide
		46208, // Sylramic Fibers
		46209, // Fulleride
		46210, // Phenolic Composites
		46211, // Nanotransistors
		46212, // Hypersynaptic Fibers
		46213, // Ferrogel
		46214, // Fermionic Condensates
		46215, // Plasmonic Metamaterials
		46216, // Terahertz Metamaterials
		46217, // Photonic Metamaterials
		46218, // Nonlinear Metamaterials
	}
}
