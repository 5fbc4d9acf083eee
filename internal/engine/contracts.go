package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"eve-appraiser/internal/esi"
	"eve-appraiser/internal/logger"
	"eve-appraiser/internal/world"
)

// ProfitMarginBuffer discounts the estimate before comparing to the asking
// price, absorbing estimation error: a contract is only worth reporting when
// estimate × buffer still beats the price.
const ProfitMarginBuffer = 0.9

// ErrBadPayload marks a persisted raw payload that no longer parses. It is a
// distinct error kind so ingestion bugs are not mistaken for transient
// failures.
var ErrBadPayload = errors.New("engine: bad contract payload")

// StoredContract is one row of the contracts table. RawData and Items carry
// the opaque payload blobs written at ingestion time; Items is nil until the
// item fetch pass fills it in.
type StoredContract struct {
	ContractID int64
	RegionID   int32
	Title      string
	Price      float64
	RawData    []byte
	Items      []byte
	Estimate   float64
}

// BlueprintInfo is the blueprint research state attached to a contract item.
type BlueprintInfo struct {
	MaterialEfficiency int
	TimeEfficiency     int
	IsCopy             bool
	Runs               int
}

// PrettyString renders the blueprint state the way in-game fitting tools do.
func (b BlueprintInfo) PrettyString() string {
	kind := "BPO"
	if b.IsCopy {
		kind = fmt.Sprintf("BPC:%d", b.Runs)
	}
	return fmt.Sprintf("%s ME:%d TE:%d", kind, b.MaterialEfficiency, b.TimeEfficiency)
}

// ContractItem is one parsed line item. Quantity is negative for items the
// buyer must provide, so a plain sum values the exchange correctly.
type ContractItem struct {
	Quantity  float64
	Type      world.ItemType
	Blueprint *BlueprintInfo
}

// MaybeDamagedCrystal flags a lone mining/weapon crystal: a single crystal
// in a contract may be partially damaged, and damaged crystals have no
// fungible market price.
func (ci ContractItem) MaybeDamagedCrystal() bool {
	return ci.Quantity == 1 &&
		ci.Type.Category == "Charge" &&
		strings.HasSuffix(ci.Type.Group, " Crystal")
}

// PrettyString renders the line item for the report.
func (ci ContractItem) PrettyString() string {
	s := fmt.Sprintf("%gx %s", ci.Quantity, ci.Type.FullName())
	if ci.Blueprint != nil {
		s += " " + ci.Blueprint.PrettyString()
	}
	return s
}

// Contract is a fully parsed item-exchange listing.
type Contract struct {
	ID          int64
	RegionID    int32
	Title       string
	Price       float64
	Volume      float64
	DateIssued  time.Time
	DateExpired time.Time
	Station     world.Station
	Items       []ContractItem
}

// ContainsShips reports whether any included item is a ship hull.
func (c Contract) ContainsShips() bool {
	for _, it := range c.Items {
		if it.Type.IsShip() {
			return true
		}
	}
	return false
}

// PrettyString renders the contract for the report.
func (c Contract) PrettyString() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Contract (%d): %s\n", c.ID, c.Title)
	fmt.Fprintf(&b, "Price: %.0f\n", c.Price)
	fmt.Fprintf(&b, "Issued: %s\n", c.DateIssued.Format(time.RFC3339))
	fmt.Fprintf(&b, "Valid until: %s\n", c.DateExpired.Format(time.RFC3339))
	fmt.Fprintf(&b, "Volume: %.0f\n", c.Volume)
	fmt.Fprintf(&b, "Located: %s (%.1f)", c.Station.Name, c.Station.Security)
	for _, it := range c.Items {
		fmt.Fprintf(&b, "\n  %s", it.PrettyString())
	}
	return b.String()
}

// ParseContract turns a stored row back into a typed contract, resolving
// item types and the station through the world model. Malformed blobs fail
// with ErrBadPayload.
func ParseContract(w *world.World, row StoredContract) (Contract, error) {
	var raw struct {
		Volume        float64 `json:"volume"`
		DateIssued    string  `json:"date_issued"`
		DateExpired   string  `json:"date_expired"`
		EndLocationID int64   `json:"end_location_id"`
	}
	if err := json.Unmarshal(row.RawData, &raw); err != nil {
		return Contract{}, fmt.Errorf("%w: contract %d raw_data: %v", ErrBadPayload, row.ContractID, err)
	}
	issued, err := time.Parse(time.RFC3339, raw.DateIssued)
	if err != nil {
		return Contract{}, fmt.Errorf("%w: contract %d date_issued %q", ErrBadPayload, row.ContractID, raw.DateIssued)
	}
	expired, err := time.Parse(time.RFC3339, raw.DateExpired)
	if err != nil {
		return Contract{}, fmt.Errorf("%w: contract %d date_expired %q", ErrBadPayload, row.ContractID, raw.DateExpired)
	}

	var payloads []esi.ContractItemPayload
	if len(row.Items) > 0 {
		if err := json.Unmarshal(row.Items, &payloads); err != nil {
			return Contract{}, fmt.Errorf("%w: contract %d items: %v", ErrBadPayload, row.ContractID, err)
		}
	}
	items := make([]ContractItem, 0, len(payloads))
	for _, p := range payloads {
		item, err := parseContractItem(w, p)
		if err != nil {
			return Contract{}, err
		}
		items = append(items, item)
	}

	station, err := w.FindStation(raw.EndLocationID)
	if err != nil {
		return Contract{}, err
	}

	return Contract{
		ID:          row.ContractID,
		RegionID:    row.RegionID,
		Title:       row.Title,
		Price:       row.Price,
		Volume:      raw.Volume,
		DateIssued:  issued,
		DateExpired: expired,
		Station:     station,
		Items:       items,
	}, nil
}

func parseContractItem(w *world.World, p esi.ContractItemPayload) (ContractItem, error) {
	it, err := w.FindItemType(p.TypeID)
	if err != nil {
		return ContractItem{}, err
	}
	qty := float64(p.Quantity)
	if !p.IsIncluded {
		qty = -qty
	}
	var bp *BlueprintInfo
	if it.IsBlueprint() {
		bp = &BlueprintInfo{
			MaterialEfficiency: p.MaterialEfficiency,
			TimeEfficiency:     p.TimeEfficiency,
			IsCopy:             p.IsBlueprintCopy,
			Runs:               p.Runs,
		}
	}
	return ContractItem{Quantity: qty, Type: it, Blueprint: bp}, nil
}

// Estimator values stored contracts against the price cache.
type Estimator struct {
	World  *world.World
	Prices PriceSource
}

// Estimate computes the realistic resale value of a contract's items.
//
// Contracts in private structures estimate to 0: the location is not
// independently accessible. Items without a fungible market price are
// skipped: Abyssal-rolled modules, SKIN cosmetics, rigs riding along with a
// ship (assumed installed, already reflected in hull value), possibly
// damaged lone crystals, and blueprints.
// TODO: price blueprint copies from their formula's run profit.
func (e *Estimator) Estimate(c Contract) (float64, error) {
	if c.Station.IsPrivate() {
		return 0, nil
	}
	containsShips := c.ContainsShips()
	var total float64
	for _, item := range c.Items {
		if strings.Contains(item.Type.Name, "Abyssal") {
			continue
		}
		if strings.HasSuffix(item.Type.Name, " SKIN") {
			continue
		}
		if containsShips && item.Type.IsRig() {
			continue
		}
		if item.MaybeDamagedCrystal() {
			continue
		}
		if item.Blueprint != nil {
			continue
		}
		p, err := e.Prices.FindItemPrice(item.Type)
		if err != nil {
			return 0, err
		}
		total += p.LowPrice * item.Quantity
	}
	return total, nil
}

// EstimateStore is the persistence needed by the estimation and report
// passes. Implemented by db.DB.
type EstimateStore interface {
	ContractsNeedingEstimate(regionID int32) ([]StoredContract, error)
	SetEstimate(contractID int64, estimate float64) error
	ProfitableContracts(marginBuffer, minProfit float64) ([]StoredContract, error)
}

// UpdateRegionEstimates estimates every contract in the region whose items
// are fetched but whose estimate is still unset. Failures on one contract
// leave its estimate unset for a retry on the next run; data gaps in the
// reference dataset are surfaced as errors rather than warnings.
func (e *Estimator) UpdateRegionEstimates(store EstimateStore, regionID int32) error {
	rows, err := store.ContractsNeedingEstimate(regionID)
	if err != nil {
		return err
	}
	logger.Info("Estimate", fmt.Sprintf("Estimating %d contracts in region %d", len(rows), regionID))

	for _, row := range rows {
		c, err := ParseContract(e.World, row)
		if err != nil {
			logEstimateFailure(row.ContractID, err)
			continue
		}
		estimate, err := e.Estimate(c)
		if err != nil {
			logEstimateFailure(row.ContractID, err)
			continue
		}
		logger.Info("Estimate", fmt.Sprintf("contract %d: price %.0f, value %.0f", c.ID, c.Price, estimate))
		if estimate*ProfitMarginBuffer > c.Price {
			fmt.Println(c.PrettyString())
		}
		if err := store.SetEstimate(c.ID, estimate); err != nil {
			return err
		}
	}
	return nil
}

func logEstimateFailure(contractID int64, err error) {
	var fnf *world.FormulaNotFoundError
	if errors.As(err, &fnf) || errors.Is(err, world.ErrNotFound) || errors.Is(err, ErrBadPayload) {
		// Reference-data gap or ingestion bug: retrying will not help,
		// someone has to look at it.
		logger.Error("Estimate", fmt.Sprintf("contract %d has a data gap: %v", contractID, err))
		return
	}
	logger.Warn("Estimate", fmt.Sprintf("contract %d estimation failed, will retry: %v", contractID, err))
}

// RatedContract pairs a parsed contract with its stored estimate.
type RatedContract struct {
	Contract Contract
	Estimate float64
}

// ReportFilters narrows the profitable-contracts report to listings that are
// practical to fulfill. These are presentation concerns, distinct from the
// estimate itself.
type ReportFilters struct {
	MinProfit   float64 // estimate minus price must exceed this
	MaxVolume   float64 // skip bulk hauls above this many m³
	MinSecurity float64 // skip stations below this security status
}

// ProfitableContracts returns the stored contracts whose discounted estimate
// beats the asking price, ordered by absolute profit ascending, with the
// operational filters applied.
func ProfitableContracts(store EstimateStore, w *world.World, f ReportFilters) ([]RatedContract, error) {
	rows, err := store.ProfitableContracts(ProfitMarginBuffer, f.MinProfit)
	if err != nil {
		return nil, err
	}
	var rated []RatedContract
	for _, row := range rows {
		c, err := ParseContract(w, row)
		if err != nil {
			logger.Error("Report", fmt.Sprintf("contract %d has a data gap: %v", row.ContractID, err))
			continue
		}
		if c.Volume > f.MaxVolume || c.Station.Security < f.MinSecurity {
			continue
		}
		rated = append(rated, RatedContract{Contract: c, Estimate: row.Estimate})
	}
	return rated, nil
}
