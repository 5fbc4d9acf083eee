package esi

import (
	"encoding/json"
	"fmt"
	"time"
)

// PublicContract is the typed view of a public contract from ESI. Raw keeps
// the original payload so it can be persisted opaquely alongside the parsed
// fields.
type PublicContract struct {
	ContractID    int64   `json:"contract_id"`
	Type          string  `json:"type"`
	Price         float64 `json:"price"`
	Volume        float64 `json:"volume"`
	EndLocationID int64   `json:"end_location_id"`
	DateIssued    string  `json:"date_issued"`
	DateExpired   string  `json:"date_expired"`
	Title         string  `json:"title"`

	Raw json.RawMessage `json:"-"`
}

// ContractItemPayload is a single line item of a public contract.
type ContractItemPayload struct {
	RecordID           int64 `json:"record_id"`
	TypeID             int32 `json:"type_id"`
	Quantity           int32 `json:"quantity"`
	IsIncluded         bool  `json:"is_included"`
	IsBlueprintCopy    bool  `json:"is_blueprint_copy"`
	MaterialEfficiency int   `json:"material_efficiency"`
	TimeEfficiency     int   `json:"time_efficiency"`
	Runs               int   `json:"runs"`
}

// ExpiresAfter reports whether the contract is still valid at t.
func (c PublicContract) ExpiresAfter(t time.Time) bool {
	exp, err := time.Parse(time.RFC3339, c.DateExpired)
	if err != nil {
		return false
	}
	return exp.After(t)
}

// FetchRegionContracts fetches all public contracts for a region (paginated).
func (c *Client) FetchRegionContracts(regionID int32) ([]PublicContract, error) {
	url := fmt.Sprintf("%s/contracts/public/%d/?datasource=tranquility", baseURL, regionID)

	raws, err := c.GetPaginated(url)
	if err != nil {
		return nil, err
	}

	contracts := make([]PublicContract, 0, len(raws))
	for _, raw := range raws {
		var pc PublicContract
		if err := json.Unmarshal(raw, &pc); err != nil {
			return nil, fmt.Errorf("parse contract payload: %w", err)
		}
		pc.Raw = raw
		contracts = append(contracts, pc)
	}
	return contracts, nil
}

// FetchContractItems fetches items of a single public contract.
// Returns ErrGone (204), ErrForbidden or ErrNotFound when the contract is no
// longer retrievable.
func (c *Client) FetchContractItems(contractID int64) ([]ContractItemPayload, error) {
	url := fmt.Sprintf("%s/contracts/public/items/%d/?datasource=tranquility", baseURL, contractID)
	var items []ContractItemPayload
	if err := c.GetJSON(url, &items); err != nil {
		return nil, err
	}
	return items, nil
}
