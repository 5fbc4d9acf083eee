package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"eve-appraiser/internal/esi"
	"eve-appraiser/internal/logger"
)

// ContractService is the slice of the listings API the refresh pass needs.
// Implemented by esi.Client.
type ContractService interface {
	FetchRegionContracts(regionID int32) ([]esi.PublicContract, error)
	FetchContractItems(contractID int64) ([]esi.ContractItemPayload, error)
}

// ContractStore is the persistence side of ingestion. Implemented by db.DB.
type ContractStore interface {
	UpsertContracts(lastSeen time.Time, regionID int32, contracts []esi.PublicContract) (int, error)
	DeleteContractsOlderThan(lastSeen time.Time, regionID int32) (int64, error)
	DeleteContract(contractID int64) error
	ContractsMissingItems(regionID int32) ([]int64, error)
	SetContractItems(contractID int64, items []byte) error
}

// Refresher ingests a region's public contracts into the store and lazily
// fills in their line items.
type Refresher struct {
	Store ContractStore
	ESI   ContractService
	now   func() time.Time
}

// NewRefresher wires a refresher over the given store and API client.
func NewRefresher(store ContractStore, svc ContractService) *Refresher {
	return &Refresher{Store: store, ESI: svc, now: time.Now}
}

// RefreshRegion runs the full ingestion pass for one region: fetch every
// page of public contracts, keep current item-exchange listings, delete
// local records the service no longer returns, then fetch items for listings
// that still lack them. A fetch failure aborts the whole region for this
// run; per-listing item failures are skipped and retried next run.
func (r *Refresher) RefreshRegion(regionID int32) error {
	lastSeen := r.now().UTC()

	contracts, err := r.ESI.FetchRegionContracts(regionID)
	if err != nil {
		return fmt.Errorf("fetch contracts for region %d: %w", regionID, err)
	}

	// Listings about to expire are not worth evaluating: by the time items
	// are fetched and estimated they are gone.
	cutoff := lastSeen.Add(time.Hour)
	keep := contracts[:0]
	for _, c := range contracts {
		if c.Type == "item_exchange" && c.ExpiresAfter(cutoff) {
			keep = append(keep, c)
		}
	}

	logger.Info("Refresh", fmt.Sprintf("region %d: %d item-exchange contracts", regionID, len(keep)))
	updated, err := r.Store.UpsertContracts(lastSeen, regionID, keep)
	if err != nil {
		return err
	}
	logger.Info("Refresh", fmt.Sprintf("region %d: %d rows updated", regionID, updated))

	deleted, err := r.Store.DeleteContractsOlderThan(lastSeen, regionID)
	if err != nil {
		return err
	}
	if deleted > 0 {
		logger.Info("Refresh", fmt.Sprintf("region %d: deleted %d obsolete contracts", regionID, deleted))
	}

	return r.fetchMissingItems(regionID)
}

func (r *Refresher) fetchMissingItems(regionID int32) error {
	ids, err := r.Store.ContractsMissingItems(regionID)
	if err != nil {
		return err
	}
	logger.Info("Refresh", fmt.Sprintf("region %d: fetching items for %d contracts", regionID, len(ids)))

	for _, id := range ids {
		items, err := r.ESI.FetchContractItems(id)
		switch {
		case errors.Is(err, esi.ErrGone) || errors.Is(err, esi.ErrNotFound) || errors.Is(err, esi.ErrForbidden):
			// The listing was accepted, expired or withdrawn; it is
			// unrecoverable and the local record goes with it.
			logger.Info("Refresh", fmt.Sprintf("contract %d is gone (%v), deleting", id, err))
			if err := r.Store.DeleteContract(id); err != nil {
				return err
			}
		case err != nil:
			// Transient: items stays NULL, so the next run picks it up again.
			logger.Warn("Refresh", fmt.Sprintf("contract %d items not retrieved, will retry: %v", id, err))
		default:
			blob, err := json.Marshal(items)
			if err != nil {
				return fmt.Errorf("encode items for contract %d: %w", id, err)
			}
			if err := r.Store.SetContractItems(id, blob); err != nil {
				return err
			}
		}
	}
	return nil
}
