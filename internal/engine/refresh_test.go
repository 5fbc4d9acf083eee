package engine

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"eve-appraiser/internal/esi"
)

type fakeContractStore struct {
	upserted    []esi.PublicContract
	deletedOld  bool
	deleted     []int64
	missing     []int64
	itemsSet    map[int64][]byte
	lastSeen    time.Time
	lastRegion  int32
}

func (s *fakeContractStore) UpsertContracts(lastSeen time.Time, regionID int32, contracts []esi.PublicContract) (int, error) {
	s.lastSeen = lastSeen
	s.lastRegion = regionID
	s.upserted = append(s.upserted, contracts...)
	return len(contracts), nil
}

func (s *fakeContractStore) DeleteContractsOlderThan(lastSeen time.Time, regionID int32) (int64, error) {
	s.deletedOld = true
	return 0, nil
}

func (s *fakeContractStore) DeleteContract(contractID int64) error {
	s.deleted = append(s.deleted, contractID)
	return nil
}

func (s *fakeContractStore) ContractsMissingItems(regionID int32) ([]int64, error) {
	return s.missing, nil
}

func (s *fakeContractStore) SetContractItems(contractID int64, items []byte) error {
	if s.itemsSet == nil {
		s.itemsSet = make(map[int64][]byte)
	}
	s.itemsSet[contractID] = items
	return nil
}

type fakeContractService struct {
	contracts []esi.PublicContract
	items     map[int64][]esi.ContractItemPayload
	itemErrs  map[int64]error
}

func (s *fakeContractService) FetchRegionContracts(regionID int32) ([]esi.PublicContract, error) {
	return s.contracts, nil
}

func (s *fakeContractService) FetchContractItems(contractID int64) ([]esi.ContractItemPayload, error) {
	if err, ok := s.itemErrs[contractID]; ok {
		return nil, err
	}
	return s.items[contractID], nil
}

func expiringAt(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func TestRefreshRegion_KeepsOnlyCurrentItemExchanges(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	svc := &fakeContractService{
		contracts: []esi.PublicContract{
			{ContractID: 1, Type: "item_exchange", DateExpired: expiringAt(now.Add(48 * time.Hour))},
			{ContractID: 2, Type: "auction", DateExpired: expiringAt(now.Add(48 * time.Hour))},
			{ContractID: 3, Type: "item_exchange", DateExpired: expiringAt(now.Add(30 * time.Minute))},
			{ContractID: 4, Type: "item_exchange", DateExpired: "garbage"},
		},
	}
	store := &fakeContractStore{}
	r := NewRefresher(store, svc)
	r.now = func() time.Time { return now }

	if err := r.RefreshRegion(10000002); err != nil {
		t.Fatalf("RefreshRegion: %v", err)
	}
	if len(store.upserted) != 1 || store.upserted[0].ContractID != 1 {
		t.Errorf("upserted = %+v, want contract 1 only", store.upserted)
	}
	if !store.deletedOld {
		t.Error("obsolete contracts were not purged")
	}
	if store.lastRegion != 10000002 || !store.lastSeen.Equal(now) {
		t.Errorf("lastSeen/region = %v/%d", store.lastSeen, store.lastRegion)
	}
}

func TestRefreshRegion_FetchesMissingItems(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	svc := &fakeContractService{
		items: map[int64][]esi.ContractItemPayload{
			10: {{RecordID: 1, TypeID: 34, Quantity: 100, IsIncluded: true}},
		},
		itemErrs: map[int64]error{
			11: esi.ErrGone,
			12: esi.ErrNotFound,
			13: errors.New("timeout"),
		},
	}
	store := &fakeContractStore{missing: []int64{10, 11, 12, 13}}
	r := NewRefresher(store, svc)
	r.now = func() time.Time { return now }

	if err := r.RefreshRegion(10000002); err != nil {
		t.Fatalf("RefreshRegion: %v", err)
	}

	blob, ok := store.itemsSet[10]
	if !ok {
		t.Fatal("items for contract 10 not stored")
	}
	var items []esi.ContractItemPayload
	if err := json.Unmarshal(blob, &items); err != nil {
		t.Fatalf("stored blob does not parse: %v", err)
	}
	if len(items) != 1 || items[0].TypeID != 34 {
		t.Errorf("stored items = %+v", items)
	}

	// Gone/NotFound delete the record; a transient error leaves it for retry.
	if len(store.deleted) != 2 {
		t.Errorf("deleted = %v, want contracts 11 and 12", store.deleted)
	}
	if _, ok := store.itemsSet[13]; ok {
		t.Error("transient failure must not store items")
	}
}
