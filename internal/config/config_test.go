package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault_Values(t *testing.T) {
	c := Default()
	if c == nil {
		t.Fatal("Default() returned nil")
	}
	if c.HubRegionID != 10000002 {
		t.Errorf("HubRegionID = %v, want The Forge", c.HubRegionID)
	}
	if c.HubStationID != 60003760 {
		t.Errorf("HubStationID = %v, want Jita 4-4", c.HubStationID)
	}
	if c.PriceRefreshHours != 6 {
		t.Errorf("PriceRefreshHours = %v, want 6", c.PriceRefreshHours)
	}
	if c.SalesTaxDiscount != 0.97 {
		t.Errorf("SalesTaxDiscount = %v, want 0.97", c.SalesTaxDiscount)
	}
	if c.SystemCostFactor != 0.02 {
		t.Errorf("SystemCostFactor = %v, want 0.02", c.SystemCostFactor)
	}
	if c.MinReportProfit != 20_000_000 {
		t.Errorf("MinReportProfit = %v, want 20M", c.MinReportProfit)
	}
	if len(c.ReactionBlueprints) == 0 {
		t.Error("ReactionBlueprints empty")
	}
	if len(c.Regions) == 0 {
		t.Error("Regions empty")
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.HubRegionID != DefaultHubRegionID {
		t.Errorf("HubRegionID = %v, want default", c.HubRegionID)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	data := `{"regions": [10000043], "min_report_profit": 5000000}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(c.Regions) != 1 || c.Regions[0] != 10000043 {
		t.Errorf("Regions = %v, want [10000043]", c.Regions)
	}
	if c.MinReportProfit != 5_000_000 {
		t.Errorf("MinReportProfit = %v, want 5M", c.MinReportProfit)
	}
	// Untouched keys keep their defaults.
	if c.SalesTaxDiscount != 0.97 {
		t.Errorf("SalesTaxDiscount = %v, want default", c.SalesTaxDiscount)
	}
}

func TestLoad_MalformedFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("APPRAISER_STORE_DB", "/tmp/override.db")
	t.Setenv("APPRAISER_REGIONS", "10000002, 10000043")

	c, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.StoreDBPath != "/tmp/override.db" {
		t.Errorf("StoreDBPath = %q", c.StoreDBPath)
	}
	if len(c.Regions) != 2 || c.Regions[1] != 10000043 {
		t.Errorf("Regions = %v, want two regions", c.Regions)
	}
}

func TestLoad_BadRegionEnv(t *testing.T) {
	t.Setenv("APPRAISER_REGIONS", "jita")
	if _, err := Load(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatal("expected error for non-numeric region")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	c := Default()
	c.Regions = []int32{10000043}
	if err := c.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got.Regions) != 1 || got.Regions[0] != 10000043 {
		t.Errorf("Regions = %v", got.Regions)
	}
}
