package world

import (
	"database/sql"
	"errors"
	"strings"
	"testing"

	_ "modernc.org/sqlite"
)

// newTestWorld builds a miniature reference dataset: one mineral, one frigate
// with a manufacturing blueprint, one reaction chain and one invention pair.
func newTestWorld(t *testing.T) *World {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open in-memory db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE invCategories (categoryID INTEGER PRIMARY KEY, categoryName TEXT);
		CREATE TABLE invGroups (groupID INTEGER PRIMARY KEY, groupName TEXT, categoryID INTEGER);
		CREATE TABLE invTypes (typeID INTEGER PRIMARY KEY, typeName TEXT, groupID INTEGER, volume REAL);
		CREATE TABLE staStations (stationID INTEGER PRIMARY KEY, stationName TEXT, security REAL);
		CREATE TABLE industryActivity (typeID INTEGER, activityID INTEGER, time INTEGER);
		CREATE TABLE industryActivityProducts (typeID INTEGER, activityID INTEGER, productTypeID INTEGER, quantity INTEGER);
		CREATE TABLE industryActivityMaterials (typeID INTEGER, activityID INTEGER, materialTypeID INTEGER, quantity INTEGER);
		CREATE TABLE industryActivityProbabilities (typeID INTEGER, activityID INTEGER, productTypeID INTEGER, probability REAL);

		INSERT INTO invCategories VALUES
			(1, 'Material'), (2, 'Ship'), (3, 'Blueprint'), (4, 'Reaction Formulas');
		INSERT INTO invGroups VALUES
			(10, 'Mineral', 1),
			(20, 'Frigate', 2),
			(30, 'Frigate Blueprint', 3),
			(40, 'Composite Reaction Formula', 4),
			(50, 'Intermediate Materials', 1),
			(60, 'Moon Materials', 1);
		INSERT INTO invTypes VALUES
			(34, 'Tritanium', 10, 0.01),
			(35, 'Pyerite', 10, 0.01),
			(601, 'Rifter', 20, 2500),
			(901, 'Rifter Blueprint', 30, 0.01),
			(16654, 'Crystallite Alloy', 50, 1),
			(16634, 'Cobalt', 60, 0.1),
			(16643, 'Cadmium', 60, 0.1),
			(46169, 'Crystallite Alloy Reaction Formula', 40, 0.01),
			(902, 'Rifter II Blueprint', 30, 0.01),
			(903, 'Broken Blueprint', 30, 0.01);

		INSERT INTO staStations VALUES (60003760, 'Jita IV - Moon 4 - Caldari Navy Assembly Plant', 0.9);

		-- Rifter manufacturing: 1x Rifter from minerals in 6000s.
		INSERT INTO industryActivity VALUES (901, 1, 6000);
		INSERT INTO industryActivityProducts VALUES (901, 1, 601, 1);
		INSERT INTO industryActivityMaterials VALUES (901, 1, 34, 20000);
		INSERT INTO industryActivityMaterials VALUES (901, 1, 35, 5000);

		-- Crystallite Alloy reaction: 200 units from moon goo in 10800s.
		INSERT INTO industryActivity VALUES (46169, 11, 10800);
		INSERT INTO industryActivityProducts VALUES (46169, 11, 16654, 200);
		INSERT INTO industryActivityMaterials VALUES (46169, 11, 16634, 100);
		INSERT INTO industryActivityMaterials VALUES (46169, 11, 16643, 100);

		-- Invention: Rifter Blueprint invents Rifter II Blueprint.
		INSERT INTO industryActivity VALUES (901, 8, 3000);
		INSERT INTO industryActivityProducts VALUES (901, 8, 902, 1);
		INSERT INTO industryActivityMaterials VALUES (901, 8, 34, 2);
		INSERT INTO industryActivityProbabilities VALUES (901, 8, 902, 0.34);

		-- Broken Blueprint invents with no probability row.
		INSERT INTO industryActivityProducts VALUES (901, 8, 903, 1);
	`)
	if err != nil {
		t.Fatalf("fixture: %v", err)
	}
	return New(db)
}

func TestFindItemType(t *testing.T) {
	w := newTestWorld(t)

	it, err := w.FindItemType(601)
	if err != nil {
		t.Fatalf("FindItemType: %v", err)
	}
	if it.Name != "Rifter" || it.Group != "Frigate" || it.Category != "Ship" {
		t.Errorf("item = %+v", it)
	}
	if it.Volume != 2500 {
		t.Errorf("Volume = %v, want 2500", it.Volume)
	}
	if !it.IsShip() {
		t.Error("Rifter should be a ship")
	}

	if _, err := w.FindItemType(99999); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing item error = %v, want ErrNotFound", err)
	}
}

func TestFindItemTypeByName(t *testing.T) {
	w := newTestWorld(t)

	it, err := w.FindItemTypeByName("Tritanium")
	if err != nil {
		t.Fatalf("FindItemTypeByName: %v", err)
	}
	if it.ID != 34 {
		t.Errorf("ID = %d, want 34", it.ID)
	}

	if _, err := w.FindItemTypeByName("Unobtainium"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing item error = %v, want ErrNotFound", err)
	}
}

func TestFindStation(t *testing.T) {
	w := newTestWorld(t)

	st, err := w.FindStation(60003760)
	if err != nil {
		t.Fatalf("FindStation: %v", err)
	}
	if st.Security != 0.9 || st.IsPrivate() {
		t.Errorf("station = %+v", st)
	}

	// Player structures are synthesized, never queried.
	st, err = w.FindStation(PrivateStationThreshold + 42)
	if err != nil {
		t.Fatalf("FindStation: %v", err)
	}
	if !st.IsPrivate() || st.Security != -1 {
		t.Errorf("structure = %+v", st)
	}

	// Unknown NPC IDs also get a usable placeholder.
	st, err = w.FindStation(12345)
	if err != nil {
		t.Fatalf("FindStation: %v", err)
	}
	if st.Security != -1 || !strings.Contains(st.Name, "12345") {
		t.Errorf("placeholder = %+v", st)
	}
}

func TestFindFormula_Manufacturing(t *testing.T) {
	w := newTestWorld(t)
	bp, err := w.FindItemType(901)
	if err != nil {
		t.Fatalf("FindItemType: %v", err)
	}
	if !bp.IsBlueprint() || bp.IsReactionBlueprint() {
		t.Fatalf("blueprint predicates wrong for %+v", bp)
	}

	f, err := w.FindFormula(bp)
	if err != nil {
		t.Fatalf("FindFormula: %v", err)
	}
	if f.Time != 6000 || f.Output.Type.ID != 601 || f.Output.Quantity != 1 {
		t.Errorf("formula = %+v", f)
	}
	if len(f.Inputs) != 2 {
		t.Fatalf("inputs = %d, want 2", len(f.Inputs))
	}
	// Materials come back ordered by type ID.
	if f.Inputs[0].Type.ID != 34 || f.Inputs[0].Quantity != 20000 {
		t.Errorf("input[0] = %+v", f.Inputs[0])
	}
	if f.Probability != 1.0 {
		t.Errorf("Probability = %v, want 1", f.Probability)
	}
}

func TestFindFormula_Reaction(t *testing.T) {
	w := newTestWorld(t)
	bp, err := w.FindItemType(46169)
	if err != nil {
		t.Fatalf("FindItemType: %v", err)
	}
	if !bp.IsReactionBlueprint() {
		t.Fatalf("%q should be a reaction formula", bp.Name)
	}

	f, err := w.FindFormula(bp)
	if err != nil {
		t.Fatalf("FindFormula: %v", err)
	}
	if f.Output.Type.Name != "Crystallite Alloy" || f.Output.Quantity != 200 {
		t.Errorf("output = %+v", f.Output)
	}
	if f.Time != 10800 || len(f.Inputs) != 2 {
		t.Errorf("formula = %+v", f)
	}
}

func TestFindFormula_NotABlueprint(t *testing.T) {
	w := newTestWorld(t)
	mineral, _ := w.FindItemType(34)
	_, err := w.FindFormula(mineral)
	var fnf *FormulaNotFoundError
	if !errors.As(err, &fnf) {
		t.Fatalf("error = %v, want FormulaNotFoundError", err)
	}
	if fnf.Item.ID != 34 {
		t.Errorf("error item = %+v", fnf.Item)
	}
}

func TestFindFormula_NoActivityRows(t *testing.T) {
	w := newTestWorld(t)
	bp, _ := w.FindItemType(902) // blueprint item with no recipe rows of its own
	_, err := w.FindFormula(bp)
	var fnf *FormulaNotFoundError
	if !errors.As(err, &fnf) {
		t.Fatalf("error = %v, want FormulaNotFoundError", err)
	}
}

func TestFindBlueprint(t *testing.T) {
	w := newTestWorld(t)

	rifter, _ := w.FindItemType(601)
	bp, err := w.FindBlueprint(rifter)
	if err != nil {
		t.Fatalf("FindBlueprint: %v", err)
	}
	if bp.ID != 901 {
		t.Errorf("blueprint = %+v, want 901", bp)
	}

	alloy, _ := w.FindItemType(16654)
	bp, err = w.FindBlueprint(alloy)
	if err != nil {
		t.Fatalf("FindBlueprint (reaction): %v", err)
	}
	if bp.ID != 46169 {
		t.Errorf("blueprint = %+v, want 46169", bp)
	}

	mineral, _ := w.FindItemType(34)
	if _, err := w.FindBlueprint(mineral); !errors.Is(err, ErrNotFound) {
		t.Errorf("raw material blueprint error = %v, want ErrNotFound", err)
	}
}

func TestFindInventionFormula(t *testing.T) {
	w := newTestWorld(t)

	t2bp, _ := w.FindItemType(902)
	f, err := w.FindInventionFormula(t2bp)
	if err != nil {
		t.Fatalf("FindInventionFormula: %v", err)
	}
	if f.Probability != 0.34 {
		t.Errorf("Probability = %v, want 0.34", f.Probability)
	}
	if f.Output.Type.ID != 902 || f.Output.Quantity != 1 {
		t.Errorf("output = %+v", f.Output)
	}
	if f.Time != 3000 || len(f.Inputs) != 1 {
		t.Errorf("formula = %+v", f)
	}
}

func TestFindInventionFormula_MissingProbability(t *testing.T) {
	w := newTestWorld(t)

	broken, _ := w.FindItemType(903)
	_, err := w.FindInventionFormula(broken)
	var fnf *FormulaNotFoundError
	if !errors.As(err, &fnf) {
		t.Fatalf("error = %v, want FormulaNotFoundError", err)
	}
	if !strings.Contains(fnf.Reason, "probability") {
		t.Errorf("reason = %q", fnf.Reason)
	}

	mineral, _ := w.FindItemType(34)
	_, err = w.FindInventionFormula(mineral)
	if !errors.As(err, &fnf) {
		t.Errorf("non-invented item error = %v, want FormulaNotFoundError", err)
	}
}

func TestFindMaterialUses(t *testing.T) {
	w := newTestWorld(t)

	cobalt, _ := w.FindItemType(16634)
	uses, err := w.FindMaterialUses(cobalt)
	if err != nil {
		t.Fatalf("FindMaterialUses: %v", err)
	}
	if len(uses) != 1 || uses[0].Output.Type.ID != 16654 {
		t.Errorf("uses = %+v, want the alloy reaction", uses)
	}

	rifter, _ := w.FindItemType(601)
	uses, err = w.FindMaterialUses(rifter)
	if err != nil {
		t.Fatalf("FindMaterialUses: %v", err)
	}
	if len(uses) != 0 {
		t.Errorf("uses = %+v, want none", uses)
	}
}
