package world

import (
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

// Industry activity IDs used by the industryActivity* tables of the
// reference dataset.
const (
	ActivityManufacturing = 1
	ActivityCopying       = 5
	ActivityInvention     = 8
	ActivityReaction      = 11
)

// ErrNotFound is returned when an item or station does not exist in the
// reference dataset.
var ErrNotFound = errors.New("world: not found")

// FormulaNotFoundError indicates a gap in the recipe data: either the item
// is not a blueprint at all, or the dataset has no recipe rows (or is
// missing its probability for invention). This is a data problem, not a
// transient condition, and callers should surface it rather than retry.
type FormulaNotFoundError struct {
	Item   ItemType
	Reason string
}

func (e *FormulaNotFoundError) Error() string {
	return fmt.Sprintf("world: no formula for %s (%d): %s", e.Item.Name, e.Item.ID, e.Reason)
}

// World provides read-only lookups over the reference SQLite dataset (the
// SDE dump). All lookups are pure: value objects are rebuilt per call and
// never mutated.
type World struct {
	db *sql.DB
}

// New wraps an already-open reference database.
func New(db *sql.DB) *World {
	return &World{db: db}
}

// Open opens the reference dataset read-only.
func Open(path string) (*World, error) {
	db, err := sql.Open("sqlite", path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("open reference db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping reference db: %w", err)
	}
	return &World{db: db}, nil
}

// Close closes the underlying database.
func (w *World) Close() error {
	return w.db.Close()
}

const itemTypeQuery = `
	SELECT t.typeID, t.typeName, g.groupName, c.categoryName, t.volume
	FROM invTypes t
	JOIN invGroups g ON g.groupID = t.groupID
	JOIN invCategories c ON c.categoryID = g.categoryID
`

func (w *World) scanItemType(row *sql.Row) (ItemType, error) {
	var it ItemType
	var volume sql.NullFloat64
	err := row.Scan(&it.ID, &it.Name, &it.Group, &it.Category, &volume)
	if err == sql.ErrNoRows {
		return ItemType{}, ErrNotFound
	}
	if err != nil {
		return ItemType{}, fmt.Errorf("scan item type: %w", err)
	}
	it.Volume = volume.Float64
	return it, nil
}

// FindItemType looks up an item type by ID.
func (w *World) FindItemType(id int32) (ItemType, error) {
	row := w.db.QueryRow(itemTypeQuery+"WHERE t.typeID = ?", id)
	it, err := w.scanItemType(row)
	if errors.Is(err, ErrNotFound) {
		return ItemType{}, fmt.Errorf("item type %d: %w", id, ErrNotFound)
	}
	return it, err
}

// FindItemTypeByName looks up an item type by exact name.
func (w *World) FindItemTypeByName(name string) (ItemType, error) {
	row := w.db.QueryRow(itemTypeQuery+"WHERE t.typeName = ?", name)
	it, err := w.scanItemType(row)
	if errors.Is(err, ErrNotFound) {
		return ItemType{}, fmt.Errorf("item type %q: %w", name, ErrNotFound)
	}
	return it, err
}

// FindStation looks up a station by ID. IDs above the private threshold are
// player structures that the dataset cannot describe; a private placeholder
// is synthesized instead of querying. Unknown NPC station IDs also get a
// placeholder with security -1 so callers can keep going.
func (w *World) FindStation(id int64) (Station, error) {
	if id > PrivateStationThreshold {
		return Station{ID: id, Name: fmt.Sprintf("Player structure %d", id), Security: -1}, nil
	}
	var st Station
	err := w.db.QueryRow(
		"SELECT stationID, stationName, security FROM staStations WHERE stationID = ?", id,
	).Scan(&st.ID, &st.Name, &st.Security)
	if err == sql.ErrNoRows {
		return Station{ID: id, Name: fmt.Sprintf("Unknown station %d", id), Security: -1}, nil
	}
	if err != nil {
		return Station{}, fmt.Errorf("find station %d: %w", id, err)
	}
	return st, nil
}

// FindFormula returns the recipe defined by a blueprint item. The activity
// kind (reaction vs manufacturing) is chosen from the blueprint's group.
func (w *World) FindFormula(bp ItemType) (Formula, error) {
	if !bp.IsBlueprint() {
		return Formula{}, &FormulaNotFoundError{Item: bp, Reason: "not a blueprint"}
	}
	activity := ActivityManufacturing
	if bp.IsReactionBlueprint() {
		activity = ActivityReaction
	}
	return w.formulaForActivity(bp, activity)
}

func (w *World) formulaForActivity(bp ItemType, activity int) (Formula, error) {
	var seconds float64
	err := w.db.QueryRow(
		"SELECT time FROM industryActivity WHERE typeID = ? AND activityID = ?",
		bp.ID, activity,
	).Scan(&seconds)
	if err == sql.ErrNoRows {
		return Formula{}, &FormulaNotFoundError{Item: bp, Reason: "no activity rows"}
	}
	if err != nil {
		return Formula{}, fmt.Errorf("activity time for %d: %w", bp.ID, err)
	}

	output, err := w.activityOutput(bp, activity)
	if err != nil {
		return Formula{}, err
	}

	inputs, err := w.activityMaterials(bp, activity)
	if err != nil {
		return Formula{}, err
	}

	return Formula{
		Blueprint:   bp,
		Time:        seconds,
		Output:      output,
		Inputs:      inputs,
		Probability: 1.0,
	}, nil
}

func (w *World) activityOutput(bp ItemType, activity int) (ItemQuantity, error) {
	var productID int32
	var quantity float64
	err := w.db.QueryRow(
		"SELECT productTypeID, quantity FROM industryActivityProducts WHERE typeID = ? AND activityID = ?",
		bp.ID, activity,
	).Scan(&productID, &quantity)
	if err == sql.ErrNoRows {
		return ItemQuantity{}, &FormulaNotFoundError{Item: bp, Reason: "no product rows"}
	}
	if err != nil {
		return ItemQuantity{}, fmt.Errorf("activity product for %d: %w", bp.ID, err)
	}
	product, err := w.FindItemType(productID)
	if err != nil {
		return ItemQuantity{}, err
	}
	return ItemQuantity{Type: product, Quantity: quantity}, nil
}

func (w *World) activityMaterials(bp ItemType, activity int) ([]ItemQuantity, error) {
	rows, err := w.db.Query(
		"SELECT materialTypeID, quantity FROM industryActivityMaterials "+
			"WHERE typeID = ? AND activityID = ? ORDER BY materialTypeID",
		bp.ID, activity,
	)
	if err != nil {
		return nil, fmt.Errorf("activity materials for %d: %w", bp.ID, err)
	}
	defer rows.Close()

	type matRow struct {
		id  int32
		qty float64
	}
	var mats []matRow
	for rows.Next() {
		var m matRow
		if err := rows.Scan(&m.id, &m.qty); err != nil {
			return nil, fmt.Errorf("scan material: %w", err)
		}
		mats = append(mats, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	inputs := make([]ItemQuantity, 0, len(mats))
	for _, m := range mats {
		it, err := w.FindItemType(m.id)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, ItemQuantity{Type: it, Quantity: m.qty})
	}
	return inputs, nil
}

// FindBlueprint reverse-looks-up the blueprint that produces an item.
// Returns ErrNotFound when nothing manufactures it.
func (w *World) FindBlueprint(output ItemType) (ItemType, error) {
	var bpID int32
	err := w.db.QueryRow(
		"SELECT typeID FROM industryActivityProducts "+
			"WHERE productTypeID = ? AND activityID IN (?, ?) LIMIT 1",
		output.ID, ActivityManufacturing, ActivityReaction,
	).Scan(&bpID)
	if err == sql.ErrNoRows {
		return ItemType{}, fmt.Errorf("blueprint for %q: %w", output.Name, ErrNotFound)
	}
	if err != nil {
		return ItemType{}, fmt.Errorf("find blueprint for %d: %w", output.ID, err)
	}
	return w.FindItemType(bpID)
}

// FindInventionFormula returns the invention recipe that produces a copy of
// outputBP from its T1 source blueprint: the invention activity's materials
// and time, combined with the success probability looked up separately.
// A missing probability while materials exist is an internal inconsistency
// of the dataset and fails with FormulaNotFoundError.
func (w *World) FindInventionFormula(outputBP ItemType) (Formula, error) {
	var sourceID int32
	err := w.db.QueryRow(
		"SELECT typeID FROM industryActivityProducts "+
			"WHERE productTypeID = ? AND activityID = ? LIMIT 1",
		outputBP.ID, ActivityInvention,
	).Scan(&sourceID)
	if err == sql.ErrNoRows {
		return Formula{}, &FormulaNotFoundError{Item: outputBP, Reason: "not an invention product"}
	}
	if err != nil {
		return Formula{}, fmt.Errorf("invention source for %d: %w", outputBP.ID, err)
	}

	source, err := w.FindItemType(sourceID)
	if err != nil {
		return Formula{}, err
	}

	f, err := w.formulaForActivity(source, ActivityInvention)
	if err != nil {
		return Formula{}, err
	}
	// The product row above gives the output blueprint; rebuild the output
	// with the requested type in case the source invents several.
	var qty float64
	err = w.db.QueryRow(
		"SELECT quantity FROM industryActivityProducts "+
			"WHERE typeID = ? AND activityID = ? AND productTypeID = ?",
		sourceID, ActivityInvention, outputBP.ID,
	).Scan(&qty)
	if err != nil {
		return Formula{}, fmt.Errorf("invention product quantity: %w", err)
	}
	f.Output = ItemQuantity{Type: outputBP, Quantity: qty}

	var probability float64
	err = w.db.QueryRow(
		"SELECT probability FROM industryActivityProbabilities "+
			"WHERE typeID = ? AND activityID = ? AND productTypeID = ?",
		sourceID, ActivityInvention, outputBP.ID,
	).Scan(&probability)
	if err == sql.ErrNoRows {
		return Formula{}, &FormulaNotFoundError{Item: outputBP, Reason: "invention rows exist but probability missing"}
	}
	if err != nil {
		return Formula{}, fmt.Errorf("invention probability: %w", err)
	}
	f.Probability = probability
	return f, nil
}

// FindMaterialUses returns every formula that consumes the given material
// directly, for "what is this good for" exploration.
func (w *World) FindMaterialUses(material ItemType) ([]Formula, error) {
	rows, err := w.db.Query(
		"SELECT DISTINCT typeID FROM industryActivityMaterials "+
			"WHERE materialTypeID = ? AND activityID IN (?, ?)",
		material.ID, ActivityManufacturing, ActivityReaction,
	)
	if err != nil {
		return nil, fmt.Errorf("material uses for %d: %w", material.ID, err)
	}
	defer rows.Close()

	var bpIDs []int32
	for rows.Next() {
		var id int32
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		bpIDs = append(bpIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var formulas []Formula
	for _, id := range bpIDs {
		bp, err := w.FindItemType(id)
		if err != nil {
			return nil, err
		}
		f, err := w.FindFormula(bp)
		if err != nil {
			var fnf *FormulaNotFoundError
			if errors.As(err, &fnf) {
				continue // blueprint exists but recipe rows are partial
			}
			return nil, err
		}
		formulas = append(formulas, f)
	}
	return formulas, nil
}
