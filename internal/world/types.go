package world

import "strings"

// PrivateStationThreshold separates NPC stations from player structures.
// Location IDs above it are citadels and other structures whose markets are
// not publicly verifiable.
const PrivateStationThreshold = 1_000_000_000

// ItemType describes one item type from the reference dataset.
// Identity is the ID alone; the remaining fields are descriptive and two
// values with the same ID are interchangeable.
type ItemType struct {
	ID       int32
	Name     string
	Group    string
	Category string
	Volume   float64 // packaged volume in m³
}

// Key returns the identity key of the item type. Use it for map keys and
// set membership instead of the full struct, which carries cosmetic fields.
func (it ItemType) Key() int32 {
	return it.ID
}

// FullName is the display name with the group attached.
func (it ItemType) FullName() string {
	return it.Name + " (" + it.Group + ")"
}

// IsBlueprint reports whether the item defines a recipe (manufacturing
// blueprint or reaction formula).
func (it ItemType) IsBlueprint() bool {
	return it.Category == "Blueprint" || it.IsReactionBlueprint()
}

// IsReactionBlueprint reports whether the item is a reaction formula rather
// than a manufacturing blueprint.
func (it ItemType) IsReactionBlueprint() bool {
	return strings.Contains(it.Group, "Reaction Formula") ||
		strings.HasSuffix(it.Name, " Reaction Formula")
}

// IsShip reports whether the item is a flyable hull.
func (it ItemType) IsShip() bool {
	return it.Category == "Ship"
}

// IsRig reports whether the item is a rig module. Rig groups in the SDE are
// consistently prefixed with "Rig".
func (it ItemType) IsRig() bool {
	return it.Category == "Module" && strings.HasPrefix(it.Group, "Rig ")
}

// IsCapital reports whether the item is a capital-class hull or component.
func (it ItemType) IsCapital() bool {
	if strings.Contains(it.Group, "Capital") || strings.Contains(it.Name, "Capital ") {
		return true
	}
	switch it.Group {
	case "Carrier", "Dreadnought", "Supercarrier", "Titan", "Freighter", "Jump Freighter", "Force Auxiliary", "Lancer Dreadnought":
		return true
	}
	return false
}

// IsHuge reports whether the item is too bulky to ship by conventional
// freight.
func (it ItemType) IsHuge() bool {
	return it.Volume >= 500_000
}

// Station is a trade location. Security is -1 when unknown.
type Station struct {
	ID       int64
	Name     string
	Security float64
}

// IsPrivate reports whether the station is a player structure, i.e. not a
// real tradeable market location. Estimation treats these specially.
func (s Station) IsPrivate() bool {
	return s.ID > PrivateStationThreshold
}

// ItemQuantity pairs an item type with a quantity. Quantities are fractional:
// folding a sub-recipe whose output does not divide a requirement evenly
// produces non-integer amounts.
type ItemQuantity struct {
	Type     ItemType
	Quantity float64
}

// Formula is one manufacturing, reaction or invention recipe.
//
// Inputs never include the output's own type ID; the reference dataset
// guarantees it and folding preserves it. Intermediates lists sub-outputs a
// folded variant produces in-house: they no longer appear as purchased
// inputs but still incur a production-job fee.
type Formula struct {
	Blueprint     ItemType
	Time          float64 // seconds per run
	Output        ItemQuantity
	Inputs        []ItemQuantity
	Probability   float64 // success chance, 1.0 except invention
	Intermediates []ItemQuantity
}
