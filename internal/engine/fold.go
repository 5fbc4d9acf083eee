package engine

import (
	"fmt"
	"sort"
	"strings"

	"eve-appraiser/internal/world"
)

// MaxFoldableInputs caps the subset enumeration. Fold is exponential in the
// number of foldable inputs; the recipe data keeps this small today, but the
// algorithm itself has no natural bound, so anything past the cap is
// rejected instead of ground through.
const MaxFoldableInputs = 12

// NamedFormula is a formula variant with its display name. Names are human
// labels, not keys: two different subsets with matching output sets collide.
type NamedFormula struct {
	Name    string
	Formula world.Formula
}

// Fold enumerates every make-vs-buy variant of f. An input is foldable when
// available has a formula producing it; each of the 2^k subsets of foldable
// inputs yields one variant where the chosen inputs are replaced by their
// sub-formula's own inputs. The empty subset returns f unchanged.
func Fold(f world.Formula, available map[int32]world.Formula) ([]NamedFormula, error) {
	var foldable []world.Formula
	for _, in := range f.Inputs {
		if sub, ok := available[in.Type.Key()]; ok {
			foldable = append(foldable, sub)
		}
	}
	if len(foldable) > MaxFoldableInputs {
		return nil, fmt.Errorf("fold %s: %d foldable inputs exceeds cap %d",
			f.Output.Type.Name, len(foldable), MaxFoldableInputs)
	}

	variants := make([]NamedFormula, 0, 1<<len(foldable))
	for mask := 0; mask < 1<<len(foldable); mask++ {
		toFold := make(map[int32]world.Formula)
		for i, sub := range foldable {
			if mask&(1<<i) != 0 {
				toFold[sub.Output.Type.Key()] = sub
			}
		}
		v, err := foldWith(f, toFold)
		if err != nil {
			return nil, err
		}
		variants = append(variants, v)
	}
	return variants, nil
}

// foldWith substitutes the given sub-formulas into f. Each substituted input
// is scaled by requiredQty/subOutputQty; time adds the scaled sub-formula
// time; the substituted sub-outputs are retained as intermediates so job
// costing still sees them.
func foldWith(f world.Formula, toFold map[int32]world.Formula) (NamedFormula, error) {
	if len(toFold) == 0 {
		return NamedFormula{Name: f.Output.Type.Name, Formula: f}, nil
	}

	var inputs []world.ItemQuantity
	var intermediates []world.ItemQuantity
	totalTime := f.Time
	for _, in := range f.Inputs {
		sub, ok := toFold[in.Type.Key()]
		if !ok {
			inputs = append(inputs, in)
			continue
		}
		if sub.Output.Quantity <= 0 {
			return NamedFormula{}, fmt.Errorf("fold %s: sub-formula %s has non-positive output",
				f.Output.Type.Name, sub.Output.Type.Name)
		}
		intermediates = append(intermediates, sub.Output)
		ratio := in.Quantity / sub.Output.Quantity
		totalTime += ratio * sub.Time
		for _, subIn := range sub.Inputs {
			// The dataset is assumed acyclic but not verified; refuse a
			// substitution that would reintroduce the output as its own input.
			if subIn.Type.Key() == f.Output.Type.Key() {
				return NamedFormula{}, fmt.Errorf("fold %s: substituting %s reintroduces the output",
					f.Output.Type.Name, sub.Output.Type.Name)
			}
			inputs = append(inputs, world.ItemQuantity{
				Type:     subIn.Type,
				Quantity: subIn.Quantity * ratio,
			})
		}
	}

	names := make([]string, 0, len(toFold))
	for _, sub := range toFold {
		names = append(names, sub.Output.Type.Name)
	}
	sort.Strings(names)
	name := fmt.Sprintf("%s[%s]", f.Output.Type.Name, strings.Join(names, "/"))

	return NamedFormula{
		Name: name,
		Formula: world.Formula{
			Blueprint:     f.Blueprint,
			Time:          totalTime,
			Output:        f.Output,
			Inputs:        inputs,
			Probability:   f.Probability,
			Intermediates: intermediates,
		},
	}, nil
}

// FoldAll folds every formula in the set against the others.
func FoldAll(formulas []world.Formula) ([]NamedFormula, error) {
	byOutput := make(map[int32]world.Formula, len(formulas))
	for _, f := range formulas {
		byOutput[f.Output.Type.Key()] = f
	}
	var all []NamedFormula
	for _, f := range formulas {
		variants, err := Fold(f, byOutput)
		if err != nil {
			return nil, err
		}
		all = append(all, variants...)
	}
	return all, nil
}
