package engine

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"eve-appraiser/internal/world"
)

// PrintIndustryTree writes the full input tree of an item: its recipe, then
// recursively the recipes of every input that can be produced. Items nothing
// manufactures are leaves.
func PrintIndustryTree(w *world.World, out io.Writer, padding int, it world.ItemType) error {
	bp, err := w.FindBlueprint(it)
	if errors.Is(err, world.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	f, err := w.FindFormula(bp)
	if err != nil {
		return err
	}

	indent := strings.Repeat(" ", padding)
	fmt.Fprintf(out, "%s%gx %s (%s)\n", indent, f.Output.Quantity, it.Name, bp.Group)
	for _, in := range f.Inputs {
		fmt.Fprintf(out, "%s- %gx %s\n", indent, in.Quantity, in.Type.Name)
	}
	for _, in := range f.Inputs {
		if err := PrintIndustryTree(w, out, padding+2, in.Type); err != nil {
			return err
		}
	}
	return nil
}
