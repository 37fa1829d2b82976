package testutil

import (
	"github.com/turtacn/mechstereo/internal/domain/reaction"
)

// Identifiers shared by package tests.  The W and V families are C4H10O
// skeletons with one stereocenter; V is synthetic.
const (
	InChIH    = "InChI=1S/H"
	InChIH2   = "InChI=1S/H2/h1H"
	InChIO    = "InChI=1S/O"
	InChIOH   = "InChI=1S/HO/h1H"
	InChIH2O  = "InChI=1S/H2O/h1H2"
	InChIH2O2 = "InChI=1S/H2O2/c1-2/h1-2H"

	InChIW  = "InChI=1S/C4H10O/c1-3-4(2)5/h4-5H,3H2,1-2H3"
	InChIWR = InChIW + "/t4-/m1/s1"
	InChIWS = InChIW + "/t4-/m0/s1"

	InChIV  = "InChI=1S/C4H10O/c1-4(2)3-5/h4-5H,3H2,1-2H3"
	InChIVR = InChIV + "/t4-/m1/s1"
	InChIVS = InChIV + "/t4-/m0/s1"
)

// HydrogenOxygenSpecies is a small achiral species table.
func HydrogenOxygenSpecies() []reaction.Species {
	return []reaction.Species{
		{Name: "H", InChI: InChIH, Mult: 2},
		{Name: "H2", InChI: InChIH2, Mult: 1},
		{Name: "O", InChI: InChIO, Mult: 3},
		{Name: "OH", InChI: InChIOH, Mult: 2},
		{Name: "H2O", InChI: InChIH2O, Mult: 1},
		{Name: "H2O2", InChI: InChIH2O2, Mult: 1},
	}
}

// ChiralSpecies lists W and V without stereo descriptors.
func ChiralSpecies() []reaction.Species {
	return []reaction.Species{
		{Name: "W", InChI: InChIW, Mult: 1},
		{Name: "V", InChI: InChIV, Mult: 1},
	}
}

// Rxn builds a named reaction.
func Rxn(reactants, products []string, thirdBody string) reaction.Reaction {
	return reaction.New(reactants, products, thirdBody)
}

// Lookup returns the name→identifier map of species.
func Lookup(species ...[]reaction.Species) reaction.Lookup {
	var all []reaction.Species
	for _, s := range species {
		all = append(all, s...)
	}
	return reaction.Mechanism{Species: all}.Lookup()
}
