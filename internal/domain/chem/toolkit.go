// Package chem holds the identifier algebra the expansion core relies on:
// the Toolkit contract implemented by a chemistry backend, the Formula value
// type, and reaction-level helpers built on top of a Toolkit.
package chem

import (
	"github.com/turtacn/mechstereo/internal/domain/reaction"
)

// Toolkit is the structure-identifier algebra.  Implementations hold no
// mutable state and are safe for concurrent use.
//
// Contract:
//   - StripStereo is idempotent.
//   - Reflect is an involution on chiral identifiers and returns its input
//     unchanged for achiral ones.
type Toolkit interface {
	// StripStereo removes every stereochemical descriptor from id.
	StripStereo(id string) string

	// Formula returns the elemental composition of id.
	Formula(id string) (Formula, error)

	// Reflect returns the mirror image of id.
	Reflect(id string) string

	// AreEnantiomers reports whether a and b are distinct mirror images.
	AreEnantiomers(a, b string) bool

	// SortedJoin returns ids in canonical order.
	SortedJoin(ids []string) []string
}

// NoStereo returns the bucketing key form of r: stripped, canonically ordered
// and without third body.
func NoStereo(tk Toolkit, r reaction.Reaction) reaction.Reaction {
	return reaction.Reaction{
		Reactants: stripSide(tk, r.Reactants),
		Products:  stripSide(tk, r.Products),
	}
}

// StripReaction is NoStereo that keeps the third body.
func StripReaction(tk Toolkit, r reaction.Reaction) reaction.Reaction {
	return NoStereo(tk, r).WithThirdBody(r.ThirdBody)
}

// Canonical orders both sides of r with the toolkit's ordering.
func Canonical(tk Toolkit, r reaction.Reaction) reaction.Reaction {
	return reaction.Reaction{
		Reactants: tk.SortedJoin(r.Reactants),
		Products:  tk.SortedJoin(r.Products),
		ThirdBody: r.ThirdBody,
	}
}

func stripSide(tk Toolkit, side reaction.Side) reaction.Side {
	out := make([]string, len(side))
	for i, id := range side {
		out[i] = tk.StripStereo(id)
	}
	return tk.SortedJoin(out)
}

// Mirror is the enantiomer transform of r: every identifier on both sides is
// reflected.  A side left unchanged by reflection becomes nil ("achiral along
// this side") so it cannot establish connectivity on its own.
func Mirror(tk Toolkit, r reaction.Reaction) reaction.Reaction {
	return reaction.Reaction{
		Reactants: mirrorSide(tk, r.Reactants),
		Products:  mirrorSide(tk, r.Products),
		ThirdBody: r.ThirdBody,
	}
}

func mirrorSide(tk Toolkit, side reaction.Side) reaction.Side {
	out := make([]string, len(side))
	changed := false
	for i, id := range side {
		out[i] = tk.Reflect(id)
		if out[i] != id {
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return tk.SortedJoin(out)
}

// Reflection mirrors every identifier of r, keeping achiral sides as they
// are.  Unlike Mirror it never produces nil sides.
func Reflection(tk Toolkit, r reaction.Reaction) reaction.Reaction {
	ref := func(side reaction.Side) reaction.Side {
		out := make([]string, len(side))
		for i, id := range side {
			out[i] = tk.Reflect(id)
		}
		return tk.SortedJoin(out)
	}
	return reaction.Reaction{Reactants: ref(r.Reactants), Products: ref(r.Products), ThirdBody: r.ThirdBody}
}

// SideFormula joins the formulas of every identifier on side.
func SideFormula(tk Toolkit, side reaction.Side) (Formula, error) {
	total := Formula{}
	for _, id := range side {
		f, err := tk.Formula(id)
		if err != nil {
			return nil, err
		}
		total = total.Join(f)
	}
	return total, nil
}

// IsChiral reports whether id has a distinct mirror image.
func IsChiral(tk Toolkit, id string) bool {
	return tk.Reflect(id) != id
}
