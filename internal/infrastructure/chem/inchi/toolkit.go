// Package inchi implements chem.Toolkit over standard InChI strings by
// manipulating InChI layers directly:
//
//	InChI=1S/C4H10O/c1-3-4(2)5/h4-5H,3H2,1-2H3/t4-/m1/s1
//	         ^formula ^connections ^H        ^stereo layers (/b /t /m /s)
//
// Stripping drops the stereo layers, reflection inverts the /m flags, and
// formulas come from the formula layer.  No structure perception is done.
package inchi

import (
	"slices"
	"strings"

	"github.com/turtacn/mechstereo/internal/domain/chem"
	"github.com/turtacn/mechstereo/pkg/errors"
)

const prefix = "InChI="

// stereoLayers are the layer prefixes that encode stereochemistry.
var stereoLayers = map[byte]struct{}{
	'b': {}, // double bond
	't': {}, // tetrahedral
	'm': {}, // inversion flag
	's': {}, // stereo type
}

// Toolkit is a stateless chem.Toolkit for InChI identifiers.
type Toolkit struct{}

// New returns an InChI Toolkit.
func New() *Toolkit { return &Toolkit{} }

var _ chem.Toolkit = (*Toolkit)(nil)

// layers splits id into its version header and the remaining layers.
// ok is false when id is not an InChI.
func layers(id string) (header string, rest []string, ok bool) {
	if !strings.HasPrefix(id, prefix) {
		return "", nil, false
	}
	parts := strings.Split(id, "/")
	return parts[0], parts[1:], true
}

// StripStereo removes the /b /t /m /s layers.  Non-InChI input is returned
// unchanged.
func (t *Toolkit) StripStereo(id string) string {
	header, rest, ok := layers(id)
	if !ok {
		return id
	}
	kept := []string{header}
	for i, l := range rest {
		// rest[0] is the formula layer, which has no letter prefix.
		if i > 0 && l != "" {
			if _, isStereo := stereoLayers[l[0]]; isStereo {
				continue
			}
		}
		kept = append(kept, l)
	}
	return strings.Join(kept, "/")
}

// Formula parses the formula layer of id.
func (t *Toolkit) Formula(id string) (chem.Formula, error) {
	_, rest, ok := layers(id)
	if !ok || len(rest) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidIdentifier, "not an InChI").WithDetail(id)
	}
	return chem.ParseFormula(rest[0])
}

// Reflect inverts every digit of the /m layer.  Identifiers without an /m
// layer have no enantiomer and are returned unchanged.
func (t *Toolkit) Reflect(id string) string {
	header, rest, ok := layers(id)
	if !ok {
		return id
	}
	out := []string{header}
	for i, l := range rest {
		if i > 0 && strings.HasPrefix(l, "m") {
			l = "m" + invertFlags(l[1:])
		}
		out = append(out, l)
	}
	return strings.Join(out, "/")
}

func invertFlags(s string) string {
	b := []byte(s)
	for i, c := range b {
		switch c {
		case '0':
			b[i] = '1'
		case '1':
			b[i] = '0'
		}
	}
	return string(b)
}

// AreEnantiomers reports whether a and b share a skeleton and are each
// other's reflection.
func (t *Toolkit) AreEnantiomers(a, b string) bool {
	if a == b {
		return false
	}
	if t.StripStereo(a) != t.StripStereo(b) {
		return false
	}
	return t.Reflect(a) == b
}

// SortedJoin orders ids lexically.  The input is not modified.
func (t *Toolkit) SortedJoin(ids []string) []string {
	if ids == nil {
		return nil
	}
	out := slices.Clone(ids)
	slices.Sort(out)
	return out
}

// HasStereo reports whether id carries any stereo layer.
func (t *Toolkit) HasStereo(id string) bool {
	return t.StripStereo(id) != id
}
