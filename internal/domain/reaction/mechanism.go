package reaction

// Species is one entry of a mechanism's species table.
type Species struct {
	Name    string `json:"name" yaml:"name"`
	InChI   string `json:"inchi" yaml:"inchi"`
	SMILES  string `json:"smiles,omitempty" yaml:"smiles,omitempty"`
	Formula string `json:"formula,omitempty" yaml:"formula,omitempty"`
	Mult    int    `json:"mult,omitempty" yaml:"mult,omitempty"`
	Charge  int    `json:"charge,omitempty" yaml:"charge,omitempty"`
}

// Mechanism is a species table plus reactions written over species names.
// Both tables keep insertion order.
type Mechanism struct {
	Species   []Species  `json:"species" yaml:"species"`
	Reactions []Reaction `json:"reactions" yaml:"reactions"`
}

// Lookup builds the name→identifier map of m.
func (m Mechanism) Lookup() Lookup {
	l := make(Lookup, len(m.Species))
	for _, s := range m.Species {
		l[s.Name] = s.InChI
	}
	return l
}

// SpeciesByName returns the species called name.
func (m Mechanism) SpeciesByName(name string) (Species, bool) {
	for _, s := range m.Species {
		if s.Name == name {
			return s, true
		}
	}
	return Species{}, false
}

// Empty reports whether m has no reactions.
func (m Mechanism) Empty() bool {
	return len(m.Reactions) == 0
}
