// Package mechfile reads and writes mechanism documents in YAML:
//
//	species:
//	  - name: W
//	    inchi: InChI=1S/C4H10O/c1-3-4(2)5/h4-5H,3H2,1-2H3
//	    mult: 1
//	reactions:
//	  - reactants: [W, OH]
//	    products: [V, OH]
//	  - "H2 + O = H + OH"
//	  - "H + O2 = HO2 [(+M)]"
//
// A reaction is either a mapping or an equation string in the canonical key
// form, with an optional bracketed third body.
package mechfile

import (
	"bytes"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/turtacn/mechstereo/internal/domain/reaction"
	"github.com/turtacn/mechstereo/pkg/errors"
)

type document struct {
	Species   []reaction.Species `yaml:"species"`
	Reactions []entry            `yaml:"reactions"`
}

type entry struct {
	reaction.Reaction
}

func (e *entry) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		r, err := ParseEquation(node.Value)
		if err != nil {
			return err
		}
		e.Reaction = r
		return nil
	}
	var r reaction.Reaction
	if err := node.Decode(&r); err != nil {
		return err
	}
	e.Reaction = r
	return nil
}

func (e entry) MarshalYAML() (interface{}, error) {
	return e.Reaction, nil
}

// ParseEquation parses "A + B = C + D" with an optional trailing "[M]" third
// body.
func ParseEquation(s string) (reaction.Reaction, error) {
	eq := strings.TrimSpace(s)
	thirdBody := ""
	if strings.HasSuffix(eq, "]") {
		open := strings.LastIndex(eq, "[")
		if open < 0 {
			return reaction.Reaction{}, invalid("unbalanced third body bracket", s)
		}
		thirdBody = strings.TrimSpace(eq[open+1 : len(eq)-1])
		eq = strings.TrimSpace(eq[:open])
	}
	lhs, rhs, ok := strings.Cut(eq, "=")
	if !ok || strings.Contains(rhs, "=") {
		return reaction.Reaction{}, invalid("equation needs exactly one '='", s)
	}
	reactants, err := parseSide(lhs, s)
	if err != nil {
		return reaction.Reaction{}, err
	}
	products, err := parseSide(rhs, s)
	if err != nil {
		return reaction.Reaction{}, err
	}
	return reaction.New(reactants, products, thirdBody), nil
}

func parseSide(side, eq string) ([]string, error) {
	var out []string
	for _, f := range strings.Split(side, " + ") {
		f = strings.TrimSpace(f)
		if f == "" {
			return nil, invalid("empty species in equation", eq)
		}
		out = append(out, f)
	}
	return out, nil
}

func invalid(msg, detail string) *errors.AppError {
	return errors.New(errors.ErrCodeMechanismFileInvalid, msg).WithDetail(detail)
}

// Parse decodes and validates a mechanism document.
func Parse(data []byte) (*reaction.Mechanism, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New(errors.ErrCodeMechanismFileInvalid, "mechanism document is empty")
	}
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeMechanismFileInvalid, "decode mechanism document")
	}
	mech := &reaction.Mechanism{Species: doc.Species, Reactions: make([]reaction.Reaction, len(doc.Reactions))}
	for i, e := range doc.Reactions {
		mech.Reactions[i] = e.Reaction
	}
	if err := Validate(mech); err != nil {
		return nil, err
	}
	return mech, nil
}

// Validate checks that species names are unique and non-empty, that every
// species carries an identifier and that no reaction has an empty side.
// Reactions over unknown names are accepted; they are dropped during
// expansion.
func Validate(m *reaction.Mechanism) error {
	seen := make(map[string]bool, len(m.Species))
	for i, s := range m.Species {
		if s.Name == "" {
			return errors.Newf(errors.ErrCodeMechanismFileInvalid, "species #%d has no name", i)
		}
		if seen[s.Name] {
			return invalid("duplicate species name", s.Name)
		}
		seen[s.Name] = true
		if s.InChI == "" {
			return invalid("species has no inchi", s.Name)
		}
	}
	for i, r := range m.Reactions {
		if len(r.Reactants) == 0 || len(r.Products) == 0 {
			return errors.Newf(errors.ErrCodeMechanismFileInvalid, "reaction #%d has an empty side", i)
		}
	}
	return nil
}

// Read reads a mechanism document from r.
func Read(r io.Reader) (*reaction.Mechanism, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeMechanismFileInvalid, "read mechanism document")
	}
	return Parse(data)
}

// ReadFile reads the mechanism document at path.
func ReadFile(path string) (*reaction.Mechanism, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeMechanismFileInvalid, "read mechanism file").WithDetail(path)
	}
	return Parse(data)
}

// Marshal encodes m as a YAML document.  Reactions are written as mappings.
func Marshal(m *reaction.Mechanism) ([]byte, error) {
	doc := document{Species: m.Species, Reactions: make([]entry, len(m.Reactions))}
	for i, r := range m.Reactions {
		doc.Reactions[i] = entry{r}
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "encode mechanism document")
	}
	if err := enc.Close(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "encode mechanism document")
	}
	return buf.Bytes(), nil
}

// Write writes m to w.
func Write(w io.Writer, m *reaction.Mechanism) error {
	data, err := Marshal(m)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "write mechanism document")
	}
	return nil
}

// WriteFile writes m to path.
func WriteFile(path string, m *reaction.Mechanism) error {
	data, err := Marshal(m)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "write mechanism file").WithDetail(path)
	}
	return nil
}
