package mechfile

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/mechstereo/internal/domain/reaction"
	"github.com/turtacn/mechstereo/pkg/errors"
)

const sample = `
species:
  - name: H2
    inchi: InChI=1S/H2/h1H
  - name: O
    inchi: InChI=1S/O
    mult: 3
  - name: OH
    inchi: InChI=1S/HO/h1H
    mult: 2
  - name: H
    inchi: InChI=1S/H
reactions:
  - reactants: [H2, O]
    products: [H, OH]
  - "H + OH = H2 + O"
  - "H + H = H2 [(+M)]"
`

func TestParse(t *testing.T) {
	m, err := Parse([]byte(sample))
	require.NoError(t, err)
	require.Len(t, m.Species, 4)
	require.Len(t, m.Reactions, 3)

	assert.Equal(t, 3, m.Species[1].Mult)
	assert.Equal(t, "H2 + O = H + OH", m.Reactions[0].Key())
	assert.Equal(t, "H + OH = H2 + O", m.Reactions[1].Key())
	assert.Equal(t, "(+M)", m.Reactions[2].ThirdBody)
	assert.Equal(t, reaction.Side{"H", "H"}, m.Reactions[2].Reactants)
}

func TestParseEquation(t *testing.T) {
	tests := []struct {
		in      string
		key     string
		wantErr bool
	}{
		{in: "A + B = C", key: "A + B = C"},
		{in: "  W =V  ", key: "W = V"},
		{in: "A = B [M]", key: "A = B [M]"},
		{in: "A = B = C", wantErr: true},
		{in: "A + B", wantErr: true},
		{in: "A +  + B = C", wantErr: true},
		{in: " = C", wantErr: true},
		{in: "A = B M]", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			r, err := ParseEquation(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsCode(err, errors.ErrCodeMechanismFileInvalid))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.key, r.Key())
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := map[string]string{
		"empty":          "   \n",
		"not yaml":       "species: [",
		"duplicate name": "species:\n  - {name: A, inchi: x}\n  - {name: A, inchi: y}\n",
		"no inchi":       "species:\n  - {name: A}\n",
		"no name":        "species:\n  - {inchi: x}\n",
		"empty side":     "reactions:\n  - {reactants: [A], products: []}\n",
		"bad equation":   "reactions:\n  - \"A + B\"\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrCodeMechanismFileInvalid))
		})
	}
}

func TestParse_UnknownSpeciesAccepted(t *testing.T) {
	m, err := Parse([]byte("reactions:\n  - \"X = Y\"\n"))
	require.NoError(t, err)
	assert.Len(t, m.Reactions, 1)
	assert.Empty(t, m.Species)
}

func TestWriteThenRead(t *testing.T) {
	in, err := Parse([]byte(sample))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, in))
	assert.True(t, strings.HasPrefix(buf.String(), "species:"))
	assert.Contains(t, buf.String(), "third_body:")

	out, err := Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mech.yaml")
	in := &reaction.Mechanism{
		Species: []reaction.Species{
			{Name: "W-1", InChI: "InChI=1S/C4H10O/c1-3-4(2)5/h4-5H,3H2,1-2H3/t4-/m1/s1", SMILES: "CC[C@@H](C)O"},
			{Name: "V-1", InChI: "InChI=1S/C4H10O/c1-4(2)3-5/h4-5H,3H2,1-2H3"},
		},
		Reactions: []reaction.Reaction{reaction.New([]string{"W-1"}, []string{"V-1"}, "")},
	}
	require.NoError(t, WriteFile(path, in))

	out, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestReadFile_Missing(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeMechanismFileInvalid))
}
