package inchi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/mechstereo/pkg/errors"
)

const (
	butan2olR  = "InChI=1S/C4H10O/c1-3-4(2)5/h4-5H,3H2,1-2H3/t4-/m1/s1"
	butan2olS  = "InChI=1S/C4H10O/c1-3-4(2)5/h4-5H,3H2,1-2H3/t4-/m0/s1"
	butan2ol   = "InChI=1S/C4H10O/c1-3-4(2)5/h4-5H,3H2,1-2H3"
	but2eneE   = "InChI=1S/C4H8/c1-3-4-2/h3-4H,1-2H3/b4-3+"
	but2ene    = "InChI=1S/C4H8/c1-3-4-2/h3-4H,1-2H3"
	water      = "InChI=1S/H2O/h1H2"
	hydroxyl   = "InChI=1S/HO/h1H"
	twoCenters = "InChI=1S/C4H10O2/c1-3(5)4(2)6/h3-6H,1-2H3/t3-,4-/m1.0/s1"
)

func TestStripStereo(t *testing.T) {
	tk := New()

	assert.Equal(t, butan2ol, tk.StripStereo(butan2olR))
	assert.Equal(t, butan2ol, tk.StripStereo(butan2olS))
	assert.Equal(t, but2ene, tk.StripStereo(but2eneE))
	assert.Equal(t, water, tk.StripStereo(water))
	assert.Equal(t, "not-an-inchi", tk.StripStereo("not-an-inchi"))
}

func TestStripStereo_Idempotent(t *testing.T) {
	tk := New()
	for _, id := range []string{butan2olR, butan2olS, but2eneE, water, hydroxyl, twoCenters, "x"} {
		once := tk.StripStereo(id)
		assert.Equal(t, once, tk.StripStereo(once), id)
	}
}

func TestReflect(t *testing.T) {
	tk := New()

	assert.Equal(t, butan2olS, tk.Reflect(butan2olR))
	assert.Equal(t, butan2olR, tk.Reflect(butan2olS))
	assert.Equal(t, "InChI=1S/C4H10O2/c1-3(5)4(2)6/h3-6H,1-2H3/t3-,4-/m0.1/s1", tk.Reflect(twoCenters))
}

func TestReflect_InvolutionAndFixedPoint(t *testing.T) {
	tk := New()

	for _, id := range []string{butan2olR, butan2olS, twoCenters} {
		assert.NotEqual(t, id, tk.Reflect(id), "chiral %s", id)
		assert.Equal(t, id, tk.Reflect(tk.Reflect(id)))
	}
	// E/Z isomers are achiral: reflection is a fixed point.
	for _, id := range []string{but2eneE, but2ene, water, butan2ol} {
		assert.Equal(t, id, tk.Reflect(id))
	}
}

func TestAreEnantiomers(t *testing.T) {
	tk := New()

	assert.True(t, tk.AreEnantiomers(butan2olR, butan2olS))
	assert.True(t, tk.AreEnantiomers(butan2olS, butan2olR))
	assert.False(t, tk.AreEnantiomers(butan2olR, butan2olR))
	assert.False(t, tk.AreEnantiomers(butan2olR, butan2ol))
	assert.False(t, tk.AreEnantiomers(but2eneE, but2ene))
	assert.False(t, tk.AreEnantiomers(water, hydroxyl))
}

func TestFormula(t *testing.T) {
	tk := New()

	f, err := tk.Formula(butan2olR)
	require.NoError(t, err)
	assert.Equal(t, "C4H10O", f.String())

	f, err = tk.Formula(water)
	require.NoError(t, err)
	assert.Equal(t, "H2O", f.String())

	f, err = tk.Formula("InChI=1S/C2H6O.H2O/c1-2-3;/h3H,2H2,1H3;1H2")
	require.NoError(t, err)
	assert.Equal(t, "C2H8O2", f.String())

	_, err = tk.Formula("C4H10O")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidIdentifier))
}

func TestSortedJoin(t *testing.T) {
	tk := New()

	in := []string{water, butan2ol, hydroxyl}
	out := tk.SortedJoin(in)
	assert.Equal(t, []string{butan2ol, water, hydroxyl}, out)
	assert.Equal(t, water, in[0], "input must not be reordered")
	assert.Nil(t, tk.SortedJoin(nil))
}

func TestHasStereo(t *testing.T) {
	tk := New()
	assert.True(t, tk.HasStereo(butan2olR))
	assert.True(t, tk.HasStereo(but2eneE))
	assert.False(t, tk.HasStereo(butan2ol))
}
