package stereo_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/turtacn/mechstereo/internal/domain/reaction"
	"github.com/turtacn/mechstereo/internal/domain/stereo"
	"github.com/turtacn/mechstereo/internal/infrastructure/chem/inchi"
	"github.com/turtacn/mechstereo/internal/testutil"
)

func TestRemoveEnantiomerDuplicates(t *testing.T) {
	groups := []stereo.Group{
		{wrToVs},
		{wsToVr},
		{wrToVr},
		{wrToVs, vsToWr},
		{wsToVr, reaction.New([]string{testutil.InChIVR}, []string{testutil.InChIWS}, "")},
	}

	kept := stereo.RemoveEnantiomerDuplicates(inchi.New(), groups)

	assert.Equal(t, [][]string{
		{wrToVs.Key()},
		{wrToVr.Key()},
		{wrToVs.Key(), vsToWr.Key()},
	}, groupKeys(kept))
}

func TestRemoveEnantiomerDuplicates_KeepsAchiralGroup(t *testing.T) {
	achiral := reaction.New([]string{testutil.InChIH2, testutil.InChIO}, []string{testutil.InChIOH, testutil.InChIH}, "")
	kept := stereo.RemoveEnantiomerDuplicates(inchi.New(), []stereo.Group{{achiral}, {wrToVs}})
	assert.Len(t, kept, 2)
}

func TestComponentResult_Reactions(t *testing.T) {
	c := stereo.ComponentResult{Groups: []stereo.Group{{wrToVs}, {wrToVs, vsToWs}}}
	assert.Equal(t, []reaction.Reaction{wrToVs, vsToWs}, c.Reactions())
}

func TestValidEnantiomerically(t *testing.T) {
	tk := inchi.New()
	assert.True(t, stereo.ValidEnantiomerically(tk, []string{testutil.InChIWR, testutil.InChIVS, testutil.InChIW}))
	assert.True(t, stereo.ValidEnantiomerically(tk, []string{testutil.InChIWR, testutil.InChIWR}))
	assert.False(t, stereo.ValidEnantiomerically(tk, []string{testutil.InChIWR, testutil.InChIH2O, testutil.InChIWS}))
}
