package candidate

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	types "github.com/turtacn/DTI-Insight/pkg/types/candidate"
)

func sampleCandidates() []types.Candidate {
	return []types.Candidate{
		{
			Name:            "Heavyweight",
			SMILES:          "CC(=O)Oc1ccccc1C(=O)O",
			BindingAffinity: 7.2,
			Confidence:      0.85,
			Properties:      types.Properties{MolecularWeight: 520, LogP: 6, HBD: 6, HBA: 12},
		},
		{
			Name:            "Lean",
			SMILES:          "CCO",
			BindingAffinity: 8.9,
			Confidence:      0.93,
			Properties:      types.Properties{MolecularWeight: 300, LogP: 2, HBD: 1, HBA: 4},
		},
	}
}

func TestProject_RuleRows(t *testing.T) {
	p := Project(sampleCandidates())

	require.Len(t, p.Rules, 2)
	assert.Equal(t, 4, p.Rules[0].Violations)
	assert.Equal(t, 0, p.Rules[1].Violations)
	assert.Equal(t, 0, p.Rules[0].Score)
	assert.Equal(t, 4, p.Rules[1].Score)
	assert.False(t, p.Rules[0].MWPass)
	assert.True(t, p.Rules[1].HBAPass)

	cs := sampleCandidates()
	assert.Equal(t, ClassificationFailing, Evaluate(cs[0].Properties).Classification())
	assert.Equal(t, ClassificationPass, Evaluate(cs[1].Properties).Classification())
}

func TestProject_AffinityLabelsAndOrder(t *testing.T) {
	p := Project(sampleCandidates())

	require.Len(t, p.Affinity, 2)
	assert.Equal(t, "Candidate 1", p.Affinity[0].Label)
	assert.Equal(t, "Candidate 2", p.Affinity[1].Label)
	assert.Equal(t, 7.2, p.Affinity[0].Affinity)
	assert.Equal(t, 8.9, p.Affinity[1].Affinity)
	assert.Equal(t, "Heavyweight", p.Affinity[0].FullName)
	assert.InDelta(t, 85.0, p.Affinity[0].Confidence, 1e-9)
}

func TestProject_PermutationPermutesRows(t *testing.T) {
	cs := sampleCandidates()
	swapped := []types.Candidate{cs[1], cs[0]}

	p := Project(swapped)
	assert.Equal(t, "Candidate 1", p.Affinity[0].Label)
	assert.Equal(t, "Lean", p.Affinity[0].FullName)
	assert.Equal(t, 8.9, p.Affinity[0].Affinity)
	assert.Equal(t, "Candidate 2", p.Rules[1].Label)
	assert.Equal(t, "Heavyweight", p.Rules[1].FullName)
	assert.Equal(t, 4, p.Rules[1].Violations)
}

func TestProject_RadarAxes(t *testing.T) {
	p := Project(sampleCandidates())

	require.Len(t, p.Radar, 5)
	assert.Equal(t, []string{"MW", "LogP", "HBD", "HBA", "pIC50"}, RadarAxes())
	for i, name := range RadarAxes() {
		assert.Equal(t, name, p.Radar[i].Property)
		assert.Equal(t, []string{"C1", "C2"}, p.Radar[i].Keys())
	}

	mw, logP, hbd, hba, pic50 := p.Radar[0], p.Radar[1], p.Radar[2], p.Radar[3], p.Radar[4]
	assert.Equal(t, "Molecular Weight", mw.FullName)
	assert.Equal(t, 5.0, mw.Values["C1"])
	assert.Equal(t, 3.0, mw.Values["C2"])
	assert.Equal(t, 5.0, logP.Values["C1"])
	assert.Equal(t, 3.0, logP.Values["C2"])
	assert.Equal(t, 6.0, hbd.Values["C1"])
	assert.Equal(t, 5.0, hba.Values["C1"])
	assert.Equal(t, 2.0, hba.Values["C2"])
	assert.Equal(t, 3.6, pic50.Values["C1"])
	assert.Equal(t, 4.45, pic50.Values["C2"])
}

func TestProject_LogPNormalisationsDiffer(t *testing.T) {
	cs := []types.Candidate{{Name: "polar", Properties: types.Properties{LogP: -0.5}}}
	p := Project(cs)

	assert.Equal(t, 0.5, p.Radar[1].Values["C1"])
	assert.Equal(t, 0.0, p.Properties[0].LogP)

	cs[0].Properties.LogP = -3
	p = Project(cs)
	assert.Equal(t, 0.0, p.Radar[1].Values["C1"])
}

func TestProject_PropertyBars(t *testing.T) {
	p := Project(sampleCandidates())

	require.Len(t, p.Properties, 2)
	bar := p.Properties[1]
	assert.Equal(t, "C2", bar.Label)
	assert.Equal(t, 3.0, bar.MW)
	assert.Equal(t, 2.0, bar.LogP)
	assert.Equal(t, 1.0, bar.HBD)
	assert.Equal(t, 2.0, bar.HBA)
	assert.Equal(t, 4.45, bar.Affinity)

	assert.Equal(t, 5.0, p.Properties[0].LogP)
}

func TestProject_Deterministic(t *testing.T) {
	cs := sampleCandidates()
	a, err := json.Marshal(Project(cs))
	require.NoError(t, err)
	b, err := json.Marshal(Project(cs))
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestProject_DoesNotMutateInput(t *testing.T) {
	cs := sampleCandidates()
	before := sampleCandidates()
	Project(cs)
	assert.Equal(t, before, cs)
}

func TestProject_Empty(t *testing.T) {
	p := Project(nil)
	assert.Empty(t, p.Affinity)
	assert.Empty(t, p.Rules)
	require.Len(t, p.Radar, 5)
	assert.Empty(t, p.Radar[0].Keys())

	data, err := json.Marshal(p)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"affinity":[]`)
}
