package candidate

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/DTI-Insight/pkg/errors"
)

func validCandidate() Candidate {
	return Candidate{
		Name:            "Gefitinib",
		SMILES:          "COc1cc2ncnc(Nc3ccc(F)c(Cl)c3)c2cc1OCCCN1CCOCC1",
		BindingAffinity: 8.4,
		Confidence:      0.92,
		Properties:      Properties{MolecularWeight: 446.9, LogP: 3.75, HBD: 1, HBA: 7},
		Mechanism:       "ATP-competitive EGFR inhibitor",
	}
}

func TestCandidate_Validate_Valid(t *testing.T) {
	assert.NoError(t, validCandidate().Validate())
}

func TestCandidate_Validate_NegativeLogPAllowed(t *testing.T) {
	c := validCandidate()
	c.Properties.LogP = -2.5
	assert.NoError(t, c.Validate())
}

func TestCandidate_Validate_Failures(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Candidate)
		code   errors.ErrorCode
	}{
		{"blank name", func(c *Candidate) { c.Name = "  " }, errors.ErrCodeCandidateNameMissing},
		{"confidence above one", func(c *Candidate) { c.Confidence = 1.2 }, errors.ErrCodeCandidatePropertyRange},
		{"nan affinity", func(c *Candidate) { c.BindingAffinity = math.NaN() }, errors.ErrCodeCandidatePropertyRange},
		{"negative weight", func(c *Candidate) { c.Properties.MolecularWeight = -1 }, errors.ErrCodeCandidatePropertyRange},
		{"negative donors", func(c *Candidate) { c.Properties.HBD = -1 }, errors.ErrCodeCandidatePropertyRange},
		{"infinite logP", func(c *Candidate) { c.Properties.LogP = math.Inf(1) }, errors.ErrCodeCandidatePropertyRange},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := validCandidate()
			tc.mutate(&c)
			err := c.Validate()
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, tc.code), "got %v", err)
		})
	}
}

func TestValidateAll_ReportsPosition(t *testing.T) {
	bad := validCandidate()
	bad.Name = ""
	err := ValidateAll([]Candidate{validCandidate(), bad})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeCandidateInvalid))
	assert.Contains(t, err.Error(), "candidate 2")
}

func TestPredictionResponse_JSONContract(t *testing.T) {
	raw := `{
		"drugCandidates": [{"name":"A","smiles":"CCO","bindingAffinity":7.2,"confidence":0.85,
			"properties":{"molecularWeight":46.07,"logP":-0.31,"hbd":1,"hba":1},"mechanism":"m"}],
		"proteinAnalysis": {"family":"kinase","length":1210},
		"recommendations": ["optimize solubility"]
	}`
	var resp PredictionResponse
	require.NoError(t, json.Unmarshal([]byte(raw), &resp))
	require.Len(t, resp.DrugCandidates, 1)
	assert.Equal(t, 46.07, resp.DrugCandidates[0].Properties.MolecularWeight)
	assert.Equal(t, -0.31, resp.DrugCandidates[0].Properties.LogP)
	assert.JSONEq(t, `{"family":"kinase","length":1210}`, string(resp.ProteinAnalysis))
	assert.JSONEq(t, `["optimize solubility"]`, string(resp.Recommendations))
}

func TestRadarRow_MarshalJSON_PositionalOrder(t *testing.T) {
	row := RadarRow{
		Property: "MW",
		FullName: "Molecular Weight",
		Values:   map[string]float64{"C1": 5, "C2": 3, "C10": 1.5},
		Order:    []string{"C1", "C2", "C10"},
	}
	data, err := json.Marshal(row)
	require.NoError(t, err)
	assert.Equal(t, `{"property":"MW","fullName":"Molecular Weight","C1":5,"C2":3,"C10":1.5}`, string(data))
}

func TestRadarRow_UnmarshalJSON(t *testing.T) {
	var row RadarRow
	require.NoError(t, json.Unmarshal([]byte(`{"C2":3,"property":"HBD","fullName":"H-Bond Donors","C1":1}`), &row))
	assert.Equal(t, "HBD", row.Property)
	assert.Equal(t, []string{"C1", "C2"}, row.Keys())
	assert.Equal(t, 3.0, row.Values["C2"])
}

func TestRadarRow_KeysIsACopy(t *testing.T) {
	row := RadarRow{Order: []string{"C1"}}
	keys := row.Keys()
	keys[0] = "X"
	assert.Equal(t, []string{"C1"}, row.Order)
}

func TestLabels(t *testing.T) {
	assert.Equal(t, "Candidate 1", CandidateLabel(0))
	assert.Equal(t, "C12", PositionKey(11))
}
