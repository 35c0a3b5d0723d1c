package candidate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	types "github.com/turtacn/DTI-Insight/pkg/types/candidate"
)

func TestEvaluate_AllPass(t *testing.T) {
	e := Evaluate(types.Properties{MolecularWeight: 300, LogP: 2, HBD: 1, HBA: 4})

	assert.True(t, e.MolecularWeightPass)
	assert.True(t, e.LogPPass)
	assert.True(t, e.HBDPass)
	assert.True(t, e.HBAPass)
	assert.Equal(t, 0, e.ViolationCount)
	assert.Equal(t, ClassificationPass, e.Classification())
	assert.Equal(t, 4, e.Score())
}

func TestEvaluate_BoundaryValuesPass(t *testing.T) {
	e := Evaluate(types.Properties{MolecularWeight: 500, LogP: 5, HBD: 5, HBA: 10})
	assert.Equal(t, 0, e.ViolationCount)
	assert.Equal(t, ClassificationPass, e.Classification())
}

func TestEvaluate_JustAboveBoundaries(t *testing.T) {
	tests := []struct {
		name  string
		props types.Properties
		check func(RuleEvaluation) bool
	}{
		{"mw", types.Properties{MolecularWeight: 500.01}, func(e RuleEvaluation) bool { return !e.MolecularWeightPass }},
		{"logP", types.Properties{LogP: 5.001}, func(e RuleEvaluation) bool { return !e.LogPPass }},
		{"hbd", types.Properties{HBD: 6}, func(e RuleEvaluation) bool { return !e.HBDPass }},
		{"hba", types.Properties{HBA: 11}, func(e RuleEvaluation) bool { return !e.HBAPass }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := Evaluate(tt.props)
			assert.True(t, tt.check(e))
			assert.Equal(t, 1, e.ViolationCount)
			assert.Equal(t, ClassificationWarning, e.Classification())
		})
	}
}

func TestEvaluate_ViolationCountMatchesExceededThresholds(t *testing.T) {
	tests := []struct {
		props types.Properties
		want  int
	}{
		{types.Properties{MolecularWeight: 520, LogP: 6, HBD: 6, HBA: 12}, 4},
		{types.Properties{MolecularWeight: 520, LogP: 6, HBD: 1, HBA: 2}, 2},
		{types.Properties{MolecularWeight: 100, LogP: 6, HBD: 6, HBA: 11}, 3},
		{types.Properties{}, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Evaluate(tt.props).ViolationCount, "%+v", tt.props)
	}
}

func TestEvaluate_NegativeLogPPasses(t *testing.T) {
	e := Evaluate(types.Properties{MolecularWeight: 46, LogP: -0.31, HBD: 1, HBA: 1})
	assert.True(t, e.LogPPass)
	assert.Equal(t, 0, e.ViolationCount)
}

func TestRuleEvaluation_Classification(t *testing.T) {
	assert.Equal(t, ClassificationPass, RuleEvaluation{ViolationCount: 0}.Classification())
	assert.Equal(t, ClassificationWarning, RuleEvaluation{ViolationCount: 1}.Classification())
	assert.Equal(t, ClassificationFailing, RuleEvaluation{ViolationCount: 2}.Classification())
	assert.Equal(t, ClassificationFailing, RuleEvaluation{ViolationCount: 4}.Classification())
}

func TestClassification_StringAndIsValid(t *testing.T) {
	assert.Equal(t, "Pass", ClassificationPass.String())
	assert.Equal(t, "warning", ClassificationWarning.String())
	assert.Equal(t, "failing", ClassificationFailing.String())
	assert.True(t, ClassificationFailing.IsValid())
	assert.False(t, Classification("ok").IsValid())
}

func TestRuleEvaluation_BadgeText(t *testing.T) {
	assert.Equal(t, "Pass", RuleEvaluation{ViolationCount: 0}.BadgeText())
	assert.Equal(t, "1 Violation", RuleEvaluation{ViolationCount: 1}.BadgeText())
	assert.Equal(t, "3 Violations", RuleEvaluation{ViolationCount: 3}.BadgeText())
}

func TestRuleEvaluation_Markers(t *testing.T) {
	e := Evaluate(types.Properties{MolecularWeight: 520, LogP: 2, HBD: 1, HBA: 12})
	assert.Equal(t, []string{"MW >500", "HBA >10"}, e.Markers())

	assert.Empty(t, Evaluate(types.Properties{}).Markers())
}

func TestRuleEvaluation_Report(t *testing.T) {
	r := Evaluate(types.Properties{MolecularWeight: 520, LogP: 6, HBD: 6, HBA: 12}).Report()

	assert.Equal(t, 4, r.ViolationCount)
	assert.Equal(t, "failing", r.Classification)
	assert.Equal(t, "4 Violations", r.Badge)
	assert.Len(t, r.Markers, 4)
	assert.False(t, r.MolecularWeightPass)
}
