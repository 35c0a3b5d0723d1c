// Package candidate holds the pure drug-likeness rules and the comparison
// projections of a predicted candidate list. Nothing here performs I/O, reads
// a clock or mutates its input.
package candidate

import (
	"fmt"

	types "github.com/turtacn/DTI-Insight/pkg/types/candidate"
)

// Lipinski Rule-of-Five thresholds. A value equal to its threshold passes.
const (
	MaxMolecularWeight = 500.0
	MaxLogP            = 5.0
	MaxHBD             = 5
	MaxHBA             = 10

	// RuleCount is the number of rules evaluated.
	RuleCount = 4
)

// Classification is the drug-likeness band derived from the violation count.
type Classification string

const (
	ClassificationPass    Classification = "Pass"
	ClassificationWarning Classification = "warning"
	ClassificationFailing Classification = "failing"
)

// String returns the string representation of the classification.
func (c Classification) String() string {
	return string(c)
}

// IsValid checks if the classification is one of the known bands.
func (c Classification) IsValid() bool {
	switch c {
	case ClassificationPass, ClassificationWarning, ClassificationFailing:
		return true
	default:
		return false
	}
}

// RuleEvaluation is the per-candidate outcome of the four rules. It is derived
// on demand and never cached beyond one display pass.
type RuleEvaluation struct {
	MolecularWeightPass bool
	LogPPass            bool
	HBDPass             bool
	HBAPass             bool
	ViolationCount      int
}

// Evaluate applies the Rule of Five to p. It is total: negative or zero
// values are valid input and a negative logP passes.
func Evaluate(p types.Properties) RuleEvaluation {
	e := RuleEvaluation{
		MolecularWeightPass: p.MolecularWeight <= MaxMolecularWeight,
		LogPPass:            p.LogP <= MaxLogP,
		HBDPass:             p.HBD <= MaxHBD,
		HBAPass:             p.HBA <= MaxHBA,
	}
	for _, pass := range e.flags() {
		if !pass {
			e.ViolationCount++
		}
	}
	return e
}

func (e RuleEvaluation) flags() [RuleCount]bool {
	return [RuleCount]bool{e.MolecularWeightPass, e.LogPPass, e.HBDPass, e.HBAPass}
}

// Score is the number of satisfied rules, 4 - ViolationCount.
func (e RuleEvaluation) Score() int {
	return RuleCount - e.ViolationCount
}

// Classification maps the violation count to its band.
func (e RuleEvaluation) Classification() Classification {
	switch {
	case e.ViolationCount == 0:
		return ClassificationPass
	case e.ViolationCount == 1:
		return ClassificationWarning
	default:
		return ClassificationFailing
	}
}

// BadgeText is the card badge: "Pass", "1 Violation" or "N Violations".
func (e RuleEvaluation) BadgeText() string {
	switch e.ViolationCount {
	case 0:
		return "Pass"
	case 1:
		return "1 Violation"
	default:
		return fmt.Sprintf("%d Violations", e.ViolationCount)
	}
}

// Markers lists the threshold marker of every failing rule in rule order.
func (e RuleEvaluation) Markers() []string {
	labels := [RuleCount]string{
		fmt.Sprintf("MW >%g", MaxMolecularWeight),
		fmt.Sprintf("LogP >%g", MaxLogP),
		fmt.Sprintf("HBD >%d", MaxHBD),
		fmt.Sprintf("HBA >%d", MaxHBA),
	}
	var out []string
	for i, pass := range e.flags() {
		if !pass {
			out = append(out, labels[i])
		}
	}
	return out
}

// Report converts the evaluation to its wire form.
func (e RuleEvaluation) Report() types.RuleReport {
	return types.RuleReport{
		MolecularWeightPass: e.MolecularWeightPass,
		LogPPass:            e.LogPPass,
		HBDPass:             e.HBDPass,
		HBAPass:             e.HBAPass,
		ViolationCount:      e.ViolationCount,
		Classification:      e.Classification().String(),
		Badge:               e.BadgeText(),
		Markers:             e.Markers(),
	}
}

//Personal.AI order the ending
