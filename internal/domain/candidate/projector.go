package candidate

import (
	"math"

	types "github.com/turtacn/DTI-Insight/pkg/types/candidate"
)

// Projection and its rows are the wire types; aliased here so callers of the
// domain package need only one import.
type (
	Projection     = types.Projection
	AffinityRow    = types.AffinityRow
	PropertyBarRow = types.PropertyBarRow
	RadarRow       = types.RadarRow
	RuleRow        = types.RuleRow
)

// radarAxis describes one radar axis and its normalisation onto 0-5.
type radarAxis struct {
	property string
	fullName string
	value    func(types.Candidate) float64
}

// radarAxes is the fixed axis order of the radar view.
var radarAxes = [...]radarAxis{
	{"MW", "Molecular Weight", func(c types.Candidate) float64 { return normalizeMW(c.Properties.MolecularWeight) }},
	{"LogP", "Lipophilicity", func(c types.Candidate) float64 { return clamp(c.Properties.LogP+1, 0, 5) }},
	{"HBD", "H-Bond Donors", func(c types.Candidate) float64 { return float64(c.Properties.HBD) }},
	{"HBA", "H-Bond Acceptors", func(c types.Candidate) float64 { return normalizeHBA(c.Properties.HBA) }},
	{"pIC50", "Binding Affinity", func(c types.Candidate) float64 { return normalizeAffinity(c.BindingAffinity) }},
}

// RadarAxes returns the radar property names in display order.
func RadarAxes() []string {
	out := make([]string, len(radarAxes))
	for i, a := range radarAxes {
		out[i] = a.property
	}
	return out
}

// Project derives every comparison view from candidates. Rows follow input
// order and labels come from position, so the same input always yields the
// same output. candidates is only read.
func Project(candidates []types.Candidate) Projection {
	p := Projection{
		Affinity:   make([]AffinityRow, 0, len(candidates)),
		Properties: make([]PropertyBarRow, 0, len(candidates)),
		Radar:      make([]RadarRow, 0, len(radarAxes)),
		Rules:      make([]RuleRow, 0, len(candidates)),
	}

	keys := make([]string, len(candidates))
	for i, c := range candidates {
		keys[i] = types.PositionKey(i)
		p.Affinity = append(p.Affinity, affinityRow(i, c))
		p.Properties = append(p.Properties, propertyBarRow(i, c))
		p.Rules = append(p.Rules, ruleRow(i, c))
	}

	for _, axis := range radarAxes {
		row := RadarRow{
			Property: axis.property,
			FullName: axis.fullName,
			Values:   make(map[string]float64, len(candidates)),
			Order:    append([]string(nil), keys...),
		}
		for i, c := range candidates {
			row.Values[keys[i]] = axis.value(c)
		}
		p.Radar = append(p.Radar, row)
	}
	return p
}

func affinityRow(i int, c types.Candidate) AffinityRow {
	return AffinityRow{
		Label:      types.CandidateLabel(i),
		FullName:   c.Name,
		Affinity:   c.BindingAffinity,
		Confidence: c.Confidence * 100,
	}
}

// propertyBarRow uses min(max(logP, 0), 5) for LogP, unlike the radar axis
// which shifts by one first.
func propertyBarRow(i int, c types.Candidate) PropertyBarRow {
	return PropertyBarRow{
		Label:    types.PositionKey(i),
		FullName: c.Name,
		MW:       normalizeMW(c.Properties.MolecularWeight),
		LogP:     clamp(c.Properties.LogP, 0, 5),
		HBD:      float64(c.Properties.HBD),
		HBA:      normalizeHBA(c.Properties.HBA),
		Affinity: normalizeAffinity(c.BindingAffinity),
	}
}

func ruleRow(i int, c types.Candidate) RuleRow {
	e := Evaluate(c.Properties)
	return RuleRow{
		Label:      types.CandidateLabel(i),
		FullName:   c.Name,
		Violations: e.ViolationCount,
		Score:      e.Score(),
		MWPass:     e.MolecularWeightPass,
		LogPPass:   e.LogPPass,
		HBDPass:    e.HBDPass,
		HBAPass:    e.HBAPass,
	}
}

func normalizeMW(mw float64) float64 { return math.Min(mw/100, 5) }

func normalizeHBA(hba int) float64 { return math.Min(float64(hba)/2, 5) }

func normalizeAffinity(a float64) float64 { return a / 2 }

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

//Personal.AI order the ending
