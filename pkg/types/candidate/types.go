// Package candidate defines the drug-candidate Data Transfer Objects shared by
// the board, the HTTP API, the CLI and the Go SDK. No domain logic lives here,
// only plain data types and boundary validation.
package candidate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/turtacn/DTI-Insight/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Candidate — externally supplied prediction result
// ─────────────────────────────────────────────────────────────────────────────

// Properties holds the physicochemical descriptors the prediction backend
// reports for a candidate molecule.
type Properties struct {
	// MolecularWeight in Daltons.
	MolecularWeight float64 `json:"molecularWeight"`

	// LogP is the octanol-water partition coefficient. May be negative.
	LogP float64 `json:"logP"`

	// HBD is the number of hydrogen-bond donors.
	HBD int `json:"hbd"`

	// HBA is the number of hydrogen-bond acceptors.
	HBA int `json:"hba"`
}

// Candidate is one predicted drug candidate. Values are treated as immutable
// once received; every consumer derives new records from it.
type Candidate struct {
	Name string `json:"name"`

	// SMILES is the line notation of the structure. It may be malformed.
	SMILES string `json:"smiles"`

	// BindingAffinity is a pIC50-like score, practically 0-14.
	BindingAffinity float64 `json:"bindingAffinity"`

	// Confidence is a probability in [0, 1].
	Confidence float64 `json:"confidence"`

	Properties Properties `json:"properties"`
	Mechanism  string     `json:"mechanism"`
}

// Validate checks the boundary constraints of a single candidate.
func (c Candidate) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return errors.New(errors.ErrCodeCandidateNameMissing, "candidate name must not be empty")
	}
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"bindingAffinity", c.BindingAffinity},
		{"confidence", c.Confidence},
	} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return errors.Newf(errors.ErrCodeCandidatePropertyRange, "%s must be a finite number", f.name).
				WithDetail("candidate=" + c.Name)
		}
	}
	if c.Confidence < 0 || c.Confidence > 1 {
		return errors.Newf(errors.ErrCodeCandidatePropertyRange, "confidence %v is outside [0, 1]", c.Confidence).
			WithDetail("candidate=" + c.Name)
	}
	return c.Properties.Validate()
}

// Validate checks that counts and weights are non-negative.
func (p Properties) Validate() error {
	if math.IsNaN(p.MolecularWeight) || math.IsInf(p.MolecularWeight, 0) || math.IsNaN(p.LogP) || math.IsInf(p.LogP, 0) {
		return errors.New(errors.ErrCodeCandidatePropertyRange, "properties must be finite numbers")
	}
	if p.MolecularWeight < 0 {
		return errors.Newf(errors.ErrCodeCandidatePropertyRange, "molecularWeight %v must be ≥ 0", p.MolecularWeight)
	}
	if p.HBD < 0 || p.HBA < 0 {
		return errors.Newf(errors.ErrCodeCandidatePropertyRange, "hbd (%d) and hba (%d) must be ≥ 0", p.HBD, p.HBA)
	}
	return nil
}

// ValidateAll validates every candidate and prefixes failures with the
// candidate position.
func ValidateAll(cs []Candidate) error {
	for i, c := range cs {
		if err := c.Validate(); err != nil {
			return errors.Wrap(err, errors.ErrCodeCandidateInvalid, fmt.Sprintf("candidate %d is invalid", i+1))
		}
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Prediction backend contract
// ─────────────────────────────────────────────────────────────────────────────

// PredictionRequest is the body posted to the drug-discovery backend.
type PredictionRequest struct {
	ProteinSequence string `json:"proteinSequence"`
}

// PredictionResponse is the backend reply. ProteinAnalysis and
// Recommendations are opaque and passed through untouched.
type PredictionResponse struct {
	DrugCandidates  []Candidate     `json:"drugCandidates"`
	ProteinAnalysis json.RawMessage `json:"proteinAnalysis,omitempty"`
	Recommendations json.RawMessage `json:"recommendations,omitempty"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Rule report
// ─────────────────────────────────────────────────────────────────────────────

// RuleReport is the wire form of a Rule-of-Five evaluation.
type RuleReport struct {
	MolecularWeightPass bool     `json:"molecularWeightPass"`
	LogPPass            bool     `json:"logPPass"`
	HBDPass             bool     `json:"hbdPass"`
	HBAPass             bool     `json:"hbaPass"`
	ViolationCount      int      `json:"violationCount"`
	Classification      string   `json:"classification"`
	Badge               string   `json:"badge"`
	Markers             []string `json:"markers,omitempty"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Comparison views
// ─────────────────────────────────────────────────────────────────────────────

// AffinityRow is one bar of the affinity/confidence chart.
type AffinityRow struct {
	Label      string  `json:"name"`
	FullName   string  `json:"fullName"`
	Affinity   float64 `json:"affinity"`
	Confidence float64 `json:"confidence"`
}

// PropertyBarRow is one group of the normalized property bar chart.
type PropertyBarRow struct {
	Label    string  `json:"name"`
	FullName string  `json:"fullName"`
	MW       float64 `json:"MW"`
	LogP     float64 `json:"LogP"`
	HBD      float64 `json:"HBD"`
	HBA      float64 `json:"HBA"`
	Affinity float64 `json:"Affinity"`
}

// RadarRow is one axis of the radar chart. Values is keyed by the positional
// candidate key ("C1", "C2", ...); Keys carries the order.
type RadarRow struct {
	Property string             `json:"property"`
	FullName string             `json:"fullName"`
	Values   map[string]float64 `json:"-"`
	Order    []string           `json:"-"`
}

// Keys returns the candidate keys in positional order.
func (r RadarRow) Keys() []string {
	out := make([]string, len(r.Order))
	copy(out, r.Order)
	return out
}

// MarshalJSON emits property, fullName and then one member per candidate key
// in positional order.
func (r RadarRow) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	writeMember := func(k string, v interface{}) error {
		kb, err := json.Marshal(k)
		if err != nil {
			return err
		}
		vb, err := json.Marshal(v)
		if err != nil {
			return err
		}
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
		return nil
	}
	if err := writeMember("property", r.Property); err != nil {
		return nil, err
	}
	if err := writeMember("fullName", r.FullName); err != nil {
		return nil, err
	}
	for _, k := range r.Order {
		if err := writeMember(k, r.Values[k]); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON restores a RadarRow; candidate keys are ordered by their
// numeric position.
func (r *RadarRow) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = RadarRow{Values: map[string]float64{}}
	if v, ok := raw["property"]; ok {
		if err := json.Unmarshal(v, &r.Property); err != nil {
			return err
		}
	}
	if v, ok := raw["fullName"]; ok {
		if err := json.Unmarshal(v, &r.FullName); err != nil {
			return err
		}
	}
	for i := 1; ; i++ {
		k := PositionKey(i - 1)
		v, ok := raw[k]
		if !ok {
			break
		}
		var f float64
		if err := json.Unmarshal(v, &f); err != nil {
			return err
		}
		r.Values[k] = f
		r.Order = append(r.Order, k)
	}
	return nil
}

// RuleRow is one row of the rule-compliance view.
type RuleRow struct {
	Label      string `json:"name"`
	FullName   string `json:"fullName"`
	Violations int    `json:"violations"`
	Score      int    `json:"score"`
	MWPass     bool   `json:"mwPass"`
	LogPPass   bool   `json:"logPPass"`
	HBDPass    bool   `json:"hbdPass"`
	HBAPass    bool   `json:"hbaPass"`
}

// Projection bundles every comparison view of one candidate list.
type Projection struct {
	Affinity   []AffinityRow    `json:"affinity"`
	Properties []PropertyBarRow `json:"properties"`
	Radar      []RadarRow       `json:"radar"`
	Rules      []RuleRow        `json:"rules"`
}

// CandidateLabel is the display label of the i-th (0-based) candidate.
func CandidateLabel(i int) string {
	return fmt.Sprintf("Candidate %d", i+1)
}

// PositionKey is the short chart key of the i-th (0-based) candidate.
func PositionKey(i int) string {
	return fmt.Sprintf("C%d", i+1)
}

//Personal.AI order the ending
