package reporting

import (
	"bytes"
	"io"
	"sort"

	"github.com/parquet-go/parquet-go"

	"github.com/turtacn/DTI-Insight/pkg/errors"
	types "github.com/turtacn/DTI-Insight/pkg/types/candidate"
)

// View names one comparison view exported as its own parquet file.
type View string

const (
	ViewAffinity   View = "affinity"
	ViewRules      View = "rules"
	ViewProperties View = "properties"
	ViewRadar      View = "radar"
)

// Views lists every exportable view in file order.
func Views() []View {
	return []View{ViewAffinity, ViewRules, ViewProperties, ViewRadar}
}

// FileName is the parquet object name of a view.
func (v View) FileName() string { return string(v) + ".parquet" }

// AffinityRecord is one row of affinity.parquet.
type AffinityRecord struct {
	Position   int32   `parquet:"position,snappy"`
	Label      string  `parquet:"label,snappy"`
	Name       string  `parquet:"name,snappy"`
	Affinity   float64 `parquet:"affinity,snappy"`
	Confidence float64 `parquet:"confidence,snappy"`
}

// RuleRecord is one row of rules.parquet.
type RuleRecord struct {
	Position   int32  `parquet:"position,snappy"`
	Label      string `parquet:"label,snappy"`
	Name       string `parquet:"name,snappy"`
	Violations int32  `parquet:"violations,snappy"`
	Score      int32  `parquet:"score,snappy"`
	MWPass     bool   `parquet:"mw_pass"`
	LogPPass   bool   `parquet:"logp_pass"`
	HBDPass    bool   `parquet:"hbd_pass"`
	HBAPass    bool   `parquet:"hba_pass"`
}

// PropertyRecord is one row of properties.parquet; values are normalized.
type PropertyRecord struct {
	Position int32   `parquet:"position,snappy"`
	Label    string  `parquet:"label,snappy"`
	Name     string  `parquet:"name,snappy"`
	MW       float64 `parquet:"mw,snappy"`
	LogP     float64 `parquet:"logp,snappy"`
	HBD      float64 `parquet:"hbd,snappy"`
	HBA      float64 `parquet:"hba,snappy"`
	Affinity float64 `parquet:"affinity,snappy"`
}

// RadarRecord is one (axis, candidate) cell of radar.parquet.
type RadarRecord struct {
	Property     string  `parquet:"property,snappy"`
	FullName     string  `parquet:"full_name,snappy"`
	CandidateKey string  `parquet:"candidate_key,snappy"`
	Value        float64 `parquet:"value,snappy"`
}

// AffinityRecords flattens the affinity view.
func AffinityRecords(proj types.Projection) []AffinityRecord {
	out := make([]AffinityRecord, 0, len(proj.Affinity))
	for i, r := range proj.Affinity {
		out = append(out, AffinityRecord{
			Position:   int32(i),
			Label:      r.Label,
			Name:       r.FullName,
			Affinity:   r.Affinity,
			Confidence: r.Confidence,
		})
	}
	return out
}

// RuleRecords flattens the rule-compliance view.
func RuleRecords(proj types.Projection) []RuleRecord {
	out := make([]RuleRecord, 0, len(proj.Rules))
	for i, r := range proj.Rules {
		out = append(out, RuleRecord{
			Position:   int32(i),
			Label:      r.Label,
			Name:       r.FullName,
			Violations: int32(r.Violations),
			Score:      int32(r.Score),
			MWPass:     r.MWPass,
			LogPPass:   r.LogPPass,
			HBDPass:    r.HBDPass,
			HBAPass:    r.HBAPass,
		})
	}
	return out
}

// PropertyRecords flattens the normalized property view.
func PropertyRecords(proj types.Projection) []PropertyRecord {
	out := make([]PropertyRecord, 0, len(proj.Properties))
	for i, r := range proj.Properties {
		out = append(out, PropertyRecord{
			Position: int32(i),
			Label:    r.Label,
			Name:     r.FullName,
			MW:       r.MW,
			LogP:     r.LogP,
			HBD:      r.HBD,
			HBA:      r.HBA,
			Affinity: r.Affinity,
		})
	}
	return out
}

// RadarRecords flattens the radar view into long form, axis-major.
func RadarRecords(proj types.Projection) []RadarRecord {
	var out []RadarRecord
	for _, r := range proj.Radar {
		keys := r.Keys()
		if len(keys) == 0 {
			for k := range r.Values {
				keys = append(keys, k)
			}
			sort.Strings(keys)
		}
		for _, k := range keys {
			out = append(out, RadarRecord{
				Property:     r.Property,
				FullName:     r.FullName,
				CandidateKey: k,
				Value:        r.Values[k],
			})
		}
	}
	return out
}

// WriteParquet writes one view of the projection to w.
func WriteParquet(w io.Writer, view View, proj types.Projection) error {
	var err error
	switch view {
	case ViewAffinity:
		err = writeRows(w, AffinityRecords(proj))
	case ViewRules:
		err = writeRows(w, RuleRecords(proj))
	case ViewProperties:
		err = writeRows(w, PropertyRecords(proj))
	case ViewRadar:
		err = writeRows(w, RadarRecords(proj))
	default:
		return errors.Newf(errors.ErrCodeBadRequest, "unknown export view %q", view)
	}
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeExportParquetFailed, "write "+view.FileName())
	}
	return nil
}

// ParquetFiles encodes every view, keyed by file name.
func ParquetFiles(proj types.Projection) (map[string][]byte, error) {
	files := make(map[string][]byte, len(Views()))
	for _, v := range Views() {
		var buf bytes.Buffer
		if err := WriteParquet(&buf, v, proj); err != nil {
			return nil, err
		}
		files[v.FileName()] = buf.Bytes()
	}
	return files, nil
}

func writeRows[T any](w io.Writer, rows []T) error {
	writer := parquet.NewGenericWriter[T](w)
	if len(rows) > 0 {
		if _, err := writer.Write(rows); err != nil {
			_ = writer.Close()
			return err
		}
	}
	return writer.Close()
}
