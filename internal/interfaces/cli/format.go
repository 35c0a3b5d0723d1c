package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/turtacn/DTI-Insight/internal/application/board"
	domain "github.com/turtacn/DTI-Insight/internal/domain/candidate"
	types "github.com/turtacn/DTI-Insight/pkg/types/candidate"
)

// writeTable renders headers and rows with numeric columns right-aligned.
func writeTable(w io.Writer, headers []string, rows [][]string) error {
	table := tablewriter.NewWriter(w)
	table.Header(headers)
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignLeft
	})
	if err := table.Bulk(rows); err != nil {
		return err
	}
	return table.Render()
}

// colorBadge colours a Rule-of-Five badge by classification.
func colorBadge(classification, badge string) string {
	switch domain.Classification(classification) {
	case domain.ClassificationPass:
		return color.GreenString(badge)
	case domain.ClassificationWarning:
		return color.YellowString(badge)
	default:
		return color.RedString(badge)
	}
}

// colorBand colours an affinity or confidence band.
func colorBand(b domain.Band, text string) string {
	switch b {
	case domain.BandStrong, domain.BandHigh:
		return color.GreenString(text)
	case domain.BandModerate, domain.BandMedium:
		return color.YellowString(text)
	default:
		return color.RedString(text)
	}
}

func passMark(ok bool) string {
	if ok {
		return color.GreenString("pass")
	}
	return color.RedString("fail")
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }

// writeRuleTable prints one row per rule for a single property set.
func writeRuleTable(w io.Writer, p types.Properties, report types.RuleReport) error {
	rows := [][]string{
		{"Molecular weight", formatFloat(p.MolecularWeight), fmt.Sprintf("<= %g", domain.MaxMolecularWeight), passMark(report.MolecularWeightPass)},
		{"LogP", formatFloat(p.LogP), fmt.Sprintf("<= %g", domain.MaxLogP), passMark(report.LogPPass)},
		{"H-bond donors", strconv.Itoa(p.HBD), fmt.Sprintf("<= %d", domain.MaxHBD), passMark(report.HBDPass)},
		{"H-bond acceptors", strconv.Itoa(p.HBA), fmt.Sprintf("<= %d", domain.MaxHBA), passMark(report.HBAPass)},
	}
	if err := writeTable(w, []string{"Rule", "Value", "Limit", "Result"}, rows); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Drug-likeness: %s (%d/%d rules)\n",
		colorBadge(report.Classification, report.Badge), domain.RuleCount-report.ViolationCount, domain.RuleCount)
	return err
}

func writeAffinityView(w io.Writer, rows []types.AffinityRow) error {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, []string{
			r.Label, r.FullName,
			colorBand(domain.AffinityBand(r.Affinity), formatFloat(r.Affinity)),
			colorBand(domain.ConfidenceBand(r.Confidence), formatFloat(r.Confidence)),
		})
	}
	return writeTable(w, []string{"Candidate", "Name", "Affinity", "Confidence"}, out)
}

func writePropertyView(w io.Writer, rows []types.PropertyBarRow) error {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, []string{
			r.Label, r.FullName, formatFloat(r.MW), formatFloat(r.LogP),
			formatFloat(r.HBD), formatFloat(r.HBA), formatFloat(r.Affinity),
		})
	}
	return writeTable(w, []string{"Candidate", "Name", "MW/100", "LogP", "HBD", "HBA", "Affinity"}, out)
}

func writeRuleView(w io.Writer, rows []types.RuleRow) error {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, []string{
			r.Label, r.FullName, strconv.Itoa(r.Violations), fmt.Sprintf("%d/%d", r.Score, domain.RuleCount),
			passMark(r.MWPass), passMark(r.LogPPass), passMark(r.HBDPass), passMark(r.HBAPass),
		})
	}
	return writeTable(w, []string{"Candidate", "Name", "Violations", "Score", "MW", "LogP", "HBD", "HBA"}, out)
}

// writeRadarView prints one row per axis and one column per candidate key.
func writeRadarView(w io.Writer, rows []types.RadarRow) error {
	if len(rows) == 0 {
		return nil
	}
	keys := rows[0].Keys()
	headers := append([]string{"Property", "Full name"}, keys...)
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		line := []string{r.Property, r.FullName}
		for _, k := range keys {
			line = append(line, formatFloat(r.Values[k]))
		}
		out = append(out, line)
	}
	return writeTable(w, headers, out)
}

// writeBoard prints the summary line and one row per card.
func writeBoard(w io.Writer, b *board.Board) error {
	s := b.Summary
	fmt.Fprintln(w, s.Headline)
	if s.SequenceLength > 0 {
		fmt.Fprintf(w, "Sequence length: %d\n", s.SequenceLength)
	}
	fmt.Fprintf(w, "Drug-likeness: %s pass, %s warning, %s failing; diagrams: %d rendered, %d failed\n",
		color.GreenString(strconv.Itoa(s.Passing)),
		color.YellowString(strconv.Itoa(s.Warning)),
		color.RedString(strconv.Itoa(s.Failing)),
		s.Rendered, s.RenderFailed)
	if len(b.Cards) == 0 {
		return nil
	}

	rows := make([][]string, 0, len(b.Cards))
	for _, c := range b.Cards {
		diagram := c.Structure.Phase
		if c.Structure.Message != "" {
			diagram = c.Structure.Message
		}
		rows = append(rows, []string{
			c.Label,
			c.Candidate.Name,
			colorBand(c.AffinityBand, formatFloat(c.Candidate.BindingAffinity)),
			colorBand(c.ConfidenceBand, formatFloat(c.Candidate.Confidence)),
			colorBadge(c.Rules.Classification, c.Rules.Badge),
			diagram,
		})
	}
	return writeTable(w, []string{"Candidate", "Name", "Affinity", "Confidence", "Rule of Five", "Structure"}, rows)
}

//Personal.AI order the ending
