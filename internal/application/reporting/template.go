package reporting

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"html/template"
	"time"

	"github.com/turtacn/DTI-Insight/internal/application/board"
	domain "github.com/turtacn/DTI-Insight/internal/domain/candidate"
	"github.com/turtacn/DTI-Insight/pkg/errors"
)

// BoardReportFile is the self-contained HTML rendition of a board.
const BoardReportFile = "board.html"

const contentTypeHTML = "text/html; charset=utf-8"

// reportData is bound to boardReportTemplate.
type reportData struct {
	Board         *board.Board
	AffinityChart []byte
	RuleChart     []byte
	RuleCount     int
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"formatNumber": func(v float64, decimals int) string {
			return fmt.Sprintf("%.*f", decimals, v)
		},
		"formatDate": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.UTC().Format(time.RFC3339)
		},
		// pngURI inlines an image so the report has no external references.
		"pngURI": func(png []byte) template.URL {
			return template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(png))
		},
		"badgeClass": func(classification string) string {
			switch domain.Classification(classification) {
			case domain.ClassificationPass:
				return "pass"
			case domain.ClassificationWarning:
				return "warning"
			default:
				return "failing"
			}
		},
		"truncate": func(s string, maxLen int) string {
			r := []rune(s)
			if len(r) > maxLen {
				return string(r[:maxLen]) + "..."
			}
			return s
		},
	}
}

var boardReportTemplate = template.Must(template.New(BoardReportFile).Funcs(templateFuncs()).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>DTI-Insight board {{.Board.PassID}}</title>
<style>
body{background:#121212;color:#e0e0e0;font-family:system-ui,sans-serif;margin:2rem}
table{border-collapse:collapse;width:100%}
th,td{border-bottom:1px solid #333;padding:.4rem;text-align:left;vertical-align:top}
.pass{color:#10b981}.warning{color:#f59e0b}.failing{color:#ef4444}
.smiles{font-family:monospace;font-size:.8rem;color:#9e9e9e}
.error{color:#ef5350}
</style>
</head>
<body>
<h1>{{.Board.Summary.Headline}}</h1>
<p>Pass {{.Board.PassID}}{{with formatDate .Board.CreatedAt}}, composed {{.}}{{end}}{{if .Board.Summary.SequenceLength}}, sequence length {{.Board.Summary.SequenceLength}}{{end}}</p>
<p>Drug-likeness: <span class="pass">{{.Board.Summary.Passing}} pass</span>, <span class="warning">{{.Board.Summary.Warning}} warning</span>, <span class="failing">{{.Board.Summary.Failing}} failing</span>. Diagrams: {{.Board.Summary.Rendered}} rendered, {{.Board.Summary.RenderFailed}} failed.</p>
{{if .Board.Cards}}
<table>
<thead><tr><th>Candidate</th><th>Structure</th><th>Affinity</th><th>Confidence</th><th>MW</th><th>LogP</th><th>HBD</th><th>HBA</th><th>Rule of Five</th></tr></thead>
<tbody>
{{range .Board.Cards}}<tr>
<td><strong>{{.Label}}</strong><br>{{.Candidate.Name}}<br><span class="smiles">{{truncate .Candidate.SMILES 60}}</span>{{with .Candidate.Mechanism}}<br>{{.}}{{end}}</td>
<td>{{if .Structure.PNG}}<img alt="{{.Candidate.Name}}" width="{{.Structure.Width}}" height="{{.Structure.Height}}" src="{{pngURI .Structure.PNG}}">{{else}}<span class="error">{{.Structure.Message}}</span>{{end}}</td>
<td>{{formatNumber .Candidate.BindingAffinity 2}} ({{.AffinityBand}})</td>
<td>{{formatNumber .Candidate.Confidence 2}} ({{.ConfidenceBand}})</td>
<td>{{formatNumber .Candidate.Properties.MolecularWeight 1}}</td>
<td>{{formatNumber .Candidate.Properties.LogP 2}}</td>
<td>{{.Candidate.Properties.HBD}}</td>
<td>{{.Candidate.Properties.HBA}}</td>
<td class="{{badgeClass .Rules.Classification}}">{{.Rules.Badge}}{{range .Rules.Markers}}<br>{{.}}{{end}}</td>
</tr>
{{end}}</tbody>
</table>
{{end}}
{{if .AffinityChart}}<h2>Binding affinity</h2><img alt="Binding affinity chart" src="{{pngURI .AffinityChart}}">{{end}}
{{if .RuleChart}}<h2>Rule of Five scores (out of {{.RuleCount}})</h2><img alt="Rule score chart" src="{{pngURI .RuleChart}}">{{end}}
</body>
</html>
`))

// BoardReport renders b as a single HTML page. Chart PNGs are embedded
// when given.
func BoardReport(b *board.Board, affinityChart, ruleChart []byte) ([]byte, error) {
	if b == nil {
		return nil, errors.New(errors.ErrCodeBadRequest, "board is required")
	}
	var buf bytes.Buffer
	err := boardReportTemplate.Execute(&buf, reportData{
		Board:         b,
		AffinityChart: affinityChart,
		RuleChart:     ruleChart,
		RuleCount:     domain.RuleCount,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeExportReportFailed, "render board report")
	}
	return buf.Bytes(), nil
}
