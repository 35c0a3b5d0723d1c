package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	domain "github.com/turtacn/DTI-Insight/internal/domain/candidate"
	"github.com/turtacn/DTI-Insight/pkg/errors"
	types "github.com/turtacn/DTI-Insight/pkg/types/candidate"
)

// Comparison views selectable with --view.
const (
	ViewAffinity   = "affinity"
	ViewRadar      = "radar"
	ViewRules      = "rules"
	ViewProperties = "properties"
	ViewAll        = "all"
)

// NewCompareCmd creates the compare command.
func NewCompareCmd() *cobra.Command {
	var (
		file string
		view string
	)

	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Show the comparison views of a candidate list",
		Long: "Reads a JSON array of candidates, or a prediction response with a\n" +
			"drugCandidates field, and prints the affinity, radar, rules or property view.",
		Example: "  dti compare -f candidates.json --view radar",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			view = strings.ToLower(view)
			switch view {
			case ViewAffinity, ViewRadar, ViewRules, ViewProperties, ViewAll:
			default:
				return errors.Newf(errors.ErrCodeValidation,
					"invalid view %q (expected affinity, radar, rules, properties or all)", view)
			}

			candidates, err := readCandidates(file)
			if err != nil {
				return err
			}
			if err := types.ValidateAll(candidates); err != nil {
				return err
			}

			proj := domain.Project(candidates)
			if cliCtx.OutputFormat == OutputJSON {
				return printJSON(cmd.OutOrStdout(), selectView(proj, view))
			}
			return writeViews(cmd.OutOrStdout(), proj, view)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "candidates JSON file, - for stdin")
	cmd.Flags().StringVar(&view, "view", ViewAll, "view to show (affinity, radar, rules, properties, all)")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

// readCandidates accepts either a bare candidate array or a prediction
// response object.
func readCandidates(path string) ([]types.Candidate, error) {
	raw, err := readInput(path)
	if err != nil {
		return nil, err
	}
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "[") {
		var cs []types.Candidate
		if err := json.Unmarshal(raw, &cs); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeBadRequest, "invalid candidates JSON")
		}
		return cs, nil
	}
	resp, err := decodeResponse(raw)
	if err != nil {
		return nil, err
	}
	return resp.DrugCandidates, nil
}

func decodeResponse(raw []byte) (types.PredictionResponse, error) {
	var resp types.PredictionResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return resp, errors.Wrap(err, errors.ErrCodeBadRequest, "invalid prediction response JSON")
	}
	return resp, nil
}

func readInput(path string) ([]byte, error) {
	var (
		raw []byte
		err error
	)
	if path == "-" {
		raw, err = io.ReadAll(os.Stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeBadRequest, fmt.Sprintf("cannot read %s", path))
	}
	return raw, nil
}

func selectView(p domain.Projection, view string) interface{} {
	switch view {
	case ViewAffinity:
		return p.Affinity
	case ViewRadar:
		return p.Radar
	case ViewRules:
		return p.Rules
	case ViewProperties:
		return p.Properties
	default:
		return p
	}
}

func writeViews(w io.Writer, p domain.Projection, view string) error {
	sections := []struct {
		name  string
		title string
		write func() error
	}{
		{ViewAffinity, "Binding affinity", func() error { return writeAffinityView(w, p.Affinity) }},
		{ViewProperties, "Molecular properties", func() error { return writePropertyView(w, p.Properties) }},
		{ViewRadar, "Property radar", func() error { return writeRadarView(w, p.Radar) }},
		{ViewRules, "Rule of Five", func() error { return writeRuleView(w, p.Rules) }},
	}
	first := true
	for _, s := range sections {
		if view != ViewAll && view != s.name {
			continue
		}
		if view == ViewAll {
			if !first {
				fmt.Fprintln(w)
			}
			fmt.Fprintln(w, s.title)
		}
		first = false
		if err := s.write(); err != nil {
			return err
		}
	}
	return nil
}
