package cli

import (
	"github.com/spf13/cobra"

	domain "github.com/turtacn/DTI-Insight/internal/domain/candidate"
	types "github.com/turtacn/DTI-Insight/pkg/types/candidate"
)

// evaluateResult is the JSON form of dti evaluate.
type evaluateResult struct {
	Properties types.Properties `json:"properties"`
	types.RuleReport
	Score int `json:"score"`
}

// NewEvaluateCmd creates the evaluate command.
func NewEvaluateCmd() *cobra.Command {
	var p types.Properties

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Apply the Rule of Five to one set of molecular properties",
		Example: "  dti evaluate --mw 446.9 --logp 3.75 --hbd 1 --hba 7\n" +
			"  dti evaluate --mw 620 --logp 6.1 --hbd 2 --hba 11 --output json",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			if err := p.Validate(); err != nil {
				return err
			}

			eval := domain.Evaluate(p)
			report := eval.Report()
			if cliCtx.OutputFormat == OutputJSON {
				return printJSON(cmd.OutOrStdout(), evaluateResult{Properties: p, RuleReport: report, Score: eval.Score()})
			}
			return writeRuleTable(cmd.OutOrStdout(), p, report)
		},
	}

	cmd.Flags().Float64Var(&p.MolecularWeight, "mw", 0, "molecular weight in Da")
	cmd.Flags().Float64Var(&p.LogP, "logp", 0, "octanol-water partition coefficient")
	cmd.Flags().IntVar(&p.HBD, "hbd", 0, "hydrogen-bond donors")
	cmd.Flags().IntVar(&p.HBA, "hba", 0, "hydrogen-bond acceptors")
	_ = cmd.MarkFlagRequired("mw")
	_ = cmd.MarkFlagRequired("logp")
	_ = cmd.MarkFlagRequired("hbd")
	_ = cmd.MarkFlagRequired("hba")

	return cmd
}
