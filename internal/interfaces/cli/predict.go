package cli

import (
	"bytes"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/turtacn/DTI-Insight/internal/application/board"
	"github.com/turtacn/DTI-Insight/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/DTI-Insight/internal/infrastructure/prediction"
	"github.com/turtacn/DTI-Insight/pkg/errors"
)

// NewPredictCmd creates the predict command.
func NewPredictCmd() *cobra.Command {
	var (
		sequence string
		sample   bool
		out      string
	)

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict drug candidates for a protein sequence and compose the board",
		Example: "  dti predict --sample -o board.json\n" +
			"  dti predict --sequence MRPSGTAGAALLALLAALCPASRALEEKK...",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			if sample {
				s := prediction.EGFRSample()
				cliCtx.Logger.Info(s.Description, logging.Int("length", s.Length))
				sequence = s.Sequence
			}
			sequence = strings.TrimSpace(sequence)
			if sequence == "" {
				return errors.New(errors.ErrCodePredictionSequenceEmpty,
					errors.DefaultMessageForCode(errors.ErrCodePredictionSequenceEmpty))
			}

			predictor, err := cliCtx.Predictor()
			if err != nil {
				return err
			}

			ctx, cancel := commandContext(cmd, cliCtx)
			defer cancel()

			resp, err := predictor.Predict(ctx, sequence)
			if err != nil {
				return err
			}
			b, err := cliCtx.Board().Compose(ctx, *resp,
				board.WithSource("cli"),
				board.WithSequenceLength(utf8.RuneCountInString(sequence)))
			if err != nil {
				return err
			}

			if out != "" {
				if err := writeJSONFile(out, b); err != nil {
					return err
				}
			}
			if cliCtx.OutputFormat == OutputJSON {
				if out != "" {
					return printJSON(cmd.OutOrStdout(), b.Summary)
				}
				return printJSON(cmd.OutOrStdout(), b)
			}
			if err := writeBoard(cmd.OutOrStdout(), b); err != nil {
				return err
			}
			if out != "" {
				PrintSuccess(cmd.OutOrStdout(), "board written to "+out)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&sequence, "sequence", "", "protein amino-acid sequence")
	cmd.Flags().BoolVar(&sample, "sample", false, "use the bundled EGFR sample sequence")
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the composed board JSON to this file")
	cmd.MarkFlagsMutuallyExclusive("sequence", "sample")
	cmd.MarkFlagsOneRequired("sequence", "sample")

	return cmd
}

func writeJSONFile(path string, v interface{}) error {
	var buf bytes.Buffer
	if err := printJSON(&buf, v); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "cannot encode "+path)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "cannot write "+path)
	}
	return nil
}
