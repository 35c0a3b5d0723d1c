package cli

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/DTI-Insight/internal/application/board"
	"github.com/turtacn/DTI-Insight/pkg/errors"
)

// renderResult is the JSON form of dti render.
type renderResult struct {
	File     string `json:"file"`
	Phase    string `json:"phase"`
	Attempt  string `json:"attempt,omitempty"`
	Notation string `json:"notation,omitempty"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Bytes    int    `json:"bytes"`
}

// NewRenderCmd creates the render command.
func NewRenderCmd() *cobra.Command {
	var (
		smiles string
		out    string
		width  int
		height int
	)

	cmd := &cobra.Command{
		Use:     "render",
		Short:   "Draw a SMILES structure diagram to a PNG file",
		Example: "  dti render --smiles 'CC(=O)Oc1ccccc1C(=O)O' -o aspirin.png --width 560 --height 400",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			if strings.TrimSpace(smiles) == "" {
				return errors.New(errors.ErrCodeStructureEmpty, "smiles must not be empty")
			}
			if width < 0 || height < 0 {
				return errors.Newf(errors.ErrCodeValidation, "width and height must be positive, got %dx%d", width, height)
			}

			ctx, cancel := commandContext(cmd, cliCtx)
			defer cancel()

			state, err := cliCtx.Board().RenderStructure(ctx, smiles, width, height)
			if err != nil {
				return renderError(state, smiles, err)
			}
			if err := os.WriteFile(out, state.PNG, 0o644); err != nil {
				return errors.Wrap(err, errors.ErrCodeInternal, "cannot write "+out)
			}

			if cliCtx.OutputFormat == OutputJSON {
				return printJSON(cmd.OutOrStdout(), renderResult{
					File:     out,
					Phase:    state.Phase,
					Attempt:  state.Attempt,
					Notation: state.Notation,
					Width:    state.Width,
					Height:   state.Height,
					Bytes:    len(state.PNG),
				})
			}
			label := "rendered"
			if state.Attempt != "" && state.Attempt != "primary" {
				label += " with " + state.Attempt + " notation"
			}
			PrintSuccess(cmd.OutOrStdout(), label+" "+out)
			return nil
		},
	}

	cmd.Flags().StringVar(&smiles, "smiles", "", "SMILES notation to draw")
	cmd.Flags().StringVarP(&out, "out", "o", "structure.png", "output PNG path")
	cmd.Flags().IntVar(&width, "width", 0, "diagram width in pixels (default from config)")
	cmd.Flags().IntVar(&height, "height", 0, "diagram height in pixels (default from config)")
	_ = cmd.MarkFlagRequired("smiles")

	return cmd
}

// renderError surfaces the diagram's user-facing message.
func renderError(state board.DiagramState, smiles string, err error) error {
	if state.Message == "" {
		return err
	}
	code := errors.GetCode(err)
	if code == errors.CodeUnknown {
		code = errors.ErrCodeStructureRenderFailed
	}
	return errors.Wrap(err, code, state.Message).WithDetail("smiles=" + smiles)
}
