package cli

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/turtacn/DTI-Insight/internal/application/board"
	"github.com/turtacn/DTI-Insight/internal/application/reporting"
	"github.com/turtacn/DTI-Insight/pkg/errors"
)

// exportResult is the JSON form of dti export.
type exportResult struct {
	PassID string   `json:"passId"`
	Dir    string   `json:"dir"`
	Files  []string `json:"files"`
}

// NewExportCmd creates the export command.
func NewExportCmd() *cobra.Command {
	var (
		file    string
		dir     string
		charts  bool
		parquet bool
		html    bool
		width   int
		height  int
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a board and its charts or Parquet tables to a directory",
		Long: "Reads a prediction response (or an already composed board) and writes\n" +
			"board.json, plus PNG charts with --charts and one Parquet file per view with --parquet.",
		Example: "  dti export -f response.json --dir out/ --charts --parquet",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			raw, err := readInput(file)
			if err != nil {
				return err
			}

			ctx, cancel := commandContext(cmd, cliCtx)
			defer cancel()

			b, err := loadBoard(raw, func() (*board.Board, error) {
				resp, err := decodeResponse(raw)
				if err != nil {
					return nil, err
				}
				return cliCtx.Board().Compose(ctx, resp, board.WithSource("cli"))
			})
			if err != nil {
				return err
			}

			artifacts, err := reporting.Artifacts(b, reporting.ArtifactOptions{
				Charts:      charts,
				Parquet:     parquet,
				HTML:        html,
				ChartWidth:  width,
				ChartHeight: height,
			})
			if err != nil {
				return err
			}
			files, err := writeArtifacts(dir, artifacts)
			if err != nil {
				return err
			}

			if cliCtx.OutputFormat == OutputJSON {
				return printJSON(cmd.OutOrStdout(), exportResult{PassID: b.PassID, Dir: dir, Files: files})
			}
			rows := make([][]string, 0, len(artifacts))
			for i, a := range artifacts {
				rows = append(rows, []string{files[i], a.ContentType, formatBytes(len(a.Data))})
			}
			if err := writeTable(cmd.OutOrStdout(), []string{"File", "Type", "Size"}, rows); err != nil {
				return err
			}
			PrintSuccess(cmd.OutOrStdout(), "exported board "+b.PassID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "prediction response or board JSON, - for stdin")
	cmd.Flags().StringVar(&dir, "dir", ".", "output directory")
	cmd.Flags().BoolVar(&charts, "charts", false, "include affinity and rule charts")
	cmd.Flags().BoolVar(&parquet, "parquet", false, "include one Parquet file per comparison view")
	cmd.Flags().BoolVar(&html, "html", false, "include a self-contained HTML report")
	cmd.Flags().IntVar(&width, "chart-width", reporting.DefaultChartWidth, "chart width in pixels")
	cmd.Flags().IntVar(&height, "chart-height", reporting.DefaultChartHeight, "chart height in pixels")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

// loadBoard decodes raw as a composed board when it carries a pass ID and
// falls back to compose otherwise.
func loadBoard(raw []byte, compose func() (*board.Board, error)) (*board.Board, error) {
	var probe struct {
		PassID string `json:"passId"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeBadRequest, "invalid JSON input")
	}
	if probe.PassID == "" {
		return compose()
	}
	var b board.Board
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeBadRequest, "invalid board JSON")
	}
	return &b, nil
}

func writeArtifacts(dir string, artifacts []reporting.Artifact) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "cannot create "+dir)
	}
	files := make([]string, 0, len(artifacts))
	for _, a := range artifacts {
		path := filepath.Join(dir, a.Name)
		if err := os.WriteFile(path, a.Data, 0o644); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "cannot write "+path)
		}
		files = append(files, path)
	}
	return files, nil
}

func formatBytes(n int) string {
	switch {
	case n >= 1<<20:
		return formatFloat(float64(n)/(1<<20)) + " MiB"
	case n >= 1<<10:
		return formatFloat(float64(n)/(1<<10)) + " KiB"
	default:
		return formatFloat(float64(n)) + " B"
	}
}
