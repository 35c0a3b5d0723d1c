package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/turtacn/DTI-Insight/internal/application/board"
	"github.com/turtacn/DTI-Insight/internal/config"
	"github.com/turtacn/DTI-Insight/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/DTI-Insight/internal/infrastructure/prediction"
	"github.com/turtacn/DTI-Insight/internal/intelligence/structure"
	"github.com/turtacn/DTI-Insight/pkg/errors"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Output formats accepted by --output.
const (
	OutputTable = "table"
	OutputJSON  = "json"
)

// cliContextKey is the context key for CLIContext.
type cliContextKey struct{}

// RootOptions holds global CLI flags.
type RootOptions struct {
	ConfigPath   string
	LogLevel     string
	OutputFormat string
	NoColor      bool
	Timeout      time.Duration
}

// Dependencies lets callers replace the collaborators a command would
// otherwise build from configuration. Zero fields are built on demand.
type Dependencies struct {
	Board     board.Service
	Predictor prediction.Predictor
}

// CLIContext carries initialized dependencies through the command tree.
type CLIContext struct {
	Config       *config.Config
	Logger       logging.Logger
	OutputFormat string
	NoColor      bool
	Timeout      time.Duration

	deps Dependencies
}

// Board returns the board service, drawing with the built-in capability.
func (c *CLIContext) Board() board.Service {
	if c.deps.Board == nil {
		handle := structure.NewDefaultCapabilityHandle(structure.WithHandleLogger(c.Logger))
		c.deps.Board = board.NewService(handle, board.Config{
			Width:          c.Config.Render.Width,
			Height:         c.Config.Render.Height,
			Theme:          c.Config.Render.Theme,
			Concurrency:    c.Config.Render.Concurrency,
			AcquireTimeout: c.Config.Render.AcquireTimeout,
		}, board.WithLogger(c.Logger))
	}
	return c.deps.Board
}

// Predictor returns the prediction backend client. A missing base URL is
// reported only when a command actually needs the backend.
func (c *CLIContext) Predictor() (prediction.Predictor, error) {
	if c.deps.Predictor != nil {
		return c.deps.Predictor, nil
	}
	pc := c.Config.Prediction
	if pc.BaseURL == "" {
		return nil, errors.New(errors.ErrCodeValidation,
			"prediction backend is not configured; set prediction.base_url or DTI_PREDICTION_BASE_URL")
	}
	p, err := prediction.NewClient(prediction.Config{
		BaseURL:      pc.BaseURL,
		APIKey:       pc.APIKey,
		Timeout:      pc.Timeout,
		MaxRetries:   pc.MaxRetries,
		RetryBackoff: pc.RetryBackoff,
	}, prediction.WithLogger(c.Logger))
	if err != nil {
		return nil, err
	}
	c.deps.Predictor = p
	return p, nil
}

// NewRootCommand creates the root cobra command with all global flags and subcommands.
func NewRootCommand(deps ...Dependencies) *cobra.Command {
	opts := &RootOptions{}
	var d Dependencies
	if len(deps) > 0 {
		d = deps[0]
	}

	cmd := &cobra.Command{
		Use:   "dti",
		Short: "DTI-Insight CLI, drug-target interaction candidate board",
		Long: "DTI-Insight turns drug-target interaction predictions into a candidate board:\n" +
			"Rule-of-Five drug-likeness, comparison views, structure diagrams and exports.",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return persistentPreRun(cmd, opts, d)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.ConfigPath, "config", "c", "", "config file path (default: ./dti.yaml)")
	pf.StringVar(&opts.LogLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	pf.StringVar(&opts.OutputFormat, "output", OutputTable, "output format (table, json)")
	pf.BoolVar(&opts.NoColor, "no-color", false, "disable colored output")
	pf.DurationVar(&opts.Timeout, "timeout", 2*time.Minute, "global operation timeout")

	cmd.AddCommand(
		NewEvaluateCmd(),
		NewCompareCmd(),
		NewRenderCmd(),
		NewPredictCmd(),
		NewExportCmd(),
	)
	return cmd
}

// persistentPreRun initializes config and logger, then stores CLIContext.
func persistentPreRun(cmd *cobra.Command, opts *RootOptions, deps Dependencies) error {
	format := strings.ToLower(opts.OutputFormat)
	if format != OutputTable && format != OutputJSON {
		return errors.Newf(errors.ErrCodeValidation, "invalid output format %q (expected table or json)", opts.OutputFormat)
	}
	if opts.NoColor {
		color.NoColor = true
	}

	cfg, err := initConfig(opts)
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	logger, err := initLogger(opts)
	if err != nil {
		return fmt.Errorf("logger initialization failed: %w", err)
	}

	cliCtx := &CLIContext{
		Config:       cfg,
		Logger:       logger,
		OutputFormat: format,
		NoColor:      opts.NoColor,
		Timeout:      opts.Timeout,
		deps:         deps,
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(context.WithValue(ctx, cliContextKey{}, cliCtx))
	return nil
}

// configSearchPaths lists the files tried when --config is absent.
func configSearchPaths() []string {
	paths := []string{"./dti.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".dti", "config.yaml"))
	}
	return append(paths, "/etc/dti/config.yaml")
}

// initConfig loads configuration with priority: env > file > defaults.
func initConfig(opts *RootOptions) (*config.Config, error) {
	if opts.ConfigPath != "" {
		return config.Load(config.WithConfigPath(opts.ConfigPath))
	}
	for _, p := range configSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return config.Load(config.WithConfigPath(p))
		}
	}
	return config.LoadFromEnv()
}

// initLogger creates a console logger on stderr so stdout stays clean for
// tables and JSON.
func initLogger(opts *RootOptions) (logging.Logger, error) {
	level := strings.ToLower(opts.LogLevel)
	switch level {
	case "debug", "info", "warn", "error":
	default:
		level = "warn"
	}
	return logging.NewLogger(logging.LogConfig{
		Level:            level,
		Format:           "console",
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	})
}

// GetCLIContext extracts CLIContext from a cobra command's context.
func GetCLIContext(cmd *cobra.Command) (*CLIContext, error) {
	ctx := cmd.Context()
	if ctx == nil {
		return nil, errors.New(errors.ErrCodeInternal, "command context is nil")
	}
	cliCtx, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok || cliCtx == nil {
		return nil, errors.New(errors.ErrCodeInternal, "CLIContext not found in command context")
	}
	return cliCtx, nil
}

// commandContext bounds a command by the global timeout.
func commandContext(cmd *cobra.Command, cliCtx *CLIContext) (context.Context, context.CancelFunc) {
	if cliCtx.Timeout <= 0 {
		return context.WithCancel(cmd.Context())
	}
	return context.WithTimeout(cmd.Context(), cliCtx.Timeout)
}

// Execute is the main entry point for the CLI application.
func Execute() error {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		PrintError(rootCmd.ErrOrStderr(), err)
		return err
	}
	return nil
}

// printJSON outputs data as indented JSON.
func printJSON(w io.Writer, data interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// PrintError writes a formatted error message. Application errors show their
// user-facing message and code.
func PrintError(w io.Writer, err error) {
	if err == nil {
		return
	}
	label := color.New(color.FgRed, color.Bold).Sprint("Error:")
	var appErr *errors.AppError
	if errors.As(err, &appErr) {
		msg := appErr.Message
		if appErr.Detail != "" {
			msg += " (" + appErr.Detail + ")"
		}
		fmt.Fprintf(w, "%s %s [%s]\n", label, msg, appErr.Code)
		return
	}
	fmt.Fprintf(w, "%s %s\n", label, err.Error())
}

// PrintSuccess writes a formatted success message.
func PrintSuccess(w io.Writer, msg string) {
	fmt.Fprintf(w, "%s %s\n", color.New(color.FgGreen).Sprint("OK:"), msg)
}

//Personal.AI order the ending
