package structure

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/turtacn/DTI-Insight/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/DTI-Insight/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/DTI-Insight/pkg/errors"
)

// Phase is a renderer state.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSanitizing
	PhaseParsing
	PhaseDrawing
	PhaseRendered
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseSanitizing:
		return "sanitizing"
	case PhaseParsing:
		return "parsing"
	case PhaseDrawing:
		return "drawing"
	case PhaseRendered:
		return "rendered"
	case PhaseFailed:
		return "failed"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// IsTerminal reports whether no further transition follows without a new
// Present call.
func (p Phase) IsTerminal() bool {
	return p == PhaseRendered || p == PhaseFailed
}

// Attempt identifies which string a parse used: the sanitized one first, the
// original one as the single fallback.
type Attempt int

const (
	AttemptPrimary Attempt = iota
	AttemptFallback
)

func (a Attempt) String() string {
	if a == AttemptFallback {
		return "fallback"
	}
	return "primary"
}

// FailureReason is the short reason attached to PhaseFailed.
type FailureReason string

const (
	ReasonNone                  FailureReason = ""
	ReasonInvalidNotation       FailureReason = "invalid notation"
	ReasonRenderError           FailureReason = "render error"
	ReasonCapabilityUnavailable FailureReason = "capability unavailable"
)

// Message is the user-facing text for the reason.
func (r FailureReason) Message() string {
	switch r {
	case ReasonInvalidNotation:
		return "Invalid SMILES notation"
	case ReasonRenderError:
		return "Failed to render molecule"
	case ReasonCapabilityUnavailable:
		return "Failed to load molecule renderer"
	default:
		return ""
	}
}

// Diagram is a completed drawing.
type Diagram struct {
	Surface Surface
	// Notation is the string that parsed successfully.
	Notation string
	Attempt  Attempt
}

// PNG encodes the diagram when its surface supports it.
func (d *Diagram) PNG() ([]byte, error) {
	enc, ok := d.Surface.(interface{ PNG() ([]byte, error) })
	if !ok {
		return nil, fmt.Errorf("structure: surface %T cannot encode png", d.Surface)
	}
	return enc.PNG()
}

// Outcome is the result of one Present call.
type Outcome struct {
	Phase      Phase
	Attempt    Attempt
	Reason     FailureReason
	Diagram    *Diagram
	Err        error
	SMILES     string
	Generation uint64
}

// Rendered reports success.
func (o Outcome) Rendered() bool { return o.Phase == PhaseRendered }

// Superseded reports that a newer Present call replaced this attempt.
func (o Outcome) Superseded() bool {
	return errors.IsCode(o.Err, errors.ErrCodeStructureSuperseded)
}

// State is a snapshot of a renderer.
type State struct {
	Phase      Phase
	Attempt    Attempt
	Reason     FailureReason
	SMILES     string
	Generation uint64
	Diagram    *Diagram
}

// Renderer turns one SMILES string at a time into a Diagram. Each visible
// structure owns a Renderer; renderers share a CapabilityHandle.
type Renderer struct {
	handle  *CapabilityHandle
	opts    DrawerOptions
	theme   string
	logger  logging.Logger
	metrics *prometheus.BoardMetrics

	mu         sync.Mutex
	generation uint64
	state      State
}

// RendererOption customises a Renderer.
type RendererOption func(*Renderer)

// WithDrawerOptions sets the drawer geometry.
func WithDrawerOptions(o DrawerOptions) RendererOption {
	return func(r *Renderer) { r.opts = o }
}

// WithTheme selects the drawing theme by name.
func WithTheme(name string) RendererOption {
	return func(r *Renderer) { r.theme = name }
}

func WithLogger(l logging.Logger) RendererOption {
	return func(r *Renderer) { r.logger = l }
}

func WithMetrics(m *prometheus.BoardMetrics) RendererOption {
	return func(r *Renderer) { r.metrics = m }
}

// NewRenderer returns an idle renderer bound to handle.
func NewRenderer(handle *CapabilityHandle, opts ...RendererOption) *Renderer {
	r := &Renderer{
		handle: handle,
		opts:   DefaultDrawerOptions(DefaultWidth, DefaultHeight),
		theme:  ThemeDark,
		logger: logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// State returns the current state.
func (r *Renderer) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Render presents smiles on a fresh canvas sized from the drawer options.
func (r *Renderer) Render(ctx context.Context, smiles string) Outcome {
	canvas, err := NewCanvasSurface(r.opts.Width, r.opts.Height)
	if err != nil {
		return r.Present(ctx, smiles, nil)
	}
	return r.Present(ctx, smiles, canvas)
}

// Present runs sanitize, primary parse, optional fallback parse and draw for
// smiles onto surface. A later Present on the same renderer supersedes this
// one: its result is returned marked superseded and never becomes the state.
// If ctx ends while the capability is still loading, the outcome carries the
// context error and the renderer stays in PhaseSanitizing.
func (r *Renderer) Present(ctx context.Context, smiles string, surface Surface) Outcome {
	start := time.Now()
	gen := r.begin(smiles)
	out := Outcome{Phase: PhaseSanitizing, Attempt: AttemptPrimary, SMILES: smiles, Generation: gen}

	sanitized := Sanitize(smiles)
	if sanitized != smiles {
		r.logger.Debug("smiles sanitized", logging.String("original", smiles), logging.String("sanitized", sanitized))
	}

	if r.handle == nil {
		return r.fail(out, start, ReasonCapabilityUnavailable,
			errors.New(errors.ErrCodeCapabilityUnavailable, "no capability handle configured"))
	}
	capability, err := r.handle.Acquire(ctx)
	if ctx.Err() != nil && err == ctx.Err() {
		out.Err = err
		return out
	}
	if err != nil {
		return r.fail(out, start, ReasonCapabilityUnavailable, errors.Wrap(err, errors.ErrCodeCapabilityUnavailable, "Failed to load molecule renderer"))
	}
	if stale, ok := r.superseded(out); ok {
		return stale
	}

	out.Phase = PhaseParsing
	r.advance(gen, out)
	tree, perr := safeParse(capability, sanitized)
	notation := sanitized
	if perr != nil {
		if sanitized == smiles {
			return r.fail(out, start, ReasonInvalidNotation, errors.Wrap(perr, errors.ErrCodeStructureParseFailed, "Invalid SMILES notation"))
		}
		if stale, ok := r.superseded(out); ok {
			return stale
		}
		out.Attempt = AttemptFallback
		r.advance(gen, out)
		r.logger.Debug("primary parse failed, retrying original", logging.String("smiles", smiles), logging.Err(perr))
		tree, perr = safeParse(capability, smiles)
		if perr != nil {
			return r.fail(out, start, ReasonInvalidNotation, errors.Wrap(perr, errors.ErrCodeStructureParseFailed, "Invalid SMILES notation"))
		}
		notation = smiles
	}
	if stale, ok := r.superseded(out); ok {
		return stale
	}

	out.Phase = PhaseDrawing
	r.advance(gen, out)
	if surface == nil {
		return r.fail(out, start, ReasonRenderError, errors.New(errors.ErrCodeStructureRenderFailed, "no drawing surface"))
	}
	if derr := r.draw(capability, tree, surface); derr != nil {
		return r.fail(out, start, ReasonRenderError, errors.Wrap(derr, errors.ErrCodeStructureRenderFailed, "Failed to render molecule"))
	}
	if stale, ok := r.superseded(out); ok {
		return stale
	}

	out.Phase = PhaseRendered
	out.Diagram = &Diagram{Surface: surface, Notation: notation, Attempt: out.Attempt}
	if !r.commit(out) {
		return r.discard(out)
	}
	prometheus.RecordRender(r.metrics, out.Phase.String(), out.Attempt.String(), string(ReasonNone), time.Since(start))
	r.logger.Debug("structure rendered", logging.String("smiles", smiles), logging.String("attempt", out.Attempt.String()))
	return out
}

func (r *Renderer) begin(smiles string) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generation++
	r.state = State{Phase: PhaseSanitizing, SMILES: smiles, Generation: r.generation}
	return r.generation
}

// advance records an intermediate phase if gen is still current.
func (r *Renderer) advance(gen uint64, out Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.generation != gen {
		return
	}
	r.state.Phase = out.Phase
	r.state.Attempt = out.Attempt
}

// commit stores a terminal outcome if it is still current.
func (r *Renderer) commit(out Outcome) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.generation != out.Generation {
		return false
	}
	r.state = State{
		Phase:      out.Phase,
		Attempt:    out.Attempt,
		Reason:     out.Reason,
		SMILES:     out.SMILES,
		Generation: out.Generation,
		Diagram:    out.Diagram,
	}
	return true
}

func (r *Renderer) superseded(out Outcome) (Outcome, bool) {
	r.mu.Lock()
	current := r.generation
	r.mu.Unlock()
	if current == out.Generation {
		return out, false
	}
	return r.discard(out), true
}

func (r *Renderer) discard(out Outcome) Outcome {
	prometheus.RecordRenderSuperseded(r.metrics)
	out.Diagram = nil
	out.Reason = ReasonNone
	out.Err = errors.Newf(errors.ErrCodeStructureSuperseded, "render of %q superseded by a newer request", out.SMILES)
	return out
}

func (r *Renderer) fail(out Outcome, start time.Time, reason FailureReason, err error) Outcome {
	out.Phase = PhaseFailed
	out.Reason = reason
	out.Err = err
	if !r.commit(out) {
		return r.discard(out)
	}
	prometheus.RecordRender(r.metrics, out.Phase.String(), out.Attempt.String(), string(reason), time.Since(start))
	r.logger.Warn("structure render failed",
		logging.String("smiles", out.SMILES),
		logging.String("reason", string(reason)),
		logging.String("attempt", out.Attempt.String()),
		logging.Err(err))
	return out
}

func (r *Renderer) draw(c Capability, tree Tree, surface Surface) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("drawer panicked: %v", rec)
		}
	}()
	d, err := c.NewDrawer(r.opts)
	if err != nil {
		return err
	}
	if d == nil {
		return fmt.Errorf("capability returned no drawer")
	}
	return d.Draw(tree, surface, r.theme)
}

func safeParse(c Capability, s string) (tree Tree, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			tree, err = nil, fmt.Errorf("parser panicked: %v", rec)
		}
	}()
	tree, err = c.Parse(s)
	if err == nil && tree == nil {
		err = fmt.Errorf("parser returned no tree")
	}
	return tree, err
}
