package board

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	domain "github.com/turtacn/DTI-Insight/internal/domain/candidate"
	"github.com/turtacn/DTI-Insight/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/DTI-Insight/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/DTI-Insight/internal/intelligence/structure"
	"github.com/turtacn/DTI-Insight/pkg/errors"
	types "github.com/turtacn/DTI-Insight/pkg/types/candidate"
)

// Service composes boards and renders single structures.
type Service interface {
	Compose(ctx context.Context, resp types.PredictionResponse, opts ...ComposeOption) (*Board, error)
	RenderStructure(ctx context.Context, smiles string, width, height int) (DiagramState, error)
}

// DiagramCache holds successfully rendered PNGs.
type DiagramCache interface {
	Load(ctx context.Context, key string) ([]byte, bool, error)
	Store(ctx context.Context, key string, png []byte) error
}

// DiagramArchive keeps a durable copy of rendered PNGs.
type DiagramArchive interface {
	Archive(ctx context.Context, cacheKey string, png []byte) (string, error)
}

// EventPublisher emits board events. All payloads of one call share key and
// are written as a single batch.
type EventPublisher interface {
	PublishEvents(ctx context.Context, topic, eventType, key string, payloads ...interface{}) error
}

// Event topic and type for per-candidate render notifications.
const (
	DefaultRenderedTopic = "dti.structure.rendered"
	EventRendered        = "structure.rendered"
)

// RenderedEvent is published once per card, in card order, after the pass.
type RenderedEvent struct {
	PassID     string    `json:"pass_id"`
	Index      int       `json:"index"`
	Label      string    `json:"label"`
	Name       string    `json:"name"`
	SMILES     string    `json:"smiles"`
	Phase      string    `json:"phase"`
	Attempt    string    `json:"attempt,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	Cached     bool      `json:"cached"`
	ObjectKey  string    `json:"object_key,omitempty"`
	RenderedAt time.Time `json:"rendered_at"`
}

// Config sizes diagrams and bounds render fan-out.
type Config struct {
	Width       int
	Height      int
	Theme       string
	Concurrency int
	// AcquireTimeout bounds capability acquisition per render; zero waits on ctx only.
	AcquireTimeout time.Duration
}

func (c *Config) applyDefaults() {
	if c.Width <= 0 {
		c.Width = structure.DefaultWidth
	}
	if c.Height <= 0 {
		c.Height = structure.DefaultHeight
	}
	if c.Theme == "" {
		c.Theme = structure.ThemeDark
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 4
	}
}

// Option configures the service.
type Option func(*serviceImpl)

func WithCache(c DiagramCache) Option { return func(s *serviceImpl) { s.cache = c } }

func WithArchive(a DiagramArchive) Option { return func(s *serviceImpl) { s.archive = a } }

// WithPublisher emits a RenderedEvent per card to topic.
func WithPublisher(p EventPublisher, topic string) Option {
	return func(s *serviceImpl) {
		s.publisher = p
		if topic != "" {
			s.renderedTopic = topic
		}
	}
}

func WithLogger(l logging.Logger) Option { return func(s *serviceImpl) { s.logger = l } }

func WithMetrics(m *prometheus.BoardMetrics) Option { return func(s *serviceImpl) { s.metrics = m } }

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(s *serviceImpl) { s.now = now } }

// ComposeOption carries per-pass context.
type ComposeOption func(*composeParams)

type composeParams struct {
	sequenceLength int
	source         string
	passID         string
}

// WithSequenceLength records the length of the protein sequence the
// prediction was made for.
func WithSequenceLength(n int) ComposeOption { return func(p *composeParams) { p.sequenceLength = n } }

// WithSource labels the pass in metrics, e.g. "http" or "worker".
func WithSource(src string) ComposeOption { return func(p *composeParams) { p.source = src } }

// WithPassID reuses an upstream identifier instead of a fresh UUID.
func WithPassID(id string) ComposeOption { return func(p *composeParams) { p.passID = id } }

type serviceImpl struct {
	handle        *structure.CapabilityHandle
	cfg           Config
	cache         DiagramCache
	archive       DiagramArchive
	publisher     EventPublisher
	renderedTopic string
	logger        logging.Logger
	metrics       *prometheus.BoardMetrics
	now           func() time.Time

	// renders collapses concurrent renders of the same cache key.
	renders singleflight.Group
}

// NewService returns a board service drawing through handle.
func NewService(handle *structure.CapabilityHandle, cfg Config, opts ...Option) Service {
	cfg.applyDefaults()
	s := &serviceImpl{
		handle:        handle,
		cfg:           cfg,
		renderedTopic: DefaultRenderedTopic,
		logger:        logging.NewNopLogger(),
		now:           time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// CacheKey is the diagram cache key for smiles at width x height.
func CacheKey(smiles string, width, height int) string {
	sum := sha256.Sum256([]byte(smiles))
	return fmt.Sprintf("structure:%s:%dx%d", hex.EncodeToString(sum[:]), width, height)
}

func (s *serviceImpl) Compose(ctx context.Context, resp types.PredictionResponse, opts ...ComposeOption) (*Board, error) {
	start := s.now()
	params := composeParams{source: "api"}
	for _, o := range opts {
		o(&params)
	}

	candidates := resp.DrugCandidates
	if err := types.ValidateAll(candidates); err != nil {
		prometheus.RecordBoardPass(s.metrics, params.source, false, time.Since(start), nil)
		return nil, err
	}

	passID := params.passID
	if passID == "" {
		passID = uuid.NewString()
	}
	log := s.logger.With(logging.String("pass_id", passID))

	cards := make([]Card, len(candidates))
	g := new(errgroup.Group)
	g.SetLimit(s.cfg.Concurrency)
	for i, c := range candidates {
		i, c := i, c
		eval := domain.Evaluate(c.Properties)
		cards[i] = Card{
			Index:          i,
			Label:          types.CandidateLabel(i),
			Candidate:      c,
			Rules:          eval.Report(),
			AffinityBand:   domain.AffinityBand(c.BindingAffinity),
			ConfidenceBand: domain.ConfidenceBand(c.Confidence),
		}
		g.Go(func() error {
			state, err := s.render(ctx, c.SMILES, s.cfg.Width, s.cfg.Height, log)
			if err != nil && ctx.Err() != nil {
				return ctx.Err()
			}
			cards[i].Structure = state
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		prometheus.RecordBoardPass(s.metrics, params.source, false, time.Since(start), nil)
		return nil, err
	}

	b := &Board{
		PassID:          passID,
		CreatedAt:       s.now().UTC(),
		Cards:           cards,
		Projection:      domain.Project(candidates),
		ProteinAnalysis: resp.ProteinAnalysis,
		Recommendations: resp.Recommendations,
	}
	b.Summary = summarize(cards, params.sequenceLength)
	s.publishRendered(ctx, passID, cards, log)

	classifications := make([]string, len(cards))
	for i, c := range cards {
		classifications[i] = c.Rules.Classification
	}
	prometheus.RecordBoardPass(s.metrics, params.source, true, time.Since(start), classifications)
	log.Info("board composed",
		logging.Int("candidates", len(cards)),
		logging.Int("rendered", b.Summary.Rendered),
		logging.Duration("duration", time.Since(start)))
	return b, nil
}

func summarize(cards []Card, sequenceLength int) Summary {
	sum := Summary{
		Headline:       Headline(len(cards)),
		CandidateCount: len(cards),
		SequenceLength: sequenceLength,
	}
	for _, c := range cards {
		switch domain.Classification(c.Rules.Classification) {
		case domain.ClassificationPass:
			sum.Passing++
		case domain.ClassificationWarning:
			sum.Warning++
		default:
			sum.Failing++
		}
		if c.Structure.Rendered() {
			sum.Rendered++
		} else {
			sum.RenderFailed++
		}
	}
	return sum
}

func (s *serviceImpl) RenderStructure(ctx context.Context, smiles string, width, height int) (DiagramState, error) {
	if width <= 0 {
		width = s.cfg.Width
	}
	if height <= 0 {
		height = s.cfg.Height
	}
	return s.render(ctx, smiles, width, height, s.logger)
}

type renderResult struct {
	state DiagramState
	err   error
}

// render produces the terminal diagram state for smiles. Concurrent calls
// for the same notation and size share one cache lookup and one draw. A
// caller whose shared render was cancelled by another caller's context
// renders again on its own.
func (s *serviceImpl) render(ctx context.Context, smiles string, width, height int, log logging.Logger) (DiagramState, error) {
	key := CacheKey(smiles, width, height)
	v, _, shared := s.renders.Do(key, func() (interface{}, error) {
		st, err := s.renderKey(ctx, key, smiles, width, height, log)
		return renderResult{state: st, err: err}, nil
	})
	res := v.(renderResult)
	if shared && ctx.Err() == nil && errors.Is(res.err, context.Canceled) {
		return s.renderKey(ctx, key, smiles, width, height, log)
	}
	return res.state, res.err
}

// renderKey checks the cache, then renders. Only successful renders are
// cached and archived.
func (s *serviceImpl) renderKey(ctx context.Context, key, smiles string, width, height int, log logging.Logger) (DiagramState, error) {
	if s.cache != nil {
		png, ok, err := s.cache.Load(ctx, key)
		if err != nil {
			log.Warn("diagram cache load failed", logging.String("key", key), logging.Err(err))
		}
		prometheus.RecordCacheAccess(s.metrics, "diagram", ok)
		if ok {
			return DiagramState{
				Phase:  structure.PhaseRendered.String(),
				PNG:    png,
				Width:  width,
				Height: height,
				Cached: true,
			}, nil
		}
	}

	rctx := ctx
	if s.cfg.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		rctx, cancel = context.WithTimeout(ctx, s.cfg.AcquireTimeout)
		defer cancel()
	}

	opts := structure.DefaultDrawerOptions(width, height)
	r := structure.NewRenderer(s.handle,
		structure.WithDrawerOptions(opts),
		structure.WithTheme(s.cfg.Theme),
		structure.WithLogger(log),
		structure.WithMetrics(s.metrics))
	out := r.Render(rctx, smiles)

	state := DiagramState{
		Phase:   out.Phase.String(),
		Attempt: out.Attempt.String(),
		Reason:  string(out.Reason),
		Message: out.Reason.Message(),
		Width:   width,
		Height:  height,
	}
	if !out.Rendered() {
		if out.Err == nil {
			out.Err = errors.New(errors.ErrCodeStructureRenderFailed, "structure did not render")
		}
		if out.Phase == structure.PhaseSanitizing {
			state.Phase = structure.PhaseFailed.String()
			state.Reason = string(structure.ReasonCapabilityUnavailable)
			state.Message = structure.ReasonCapabilityUnavailable.Message()
		}
		return state, out.Err
	}

	png, err := out.Diagram.PNG()
	if err != nil {
		state.Phase = structure.PhaseFailed.String()
		state.Reason = string(structure.ReasonRenderError)
		state.Message = structure.ReasonRenderError.Message()
		return state, errors.Wrap(err, errors.ErrCodeStructureRenderFailed, "failed to encode diagram")
	}
	state.PNG = png
	state.Notation = out.Diagram.Notation

	if s.cache != nil {
		if err := s.cache.Store(ctx, key, png); err != nil {
			log.Warn("diagram cache store failed", logging.String("key", key), logging.Err(err))
		}
	}
	if s.archive != nil {
		objectKey, err := s.archive.Archive(ctx, key, png)
		if err != nil {
			log.Warn("diagram archive failed", logging.String("key", key), logging.Err(err))
		} else {
			state.ObjectKey = objectKey
		}
	}
	return state, nil
}

func (s *serviceImpl) publishRendered(ctx context.Context, passID string, cards []Card, log logging.Logger) {
	if s.publisher == nil || len(cards) == 0 {
		return
	}
	at := s.now().UTC()
	events := make([]interface{}, len(cards))
	for i, card := range cards {
		events[i] = RenderedEvent{
			PassID:     passID,
			Index:      card.Index,
			Label:      card.Label,
			Name:       card.Candidate.Name,
			SMILES:     card.Candidate.SMILES,
			Phase:      card.Structure.Phase,
			Attempt:    card.Structure.Attempt,
			Reason:     card.Structure.Reason,
			Cached:     card.Structure.Cached,
			ObjectKey:  card.Structure.ObjectKey,
			RenderedAt: at,
		}
	}
	if err := s.publisher.PublishEvents(ctx, s.renderedTopic, EventRendered, passID, events...); err != nil {
		log.Warn("publish structure rendered failed", logging.Int("events", len(events)), logging.Err(err))
	}
}
