package structure

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/DTI-Insight/internal/testutil"
	"github.com/turtacn/DTI-Insight/pkg/errors"
)

type fakeTree struct{ smiles string }

func (fakeTree) AtomCount() int { return 1 }
func (fakeTree) BondCount() int { return 0 }

type fakeSurface struct{ w, h int }

func (s fakeSurface) Width() int  { return s.w }
func (s fakeSurface) Height() int { return s.h }

// fakeCapability records every string it is asked to parse and every tree
// it draws.
type fakeCapability struct {
	mu        sync.Mutex
	parsed    []string
	drawn     []string
	themes    []string
	accept    func(string) bool
	parsePan  bool
	drawErr   error
	drawPanic bool
	onDraw    func()
}

func (f *fakeCapability) Parse(s string) (Tree, error) {
	f.mu.Lock()
	f.parsed = append(f.parsed, s)
	f.mu.Unlock()
	if f.parsePan {
		panic("parser exploded")
	}
	if f.accept != nil && !f.accept(s) {
		return nil, fmt.Errorf("cannot parse %q", s)
	}
	return fakeTree{smiles: s}, nil
}

func (f *fakeCapability) NewDrawer(DrawerOptions) (Drawer, error) {
	return fakeDrawer{f: f}, nil
}

func (f *fakeCapability) Parsed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.parsed...)
}

func (f *fakeCapability) Drawn() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.drawn...)
}

type fakeDrawer struct{ f *fakeCapability }

func (d fakeDrawer) Draw(tree Tree, _ Surface, theme string) error {
	d.f.mu.Lock()
	d.f.drawn = append(d.f.drawn, tree.(fakeTree).smiles)
	d.f.themes = append(d.f.themes, theme)
	hook := d.f.onDraw
	d.f.onDraw = nil
	d.f.mu.Unlock()
	if hook != nil {
		hook()
	}
	if d.f.drawPanic {
		panic("drawer exploded")
	}
	return d.f.drawErr
}

func only(valid ...string) func(string) bool {
	return func(s string) bool {
		for _, v := range valid {
			if s == v {
				return true
			}
		}
		return false
	}
}

func newFakeRenderer(f *fakeCapability, opts ...RendererOption) *Renderer {
	h := NewCapabilityHandle(func() (Capability, error) { return f, nil })
	return NewRenderer(h, opts...)
}

var testSurface = fakeSurface{w: DefaultWidth, h: DefaultHeight}

func TestRenderer_PrimaryParseUsesSanitizedString(t *testing.T) {
	f := &fakeCapability{}
	r := newFakeRenderer(f)

	out := r.Present(context.Background(), "C0C", testSurface)

	assert.Equal(t, []string{"COC"}, f.Parsed())
	assert.Equal(t, []string{"COC"}, f.Drawn())
	assert.Equal(t, []string{ThemeDark}, f.themes)
	assert.Equal(t, PhaseRendered, out.Phase)
	assert.Equal(t, AttemptPrimary, out.Attempt)
	assert.NoError(t, out.Err)
	require.NotNil(t, out.Diagram)
	assert.Equal(t, "COC", out.Diagram.Notation)
	assert.True(t, out.Rendered())

	st := r.State()
	assert.Equal(t, PhaseRendered, st.Phase)
	assert.Equal(t, "C0C", st.SMILES)
	assert.Same(t, out.Diagram, st.Diagram)
}

func TestRenderer_FallbackParsesOriginal(t *testing.T) {
	f := &fakeCapability{accept: only("C01CC1C0")}
	r := newFakeRenderer(f)

	out := r.Present(context.Background(), "C01CC1C0", testSurface)

	assert.Equal(t, []string{"CO1CC1C0", "C01CC1C0"}, f.Parsed())
	assert.Equal(t, PhaseRendered, out.Phase)
	assert.Equal(t, AttemptFallback, out.Attempt)
	require.NotNil(t, out.Diagram)
	assert.Equal(t, "C01CC1C0", out.Diagram.Notation)
	assert.Equal(t, AttemptFallback, out.Diagram.Attempt)
}

func TestRenderer_NoFallbackWhenSanitizeChangedNothing(t *testing.T) {
	f := &fakeCapability{accept: only()}
	r := newFakeRenderer(f)

	out := r.Present(context.Background(), "C1CC", testSurface)

	assert.Equal(t, []string{"C1CC"}, f.Parsed())
	assert.Empty(t, f.Drawn())
	assert.Equal(t, PhaseFailed, out.Phase)
	assert.Equal(t, AttemptPrimary, out.Attempt)
	assert.Equal(t, ReasonInvalidNotation, out.Reason)
	assert.True(t, errors.IsCode(out.Err, errors.ErrCodeStructureParseFailed))
	assert.Nil(t, out.Diagram)
}

func TestRenderer_BothParsesFail(t *testing.T) {
	f := &fakeCapability{accept: only()}
	r := newFakeRenderer(f)

	out := r.Present(context.Background(), "C0C", testSurface)

	assert.Equal(t, []string{"COC", "C0C"}, f.Parsed())
	assert.Empty(t, f.Drawn())
	assert.Equal(t, PhaseFailed, out.Phase)
	assert.Equal(t, AttemptFallback, out.Attempt)
	assert.Equal(t, ReasonInvalidNotation, out.Reason)
	assert.Equal(t, "Invalid SMILES notation", out.Reason.Message())
	assert.True(t, errors.IsCode(out.Err, errors.ErrCodeStructureParseFailed))
	assert.Equal(t, PhaseFailed, r.State().Phase)
}

func TestRenderer_DrawErrorIsRenderFailure(t *testing.T) {
	f := &fakeCapability{drawErr: fmt.Errorf("canvas lost")}
	r := newFakeRenderer(f)

	out := r.Present(context.Background(), "CCO", testSurface)

	assert.Equal(t, PhaseFailed, out.Phase)
	assert.Equal(t, ReasonRenderError, out.Reason)
	assert.Equal(t, "Failed to render molecule", out.Reason.Message())
	assert.True(t, errors.IsCode(out.Err, errors.ErrCodeStructureRenderFailed))
	assert.Nil(t, out.Diagram)
}

func TestRenderer_DrawPanicIsRenderFailure(t *testing.T) {
	f := &fakeCapability{drawPanic: true}
	r := newFakeRenderer(f)

	out := r.Present(context.Background(), "CCO", testSurface)

	assert.Equal(t, PhaseFailed, out.Phase)
	assert.Equal(t, ReasonRenderError, out.Reason)
}

func TestRenderer_ParsePanicIsParseFailure(t *testing.T) {
	f := &fakeCapability{parsePan: true}
	r := newFakeRenderer(f)

	out := r.Present(context.Background(), "CCO", testSurface)

	assert.Equal(t, PhaseFailed, out.Phase)
	assert.Equal(t, ReasonInvalidNotation, out.Reason)
}

func TestRenderer_CapabilityUnavailable(t *testing.T) {
	calls := 0
	h := NewCapabilityHandle(func() (Capability, error) {
		calls++
		return nil, fmt.Errorf("no renderer")
	})
	logger := testutil.NewMockLogger()
	r1 := NewRenderer(h, WithLogger(logger))
	r2 := NewRenderer(h)

	out1 := r1.Present(context.Background(), "CCO", testSurface)
	out2 := r2.Present(context.Background(), "CCC", testSurface)

	for _, out := range []Outcome{out1, out2} {
		assert.Equal(t, PhaseFailed, out.Phase)
		assert.Equal(t, ReasonCapabilityUnavailable, out.Reason)
		assert.Equal(t, "Failed to load molecule renderer", out.Reason.Message())
		assert.True(t, errors.IsCode(out.Err, errors.ErrCodeCapabilityUnavailable))
	}
	assert.Equal(t, 1, calls)
	assert.True(t, logger.HasMessage("warn", "structure render failed"))
}

func TestRenderer_NilHandle(t *testing.T) {
	out := NewRenderer(nil).Present(context.Background(), "CCO", testSurface)
	assert.Equal(t, ReasonCapabilityUnavailable, out.Reason)
}

func TestRenderer_NewRequestSupersedesInFlight(t *testing.T) {
	f := &fakeCapability{}
	r := newFakeRenderer(f)

	var newer Outcome
	f.onDraw = func() {
		newer = r.Present(context.Background(), "CCN", testSurface)
	}

	stale := r.Present(context.Background(), "CCO", testSurface)

	assert.True(t, stale.Superseded())
	assert.Nil(t, stale.Diagram)
	assert.Equal(t, uint64(1), stale.Generation)

	assert.Equal(t, PhaseRendered, newer.Phase)
	assert.Equal(t, uint64(2), newer.Generation)

	st := r.State()
	assert.Equal(t, PhaseRendered, st.Phase)
	assert.Equal(t, "CCN", st.SMILES)
	assert.Equal(t, uint64(2), st.Generation)
	require.NotNil(t, st.Diagram)
	assert.Equal(t, "CCN", st.Diagram.Notation)
}

func TestRenderer_HungAcquisitionStaysSanitizing(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	h := NewCapabilityHandle(func() (Capability, error) {
		<-release
		return &fakeCapability{}, nil
	})
	r := NewRenderer(h)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out := r.Present(ctx, "CCO", testSurface)

	assert.ErrorIs(t, out.Err, context.Canceled)
	assert.Equal(t, PhaseSanitizing, out.Phase)
	assert.Equal(t, PhaseSanitizing, r.State().Phase)
	assert.False(t, r.State().Phase.IsTerminal())
}

func TestRenderer_RepresentResetsState(t *testing.T) {
	f := &fakeCapability{accept: only("CCO")}
	r := newFakeRenderer(f)

	assert.Equal(t, PhaseIdle, r.State().Phase)
	first := r.Present(context.Background(), "XX", testSurface)
	assert.Equal(t, PhaseFailed, first.Phase)

	second := r.Present(context.Background(), "CCO", testSurface)
	assert.Equal(t, PhaseRendered, second.Phase)
	assert.Equal(t, ReasonNone, r.State().Reason)
}

func TestRenderer_DefaultCapabilityEndToEnd(t *testing.T) {
	r := NewRenderer(NewDefaultCapabilityHandle())

	out := r.Render(context.Background(), "CC(=0)Oc1ccccc1C(=O)O")
	require.Equal(t, PhaseRendered, out.Phase, "err: %v", out.Err)
	assert.Equal(t, AttemptPrimary, out.Attempt)
	data, err := out.Diagram.PNG()
	require.NoError(t, err)
	assert.Greater(t, opaquePixels(t, data), 0)

	out = r.Render(context.Background(), "C01CC1C0")
	require.Equal(t, PhaseRendered, out.Phase, "err: %v", out.Err)
	assert.Equal(t, AttemptFallback, out.Attempt)

	out = r.Render(context.Background(), "C1CC")
	assert.Equal(t, PhaseFailed, out.Phase)
	assert.Equal(t, ReasonInvalidNotation, out.Reason)
}

func TestDiagram_PNGRequiresEncoder(t *testing.T) {
	_, err := (&Diagram{Surface: testSurface}).PNG()
	assert.Error(t, err)
}

func TestPhaseAndAttemptStrings(t *testing.T) {
	assert.Equal(t, "idle", PhaseIdle.String())
	assert.Equal(t, "sanitizing", PhaseSanitizing.String())
	assert.Equal(t, "parsing", PhaseParsing.String())
	assert.Equal(t, "drawing", PhaseDrawing.String())
	assert.Equal(t, "rendered", PhaseRendered.String())
	assert.Equal(t, "failed", PhaseFailed.String())
	assert.True(t, PhaseRendered.IsTerminal())
	assert.True(t, PhaseFailed.IsTerminal())
	assert.False(t, PhaseDrawing.IsTerminal())
	assert.Equal(t, "primary", AttemptPrimary.String())
	assert.Equal(t, "fallback", AttemptFallback.String())
}
