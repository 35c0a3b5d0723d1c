package structure

import "fmt"

// Tree is a parsed structure produced by Capability.Parse and consumed by a
// Drawer of the same capability.
type Tree interface {
	AtomCount() int
	BondCount() int
}

// Surface is a drawing target of fixed pixel size.
type Surface interface {
	Width() int
	Height() int
}

// Drawer draws a parsed Tree onto a Surface using a named theme.
type Drawer interface {
	Draw(tree Tree, surface Surface, theme string) error
}

// Capability is the drawing toolkit: a SMILES parser and a drawer factory.
type Capability interface {
	Parse(smiles string) (Tree, error)
	NewDrawer(opts DrawerOptions) (Drawer, error)
}

// DrawerOptions mirrors the knobs of the structure drawer.
type DrawerOptions struct {
	Width           int
	Height          int
	BondThickness   float64
	BondLength      float64
	ShortBondLength float64 // fraction of the bond drawn for inner ring lines
	BondSpacing     float64 // distance between parallel lines of multiple bonds
	Padding         float64
	FontSizeLarge   float64
	FontSizeSmall   float64
	TerminalCarbons bool
}

// Default drawer geometry.
const (
	DefaultWidth         = 280
	DefaultHeight        = 200
	DefaultBondThickness = 1.5
	DefaultBondLength    = 15.0
	DefaultPadding       = 20.0
)

// DefaultDrawerOptions returns the standard geometry for a width x height
// canvas.
func DefaultDrawerOptions(width, height int) DrawerOptions {
	return DrawerOptions{
		Width:           width,
		Height:          height,
		BondThickness:   DefaultBondThickness,
		BondLength:      DefaultBondLength,
		ShortBondLength: 0.85,
		BondSpacing:     0.18 * DefaultBondLength,
		Padding:         DefaultPadding,
		FontSizeLarge:   11,
		FontSizeSmall:   5,
		TerminalCarbons: true,
	}
}

// Validate rejects geometry that cannot produce a drawing.
func (o DrawerOptions) Validate() error {
	if o.Width <= 0 || o.Height <= 0 {
		return fmt.Errorf("structure: canvas size %dx%d must be positive", o.Width, o.Height)
	}
	if o.BondLength <= 0 || o.BondThickness <= 0 {
		return fmt.Errorf("structure: bond length and thickness must be positive")
	}
	if o.Padding < 0 {
		return fmt.Errorf("structure: padding must be ≥ 0")
	}
	return nil
}
