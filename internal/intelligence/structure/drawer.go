package structure

import (
	"fmt"
	"strconv"

	"github.com/fogleman/gg"
	"golang.org/x/image/font/basicfont"
)

// baseFontHeight is the pixel height of basicfont.Face7x13.
const baseFontHeight = 13.0

// maxZoom bounds how much a small molecule is enlarged to fill the canvas.
const maxZoom = 2.0

// defaultValences lists the normal valences of the unbracketed organic
// subset, lowest first.
var defaultValences = map[string][]int{
	"B": {3}, "C": {4}, "N": {3, 5}, "O": {2}, "P": {3, 5}, "S": {2, 4, 6},
	"F": {1}, "Cl": {1}, "Br": {1}, "I": {1},
}

type ggDrawer struct {
	opts DrawerOptions
}

// Draw lays out a Molecule and paints it onto a CanvasSurface. Panics raised
// while drawing are returned as errors.
func (d *ggDrawer) Draw(tree Tree, surface Surface, themeName string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("structure: drawer panicked: %v", r)
		}
	}()

	mol, ok := tree.(*Molecule)
	if !ok {
		return fmt.Errorf("structure: drawer cannot draw %T", tree)
	}
	canvas, ok := surface.(*CanvasSurface)
	if !ok {
		return fmt.Errorf("structure: drawer cannot paint onto %T", surface)
	}
	theme, ok := ThemeByName(themeName)
	if !ok {
		return fmt.Errorf("structure: unknown theme %q", themeName)
	}

	layout, err := ComputeLayout(mol, LayoutOptions{
		Width:      canvas.Width(),
		Height:     canvas.Height(),
		BondLength: d.opts.BondLength,
		Padding:    d.opts.Padding,
		MaxZoom:    maxZoom,
	})
	if err != nil {
		return err
	}

	dc := canvas.Context()
	if theme.Transparent() {
		dc.SetRGBA(0, 0, 0, 0)
	} else {
		dc.SetHexColor(theme.Background)
	}
	dc.Clear()
	dc.SetLineCap(gg.LineCapRound)
	dc.SetLineWidth(d.opts.BondThickness)

	zoom := layout.BondLength / d.opts.BondLength
	fontScale := d.opts.FontSizeLarge * zoom / baseFontHeight
	labels := make([]string, len(mol.Atoms))
	for i := range mol.Atoms {
		labels[i] = d.atomLabel(mol, i)
	}

	for _, b := range mol.Bonds {
		d.drawBond(dc, mol, layout, theme, labels, b, zoom)
	}
	for _, ring := range layout.Rings {
		if !ring.Aromatic {
			continue
		}
		dc.SetHexColor(theme.Color("C"))
		dc.DrawCircle(ring.Center.X, ring.Center.Y, ring.Radius*0.6)
		dc.Stroke()
	}

	dc.SetFontFace(basicfont.Face7x13)
	for i, text := range labels {
		if text == "" {
			continue
		}
		p := layout.Points[i]
		dc.Push()
		dc.ScaleAbout(fontScale, fontScale, p.X, p.Y)
		dc.SetHexColor(theme.Color(mol.Atoms[i].Symbol))
		dc.DrawStringAnchored(text, p.X, p.Y, 0.5, 0.35)
		dc.Pop()
	}
	return nil
}

func (d *ggDrawer) drawBond(dc *gg.Context, mol *Molecule, layout *Layout, theme Theme, labels []string, b Bond, zoom float64) {
	p1, p2 := layout.Points[b.From], layout.Points[b.To]
	dir, ok := p2.sub(p1).normalize()
	if !ok {
		return
	}
	gap := d.opts.FontSizeLarge * zoom * 0.6
	if labels[b.From] != "" {
		p1 = p1.add(dir.scale(gap))
	}
	if labels[b.To] != "" {
		p2 = p2.sub(dir.scale(gap))
	}
	c1 := theme.Color(mol.Atoms[b.From].Symbol)
	c2 := theme.Color(mol.Atoms[b.To].Symbol)
	spacing := d.opts.BondSpacing * zoom
	normal := Point{-dir.Y, dir.X}

	switch b.Order {
	case BondDouble:
		if center, ok := sharedRingCenter(layout, b.From, b.To); ok {
			halfBond(dc, p1, p2, c1, c2)
			side := normal
			if dot(side, center.sub(p1)) < 0 {
				side = side.scale(-1)
			}
			inner1, inner2 := shorten(p1, p2, d.opts.ShortBondLength)
			off := side.scale(spacing)
			halfBond(dc, inner1.add(off), inner2.add(off), c1, c2)
			return
		}
		off := normal.scale(spacing / 2)
		halfBond(dc, p1.add(off), p2.add(off), c1, c2)
		halfBond(dc, p1.sub(off), p2.sub(off), c1, c2)
	case BondTriple:
		off := normal.scale(spacing)
		halfBond(dc, p1, p2, c1, c2)
		halfBond(dc, p1.add(off), p2.add(off), c1, c2)
		halfBond(dc, p1.sub(off), p2.sub(off), c1, c2)
	default:
		halfBond(dc, p1, p2, c1, c2)
	}
}

// halfBond strokes a segment in two halves, each in its own atom's colour.
func halfBond(dc *gg.Context, a, b Point, ca, cb string) {
	mid := a.add(b).scale(0.5)
	dc.SetHexColor(ca)
	dc.DrawLine(a.X, a.Y, mid.X, mid.Y)
	dc.Stroke()
	dc.SetHexColor(cb)
	dc.DrawLine(mid.X, mid.Y, b.X, b.Y)
	dc.Stroke()
}

// shorten trims a segment symmetrically to frac of its length.
func shorten(a, b Point, frac float64) (Point, Point) {
	if frac <= 0 || frac >= 1 {
		return a, b
	}
	trim := b.sub(a).scale((1 - frac) / 2)
	return a.add(trim), b.sub(trim)
}

func sharedRingCenter(layout *Layout, u, v int) (Point, bool) {
	for _, r := range layout.Rings {
		hasU, hasV := false, false
		for _, a := range r.Atoms {
			hasU = hasU || a == u
			hasV = hasV || a == v
		}
		if hasU && hasV {
			return r.Center, true
		}
	}
	return Point{}, false
}

// atomLabel returns the text drawn at atom i, or "" for a bare vertex.
// Carbons are labelled only when terminal (and TerminalCarbons is set),
// isolated, charged or isotopic.
func (d *ggDrawer) atomLabel(mol *Molecule, i int) string {
	a := mol.Atoms[i]
	degree := mol.Degree(i)
	if a.Symbol == "C" && !a.Bracket {
		if degree == 0 || (degree == 1 && d.opts.TerminalCarbons) {
			return labelText(a, implicitHydrogens(mol, i))
		}
		return ""
	}
	if a.Symbol == "C" && a.Charge == 0 && a.Isotope == 0 && degree > 1 {
		return ""
	}
	h := a.HCount
	if !a.Bracket {
		h = implicitHydrogens(mol, i)
	}
	return labelText(a, h)
}

func labelText(a Atom, h int) string {
	s := a.Symbol
	if a.Isotope > 0 {
		s = strconv.Itoa(a.Isotope) + s
	}
	switch {
	case h == 1:
		s += "H"
	case h > 1:
		s += "H" + strconv.Itoa(h)
	}
	switch {
	case a.Charge == 1:
		s += "+"
	case a.Charge == -1:
		s += "-"
	case a.Charge > 1:
		s += strconv.Itoa(a.Charge) + "+"
	case a.Charge < -1:
		s += strconv.Itoa(-a.Charge) + "-"
	}
	return s
}

// implicitHydrogens fills an unbracketed atom up to its lowest normal valence
// that accommodates its bonds. Aromatic atoms contribute one extra bond.
func implicitHydrogens(mol *Molecule, i int) int {
	a := mol.Atoms[i]
	valences, ok := defaultValences[a.Symbol]
	if !ok || a.Bracket {
		return 0
	}
	used, aromatic := 0, 0
	for _, b := range mol.Bonds {
		if b.From != i && b.To != i {
			continue
		}
		if b.Order == BondAromatic {
			aromatic++
			used++
			continue
		}
		used += int(b.Order)
	}
	if a.Aromatic || aromatic > 0 {
		used++
	}
	for _, v := range valences {
		if v >= used {
			return v - used
		}
	}
	return 0
}
