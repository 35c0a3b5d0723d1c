package structure

import (
	"fmt"
	"math"
	"math/bits"
	"sort"
)

// Point is a position in canvas pixels (or bond-length units before fitting).
type Point struct{ X, Y float64 }

func (p Point) add(q Point) Point { return Point{p.X + q.X, p.Y + q.Y} }
func (p Point) sub(q Point) Point { return Point{p.X - q.X, p.Y - q.Y} }
func (p Point) scale(f float64) Point { return Point{p.X * f, p.Y * f} }
func (p Point) length() float64 { return math.Hypot(p.X, p.Y) }
func (p Point) angle() float64 { return math.Atan2(p.Y, p.X) }
func polar(r, theta float64) Point { return Point{r * math.Cos(theta), r * math.Sin(theta)} }

func (p Point) finite() bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}

func (p Point) normalize() (Point, bool) {
	l := p.length()
	if l < 1e-9 {
		return Point{}, false
	}
	return p.scale(1 / l), true
}

// RingPlacement is a ring as drawn: member atoms in cycle order, its centre
// and circumradius in canvas pixels.
type RingPlacement struct {
	Atoms    []int
	Center   Point
	Radius   float64
	Aromatic bool
}

// Layout holds fitted canvas coordinates for every atom.
type Layout struct {
	Points []Point
	Rings  []RingPlacement
	// BondLength is the fitted bond length in pixels.
	BondLength float64
}

// LayoutOptions describes the target canvas.
type LayoutOptions struct {
	Width      int
	Height     int
	BondLength float64
	Padding    float64
	// MaxZoom caps how far small molecules are enlarged beyond BondLength.
	MaxZoom float64
}

// ComputeLayout places atoms depth-first with unit bonds, rings as regular
// polygons and fused rings across their shared edge, then scales the result to
// fit the canvas minus padding.
func ComputeLayout(m *Molecule, o LayoutOptions) (*Layout, error) {
	if m == nil || len(m.Atoms) == 0 {
		return nil, fmt.Errorf("structure: nothing to lay out")
	}
	availW := float64(o.Width) - 2*o.Padding
	availH := float64(o.Height) - 2*o.Padding
	if availW <= 0 || availH <= 0 {
		return nil, fmt.Errorf("structure: canvas %dx%d leaves no room inside padding %.0f", o.Width, o.Height, o.Padding)
	}
	if o.MaxZoom <= 0 {
		o.MaxZoom = 2
	}

	s := newLayoutState(m)
	s.placeAll()

	minX, minY, maxX, maxY := bounds(s.pts)
	bw, bh := maxX-minX, maxY-minY
	px := o.BondLength * o.MaxZoom
	if bw > 0 {
		px = math.Min(px, availW/bw)
	}
	if bh > 0 {
		px = math.Min(px, availH/bh)
	}
	offX := o.Padding + (availW-bw*px)/2 - minX*px
	offY := o.Padding + (availH-bh*px)/2 - minY*px

	out := &Layout{Points: make([]Point, len(s.pts)), BondLength: px}
	for i, p := range s.pts {
		q := Point{p.X*px + offX, p.Y*px + offY}
		if !q.finite() {
			return nil, fmt.Errorf("structure: atom %d has a non-finite position", i)
		}
		out.Points[i] = q
	}
	for r, cyc := range s.rings {
		out.Rings = append(out.Rings, RingPlacement{
			Atoms:    append([]int(nil), cyc...),
			Center:   Point{s.centers[r].X*px + offX, s.centers[r].Y*px + offY},
			Radius:   ringRadius(len(cyc)) * px,
			Aromatic: s.aromaticRing(cyc),
		})
	}
	return out, nil
}

func bounds(pts []Point) (minX, minY, maxX, maxY float64) {
	minX, minY = math.Inf(1), math.Inf(1)
	maxX, maxY = math.Inf(-1), math.Inf(-1)
	for _, p := range pts {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}
	return
}

// ringRadius is the circumradius of a regular n-gon with unit sides.
func ringRadius(n int) float64 {
	return 1 / (2 * math.Sin(math.Pi/float64(n)))
}

type layoutState struct {
	m          *Molecule
	adj        [][]int
	orders     map[[2]int]BondOrder
	rings      [][]int
	atomRings  [][]int
	ringPlaced []bool
	centers    []Point
	pts        []Point
	placed     []bool
	zig        []float64
	queue      []int
}

func edgeKey(a, b int) [2]int {
	if a > b {
		a, b = b, a
	}
	return [2]int{a, b}
}

func newLayoutState(m *Molecule) *layoutState {
	n := len(m.Atoms)
	s := &layoutState{
		m:         m,
		adj:       make([][]int, n),
		orders:    make(map[[2]int]BondOrder, len(m.Bonds)),
		atomRings: make([][]int, n),
		pts:       make([]Point, n),
		placed:    make([]bool, n),
		zig:       make([]float64, n),
	}
	for _, b := range m.Bonds {
		s.adj[b.From] = append(s.adj[b.From], b.To)
		s.adj[b.To] = append(s.adj[b.To], b.From)
		s.orders[edgeKey(b.From, b.To)] = b.Order
	}
	s.rings = perceiveRings(m, s.adj)
	for r, cyc := range s.rings {
		for _, a := range cyc {
			s.atomRings[a] = append(s.atomRings[a], r)
		}
	}
	s.ringPlaced = make([]bool, len(s.rings))
	s.centers = make([]Point, len(s.rings))
	return s
}

// perceiveRings returns a smallest set of rings: the shortest cycle through
// every bond, shortest first, keeping those independent of the ones already
// chosen until the cycle rank is reached.
func perceiveRings(m *Molecule, adj [][]int) [][]int {
	want := len(m.Bonds) - len(m.Atoms) + components(adj)
	if want <= 0 {
		return nil
	}
	edges := make(map[[2]int]int, len(m.Bonds))
	for i, b := range m.Bonds {
		edges[edgeKey(b.From, b.To)] = i
	}
	words := (len(m.Bonds) + 63) / 64

	type candidate struct {
		atoms []int
		mask  []uint64
	}
	var cands []candidate
	seen := map[string]bool{}
	for _, b := range m.Bonds {
		path := shortestPath(adj, b.From, b.To, edgeKey(b.From, b.To))
		if len(path) < 3 {
			continue
		}
		key := append([]int(nil), path...)
		sort.Ints(key)
		k := fmt.Sprint(key)
		if seen[k] {
			continue
		}
		seen[k] = true
		mask := make([]uint64, words)
		for i := range path {
			e := edges[edgeKey(path[i], path[(i+1)%len(path)])]
			mask[e/64] |= 1 << (uint(e) % 64)
		}
		cands = append(cands, candidate{atoms: path, mask: mask})
	}
	sort.SliceStable(cands, func(i, j int) bool { return len(cands[i].atoms) < len(cands[j].atoms) })

	var basis [][]uint64
	var rings [][]int
	for _, c := range cands {
		if len(rings) == want {
			break
		}
		if v, ok := reduce(basis, c.mask); ok {
			basis = append(basis, v)
			rings = append(rings, c.atoms)
		}
	}
	return rings
}

// reduce eliminates the basis pivots from v over GF(2) and reports whether
// anything is left.
func reduce(basis [][]uint64, v []uint64) ([]uint64, bool) {
	v = append([]uint64(nil), v...)
	for _, row := range basis {
		p := pivot(row)
		if v[p/64]&(1<<(uint(p)%64)) != 0 {
			for i := range v {
				v[i] ^= row[i]
			}
		}
	}
	return v, pivot(v) >= 0
}

func pivot(v []uint64) int {
	for i, w := range v {
		if w != 0 {
			return i*64 + bits.TrailingZeros64(w)
		}
	}
	return -1
}

func components(adj [][]int) int {
	seen := make([]bool, len(adj))
	n := 0
	for s := range adj {
		if seen[s] {
			continue
		}
		n++
		seen[s] = true
		stack := []int{s}
		for len(stack) > 0 {
			a := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			for _, nb := range adj[a] {
				if !seen[nb] {
					seen[nb] = true
					stack = append(stack, nb)
				}
			}
		}
	}
	return n
}

// shortestPath runs a BFS from src to dst that never uses the skipped edge.
func shortestPath(adj [][]int, src, dst int, skip [2]int) []int {
	prev := make([]int, len(adj))
	for i := range prev {
		prev[i] = -1
	}
	prev[src] = src
	queue := []int{src}
	for len(queue) > 0 {
		a := queue[0]
		queue = queue[1:]
		if a == dst {
			break
		}
		for _, nb := range adj[a] {
			if prev[nb] >= 0 || edgeKey(a, nb) == skip {
				continue
			}
			prev[nb] = a
			queue = append(queue, nb)
		}
	}
	if prev[dst] < 0 {
		return nil
	}
	var path []int
	for a := dst; a != src; a = prev[a] {
		path = append(path, a)
	}
	path = append(path, src)
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

func (s *layoutState) aromaticRing(cyc []int) bool {
	for i := range cyc {
		if s.orders[edgeKey(cyc[i], cyc[(i+1)%len(cyc)])] != BondAromatic {
			return false
		}
	}
	return true
}

// placeAll lays out every connected fragment and lines them up left to right.
func (s *layoutState) placeAll() {
	cursor := 0.0
	for start := range s.m.Atoms {
		if s.placed[start] {
			continue
		}
		before := make([]bool, len(s.placed))
		copy(before, s.placed)
		s.placeComponent(start)

		var comp []int
		for i := range s.placed {
			if s.placed[i] && !before[i] {
				comp = append(comp, i)
			}
		}
		pts := make([]Point, len(comp))
		for i, a := range comp {
			pts[i] = s.pts[a]
		}
		minX, minY, maxX, maxY := bounds(pts)
		shift := Point{cursor - minX, -(minY + maxY) / 2}
		for _, a := range comp {
			s.pts[a] = s.pts[a].add(shift)
		}
		for r := range s.rings {
			if s.ringPlaced[r] && !before[s.rings[r][0]] {
				s.centers[r] = s.centers[r].add(shift)
			}
		}
		cursor += maxX - minX + 2
	}
}

func (s *layoutState) placeComponent(start int) {
	s.placed[start] = true
	s.zig[start] = 1
	s.queue = append(s.queue[:0], start)
	if len(s.atomRings[start]) > 0 {
		s.placeRing(s.atomRings[start][0], Point{1, 0})
	}
	for len(s.queue) > 0 {
		a := s.queue[0]
		s.queue = s.queue[1:]
		s.expand(a)
	}
}

func (s *layoutState) expand(a int) {
	for _, r := range s.atomRings[a] {
		if !s.ringPlaced[r] {
			s.placeRing(r, s.outward(a))
		}
	}

	var children []int
	for _, nb := range s.adj[a] {
		if !s.placed[nb] {
			children = append(children, nb)
		}
	}
	if len(children) == 0 {
		return
	}
	angles := s.childAngles(a, children)
	for j, c := range children {
		if s.placed[c] {
			continue
		}
		dir := polar(1, angles[j])
		s.pts[c] = s.pts[a].add(dir)
		s.placed[c] = true
		s.zig[c] = -s.zig[a]
		s.queue = append(s.queue, c)
		for _, r := range s.atomRings[c] {
			if !s.ringPlaced[r] {
				s.placeRing(r, dir)
			}
		}
	}
}

// outward is the preferred direction for new bonds leaving a: away from the
// centres of its placed rings, or continuing away from its placed neighbours.
func (s *layoutState) outward(a int) Point {
	var v Point
	for _, r := range s.atomRings[a] {
		if s.ringPlaced[r] {
			v = v.add(s.pts[a].sub(s.centers[r]))
		}
	}
	if d, ok := v.normalize(); ok {
		return d
	}
	v = Point{}
	for _, nb := range s.adj[a] {
		if s.placed[nb] {
			v = v.add(s.pts[a].sub(s.pts[nb]))
		}
	}
	if d, ok := v.normalize(); ok {
		return d
	}
	return Point{1, 0}
}

func (s *layoutState) inPlacedRing(a int) bool {
	for _, r := range s.atomRings[a] {
		if s.ringPlaced[r] {
			return true
		}
	}
	return false
}

func (s *layoutState) linear(a int) bool {
	for _, nb := range s.adj[a] {
		if s.orders[edgeKey(a, nb)] == BondTriple {
			return true
		}
	}
	return false
}

func (s *layoutState) childAngles(a int, children []int) []float64 {
	theta := s.outward(a).angle()
	k := len(children)
	out := make([]float64, k)
	switch {
	case k == 1 && (s.inPlacedRing(a) || s.linear(a)):
		out[0] = theta
	case k == 1:
		out[0] = theta + s.zig[a]*math.Pi/3
	case k == 2:
		out[0] = theta - math.Pi/3
		out[1] = theta + math.Pi/3
	default:
		for j := range out {
			out[j] = theta - 2*math.Pi/3 + float64(j)*(4*math.Pi/3)/float64(k-1)
		}
	}
	return out
}

// placeRing positions the unplaced members of ring r. dir is the direction
// from the already placed anchor towards the ring centre when only one member
// is placed.
func (s *layoutState) placeRing(r int, dir Point) {
	cyc := s.rings[r]
	n := len(cyc)
	R := ringRadius(n)
	step := 2 * math.Pi / float64(n)

	var placedIdx []int
	for i, a := range cyc {
		if s.placed[a] {
			placedIdx = append(placedIdx, i)
		}
	}

	var center Point
	switch {
	case len(placedIdx) == 1:
		i0 := placedIdx[0]
		p := s.pts[cyc[i0]]
		center = p.add(dir.scale(R))
		a0 := p.sub(center).angle()
		for j := 1; j < n; j++ {
			s.put(cyc[(i0+j)%n], center.add(polar(R, a0+float64(j)*step)))
		}

	case len(placedIdx) == 2 && adjacentInCycle(placedIdx[0], placedIdx[1], n):
		iu, iv := placedIdx[0], placedIdx[1]
		if (iu+1)%n != iv {
			iu, iv = iv, iu
		}
		pu, pv := s.pts[cyc[iu]], s.pts[cyc[iv]]
		mid := pu.add(pv).scale(0.5)
		e := pv.sub(pu)
		nrm, _ := Point{-e.Y, e.X}.normalize()
		if ref, ok := s.sharedEdgeReference(cyc[iu], cyc[iv]); ok && dot(nrm, ref.sub(mid)) > 0 {
			nrm = nrm.scale(-1)
		}
		center = mid.add(nrm.scale(R * math.Cos(math.Pi/float64(n))))
		au := pu.sub(center).angle()
		sgn := 1.0
		if wrapAngle(pv.sub(center).angle()-au) < 0 {
			sgn = -1
		}
		for j := 2; j < n; j++ {
			s.put(cyc[(iu+j)%n], center.add(polar(R, au+sgn*float64(j)*step)))
		}

	default:
		var sum Point
		for _, i := range placedIdx {
			sum = sum.add(s.pts[cyc[i]])
		}
		center = sum.scale(1 / float64(len(placedIdx)))
		last := s.pts[cyc[placedIdx[len(placedIdx)-1]]].sub(center).angle()
		m := 1
		for j := 0; j < n; j++ {
			a := cyc[j]
			if s.placed[a] {
				continue
			}
			s.put(a, center.add(polar(R, last+float64(m)*step)))
			m++
		}
	}
	s.ringPlaced[r] = true
	s.centers[r] = center
}

func (s *layoutState) put(a int, p Point) {
	if s.placed[a] {
		return
	}
	s.pts[a] = p
	s.placed[a] = true
	s.zig[a] = 1
	s.queue = append(s.queue, a)
}

// sharedEdgeReference returns a point on the already drawn side of edge u-v:
// the centre of a placed ring containing both, else the centroid of their
// other placed neighbours.
func (s *layoutState) sharedEdgeReference(u, v int) (Point, bool) {
	for _, r := range s.atomRings[u] {
		if !s.ringPlaced[r] {
			continue
		}
		for _, a := range s.rings[r] {
			if a == v {
				return s.centers[r], true
			}
		}
	}
	var sum Point
	cnt := 0
	for _, x := range []int{u, v} {
		for _, nb := range s.adj[x] {
			if nb != u && nb != v && s.placed[nb] {
				sum = sum.add(s.pts[nb])
				cnt++
			}
		}
	}
	if cnt == 0 {
		return Point{}, false
	}
	return sum.scale(1 / float64(cnt)), true
}

func adjacentInCycle(i, j, n int) bool {
	return (i+1)%n == j || (j+1)%n == i
}

func dot(a, b Point) float64 { return a.X*b.X + a.Y*b.Y }

func wrapAngle(a float64) float64 {
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	for a <= -math.Pi {
		a += 2 * math.Pi
	}
	return a
}
