package structure

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// BondOrder is the multiplicity of a bond.
type BondOrder int

const (
	BondSingle   BondOrder = 1
	BondDouble   BondOrder = 2
	BondTriple   BondOrder = 3
	BondAromatic BondOrder = 4
)

// Atom is one parsed atom.
type Atom struct {
	Symbol    string
	Aromatic  bool
	Bracket   bool
	Isotope   int
	Chirality string
	HCount    int
	Charge    int
}

// Bond joins two atoms by index.
type Bond struct {
	From   int
	To     int
	Order  BondOrder
	Stereo rune // '/', '\\' or 0
	Ring   bool // closed through a ring-closure digit
}

// Molecule is the parse tree of a SMILES string: atoms in input order and the
// bonds between them.
type Molecule struct {
	Atoms     []Atom
	Bonds     []Bond
	Fragments int
}

func (m *Molecule) AtomCount() int { return len(m.Atoms) }
func (m *Molecule) BondCount() int { return len(m.Bonds) }

// Degree returns the number of bonds touching atom i.
func (m *Molecule) Degree(i int) int {
	d := 0
	for _, b := range m.Bonds {
		if b.From == i || b.To == i {
			d++
		}
	}
	return d
}

// ParseError reports why and where a SMILES string was rejected.
type ParseError struct {
	Pos int
	Msg string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("smiles: %s at position %d", e.Msg, e.Pos)
}

// elements maps the symbols accepted inside brackets to atomic numbers.
var elements = map[string]int{
	"H": 1, "He": 2, "Li": 3, "Be": 4, "B": 5, "C": 6, "N": 7, "O": 8,
	"F": 9, "Ne": 10, "Na": 11, "Mg": 12, "Al": 13, "Si": 14, "P": 15,
	"S": 16, "Cl": 17, "Ar": 18, "K": 19, "Ca": 20, "Ti": 22, "Cr": 24,
	"Mn": 25, "Fe": 26, "Co": 27, "Ni": 28, "Cu": 29, "Zn": 30, "Ga": 31,
	"Ge": 32, "As": 33, "Se": 34, "Br": 35, "Kr": 36, "Rb": 37, "Sr": 38,
	"Mo": 42, "Ru": 44, "Rh": 45, "Pd": 46, "Ag": 47, "Cd": 48, "Sn": 50,
	"Sb": 51, "Te": 52, "I": 53, "Xe": 54, "Cs": 55, "Ba": 56, "Gd": 64,
	"W": 74, "Re": 75, "Os": 76, "Ir": 77, "Pt": 78, "Au": 79, "Hg": 80,
	"Tl": 81, "Pb": 82, "Bi": 83,
}

// organic is the subset writable without brackets.
var organic = map[string]bool{
	"B": true, "C": true, "N": true, "O": true, "P": true, "S": true,
	"F": true, "Cl": true, "Br": true, "I": true,
}

// aromaticOrganic lists lowercase atoms writable without brackets.
var aromaticOrganic = map[string]bool{
	"b": true, "c": true, "n": true, "o": true, "p": true, "s": true,
}

// aromaticBracket also admits the two-letter aromatic symbols.
var aromaticBracket = map[string]bool{
	"b": true, "c": true, "n": true, "o": true, "p": true, "s": true,
	"se": true, "as": true, "te": true,
}

type pendingBond struct {
	set    bool
	order  BondOrder
	stereo rune
	pos    int
}

type ringOpening struct {
	atom int
	bond pendingBond
	pos  int
}

type smilesParser struct {
	src     []rune
	pos     int
	mol     *Molecule
	prev    int
	pending pendingBond
	branch  []int
	rings   map[int]ringOpening
}

// ParseSMILES parses the organic subset, bracket atoms, bonds, branches, ring
// closures and dot-separated fragments.
func ParseSMILES(smiles string) (*Molecule, error) {
	if strings.TrimSpace(smiles) == "" {
		return nil, &ParseError{Pos: 0, Msg: "empty input"}
	}
	p := &smilesParser{
		src:   []rune(smiles),
		mol:   &Molecule{Fragments: 1},
		prev:  -1,
		rings: make(map[int]ringOpening),
	}
	if err := p.parse(); err != nil {
		return nil, err
	}
	return p.mol, nil
}

func (p *smilesParser) fail(pos int, format string, args ...interface{}) error {
	return &ParseError{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *smilesParser) parse() error {
	for p.pos < len(p.src) {
		ch := p.src[p.pos]
		switch {
		case ch == '(':
			if p.prev < 0 {
				return p.fail(p.pos, "branch without preceding atom")
			}
			if p.pending.set {
				return p.fail(p.pos, "dangling bond before branch")
			}
			p.branch = append(p.branch, p.prev)
			p.pos++

		case ch == ')':
			if len(p.branch) == 0 {
				return p.fail(p.pos, "unbalanced parenthesis")
			}
			if p.pending.set {
				return p.fail(p.pending.pos, "dangling bond")
			}
			p.prev = p.branch[len(p.branch)-1]
			p.branch = p.branch[:len(p.branch)-1]
			p.pos++

		case ch == '-' || ch == '=' || ch == '#' || ch == ':' || ch == '/' || ch == '\\':
			if p.prev < 0 {
				return p.fail(p.pos, "bond without preceding atom")
			}
			if p.pending.set {
				return p.fail(p.pos, "consecutive bond symbols")
			}
			p.pending = pendingBond{set: true, order: bondOrderOf(ch), pos: p.pos}
			if ch == '/' || ch == '\\' {
				p.pending.stereo = ch
			}
			p.pos++

		case ch == '.':
			if p.prev < 0 || p.pending.set {
				return p.fail(p.pos, "misplaced fragment separator")
			}
			if len(p.branch) > 0 {
				return p.fail(p.pos, "fragment separator inside branch")
			}
			p.prev = -1
			p.mol.Fragments++
			p.pos++

		case ch >= '0' && ch <= '9':
			if err := p.ringClosure(int(ch-'0'), p.pos, 1); err != nil {
				return err
			}

		case ch == '%':
			if p.pos+2 >= len(p.src) || !isDigit(p.src[p.pos+1]) || !isDigit(p.src[p.pos+2]) {
				return p.fail(p.pos, "malformed two-digit ring closure")
			}
			n := int(p.src[p.pos+1]-'0')*10 + int(p.src[p.pos+2]-'0')
			if err := p.ringClosure(n, p.pos, 3); err != nil {
				return err
			}

		case ch == '[':
			end := p.pos + 1
			for end < len(p.src) && p.src[end] != ']' {
				if p.src[end] == '[' {
					return p.fail(end, "nested bracket")
				}
				end++
			}
			if end >= len(p.src) {
				return p.fail(p.pos, "unclosed bracket")
			}
			atom, err := parseBracketAtom(string(p.src[p.pos+1:end]))
			if err != nil {
				return p.fail(p.pos, "%v", err)
			}
			p.addAtom(atom)
			p.pos = end + 1

		case ch == '*':
			p.addAtom(Atom{Symbol: "*"})
			p.pos++

		case unicode.IsLetter(ch):
			atom, advance, err := p.organicAtom()
			if err != nil {
				return err
			}
			p.addAtom(atom)
			p.pos += advance

		default:
			return p.fail(p.pos, "unexpected character %q", ch)
		}
	}

	if p.pending.set {
		return p.fail(p.pending.pos, "dangling bond")
	}
	if len(p.branch) > 0 {
		return p.fail(len(p.src), "unbalanced parenthesis")
	}
	if len(p.rings) > 0 {
		first := -1
		for n, open := range p.rings {
			if first < 0 || open.pos < p.rings[first].pos {
				first = n
			}
		}
		return p.fail(p.rings[first].pos, "unclosed ring %d", first)
	}
	if len(p.mol.Atoms) == 0 {
		return p.fail(0, "no atoms")
	}
	return nil
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

func bondOrderOf(ch rune) BondOrder {
	switch ch {
	case '=':
		return BondDouble
	case '#':
		return BondTriple
	case ':':
		return BondAromatic
	default:
		return BondSingle
	}
}

// organicAtom reads an unbracketed atom at the cursor. Two-letter symbols are
// tried first so that "Cl" is chlorine and not carbon followed by "l".
func (p *smilesParser) organicAtom() (Atom, int, error) {
	ch := p.src[p.pos]
	if p.pos+1 < len(p.src) {
		two := string([]rune{ch, p.src[p.pos+1]})
		if organic[two] {
			return Atom{Symbol: two}, 2, nil
		}
	}
	one := string(ch)
	if organic[one] {
		return Atom{Symbol: one}, 1, nil
	}
	if aromaticOrganic[one] {
		return Atom{Symbol: strings.ToUpper(one), Aromatic: true}, 1, nil
	}
	return Atom{}, 0, p.fail(p.pos, "unknown element %q", one)
}

func (p *smilesParser) addAtom(a Atom) {
	idx := len(p.mol.Atoms)
	p.mol.Atoms = append(p.mol.Atoms, a)
	if p.prev >= 0 {
		p.mol.Bonds = append(p.mol.Bonds, Bond{
			From:   p.prev,
			To:     idx,
			Order:  p.resolveOrder(p.pending, p.prev, idx),
			Stereo: p.pending.stereo,
		})
	}
	p.pending = pendingBond{}
	p.prev = idx
}

// resolveOrder applies the implicit bond rule: aromatic between two aromatic
// atoms, single otherwise.
func (p *smilesParser) resolveOrder(b pendingBond, from, to int) BondOrder {
	if b.set {
		return b.order
	}
	if p.mol.Atoms[from].Aromatic && p.mol.Atoms[to].Aromatic {
		return BondAromatic
	}
	return BondSingle
}

func (p *smilesParser) ringClosure(n, pos, width int) error {
	if p.prev < 0 {
		return p.fail(pos, "ring closure without preceding atom")
	}
	open, ok := p.rings[n]
	if !ok {
		p.rings[n] = ringOpening{atom: p.prev, bond: p.pending, pos: pos}
		p.pending = pendingBond{}
		p.pos += width
		return nil
	}

	if open.atom == p.prev {
		return p.fail(pos, "ring %d closes on its own atom", n)
	}
	bond := open.bond
	if p.pending.set {
		if bond.set && bond.order != p.pending.order {
			return p.fail(pos, "conflicting bond orders for ring %d", n)
		}
		bond = p.pending
	}
	for _, b := range p.mol.Bonds {
		if (b.From == open.atom && b.To == p.prev) || (b.From == p.prev && b.To == open.atom) {
			return p.fail(pos, "ring %d duplicates an existing bond", n)
		}
	}
	p.mol.Bonds = append(p.mol.Bonds, Bond{
		From:   open.atom,
		To:     p.prev,
		Order:  p.resolveOrder(bond, open.atom, p.prev),
		Stereo: bond.stereo,
		Ring:   true,
	})
	delete(p.rings, n)
	p.pending = pendingBond{}
	p.pos += width
	return nil
}

// parseBracketAtom parses the content of [...]:
// isotope? symbol chirality? hcount? charge? class?
func parseBracketAtom(content string) (Atom, error) {
	a := Atom{Bracket: true}
	r := []rune(content)
	i := 0

	start := i
	for i < len(r) && isDigit(r[i]) {
		i++
	}
	if i > start {
		a.Isotope, _ = strconv.Atoi(string(r[start:i]))
	}

	if i >= len(r) || !unicode.IsLetter(r[i]) && r[i] != '*' {
		return Atom{}, fmt.Errorf("bracket atom without element")
	}
	switch {
	case r[i] == '*':
		a.Symbol = "*"
		i++
	case unicode.IsLower(r[i]):
		sym := string(r[i])
		if i+1 < len(r) && unicode.IsLower(r[i+1]) && aromaticBracket[string(r[i:i+2])] {
			sym = string(r[i : i+2])
		}
		if !aromaticBracket[sym] {
			return Atom{}, fmt.Errorf("unknown aromatic element %q", sym)
		}
		a.Symbol = strings.ToUpper(sym[:1]) + sym[1:]
		a.Aromatic = true
		i += len(sym)
	default:
		sym := string(r[i])
		if i+1 < len(r) && unicode.IsLower(r[i+1]) {
			if _, ok := elements[string(r[i:i+2])]; ok {
				sym = string(r[i : i+2])
			}
		}
		if _, ok := elements[sym]; !ok {
			return Atom{}, fmt.Errorf("unknown element %q", sym)
		}
		a.Symbol = sym
		i += len([]rune(sym))
	}

	if i < len(r) && r[i] == '@' {
		start := i
		for i < len(r) && (r[i] == '@' || unicode.IsUpper(r[i]) && r[i] != 'H' || isDigit(r[i])) {
			i++
		}
		a.Chirality = string(r[start:i])
	}

	if i < len(r) && r[i] == 'H' {
		i++
		a.HCount = 1
		if i < len(r) && isDigit(r[i]) {
			a.HCount = int(r[i] - '0')
			i++
		}
	}

	if i < len(r) && (r[i] == '+' || r[i] == '-') {
		sign := 1
		if r[i] == '-' {
			sign = -1
		}
		sym := r[i]
		i++
		switch {
		case i < len(r) && isDigit(r[i]):
			start := i
			for i < len(r) && isDigit(r[i]) {
				i++
			}
			n, _ := strconv.Atoi(string(r[start:i]))
			a.Charge = sign * n
		default:
			n := 1
			for i < len(r) && r[i] == sym {
				n++
				i++
			}
			a.Charge = sign * n
		}
	}

	if i < len(r) && r[i] == ':' {
		i++
		start := i
		for i < len(r) && isDigit(r[i]) {
			i++
		}
		if i == start {
			return Atom{}, fmt.Errorf("atom class without number")
		}
	}

	if i != len(r) {
		return Atom{}, fmt.Errorf("unexpected %q in bracket atom", string(r[i:]))
	}
	return a, nil
}
