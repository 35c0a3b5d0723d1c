// Package structure turns SMILES notation into 2D structure diagrams. A
// Renderer drives each presented string through sanitization, a primary and
// at most one fallback parse, and drawing, using a drawing Capability that is
// acquired once per process through a CapabilityHandle.
package structure

import "strings"

// substitution rewrites a digit that is almost certainly a mistyped letter.
type substitution struct {
	old, new string
}

// sanitizeRules is applied in order, each rule over the output of the last.
var sanitizeRules = [...]substitution{
	{"01", "O1"},
	{"=0", "=O"},
	{"(0", "(O"},
	{"0C", "OC"},
}

// Sanitize corrects common zero/oxygen and one/ring-closure confusions. The
// rewrite is lossy: a genuine ring index 0 next to these characters is
// rewritten too. Callers keep the original for a fallback parse.
func Sanitize(smiles string) string {
	out := smiles
	for _, r := range sanitizeRules {
		out = strings.ReplaceAll(out, r.old, r.new)
	}
	return out
}
