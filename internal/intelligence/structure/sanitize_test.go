package structure

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"zero before carbon", "C0C", "COC"},
		{"zero before ring digit", "C1CC01", "C1CCO1"},
		{"double bonded zero", "CC(=0)C", "CC(=O)C"},
		{"branch opening zero", "CC(0)C", "CC(O)C"},
		{"ester", "CC(=0)0C", "CC(=O)OC"},
		{"valid string untouched", "CC(=O)Oc1ccccc1C(=O)O", "CC(=O)Oc1ccccc1C(=O)O"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.in))
		})
	}
}

func TestSanitize_RulesApplyInOrder(t *testing.T) {
	// "(01" is rewritten by the ring-digit rule first, leaving nothing for
	// the branch rule.
	assert.Equal(t, "C(O1)CC1", Sanitize("C(01)CC1"))
}

func TestSanitize_LossyOnGenuineRingZero(t *testing.T) {
	assert.Equal(t, "CO1CC1C0", Sanitize("C01CC1C0"))
}
