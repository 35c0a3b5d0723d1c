package candidate

// Band is a coarse qualitative bucket used for colouring scores.
type Band string

const (
	BandStrong   Band = "strong"
	BandModerate Band = "moderate"
	BandWeak     Band = "weak"

	BandHigh   Band = "high"
	BandMedium Band = "medium"
	BandLow    Band = "low"
)

// Band thresholds, inclusive.
const (
	StrongAffinity   = 8.0
	ModerateAffinity = 6.5

	HighConfidence   = 0.9
	MediumConfidence = 0.8
)

// AffinityBand buckets a pIC50-like binding affinity.
func AffinityBand(affinity float64) Band {
	switch {
	case affinity >= StrongAffinity:
		return BandStrong
	case affinity >= ModerateAffinity:
		return BandModerate
	default:
		return BandWeak
	}
}

// ConfidenceBand buckets a prediction confidence in [0, 1].
func ConfidenceBand(confidence float64) Band {
	switch {
	case confidence >= HighConfidence:
		return BandHigh
	case confidence >= MediumConfidence:
		return BandMedium
	default:
		return BandLow
	}
}
