// Package board composes the candidate board: one card per predicted drug
// candidate with its rule report and structure diagram, plus the comparison
// views over the whole set.
package board

import (
	"encoding/json"
	"strconv"
	"time"

	domain "github.com/turtacn/DTI-Insight/internal/domain/candidate"
	types "github.com/turtacn/DTI-Insight/pkg/types/candidate"
)

// DiagramState is the terminal structure state of one card.
type DiagramState struct {
	Phase   string `json:"phase"`
	Attempt string `json:"attempt,omitempty"`
	Reason  string `json:"reason,omitempty"`
	// Message is the user-facing text for Reason.
	Message   string `json:"message,omitempty"`
	Notation  string `json:"notation,omitempty"`
	PNG       []byte `json:"png,omitempty"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Cached    bool   `json:"cached"`
	ObjectKey string `json:"objectKey,omitempty"`
}

// Rendered reports whether the card carries a diagram.
func (d DiagramState) Rendered() bool { return len(d.PNG) > 0 }

// Card is the board entry for one candidate.
type Card struct {
	Index          int              `json:"index"`
	Label          string           `json:"label"`
	Candidate      types.Candidate  `json:"candidate"`
	Rules          types.RuleReport `json:"rules"`
	AffinityBand   domain.Band      `json:"affinityBand"`
	ConfidenceBand domain.Band      `json:"confidenceBand"`
	Structure      DiagramState     `json:"structure"`
}

// Summary aggregates a pass.
type Summary struct {
	Headline       string `json:"headline"`
	CandidateCount int    `json:"candidateCount"`
	SequenceLength int    `json:"sequenceLength,omitempty"`
	Passing        int    `json:"passing"`
	Warning        int    `json:"warning"`
	Failing        int    `json:"failing"`
	Rendered       int    `json:"rendered"`
	RenderFailed   int    `json:"renderFailed"`
}

// Board is the result of one display pass.
type Board struct {
	PassID          string            `json:"passId"`
	CreatedAt       time.Time         `json:"createdAt"`
	Summary         Summary           `json:"summary"`
	Cards           []Card            `json:"cards"`
	Projection      domain.Projection `json:"projection"`
	ProteinAnalysis json.RawMessage   `json:"proteinAnalysis,omitempty"`
	Recommendations json.RawMessage   `json:"recommendations,omitempty"`
}

// Candidates returns the candidates in card order.
func (b *Board) Candidates() []types.Candidate {
	out := make([]types.Candidate, len(b.Cards))
	for i, c := range b.Cards {
		out[i] = c.Candidate
	}
	return out
}

// Headline is the summary line shown above the cards.
func Headline(n int) string {
	return "Found " + strconv.Itoa(n) + " potential drug candidates"
}
