package client

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"time"

	types "github.com/turtacn/DTI-Insight/pkg/types/candidate"
)

// DiagramState is the structure-diagram outcome of one card.
type DiagramState struct {
	Phase     string `json:"phase"`
	Attempt   string `json:"attempt,omitempty"`
	Reason    string `json:"reason,omitempty"`
	Message   string `json:"message,omitempty"`
	Notation  string `json:"notation,omitempty"`
	PNG       []byte `json:"png,omitempty"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Cached    bool   `json:"cached"`
	ObjectKey string `json:"objectKey,omitempty"`
}

// Card is the board entry for one candidate.
type Card struct {
	Index          int              `json:"index"`
	Label          string           `json:"label"`
	Candidate      types.Candidate  `json:"candidate"`
	Rules          types.RuleReport `json:"rules"`
	AffinityBand   string           `json:"affinityBand"`
	ConfidenceBand string           `json:"confidenceBand"`
	Structure      DiagramState     `json:"structure"`
}

// Summary aggregates one board.
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

// Board is a composed candidate board.
type Board struct {
	PassID          string           `json:"passId"`
	CreatedAt       time.Time        `json:"createdAt"`
	Summary         Summary          `json:"summary"`
	Cards           []Card           `json:"cards"`
	Projection      types.Projection `json:"projection"`
	ProteinAnalysis json.RawMessage  `json:"proteinAnalysis,omitempty"`
	Recommendations json.RawMessage  `json:"recommendations,omitempty"`
}

// Evaluation is the Rule-of-Five verdict for one property set.
type Evaluation struct {
	types.RuleReport
	Score int `json:"score"`
}

// ExportResult lists the objects written by a board export. URLs holds
// presigned download links by key.
type ExportResult struct {
	PassID string            `json:"passId"`
	Bucket string            `json:"bucket"`
	Keys   []string          `json:"keys"`
	URLs   map[string]string `json:"urls,omitempty"`
}

// BoardClient composes boards and evaluates candidates.
type BoardClient struct {
	client *Client
}

// ComposeOptions tunes a compose call.
type ComposeOptions struct {
	// SequenceLength is reported in the board summary when positive.
	SequenceLength int
}

// Compose builds a board from an existing prediction response.
func (b *BoardClient) Compose(ctx context.Context, resp types.PredictionResponse, opts *ComposeOptions) (*Board, error) {
	path := "/api/v1/board"
	if opts != nil && opts.SequenceLength > 0 {
		path += "?" + url.Values{"sequenceLength": {strconv.Itoa(opts.SequenceLength)}}.Encode()
	}
	var out Board
	if err := b.client.post(ctx, path, resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Predict asks the server's prediction backend for candidates and returns
// the composed board.
func (b *BoardClient) Predict(ctx context.Context, proteinSequence string) (*Board, error) {
	var out Board
	req := types.PredictionRequest{ProteinSequence: proteinSequence}
	if err := b.client.post(ctx, "/api/v1/predict", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Evaluate runs the Rule-of-Five against one property set.
func (b *BoardClient) Evaluate(ctx context.Context, p types.Properties) (*Evaluation, error) {
	var out Evaluation
	if err := b.client.post(ctx, "/api/v1/rules/evaluate", p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Compare projects candidates into the comparison views.
func (b *BoardClient) Compare(ctx context.Context, cands []types.Candidate) (*types.Projection, error) {
	var out types.Projection
	if err := b.client.post(ctx, "/api/v1/compare", cands, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Export composes a board and uploads its artifacts to the export bucket.
func (b *BoardClient) Export(ctx context.Context, resp types.PredictionResponse) (*ExportResult, error) {
	var out ExportResult
	if err := b.client.post(ctx, "/api/v1/board/export", resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Exported looks up the artifacts of an earlier export of passID.
func (b *BoardClient) Exported(ctx context.Context, passID string) (*ExportResult, error) {
	var out ExportResult
	if err := b.client.get(ctx, "/api/v1/board/export/"+url.PathEscape(passID), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Sample returns the bundled EGFR demo prediction.
func (b *BoardClient) Sample(ctx context.Context) (*types.PredictionResponse, error) {
	var out types.PredictionResponse
	if err := b.client.get(ctx, "/api/v1/samples/egfr", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

//Personal.AI order the ending
