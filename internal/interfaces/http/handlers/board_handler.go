package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"github.com/turtacn/DTI-Insight/internal/application/board"
	"github.com/turtacn/DTI-Insight/internal/application/reporting"
	domain "github.com/turtacn/DTI-Insight/internal/domain/candidate"
	"github.com/turtacn/DTI-Insight/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/DTI-Insight/internal/infrastructure/prediction"
	"github.com/turtacn/DTI-Insight/pkg/errors"
	types "github.com/turtacn/DTI-Insight/pkg/types/candidate"
)

// Predictor fetches candidates for a protein sequence.
type Predictor interface {
	Predict(ctx context.Context, sequence string) (*types.PredictionResponse, error)
}

// BoardExporter uploads a composed board and finds earlier uploads.
type BoardExporter interface {
	Export(ctx context.Context, b *board.Board) (*reporting.ExportResult, error)
	Lookup(ctx context.Context, passID string) (*reporting.ExportResult, error)
}

// BoardHandler serves board composition, rule evaluation and comparison.
type BoardHandler struct {
	svc       board.Service
	predictor Predictor
	exporter  BoardExporter
	logger    logging.Logger
	maxBody   int64
}

// BoardOption configures a BoardHandler.
type BoardOption func(*BoardHandler)

// WithPredictor enables POST /predict.
func WithPredictor(p Predictor) BoardOption { return func(h *BoardHandler) { h.predictor = p } }

// WithExporter enables POST /board/export and GET /board/export/{passId}.
func WithExporter(e BoardExporter) BoardOption { return func(h *BoardHandler) { h.exporter = e } }

func WithLogger(l logging.Logger) BoardOption { return func(h *BoardHandler) { h.logger = l } }

func WithMaxBodySize(n int64) BoardOption { return func(h *BoardHandler) { h.maxBody = n } }

// NewBoardHandler creates a handler backed by svc.
func NewBoardHandler(svc board.Service, opts ...BoardOption) *BoardHandler {
	h := &BoardHandler{svc: svc, logger: logging.NewNopLogger(), maxBody: DefaultMaxBodySize}
	for _, o := range opts {
		o(h)
	}
	return h
}

// PredictRequest is the body of POST /predict.
type PredictRequest struct {
	ProteinSequence string `json:"proteinSequence"`
}

// EvaluateResponse is the body returned by POST /rules/evaluate.
type EvaluateResponse struct {
	types.RuleReport
	Score int `json:"score"`
}

// Compose handles POST /api/v1/board with a PredictionResponse body. The
// optional sequenceLength query parameter is carried into the summary.
func (h *BoardHandler) Compose(w http.ResponseWriter, r *http.Request) {
	var resp types.PredictionResponse
	if err := decodeJSON(w, r, h.maxBody, &resp); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	opts := []board.ComposeOption{board.WithSource("api")}
	if v := r.URL.Query().Get("sequenceLength"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeAppError(w, r, h.logger, errors.Newf(errors.ErrCodeBadRequest, "invalid sequenceLength %q", v))
			return
		}
		opts = append(opts, board.WithSequenceLength(n))
	}

	b, err := h.svc.Compose(r.Context(), resp, opts...)
	if err != nil {
		writeAppError(w, r, h.logger, composeError(r.Context(), err))
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// Predict handles POST /api/v1/predict: it calls the backend and composes
// the returned candidates.
func (h *BoardHandler) Predict(w http.ResponseWriter, r *http.Request) {
	if h.predictor == nil {
		writeAppError(w, r, h.logger, errors.New(errors.ErrCodeNotImplemented, "prediction backend is not configured"))
		return
	}
	var req PredictRequest
	if err := decodeJSON(w, r, h.maxBody, &req); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	seq := strings.TrimSpace(req.ProteinSequence)
	resp, err := h.predictor.Predict(r.Context(), seq)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	b, err := h.svc.Compose(r.Context(), *resp,
		board.WithSource("predict"),
		board.WithSequenceLength(utf8.RuneCountInString(seq)))
	if err != nil {
		writeAppError(w, r, h.logger, composeError(r.Context(), err))
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// Evaluate handles POST /api/v1/rules/evaluate with a Properties body.
func (h *BoardHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	var props types.Properties
	if err := decodeJSON(w, r, h.maxBody, &props); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	if err := props.Validate(); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	e := domain.Evaluate(props)
	writeJSON(w, http.StatusOK, EvaluateResponse{RuleReport: e.Report(), Score: e.Score()})
}

// Compare handles POST /api/v1/compare with a candidate array body.
func (h *BoardHandler) Compare(w http.ResponseWriter, r *http.Request) {
	var cands []types.Candidate
	if err := decodeJSON(w, r, h.maxBody, &cands); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	if err := types.ValidateAll(cands); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, domain.Project(cands))
}

// Export handles POST /api/v1/board/export with a PredictionResponse body.
func (h *BoardHandler) Export(w http.ResponseWriter, r *http.Request) {
	if h.exporter == nil {
		writeAppError(w, r, h.logger, errors.New(errors.ErrCodeServiceUnavailable, "export storage is not configured"))
		return
	}
	var resp types.PredictionResponse
	if err := decodeJSON(w, r, h.maxBody, &resp); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	b, err := h.svc.Compose(r.Context(), resp, board.WithSource("export"))
	if err != nil {
		writeAppError(w, r, h.logger, composeError(r.Context(), err))
		return
	}
	res, err := h.exporter.Export(r.Context(), b)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Exported handles GET /api/v1/board/export/{passId}.
func (h *BoardHandler) Exported(w http.ResponseWriter, r *http.Request) {
	if h.exporter == nil {
		writeAppError(w, r, h.logger, errors.New(errors.ErrCodeServiceUnavailable, "export storage is not configured"))
		return
	}
	res, err := h.exporter.Lookup(r.Context(), chi.URLParam(r, "passId"))
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Sample handles GET /api/v1/samples/egfr.
func (h *BoardHandler) Sample(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, prediction.EGFRSample())
}

// composeError turns an ended request context into a timeout error.
func composeError(ctx context.Context, err error) error {
	if ctx.Err() != nil && (errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)) {
		return errors.Wrap(err, errors.ErrCodeTimeout, "board composition did not finish")
	}
	return err
}

//Personal.AI order the ending
