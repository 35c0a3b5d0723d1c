package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/DTI-Insight/internal/application/board"
	"github.com/turtacn/DTI-Insight/internal/application/reporting"
	"github.com/turtacn/DTI-Insight/internal/intelligence/structure"
	"github.com/turtacn/DTI-Insight/pkg/errors"
	types "github.com/turtacn/DTI-Insight/pkg/types/candidate"
)

// --- Mocks ---

type mockPredictor struct{ mock.Mock }

func (m *mockPredictor) Predict(ctx context.Context, sequence string) (*types.PredictionResponse, error) {
	args := m.Called(ctx, sequence)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.PredictionResponse), args.Error(1)
}

type mockExporter struct{ mock.Mock }

func (m *mockExporter) Export(ctx context.Context, b *board.Board) (*reporting.ExportResult, error) {
	args := m.Called(ctx, b)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reporting.ExportResult), args.Error(1)
}

func (m *mockExporter) Lookup(ctx context.Context, passID string) (*reporting.ExportResult, error) {
	args := m.Called(ctx, passID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reporting.ExportResult), args.Error(1)
}

// --- Helpers ---

func newService() board.Service {
	return board.NewService(structure.NewDefaultCapabilityHandle(), board.Config{})
}

func doJSON(t *testing.T, h http.HandlerFunc, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if s, ok := body.(string); ok {
		buf.WriteString(s)
	} else if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	w := httptest.NewRecorder()
	h(w, httptest.NewRequest(method, target, &buf))
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var e ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &e))
	return e
}

var sampleResponse = types.PredictionResponse{
	DrugCandidates: []types.Candidate{
		{Name: "Erlotinib", SMILES: "COCCOc1cc2ncnc(Nc3cccc(C#C)c3)c2cc1OCCOC", BindingAffinity: 8.9, Confidence: 0.91,
			Properties: types.Properties{MolecularWeight: 393.4, LogP: 3.3, HBD: 1, HBA: 7}},
		{Name: "Broken", SMILES: "C1CC", BindingAffinity: 4.2, Confidence: 0.4,
			Properties: types.Properties{MolecularWeight: 610, LogP: 5.6, HBD: 2, HBA: 6}},
	},
}

// --- Board ---

func TestCompose_OK(t *testing.T) {
	h := NewBoardHandler(newService())
	w := doJSON(t, h.Compose, http.MethodPost, "/api/v1/board?sequenceLength=1210", sampleResponse)
	require.Equal(t, http.StatusOK, w.Code)

	var b board.Board
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &b))
	assert.Equal(t, "Found 2 potential drug candidates", b.Summary.Headline)
	assert.Equal(t, 1210, b.Summary.SequenceLength)
	require.Len(t, b.Cards, 2)
	assert.Equal(t, "rendered", b.Cards[0].Structure.Phase)
	assert.Equal(t, "failed", b.Cards[1].Structure.Phase)
	assert.Equal(t, "failing", b.Cards[1].Rules.Classification)
}

func TestCompose_BadInput(t *testing.T) {
	h := NewBoardHandler(newService())

	w := doJSON(t, h.Compose, http.MethodPost, "/api/v1/board", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "request body is required", decodeError(t, w).Message)

	w = doJSON(t, h.Compose, http.MethodPost, "/api/v1/board", "{not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, h.Compose, http.MethodPost, "/api/v1/board?sequenceLength=-1", sampleResponse)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	bad := types.PredictionResponse{DrugCandidates: []types.Candidate{{Name: "", SMILES: "C"}}}
	w = doJSON(t, h.Compose, http.MethodPost, "/api/v1/board", bad)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, string(errors.ErrCodeCandidateInvalid), decodeError(t, w).Code)
}

func TestCompose_BodyTooLarge(t *testing.T) {
	h := NewBoardHandler(newService(), WithMaxBodySize(16))
	w := doJSON(t, h.Compose, http.MethodPost, "/api/v1/board", sampleResponse)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeError(t, w).Message, "exceeds 16 bytes")
}

func TestPredict(t *testing.T) {
	pred := &mockPredictor{}
	pred.On("Predict", mock.Anything, "MRPSGTAG").Return(&sampleResponse, nil)
	h := NewBoardHandler(newService(), WithPredictor(pred))

	w := doJSON(t, h.Predict, http.MethodPost, "/api/v1/predict", PredictRequest{ProteinSequence: "  MRPSGTAG\n"})
	require.Equal(t, http.StatusOK, w.Code)
	var b board.Board
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &b))
	assert.Equal(t, 8, b.Summary.SequenceLength)
	pred.AssertExpectations(t)
}

func TestPredict_EmptySequence(t *testing.T) {
	pred := &mockPredictor{}
	pred.On("Predict", mock.Anything, "").Return(nil,
		errors.New(errors.ErrCodePredictionSequenceEmpty, "Please enter a protein sequence"))
	h := NewBoardHandler(newService(), WithPredictor(pred))

	w := doJSON(t, h.Predict, http.MethodPost, "/api/v1/predict", PredictRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	e := decodeError(t, w)
	assert.Equal(t, "PRED_001", e.Code)
	assert.Equal(t, "Please enter a protein sequence", e.Message)
}

func TestPredict_BackendFailure(t *testing.T) {
	pred := &mockPredictor{}
	pred.On("Predict", mock.Anything, "MRPS").Return(nil,
		errors.New(errors.ErrCodePredictionBackend, "Failed to analyze protein sequence").WithDetail("HTTP 500"))
	h := NewBoardHandler(newService(), WithPredictor(pred))

	w := doJSON(t, h.Predict, http.MethodPost, "/api/v1/predict", PredictRequest{ProteinSequence: "MRPS"})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "HTTP 500", decodeError(t, w).Detail)
}

func TestPredict_NotConfigured(t *testing.T) {
	h := NewBoardHandler(newService())
	w := doJSON(t, h.Predict, http.MethodPost, "/api/v1/predict", PredictRequest{ProteinSequence: "MRPS"})
	assert.Equal(t, http.StatusNotImplemented, w.Code)
}

// --- Rules & comparison ---

func TestEvaluate(t *testing.T) {
	h := NewBoardHandler(newService())
	w := doJSON(t, h.Evaluate, http.MethodPost, "/api/v1/rules/evaluate",
		types.Properties{MolecularWeight: 520, LogP: 5.5, HBD: 2, HBA: 8})
	require.Equal(t, http.StatusOK, w.Code)

	var got EvaluateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, 2, got.ViolationCount)
	assert.Equal(t, 2, got.Score)
	assert.Equal(t, "failing", got.Classification)
	assert.Equal(t, "2 Violations", got.Badge)
	assert.False(t, got.MolecularWeightPass)
	assert.True(t, got.HBDPass)
}

func TestEvaluate_NegativeCounts(t *testing.T) {
	h := NewBoardHandler(newService())
	w := doJSON(t, h.Evaluate, http.MethodPost, "/api/v1/rules/evaluate", `{"molecularWeight":100,"hbd":-1}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "CAND_003", decodeError(t, w).Code)
}

func TestCompare(t *testing.T) {
	h := NewBoardHandler(newService())
	w := doJSON(t, h.Compare, http.MethodPost, "/api/v1/compare", sampleResponse.DrugCandidates)
	require.Equal(t, http.StatusOK, w.Code)

	var raw map[string][]map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
	require.Len(t, raw["affinity"], 2)
	assert.Equal(t, "Candidate 1", raw["affinity"][0]["name"])
	assert.Len(t, raw["radar"], 5)
	assert.Contains(t, raw["radar"][0], "C2")
	assert.Equal(t, "C1", raw["properties"][0]["name"])
}

func TestCompare_EmptyList(t *testing.T) {
	h := NewBoardHandler(newService())
	w := doJSON(t, h.Compare, http.MethodPost, "/api/v1/compare", "[]")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"affinity":[],"properties":[],"radar":[
		{"property":"MW","fullName":"Molecular Weight"},
		{"property":"LogP","fullName":"Lipophilicity"},
		{"property":"HBD","fullName":"H-Bond Donors"},
		{"property":"HBA","fullName":"H-Bond Acceptors"},
		{"property":"pIC50","fullName":"Binding Affinity"}],"rules":[]}`, w.Body.String())
}

// --- Export ---

func TestExport(t *testing.T) {
	exp := &mockExporter{}
	exp.On("Export", mock.Anything, mock.AnythingOfType("*board.Board")).
		Return(&reporting.ExportResult{PassID: "p1", Bucket: "dti-exports", Keys: []string{"boards/p1/board.json"}}, nil)
	h := NewBoardHandler(newService(), WithExporter(exp))

	w := doJSON(t, h.Export, http.MethodPost, "/api/v1/board/export", sampleResponse)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"passId":"p1","bucket":"dti-exports","keys":["boards/p1/board.json"]}`, w.Body.String())
	exp.AssertExpectations(t)
}

func TestExport_UploadFailure(t *testing.T) {
	exp := &mockExporter{}
	exp.On("Export", mock.Anything, mock.Anything).
		Return(nil, errors.Wrap(fmt.Errorf("minio down"), errors.ErrCodeExportUploadFailed, "upload board.json"))
	h := NewBoardHandler(newService(), WithExporter(exp))

	w := doJSON(t, h.Export, http.MethodPost, "/api/v1/board/export", sampleResponse)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "EXP_003", decodeError(t, w).Code)
}

func TestExported(t *testing.T) {
	exp := &mockExporter{}
	exp.On("Lookup", mock.Anything, "p1").Return(&reporting.ExportResult{
		PassID: "p1", Bucket: "dti-exports", Keys: []string{"boards/p1/board.json"},
		URLs: map[string]string{"boards/p1/board.json": "http://minio/dti-exports/boards/p1/board.json?sig=1"},
	}, nil)
	exp.On("Lookup", mock.Anything, "gone").Return(nil, errors.New(errors.ErrCodeNotFound, "no export for pass gone"))
	h := NewBoardHandler(newService(), WithExporter(exp))
	r := chi.NewRouter()
	r.Get("/api/v1/board/export/{passId}", h.Exported)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/board/export/p1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"passId":"p1","bucket":"dti-exports","keys":["boards/p1/board.json"],
		"urls":{"boards/p1/board.json":"http://minio/dti-exports/boards/p1/board.json?sig=1"}}`, w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/board/export/gone", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	exp.AssertExpectations(t)
}

func TestExport_NotConfigured(t *testing.T) {
	h := NewBoardHandler(newService())
	w := doJSON(t, h.Export, http.MethodPost, "/api/v1/board/export", sampleResponse)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestSample(t *testing.T) {
	h := NewBoardHandler(newService())
	w := doJSON(t, h.Sample, http.MethodGet, "/api/v1/samples/egfr", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var s map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &s))
	assert.Equal(t, "EGFR", s["name"])
	assert.True(t, strings.HasPrefix(s["sequence"].(string), "MRPSGTAG"))
}

// --- Structures ---

func TestRender_PNG(t *testing.T) {
	h := NewStructureHandler(newService(), nil)
	w := httptest.NewRecorder()
	h.Render(w, httptest.NewRequest(http.MethodGet, "/api/v1/structures/render?smiles=CCO&width=320&height=240", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, "miss", w.Header().Get("X-Diagram-Cache"))
	assert.Equal(t, "primary", w.Header().Get("X-Render-Attempt"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")))
}

func TestRender_InvalidNotation(t *testing.T) {
	h := NewStructureHandler(newService(), nil)
	w := httptest.NewRecorder()
	h.Render(w, httptest.NewRequest(http.MethodGet, "/api/v1/structures/render?smiles=C(C", nil))

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var f RenderFailure
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &f))
	assert.Equal(t, "failed", f.Phase)
	assert.Equal(t, "invalid notation", f.Reason)
	assert.Equal(t, "Invalid SMILES notation", f.Message)
	assert.Equal(t, "C(C", f.SMILES)
}

func TestRender_BadParams(t *testing.T) {
	h := NewStructureHandler(newService(), nil)
	for _, target := range []string{
		"/api/v1/structures/render",
		"/api/v1/structures/render?smiles=CCO&width=abc",
		"/api/v1/structures/render?smiles=CCO&height=99999",
	} {
		w := httptest.NewRecorder()
		h.Render(w, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusBadRequest, w.Code, target)
	}
}

func TestWriteAppError_MasksInternal(t *testing.T) {
	w := httptest.NewRecorder()
	writeAppError(w, httptest.NewRequest(http.MethodGet, "/", nil), nil, fmt.Errorf("secret db password"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	e := decodeError(t, w)
	assert.Equal(t, "COMMON_001", e.Code)
	assert.Equal(t, "internal server error", e.Message)
}
