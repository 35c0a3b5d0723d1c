package handlers

import (
	"net/http"
	"strconv"

	"github.com/turtacn/DTI-Insight/internal/application/board"
	"github.com/turtacn/DTI-Insight/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/DTI-Insight/pkg/errors"
)

// MaxDiagramSide bounds requested diagram dimensions.
const MaxDiagramSide = 2000

// StructureHandler serves single structure diagrams.
type StructureHandler struct {
	svc    board.Service
	logger logging.Logger
}

// NewStructureHandler creates a handler rendering through svc.
func NewStructureHandler(svc board.Service, logger logging.Logger) *StructureHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &StructureHandler{svc: svc, logger: logger}
}

// RenderFailure is the 422 body for a notation that could not be drawn.
type RenderFailure struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Phase   string `json:"phase"`
	Reason  string `json:"reason"`
	SMILES  string `json:"smiles"`
}

// Render handles GET /api/v1/structures/render?smiles=&width=&height=.
func (h *StructureHandler) Render(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	smiles := q.Get("smiles")
	if smiles == "" {
		writeAppError(w, r, h.logger, errors.New(errors.ErrCodeStructureEmpty, "smiles query parameter is required"))
		return
	}
	width, err := dimension(q.Get("width"))
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	height, err := dimension(q.Get("height"))
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	st, err := h.svc.RenderStructure(r.Context(), smiles, width, height)
	if err != nil {
		if st.Reason != "" && r.Context().Err() == nil {
			code := errors.GetCode(err)
			writeJSON(w, http.StatusUnprocessableEntity, RenderFailure{
				Code:    string(code),
				Message: st.Message,
				Phase:   st.Phase,
				Reason:  st.Reason,
				SMILES:  smiles,
			})
			return
		}
		writeAppError(w, r, h.logger, composeError(r.Context(), err))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(st.PNG)))
	w.Header().Set("Cache-Control", "public, max-age=86400")
	if st.Cached {
		w.Header().Set("X-Diagram-Cache", "hit")
	} else {
		w.Header().Set("X-Diagram-Cache", "miss")
	}
	if st.Attempt != "" {
		w.Header().Set("X-Render-Attempt", st.Attempt)
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(st.PNG)
}

// dimension parses an optional positive side length; empty means default.
func dimension(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 || n > MaxDiagramSide {
		return 0, errors.Newf(errors.ErrCodeBadRequest, "dimension %q must be an integer in 1..%d", v, MaxDiagramSide)
	}
	return n, nil
}

//Personal.AI order the ending
