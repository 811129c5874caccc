package series

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/HerbHall/runstats/internal/server"
	"github.com/HerbHall/runstats/pkg/runstats"
	"go.uber.org/zap"
)

// maxBodyBytes caps request bodies on the series API.
const maxBodyBytes = 1 << 20

// Handler provides HTTP endpoints for the series manager.
type Handler struct {
	manager *Manager
	logger  *zap.Logger
}

// NewHandler creates a new series Handler.
func NewHandler(manager *Manager, logger *zap.Logger) *Handler {
	return &Handler{manager: manager, logger: logger}
}

// RegisterRoutes registers series HTTP routes on the given mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/series", h.handleList)
	mux.HandleFunc("POST /api/v1/series", h.handleCreate)
	mux.HandleFunc("GET /api/v1/series/{name}", h.handleGet)
	mux.HandleFunc("DELETE /api/v1/series/{name}", h.handleDelete)
	mux.HandleFunc("POST /api/v1/series/{name}/push", h.handlePush)
	mux.HandleFunc("POST /api/v1/series/{name}/merge", h.handleMerge)
	mux.HandleFunc("POST /api/v1/series/{name}/scale", h.handleScale)
	mux.HandleFunc("POST /api/v1/series/{name}/reset", h.handleReset)
	mux.HandleFunc("POST /api/v1/series/{name}/freeze", h.handleFreeze)
	mux.HandleFunc("POST /api/v1/series/{name}/unfreeze", h.handleUnfreeze)
	mux.HandleFunc("GET /api/v1/series/{name}/state", h.handleGetState)
	mux.HandleFunc("PUT /api/v1/series/{name}/state", h.handlePutState)
	mux.HandleFunc("GET /api/v1/series/{name}/history", h.handleHistory)
}

// handleList returns summaries of all series.
//
//	@Summary		List series
//	@Description	Returns the summary of every series, sorted by name.
//	@Tags			series
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{array}	Summary
//	@Router			/series [get]
func (h *Handler) handleList(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.manager.List())
}

// handleCreate registers a new series.
//
//	@Summary		Create series
//	@Description	Creates an empty series of the given kind.
//	@Tags			series
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			body	body		Spec	true	"Series definition"
//	@Success		201		{object}	Summary
//	@Failure		400		{object}	server.Problem
//	@Failure		409		{object}	server.Problem
//	@Router			/series [post]
func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var spec Spec
	if !decodeBody(w, r, &spec) {
		return
	}
	sum, err := h.manager.Create(r.Context(), spec)
	if err != nil {
		h.writeManagerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sum)
}

// handleGet returns the summary of one series.
//
//	@Summary		Get series
//	@Tags			series
//	@Produce		json
//	@Security		BearerAuth
//	@Param			name	path		string	true	"Series name"
//	@Success		200		{object}	Summary
//	@Failure		404		{object}	server.Problem
//	@Router			/series/{name} [get]
func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	sum, err := h.manager.Summary(r.PathValue("name"))
	if err != nil {
		h.writeManagerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// handleDelete removes a series.
//
//	@Summary		Delete series
//	@Tags			series
//	@Security		BearerAuth
//	@Param			name	path	string	true	"Series name"
//	@Success		204
//	@Failure		404	{object}	server.Problem
//	@Router			/series/{name} [delete]
func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.Delete(r.Context(), r.PathValue("name")); err != nil {
		h.writeManagerError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PushRequest carries samples for a push. Values holds univariate samples;
// Samples holds samples of any arity, e.g. [x, y] pairs.
type PushRequest struct {
	Values  []float64   `json:"values,omitempty" example:"1.5,2.5"`
	Samples [][]float64 `json:"samples,omitempty"`
}

// All flattens the request into one sample list.
func (p PushRequest) All() [][]float64 {
	out := make([][]float64, 0, len(p.Values)+len(p.Samples))
	for _, v := range p.Values {
		out = append(out, []float64{v})
	}
	return append(out, p.Samples...)
}

// handlePush appends samples to a series.
//
//	@Summary		Push samples
//	@Description	Appends samples to a series, creating it when auto_create is enabled.
//	@Tags			series
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			name	path		string		true	"Series name"
//	@Param			body	body		PushRequest	true	"Samples"
//	@Success		200		{object}	Summary
//	@Failure		400		{object}	server.Problem
//	@Failure		404		{object}	server.Problem
//	@Router			/series/{name}/push [post]
func (h *Handler) handlePush(w http.ResponseWriter, r *http.Request) {
	var req PushRequest
	if !decodeBody(w, r, &req) {
		return
	}
	samples := req.All()
	if len(samples) == 0 {
		writeError(w, http.StatusBadRequest, "values or samples is required")
		return
	}
	sum, err := h.manager.Push(r.Context(), r.PathValue("name"), samples...)
	if err != nil {
		h.writeManagerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// MergeRequest names the series folded into the path series.
type MergeRequest struct {
	Source string `json:"source" example:"api.latency.eu"`
}

// handleMerge folds another series into this one.
//
//	@Summary		Merge series
//	@Description	Folds the source series into the path series. Both must have the same kind.
//	@Tags			series
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			name	path		string			true	"Destination series"
//	@Param			body	body		MergeRequest	true	"Source series"
//	@Success		200		{object}	Summary
//	@Failure		400		{object}	server.Problem
//	@Failure		404		{object}	server.Problem
//	@Router			/series/{name}/merge [post]
func (h *Handler) handleMerge(w http.ResponseWriter, r *http.Request) {
	var req MergeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Source == "" {
		writeError(w, http.StatusBadRequest, "source is required")
		return
	}
	sum, err := h.manager.Merge(r.Context(), r.PathValue("name"), req.Source)
	if err != nil {
		h.writeManagerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// ScaleRequest carries the weight multiplier.
type ScaleRequest struct {
	Factor *float64 `json:"factor" example:"0.5"`
}

// handleScale multiplies the weight of a series.
//
//	@Summary		Scale series
//	@Tags			series
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			name	path		string			true	"Series name"
//	@Param			body	body		ScaleRequest	true	"Factor"
//	@Success		200		{object}	Summary
//	@Failure		400		{object}	server.Problem
//	@Failure		404		{object}	server.Problem
//	@Router			/series/{name}/scale [post]
func (h *Handler) handleScale(w http.ResponseWriter, r *http.Request) {
	var req ScaleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Factor == nil {
		writeError(w, http.StatusBadRequest, "factor is required")
		return
	}
	sum, err := h.manager.Scale(r.Context(), r.PathValue("name"), *req.Factor)
	if err != nil {
		h.writeManagerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// handleReset clears a series.
//
//	@Summary		Reset series
//	@Tags			series
//	@Produce		json
//	@Security		BearerAuth
//	@Param			name	path		string	true	"Series name"
//	@Success		200		{object}	Summary
//	@Failure		404		{object}	server.Problem
//	@Router			/series/{name}/reset [post]
func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.manager.Reset)
}

// handleFreeze suspends time-based decay of a series.
//
//	@Summary		Freeze series
//	@Tags			series
//	@Produce		json
//	@Security		BearerAuth
//	@Param			name	path		string	true	"Series name"
//	@Success		200		{object}	Summary
//	@Failure		404		{object}	server.Problem
//	@Failure		409		{object}	server.Problem
//	@Router			/series/{name}/freeze [post]
func (h *Handler) handleFreeze(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.manager.Freeze)
}

// handleUnfreeze resumes time-based decay of a series.
//
//	@Summary		Unfreeze series
//	@Tags			series
//	@Produce		json
//	@Security		BearerAuth
//	@Param			name	path		string	true	"Series name"
//	@Success		200		{object}	Summary
//	@Failure		404		{object}	server.Problem
//	@Failure		409		{object}	server.Problem
//	@Router			/series/{name}/unfreeze [post]
func (h *Handler) handleUnfreeze(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.manager.Unfreeze)
}

// handleGetState exports the binary state of a series.
//
//	@Summary		Export state
//	@Description	Returns the kind and base64 binary state of a series.
//	@Tags			series
//	@Produce		json
//	@Security		BearerAuth
//	@Param			name	path		string	true	"Series name"
//	@Success		200		{object}	State
//	@Failure		404		{object}	server.Problem
//	@Router			/series/{name}/state [get]
func (h *Handler) handleGetState(w http.ResponseWriter, r *http.Request) {
	st, err := h.manager.State(r.PathValue("name"))
	if err != nil {
		h.writeManagerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// handlePutState replaces or creates a series from a state blob.
//
//	@Summary		Restore state
//	@Description	Replaces the series with an exported state, creating it if absent.
//	@Tags			series
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			name	path		string	true	"Series name"
//	@Param			body	body		State	true	"Exported state"
//	@Success		200		{object}	Summary
//	@Failure		400		{object}	server.Problem
//	@Router			/series/{name}/state [put]
func (h *Handler) handlePutState(w http.ResponseWriter, r *http.Request) {
	var st State
	if !decodeBody(w, r, &st) {
		return
	}
	sum, err := h.manager.Restore(r.Context(), r.PathValue("name"), st.Kind, st.State)
	if err != nil {
		h.writeManagerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// handleHistory lists archived checkpoints of a series.
//
//	@Summary		Checkpoint history
//	@Tags			series
//	@Produce		json
//	@Security		BearerAuth
//	@Param			name	path	string	true	"Series name"
//	@Param			limit	query	int		false	"Maximum entries"	default(50)
//	@Success		200		{array}	HistoryEntry
//	@Router			/series/{name}/history [get]
func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	entries, err := h.manager.History(r.Context(), name, parseLimit(r, 50))
	if err != nil {
		h.logger.Warn("failed to list checkpoint history", zap.String("series", name), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list checkpoint history")
		return
	}
	if entries == nil {
		entries = []HistoryEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request,
	op func(ctx context.Context, name string) (Summary, error)) {
	sum, err := op(r.Context(), r.PathValue("name"))
	if err != nil {
		h.writeManagerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// writeManagerError maps manager and library errors to problem responses.
func (h *Handler) writeManagerError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusForError(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("series operation failed",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		server.InternalError(w, "internal error", r.URL.Path)
		return
	}
	server.Error(w, status, err.Error(), r.URL.Path)
}

// StatusForError returns the HTTP status for an error returned by Manager.
func StatusForError(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrExists),
		errors.Is(err, ErrLimit),
		errors.Is(err, runstats.ErrNotTimeBased),
		errors.Is(err, runstats.ErrNotFrozen),
		errors.Is(err, runstats.ErrAlreadyFrozen):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidName),
		errors.Is(err, ErrInvalidKind),
		errors.Is(err, ErrKindMismatch),
		errors.Is(err, ErrArity),
		errors.Is(err, runstats.ErrInvalidDecay),
		errors.Is(err, runstats.ErrInvalidDelay),
		errors.Is(err, runstats.ErrStateLength):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// -- helpers --

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	server.Error(w, status, detail, "")
}

func parseLimit(r *http.Request, defaultLimit int) int {
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 && n <= 1000 {
			return n
		}
	}
	return defaultLimit
}
