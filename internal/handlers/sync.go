package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/nkiryanov/linesync/internal/handlers/render"
	"github.com/nkiryanov/linesync/internal/logger"
	"github.com/nkiryanov/linesync/internal/models"
)

const (
	defaultRunsLimit = 20
	maxRunsLimit     = 100
)

type syncTrigger interface {
	Trigger() bool
}

type runLister interface {
	ListRuns(ctx context.Context, line int, limit int) ([]models.SyncRun, error)
}

type SyncHandler struct {
	processor syncTrigger
	runs      runLister
	logger    logger.Logger
}

type TriggerResponse struct {
	Triggered bool `json:"triggered"`
}

type SyncRunResponse struct {
	ID         string `json:"id"`
	Line       int    `json:"line"`
	Pushed     int    `json:"pushed"`
	Pulled     int    `json:"pulled"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
	StartedAt  string `json:"started_at"`
	FinishedAt string `json:"finished_at"`
}

func NewSync(processor syncTrigger, runs runLister, l logger.Logger) *SyncHandler {
	return &SyncHandler{processor: processor, runs: runs, logger: l}
}

// Ask processor for sync cycle; 'triggered' is false if a cycle is pending already
func (h *SyncHandler) trigger(w http.ResponseWriter, r *http.Request) {
	render.JSONWithStatus(w, TriggerResponse{Triggered: h.processor.Trigger()}, http.StatusAccepted)
}

func (h *SyncHandler) listRuns(w http.ResponseWriter, r *http.Request) {
	line, ok := pathLine(w, r)
	if !ok {
		return
	}

	limit := defaultRunsLimit
	if value := r.URL.Query().Get("limit"); value != "" {
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 || n > maxRunsLimit {
			render.ServiceError(w, "Limit must be between 1 and 100", http.StatusBadRequest)
			return
		}
		limit = n
	}

	runs, err := h.runs.ListRuns(r.Context(), line, limit)
	if err != nil {
		h.logger.Error("Failed to list sync runs", "line", line, "error", err.Error())
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	res := make([]SyncRunResponse, 0, len(runs))
	for _, run := range runs {
		res = append(res, SyncRunResponse{
			ID:         run.ID.String(),
			Line:       run.Line,
			Pushed:     run.Pushed,
			Pulled:     run.Pulled,
			Status:     run.Status,
			Error:      run.Error,
			StartedAt:  run.StartedAt.UTC().Format(timeFormat),
			FinishedAt: run.FinishedAt.UTC().Format(timeFormat),
		})
	}

	render.JSON(w, res)
}

func pathLine(w http.ResponseWriter, r *http.Request) (int, bool) {
	line, err := strconv.Atoi(r.PathValue("line"))
	if err != nil || line < 0 {
		render.ServiceError(w, "Production line must be a non negative number", http.StatusBadRequest)
		return 0, false
	}
	return line, true
}
