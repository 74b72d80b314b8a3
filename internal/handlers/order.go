package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/nkiryanov/linesync/internal/cache/rediscache"
	"github.com/nkiryanov/linesync/internal/handlers/render"
	"github.com/nkiryanov/linesync/internal/logger"
	"github.com/nkiryanov/linesync/internal/models"
)

const timeFormat = time.RFC3339

type orderLocator interface {
	ProductionLine() (int, bool)
	Batch() []models.VehicleOrder
	Locate(prefix string, order models.VehicleOrder) (int, bool)
}

type snapshotReader interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
}

type OrderHandler struct {
	client    orderLocator
	snapshots snapshotReader
	logger    logger.Logger
}

type PositionRequest struct {
	SeriesPrefix string `json:"seriesPrefix" validate:"required,len=4"`
	OrderNumber  string `json:"orderNumber" validate:"required,len=9"`
}

type PositionResponse struct {
	SeriesPrefix string `json:"seriesPrefix"`
	OrderNumber  string `json:"orderNumber"`
	Position     int    `json:"position"`
}

// snapshots may be nil, then only the line synchronized by this instance is served
func NewOrder(client orderLocator, snapshots snapshotReader, l logger.Logger) *OrderHandler {
	return &OrderHandler{client: client, snapshots: snapshots, logger: l}
}

// List last pulled batch of the line
func (h *OrderHandler) list(w http.ResponseWriter, r *http.Request) {
	line, ok := pathLine(w, r)
	if !ok {
		return
	}

	if h.snapshots != nil {
		data, found, err := h.snapshots.Get(r.Context(), rediscache.BatchKey(line))
		switch {
		case err != nil:
			h.logger.Warn("Failed to read batch snapshot", "line", line, "error", err.Error())
		case found:
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(data)
			return
		}
	}

	current, ok := h.client.ProductionLine()
	if !ok || current != line {
		render.ServiceError(w, "Production line is not synchronized", http.StatusNotFound)
		return
	}

	render.JSON(w, h.client.Batch())
}

// Position of the order within its series in the last pulled batch
func (h *OrderHandler) position(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1024)
	req, err := render.BindAndValidate[PositionRequest](w, r)
	if err != nil {
		return // Error response already written
	}

	order := models.NewVehicleOrder()
	order.SetOrderNumber(req.OrderNumber)

	position, found := h.client.Locate(req.SeriesPrefix, order)
	if !found {
		render.ServiceError(w, "Order is not in series", http.StatusNotFound)
		return
	}

	render.JSON(w, PositionResponse{
		SeriesPrefix: req.SeriesPrefix,
		OrderNumber:  req.OrderNumber,
		Position:     position,
	})
}
