package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/nkiryanov/linesync/internal/apperrors"
	"github.com/nkiryanov/linesync/internal/handlers/render"
	"github.com/nkiryanov/linesync/internal/logger"
	"github.com/nkiryanov/linesync/internal/models"
	"github.com/nkiryanov/linesync/internal/repository"
)

type orderBuilder interface {
	BuildForVehicle(ctx context.Context, vehicle models.Vehicle, line int) (models.VehicleOrder, error)
}

type PlanHandler struct {
	storage repository.Storage
	builder orderBuilder
	logger  logger.Logger
}

type ReferenceRequest struct {
	Code      string `json:"code" validate:"required"`
	ShortName string `json:"shortName"`
}

type PlanRowRequest struct {
	Position      int               `json:"position" validate:"gte=0"`
	RunningNumber string            `json:"runningNumber"`
	PlannedAt     string            `json:"plannedAt" validate:"omitempty,plantimestamp"`
	Decor         *ReferenceRequest `json:"decor"`
	Option        *ReferenceRequest `json:"option"`
}

// Vehicle of the plan series, imported together with the plan
type PlanVehicleRequest struct {
	OrderNumber   string `json:"orderNumber" validate:"required,len=9"`
	RunningNumber string `json:"runningNumber" validate:"required"`
	IsVehicle     *bool  `json:"isVehicle"`
}

type PlanRequest struct {
	Series   string               `json:"series" validate:"required,len=4"`
	Band     int                  `json:"band" validate:"gte=0"`
	Product  *ReferenceRequest    `json:"product"`
	Rows     []PlanRowRequest     `json:"rows" validate:"required,min=1,dive"`
	Vehicles []PlanVehicleRequest `json:"vehicles" validate:"dive"`
}

type PlanResponse struct {
	ID        string `json:"id"`
	Series    string `json:"series"`
	Band      int    `json:"band"`
	Rows      int    `json:"rows"`
	Vehicles  int    `json:"vehicles"`
	CreatedAt string `json:"created_at"`
}

type VehicleRequest struct {
	OrderNumber   string `json:"orderNumber" validate:"required,len=9"`
	Series        string `json:"series" validate:"required,len=4"`
	RunningNumber string `json:"runningNumber" validate:"required"`
	IsVehicle     *bool  `json:"isVehicle"`
}

type VehicleResponse struct {
	OrderNumber   string `json:"orderNumber"`
	Series        string `json:"series"`
	RunningNumber string `json:"runningNumber"`
	IsVehicle     bool   `json:"isVehicle"`
	CreatedAt     string `json:"created_at"`
}

func NewPlan(storage repository.Storage, builder orderBuilder, l logger.Logger) *PlanHandler {
	return &PlanHandler{storage: storage, builder: builder, logger: l}
}

func isVehicleOrDefault(v *bool) bool {
	if v == nil {
		return true
	}
	return *v
}

func toReference(r *ReferenceRequest) *models.Reference {
	if r == nil {
		return nil
	}
	return &models.Reference{Code: r.Code, ShortName: r.ShortName}
}

func (h *PlanHandler) createPlan(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	req, err := render.BindAndValidate[PlanRequest](w, r)
	if err != nil {
		return // Error response already written
	}

	plan := models.ProductionPlan{
		Series:  req.Series,
		Band:    req.Band,
		Product: toReference(req.Product),
		Rows:    make([]models.PlanRow, 0, len(req.Rows)),
	}
	for _, row := range req.Rows {
		plan.Rows = append(plan.Rows, models.PlanRow{
			Position:      row.Position,
			RunningNumber: row.RunningNumber,
			PlannedAt:     row.PlannedAt,
			Decor:         toReference(row.Decor),
			Option:        toReference(row.Option),
		})
	}

	vehicles := make([]models.Vehicle, 0, len(req.Vehicles))
	for _, v := range req.Vehicles {
		if models.SeriesPrefix(v.OrderNumber) != req.Series {
			render.ServiceError(w, "Vehicle order number "+v.OrderNumber+" is not of the plan series", http.StatusBadRequest)
			return
		}
		vehicles = append(vehicles, models.Vehicle{
			OrderNumber:   v.OrderNumber,
			Series:        req.Series,
			RunningNumber: v.RunningNumber,
			IsVehicle:     isVehicleOrDefault(v.IsVehicle),
		})
	}

	// Plan and its vehicles are stored all or nothing
	err = h.storage.InTx(r.Context(), func(s repository.Storage) error {
		var err error
		plan, err = s.Plan().CreatePlan(r.Context(), plan)
		if err != nil {
			return err
		}
		for _, v := range vehicles {
			if _, err := s.Vehicle().CreateVehicle(r.Context(), v); err != nil {
				return err
			}
		}
		return nil
	})

	switch {
	case err == nil:
		render.JSONWithStatus(w, PlanResponse{
			ID:        plan.ID.String(),
			Series:    plan.Series,
			Band:      plan.Band,
			Rows:      len(plan.Rows),
			Vehicles:  len(vehicles),
			CreatedAt: plan.CreatedAt.UTC().Format(timeFormat),
		}, http.StatusCreated)
	case errors.Is(err, apperrors.ErrPlanAlreadyExists):
		render.ServiceError(w, "Production plan for series already exists", http.StatusConflict)
	case errors.Is(err, apperrors.ErrPlanInvalid):
		render.ServiceError(w, "Production plan rows must have unique positions", http.StatusBadRequest)
	case errors.Is(err, apperrors.ErrVehicleAlreadyExists):
		render.ServiceError(w, "Vehicle of the plan already exists", http.StatusConflict)
	default:
		h.logger.Error("Failed to create plan", "series", req.Series, "error", err.Error())
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *PlanHandler) createVehicle(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1024)
	req, err := render.BindAndValidate[VehicleRequest](w, r)
	if err != nil {
		return // Error response already written
	}

	v, err := h.storage.Vehicle().CreateVehicle(r.Context(), models.Vehicle{
		OrderNumber:   req.OrderNumber,
		Series:        req.Series,
		RunningNumber: req.RunningNumber,
		IsVehicle:     isVehicleOrDefault(req.IsVehicle),
	})

	switch {
	case err == nil:
		render.JSONWithStatus(w, VehicleResponse{
			OrderNumber:   v.OrderNumber,
			Series:        v.Series,
			RunningNumber: v.RunningNumber,
			IsVehicle:     v.IsVehicle,
			CreatedAt:     v.CreatedAt.UTC().Format(timeFormat),
		}, http.StatusCreated)
	case errors.Is(err, apperrors.ErrVehicleAlreadyExists):
		render.ServiceError(w, "Vehicle already exists", http.StatusConflict)
	default:
		h.logger.Error("Failed to create vehicle", "order_number", req.OrderNumber, "error", err.Error())
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
	}
}

// Build order of the vehicle for the line without sending it anywhere
func (h *PlanHandler) previewOrder(w http.ResponseWriter, r *http.Request) {
	line, err := strconv.Atoi(r.URL.Query().Get("line"))
	if err != nil || line < 0 {
		render.ServiceError(w, "Query parameter 'line' must be a non negative number", http.StatusBadRequest)
		return
	}

	v, err := h.storage.Vehicle().GetVehicle(r.Context(), r.PathValue("orderNumber"))
	switch {
	case err == nil:
	case errors.Is(err, apperrors.ErrVehicleNotFound):
		render.ServiceError(w, "Vehicle not found", http.StatusNotFound)
		return
	default:
		h.logger.Error("Failed to get vehicle", "error", err.Error())
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	order, err := h.builder.BuildForVehicle(r.Context(), v, line)
	switch {
	case err == nil:
		render.JSON(w, order)
	default:
		h.logger.Error("Failed to build order", "order_number", v.OrderNumber, "error", err.Error())
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
	}
}
