package segment

import (
	"context"
	"errors"
	"fmt"

	"github.com/nkiryanov/linesync/internal/apperrors"
	"github.com/nkiryanov/linesync/internal/logger"
	"github.com/nkiryanov/linesync/internal/models"
)

type PlanRepo interface {
	GetBySeries(ctx context.Context, series string) (models.ProductionPlan, error)
}

// Builder finds production plan of the vehicle series and builds the vehicle order from it
type Builder struct {
	engine *Engine
	plans  PlanRepo
	logger logger.Logger
}

func NewBuilder(plans PlanRepo, l logger.Logger) *Builder {
	return &Builder{
		engine: NewEngine(l),
		plans:  plans,
		logger: l,
	}
}

// BuildForVehicle returns empty order (only features finalized) for parts that are not vehicles
// and for series without production plan.
func (b *Builder) BuildForVehicle(ctx context.Context, vehicle models.Vehicle, line int) (models.VehicleOrder, error) {
	empty := models.NewVehicleOrder()
	empty.SetFeatures(nil)

	if !vehicle.IsVehicle {
		return empty, nil
	}

	plan, err := b.plans.GetBySeries(ctx, vehicle.Series)
	switch {
	case errors.Is(err, apperrors.ErrPlanNotFound):
		b.logger.Debug("No production plan for series", "series", vehicle.Series, "order", vehicle.OrderNumber)
		return empty, nil
	case err != nil:
		return empty, fmt.Errorf("error while loading production plan. Err: %w", err)
	}

	return b.engine.Build(plan, vehicle, line), nil
}
