package repository

import (
	"context"

	"github.com/nkiryanov/linesync/internal/models"
)

// Production plan repository interface
type PlanRepo interface {
	// Create plan with all its rows
	// If plan for the series exists already has to return apperrors.ErrPlanAlreadyExists
	CreatePlan(ctx context.Context, plan models.ProductionPlan) (models.ProductionPlan, error)

	// Get plan of the series with rows ordered by position
	// If plan not found must return apperrors.ErrPlanNotFound
	GetBySeries(ctx context.Context, series string) (models.ProductionPlan, error)
}

// Vehicle repository interface
type VehicleRepo interface {
	// Register vehicle
	// If vehicle with the order number exists already has to return apperrors.ErrVehicleAlreadyExists
	CreateVehicle(ctx context.Context, vehicle models.Vehicle) (models.Vehicle, error)

	// If vehicle not found must return apperrors.ErrVehicleNotFound
	GetVehicle(ctx context.Context, orderNumber string) (models.Vehicle, error)

	// List vehicles whose series plan is built on the production line, ordered by order number
	ListForLine(ctx context.Context, line int) ([]models.Vehicle, error)
}

// Sync run repository interface
type SyncRunRepo interface {
	CreateRun(ctx context.Context, run models.SyncRun) (models.SyncRun, error)

	// List latest runs of the line, newest first
	ListRuns(ctx context.Context, line int, limit int) ([]models.SyncRun, error)
}

type Storage interface {
	Plan() PlanRepo
	Vehicle() VehicleRepo
	SyncRun() SyncRunRepo

	// Run fn in transaction; commit if fn returns nil, rollback otherwise
	InTx(ctx context.Context, fn func(Storage) error) error
}
