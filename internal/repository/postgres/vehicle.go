package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nkiryanov/linesync/internal/apperrors"
	"github.com/nkiryanov/linesync/internal/models"
)

type VehicleRepo struct {
	DB DBTX
}

const createVehicle = `-- name: CreateVehicle
INSERT INTO vehicles (order_number, created_at, series, running_number, is_vehicle)
VALUES ($1, $2, $3, $4, $5)
RETURNING order_number, created_at, series, running_number, is_vehicle
`

func (r *VehicleRepo) CreateVehicle(ctx context.Context, vehicle models.Vehicle) (models.Vehicle, error) {
	rows, _ := r.DB.Query(ctx, createVehicle, vehicle.OrderNumber, time.Now(), vehicle.Series, vehicle.RunningNumber, vehicle.IsVehicle)
	v, err := pgx.CollectOneRow(rows, rowToVehicle)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return v, apperrors.ErrVehicleAlreadyExists
		}

		return v, fmt.Errorf("db error: %w", err)
	}

	return v, nil
}

const getVehicle = `-- name: GetVehicle
SELECT order_number, created_at, series, running_number, is_vehicle
FROM vehicles
WHERE order_number = $1
`

func (r *VehicleRepo) GetVehicle(ctx context.Context, orderNumber string) (models.Vehicle, error) {
	rows, _ := r.DB.Query(ctx, getVehicle, orderNumber)
	v, err := pgx.CollectOneRow(rows, rowToVehicle)

	switch {
	case err == nil:
		return v, nil
	case errors.Is(err, pgx.ErrNoRows):
		return v, apperrors.ErrVehicleNotFound
	default:
		return v, fmt.Errorf("db error: %w", err)
	}
}

const listVehiclesForLine = `-- name: ListVehiclesForLine
SELECT v.order_number, v.created_at, v.series, v.running_number, v.is_vehicle
FROM vehicles v
JOIN plans p ON p.series = v.series
WHERE p.band = $1
ORDER BY v.order_number
`

func (r *VehicleRepo) ListForLine(ctx context.Context, line int) ([]models.Vehicle, error) {
	rows, _ := r.DB.Query(ctx, listVehiclesForLine, line)
	vehicles, err := pgx.CollectRows(rows, rowToVehicle)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return vehicles, nil
}

func rowToVehicle(row pgx.CollectableRow) (models.Vehicle, error) {
	var v models.Vehicle
	err := row.Scan(&v.OrderNumber, &v.CreatedAt, &v.Series, &v.RunningNumber, &v.IsVehicle)
	return v, err
}
