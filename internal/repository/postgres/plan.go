package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nkiryanov/linesync/internal/apperrors"
	"github.com/nkiryanov/linesync/internal/models"
)

type PlanRepo struct {
	DB DBTX
}

const createPlan = `-- name: CreatePlan
INSERT INTO plans (id, created_at, series, band, product_code, product_short_name)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, created_at, series, band, product_code, product_short_name
`

var planRowColumns = []string{
	"plan_id", "position", "running_number", "planned_at",
	"decor_code", "decor_short_name", "option_code", "option_short_name",
}

// Create plan and copy its rows in one transaction
func (r *PlanRepo) CreatePlan(ctx context.Context, plan models.ProductionPlan) (p models.ProductionPlan, err error) {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return p, fmt.Errorf("db tx error: %w", err)
	}
	defer func() {
		switch err {
		case nil:
			err = tx.Commit(ctx)
		default:
			_ = tx.Rollback(ctx)
		}
	}()

	productCode, productName := refColumns(plan.Product)
	rows, _ := tx.Query(ctx, createPlan, uuid.New(), time.Now(), plan.Series, plan.Band, productCode, productName)
	p, err = pgx.CollectOneRow(rows, rowToPlan)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return p, apperrors.ErrPlanAlreadyExists
		}
		return p, fmt.Errorf("db error: %w", err)
	}

	_, err = tx.CopyFrom(ctx, pgx.Identifier{"plan_rows"}, planRowColumns, pgx.CopyFromSlice(len(plan.Rows), func(i int) ([]any, error) {
		row := plan.Rows[i]
		decorCode, decorName := refColumns(row.Decor)
		optionCode, optionName := refColumns(row.Option)
		return []any{p.ID, row.Position, row.RunningNumber, row.PlannedAt, decorCode, decorName, optionCode, optionName}, nil
	}))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgerrcode.IsIntegrityConstraintViolation(pgErr.Code) {
			return p, fmt.Errorf("%w: %s", apperrors.ErrPlanInvalid, pgErr.Message)
		}
		return p, fmt.Errorf("db error: %w", err)
	}

	p.Rows = append([]models.PlanRow{}, plan.Rows...)
	return p, nil
}

const getPlanBySeries = `-- name: GetPlanBySeries
SELECT id, created_at, series, band, product_code, product_short_name
FROM plans
WHERE series = $1
`

const listPlanRows = `-- name: ListPlanRows
SELECT position, running_number, planned_at, decor_code, decor_short_name, option_code, option_short_name
FROM plan_rows
WHERE plan_id = $1
ORDER BY position
`

func (r *PlanRepo) GetBySeries(ctx context.Context, series string) (models.ProductionPlan, error) {
	rows, _ := r.DB.Query(ctx, getPlanBySeries, series)
	plan, err := pgx.CollectOneRow(rows, rowToPlan)

	switch {
	case err == nil:
	case errors.Is(err, pgx.ErrNoRows):
		return plan, apperrors.ErrPlanNotFound
	default:
		return plan, fmt.Errorf("db error: %w", err)
	}

	rows, _ = r.DB.Query(ctx, listPlanRows, plan.ID)
	plan.Rows, err = pgx.CollectRows(rows, rowToPlanRow)
	if err != nil {
		return plan, fmt.Errorf("db error: %w", err)
	}

	return plan, nil
}

func refColumns(ref *models.Reference) (code *string, shortName *string) {
	if ref == nil {
		return nil, nil
	}
	return &ref.Code, &ref.ShortName
}

func refFromColumns(code *string, shortName *string) *models.Reference {
	if code == nil {
		return nil
	}

	ref := &models.Reference{Code: *code}
	if shortName != nil {
		ref.ShortName = *shortName
	}
	return ref
}

func rowToPlan(row pgx.CollectableRow) (models.ProductionPlan, error) {
	var (
		p                        models.ProductionPlan
		productCode, productName *string
	)
	err := row.Scan(&p.ID, &p.CreatedAt, &p.Series, &p.Band, &productCode, &productName)
	p.Product = refFromColumns(productCode, productName)
	return p, err
}

func rowToPlanRow(row pgx.CollectableRow) (models.PlanRow, error) {
	var (
		r                      models.PlanRow
		decorCode, decorName   *string
		optionCode, optionName *string
	)
	err := row.Scan(&r.Position, &r.RunningNumber, &r.PlannedAt, &decorCode, &decorName, &optionCode, &optionName)
	r.Decor = refFromColumns(decorCode, decorName)
	r.Option = refFromColumns(optionCode, optionName)
	return r, err
}
