package segment

import (
	"github.com/nkiryanov/linesync/internal/logger"
	"github.com/nkiryanov/linesync/internal/models"
)

const (
	PlanLocation = "Station1"
	PlanDateType = "PLAN"
)

// Engine builds vehicle order from the production plan.
type Engine struct {
	logger logger.Logger
}

func NewEngine(l logger.Logger) *Engine {
	return &Engine{logger: l}
}

// Build walks plan rows once and collects the block of rows that belongs to the vehicle.
//
// The block starts at the row whose running number equals vehicle's running number and ends
// at the next row with any other non empty running number. Decor code is taken from the
// block's first row only, option codes from every row of the block.
// If the running number appears several times, features come from the last block
// while planned dates of every block are kept.
//
// Plan of another production line gives empty order.
func (e *Engine) Build(plan models.ProductionPlan, vehicle models.Vehicle, line int) models.VehicleOrder {
	order := models.NewVehicleOrder()

	if plan.Band != line {
		return order
	}

	var (
		inBlock  bool
		features []string
	)

	for _, row := range plan.Rows {
		if row.RunningNumber != "" {
			inBlock = row.RunningNumber == vehicle.RunningNumber
			if inBlock {
				features = []string{}
			}
		}

		if !inBlock {
			continue
		}

		if row.RunningNumber != "" {
			e.openBlock(&order, plan, row, vehicle)
			if row.Decor != nil {
				features = append(features, row.Decor.Code)
			}
		}

		if row.Option != nil {
			features = append(features, row.Option.Code)
		}
	}

	order.SetFeatures(features)

	return order
}

func (e *Engine) openBlock(order *models.VehicleOrder, plan models.ProductionPlan, row models.PlanRow, vehicle models.Vehicle) {
	order.SetOrderNumber(vehicle.OrderNumber)

	if plan.Product != nil {
		order.Model = plan.Product.ShortName
		order.Description = plan.Product.ShortName
	}

	if row.PlannedAt == "" {
		return
	}

	date, err := ConvertTimestamp(row.PlannedAt)
	if err != nil {
		e.logger.Warn("Planned date skipped", "series", plan.Series, "row", row.Position, "error", err.Error())
		return
	}
	order.AddDate(date, PlanLocation, PlanDateType)
}
