package models

import (
	"time"

	"github.com/google/uuid"
)

// Reference to a part in the production plan: product, decor or option
type Reference struct {
	Code      string
	ShortName string
}

// Row of production plan table.
// Non empty running number opens a vehicle block, rows after it belong to the same vehicle
// until the next non empty running number.
type PlanRow struct {
	Position      int
	RunningNumber string
	PlannedAt     string // yyyyMMddHHmmss, empty if not planned
	Decor         *Reference
	Option        *Reference
}

// Production plan of vehicle series built on a production line (band)
type ProductionPlan struct {
	ID        uuid.UUID
	Series    string
	Band      int
	Product   *Reference
	Rows      []PlanRow
	CreatedAt time.Time
}
