package models

import (
	"time"
)

// Vehicle (or other part) registered for production
type Vehicle struct {
	OrderNumber   string
	Series        string
	RunningNumber string
	IsVehicle     bool
	CreatedAt     time.Time
}
