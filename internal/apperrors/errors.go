package apperrors

import (
	"errors"
)

var (
	ErrMissingCredentials   = errors.New("base url, username and password are required")
	ErrNotAuthenticated     = errors.New("client is not authenticated")
	ErrProductionLineNotSet = errors.New("production line is not set")

	ErrPlanNotFound      = errors.New("production plan not found")
	ErrPlanAlreadyExists = errors.New("production plan already exists for series")
	ErrPlanInvalid       = errors.New("production plan is invalid")

	ErrVehicleNotFound      = errors.New("vehicle not found")
	ErrVehicleAlreadyExists = errors.New("vehicle already exists")
)
