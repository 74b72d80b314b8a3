package syncprocessor

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/nkiryanov/linesync/internal/logger"
	"github.com/nkiryanov/linesync/internal/models"
)

type orderBuilder interface {
	BuildForVehicle(ctx context.Context, vehicle models.Vehicle, line int) (models.VehicleOrder, error)
}

type Consumer struct {
	countWorkers int

	builder orderBuilder
	logger  logger.Logger
}

// Consume builds orders of incoming vehicles with several workers.
// Orders without order number (vehicle not found in plan) are dropped.
// Result is ordered by order number.
func (c *Consumer) Consume(ctx context.Context, line int, in <-chan models.Vehicle) ([]models.VehicleOrder, error) {
	var (
		mu     sync.Mutex
		orders []models.VehicleOrder
	)

	g, ctx := errgroup.WithContext(ctx)
	for range c.countWorkers {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()

				case v, ok := <-in:
					if !ok {
						return nil
					}

					order, err := c.builder.BuildForVehicle(ctx, v, line)
					if err != nil {
						return fmt.Errorf("error while building order %s. Err: %w", v.OrderNumber, err)
					}
					if order.OrderNumber() == "" {
						c.logger.Debug("Vehicle not planned on line, skipped", "order_number", v.OrderNumber, "line", line)
						continue
					}

					mu.Lock()
					orders = append(orders, order)
					mu.Unlock()
				}
			}
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	slices.SortFunc(orders, func(a, b models.VehicleOrder) int {
		return strings.Compare(a.OrderNumber(), b.OrderNumber())
	})

	return orders, nil
}
