package syncprocessor

import (
	"context"
	"fmt"

	"github.com/nkiryanov/linesync/internal/logger"
	"github.com/nkiryanov/linesync/internal/models"
)

type vehicleLister interface {
	ListForLine(ctx context.Context, line int) ([]models.Vehicle, error)
}

type Producer struct {
	vehicles vehicleLister
	logger   logger.Logger
}

// Produce lists vehicles of the line and sends them to returned channel.
// Channel is closed when all vehicles are sent or context is done.
func (p *Producer) Produce(ctx context.Context, line int) (<-chan models.Vehicle, error) {
	vehicles, err := p.vehicles.ListForLine(ctx, line)
	if err != nil {
		return nil, fmt.Errorf("error while listing vehicles. Err: %w", err)
	}

	p.logger.Debug("Vehicles to sync", "line", line, "count", len(vehicles))

	out := make(chan models.Vehicle)
	go func() {
		defer close(out)

		for _, v := range vehicles {
			select {
			case <-ctx.Done():
				p.logger.Debug("Producer stopped by context while sending vehicles")
				return
			case out <- v:
			}
		}
	}()

	return out, nil
}
