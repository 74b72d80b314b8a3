package messages

import (
	"time"

	"github.com/google/uuid"
)

const TopicOrdersSynced = "linesync.orders.synced"

// OrdersSynced is published after batch of orders is accepted by the sequencer
type OrdersSynced struct {
	RunID        uuid.UUID `json:"runId"`
	Line         int       `json:"line"`
	PlanningArea string    `json:"planningArea"`
	OrderNumbers []string  `json:"orderNumbers"`
	PushedAt     time.Time `json:"pushedAt"`
}
