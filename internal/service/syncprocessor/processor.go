package syncprocessor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nkiryanov/linesync/internal/broker/messages"
	"github.com/nkiryanov/linesync/internal/cache/rediscache"
	"github.com/nkiryanov/linesync/internal/logger"
	"github.com/nkiryanov/linesync/internal/models"
	"github.com/nkiryanov/linesync/internal/service/assembly"
)

const (
	defaultCountWorkers = 10               // Number of workers building orders
	defaultSyncInterval = 30 * time.Second // Interval between sync cycles
	defaultCacheTTL     = 10 * time.Minute // How long pulled batch snapshot is kept
)

type syncClient interface {
	Authenticated() bool
	Authenticate(ctx context.Context, username string, password string) error
	SetProductionLine(line int)
	Add(orders ...models.VehicleOrder)
	Batch() []models.VehicleOrder
	PushBatch(ctx context.Context) (int, error)
	RefreshBatch(ctx context.Context) (int, error)
}

type syncRunSaver interface {
	CreateRun(ctx context.Context, run models.SyncRun) (models.SyncRun, error)
}

type publisher interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

type cache interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

type Config struct {
	Line     int
	Username string
	Password string

	// If not set than defaults are used
	Interval     time.Duration
	CountWorkers int
	CacheTTL     time.Duration

	// Topic for synced orders events, default is messages.TopicOrdersSynced
	Topic string
}

type Option func(p *Processor)

func WithPublisher(pub publisher) Option {
	return func(p *Processor) {
		p.publisher = pub
	}
}

func WithCache(c cache) Option {
	return func(p *Processor) {
		p.cache = c
	}
}

// Processor periodically pushes orders built from production plans of the line
// to the sequencer and pulls back what the sequencer knows.
type Processor struct {
	cfg      Config
	client   syncClient
	runs     syncRunSaver
	producer *Producer
	consumer *Consumer
	logger   logger.Logger

	publisher publisher
	cache     cache

	trigger chan struct{}

	// Serializes cycles, the client is shared with http handlers
	mu     sync.Mutex
	reauth bool
}

func New(cfg Config, client syncClient, vehicles vehicleLister, builder orderBuilder, runs syncRunSaver, l logger.Logger, opts ...Option) *Processor {
	if cfg.Interval == 0 {
		cfg.Interval = defaultSyncInterval
	}
	if cfg.CountWorkers == 0 {
		cfg.CountWorkers = defaultCountWorkers
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = defaultCacheTTL
	}
	if cfg.Topic == "" {
		cfg.Topic = messages.TopicOrdersSynced
	}

	l = l.With("component", "syncprocessor", "line", cfg.Line)

	p := &Processor{
		cfg:    cfg,
		client: client,
		runs:   runs,
		producer: &Producer{
			vehicles: vehicles,
			logger:   l,
		},
		consumer: &Consumer{
			countWorkers: cfg.CountWorkers,
			builder:      builder,
			logger:       l,
		},
		logger:  l,
		trigger: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Trigger asks for sync cycle as soon as possible.
// Returns false if a triggered cycle is pending already.
func (p *Processor) Trigger() bool {
	select {
	case p.trigger <- struct{}{}:
		return true
	default:
		return false
	}
}

// Process runs sync cycles on every tick and trigger until context is done
func (p *Processor) Process(ctx context.Context) <-chan struct{} {
	idleStopped := make(chan struct{})
	p.logger.Debug("Starting sync processor", "interval", p.cfg.Interval, "workers", p.cfg.CountWorkers)

	go func() {
		defer close(idleStopped)

		ticker := time.NewTicker(p.cfg.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				p.logger.Debug("Sync processor stopped by context")
				return
			case <-ticker.C:
			case <-p.trigger:
				p.logger.Debug("Sync triggered")
			}

			if _, err := p.RunOnce(ctx); err != nil {
				p.logger.Error("Sync cycle failed", "error", err.Error())
			}
		}
	}()

	return idleStopped
}

// RunOnce makes one sync cycle and saves its result
func (p *Processor) RunOnce(ctx context.Context) (models.SyncRun, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	run := models.SyncRun{
		ID:        uuid.New(),
		Line:      p.cfg.Line,
		StartedAt: time.Now(),
	}

	err := p.sync(ctx, &run)

	run.FinishedAt = time.Now()
	run.Status = models.SyncRunStatusSucceeded
	if err != nil {
		run.Status = models.SyncRunStatusFailed
		run.Error = err.Error()
	}

	if _, saveErr := p.runs.CreateRun(context.WithoutCancel(ctx), run); saveErr != nil {
		p.logger.Error("Failed to save sync run", "run_id", run.ID, "error", saveErr.Error())
	}

	p.logger.Info("Sync cycle finished", "run_id", run.ID, "status", run.Status, "pushed", run.Pushed, "pulled", run.Pulled)
	return run, err
}

func (p *Processor) sync(ctx context.Context, run *models.SyncRun) error {
	if !p.client.Authenticated() || p.reauth {
		if err := p.client.Authenticate(ctx, p.cfg.Username, p.cfg.Password); err != nil {
			return fmt.Errorf("error while authenticating. Err: %w", err)
		}
		p.reauth = false
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p.client.SetProductionLine(p.cfg.Line)

	vehicles, err := p.producer.Produce(ctx, p.cfg.Line)
	if err != nil {
		return err
	}

	orders, err := p.consumer.Consume(ctx, p.cfg.Line, vehicles)
	if err != nil {
		return err
	}

	p.client.Add(orders...)
	run.Pushed, err = p.client.PushBatch(ctx)
	if err != nil {
		p.checkUnauthorized(err)
		return err
	}
	if run.Pushed > 0 {
		p.publish(ctx, run.ID, orders)
	}

	run.Pulled, err = p.client.RefreshBatch(ctx)
	if err != nil {
		p.checkUnauthorized(err)
		return err
	}

	p.snapshot(ctx, p.client.Batch())
	return nil
}

// Rejected token is replaced by authenticating again on the next cycle
func (p *Processor) checkUnauthorized(err error) {
	var statusErr *assembly.StatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusUnauthorized {
		p.logger.Warn("Access token rejected by sequencer")
		p.reauth = true
	}
}

func (p *Processor) publish(ctx context.Context, runID uuid.UUID, orders []models.VehicleOrder) {
	if p.publisher == nil {
		return
	}

	numbers := make([]string, 0, len(orders))
	for _, o := range orders {
		numbers = append(numbers, o.OrderNumber())
	}

	value, err := json.Marshal(messages.OrdersSynced{
		RunID:        runID,
		Line:         p.cfg.Line,
		PlanningArea: assembly.PlanningArea(p.cfg.Line),
		OrderNumbers: numbers,
		PushedAt:     time.Now().UTC(),
	})
	if err != nil {
		p.logger.Error("Failed to encode synced event", "error", err.Error())
		return
	}

	if err := p.publisher.Publish(ctx, p.cfg.Topic, []byte(strconv.Itoa(p.cfg.Line)), value); err != nil {
		p.logger.Warn("Failed to publish synced event", "run_id", runID, "error", err.Error())
	}
}

func (p *Processor) snapshot(ctx context.Context, batch []models.VehicleOrder) {
	if p.cache == nil {
		return
	}

	value, err := json.Marshal(batch)
	if err != nil {
		p.logger.Error("Failed to encode batch snapshot", "error", err.Error())
		return
	}

	if err := p.cache.Set(ctx, rediscache.BatchKey(p.cfg.Line), value, p.cfg.CacheTTL); err != nil {
		p.logger.Warn("Failed to cache batch snapshot", "error", err.Error())
	}
}
