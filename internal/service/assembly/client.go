package assembly

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/nkiryanov/linesync/internal/apperrors"
	"github.com/nkiryanov/linesync/internal/logger"
	"github.com/nkiryanov/linesync/internal/models"
	"github.com/nkiryanov/linesync/internal/service/auth/tokenmanager"
)

const (
	authenticatePath   = "/api/Users/authenticate"
	ordersPath         = "/api/Orders"
	createOrUpdatePath = "/api/Orders/createorupdate"

	defaultTokenValidity = 10 * time.Second
)

type Transport interface {
	Do(ctx context.Context, method string, path string, token string, body []byte) ([]byte, error)
}

// RefreshFunc returns new token pair when access token is about to expire
type RefreshFunc func(ctx context.Context, t Transport, current models.TokenPair) (models.TokenPair, error)

type Config struct {
	// Access token validity assumed after authentication
	// If not set than default is used
	TokenValidity time.Duration

	// Access token is refreshed when it expires within lead time
	// If not set than token manager default is used
	LeadTime time.Duration

	// Take validity from access token 'exp' claim when it is present
	UseTokenExpiry bool
}

type Option func(c *Client)

// WithRefresh sets strategy used to renew tokens before remote calls
func WithRefresh(fn RefreshFunc) Option {
	return func(c *Client) {
		c.refresh = fn
	}
}

// Client synchronizes vehicle orders of a production line with the sequencer.
//
// Batch and series lists are owned by the client and safe for concurrent use.
// Network calls are made without holding the lock.
type Client struct {
	transport Transport
	cfg       Config
	refresh   RefreshFunc
	logger    logger.Logger

	refreshMu sync.Mutex

	mu      sync.Mutex
	tokens  *tokenmanager.Manager
	line    int
	lineSet bool
	batch   []models.VehicleOrder
	series  []models.VehicleOrder
}

func New(cfg Config, transport Transport, l logger.Logger, opts ...Option) *Client {
	if cfg.TokenValidity == 0 {
		cfg.TokenValidity = defaultTokenValidity
	}

	c := &Client{
		transport: transport,
		cfg:       cfg,
		logger:    l,
		batch:     []models.VehicleOrder{},
		series:    []models.VehicleOrder{},
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

type authenticateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type authenticateResponse struct {
	JWTToken     string `json:"jwtToken"`
	RefreshToken string `json:"refreshToken"`
}

func requestTokens(ctx context.Context, t Transport, username string, password string) (models.TokenPair, error) {
	var pair models.TokenPair

	if username == "" || password == "" {
		return pair, apperrors.ErrMissingCredentials
	}

	body, err := json.Marshal(authenticateRequest{Username: username, Password: password})
	if err != nil {
		return pair, fmt.Errorf("error while encoding credentials. Err: %w", err)
	}

	data, err := t.Do(ctx, http.MethodPost, authenticatePath, "", body)
	if err != nil {
		return pair, fmt.Errorf("error while authenticating. Err: %w", err)
	}

	var resp authenticateResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return pair, fmt.Errorf("error while decoding authentication response. Err: %w", err)
	}
	if resp.JWTToken == "" {
		return pair, fmt.Errorf("authentication response has no access token")
	}

	return models.TokenPair{Access: resp.JWTToken, Refresh: resp.RefreshToken}, nil
}

// ReauthenticateWithCredentials renews tokens by logging in again
func ReauthenticateWithCredentials(username string, password string) RefreshFunc {
	return func(ctx context.Context, t Transport, _ models.TokenPair) (models.TokenPair, error) {
		return requestTokens(ctx, t, username, password)
	}
}

// Authenticate logs in and replaces token state of the client
func (c *Client) Authenticate(ctx context.Context, username string, password string) error {
	pair, err := requestTokens(ctx, c.transport, username, password)
	if err != nil {
		return err
	}

	tokens := tokenmanager.New(pair.Access, pair.Refresh, c.validity(pair.Access))
	if c.cfg.LeadTime > 0 {
		tokens.SetLeadTime(c.cfg.LeadTime)
	}

	// Pending refresh finishes on the manager it started with
	c.refreshMu.Lock()
	c.mu.Lock()
	c.tokens = tokens
	c.mu.Unlock()
	c.refreshMu.Unlock()

	c.logger.Info("Authenticated at sequencer", "valid_for", tokens.Remaining().String())
	return nil
}

func (c *Client) Authenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.tokens != nil
}

func (c *Client) validity(access string) time.Duration {
	if !c.cfg.UseTokenExpiry {
		return c.cfg.TokenValidity
	}

	d, err := tokenmanager.ClaimedValidity(access, time.Now())
	if err != nil {
		c.logger.Debug("Can't read access token expiration, default validity used", "error", err.Error())
		return c.cfg.TokenValidity
	}
	return d
}

// Returns access token, refreshing it first if strategy is configured.
// Tokens are read after refresh lock is taken: they may be replaced while waiting for it
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	c.mu.Lock()
	tokens := c.tokens
	c.mu.Unlock()

	if tokens == nil {
		return "", apperrors.ErrNotAuthenticated
	}

	if !tokens.RefreshRequired() {
		return tokens.AccessToken(), nil
	}

	if c.refresh == nil {
		c.logger.Debug("Access token refresh required, no refresh strategy set", "remaining", tokens.Remaining().String())
		return tokens.AccessToken(), nil
	}

	pair, err := c.refresh(ctx, c.transport, models.TokenPair{Access: tokens.AccessToken(), Refresh: tokens.RefreshToken()})
	if err != nil {
		return "", fmt.Errorf("error while refreshing access token. Err: %w", err)
	}

	tokens.SetAccessToken(pair.Access)
	tokens.SetRefreshToken(pair.Refresh)
	tokens.SetExpiration(c.validity(pair.Access))

	c.logger.Debug("Access token refreshed")
	return pair.Access, nil
}

// SetProductionLine switches line and drops batch and series lists
func (c *Client) SetProductionLine(line int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.line = line
	c.lineSet = true
	c.batch = []models.VehicleOrder{}
	c.series = []models.VehicleOrder{}
}

func (c *Client) ProductionLine() (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.line, c.lineSet
}

func PlanningArea(line int) string {
	return "PlanningArea" + strconv.Itoa(line)
}

// Add queues orders to the batch
func (c *Client) Add(orders ...models.VehicleOrder) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.batch = append(c.batch, orders...)
}

func (c *Client) Batch() []models.VehicleOrder {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]models.VehicleOrder{}, c.batch...)
}

func (c *Client) ClearBatch() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.batch = []models.VehicleOrder{}
}

func (c *Client) Series() []models.VehicleOrder {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]models.VehicleOrder{}, c.series...)
}

type createOrUpdateRequest struct {
	PlanningArea  string                `json:"planningArea"`
	Orders        []models.VehicleOrder `json:"orders"`
	IsTransaction bool                  `json:"isTransaction"`
}

// PushBatch sends the whole batch as one transaction. Empty batch is not sent.
// Batch is kept, so pushing again resubmits it.
func (c *Client) PushBatch(ctx context.Context) (int, error) {
	c.mu.Lock()
	orders := append([]models.VehicleOrder{}, c.batch...)
	line, lineSet := c.line, c.lineSet
	c.mu.Unlock()

	if len(orders) == 0 {
		return 0, nil
	}
	if !lineSet {
		return 0, apperrors.ErrProductionLineNotSet
	}

	token, err := c.accessToken(ctx)
	if err != nil {
		return 0, err
	}

	body, err := json.Marshal(createOrUpdateRequest{
		PlanningArea:  PlanningArea(line),
		Orders:        orders,
		IsTransaction: true,
	})
	if err != nil {
		return 0, fmt.Errorf("error while encoding orders. Err: %w", err)
	}

	if _, err := c.transport.Do(ctx, http.MethodPut, createOrUpdatePath, token, body); err != nil {
		return 0, fmt.Errorf("error while pushing orders. Err: %w", err)
	}

	c.logger.Info("Orders pushed", "planning_area", PlanningArea(line), "count", len(orders))
	return len(orders), nil
}

// PullBatch appends orders of the line known by the sequencer to the batch.
// Entries without string order number are skipped.
func (c *Client) PullBatch(ctx context.Context) (int, error) {
	line, lineSet := c.ProductionLine()
	if !lineSet {
		return 0, apperrors.ErrProductionLineNotSet
	}

	pulled, err := c.pull(ctx, line)
	if err != nil {
		return 0, err
	}

	c.Add(pulled...)
	return len(pulled), nil
}

// RefreshBatch replaces the batch with orders pulled from the sequencer.
// Batch is kept as is until the pull succeeds.
func (c *Client) RefreshBatch(ctx context.Context) (int, error) {
	line, lineSet := c.ProductionLine()
	if !lineSet {
		return 0, apperrors.ErrProductionLineNotSet
	}

	pulled, err := c.pull(ctx, line)
	if err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Line switched while pulling: batch belongs to the new line now
	if c.line != line {
		return 0, nil
	}
	c.batch = pulled
	return len(pulled), nil
}

func (c *Client) pull(ctx context.Context, line int) ([]models.VehicleOrder, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	data, err := c.transport.Do(ctx, http.MethodGet, ordersPath+"?"+PlanningArea(line), token, nil)
	if err != nil {
		return nil, fmt.Errorf("error while pulling orders. Err: %w", err)
	}
	if len(data) == 0 {
		return []models.VehicleOrder{}, nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("error while decoding orders. Err: %w", err)
	}

	pulled := make([]models.VehicleOrder, 0, len(items))
	for _, item := range items {
		var head struct {
			OrderNumber any `json:"orderNumber"`
		}
		if err := json.Unmarshal(item, &head); err != nil {
			continue
		}
		if _, ok := head.OrderNumber.(string); !ok {
			continue
		}

		var order models.VehicleOrder
		if err := json.Unmarshal(item, &order); err != nil {
			continue
		}
		pulled = append(pulled, order)
	}

	if skipped := len(items) - len(pulled); skipped > 0 {
		c.logger.Warn("Malformed orders skipped", "planning_area", PlanningArea(line), "count", skipped)
	}
	c.logger.Info("Orders pulled", "planning_area", PlanningArea(line), "count", len(pulled))
	return pulled, nil
}

// SelectSeries copies batch orders of the series to the series list.
// Prefix of wrong length or empty batch do nothing.
func (c *Client) SelectSeries(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.selectSeries(prefix)
}

func (c *Client) selectSeries(prefix string) {
	if utf8.RuneCountInString(prefix) != models.SeriesNumberLength {
		return
	}

	for _, order := range c.batch {
		if order.SeriesNumber() == prefix {
			c.series = append(c.series, order)
		}
	}
}

// SequencePosition returns 1-based position of the last series order equal to order
func (c *Client) SequencePosition(order models.VehicleOrder) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.sequencePosition(order)
}

func (c *Client) sequencePosition(order models.VehicleOrder) (int, bool) {
	position := 0
	for i, o := range c.series {
		if o.Equal(order) {
			position = i + 1
		}
	}

	return position, position > 0
}

// Locate replaces series list with batch orders of the series and returns position of the order in it
func (c *Client) Locate(prefix string, order models.VehicleOrder) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.series = []models.VehicleOrder{}
	c.selectSeries(prefix)
	return c.sequencePosition(order)
}
