package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tm-acme-shop/clubhouse-orders-service/internal/apperr"
	"github.com/tm-acme-shop/clubhouse-orders-service/internal/config"
	"github.com/tm-acme-shop/clubhouse-orders-service/internal/models"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type fakeOrderRepo struct {
	mu        sync.Mutex
	orders    map[string]*models.Order
	history   map[string][]models.StatusHistoryEntry
	enqueued  []string
	createErr error
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{
		orders:  make(map[string]*models.Order),
		history: make(map[string][]models.StatusHistoryEntry),
	}
}

func (r *fakeOrderRepo) Create(ctx context.Context, order *models.Order, initial models.StatusHistoryEntry, enqueuePOS bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	cp := *order
	r.orders[order.ID] = &cp
	r.history[order.ID] = append(r.history[order.ID], initial)
	if enqueuePOS {
		r.enqueued = append(r.enqueued, order.ID)
	}
	return nil
}

func (r *fakeOrderRepo) GetByID(ctx context.Context, id string) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (r *fakeOrderRepo) GetByCode(ctx context.Context, code string) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if o.OrderCode == code {
			cp := *o
			return &cp, nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (r *fakeOrderRepo) List(ctx context.Context, filter *models.OrderListFilter) ([]*models.Order, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Order
	for _, o := range r.orders {
		if filter.Status != nil && o.Status != *filter.Status {
			continue
		}
		cp := *o
		out = append(out, &cp)
	}
	return out, len(out), nil
}

func (r *fakeOrderRepo) UpdateStatus(ctx context.Context, id string, from, to models.OrderStatus, entry models.StatusHistoryEntry) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	if o.Status != from {
		return nil, apperr.Conflictf("order status changed concurrently")
	}
	o.Status = to
	o.UpdatedAt = entry.CreatedAt
	if to == models.OrderStatusDelivered {
		at := entry.CreatedAt
		o.DeliveredAt = &at
	}
	r.history[id] = append(r.history[id], entry)
	cp := *o
	return &cp, nil
}

func (r *fakeOrderRepo) AssignDriver(ctx context.Context, id, driverID string) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	o.DriverID = driverID
	cp := *o
	return &cp, nil
}

func (r *fakeOrderRepo) ListHistory(ctx context.Context, orderID string) ([]models.StatusHistoryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.StatusHistoryEntry(nil), r.history[orderID]...), nil
}

func (r *fakeOrderRepo) ListDeliveredBetween(ctx context.Context, from, to time.Time) ([]*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Order
	for _, o := range r.orders {
		if o.Status != models.OrderStatusDelivered || o.DeliveredAt == nil {
			continue
		}
		if o.DeliveredAt.Before(from) || !o.DeliveredAt.Before(to) {
			continue
		}
		cp := *o
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeOrderRepo) Enqueue(ctx context.Context, orderID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enqueued = append(r.enqueued, orderID)
	return nil
}

type fakeCatalog struct {
	items map[string]*models.MenuItem
	err   error
}

func (c *fakeCatalog) GetMenuItems(ctx context.Context, ids []string) (map[string]*models.MenuItem, error) {
	if c.err != nil {
		return nil, c.err
	}
	out := make(map[string]*models.MenuItem)
	for _, id := range ids {
		if item, ok := c.items[id]; ok {
			out[id] = item
		}
	}
	return out, nil
}

type fakeConfigSource struct {
	cfg *models.DeliveryChargeConfig
	err error
}

func (f *fakeConfigSource) Current(ctx context.Context) (*models.DeliveryChargeConfig, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.cfg == nil {
		return nil, apperr.ErrConfigMissing
	}
	return f.cfg, nil
}

type fakeDistance struct {
	est   *models.DistanceEstimate
	err   error
	calls int
}

func (d *fakeDistance) Estimate(ctx context.Context, address string) (*models.DistanceEstimate, error) {
	d.calls++
	return d.est, d.err
}

type fakePublisher struct {
	mu      sync.Mutex
	created []string
	changed []models.OrderStatus
	err     error
}

func (p *fakePublisher) PublishOrderCreated(ctx context.Context, order *models.Order) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.created = append(p.created, order.ID)
	return p.err
}

func (p *fakePublisher) PublishOrderStatusChanged(ctx context.Context, order *models.Order, previous models.OrderStatus) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changed = append(p.changed, order.Status)
	return p.err
}

type fakeNotifier struct{}

func (fakeNotifier) SendOrderConfirmation(ctx context.Context, order *models.Order) error {
	return errors.New("smtp unavailable")
}

func (fakeNotifier) SendStatusChanged(ctx context.Context, order *models.Order, previous models.OrderStatus) error {
	return errors.New("smtp unavailable")
}

type fakeDeliveryConfigRepo struct {
	cfg   *models.DeliveryChargeConfig
	reads int
}

func (r *fakeDeliveryConfigRepo) Get(ctx context.Context) (*models.DeliveryChargeConfig, error) {
	r.reads++
	if r.cfg == nil {
		return nil, apperr.ErrConfigMissing
	}
	cp := *r.cfg
	return &cp, nil
}

func (r *fakeDeliveryConfigRepo) Save(ctx context.Context, cfg *models.DeliveryChargeConfig) (*models.DeliveryChargeConfig, error) {
	var version int64 = 1
	if r.cfg != nil {
		version = r.cfg.Version + 1
	}
	cp := *cfg
	cp.Version = version
	r.cfg = &cp
	out := cp
	return &out, nil
}

type fakeConfigCache struct {
	cfg     *models.DeliveryChargeConfig
	deletes int
}

func (c *fakeConfigCache) Get(ctx context.Context) (*models.DeliveryChargeConfig, error) {
	if c.cfg == nil {
		return nil, nil
	}
	return c.cfg, nil
}

func (c *fakeConfigCache) Set(ctx context.Context, cfg *models.DeliveryChargeConfig) error {
	c.cfg = cfg
	return nil
}

func (c *fakeConfigCache) Delete(ctx context.Context) error {
	c.cfg = nil
	c.deletes++
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		Pricing: config.PricingConfig{TaxRate: dec("0.06"), Currency: "USD"},
		Worker:  config.WorkerConfig{NotifyTimeout: time.Second},
		Features: config.FeatureFlags{
			EnableOrderEvents: true,
			EnablePOSSync:     true,
		},
	}
}

func scenarioConfig() *models.DeliveryChargeConfig {
	return &models.DeliveryChargeConfig{
		RatePerMile:             dec("1.5"),
		RatePerHour:             dec("20"),
		RestaurantFeePercentage: dec("0.1"),
		MinimumCharge:           dec("3"),
		FreeDeliveryThreshold:   dec("50"),
		Version:                 7,
	}
}

func testCatalog() *fakeCatalog {
	return &fakeCatalog{items: map[string]*models.MenuItem{
		"club-sandwich": {
			ID:        "club-sandwich",
			Title:     "Club Sandwich",
			BasePrice: dec("10.00"),
			Available: true,
		},
		"burger": {
			ID:            "burger",
			Title:         "Clubhouse Burger",
			BasePrice:     dec("8.00"),
			HasSpiceLevel: true,
			Available:     true,
			OptionGroups: []models.OptionGroup{{
				ID:          "size",
				Title:       "Size",
				MinRequired: 1,
				OptionType:  models.OptionTypeSingle,
				Choices: []models.Choice{
					{ID: "regular", Label: "Regular"},
					{
						ID:              "double",
						Label:           "Double",
						PriceAdjustment: dec("2.50"),
						NestedGroup: &models.NestedGroup{
							ID:         "cheese",
							Title:      "Cheese",
							OptionType: models.OptionTypeSingle,
							Choices: []models.NestedChoice{
								{ID: "cheddar", Label: "Cheddar", PriceAdjustment: dec("1.00")},
							},
						},
					},
				},
			}},
		},
		"ipa": {
			ID:        "ipa",
			Title:     "Local IPA",
			BasePrice: dec("7.00"),
			IsAlcohol: true,
			Available: true,
		},
		"retired": {
			ID:        "retired",
			Title:     "Old Special",
			BasePrice: dec("5.00"),
			Available: false,
		},
	}}
}
