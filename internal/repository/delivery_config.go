package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tm-acme-shop/clubhouse-orders-service/internal/apperr"
	"github.com/tm-acme-shop/clubhouse-orders-service/internal/models"
)

// PostgresDeliveryConfigRepository stores the delivery charge singleton in a
// one-row table.
type PostgresDeliveryConfigRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewPostgresDeliveryConfigRepository(db *sql.DB) *PostgresDeliveryConfigRepository {
	return &PostgresDeliveryConfigRepository{db: db, now: time.Now}
}

func (r *PostgresDeliveryConfigRepository) Get(ctx context.Context) (*models.DeliveryChargeConfig, error) {
	var cfg models.DeliveryChargeConfig
	var updatedBy sql.NullString

	err := r.db.QueryRowContext(ctx, `
		SELECT rate_per_mile, rate_per_hour, restaurant_fee_percentage, minimum_charge,
		       free_delivery_threshold, version, updated_by, updated_at
		FROM delivery_charge_config
		WHERE id = 1
	`).Scan(
		&cfg.RatePerMile,
		&cfg.RatePerHour,
		&cfg.RestaurantFeePercentage,
		&cfg.MinimumCharge,
		&cfg.FreeDeliveryThreshold,
		&cfg.Version,
		&updatedBy,
		&cfg.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrConfigMissing
	}
	if err != nil {
		return nil, fmt.Errorf("get delivery config: %w", err)
	}

	cfg.UpdatedBy = updatedBy.String
	return &cfg, nil
}

// Save upserts the singleton and increments its version.
func (r *PostgresDeliveryConfigRepository) Save(ctx context.Context, cfg *models.DeliveryChargeConfig) (*models.DeliveryChargeConfig, error) {
	saved := *cfg

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO delivery_charge_config (
			id, rate_per_mile, rate_per_hour, restaurant_fee_percentage, minimum_charge,
			free_delivery_threshold, version, updated_by, updated_at
		) VALUES (1, $1, $2, $3, $4, $5, 1, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			rate_per_mile = EXCLUDED.rate_per_mile,
			rate_per_hour = EXCLUDED.rate_per_hour,
			restaurant_fee_percentage = EXCLUDED.restaurant_fee_percentage,
			minimum_charge = EXCLUDED.minimum_charge,
			free_delivery_threshold = EXCLUDED.free_delivery_threshold,
			version = delivery_charge_config.version + 1,
			updated_by = EXCLUDED.updated_by,
			updated_at = EXCLUDED.updated_at
		RETURNING version, updated_at
	`,
		cfg.RatePerMile,
		cfg.RatePerHour,
		cfg.RestaurantFeePercentage,
		cfg.MinimumCharge,
		cfg.FreeDeliveryThreshold,
		nullable(cfg.UpdatedBy),
		r.now(),
	).Scan(&saved.Version, &saved.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("save delivery config: %w", err)
	}
	return &saved, nil
}
