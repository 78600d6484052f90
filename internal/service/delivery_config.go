package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/tm-acme-shop/clubhouse-orders-service/internal/logging"
	"github.com/tm-acme-shop/clubhouse-orders-service/internal/models"
)

// DeliveryConfigService reads and updates the delivery charge singleton
// through a short-lived cache snapshot.
type DeliveryConfigService struct {
	repo   DeliveryConfigRepository
	cache  DeliveryConfigCache
	logger *zap.Logger
}

// NewDeliveryConfigService creates a new delivery config service. cache may
// be nil to always read through to the repository.
func NewDeliveryConfigService(repo DeliveryConfigRepository, cache DeliveryConfigCache) *DeliveryConfigService {
	return &DeliveryConfigService{
		repo:   repo,
		cache:  cache,
		logger: logging.Named("delivery-config-service"),
	}
}

// Current returns the config in effect, or apperr.ErrConfigMissing.
func (s *DeliveryConfigService) Current(ctx context.Context) (*models.DeliveryChargeConfig, error) {
	if s.cache != nil {
		if cfg, err := s.cache.Get(ctx); err == nil && cfg != nil {
			return cfg, nil
		}
	}

	cfg, err := s.repo.Get(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cfg); err != nil {
			// Log but don't fail
			logging.FromCtx(ctx, s.logger).Warn("failed to cache delivery config", zap.Error(err))
		}
	}
	return cfg, nil
}

// Update replaces the config and bumps its version.
func (s *DeliveryConfigService) Update(ctx context.Context, req *models.UpdateDeliveryConfigRequest) (*models.DeliveryChargeConfig, error) {
	if err := validateDeliveryConfig(req); err != nil {
		return nil, err
	}

	saved, err := s.repo.Save(ctx, &models.DeliveryChargeConfig{
		RatePerMile:             req.RatePerMile,
		RatePerHour:             req.RatePerHour,
		RestaurantFeePercentage: req.RestaurantFeePercentage,
		MinimumCharge:           req.MinimumCharge,
		FreeDeliveryThreshold:   req.FreeDeliveryThreshold,
		UpdatedBy:               req.UpdatedBy,
	})
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Delete(ctx); err != nil {
			logging.FromCtx(ctx, s.logger).Warn("failed to invalidate delivery config cache", zap.Error(err))
		}
	}

	logging.FromCtx(ctx, s.logger).Info("delivery config updated",
		zap.Int64("version", saved.Version),
		zap.String("updated_by", saved.UpdatedBy),
	)
	return saved, nil
}
