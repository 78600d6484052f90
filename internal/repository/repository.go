// Package repository implements persistence on PostgreSQL and caching on
// Redis for the order service.
package repository

import (
	"github.com/tm-acme-shop/clubhouse-orders-service/internal/pos"
	"github.com/tm-acme-shop/clubhouse-orders-service/internal/service"
)

var (
	_ service.OrderRepository          = (*PostgresOrderRepository)(nil)
	_ service.OutboxEnqueuer           = (*PostgresOutboxRepository)(nil)
	_ service.CatalogRepository        = (*PostgresCatalogRepository)(nil)
	_ service.DeliveryConfigRepository = (*PostgresDeliveryConfigRepository)(nil)
	_ service.OrderCache               = (*RedisOrderCache)(nil)
	_ service.DeliveryConfigCache      = (*RedisDeliveryConfigCache)(nil)
	_ pos.OrderStore                   = (*PostgresOrderRepository)(nil)
	_ pos.OutboxStore                  = (*PostgresOutboxRepository)(nil)
)

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

// nullable maps the empty string to SQL NULL.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
