package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"

	"github.com/tm-acme-shop/clubhouse-orders-service/internal/models"
)

// PostgresCatalogRepository reads menu items. Option groups live in a JSONB
// column in catalog order.
type PostgresCatalogRepository struct {
	db *sql.DB
}

func NewPostgresCatalogRepository(db *sql.DB) *PostgresCatalogRepository {
	return &PostgresCatalogRepository{db: db}
}

// GetMenuItems returns the items with the given ids. Unknown ids are absent.
func (r *PostgresCatalogRepository) GetMenuItems(ctx context.Context, ids []string) (map[string]*models.MenuItem, error) {
	items := make(map[string]*models.MenuItem, len(ids))
	if len(ids) == 0 {
		return items, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, base_price, category_id, has_spice_level, is_alcohol,
		       show_in_golf_menu, available, pos_catalog_id, option_groups
		FROM menu_items
		WHERE id = ANY($1)
	`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("query menu items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item models.MenuItem
		var posCatalogID sql.NullString
		var groupsJSON []byte

		if err := rows.Scan(
			&item.ID,
			&item.Title,
			&item.BasePrice,
			&item.CategoryID,
			&item.HasSpiceLevel,
			&item.IsAlcohol,
			&item.ShowInGolfMenu,
			&item.Available,
			&posCatalogID,
			&groupsJSON,
		); err != nil {
			return nil, err
		}

		if err := json.Unmarshal(groupsJSON, &item.OptionGroups); err != nil {
			return nil, fmt.Errorf("unmarshal option groups for %s: %w", item.ID, err)
		}
		item.POSCatalogID = posCatalogID.String
		items[item.ID] = &item
	}
	return items, rows.Err()
}
