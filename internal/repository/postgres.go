package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tm-acme-shop/clubhouse-orders-service/internal/apperr"
	"github.com/tm-acme-shop/clubhouse-orders-service/internal/logging"
	"github.com/tm-acme-shop/clubhouse-orders-service/internal/models"
)

const orderColumns = `
	id, order_code, customer_id, guest_name, guest_email, guest_phone,
	status, delivery_type, payment_method, order_type, scheduled_for,
	delivery_address, course_location, items, contains_alcohol,
	distance_miles, travel_time_minutes, subtotal, tax_rate, tax_amount,
	tip_selector, tip_amount, customer_delivery_fee, restaurant_delivery_fee,
	total_delivery_fee, driver_payout, total_amount, delivery_config_version,
	driver_id, pos_order_ref, pos_tender_attached, notes,
	created_at, updated_at, delivered_at`

// PostgresOrderRepository stores orders, their status history and the POS
// outbox rows created with them.
type PostgresOrderRepository struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

// NewPostgresOrderRepository creates a new PostgreSQL order repository.
func NewPostgresOrderRepository(db *sql.DB) *PostgresOrderRepository {
	return &PostgresOrderRepository{
		db:     db,
		logger: logging.Named("order-repository"),
		now:    time.Now,
	}
}

// Create inserts the order, its first history row and, when enqueuePOS is
// set, a pending POS outbox row. Either all rows are written or none.
func (r *PostgresOrderRepository) Create(ctx context.Context, order *models.Order, initial models.StatusHistoryEntry, enqueuePOS bool) (err error) {
	log := logging.FromCtx(ctx, r.logger)

	itemsJSON, err := json.Marshal(order.Items)
	if err != nil {
		return fmt.Errorf("marshal items: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				log.Error("rollback failed", zap.String("order_id", order.ID), zap.Error(rbErr))
			}
		}
	}()

	var guestName, guestEmail, guestPhone *string
	if order.Guest != nil {
		guestName = nullable(order.Guest.Name)
		guestEmail = nullable(order.Guest.Email)
		guestPhone = nullable(order.Guest.Phone)
	}

	query := `
		INSERT INTO orders (` + orderColumns + `
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18,
			$19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31, $32, $33, $34, $35
		)
	`
	_, err = tx.ExecContext(ctx, query,
		order.ID,
		order.OrderCode,
		nullable(order.CustomerID),
		guestName,
		guestEmail,
		guestPhone,
		order.Status,
		order.DeliveryType,
		order.PaymentMethod,
		order.OrderType,
		order.ScheduledFor,
		nullable(order.DeliveryAddress),
		nullable(order.CourseLocation),
		itemsJSON,
		order.ContainsAlcohol,
		order.DistanceMiles,
		order.TravelTimeMinutes,
		order.Subtotal,
		order.TaxRate,
		order.TaxAmount,
		order.TipSelector,
		order.TipAmount,
		order.CustomerDeliveryFee,
		order.RestaurantDeliveryFee,
		order.TotalDeliveryFee,
		order.DriverPayout,
		order.TotalAmount,
		order.DeliveryConfigVersion,
		nullable(order.DriverID),
		nullable(order.POSOrderRef),
		order.POSTenderAttached,
		nullable(order.Notes),
		order.CreatedAt,
		order.UpdatedAt,
		order.DeliveredAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	if err = insertHistory(ctx, tx, initial); err != nil {
		return err
	}

	if enqueuePOS {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO pos_sync_outbox (id, order_id, status, attempts, next_attempt_at, created_at, updated_at)
			VALUES ($1, $2, $3, 0, $4, $4, $4)
		`, uuid.NewString(), order.ID, models.OutboxStatusPending, order.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert pos outbox: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit order: %w", err)
	}

	log.Info("order persisted",
		zap.String("order_id", order.ID),
		zap.String("order_code", order.OrderCode),
		zap.Bool("pos_enqueued", enqueuePOS),
	)
	return nil
}

func insertHistory(ctx context.Context, tx *sql.Tx, entry models.StatusHistoryEntry) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO order_status_history (order_id, status, changed_by, note, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, entry.OrderID, entry.Status, entry.ChangedBy, nullable(entry.Note), entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert status history: %w", err)
	}
	return nil
}

// GetByID retrieves an order by its primary key.
func (r *PostgresOrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	return r.getOne(ctx, row, id)
}

// GetByCode retrieves an order by its display code.
func (r *PostgresOrderRepository) GetByCode(ctx context.Context, code string) (*models.Order, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE order_code = $1`, code)
	return r.getOne(ctx, row, code)
}

func (r *PostgresOrderRepository) getOne(ctx context.Context, row *sql.Row, ref string) (*models.Order, error) {
	order, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		logging.FromCtx(ctx, r.logger).Error("failed to fetch order", zap.String("order_ref", ref), zap.Error(err))
		return nil, err
	}
	return order, nil
}

// List retrieves orders based on filter criteria, newest first.
func (r *PostgresOrderRepository) List(ctx context.Context, filter *models.OrderListFilter) ([]*models.Order, int, error) {
	baseQuery := ` FROM orders WHERE 1=1`
	args := make([]interface{}, 0, 4)

	if filter.CustomerID != "" {
		args = append(args, filter.CustomerID)
		baseQuery += " AND customer_id = $" + strconv.Itoa(len(args))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		baseQuery += " AND status = $" + strconv.Itoa(len(args))
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*)"+baseQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	args = append(args, filter.Limit, filter.Offset)
	selectQuery := "SELECT " + orderColumns + baseQuery +
		" ORDER BY created_at DESC LIMIT $" + strconv.Itoa(len(args)-1) + " OFFSET $" + strconv.Itoa(len(args))

	rows, err := r.db.QueryContext(ctx, selectQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders, err := scanOrders(rows)
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// UpdateStatus moves an order from one status to another and appends the
// history row in the same transaction. It returns apperr.ErrConflict when
// the stored status is no longer from.
func (r *PostgresOrderRepository) UpdateStatus(ctx context.Context, id string, from, to models.OrderStatus, entry models.StatusHistoryEntry) (_ *models.Order, err error) {
	log := logging.FromCtx(ctx, r.logger)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				log.Error("rollback failed", zap.String("order_id", id), zap.Error(rbErr))
			}
		}
	}()

	var deliveredAt *time.Time
	if to == models.OrderStatusDelivered {
		deliveredAt = &entry.CreatedAt
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE orders
		SET status = $1, updated_at = $2, delivered_at = COALESCE($3, delivered_at)
		WHERE id = $4 AND status = $5
	`, to, entry.CreatedAt, deliveredAt, id, from)
	if err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		err = apperr.Conflictf("order %s is no longer %s", id, from)
		return nil, err
	}

	if err = insertHistory(ctx, tx, entry); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit status update: %w", err)
	}

	return r.GetByID(ctx, id)
}

// AssignDriver sets the driver on a non-terminal order.
func (r *PostgresOrderRepository) AssignDriver(ctx context.Context, id, driverID string) (*models.Order, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET driver_id = $1, updated_at = $2
		WHERE id = $3 AND status NOT IN ($4, $5)
	`, driverID, r.now(), id, models.OrderStatusDelivered, models.OrderStatusCancelled)
	if err != nil {
		return nil, fmt.Errorf("assign driver: %w", err)
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return nil, apperr.Conflictf("order %s cannot take a driver", id)
	}
	return r.GetByID(ctx, id)
}

// ListHistory returns the status history of an order, oldest first.
func (r *PostgresOrderRepository) ListHistory(ctx context.Context, orderID string) ([]models.StatusHistoryEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, status, changed_by, note, created_at
		FROM order_status_history
		WHERE order_id = $1
		ORDER BY created_at, id
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("list status history: %w", err)
	}
	defer rows.Close()

	history := make([]models.StatusHistoryEntry, 0)
	for rows.Next() {
		var e models.StatusHistoryEntry
		var note sql.NullString
		if err := rows.Scan(&e.ID, &e.OrderID, &e.Status, &e.ChangedBy, &note, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Note = note.String
		history = append(history, e)
	}
	return history, rows.Err()
}

// ListDeliveredBetween returns orders delivered in [from, to).
func (r *PostgresOrderRepository) ListDeliveredBetween(ctx context.Context, from, to time.Time) ([]*models.Order, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE status = $1 AND delivered_at >= $2 AND delivered_at < $3
		ORDER BY delivered_at
	`, models.OrderStatusDelivered, from, to)
	if err != nil {
		return nil, fmt.Errorf("list delivered orders: %w", err)
	}
	defer rows.Close()

	return scanOrders(rows)
}

// SetPOSOrderRef stores the POS order id. An existing reference is kept.
func (r *PostgresOrderRepository) SetPOSOrderRef(ctx context.Context, id, ref string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET pos_order_ref = $1, updated_at = $2
		WHERE id = $3 AND pos_order_ref IS NULL
	`, ref, r.now(), id)
	if err != nil {
		return fmt.Errorf("set pos order ref: %w", err)
	}
	return nil
}

// MarkPOSTenderAttached records that the cash tender exists in the POS.
func (r *PostgresOrderRepository) MarkPOSTenderAttached(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET pos_tender_attached = TRUE, updated_at = $1
		WHERE id = $2
	`, r.now(), id)
	if err != nil {
		return fmt.Errorf("mark pos tender attached: %w", err)
	}
	return nil
}

func scanOrders(rows *sql.Rows) ([]*models.Order, error) {
	orders := make([]*models.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

func scanOrder(row scanner) (*models.Order, error) {
	var order models.Order
	var itemsJSON []byte
	var customerID, guestName, guestEmail, guestPhone sql.NullString
	var deliveryAddress, courseLocation, driverID, posOrderRef, notes sql.NullString
	var scheduledFor, deliveredAt sql.NullTime

	err := row.Scan(
		&order.ID,
		&order.OrderCode,
		&customerID,
		&guestName,
		&guestEmail,
		&guestPhone,
		&order.Status,
		&order.DeliveryType,
		&order.PaymentMethod,
		&order.OrderType,
		&scheduledFor,
		&deliveryAddress,
		&courseLocation,
		&itemsJSON,
		&order.ContainsAlcohol,
		&order.DistanceMiles,
		&order.TravelTimeMinutes,
		&order.Subtotal,
		&order.TaxRate,
		&order.TaxAmount,
		&order.TipSelector,
		&order.TipAmount,
		&order.CustomerDeliveryFee,
		&order.RestaurantDeliveryFee,
		&order.TotalDeliveryFee,
		&order.DriverPayout,
		&order.TotalAmount,
		&order.DeliveryConfigVersion,
		&driverID,
		&posOrderRef,
		&order.POSTenderAttached,
		&notes,
		&order.CreatedAt,
		&order.UpdatedAt,
		&deliveredAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(itemsJSON, &order.Items); err != nil {
		return nil, fmt.Errorf("unmarshal items: %w", err)
	}

	order.CustomerID = customerID.String
	if guestName.Valid {
		order.Guest = &models.GuestContact{
			Name:  guestName.String,
			Email: guestEmail.String,
			Phone: guestPhone.String,
		}
	}
	order.DeliveryAddress = deliveryAddress.String
	order.CourseLocation = courseLocation.String
	order.DriverID = driverID.String
	order.POSOrderRef = posOrderRef.String
	order.Notes = notes.String
	if scheduledFor.Valid {
		order.ScheduledFor = &scheduledFor.Time
	}
	if deliveredAt.Valid {
		order.DeliveredAt = &deliveredAt.Time
	}

	return &order, nil
}
