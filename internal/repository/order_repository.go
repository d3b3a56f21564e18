package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"stockforge/internal/models"
)

// Ошибки репозитория ордеров
var (
	ErrOrderNotFound = errors.New("order not found")
)

// OrderRepository - работа с таблицей orders (durable order store)
//
// Таблица служит и журналом (терминальные ордера остаются для
// аудита/истории), и открытым индексом: ListOpen выбирает строго
// нетерминальные статусы - ровно то множество, которое гидратор
// реплеит при старте.
type OrderRepository struct {
	db *sql.DB
}

// NewOrderRepository создает новый экземпляр репозитория
func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create сохраняет новый ордер.
//
// Вызывается строго ДО передачи ордера в движок (persist-then-submit):
// упавший между записью и submit процесс самовосстанавливается
// гидрацией, обратный порядок оставил бы в движке state, который
// восстановить уже нельзя.
func (r *OrderRepository) Create(order *models.Order) error {
	query := `
		INSERT INTO orders (id, owner_id, symbol, side, kind, price, quantity, filled_quantity, fee, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now()
	}

	_, err := r.db.Exec(
		query,
		order.ID,
		order.OwnerID,
		order.Symbol,
		order.Side,
		order.Kind,
		order.Price,
		order.Quantity,
		order.FilledQuantity,
		order.Fee,
		order.Status,
		order.CreatedAt,
	)
	return err
}

// GetByID возвращает ордер по ID
func (r *OrderRepository) GetByID(id string) (*models.Order, error) {
	query := `
		SELECT id, owner_id, symbol, side, kind, price, quantity, filled_quantity, fee, status, created_at
		FROM orders
		WHERE id = $1`

	order := &models.Order{}
	err := r.db.QueryRow(query, id).Scan(
		&order.ID,
		&order.OwnerID,
		&order.Symbol,
		&order.Side,
		&order.Kind,
		&order.Price,
		&order.Quantity,
		&order.FilledQuantity,
		&order.Fee,
		&order.Status,
		&order.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	return order, nil
}

// GetByOwner возвращает последние ордера пользователя
func (r *OrderRepository) GetByOwner(ownerID string, limit int) ([]*models.Order, error) {
	query := `
		SELECT id, owner_id, symbol, side, kind, price, quantity, filled_quantity, fee, status, created_at
		FROM orders
		WHERE owner_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.db.Query(query, ownerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanOrders(rows)
}

// ListOpen возвращает все нетерминальные ордера в порядке прихода.
//
// Используется гидратором восстановления: множество отражает
// состояние стакана на момент последней консистентной записи.
func (r *OrderRepository) ListOpen(ctx context.Context) ([]*models.Order, error) {
	query := `
		SELECT id, owner_id, symbol, side, kind, price, quantity, filled_quantity, fee, status, created_at
		FROM orders
		WHERE status IN ($1, $2)
		ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, models.StatusPending, models.StatusPartial)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanOrders(rows)
}

// UpdateFill обновляет состояние исполнения ордера
func (r *OrderRepository) UpdateFill(id string, filled int64, status models.Status) error {
	query := `
		UPDATE orders
		SET filled_quantity = $1, status = $2
		WHERE id = $3`

	result, err := r.db.Exec(query, filled, status, id)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrOrderNotFound
	}

	return nil
}

// MarkCanceled переводит ордер в терминальный статус CANCELED.
// Статусный переход исключает ордер из открытого индекса (ListOpen).
func (r *OrderRepository) MarkCanceled(id string) error {
	query := `
		UPDATE orders
		SET status = $1
		WHERE id = $2 AND status IN ($3, $4)`

	result, err := r.db.Exec(query, models.StatusCanceled, id, models.StatusPending, models.StatusPartial)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrOrderNotFound
	}

	return nil
}

// CountOpen возвращает количество открытых ордеров
func (r *OrderRepository) CountOpen() (int, error) {
	query := `SELECT COUNT(*) FROM orders WHERE status IN ($1, $2)`

	var count int
	err := r.db.QueryRow(query, models.StatusPending, models.StatusPartial).Scan(&count)
	if err != nil {
		return 0, err
	}

	return count, nil
}

// scanOrders читает множество строк в слайс ордеров
func scanOrders(rows *sql.Rows) ([]*models.Order, error) {
	var orders []*models.Order
	for rows.Next() {
		order := &models.Order{}
		err := rows.Scan(
			&order.ID,
			&order.OwnerID,
			&order.Symbol,
			&order.Side,
			&order.Kind,
			&order.Price,
			&order.Quantity,
			&order.FilledQuantity,
			&order.Fee,
			&order.Status,
			&order.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return orders, nil
}
