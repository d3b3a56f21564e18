package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"stockforge/internal/models"
)

// TradeRepository - журнал сделок и атомарное применение расчетов
type TradeRepository struct {
	db *sql.DB
}

// NewTradeRepository создает новый экземпляр репозитория
func NewTradeRepository(db *sql.DB) *TradeRepository {
	return &TradeRepository{db: db}
}

// ApplyTrade атомарно применяет все эффекты одной сделки:
// - запись сделки в журнал
// - бумаги покупателю (кроме маркет-мейкера)
// - списание бумаг и зачисление кэша продавцу (кроме маркет-мейкера)
// - перзист fill-состояния обоих ордеров
//
// Все шаги идут в одной транзакции: частично примененная сделка
// (бумаги зачислены, кэш нет) невозможна.
//
// Идемпотентность по trade.ID: INSERT ... ON CONFLICT DO NOTHING.
// Если сделка уже в журнале, вся операция - no-op. Это делает
// безопасными и retry координатора, и реплей при гидрации.
func (r *TradeRepository) ApplyTrade(ctx context.Context, trade *models.Trade, buy, sell *models.Order, fee float64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin settlement tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		INSERT INTO trades (id, symbol, buy_order_id, sell_order_id, buyer_id, seller_id, price, quantity, executed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING`,
		trade.ID,
		trade.Symbol,
		trade.BuyOrderID,
		trade.SellOrderID,
		trade.BuyerID,
		trade.SellerID,
		trade.Price,
		trade.Quantity,
		trade.ExecutedAt,
	)
	if err != nil {
		return fmt.Errorf("insert trade: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		// Сделка уже применена ранее (retry или реплей) - no-op
		return tx.Commit()
	}

	notional := trade.Notional()

	// Нога покупателя: зачисление бумаг с пересчетом средней цены
	if trade.BuyerID != models.BotOwnerID {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO holdings (owner_id, symbol, quantity, average_price)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (owner_id, symbol) DO UPDATE SET
				average_price = CASE
					WHEN holdings.quantity + EXCLUDED.quantity > 0
					THEN (holdings.average_price * holdings.quantity + EXCLUDED.average_price * EXCLUDED.quantity)
					     / (holdings.quantity + EXCLUDED.quantity)
					ELSE EXCLUDED.average_price
				END,
				quantity = holdings.quantity + EXCLUDED.quantity`,
			trade.BuyerID, trade.Symbol, trade.Quantity, trade.Price,
		)
		if err != nil {
			return fmt.Errorf("credit buyer holding: %w", err)
		}
	}

	// Нога продавца: списание бумаг, зачисление кэша за вычетом комиссии
	if trade.SellerID != models.BotOwnerID {
		_, err = tx.ExecContext(ctx, `
			UPDATE holdings
			SET quantity = quantity - $1
			WHERE owner_id = $2 AND symbol = $3`,
			trade.Quantity, trade.SellerID, trade.Symbol,
		)
		if err != nil {
			return fmt.Errorf("debit seller holding: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE accounts
			SET balance = balance + $1
			WHERE owner_id = $2`,
			notional-fee, trade.SellerID,
		)
		if err != nil {
			return fmt.Errorf("credit seller cash: %w", err)
		}
	}

	// Fill-состояние обоих ордеров; терминальный статус выводит
	// ордер из открытого индекса
	for _, order := range []*models.Order{buy, sell} {
		_, err = tx.ExecContext(ctx, `
			UPDATE orders
			SET filled_quantity = $1, status = $2
			WHERE id = $3`,
			order.FilledQuantity, order.Status, order.ID,
		)
		if err != nil {
			return fmt.Errorf("update order %s fill: %w", order.ID, err)
		}
	}

	return tx.Commit()
}

// GetBySymbol возвращает последние сделки по символу
func (r *TradeRepository) GetBySymbol(symbol string, limit int) ([]*models.Trade, error) {
	query := `
		SELECT id, symbol, buy_order_id, sell_order_id, buyer_id, seller_id, price, quantity, executed_at
		FROM trades
		WHERE symbol = $1
		ORDER BY executed_at DESC
		LIMIT $2`

	rows, err := r.db.Query(query, symbol, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTrades(rows)
}

// GetRecent возвращает последние N сделок по всем символам
// (лента последних событий, social feed в оригинальном UI)
func (r *TradeRepository) GetRecent(limit int) ([]*models.Trade, error) {
	query := `
		SELECT id, symbol, buy_order_id, sell_order_id, buyer_id, seller_id, price, quantity, executed_at
		FROM trades
		ORDER BY executed_at DESC
		LIMIT $1`

	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTrades(rows)
}

// GetInTimeRange возвращает сделки символа за период
func (r *TradeRepository) GetInTimeRange(symbol string, from, to time.Time, limit int) ([]*models.Trade, error) {
	query := `
		SELECT id, symbol, buy_order_id, sell_order_id, buyer_id, seller_id, price, quantity, executed_at
		FROM trades
		WHERE symbol = $1 AND executed_at >= $2 AND executed_at < $3
		ORDER BY executed_at DESC
		LIMIT $4`

	rows, err := r.db.Query(query, symbol, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTrades(rows)
}

// scanTrades читает множество строк в слайс сделок
func scanTrades(rows *sql.Rows) ([]*models.Trade, error) {
	var trades []*models.Trade
	for rows.Next() {
		t := &models.Trade{}
		err := rows.Scan(
			&t.ID,
			&t.Symbol,
			&t.BuyOrderID,
			&t.SellOrderID,
			&t.BuyerID,
			&t.SellerID,
			&t.Price,
			&t.Quantity,
			&t.ExecutedAt,
		)
		if err != nil {
			return nil, err
		}
		trades = append(trades, t)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return trades, nil
}
