package repository

import (
	"database/sql"
	"errors"

	"stockforge/internal/models"
)

// Ошибки репозитория счетов
var (
	ErrAccountNotFound      = errors.New("account not found")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrInsufficientHoldings = errors.New("insufficient holdings")
)

// AccountRepository - леджер: таблицы accounts и holdings
//
// Резерв под BUY реализован как немедленное условное списание
// баланса: отдельного поля reserved нет, а атомарность гарантирует
// сам UPDATE c предикатом balance >= amount.
type AccountRepository struct {
	db *sql.DB
}

// NewAccountRepository создает новый экземпляр репозитория
func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// Reserve атомарно удерживает amount со счета владельца.
//
// Возвращает ErrInsufficientFunds без изменения баланса, если
// средств не хватает. Вызывается ДО приема BUY ордера в стакан
// (пессимистичный hold), поэтому расчеты платежеспособность
// больше не проверяют.
func (r *AccountRepository) Reserve(ownerID string, amount float64) error {
	query := `
		UPDATE accounts
		SET balance = balance - $1
		WHERE owner_id = $2 AND balance >= $1`

	result, err := r.db.Exec(query, amount, ownerID)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		// Либо счета нет, либо средств не хватает
		exists, err := r.exists(ownerID)
		if err != nil {
			return err
		}
		if !exists {
			return ErrAccountNotFound
		}
		return ErrInsufficientFunds
	}

	return nil
}

// Release возвращает удержанную сумму на счет (рефанд отмены,
// компенсация отказа записи ордера)
func (r *AccountRepository) Release(ownerID string, amount float64) error {
	query := `
		UPDATE accounts
		SET balance = balance + $1
		WHERE owner_id = $2`

	result, err := r.db.Exec(query, amount, ownerID)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrAccountNotFound
	}

	return nil
}

// GetBalance возвращает доступный баланс владельца
func (r *AccountRepository) GetBalance(ownerID string) (float64, error) {
	query := `SELECT balance FROM accounts WHERE owner_id = $1`

	var balance float64
	err := r.db.QueryRow(query, ownerID).Scan(&balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrAccountNotFound
		}
		return 0, err
	}

	return balance, nil
}

// GetHolding возвращает позицию владельца по символу.
// Отсутствие строки - нулевая позиция, не ошибка.
func (r *AccountRepository) GetHolding(ownerID, symbol string) (*models.Holding, error) {
	query := `
		SELECT owner_id, symbol, quantity, average_price
		FROM holdings
		WHERE owner_id = $1 AND symbol = $2`

	h := &models.Holding{}
	err := r.db.QueryRow(query, ownerID, symbol).Scan(&h.OwnerID, &h.Symbol, &h.Quantity, &h.AvgPrice)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &models.Holding{OwnerID: ownerID, Symbol: symbol}, nil
		}
		return nil, err
	}

	return h, nil
}

// GetHoldings возвращает все позиции владельца
func (r *AccountRepository) GetHoldings(ownerID string) ([]*models.Holding, error) {
	query := `
		SELECT owner_id, symbol, quantity, average_price
		FROM holdings
		WHERE owner_id = $1 AND quantity > 0
		ORDER BY symbol`

	rows, err := r.db.Query(query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var holdings []*models.Holding
	for rows.Next() {
		h := &models.Holding{}
		if err := rows.Scan(&h.OwnerID, &h.Symbol, &h.Quantity, &h.AvgPrice); err != nil {
			return nil, err
		}
		holdings = append(holdings, h)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return holdings, nil
}

// exists проверяет наличие счета
func (r *AccountRepository) exists(ownerID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM accounts WHERE owner_id = $1)`, ownerID).Scan(&exists)
	return exists, err
}
