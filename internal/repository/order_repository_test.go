package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"stockforge/internal/models"
)

// ============================================================
// OrderRepository Tests
// ============================================================

func orderColumns() []string {
	return []string{"id", "owner_id", "symbol", "side", "kind", "price", "quantity", "filled_quantity", "fee", "status", "created_at"}
}

func TestNewOrderRepository(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	repo := NewOrderRepository(db)
	if repo == nil {
		t.Fatal("NewOrderRepository returned nil")
	}
	if repo.db != db {
		t.Error("db not set correctly")
	}
}

func TestOrderRepositoryCreate(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name        string
		order       *models.Order
		mockSetup   func(mock sqlmock.Sqlmock)
		expectError bool
	}{
		{
			name: "success",
			order: &models.Order{
				ID:        "ord_1",
				OwnerID:   "user_1",
				Symbol:    "AAPL",
				Side:      models.SideBuy,
				Kind:      models.KindLimit,
				Price:     185.0,
				Quantity:  10,
				Fee:       1.85,
				Status:    models.StatusPending,
				CreatedAt: now,
			},
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`INSERT INTO orders`).
					WithArgs("ord_1", "user_1", "AAPL", models.SideBuy, models.KindLimit, 185.0, int64(10), int64(0), 1.85, models.StatusPending, now).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
			expectError: false,
		},
		{
			name: "database error",
			order: &models.Order{
				ID:        "ord_2",
				OwnerID:   "user_1",
				Symbol:    "AAPL",
				Side:      models.SideSell,
				Kind:      models.KindLimit,
				Price:     200.0,
				Quantity:  5,
				Status:    models.StatusPending,
				CreatedAt: now,
			},
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`INSERT INTO orders`).
					WillReturnError(errors.New("database error"))
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			if err != nil {
				t.Fatalf("failed to create mock: %v", err)
			}
			defer db.Close()

			tt.mockSetup(mock)

			repo := NewOrderRepository(db)
			err = repo.Create(tt.order)

			if tt.expectError {
				if err == nil {
					t.Error("expected error, got nil")
				}
			} else {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
			}

			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("unfulfilled expectations: %v", err)
			}
		})
	}
}

func TestOrderRepositoryGetByID(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name        string
		id          string
		mockSetup   func(mock sqlmock.Sqlmock)
		expectError error
	}{
		{
			name: "found",
			id:   "ord_1",
			mockSetup: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows(orderColumns()).
					AddRow("ord_1", "user_1", "AAPL", "BUY", "LIMIT", 185.0, int64(10), int64(4), 1.85, "PARTIAL", now)
				mock.ExpectQuery(`SELECT (.+) FROM orders`).
					WithArgs("ord_1").
					WillReturnRows(rows)
			},
		},
		{
			name: "not found",
			id:   "ord_missing",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT (.+) FROM orders`).
					WithArgs("ord_missing").
					WillReturnRows(sqlmock.NewRows(orderColumns()))
			},
			expectError: ErrOrderNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			if err != nil {
				t.Fatalf("failed to create mock: %v", err)
			}
			defer db.Close()

			tt.mockSetup(mock)

			repo := NewOrderRepository(db)
			order, err := repo.GetByID(tt.id)

			if tt.expectError != nil {
				if !errors.Is(err, tt.expectError) {
					t.Errorf("ожидали ошибку %v, получили %v", tt.expectError, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if order.ID != tt.id {
				t.Errorf("ID: ожидали %s, получили %s", tt.id, order.ID)
			}
			if order.Remaining() != 6 {
				t.Errorf("Remaining: ожидали 6, получили %d", order.Remaining())
			}
		})
	}
}

func TestOrderRepositoryListOpen(t *testing.T) {
	now := time.Now()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	// Порядок строк - порядок прихода (created_at ASC)
	rows := sqlmock.NewRows(orderColumns()).
		AddRow("ord_1", "user_1", "AAPL", "SELL", "LIMIT", 101.0, int64(5), int64(0), 0.0, "PENDING", now.Add(-2*time.Minute)).
		AddRow("ord_2", "user_2", "AAPL", "SELL", "LIMIT", 100.0, int64(5), int64(2), 0.0, "PARTIAL", now.Add(-time.Minute))

	mock.ExpectQuery(`SELECT (.+) FROM orders`).
		WithArgs(models.StatusPending, models.StatusPartial).
		WillReturnRows(rows)

	repo := NewOrderRepository(db)
	orders, err := repo.ListOpen(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(orders) != 2 {
		t.Fatalf("ожидали 2 ордера, получили %d", len(orders))
	}
	if !orders[0].CreatedAt.Before(orders[1].CreatedAt) {
		t.Error("ордера должны идти в порядке прихода")
	}
	if orders[1].Status != models.StatusPartial {
		t.Errorf("статус: ожидали PARTIAL, получили %s", orders[1].Status)
	}
}

func TestOrderRepositoryUpdateFill(t *testing.T) {
	tests := []struct {
		name        string
		mockSetup   func(mock sqlmock.Sqlmock)
		expectError error
	}{
		{
			name: "success",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`UPDATE orders`).
					WithArgs(int64(10), models.StatusFilled, "ord_1").
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name: "order not found",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`UPDATE orders`).
					WithArgs(int64(10), models.StatusFilled, "ord_1").
					WillReturnResult(sqlmock.NewResult(0, 0))
			},
			expectError: ErrOrderNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			if err != nil {
				t.Fatalf("failed to create mock: %v", err)
			}
			defer db.Close()

			tt.mockSetup(mock)

			repo := NewOrderRepository(db)
			err = repo.UpdateFill("ord_1", 10, models.StatusFilled)

			if !errors.Is(err, tt.expectError) {
				t.Errorf("ожидали ошибку %v, получили %v", tt.expectError, err)
			}
		})
	}
}

func TestOrderRepositoryMarkCanceled(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	// Терминальный ордер отменить нельзя: предикат статусов не совпал
	mock.ExpectExec(`UPDATE orders`).
		WithArgs(models.StatusCanceled, "ord_filled", models.StatusPending, models.StatusPartial).
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewOrderRepository(db)
	err = repo.MarkCanceled("ord_filled")
	if !errors.Is(err, ErrOrderNotFound) {
		t.Errorf("ожидали ErrOrderNotFound, получили %v", err)
	}
}
