package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"stockforge/internal/models"
)

// fakeApplier записывает вызовы ApplyTrade и может отказывать
// заданное число раз (проверка retry)
type fakeApplier struct {
	calls    []appliedTrade
	failures int
}

type appliedTrade struct {
	tradeID string
	fee     float64
	buyID   string
	sellID  string
}

func (f *fakeApplier) ApplyTrade(ctx context.Context, trade *models.Trade, buy, sell *models.Order, fee float64) error {
	f.calls = append(f.calls, appliedTrade{
		tradeID: trade.ID,
		fee:     fee,
		buyID:   buy.ID,
		sellID:  sell.ID,
	})
	if f.failures > 0 {
		f.failures--
		return errors.New("connection reset")
	}
	return nil
}

func newExecution(tradeID string, price float64, qty int64) execution {
	buy := limitOrder("bid_"+tradeID, "buyer", models.SideBuy, price, qty, 0)
	sell := limitOrder("ask_"+tradeID, "seller", models.SideSell, price, qty, time.Second)
	return execution{
		trade: &models.Trade{
			ID:          tradeID,
			Symbol:      "AAPL",
			BuyOrderID:  buy.ID,
			SellOrderID: sell.ID,
			BuyerID:     buy.OwnerID,
			SellerID:    sell.OwnerID,
			Price:       price,
			Quantity:    qty,
			ExecutedAt:  time.Now(),
		},
		buy:  buy,
		sell: sell,
	}
}

func TestSettle_AppliesEachTradeWithFee(t *testing.T) {
	applier := &fakeApplier{}
	c := NewCoordinator(applier, 0.001, nil)

	execs := []execution{
		newExecution("T_1", 185.40, 10),
		newExecution("T_2", 185.60, 5),
	}

	if err := c.Settle(context.Background(), execs); err != nil {
		t.Fatalf("Settle вернул ошибку: %v", err)
	}

	if len(applier.calls) != 2 {
		t.Fatalf("ожидали 2 вызова ApplyTrade, получили %d", len(applier.calls))
	}
	// fee = price * qty * feeRate
	wantFee := 185.40 * 10 * 0.001
	if got := applier.calls[0].fee; got != wantFee {
		t.Errorf("ожидали комиссию %v, получили %v", wantFee, got)
	}
	if applier.calls[0].tradeID != "T_1" || applier.calls[1].tradeID != "T_2" {
		t.Errorf("сделки должны применяться в порядке исполнения, получили %+v", applier.calls)
	}
}

func TestSettle_RetriesTransientFailure(t *testing.T) {
	// Первые две попытки отказывают, третья проходит
	applier := &fakeApplier{failures: 2}
	c := NewCoordinator(applier, 0.001, nil)

	if err := c.Settle(context.Background(), []execution{newExecution("T_1", 100, 10)}); err != nil {
		t.Fatalf("Settle должен был победить после retry, получили %v", err)
	}

	if len(applier.calls) != 3 {
		t.Errorf("ожидали 3 попытки записи, получили %d", len(applier.calls))
	}
	// Retry идет с тем же trade.ID (идемпотентность на стороне хранилища)
	for _, call := range applier.calls {
		if call.tradeID != "T_1" {
			t.Errorf("retry должен нести тот же trade ID, получили %s", call.tradeID)
		}
	}
}

func TestSettle_FailsAfterExhaustedRetries(t *testing.T) {
	applier := &fakeApplier{failures: 100}
	c := NewCoordinator(applier, 0.001, nil)

	err := c.Settle(context.Background(), []execution{newExecution("T_1", 100, 10)})
	if err == nil {
		t.Fatal("ожидали ошибку после исчерпания retry")
	}
}

func TestFee(t *testing.T) {
	c := NewCoordinator(&fakeApplier{}, 0.001, nil)

	if got := c.Fee(1854.0); got != 1.854 {
		t.Errorf("ожидали комиссию 1.854, получили %v", got)
	}
	if c.FeeRate() != 0.001 {
		t.Errorf("ожидали ставку 0.001, получили %v", c.FeeRate())
	}
}

func TestNewCoordinator_DefaultFeeRate(t *testing.T) {
	c := NewCoordinator(&fakeApplier{}, 0, nil)
	if c.FeeRate() != DefaultFeeRate {
		t.Errorf("нулевая ставка должна заменяться дефолтной %v, получили %v", DefaultFeeRate, c.FeeRate())
	}
}
