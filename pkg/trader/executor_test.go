package trader

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"gridbot/pkg/config"
	"gridbot/pkg/exchange"
	"gridbot/pkg/logger"
)

func newTestExecutor(t *testing.T, paper *exchange.PaperAdapter) *Executor {
	t.Helper()
	audit, err := logger.NewAuditLogger(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { audit.Close() })
	return NewExecutor("t1", paper, audit, nil)
}

func TestPlaceGridOrdersContainsRejections(t *testing.T) {
	paper := exchange.NewPaperAdapter(testSymbol, 10000)
	paper.SetRejectAll(true)
	executor := newTestExecutor(t, paper)

	// 全部被拒：返回0，但不panic、不中断批次
	placed := executor.PlaceGridOrders(testSymbol, exchange.SideBuy,
		[]int64{88500, 87000, 85500}, decimal.NewFromFloat(0.01))
	if placed != 0 {
		t.Errorf("全部被拒时placed应为0: %d", placed)
	}

	paper.SetRejectAll(false)
	placed = executor.PlaceGridOrders(testSymbol, exchange.SideBuy,
		[]int64{88500, 87000}, decimal.NewFromFloat(0.01))
	if placed != 2 {
		t.Errorf("恢复后应全部成功: %d", placed)
	}
}

func TestCancelBatchContainsFailures(t *testing.T) {
	paper := exchange.NewPaperAdapter(testSymbol, 10000)
	executor := newTestExecutor(t, paper)

	result, err := paper.PlaceOrder(&exchange.PlaceOrderRequest{
		Symbol:   testSymbol,
		Side:     exchange.SideBuy,
		Type:     exchange.TypeLimit,
		Price:    88500,
		Quantity: decimal.NewFromFloat(0.01),
	})
	if err != nil {
		t.Fatal(err)
	}

	// 一个存在的订单加一个不存在的订单：失败不影响成功撤销
	succeeded := executor.CancelBatch(testSymbol,
		[]string{result.OrderID, "不存在的订单"}, "测试撤单")
	if succeeded != 1 {
		t.Errorf("应成功撤销1笔: %d", succeeded)
	}
}

func TestPatientLimitUnwindAlreadyFlat(t *testing.T) {
	paper := exchange.NewPaperAdapter(testSymbol, 10000)
	paper.SetTicker(90000, 89995, 90005)
	executor := newTestExecutor(t, paper)

	cfg := config.LimitUnwindConfig{PriceOffset: 5, WaitTimeSeconds: 1, MaxRetries: 3}
	if !executor.PatientLimitUnwind(testSymbol, cfg, func(time.Duration) {}) {
		t.Error("无持仓时应立即返回成功")
	}
}

func TestPatientLimitUnwindFillsAndCompletes(t *testing.T) {
	paper := exchange.NewPaperAdapter(testSymbol, 10000)
	paper.SetTicker(90000, 89995, 90005)
	executor := newTestExecutor(t, paper)

	// 建立多头持仓
	_, err := paper.PlaceOrder(&exchange.PlaceOrderRequest{
		Symbol:   testSymbol,
		Side:     exchange.SideBuy,
		Type:     exchange.TypeMarket,
		Quantity: decimal.NewFromFloat(0.02),
	})
	if err != nil {
		t.Fatal(err)
	}

	// 等待期间模拟平仓单成交
	fillDuringWait := func(time.Duration) {
		orders, _ := paper.GetOpenOrders(testSymbol)
		for _, o := range orders {
			paper.FillOrder(o.OrderID)
		}
	}

	cfg := config.LimitUnwindConfig{PriceOffset: 5, WaitTimeSeconds: 1, MaxRetries: 3}
	if !executor.PatientLimitUnwind(testSymbol, cfg, fillDuringWait) {
		t.Fatal("平仓单成交后应返回成功")
	}

	positions, _ := paper.GetPositions(testSymbol)
	if len(positions) != 0 {
		t.Errorf("持仓未平完: %v", positions)
	}
}

func TestPatientLimitUnwindGivesUpAfterRetries(t *testing.T) {
	paper := exchange.NewPaperAdapter(testSymbol, 10000)
	paper.SetTicker(90000, 89995, 90005)
	executor := newTestExecutor(t, paper)

	_, err := paper.PlaceOrder(&exchange.PlaceOrderRequest{
		Symbol:   testSymbol,
		Side:     exchange.SideBuy,
		Type:     exchange.TypeMarket,
		Quantity: decimal.NewFromFloat(0.02),
	})
	if err != nil {
		t.Fatal(err)
	}

	// 平仓单始终不成交：重试耗尽后放弃
	cfg := config.LimitUnwindConfig{PriceOffset: 5, WaitTimeSeconds: 1, MaxRetries: 2}
	if executor.PatientLimitUnwind(testSymbol, cfg, func(time.Duration) {}) {
		t.Error("持仓未平完时应返回失败")
	}

	positions, _ := paper.GetPositions(testSymbol)
	if len(positions) == 0 {
		t.Error("放弃后持仓应保持")
	}
}

func TestMarketCloseClearsPosition(t *testing.T) {
	paper := exchange.NewPaperAdapter(testSymbol, 10000)
	paper.SetTicker(90000, 89995, 90005)
	executor := newTestExecutor(t, paper)

	_, err := paper.PlaceOrder(&exchange.PlaceOrderRequest{
		Symbol:   testSymbol,
		Side:     exchange.SideSell,
		Type:     exchange.TypeMarket,
		Quantity: decimal.NewFromFloat(0.05),
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := executor.MarketClose(testSymbol, "测试平仓"); err != nil {
		t.Fatal(err)
	}
	positions, _ := paper.GetPositions(testSymbol)
	if len(positions) != 0 {
		t.Errorf("市价平仓后不应有持仓: %v", positions)
	}
}
