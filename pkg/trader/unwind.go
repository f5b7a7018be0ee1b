package trader

import (
	"fmt"
	"log"
	"time"

	"gridbot/pkg/config"
	"gridbot/pkg/exchange"
	"gridbot/pkg/logger"
)

// PatientLimitUnwind 耐心限价平仓：用于计划内退出（时间风控），
// 以少量滑点换取成交质量。流程：撤掉全部挂单，在盘口外侧偏移
// price_offset挂只减仓限价单，等待wait_time后复查持仓，未平完则
// 撤旧单重挂，最多重试max_retries次；仍未平完则放弃，留给下个周期。
// 返回是否已完全平仓。
func (e *Executor) PatientLimitUnwind(symbol string, cfg config.LimitUnwindConfig, sleep func(time.Duration)) bool {
	if sleep == nil {
		sleep = time.Sleep
	}

	for attempt := 1; attempt <= cfg.MaxRetries; attempt++ {
		positions, err := e.adapter.GetPositions(symbol)
		if err != nil {
			log.Printf("⚠️  查询持仓失败，中止限价平仓: %v", err)
			return false
		}
		if len(positions) == 0 || positions[0].IsFlat() {
			if attempt > 1 {
				log.Printf("✓ 限价平仓完成 [%s]", symbol)
			}
			return true
		}
		position := positions[0]

		// 撤掉全部挂单（包括上一轮的平仓单），重新按最新盘口报价
		e.CancelAll(symbol, "限价平仓前撤单")

		ticker, err := e.adapter.GetTicker(symbol)
		if err != nil {
			log.Printf("⚠️  获取行情失败，中止限价平仓: %v", err)
			return false
		}

		// 多头用卖单向下穿越买一价，空头用买单向上穿越卖一价
		var side exchange.OrderSide
		var price int64
		if position.Quantity.Sign() > 0 {
			side = exchange.SideSell
			price = ticker.BidPrice - cfg.PriceOffset
		} else {
			side = exchange.SideBuy
			price = ticker.AskPrice + cfg.PriceOffset
		}

		qty := position.Quantity.Abs()
		result, err := e.adapter.PlaceOrder(&exchange.PlaceOrderRequest{
			Symbol:     symbol,
			Side:       side,
			Type:       exchange.TypeLimit,
			Price:      price,
			Quantity:   qty,
			ReduceOnly: true,
		})

		rec := logger.AuditRecord{
			Operation: logger.OpLimitClose,
			Symbol:    symbol,
			Side:      string(side),
			Price:     price,
			Qty:       qty.String(),
			Status:    "success",
			Notes:     fmt.Sprintf("限价平仓第%d/%d次", attempt, cfg.MaxRetries),
		}
		if err != nil {
			rec.Status = "failed"
			rec.ErrorMessage = err.Error()
			log.Printf("❌ 限价平仓挂单失败（第%d次）: %v", attempt, err)
		} else {
			rec.OrderID = result.OrderID
			log.Printf("⏳ 限价平仓单已挂 [%s %d x %s]，等待%d秒（第%d/%d次）",
				side, price, qty.String(), cfg.WaitTimeSeconds, attempt, cfg.MaxRetries)
		}
		e.record(rec)

		sleep(time.Duration(cfg.WaitTimeSeconds) * time.Second)
	}

	// 重试耗尽：复查一次，未平完则放弃，留给下个周期
	positions, err := e.adapter.GetPositions(symbol)
	if err == nil && (len(positions) == 0 || positions[0].IsFlat()) {
		log.Printf("✓ 限价平仓完成 [%s]", symbol)
		return true
	}
	log.Printf("⚠️  限价平仓重试%d次后仍有持仓，本周期放弃", cfg.MaxRetries)
	return false
}
