package trader

import (
	"fmt"
	"log"

	"github.com/shopspring/decimal"

	"gridbot/pkg/exchange"
	"gridbot/pkg/logger"
	"gridbot/pkg/metrics"
	"gridbot/pkg/storage"
)

// Executor 订单执行协调器：统一执行撤单/挂单/平仓，
// 单笔失败不中断批次，每次尝试（成功与失败）都写入审计日志。
type Executor struct {
	botID      string
	adapter    exchange.Adapter
	audit      *logger.AuditLogger
	auditStore *storage.AuditStorage // 可为nil（不启用数据库镜像）
}

// NewExecutor 创建执行协调器
func NewExecutor(botID string, adapter exchange.Adapter, audit *logger.AuditLogger, auditStore *storage.AuditStorage) *Executor {
	return &Executor{
		botID:      botID,
		adapter:    adapter,
		audit:      audit,
		auditStore: auditStore,
	}
}

// record 写入审计日志（CSV为权威记录，数据库镜像失败只打日志）
func (e *Executor) record(rec logger.AuditRecord) {
	if e.audit != nil {
		e.audit.Log(rec)
	}
	if e.auditStore != nil {
		if err := e.auditStore.LogRecord(rec); err != nil {
			log.Printf("⚠️  审计记录入库失败: %v", err)
		}
	}
}

// CancelBatch 批量撤单。逐单执行，单笔失败记录后继续，返回成功数量。
func (e *Executor) CancelBatch(symbol string, orderIDs []string, notes string) int {
	if len(orderIDs) == 0 {
		return 0
	}

	results := e.adapter.CancelOrdersByIDs(symbol, orderIDs)
	succeeded := 0
	for _, orderID := range orderIDs {
		err := results[orderID]
		rec := logger.AuditRecord{
			Operation: logger.OpCancelOrder,
			Symbol:    symbol,
			OrderID:   orderID,
			Status:    "success",
			Notes:     notes,
		}
		if err != nil {
			rec.Status = "failed"
			rec.ErrorMessage = err.Error()
			log.Printf("❌ 撤单失败 [%s]: %v", orderID, err)
			metrics.IncOrderCancelled(e.botID, "failed")
		} else {
			succeeded++
			metrics.IncOrderCancelled(e.botID, "success")
		}
		e.record(rec)
	}

	if succeeded > 0 {
		log.Printf("✓ 批量撤单完成: %d/%d", succeeded, len(orderIDs))
	}
	return succeeded
}

// PlaceGridOrders 按价格列表逐笔挂限价单，返回成功数量。
// 单笔被拒或失败记录后继续，不中断剩余挂单。
func (e *Executor) PlaceGridOrders(symbol string, side exchange.OrderSide, prices []int64, qty decimal.Decimal) int {
	placed := 0
	for _, price := range prices {
		result, err := e.adapter.PlaceOrder(&exchange.PlaceOrderRequest{
			Symbol:   symbol,
			Side:     side,
			Type:     exchange.TypeLimit,
			Price:    price,
			Quantity: qty,
		})

		rec := logger.AuditRecord{
			Operation: logger.OpPlaceOrder,
			Symbol:    symbol,
			Side:      string(side),
			Price:     price,
			Qty:       qty.String(),
			Status:    "success",
		}
		if err != nil {
			rec.Status = "failed"
			rec.ErrorMessage = err.Error()
			if exchange.IsRejection(err) {
				log.Printf("❌ 订单被拒 [%s %d]: %v", side, price, err)
			} else {
				log.Printf("❌ 挂单失败 [%s %d]: %v", side, price, err)
			}
			metrics.IncOrderPlaced(e.botID, string(side), "failed")
		} else {
			rec.OrderID = result.OrderID
			placed++
			metrics.IncOrderPlaced(e.botID, string(side), "success")
		}
		e.record(rec)
	}
	return placed
}

// CancelAll 撤销全部挂单并写入审计日志，返回撤销数量
func (e *Executor) CancelAll(symbol, notes string) int {
	count, err := e.adapter.CancelAllOrders(symbol)

	rec := logger.AuditRecord{
		Operation: logger.OpBatchCancel,
		Symbol:    symbol,
		Status:    "success",
		Notes:     notes,
	}
	if err != nil {
		rec.Status = "failed"
		rec.ErrorMessage = err.Error()
		log.Printf("❌ 全部撤单失败: %v", err)
		e.record(rec)
		return 0
	}

	rec.Notes = fmt.Sprintf("%s（撤销%d笔）", notes, count)
	e.record(rec)
	if count > 0 {
		log.Printf("✓ 已撤销全部挂单: %d笔", count)
	}
	return count
}

// MarketClose 市价平掉全部持仓并写入审计日志
func (e *Executor) MarketClose(symbol, notes string) error {
	err := e.adapter.ClosePosition(symbol)

	rec := logger.AuditRecord{
		Operation: logger.OpMarketClose,
		Symbol:    symbol,
		Status:    "success",
		Notes:     notes,
	}
	if err != nil {
		rec.Status = "failed"
		rec.ErrorMessage = err.Error()
		log.Printf("❌ 市价平仓失败: %v", err)
	} else {
		log.Printf("✓ 市价平仓完成 [%s]: %s", symbol, notes)
	}
	e.record(rec)
	return err
}
