package logger

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// 审计日志操作类型
const (
	OpPlaceOrder  = "place_order"
	OpCancelOrder = "cancel_order"
	OpBatchCancel = "batch_cancel"
	OpMarketClose = "market_close"
	OpLimitClose  = "limit_close"
	OpHalt        = "halt"
)

// AuditRecord 一条审计记录（订单操作的完整上下文）
type AuditRecord struct {
	Timestamp    time.Time
	Operation    string // place_order / cancel_order / batch_cancel / market_close / limit_close / halt
	Symbol       string
	Side         string
	Price        int64
	Qty          string
	OrderID      string
	Status       string // success / failed
	ErrorMessage string
	Notes        string
}

// AuditLogger 审计日志：按日期滚动的CSV文件，每个订单操作
// （成功与失败）各追加一行。写入失败只打日志，不中断交易周期。
type AuditLogger struct {
	mu      sync.Mutex
	dir     string
	curDate string
	file    *os.File
	writer  *csv.Writer
}

// NewAuditLogger 创建审计日志，文件写入指定目录
func NewAuditLogger(dir string) (*AuditLogger, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("创建审计日志目录失败: %w", err)
	}
	return &AuditLogger{dir: dir}, nil
}

// 按日期命名：order_log_YYYY-MM-DD.csv
func (a *AuditLogger) rotateIfNeeded(now time.Time) error {
	date := now.Format("2006-01-02")
	if date == a.curDate && a.writer != nil {
		return nil
	}

	if a.file != nil {
		a.writer.Flush()
		a.file.Close()
	}

	path := filepath.Join(a.dir, fmt.Sprintf("order_log_%s.csv", date))
	_, statErr := os.Stat(path)
	needHeader := os.IsNotExist(statErr)

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("打开审计日志文件失败: %w", err)
	}

	a.file = file
	a.writer = csv.NewWriter(file)
	a.curDate = date

	if needHeader {
		header := []string{"timestamp", "operation_type", "symbol", "side",
			"price", "qty", "order_id", "status", "error_message", "notes"}
		if err := a.writer.Write(header); err != nil {
			return fmt.Errorf("写入审计日志表头失败: %w", err)
		}
		a.writer.Flush()
	}
	return nil
}

// Log 追加一条审计记录
func (a *AuditLogger) Log(record AuditRecord) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now()
	}

	if err := a.rotateIfNeeded(record.Timestamp); err != nil {
		log.Printf("⚠️  审计日志滚动失败: %v", err)
		return
	}

	row := []string{
		record.Timestamp.Format("2006-01-02 15:04:05"),
		record.Operation,
		record.Symbol,
		record.Side,
		fmt.Sprintf("%d", record.Price),
		record.Qty,
		record.OrderID,
		record.Status,
		record.ErrorMessage,
		record.Notes,
	}
	if err := a.writer.Write(row); err != nil {
		log.Printf("⚠️  写入审计日志失败: %v", err)
		return
	}
	a.writer.Flush()
	if err := a.writer.Error(); err != nil {
		log.Printf("⚠️  刷新审计日志失败: %v", err)
	}
}

// Close 关闭审计日志文件
func (a *AuditLogger) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.file == nil {
		return nil
	}
	a.writer.Flush()
	err := a.file.Close()
	a.file = nil
	a.writer = nil
	return err
}
