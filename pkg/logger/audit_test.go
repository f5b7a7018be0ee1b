package logger

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestAuditLoggerWritesDailyFile(t *testing.T) {
	dir := t.TempDir()
	audit, err := NewAuditLogger(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer audit.Close()

	ts := time.Date(2026, 9, 1, 10, 30, 0, 0, time.UTC)
	audit.Log(AuditRecord{
		Timestamp: ts,
		Operation: OpPlaceOrder,
		Symbol:    "BTC_USDT_Perp",
		Side:      "buy",
		Price:     88500,
		Qty:       "0.01",
		OrderID:   "o1",
		Status:    "success",
	})
	audit.Log(AuditRecord{
		Timestamp:    ts.Add(time.Minute),
		Operation:    OpCancelOrder,
		Symbol:       "BTC_USDT_Perp",
		OrderID:      "o2",
		Status:       "failed",
		ErrorMessage: "订单不存在",
		Notes:        "批量撤单",
	})

	path := filepath.Join(dir, "order_log_2026-09-01.csv")
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("审计日志文件不存在: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("应有表头+2行记录, got %d行", len(rows))
	}
	if rows[0][1] != "operation_type" {
		t.Errorf("表头不匹配: %v", rows[0])
	}
	if rows[1][1] != OpPlaceOrder || rows[1][4] != "88500" {
		t.Errorf("记录行不匹配: %v", rows[1])
	}
	if rows[2][8] != "订单不存在" {
		t.Errorf("错误信息未写入: %v", rows[2])
	}
}

func TestAuditLoggerRotatesAcrossDates(t *testing.T) {
	dir := t.TempDir()
	audit, err := NewAuditLogger(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer audit.Close()

	audit.Log(AuditRecord{
		Timestamp: time.Date(2026, 9, 1, 23, 59, 0, 0, time.UTC),
		Operation: OpPlaceOrder,
		Status:    "success",
	})
	audit.Log(AuditRecord{
		Timestamp: time.Date(2026, 9, 2, 0, 1, 0, 0, time.UTC),
		Operation: OpPlaceOrder,
		Status:    "success",
	})

	for _, name := range []string{"order_log_2026-09-01.csv", "order_log_2026-09-02.csv"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("跨日期滚动后文件缺失: %s", name)
		}
	}
}
