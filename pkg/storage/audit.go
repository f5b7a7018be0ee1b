package storage

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"gridbot/pkg/db"
	"gridbot/pkg/logger"
)

// AuditStorage 审计记录存储（使用SQLite）。
// CSV审计日志是权威记录，这里的镜像供状态API查询。
type AuditStorage struct {
	dbManager *db.Manager
	db        *sql.DB
}

// NewAuditStorage 创建审计记录存储
func NewAuditStorage(dbManager *db.Manager) (*AuditStorage, error) {
	storage := &AuditStorage{
		dbManager: dbManager,
	}

	database, err := dbManager.GetDB("audit")
	if err != nil {
		return nil, fmt.Errorf("获取数据库连接失败: %w", err)
	}
	storage.db = database

	if err := storage.initTable(); err != nil {
		return nil, fmt.Errorf("初始化表结构失败: %w", err)
	}

	return storage, nil
}

func (s *AuditStorage) initTable() error {
	createTableSQL := `
	CREATE TABLE IF NOT EXISTS audit_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME NOT NULL,
		operation_type TEXT NOT NULL,
		symbol TEXT,
		side TEXT,
		price INTEGER,
		qty TEXT,
		order_id TEXT,
		status TEXT NOT NULL,
		error_message TEXT,
		notes TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON audit_log(timestamp);
	CREATE INDEX IF NOT EXISTS idx_audit_operation ON audit_log(operation_type);
	`

	_, err := s.db.Exec(createTableSQL)
	return err
}

// LogRecord 保存一条审计记录
func (s *AuditStorage) LogRecord(record logger.AuditRecord) error {
	query := `
		INSERT INTO audit_log (timestamp, operation_type, symbol, side, price, qty, order_id, status, error_message, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.Exec(query,
		record.Timestamp,
		record.Operation,
		record.Symbol,
		record.Side,
		record.Price,
		record.Qty,
		record.OrderID,
		record.Status,
		record.ErrorMessage,
		record.Notes,
	)
	if err != nil {
		return fmt.Errorf("保存审计记录失败: %w", err)
	}
	return nil
}

// GetRecentRecords 获取最近的审计记录（按时间倒序）
func (s *AuditStorage) GetRecentRecords(limit int) ([]logger.AuditRecord, error) {
	query := `
		SELECT timestamp, operation_type, symbol, side, price, qty, order_id, status, error_message, notes
		FROM audit_log
		ORDER BY timestamp DESC
		LIMIT ?
	`

	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("查询审计记录失败: %w", err)
	}
	defer rows.Close()

	var records []logger.AuditRecord
	for rows.Next() {
		var r logger.AuditRecord
		var ts time.Time
		if err := rows.Scan(&ts, &r.Operation, &r.Symbol, &r.Side, &r.Price,
			&r.Qty, &r.OrderID, &r.Status, &r.ErrorMessage, &r.Notes); err != nil {
			log.Printf("⚠️  扫描审计记录失败: %v", err)
			continue
		}
		r.Timestamp = ts
		records = append(records, r)
	}

	return records, rows.Err()
}
