package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"gridbot/pkg/db"
)

// CycleStorage 周期快照存储（使用SQLite）
type CycleStorage struct {
	dbManager *db.Manager
	db        *sql.DB
}

// NewCycleStorage 创建周期快照存储
func NewCycleStorage(dbManager *db.Manager) (*CycleStorage, error) {
	storage := &CycleStorage{
		dbManager: dbManager,
	}

	database, err := dbManager.GetDB("cycles")
	if err != nil {
		return nil, fmt.Errorf("获取数据库连接失败: %w", err)
	}
	storage.db = database

	if err := storage.initTable(); err != nil {
		return nil, fmt.Errorf("初始化表结构失败: %w", err)
	}

	return storage, nil
}

func (s *CycleStorage) initTable() error {
	createTableSQL := `
	CREATE TABLE IF NOT EXISTS cycle_snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		bot_id TEXT NOT NULL,
		cycle_number INTEGER NOT NULL,
		timestamp DATETIME NOT NULL,
		snapshot_data TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(bot_id, cycle_number)
	);

	CREATE INDEX IF NOT EXISTS idx_bot_cycle ON cycle_snapshots(bot_id, cycle_number);
	CREATE INDEX IF NOT EXISTS idx_cycle_timestamp ON cycle_snapshots(timestamp);
	`

	_, err := s.db.Exec(createTableSQL)
	return err
}

// CycleSnapshot 周期完整快照（使用JSON存储完整数据）
type CycleSnapshot struct {
	BotID             string    `json:"bot_id"`
	CycleNumber       int64     `json:"cycle_number"`
	Timestamp         time.Time `json:"timestamp"`
	LastPrice         int64     `json:"last_price"`
	Position          string    `json:"position"`
	BuyCount          int       `json:"buy_count"`
	SellCount         int       `json:"sell_count"`
	OrdersPlaced      int       `json:"orders_placed"`
	OrdersCancelled   int       `json:"orders_cancelled"`
	AllowPlacement    bool      `json:"allow_placement"`
	BlockReason       string    `json:"block_reason,omitempty"`
	ConsecutiveCloses int       `json:"consecutive_closes"`
	Halted            bool      `json:"halted"`
}

// LogCycleSnapshot 记录周期快照（同一周期重复写入时覆盖）
func (s *CycleStorage) LogCycleSnapshot(snapshot *CycleSnapshot) error {
	snapshotJSON, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("序列化周期快照失败: %w", err)
	}

	query := `
		INSERT INTO cycle_snapshots (bot_id, cycle_number, timestamp, snapshot_data)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(bot_id, cycle_number) DO UPDATE SET
			timestamp = excluded.timestamp,
			snapshot_data = excluded.snapshot_data
	`

	_, err = s.db.Exec(query,
		snapshot.BotID,
		snapshot.CycleNumber,
		snapshot.Timestamp,
		string(snapshotJSON),
	)
	if err != nil {
		return fmt.Errorf("保存周期快照失败: %w", err)
	}

	return nil
}

// GetRecentSnapshots 获取指定bot最近的周期快照（按周期倒序）
func (s *CycleStorage) GetRecentSnapshots(botID string, limit int) ([]*CycleSnapshot, error) {
	query := `
		SELECT snapshot_data FROM cycle_snapshots
		WHERE bot_id = ?
		ORDER BY cycle_number DESC
		LIMIT ?
	`

	rows, err := s.db.Query(query, botID, limit)
	if err != nil {
		return nil, fmt.Errorf("查询周期快照失败: %w", err)
	}
	defer rows.Close()

	var snapshots []*CycleSnapshot
	for rows.Next() {
		var snapshotJSON string
		if err := rows.Scan(&snapshotJSON); err != nil {
			log.Printf("⚠️  扫描周期快照失败: %v", err)
			continue
		}

		var snapshot CycleSnapshot
		if err := json.Unmarshal([]byte(snapshotJSON), &snapshot); err != nil {
			log.Printf("⚠️  解析周期快照失败: %v", err)
			continue
		}
		snapshots = append(snapshots, &snapshot)
	}

	return snapshots, rows.Err()
}
