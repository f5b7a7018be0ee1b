package db

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

// Manager SQLite数据库管理器，按名称管理多个数据库文件
type Manager struct {
	databases map[string]*sql.DB
	mu        sync.RWMutex
	dbDir     string
}

// NewManager 创建数据库管理器，数据库文件存放在dbDir下
func NewManager(dbDir string) (*Manager, error) {
	if dbDir == "" {
		dbDir = "data"
	}

	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("创建数据库目录失败: %w", err)
	}

	return &Manager{
		databases: make(map[string]*sql.DB),
		dbDir:     dbDir,
	}, nil
}

// GetDB 获取或创建指定的数据库连接
// dbName: 数据库名称（不含扩展名），例如 "audit", "cycles"
func (m *Manager) GetDB(dbName string) (*sql.DB, error) {
	m.mu.RLock()
	db, exists := m.databases[dbName]
	m.mu.RUnlock()

	if exists {
		return db, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// 双重检查
	if db, exists := m.databases[dbName]; exists {
		return db, nil
	}

	dbPath := filepath.Join(m.dbDir, dbName+".db")
	connStr := fmt.Sprintf("file:%s?cache=shared&mode=rwc", dbPath)
	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("打开数据库 %s 失败: %w", dbName, err)
	}

	// SQLite建议每个数据库文件只使用一个连接
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("数据库连接测试失败 %s: %w", dbName, err)
	}

	// WAL模式减少写入时的锁冲突；busy_timeout避免偶发的SQLITE_BUSY
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("设置 %q 失败 %s: %w", pragma, dbName, err)
		}
	}

	m.databases[dbName] = db
	log.Printf("✓ 数据库连接已创建: %s", dbPath)

	return db, nil
}

// Close 关闭所有数据库连接
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var firstErr error
	for name, db := range m.databases {
		if err := db.Close(); err != nil {
			log.Printf("⚠️  关闭数据库 %s 失败: %v", name, err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	m.databases = make(map[string]*sql.DB)
	return firstErr
}

// GetDBPath 获取数据库文件路径（用于备份等操作）
func (m *Manager) GetDBPath(dbName string) string {
	return filepath.Join(m.dbDir, dbName+".db")
}
