package manager

import (
	"fmt"
	"log"
	"sync"

	"gridbot/pkg/config"
	"gridbot/pkg/exchange"
	"gridbot/pkg/logger"
	"gridbot/pkg/market"
	"gridbot/pkg/storage"
	"gridbot/pkg/trader"
)

// BotManager 管理多个网格引擎实例
type BotManager struct {
	engines map[string]*trader.Engine // key: bot ID
	mu      sync.RWMutex
}

// NewBotManager 创建bot管理器
func NewBotManager() *BotManager {
	return &BotManager{
		engines: make(map[string]*trader.Engine),
	}
}

// AddBot 根据配置创建并注册一个网格引擎
func (bm *BotManager) AddBot(botCfg config.BotConfig, cfg *config.Config,
	audit *logger.AuditLogger, auditStore *storage.AuditStorage,
	cycleStore *storage.CycleStorage) error {

	bm.mu.Lock()
	defer bm.mu.Unlock()

	if _, exists := bm.engines[botCfg.ID]; exists {
		return fmt.Errorf("bot ID '%s' 已存在", botCfg.ID)
	}

	adapter, err := buildAdapter(botCfg)
	if err != nil {
		return fmt.Errorf("创建交易所适配器失败: %w", err)
	}

	var klines market.KlineProvider
	if cfg.Risk.EnableIndicatorControl {
		klines = market.NewBinanceKlineProvider()
	}

	executor := trader.NewExecutor(botCfg.ID, adapter, audit, auditStore)

	engine, err := trader.NewEngine(trader.EngineConfig{
		BotID:        botCfg.ID,
		Name:         botCfg.Name,
		Symbol:       botCfg.Symbol,
		LoopInterval: botCfg.GetLoopInterval(),
		Grid:         cfg.Grid,
		Risk:         cfg.Risk,
		Stop:         cfg.Stop,
		Vol:          cfg.VolatilityGuard,
	}, adapter, klines, executor, cycleStore)
	if err != nil {
		return fmt.Errorf("创建网格引擎失败: %w", err)
	}

	bm.engines[botCfg.ID] = engine
	log.Printf("✓ Bot '%s' (%s @ %s) 已添加", botCfg.Name, botCfg.Symbol, adapter.Name())
	return nil
}

// buildAdapter 按配置创建交易所适配器。
// 实盘适配器接入时在此消费botCfg.APIKey/APISecret；paper不需要凭证。
func buildAdapter(botCfg config.BotConfig) (exchange.Adapter, error) {
	switch botCfg.Exchange {
	case "paper":
		return exchange.NewPaperAdapter(botCfg.Symbol, 10000), nil
	default:
		return nil, fmt.Errorf("不支持的交易所: %q", botCfg.Exchange)
	}
}

// GetBot 获取指定ID的引擎
func (bm *BotManager) GetBot(id string) (*trader.Engine, error) {
	bm.mu.RLock()
	defer bm.mu.RUnlock()

	engine, exists := bm.engines[id]
	if !exists {
		return nil, fmt.Errorf("bot ID '%s' 不存在", id)
	}
	return engine, nil
}

// GetBotIDs 获取所有bot ID列表
func (bm *BotManager) GetBotIDs() []string {
	bm.mu.RLock()
	defer bm.mu.RUnlock()

	ids := make([]string, 0, len(bm.engines))
	for id := range bm.engines {
		ids = append(ids, id)
	}
	return ids
}

// StartAll 启动所有引擎
func (bm *BotManager) StartAll() {
	bm.mu.RLock()
	defer bm.mu.RUnlock()

	log.Println("🚀 启动所有Bot...")
	for id, engine := range bm.engines {
		go func(botID string, e *trader.Engine) {
			log.Printf("▶️  启动 %s...", e.GetName())
			if err := e.Run(); err != nil {
				log.Printf("❌ %s 运行错误: %v", e.GetName(), err)
			}
		}(id, engine)
	}
}

// StopAll 停止所有引擎
func (bm *BotManager) StopAll() {
	bm.mu.RLock()
	defer bm.mu.RUnlock()

	log.Println("⏹  停止所有Bot...")
	for _, engine := range bm.engines {
		engine.Stop()
	}
}

// GetOverview 获取所有bot的状态总览
func (bm *BotManager) GetOverview() map[string]interface{} {
	bm.mu.RLock()
	defer bm.mu.RUnlock()

	bots := make([]map[string]interface{}, 0, len(bm.engines))
	for _, engine := range bm.engines {
		bots = append(bots, engine.GetStatus())
	}

	return map[string]interface{}{
		"bots":  bots,
		"count": len(bots),
	}
}
