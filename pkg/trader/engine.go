package trader

import (
	"fmt"
	"log"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"gridbot/pkg/config"
	"gridbot/pkg/exchange"
	"gridbot/pkg/grid"
	"gridbot/pkg/logger"
	"gridbot/pkg/market"
	"gridbot/pkg/metrics"
	"gridbot/pkg/risk"
	"gridbot/pkg/storage"
)

// EngineConfig 网格引擎配置
type EngineConfig struct {
	BotID        string
	Name         string
	Symbol       string
	LoopInterval time.Duration

	Grid config.GridConfig
	Risk config.RiskConfig
	Stop config.StopConfig
	Vol  config.VolatilityGuardConfig
}

// Stats 引擎累计统计
type Stats struct {
	TotalPlaced    int64
	TotalCancelled int64
	TotalFlattens  int64
	LastCycleAt    time.Time
	LastPrice      int64
	AllowPlacement bool
	BlockReason    string
	BuyCount       int
	SellCount      int
}

// Engine 网格交易引擎。状态机只有两个状态：运行中与停机（终态）。
// 每个周期单线程执行：取行情 → 风控评估 → 计算网格与偏斜 →
// 订单对齐 → 执行 → 记录摘要。周期内任何异常被捕获后等待下个周期，
// 不会导致进程退出。
type Engine struct {
	id     string
	name   string
	symbol string

	loopInterval time.Duration
	gridCfg      config.GridConfig
	riskCfg      config.RiskConfig
	stopCfg      config.StopConfig

	adapter  exchange.Adapter
	klines   market.KlineProvider
	executor *Executor

	state     *risk.State
	breaker   *risk.IndicatorBreaker
	volGuard  *risk.VolatilityGuard // 未启用时为nil
	timeRules risk.TimeRules
	loc       *time.Location

	cycleStore *storage.CycleStorage // 可为nil

	isRunning   int32
	stopCh      chan struct{}
	stopOnce    sync.Once
	cycleNumber int64

	mu    sync.RWMutex
	stats Stats

	// 测试可注入
	now   func() time.Time
	sleep func(time.Duration)
}

// NewEngine 创建网格引擎
func NewEngine(cfg EngineConfig, adapter exchange.Adapter, klines market.KlineProvider,
	executor *Executor, cycleStore *storage.CycleStorage) (*Engine, error) {

	if cfg.BotID == "" || cfg.Symbol == "" {
		return nil, fmt.Errorf("引擎ID与交易对不能为空")
	}
	if cfg.LoopInterval <= 0 {
		return nil, fmt.Errorf("循环间隔必须大于0")
	}

	loc, err := time.LoadLocation(cfg.Risk.Timezone)
	if err != nil {
		return nil, fmt.Errorf("加载时区失败: %w", err)
	}

	var timeRules risk.TimeRules
	if cfg.Risk.EnableTimeControl {
		timeRules, err = risk.ParseTimeRules(cfg.Risk.TimeRules)
		if err != nil {
			return nil, fmt.Errorf("解析时间风控规则失败: %w", err)
		}
	}

	var volGuard *risk.VolatilityGuard
	if cfg.Vol.Enable {
		volGuard = risk.NewVolatilityGuard(cfg.Vol.WindowSeconds,
			cfg.Vol.EnterThresholdRatio, cfg.Vol.ExitThresholdRatio)
	}

	return &Engine{
		id:           cfg.BotID,
		name:         cfg.Name,
		symbol:       cfg.Symbol,
		loopInterval: cfg.LoopInterval,
		gridCfg:      cfg.Grid,
		riskCfg:      cfg.Risk,
		stopCfg:      cfg.Stop,
		adapter:      adapter,
		klines:       klines,
		executor:     executor,
		state:        risk.NewState(),
		breaker: risk.NewIndicatorBreaker(cfg.Risk.RSIMin, cfg.Risk.RSIMax,
			cfg.Risk.ADXTrigger, cfg.Risk.ADXRecovery),
		volGuard:   volGuard,
		timeRules:  timeRules,
		loc:        loc,
		cycleStore: cycleStore,
		stopCh:     make(chan struct{}),
		now:        time.Now,
		sleep:      time.Sleep,
	}, nil
}

// GetID 引擎ID
func (e *Engine) GetID() string { return e.id }

// GetName 引擎名称
func (e *Engine) GetName() string { return e.name }

// GetSymbol 交易对
func (e *Engine) GetSymbol() string { return e.symbol }

// IsRunning 是否运行中
func (e *Engine) IsRunning() bool { return atomic.LoadInt32(&e.isRunning) == 1 }

// Run 启动主循环，阻塞直到Stop被调用或引擎停机
func (e *Engine) Run() error {
	if !atomic.CompareAndSwapInt32(&e.isRunning, 0, 1) {
		return fmt.Errorf("引擎 %s 已在运行中", e.id)
	}
	defer atomic.StoreInt32(&e.isRunning, 0)

	log.Printf("🚀 网格引擎启动 [%s] %s，循环间隔 %v", e.id, e.symbol, e.loopInterval)

	ticker := time.NewTicker(e.loopInterval)
	defer ticker.Stop()

	for {
		e.safeCycle()

		if e.state.Halted() {
			log.Printf("⛔ 引擎停机 [%s]: %s", e.id, e.state.HaltReason())
			return nil
		}

		select {
		case <-e.stopCh:
			// 人为中断：不再触碰交易所状态，已发出的批次操作自然完成
			log.Printf("⏹  引擎已停止 [%s]", e.id)
			return nil
		case <-ticker.C:
		}
	}
}

// Stop 请求停止主循环（不撤单、不平仓，交易所状态保持原样）
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		close(e.stopCh)
	})
}

// safeCycle 执行一个周期，捕获所有异常
func (e *Engine) safeCycle() {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("❌ 周期执行panic [%s]: %v", e.id, r)
		}
	}()

	if err := e.runCycle(); err != nil {
		log.Printf("⚠️  周期执行失败 [%s]: %v，等待下个周期", e.id, err)
	}
}

// runCycle 执行一个完整的交易周期
func (e *Engine) runCycle() error {
	cycle := atomic.AddInt64(&e.cycleNumber, 1)
	now := e.now()

	log.Printf("========== [%s] 周期 #%d ==========", e.id, cycle)

	ticker, err := e.adapter.GetTicker(e.symbol)
	if err != nil {
		return fmt.Errorf("获取行情失败: %w", err)
	}

	positions, err := e.adapter.GetPositions(e.symbol)
	if err != nil {
		return fmt.Errorf("获取持仓失败: %w", err)
	}
	position := decimal.Zero
	for _, p := range positions {
		position = position.Add(p.Quantity)
	}

	openOrders, err := e.adapter.GetOpenOrders(e.symbol)
	if err != nil {
		return fmt.Errorf("获取挂单失败: %w", err)
	}

	posFloat, _ := position.Float64()
	metrics.SetLastPrice(e.id, e.symbol, ticker.LastPrice)
	metrics.SetPositionSize(e.id, e.symbol, posFloat)

	allow := true
	reason := ""
	flattenFired := false

	// 阶段1：时间风控。窗口外禁止挂单，并用耐心限价单退出持仓。
	if e.riskCfg.EnableTimeControl && !e.timeRules.Allowed(now.In(e.loc)) {
		allow = false
		reason = "不在允许的交易时间内"
		log.Printf("⏰ %s，暂停交易", reason)

		if len(openOrders) > 0 {
			e.executor.CancelAll(e.symbol, "时间风控撤单")
		}
		if !position.IsZero() {
			metrics.IncFlatten(e.id, "time_window")
			e.executor.PatientLimitUnwind(e.symbol, e.riskCfg.LimitUnwind, e.sleep)
			flattenFired = true
		}
	}

	// 阶段2：指标熔断。风险事件追求速度，直接市价平仓。
	if allow && e.riskCfg.EnableIndicatorControl {
		rsi, adx := e.fetchIndicators()
		blocked, why := e.breaker.Evaluate(rsi, adx)
		if blocked {
			allow = false
			reason = why
			log.Printf("⚠️  指标熔断: %s", why)

			e.executor.CancelAll(e.symbol, "指标熔断撤单")
			if !position.IsZero() {
				e.executor.MarketClose(e.symbol, why)
				metrics.IncFlatten(e.id, "indicator")
				flattenFired = true
			}
		} else {
			log.Printf("✓ 指标正常: RSI=%.2f ADX=%.2f", rsi, adx)
		}
	}

	// 阶段3：波动保护。样本每周期都要采集，冷静期只暂停挂单。
	if e.volGuard != nil {
		cooling, ratio := e.volGuard.Update(now, ticker.LastPrice)
		if cooling && allow {
			allow = false
			reason = fmt.Sprintf("波动冷静期（波幅比例%.4f）", ratio)
		}
	}
	if allow && e.state.InCoolDown(now) {
		allow = false
		reason = "平仓后冷静期"
	}

	// 连续平仓计数：有平仓动作累加，否则清零
	if flattenFired {
		e.state.RecordFlatten(now, time.Duration(e.stopCfg.CloseCoolDownSeconds)*time.Second)
	} else {
		e.state.RecordQuietCycle()
	}
	metrics.SetConsecutiveCloses(e.id, e.state.ConsecutiveCloses())

	// 阶段4：连续平仓熔断（终态，需人工重启）
	if e.stopCfg.MaxConsecutiveCloses > 0 &&
		e.state.ConsecutiveCloses() >= e.stopCfg.MaxConsecutiveCloses {
		e.executor.CancelAll(e.symbol, "连续平仓熔断撤单")
		e.halt(fmt.Sprintf("连续平仓%d次达到上限%d",
			e.state.ConsecutiveCloses(), e.stopCfg.MaxConsecutiveCloses))
		return nil
	}

	// 网格调仓：先撤后挂
	placed, cancelled := 0, 0
	buyCount, sellCount := 0, 0
	if allow {
		placed, cancelled, buyCount, sellCount = e.reconcileGrid(ticker, posFloat, openOrders)
	} else {
		log.Printf("⏸  本周期暂停挂单: %s", reason)
	}

	// 阶段5：余额下限检查（挂单之后）
	if e.stopCfg.MinAvailableBalance > 0 {
		balance, err := e.adapter.GetBalance()
		if err != nil {
			log.Printf("⚠️  获取余额失败: %v", err)
		} else if balance.Available < e.stopCfg.MinAvailableBalance {
			e.executor.CancelAll(e.symbol, "余额不足撤单")
			if !position.IsZero() {
				e.executor.MarketClose(e.symbol, "余额低于下限")
				metrics.IncFlatten(e.id, "balance_floor")
			}
			e.halt(fmt.Sprintf("可用余额%.2f低于下限%.2f",
				balance.Available, e.stopCfg.MinAvailableBalance))
			return nil
		}
	}

	e.finishCycle(cycle, now, ticker.LastPrice, position, allow, reason,
		placed, cancelled, buyCount, sellCount, flattenFired)
	return nil
}

// reconcileGrid 计算目标网格并将挂单对齐到目标，返回挂单/撤单数量及两侧层数
func (e *Engine) reconcileGrid(ticker *exchange.Ticker, posFloat float64,
	openOrders []exchange.OpenOrder) (placed, cancelled, buyCount, sellCount int) {

	maxPosition := e.gridCfg.MaxPositionMultiplier * e.gridCfg.OrderSize
	buyCount, sellCount = grid.AdjustCounts(posFloat, maxPosition, e.gridCfg.GridCount)

	levels := grid.Generate(ticker.LastPrice, grid.Params{
		PriceStep: e.gridCfg.PriceStep,
		GridCount: e.gridCfg.GridCount,
		Spread:    e.gridCfg.Spread,
	})

	targetBuy := levels.Buy
	if len(targetBuy) > buyCount {
		targetBuy = targetBuy[:buyCount]
	}
	targetSell := levels.Sell
	if len(targetSell) > sellCount {
		targetSell = targetSell[:sellCount]
	}

	openBuy, openSell := groupOpenOrders(openOrders)
	buyPlan := grid.Reconcile(openBuy, targetBuy)
	sellPlan := grid.Reconcile(openSell, targetSell)

	// 先撤后挂：重新计算层数期间不超占资金
	cancelIDs := append(append([]string{}, buyPlan.CancelIDs...), sellPlan.CancelIDs...)
	cancelled = e.executor.CancelBatch(e.symbol, cancelIDs, "网格调整撤单")

	// 距离过滤只作用于新挂单
	placeBuy := grid.FilterByDistance(buyPlan.PlacePrices, ticker.LastPrice, e.gridCfg.MinPriceDistance)
	placeSell := grid.FilterByDistance(sellPlan.PlacePrices, ticker.LastPrice, e.gridCfg.MinPriceDistance)

	if e.gridCfg.MaxOrdersPerSide > 0 {
		if len(placeBuy) > e.gridCfg.MaxOrdersPerSide {
			placeBuy = placeBuy[:e.gridCfg.MaxOrdersPerSide]
		}
		if len(placeSell) > e.gridCfg.MaxOrdersPerSide {
			placeSell = placeSell[:e.gridCfg.MaxOrdersPerSide]
		}
	}

	qty := decimal.NewFromFloat(e.gridCfg.OrderSize)
	placed = e.executor.PlaceGridOrders(e.symbol, exchange.SideBuy, placeBuy, qty)
	placed += e.executor.PlaceGridOrders(e.symbol, exchange.SideSell, placeSell, qty)
	return placed, cancelled, buyCount, sellCount
}

// fetchIndicators 获取RSI与ADX读数，不可用时返回NaN
func (e *Engine) fetchIndicators() (rsi, adx float64) {
	if e.klines == nil {
		return math.NaN(), math.NaN()
	}

	klines, err := e.klines.GetKlines(e.symbol, e.riskCfg.Timeframe, 100)
	if err != nil {
		log.Printf("⚠️  获取K线失败: %v", err)
		return math.NaN(), math.NaN()
	}

	return market.CalculateRSI(klines, e.riskCfg.RSIPeriod),
		market.CalculateADX(klines, e.riskCfg.ADXPeriod)
}

// halt 进入永久停机状态并写入审计日志
func (e *Engine) halt(reason string) {
	e.state.Halt(reason)
	e.executor.record(logger.AuditRecord{
		Operation: logger.OpHalt,
		Symbol:    e.symbol,
		Status:    "success",
		Notes:     reason,
	})
	log.Printf("⛔ 触发停机 [%s]: %s", e.id, reason)
}

// finishCycle 更新统计、落盘周期快照并输出周期摘要
func (e *Engine) finishCycle(cycle int64, now time.Time, lastPrice int64, position decimal.Decimal,
	allow bool, reason string, placed, cancelled, buyCount, sellCount int, flattenFired bool) {

	e.mu.Lock()
	e.stats.TotalPlaced += int64(placed)
	e.stats.TotalCancelled += int64(cancelled)
	if flattenFired {
		e.stats.TotalFlattens++
	}
	e.stats.LastCycleAt = now
	e.stats.LastPrice = lastPrice
	e.stats.AllowPlacement = allow
	e.stats.BlockReason = reason
	e.stats.BuyCount = buyCount
	e.stats.SellCount = sellCount
	e.mu.Unlock()

	metrics.IncCycle(e.id)
	metrics.SetPlacementBlocked(e.id, !allow)

	if e.cycleStore != nil {
		snapshot := &storage.CycleSnapshot{
			BotID:             e.id,
			CycleNumber:       cycle,
			Timestamp:         now,
			LastPrice:         lastPrice,
			Position:          position.String(),
			BuyCount:          buyCount,
			SellCount:         sellCount,
			OrdersPlaced:      placed,
			OrdersCancelled:   cancelled,
			AllowPlacement:    allow,
			BlockReason:       reason,
			ConsecutiveCloses: e.state.ConsecutiveCloses(),
			Halted:            e.state.Halted(),
		}
		if err := e.cycleStore.LogCycleSnapshot(snapshot); err != nil {
			log.Printf("⚠️  保存周期快照失败: %v", err)
		}
	}

	log.Printf("✓ 周期 #%d 完成: 价格=%d 持仓=%s 买/卖层=%d/%d 挂单=%d 撤单=%d 连续平仓=%d",
		cycle, lastPrice, position.String(), buyCount, sellCount,
		placed, cancelled, e.state.ConsecutiveCloses())
}

// GetStatus 获取引擎状态（供状态API使用）
func (e *Engine) GetStatus() map[string]interface{} {
	e.mu.RLock()
	stats := e.stats
	e.mu.RUnlock()

	return map[string]interface{}{
		"bot_id":             e.id,
		"name":               e.name,
		"symbol":             e.symbol,
		"is_running":         e.IsRunning(),
		"halted":             e.state.Halted(),
		"halt_reason":        e.state.HaltReason(),
		"cycle_number":       atomic.LoadInt64(&e.cycleNumber),
		"consecutive_closes": e.state.ConsecutiveCloses(),
		"allow_placement":    stats.AllowPlacement,
		"block_reason":       stats.BlockReason,
		"last_price":         stats.LastPrice,
		"buy_count":          stats.BuyCount,
		"sell_count":         stats.SellCount,
		"total_placed":       stats.TotalPlaced,
		"total_cancelled":    stats.TotalCancelled,
		"total_flattens":     stats.TotalFlattens,
		"last_cycle_at":      stats.LastCycleAt,
	}
}

// groupOpenOrders 将挂单按方向聚合为 价格->订单ID列表
func groupOpenOrders(orders []exchange.OpenOrder) (buy, sell grid.OpenOrdersByPrice) {
	buy = make(grid.OpenOrdersByPrice)
	sell = make(grid.OpenOrdersByPrice)
	for _, o := range orders {
		if !o.Status.IsResting() {
			continue
		}
		if o.Side == exchange.SideBuy {
			buy[o.Price] = append(buy[o.Price], o.OrderID)
		} else {
			sell[o.Price] = append(sell[o.Price], o.OrderID)
		}
	}
	return buy, sell
}
