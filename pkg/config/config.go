package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// BotConfig 单个bot实例的配置
type BotConfig struct {
	ID      string `toml:"id"`
	Name    string `toml:"name"`
	Enabled bool   `toml:"enabled"` // 是否启用该bot

	// 交易平台选择
	Exchange string `toml:"exchange"` // "paper" 或具体交易所适配器名称
	Symbol   string `toml:"symbol"`   // 交易对，如 "BTC_USDT_Perp"

	// 交易所认证配置（环境变量优先）。
	// 仅实盘交易所适配器读取；paper适配器忽略凭证。
	APIKey    string `toml:"api_key,omitempty"`
	APISecret string `toml:"api_secret,omitempty"`

	LoopIntervalSeconds int `toml:"loop_interval_seconds"` // 主循环间隔（秒）
}

// GridConfig 网格配置
type GridConfig struct {
	PriceStep             int64   `toml:"price_step"`              // 网格价格间距（整数报价单位）
	GridCount             int     `toml:"grid_count"`              // 每侧网格数量
	Spread                int64   `toml:"spread"`                  // 买卖基准价相对当前价的偏移
	MinPriceDistance      int64   `toml:"min_price_distance"`      // 新挂单与当前价的最小距离
	OrderSize             float64 `toml:"order_size"`              // 单笔订单数量
	MaxPositionMultiplier float64 `toml:"max_position_multiplier"` // 最大持仓 = order_size * multiplier
	MaxOrdersPerSide      int     `toml:"max_orders_per_side"`     // 每轮每侧最多新挂单数（0=不限制）
}

// LimitUnwindConfig 限价平仓配置（时间风控触发时的耐心平仓）
type LimitUnwindConfig struct {
	PriceOffset     int64 `toml:"price_offset"`      // 限价单相对盘口的穿越偏移
	WaitTimeSeconds int   `toml:"wait_time_seconds"` // 每次挂单后的等待时间（秒）
	MaxRetries      int   `toml:"max_retries"`       // 最大重试次数
}

// RiskConfig 风控配置
type RiskConfig struct {
	// 时间风控：周几（"0"=周一..."6"=周日）-> 允许交易的时间段列表，格式 "HH:MM-HH:MM"
	EnableTimeControl bool                `toml:"enable_time_control"`
	TimeRules         map[string][]string `toml:"time_rules"`
	Timezone          string              `toml:"timezone"`

	// 指标风控（RSI区间 + ADX熔断）
	EnableIndicatorControl bool    `toml:"enable_indicator_control"`
	Timeframe              string  `toml:"timeframe"`
	RSIPeriod              int     `toml:"rsi_period"`
	ADXPeriod              int     `toml:"adx_period"`
	RSIMin                 float64 `toml:"rsi_min"`
	RSIMax                 float64 `toml:"rsi_max"`
	ADXTrigger             float64 `toml:"adx_trigger"`
	ADXRecovery            float64 `toml:"adx_recovery"` // 恢复阈值，必须低于触发阈值

	LimitUnwind LimitUnwindConfig `toml:"limit_unwind"`
}

// StopConfig 停机保护配置
type StopConfig struct {
	MaxConsecutiveCloses int     `toml:"max_consecutive_closes"`  // 连续平仓次数上限（0=不限制）
	MinAvailableBalance  float64 `toml:"min_available_balance"`   // 可用余额下限（0=不检查）
	CloseCoolDownSeconds int     `toml:"close_cool_down_seconds"` // 平仓后冷静期（秒）
}

// VolatilityGuardConfig 波动保护配置
type VolatilityGuardConfig struct {
	Enable              bool    `toml:"enable"`
	WindowSeconds       int     `toml:"window_seconds"`        // 价格滚动窗口（秒）
	EnterThresholdRatio float64 `toml:"enter_threshold_ratio"` // 进入冷静期的波幅比例
	ExitThresholdRatio  float64 `toml:"exit_threshold_ratio"`  // 退出冷静期的波幅比例，必须低于进入阈值
}

// APIServerConfig API服务器配置
type APIServerConfig struct {
	Port            int  `toml:"port"`
	EnableRateLimit bool `toml:"enable_rate_limit"` // 是否启用API请求限流
	RateLimitRPS    int  `toml:"rate_limit_rps"`    // 每个IP每秒允许的请求数
}

// Config 总配置
type Config struct {
	Bots            []BotConfig           `toml:"bots"`
	Grid            GridConfig            `toml:"grid"`
	Risk            RiskConfig            `toml:"risk"`
	Stop            StopConfig            `toml:"stop"`
	VolatilityGuard VolatilityGuardConfig `toml:"volatility_guard"`
	APIServer       APIServerConfig       `toml:"api_server"`

	DataDir string `toml:"data_dir"` // 数据库与审计日志目录
}

// LoadConfig 从TOML文件加载配置
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("解析TOML配置文件失败: %w", err)
	}

	config.applyDefaults()

	// 验证配置
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("配置验证失败: %w", err)
	}

	return &config, nil
}

// applyDefaults 填充默认值
func (c *Config) applyDefaults() {
	if c.DataDir == "" {
		c.DataDir = "data"
	}
	if c.Risk.Timezone == "" {
		c.Risk.Timezone = "Asia/Shanghai"
	}
	if c.Risk.Timeframe == "" {
		c.Risk.Timeframe = "15m"
	}
	if c.Risk.RSIPeriod <= 0 {
		c.Risk.RSIPeriod = 14
	}
	if c.Risk.ADXPeriod <= 0 {
		c.Risk.ADXPeriod = 14
	}
	if c.Risk.RSIMin == 0 && c.Risk.RSIMax == 0 {
		c.Risk.RSIMin = 30
		c.Risk.RSIMax = 70
	}
	if c.Risk.ADXTrigger <= 0 {
		c.Risk.ADXTrigger = 30
	}
	// 恢复阈值未配置时默认为触发阈值-2
	if c.Risk.ADXRecovery <= 0 {
		c.Risk.ADXRecovery = c.Risk.ADXTrigger - 2
	}
	if c.Risk.LimitUnwind.PriceOffset <= 0 {
		c.Risk.LimitUnwind.PriceOffset = 5
	}
	if c.Risk.LimitUnwind.WaitTimeSeconds <= 0 {
		c.Risk.LimitUnwind.WaitTimeSeconds = 30
	}
	if c.Risk.LimitUnwind.MaxRetries <= 0 {
		c.Risk.LimitUnwind.MaxRetries = 10
	}
	if c.Stop.CloseCoolDownSeconds <= 0 {
		c.Stop.CloseCoolDownSeconds = 5
	}
	if c.APIServer.Port <= 0 {
		c.APIServer.Port = 8080
	}
	if c.APIServer.RateLimitRPS <= 0 {
		c.APIServer.RateLimitRPS = 100
	}
}

// Validate 验证配置有效性（启动时快速失败）
func (c *Config) Validate() error {
	if len(c.Bots) == 0 {
		return fmt.Errorf("至少需要配置一个bot")
	}

	botIDs := make(map[string]bool)
	for i, bot := range c.Bots {
		if bot.ID == "" {
			return fmt.Errorf("bots[%d]: ID不能为空", i)
		}
		if botIDs[bot.ID] {
			return fmt.Errorf("bots[%d]: ID '%s' 重复", i, bot.ID)
		}
		botIDs[bot.ID] = true

		if bot.Symbol == "" {
			return fmt.Errorf("bots[%d]: symbol不能为空", i)
		}
		if bot.Exchange == "" {
			return fmt.Errorf("bots[%d]: exchange不能为空", i)
		}
		if bot.LoopIntervalSeconds <= 0 {
			return fmt.Errorf("bots[%d]: loop_interval_seconds必须大于0", i)
		}
	}

	// 网格参数
	if c.Grid.PriceStep <= 0 {
		return fmt.Errorf("grid.price_step必须大于0")
	}
	if c.Grid.GridCount < 0 {
		return fmt.Errorf("grid.grid_count不能为负数")
	}
	if c.Grid.Spread < 0 {
		return fmt.Errorf("grid.spread不能为负数")
	}
	if c.Grid.MinPriceDistance < 0 {
		return fmt.Errorf("grid.min_price_distance不能为负数")
	}
	if c.Grid.OrderSize <= 0 {
		return fmt.Errorf("grid.order_size必须大于0")
	}
	if c.Grid.MaxPositionMultiplier < 0 {
		return fmt.Errorf("grid.max_position_multiplier不能为负数")
	}
	if c.Grid.MaxOrdersPerSide < 0 {
		return fmt.Errorf("grid.max_orders_per_side不能为负数")
	}

	// 指标风控：恢复阈值必须严格低于触发阈值，否则熔断无法回落
	if c.Risk.EnableIndicatorControl {
		if c.Risk.RSIMin >= c.Risk.RSIMax {
			return fmt.Errorf("risk.rsi_min(%.1f)必须小于risk.rsi_max(%.1f)", c.Risk.RSIMin, c.Risk.RSIMax)
		}
		if c.Risk.ADXRecovery >= c.Risk.ADXTrigger {
			return fmt.Errorf("risk.adx_recovery(%.1f)必须小于risk.adx_trigger(%.1f)", c.Risk.ADXRecovery, c.Risk.ADXTrigger)
		}
	}

	if c.Risk.EnableTimeControl {
		if _, err := time.LoadLocation(c.Risk.Timezone); err != nil {
			return fmt.Errorf("risk.timezone无效: %w", err)
		}
	}

	// 波动保护：进入阈值必须高于退出阈值（迟滞区间）
	if c.VolatilityGuard.Enable {
		if c.VolatilityGuard.WindowSeconds <= 0 {
			return fmt.Errorf("volatility_guard.window_seconds必须大于0")
		}
		if c.VolatilityGuard.EnterThresholdRatio <= 0 {
			return fmt.Errorf("volatility_guard.enter_threshold_ratio必须大于0")
		}
		if c.VolatilityGuard.ExitThresholdRatio <= 0 ||
			c.VolatilityGuard.ExitThresholdRatio >= c.VolatilityGuard.EnterThresholdRatio {
			return fmt.Errorf("volatility_guard.exit_threshold_ratio必须大于0且小于enter_threshold_ratio")
		}
	}

	// 停机保护
	if c.Stop.MaxConsecutiveCloses < 0 {
		return fmt.Errorf("stop.max_consecutive_closes不能为负数")
	}
	if c.Stop.MinAvailableBalance < 0 {
		return fmt.Errorf("stop.min_available_balance不能为负数")
	}

	// API服务器
	if c.APIServer.Port <= 0 || c.APIServer.Port > 65535 {
		return fmt.Errorf("api_server.port必须在1-65535之间")
	}

	return nil
}

// GetLoopInterval 获取主循环间隔
func (bc *BotConfig) GetLoopInterval() time.Duration {
	return time.Duration(bc.LoopIntervalSeconds) * time.Second
}
