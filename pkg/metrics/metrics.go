package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	cyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridbot_cycles_total",
			Help: "交易周期总数",
		},
		[]string{"bot_id"},
	)

	ordersPlacedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridbot_orders_placed_total",
			Help: "挂单总数（按方向与结果）",
		},
		[]string{"bot_id", "side", "result"},
	)

	ordersCancelledTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridbot_orders_cancelled_total",
			Help: "撤单总数（按结果）",
		},
		[]string{"bot_id", "result"},
	)

	flattensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridbot_flattens_total",
			Help: "平仓动作总数（按触发原因）",
		},
		[]string{"bot_id", "trigger"},
	)

	placementBlocked = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gridbot_placement_blocked",
			Help: "当前是否禁止挂单（1=禁止）",
		},
		[]string{"bot_id"},
	)

	consecutiveCloses = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gridbot_consecutive_closes",
			Help: "当前连续平仓计数",
		},
		[]string{"bot_id"},
	)

	lastPrice = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gridbot_last_price",
			Help: "最近一次获取的最新价",
		},
		[]string{"bot_id", "symbol"},
	)

	positionSize = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gridbot_position_size",
			Help: "当前持仓数量（正=多头）",
		},
		[]string{"bot_id", "symbol"},
	)
)

func init() {
	prometheus.MustRegister(
		cyclesTotal,
		ordersPlacedTotal,
		ordersCancelledTotal,
		flattensTotal,
		placementBlocked,
		consecutiveCloses,
		lastPrice,
		positionSize,
	)
}

// Handler 返回/metrics的HTTP处理器
func Handler() http.Handler {
	return promhttp.Handler()
}

// IncCycle 周期计数+1
func IncCycle(botID string) {
	cyclesTotal.WithLabelValues(botID).Inc()
}

// IncOrderPlaced 挂单计数+1，result为"success"或"failed"
func IncOrderPlaced(botID, side, result string) {
	ordersPlacedTotal.WithLabelValues(botID, side, result).Inc()
}

// IncOrderCancelled 撤单计数+1
func IncOrderCancelled(botID, result string) {
	ordersCancelledTotal.WithLabelValues(botID, result).Inc()
}

// IncFlatten 平仓计数+1，trigger为触发原因（time_window/indicator/balance_floor等）
func IncFlatten(botID, trigger string) {
	flattensTotal.WithLabelValues(botID, trigger).Inc()
}

// SetPlacementBlocked 更新挂单禁止状态
func SetPlacementBlocked(botID string, blocked bool) {
	v := 0.0
	if blocked {
		v = 1.0
	}
	placementBlocked.WithLabelValues(botID).Set(v)
}

// SetConsecutiveCloses 更新连续平仓计数
func SetConsecutiveCloses(botID string, n int) {
	consecutiveCloses.WithLabelValues(botID).Set(float64(n))
}

// SetLastPrice 更新最新价
func SetLastPrice(botID, symbol string, price int64) {
	lastPrice.WithLabelValues(botID, symbol).Set(float64(price))
}

// SetPositionSize 更新持仓数量
func SetPositionSize(botID, symbol string, size float64) {
	positionSize.WithLabelValues(botID, symbol).Set(size)
}
