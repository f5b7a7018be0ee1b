package risk

import (
	"fmt"
	"log"
	"math"
)

// IndicatorBreaker 指标熔断器（带迟滞）。
// RSI越界、ADX达到触发阈值或指标不可用时熔断；熔断后
// 需要ADX回落到恢复阈值以下才解除，避免在阈值附近反复开关。
type IndicatorBreaker struct {
	rsiMin      float64
	rsiMax      float64
	adxTrigger  float64
	adxRecovery float64

	triggered bool
}

// NewIndicatorBreaker 创建指标熔断器
func NewIndicatorBreaker(rsiMin, rsiMax, adxTrigger, adxRecovery float64) *IndicatorBreaker {
	return &IndicatorBreaker{
		rsiMin:      rsiMin,
		rsiMax:      rsiMax,
		adxTrigger:  adxTrigger,
		adxRecovery: adxRecovery,
	}
}

// Active 当前是否处于熔断状态
func (b *IndicatorBreaker) Active() bool {
	return b.triggered
}

// Evaluate 输入本周期的RSI/ADX读数，返回是否熔断及原因。
// NaN表示指标不可用，同样触发熔断。
func (b *IndicatorBreaker) Evaluate(rsi, adx float64) (blocked bool, reason string) {
	// 指标不可用：熔断并保持
	if math.IsNaN(rsi) || math.IsNaN(adx) {
		b.triggered = true
		return true, "指标不可用"
	}

	if b.triggered {
		// 熔断中：ADX必须回落到恢复阈值以下才解除
		if adx < b.adxRecovery {
			b.triggered = false
			log.Printf("✓ ADX已回落至%.2f，低于恢复阈值%.2f，解除熔断", adx, b.adxRecovery)
		} else {
			return true, fmt.Sprintf("ADX熔断中: %.2f >= %.2f（恢复阈值）", adx, b.adxRecovery)
		}
	}

	if adx >= b.adxTrigger {
		b.triggered = true
		log.Printf("⚠️  ADX触发熔断: %.2f >= %.2f，需回落到%.2f以下才恢复", adx, b.adxTrigger, b.adxRecovery)
		return true, fmt.Sprintf("ADX过高: %.2f >= %.2f", adx, b.adxTrigger)
	}

	if rsi < b.rsiMin || rsi > b.rsiMax {
		b.triggered = true
		log.Printf("⚠️  RSI越界触发熔断: %.2f 不在[%.1f, %.1f]内", rsi, b.rsiMin, b.rsiMax)
		return true, fmt.Sprintf("RSI越界: %.2f 不在[%.1f, %.1f]内", rsi, b.rsiMin, b.rsiMax)
	}

	return false, ""
}
