package risk

import (
	"log"
	"time"
)

type priceSample struct {
	ts    time.Time
	price int64
}

// VolatilityGuard 波动保护（带迟滞）。
// 维护一个滚动价格窗口，窗口内波幅与最新价之比超过进入阈值时
// 进入冷静期，只有回落到退出阈值以下才解除。冷静期内仅暂停挂单。
type VolatilityGuard struct {
	window         time.Duration
	enterThreshold float64
	exitThreshold  float64

	samples []priceSample
	cooling bool
}

// NewVolatilityGuard 创建波动保护
func NewVolatilityGuard(windowSeconds int, enterThreshold, exitThreshold float64) *VolatilityGuard {
	return &VolatilityGuard{
		window:         time.Duration(windowSeconds) * time.Second,
		enterThreshold: enterThreshold,
		exitThreshold:  exitThreshold,
	}
}

// Cooling 当前是否处于冷静期
func (g *VolatilityGuard) Cooling() bool {
	return g.cooling
}

// Update 记录一个价格样本并更新冷静期状态，返回是否处于冷静期及当前波幅比例
func (g *VolatilityGuard) Update(now time.Time, price int64) (cooling bool, ratio float64) {
	g.samples = append(g.samples, priceSample{ts: now, price: price})

	// 剔除窗口外的样本
	cutoff := now.Add(-g.window)
	kept := g.samples[:0]
	for _, s := range g.samples {
		if !s.ts.Before(cutoff) {
			kept = append(kept, s)
		}
	}
	g.samples = kept

	ratio = g.currentRatio()
	if g.cooling {
		if ratio <= g.exitThreshold {
			g.cooling = false
			log.Printf("✓ 波幅已回落至%.4f，低于退出阈值%.4f，解除冷静期", ratio, g.exitThreshold)
		}
	} else {
		if ratio > g.enterThreshold {
			g.cooling = true
			log.Printf("⚠️  波幅%.4f超过进入阈值%.4f，进入冷静期", ratio, g.enterThreshold)
		}
	}
	return g.cooling, ratio
}

func (g *VolatilityGuard) currentRatio() float64 {
	if len(g.samples) == 0 {
		return 0
	}

	min := g.samples[0].price
	max := g.samples[0].price
	for _, s := range g.samples[1:] {
		if s.price < min {
			min = s.price
		}
		if s.price > max {
			max = s.price
		}
	}

	last := g.samples[len(g.samples)-1].price
	if last <= 0 {
		return 0
	}
	return float64(max-min) / float64(last)
}
