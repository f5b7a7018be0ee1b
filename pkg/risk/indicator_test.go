package risk

import (
	"math"
	"testing"
)

func TestIndicatorBreakerADXHysteresis(t *testing.T) {
	// 触发阈值30，恢复阈值28：32触发熔断，31/29保持（>=28），
	// 首个低于28的读数解除熔断
	b := NewIndicatorBreaker(0, 100, 30, 28)

	steps := []struct {
		adx         float64
		wantBlocked bool
	}{
		{20, false}, // 未触发
		{32, true},  // >=30 触发
		{31, true},  // 熔断中，>=28 保持
		{29, true},  // 熔断中，>=28 保持
		{24, false}, // <28 解除
		{19, false}, // 保持解除
	}

	for i, step := range steps {
		blocked, reason := b.Evaluate(50, step.adx)
		if blocked != step.wantBlocked {
			t.Errorf("步骤%d adx=%.0f: blocked=%v, want %v (%s)",
				i, step.adx, blocked, step.wantBlocked, reason)
		}
	}
}

func TestIndicatorBreakerRSIOutOfRange(t *testing.T) {
	b := NewIndicatorBreaker(30, 70, 100, 98)

	if blocked, _ := b.Evaluate(50, 20); blocked {
		t.Error("RSI在区间内不应熔断")
	}
	if blocked, _ := b.Evaluate(75, 20); !blocked {
		t.Error("RSI越界应熔断")
	}
	if blocked, _ := b.Evaluate(20, 20); !blocked {
		t.Error("RSI低于下限应熔断")
	}
}

func TestIndicatorBreakerUnavailableReadings(t *testing.T) {
	b := NewIndicatorBreaker(30, 70, 30, 28)

	if blocked, reason := b.Evaluate(math.NaN(), 20); !blocked {
		t.Errorf("指标不可用应熔断: %s", reason)
	}
	if blocked, _ := b.Evaluate(50, math.NaN()); !blocked {
		t.Error("ADX不可用应熔断")
	}
	// 熔断后即使ADX低于恢复阈值也要先走解除流程，解除后指标正常则放行
	if blocked, _ := b.Evaluate(50, 20); blocked {
		t.Error("指标恢复且ADX低于恢复阈值后应放行")
	}
}

func TestIndicatorBreakerNoFlappingAtTrigger(t *testing.T) {
	// 在触发阈值正上方反复波动：一次触发后持续保持熔断
	b := NewIndicatorBreaker(0, 100, 30, 28)

	b.Evaluate(50, 30.5)
	for _, adx := range []float64{29.9, 30.1, 29.5, 28.0} {
		if blocked, _ := b.Evaluate(50, adx); !blocked {
			t.Errorf("adx=%.1f: 恢复阈值以上不应解除熔断", adx)
		}
	}
	if blocked, _ := b.Evaluate(50, 27.9); blocked {
		t.Error("adx=27.9低于恢复阈值，应解除熔断")
	}
}
