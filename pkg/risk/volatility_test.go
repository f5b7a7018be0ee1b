package risk

import (
	"math"
	"testing"
	"time"
)

// 比例序列必须作为连续观察喂入：每步的低价样本在上一步的收尾
// 样本（100000）尚在窗口内时写入，此时窗口波幅仍高于退出阈值，
// 冷静期状态不会被中间样本误解除；1秒后上一步样本滑出窗口，
// 被断言的Update只看到本步的两个样本，比例正好是目标值。
func TestVolatilityGuardHysteresis(t *testing.T) {
	// 进入阈值0.02，退出阈值0.01：
	// 比例序列 [0.01, 0.025, 0.018, 0.012, 0.008]
	// 在0.025进入冷静期，0.018/0.012保持（>0.01），0.008解除
	const windowSeconds = 60
	g := NewVolatilityGuard(windowSeconds, 0.02, 0.01)
	base := time.Now()

	steps := []struct {
		ratio       float64
		wantCooling bool
	}{
		{0.010, false},
		{0.025, true},
		{0.018, true},
		{0.012, true},
		{0.008, false},
	}

	// 步长=窗口+1秒：写入低价样本时上一步收尾样本恰好还在窗口边缘，
	// 1秒后它滑出，窗口只剩 {low, last}
	const last = int64(100000)
	for i, step := range steps {
		now := base.Add(time.Duration(i) * (windowSeconds + 1) * time.Second)
		low := last - int64(math.Round(step.ratio*float64(last)))

		g.Update(now, low)
		cooling, ratio := g.Update(now.Add(time.Second), last)

		if cooling != step.wantCooling {
			t.Errorf("步骤%d ratio=%.4f(计算%.4f): cooling=%v, want %v",
				i, step.ratio, ratio, cooling, step.wantCooling)
		}
		if math.Abs(ratio-step.ratio) > 1e-9 {
			t.Errorf("步骤%d 构造的波幅比例不精确: got %.6f, want %.6f", i, ratio, step.ratio)
		}
	}
}

func TestVolatilityGuardPrunesOldSamples(t *testing.T) {
	g := NewVolatilityGuard(10, 0.02, 0.01)
	base := time.Now()

	// 窗口内剧烈波动
	g.Update(base, 90000)
	cooling, _ := g.Update(base.Add(time.Second), 95000)
	if !cooling {
		t.Fatal("剧烈波动应进入冷静期")
	}

	// 旧样本滑出窗口后波幅归零，应解除冷静期
	cooling, ratio := g.Update(base.Add(30*time.Second), 95000)
	if cooling {
		t.Errorf("旧样本滑出后应解除冷静期, ratio=%.4f", ratio)
	}
}

func TestVolatilityGuardEmptyWindow(t *testing.T) {
	g := NewVolatilityGuard(60, 0.02, 0.01)
	cooling, ratio := g.Update(time.Now(), 90000)
	if cooling || ratio != 0 {
		t.Errorf("单样本窗口波幅应为0: cooling=%v ratio=%v", cooling, ratio)
	}
}

func TestStateCoolDownAndConsecutiveCloses(t *testing.T) {
	s := NewState()
	now := time.Now()

	s.RecordFlatten(now, 5*time.Second)
	if s.ConsecutiveCloses() != 1 {
		t.Errorf("连续平仓计数应为1: %d", s.ConsecutiveCloses())
	}
	if !s.InCoolDown(now.Add(2 * time.Second)) {
		t.Error("冷静期内InCoolDown应为true")
	}
	if s.InCoolDown(now.Add(6 * time.Second)) {
		t.Error("冷静期过后InCoolDown应为false")
	}

	s.RecordFlatten(now, 5*time.Second)
	if s.ConsecutiveCloses() != 2 {
		t.Errorf("连续平仓计数应为2: %d", s.ConsecutiveCloses())
	}

	s.RecordQuietCycle()
	if s.ConsecutiveCloses() != 0 {
		t.Errorf("平静周期后计数应清零: %d", s.ConsecutiveCloses())
	}
}

func TestStateHalt(t *testing.T) {
	s := NewState()
	if s.Halted() {
		t.Fatal("初始状态不应停机")
	}
	s.Halt("连续平仓次数达到上限")
	if !s.Halted() || s.HaltReason() == "" {
		t.Error("Halt后应处于停机状态并保留原因")
	}
}
