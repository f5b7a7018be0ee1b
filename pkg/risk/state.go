package risk

import (
	"sync"
	"time"
)

// Decision 每周期风控评估结果。
// AllowPlacement为false时仅禁止新挂单；撤单与平仓动作不受影响。
type Decision struct {
	AllowPlacement bool
	Reason         string
}

// Allow 允许挂单
func Allow() Decision {
	return Decision{AllowPlacement: true}
}

// Block 禁止挂单并记录原因
func Block(reason string) Decision {
	return Decision{AllowPlacement: false, Reason: reason}
}

// State 风控运行时状态。
// 只由交易主循环单线程写入；读方法加锁供状态API并发读取。
type State struct {
	mu sync.RWMutex

	consecutiveCloses int
	coolDownUntil     time.Time
	halted            bool
	haltReason        string
}

// NewState 创建风控状态
func NewState() *State {
	return &State{}
}

// RecordFlatten 记录一次平仓：累加连续平仓计数并进入时间冷静期
func (s *State) RecordFlatten(now time.Time, coolDown time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.consecutiveCloses++
	s.coolDownUntil = now.Add(coolDown)
}

// RecordQuietCycle 记录一个没有平仓动作的周期，连续平仓计数清零
func (s *State) RecordQuietCycle() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.consecutiveCloses = 0
}

// ConsecutiveCloses 当前连续平仓次数
func (s *State) ConsecutiveCloses() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.consecutiveCloses
}

// InCoolDown 是否处于平仓后的时间冷静期
func (s *State) InCoolDown(now time.Time) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return now.Before(s.coolDownUntil)
}

// Halt 进入永久停机状态（需人工重启）
func (s *State) Halt(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.halted = true
	s.haltReason = reason
}

// Halted 是否已停机
func (s *State) Halted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.halted
}

// HaltReason 停机原因
func (s *State) HaltReason() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.haltReason
}
