package grid

import "sort"

// OpenOrdersByPrice 同一价格层可能存在多笔挂单（部分成交后补单等场景），
// 以价格为键聚合订单ID。
type OpenOrdersByPrice map[int64][]string

// Plan 一侧的调仓计划
type Plan struct {
	CancelIDs   []string // 需要撤销的订单ID（目标网格之外的价格层）
	PlacePrices []int64  // 需要新挂单的价格层（当前无挂单的目标价格）
}

// Reconcile 将当前挂单集合对齐到目标网格：
// 目标之外的价格层全部撤单，目标之中无挂单的价格层补单。
// 同一价格层的多笔挂单作为一个批次整体撤销。
// 纯集合差运算，重复执行不产生新动作（幂等）。
func Reconcile(open OpenOrdersByPrice, targetPrices []int64) Plan {
	target := make(map[int64]bool, len(targetPrices))
	for _, price := range targetPrices {
		target[price] = true
	}

	plan := Plan{}

	// 撤单：挂单价格不在目标网格内
	cancelPrices := make([]int64, 0)
	for price := range open {
		if !target[price] {
			cancelPrices = append(cancelPrices, price)
		}
	}
	sort.Slice(cancelPrices, func(i, j int) bool { return cancelPrices[i] < cancelPrices[j] })
	for _, price := range cancelPrices {
		plan.CancelIDs = append(plan.CancelIDs, open[price]...)
	}

	// 补单：目标价格层当前无挂单
	for _, price := range targetPrices {
		if _, exists := open[price]; !exists {
			plan.PlacePrices = append(plan.PlacePrices, price)
		}
	}

	return plan
}
