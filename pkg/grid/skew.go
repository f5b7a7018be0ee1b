package grid

import "math"

// AdjustCounts 根据当前持仓计算买卖两侧的网格层数。
// 持仓偏多时削减买方层数、增加卖方层数，反之亦然，使网格自然回归中性。
// maxPosition为0时视为无偏移；持仓比例截断在[-1, 1]。
func AdjustCounts(position, maxPosition float64, gridCount int) (buyCount, sellCount int) {
	if gridCount <= 0 {
		return 0, 0
	}

	ratio := 0.0
	if maxPosition != 0 {
		ratio = position / maxPosition
	}
	if ratio > 1 {
		ratio = 1
	} else if ratio < -1 {
		ratio = -1
	}

	bias := ratio * 0.5
	buyCount = int(math.Round(float64(gridCount)/2 - bias*float64(gridCount)))
	if buyCount < 0 {
		buyCount = 0
	} else if buyCount > gridCount {
		buyCount = gridCount
	}
	sellCount = gridCount - buyCount
	return buyCount, sellCount
}
