package grid

// Params 网格生成参数
type Params struct {
	PriceStep int64 // 网格间距，必须大于0
	GridCount int   // 每侧层数
	Spread    int64 // 基准价相对当前价的偏移
}

// Levels 一次生成的买卖网格
type Levels struct {
	Buy  []int64 // 严格递减，全部低于当前价
	Sell []int64 // 严格递增，全部高于当前价
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

func ceilDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) == (b < 0) {
		q++
	}
	return q
}

// BidBase 计算买方基准价：向下对齐到网格间距，且必须严格低于当前价
func BidBase(currentPrice, priceStep, spread int64) int64 {
	base := floorDiv(currentPrice-spread, priceStep) * priceStep
	if base >= currentPrice {
		base -= priceStep
	}
	return base
}

// AskBase 计算卖方基准价：向上对齐到网格间距，且必须严格高于当前价
func AskBase(currentPrice, priceStep, spread int64) int64 {
	base := ceilDiv(currentPrice+spread, priceStep) * priceStep
	if base <= currentPrice {
		base += priceStep
	}
	return base
}

// Generate 以当前价为中心生成对称网格。
// 买方从基准价逐层向下，卖方从基准价逐层向上，所有价格均为间距的整数倍。
// 非正的买方价格层会被丢弃。
func Generate(currentPrice int64, p Params) Levels {
	levels := Levels{
		Buy:  make([]int64, 0, p.GridCount),
		Sell: make([]int64, 0, p.GridCount),
	}
	if p.PriceStep <= 0 || p.GridCount <= 0 || currentPrice <= 0 {
		return levels
	}

	bidBase := BidBase(currentPrice, p.PriceStep, p.Spread)
	askBase := AskBase(currentPrice, p.PriceStep, p.Spread)

	for i := 0; i < p.GridCount; i++ {
		buyPrice := bidBase - int64(i)*p.PriceStep
		if buyPrice > 0 {
			levels.Buy = append(levels.Buy, buyPrice)
		}
		levels.Sell = append(levels.Sell, askBase+int64(i)*p.PriceStep)
	}

	return levels
}

// FilterByDistance 过滤掉距离当前价过近的价格层（仅作用于新挂单，
// 已有挂单的撤单判断不经过该过滤）
func FilterByDistance(prices []int64, currentPrice, minDistance int64) []int64 {
	if minDistance <= 0 {
		return prices
	}
	filtered := make([]int64, 0, len(prices))
	for _, price := range prices {
		diff := price - currentPrice
		if diff < 0 {
			diff = -diff
		}
		if diff >= minDistance {
			filtered = append(filtered, price)
		}
	}
	return filtered
}
