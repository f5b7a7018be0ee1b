package market

import "math"

// CalculateRSI 计算RSI（Wilder平滑）
// 数据不足时返回NaN，调用方需要检查
func CalculateRSI(klines []Kline, period int) float64 {
	if len(klines) <= period {
		return math.NaN()
	}

	gains := 0.0
	losses := 0.0

	// 计算初始平均涨跌幅
	for i := 1; i <= period; i++ {
		change := klines[i].Close - klines[i-1].Close
		if change > 0 {
			gains += change
		} else {
			losses += -change
		}
	}

	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)

	// 使用Wilder平滑方法计算后续RSI
	for i := period + 1; i < len(klines); i++ {
		change := klines[i].Close - klines[i-1].Close
		if change > 0 {
			avgGain = (avgGain*float64(period-1) + change) / float64(period)
			avgLoss = (avgLoss * float64(period-1)) / float64(period)
		} else {
			avgGain = (avgGain * float64(period-1)) / float64(period)
			avgLoss = (avgLoss*float64(period-1) + (-change)) / float64(period)
		}
	}

	if avgLoss == 0 {
		return 100
	}

	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

// CalculateADX 计算ADX（Wilder平滑）
// 需要至少 2*period+1 根K线，数据不足时返回NaN
func CalculateADX(klines []Kline, period int) float64 {
	if len(klines) < 2*period+1 {
		return math.NaN()
	}

	n := len(klines)
	trs := make([]float64, n)
	plusDMs := make([]float64, n)
	minusDMs := make([]float64, n)

	for i := 1; i < n; i++ {
		high := klines[i].High
		low := klines[i].Low
		prevHigh := klines[i-1].High
		prevLow := klines[i-1].Low
		prevClose := klines[i-1].Close

		tr1 := high - low
		tr2 := math.Abs(high - prevClose)
		tr3 := math.Abs(low - prevClose)
		trs[i] = math.Max(tr1, math.Max(tr2, tr3))

		upMove := high - prevHigh
		downMove := prevLow - low
		if upMove > downMove && upMove > 0 {
			plusDMs[i] = upMove
		}
		if downMove > upMove && downMove > 0 {
			minusDMs[i] = downMove
		}
	}

	// 初始平滑值
	var smTR, smPlusDM, smMinusDM float64
	for i := 1; i <= period; i++ {
		smTR += trs[i]
		smPlusDM += plusDMs[i]
		smMinusDM += minusDMs[i]
	}

	dxs := make([]float64, 0, n-period)
	dx := func() float64 {
		if smTR == 0 {
			return 0
		}
		plusDI := 100 * smPlusDM / smTR
		minusDI := 100 * smMinusDM / smTR
		if plusDI+minusDI == 0 {
			return 0
		}
		return 100 * math.Abs(plusDI-minusDI) / (plusDI + minusDI)
	}
	dxs = append(dxs, dx())

	// Wilder平滑后续值
	for i := period + 1; i < n; i++ {
		smTR = smTR - smTR/float64(period) + trs[i]
		smPlusDM = smPlusDM - smPlusDM/float64(period) + plusDMs[i]
		smMinusDM = smMinusDM - smMinusDM/float64(period) + minusDMs[i]
		dxs = append(dxs, dx())
	}

	if len(dxs) < period {
		return math.NaN()
	}

	// ADX = DX的Wilder平滑
	adx := 0.0
	for i := 0; i < period; i++ {
		adx += dxs[i]
	}
	adx /= float64(period)
	for i := period; i < len(dxs); i++ {
		adx = (adx*float64(period-1) + dxs[i]) / float64(period)
	}

	return adx
}
