package market

import (
	"math"
	"testing"
)

func closesToKlines(closes []float64) []Kline {
	klines := make([]Kline, len(closes))
	for i, c := range closes {
		klines[i] = Kline{Open: c, High: c + 1, Low: c - 1, Close: c}
	}
	return klines
}

func TestCalculateRSIInsufficientData(t *testing.T) {
	klines := closesToKlines([]float64{100, 101, 102})
	if rsi := CalculateRSI(klines, 14); !math.IsNaN(rsi) {
		t.Fatalf("数据不足时应返回NaN, got %v", rsi)
	}
}

func TestCalculateRSIAllGains(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	rsi := CalculateRSI(closesToKlines(closes), 14)
	if rsi != 100 {
		t.Fatalf("持续上涨RSI应为100, got %v", rsi)
	}
}

func TestCalculateRSIRange(t *testing.T) {
	closes := []float64{100, 102, 101, 103, 99, 104, 98, 105, 102, 100,
		101, 103, 102, 104, 101, 99, 100, 102, 103, 101}
	rsi := CalculateRSI(closesToKlines(closes), 14)
	if math.IsNaN(rsi) || rsi < 0 || rsi > 100 {
		t.Fatalf("RSI超出范围: %v", rsi)
	}
}

func TestCalculateADXInsufficientData(t *testing.T) {
	klines := closesToKlines([]float64{100, 101, 102, 103, 104})
	if adx := CalculateADX(klines, 14); !math.IsNaN(adx) {
		t.Fatalf("数据不足时应返回NaN, got %v", adx)
	}
}

func TestCalculateADXTrendingMarket(t *testing.T) {
	// 单边上涨趋势，ADX应显著高于震荡行情
	trend := make([]float64, 60)
	for i := range trend {
		trend[i] = 100 + float64(i)*2
	}
	chop := make([]float64, 60)
	for i := range chop {
		if i%2 == 0 {
			chop[i] = 100
		} else {
			chop[i] = 101
		}
	}

	adxTrend := CalculateADX(closesToKlines(trend), 14)
	adxChop := CalculateADX(closesToKlines(chop), 14)
	if math.IsNaN(adxTrend) || math.IsNaN(adxChop) {
		t.Fatal("ADX不应为NaN")
	}
	if adxTrend <= adxChop {
		t.Fatalf("趋势行情ADX(%v)应高于震荡行情ADX(%v)", adxTrend, adxChop)
	}
	if adxTrend < 0 || adxTrend > 100 {
		t.Fatalf("ADX超出范围: %v", adxTrend)
	}
}
