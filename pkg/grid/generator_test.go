package grid

import (
	"reflect"
	"testing"
)

func TestGenerateSymmetricLadder(t *testing.T) {
	levels := Generate(90000, Params{PriceStep: 1500, GridCount: 5, Spread: 0})

	wantBuy := []int64{88500, 87000, 85500, 84000, 82500}
	wantSell := []int64{91500, 93000, 94500, 96000, 97500}

	if !reflect.DeepEqual(levels.Buy, wantBuy) {
		t.Errorf("买方网格不匹配: got %v, want %v", levels.Buy, wantBuy)
	}
	if !reflect.DeepEqual(levels.Sell, wantSell) {
		t.Errorf("卖方网格不匹配: got %v, want %v", levels.Sell, wantSell)
	}
}

func TestGenerateOffGridPrice(t *testing.T) {
	// 当前价不在网格线上：买方向下取整，卖方向上取整
	levels := Generate(90700, Params{PriceStep: 1500, GridCount: 2, Spread: 0})

	wantBuy := []int64{90000, 88500}
	wantSell := []int64{91500, 93000}

	if !reflect.DeepEqual(levels.Buy, wantBuy) {
		t.Errorf("买方网格不匹配: got %v, want %v", levels.Buy, wantBuy)
	}
	if !reflect.DeepEqual(levels.Sell, wantSell) {
		t.Errorf("卖方网格不匹配: got %v, want %v", levels.Sell, wantSell)
	}
}

func TestGenerateAllLevelsAreStepMultiples(t *testing.T) {
	step := int64(250)
	levels := Generate(99123, Params{PriceStep: step, GridCount: 8, Spread: 100})

	for _, price := range append(append([]int64{}, levels.Buy...), levels.Sell...) {
		if price%step != 0 {
			t.Errorf("价格 %d 不是间距 %d 的整数倍", price, step)
		}
	}
	for _, price := range levels.Buy {
		if price >= 99123 {
			t.Errorf("买方价格 %d 不低于当前价", price)
		}
	}
	for _, price := range levels.Sell {
		if price <= 99123 {
			t.Errorf("卖方价格 %d 不高于当前价", price)
		}
	}
}

func TestGenerateSpreadShiftsBases(t *testing.T) {
	// spread把买方基准进一步压低、卖方基准进一步抬高
	plain := Generate(90000, Params{PriceStep: 1500, GridCount: 1, Spread: 0})
	spread := Generate(90000, Params{PriceStep: 1500, GridCount: 1, Spread: 1600})

	if spread.Buy[0] >= plain.Buy[0] {
		t.Errorf("spread应压低买方基准: %d >= %d", spread.Buy[0], plain.Buy[0])
	}
	if spread.Sell[0] <= plain.Sell[0] {
		t.Errorf("spread应抬高卖方基准: %d <= %d", spread.Sell[0], plain.Sell[0])
	}
}

func TestGenerateDropsNonPositiveBuyLevels(t *testing.T) {
	levels := Generate(2000, Params{PriceStep: 1500, GridCount: 5, Spread: 0})
	for _, price := range levels.Buy {
		if price <= 0 {
			t.Errorf("买方网格出现非正价格: %d", price)
		}
	}
	if len(levels.Sell) != 5 {
		t.Errorf("卖方网格层数不应受影响: got %d", len(levels.Sell))
	}
}

func TestFilterByDistance(t *testing.T) {
	prices := []int64{88500, 89500, 90500, 91500}
	filtered := FilterByDistance(prices, 90000, 1000)

	want := []int64{88500, 91500}
	if !reflect.DeepEqual(filtered, want) {
		t.Errorf("距离过滤不匹配: got %v, want %v", filtered, want)
	}

	// minDistance=0 时不过滤
	if got := FilterByDistance(prices, 90000, 0); !reflect.DeepEqual(got, prices) {
		t.Errorf("零距离不应过滤: got %v", got)
	}
}
