package market

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// Kline K线数据
type Kline struct {
	OpenTime  int64
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	CloseTime int64
}

// KlineProvider K线数据源接口
type KlineProvider interface {
	// GetKlines 获取最近limit根K线（时间升序）
	GetKlines(symbol, interval string, limit int) ([]Kline, error)
}

// BinanceKlineProvider 从Binance期货API获取K线
type BinanceKlineProvider struct {
	baseURL string
	client  *http.Client
}

// NewBinanceKlineProvider 创建Binance K线数据源
func NewBinanceKlineProvider() *BinanceKlineProvider {
	return &BinanceKlineProvider{
		baseURL: "https://fapi.binance.com",
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// GetKlines 获取K线数据
func (p *BinanceKlineProvider) GetKlines(symbol, interval string, limit int) ([]Kline, error) {
	url := fmt.Sprintf("%s/fapi/v1/klines?symbol=%s&interval=%s&limit=%d",
		p.baseURL, symbol, interval, limit)

	resp, err := p.client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("请求K线数据失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("K线接口返回异常状态码: %d", resp.StatusCode)
	}

	var rawKlines [][]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&rawKlines); err != nil {
		return nil, fmt.Errorf("解析K线数据失败: %w", err)
	}

	klines := make([]Kline, 0, len(rawKlines))
	for _, raw := range rawKlines {
		if len(raw) < 7 {
			continue
		}

		kline := Kline{
			OpenTime:  int64(toFloat(raw[0])),
			Open:      parseFloat(raw[1]),
			High:      parseFloat(raw[2]),
			Low:       parseFloat(raw[3]),
			Close:     parseFloat(raw[4]),
			Volume:    parseFloat(raw[5]),
			CloseTime: int64(toFloat(raw[6])),
		}
		klines = append(klines, kline)
	}

	if len(klines) == 0 {
		return nil, fmt.Errorf("K线数据为空 [%s %s]", symbol, interval)
	}

	return klines, nil
}

func toFloat(v interface{}) float64 {
	f, _ := v.(float64)
	return f
}

func parseFloat(v interface{}) float64 {
	s, ok := v.(string)
	if !ok {
		return toFloat(v)
	}
	f, _ := strconv.ParseFloat(s, 64)
	return f
}
