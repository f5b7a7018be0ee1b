package exchange

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaperAdapter 模拟盘适配器：订单和持仓全部保存在内存中，
// 用于离线验证策略逻辑以及单元测试。
type PaperAdapter struct {
	mu sync.Mutex

	ticker    Ticker
	orders    map[string]*OpenOrder // orderID -> 挂单
	position  decimal.Decimal       // 正=多头，负=空头
	entry     int64
	balance   Balance
	rejectAll bool // 测试用：强制拒单
}

// NewPaperAdapter 创建模拟盘适配器
func NewPaperAdapter(symbol string, initialBalance float64) *PaperAdapter {
	return &PaperAdapter{
		ticker: Ticker{Symbol: symbol},
		orders: make(map[string]*OpenOrder),
		balance: Balance{
			Total:     initialBalance,
			Available: initialBalance,
		},
	}
}

func (p *PaperAdapter) Name() string { return "paper" }

// SetTicker 注入行情（模拟盘由外部驱动价格）
func (p *PaperAdapter) SetTicker(last, bid, ask int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ticker.LastPrice = last
	p.ticker.BidPrice = bid
	p.ticker.AskPrice = ask
	p.ticker.Timestamp = time.Now().UnixMilli()
}

// SetBalance 注入余额
func (p *PaperAdapter) SetBalance(total, available float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.balance = Balance{Total: total, Available: available}
}

// SetRejectAll 强制后续下单全部被拒（测试故障路径）
func (p *PaperAdapter) SetRejectAll(reject bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rejectAll = reject
}

// FillOrder 模拟指定订单全部成交并更新持仓
func (p *PaperAdapter) FillOrder(orderID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	order, ok := p.orders[orderID]
	if !ok {
		return ErrOrderNotFound
	}

	qty := order.Quantity
	if order.Side == SideSell {
		qty = qty.Neg()
	}
	p.position = p.position.Add(qty)
	p.entry = order.Price
	order.Status = StatusFilled
	order.Filled = order.Quantity
	delete(p.orders, orderID)
	return nil
}

func (p *PaperAdapter) GetTicker(symbol string) (*Ticker, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ticker.LastPrice <= 0 {
		return nil, fmt.Errorf("模拟盘未注入行情 [%s]", symbol)
	}
	t := p.ticker
	t.Symbol = symbol
	return &t, nil
}

func (p *PaperAdapter) GetPositions(symbol string) ([]Position, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.position.IsZero() {
		return nil, nil
	}
	return []Position{{
		Symbol:     symbol,
		Quantity:   p.position,
		EntryPrice: p.entry,
		MarkPrice:  p.ticker.LastPrice,
	}}, nil
}

func (p *PaperAdapter) GetOpenOrders(symbol string) ([]OpenOrder, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	orders := make([]OpenOrder, 0, len(p.orders))
	for _, o := range p.orders {
		orders = append(orders, *o)
	}
	return orders, nil
}

func (p *PaperAdapter) PlaceOrder(req *PlaceOrderRequest) (*OrderResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.rejectAll {
		return nil, &RejectionError{Symbol: req.Symbol, Reason: "模拟拒单"}
	}
	if req.Quantity.LessThanOrEqual(decimal.Zero) {
		return nil, &RejectionError{Symbol: req.Symbol, Reason: "订单数量必须大于0"}
	}

	// 市价单立即按最新价成交
	if req.Type == TypeMarket {
		qty := req.Quantity
		if req.Side == SideSell {
			qty = qty.Neg()
		}
		if req.ReduceOnly {
			// 只减仓：成交量不超过当前持仓
			if p.position.Sign() == qty.Sign() || p.position.IsZero() {
				return nil, &RejectionError{Symbol: req.Symbol, Reason: "只减仓订单方向与持仓不符"}
			}
			if qty.Abs().GreaterThan(p.position.Abs()) {
				qty = p.position.Neg()
			}
		}
		p.position = p.position.Add(qty)
		return &OrderResult{OrderID: uuid.New().String(), Status: StatusFilled}, nil
	}

	order := &OpenOrder{
		OrderID:   uuid.New().String(),
		Symbol:    req.Symbol,
		Side:      req.Side,
		Price:     req.Price,
		Quantity:  req.Quantity,
		Status:    StatusOpen,
		CreatedAt: time.Now().UnixMilli(),
	}
	p.orders[order.OrderID] = order
	return &OrderResult{OrderID: order.OrderID, Status: StatusOpen}, nil
}

func (p *PaperAdapter) CancelOrder(symbol, orderID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.orders[orderID]; !ok {
		return ErrOrderNotFound
	}
	delete(p.orders, orderID)
	return nil
}

func (p *PaperAdapter) CancelOrdersByIDs(symbol string, orderIDs []string) map[string]error {
	result := make(map[string]error, len(orderIDs))
	for _, id := range orderIDs {
		result[id] = p.CancelOrder(symbol, id)
	}
	return result
}

func (p *PaperAdapter) CancelAllOrders(symbol string) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	count := len(p.orders)
	p.orders = make(map[string]*OpenOrder)
	return count, nil
}

func (p *PaperAdapter) ClosePosition(symbol string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.position = decimal.Zero
	p.entry = 0
	return nil
}

func (p *PaperAdapter) GetBalance() (*Balance, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	b := p.balance
	return &b, nil
}
