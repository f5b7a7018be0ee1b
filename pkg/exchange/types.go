package exchange

import (
	"github.com/shopspring/decimal"
)

// OrderSide 订单方向
type OrderSide string

const (
	SideBuy  OrderSide = "buy"
	SideSell OrderSide = "sell"
)

// OrderType 订单类型
type OrderType string

const (
	TypeLimit  OrderType = "limit"
	TypeMarket OrderType = "market"
)

// OrderStatus 订单状态
type OrderStatus string

const (
	StatusPending         OrderStatus = "pending"
	StatusOpen            OrderStatus = "open"
	StatusPartiallyFilled OrderStatus = "partially_filled"
	StatusFilled          OrderStatus = "filled"
	StatusCancelled       OrderStatus = "cancelled"
	StatusRejected        OrderStatus = "rejected"
)

// IsResting 判断订单是否仍挂在盘口（pending/open/partially_filled）
func (s OrderStatus) IsResting() bool {
	return s == StatusPending || s == StatusOpen || s == StatusPartiallyFilled
}

// Ticker 行情快照
type Ticker struct {
	Symbol    string
	LastPrice int64 // 最新成交价（整数报价单位）
	BidPrice  int64 // 买一价
	AskPrice  int64 // 卖一价
	Timestamp int64 // 毫秒时间戳
}

// Position 持仓
type Position struct {
	Symbol     string
	Quantity   decimal.Decimal // 正=多头，负=空头
	EntryPrice int64
	MarkPrice  int64
	UnrealPnL  decimal.Decimal
}

// IsFlat 是否无持仓
func (p *Position) IsFlat() bool {
	return p.Quantity.IsZero()
}

// OpenOrder 挂单
type OpenOrder struct {
	OrderID   string
	Symbol    string
	Side      OrderSide
	Price     int64
	Quantity  decimal.Decimal
	Filled    decimal.Decimal
	Status    OrderStatus
	CreatedAt int64 // 毫秒时间戳
}

// Balance 账户余额
type Balance struct {
	Total     float64 // 总权益
	Available float64 // 可用余额
}

// PlaceOrderRequest 下单请求
type PlaceOrderRequest struct {
	Symbol     string
	Side       OrderSide
	Type       OrderType
	Price      int64           // 限价单价格（市价单忽略）
	Quantity   decimal.Decimal // 订单数量
	ReduceOnly bool            // 只减仓
}

// OrderResult 下单结果
type OrderResult struct {
	OrderID string
	Status  OrderStatus
}

// Adapter 交易所适配器接口。
// 所有实现必须保证方法并发安全；网络超时由适配器内部控制。
type Adapter interface {
	// Name 适配器名称
	Name() string

	// GetTicker 获取行情快照
	GetTicker(symbol string) (*Ticker, error)

	// GetPositions 获取全部持仓（无持仓返回空切片）
	GetPositions(symbol string) ([]Position, error)

	// GetOpenOrders 获取全部挂单
	GetOpenOrders(symbol string) ([]OpenOrder, error)

	// PlaceOrder 下单
	PlaceOrder(req *PlaceOrderRequest) (*OrderResult, error)

	// CancelOrder 撤销单个订单
	CancelOrder(symbol, orderID string) error

	// CancelOrdersByIDs 批量撤单，返回每个订单ID对应的错误（nil=成功）
	CancelOrdersByIDs(symbol string, orderIDs []string) map[string]error

	// CancelAllOrders 撤销该交易对全部挂单，返回撤销数量
	CancelAllOrders(symbol string) (int, error)

	// ClosePosition 市价平掉该交易对全部持仓
	ClosePosition(symbol string) error

	// GetBalance 获取账户余额
	GetBalance() (*Balance, error)
}
