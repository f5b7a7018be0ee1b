package exchange

import (
	"errors"
	"fmt"
)

// 适配器通用错误
var (
	// ErrNotImplemented 适配器未实现该能力
	ErrNotImplemented = errors.New("适配器未实现该操作")

	// ErrOrderNotFound 订单不存在（已成交或已撤销的订单视为不存在）
	ErrOrderNotFound = errors.New("订单不存在")

	// ErrInsufficientBalance 余额不足
	ErrInsufficientBalance = errors.New("余额不足")
)

// RejectionError 交易所拒单错误，保留拒单原因供审计日志记录
type RejectionError struct {
	Symbol string
	Reason string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("订单被拒绝 [%s]: %s", e.Symbol, e.Reason)
}

// IsRejection 判断错误是否为拒单
func IsRejection(err error) bool {
	var re *RejectionError
	return errors.As(err, &re)
}
