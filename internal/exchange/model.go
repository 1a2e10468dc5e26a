package exchange

import "fmt"

// Symbol is a tradable pair's base/quote split, e.g. {BTC, USDT}.
type Symbol struct {
	Base  string
	Quote string
}

func (s Symbol) String() string {
	return fmt.Sprintf("%s%s", s.Base, s.Quote)
}

// Order is a venue order as returned by place-order or order-status.
type Order struct {
	Symbol      Symbol
	OrderID     string
	Price       string
	OrigQty     string
	Executed    string
	Status      OrderStatus
	TimeInForce TimeInForce
	Type        OrderType
	Side        OrderSide
	CreatedAt   int64
}
