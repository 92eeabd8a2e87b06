package enum

type OrderType uint8

const (
	_order_type_beg OrderType = iota
	OrderTypeLimit
	OrderTypeMarket
	_order_type_end
)

var _orderTypeNames = [...]string{OrderTypeLimit: "LIMIT", OrderTypeMarket: "MARKET"}

func (t OrderType) IsAvailable() bool {
	return t > _order_type_beg && t < _order_type_end
}

func (t OrderType) String() string {
	if !t.IsAvailable() {
		return ""
	}
	return _orderTypeNames[t]
}

// OrDefault resolves an unset order type to LIMIT.
func (t OrderType) OrDefault() OrderType {
	if !t.IsAvailable() {
		return OrderTypeLimit
	}
	return t
}

func ParseOrderType(name string) (OrderType, bool) {
	for t := _order_type_beg + 1; t < _order_type_end; t++ {
		if _orderTypeNames[t] == name {
			return t, true
		}
	}
	return _order_type_beg, false
}

func (t OrderType) MarshalText() ([]byte, error) {
	return marshalText(t.String(), t.IsAvailable(), "order type")
}

func (t *OrderType) UnmarshalText(b []byte) error {
	v, ok := ParseOrderType(string(b))
	return unmarshalText(t, v, ok, b, "order type")
}
