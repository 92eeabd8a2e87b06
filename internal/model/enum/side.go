package enum

type Side uint8

const (
	_side_beg Side = iota
	SideBuy
	SideSell
	_side_end
)

var _sideNames = [...]string{SideBuy: "BUY", SideSell: "SELL"}

func (s Side) IsAvailable() bool {
	return s > _side_beg && s < _side_end
}

func (s Side) String() string {
	if !s.IsAvailable() {
		return ""
	}
	return _sideNames[s]
}

// ParseSide accepts the upper-case wire name. Unknown names return false.
func ParseSide(name string) (Side, bool) {
	for s := _side_beg + 1; s < _side_end; s++ {
		if _sideNames[s] == name {
			return s, true
		}
	}
	return _side_beg, false
}

func (s Side) MarshalText() ([]byte, error) {
	return marshalText(s.String(), s.IsAvailable(), "side")
}

func (s *Side) UnmarshalText(b []byte) error {
	v, ok := ParseSide(string(b))
	return unmarshalText(s, v, ok, b, "side")
}
