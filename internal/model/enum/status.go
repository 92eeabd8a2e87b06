package enum

type Status uint8

const (
	_status_beg Status = iota
	StatusNew
	StatusPartiallyFilled
	StatusFilled
	StatusCanceled
	StatusRejected
	_status_end
)

var _statusNames = [...]string{
	StatusNew:             "NEW",
	StatusPartiallyFilled: "PARTIALLY_FILLED",
	StatusFilled:          "FILLED",
	StatusCanceled:        "CANCELED",
	StatusRejected:        "REJECTED",
}

func (s Status) IsAvailable() bool {
	return s > _status_beg && s < _status_end
}

// IsTerminal reports whether the status accepts no further transition.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusFilled, StatusCanceled, StatusRejected:
		return true
	default:
		return false
	}
}

// IsOpen reports whether the fill engine still works on the order.
func (s Status) IsOpen() bool {
	return s == StatusNew || s == StatusPartiallyFilled
}

func (s Status) String() string {
	if !s.IsAvailable() {
		return ""
	}
	return _statusNames[s]
}

func ParseStatus(name string) (Status, bool) {
	for s := _status_beg + 1; s < _status_end; s++ {
		if _statusNames[s] == name {
			return s, true
		}
	}
	return _status_beg, false
}

func OpenStatuses() []Status {
	return []Status{StatusNew, StatusPartiallyFilled}
}

func (s Status) MarshalText() ([]byte, error) {
	return marshalText(s.String(), s.IsAvailable(), "status")
}

func (s *Status) UnmarshalText(b []byte) error {
	v, ok := ParseStatus(string(b))
	return unmarshalText(s, v, ok, b, "status")
}
