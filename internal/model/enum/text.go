package enum

import (
	"database/sql/driver"
	"fmt"
)

type textEnum interface {
	Side | OrderType | Status
}

func marshalText(name string, ok bool, kind string) ([]byte, error) {
	if !ok {
		return nil, fmt.Errorf("marshal %s: value is not available", kind)
	}
	return []byte(name), nil
}

func unmarshalText[T textEnum](dst *T, v T, ok bool, raw []byte, kind string) error {
	if !ok {
		return fmt.Errorf("unknown %s %q", kind, raw)
	}
	*dst = v
	return nil
}

func scanText(src any, kind string) ([]byte, error) {
	switch v := src.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	default:
		return nil, fmt.Errorf("scan %s: unsupported type %T", kind, src)
	}
}

// Enums are persisted by name.

func (s Side) Value() (driver.Value, error)      { return s.String(), nil }
func (t OrderType) Value() (driver.Value, error) { return t.String(), nil }
func (s Status) Value() (driver.Value, error)    { return s.String(), nil }

func (s *Side) Scan(src any) error {
	b, err := scanText(src, "side")
	if err != nil {
		return err
	}
	return s.UnmarshalText(b)
}

func (t *OrderType) Scan(src any) error {
	b, err := scanText(src, "order type")
	if err != nil {
		return err
	}
	return t.UnmarshalText(b)
}

func (s *Status) Scan(src any) error {
	b, err := scanText(src, "status")
	if err != nil {
		return err
	}
	return s.UnmarshalText(b)
}
