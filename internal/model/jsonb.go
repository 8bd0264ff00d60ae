package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// StringList is a JSONB-backed ordered list of strings.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *StringList) Scan(src interface{}) error {
	return scanJSON(src, l)
}

// RawDocument carries an opaque JSON value (e.g. a format-dependent answer key).
type RawDocument json.RawMessage

func (d RawDocument) Value() (driver.Value, error) {
	if len(d) == 0 {
		return nil, nil
	}
	return string(d), nil
}

func (d *RawDocument) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*d = nil
		return nil
	case []byte:
		*d = append((*d)[:0], v...)
		return nil
	case string:
		*d = RawDocument(v)
		return nil
	default:
		return fmt.Errorf("cannot scan %T into RawDocument", src)
	}
}

func (d RawDocument) MarshalJSON() ([]byte, error) {
	if len(d) == 0 {
		return []byte("null"), nil
	}
	return d, nil
}

func (d *RawDocument) UnmarshalJSON(b []byte) error {
	*d = append((*d)[:0], b...)
	return nil
}

func (WeightSet) GormDataType() string       { return "jsonb" }
func (CutScoreSet) GormDataType() string     { return "jsonb" }
func (AntiCheatConfig) GormDataType() string { return "jsonb" }
func (StringList) GormDataType() string      { return "jsonb" }
func (RawDocument) GormDataType() string     { return "jsonb" }
func (ResponseMap) GormDataType() string     { return "jsonb" }
func (ScoreMap) GormDataType() string        { return "jsonb" }

func (w WeightSet) Value() (driver.Value, error)       { return marshalJSON(w) }
func (w *WeightSet) Scan(src interface{}) error        { return scanJSON(src, w) }
func (c CutScoreSet) Value() (driver.Value, error)     { return marshalJSON(c) }
func (c *CutScoreSet) Scan(src interface{}) error      { return scanJSON(src, c) }
func (a AntiCheatConfig) Value() (driver.Value, error) { return marshalJSON(a) }
func (a *AntiCheatConfig) Scan(src interface{}) error  { return scanJSON(src, a) }
func (m ResponseMap) Value() (driver.Value, error)     { return marshalJSON(m) }
func (m *ResponseMap) Scan(src interface{}) error      { return scanJSON(src, m) }
func (m ScoreMap) Value() (driver.Value, error)        { return marshalJSON(m) }
func (m *ScoreMap) Scan(src interface{}) error         { return scanJSON(src, m) }

func marshalJSON(v interface{}) (driver.Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func scanJSON(src, dst interface{}) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("cannot scan %T into %T", src, dst)
	}
}
