package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Value implements driver.Valuer so UserMeta can be stored as a jsonb column.
func (m UserMeta) Value() (driver.Value, error) {
	return json.Marshal(m)
}

// Scan implements sql.Scanner for reading a jsonb column back into UserMeta.
func (m *UserMeta) Scan(src any) error {
	if src == nil {
		*m = UserMeta{}
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("models: cannot scan %T into UserMeta", src)
	}
	if len(raw) == 0 {
		*m = UserMeta{}
		return nil
	}
	return json.Unmarshal(raw, m)
}

// Value implements driver.Valuer so MessageMeta can be stored as jsonb.
func (m MessageMeta) Value() (driver.Value, error) {
	return json.Marshal(m)
}

// Scan implements sql.Scanner for reading a jsonb column back into MessageMeta.
func (m *MessageMeta) Scan(src any) error {
	if src == nil {
		*m = MessageMeta{}
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("models: cannot scan %T into MessageMeta", src)
	}
	if len(raw) == 0 {
		*m = MessageMeta{}
		return nil
	}
	return json.Unmarshal(raw, m)
}

// JSONMap is a generic jsonb payload, used by Notification.Payload.
type JSONMap map[string]any

// Value implements driver.Valuer for a jsonb map column.
func (p JSONMap) Value() (driver.Value, error) {
	if p == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(map[string]any(p))
}

// Scan implements sql.Scanner for reading a jsonb column back into a JSONMap.
func (p *JSONMap) Scan(src any) error {
	if src == nil {
		*p = JSONMap{}
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("models: cannot scan %T into JSONMap", src)
	}
	if len(raw) == 0 {
		*p = JSONMap{}
		return nil
	}
	return json.Unmarshal(raw, p)
}
