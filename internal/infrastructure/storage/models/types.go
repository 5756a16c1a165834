package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSONBMap stores a JSON object in a jsonb column.
type JSONBMap map[string]interface{}

// Value implements driver.Valuer.
func (m JSONBMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner.
func (m *JSONBMap) Scan(src interface{}) error {
	if src == nil {
		*m = nil
		return nil
	}

	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported jsonb source type %T", src)
	}

	return json.Unmarshal(data, m)
}
