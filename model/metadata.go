package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/siherrmann/radar/helper"
)

// Metadata is a free-form JSONB column: entity details and connection provenance.
type Metadata map[string]interface{}

// Value stores nil metadata as an empty object so the column stays NOT NULL.
func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

// Scan reads a JSONB column. NULL scans to an empty map.
func (m *Metadata) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*m = Metadata{}
		return nil
	case Metadata:
		*m = v
		return nil
	case []byte:
		return m.decode(v)
	case string:
		return m.decode([]byte(v))
	default:
		return helper.NewError("scan metadata", fmt.Errorf("unsupported type %T", value))
	}
}

func (m *Metadata) decode(b []byte) error {
	decoded := Metadata{}
	if err := json.Unmarshal(b, &decoded); err != nil {
		return helper.NewError("decode metadata", err)
	}
	*m = decoded
	return nil
}

// String returns the string stored under key, or "".
func (m Metadata) String(key string) string {
	s, _ := m[key].(string)
	return s
}
