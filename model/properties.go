package model

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"sort"

	"github.com/siherrmann/linkgraph/helper"
)

// Properties represents the JSONB property object of an entity version
type Properties map[string]interface{}

// Value implements the driver.Valuer interface for database storage
func (p Properties) Value() (driver.Value, error) {
	if p == nil {
		return []byte("{}"), nil
	}
	return p.Marshal()
}

// Scan implements the sql.Scanner interface for database retrieval
func (p *Properties) Scan(value interface{}) error {
	return p.Unmarshal(value)
}

// Marshal converts Properties to JSON bytes
func (p Properties) Marshal() ([]byte, error) {
	return json.Marshal(p)
}

// Unmarshal converts JSON bytes, a JSON string or Properties to Properties
func (p *Properties) Unmarshal(value interface{}) error {
	if value == nil {
		*p = Properties{}
		return nil
	}

	switch v := value.(type) {
	case Properties:
		*p = v
		return nil
	case map[string]interface{}:
		*p = Properties(v)
		return nil
	case string:
		value = []byte(v)
	}

	b, ok := value.([]byte)
	if !ok {
		return helper.NewError("byte assertion", errors.New("type assertion to []byte failed"))
	}

	return json.Unmarshal(b, p)
}

// MarshalJSONB converts Properties to JSON bytes with object keys in the order
// a PostgreSQL JSONB column keeps them: shorter keys first, keys of equal
// length compared bytewise. Nested objects are ordered the same way.
func (p Properties) MarshalJSONB() ([]byte, error) {
	if p == nil {
		return []byte("{}"), nil
	}

	var buf bytes.Buffer
	err := writeJSONB(&buf, map[string]interface{}(p))
	if err != nil {
		return nil, helper.NewError("marshal jsonb", err)
	}
	return buf.Bytes(), nil
}

func writeJSONB(buf *bytes.Buffer, value interface{}) error {
	switch v := value.(type) {
	case Properties:
		return writeJSONB(buf, map[string]interface{}(v))
	case map[string]interface{}:
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		sort.Slice(keys, func(i, j int) bool {
			if len(keys[i]) != len(keys[j]) {
				return len(keys[i]) < len(keys[j])
			}
			return keys[i] < keys[j]
		})

		buf.WriteByte('{')
		for i, key := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			encodedKey, err := json.Marshal(key)
			if err != nil {
				return err
			}
			buf.Write(encodedKey)
			buf.WriteByte(':')
			err = writeJSONB(buf, v[key])
			if err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case []interface{}:
		buf.WriteByte('[')
		for i, item := range v {
			if i > 0 {
				buf.WriteByte(',')
			}
			err := writeJSONB(buf, item)
			if err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return err
		}
		buf.Write(encoded)
	}
	return nil
}
