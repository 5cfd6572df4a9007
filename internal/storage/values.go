package storage

import (
	"encoding/json"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kyleking/schemaflow/internal/schema"
)

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}

// encodeValue converts a record value into a driver argument for a column
func encodeValue(column schema.ColumnDefinition, value any) (any, error) {
	if value == nil {
		return nil, nil
	}

	switch column.Type {
	case schema.TypeDate:
		if s, ok := value.(string); ok {
			if t, ok := parseDate(s); ok {
				return t, nil
			}
		}

		return value, nil
	case schema.TypeJSON:
		data, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}

		return string(data), nil
	case schema.TypeString, schema.TypeText:
		switch reflect.ValueOf(value).Kind() {
		case reflect.Slice, reflect.Array, reflect.Map, reflect.Struct:
			data, err := json.Marshal(value)
			if err != nil {
				return nil, err
			}

			return string(data), nil
		}
	}

	return value, nil
}

type float64er interface {
	Float64() float64
}

// normalizeValue maps a scanned driver value onto the Go type of its column
func normalizeValue(column schema.ColumnDefinition, value any) any {
	if value == nil {
		return nil
	}

	if b, ok := value.([]byte); ok {
		value = string(b)
	}

	switch column.Type {
	case schema.TypeNumber:
		return toInt64(value)
	case schema.TypeFloat, schema.TypeDecimal:
		return toFloat64(value)
	case schema.TypeBoolean:
		switch v := value.(type) {
		case bool:
			return v
		case string:
			return v == "1" || strings.EqualFold(v, "true") || strings.EqualFold(v, "t")
		default:
			return toInt64(v) != int64(0)
		}
	case schema.TypeDate:
		if s, ok := value.(string); ok {
			if t, ok := parseDate(s); ok {
				return t
			}
		}
	case schema.TypeUUID:
		if b, ok := value.([16]byte); ok {
			return uuid.UUID(b).String()
		}
	case schema.TypeJSON:
		if s, ok := value.(string); ok {
			var decoded any
			if err := json.Unmarshal([]byte(s), &decoded); err == nil {
				return decoded
			}
		}
	}

	return value
}

func toInt64(value any) any {
	rv := reflect.ValueOf(value)

	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return int64(rv.Float())
	case reflect.String:
		if n, err := strconv.ParseInt(rv.String(), 10, 64); err == nil {
			return n
		}
	}

	return value
}

func toFloat64(value any) any {
	if f, ok := value.(float64er); ok {
		return f.Float64()
	}

	rv := reflect.ValueOf(value)

	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	case reflect.String:
		if f, err := strconv.ParseFloat(rv.String(), 64); err == nil {
			return f
		}
	}

	return value
}
