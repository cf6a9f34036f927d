package mav

import (
	"reflect"
	"strconv"

	"github.com/bluenviron/gomavlib/v3/pkg/message"
)

// EncodeMessage flattens a typed message into a JSON-safe map. 64-bit
// integers become decimal strings so they survive the JSON number round
// trip through JavaScript consumers.
func EncodeMessage(msg message.Message) map[string]any {
	if raw, ok := msg.(*message.MessageRaw); ok {
		return map[string]any{"payload": raw.Payload}
	}

	rv := reflect.ValueOf(msg)
	if rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}

	out := make(map[string]any, rv.NumField())
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		if !f.IsExported() {
			continue
		}
		out[f.Name] = encodeValue(rv.Field(i))
	}
	return out
}

func encodeValue(v reflect.Value) any {
	switch v.Kind() {
	case reflect.Int64:
		return strconv.FormatInt(v.Int(), 10)
	case reflect.Uint64:
		return strconv.FormatUint(v.Uint(), 10)
	case reflect.Slice, reflect.Array:
		n := v.Len()
		out := make([]any, n)
		for i := 0; i < n; i++ {
			out[i] = encodeValue(v.Index(i))
		}
		return out
	default:
		return v.Interface()
	}
}
