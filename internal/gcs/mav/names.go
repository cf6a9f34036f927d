package mav

import (
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/bluenviron/gomavlib/v3/pkg/dialects/common"
	"github.com/bluenviron/gomavlib/v3/pkg/message"
)

// MessageName returns the wire name of a message, e.g. "GLOBAL_POSITION_INT".
// Messages missing from the dialect come back as "UNKNOWN_<id>".
func MessageName(msg message.Message) string {
	if raw, ok := msg.(*message.MessageRaw); ok {
		return fmt.Sprintf("UNKNOWN_%d", raw.GetID())
	}

	t := reflect.TypeOf(msg)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return camelToUpperSnake(strings.TrimPrefix(t.Name(), "Message"))
}

// ResultName returns the symbolic name of a command-ack result code,
// e.g. "MAV_RESULT_DENIED".
func ResultName(r common.MAV_RESULT) string {
	if b, err := r.MarshalText(); err == nil {
		return string(b)
	}
	return fmt.Sprintf("MAV_RESULT(%d)", int(r))
}

// CommandName returns the symbolic name of a command id.
func CommandName(c common.MAV_CMD) string {
	if b, err := c.MarshalText(); err == nil {
		return string(b)
	}
	return fmt.Sprintf("MAV_CMD(%d)", int(c))
}

func camelToUpperSnake(s string) string {
	var b strings.Builder
	runes := []rune(s)

	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prev := runes[i-1]
			// Break before an upper following a lower or digit, and
			// before the last upper of an acronym run.
			if unicode.IsLower(prev) || unicode.IsDigit(prev) ||
				(i+1 < len(runes) && unicode.IsLower(runes[i+1])) {
				b.WriteByte('_')
			}
		}
		b.WriteRune(unicode.ToUpper(r))
	}

	return b.String()
}
