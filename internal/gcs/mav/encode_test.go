package mav

import (
	"testing"

	"github.com/bluenviron/gomavlib/v3/pkg/dialects/common"
	"github.com/bluenviron/gomavlib/v3/pkg/message"
)

func TestEncodeMessageStringifies64BitIntegers(t *testing.T) {
	const ts = uint64(18446744073709551615)

	data := EncodeMessage(&common.MessagePing{TimeUsec: ts, Seq: 3})

	if got, ok := data["TimeUsec"].(string); !ok || got != "18446744073709551615" {
		t.Errorf("TimeUsec encoded as %T %v, want decimal string", data["TimeUsec"], data["TimeUsec"])
	}
	if _, ok := data["Seq"].(uint32); !ok {
		t.Errorf("Seq encoded as %T, want uint32 untouched", data["Seq"])
	}
}

func TestEncodeMessageRaw(t *testing.T) {
	data := EncodeMessage(&message.MessageRaw{ID: 4242, Payload: []byte{1, 2, 3}})
	if _, ok := data["payload"]; !ok {
		t.Error("raw payload missing")
	}
}
