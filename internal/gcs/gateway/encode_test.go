package gateway

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/bluenviron/gomavlib/v3/pkg/dialects/common"

	"github.com/groundlink-io/groundlink/internal/gcs/mav"
)

func TestStreamFrameJSONRoundTrip(t *testing.T) {
	p := &mav.Packet{
		Header:     mav.Header{MsgID: 4, SystemID: 1, ComponentID: 1},
		Version:    2,
		Signed:     true,
		Message:    &common.MessagePing{TimeUsec: 1 << 62, Seq: 9},
		ReceivedAt: time.Now(),
	}

	raw, err := json.Marshal(newStreamFrame(p))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(raw), `"TimeUsec":"4611686018427387904"`) {
		t.Errorf("64-bit field not serialized as string: %s", raw)
	}

	var decoded StreamFrame
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Vehicle != "1-1" || decoded.Message != "PING" || !decoded.Meta.Signed {
		t.Errorf("round trip lost fields: %+v", decoded)
	}
}
