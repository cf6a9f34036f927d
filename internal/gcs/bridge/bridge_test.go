package bridge

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/bluenviron/gomavlib/v3/pkg/dialects/common"
	"github.com/bluenviron/gomavlib/v3/pkg/frame"

	"github.com/groundlink-io/groundlink/internal/gcs/link"
	"github.com/groundlink-io/groundlink/internal/gcs/mav"
	"github.com/groundlink-io/groundlink/internal/gcs/vehicle"
	"github.com/groundlink-io/groundlink/pkg/mqtt"
	"github.com/groundlink-io/groundlink/pkg/mqtt/topic"
)

type publishRecord struct {
	topic   string
	qos     int
	payload []byte
}

type fakeClient struct {
	mu           sync.Mutex
	started      bool
	disconnected bool
	published    []publishRecord
	handlers     map[string]mqtt.MessageHandler
}

func (c *fakeClient) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started = true
	return nil
}

func (c *fakeClient) Disconnect(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnected = true
}

func (c *fakeClient) Publish(ctx context.Context, topic string, qos int, retain bool, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.published = append(c.published, publishRecord{topic: topic, qos: qos, payload: payload})
	return nil
}

func (c *fakeClient) Subscribe(ctx context.Context, topic string, qos int, handler mqtt.MessageHandler) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handlers == nil {
		c.handlers = make(map[string]mqtt.MessageHandler)
	}
	c.handlers[topic] = handler
	return nil
}

func (c *fakeClient) Unsubscribe(ctx context.Context, topic string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.handlers, topic)
	return nil
}

func (c *fakeClient) AwaitConnection(ctx context.Context) error { return nil }

func (c *fakeClient) lastPublished(t *testing.T) publishRecord {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.published) == 0 {
		t.Fatal("nothing published")
	}
	return c.published[len(c.published)-1]
}

func newTestBridge() (*Bridge, *fakeClient) {
	client := &fakeClient{}
	manager := link.NewManager(link.Config{SystemID: 255, ComponentID: 190})
	return New(client, topic.NewBuilder("glink/v1"), manager), client
}

func TestBridgePublishesTelemetry(t *testing.T) {
	b, client := newTestBridge()

	p := mav.FromFrame(&frame.V2Frame{
		SystemID:    1,
		ComponentID: 1,
		Message:     &common.MessageGlobalPositionInt{TimeBootMs: 1234, Lat: 473977421},
	})
	b.PublishPacket(p)

	rec := client.lastPublished(t)
	if rec.topic != "glink/v1/telemetry/1-1" {
		t.Errorf("topic = %q", rec.topic)
	}
	if rec.qos != 0 {
		t.Errorf("qos = %d, want 0", rec.qos)
	}

	var got telemetryFrame
	if err := json.Unmarshal(rec.payload, &got); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if got.Vehicle != "1-1" || got.Message != "GLOBAL_POSITION_INT" {
		t.Errorf("frame = %+v", got)
	}
	if got.Data["Lat"] != float64(473977421) {
		t.Errorf("lat = %v", got.Data["Lat"])
	}
}

func TestBridgePublishesEvents(t *testing.T) {
	b, client := newTestBridge()

	b.PublishEvent(vehicle.Event{
		Key:  mav.VehicleKey{SystemID: 1, ComponentID: 1},
		Type: vehicle.EventDiscovered,
	})

	rec := client.lastPublished(t)
	if rec.topic != "glink/v1/vehicle/online" {
		t.Errorf("topic = %q", rec.topic)
	}
	if rec.qos != 1 {
		t.Errorf("qos = %d, want 1", rec.qos)
	}

	var got vehicle.Event
	if err := json.Unmarshal(rec.payload, &got); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if got.Type != vehicle.EventDiscovered || got.Key.String() != "1-1" {
		t.Errorf("event = %+v", got)
	}
}

func TestBridgeRunLifecycle(t *testing.T) {
	b, client := newTestBridge()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for {
		client.mu.Lock()
		_, subscribed := client.handlers["glink/v1/command/+"]
		client.mu.Unlock()
		if subscribed {
			break
		}
		select {
		case <-deadline:
			t.Fatal("bridge never subscribed to the command filter")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	client.mu.Lock()
	defer client.mu.Unlock()
	if !client.started || !client.disconnected {
		t.Errorf("started=%v disconnected=%v", client.started, client.disconnected)
	}
}

func TestBridgeDropsBadCommands(t *testing.T) {
	b, _ := newTestBridge()
	ctx := context.Background()

	// Malformed payload, bad vehicle key and a missing connection must all
	// be swallowed without reaching a session.
	b.handleCommand(ctx, "glink/v1/command/1-1", []byte("{not json"))
	b.handleCommand(ctx, "glink/v1/command/nope", []byte(`{"command":"arm"}`))
	b.handleCommand(ctx, "glink/v1/command/1-1", []byte(`{"command":"arm"}`))
}
