package mqtt

import "testing"

func TestClientConfigValidate(t *testing.T) {
	tests := []struct {
		url     string
		wantErr bool
	}{
		{"", true},
		{"mqtt://broker.local:1883", false},
		{"tcp://broker.local:1883", false},
		{"wss://broker.local/mqtt", false},
		{"http://broker.local", true},
	}

	for _, tt := range tests {
		cfg := &ClientConfig{BrokerURL: tt.url}
		if err := cfg.Validate(); (err != nil) != tt.wantErr {
			t.Errorf("Validate(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
		}
	}
}

func TestTopicMatches(t *testing.T) {
	tests := []struct {
		filter string
		topic  string
		want   bool
	}{
		{"glink/v1/telemetry/1-1", "glink/v1/telemetry/1-1", true},
		{"glink/v1/telemetry/+", "glink/v1/telemetry/1-1", true},
		{"glink/v1/telemetry/+", "glink/v1/telemetry/1-1/extra", false},
		{"glink/v1/#", "glink/v1/telemetry/1-1", true},
		{"glink/v1/command/+", "glink/v1/telemetry/1-1", false},
		{"+/v1/telemetry/2-1", "glink/v1/telemetry/2-1", true},
		{"glink/v1/telemetry", "glink/v1/telemetry/1-1", false},
	}

	for _, tt := range tests {
		if got := topicMatches(tt.filter, tt.topic); got != tt.want {
			t.Errorf("topicMatches(%q, %q) = %v, want %v", tt.filter, tt.topic, got, tt.want)
		}
	}
}
