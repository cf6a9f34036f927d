package transport

import (
	"testing"

	"github.com/groundlink-io/groundlink/internal/gcs/errdefs"
)

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		name    string
		opts    *Options
		wantErr bool
	}{
		{
			name:    "nothing set",
			opts:    &Options{},
			wantErr: true,
		},
		{
			name: "serial ok",
			opts: &Options{Serial: &SerialOptions{Path: "/dev/ttyUSB0", BaudRate: 57600}},
		},
		{
			name:    "serial missing baud",
			opts:    &Options{Serial: &SerialOptions{Path: "/dev/ttyUSB0"}},
			wantErr: true,
		},
		{
			name: "tcp ok",
			opts: &Options{TCP: &TCPOptions{Host: "10.0.0.2", Port: 5760}},
		},
		{
			name:    "tcp port out of range",
			opts:    &Options{TCP: &TCPOptions{Host: "10.0.0.2", Port: 70000}},
			wantErr: true,
		},
		{
			name: "udp ok",
			opts: &Options{UDP: &UDPOptions{Family: "udp4", SourcePort: 14550}},
		},
		{
			name:    "udp bad family",
			opts:    &Options{UDP: &UDPOptions{Family: "udp", SourcePort: 14550}},
			wantErr: true,
		},
		{
			name:    "udp target ip without port",
			opts:    &Options{UDP: &UDPOptions{Family: "udp4", SourcePort: 14550, TargetIP: "10.0.0.5"}},
			wantErr: true,
		},
		{
			name: "two transports set",
			opts: &Options{
				Serial: &SerialOptions{Path: "/dev/ttyUSB0", BaudRate: 57600},
				TCP:    &TCPOptions{Host: "10.0.0.2", Port: 5760},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errdefs.IsInvalidArgument(err) {
				t.Errorf("Validate() error is not InvalidArgument: %v", err)
			}
		})
	}
}
