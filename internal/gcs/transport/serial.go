package transport

import (
	"fmt"
	"sync"

	"go.bug.st/serial"

	"github.com/groundlink-io/groundlink/internal/gcs/errdefs"
)

type serialTransport struct {
	port serial.Port
	opts SerialOptions

	closeOnce sync.Once
	closeErr  error
}

func openSerial(opts *SerialOptions) (Transport, error) {
	mode := &serial.Mode{
		BaudRate: opts.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(opts.Path, mode)
	if err != nil {
		return nil, &errdefs.ConnectionError{Endpoint: opts.Path, Err: err}
	}

	return &serialTransport{port: port, opts: *opts}, nil
}

func (t *serialTransport) Read(p []byte) (int, error)  { return t.port.Read(p) }
func (t *serialTransport) Write(p []byte) (int, error) { return t.port.Write(p) }

func (t *serialTransport) Close() error {
	t.closeOnce.Do(func() {
		t.closeErr = t.port.Close()
	})
	return t.closeErr
}

func (t *serialTransport) Kind() string { return "serial" }

func (t *serialTransport) Endpoint() string {
	return fmt.Sprintf("%s@%d", t.opts.Path, t.opts.BaudRate)
}

// ListPorts enumerates the serial devices present on this machine.
func ListPorts() ([]string, error) {
	return serial.GetPortsList()
}
