package receipt

import (
	"context"
	"fmt"
	"net"
	"os"
	"time"
)

// Printer accepts raw ESC/POS bytes.
type Printer interface {
	Print(ctx context.Context, data []byte) error
	Ready() bool
}

// networkPrinter dials a raw TCP port, usually 9100, per job.
type networkPrinter struct {
	address string
	timeout time.Duration
}

func NewNetworkPrinter(address string) Printer {
	return &networkPrinter{address: address, timeout: 5 * time.Second}
}

func (p *networkPrinter) Print(ctx context.Context, data []byte) error {
	dialer := net.Dialer{Timeout: p.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", p.address)
	if err != nil {
		return fmt.Errorf("printer: connect %s: %w", p.address, err)
	}
	defer conn.Close()

	deadline := time.Now().Add(10 * time.Second)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetWriteDeadline(deadline)

	if _, err := conn.Write(data); err != nil {
		return fmt.Errorf("printer: write %s: %w", p.address, err)
	}
	return nil
}

func (p *networkPrinter) Ready() bool {
	conn, err := net.DialTimeout("tcp", p.address, 2*time.Second)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// devicePrinter writes to a character device such as /dev/usb/lp0.
type devicePrinter struct {
	path string
}

func NewDevicePrinter(path string) Printer {
	return &devicePrinter{path: path}
}

func (p *devicePrinter) Print(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f, err := os.OpenFile(p.path, os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("printer: open %s: %w", p.path, err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("printer: write %s: %w", p.path, err)
	}
	return nil
}

func (p *devicePrinter) Ready() bool {
	_, err := os.Stat(p.path)
	return err == nil
}

type nullPrinter struct{}

func (nullPrinter) Print(context.Context, []byte) error { return nil }
func (nullPrinter) Ready() bool                         { return false }

// NewPrinter picks the printer for the configured address or device path.
// A network address wins over a device; with neither, jobs are dropped.
func NewPrinter(address, device string) Printer {
	switch {
	case address != "":
		return NewNetworkPrinter(address)
	case device != "":
		return NewDevicePrinter(device)
	default:
		return nullPrinter{}
	}
}
