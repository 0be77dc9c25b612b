// Package link carries raw bytes between the node and its two serial peers:
// the wireless module paired with the mobile app, and the camera bridge.
//
// A background goroutine reads the port into a buffered channel so the
// control loop can take whatever has arrived without blocking.
package link

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.bug.st/serial"

	"github.com/sweeney/homesec-node/internal/config"
	"github.com/sweeney/homesec-node/internal/logger"
)

// Link is a byte-oriented duplex channel.
type Link interface {
	// Drain returns every byte received since the last call, in arrival
	// order. It never blocks.
	Drain() []byte

	// Write sends p in full.
	Write(p []byte) error

	// Close stops the reader and releases the port.
	Close() error
}

const (
	// DefaultBufferSize is how many received bytes may wait for the loop.
	DefaultBufferSize = 4096

	readTimeout = 100 * time.Millisecond
)

// ErrClosed is returned by Write after Close.
var ErrClosed = errors.New("link closed")

// Port is a Link over any io.ReadWriteCloser.
type Port struct {
	name string
	rw   io.ReadWriteCloser

	bytes  chan byte
	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.Mutex
	closed bool
	err    error
}

// Open opens the serial device described by cfg.
func Open(ctx context.Context, name string, cfg config.SerialConfig) (*Port, error) {
	p, err := serial.Open(cfg.Device, &serial.Mode{BaudRate: cfg.Baud})
	if err != nil {
		return nil, fmt.Errorf("open %s link %s: %w", name, cfg.Device, err)
	}

	// A bounded read lets the reader notice cancellation.
	if err := p.SetReadTimeout(readTimeout); err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("set %s read timeout: %w", name, err)
	}

	logger.InfoKV(ctx, "serial link open", "link", name, "device", cfg.Device, "baud", cfg.Baud)

	return New(ctx, name, p, DefaultBufferSize), nil
}

// New starts reading rw in the background.
func New(ctx context.Context, name string, rw io.ReadWriteCloser, bufSize int) *Port {
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}

	ctx, cancel := context.WithCancel(logger.WithKV(ctx, "link", name))
	p := &Port{
		name:   name,
		rw:     rw,
		bytes:  make(chan byte, bufSize),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go p.readLoop(ctx)

	return p
}

func (p *Port) readLoop(ctx context.Context) {
	defer close(p.done)

	buf := make([]byte, 256)
	for {
		n, err := p.rw.Read(buf)
		for _, b := range buf[:n] {
			select {
			case p.bytes <- b:
			case <-ctx.Done():
				return
			}
		}

		if err != nil {
			if ctx.Err() == nil && !errors.Is(err, io.EOF) {
				logger.ErrorKV(ctx, "serial read failed", "error", err)
			}
			p.setErr(err)
			return
		}

		if ctx.Err() != nil {
			return
		}
	}
}

// Drain implements Link.
func (p *Port) Drain() []byte {
	var out []byte
	for {
		select {
		case b := <-p.bytes:
			out = append(out, b)
		default:
			return out
		}
	}
}

// Write implements Link.
func (p *Port) Write(b []byte) error {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return ErrClosed
	}

	for len(b) > 0 {
		n, err := p.rw.Write(b)
		if err != nil {
			return fmt.Errorf("write %s: %w", p.name, err)
		}
		b = b[n:]
	}
	return nil
}

// Err returns the error that stopped the reader, if any.
func (p *Port) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *Port) setErr(err error) {
	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
}

// Close implements Link.
func (p *Port) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	p.cancel()
	err := p.rw.Close()
	<-p.done
	if err != nil {
		return fmt.Errorf("close %s: %w", p.name, err)
	}
	return nil
}
