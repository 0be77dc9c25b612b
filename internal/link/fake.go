package link

import "sync"

// FakeLink is an in-memory Link for tests and the bench console.
type FakeLink struct {
	mu      sync.Mutex
	inbound []byte
	written []byte

	// WriteError, if set, will be returned by Write.
	WriteError error
	Closed     bool
}

// NewFakeLink returns an empty link.
func NewFakeLink() *FakeLink {
	return &FakeLink{}
}

// Inject queues bytes as if the peer had sent them.
func (f *FakeLink) Inject(p []byte) {
	f.mu.Lock()
	f.inbound = append(f.inbound, p...)
	f.mu.Unlock()
}

// Drain implements Link.
func (f *FakeLink) Drain() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.inbound
	f.inbound = nil
	return out
}

// Write implements Link.
func (f *FakeLink) Write(p []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Closed {
		return ErrClosed
	}
	if f.WriteError != nil {
		return f.WriteError
	}
	f.written = append(f.written, p...)
	return nil
}

// Written returns a copy of everything written so far.
func (f *FakeLink) Written() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]byte(nil), f.written...)
}

// Take returns everything written so far and clears it.
func (f *FakeLink) Take() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.written
	f.written = nil
	return out
}

// Close implements Link.
func (f *FakeLink) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}
