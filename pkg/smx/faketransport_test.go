package smx

import (
	"io"
	"sync"
)

// fakeTransport is an in-memory Transport for tests, modeled on
// seagrayinc-gorow's MockHID: Read blocks on a channel the test feeds,
// and every Write is recorded so assertions can inspect outbound frames
// without a real HID device.
type fakeTransport struct {
	mu      sync.Mutex
	inbound chan []byte
	written [][]byte
	closed  bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{inbound: make(chan []byte, 64)}
}

func (f *fakeTransport) Read(p []byte) (int, error) {
	buf, ok := <-f.inbound
	if !ok {
		return 0, io.EOF
	}
	return copy(p, buf), nil
}

func (f *fakeTransport) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make([]byte, len(p))
	copy(cp, p)
	f.written = append(f.written, cp)
	return len(p), nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		close(f.inbound)
		f.closed = true
	}
	return nil
}

// emit pushes a raw 64-byte report, as though just read off the wire.
func (f *fakeTransport) emit(report []byte) {
	f.inbound <- report
}

func (f *fakeTransport) writes() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]byte, len(f.written))
	copy(out, f.written)
	return out
}

// fakeEnumerator always returns a fixed set of candidates, letting tests
// drive device discovery deterministically instead of through real HID
// enumeration.
type fakeEnumerator struct {
	mu         sync.Mutex
	candidates []Candidate
}

func (e *fakeEnumerator) Enumerate() ([]Candidate, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Candidate, len(e.candidates))
	copy(out, e.candidates)
	return out, nil
}

func (e *fakeEnumerator) add(path string, open func() (Transport, error)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.candidates = append(e.candidates, Candidate{Path: path, Open: open})
}
