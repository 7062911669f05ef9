package smx

import "io"

// reportSize is the fixed HID report length used in both directions (§6).
const reportSize = 64

// Transport is an open HID handle to one pad. It's satisfied directly by
// *hid.Device from github.com/karalabe/hid (the same io.ReadWriteCloser
// shape the teacher's hid.go/usb.go use), and by a fake in tests.
//
// Reads and writes are always exactly reportSize bytes; Read blocks until a
// report arrives or the handle is closed, at which point it must return an
// error so the owning goroutine can exit.
type Transport interface {
	io.ReadWriteCloser
}

// Candidate is one HID device path the scanner has matched against our
// vendor/product/product-name filter, not yet opened for protocol use.
type Candidate struct {
	// Path uniquely identifies the OS device path. Two candidates opened
	// from the same path on different ticks are == only if DeviceWasClosed
	// hasn't been called for that path in between.
	Path string
	Open func() (Transport, error)
}

// Enumerator lists the currently present candidate HID devices matching
// the StepManiaX vendor/product/product-name triple (§6). The real
// implementation lives in internal/hidhw; tests supply a fake.
type Enumerator interface {
	Enumerate() ([]Candidate, error)
}
