package smx

import "errors"

// Sentinel errors classifying what went wrong in the I/O engine, mirroring
// the Err* sentinel block in the teacher's pkg/xc/loop.go. Transport errors
// are wrapped with github.com/pkg/errors at the point they're returned by
// the transport; these sentinels are what callers within the package
// compare against with errors.Is to decide whether a failure is fatal.
var (
	// ErrTransportClosed means the underlying HID handle is gone. Fatal:
	// the slot is closed and the scanner is told to forget the path.
	ErrTransportClosed = errors.New("smx: device handle closed")

	// ErrMalformedPacket means a framed packet was truncated or oversized.
	// Not fatal: the offending bytes are discarded and logged.
	ErrMalformedPacket = errors.New("smx: malformed packet")

	// ErrCallbackReentrant is returned when Stop is invoked from inside a
	// user callback, which would deadlock waiting for the callback worker
	// to drain.
	ErrCallbackReentrant = errors.New("smx: Stop called from within a user callback")
)
