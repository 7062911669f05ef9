package smx

import (
	"encoding/hex"

	"github.com/pkg/errors"
)

// DeviceInfo is the friendly form of the 'I' device-info reply
// (SMXDeviceInfo in the original SDK).
type DeviceInfo struct {
	P2       bool
	Serial   [16]byte
	Firmware uint16
}

// SerialHex returns the serial number hex-formatted, the same
// representation HidD_GetSerialNumberString would produce.
func (d DeviceInfo) SerialHex() string {
	return hex.EncodeToString(d.Serial[:])
}

// connection is the low-level I/O engine for a single HID device: it owns
// the read goroutine, reassembles serial-over-HID frames into complete
// command replies, and drives the pending-command FIFO. It is the Go
// translation of SMXDeviceConnection, with Windows overlapped I/O replaced
// by a reader goroutine pushing raw reports onto a channel (grounded in
// pkg/xc/loop.go's `go func() { for { in.Read(buf); input <- ... } }()`
// pattern) and a write call per pumpWrites instead of overlapped writes.
//
// connection has no internal locking: every method is called exclusively
// from the slot's single loop goroutine, which also drains inputCh() and
// errCh().
type connection struct {
	transport Transport

	input chan []byte
	errs  chan error

	pending pendingQueue

	active     bool
	gotInfo    bool
	inputState uint16
	info       DeviceInfo

	// currentReadBuffer accumulates payload bytes across multi-frame
	// command replies until a flagEndOfCommand frame arrives.
	currentReadBuffer []byte

	// readyPackets holds complete, reassembled command replies waiting
	// to be consumed by the slot, mirroring m_sReadBuffers.
	readyPackets [][]byte
}

// newConnection wraps the already-open t and starts its reader goroutine. It does not
// request device info; the caller does that explicitly, mirroring
// SMXDeviceConnection::Open.
func newConnection(t Transport) *connection {
	c := &connection{
		transport: t,
		input:     make(chan []byte, 64),
		errs:      make(chan error, 1),
	}

	go func() {
		buf := make([]byte, reportSize)
		for {
			n, err := t.Read(buf)
			if err != nil {
				c.errs <- errors.Wrap(ErrTransportClosed, err.Error())
				return
			}
			report := make([]byte, n)
			copy(report, buf[:n])
			c.input <- report
		}
	}()

	return c
}

// inputCh returns the channel the reader goroutine delivers raw reports on.
func (c *connection) inputCh() <-chan []byte { return c.input }

// errCh returns the channel a fatal read error is reported on, exactly
// once, before the reader goroutine exits.
func (c *connection) errCh() <-chan error { return c.errs }

func (c *connection) Close() error {
	return c.transport.Close()
}

func (c *connection) SetActive(active bool) { c.active = active }
func (c *connection) GetActive() bool       { return c.active }

func (c *connection) IsConnectedWithDeviceInfo() bool { return c.gotInfo }
func (c *connection) GetDeviceInfo() DeviceInfo       { return c.info }
func (c *connection) GetInputState() uint16           { return c.inputState }

// PopReadPacket returns and removes the oldest reassembled command
// reply, if any (SMXDeviceConnection::ReadPacket).
func (c *connection) PopReadPacket() ([]byte, bool) {
	if len(c.readyPackets) == 0 {
		return nil, false
	}
	p := c.readyPackets[0]
	c.readyPackets = c.readyPackets[1:]
	return p, true
}

// SendCommand queues cmd for transmission. onComplete runs once the
// device reports PACKET_FLAG_HOST_CMD_FINISHED for it.
func (c *connection) SendCommand(cmd []byte, onComplete func()) {
	c.pending.push(&pendingCommand{
		frames:     splitCommand(cmd),
		onComplete: onComplete,
	})
}

// RequestDeviceInfo queues the device-info request. It can be sent safely
// even while another application is talking to the device, so slot.Open
// issues it as soon as a device is attached, before anything is marked
// active.
func (c *connection) RequestDeviceInfo(onComplete func()) {
	c.pending.push(&pendingCommand{
		frames:       [][]byte{deviceInfoRequestFrame()},
		isDeviceInfo: true,
		onComplete:   onComplete,
	})
}

// PumpWrites writes the next queued command's frames if nothing is
// currently in flight, matching CheckWrites (writes are treated as
// synchronous here; karalabe/hid's Write blocks until the OS accepts the
// report, so there's no separate overlapped-completion step to poll).
func (c *connection) PumpWrites() error {
	frames := c.pending.next()
	for _, f := range frames {
		if _, err := c.transport.Write(f); err != nil {
			return errors.Wrap(err, "writing HID report")
		}
	}
	return nil
}

// HandleReport processes one raw report read from the device, mirroring
// HandleUsbPacket. It updates input state, reassembles multi-frame
// command replies, completes the in-flight command on
// flagHostCmdFinished, and resolves the device-info request on
// flagDeviceInfo.
func (c *connection) HandleReport(buf []byte) error {
	r, ok := parseInboundReport(buf)
	if !ok {
		return ErrMalformedPacket
	}

	switch r.reportID {
	case reportIDInputState:
		c.inputState = r.inputState
		return nil

	case reportIDSerialIn:
		if r.flags&flagDeviceInfo != 0 {
			if !c.pending.currentIsDeviceInfo() {
				return nil
			}
			payload := make([]byte, deviceInfoReplySize)
			copy(payload, r.payload)
			player, serial, firmware := parseDeviceInfoReply(payload)
			c.info = DeviceInfo{P2: player == '1', Serial: serial, Firmware: firmware}
			c.gotInfo = true
			c.pending.finish()
			return nil
		}

		if !c.active {
			return nil
		}

		c.currentReadBuffer = append(c.currentReadBuffer, r.payload...)
		if r.flags&flagEndOfCommand != 0 {
			if len(c.currentReadBuffer) > 0 {
				c.readyPackets = append(c.readyPackets, c.currentReadBuffer)
			}
			c.currentReadBuffer = nil
		}

		if r.flags&flagHostCmdFinished != 0 {
			c.pending.finish()
		}
		return nil

	default:
		return nil
	}
}

func (c *connection) resetState() {
	c.pending.reset()
	c.active = false
	c.gotInfo = false
	c.inputState = 0
	c.info = DeviceInfo{}
	c.currentReadBuffer = nil
	c.readyPackets = nil
}
