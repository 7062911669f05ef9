package smx

import (
	"crypto/rand"
	"log"
	"time"

	"github.com/pkg/errors"
)

// PanelTestMode selects the factory panel test mode (SMX_SetPanelTestMode).
// The non-zero value matches the wire protocol.
type PanelTestMode byte

const (
	PanelTestOff          PanelTestMode = '0'
	PanelTestPressureTest PanelTestMode = '1'
)

const panelTestModeRepeatInterval = time.Second

// idlePollInterval is ThreadMain's 1000ms default iDelayMS. The loop does
// not use it: its 100ms ticker bounds how long it sleeps when there's
// nothing scheduled.
const idlePollInterval = time.Second

// deviceScanInterval throttles attemptConnections to roughly the Device
// Scanner thread's own ~4Hz polling cadence, decoupling HID bus
// enumeration from the I/O loop's much higher wakeup rate (every op call,
// every input report, the 100ms ticker).
const deviceScanInterval = 250 * time.Millisecond

// Manager owns both pad slots and runs the single loop goroutine that
// drives all device I/O, translating SMXManager::ThreadMain's
// lock/select-on-handles design into a select over channels: one input
// channel per slot's connection, a ticker standing in for
// WaitForMultipleObjectsEx's timeout, and an ops channel carrying every
// public method's work onto the loop goroutine. This is the same
// single-owner-goroutine pattern the teacher uses in pkg/xc/loop.go,
// generalized from one channel-actor per RF interface to one per pair of
// USB-HID pads.
type Manager struct {
	scanner *scanner
	slots   [2]*slot
	claimed [2]string // HID path claimed by each slot, "" if free

	panelTestMode         PanelTestMode
	lastSentPanelTestMode PanelTestMode
	sentPanelTestModeAt   time.Time

	pendingLights           []pendingLightsCommand
	lightsInProgress        int
	delayLightCommandsUntil time.Time
	onlySendLightsOnChange  bool
	lastPanelLights         [2][]byte

	nextScanAt time.Time

	callbacks *callbackWorker
	onUpdate  func(pad int, reason UpdateReason)

	logf func(format string, args ...interface{})

	ops    chan func()
	wakeCh chan struct{}
	stopCh chan struct{}
	doneCh chan struct{}

	nowFn func() time.Time

	started bool
}

// NewManager creates a Manager that scans for devices through e. Start
// must be called to begin the I/O loop.
func NewManager(e Enumerator) *Manager {
	m := &Manager{
		scanner:   newScanner(e),
		callbacks: newCallbackWorker(),
		logf:      log.Printf,
		ops:       make(chan func()),
		wakeCh:    make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
		nowFn:     time.Now,

		panelTestMode:         PanelTestOff,
		lastSentPanelTestMode: PanelTestOff,
	}
	for i := range m.slots {
		m.slots[i] = newSlot()
		m.slots[i].onUpdate = m.deliverUpdate
	}
	return m
}

func (m *Manager) now() time.Time { return m.nowFn() }

// SetLogCallback installs fn as the sink for internal diagnostic
// messages, replacing the default log.Printf (SMX_SetLogCallback).
func (m *Manager) SetLogCallback(fn func(format string, args ...interface{})) {
	if fn == nil {
		fn = log.Printf
	}
	m.logf = fn
}

// SetUpdateCallback installs fn to be called, on the callback worker
// goroutine, whenever a slot's state changes. It may be called before
// Start.
func (m *Manager) SetUpdateCallback(fn func(pad int, reason UpdateReason)) {
	if !m.started {
		m.onUpdate = fn
		return
	}
	m.do(func() { m.onUpdate = fn })
}

func (m *Manager) deliverUpdate(pad int, reason UpdateReason) {
	cb := m.onUpdate
	if cb == nil {
		return
	}
	m.callbacks.Post(func() { cb(pad, reason) })
}

// Start launches the loop goroutine.
func (m *Manager) Start() {
	m.started = true
	go m.run()
}

// Stop shuts the manager down and waits for the loop goroutine to exit.
// It mirrors SMXManager::Shutdown's reentrancy guard: calling Stop from
// inside an update callback would deadlock, since the callback worker
// can't drain while its own job is blocked here.
func (m *Manager) Stop() error {
	if m.callbacks.InCallback() {
		return ErrCallbackReentrant
	}
	close(m.stopCh)
	<-m.doneCh
	return m.callbacks.Stop()
}

// do runs fn on the loop goroutine and waits for it to finish, the
// channel-based substitute for g_Lock.Lock()/Unlock() around a single
// field access.
func (m *Manager) do(fn func()) {
	done := make(chan struct{})
	m.ops <- func() {
		fn()
		close(done)
	}
	<-done
}

func (m *Manager) wake() {
	select {
	case m.wakeCh <- struct{}{}:
	default:
	}
}

// GetInfo returns the current connection info for pad (0 or 1).
func (m *Manager) GetInfo(pad int) Info {
	var info Info
	m.do(func() { info = m.slots[pad].GetInfo() })
	return info
}

// GetInputState returns the 9-bit panel bitmap currently reported by pad.
func (m *Manager) GetInputState(pad int) uint16 {
	var state uint16
	m.do(func() { state = m.slots[pad].GetInputState() })
	return state
}

// GetConfig returns pad's configuration and whether it's known yet.
func (m *Manager) GetConfig(pad int) (Config, bool) {
	var c Config
	var have bool
	m.do(func() { c, have = m.slots[pad].GetConfig() })
	return c, have
}

// SetConfig queues newConfig to be written to pad. It's sent in the
// background; GetConfig reflects the new value immediately.
func (m *Manager) SetConfig(pad int, newConfig Config) {
	m.do(func() { m.slots[pad].SetConfig(newConfig) })
}

func (m *Manager) FactoryReset(pad int) {
	m.do(func() { m.slots[pad].FactoryReset() })
}

func (m *Manager) ForceRecalibration(pad int) {
	m.do(func() { m.slots[pad].ForceRecalibration() })
}

func (m *Manager) SetSensorTestMode(pad int, mode SensorTestMode) {
	m.do(func() { m.slots[pad].SetSensorTestMode(mode) })
}

func (m *Manager) GetTestData(pad int) (SensorTestData, bool) {
	var data SensorTestData
	var ok bool
	m.do(func() { data, ok = m.slots[pad].GetTestData() })
	return data, ok
}

// SetPanelTestMode enables or disables the factory panel test mode on
// both pads. While a test mode other than PanelTestOff is active, lights
// submissions are dropped (SMXManager::SetLights's interlock).
func (m *Manager) SetPanelTestMode(mode PanelTestMode) {
	m.do(func() { m.panelTestMode = mode })
}

// AssignSerialNumbers provisions a random serial number on both pads
// that don't already have one, the Go equivalent of
// SMXManager::SetSerialNumbers. crypto/rand substitutes for
// SMX::GenerateRandom, which is explicitly out of scope.
func (m *Manager) AssignSerialNumbers() error {
	var err error
	m.do(func() {
		m.pendingLights = nil
		for pad := 0; pad < 2; pad++ {
			serial := make([]byte, 16)
			if _, e := rand.Read(serial); e != nil {
				err = errors.Wrap(e, "generating serial number")
				return
			}
			cmd := append([]byte{'s'}, serial...)
			cmd = append(cmd, '\n')
			m.slots[pad].sendCommand(cmd, nil)
		}
	})
	return err
}

// run is the loop goroutine: the Go translation of SMXManager::ThreadMain.
func (m *Manager) run() {
	defer close(m.doneCh)

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		now := m.now()

		m.sendLightUpdates(now)
		m.updatePanelTestMode(now)
		m.attemptConnections(now)

		for pad, s := range m.slots {
			if err := s.update(now); err != nil {
				m.logf("device error on pad %d: %v", pad, err)
				m.closeSlot(pad)
			}
		}

		m.correctDeviceOrder()

		select {
		case <-m.stopCh:
			for pad := range m.slots {
				m.closeSlot(pad)
			}
			return

		case op := <-m.ops:
			op()

		case buf := <-m.slotInput(0):
			if err := m.slots[0].deliverReport(buf); err != nil {
				m.logf("pad 0: %v", err)
			}

		case buf := <-m.slotInput(1):
			if err := m.slots[1].deliverReport(buf); err != nil {
				m.logf("pad 1: %v", err)
			}

		case err := <-m.slotErr(0):
			m.logTransportError(0, err)
			m.closeSlot(0)

		case err := <-m.slotErr(1):
			m.logTransportError(1, err)
			m.closeSlot(1)

		case <-m.wakeCh:

		case <-ticker.C:

		case <-m.sleepUntil(now):
		}
	}
}

// slotInput and slotErr return nil channels (which block forever in a
// select) for unconnected slots, so the select above safely no-ops for
// an empty pad.
func (m *Manager) slotInput(pad int) <-chan []byte {
	if m.slots[pad].conn == nil {
		return nil
	}
	return m.slots[pad].conn.inputCh()
}

func (m *Manager) slotErr(pad int) <-chan error {
	if m.slots[pad].conn == nil {
		return nil
	}
	return m.slots[pad].conn.errCh()
}

// sleepUntil returns a timer channel firing at the next scheduled lights
// command, or never if nothing's scheduled (the ticker above already
// bounds how long the select can block in that case).
func (m *Manager) sleepUntil(now time.Time) <-chan time.Time {
	deadline, ok := m.nextLightsDeadline()
	if !ok {
		return nil
	}
	d := deadline.Sub(now)
	if d < 0 {
		d = 0
	}
	return time.After(d)
}

func (m *Manager) updatePanelTestMode(now time.Time) {
	if m.panelTestMode == m.lastSentPanelTestMode &&
		(m.panelTestMode == PanelTestOff || now.Sub(m.sentPanelTestModeAt) < panelTestModeRepeatInterval) {
		return
	}

	if m.lastSentPanelTestMode == PanelTestOff {
		lightsOff := append([]byte{'l'}, make([]byte, 108)...)
		lightsOff = append(lightsOff, '\n')
		for pad := range m.slots {
			m.slots[pad].sendCommand(lightsOff, nil)
		}
	}

	m.sentPanelTestModeAt = now
	m.lastSentPanelTestMode = m.panelTestMode
	for pad := range m.slots {
		m.slots[pad].sendCommand([]byte{'t', ' ', byte(m.panelTestMode), '\n'}, nil)
	}
}

// attemptConnections mirrors SMXManager::AttemptConnections: open
// transports the scanner has already surfaced, claim them for a free
// slot, and warn if more than two devices are plugged in. The actual bus
// enumeration is throttled to deviceScanInterval so it runs at roughly the
// scanner thread's own cadence instead of on every loop wakeup.
func (m *Manager) attemptConnections(now time.Time) {
	if now.Before(m.nextScanAt) {
		return
	}
	m.nextScanAt = now.Add(deviceScanInterval)

	open := m.scanner.scan(m.logf)

	claimedPaths := make(map[string]bool, 2)
	for _, p := range m.claimed {
		if p != "" {
			claimedPaths[p] = true
		}
	}

	for path, t := range open {
		if claimedPaths[path] {
			continue
		}

		freeSlot := -1
		for i, p := range m.claimed {
			if p == "" {
				freeSlot = i
				break
			}
		}
		if freeSlot == -1 {
			m.logf("no available slots for device %s: are more than two devices connected?", path)
			break
		}

		m.logf("opening SMX device %s", path)
		m.claimed[freeSlot] = path
		m.slots[freeSlot].Open(newConnection(t))
		claimedPaths[path] = true
	}
}

// logTransportError logs a fatal read error, classifying it against
// ErrTransportClosed the way the spec's "transport fatal" error-taxonomy
// entry describes: the handle is gone, so the pad is closed and the
// scanner forgets the path.
func (m *Manager) logTransportError(pad int, err error) {
	if errors.Is(err, ErrTransportClosed) {
		m.logf("pad %d disconnected: %v", pad, err)
		return
	}
	m.logf("pad %d: unexpected read error: %v", pad, err)
}

func (m *Manager) closeSlot(pad int) {
	path := m.claimed[pad]
	if path != "" {
		m.scanner.deviceWasClosed(path)
	}
	m.claimed[pad] = ""
	m.slots[pad].Close()
}

// correctDeviceOrder mirrors SMXManager::CorrectDeviceOrder: devices
// report P1/P2 only after device info arrives, so if the pad we opened
// first turns out to be P2 (or vice versa), swap the slots to match.
func (m *Manager) correctDeviceOrder() {
	info0 := m.slots[0].GetInfo()
	info1 := m.slots[1].GetInfo()
	p2 := [2]bool{info0.Connected && info0.P2, info1.Connected && info1.P2}

	if info0.Connected && info1.Connected && p2[0] == p2[1] {
		return
	}

	p1NeedsSwap := info0.Connected && p2[0]
	p2NeedsSwap := info1.Connected && !p2[1]
	if p1NeedsSwap || p2NeedsSwap {
		m.slots[0], m.slots[1] = m.slots[1], m.slots[0]
		m.claimed[0], m.claimed[1] = m.claimed[1], m.claimed[0]
	}
}
