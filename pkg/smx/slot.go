package smx

import (
	"fmt"
	"time"
)

// UpdateReason identifies why a slot's update callback fired
// (SMXUpdateCallbackReason).
type UpdateReason int

const (
	UpdateReasonUpdated UpdateReason = iota
	UpdateReasonFactoryResetCommandComplete
)

func (r UpdateReason) String() string {
	switch r {
	case UpdateReasonUpdated:
		return "updated"
	case UpdateReasonFactoryResetCommandComplete:
		return "factory-reset-complete"
	default:
		return fmt.Sprintf("UpdateReason(%d)", int(r))
	}
}

// Info is the high-level, public view of a connected pad (SMXInfo).
type Info struct {
	Connected bool
	DeviceInfo
}

// sensorTestResponseTimeout bounds how long a "y" query is trusted before
// it's assumed lost and resent (UpdateSensorTestMode's 2000ms window).
const sensorTestResponseTimeout = 2 * time.Second

// slot is the Go translation of SMXDevice: the per-pad state machine that
// sits above a connection, tracking the device's configuration, sensor
// test mode, and firing the update callback. Like connection, it carries
// no internal locking; it's driven exclusively by the Manager's single
// loop goroutine.
type slot struct {
	conn *connection

	haveConfig    bool
	config        Config
	wantedConfig  Config
	sendConfig    bool
	sendingConfig bool

	waitingForConfigResponse bool

	sensorTestMode                   SensorTestMode
	waitingForSensorTestModeResponse SensorTestMode
	sentSensorTestModeRequestAt      time.Time
	haveSensorTestModeData           bool
	sensorTestData                   SensorTestData

	// onUpdate reports the pad number the device itself claims to be
	// (via its P2 flag), not this slot's array index, mirroring
	// SMXDevice::CallUpdateCallback exactly.
	onUpdate func(pad int, reason UpdateReason)
}

func newSlot() *slot {
	return &slot{config: DefaultConfig(), wantedConfig: DefaultConfig()}
}

// Open attaches a freshly-opened connection to this slot and requests
// device info, mirroring SMXDevice::OpenDeviceHandle + SMXDeviceConnection::Open.
func (s *slot) Open(conn *connection) {
	s.conn = conn
	conn.RequestDeviceInfo(func() {
		s.callUpdate(UpdateReasonUpdated)
	})
}

// Close mirrors SMXDevice::CloseDevice.
func (s *slot) Close() {
	if s.conn != nil {
		s.conn.Close()
	}
	s.conn = nil
	s.haveConfig = false
	s.sendConfig = false
	s.sendingConfig = false
	s.waitingForConfigResponse = false
	s.haveSensorTestModeData = false
	s.callUpdate(UpdateReasonUpdated)
}

func (s *slot) isConnected() bool {
	return s.conn != nil && s.conn.IsConnectedWithDeviceInfo() && s.haveConfig
}

// GetInfo mirrors SMXDevice::GetInfoLocked.
func (s *slot) GetInfo() Info {
	var info Info
	info.Connected = s.isConnected()
	if !info.Connected {
		return info
	}
	info.DeviceInfo = s.conn.GetDeviceInfo()
	return info
}

func (s *slot) GetInputState() uint16 {
	if s.conn == nil {
		return 0
	}
	return s.conn.GetInputState()
}

// GetConfig mirrors SMXDevice::GetConfigLocked: if a SetConfig is queued
// but not yet sent, return the wanted value so GetConfig right after
// SetConfig reflects it immediately.
func (s *slot) GetConfig() (Config, bool) {
	if s.sendConfig {
		return s.wantedConfig, s.haveConfig
	}
	return s.config, s.haveConfig
}

func (s *slot) SetConfig(c Config) {
	s.wantedConfig = c
	s.sendConfig = true
}

// sendCommand is the slot-level wrapper mirroring SMXDevice::SendCommandLocked:
// commands sent to a device that isn't connected just silently complete.
func (s *slot) sendCommand(cmd []byte, onComplete func()) {
	if s.conn == nil {
		if onComplete != nil {
			onComplete()
		}
		return
	}
	s.conn.SendCommand(cmd, onComplete)
}

func (s *slot) FactoryReset() {
	s.sendCommand([]byte("f\n"), nil)

	if s.conn == nil {
		return
	}
	info := s.conn.GetDeviceInfo()
	readCmd := "g\n"
	if info.Firmware >= 5 {
		readCmd = "G"
	}
	s.sendCommand([]byte(readCmd), func() {
		s.callUpdate(UpdateReasonFactoryResetCommandComplete)
	})
}

func (s *slot) ForceRecalibration() {
	s.sendCommand([]byte("C\n"), nil)
}

func (s *slot) SetSensorTestMode(mode SensorTestMode) {
	s.sensorTestMode = mode
}

func (s *slot) GetTestData() (SensorTestData, bool) {
	if !s.haveSensorTestModeData {
		return SensorTestData{}, false
	}
	return s.sensorTestData, true
}

// checkActive mirrors SMXDevice::CheckActive: the first time we have
// device info, mark the connection active and request the current
// configuration.
func (s *slot) checkActive() {
	if s.conn == nil || !s.conn.IsConnectedWithDeviceInfo() || s.conn.GetActive() {
		return
	}
	s.conn.SetActive(true)

	info := s.conn.GetDeviceInfo()
	readCmd := "g\n"
	if info.Firmware >= 5 {
		readCmd = "G"
	}
	s.sendCommand([]byte(readCmd), nil)
}

// sendConfigIfNeeded mirrors SMXDevice::SendConfig.
func (s *slot) sendConfigIfNeeded() {
	if s.conn == nil || !s.conn.IsConnectedWithDeviceInfo() {
		return
	}
	if !s.sendConfig || s.sendingConfig || !s.haveConfig || s.waitingForConfigResponse {
		return
	}

	info := s.conn.GetDeviceInfo()
	cmdByte := byte('w')
	readCmd := []byte("g\n")
	if info.Firmware >= 5 {
		cmdByte = 'W'
		readCmd = []byte("G")
	}

	size := byte(ConfigSize)
	if s.config.MasterVersion <= 3 {
		size = configFlagsOffset
	}

	body := s.wantedConfig.MarshalBinary()
	packet := append([]byte{cmdByte, size}, body[:size]...)

	s.sendingConfig = true
	s.sendCommand(packet, func() {
		s.sendingConfig = false
	})
	s.sendConfig = false

	s.config = s.wantedConfig

	s.waitingForConfigResponse = true
	s.sendCommand(readCmd, func() {
		s.waitingForConfigResponse = false
	})
}

// updateSensorTestMode mirrors SMXDevice::UpdateSensorTestMode.
func (s *slot) updateSensorTestMode(now time.Time) {
	if s.sensorTestMode == SensorTestOff {
		return
	}

	if s.waitingForSensorTestModeResponse != SensorTestOff {
		if now.Sub(s.sentSensorTestModeRequestAt) < sensorTestResponseTimeout {
			return
		}
	}

	s.waitingForSensorTestModeResponse = s.sensorTestMode
	s.sentSensorTestModeRequestAt = now

	s.sendCommand([]byte{'y', byte(s.sensorTestMode), '\n'}, nil)
}

// handleSensorTestDataResponse mirrors SMXDevice::HandleSensorTestDataResponse.
func (s *slot) handleSensorTestDataResponse(buf []byte) {
	mode, data, ok := parseSensorTestReply(buf)
	if !ok {
		return
	}

	if s.waitingForSensorTestModeResponse == SensorTestOff {
		return
	}
	if mode != s.waitingForSensorTestModeResponse {
		return
	}
	s.waitingForSensorTestModeResponse = SensorTestOff

	// The mode may have changed again while the request was outstanding.
	if mode != s.sensorTestMode {
		return
	}

	s.haveSensorTestModeData = true
	s.sensorTestData = data

	s.callUpdate(UpdateReasonUpdated)
}

// handlePackets mirrors SMXDevice::HandlePackets: drains reassembled
// command replies out of the connection and dispatches on their first
// byte.
func (s *slot) handlePackets() {
	for {
		buf, ok := s.conn.PopReadPacket()
		if !ok {
			break
		}
		if len(buf) == 0 {
			continue
		}

		switch buf[0] {
		case 'y':
			s.handleSensorTestDataResponse(buf)

		case 'g', 'G':
			if len(buf) < 2 {
				continue
			}
			size := int(buf[1])
			if len(buf) < size+2 {
				continue
			}
			s.config.UnmarshalBinary(buf[2 : 2+size])
			s.haveConfig = true
			s.callUpdate(UpdateReasonUpdated)
		}
	}
}

// update mirrors SMXDevice::Update: check activation, send any queued
// config, poll sensor test mode, pump writes, and handle reassembled
// replies. Input-state changes are reported by deliverReport.
func (s *slot) update(now time.Time) error {
	if s.conn == nil {
		return nil
	}

	s.checkActive()
	s.sendConfigIfNeeded()
	s.updateSensorTestMode(now)

	if err := s.conn.PumpWrites(); err != nil {
		return err
	}

	s.handlePackets()
	return nil
}

// deliverReport feeds one raw inbound report into the connection and fires
// the update callback if the report changed the input state. Returns an
// error only for a malformed packet, which the caller logs and drops
// rather than treating as fatal.
func (s *slot) deliverReport(buf []byte) error {
	if s.conn == nil {
		return nil
	}
	oldState := s.conn.GetInputState()
	err := s.conn.HandleReport(buf)
	if s.conn.GetInputState() != oldState {
		s.callUpdate(UpdateReasonUpdated)
	}
	return err
}

func (s *slot) callUpdate(reason UpdateReason) {
	if s.onUpdate == nil {
		return
	}
	pad := 0
	if s.conn != nil && s.conn.GetDeviceInfo().P2 {
		pad = 1
	}
	s.onUpdate(pad, reason)
}
