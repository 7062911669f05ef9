package smx

import "encoding/binary"

// ConfigSize is the fixed, frozen on-wire size of a configuration packet
// (§3, §6). Both the current and pre-version-5 layouts are this size.
const ConfigSize = 250

// configFlagsOffset is offsetof(SMXConfig, flags) in the current layout.
// Writes to masterVersion <= 3 controllers are truncated to this many
// leading bytes (§4.3 "Ready -> Ready").
const configFlagsOffset = 2

// Config flag bits (SMXConfigFlags in SMX.h).
const (
	FlagAutoLightingUsePressedAnimations = 1 << 0
	FlagFSR                              = 1 << 1
)

// PanelSensorSettings is the 16-byte per-panel threshold block
// (packed_sensor_settings_t).
type PanelSensorSettings struct {
	LoadCellLowThreshold  uint8
	LoadCellHighThreshold uint8
	FSRLowThreshold       [4]uint8
	FSRHighThreshold      [4]uint8
	CombinedLowThreshold  uint16
	CombinedHighThreshold uint16
	Reserved              uint16 // must be left unchanged
}

const panelSensorSettingsSize = 16

func (p *PanelSensorSettings) marshalInto(b []byte) {
	b[0] = p.LoadCellLowThreshold
	b[1] = p.LoadCellHighThreshold
	copy(b[2:6], p.FSRLowThreshold[:])
	copy(b[6:10], p.FSRHighThreshold[:])
	binary.LittleEndian.PutUint16(b[10:12], p.CombinedLowThreshold)
	binary.LittleEndian.PutUint16(b[12:14], p.CombinedHighThreshold)
	binary.LittleEndian.PutUint16(b[14:16], p.Reserved)
}

func (p *PanelSensorSettings) unmarshalFrom(b []byte) {
	p.LoadCellLowThreshold = b[0]
	p.LoadCellHighThreshold = b[1]
	copy(p.FSRLowThreshold[:], b[2:6])
	copy(p.FSRHighThreshold[:], b[6:10])
	p.CombinedLowThreshold = binary.LittleEndian.Uint16(b[10:12])
	p.CombinedHighThreshold = binary.LittleEndian.Uint16(b[12:14])
	p.Reserved = binary.LittleEndian.Uint16(b[14:16])
}

// Config is the current (masterVersion >= 5) configuration packet layout.
// Field order mirrors SMXConfig in the original SDK byte-for-byte; this
// struct is never cast over a wire buffer, it's explicitly
// marshaled/unmarshaled in MarshalBinary/UnmarshalBinary so the layout is
// portable regardless of Go's own struct padding rules.
type Config struct {
	MasterVersion uint8
	ConfigVersion uint8
	Flags         uint8

	// Internal tunables; left unchanged by callers in the common case.
	DebounceNodelayMilliseconds uint16
	DebounceDelayMilliseconds   uint16
	PanelDebounceMicroseconds   uint16
	AutoCalibrationMaxDeviation uint8
	BadSensorMinimumDelaySeconds uint8
	AutoCalibrationAveragesPerUpdate uint16
	AutoCalibrationSamplesPerAverage uint16
	AutoCalibrationMaxTare           uint16

	// EnabledSensors packs four sensors on two pads per byte: bit 0 is the
	// first sensor on the first pad, and so on.
	EnabledSensors [5]uint8

	// AutoLightsTimeout is in 128ms units.
	AutoLightsTimeout uint8

	// StepColor is the per-panel (9 panels * 3 bytes) auto-lighting color,
	// scaled to the 0-170 range.
	StepColor [27]uint8

	PlatformStripColor [3]uint8
	AutoLightPanelMask uint16
	PanelRotation      uint8

	PanelSettings [9]PanelSensorSettings

	PreDetailsDelayMilliseconds uint8

	// Padding is the trailing 49 reserved bytes. Callers round-tripping a
	// config through SetConfig should leave this untouched.
	Padding [49]uint8
}

// DefaultConfig returns the zero-value-safe defaults matching the field
// initializers in SMX.h's SMXConfig.
func DefaultConfig() Config {
	var c Config
	c.MasterVersion = 0xFF
	c.ConfigVersion = 0x05
	c.PanelDebounceMicroseconds = 4000
	c.AutoCalibrationMaxDeviation = 100
	c.BadSensorMinimumDelaySeconds = 15
	c.AutoCalibrationAveragesPerUpdate = 60
	c.AutoCalibrationSamplesPerAverage = 500
	c.AutoCalibrationMaxTare = 0xFFFF
	c.AutoLightsTimeout = 1000 / 128
	c.AutoLightPanelMask = 0xFFFF
	c.PreDetailsDelayMilliseconds = 5
	return c
}

// MarshalBinary serializes c into the frozen 250-byte wire layout.
func (c *Config) MarshalBinary() []byte {
	b := make([]byte, ConfigSize)
	b[0] = c.MasterVersion
	b[1] = c.ConfigVersion
	b[2] = c.Flags
	binary.LittleEndian.PutUint16(b[3:5], c.DebounceNodelayMilliseconds)
	binary.LittleEndian.PutUint16(b[5:7], c.DebounceDelayMilliseconds)
	binary.LittleEndian.PutUint16(b[7:9], c.PanelDebounceMicroseconds)
	b[9] = c.AutoCalibrationMaxDeviation
	b[10] = c.BadSensorMinimumDelaySeconds
	binary.LittleEndian.PutUint16(b[11:13], c.AutoCalibrationAveragesPerUpdate)
	binary.LittleEndian.PutUint16(b[13:15], c.AutoCalibrationSamplesPerAverage)
	binary.LittleEndian.PutUint16(b[15:17], c.AutoCalibrationMaxTare)
	copy(b[17:22], c.EnabledSensors[:])
	b[22] = c.AutoLightsTimeout
	copy(b[23:50], c.StepColor[:])
	copy(b[50:53], c.PlatformStripColor[:])
	binary.LittleEndian.PutUint16(b[53:55], c.AutoLightPanelMask)
	b[55] = c.PanelRotation
	for i := range c.PanelSettings {
		off := 56 + i*panelSensorSettingsSize
		c.PanelSettings[i].marshalInto(b[off : off+panelSensorSettingsSize])
	}
	b[200] = c.PreDetailsDelayMilliseconds
	copy(b[201:250], c.Padding[:])
	return b
}

// UnmarshalBinary parses up to ConfigSize bytes of b into c. Fields beyond
// len(b) are left at their current values, matching the device's own
// "anything not filled in keeps its default" semantics for short config
// snapshots.
func (c *Config) UnmarshalBinary(b []byte) {
	n := len(b)
	if n > ConfigSize {
		n = ConfigSize
	}
	get := func(off, size int) []byte {
		if off+size > n {
			return nil
		}
		return b[off : off+size]
	}

	if v := get(0, 1); len(v) == 1 {
		c.MasterVersion = v[0]
	}
	if v := get(1, 1); len(v) == 1 {
		c.ConfigVersion = v[0]
	}
	if v := get(2, 1); len(v) == 1 {
		c.Flags = v[0]
	}
	if v := get(3, 2); len(v) == 2 {
		c.DebounceNodelayMilliseconds = binary.LittleEndian.Uint16(v)
	}
	if v := get(5, 2); len(v) == 2 {
		c.DebounceDelayMilliseconds = binary.LittleEndian.Uint16(v)
	}
	if v := get(7, 2); len(v) == 2 {
		c.PanelDebounceMicroseconds = binary.LittleEndian.Uint16(v)
	}
	if v := get(9, 1); len(v) == 1 {
		c.AutoCalibrationMaxDeviation = v[0]
	}
	if v := get(10, 1); len(v) == 1 {
		c.BadSensorMinimumDelaySeconds = v[0]
	}
	if v := get(11, 2); len(v) == 2 {
		c.AutoCalibrationAveragesPerUpdate = binary.LittleEndian.Uint16(v)
	}
	if v := get(13, 2); len(v) == 2 {
		c.AutoCalibrationSamplesPerAverage = binary.LittleEndian.Uint16(v)
	}
	if v := get(15, 2); len(v) == 2 {
		c.AutoCalibrationMaxTare = binary.LittleEndian.Uint16(v)
	}
	if v := get(17, 5); len(v) == 5 {
		copy(c.EnabledSensors[:], v)
	}
	if v := get(22, 1); len(v) == 1 {
		c.AutoLightsTimeout = v[0]
	}
	if v := get(23, 27); len(v) == 27 {
		copy(c.StepColor[:], v)
	}
	if v := get(50, 3); len(v) == 3 {
		copy(c.PlatformStripColor[:], v)
	}
	if v := get(53, 2); len(v) == 2 {
		c.AutoLightPanelMask = binary.LittleEndian.Uint16(v)
	}
	if v := get(55, 1); len(v) == 1 {
		c.PanelRotation = v[0]
	}
	for i := range c.PanelSettings {
		off := 56 + i*panelSensorSettingsSize
		if v := get(off, panelSensorSettingsSize); len(v) == panelSensorSettingsSize {
			c.PanelSettings[i].unmarshalFrom(v)
		}
	}
	if v := get(200, 1); len(v) == 1 {
		c.PreDetailsDelayMilliseconds = v[0]
	}
	if v := get(201, 49); len(v) == 49 {
		copy(c.Padding[:], v)
	}
}
