package smx

import "encoding/binary"

// The pre-version-5 configuration layout (OldSMXConfig in the original SDK).
// Same 250-byte size as Config, different field order, and missing the
// fields added after configVersion 3. §4.4 requires both directions to be
// implemented as explicit field-offset reads/writes rather than layout
// punning, so this file never reinterprets a []byte as a struct; it only
// ever indexes into one at fixed offsets.
const (
	oldMasterDebounceMillisecondsOffset   = 6
	oldPanelThreshold7LowOffset           = 8
	oldPanelThreshold7HighOffset          = 9
	oldPanelThreshold4LowOffset           = 10
	oldPanelThreshold4HighOffset          = 11
	oldPanelThreshold2LowOffset           = 12
	oldPanelThreshold2HighOffset          = 13
	oldPanelDebounceMicrosecondsOffset    = 14
	oldAutoCalibrationMaxDeviationOffset  = 18
	oldBadSensorMinimumDelaySecsOffset    = 19
	oldAutoCalibrationAveragesPerUpdOff   = 20
	oldPanelThreshold1LowOffset           = 24
	oldPanelThreshold1HighOffset          = 25
	oldEnabledSensorsOffset               = 26
	oldAutoLightsTimeoutOffset            = 31
	oldStepColorOffset                    = 32
	oldPanelRotationOffset                = 59
	oldAutoCalibrationSamplesPerAvgOffset = 60
	oldMasterVersionOffset                = 62
	oldConfigVersionOffset                = 63
	oldPanelThreshold0LowOffset           = 74
	oldPanelThreshold0HighOffset          = 75
	oldPanelThreshold3LowOffset           = 76
	oldPanelThreshold3HighOffset          = 77
	oldPanelThreshold5LowOffset           = 78
	oldPanelThreshold5HighOffset          = 79
	oldPanelThreshold6LowOffset           = 80
	oldPanelThreshold6HighOffset          = 81
	oldPanelThreshold8LowOffset           = 82
	oldPanelThreshold8HighOffset          = 83
	oldDebounceDelayMillisecondsOffset    = 84

	oldConfigUnset = 0xFF
)

// ConvertOldToNew decodes a pre-version-5 configuration snapshot into the
// current layout. Fields absent from the old layout (because configVersion
// gates them) are left at Config's defaults.
func ConvertOldToNew(old []byte) Config {
	c := DefaultConfig()
	if len(old) < ConfigSize {
		padded := make([]byte, ConfigSize)
		copy(padded, old)
		old = padded
	}

	c.DebounceNodelayMilliseconds = binary.LittleEndian.Uint16(old[oldMasterDebounceMillisecondsOffset:])

	c.PanelSettings[7].LoadCellLowThreshold = old[oldPanelThreshold7LowOffset]
	c.PanelSettings[4].LoadCellLowThreshold = old[oldPanelThreshold4LowOffset]
	c.PanelSettings[2].LoadCellLowThreshold = old[oldPanelThreshold2LowOffset]

	c.PanelSettings[7].LoadCellHighThreshold = old[oldPanelThreshold7HighOffset]
	c.PanelSettings[4].LoadCellHighThreshold = old[oldPanelThreshold4HighOffset]
	c.PanelSettings[2].LoadCellHighThreshold = old[oldPanelThreshold2HighOffset]

	c.PanelDebounceMicroseconds = binary.LittleEndian.Uint16(old[oldPanelDebounceMicrosecondsOffset:])
	c.AutoCalibrationMaxDeviation = old[oldAutoCalibrationMaxDeviationOffset]
	c.BadSensorMinimumDelaySeconds = old[oldBadSensorMinimumDelaySecsOffset]
	c.AutoCalibrationAveragesPerUpdate = binary.LittleEndian.Uint16(old[oldAutoCalibrationAveragesPerUpdOff:])

	c.PanelSettings[1].LoadCellLowThreshold = old[oldPanelThreshold1LowOffset]
	c.PanelSettings[1].LoadCellHighThreshold = old[oldPanelThreshold1HighOffset]

	copy(c.EnabledSensors[:], old[oldEnabledSensorsOffset:oldEnabledSensorsOffset+5])
	c.AutoLightsTimeout = old[oldAutoLightsTimeoutOffset]
	copy(c.StepColor[:], old[oldStepColorOffset:oldStepColorOffset+27])
	c.PanelRotation = old[oldPanelRotationOffset]
	c.AutoCalibrationSamplesPerAverage = binary.LittleEndian.Uint16(old[oldAutoCalibrationSamplesPerAvgOffset:])

	configVersion := old[oldConfigVersionOffset]
	if configVersion == oldConfigUnset {
		return c
	}

	c.MasterVersion = old[oldMasterVersionOffset]
	c.ConfigVersion = configVersion

	if configVersion < 2 {
		return c
	}

	c.PanelSettings[0].LoadCellLowThreshold = old[oldPanelThreshold0LowOffset]
	c.PanelSettings[3].LoadCellLowThreshold = old[oldPanelThreshold3LowOffset]
	c.PanelSettings[5].LoadCellLowThreshold = old[oldPanelThreshold5LowOffset]
	c.PanelSettings[6].LoadCellLowThreshold = old[oldPanelThreshold6LowOffset]
	c.PanelSettings[8].LoadCellLowThreshold = old[oldPanelThreshold8LowOffset]

	c.PanelSettings[0].LoadCellHighThreshold = old[oldPanelThreshold0HighOffset]
	c.PanelSettings[3].LoadCellHighThreshold = old[oldPanelThreshold3HighOffset]
	c.PanelSettings[5].LoadCellHighThreshold = old[oldPanelThreshold5HighOffset]
	c.PanelSettings[6].LoadCellHighThreshold = old[oldPanelThreshold6HighOffset]
	c.PanelSettings[8].LoadCellHighThreshold = old[oldPanelThreshold8HighOffset]

	if configVersion < 3 {
		return c
	}

	c.DebounceDelayMilliseconds = binary.LittleEndian.Uint16(old[oldDebounceDelayMillisecondsOffset:])

	return c
}

// ConvertNewToOld writes c's fields into old (which must be ConfigSize
// bytes, typically the last raw old-layout snapshot read from the device)
// at the offsets the pre-version-5 firmware expects. Fields that exist in
// the old layout but not the new one are left untouched in old, since the
// caller must preserve unknown bytes when round-tripping (§4.4).
func ConvertNewToOld(c Config, old []byte) {
	binary.LittleEndian.PutUint16(old[oldMasterDebounceMillisecondsOffset:], c.DebounceNodelayMilliseconds)

	old[oldPanelThreshold7LowOffset] = c.PanelSettings[7].LoadCellLowThreshold
	old[oldPanelThreshold4LowOffset] = c.PanelSettings[4].LoadCellLowThreshold
	old[oldPanelThreshold2LowOffset] = c.PanelSettings[2].LoadCellLowThreshold

	old[oldPanelThreshold7HighOffset] = c.PanelSettings[7].LoadCellHighThreshold
	old[oldPanelThreshold4HighOffset] = c.PanelSettings[4].LoadCellHighThreshold
	old[oldPanelThreshold2HighOffset] = c.PanelSettings[2].LoadCellHighThreshold

	binary.LittleEndian.PutUint16(old[oldPanelDebounceMicrosecondsOffset:], c.PanelDebounceMicroseconds)
	old[oldAutoCalibrationMaxDeviationOffset] = c.AutoCalibrationMaxDeviation
	old[oldBadSensorMinimumDelaySecsOffset] = c.BadSensorMinimumDelaySeconds
	binary.LittleEndian.PutUint16(old[oldAutoCalibrationAveragesPerUpdOff:], c.AutoCalibrationAveragesPerUpdate)

	old[oldPanelThreshold1LowOffset] = c.PanelSettings[1].LoadCellLowThreshold
	old[oldPanelThreshold1HighOffset] = c.PanelSettings[1].LoadCellHighThreshold

	copy(old[oldEnabledSensorsOffset:oldEnabledSensorsOffset+5], c.EnabledSensors[:])
	old[oldAutoLightsTimeoutOffset] = c.AutoLightsTimeout
	copy(old[oldStepColorOffset:oldStepColorOffset+27], c.StepColor[:])
	old[oldPanelRotationOffset] = c.PanelRotation
	binary.LittleEndian.PutUint16(old[oldAutoCalibrationSamplesPerAvgOffset:], c.AutoCalibrationSamplesPerAverage)

	old[oldMasterVersionOffset] = c.MasterVersion
	old[oldConfigVersionOffset] = c.ConfigVersion

	old[oldPanelThreshold0LowOffset] = c.PanelSettings[0].LoadCellLowThreshold
	old[oldPanelThreshold3LowOffset] = c.PanelSettings[3].LoadCellLowThreshold
	old[oldPanelThreshold5LowOffset] = c.PanelSettings[5].LoadCellLowThreshold
	old[oldPanelThreshold6LowOffset] = c.PanelSettings[6].LoadCellLowThreshold
	old[oldPanelThreshold8LowOffset] = c.PanelSettings[8].LoadCellLowThreshold

	old[oldPanelThreshold0HighOffset] = c.PanelSettings[0].LoadCellHighThreshold
	old[oldPanelThreshold3HighOffset] = c.PanelSettings[3].LoadCellHighThreshold
	old[oldPanelThreshold5HighOffset] = c.PanelSettings[5].LoadCellHighThreshold
	old[oldPanelThreshold6HighOffset] = c.PanelSettings[6].LoadCellHighThreshold
	old[oldPanelThreshold8HighOffset] = c.PanelSettings[8].LoadCellHighThreshold

	binary.LittleEndian.PutUint16(old[oldDebounceDelayMillisecondsOffset:], c.DebounceDelayMilliseconds)
}
