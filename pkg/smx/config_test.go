package smx

import "testing"

func TestConfigRoundTrip(t *testing.T) {
	c := DefaultConfig()
	c.MasterVersion = 5
	c.ConfigVersion = 5
	c.Flags = FlagFSR
	c.DebounceNodelayMilliseconds = 12
	c.PanelRotation = 2
	c.StepColor[0] = 0xAB
	c.PanelSettings[3].LoadCellLowThreshold = 7
	c.PanelSettings[3].CombinedHighThreshold = 900

	wire := c.MarshalBinary()
	if len(wire) != ConfigSize {
		t.Fatalf("MarshalBinary: got %d bytes, want %d", len(wire), ConfigSize)
	}

	var got Config
	got.UnmarshalBinary(wire)

	if got != c {
		t.Fatalf("round trip mismatch:\n got  %+v\n want %+v", got, c)
	}
}

func TestConfigUnmarshalShortBuffer(t *testing.T) {
	c := DefaultConfig()
	c.MasterVersion = 9
	c.ConfigVersion = 2

	var got Config
	got.UnmarshalBinary([]byte{9, 2})

	if got.MasterVersion != 9 || got.ConfigVersion != 2 {
		t.Fatalf("short unmarshal should still set fields that fit, got %+v", got)
	}
	// Fields beyond the short input keep their prior value, not zero.
	if got.AutoCalibrationMaxDeviation != 0 {
		t.Fatalf("fields past the short input should be untouched, got %+v", got)
	}
}

func TestConvertOldToNewGatesOnConfigVersion(t *testing.T) {
	old := make([]byte, ConfigSize)
	old[oldConfigVersionOffset] = oldConfigUnset

	c := ConvertOldToNew(old)
	if c.MasterVersion != DefaultConfig().MasterVersion {
		t.Fatalf("unset config version should leave defaults, got %+v", c)
	}
}

func TestConvertOldNewRoundTrip(t *testing.T) {
	c := DefaultConfig()
	c.MasterVersion = 3
	c.ConfigVersion = 3
	c.DebounceNodelayMilliseconds = 20
	c.DebounceDelayMilliseconds = 40
	c.PanelDebounceMicroseconds = 5000
	c.AutoCalibrationMaxDeviation = 50
	c.BadSensorMinimumDelaySeconds = 10
	c.AutoCalibrationAveragesPerUpdate = 30
	c.AutoCalibrationSamplesPerAverage = 250
	c.EnabledSensors = [5]uint8{1, 2, 3, 4, 5}
	c.AutoLightsTimeout = 8
	c.PanelRotation = 1
	for i := range c.PanelSettings {
		c.PanelSettings[i].LoadCellLowThreshold = uint8(10 + i)
		c.PanelSettings[i].LoadCellHighThreshold = uint8(200 + i)
	}

	old := make([]byte, ConfigSize)
	ConvertNewToOld(c, old)
	old[oldConfigVersionOffset] = c.ConfigVersion
	old[oldMasterVersionOffset] = c.MasterVersion

	back := ConvertOldToNew(old)

	if back.DebounceNodelayMilliseconds != c.DebounceNodelayMilliseconds {
		t.Errorf("DebounceNodelayMilliseconds: got %d want %d", back.DebounceNodelayMilliseconds, c.DebounceNodelayMilliseconds)
	}
	if back.DebounceDelayMilliseconds != c.DebounceDelayMilliseconds {
		t.Errorf("DebounceDelayMilliseconds: got %d want %d", back.DebounceDelayMilliseconds, c.DebounceDelayMilliseconds)
	}
	for i := range c.PanelSettings {
		if back.PanelSettings[i].LoadCellLowThreshold != c.PanelSettings[i].LoadCellLowThreshold {
			t.Errorf("panel %d LoadCellLowThreshold: got %d want %d", i, back.PanelSettings[i].LoadCellLowThreshold, c.PanelSettings[i].LoadCellLowThreshold)
		}
		if back.PanelSettings[i].LoadCellHighThreshold != c.PanelSettings[i].LoadCellHighThreshold {
			t.Errorf("panel %d LoadCellHighThreshold: got %d want %d", i, back.PanelSettings[i].LoadCellHighThreshold, c.PanelSettings[i].LoadCellHighThreshold)
		}
	}
}
