package smx

import "testing"

func TestPanelStreamRoundTrip(t *testing.T) {
	data := []byte{0x01, 0xFF, 0x80, 0x3C, 0x00, 0x5A, 0x99}
	words := make([]uint16, len(data)*8)

	encodePanelStream(words, 3, data)
	got := decodePanelStream(words, 3, len(data))

	if len(got) != len(data) {
		t.Fatalf("decoded length %d, want %d", len(got), len(data))
	}
	for i := range data {
		if got[i] != data[i] {
			t.Fatalf("byte %d: got %#x want %#x", i, got[i], data[i])
		}
	}
}

func TestPanelStreamIsolatesPanels(t *testing.T) {
	words := make([]uint16, 7*8)
	encodePanelStream(words, 0, []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF})

	// Every other panel's bit plane must stay zero.
	for panel := 1; panel < 9; panel++ {
		got := decodePanelStream(words, panel, 7)
		for _, b := range got {
			if b != 0 {
				t.Fatalf("panel %d polluted by panel 0's data: %v", panel, got)
			}
		}
	}
}

func TestPanelDetailRoundTrip(t *testing.T) {
	d := panelDetail{
		present:      true,
		badSensor:    [4]bool{true, false, true, false},
		sensorLevel:  [4]int16{100, -50, 0, 32767},
		dip:          0b1010,
		badJumperDIP: [4]bool{false, true, false, true},
	}

	stream := encodePanelDetail(d)
	if len(stream) != panelDetailBytes {
		t.Fatalf("encoded length %d, want %d", len(stream), panelDetailBytes)
	}

	got := decodePanelDetail(stream)
	if got != d {
		t.Fatalf("round trip mismatch:\n got  %+v\n want %+v", got, d)
	}
}

func TestPanelDetailAbsentSignature(t *testing.T) {
	// A stream that doesn't carry the 0-1-0 signature (e.g. random step
	// data) must decode as not present.
	stream := []byte{0xFF, 0, 0, 0, 0, 0, 0}
	got := decodePanelDetail(stream)
	if got.present {
		t.Fatalf("expected present=false for a non-signature header, got %+v", got)
	}
}

func TestSensorTestReplyRoundTrip(t *testing.T) {
	var data SensorTestData
	for p := 0; p < numPanels; p++ {
		data.HaveDataFromPanel[p] = true
		data.DIPSwitchPerPanel[p] = p % 16
		for s := 0; s < 4; s++ {
			data.SensorLevel[p][s] = int16(p*10 + s)
		}
	}
	data.BadSensorInput[2] = [4]bool{true, false, false, true}
	data.BadJumper[5] = [4]bool{false, true, true, false}

	wordCount := panelDetailBytes * 8
	buf := encodeSensorTestReply(SensorTestCalibrated, wordCount, data)

	mode, got, ok := parseSensorTestReply(buf)
	if !ok {
		t.Fatal("parseSensorTestReply returned ok=false")
	}
	if mode != SensorTestCalibrated {
		t.Fatalf("mode = %v, want %v", mode, SensorTestCalibrated)
	}
	for p := 0; p < numPanels; p++ {
		if got.HaveDataFromPanel[p] != data.HaveDataFromPanel[p] {
			t.Fatalf("panel %d HaveDataFromPanel mismatch", p)
		}
		if got.DIPSwitchPerPanel[p] != data.DIPSwitchPerPanel[p] {
			t.Fatalf("panel %d DIP mismatch: got %d want %d", p, got.DIPSwitchPerPanel[p], data.DIPSwitchPerPanel[p])
		}
		if got.SensorLevel[p] != data.SensorLevel[p] {
			t.Fatalf("panel %d sensor levels mismatch: got %v want %v", p, got.SensorLevel[p], data.SensorLevel[p])
		}
	}
	if got.BadSensorInput[2] != data.BadSensorInput[2] {
		t.Fatalf("BadSensorInput[2] mismatch")
	}
	if got.BadJumper[5] != data.BadJumper[5] {
		t.Fatalf("BadJumper[5] mismatch")
	}
}

func TestSensorTestReplyTruncatedWaitsForMore(t *testing.T) {
	buf := []byte{'y', byte(SensorTestNoise), 10} // declares 10 words, 20 bytes, but none follow
	_, _, ok := parseSensorTestReply(buf)
	if ok {
		t.Fatal("expected ok=false for a reply shorter than its declared length")
	}
}
