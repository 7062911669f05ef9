package smx

import "encoding/binary"

// SensorTestMode selects what a "y" test-mode request asks the panels for.
// The non-zero values correspond to the wire protocol and must not change
// (§3, §6).
type SensorTestMode byte

const (
	SensorTestOff             SensorTestMode = 0
	SensorTestUncalibrated    SensorTestMode = '0'
	SensorTestCalibrated      SensorTestMode = '1'
	SensorTestNoise           SensorTestMode = '2'
	SensorTestTare            SensorTestMode = '3'
)

const numPanels = 9

// SensorTestData is per-panel diagnostic data returned while a sensor test
// mode is active (SMXSensorTestModeData).
type SensorTestData struct {
	HaveDataFromPanel [numPanels]bool
	SensorLevel       [numPanels][4]int16
	BadSensorInput    [numPanels][4]bool
	DIPSwitchPerPanel [numPanels]int
	BadJumper         [numPanels][4]bool
}

// parseSensorTestReply decodes a complete "y" reply: mode byte, a count
// byte (number of 16-bit words that follow, each carrying one bit of every
// panel's stream), then count*2 bytes of bit-planed data. It returns ok=false if buf is too short for the count
// it declares (the caller should wait for more data, not discard it).
func parseSensorTestReply(buf []byte) (mode SensorTestMode, data SensorTestData, ok bool) {
	if len(buf) < 3 {
		return 0, data, false
	}
	mode = SensorTestMode(buf[1])
	wordCount := int(buf[2])
	byteLen := wordCount * 2
	if len(buf) < byteLen+3 {
		return 0, data, false
	}

	words := make([]uint16, wordCount)
	for i := 0; i < wordCount; i++ {
		off := 3 + i*2
		words[i] = binary.LittleEndian.Uint16(buf[off : off+2])
	}

	for panel := 0; panel < numPanels; panel++ {
		stream := decodePanelStream(words, panel, panelDetailBytes)
		d := decodePanelDetail(stream)
		data.HaveDataFromPanel[panel] = d.present
		if !d.present {
			continue
		}
		data.BadSensorInput[panel] = d.badSensor
		data.DIPSwitchPerPanel[panel] = int(d.dip)
		data.BadJumper[panel] = d.badJumperDIP
		data.SensorLevel[panel] = d.sensorLevel
	}

	return mode, data, true
}

// encodeSensorTestReply is the inverse of parseSensorTestReply, used only
// by tests to build fixtures and to verify the bit-planing round trip
// (§8 property 8).
func encodeSensorTestReply(mode SensorTestMode, wordCount int, data SensorTestData) []byte {
	words := make([]uint16, wordCount)
	for panel := 0; panel < numPanels; panel++ {
		d := panelDetail{
			present:      data.HaveDataFromPanel[panel],
			badSensor:    data.BadSensorInput[panel],
			sensorLevel:  data.SensorLevel[panel],
			dip:          uint8(data.DIPSwitchPerPanel[panel]),
			badJumperDIP: data.BadJumper[panel],
		}
		stream := encodePanelDetail(d)
		encodePanelStream(words, panel, stream)
	}

	buf := make([]byte, 3+wordCount*2)
	buf[0] = 'y'
	buf[1] = byte(mode)
	buf[2] = byte(wordCount)
	for i, w := range words {
		binary.LittleEndian.PutUint16(buf[3+i*2:], w)
	}
	return buf
}
