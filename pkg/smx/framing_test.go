package smx

import "testing"

func TestSplitCommandSingleFrame(t *testing.T) {
	cmd := []byte("g\n")
	frames := splitCommand(cmd)
	if len(frames) != 1 {
		t.Fatalf("expected 1 frame for a short command, got %d", len(frames))
	}
	f := frames[0]
	if len(f) != reportSize {
		t.Fatalf("frame length = %d, want %d", len(f), reportSize)
	}
	if f[0] != reportIDSerial {
		t.Fatalf("report id = %d, want %d", f[0], reportIDSerial)
	}
	if f[1] != flagStartOfCommand|flagEndOfCommand {
		t.Fatalf("flags = %#x, want start|end", f[1])
	}
	if f[2] != byte(len(cmd)) {
		t.Fatalf("length byte = %d, want %d", f[2], len(cmd))
	}
	if string(f[3:3+len(cmd)]) != string(cmd) {
		t.Fatalf("payload mismatch: got %q", f[3:3+len(cmd)])
	}
}

func TestSplitCommandZeroLength(t *testing.T) {
	frames := splitCommand(nil)
	if len(frames) != 1 {
		t.Fatalf("expected 1 empty frame for a zero-length command, got %d", len(frames))
	}
	if frames[0][1] != flagStartOfCommand|flagEndOfCommand {
		t.Fatalf("empty command frame should carry both start and end flags, got %#x", frames[0][1])
	}
	if frames[0][2] != 0 {
		t.Fatalf("empty command frame should declare 0 payload bytes, got %d", frames[0][2])
	}
}

func TestSplitCommandMultiFrame(t *testing.T) {
	cmd := make([]byte, maxFramePayload+10)
	for i := range cmd {
		cmd[i] = byte(i)
	}

	frames := splitCommand(cmd)
	if len(frames) != 2 {
		t.Fatalf("expected 2 frames for a %d-byte command, got %d", len(cmd), len(frames))
	}

	first, second := frames[0], frames[1]
	if first[1]&flagStartOfCommand == 0 {
		t.Fatal("first frame must carry start-of-command")
	}
	if first[1]&flagEndOfCommand != 0 {
		t.Fatal("first frame must not carry end-of-command")
	}
	if int(first[2]) != maxFramePayload {
		t.Fatalf("first frame length = %d, want %d", first[2], maxFramePayload)
	}

	if second[1]&flagStartOfCommand != 0 {
		t.Fatal("second frame must not repeat start-of-command")
	}
	if second[1]&flagEndOfCommand == 0 {
		t.Fatal("second (last) frame must carry end-of-command")
	}
	remaining := len(cmd) - maxFramePayload
	if int(second[2]) != remaining {
		t.Fatalf("second frame length = %d, want %d", second[2], remaining)
	}

	reassembled := append(append([]byte{}, first[3:3+int(first[2])]...), second[3:3+int(second[2])]...)
	if string(reassembled) != string(cmd) {
		t.Fatal("reassembled payload does not match original command")
	}
}

func TestDeviceInfoRequestFrame(t *testing.T) {
	f := deviceInfoRequestFrame()
	if len(f) != reportSize {
		t.Fatalf("frame length = %d, want %d", len(f), reportSize)
	}
	if f[0] != reportIDSerial {
		t.Fatalf("report id = %d, want %d", f[0], reportIDSerial)
	}
	if f[1] != flagDeviceInfo {
		t.Fatalf("flags = %#x, want only flagDeviceInfo set", f[1])
	}
}

func TestParseInboundReportInputState(t *testing.T) {
	buf := make([]byte, reportSize)
	buf[0] = reportIDInputState
	buf[1] = 0xCD
	buf[2] = 0xAB

	r, ok := parseInboundReport(buf)
	if !ok {
		t.Fatal("expected ok=true")
	}
	if r.reportID != reportIDInputState {
		t.Fatalf("reportID = %d, want %d", r.reportID, reportIDInputState)
	}
	if r.inputState != 0xABCD {
		t.Fatalf("inputState = %#x, want %#x", r.inputState, 0xABCD)
	}
}

func TestParseInboundReportSerial(t *testing.T) {
	buf := make([]byte, reportSize)
	buf[0] = reportIDSerialIn
	buf[1] = flagStartOfCommand | flagEndOfCommand
	buf[2] = 3
	copy(buf[3:], []byte("abc"))

	r, ok := parseInboundReport(buf)
	if !ok {
		t.Fatal("expected ok=true")
	}
	if r.flags != flagStartOfCommand|flagEndOfCommand {
		t.Fatalf("flags = %#x", r.flags)
	}
	if string(r.payload) != "abc" {
		t.Fatalf("payload = %q, want %q", r.payload, "abc")
	}
}

func TestParseInboundReportOversizedPayloadRejected(t *testing.T) {
	buf := make([]byte, reportSize)
	buf[0] = reportIDSerialIn
	buf[2] = 200 // claims far more payload than the report can hold

	_, ok := parseInboundReport(buf)
	if ok {
		t.Fatal("expected ok=false for an oversized declared payload length")
	}
}

func TestParseInboundReportUnknownID(t *testing.T) {
	buf := make([]byte, reportSize)
	buf[0] = 99
	_, ok := parseInboundReport(buf)
	if ok {
		t.Fatal("expected ok=false for an unrecognized report id")
	}
}

func TestParseDeviceInfoReply(t *testing.T) {
	payload := make([]byte, deviceInfoReplySize)
	payload[2] = 1 // player/P2 byte
	serial := [16]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}
	copy(payload[4:20], serial[:])
	payload[20] = 0x34
	payload[21] = 0x12

	player, gotSerial, firmware := parseDeviceInfoReply(payload)
	if player != 1 {
		t.Fatalf("player = %d, want 1", player)
	}
	if gotSerial != serial {
		t.Fatalf("serial = %v, want %v", gotSerial, serial)
	}
	if firmware != 0x1234 {
		t.Fatalf("firmware = %#x, want %#x", firmware, 0x1234)
	}
}

func TestParseDeviceInfoReplyShortPayload(t *testing.T) {
	// A reply shorter than the fixed layout should still decode safely,
	// padded with zeroes rather than panicking on an out-of-range index.
	player, serial, firmware := parseDeviceInfoReply([]byte{'I', 20})
	if player != 0 || serial != ([16]byte{}) || firmware != 0 {
		t.Fatalf("expected zero values for a short payload, got player=%d serial=%v firmware=%d", player, serial, firmware)
	}
}
