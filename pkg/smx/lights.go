package smx

import (
	"math"
	"time"
)

// Panel lights data sizes a caller may submit to SetLights: the 4x4-LED
// layout, and the newer 25-light (4x4 edge + 3x3 inner) layout. Submitting
// the smaller size zero-pads the inner grid (§ SetLights boundary
// behavior).
const (
	LightSize4x4 = 9 * 4 * 4 * 3
	LightSize25  = 9 * 5 * 5 * 3
)

// PlatformLightSize is the fixed size of a platform LED strip submission
// (SMXManager::SetPlatformLights), gated to firmware >= 4.
const PlatformLightSize = 44 * 3

const lightsDelayBetweenCommands = time.Second / 60
const lightsFullUpdatePeriod = time.Second / 30

// scaleLight applies the same brightness scaling as
// SMXManager::SetLights's scaleLight lambda: values above ~170 don't
// make the LEDs noticeably brighter, so everything is scaled down by
// 2/3 for contrast and power.
func scaleLight(b byte) byte {
	return byte(math.Round(float64(b) * 2 / 3))
}

// pendingLightsCommand is one scheduled wire command for both pads,
// mirroring SMXManager::PendingCommand.
type pendingLightsCommand struct {
	sendAt     time.Time
	padCommand [2][]byte
}

func (c pendingLightsCommand) empty() bool {
	return len(c.padCommand[0]) == 0 && len(c.padCommand[1]) == 0
}

// buildLightCommands splits one pad's linear light data into the '4'
// (inner 3x3 grid), '2' (top half) and '3' (bottom half) wire commands,
// scaling every color byte as it goes.
func buildLightCommands(data []byte) (cmd4, cmd2, cmd3 []byte) {
	cmd4 = []byte{'4'}
	cmd2 = []byte{'2'}
	cmd3 = []byte{'3'}

	i := 0
	for panel := 0; panel < 9; panel++ {
		for b := 0; b < 4*4*3; b++ {
			c := scaleLight(data[i])
			i++
			if b < 4*2*3 {
				cmd2 = append(cmd2, c)
			} else {
				cmd3 = append(cmd3, c)
			}
		}
		for b := 0; b < 3*3*3; b++ {
			c := scaleLight(data[i])
			i++
			cmd4 = append(cmd4, c)
		}
	}

	cmd4 = append(cmd4, '\n')
	cmd2 = append(cmd2, '\n')
	cmd3 = append(cmd3, '\n')
	return
}

// SetLights submits a full-panel light frame for up to two pads. panelLights[i]
// is either empty (leave that pad's previous frame queued as-is),
// LightSize4x4, or LightSize25 bytes of linear RGB data; anything else is
// logged and dropped rather than rejected outright, matching the
// original's "Log ... continue" handling per pad. Like every setter, this
// is nonblocking: the actual write happens in the background.
func (m *Manager) SetLights(panelLights [2][]byte) {
	m.do(func() { m.setLightsLocked(panelLights) })
}

func (m *Manager) setLightsLocked(panelLights [2][]byte) {
	if m.panelTestMode != PanelTestOff {
		return
	}

	if m.onlySendLightsOnChange {
		if bytesEqual(panelLights[0], m.lastPanelLights[0]) && bytesEqual(panelLights[1], m.lastPanelLights[1]) {
			return
		}
		m.lastPanelLights = panelLights
	}

	var cmd4, cmd2, cmd3 [2][]byte
	var havePad [2]bool
	for pad := 0; pad < 2; pad++ {
		data := panelLights[pad]
		if len(data) == 0 {
			continue
		}
		if len(data) != LightSize4x4 && len(data) != LightSize25 {
			m.logf("SetLights: lights data should be %d or %d bytes, received %d", LightSize4x4, LightSize25, len(data))
			continue
		}
		if len(data) == LightSize4x4 {
			padded := make([]byte, 0, LightSize25)
			for panel := 0; panel < 9; panel++ {
				padded = append(padded, data[panel*4*4*3:(panel+1)*4*4*3]...)
				padded = append(padded, make([]byte, 3*3*3)...)
			}
			data = padded
		}
		cmd4[pad], cmd2[pad], cmd3[pad] = buildLightCommands(data)
		havePad[pad] = true
	}
	if !havePad[0] && !havePad[1] {
		return
	}

	if len(m.pendingLights) < 3 {
		now := m.now()
		sendAt := now
		if m.delayLightCommandsUntil.After(sendAt) {
			sendAt = m.delayLightCommandsUntil
		}
		times := [3]time.Time{now, now, now}

		anyMasterConnected := false
		masterIsV4 := false
		for pad := 0; pad < 2; pad++ {
			cfg, have := m.slots[pad].GetConfig()
			if !have {
				continue
			}
			anyMasterConnected = true
			if cfg.MasterVersion >= 4 {
				masterIsV4 = true
			}
		}
		if !anyMasterConnected {
			return
		}

		if !masterIsV4 {
			times[1] = sendAt
			times[2] = sendAt.Add(lightsDelayBetweenCommands)
		}

		m.delayLightCommandsUntil = sendAt.Add(lightsFullUpdatePeriod)

		m.pendingLights = append(m.pendingLights,
			pendingLightsCommand{sendAt: times[0]},
			pendingLightsCommand{sendAt: times[1]},
			pendingLightsCommand{sendAt: times[2]},
		)
	}

	n := len(m.pendingLights)
	if n < 3 {
		return
	}
	idx4, idx2, idx3 := n-3, n-2, n-1
	for pad := 0; pad < 2; pad++ {
		if !havePad[pad] {
			continue
		}
		cfg, have := m.slots[pad].GetConfig()
		if !have {
			continue
		}
		if cfg.MasterVersion >= 4 {
			m.pendingLights[idx4].padCommand[pad] = cmd4[pad]
		} else {
			m.pendingLights[idx4].padCommand[pad] = nil
		}
		m.pendingLights[idx2].padCommand[pad] = cmd2[pad]
		m.pendingLights[idx3].padCommand[pad] = cmd3[pad]
	}

	m.wake()
}

// SetPlatformLights submits a platform LED strip frame (the 'L' command),
// gated to masterVersion >= 4 (§ SUPPLEMENTED FEATURES). Like SetLights,
// this is nonblocking.
func (m *Manager) SetPlatformLights(panelLights [2][]byte) {
	m.do(func() { m.setPlatformLightsLocked(panelLights) })
}

func (m *Manager) setPlatformLightsLocked(panelLights [2][]byte) {
	for pad := 0; pad < 2; pad++ {
		data := panelLights[pad]
		if len(data) == 0 {
			continue
		}
		if len(data) != PlatformLightSize {
			m.logf("SetPlatformLights: platform lights data should be %d bytes, received %d", PlatformLightSize, len(data))
			continue
		}
		cfg, have := m.slots[pad].GetConfig()
		if !have || cfg.MasterVersion < 4 {
			continue
		}

		cmd := make([]byte, 0, 3+PlatformLightSize)
		cmd = append(cmd, 'L', 0, 44)
		cmd = append(cmd, data...)
		m.slots[pad].sendCommand(cmd, nil)
	}
	m.wake()
}

// ReenableAutoLights cancels any queued SetLights frames (so a half-sent
// update can't re-disable auto lighting) and tells both pads to resume
// their built-in animations.
func (m *Manager) ReenableAutoLights() {
	m.do(func() { m.reenableAutoLightsLocked() })
}

func (m *Manager) reenableAutoLightsLocked() {
	m.pendingLights = nil
	for pad := 0; pad < 2; pad++ {
		m.slots[pad].sendCommand([]byte("S 1\n"), nil)
	}
	m.wake()
}

// sendLightUpdates dispatches due entries from the pending-lights queue,
// mirroring SendLightUpdates: only one round of commands may be in
// flight at a time, but everything already due is queued together so
// firmware >= 4 pads (which accept all three lights commands at once)
// aren't held back by the per-command pacing earlier firmware needs.
func (m *Manager) sendLightUpdates(now time.Time) {
	if m.lightsInProgress > 0 {
		return
	}

	for len(m.pendingLights) > 0 {
		cmd := m.pendingLights[0]
		if cmd.sendAt.After(now) {
			break
		}

		for pad := 0; pad < 2; pad++ {
			if len(cmd.padCommand[pad]) == 0 {
				continue
			}
			m.lightsInProgress++
			p := pad
			m.slots[p].sendCommand(cmd.padCommand[p], func() {
				m.lightsInProgress--
			})
		}

		m.pendingLights = m.pendingLights[1:]
	}
}

// nextLightsDeadline returns when the loop should next wake to send a
// queued lights command, or ok=false if nothing is pending.
func (m *Manager) nextLightsDeadline() (time.Time, bool) {
	if len(m.pendingLights) == 0 {
		return time.Time{}, false
	}
	return m.pendingLights[0].sendAt, true
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
