// Package smx is a host-side driver for a pair of StepManiaX USB-HID dance
// pad controllers.
//
// It owns a device scanner, one I/O engine and device state machine per
// player slot, a lights scheduler, and a user-callback worker. No public
// method waits for device I/O: getters return the most recent known state,
// and setters hand their change to the manager's loop goroutine and return
// once the loop has applied it, leaving the wire traffic to the
// background. Apart from SetLogCallback and SetUpdateCallback, methods
// other than Start wait for the loop, so they need Start to have been
// called. Operating on a disconnected pad is a silent no-op; setters
// only return an error when the failure has nothing to do with a pad at
// all (AssignSerialNumbers's entropy source, Stop's reentrancy check).
package smx
