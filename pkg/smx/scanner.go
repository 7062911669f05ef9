package smx

// scanner tracks which HID device paths have already been opened,
// mirroring SMXDeviceSearch: a path is only ever opened once, and it's
// forgotten (so a later reconnect is tried again) when the slot holding it
// reports the device was closed or when a scan no longer enumerates it.
type scanner struct {
	enumerator Enumerator
	known      map[string]Transport
}

func newScanner(e Enumerator) *scanner {
	return &scanner{enumerator: e, known: make(map[string]Transport)}
}

// scan re-enumerates and opens any newly seen device paths
// (SMXDeviceSearch::GetDevices), returning the full set of currently
// open paths. An individual candidate failing to open is logged and
// skipped rather than treated as fatal, since unrelated HID devices on
// the bus are expected to not match and many may simply fail to open.
func (s *scanner) scan(logf func(format string, args ...interface{})) map[string]Transport {
	candidates, err := s.enumerator.Enumerate()
	if err != nil {
		logf("device scan failed: %v", err)
		return s.known
	}

	seen := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		seen[c.Path] = true
		if _, ok := s.known[c.Path]; ok {
			continue
		}

		t, err := c.Open()
		if err != nil {
			logf("error opening device %s: %v", c.Path, err)
			continue
		}
		s.known[c.Path] = t
	}

	for path := range s.known {
		if !seen[path] {
			delete(s.known, path)
		}
	}

	return s.known
}

// deviceWasClosed forgets path, so the next scan treats it as new again
// (SMXDeviceSearch::DeviceWasClosed).
func (s *scanner) deviceWasClosed(path string) {
	delete(s.known, path)
}
