package sensorsdr

import (
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// thresholdTracker remembers, per sensor path and alarm signal, whether
// the last observed transition was an assertion or a deassertion. The
// backend only reports the current alarm state, so "has deasserted since
// asserting" needs this memory. A deassertion can only follow a recorded
// assertion; one arriving first is dropped.
type thresholdTracker struct {
	mu  sync.Mutex
	log *logrus.Logger
	// path -> alarm property -> last state (true after assert, false
	// after a deassert that followed an assert). Entries are created
	// lazily and never removed; the sensor population bounds the map.
	deassert map[string]map[string]bool
}

func newThresholdTracker(log *logrus.Logger) *thresholdTracker {
	return &thresholdTracker{
		log:      log,
		deassert: map[string]map[string]bool{},
	}
}

// HandleThresholdChanged consumes one property-changed notification for
// a threshold interface. Only the first alarm property in the changed
// set is considered, matching the notification shape of the backend.
func (t *thresholdTracker) HandleThresholdChanged(path string, values map[string]interface{}) {
	var signal string
	var raw interface{}
	for property, value := range values {
		if strings.Contains(property, "Alarm") {
			signal, raw = property, value
			break
		}
	}
	if signal == "" {
		return
	}
	asserted, ok := raw.(bool)
	if !ok {
		t.log.WithField("sensor", path).Error("thresholdChanged: Assert non bool")
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if asserted {
		t.log.WithFields(logrus.Fields{"sensor": path, "signal": signal}).
			Info("thresholdChanged: assert")
		signals, ok := t.deassert[path]
		if !ok {
			signals = map[string]bool{}
			t.deassert[path] = signals
		}
		signals[signal] = true
		return
	}
	if signals, ok := t.deassert[path]; ok {
		if _, seen := signals[signal]; seen {
			t.log.WithFields(logrus.Fields{"sensor": path, "signal": signal}).
				Info("thresholdChanged: deassert")
			signals[signal] = false
		}
	}
}

// LastDeassertion reports whether signal has a recorded state for path
// and, if so, whether that state is a completed deassertion.
func (t *thresholdTracker) LastDeassertion(path, signal string) (deasserted, known bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	signals, ok := t.deassert[path]
	if !ok {
		return false, false
	}
	state, ok := signals[signal]
	if !ok {
		return false, false
	}
	return !state, true
}
