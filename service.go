package sensorsdr

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// Staleness bound for a full topology rebuild. Only "repository
	// size changed" queries care about this horizon; per-reading
	// latency is governed by sensorMapUpdatePeriod.
	sensorListUpdatePeriod = 10 * time.Second
	// Staleness bound for one connection's object map. A full
	// enumeration costs on the order of the connection's object count,
	// so reads inside this window reuse the cached map.
	sensorMapUpdatePeriod = 2 * time.Second
)

const noTimestamp = uint32(0xFFFFFFFF)

// Service owns every piece of shared mutable state behind the sensor
// and SDR commands: the topology snapshot, the per-connection object
// cache, the threshold deassertion tracker, and the repository
// reservation counter. Commands and notification callbacks may run on
// different goroutines; everything here is mutex protected.
type Service struct {
	backend Backend
	fru     FruProvider
	log     *logrus.Logger
	tracker *thresholdTracker
	now     func() time.Time

	mu         sync.Mutex
	tree       *sensorTree
	lastAdd    uint32
	lastRemove uint32
	cache      map[string]ObjectMap
	cacheStamp map[string]time.Time

	reservation uint16
}

func NewService(backend Backend, fru FruProvider, log *logrus.Logger) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{
		backend:    backend,
		fru:        fru,
		log:        log,
		tracker:    newThresholdTracker(log),
		now:        time.Now,
		lastAdd:    noTimestamp,
		lastRemove: noTimestamp,
		cache:      map[string]ObjectMap{},
		cacheStamp: map[string]time.Time{},
	}
}

// HandleSensorAdded is called by the host for each sensor-added
// notification. The topology snapshot is dropped and rebuilt on the
// next command that needs it.
func (s *Service) HandleSensorAdded(path string) {
	notificationsTotal.WithLabelValues("added").Inc()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tree = nil
	s.lastAdd = uint32(s.now().Unix())
	s.log.WithField("sensor", path).Debug("sensor added, topology invalidated")
}

// HandleSensorRemoved mirrors HandleSensorAdded for removals.
func (s *Service) HandleSensorRemoved(path string) {
	notificationsTotal.WithLabelValues("removed").Inc()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tree = nil
	s.lastRemove = uint32(s.now().Unix())
	s.log.WithField("sensor", path).Debug("sensor removed, topology invalidated")
}

// HandleThresholdChanged is called by the host for each threshold
// property-changed notification.
func (s *Service) HandleThresholdChanged(path string, values map[string]interface{}) {
	notificationsTotal.WithLabelValues("threshold").Inc()
	s.tracker.HandleThresholdChanged(path, values)
}

// currentTree returns the topology snapshot, rebuilding it from the
// backend when a notification has cleared it.
func (s *Service) currentTree() (*sensorTree, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentTreeLocked()
}

func (s *Service) currentTreeLocked() (*sensorTree, error) {
	if s.tree != nil {
		return s.tree, nil
	}
	byPath, err := s.backend.QuerySensorTree()
	if err != nil {
		backendErrorsTotal.Inc()
		s.log.WithError(err).Error("failed to enumerate sensor tree")
		return nil, ResponseError
	}
	s.tree = newSensorTree(byPath)
	return s.tree, nil
}

// resolve maps a sensor number onto its owning connection and path.
func (s *Service) resolve(sensorNumber uint8) (connection, path string, err error) {
	tree, err := s.currentTree()
	if err != nil {
		return "", "", err
	}
	connection, path, ok := tree.lookup(sensorNumber)
	if !ok {
		return "", "", SensorNotFound
	}
	return connection, path, nil
}

// getSensorMap returns the interface map for one sensor object,
// refreshing the connection's object cache when it is older than
// sensorMapUpdatePeriod. The timestamp only advances on a successful
// enumeration, so a failed backend call is retried on the next request
// instead of after the cooldown.
func (s *Service) getSensorMap(connection, path string) (InterfaceMap, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lastUpdate := s.cacheStamp[connection]
	now := s.now()
	if now.Sub(lastUpdate) > sensorMapUpdatePeriod {
		objects, err := s.backend.EnumerateObjects(connection)
		if err != nil {
			backendErrorsTotal.Inc()
			s.log.WithError(err).WithField("connection", connection).
				Error("Error getting managed objects from connection")
			return nil, ResponseError
		}
		s.cache[connection] = objects
		s.cacheStamp[connection] = now
	}

	objects, ok := s.cache[connection]
	if !ok {
		return nil, ResponseError
	}
	interfaces, ok := objects[path]
	if !ok {
		return nil, ResponseError
	}
	return interfaces, nil
}

// sensorCount is the number of sensors in the current topology,
// rebuilding it first if necessary.
func (s *Service) sensorCount() (int, error) {
	tree, err := s.currentTree()
	if err != nil {
		return 0, err
	}
	return tree.size(), nil
}

func (s *Service) repositoryTimestamps() (lastAdd, lastRemove uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAdd, s.lastRemove
}

// nextReservation advances the repository reservation token, skipping
// zero so that "no reservation" is never a valid token.
func (s *Service) nextReservation() uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reservation++
	if s.reservation == 0 {
		s.reservation++
	}
	return s.reservation
}

func (s *Service) currentReservation() uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reservation
}
