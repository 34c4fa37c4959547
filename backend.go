package sensorsdr

import (
	"sync"

	"github.com/pkg/errors"
)

// Object model property names mirror the sensor service's interfaces.
const (
	ValueInterface    = "xyz.openbmc_project.Sensor.Value"
	WarningInterface  = "xyz.openbmc_project.Sensor.Threshold.Warning"
	CriticalInterface = "xyz.openbmc_project.Sensor.Threshold.Critical"
)

type PropertyMap map[string]interface{}

type InterfaceMap map[string]PropertyMap

// ObjectMap is everything one connection exposes, keyed by object path.
type ObjectMap map[string]InterfaceMap

// Backend is the live sensor directory the commands run against. All
// calls are synchronous round trips; failures surface immediately and
// are never retried here.
type Backend interface {
	// QuerySensorTree enumerates every sensor object path and the
	// connection that owns it.
	QuerySensorTree() (map[string]string, error)
	// EnumerateObjects fetches all objects exposed by one connection.
	EnumerateObjects(connection string) (ObjectMap, error)
	SetProperty(connection, path, iface, property string, value interface{}) error
	AppendEventLogEntry(message, sensorPath string, eventData [3]byte, assert bool, generatorID uint16) error
}

// FruProvider supplies the FRU locator records appended after the
// sensor records in the repository.
type FruProvider interface {
	FruSdrCount() (int, error)
	FruSdrRecord(index int) ([]byte, error)
}

// LoggedEvent is one platform event as recorded by StaticBackend.
type LoggedEvent struct {
	Message     string
	SensorPath  string
	EventData   [3]byte
	Assert      bool
	GeneratorID uint16
}

// StaticBackend serves a fixed sensor population from memory. It backs
// the CLI repository dump and the tests; SetProperty writes through to
// the in-memory objects so threshold updates read back.
type StaticBackend struct {
	mu      sync.Mutex
	objects map[string]ObjectMap
	tree    map[string]string
	fru     [][]byte

	Events []LoggedEvent

	// FailEnumerate makes every enumeration call fail, simulating an
	// unreachable connection.
	FailEnumerate bool
}

func NewStaticBackend() *StaticBackend {
	return &StaticBackend{
		objects: map[string]ObjectMap{},
		tree:    map[string]string{},
	}
}

func (s *StaticBackend) AddSensor(connection, path string, interfaces InterfaceMap) {
	s.mu.Lock()
	defer s.mu.Unlock()
	objects, ok := s.objects[connection]
	if !ok {
		objects = ObjectMap{}
		s.objects[connection] = objects
	}
	objects[path] = interfaces
	s.tree[path] = connection
}

func (s *StaticBackend) RemoveSensor(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	connection, ok := s.tree[path]
	if !ok {
		return
	}
	delete(s.tree, path)
	delete(s.objects[connection], path)
}

func (s *StaticBackend) AddFruRecord(record []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fru = append(s.fru, record)
}

func (s *StaticBackend) QuerySensorTree() (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailEnumerate {
		return nil, errors.New("sensor tree enumeration failed")
	}
	tree := make(map[string]string, len(s.tree))
	for path, connection := range s.tree {
		tree[path] = connection
	}
	return tree, nil
}

func (s *StaticBackend) EnumerateObjects(connection string) (ObjectMap, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailEnumerate {
		return nil, errors.Errorf("enumeration failed for %s", connection)
	}
	objects, ok := s.objects[connection]
	if !ok {
		return nil, errors.Errorf("no such connection %s", connection)
	}
	out := make(ObjectMap, len(objects))
	for path, interfaces := range objects {
		copied := make(InterfaceMap, len(interfaces))
		for iface, props := range interfaces {
			propCopy := make(PropertyMap, len(props))
			for k, v := range props {
				propCopy[k] = v
			}
			copied[iface] = propCopy
		}
		out[path] = copied
	}
	return out, nil
}

func (s *StaticBackend) SetProperty(connection, path, iface, property string, value interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	objects, ok := s.objects[connection]
	if !ok {
		return errors.Errorf("no such connection %s", connection)
	}
	interfaces, ok := objects[path]
	if !ok {
		return errors.Errorf("no such object %s", path)
	}
	props, ok := interfaces[iface]
	if !ok {
		return errors.Errorf("object %s has no interface %s", path, iface)
	}
	props[property] = value
	return nil
}

func (s *StaticBackend) AppendEventLogEntry(message, sensorPath string, eventData [3]byte, assert bool, generatorID uint16) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Events = append(s.Events, LoggedEvent{
		Message:     message,
		SensorPath:  sensorPath,
		EventData:   eventData,
		Assert:      assert,
		GeneratorID: generatorID,
	})
	return nil
}

func (s *StaticBackend) FruSdrCount() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.fru), nil
}

func (s *StaticBackend) FruSdrRecord(index int) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.fru) {
		return nil, errors.Errorf("no FRU record %d", index)
	}
	record := make([]byte, len(s.fru[index]))
	copy(record, s.fru[index])
	return record, nil
}
