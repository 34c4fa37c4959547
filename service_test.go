package sensorsdr

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testConnection = "xyz.openbmc_project.HwmonTempSensor"
	cpuTempPath    = "/xyz/openbmc_project/sensors/temperature/CPU_Temp"
	fanPath        = "/xyz/openbmc_project/sensors/fan_tach/Fan_1"
)

func cpuTempInterfaces() InterfaceMap {
	return InterfaceMap{
		ValueInterface: PropertyMap{
			"Value":    50.0,
			"MaxValue": 100.0,
			"MinValue": 0.0,
		},
		WarningInterface: PropertyMap{
			"WarningHigh":      80.0,
			"WarningLow":       10.0,
			"WarningAlarmHigh": false,
			"WarningAlarmLow":  false,
		},
		CriticalInterface: PropertyMap{
			"CriticalHigh":      90.0,
			"CriticalLow":       5.0,
			"CriticalAlarmHigh": false,
			"CriticalAlarmLow":  false,
		},
	}
}

// newTestService wires a Service to a static backend holding the CPU
// temperature fixture, with a controllable clock.
func newTestService(t *testing.T) (*Service, *StaticBackend, *time.Time) {
	t.Helper()
	backend := NewStaticBackend()
	backend.AddSensor(testConnection, cpuTempPath, cpuTempInterfaces())
	service := NewService(backend, backend, testLogger())
	clock := time.Unix(1700000000, 0)
	service.now = func() time.Time { return clock }
	return service, backend, &clock
}

func TestResolveUnknownSensor(t *testing.T) {
	service, _, _ := newTestService(t)
	_, err := service.GetSensorReading(42)
	assert.Equal(t, SensorNotFound, CodeOf(err))
}

func TestSensorMapCached(t *testing.T) {
	service, backend, clock := newTestService(t)

	resp, err := service.GetSensorReading(0)
	require.NoError(t, err)
	assert.Equal(t, uint8(128), resp.Reading)

	// a backend-side change is invisible until the cache expires
	require.NoError(t, backend.SetProperty(testConnection, cpuTempPath,
		ValueInterface, "Value", 90.0))
	resp, err = service.GetSensorReading(0)
	require.NoError(t, err)
	assert.Equal(t, uint8(128), resp.Reading)

	*clock = clock.Add(3 * time.Second)
	resp, err = service.GetSensorReading(0)
	require.NoError(t, err)
	assert.Equal(t, uint8(231), resp.Reading)
}

func TestFailedEnumerationRetriedImmediately(t *testing.T) {
	service, backend, _ := newTestService(t)

	// prime the topology before enumeration starts failing
	_, err := service.sensorCount()
	require.NoError(t, err)

	backend.FailEnumerate = true
	_, err = service.GetSensorReading(0)
	assert.Equal(t, ResponseError, CodeOf(err))

	// the failure must not start a cache cooldown: the very next call
	// succeeds without any clock movement
	backend.FailEnumerate = false
	resp, err := service.GetSensorReading(0)
	require.NoError(t, err)
	assert.Equal(t, uint8(128), resp.Reading)
}

func TestTopologyInvalidatedByNotifications(t *testing.T) {
	service, backend, _ := newTestService(t)

	count, err := service.sensorCount()
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	backend.AddSensor(testConnection, fanPath, InterfaceMap{
		ValueInterface: PropertyMap{
			"Value":    4000.0,
			"MaxValue": 10000.0,
			"MinValue": 0.0,
		},
	})
	// without a notification the old snapshot stays live
	count, err = service.sensorCount()
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	service.HandleSensorAdded(fanPath)
	count, err = service.sensorCount()
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	backend.RemoveSensor(fanPath)
	service.HandleSensorRemoved(fanPath)
	count, err = service.sensorCount()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRepositoryTimestamps(t *testing.T) {
	service, _, clock := newTestService(t)

	lastAdd, lastRemove := service.repositoryTimestamps()
	assert.Equal(t, noTimestamp, lastAdd)
	assert.Equal(t, noTimestamp, lastRemove)

	service.HandleSensorAdded(fanPath)
	lastAdd, lastRemove = service.repositoryTimestamps()
	assert.Equal(t, uint32(clock.Unix()), lastAdd)
	assert.Equal(t, noTimestamp, lastRemove)

	*clock = clock.Add(5 * time.Second)
	service.HandleSensorRemoved(fanPath)
	_, lastRemove = service.repositoryTimestamps()
	assert.Equal(t, uint32(clock.Unix()), lastRemove)
}

func TestSensorNumbersFollowSortedPaths(t *testing.T) {
	backend := NewStaticBackend()
	backend.AddSensor(testConnection, "/xyz/openbmc_project/sensors/voltage/P12V", nil)
	backend.AddSensor(testConnection, "/xyz/openbmc_project/sensors/temperature/Inlet", nil)
	service := NewService(backend, backend, testLogger())

	tree, err := service.currentTree()
	require.NoError(t, err)
	_, path, ok := tree.at(0)
	require.True(t, ok)
	assert.Equal(t, "/xyz/openbmc_project/sensors/temperature/Inlet", path)
	_, path, ok = tree.at(1)
	require.True(t, ok)
	assert.Equal(t, "/xyz/openbmc_project/sensors/voltage/P12V", path)
	_, _, ok = tree.at(2)
	assert.False(t, ok)
}

func TestSensorNameHelpers(t *testing.T) {
	assert.Equal(t, "CPU Temp", sensorNameFromPath(cpuTempPath))
	assert.Equal(t, "temperature", sensorCategoryFromPath(cpuTempPath))
	assert.Equal(t, "fan_tach", sensorCategoryFromPath(fanPath))
}
