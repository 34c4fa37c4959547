package sensorsdr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReserveSDRSkipsZero(t *testing.T) {
	service, _, _ := newTestService(t)

	first := service.ReserveSDR().ReservationID
	second := service.ReserveSDR().ReservationID
	assert.NotZero(t, first)
	assert.NotEqual(t, first, second)

	// the counter never hands out zero, even on wraparound
	service.reservation = 0xFFFF
	assert.Equal(t, uint16(1), service.ReserveSDR().ReservationID)
}

func TestGetSDRRepositoryInfo(t *testing.T) {
	service, _, _ := newTestService(t)

	resp, err := service.GetSDRRepositoryInfo()
	require.NoError(t, err)
	assert.Equal(t, ipmiSdrVersion, resp.SDRVersion)
	assert.Equal(t, uint16(1), resp.RecordCount)
	assert.Equal(t, noTimestamp, resp.MostRecentAddition)
	assert.Equal(t, noTimestamp, resp.MostRecentErase)
	assert.Equal(t, repositoryOverflow|allocCommandSupported|reserveSDRCommandSupported,
		resp.OperationSupport)

	data, err := resp.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, data, 14)
	// free space unspecified
	assert.Equal(t, []byte{0xFF, 0xFF}, data[3:5])
}

func TestGetSDRAllocationInfo(t *testing.T) {
	service, _, _ := newTestService(t)

	data, err := service.GetSDRAllocationInfo().MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, maxSDRTotalSize, 0, 0, 0, 0, 0, 1}, data)
}

func TestGetSDRFullRecord(t *testing.T) {
	service, _, _ := newTestService(t)

	resp, err := service.GetSDR(&GetSDRReq{RecordID: 0, BytesToRead: 0xFF})
	require.NoError(t, err)
	assert.Equal(t, lastRecordIndex, resp.NextRecordID)
	require.Len(t, resp.RecordData, fullSensorRecordSize)

	record, err := ParseFullSensorRecord(resp.RecordData)
	require.NoError(t, err)
	assert.Equal(t, uint16(0), record.RecordID)
	assert.Equal(t, uint8(0), record.SensorNumber)
	assert.Equal(t, uint8(0x01), record.SensorType) // temperature
	assert.Equal(t, uint8(1), record.UnitCode)      // degrees C
	assert.Equal(t, "CPU Temp", record.Name)
	assert.False(t, record.Signed)

	// scaling over the declared [0, 100] range, shifted by the record
	// path's wider fallback when MaxValue/MinValue are declared anyway
	assert.Equal(t, 39, record.M)
	assert.Equal(t, -2, record.RExp)
	assert.Equal(t, 0, record.B)
	assert.InDelta(t, 50.0, record.ConvertRawToValue(128), 0.4)
}

func TestGetSDRWalksAllRecords(t *testing.T) {
	service, backend, _ := newTestService(t)
	backend.AddSensor(testConnection, fanPath, InterfaceMap{
		ValueInterface: PropertyMap{"Value": 4000.0, "MaxValue": 10000.0, "MinValue": 0.0},
	})
	service.HandleSensorAdded(fanPath)

	resp, err := service.GetSDR(&GetSDRReq{RecordID: 0, BytesToRead: 0xFF})
	require.NoError(t, err)
	assert.Equal(t, uint16(1), resp.NextRecordID)

	resp, err = service.GetSDR(&GetSDRReq{RecordID: 1, BytesToRead: 0xFF})
	require.NoError(t, err)
	assert.Equal(t, lastRecordIndex, resp.NextRecordID)

	// 0xFFFF addresses the literal last record
	resp, err = service.GetSDR(&GetSDRReq{RecordID: lastRecordIndex, BytesToRead: 0xFF})
	require.NoError(t, err)
	record, err := ParseFullSensorRecord(resp.RecordData)
	require.NoError(t, err)
	assert.Equal(t, uint16(1), record.RecordID)
}

func TestGetSDROutOfRange(t *testing.T) {
	service, _, _ := newTestService(t)
	_, err := service.GetSDR(&GetSDRReq{RecordID: 7, BytesToRead: 0xFF})
	assert.Equal(t, InvalidFieldRequest, CodeOf(err))
}

func TestGetSDREmptyRepository(t *testing.T) {
	backend := NewStaticBackend()
	service := NewService(backend, backend, testLogger())
	_, err := service.GetSDR(&GetSDRReq{RecordID: 0, BytesToRead: 0xFF})
	assert.Equal(t, InvalidFieldRequest, CodeOf(err))
}

func TestGetSDRPartialReadNeedsReservation(t *testing.T) {
	service, _, _ := newTestService(t)

	_, err := service.GetSDR(&GetSDRReq{RecordID: 0, Offset: 5, BytesToRead: 8})
	assert.Equal(t, InvalidReservationId, CodeOf(err))

	reservation := service.ReserveSDR().ReservationID
	_, err = service.GetSDR(&GetSDRReq{
		ReservationID: reservation + 1, RecordID: 0, Offset: 5, BytesToRead: 8,
	})
	assert.Equal(t, InvalidReservationId, CodeOf(err))

	resp, err := service.GetSDR(&GetSDRReq{
		ReservationID: reservation, RecordID: 0, Offset: 5, BytesToRead: 8,
	})
	require.NoError(t, err)
	assert.Len(t, resp.RecordData, 8)
}

func TestGetSDRSlicing(t *testing.T) {
	service, _, _ := newTestService(t)
	reservation := service.ReserveSDR().ReservationID

	// a read past the end is truncated, not an error
	resp, err := service.GetSDR(&GetSDRReq{
		ReservationID: reservation, RecordID: 0, Offset: 60, BytesToRead: 10,
	})
	require.NoError(t, err)
	assert.Len(t, resp.RecordData, 4)

	// an offset past the end is rejected
	_, err = service.GetSDR(&GetSDRReq{
		ReservationID: reservation, RecordID: 0, Offset: 70, BytesToRead: 1,
	})
	assert.Equal(t, InvalidFieldRequest, CodeOf(err))
}

func TestGetSDRDelegatesFruRecords(t *testing.T) {
	service, backend, _ := newTestService(t)
	fru := make([]byte, 20)
	fru[2] = ipmiSdrVersion
	fru[3] = SDR_TYPE_FRU_DEVICE_LOCATOR_RECORD
	fru[4] = 15
	backend.AddFruRecord(fru)

	resp, err := service.GetSDR(&GetSDRReq{RecordID: 1, BytesToRead: 0xFF})
	require.NoError(t, err)
	assert.Equal(t, lastRecordIndex, resp.NextRecordID)
	require.Len(t, resp.RecordData, 20)
	// the locator's record id is rewritten to its repository position
	assert.Equal(t, uint8(1), resp.RecordData[0])
	assert.Equal(t, uint8(0), resp.RecordData[1])
	assert.Equal(t, SDR_TYPE_FRU_DEVICE_LOCATOR_RECORD, resp.RecordData[3])

	_, err = ParseFullSensorRecord(resp.RecordData)
	assert.True(t, IsUnsupportedSDRTypeErr(err))
}

func TestFullRecordExponentByteLowNibbleZero(t *testing.T) {
	service, backend, _ := newTestService(t)
	// a [1000, 2000] range derives a nonzero B exponent, which the
	// emitted exponent byte nevertheless reports as zero
	backend.AddSensor(testConnection, fanPath, InterfaceMap{
		ValueInterface: PropertyMap{"Value": 1500.0, "MaxValue": 2000.0, "MinValue": 1000.0},
	})
	service.HandleSensorAdded(fanPath)

	coeffs, err := GetSensorAttributes(2000, 1000)
	require.NoError(t, err)
	require.Equal(t, int8(1), coeffs.BExp)

	resp, err := service.GetSDR(&GetSDRReq{RecordID: 0, BytesToRead: 0xFF})
	require.NoError(t, err)
	assert.Equal(t, uint8(0), resp.RecordData[29]&0x0F)

	record, err := ParseFullSensorRecord(resp.RecordData)
	require.NoError(t, err)
	assert.Equal(t, 39, record.M)
	assert.Equal(t, -1, record.RExp)
	assert.Equal(t, 0, record.BExp)
}

func TestFullRecordSignedCoefficients(t *testing.T) {
	service, backend, _ := newTestService(t)
	backend.AddSensor(testConnection, fanPath, InterfaceMap{
		ValueInterface: PropertyMap{"Value": 0.0, "MaxValue": 50.0, "MinValue": -200.0},
	})
	service.HandleSensorAdded(fanPath)

	resp, err := service.GetSDR(&GetSDRReq{RecordID: 0, BytesToRead: 0xFF})
	require.NoError(t, err)
	record, err := ParseFullSensorRecord(resp.RecordData)
	require.NoError(t, err)

	assert.True(t, record.Signed)
	assert.Equal(t, 9, record.M)
	assert.Equal(t, -1, record.RExp)
	assert.Equal(t, -75, record.B)
}

func TestFullRecordThresholdMasks(t *testing.T) {
	service, _, _ := newTestService(t)

	resp, err := service.GetSDR(&GetSDRReq{RecordID: 0, BytesToRead: 0xFF})
	require.NoError(t, err)
	data := resp.RecordData

	expectedLSB := upperNonCriticalGoingHigh | lowerNonCriticalGoingLow | lowerCriticalGoingLow
	assert.Equal(t, expectedLSB, data[14]) // assertion mask LSB
	assert.Equal(t, upperCriticalGoingHigh, data[15])
	assert.Equal(t, expectedLSB, data[16]) // deassertion mask LSB
	assert.Equal(t, upperCriticalGoingHigh, data[17])

	readable := readingLowerNonCritical | readingLowerCritical |
		readingUpperNonCritical | readingUpperCritical
	assert.Equal(t, readable, data[18])
	assert.Equal(t, readable, data[19])
}
