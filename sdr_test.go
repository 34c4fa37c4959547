package sensorsdr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertComplement(t *testing.T) {
	assert.Equal(t, 5, ConvertComplement(5, 10))
	assert.Equal(t, -5, ConvertComplement(0x3FB, 10))
	assert.Equal(t, 511, ConvertComplement(0x1FF, 10))
	assert.Equal(t, -512, ConvertComplement(0x200, 10))
	assert.Equal(t, -2, ConvertComplement(0xE, 4))
	assert.Equal(t, 7, ConvertComplement(0x7, 4))
}

func TestFullRecordMarshalRoundTrip(t *testing.T) {
	record := &SensorDataFullRecord{}
	record.Header.RecordIDLSB = 3
	record.Header.SDRVersion = ipmiSdrVersion
	record.Header.RecordType = SDR_TYPE_FULL_SENSOR_RECORD
	record.Header.RecordLength = fullSensorRecordSize - sdrHeaderSize
	record.SensorNumber = 3
	record.SensorType = 0x02
	record.SensorUnits2Base = 4
	record.SensorUnits1 = 1 << 7 // signed
	record.MLSB = byte(int16(-5) & 0xFF)
	record.MMSBAndTolerance = 0xC0
	record.BLSB = 75
	record.RBExponents = 0xE0 // R exponent -2
	record.IDStringInfo = 4
	record.IDString = "P12V"

	data, err := record.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, data, fullSensorRecordSize)

	parsed, err := ParseFullSensorRecord(data)
	require.NoError(t, err)
	assert.Equal(t, uint16(3), parsed.RecordID)
	assert.Equal(t, uint8(3), parsed.SensorNumber)
	assert.Equal(t, uint8(0x02), parsed.SensorType)
	assert.Equal(t, uint8(4), parsed.UnitCode)
	assert.True(t, parsed.Signed)
	assert.Equal(t, -5, parsed.M)
	assert.Equal(t, 75, parsed.B)
	assert.Equal(t, -2, parsed.RExp)
	assert.Equal(t, "P12V", parsed.Name)
}

func TestParseRejectsOtherRecordTypes(t *testing.T) {
	data := make([]byte, fullSensorRecordSize)
	data[2] = ipmiSdrVersion
	data[3] = SDR_TYPE_COMPACT_SENSOR_RECORD
	_, err := ParseFullSensorRecord(data)
	assert.True(t, IsUnsupportedSDRTypeErr(err))

	_, err = ParseFullSensorRecord([]byte{0, 0})
	assert.Equal(t, DataTooShort, err)
}

func TestConvertRawToValue(t *testing.T) {
	s := &FullRecordSummary{M: 39, RExp: -2}
	assert.InDelta(t, 49.92, s.ConvertRawToValue(128), 1e-9)

	signed := &FullRecordSummary{M: 1, Signed: true}
	assert.Equal(t, float64(-5), signed.ConvertRawToValue(0xFB))
}

func TestTypeAndUnitNames(t *testing.T) {
	assert.Equal(t, "Temperature", SensorTypeName(0x01))
	assert.Equal(t, "Voltage", SensorTypeName(0x02))
	assert.Equal(t, "degrees C", UnitName(1))
	assert.Equal(t, "RPM", UnitName(18))
	assert.Equal(t, "", SensorTypeName(0xF0))
}
