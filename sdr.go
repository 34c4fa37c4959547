package sensorsdr

import (
	"math"
)

// SDR record types. Only full sensor records are synthesized here; the
// remaining codes identify records delegated from the FRU provider or
// seen when rendering a repository dump.
var (
	SDR_TYPE_FULL_SENSOR_RECORD        = byte(0x01)
	SDR_TYPE_COMPACT_SENSOR_RECORD     = byte(0x02)
	SDR_TYPE_EVENT_ONLY_SENSOR_RECORD  = byte(0x03)
	SDR_TYPE_FRU_DEVICE_LOCATOR_RECORD = byte(0x11)
)

const ipmiSdrVersion = uint8(0x51)

const (
	fullRecordIDStrMaxLength = 16
	fullSensorRecordSize     = 64
	sdrHeaderSize            = 5
	// largest record plus the per-record repository overhead, reported
	// by the allocation info command
	maxSDRTotalSize = 76
)

// sensor reading / event enable byte 2
const (
	eventMessagesEnable  = uint8(1 << 7)
	sensorScanningEnable = uint8(1 << 6)
)

// threshold comparison bits (reading byte 3 and the readable mask)
const (
	readingLowerNonCritical    = uint8(1 << 0)
	readingLowerCritical       = uint8(1 << 1)
	readingLowerNonRecoverable = uint8(1 << 2)
	readingUpperNonCritical    = uint8(1 << 3)
	readingUpperCritical       = uint8(1 << 4)
	readingUpperNonRecoverable = uint8(1 << 5)
)

// threshold event bits, first (LSB) byte of the assertion and
// deassertion masks
const (
	lowerNonCriticalGoingLow  = uint8(1 << 0)
	lowerNonCriticalGoingHigh = uint8(1 << 1)
	lowerCriticalGoingLow     = uint8(1 << 2)
	lowerCriticalGoingHigh    = uint8(1 << 3)
	upperNonCriticalGoingLow  = uint8(1 << 6)
	upperNonCriticalGoingHigh = uint8(1 << 7)
)

// threshold event bits, second (MSB) byte
const (
	upperCriticalGoingLow  = uint8(1 << 0)
	upperCriticalGoingHigh = uint8(1 << 1)
)

// set-thresholds request mask bits
const (
	setLowerNonCritical    = uint8(1 << 0)
	setLowerCritical       = uint8(1 << 1)
	setLowerNonRecoverable = uint8(1 << 2)
	setUpperNonCritical    = uint8(1 << 3)
	setUpperCritical       = uint8(1 << 4)
	setUpperNonRecoverable = uint8(1 << 5)
)

// repository operation support bits
const (
	allocCommandSupported      = uint8(0x01)
	reserveSDRCommandSupported = uint8(0x02)
	repositoryOverflow         = uint8(0x80)
)

const eventReadingTypeThreshold = uint8(0x01)

// Sensor category, taken from the path segment before the sensor name,
// selects the advertised sensor type code and base unit. Unrecognized
// categories leave both fields unspecified (0).
var sensorTypeCodes = map[string]uint8{
	"temperature": 0x01,
	"voltage":     0x02,
	"current":     0x03,
	"fan_tach":    0x04,
	"fan_pwm":     0x04,
	"power":       0x0B,
}

var sensorUnitCodes = map[string]uint8{
	"temperature": 1,  // degrees C
	"voltage":     4,  // Volts
	"current":     5,  // Amps
	"fan_tach":    18, // RPM
	"power":       6,  // Watts
}

var sdrRecordValueSensorType []string = []string{
	"reserved",
	"Temperature", "Voltage", "Current", "Fan",
	"Physical Security", "Platform Security", "Processor",
	"Power Supply", "Power Unit", "Cooling Device", "Other",
	"Memory", "Drive Slot / Bay", "POST Memory Resize",
	"System Firmwares", "Event Logging Disabled", "Watchdog1",
	"System Event", "Critical Interrupt", "Button",
	"Module / Board", "Microcontroller", "Add-in Card",
	"Chassis", "Chip Set", "Other FRU", "Cable / Interconnect",
	"Terminator", "System Boot Initiated", "Boot Error",
	"OS Boot", "OS Critical Stop", "Slot / Connector",
	"System ACPI Power State", "Watchdog2", "Platform Alert",
	"Entity Presence", "Monitor ASIC", "LAN",
	"Management Subsys Health", "Battery", "Session Audit",
	"Version Change", "FRU State"}

var sdrRecordValueBasicUnit []string = []string{
	"unspecified",
	"degrees C", "degrees F", "degrees K",
	"Volts", "Amps", "Watts", "Joules",
	"Coulombs", "VA", "Nits",
	"lumen", "lux", "Candela",
	"kPa", "PSI", "Newton",
	"CFM", "RPM", "Hz",
	"microsecond", "millisecond", "second", "minute", "hour",
	"day", "week", "mil", "inches", "feet", "cu in", "cu feet",
	"mm", "cm", "m", "cu cm", "cu m", "liters", "fluid ounce",
	"radians", "steradians", "revolutions", "cycles",
	"gravities", "ounce", "pound", "ft-lb", "oz-in", "gauss",
	"gilberts", "henry", "millihenry", "farad", "microfarad",
	"ohms", "siemens", "mole", "becquerel", "PPM", "reserved",
	"Decibels", "DbA", "DbC", "gray", "sievert",
	"color temp deg K", "bit", "kilobit", "megabit", "gigabit",
	"byte", "kilobyte", "megabyte", "gigabyte", "word", "dword",
	"qword", "line", "hit", "miss", "retry", "reset",
	"overflow", "underrun", "collision", "packets", "messages",
	"characters", "error", "correctable error", "uncorrectable error"}

func SensorTypeName(code uint8) string {
	if int(code) < len(sdrRecordValueSensorType) {
		return sdrRecordValueSensorType[code]
	}
	return ""
}

func UnitName(code uint8) string {
	if int(code) < len(sdrRecordValueBasicUnit) {
		return sdrRecordValueBasicUnit[code]
	}
	return ""
}

type SdrCommonHeader struct {
	RecordIDLSB  uint8
	RecordIDMSB  uint8
	SDRVersion   uint8
	RecordType   uint8
	RecordLength uint8
}

// SensorDataFullRecord is the type 0x01 record, 64 bytes on the wire.
type SensorDataFullRecord struct {
	Header SdrCommonHeader

	// record key bytes
	OwnerID      uint8
	OwnerLUN     uint8
	SensorNumber uint8

	// record body bytes
	EntityID                   uint8
	EntityInstance             uint8
	SensorInitialization       uint8
	SensorCapabilities         uint8
	SensorType                 uint8
	EventReadingType           uint8
	SupportedAssertions        [2]uint8
	SupportedDeassertions      [2]uint8
	DiscreteReadingSettingMask [2]uint8
	SensorUnits1               uint8
	SensorUnits2Base           uint8
	SensorUnits3Modifier       uint8
	Linearization              uint8
	MLSB                       uint8
	MMSBAndTolerance           uint8
	BLSB                       uint8
	BMSBAndAccuracyLSB         uint8
	AccuracyAndSensorDirection uint8
	RBExponents                uint8
	AnalogCharacteristicFlags  uint8
	NominalReading             uint8
	NormalMax                  uint8
	NormalMin                  uint8
	SensorMax                  uint8
	SensorMin                  uint8

	UpperNonRecoverableThreshold uint8
	UpperCriticalThreshold       uint8
	UpperNonCriticalThreshold    uint8
	LowerNonRecoverableThreshold uint8
	LowerCriticalThreshold       uint8
	LowerNonCriticalThreshold    uint8

	PositiveThresholdHysteresis uint8
	NegativeThresholdHysteresis uint8
	Reserved                    [2]uint8
	OEMReserved                 uint8
	IDStringInfo                uint8
	IDString                    string
}

func (r *SensorDataFullRecord) MarshalBinary() ([]byte, error) {
	buff := NewByteBuffer(make([]byte, 0, fullSensorRecordSize))
	buff.PushUint8(r.Header.RecordIDLSB)
	buff.PushUint8(r.Header.RecordIDMSB)
	buff.PushUint8(r.Header.SDRVersion)
	buff.PushUint8(r.Header.RecordType)
	buff.PushUint8(r.Header.RecordLength)

	buff.PushUint8(r.OwnerID)
	buff.PushUint8(r.OwnerLUN)
	buff.PushUint8(r.SensorNumber)

	buff.PushUint8(r.EntityID)
	buff.PushUint8(r.EntityInstance)
	buff.PushUint8(r.SensorInitialization)
	buff.PushUint8(r.SensorCapabilities)
	buff.PushUint8(r.SensorType)
	buff.PushUint8(r.EventReadingType)
	buff.PushUint8(r.SupportedAssertions[0])
	buff.PushUint8(r.SupportedAssertions[1])
	buff.PushUint8(r.SupportedDeassertions[0])
	buff.PushUint8(r.SupportedDeassertions[1])
	buff.PushUint8(r.DiscreteReadingSettingMask[0])
	buff.PushUint8(r.DiscreteReadingSettingMask[1])
	buff.PushUint8(r.SensorUnits1)
	buff.PushUint8(r.SensorUnits2Base)
	buff.PushUint8(r.SensorUnits3Modifier)
	buff.PushUint8(r.Linearization)
	buff.PushUint8(r.MLSB)
	buff.PushUint8(r.MMSBAndTolerance)
	buff.PushUint8(r.BLSB)
	buff.PushUint8(r.BMSBAndAccuracyLSB)
	buff.PushUint8(r.AccuracyAndSensorDirection)
	buff.PushUint8(r.RBExponents)
	buff.PushUint8(r.AnalogCharacteristicFlags)
	buff.PushUint8(r.NominalReading)
	buff.PushUint8(r.NormalMax)
	buff.PushUint8(r.NormalMin)
	buff.PushUint8(r.SensorMax)
	buff.PushUint8(r.SensorMin)

	buff.PushUint8(r.UpperNonRecoverableThreshold)
	buff.PushUint8(r.UpperCriticalThreshold)
	buff.PushUint8(r.UpperNonCriticalThreshold)
	buff.PushUint8(r.LowerNonRecoverableThreshold)
	buff.PushUint8(r.LowerCriticalThreshold)
	buff.PushUint8(r.LowerNonCriticalThreshold)

	buff.PushUint8(r.PositiveThresholdHysteresis)
	buff.PushUint8(r.NegativeThresholdHysteresis)
	buff.PushUint8(r.Reserved[0])
	buff.PushUint8(r.Reserved[1])
	buff.PushUint8(r.OEMReserved)
	buff.PushUint8(r.IDStringInfo)
	buff.PushStringPadded(r.IDString, fullRecordIDStrMaxLength)
	return buff.Bytes(), nil
}

// FullRecordSummary is the decoded view of an emitted full sensor
// record, enough to render a repository dump and convert raw readings
// back into physical values.
type FullRecordSummary struct {
	RecordID     uint16
	SensorNumber uint8
	SensorType   uint8
	UnitCode     uint8
	M            int
	RExp         int
	B            int
	BExp         int
	Signed       bool
	Name         string
}

// ParseFullSensorRecord decodes a type 0x01 record. Other record types
// fail with an UnsupportedSDRTypeErr so callers can skip them.
func ParseFullSensorRecord(data []byte) (*FullRecordSummary, error) {
	if len(data) < sdrHeaderSize {
		return nil, DataTooShort
	}
	if data[3] != SDR_TYPE_FULL_SENSOR_RECORD {
		return nil, NewUnsupportedSDRTypeErr(data[3])
	}
	s := &FullRecordSummary{
		RecordID: uint16(data[0]) | uint16(data[1])<<8,
	}
	buff := NewByteBuffer(data[sdrHeaderSize:])
	// record key bytes
	if _, err := buff.PopUint8(); err != nil { // owner id
		return nil, err
	}
	if _, err := buff.PopUint8(); err != nil { // owner lun
		return nil, err
	}
	number, err := buff.PopUint8()
	if err != nil {
		return nil, err
	}
	s.SensorNumber = number

	// record body bytes up to the unit fields
	for i := 0; i < 2; i++ { // entity id, entity instance
		if _, err := buff.PopUint8(); err != nil {
			return nil, err
		}
	}
	for i := 0; i < 2; i++ { // initialization, capabilities
		if _, err := buff.PopUint8(); err != nil {
			return nil, err
		}
	}
	if s.SensorType, err = buff.PopUint8(); err != nil {
		return nil, err
	}
	if _, err = buff.PopUint8(); err != nil { // event reading type
		return nil, err
	}
	for i := 0; i < 3; i++ { // assertion, deassertion, discrete masks
		if _, err := buff.PopUint16(); err != nil {
			return nil, err
		}
	}
	units1, err := buff.PopUint8()
	if err != nil {
		return nil, err
	}
	s.Signed = units1&0x80 != 0
	if s.UnitCode, err = buff.PopUint8(); err != nil {
		return nil, err
	}
	if _, err = buff.PopUint8(); err != nil { // modifier unit
		return nil, err
	}
	if _, err = buff.PopUint8(); err != nil { // linearization
		return nil, err
	}

	m, err := buff.PopUint8()
	if err != nil {
		return nil, err
	}
	mTol, err := buff.PopUint8()
	if err != nil {
		return nil, err
	}
	s.M = ConvertComplement((int(m)&0xff)|((int(mTol)&0xc0)<<2), 10)

	b, err := buff.PopUint8()
	if err != nil {
		return nil, err
	}
	bAcc, err := buff.PopUint8()
	if err != nil {
		return nil, err
	}
	s.B = ConvertComplement((int(b)&0xff)|((int(bAcc)&0xc0)<<2), 10)

	if _, err = buff.PopUint8(); err != nil { // accuracy
		return nil, err
	}
	rexpBexp, err := buff.PopUint8()
	if err != nil {
		return nil, err
	}
	s.RExp = ConvertComplement(int(rexpBexp&0xf0)>>4, 4)
	s.BExp = ConvertComplement(int(rexpBexp&0x0f), 4)

	// analog flags through hysteresis, 14 bytes of no interest here
	for i := 0; i < 14; i++ {
		if _, err := buff.PopUint8(); err != nil {
			return nil, err
		}
	}
	if _, err = buff.PopUint16(); err != nil { // reserved
		return nil, err
	}
	if _, err = buff.PopUint8(); err != nil { // oem
		return nil, err
	}
	length, err := buff.PopUint8()
	if err != nil {
		return nil, err
	}
	s.Name, err = buff.PopString(int(length & 0x1f))
	return s, err
}

// ConvertRawToValue applies the record's linear formula to a raw byte.
func (s *FullRecordSummary) ConvertRawToValue(raw uint8) float64 {
	x := int(raw)
	if s.Signed {
		x = int(int8(raw))
	}
	return (float64(s.M)*float64(x) + float64(s.B)*math.Pow(10, float64(s.BExp))) *
		math.Pow(10, float64(s.RExp))
}

func ConvertComplement(value, size int) int {
	if value&(1<<(uint(size)-1)) != 0 {
		value = (-(1 << uint(size))) + value
	}
	return value
}
