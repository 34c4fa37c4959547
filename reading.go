package sensorsdr

import (
	"fmt"
	"math"
)

// Range defaults when a sensor does not declare MaxValue/MinValue. The
// reading path and the record assembly path use different fallbacks;
// both are kept as-is from the reference behavior.
const (
	readingDefaultMax = float64(127)
	readingDefaultMin = float64(-128)
	recordDefaultMax  = float64(128)
	recordDefaultMin  = float64(-127)
)

// getSensorMaxMin reads the declared range off the Value interface
// properties, falling back to the supplied defaults.
func getSensorMaxMin(valueProps PropertyMap, defaultMax, defaultMin float64) (max, min float64) {
	max = defaultMax
	min = defaultMin
	if v, ok := valueProps["MaxValue"]; ok {
		if d, err := VariantToDouble(v); err == nil {
			max = d
		}
	}
	if v, ok := valueProps["MinValue"]; ok {
		if d, err := VariantToDouble(v); err == nil {
			min = d
		}
	}
	return max, min
}

func alarmActive(props PropertyMap, name string) bool {
	v, ok := props[name]
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// IPMIThresholds are the four setpoints a sensor may expose, already
// scaled to raw bytes. Nil means the backend does not expose that
// threshold. Thresholds and the current reading must share one
// coefficient set per request, so the scaling is derived here from the
// same live range.
type IPMIThresholds struct {
	WarningHigh  *uint8
	WarningLow   *uint8
	CriticalHigh *uint8
	CriticalLow  *uint8
}

func getIPMIThresholds(sensorMap InterfaceMap) (IPMIThresholds, error) {
	var resp IPMIThresholds
	warningMap, haveWarning := sensorMap[WarningInterface]
	criticalMap, haveCritical := sensorMap[CriticalInterface]
	if !haveWarning && !haveCritical {
		return resp, nil
	}

	valueProps, ok := sensorMap[ValueInterface]
	if !ok {
		// a sensor exposing thresholds without a value interface is
		// malformed
		return resp, ResponseError
	}
	max, min := getSensorMaxMin(valueProps, readingDefaultMax, readingDefaultMin)
	coeffs, err := GetSensorAttributes(max, min)
	if err != nil {
		return resp, ResponseError
	}

	scale := func(props PropertyMap, name string) *uint8 {
		v, ok := props[name]
		if !ok {
			return nil
		}
		d, err := VariantToDouble(v)
		if err != nil {
			return nil
		}
		raw := ScaleValueFromDouble(d, coeffs)
		return &raw
	}
	if haveWarning {
		resp.WarningHigh = scale(warningMap, "WarningHigh")
		resp.WarningLow = scale(warningMap, "WarningLow")
	}
	if haveCritical {
		resp.CriticalHigh = scale(criticalMap, "CriticalHigh")
		resp.CriticalLow = scale(criticalMap, "CriticalLow")
	}
	return resp, nil
}

type SensorReadingResp struct {
	Reading    uint8
	Operation  uint8
	Thresholds uint8
}

func (r *SensorReadingResp) String() string {
	return fmt.Sprintf("<SensorReadingResp Reading=%d, Operation=%#02x, Thresholds=%#02x>",
		r.Reading, r.Operation, r.Thresholds)
}

func (r *SensorReadingResp) MarshalBinary() ([]byte, error) {
	return []byte{r.Reading, r.Operation, r.Thresholds}, nil
}

// GetSensorReading encodes the live reading of one sensor plus the
// scanning state and the currently crossed thresholds. Threshold bits
// come straight from the live alarm booleans, not the deassertion
// tracker.
func (s *Service) GetSensorReading(sensorNumber uint8) (*SensorReadingResp, error) {
	connection, path, err := s.resolve(sensorNumber)
	if err != nil {
		return nil, err
	}
	sensorMap, err := s.getSensorMap(connection, path)
	if err != nil {
		return nil, err
	}
	valueProps, ok := sensorMap[ValueInterface]
	if !ok {
		return nil, ResponseError
	}
	valueVariant, ok := valueProps["Value"]
	if !ok {
		return nil, ResponseError
	}
	reading, err := VariantToDouble(valueVariant)
	if err != nil {
		return nil, ResponseError
	}

	max, min := getSensorMaxMin(valueProps, readingDefaultMax, readingDefaultMin)
	coeffs, err := GetSensorAttributes(max, min)
	if err != nil {
		return nil, ResponseError
	}

	resp := &SensorReadingResp{
		Reading:   ScaleValueFromDouble(reading, coeffs),
		Operation: sensorScanningEnable | eventMessagesEnable,
	}

	if warningMap, ok := sensorMap[WarningInterface]; ok {
		if alarmActive(warningMap, "WarningAlarmHigh") {
			resp.Thresholds |= readingUpperNonCritical
		}
		if alarmActive(warningMap, "WarningAlarmLow") {
			resp.Thresholds |= readingLowerNonCritical
		}
	}
	if criticalMap, ok := sensorMap[CriticalInterface]; ok {
		if alarmActive(criticalMap, "CriticalAlarmHigh") {
			resp.Thresholds |= readingUpperCritical
		}
		if alarmActive(criticalMap, "CriticalAlarmLow") {
			resp.Thresholds |= readingLowerCritical
		}
	}
	return resp, nil
}

type SensorThresholdsResp struct {
	Readable            uint8
	LowerNonCritical    uint8
	LowerCritical       uint8
	LowerNonRecoverable uint8
	UpperNonCritical    uint8
	UpperCritical       uint8
	UpperNonRecoverable uint8
}

func (r *SensorThresholdsResp) MarshalBinary() ([]byte, error) {
	return []byte{
		r.Readable,
		r.LowerNonCritical, r.LowerCritical, r.LowerNonRecoverable,
		r.UpperNonCritical, r.UpperCritical, r.UpperNonRecoverable,
	}, nil
}

func (s *Service) GetSensorThresholds(sensorNumber uint8) (*SensorThresholdsResp, error) {
	connection, path, err := s.resolve(sensorNumber)
	if err != nil {
		return nil, err
	}
	sensorMap, err := s.getSensorMap(connection, path)
	if err != nil {
		return nil, err
	}
	thresholds, err := getIPMIThresholds(sensorMap)
	if err != nil {
		return nil, ResponseError
	}

	resp := &SensorThresholdsResp{}
	if thresholds.WarningHigh != nil {
		resp.Readable |= readingUpperNonCritical
		resp.UpperNonCritical = *thresholds.WarningHigh
	}
	if thresholds.WarningLow != nil {
		resp.Readable |= readingLowerNonCritical
		resp.LowerNonCritical = *thresholds.WarningLow
	}
	if thresholds.CriticalHigh != nil {
		resp.Readable |= readingUpperCritical
		resp.UpperCritical = *thresholds.CriticalHigh
	}
	if thresholds.CriticalLow != nil {
		resp.Readable |= readingLowerCritical
		resp.LowerCritical = *thresholds.CriticalLow
	}
	return resp, nil
}

type SetSensorThresholdsReq struct {
	SensorNumber        uint8
	Mask                uint8
	LowerNonCritical    uint8
	LowerCritical       uint8
	LowerNonRecoverable uint8
	UpperNonCritical    uint8
	UpperCritical       uint8
	UpperNonRecoverable uint8
}

func (r *SetSensorThresholdsReq) String() string {
	return fmt.Sprintf("<SetSensorThresholdsReq SensorNumber=%d, Mask=%#02x>", r.SensorNumber, r.Mask)
}

func (r *SetSensorThresholdsReq) UnmarshalBinary(data []byte) error {
	if len(data) != 8 {
		return RequestLengthInvalid
	}
	r.SensorNumber = data[0]
	r.Mask = data[1]
	r.LowerNonCritical = data[2]
	r.LowerCritical = data[3]
	r.LowerNonRecoverable = data[4]
	r.UpperNonCritical = data[5]
	r.UpperCritical = data[6]
	r.UpperNonRecoverable = data[7]
	return nil
}

type thresholdWrite struct {
	property string
	raw      uint8
	iface    string
}

// SetSensorThresholds pushes requested setpoints to the backend as
// physical values. Every requested threshold must already exist on the
// sensor; validation completes before the first write so a rejected
// request issues no backend writes at all.
func (s *Service) SetSensorThresholds(req *SetSensorThresholdsReq) error {
	// upper two bits reserved
	if req.Mask&0xC0 != 0 {
		return InvalidFieldRequest
	}
	// non-recoverable thresholds are not supported on any sensor
	if req.Mask&(setLowerNonRecoverable|setUpperNonRecoverable) != 0 {
		return InvalidFieldRequest
	}
	if req.Mask == 0 {
		return nil
	}

	connection, path, err := s.resolve(req.SensorNumber)
	if err != nil {
		return err
	}
	sensorMap, err := s.getSensorMap(connection, path)
	if err != nil {
		return err
	}
	valueProps, ok := sensorMap[ValueInterface]
	if !ok {
		return ResponseError
	}
	max, min := getSensorMaxMin(valueProps, readingDefaultMax, readingDefaultMin)
	coeffs, err := GetSensorAttributes(max, min)
	if err != nil {
		return ResponseError
	}

	var writes []thresholdWrite
	require := func(iface string, mask uint8, property string, raw uint8) error {
		if req.Mask&mask == 0 {
			return nil
		}
		props, ok := sensorMap[iface]
		if !ok {
			return InvalidFieldRequest
		}
		if _, ok := props[property]; !ok {
			return InvalidFieldRequest
		}
		writes = append(writes, thresholdWrite{property: property, raw: raw, iface: iface})
		return nil
	}
	if err := require(CriticalInterface, setLowerCritical, "CriticalLow", req.LowerCritical); err != nil {
		return err
	}
	if err := require(CriticalInterface, setUpperCritical, "CriticalHigh", req.UpperCritical); err != nil {
		return err
	}
	if err := require(WarningInterface, setLowerNonCritical, "WarningLow", req.LowerNonCritical); err != nil {
		return err
	}
	if err := require(WarningInterface, setUpperNonCritical, "WarningHigh", req.UpperNonCritical); err != nil {
		return err
	}

	for _, w := range writes {
		// section 36.3 of the protocol spec, assume all linear; the
		// request byte enters the formula unsigned
		valueToSet := (float64(coeffs.M)*float64(w.raw) +
			float64(coeffs.B)*math.Pow(10, float64(coeffs.BExp))) *
			math.Pow(10, float64(coeffs.RExp))
		if err := s.backend.SetProperty(connection, path, w.iface, w.property, valueToSet); err != nil {
			s.log.WithError(err).WithField("sensor", path).Error("failed to set threshold")
			return UnspecifiedError
		}
	}
	return nil
}

type SensorEventEnableResp struct {
	Enabled               uint8
	AssertionEnabledLSB   uint8
	AssertionEnabledMSB   uint8
	DeassertionEnabledLSB uint8
	DeassertionEnabledMSB uint8
	// Long selects the 5 byte threshold form over the 1 byte form used
	// for sensors without threshold interfaces.
	Long bool
}

func (r *SensorEventEnableResp) MarshalBinary() ([]byte, error) {
	if !r.Long {
		return []byte{r.Enabled}, nil
	}
	return []byte{
		r.Enabled,
		r.AssertionEnabledLSB, r.AssertionEnabledMSB,
		r.DeassertionEnabledLSB, r.DeassertionEnabledMSB,
	}, nil
}

// GetSensorEventEnable reports which threshold events the sensor can
// generate. Existence of a setpoint implies the event pair is enabled;
// selectively disabling individual threshold events is not supported.
func (s *Service) GetSensorEventEnable(sensorNumber uint8) (*SensorEventEnableResp, error) {
	connection, path, err := s.resolve(sensorNumber)
	if err != nil {
		return nil, err
	}
	sensorMap, err := s.getSensorMap(connection, path)
	if err != nil {
		return nil, err
	}

	warningMap, haveWarning := sensorMap[WarningInterface]
	criticalMap, haveCritical := sensorMap[CriticalInterface]
	if !haveWarning && !haveCritical {
		return &SensorEventEnableResp{
			Enabled: eventMessagesEnable | sensorScanningEnable,
		}, nil
	}

	resp := &SensorEventEnableResp{
		Enabled: sensorScanningEnable,
		Long:    true,
	}
	if haveWarning {
		if _, ok := warningMap["WarningHigh"]; ok {
			resp.AssertionEnabledLSB |= upperNonCriticalGoingHigh
			resp.DeassertionEnabledLSB |= upperNonCriticalGoingLow
		}
		if _, ok := warningMap["WarningLow"]; ok {
			resp.AssertionEnabledLSB |= lowerNonCriticalGoingLow
			resp.DeassertionEnabledLSB |= lowerNonCriticalGoingHigh
		}
	}
	if haveCritical {
		if _, ok := criticalMap["CriticalHigh"]; ok {
			resp.AssertionEnabledMSB |= upperCriticalGoingHigh
			resp.DeassertionEnabledMSB |= upperCriticalGoingLow
		}
		if _, ok := criticalMap["CriticalLow"]; ok {
			resp.AssertionEnabledLSB |= lowerCriticalGoingLow
			resp.DeassertionEnabledLSB |= lowerCriticalGoingHigh
		}
	}
	return resp, nil
}

type SensorEventStatusResp struct {
	Enabled         uint8
	AssertionsLSB   uint8
	AssertionsMSB   uint8
	DeassertionsLSB uint8
	DeassertionsMSB uint8
	// Long selects the 5 byte form; without threshold interfaces the
	// final deassertions byte is dropped.
	Long bool
}

func (r *SensorEventStatusResp) MarshalBinary() ([]byte, error) {
	data := []byte{
		r.Enabled,
		r.AssertionsLSB, r.AssertionsMSB,
		r.DeassertionsLSB, r.DeassertionsMSB,
	}
	if !r.Long {
		return data[:4], nil
	}
	return data, nil
}

// GetSensorEventStatus combines the live alarm booleans (assertion
// bits) with the tracker's deassertion memory (deassertion bits).
func (s *Service) GetSensorEventStatus(sensorNumber uint8) (*SensorEventStatusResp, error) {
	connection, path, err := s.resolve(sensorNumber)
	if err != nil {
		return nil, err
	}
	sensorMap, err := s.getSensorMap(connection, path)
	if err != nil {
		return nil, err
	}

	resp := &SensorEventStatusResp{Enabled: sensorScanningEnable}

	if deasserted, known := s.tracker.LastDeassertion(path, "CriticalAlarmHigh"); known && deasserted {
		resp.DeassertionsMSB |= upperCriticalGoingHigh
	}
	if deasserted, known := s.tracker.LastDeassertion(path, "CriticalAlarmLow"); known && deasserted {
		resp.DeassertionsMSB |= upperCriticalGoingLow
	}
	if deasserted, known := s.tracker.LastDeassertion(path, "WarningAlarmHigh"); known && deasserted {
		resp.DeassertionsLSB |= upperNonCriticalGoingHigh
	}
	if deasserted, known := s.tracker.LastDeassertion(path, "WarningAlarmLow"); known && deasserted {
		resp.DeassertionsLSB |= lowerNonCriticalGoingHigh
	}

	warningMap, haveWarning := sensorMap[WarningInterface]
	criticalMap, haveCritical := sensorMap[CriticalInterface]
	if !haveWarning && !haveCritical {
		return resp, nil
	}

	resp.Long = true
	resp.Enabled = eventMessagesEnable
	if haveWarning {
		if alarmActive(warningMap, "WarningAlarmHigh") {
			resp.AssertionsLSB |= upperNonCriticalGoingHigh
		}
		if alarmActive(warningMap, "WarningAlarmLow") {
			resp.AssertionsLSB |= lowerNonCriticalGoingLow
		}
	}
	if haveCritical {
		if alarmActive(criticalMap, "CriticalAlarmHigh") {
			resp.AssertionsMSB |= upperCriticalGoingHigh
		}
		if alarmActive(criticalMap, "CriticalAlarmLow") {
			resp.AssertionsLSB |= lowerCriticalGoingLow
		}
	}
	return resp, nil
}
