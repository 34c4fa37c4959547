package sensorsdr

import (
	"fmt"
)

type SDRRepositoryInfoResp struct {
	SDRVersion         uint8
	RecordCount        uint16
	MostRecentAddition uint32
	MostRecentErase    uint32
	OperationSupport   uint8
}

func (r *SDRRepositoryInfoResp) MarshalBinary() ([]byte, error) {
	buff := NewByteBuffer(make([]byte, 0, 14))
	buff.PushUint8(r.SDRVersion)
	buff.PushUint16(r.RecordCount)
	// free space unspecified
	buff.PushUint16(0xFFFF)
	buff.PushUint32(r.MostRecentAddition)
	buff.PushUint32(r.MostRecentErase)
	buff.PushUint8(r.OperationSupport)
	return buff.Bytes(), nil
}

// GetSDRRepositoryInfo describes the synthesized repository: one record
// per enumerated sensor, timestamps maintained by the add/remove
// notification handlers.
func (s *Service) GetSDRRepositoryInfo() (*SDRRepositoryInfoResp, error) {
	count, err := s.sensorCount()
	if err != nil {
		return nil, err
	}
	lastAdd, lastRemove := s.repositoryTimestamps()
	return &SDRRepositoryInfoResp{
		SDRVersion:         ipmiSdrVersion,
		RecordCount:        uint16(count),
		MostRecentAddition: lastAdd,
		MostRecentErase:    lastRemove,
		// write not supported
		OperationSupport: repositoryOverflow | allocCommandSupported | reserveSDRCommandSupported,
	}, nil
}

type SDRAllocationInfoResp struct {
	AllocUnits       uint16
	AllocUnitSize    uint16
	AllocUnitsFree   uint16
	AllocUnitLargest uint16
	MaxRecordSize    uint8
}

func (r *SDRAllocationInfoResp) MarshalBinary() ([]byte, error) {
	buff := NewByteBuffer(make([]byte, 0, 9))
	buff.PushUint16(r.AllocUnits)
	buff.PushUint16(r.AllocUnitSize)
	buff.PushUint16(r.AllocUnitsFree)
	buff.PushUint16(r.AllocUnitLargest)
	buff.PushUint8(r.MaxRecordSize)
	return buff.Bytes(), nil
}

// GetSDRAllocationInfo is static capability data: a read-only
// repository handing out one record at a time.
func (s *Service) GetSDRAllocationInfo() *SDRAllocationInfoResp {
	return &SDRAllocationInfoResp{
		// 0000h, unspecified number of alloc units
		AllocUnits:    0,
		AllocUnitSize: maxSDRTotalSize,
		// read only, no free alloc blocks
		AllocUnitsFree:   0,
		AllocUnitLargest: 0,
		// only one record at a time
		MaxRecordSize: 1,
	}
}

type ReserveSDRResp struct {
	ReservationID uint16
}

func (r *ReserveSDRResp) String() string {
	return fmt.Sprintf("<ReserveSDRResp ReservationID=%d>", r.ReservationID)
}

func (r *ReserveSDRResp) MarshalBinary() ([]byte, error) {
	return []byte{byte(r.ReservationID), byte(r.ReservationID >> 8)}, nil
}

func (s *Service) ReserveSDR() *ReserveSDRResp {
	return &ReserveSDRResp{ReservationID: s.nextReservation()}
}

type GetSDRReq struct {
	ReservationID uint16
	RecordID      uint16
	Offset        uint8
	BytesToRead   uint8
}

func (r *GetSDRReq) String() string {
	return fmt.Sprintf("<GetSDRReq ReservationID=%d, RecordID=%d, Offset=%d, BytesToRead=%d>",
		r.ReservationID, r.RecordID, r.Offset, r.BytesToRead)
}

func (r *GetSDRReq) UnmarshalBinary(data []byte) error {
	if len(data) != 6 {
		return RequestLengthInvalid
	}
	r.ReservationID = uint16(data[0]) | uint16(data[1])<<8
	r.RecordID = uint16(data[2]) | uint16(data[3])<<8
	r.Offset = data[4]
	r.BytesToRead = data[5]
	return nil
}

type GetSDRResp struct {
	NextRecordID uint16
	RecordData   []byte
}

func (r *GetSDRResp) MarshalBinary() ([]byte, error) {
	data := make([]byte, 0, 2+len(r.RecordData))
	data = append(data, byte(r.NextRecordID), byte(r.NextRecordID>>8))
	return append(data, r.RecordData...), nil
}

const lastRecordIndex = uint16(0xFFFF)

// GetSDR reads one slice of one repository record. Records beyond the
// sensor population are fetched verbatim from the FRU provider with
// the header record id rewritten; sensor records are synthesized as
// Full Sensor Records from the live object map.
func (s *Service) GetSDR(req *GetSDRReq) (*GetSDRResp, error) {
	// reservation required for partial reads with non zero offset into
	// the record
	if req.Offset != 0 {
		current := s.currentReservation()
		if current == 0 || req.ReservationID != current {
			return nil, InvalidReservationId
		}
	}

	sensorCount, err := s.sensorCount()
	if err != nil {
		return nil, err
	}
	fruCount, err := s.fru.FruSdrCount()
	if err != nil {
		return nil, CodeOf(err)
	}

	lastRecord := sensorCount + fruCount - 1
	if lastRecord < 0 {
		return nil, InvalidFieldRequest
	}
	recordID := int(req.RecordID)
	if req.RecordID == lastRecordIndex {
		recordID = lastRecord
	}
	if recordID > lastRecord {
		return nil, InvalidFieldRequest
	}

	nextRecordID := lastRecordIndex
	if lastRecord > recordID {
		nextRecordID = uint16(recordID + 1)
	}

	if recordID >= sensorCount {
		data, err := s.fruRecordSlice(recordID-sensorCount, recordID, req.Offset, req.BytesToRead)
		if err != nil {
			return nil, err
		}
		return &GetSDRResp{NextRecordID: nextRecordID, RecordData: data}, nil
	}

	tree, err := s.currentTree()
	if err != nil {
		return nil, err
	}
	connection, path, ok := tree.at(recordID)
	if !ok {
		return nil, ResponseError
	}
	sensorMap, err := s.getSensorMap(connection, path)
	if err != nil {
		return nil, err
	}

	record, err := s.buildFullSensorRecord(uint16(recordID), path, sensorMap)
	if err != nil {
		return nil, err
	}
	data, err := record.MarshalBinary()
	if err != nil {
		return nil, ResponseError
	}
	data, err = sliceRecord(data, req.Offset, req.BytesToRead)
	if err != nil {
		return nil, err
	}
	return &GetSDRResp{NextRecordID: nextRecordID, RecordData: data}, nil
}

func (s *Service) fruRecordSlice(fruIndex, recordID int, offset, bytesToRead uint8) ([]byte, error) {
	data, err := s.fru.FruSdrRecord(fruIndex)
	if err != nil {
		return nil, CodeOf(err)
	}
	if int(offset) > len(data) {
		return nil, InvalidFieldRequest
	}
	if len(data) >= 2 {
		data[0] = byte(recordID)
		data[1] = byte(recordID >> 8)
	}
	return sliceRecord(data, offset, bytesToRead)
}

func sliceRecord(data []byte, offset, bytesToRead uint8) ([]byte, error) {
	if int(offset) > len(data) {
		return nil, InvalidFieldRequest
	}
	end := int(offset) + int(bytesToRead)
	if end > len(data) {
		end = len(data)
	}
	return data[offset:end], nil
}

// buildFullSensorRecord populates a type 0x01 record from the sensor's
// live attributes.
func (s *Service) buildFullSensorRecord(recordID uint16, path string, sensorMap InterfaceMap) (*SensorDataFullRecord, error) {
	record := &SensorDataFullRecord{}
	record.Header.RecordIDLSB = byte(recordID)
	record.Header.RecordIDMSB = byte(recordID >> 8)
	record.Header.SDRVersion = ipmiSdrVersion
	record.Header.RecordType = SDR_TYPE_FULL_SENSOR_RECORD
	record.Header.RecordLength = fullSensorRecordSize - sdrHeaderSize

	record.OwnerID = 0x20
	record.OwnerLUN = 0x0
	record.SensorNumber = byte(recordID)

	record.EntityID = 0x0
	record.EntityInstance = 0x01
	record.SensorCapabilities = 0x68 // auto rearm
	record.EventReadingType = eventReadingTypeThreshold

	category := sensorCategoryFromPath(path)
	record.SensorType = sensorTypeCodes[category]
	record.SensorUnits2Base = sensorUnitCodes[category]

	valueProps, ok := sensorMap[ValueInterface]
	if !ok {
		return nil, ResponseError
	}
	max, min := getSensorMaxMin(valueProps, recordDefaultMax, recordDefaultMin)
	coeffs, err := GetSensorAttributes(max, min)
	if err != nil {
		return nil, ResponseError
	}

	// M and B are 10 bit values split across two bytes: low 8 bits in
	// their own byte, the 9th magnitude bit at bit 6 and the sign at
	// bit 7 of the shared byte
	record.MLSB = byte(coeffs.M & 0xFF)
	var mMsb uint8
	if coeffs.M&(1<<8) != 0 {
		mMsb = 1 << 6
	}
	if coeffs.M < 0 {
		mMsb |= 1 << 7
	}
	record.MMSBAndTolerance = mMsb

	record.BLSB = byte(coeffs.B & 0xFF)
	var bMsb uint8
	if coeffs.B&(1<<8) != 0 {
		bMsb = 1 << 6
	}
	if coeffs.B < 0 {
		bMsb |= 1 << 7
	}
	record.BMSBAndAccuracyLSB = bMsb

	// the B exponent nibble below is immediately overwritten by the R
	// exponent computation, so emitted records always carry zero there
	record.RBExponents = uint8(coeffs.BExp) & 0x7
	if coeffs.BExp < 0 {
		record.RBExponents |= 1 << 3
	}
	record.RBExponents = (uint8(coeffs.RExp) & 0x7) << 4
	if coeffs.RExp < 0 {
		record.RBExponents |= 1 << 7
	}

	if coeffs.Signed {
		record.SensorUnits1 = 1 << 7
	}

	name := sensorNameFromPath(path)
	if len(name) > fullRecordIDStrMaxLength {
		name = name[:fullRecordIDStrMaxLength]
	}
	record.IDStringInfo = uint8(len(name))
	record.IDString = name

	thresholds, err := getIPMIThresholds(sensorMap)
	if err != nil {
		return nil, ResponseError
	}
	if thresholds.CriticalHigh != nil {
		record.UpperCriticalThreshold = *thresholds.CriticalHigh
		record.SupportedDeassertions[1] |= upperCriticalGoingHigh
		record.SupportedAssertions[1] |= upperCriticalGoingHigh
		record.DiscreteReadingSettingMask[0] |= readingUpperCritical
	}
	if thresholds.WarningHigh != nil {
		record.UpperNonCriticalThreshold = *thresholds.WarningHigh
		record.SupportedDeassertions[0] |= upperNonCriticalGoingHigh
		record.SupportedAssertions[0] |= upperNonCriticalGoingHigh
		record.DiscreteReadingSettingMask[0] |= readingUpperNonCritical
	}
	if thresholds.CriticalLow != nil {
		record.LowerCriticalThreshold = *thresholds.CriticalLow
		record.SupportedDeassertions[0] |= lowerCriticalGoingLow
		record.SupportedAssertions[0] |= lowerCriticalGoingLow
		record.DiscreteReadingSettingMask[0] |= readingLowerCritical
	}
	if thresholds.WarningLow != nil {
		record.LowerNonCriticalThreshold = *thresholds.WarningLow
		record.SupportedDeassertions[0] |= lowerNonCriticalGoingLow
		record.SupportedAssertions[0] |= lowerNonCriticalGoingLow
		record.DiscreteReadingSettingMask[0] |= readingLowerNonCritical
	}

	// everything that is readable is settable
	record.DiscreteReadingSettingMask[1] = record.DiscreteReadingSettingMask[0]

	return record, nil
}
