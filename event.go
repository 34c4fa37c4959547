package sensorsdr

import (
	"fmt"
)

const selAddMessage = "SEL Entry"

// directionMask selects the assertion/deassertion bit of the event
// type byte.
const directionMask = uint8(0x80)

// PlatformEventReq carries an externally generated event record. The
// system channel form leads with the generator ID; the bridged form
// leads with the event message revision (0x04) and the generator is
// assumed to be the management engine.
type PlatformEventReq struct {
	GeneratorID uint8
	EvMRev      uint8
	SensorType  uint8
	SensorNum   uint8
	EventType   uint8
	EventData   [3]uint8
}

func (r *PlatformEventReq) String() string {
	return fmt.Sprintf("<PlatformEventReq GeneratorID=%#02x, SensorNum=%d, EventType=%#02x>",
		r.GeneratorID, r.SensorNum, r.EventType)
}

func (r *PlatformEventReq) UnmarshalBinary(data []byte) error {
	// todo: this check is supposed to be based on the incoming channel;
	// for now distinguish the forms by the leading EvMRev byte
	r.EventData[1] = 0xFF
	r.EventData[2] = 0xFF
	if len(data) > 0 && data[0] == 0x04 {
		if len(data) < 5 || len(data) > 7 {
			return RequestLengthInvalid
		}
		r.EvMRev = data[0]
		r.SensorType = data[1]
		r.SensorNum = data[2]
		r.EventType = data[3]
		r.EventData[0] = data[4]
		if len(data) > 5 {
			r.EventData[1] = data[5]
		}
		if len(data) > 6 {
			r.EventData[2] = data[6]
		}
		// the generator ID is supposed to come from the requester's
		// address; assume the ME for now
		r.GeneratorID = 0x2C
		return nil
	}
	if len(data) < 6 || len(data) > 8 {
		return RequestLengthInvalid
	}
	r.GeneratorID = data[0]
	r.EvMRev = data[1]
	r.SensorType = data[2]
	r.SensorNum = data[3]
	r.EventType = data[4]
	r.EventData[0] = data[5]
	if len(data) > 6 {
		r.EventData[1] = data[6]
	}
	if len(data) > 7 {
		r.EventData[2] = data[7]
	}
	return nil
}

// PlatformEvent appends the event to the event log, resolving the
// sensor path from the sensor number when the topology knows it.
func (s *Service) PlatformEvent(req *PlatformEventReq) error {
	assert := req.EventType&directionMask == 0

	var sensorPath string
	if tree, err := s.currentTree(); err == nil {
		sensorPath = tree.pathForNumber(req.SensorNum)
	}

	err := s.backend.AppendEventLogEntry(selAddMessage, sensorPath,
		[3]byte{req.EventData[0], req.EventData[1], req.EventData[2]},
		assert, uint16(req.GeneratorID))
	if err != nil {
		s.log.WithError(err).Error("failed to append platform event")
		return UnspecifiedError
	}
	return nil
}
