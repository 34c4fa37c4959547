package sensorsdr

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

type NetworkFunction uint8

var (
	NetworkFunctionSensorEvent = NetworkFunction(0x04)
	NetworkFunctionStorage     = NetworkFunction(0x0A)
)

type Command uint8

const (
	CommandPlatformEvent        = Command(0x02)
	CommandGetDeviceSDR         = Command(0x21)
	CommandReserveDeviceSDRRepo = Command(0x22)
	CommandSetSensorThreshold   = Command(0x26)
	CommandGetSensorThreshold   = Command(0x27)
	CommandGetSensorEventEnable = Command(0x29)
	CommandGetSensorEventStatus = Command(0x2B)
	CommandGetSensorReading     = Command(0x2D)
	CommandGetSensorType        = Command(0x2F)
	CommandSetSensorReading     = Command(0x30)
	CommandGetSDRRepositoryInfo = Command(0x20)
	CommandGetSDRAllocationInfo = Command(0x21)
	CommandReserveSDRRepo       = Command(0x22)
	CommandGetSDR               = Command(0x23)
)

// HandlerFunc consumes the request data bytes and returns response data
// bytes. Returned errors collapse to a completion code via CodeOf.
type HandlerFunc func(data []byte) ([]byte, error)

type routeKey struct {
	netfn NetworkFunction
	cmd   Command
}

// Router maps (network function, command) onto handlers. The outer
// dispatch framework decodes the envelope and hands the raw request
// data here.
type Router struct {
	log    *logrus.Logger
	routes map[routeKey]HandlerFunc
}

func (r *Router) Handle(netfn NetworkFunction, cmd Command, fn HandlerFunc) {
	r.routes[routeKey{netfn: netfn, cmd: cmd}] = fn
}

// Dispatch runs the handler registered for the command and returns the
// response data with its completion code.
func (r *Router) Dispatch(netfn NetworkFunction, cmd Command, data []byte) ([]byte, CompletionCode) {
	netfnLabel := fmt.Sprintf("0x%02x", uint8(netfn))
	cmdLabel := fmt.Sprintf("0x%02x", uint8(cmd))

	fn, ok := r.routes[routeKey{netfn: netfn, cmd: cmd}]
	if !ok {
		commandsTotal.WithLabelValues(netfnLabel, cmdLabel, fmt.Sprintf("0x%02x", uint8(InvalidCommand))).Inc()
		return nil, InvalidCommand
	}
	resp, err := fn(data)
	code := CodeOf(err)
	if code != CommandCompleted {
		resp = nil
		r.log.WithFields(logrus.Fields{"netfn": netfnLabel, "cmd": cmdLabel}).
			WithError(code).Debug("command failed")
	}
	commandsTotal.WithLabelValues(netfnLabel, cmdLabel, fmt.Sprintf("0x%02x", uint8(code))).Inc()
	return resp, code
}

func marshalResp(v interface {
	MarshalBinary() ([]byte, error)
}, err error) ([]byte, error) {
	if err != nil {
		return nil, err
	}
	return v.MarshalBinary()
}

// NewRouter registers the sensor and storage command surface of one
// Service. The reserve and get-SDR handlers are shared between the
// sensor (device SDR) and storage (repository) network functions.
func NewRouter(s *Service, log *logrus.Logger) *Router {
	if log == nil {
		log = logrus.StandardLogger()
	}
	r := &Router{log: log, routes: map[routeKey]HandlerFunc{}}

	wildcard := func(data []byte) ([]byte, error) {
		return nil, InvalidCommand
	}

	sensorNumber := func(data []byte) (uint8, error) {
		if len(data) != 1 {
			return 0, RequestLengthInvalid
		}
		return data[0], nil
	}
	empty := func(data []byte) error {
		if len(data) != 0 {
			return RequestLengthInvalid
		}
		return nil
	}

	// <Get Sensor Type>, <Set Sensor Reading and Event Status>
	r.Handle(NetworkFunctionSensorEvent, CommandGetSensorType, wildcard)
	r.Handle(NetworkFunctionSensorEvent, CommandSetSensorReading, wildcard)

	// <Platform Event>
	r.Handle(NetworkFunctionSensorEvent, CommandPlatformEvent, func(data []byte) ([]byte, error) {
		req := &PlatformEventReq{}
		if err := req.UnmarshalBinary(data); err != nil {
			return nil, err
		}
		return nil, s.PlatformEvent(req)
	})

	// <Get Sensor Reading>
	r.Handle(NetworkFunctionSensorEvent, CommandGetSensorReading, func(data []byte) ([]byte, error) {
		n, err := sensorNumber(data)
		if err != nil {
			return nil, err
		}
		resp, err := s.GetSensorReading(n)
		return marshalResp(resp, err)
	})

	// <Get Sensor Threshold>
	r.Handle(NetworkFunctionSensorEvent, CommandGetSensorThreshold, func(data []byte) ([]byte, error) {
		n, err := sensorNumber(data)
		if err != nil {
			return nil, err
		}
		resp, err := s.GetSensorThresholds(n)
		return marshalResp(resp, err)
	})

	// <Set Sensor Threshold>
	r.Handle(NetworkFunctionSensorEvent, CommandSetSensorThreshold, func(data []byte) ([]byte, error) {
		req := &SetSensorThresholdsReq{}
		if err := req.UnmarshalBinary(data); err != nil {
			return nil, err
		}
		return nil, s.SetSensorThresholds(req)
	})

	// <Get Sensor Event Enable>
	r.Handle(NetworkFunctionSensorEvent, CommandGetSensorEventEnable, func(data []byte) ([]byte, error) {
		n, err := sensorNumber(data)
		if err != nil {
			return nil, err
		}
		resp, err := s.GetSensorEventEnable(n)
		return marshalResp(resp, err)
	})

	// <Get Sensor Event Status>
	r.Handle(NetworkFunctionSensorEvent, CommandGetSensorEventStatus, func(data []byte) ([]byte, error) {
		n, err := sensorNumber(data)
		if err != nil {
			return nil, err
		}
		resp, err := s.GetSensorEventStatus(n)
		return marshalResp(resp, err)
	})

	// <Get SDR Repository Info>
	r.Handle(NetworkFunctionStorage, CommandGetSDRRepositoryInfo, func(data []byte) ([]byte, error) {
		if err := empty(data); err != nil {
			return nil, err
		}
		resp, err := s.GetSDRRepositoryInfo()
		return marshalResp(resp, err)
	})

	// <Get SDR Allocation Info>
	r.Handle(NetworkFunctionStorage, CommandGetSDRAllocationInfo, func(data []byte) ([]byte, error) {
		if err := empty(data); err != nil {
			return nil, err
		}
		return s.GetSDRAllocationInfo().MarshalBinary()
	})

	// <Reserve SDR Repo>, registered for both network functions
	reserve := func(data []byte) ([]byte, error) {
		if err := empty(data); err != nil {
			return nil, err
		}
		return s.ReserveSDR().MarshalBinary()
	}
	r.Handle(NetworkFunctionSensorEvent, CommandReserveDeviceSDRRepo, reserve)
	r.Handle(NetworkFunctionStorage, CommandReserveSDRRepo, reserve)

	// <Get SDR>, registered for both network functions
	getSDR := func(data []byte) ([]byte, error) {
		req := &GetSDRReq{}
		if err := req.UnmarshalBinary(data); err != nil {
			return nil, err
		}
		resp, err := s.GetSDR(req)
		return marshalResp(resp, err)
	}
	r.Handle(NetworkFunctionSensorEvent, CommandGetDeviceSDR, getSDR)
	r.Handle(NetworkFunctionStorage, CommandGetSDR, getSDR)

	return r
}
