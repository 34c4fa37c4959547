package sensorsdr

import (
	"fmt"
)

// CompletionCode is the single status byte returned with every response.
type CompletionCode uint8

const (
	CommandCompleted     = CompletionCode(0x00)
	InvalidCommand       = CompletionCode(0xC1)
	InvalidReservationId = CompletionCode(0xC5)
	RequestLengthInvalid = CompletionCode(0xC7)
	SensorNotFound       = CompletionCode(0xCB)
	InvalidFieldRequest  = CompletionCode(0xCC)
	ResponseError        = CompletionCode(0xCE)
	UnspecifiedError     = CompletionCode(0xFF)
)

func (c CompletionCode) Error() string {
	switch c {
	case CommandCompleted:
		return "Command completed normally"
	case InvalidCommand:
		return "Invalid command"
	case InvalidReservationId:
		return "Reservation canceled or invalid reservation ID"
	case RequestLengthInvalid:
		return "Request data length invalid"
	case SensorNotFound:
		return "Requested sensor, data, or record not present"
	case InvalidFieldRequest:
		return "Invalid data field in request"
	case ResponseError:
		return "Could not provide response"
	}
	return fmt.Sprintf("Completion code 0x%02x", uint8(c))
}

// CodeOf maps an error onto the completion code sent back on the wire,
// collapsing anything that isn't already a CompletionCode to 0xFF.
func CodeOf(err error) CompletionCode {
	if err == nil {
		return CommandCompleted
	}
	if c, ok := err.(CompletionCode); ok {
		return c
	}
	return UnspecifiedError
}

func IsSensorNotFound(err error) bool {
	return CodeOf(err) == SensorNotFound
}

func IsInvalidReservation(err error) bool {
	return CodeOf(err) == InvalidReservationId
}

func IsInvalidFieldRequest(err error) bool {
	return CodeOf(err) == InvalidFieldRequest
}

type UnsupportedSDRTypeErr struct {
	sdrType byte
}

func (c UnsupportedSDRTypeErr) Error() string {
	return fmt.Sprintf("Unsupported SDR type(0x%02x)", c.sdrType)
}

func NewUnsupportedSDRTypeErr(sdrType byte) UnsupportedSDRTypeErr {
	return UnsupportedSDRTypeErr{sdrType: sdrType}
}

func IsUnsupportedSDRTypeErr(err error) bool {
	switch err.(type) {
	case UnsupportedSDRTypeErr:
		return true
	}
	return false
}
