package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Type is the "type" discriminator carried by every push message.
type Type string

// Inbound types delivered to handlers.
const (
	TypeStatus    Type = "status"
	TypeConfig    Type = "config"
	TypeAPStatus  Type = "ap_status"
	TypePixelTest Type = "pixel_test"
)

// Device replies that are recognized but only logged.
const (
	TypeConfigUpdate Type = "config_update"
	TypeError        Type = "error"
)

// Outbound types.
const (
	TypePixelTestRequest Type = "pixel-test"
	TypeGetStatus        Type = "get_status"
	TypeGetConfig        Type = "get_config"
)

// Recognized reports whether t is delivered to handlers.
func (t Type) Recognized() bool {
	switch t {
	case TypeStatus, TypeConfig, TypeAPStatus, TypePixelTest:
		return true
	default:
		return false
	}
}

var (
	// ErrMalformed is returned for payloads that are not a JSON object with a string type.
	ErrMalformed = errors.New("malformed push message")

	// ErrUnknownType is returned for well-formed messages of an unrecognized type.
	ErrUnknownType = errors.New("unknown push message type")
)

// Envelope is a decoded push message: its type and the full raw payload.
type Envelope struct {
	Type Type
	Raw  json.RawMessage
}

// Decode reads the type discriminator of a push message.
func Decode(data []byte) (Envelope, error) {
	var head struct {
		Type *string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if head.Type == nil || *head.Type == "" {
		return Envelope{}, fmt.Errorf("%w: missing type", ErrMalformed)
	}
	return Envelope{Type: Type(*head.Type), Raw: json.RawMessage(data)}, nil
}

// ConfigUpdate is the device's acknowledgement of a set_config request.
type ConfigUpdate struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// ErrorMessage is sent by the device when it cannot handle a request.
type ErrorMessage struct {
	Message string `json:"message"`
}

// Request is an outbound message with no fields besides its type.
type Request struct {
	Type Type `json:"type"`
}

// PixelTestRequest asks the device to run a pixel test pattern.
type PixelTestRequest struct {
	Type Type `json:"type"`
	Mode int  `json:"mode"`
}

// NewPixelTest builds a pixel-test request for mode.
func NewPixelTest(mode int) PixelTestRequest {
	return PixelTestRequest{Type: TypePixelTestRequest, Mode: mode}
}

// GetStatus asks the device for an immediate status push.
func GetStatus() Request { return Request{Type: TypeGetStatus} }

// GetConfig asks the device to push its configuration.
func GetConfig() Request { return Request{Type: TypeGetConfig} }
