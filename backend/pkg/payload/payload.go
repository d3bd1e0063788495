// Package payload decodes the fixed 16-byte EnvSensor manufacturer payload.
//
// Layout (little-endian, offsets in bytes):
//
//	0  u16 nonce
//	2  i16 temperature  °C ×100
//	4  u16 humidity     %  ×100
//	6  u32 pressure     hPa ×10
//	10 u16 voltage      V  ×100
//	12 i32 current      mA ×100
package payload

import (
	"errors"
	"fmt"
)

// Size is the only accepted payload length.
const Size = 16

const (
	temperatureScale = 100
	humidityScale    = 100
	pressureScale    = 10
	voltageScale     = 100
	currentScale     = 100
)

// ErrInvalidLength is returned when the payload is not exactly Size bytes.
var ErrInvalidLength = errors.New("invalid payload length")

// Raw holds the undecoded integer fields as they appear on the wire.
type Raw struct {
	Nonce       uint16
	Temperature int16
	Humidity    uint16
	Pressure    uint32
	Voltage     uint16
	Current     int32
}

// Payload is a fully decoded measurement frame.
type Payload struct {
	Nonce       uint16  `json:"nonce"`
	Temperature float64 `json:"temperature"` // °C
	Humidity    float64 `json:"humidity"`    // %
	Pressure    float64 `json:"pressure"`    // hPa
	Voltage     float64 `json:"voltage"`     // V
	Current     float64 `json:"current"`     // mA
}

// Power returns voltage × current in mW.
func (p Payload) Power() float64 {
	return p.Voltage * p.Current
}

// Decode parses b into a Payload. It never returns a partially populated value.
func Decode(b []byte) (Payload, error) {
	raw, err := DecodeRaw(b)
	if err != nil {
		return Payload{}, err
	}

	return raw.Scale(), nil
}

// DecodeRaw parses b into its raw integer fields.
func DecodeRaw(b []byte) (Raw, error) {
	if len(b) != Size {
		return Raw{}, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidLength, len(b), Size)
	}

	return Raw{
		Nonce:       le16(b[0:2]),
		Temperature: int16(le16(b[2:4])),
		Humidity:    le16(b[4:6]),
		Pressure:    le32(b[6:10]),
		Voltage:     le16(b[10:12]),
		Current:     int32(le32(b[12:16])),
	}, nil
}

// Scale converts the raw fields to physical units. Values are passed through
// unmodified, implausible ones included.
func (r Raw) Scale() Payload {
	return Payload{
		Nonce:       r.Nonce,
		Temperature: float64(r.Temperature) / temperatureScale,
		Humidity:    float64(r.Humidity) / humidityScale,
		Pressure:    float64(r.Pressure) / pressureScale,
		Voltage:     float64(r.Voltage) / voltageScale,
		Current:     float64(r.Current) / currentScale,
	}
}

// Encode is the inverse of DecodeRaw.
func Encode(r Raw) []byte {
	b := make([]byte, Size)
	put16(b[0:2], r.Nonce)
	put16(b[2:4], uint16(r.Temperature))
	put16(b[4:6], r.Humidity)
	put32(b[6:10], r.Pressure)
	put16(b[10:12], r.Voltage)
	put32(b[12:16], uint32(r.Current))

	return b
}

// le16 and le32 assemble fields byte by byte: byte i contributes b[i] << (8*i).
func le16(b []byte) uint16 {
	return uint16(b[0]) | uint16(b[1])<<8
}

func le32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func put16(b []byte, v uint16) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
}

func put32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}
