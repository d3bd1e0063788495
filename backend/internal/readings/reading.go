// Package readings holds decoded sensor readings for presentation.
package readings

import (
	"time"

	"envsensor/backend/pkg/payload"
	"envsensor/backend/pkg/utils"
)

// Reading is one accepted, decoded and deduplicated sensor sample.
type Reading struct {
	// ID only distinguishes list entries for display.
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	DeviceID    string    `json:"deviceID"`
	Name        string    `json:"name,omitempty"`
	Nonce       uint16    `json:"nonce"`
	Temperature float64   `json:"temperature"`
	Humidity    float64   `json:"humidity"`
	Pressure    float64   `json:"pressure"`
	Voltage     float64   `json:"voltage"`
	Current     float64   `json:"current"`
	Power       float64   `json:"power"`
	RSSI        int       `json:"rssi"`
}

// New builds a reading from a decoded payload.
func New(at time.Time, deviceID, name string, rssi int, p payload.Payload) Reading {
	return Reading{
		ID:          utils.NewUUID(),
		Timestamp:   at,
		DeviceID:    deviceID,
		Name:        name,
		Nonce:       p.Nonce,
		Temperature: p.Temperature,
		Humidity:    p.Humidity,
		Pressure:    p.Pressure,
		Voltage:     p.Voltage,
		Current:     p.Current,
		Power:       p.Power(),
		RSSI:        rssi,
	}
}

// Equal reports whether r and o describe the same transmission.
func (r Reading) Equal(o Reading) bool {
	return r.DeviceID == o.DeviceID && r.Nonce == o.Nonce
}

// TimestampString formats the local time of day as HH:mm:ss.
func (r Reading) TimestampString() string {
	return r.Timestamp.Local().Format(time.TimeOnly)
}
