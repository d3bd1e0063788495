// Package types holds the wire types shared by the HTTP and MQTT surfaces.
package types

import (
	"time"

	"envsensor/backend/internal/readings"
)

// ErrorResponse is the body of every error reply. Errors carries field-level validation messages.
//
//nolint:errname // ErrorResponse is an API response type, not a traditional error
type ErrorResponse struct {
	// HTTP status code, not serialized
	StatusCode int               `json:"-"`
	RequestID  string            `json:"requestID"`
	Message    string            `json:"message"`
	Errors     map[string]string `json:"errors,omitempty"`
}

func (e *ErrorResponse) Error() string {
	return e.Message
}

func (e *ErrorResponse) AddError(field, message string) *ErrorResponse {
	if e.Errors == nil {
		e.Errors = make(map[string]string)
	}

	e.Errors[field] = message

	return e
}

type PingStatus string

const (
	PingStatusOK    PingStatus = "OK"
	PingStatusError PingStatus = "ERROR"
)

type PingResponse struct {
	Message string     `json:"message"`
	Status  PingStatus `json:"status"`
}

type HealthResponse struct {
	Database bool `json:"database"`
	MQTT     bool `json:"mqtt"`
}

// Advertisement is one BLE advertisement as forwarded by a gateway.
// ManufacturerData is hex encoded and may be empty.
type Advertisement struct {
	DeviceID         string `json:"deviceID"`
	ManufacturerData string `json:"manufacturerData,omitempty"`
	RSSI             int    `json:"rssi"`
	Name             string `json:"name,omitempty"`
}

type OutcomeResponse struct {
	Outcome string            `json:"outcome"`
	Reason  string            `json:"reason,omitempty"`
	Vendor  *string           `json:"vendor,omitempty"`
	Reading *readings.Reading `json:"reading,omitempty"`
}

type ReadingsResponse struct {
	Readings []readings.Reading `json:"readings"`
}

type DevicesResponse struct {
	Devices []string `json:"devices"`
}

type ScanStatus struct {
	Scanning bool `json:"scanning"`
}

type ScanAction string

const (
	ScanActionStart ScanAction = "start"
	ScanActionStop  ScanAction = "stop"
)

// ScanCommand is published retained so gateways joining late follow the current scan state.
type ScanCommand struct {
	Action    ScanAction `json:"action"`
	Timestamp time.Time  `json:"timestamp"`
}

type AllowListResponse struct {
	DeviceIDs     []string `json:"deviceIDs"`
	FilterEnabled bool     `json:"filterEnabled"`
}

type AllowDeviceRequest struct {
	DeviceID string `json:"deviceID"`
}

type DiscoveryStatus struct {
	Enabled bool `json:"enabled"`
}

// ScanOnStartStatus controls whether the service begins scanning as soon as it starts.
type ScanOnStartStatus struct {
	Enabled bool `json:"enabled"`
}

type DecodeRequest struct {
	// Payload is the 16 byte sensor frame in hex, optionally preceded by the 2 byte vendor prefix.
	Payload string `json:"payload"`
}

type DecodeResponse struct {
	Nonce       uint16  `json:"nonce"`
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	Pressure    float64 `json:"pressure"`
	Voltage     float64 `json:"voltage"`
	Current     float64 `json:"current"`
	Power       float64 `json:"power"`
}
