package api

import (
	"time"

	"envsensor/backend/internal/readings"
	"envsensor/backend/internal/session"
	"envsensor/backend/internal/shared/types"
)

func exampleReading() readings.Reading {
	return readings.Reading{
		ID:          "01950c8e-7a40-7b1c-9d52-3f1e8a6b2c44",
		Timestamp:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		DeviceID:    exampleDevice,
		Name:        "EnvSensor",
		Nonce:       1,
		Temperature: 24.04,
		Humidity:    57.12,
		Pressure:    702.4,
		Voltage:     4,
		Current:     10.24,
		Power:       40.96,
		RSSI:        -67,
	}
}

func exampleStats() session.Stats {
	return session.Stats{
		Stored:        42,
		Duplicate:     117,
		Discovery:     0,
		Rejected:      380,
		Malformed:     1,
		DedupKeys:     42,
		DedupCapacity: 0,
		Readings:      42,
		Discovered:    2,
		Scanning:      true,
	}
}

func exampleAdvertisement() types.Advertisement {
	return types.Advertisement{
		DeviceID:         exampleDevice,
		ManufacturerData: "FFFF010064095016701B0000900100040000",
		RSSI:             -67,
		Name:             "EnvSensor",
	}
}
