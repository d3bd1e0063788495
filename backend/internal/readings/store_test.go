package readings

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"envsensor/backend/pkg/payload"
)

func TestNewReading(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 3, 1, 14, 5, 9, 0, time.Local)
	p := payload.Payload{Nonce: 7, Temperature: 21.5, Humidity: 40, Pressure: 1013.2, Voltage: 4, Current: 10.24}

	r := New(at, "AA:BB", "EnvSensor", -61, p)
	require.NotEmpty(t, r.ID)
	assert.Equal(t, uint16(7), r.Nonce)
	assert.Equal(t, 40.96, r.Power)
	assert.Equal(t, -61, r.RSSI)
	assert.Equal(t, "14:05:09", r.TimestampString())

	other := New(at.Add(time.Second), "AA:BB", "", -70, payload.Payload{Nonce: 7})
	assert.NotEqual(t, r.ID, other.ID)
	assert.True(t, r.Equal(other))
	assert.False(t, r.Equal(New(at, "AA:BC", "", 0, p)))
}

func TestStoreInsertOrder(t *testing.T) {
	t.Parallel()

	s := NewStore(0)
	assert.Equal(t, DefaultCapacity, s.Capacity())

	_, ok := s.Latest()
	assert.False(t, ok)

	for n := range uint16(3) {
		s.Insert(Reading{DeviceID: "A", Nonce: n})
	}

	snap := s.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, []uint16{2, 1, 0}, []uint16{snap[0].Nonce, snap[1].Nonce, snap[2].Nonce})

	latest, ok := s.Latest()
	require.True(t, ok)
	assert.Equal(t, uint16(2), latest.Nonce)

	// Snapshots are independent of later inserts.
	s.Insert(Reading{DeviceID: "A", Nonce: 3})
	assert.Equal(t, uint16(2), snap[0].Nonce)
}

func TestStoreEvictsOldest(t *testing.T) {
	t.Parallel()

	s := NewStore(DefaultCapacity)
	for n := range uint16(150) {
		s.Insert(Reading{DeviceID: "A", Nonce: n})
	}

	snap := s.Snapshot()
	require.Len(t, snap, DefaultCapacity)
	assert.Equal(t, uint16(149), snap[0].Nonce)
	assert.Equal(t, uint16(50), snap[DefaultCapacity-1].Nonce)

	s.Clear()
	assert.Zero(t, s.Len())
}
